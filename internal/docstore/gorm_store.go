package docstore

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/portfolio/internal/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore persists documents in the documents table.
type GormStore struct {
	db     *gorm.DB
	hub    *hub
	logger *zap.Logger
	closed atomic.Bool

	mu      sync.Mutex
	watcher *watcher
}

var _ Store = (*GormStore)(nil)

// NewGormStore constructs a GormStore. A nil logger disables logging.
func NewGormStore(gdb *gorm.DB, logger *zap.Logger) *GormStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("docstore")
	return &GormStore{
		db:     gdb,
		hub:    newHub(logger),
		logger: logger,
	}
}

// Get returns the current snapshot. A missing document is not an error.
func (s *GormStore) Get(ctx context.Context, ref DocumentRef) (Snapshot, error) {
	if err := ref.validate(); err != nil {
		return Snapshot{}, err
	}
	if s.closed.Load() {
		return Snapshot{}, ErrClosed
	}
	return s.get(s.db.WithContext(ctx), ref)
}

func (s *GormStore) get(tx *gorm.DB, ref DocumentRef) (Snapshot, error) {
	var rows []db.Document
	if err := tx.Where("collection = ? AND doc_id = ?", ref.Collection, ref.ID).Limit(1).Find(&rows).Error; err != nil {
		return Snapshot{}, fmt.Errorf("get %s: %w", ref, err)
	}
	if len(rows) == 0 {
		return Snapshot{Ref: ref}, nil
	}
	return snapshotFromRow(ref, rows[0]), nil
}

// Set replaces the document with data and notifies listeners.
func (s *GormStore) Set(ctx context.Context, ref DocumentRef, data any) (Snapshot, error) {
	if err := ref.validate(); err != nil {
		return Snapshot{}, err
	}
	if s.closed.Load() {
		return Snapshot{}, ErrClosed
	}

	raw, err := encodeObject(data)
	if err != nil {
		return Snapshot{}, err
	}

	now := time.Now().UTC()
	row := db.Document{
		Collection: ref.Collection,
		DocID:      ref.ID,
		Data:       string(raw),
		Revision:   1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	var snap Snapshot
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "collection"}, {Name: "doc_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"data":       row.Data,
				"deleted":    false,
				"revision":   gorm.Expr("documents.revision + 1"),
				"updated_at": now,
			}),
		}).Create(&row).Error; err != nil {
			return err
		}
		current, err := s.get(tx, ref)
		if err != nil {
			return err
		}
		snap = current
		return nil
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("set %s: %w", ref, err)
	}

	s.hub.publish(snap)
	return snap, nil
}

// Delete removes the document. Deleting a missing document is a no-op.
func (s *GormStore) Delete(ctx context.Context, ref DocumentRef) error {
	if err := ref.validate(); err != nil {
		return err
	}
	if s.closed.Load() {
		return ErrClosed
	}

	var (
		snap    Snapshot
		changed bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&db.Document{}).
			Where("collection = ? AND doc_id = ? AND deleted = ?", ref.Collection, ref.ID, false).
			Updates(map[string]interface{}{
				"deleted":    true,
				"data":       "{}",
				"revision":   gorm.Expr("revision + 1"),
				"updated_at": time.Now().UTC(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		changed = true
		current, err := s.get(tx, ref)
		if err != nil {
			return err
		}
		snap = current
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", ref, err)
	}

	if changed {
		s.hub.publish(snap)
	}
	return nil
}

// List returns the existing documents of a collection ordered by id.
func (s *GormStore) List(ctx context.Context, collection string) ([]Snapshot, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	var rows []db.Document
	if err := s.db.WithContext(ctx).
		Where("collection = ? AND deleted = ?", collection, false).
		Order("doc_id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}

	snaps := make([]Snapshot, 0, len(rows))
	for _, row := range rows {
		snaps = append(snaps, snapshotFromRow(Ref(row.Collection, row.DocID), row))
	}
	return snaps, nil
}

// Subscribe registers fn for ref. fn first receives the current snapshot and
// then one snapshot per change; intermediate revisions may be coalesced.
func (s *GormStore) Subscribe(ctx context.Context, ref DocumentRef, fn Listener) (Registration, error) {
	if err := ref.validate(); err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, fmt.Errorf("subscribe %s: nil listener", ref)
	}
	if s.closed.Load() {
		return nil, ErrClosed
	}

	// 先注册再读取：并发写入要么被本次读取看到，要么随后推送，版本号保证只保留最新的一份
	sub := s.hub.add(ref, fn)
	snap, err := s.get(s.db.WithContext(ctx), ref)
	if err != nil {
		sub.Unsubscribe()
		return nil, err
	}
	sub.offer(snap)
	return sub, nil
}

// Refresh re-reads every subscribed document and pushes the ones that changed.
func (s *GormStore) Refresh(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	var firstErr error
	for _, ref := range s.hub.refs() {
		snap, err := s.get(s.db.WithContext(ctx), ref)
		if err != nil {
			s.logger.Warn("refresh document failed", zap.String("ref", ref.String()), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		s.hub.publish(snap)
	}
	return firstErr
}

// Close stops the file watcher and drops every listener.
func (s *GormStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	s.mu.Lock()
	w := s.watcher
	s.watcher = nil
	s.mu.Unlock()

	var err error
	if w != nil {
		err = w.close()
	}
	s.hub.closeAll()
	return err
}

func snapshotFromRow(ref DocumentRef, row db.Document) Snapshot {
	snap := Snapshot{
		Ref:        ref,
		Exists:     !row.Deleted,
		Revision:   row.Revision,
		UpdateTime: row.UpdatedAt,
	}
	if snap.Exists {
		snap.raw = []byte(row.Data)
	}
	return snap
}
