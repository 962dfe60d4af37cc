package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/portfolio/internal/content"
	"github.com/portfolio/internal/docstore"
	"github.com/portfolio/internal/logging"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// PortfolioCollection 分区文档所在的集合
	PortfolioCollection = "portfolio"
	// SectionSchemaVersion 写入文档的 version 元数据
	SectionSchemaVersion = "1.0.0"

	metaLastModified = "lastModified"
	metaVersion      = "version"
	metaSectionName  = "sectionName"
)

var (
	// ErrSectionNotFound 表示分区文档不存在
	ErrSectionNotFound = errors.New("section not found")
	// ErrContentNotFound 表示所有分区文档都不存在
	ErrContentNotFound = errors.New("content not found")
	// ErrStoreUnavailable 表示文档库读写失败
	ErrStoreUnavailable = errors.New("content store unavailable")
	// ErrSectionInvalid 表示分区数据不符合结构定义
	ErrSectionInvalid = content.ErrInvalidSection
	// ErrUnknownSection 表示分区名称不在固定列表中
	ErrUnknownSection = content.ErrUnknownSection
)

// SectionError 描述某个分区上的失败，Err 可用 errors.Is 区分错误类型
type SectionError struct {
	Op      string
	Section content.SectionName
	Err     error
}

func (e *SectionError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Section, e.Err)
}

func (e *SectionError) Unwrap() error {
	return e.Err
}

// SectionMetadata 描述分区文档的存在性与最后修改信息
type SectionMetadata struct {
	Exists       bool      `json:"exists"`
	LastModified time.Time `json:"lastModified,omitempty"`
	Version      string    `json:"version,omitempty"`
	Revision     int64     `json:"revision,omitempty"`
}

// SectionRepository 将 SiteContent 拆分为每个分区一份文档进行读写，
// 并维护每个分区至多一个的实时订阅。
type SectionRepository struct {
	store  docstore.Store
	logger *zap.Logger
	now    func() time.Time

	mu            sync.Mutex
	registrations map[content.SectionName]docstore.Registration
	// epoch 每次 UnsubscribeFromAllSections 加一，注册前据此判断是否已被取消
	epoch uint64
}

// NewSectionRepository 构造 SectionRepository
func NewSectionRepository(store docstore.Store, logger *zap.Logger) *SectionRepository {
	return &SectionRepository{
		store:         store,
		logger:        logging.OrNop(logger).Named("sections"),
		now:           time.Now,
		registrations: make(map[content.SectionName]docstore.Registration),
	}
}

func sectionRef(name content.SectionName) docstore.DocumentRef {
	return docstore.Ref(PortfolioCollection, string(name))
}

func sectionErr(op string, name content.SectionName, err error) error {
	if errors.Is(err, ErrSectionInvalid) || errors.Is(err, ErrUnknownSection) || errors.Is(err, ErrSectionNotFound) {
		return &SectionError{Op: op, Section: name, Err: err}
	}
	return &SectionError{Op: op, Section: name, Err: fmt.Errorf("%w: %w", ErrStoreUnavailable, err)}
}

// SaveSection 以整体替换的方式写入分区，并附加 lastModified/version/sectionName 元数据。
func (r *SectionRepository) SaveSection(ctx context.Context, section content.Section) error {
	if section == nil {
		return &SectionError{Op: "save", Err: fmt.Errorf("%w: nil section", ErrSectionInvalid)}
	}
	name := section.SectionName()

	// 只校验不改写，保存后读回的内容与写入时一致
	if err := content.Validate(section); err != nil {
		r.logger.Warn("rejected section payload", zap.String("section", name.String()), zap.Error(err))
		return sectionErr("save", name, err)
	}

	fields, err := content.Encode(section)
	if err != nil {
		return sectionErr("save", name, fmt.Errorf("%w: %v", ErrSectionInvalid, err))
	}
	fields[metaLastModified] = r.now().UTC().Format(time.RFC3339Nano)
	fields[metaVersion] = SectionSchemaVersion
	fields[metaSectionName] = string(name)

	snap, err := r.store.Set(ctx, sectionRef(name), fields)
	if err != nil {
		r.logger.Error("save section failed", zap.String("section", name.String()), zap.Error(err))
		return sectionErr("save", name, err)
	}

	r.logger.Info("saved section", zap.String("section", name.String()), zap.Int64("revision", snap.Revision))
	return nil
}

// SaveAllSections 并发保存所有已填充的分区。某个分区失败不会影响其他分区写入，
// 也不会回滚；只有全部成功时返回 nil，否则返回各分区错误的合并。
func (r *SectionRepository) SaveAllSections(ctx context.Context, aggregate *content.SiteContent) error {
	if aggregate == nil {
		return fmt.Errorf("save all sections: %w: nil content", ErrSectionInvalid)
	}

	sections := aggregate.Sections()
	errs := make([]error, len(sections))

	var g errgroup.Group
	for i, section := range sections {
		g.Go(func() error {
			errs[i] = r.SaveSection(ctx, section)
			return nil
		})
	}
	_ = g.Wait()

	if err := errors.Join(errs...); err != nil {
		r.logger.Error("some sections failed to save", zap.Error(err))
		return err
	}
	r.logger.Info("saved all sections", zap.Int("count", len(sections)))
	return nil
}

// LoadSection 读取分区并去掉仓库写入的元数据。
// 文档不存在返回 ErrSectionNotFound，读取失败返回 ErrStoreUnavailable。
func (r *SectionRepository) LoadSection(ctx context.Context, name content.SectionName) (content.Section, error) {
	if !name.Valid() {
		return nil, sectionErr("load", name, fmt.Errorf("%w: %q", ErrUnknownSection, string(name)))
	}

	snap, err := r.store.Get(ctx, sectionRef(name))
	if err != nil {
		r.logger.Error("load section failed", zap.String("section", name.String()), zap.Error(err))
		return nil, sectionErr("load", name, err)
	}
	if !snap.Exists {
		return nil, sectionErr("load", name, ErrSectionNotFound)
	}

	section, err := decodeSnapshot(name, snap)
	if err != nil {
		r.logger.Warn("stored section does not match schema", zap.String("section", name.String()), zap.Error(err))
		return nil, sectionErr("load", name, err)
	}
	return section, nil
}

// LoadAllSections 依次读取全部分区并组装成 SiteContent。
// 缺失或读取失败的分区会被跳过；一个分区都没有时返回 ErrContentNotFound。
func (r *SectionRepository) LoadAllSections(ctx context.Context) (*content.SiteContent, error) {
	aggregate := &content.SiteContent{}
	var failures []error

	for _, name := range content.AllSections() {
		section, err := r.LoadSection(ctx, name)
		if err != nil {
			if !errors.Is(err, ErrSectionNotFound) {
				failures = append(failures, err)
			}
			continue
		}
		aggregate.Set(section)
	}

	if aggregate.Len() == 0 {
		return nil, errors.Join(append([]error{ErrContentNotFound}, failures...)...)
	}
	if len(failures) > 0 {
		r.logger.Warn("loaded partial content", zap.Int("loaded", aggregate.Len()), zap.Error(errors.Join(failures...)))
	}
	return aggregate, nil
}

// SubscribeToSection 注册分区的实时监听。每次变更 callback 收到解码后的分区，
// 文档被删除时收到 nil。同名分区的旧监听会被静默替换。
// callback 内可以调用 UnsubscribeFromAllSections。
func (r *SectionRepository) SubscribeToSection(ctx context.Context, name content.SectionName, callback func(content.Section)) error {
	_, err := r.subscribeSection(ctx, r.currentEpoch(), name, callback, nil)
	return err
}

func (r *SectionRepository) currentEpoch() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.epoch
}

// subscribeSection 是 SubscribeToSection 的实现，dropped 在快照未通过校验被丢弃时调用。
// 初始快照的回调里可能已经取消了全部订阅，此时 epoch 不再相同，新监听直接释放，返回 false。
func (r *SectionRepository) subscribeSection(ctx context.Context, epoch uint64, name content.SectionName, callback func(content.Section), dropped func()) (bool, error) {
	if !name.Valid() {
		return false, sectionErr("subscribe", name, fmt.Errorf("%w: %q", ErrUnknownSection, string(name)))
	}
	if callback == nil {
		return false, &SectionError{Op: "subscribe", Section: name, Err: errors.New("nil callback")}
	}

	reg, err := r.store.Subscribe(ctx, sectionRef(name), func(snap docstore.Snapshot) {
		if r.currentEpoch() != epoch {
			return
		}
		if !snap.Exists {
			callback(nil)
			return
		}
		section, err := decodeSnapshot(name, snap)
		if err != nil {
			r.logger.Warn("dropped invalid section snapshot", zap.String("section", name.String()), zap.Error(err))
			if dropped != nil {
				dropped()
			}
			return
		}
		callback(section)
	})
	if err != nil {
		return false, sectionErr("subscribe", name, err)
	}

	r.mu.Lock()
	if r.epoch != epoch {
		r.mu.Unlock()
		reg.Unsubscribe()
		return false, nil
	}
	previous := r.registrations[name]
	r.registrations[name] = reg
	r.mu.Unlock()

	if previous != nil {
		previous.Unsubscribe()
	}
	return true, nil
}

// SubscribeToAllSections 订阅全部分区，在本地维护部分聚合结果。
// 任一分区变化时 callback 收到当前聚合的副本，聚合为空时收到 nil。
func (r *SectionRepository) SubscribeToAllSections(ctx context.Context, callback func(*content.SiteContent)) error {
	return r.subscribeAll(ctx, false, callback)
}

// subscribeAll 实现扇出订阅。settled 为 true 时，每个分区都给出初始快照之前不回调，
// 第一次回调即为完整的初始聚合。
func (r *SectionRepository) subscribeAll(ctx context.Context, settled bool, callback func(*content.SiteContent)) error {
	if callback == nil {
		return errors.New("subscribe all sections: nil callback")
	}

	var mu sync.Mutex
	aggregate := &content.SiteContent{}
	waiting := make(map[content.SectionName]struct{})
	if settled {
		for _, name := range content.AllSections() {
			waiting[name] = struct{}{}
		}
	}

	emit := func() {
		if len(waiting) > 0 {
			return
		}
		if aggregate.Len() == 0 {
			callback(nil)
			return
		}
		callback(aggregate.Clone())
	}

	epoch := r.currentEpoch()
	for _, name := range content.AllSections() {
		active, err := r.subscribeSection(ctx, epoch, name, func(section content.Section) {
			mu.Lock()
			defer mu.Unlock()
			if section == nil {
				aggregate.Clear(name)
			} else {
				aggregate.Set(section)
			}
			delete(waiting, name)
			emit()
		}, func() {
			mu.Lock()
			defer mu.Unlock()
			if _, ok := waiting[name]; !ok {
				return
			}
			delete(waiting, name)
			emit()
		})
		if err != nil {
			r.UnsubscribeFromAllSections()
			return err
		}
		if !active {
			return nil
		}
	}
	return nil
}

// UnsubscribeFromAllSections 释放所有监听并清空注册表，可重复调用。
// 返回后不会再开始新的回调；已经在执行的回调会自然结束，不等待。
func (r *SectionRepository) UnsubscribeFromAllSections() {
	r.mu.Lock()
	registrations := r.registrations
	r.registrations = make(map[content.SectionName]docstore.Registration)
	r.epoch++
	r.mu.Unlock()

	for _, reg := range registrations {
		reg.Unsubscribe()
	}
	if len(registrations) > 0 {
		r.logger.Debug("released section listeners", zap.Int("count", len(registrations)))
	}
}

// ActiveSubscriptions 返回当前已注册监听的分区
func (r *SectionRepository) ActiveSubscriptions() []content.SectionName {
	r.mu.Lock()
	defer r.mu.Unlock()
	var names []content.SectionName
	for _, name := range content.AllSections() {
		if _, ok := r.registrations[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

// GetAllSectionsMetadata 返回每个分区的存在性、最后修改时间与版本
func (r *SectionRepository) GetAllSectionsMetadata(ctx context.Context) (map[content.SectionName]SectionMetadata, error) {
	metadata := make(map[content.SectionName]SectionMetadata, len(content.AllSections()))
	for _, name := range content.AllSections() {
		snap, err := r.store.Get(ctx, sectionRef(name))
		if err != nil {
			r.logger.Error("load section metadata failed", zap.String("section", name.String()), zap.Error(err))
			return nil, sectionErr("metadata", name, err)
		}
		metadata[name] = metadataFromSnapshot(snap)
	}
	return metadata, nil
}

// ContentExists 判断是否至少有一个分区文档存在
func (r *SectionRepository) ContentExists(ctx context.Context) (bool, error) {
	for _, name := range content.AllSections() {
		snap, err := r.store.Get(ctx, sectionRef(name))
		if err != nil {
			return false, sectionErr("exists", name, err)
		}
		if snap.Exists {
			return true, nil
		}
	}
	return false, nil
}

// DeleteSection 删除分区文档，订阅者会收到 nil
func (r *SectionRepository) DeleteSection(ctx context.Context, name content.SectionName) error {
	if !name.Valid() {
		return sectionErr("delete", name, fmt.Errorf("%w: %q", ErrUnknownSection, string(name)))
	}
	if err := r.store.Delete(ctx, sectionRef(name)); err != nil {
		r.logger.Error("delete section failed", zap.String("section", name.String()), zap.Error(err))
		return sectionErr("delete", name, err)
	}
	r.logger.Info("deleted section", zap.String("section", name.String()))
	return nil
}

func decodeSnapshot(name content.SectionName, snap docstore.Snapshot) (content.Section, error) {
	fields, err := snap.Data()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSectionInvalid, err)
	}
	delete(fields, metaLastModified)
	delete(fields, metaVersion)
	delete(fields, metaSectionName)

	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSectionInvalid, err)
	}
	return content.Decode(name, raw)
}

func metadataFromSnapshot(snap docstore.Snapshot) SectionMetadata {
	if !snap.Exists {
		return SectionMetadata{}
	}
	meta := SectionMetadata{Exists: true, Revision: snap.Revision}
	fields, err := snap.Data()
	if err != nil {
		return meta
	}
	if raw, ok := fields[metaLastModified].(string); ok {
		if parsed, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			meta.LastModified = parsed
		}
	}
	if version, ok := fields[metaVersion].(string); ok {
		meta.Version = version
	}
	if meta.LastModified.IsZero() {
		meta.LastModified = snap.UpdateTime
	}
	return meta
}
