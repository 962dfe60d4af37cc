// Package docstore implements a small document database on top of gorm.
//
// Documents live in named collections and are addressed by (collection, id).
// Writes always replace the whole document. Every registered listener receives
// the current snapshot right after subscribing and again after each change,
// whether the change came through this process or, with Watch enabled, from
// another process writing to the same SQLite file.
package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidRef is returned for an empty collection or document id.
	ErrInvalidRef = errors.New("invalid document reference")
	// ErrNotObject is returned when Set receives data that does not encode to a JSON object.
	ErrNotObject = errors.New("document data must be a JSON object")
	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("document store closed")
)

// DocumentRef addresses a single document.
type DocumentRef struct {
	Collection string
	ID         string
}

// Ref builds a DocumentRef.
func Ref(collection, id string) DocumentRef {
	return DocumentRef{Collection: collection, ID: id}
}

func (r DocumentRef) String() string {
	return r.Collection + "/" + r.ID
}

func (r DocumentRef) validate() error {
	if strings.TrimSpace(r.Collection) == "" || strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("%w: %q", ErrInvalidRef, r.String())
	}
	return nil
}

// Snapshot is the state of a document at one revision.
// A snapshot of a missing or deleted document has Exists == false.
type Snapshot struct {
	Ref        DocumentRef
	Exists     bool
	Revision   int64
	UpdateTime time.Time

	raw []byte
}

// Data decodes the document into a fresh map. It returns nil for a missing document.
func (s Snapshot) Data() (map[string]any, error) {
	if !s.Exists {
		return nil, nil
	}
	var data map[string]any
	if err := json.Unmarshal(s.raw, &data); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.Ref, err)
	}
	return data, nil
}

// DataTo decodes the document into v.
func (s Snapshot) DataTo(v any) error {
	if !s.Exists {
		return fmt.Errorf("decode %s: document does not exist", s.Ref)
	}
	if err := json.Unmarshal(s.raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", s.Ref, err)
	}
	return nil
}

// Raw returns a copy of the stored JSON.
func (s Snapshot) Raw() []byte {
	return bytes.Clone(s.raw)
}

// Listener receives document snapshots. Each call replaces the previous state.
type Listener func(Snapshot)

// Registration is an active listener.
type Registration interface {
	// Unsubscribe stops delivery. Once it returns no further call to the
	// listener starts; a call already running is not waited for. It may be
	// called from inside the listener.
	Unsubscribe()
}

// Store is the document store contract used by the section repository.
type Store interface {
	Get(ctx context.Context, ref DocumentRef) (Snapshot, error)
	Set(ctx context.Context, ref DocumentRef, data any) (Snapshot, error)
	Delete(ctx context.Context, ref DocumentRef) error
	List(ctx context.Context, collection string) ([]Snapshot, error)
	Subscribe(ctx context.Context, ref DocumentRef, fn Listener) (Registration, error)
}

func encodeObject(data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrNotObject
	}
	return raw, nil
}
