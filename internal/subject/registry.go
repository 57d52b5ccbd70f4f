// Package subject maintains the patient registry. Readings may only be
// ingested for patients that exist here; resolution failures surface as
// not-found at the pipeline boundary.
package subject

import (
	"encoding/json"
	"errors"
	"regexp"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/padsense/vitals/internal/errs"
	pebblestore "github.com/padsense/vitals/internal/storage/pebble"
)

// Meta holds patient registry metadata.
type Meta struct {
	ID          string `json:"id"`
	Label       string `json:"label,omitempty"`
	CreatedAtMs int64  `json:"createdAtMs"`
}

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// ValidID reports whether the identifier is acceptable for the registry.
func ValidID(id string) bool { return idPattern.MatchString(id) }

var metaPrefix = []byte("ptmeta/")

func metaKey(id string) []byte {
	k := make([]byte, 0, len(metaPrefix)+len(id))
	k = append(k, metaPrefix...)
	k = append(k, id...)
	return k
}

// Registry provides patient lookup and idempotent creation.
type Registry struct {
	db *pebblestore.DB
}

// NewRegistry creates a Registry over an open Pebble wrapper.
func NewRegistry(db *pebblestore.DB) *Registry { return &Registry{db: db} }

// Ensure creates a patient record if absent, returning the effective meta.
// Idempotent: returns the existing record when already present.
func (r *Registry) Ensure(id, label string) (Meta, error) {
	if !ValidID(id) {
		return Meta{}, errs.Validation("invalid patient id %q", id)
	}
	key := metaKey(id)
	if b, err := r.db.Get(key); err == nil && len(b) > 0 {
		var m Meta
		if err := json.Unmarshal(b, &m); err == nil {
			return m, nil
		}
		// rewrite below if corrupted
	} else if err != nil && !errors.Is(err, pebble.ErrNotFound) {
		return Meta{}, errs.Storage(err)
	}
	m := Meta{ID: id, Label: label, CreatedAtMs: time.Now().UnixMilli()}
	b, err := json.Marshal(m)
	if err != nil {
		return Meta{}, errs.Storage(err)
	}
	if err := r.db.Set(key, b); err != nil {
		return Meta{}, errs.Storage(err)
	}
	return m, nil
}

// Get loads a patient record.
func (r *Registry) Get(id string) (Meta, bool, error) {
	b, err := r.db.Get(metaKey(id))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return Meta{}, false, nil
		}
		return Meta{}, false, errs.Storage(err)
	}
	var m Meta
	if err := json.Unmarshal(b, &m); err != nil {
		return Meta{}, false, errs.Storage(err)
	}
	return m, true, nil
}

// Exists reports whether a patient record is present.
func (r *Registry) Exists(id string) (bool, error) {
	_, ok, err := r.Get(id)
	return ok, err
}
