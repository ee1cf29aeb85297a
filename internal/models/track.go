package models

import (
	"fmt"
	"maps"
	"sort"
	"time"

	"github.com/desertthunder/gmx/internal/shared"
)

// TrackRecord is one song's metadata at a point in time, keyed by field name.
type TrackRecord map[string]any

// ID returns the record's "id" field.
func (r TrackRecord) ID() string {
	id, _ := r["id"].(string)
	return id
}

// Text returns a string field, or "" if absent or not a string.
func (r TrackRecord) Text(name string) string {
	s, _ := r[name].(string)
	return s
}

// Clone returns a shallow copy.
func (r TrackRecord) Clone() TrackRecord {
	if r == nil {
		return nil
	}
	return maps.Clone(r)
}

// Merge returns a copy of r with every field of delta applied.
func (r TrackRecord) Merge(delta TrackRecord) TrackRecord {
	out := r.Clone()
	if out == nil {
		out = TrackRecord{}
	}
	maps.Copy(out, delta)
	return out
}

// Keys returns the sorted field names.
func (r TrackRecord) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Only returns a copy limited to the named fields that are present.
func (r TrackRecord) Only(names ...string) TrackRecord {
	out := make(TrackRecord, len(names))
	for _, n := range names {
		if v, ok := r[n]; ok {
			out[n] = v
		}
	}
	return out
}

// PendingMutation is a change request awaiting verification.
type PendingMutation struct {
	EntityID string
	Before   TrackRecord
	Delta    TrackRecord
	Settle   time.Duration // expected delay before a read observes the change
}

// NewPendingMutation builds a mutation against before. The entity id is taken from before.
func NewPendingMutation(before, delta TrackRecord, settle time.Duration) *PendingMutation {
	return &PendingMutation{
		EntityID: before.ID(),
		Before:   before.Clone(),
		Delta:    delta.Clone(),
		Settle:   settle,
	}
}

// Validate checks that the mutation names a target and a change.
func (m *PendingMutation) Validate() error {
	if m.EntityID == "" {
		return fmt.Errorf("%w: mutation has no entity id", shared.ErrMissingArgument)
	}
	if len(m.Delta) == 0 {
		return fmt.Errorf("%w: mutation has an empty delta", shared.ErrMissingArgument)
	}
	if m.Settle < 0 {
		return fmt.Errorf("%w: negative settle interval", shared.ErrInvalidArgument)
	}
	return nil
}

// Requested returns the full record submitted to the service: before with the delta applied.
func (m *PendingMutation) Requested() TrackRecord {
	return m.Before.Merge(m.Delta)
}
