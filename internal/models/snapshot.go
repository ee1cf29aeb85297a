package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/desertthunder/gmx/internal/shared"
)

// Snapshot labels
const (
	SnapshotBefore    = "before"
	SnapshotPredicted = "predicted"
	SnapshotAfter     = "after"
)

// SnapshotRecord is a persisted copy of a [TrackRecord] captured around a metadata change.
type SnapshotRecord struct {
	entity
	runID   string
	trackID string
	label   string
	body    TrackRecord
}

// NewSnapshotRecord creates a snapshot of body under label.
func NewSnapshotRecord(sequence int, runID, label string, body TrackRecord) *SnapshotRecord {
	return &SnapshotRecord{
		entity:  newEntity(sequence),
		runID:   runID,
		trackID: body.ID(),
		label:   label,
		body:    body.Clone(),
	}
}

func (s *SnapshotRecord) RunID() string        { return s.runID }
func (s *SnapshotRecord) TrackID() string      { return s.trackID }
func (s *SnapshotRecord) Label() string        { return s.label }
func (s *SnapshotRecord) Body() TrackRecord    { return s.body }
func (s *SnapshotRecord) SetTrackID(id string) { s.trackID = id }

// MarshalBody encodes the record body for storage.
func (s *SnapshotRecord) MarshalBody() (string, error) {
	data, err := json.Marshal(s.body)
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return string(data), nil
}

// UnmarshalBody decodes a stored body. Integral numbers come back as int64, like records fresh from the service.
func (s *SnapshotRecord) UnmarshalBody(data string) error {
	var body TrackRecord
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}
	for k, v := range body {
		n, ok := v.(json.Number)
		if !ok {
			continue
		}
		if i, err := n.Int64(); err == nil {
			body[k] = i
		} else if f, err := n.Float64(); err == nil {
			body[k] = f
		}
	}
	s.body = body
	return nil
}

// Validate checks required fields and the label.
func (s *SnapshotRecord) Validate() error {
	if s.trackID == "" {
		return fmt.Errorf("%w: snapshot track id", shared.ErrMissingArgument)
	}
	switch s.label {
	case SnapshotBefore, SnapshotPredicted, SnapshotAfter:
	default:
		return fmt.Errorf("%w: snapshot label %q", shared.ErrInvalidArgument, s.label)
	}
	return nil
}

// Leftover kinds
const (
	LeftoverPlaylist = "playlist"
	LeftoverTrack    = "track"
)

// Leftover is a remote entity created by a run that halted before the step that would have removed it.
type Leftover struct {
	entity
	runID     string
	kind      string
	serviceID string
	name      string
}

// NewLeftover records a remote entity left behind by runID.
func NewLeftover(sequence int, runID, kind, serviceID, name string) *Leftover {
	return &Leftover{
		entity:    newEntity(sequence),
		runID:     runID,
		kind:      kind,
		serviceID: serviceID,
		name:      name,
	}
}

func (l *Leftover) RunID() string     { return l.runID }
func (l *Leftover) Kind() string      { return l.kind }
func (l *Leftover) ServiceID() string { return l.serviceID }
func (l *Leftover) Name() string      { return l.name }
func (l *Leftover) SetName(n string)  { l.name = n }

// Validate checks required fields and the kind.
func (l *Leftover) Validate() error {
	if l.serviceID == "" {
		return fmt.Errorf("%w: leftover service id", shared.ErrMissingArgument)
	}
	if l.kind != LeftoverPlaylist && l.kind != LeftoverTrack {
		return fmt.Errorf("%w: leftover kind %q", shared.ErrInvalidArgument, l.kind)
	}
	return nil
}
