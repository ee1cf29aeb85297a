package tasks

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/desertthunder/gmx/internal/models"
	"github.com/desertthunder/gmx/internal/reconcile"
	"github.com/desertthunder/gmx/internal/shared"
)

// StepFunc performs one step. A returned error halts the sequence; a *[models.Failure] keeps its kind.
type StepFunc func(ctx context.Context, st *State) error

// Step is one named unit of a sequence.
//
// Order positions the step: a number with an optional lowercase suffix, so 1 < 2 < 2a < 2b < 3 < 10.
type Step struct {
	Order string
	Name  string
	Run   StepFunc
}

// Label is the order and name joined the way outcomes display them.
func (s Step) Label() string {
	return s.Order + "_" + s.Name
}

// StepOrder is a parsed step position.
type StepOrder struct {
	N      int
	Suffix string
}

// ParseOrder parses identifiers like "2" or "2a".
func ParseOrder(id string) (StepOrder, error) {
	i := strings.IndexFunc(id, func(r rune) bool { return !unicode.IsDigit(r) })
	if i < 0 {
		i = len(id)
	}
	if i == 0 {
		return StepOrder{}, fmt.Errorf("%w: step order %q must start with a number", shared.ErrInvalidArgument, id)
	}

	n, err := strconv.Atoi(id[:i])
	if err != nil {
		return StepOrder{}, fmt.Errorf("%w: step order %q: %v", shared.ErrInvalidArgument, id, err)
	}
	suffix := id[i:]
	for _, r := range suffix {
		if r < 'a' || r > 'z' {
			return StepOrder{}, fmt.Errorf("%w: step order %q has a non-letter suffix", shared.ErrInvalidArgument, id)
		}
	}
	return StepOrder{N: n, Suffix: suffix}, nil
}

// Compare orders by number, then by suffix.
func (o StepOrder) Compare(other StepOrder) int {
	if c := cmp.Compare(o.N, other.N); c != 0 {
		return c
	}
	if c := cmp.Compare(len(o.Suffix), len(other.Suffix)); c != 0 {
		return c
	}
	return strings.Compare(o.Suffix, other.Suffix)
}

func (o StepOrder) String() string {
	return strconv.Itoa(o.N) + o.Suffix
}

// Sequence is an ordered, validated list of steps.
type Sequence struct {
	name  string
	steps []Step
}

// NewSequence orders steps by their Order. It fails with a DuplicateStepOrder failure when two steps claim the same
// position, before anything runs.
func NewSequence(name string, steps ...Step) (*Sequence, error) {
	if strings.TrimSpace(name) == "" {
		return nil, models.NewFailure(models.Invalid, "new_sequence", "sequence name is empty")
	}

	type ordered struct {
		order StepOrder
		step  Step
	}
	parsed := make([]ordered, 0, len(steps))
	seen := make(map[StepOrder]string, len(steps))

	for _, s := range steps {
		o, err := ParseOrder(s.Order)
		if err != nil {
			return nil, models.WrapFailure(models.Invalid, name, err)
		}
		if s.Run == nil {
			return nil, models.NewFailure(models.Invalid, name, "step %s has no function", s.Label())
		}
		if prev, dup := seen[o]; dup {
			return nil, models.NewFailure(models.DuplicateStepOrder, name, "steps %q and %q both claim position %s", prev, s.Name, o)
		}
		seen[o] = s.Name
		s.Order = o.String()
		parsed = append(parsed, ordered{order: o, step: s})
	}

	slices.SortStableFunc(parsed, func(a, b ordered) int { return a.order.Compare(b.order) })

	seq := &Sequence{name: name, steps: make([]Step, len(parsed))}
	for i, p := range parsed {
		seq.steps[i] = p.step
	}
	return seq, nil
}

func (s *Sequence) Name() string  { return s.name }
func (s *Sequence) Len() int      { return len(s.steps) }
func (s *Sequence) Steps() []Step { return slices.Clone(s.steps) }

// Run executes the sequence without persistence or logging.
func (s *Sequence) Run(ctx context.Context, progress chan<- ProgressUpdate) *Outcome {
	return NewSequencer(nil, nil).Run(ctx, s, progress)
}

// Entity is a remote object a run created and has not yet removed.
type Entity struct {
	Kind string // models.LeftoverPlaylist or models.LeftoverTrack
	ID   string
	Name string
}

// State is shared by the steps of one run. Steps run sequentially, but the lock lets progress consumers read it.
type State struct {
	mu       sync.Mutex
	runID    string
	values   map[string]any
	created  []Entity
	reports  []*reconcile.ComparisonReport
	snapshot reconcile.SnapshotStore
}

// NewState creates empty state for runID.
func NewState(runID string) *State {
	return &State{runID: runID, values: map[string]any{}}
}

func (st *State) RunID() string { return st.runID }

func (st *State) Set(key string, v any) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.values[key] = v
}

func (st *State) Get(key string) (any, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	v, ok := st.values[key]
	return v, ok
}

// Lookup returns the value under key when it has type T.
func Lookup[T any](st *State, key string) (T, bool) {
	v, ok := st.Get(key)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// Created records a remote entity the run is responsible for removing.
func (st *State) Created(kind, id, name string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.created = append(st.created, Entity{Kind: kind, ID: id, Name: name})
}

// Renamed updates the recorded name of a created entity.
func (st *State) Renamed(kind, id, name string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	for i := range st.created {
		if st.created[i].Kind == kind && st.created[i].ID == id {
			st.created[i].Name = name
		}
	}
}

// Removed forgets a created entity once the run has deleted it.
func (st *State) Removed(kind, id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.created = slices.DeleteFunc(st.created, func(e Entity) bool { return e.Kind == kind && e.ID == id })
}

// Pending returns the created entities not yet removed.
func (st *State) Pending() []Entity {
	st.mu.Lock()
	defer st.mu.Unlock()
	return slices.Clone(st.created)
}

// AddReport keeps a reconciliation report on the run's outcome.
func (st *State) AddReport(r *reconcile.ComparisonReport) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.reports = append(st.reports, r)
}

func (st *State) Reports() []*reconcile.ComparisonReport {
	st.mu.Lock()
	defer st.mu.Unlock()
	return slices.Clone(st.reports)
}

// Snapshots is where steps should record track snapshots for this run. It may be nil.
func (st *State) Snapshots() reconcile.SnapshotStore { return st.snapshot }

// StepOutcome is the result of one executed step.
type StepOutcome struct {
	Position int // 1-based index in the sequence
	Order    string
	Name     string
	Failure  *models.Failure
	Duration time.Duration
}

func (o StepOutcome) OK() bool      { return o.Failure == nil }
func (o StepOutcome) Label() string { return o.Order + "_" + o.Name }

// Outcome reports one run of a sequence: the steps that executed, in order, and the names of those skipped after a
// failure.
type Outcome struct {
	RunID       string
	Sequence    string
	Total       int
	Steps       []StepOutcome
	Skipped     []string
	Leftovers   []Entity
	Reports     []*reconcile.ComparisonReport
	StartedAt   time.Time
	CompletedAt time.Time
}

// Succeeded reports whether every step executed and passed.
func (o *Outcome) Succeeded() bool {
	return len(o.Steps) == o.Total && o.Failed() == nil
}

// Failed returns the step that halted the run, if any.
func (o *Outcome) Failed() *StepOutcome {
	for i := range o.Steps {
		if !o.Steps[i].OK() {
			return &o.Steps[i]
		}
	}
	return nil
}

// Passed counts the successful steps.
func (o *Outcome) Passed() int {
	n := 0
	for _, s := range o.Steps {
		if s.OK() {
			n++
		}
	}
	return n
}

// Err returns the failure of the halting step, or nil.
func (o *Outcome) Err() error {
	if f := o.Failed(); f != nil {
		return f.Failure
	}
	return nil
}

func (o *Outcome) Duration() time.Duration {
	if o.CompletedAt.IsZero() {
		return 0
	}
	return o.CompletedAt.Sub(o.StartedAt)
}
