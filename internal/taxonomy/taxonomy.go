package taxonomy

import (
	"fmt"
	"sort"

	"github.com/desertthunder/gmx/internal/shared"
)

// Category describes how a metadata field behaves under a client write.
type Category int

const (
	Mutable     Category = iota // client-writable, expected to change on request
	Frozen                      // accepted in writes, never changes server-side
	Dependent                   // derived from a master field
	ServerOwned                 // may change independently of any client write
	Limited                     // writable only under value-type constraints; never asserted
)

var categoryNames = map[Category]string{
	Mutable:     "mutable",
	Frozen:      "frozen",
	Dependent:   "dependent",
	ServerOwned: "server",
	Limited:     "limited",
}

func (c Category) String() string {
	if s, ok := categoryNames[c]; ok {
		return s
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// Categories lists every category in declaration order.
func Categories() []Category {
	return []Category{Mutable, Frozen, Dependent, ServerOwned, Limited}
}

// ParseCategory is the inverse of [Category.String].
func ParseCategory(s string) (Category, error) {
	for c, name := range categoryNames {
		if name == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown category %q", shared.ErrInvalidArgument, s)
}

// Asserted reports whether comparisons after a write hold fields of this category to an expectation.
func (c Category) Asserted() bool {
	return c == Mutable || c == Frozen || c == Dependent
}

// DeriveFunc computes a dependent value from its master's value. It must be pure.
type DeriveFunc func(master any) (any, error)

// Bounds constrain the values [Taxonomy.Perturb] generates for integer fields.
// They are never used to reject a write.
type Bounds struct {
	Min, Max int64
}

// Field is one entry of the taxonomy table.
type Field struct {
	Name     string
	Category Category
	Kind     Kind
	Master   string     // Dependent only
	Derive   DeriveFunc // Dependent only
	Bounds   *Bounds
}

// Taxonomy is an immutable, validated table of metadata fields.
type Taxonomy struct {
	fields     map[string]Field
	names      []string
	dependents map[string][]string
}

// New validates fields and builds a taxonomy.
//
// Every name must be unique; a Dependent field must name an existing, non-dependent master and carry a
// [DeriveFunc]; no other category may carry either.
func New(fields ...Field) (*Taxonomy, error) {
	t := &Taxonomy{
		fields:     make(map[string]Field, len(fields)),
		dependents: make(map[string][]string),
	}

	for _, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("%w: field with empty name", shared.ErrInvalidTaxonomy)
		}
		if _, dup := t.fields[f.Name]; dup {
			return nil, fmt.Errorf("%w: field %q classified twice", shared.ErrInvalidTaxonomy, f.Name)
		}
		if _, ok := categoryNames[f.Category]; !ok {
			return nil, fmt.Errorf("%w: field %q has unknown category %d", shared.ErrInvalidTaxonomy, f.Name, f.Category)
		}
		t.fields[f.Name] = f
		t.names = append(t.names, f.Name)
	}

	for _, f := range fields {
		if f.Category != Dependent {
			if f.Master != "" || f.Derive != nil {
				return nil, fmt.Errorf("%w: %s field %q declares a derivation", shared.ErrInvalidTaxonomy, f.Category, f.Name)
			}
			continue
		}

		master, ok := t.fields[f.Master]
		switch {
		case f.Derive == nil:
			return nil, fmt.Errorf("%w: dependent field %q has no derive func", shared.ErrInvalidTaxonomy, f.Name)
		case !ok:
			return nil, fmt.Errorf("%w: dependent field %q names unknown master %q", shared.ErrInvalidTaxonomy, f.Name, f.Master)
		case master.Category == Dependent:
			return nil, fmt.Errorf("%w: dependent field %q has dependent master %q", shared.ErrInvalidTaxonomy, f.Name, f.Master)
		}
		t.dependents[f.Master] = append(t.dependents[f.Master], f.Name)
	}

	sort.Strings(t.names)
	return t, nil
}

// MustNew is [New] for tables known at compile time.
func MustNew(fields ...Field) *Taxonomy {
	t, err := New(fields...)
	if err != nil {
		panic(err)
	}
	return t
}

// Classify returns the category of a field name.
func (t *Taxonomy) Classify(name string) (Category, error) {
	f, ok := t.fields[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", shared.ErrUnclassifiedField, name)
	}
	return f.Category, nil
}

// Field returns the table entry for name.
func (t *Taxonomy) Field(name string) (Field, bool) {
	f, ok := t.fields[name]
	return f, ok
}

// Names returns the sorted field names, limited to the given categories when any are passed.
func (t *Taxonomy) Names(categories ...Category) []string {
	if len(categories) == 0 {
		return append([]string(nil), t.names...)
	}

	want := make(map[Category]bool, len(categories))
	for _, c := range categories {
		want[c] = true
	}

	var names []string
	for _, n := range t.names {
		if want[t.fields[n].Category] {
			names = append(names, n)
		}
	}
	return names
}

// Dependents returns the names of fields derived from master.
func (t *Taxonomy) Dependents(master string) []string {
	return append([]string(nil), t.dependents[master]...)
}

// Derive computes the value of a dependent field from its master's value.
//
// It fails with [shared.ErrUnknownDerivation] for any field that is not Dependent.
func (t *Taxonomy) Derive(name string, masterValue any) (any, error) {
	f, ok := t.fields[name]
	if !ok || f.Category != Dependent {
		return nil, fmt.Errorf("%w: %q", shared.ErrUnknownDerivation, name)
	}

	v, err := f.Derive(masterValue)
	if err != nil {
		return nil, fmt.Errorf("failed to derive %s from %s: %w", name, f.Master, err)
	}
	return v, nil
}

// CheckValue verifies that v has the type the service expects for the field.
//
// This is the only client-detectable precondition on a write: semantically odd values of the right type pass.
// nil passes for every field: the service echoes nulls for absent values and a revert must be able to
// write them back.
func (t *Taxonomy) CheckValue(name string, v any) error {
	f, ok := t.fields[name]
	if !ok {
		return fmt.Errorf("%w: %q", shared.ErrUnclassifiedField, name)
	}
	if v == nil {
		return nil
	}
	if !f.Kind.Accepts(v) {
		return fmt.Errorf("%w: %s expects %s, got %T", shared.ErrInvalidFieldType, name, f.Kind, v)
	}
	return nil
}

// CheckRecord classifies every key of rec, failing on the first unclassified field.
func (t *Taxonomy) CheckRecord(rec map[string]any) error {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if _, err := t.Classify(k); err != nil {
			return err
		}
	}
	return nil
}

// CheckWrite runs [Taxonomy.CheckRecord] and [Taxonomy.CheckValue] over a record submitted for writing.
func (t *Taxonomy) CheckWrite(rec map[string]any) error {
	if err := t.CheckRecord(rec); err != nil {
		return err
	}
	for k, v := range rec {
		if err := t.CheckValue(k, v); err != nil {
			return err
		}
	}
	return nil
}
