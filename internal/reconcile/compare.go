package reconcile

import (
	"fmt"
	"sort"

	"github.com/desertthunder/gmx/internal/models"
	"github.com/desertthunder/gmx/internal/taxonomy"
)

// Relation is what a field is expected to do across a mutation.
type Relation int

const (
	Changed    Relation = iota + 1 // mutable field set to a new value
	Unchanged                      // must equal the value before the mutation
	Derived                        // dependent field recomputed from its changed master
	Unasserted                     // recorded only
)

func (r Relation) String() string {
	switch r {
	case Changed:
		return "changed"
	case Unchanged:
		return "unchanged"
	case Derived:
		return "derived"
	case Unasserted:
		return "unasserted"
	default:
		return fmt.Sprintf("relation(%d)", int(r))
	}
}

// FieldComparison is the verdict for one field.
type FieldComparison struct {
	Field     string
	Category  taxonomy.Category
	Relation  Relation
	Before    any
	Expected  any
	Observed  any
	Present   bool // field was in the observed record
	Satisfied bool
}

// Predict applies delta to before the way the service does: only Mutable fields take the requested value, every
// other write is ignored, and Dependent fields are re-derived from their changed masters.
func Predict(tax *taxonomy.Taxonomy, before, delta models.TrackRecord) (models.TrackRecord, error) {
	if err := tax.CheckRecord(delta); err != nil {
		return nil, err
	}

	predicted := before.Clone()
	changed := map[string]bool{}
	for name, v := range delta {
		if c, _ := tax.Classify(name); c == taxonomy.Mutable {
			predicted[name] = taxonomy.Normalize(v)
			if !taxonomy.Equal(before[name], v) {
				changed[name] = true
			}
		}
	}

	for master := range changed {
		for _, dep := range tax.Dependents(master) {
			v, err := tax.Derive(dep, predicted[master])
			if err != nil {
				return nil, err
			}
			predicted[dep] = v
		}
	}
	return predicted, nil
}

// Compare checks observed against the prediction for a mutation of before by delta. Fields are reported in name
// order and cover everything in before, delta or observed.
func Compare(tax *taxonomy.Taxonomy, before, delta, observed models.TrackRecord) ([]FieldComparison, error) {
	predicted, err := Predict(tax, before, delta)
	if err != nil {
		return nil, err
	}
	if err := tax.CheckRecord(observed); err != nil {
		return nil, err
	}

	names := map[string]bool{}
	for _, rec := range []models.TrackRecord{before, delta, observed} {
		for k := range rec {
			names[k] = true
		}
	}
	sorted := make([]string, 0, len(names))
	for k := range names {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	changed := func(name string) bool {
		v, ok := delta[name]
		return ok && !taxonomy.Equal(before[name], v)
	}

	out := make([]FieldComparison, 0, len(sorted))
	for _, name := range sorted {
		field, _ := tax.Field(name)
		obs, present := observed[name]
		fc := FieldComparison{
			Field:    name,
			Category: field.Category,
			Before:   before[name],
			Observed: obs,
			Present:  present,
		}

		switch field.Category {
		case taxonomy.Mutable:
			fc.Relation = Unchanged
			if changed(name) {
				fc.Relation = Changed
			}
			fc.Expected = predicted[name]
		case taxonomy.Frozen:
			fc.Relation = Unchanged
			fc.Expected = before[name]
		case taxonomy.Dependent:
			fc.Relation = Unchanged
			if changed(field.Master) {
				fc.Relation = Derived
			}
			fc.Expected = predicted[name]
		default:
			fc.Relation = Unasserted
		}

		if fc.Relation == Unasserted {
			fc.Satisfied = true
		} else {
			_, known := before[name]
			fc.Satisfied = (present || !known) && taxonomy.Equal(fc.Expected, obs)
		}
		out = append(out, fc)
	}
	return out, nil
}
