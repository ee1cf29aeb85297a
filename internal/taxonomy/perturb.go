package taxonomy

import (
	"fmt"

	"github.com/desertthunder/gmx/internal/shared"
)

const perturbSuffix = "_mod"

// Perturb returns a valid value for the field that differs from old.
//
// Strings gain a suffix, booleans flip, and integers step by one, wrapping inside the field's [Bounds].
func (t *Taxonomy) Perturb(name string, old any) (any, error) {
	f, ok := t.fields[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", shared.ErrUnclassifiedField, name)
	}

	old = Normalize(old)
	switch f.Kind {
	case String:
		s, _ := old.(string)
		return s + perturbSuffix, nil
	case Bool:
		b, _ := old.(bool)
		return !b, nil
	case Int:
		n, _ := old.(int64)
		return stepInt(n, f.Bounds), nil
	default:
		return nil, fmt.Errorf("%w: %s has unsupported kind %s", shared.ErrInvalidFieldType, name, f.Kind)
	}
}

func stepInt(n int64, b *Bounds) int64 {
	if b == nil {
		return n + 1
	}

	next := n + 1
	if next < b.Min || next > b.Max {
		next = b.Min
	}
	if next == n {
		next = b.Min + 1
	}
	return next
}
