package taxonomy

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/gmx/internal/shared"
)

func TestDefault(t *testing.T) {
	tax := Default()

	t.Run("every field has exactly one category", func(t *testing.T) {
		seen := make(map[string]Category)
		for _, c := range Categories() {
			for _, name := range tax.Names(c) {
				prev, dup := seen[name]
				assert.Falsef(t, dup, "%s listed as both %s and %s", name, prev, c)
				seen[name] = c
			}
		}
		assert.Len(t, seen, len(tax.Names()))

		for _, name := range tax.Names() {
			c, err := tax.Classify(name)
			require.NoError(t, err)
			assert.Equal(t, seen[name], c)
		}
	})

	t.Run("known categories", func(t *testing.T) {
		tt := []struct {
			field string
			want  Category
		}{
			{"name", Mutable},
			{"rating", Mutable},
			{"id", Frozen},
			{"comment", Frozen},
			{"title", Dependent},
			{"artistNorm", Dependent},
			{"playCount", ServerOwned},
			{"albumArtUrl", Limited},
		}
		for _, tc := range tt {
			t.Run(tc.field, func(t *testing.T) {
				got, err := tax.Classify(tc.field)
				require.NoError(t, err)
				assert.Equal(t, tc.want, got)
			})
		}
	})

	t.Run("unclassified field", func(t *testing.T) {
		_, err := tax.Classify("lyrics")
		assert.ErrorIs(t, err, shared.ErrUnclassifiedField)
	})

	t.Run("dependents of name", func(t *testing.T) {
		assert.ElementsMatch(t, []string{"title", "titleNorm"}, tax.Dependents("name"))
		assert.Empty(t, tax.Dependents("rating"))
	})
}

func TestNew(t *testing.T) {
	tt := []struct {
		name   string
		fields []Field
	}{
		{
			name:   "duplicate name",
			fields: []Field{{Name: "a", Category: Mutable}, {Name: "a", Category: Frozen}},
		},
		{
			name:   "empty name",
			fields: []Field{{Category: Mutable}},
		},
		{
			name:   "unknown category",
			fields: []Field{{Name: "a", Category: Category(42)}},
		},
		{
			name:   "dependent without derive",
			fields: []Field{{Name: "a", Category: Mutable}, {Name: "b", Category: Dependent, Master: "a"}},
		},
		{
			name:   "dependent with unknown master",
			fields: []Field{{Name: "b", Category: Dependent, Master: "a", Derive: Identity}},
		},
		{
			name: "dependent of dependent",
			fields: []Field{
				{Name: "a", Category: Mutable},
				{Name: "b", Category: Dependent, Master: "a", Derive: Identity},
				{Name: "c", Category: Dependent, Master: "b", Derive: Identity},
			},
		},
		{
			name:   "mutable with derive",
			fields: []Field{{Name: "a", Category: Mutable, Derive: Identity}},
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.fields...)
			assert.ErrorIs(t, err, shared.ErrInvalidTaxonomy)
		})
	}

	t.Run("extending the default table", func(t *testing.T) {
		fields := append(DefaultFields(), Field{Name: "explicitType", Category: ServerOwned, Kind: Int})
		tax, err := New(fields...)
		require.NoError(t, err)

		c, err := tax.Classify("explicitType")
		require.NoError(t, err)
		assert.Equal(t, ServerOwned, c)
	})
}

func TestDerive(t *testing.T) {
	tax := Default()

	t.Run("identity", func(t *testing.T) {
		v, err := tax.Derive("title", "Song B")
		require.NoError(t, err)
		assert.Equal(t, "Song B", v)
	})

	t.Run("lowercase", func(t *testing.T) {
		v, err := tax.Derive("artistNorm", "The Band")
		require.NoError(t, err)
		assert.Equal(t, "the band", v)
	})

	t.Run("non-dependent field", func(t *testing.T) {
		for _, name := range []string{"name", "id", "playCount", "missing"} {
			_, err := tax.Derive(name, "x")
			assert.ErrorIs(t, err, shared.ErrUnknownDerivation, name)
		}
	})

	t.Run("derive error is wrapped", func(t *testing.T) {
		_, err := tax.Derive("titleNorm", 7)
		assert.Error(t, err)
	})
}

func TestCheckValue(t *testing.T) {
	tax := Default()

	tt := []struct {
		name    string
		field   string
		value   any
		wantErr error
	}{
		{"string for string", "name", "x", nil},
		{"int for int", "rating", 3, nil},
		{"decoded float for int", "year", float64(1999), nil},
		{"json number for int", "track", json.Number("4"), nil},
		{"nonsense value of right type", "year", -5, nil},
		{"string for int", "rating", "3", shared.ErrInvalidFieldType},
		{"fractional for int", "rating", 2.5, shared.ErrInvalidFieldType},
		{"int for bool", "deleted", 1, shared.ErrInvalidFieldType},
		{"null mutable", "composer", nil, nil},
		{"null limited", "albumArtUrl", nil, nil},
		{"unclassified", "lyrics", "x", shared.ErrUnclassifiedField},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			err := tax.CheckValue(tc.field, tc.value)
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestCheckRecord(t *testing.T) {
	tax := Default()

	assert.NoError(t, tax.CheckRecord(map[string]any{"id": "1", "name": "A", "playCount": 3}))
	assert.ErrorIs(t, tax.CheckRecord(map[string]any{"id": "1", "lyrics": "la"}), shared.ErrUnclassifiedField)
	assert.ErrorIs(t, tax.CheckWrite(map[string]any{"id": "1", "rating": "five"}), shared.ErrInvalidFieldType)
}

func TestPerturb(t *testing.T) {
	tax := Default()

	tt := []struct {
		field string
		old   any
		want  any
	}{
		{"name", "Song", "Song_mod"},
		{"deleted", false, true},
		{"rating", 3, int64(4)},
		{"rating", 5, int64(0)},
		{"year", float64(2100), int64(1900)},
		{"track", 0, int64(1)},
		{"playCount", int64(10), int64(11)},
	}

	for _, tc := range tt {
		t.Run(tc.field, func(t *testing.T) {
			got, err := tax.Perturb(tc.field, tc.old)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.False(t, Equal(tc.old, got))
			assert.NoError(t, tax.CheckValue(tc.field, got))
		})
	}

	t.Run("every mutable field", func(t *testing.T) {
		for _, name := range tax.Names(Mutable) {
			f, _ := tax.Field(name)
			var old any = "x"
			if f.Kind == Int {
				old = 1
			}
			got, err := tax.Perturb(name, old)
			require.NoError(t, err)
			assert.Falsef(t, Equal(old, got), "%s not perturbed", name)
		}
	})
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(3, float64(3)))
	assert.True(t, Equal(json.Number("3"), int64(3)))
	assert.True(t, Equal(nil, nil))
	assert.True(t, Equal("a", "a"))
	assert.False(t, Equal("3", 3))
	assert.False(t, Equal(nil, ""))
	assert.False(t, Equal(2.5, 2))
}

func TestCategory(t *testing.T) {
	for _, c := range Categories() {
		parsed, err := ParseCategory(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, parsed)
	}

	_, err := ParseCategory("volatile")
	assert.ErrorIs(t, err, shared.ErrInvalidArgument)

	assert.True(t, Mutable.Asserted())
	assert.True(t, Dependent.Asserted())
	assert.False(t, ServerOwned.Asserted())
	assert.False(t, Limited.Asserted())
}
