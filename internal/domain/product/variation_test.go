package product

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/options-product/internal/domain/validation"
)

func sizeAndColor() []OptionGroup {
	return []OptionGroup{
		{
			ID:   "size",
			Name: "size",
			Options: []Option{
				{ID: "m", GroupID: "size", Name: "M", Value: "m", Ordering: 20},
				{ID: "s", GroupID: "size", Name: "S", Value: "s", Ordering: 10},
			},
		},
		{
			ID:   "color",
			Name: "color",
			Options: []Option{
				{ID: "red", GroupID: "color", Name: "red", Value: "red", Ordering: 10},
				{ID: "blue", GroupID: "color", Name: "blue", Value: "blue", Ordering: 20},
			},
		},
	}
}

func TestGenerateVariations(t *testing.T) {
	combos := GenerateVariations(sizeAndColor())

	require.Len(t, combos, 4)
	labels := make([]string, len(combos))
	for i, c := range combos {
		labels[i] = c.Label()
	}
	assert.Equal(t, []string{"S / red", "S / blue", "M / red", "M / blue"}, labels)
	require.NoError(t, ValidateVariations(sizeAndColor(), combos))
}

func TestGenerateVariations_NoGroups(t *testing.T) {
	combos := GenerateVariations(nil)

	require.Len(t, combos, 1)
	assert.Empty(t, combos[0])
	require.NoError(t, ValidateVariations(nil, combos))
}

func TestValidateVariations(t *testing.T) {
	groups := sizeAndColor()
	s, m := groups[0].Options[1], groups[0].Options[0]
	red, blue := groups[1].Options[0], groups[1].Options[1]

	tests := []struct {
		name      string
		groups    []OptionGroup
		combos    []Combination
		wantKinds []validation.Kind
	}{
		{
			name:      "duplicate combination",
			groups:    groups,
			combos:    []Combination{{s, blue}, {blue, s}, {m, red}},
			wantKinds: []validation.Kind{validation.KindVariationDuplicate},
		},
		{
			name:      "option from a group that is not selected",
			groups:    groups[:1],
			combos:    []Combination{{s, red}},
			wantKinds: []validation.Kind{validation.KindVariationIncomplete},
		},
		{
			name:      "two options of the same group",
			groups:    groups[:1],
			combos:    []Combination{{s, m}},
			wantKinds: []validation.Kind{validation.KindVariationAmbiguous},
		},
		{
			name:      "missing group",
			groups:    groups,
			combos:    []Combination{{s}},
			wantKinds: []validation.Kind{validation.KindVariationIncomplete},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateVariations(tt.groups, tt.combos)
			require.Error(t, err)

			var verr *validation.Error
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantKinds, verr.Kinds())
		})
	}
}
