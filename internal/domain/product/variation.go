package product

import (
	"sort"
	"strings"

	"github.com/xenking/options-product/internal/domain/validation"
)

// OptionGroup is a dimension along which a product varies, e.g. size.
type OptionGroup struct {
	ID      string
	Name    string
	Options []Option
}

// Option is a single value of an OptionGroup, e.g. "M".
type Option struct {
	ID       string
	GroupID  string
	Name     string
	Value    string
	Ordering int
}

// Combination is a set of options, at most one per group.
type Combination []Option

// Key returns an order-independent identity for the combination.
func (c Combination) Key() string {
	ids := make([]string, len(c))
	for i, o := range c {
		ids[i] = o.ID
	}
	sort.Strings(ids)
	return strings.Join(ids, ",")
}

// Label joins option names in group order.
func (c Combination) Label() string {
	names := make([]string, len(c))
	for i, o := range c {
		names[i] = o.Name
	}
	return strings.Join(names, " / ")
}

// GenerateVariations returns the cartesian product of the options of all
// groups. Without groups a single empty combination is returned, so every
// product has at least one purchasable variation. Options keep their
// Ordering within a group.
func GenerateVariations(groups []OptionGroup) []Combination {
	combos := []Combination{{}}
	for _, g := range groups {
		opts := sortedOptions(g)
		if len(opts) == 0 {
			continue
		}
		next := make([]Combination, 0, len(combos)*len(opts))
		for _, c := range combos {
			for _, o := range opts {
				combo := make(Combination, len(c), len(c)+1)
				copy(combo, c)
				next = append(next, append(combo, o))
			}
		}
		combos = next
	}
	return combos
}

// ValidateVariations checks that every combination selects exactly one
// option from each group and that no combination occurs twice.
func ValidateVariations(groups []OptionGroup, combos []Combination) error {
	groupOf := make(map[string]string)
	var groupNames []string
	for _, g := range groups {
		if len(g.Options) == 0 {
			continue
		}
		groupNames = append(groupNames, g.Name)
		for _, o := range g.Options {
			groupOf[o.ID] = g.ID
		}
	}

	var c validation.Collector
	seen := make(map[string]struct{}, len(combos))
	for _, combo := range combos {
		perGroup := make(map[string]int, len(groupNames))
		for _, o := range combo {
			perGroup[groupOf[o.ID]]++
		}

		ambiguous := false
		for _, n := range perGroup {
			if n > 1 {
				ambiguous = true
			}
		}
		if ambiguous {
			c.Add(validation.KindVariationAmbiguous, "only one option per group allowed")
		}

		complete := len(perGroup) == len(groupNames)
		if _, unknown := perGroup[""]; unknown {
			complete = false
		}
		if !complete {
			c.Add(validation.KindVariationIncomplete,
				"please select options from the following groups: "+strings.Join(groupNames, ", "))
		}

		key := combo.Key()
		if _, dup := seen[key]; dup {
			c.Add(validation.KindVariationDuplicate, "combination of options already encountered: "+combo.Label())
		}
		seen[key] = struct{}{}
	}
	return c.Err()
}

func sortedOptions(g OptionGroup) []Option {
	opts := make([]Option, len(g.Options))
	copy(opts, g.Options)
	sort.SliceStable(opts, func(i, j int) bool {
		return opts[i].Ordering < opts[j].Ordering
	})
	return opts
}
