package quickadd

import "quickadd/internal/model"

// Kind tags a Resolution.
type Kind int

const (
	// Unresolved means at least one option has no value yet.
	Unresolved Kind = iota
	// NoMatch means every option is set but no variant has that combination.
	NoMatch
	// Matched means Resolution.Variant is the chosen variant.
	Matched
)

func (k Kind) String() string {
	switch k {
	case Unresolved:
		return "unresolved"
	case NoMatch:
		return "no_match"
	case Matched:
		return "matched"
	default:
		return "unknown"
	}
}

// Resolution is the outcome of Resolve. Variant is set only for Matched and
// points into the product's variant list.
type Resolution struct {
	Kind    Kind
	Variant *model.Variant
}

// Resolve maps a selection snapshot to a variant. Variants are scanned in
// list order and the first whose option values equal the snapshot position by
// position wins, so duplicate combinations resolve to the earliest variant.
// Values are compared exactly.
func Resolve(product *model.Product, snap []Choice) Resolution {
	for _, c := range snap {
		if !c.Set {
			return Resolution{Kind: Unresolved}
		}
	}

	for i := range product.Variants {
		if matches(&product.Variants[i], snap) {
			return Resolution{Kind: Matched, Variant: &product.Variants[i]}
		}
	}
	return Resolution{Kind: NoMatch}
}

func matches(v *model.Variant, snap []Choice) bool {
	for i, c := range snap {
		value, ok := v.Value(i + 1)
		if !ok || value != c.Value {
			return false
		}
	}
	return true
}
