package quickadd

// PricePlaceholder is shown while no variant is resolved.
const PricePlaceholder = "—"

// Formatter renders minor units for display. money.Formatter implements it.
type Formatter interface {
	Format(cents int64) string
}

// Sync projects a Resolution onto a View. It never looks at the selection
// or re-derives the match.
type Sync struct {
	Formatter Formatter
}

// Apply updates the variant id, submit affordance, price and image.
// Unresolved and NoMatch clear the id, disable submit and show the
// placeholder price; the image is left alone. Matched stores the id, enables
// submit only for an available variant, formats the price and swaps in the
// variant's featured image when it has one.
func (s Sync) Apply(v *View, r Resolution) {
	if r.Kind != Matched || r.Variant == nil {
		v.VariantID = ""
		v.SubmitEnabled = false
		v.PriceText = PricePlaceholder
		return
	}

	variant := r.Variant
	v.VariantID = variant.ID
	v.SubmitEnabled = variant.Available
	v.PriceText = s.Formatter.Format(int64(variant.Price))
	if variant.FeaturedImage != "" {
		v.ImageURL = string(variant.FeaturedImage)
	}
}
