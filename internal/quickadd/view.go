package quickadd

import (
	"quickadd/internal/model"
)

// View is the observable state of the popup. Renderers read it; only the
// popup and Sync write it.
type View struct {
	Visible    bool
	AriaHidden string // "true" or "false"

	Handle   string
	Product  *model.Product
	Title    string
	ImageURL string

	// PriceText is the formatted price or PricePlaceholder.
	PriceText string

	Options []OptionView

	// VariantID is the id submitted on add; empty when nothing resolved.
	VariantID     model.ID
	SubmitEnabled bool
	Submitting    bool
}

// OptionView is one option control: swatches for color, a dropdown
// otherwise.
type OptionView struct {
	Name     string
	Position int
	Swatch   bool
	Values   []string

	// Selected is the active swatch or the dropdown's selected value.
	Selected string

	// Label is the dropdown toggle text. It starts as "Choose your {name}"
	// and follows item picks, not preselection.
	Label string
	Open  bool
}

// NewView builds the freshly rendered, still hidden view for product.
func NewView(product *model.Product, fm Formatter) View {
	v := View{
		AriaHidden: "true",
		Handle:     product.Handle,
		Product:    product,
		Title:      product.Title,
		ImageURL:   product.FirstImage(),
		PriceText:  fm.Format(product.BasePrice()),
	}
	for i, opt := range product.Options {
		ov := OptionView{
			Name:     opt.Name,
			Position: i + 1,
			Swatch:   opt.IsColor(),
			Values:   append([]string(nil), opt.Values...),
		}
		if !ov.Swatch {
			ov.Label = "Choose your " + opt.Name
		}
		v.Options = append(v.Options, ov)
	}
	return v
}

// Option returns the control at a 1-based position.
func (v *View) Option(position int) *OptionView {
	if position < 1 || position > len(v.Options) {
		return nil
	}
	return &v.Options[position-1]
}

// reflect copies a selection snapshot into the option controls.
func (v *View) reflect(snap []Choice) {
	for i := range v.Options {
		if i < len(snap) && snap[i].Set {
			v.Options[i].Selected = snap[i].Value
		} else {
			v.Options[i].Selected = ""
		}
	}
}

// Clone returns a deep copy safe to hand to other goroutines.
// The product pointer is shared; products are immutable.
func (v View) Clone() View {
	out := v
	out.Options = make([]OptionView, len(v.Options))
	for i, o := range v.Options {
		o.Values = append([]string(nil), o.Values...)
		out.Options[i] = o
	}
	return out
}
