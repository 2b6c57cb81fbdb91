// Package model defines storefront product data and the error kinds shared by
// the quick-add engine, the storefront client and the HTTP surface.
package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"quickadd/internal/money"
)

// Product is the payload of GET /products/{handle}.js.
// Treated as immutable once fetched; the catalog hands out shared pointers.
type Product struct {
	ID          ID          `json:"id"`
	Handle      string      `json:"handle"`
	Title       string      `json:"title"`
	Description string      `json:"description"` // HTML
	Images      []string    `json:"images"`
	Options     []Option    `json:"options"`
	Variants    []Variant   `json:"variants"`
	Price       *MinorUnits `json:"price,omitempty"`
}

// BasePrice is the price shown before any variant resolves:
// the product price, else the first variant's price, else 0.
func (p *Product) BasePrice() int64 {
	if p.Price != nil {
		return int64(*p.Price)
	}
	if len(p.Variants) > 0 {
		return int64(p.Variants[0].Price)
	}
	return 0
}

// FirstImage returns the lead product image or "".
func (p *Product) FirstImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// Option returns the option at a 1-based position.
func (p *Product) Option(position int) (Option, bool) {
	if position < 1 || position > len(p.Options) {
		return Option{}, false
	}
	return p.Options[position-1], true
}

// Option is a named axis of variation. Position is 1-based and matches the
// option's index in Product.Options.
type Option struct {
	Name     string   `json:"name"`
	Position int      `json:"position"`
	Values   []string `json:"values"`
}

// IsColor reports whether the option renders as swatches.
func (o Option) IsColor() bool {
	return strings.EqualFold(o.Name, "color")
}

// Has reports whether value is one of the option's declared values.
func (o Option) Has(value string) bool {
	for _, v := range o.Values {
		if v == value {
			return true
		}
	}
	return false
}

// Variant is one purchasable combination of option values.
// Values holds the option slots in position order; nil means the variant has
// no value for that option.
type Variant struct {
	ID            ID
	Title         string
	Values        []*string
	Price         MinorUnits
	Available     bool
	FeaturedImage ImageRef
}

// Value returns the variant's value for the option at a 1-based position.
func (v Variant) Value(position int) (string, bool) {
	if position < 1 || position > len(v.Values) || v.Values[position-1] == nil {
		return "", false
	}
	return *v.Values[position-1], true
}

// variantWire mirrors the storefront JSON, where option slots are spread
// across option1..option3.
type variantWire struct {
	ID            ID         `json:"id"`
	Title         string     `json:"title"`
	Option1       *string    `json:"option1"`
	Option2       *string    `json:"option2"`
	Option3       *string    `json:"option3"`
	Price         MinorUnits `json:"price"`
	Available     bool       `json:"available"`
	FeaturedImage ImageRef   `json:"featured_image,omitempty"`
}

// UnmarshalJSON converts option1..option3 into ordered slots.
func (v *Variant) UnmarshalJSON(data []byte) error {
	var w variantWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	values := []*string{w.Option1, w.Option2, w.Option3}
	for len(values) > 0 && values[len(values)-1] == nil {
		values = values[:len(values)-1]
	}

	*v = Variant{
		ID:            w.ID,
		Title:         w.Title,
		Values:        values,
		Price:         w.Price,
		Available:     w.Available,
		FeaturedImage: w.FeaturedImage,
	}
	return nil
}

// MarshalJSON writes the storefront shape back out.
func (v Variant) MarshalJSON() ([]byte, error) {
	w := variantWire{
		ID:            v.ID,
		Title:         v.Title,
		Price:         v.Price,
		Available:     v.Available,
		FeaturedImage: v.FeaturedImage,
	}
	slots := []**string{&w.Option1, &w.Option2, &w.Option3}
	for i, val := range v.Values {
		if i < len(slots) {
			*slots[i] = val
		}
	}
	return json.Marshal(w)
}

// ID is an opaque storefront identifier. Storefronts send numeric ids; the
// engine only ever compares and forwards them.
type ID string

// UnmarshalJSON accepts JSON numbers and strings.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON emits numeric ids as JSON numbers, everything else as strings.
func (id ID) MarshalJSON() ([]byte, error) {
	if id != "" {
		if _, err := strconv.ParseUint(string(id), 10, 64); err == nil {
			return []byte(id), nil
		}
	}
	return json.Marshal(string(id))
}

// String implements fmt.Stringer.
func (id ID) String() string { return string(id) }

// MinorUnits is an amount in minor currency units (cents).
// Decoding never fails: numbers and numeric strings are accepted, anything
// else becomes 0.
type MinorUnits int64

// UnmarshalJSON implements lenient price decoding.
func (m *MinorUnits) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*m = 0
			return nil
		}
		*m = MinorUnits(money.ParseMinorUnits(s))
		return nil
	}
	*m = MinorUnits(numberMinorUnits(data))
	return nil
}

// numberMinorUnits reads a bare JSON token. Exponent forms such as 1e3 are
// numbers in JSON and keep their value; non-finite or out-of-range values
// become 0.
func numberMinorUnits(data []byte) int64 {
	if !bytes.ContainsAny(data, "eE") {
		return money.ParseMinorUnits(string(data))
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0
	}
	return int64(f)
}

// ImageRef is a featured image URL. Storefronts send either an image object
// with a src field, a bare URL string, or null.
type ImageRef string

// UnmarshalJSON accepts {"src": "..."}, "..." and null.
func (r *ImageRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*r = ""
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = ImageRef(s)
	case '{':
		var obj struct {
			Src string `json:"src"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		*r = ImageRef(obj.Src)
	}
	return nil
}
