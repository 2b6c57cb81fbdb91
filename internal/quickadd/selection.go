package quickadd

import (
	"errors"
	"fmt"

	"quickadd/internal/model"
)

var (
	ErrUnknownOption = errors.New("unknown option")
	ErrUnknownValue  = errors.New("value not offered by option")
)

// Choice is one selection slot. Set is false for the unset sentinel.
type Choice struct {
	Value string
	Set   bool
}

// Selection tracks the chosen value per option, one slot per option in
// position order. A set slot always holds one of the option's declared
// values.
type Selection struct {
	product *model.Product
	slots   []Choice
}

// NewSelection returns a selection with every slot unset.
func NewSelection(product *model.Product) *Selection {
	s := &Selection{}
	s.Reset(product)
	return s
}

// Reset discards all choices and sizes the slots to product's options.
func (s *Selection) Reset(product *model.Product) {
	s.product = product
	s.slots = make([]Choice, len(product.Options))
}

// Set overwrites the slot at a 1-based position. The selection is unchanged
// on error.
func (s *Selection) Set(position int, value string) error {
	opt, ok := s.product.Option(position)
	if !ok {
		return fmt.Errorf("%w: position %d", ErrUnknownOption, position)
	}
	if !opt.Has(value) {
		return fmt.Errorf("%w: %s=%q", ErrUnknownValue, opt.Name, value)
	}
	s.slots[position-1] = Choice{Value: value, Set: true}
	return nil
}

// Clear resets the slot at a 1-based position to unset.
func (s *Selection) Clear(position int) error {
	if position < 1 || position > len(s.slots) {
		return fmt.Errorf("%w: position %d", ErrUnknownOption, position)
	}
	s.slots[position-1] = Choice{}
	return nil
}

// Snapshot returns a copy of the slots in position order.
func (s *Selection) Snapshot() []Choice {
	return append([]Choice(nil), s.slots...)
}

// Len is the number of slots.
func (s *Selection) Len() int {
	return len(s.slots)
}

// Preselect applies the default selection: the values of the first available
// variant, else of the first variant. Slots whose default is missing or not
// a declared value are left unset.
func (s *Selection) Preselect() {
	v := defaultVariant(s.product)
	if v == nil {
		return
	}
	for pos := 1; pos <= len(s.slots); pos++ {
		if value, ok := v.Value(pos); ok {
			s.Set(pos, value) // undeclared values stay unset
		}
	}
}

func defaultVariant(product *model.Product) *model.Variant {
	for i := range product.Variants {
		if product.Variants[i].Available {
			return &product.Variants[i]
		}
	}
	if len(product.Variants) > 0 {
		return &product.Variants[0]
	}
	return nil
}
