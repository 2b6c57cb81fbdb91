package quickadd

import (
	"context"
	"log/slog"
	"sync"

	"quickadd/internal/model"
)

// DefaultAddOnVariant is the bundled item added after every successful add.
const DefaultAddOnVariant model.ID = "45517952057578"

// CartAdder adds one line to the shopper's cart.
// storefront.Session implements it.
type CartAdder interface {
	AddToCart(ctx context.Context, id model.ID, quantity int) error
}

// State is the sequencer state.
type State int

const (
	Idle State = iota
	Submitting
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Submitting:
		return "submitting"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Sequencer runs the two-step add: the chosen variant, then the add-on.
//
// The two adds are not transactional. When the add-on fails the first line
// stays in the cart and the submission still reports failure.
type Sequencer struct {
	cart   CartAdder
	addOn  model.ID
	logger *slog.Logger

	mu    sync.Mutex
	state State
}

// NewSequencer creates an idle sequencer. An empty addOn skips the second
// step.
func NewSequencer(cart CartAdder, addOn model.ID, logger *slog.Logger) *Sequencer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sequencer{cart: cart, addOn: addOn, logger: logger}
}

// State returns the current state.
func (s *Sequencer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Submit adds id with quantity 1, then the add-on. An empty id is a
// validation failure and makes no request. Terminal states accept a new
// submission; Submitting does not.
func (s *Sequencer) Submit(ctx context.Context, id model.ID) error {
	if id == "" {
		return model.NewSelectionError()
	}

	s.mu.Lock()
	if s.state == Submitting {
		s.mu.Unlock()
		return model.ErrSubmitInProgress
	}
	s.state = Submitting
	s.mu.Unlock()

	if err := s.cart.AddToCart(ctx, id, 1); err != nil {
		s.logger.Error("add to cart failed", "variant_id", id, "error", err)
		s.finish(Failed)
		return err
	}

	if s.addOn != "" {
		if err := s.cart.AddToCart(ctx, s.addOn, 1); err != nil {
			s.logger.Warn("partial add: add-on failed after variant was added",
				"variant_id", id,
				"addon_variant_id", s.addOn,
				"error", err,
			)
			s.finish(Failed)
			return err
		}
	}

	s.logger.Info("added to cart", "variant_id", id, "addon_variant_id", s.addOn)
	s.finish(Succeeded)
	return nil
}

func (s *Sequencer) finish(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}
