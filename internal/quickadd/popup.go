// Package quickadd is the quick-add-to-cart engine: option selection, variant
// resolution, view sync and the add-to-cart sequence behind a product popup.
package quickadd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"quickadd/internal/model"
)

var (
	// ErrNotOpen is returned for events that need an open popup.
	ErrNotOpen = errors.New("popup is not open")
	// ErrWrongControl is returned when an event targets an option rendered
	// with another control, e.g. a swatch pick on a dropdown option.
	ErrWrongControl = errors.New("option is not rendered with that control")
	// ErrSubmitDisabled is returned for a submit while the resolved variant
	// is sold out.
	ErrSubmitDisabled = errors.New("add to cart is disabled")
	// ErrStaleSession is returned by an open that was superseded by a later
	// open or close while its product was loading.
	ErrStaleSession = errors.New("popup session changed")
	// ErrNilEvent is returned by Dispatch for a nil event.
	ErrNilEvent = errors.New("nil event")
)

// ProductSource loads products by handle. catalog.Cache implements it.
type ProductSource interface {
	Get(ctx context.Context, handle string) (*model.Product, error)
}

// Config wires a Popup.
type Config struct {
	Products  ProductSource
	Cart      CartAdder
	Formatter Formatter

	// AddOn is the bundled variant added after every successful add.
	// Empty disables the second step.
	AddOn model.ID

	// CartURL is the navigation target after a successful add.
	CartURL string

	Effects Effects
	Logger  *slog.Logger
}

// Popup is one quick-add popup. Each Open starts a new session; work that
// completes after its session ended leaves the view alone.
//
// Popup is safe for concurrent use. Network calls run without the lock held,
// so events may interleave with an in-flight open or submit.
type Popup struct {
	products ProductSource
	cart     CartAdder
	syncer   Sync
	addOn    model.ID
	cartURL  string
	effects  Effects
	logger   *slog.Logger

	mu         sync.Mutex
	session    string
	product    *model.Product
	selection  *Selection
	resolution Resolution
	seq        *Sequencer
	view       View
}

// New creates a closed popup.
func New(cfg Config) (*Popup, error) {
	if cfg.Products == nil {
		return nil, fmt.Errorf("product source is required")
	}
	if cfg.Cart == nil {
		return nil, fmt.Errorf("cart is required")
	}
	if cfg.Formatter == nil {
		return nil, fmt.Errorf("formatter is required")
	}

	p := &Popup{
		products: cfg.Products,
		cart:     cfg.Cart,
		syncer:   Sync{Formatter: cfg.Formatter},
		addOn:    cfg.AddOn,
		cartURL:  cfg.CartURL,
		effects:  cfg.Effects,
		logger:   cfg.Logger,
		view:     View{AriaHidden: "true"},
	}
	if p.cartURL == "" {
		p.cartURL = DefaultCartPath
	}
	if p.effects == nil {
		p.effects = nopEffects{}
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p, nil
}

// Open loads handle and shows the popup with the default selection applied.
// On a load failure the shopper is alerted and the popup is not shown.
func (p *Popup) Open(ctx context.Context, handle string) error {
	token := uuid.NewString()
	p.mu.Lock()
	p.session = token
	p.mu.Unlock()

	logger := p.logger.With("session", token, "handle", handle)

	product, err := p.products.Get(ctx, handle)

	p.mu.Lock()
	if p.session != token {
		p.mu.Unlock()
		logger.Info("stale open ignored")
		return ErrStaleSession
	}
	if err != nil {
		p.mu.Unlock()
		logger.Error("open failed", "error", err)
		p.effects.Alert(MsgLoadFailed)
		return err
	}

	p.product = product
	p.selection = NewSelection(product)
	p.seq = NewSequencer(p.cart, p.addOn, logger)
	p.view = NewView(product, p.syncer.Formatter)
	p.selection.Preselect()
	p.update()
	p.view.Visible = true
	p.view.AriaHidden = "false"
	p.mu.Unlock()

	logger.Debug("popup opened", "options", len(product.Options), "variants", len(product.Variants))
	return nil
}

// Close hides the popup and ends its session.
func (p *Popup) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked()
}

func (p *Popup) closeLocked() {
	p.view.Visible = false
	p.view.AriaHidden = "true"
	p.session = ""
}

// Dispatch delivers one shopper interaction.
func (p *Popup) Dispatch(ctx context.Context, ev Event) error {
	p.logger.Debug("event", "event", describe(ev))

	switch e := ev.(type) {
	case CTAClick:
		return p.Open(ctx, e.Handle)
	case Close:
		p.Close()
		return nil
	case EscapeKey, OverlayClick:
		p.mu.Lock()
		if p.view.Visible {
			p.closeLocked()
		}
		p.mu.Unlock()
		return nil
	case SwatchSelect:
		return p.pick(e.Position, e.Value, true)
	case DropdownItemSelect:
		return p.pick(e.Position, e.Value, false)
	case DropdownToggle:
		return p.toggle(e.Position)
	case SubmitClick:
		return p.submit(ctx)
	case nil:
		return ErrNilEvent
	default:
		return fmt.Errorf("unsupported event %T", ev)
	}
}

// Select picks value on the option called name (case-insensitive), through
// whichever control that option renders as.
func (p *Popup) Select(name, value string) error {
	p.mu.Lock()
	product := p.product
	shown := p.shown()
	p.mu.Unlock()
	if !shown {
		return ErrNotOpen
	}

	for i, opt := range product.Options {
		if strings.EqualFold(opt.Name, name) {
			return p.pick(i+1, value, opt.IsColor())
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownOption, name)
}

func (p *Popup) pick(position int, value string, swatch bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.shown() {
		return ErrNotOpen
	}
	ov := p.view.Option(position)
	if ov == nil {
		return fmt.Errorf("%w: position %d", ErrUnknownOption, position)
	}
	if ov.Swatch != swatch {
		return fmt.Errorf("%w: %s", ErrWrongControl, ov.Name)
	}
	if err := p.selection.Set(position, value); err != nil {
		return err
	}

	if !swatch {
		ov.Label = value
		ov.Open = false
	}
	p.update()
	return nil
}

func (p *Popup) toggle(position int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.shown() {
		return ErrNotOpen
	}
	ov := p.view.Option(position)
	if ov == nil {
		return fmt.Errorf("%w: position %d", ErrUnknownOption, position)
	}
	if ov.Swatch {
		return fmt.Errorf("%w: %s", ErrWrongControl, ov.Name)
	}
	ov.Open = !ov.Open
	return nil
}

// shown reports whether a product is loaded and visible. Caller holds mu.
func (p *Popup) shown() bool {
	return p.product != nil && p.view.Visible
}

// update re-resolves the selection and syncs the view. Caller holds mu.
func (p *Popup) update() {
	snap := p.selection.Snapshot()
	p.resolution = Resolve(p.product, snap)
	p.view.reflect(snap)
	p.syncer.Apply(&p.view, p.resolution)
	if p.view.Submitting {
		p.view.SubmitEnabled = false
	}
}

func (p *Popup) submit(ctx context.Context) error {
	p.mu.Lock()
	if !p.shown() {
		p.mu.Unlock()
		return ErrNotOpen
	}
	id := p.view.VariantID
	if id == "" {
		p.mu.Unlock()
		p.effects.Alert(MsgSelectAll)
		return model.NewSelectionError()
	}
	if p.view.Submitting {
		p.mu.Unlock()
		return model.ErrSubmitInProgress
	}
	if !p.view.SubmitEnabled {
		p.mu.Unlock()
		return ErrSubmitDisabled
	}
	token := p.session
	seq := p.seq
	p.view.Submitting = true
	p.view.SubmitEnabled = false
	p.mu.Unlock()

	err := seq.Submit(ctx, id)

	p.mu.Lock()
	if p.session != token {
		p.mu.Unlock()
		p.logger.Info("stale submit completion ignored",
			"session", token, "variant_id", id, "error", err)
		return err
	}
	p.view.Submitting = false
	if err != nil {
		// Re-enabled even if the selection no longer resolves; a click then
		// gets the select-all alert.
		p.view.SubmitEnabled = true
		p.mu.Unlock()
		p.effects.Alert(MsgAddFailed)
		return err
	}
	p.closeLocked()
	target := p.cartURL
	p.mu.Unlock()

	p.effects.Navigate(target)
	return nil
}

// View returns a copy of the current view.
func (p *Popup) View() View {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.view.Clone()
}

// Resolution returns the last resolution.
func (p *Popup) Resolution() Resolution {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resolution
}

// Snapshot returns the current selection, or nil before the first open.
func (p *Popup) Snapshot() []Choice {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.selection == nil {
		return nil
	}
	return p.selection.Snapshot()
}

// SubmitState returns the state of the current session's sequencer.
func (p *Popup) SubmitState() State {
	p.mu.Lock()
	seq := p.seq
	p.mu.Unlock()
	if seq == nil {
		return Idle
	}
	return seq.State()
}

// Pick is one explicit option choice for Preview.
type Pick struct {
	Position int
	Value    string
}

// Preview evaluates picks against product without a popup: the default
// selection is applied first, then each pick in order. The returned view is
// what an open popup would show.
func Preview(product *model.Product, fm Formatter, picks []Pick) (View, Resolution, error) {
	sel := NewSelection(product)
	sel.Preselect()
	for _, pk := range picks {
		if err := sel.Set(pk.Position, pk.Value); err != nil {
			return View{}, Resolution{}, err
		}
	}

	view := NewView(product, fm)
	for _, pk := range picks {
		if ov := view.Option(pk.Position); ov != nil && !ov.Swatch {
			ov.Label = pk.Value
		}
	}
	snap := sel.Snapshot()
	r := Resolve(product, snap)
	view.reflect(snap)
	Sync{Formatter: fm}.Apply(&view, r)
	return view, r, nil
}
