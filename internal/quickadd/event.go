package quickadd

import (
	"fmt"
	"sync"
)

// Event is a shopper interaction delivered to Popup.Dispatch.
type Event interface {
	eventName() string
}

// CTAClick opens the popup for a product.
type CTAClick struct{ Handle string }

// SwatchSelect picks a value on a color option.
type SwatchSelect struct {
	Position int
	Value    string
}

// DropdownToggle opens or closes a dropdown's menu.
type DropdownToggle struct{ Position int }

// DropdownItemSelect picks a value from a dropdown's menu.
type DropdownItemSelect struct {
	Position int
	Value    string
}

// SubmitClick presses the add-to-cart button.
type SubmitClick struct{}

// Close is the close button.
type Close struct{}

// EscapeKey closes the popup when it is shown.
type EscapeKey struct{}

// OverlayClick closes the popup when it is shown.
type OverlayClick struct{}

func (CTAClick) eventName() string           { return "cta_click" }
func (SwatchSelect) eventName() string       { return "swatch_select" }
func (DropdownToggle) eventName() string     { return "dropdown_toggle" }
func (DropdownItemSelect) eventName() string { return "dropdown_item_select" }
func (SubmitClick) eventName() string        { return "submit_click" }
func (Close) eventName() string              { return "close" }
func (EscapeKey) eventName() string          { return "escape_key" }
func (OverlayClick) eventName() string       { return "overlay_click" }

// Shopper-facing messages.
const (
	MsgLoadFailed   = "Sorry, something went wrong loading this product."
	MsgSelectAll    = "Please select all options."
	MsgAddFailed    = "Could not add to cart. Please try again."
	DefaultCartPath = "/cart"
)

// Effects receives the side effects the popup produces outside its View.
// Effects are delivered without the popup lock held.
type Effects interface {
	Alert(message string)
	Navigate(url string)
}

type nopEffects struct{}

func (nopEffects) Alert(string)    {}
func (nopEffects) Navigate(string) {}

// Recorder is an Effects that keeps everything it receives.
type Recorder struct {
	mu          sync.Mutex
	alerts      []string
	navigations []string
}

func (r *Recorder) Alert(message string) {
	r.mu.Lock()
	r.alerts = append(r.alerts, message)
	r.mu.Unlock()
}

func (r *Recorder) Navigate(url string) {
	r.mu.Lock()
	r.navigations = append(r.navigations, url)
	r.mu.Unlock()
}

// Alerts returns the alerts received so far.
func (r *Recorder) Alerts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.alerts...)
}

// Navigations returns the navigation targets received so far.
func (r *Recorder) Navigations() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.navigations...)
}

// Drain returns and forgets everything received so far.
func (r *Recorder) Drain() (alerts, navigations []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	alerts, navigations = r.alerts, r.navigations
	r.alerts, r.navigations = nil, nil
	return alerts, navigations
}

// EventName is the log name of an event.
func EventName(e Event) string {
	if e == nil {
		return "<nil>"
	}
	return e.eventName()
}

func describe(e Event) string {
	if e == nil {
		return EventName(e)
	}
	return fmt.Sprintf("%s %+v", EventName(e), e)
}
