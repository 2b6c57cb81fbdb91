package handler

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"quickadd/internal/model"
	"quickadd/internal/quickadd"
	"quickadd/internal/render"
)

// PopupState is the JSON projection of a popup view.
type PopupState struct {
	Open          bool          `json:"open"`
	Handle        string        `json:"handle,omitempty"`
	Title         string        `json:"title,omitempty"`
	ImageURL      string        `json:"image_url,omitempty"`
	Price         string        `json:"price,omitempty"`
	Options       []OptionState `json:"options,omitempty"`
	Resolution    string        `json:"resolution"`
	VariantID     string        `json:"variant_id,omitempty"`
	SubmitEnabled bool          `json:"submit_enabled"`
	Submitting    bool          `json:"submitting,omitempty"`

	// Set by MCP tools only.
	Alerts      []string   `json:"alerts,omitempty"`
	NavigatedTo string     `json:"navigated_to,omitempty"`
	Cart        *CartState `json:"cart,omitempty"`
}

// OptionState is one option control.
type OptionState struct {
	Name     string   `json:"name"`
	Position int      `json:"position"`
	Control  string   `json:"control"` // "swatch" or "dropdown"
	Values   []string `json:"values"`
	Selected string   `json:"selected,omitempty"`
	Label    string   `json:"label,omitempty"`
	Open     bool     `json:"open,omitempty"`
}

func stateFromView(v quickadd.View, r quickadd.Resolution) PopupState {
	st := PopupState{
		Open:          v.Visible,
		Handle:        v.Handle,
		Title:         v.Title,
		ImageURL:      v.ImageURL,
		Price:         v.PriceText,
		Resolution:    r.Kind.String(),
		VariantID:     v.VariantID.String(),
		SubmitEnabled: v.SubmitEnabled,
		Submitting:    v.Submitting,
	}
	for _, o := range v.Options {
		control := "dropdown"
		if o.Swatch {
			control = "swatch"
		}
		st.Options = append(st.Options, OptionState{
			Name:     o.Name,
			Position: o.Position,
			Control:  control,
			Values:   o.Values,
			Selected: o.Selected,
			Label:    o.Label,
			Open:     o.Open,
		})
	}
	return st
}

// resolveRequest is the body of POST /quick-add/{handle}/resolve.
type resolveRequest struct {
	Selections []selectionInput `json:"selections"`
}

// selectionInput picks a value by option position or, when position is 0,
// by option name.
type selectionInput struct {
	Position int    `json:"position,omitempty"`
	Option   string `json:"option,omitempty"`
	Value    string `json:"value"`
}

// handleFragment renders the popup body for a product with the default
// selection applied.
// GET /quick-add/{handle}
func (h *Handler) handleFragment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	handle := r.PathValue("handle")

	product, err := h.products.Get(ctx, handle)
	if err != nil {
		h.writeError(w, err)
		return
	}

	view, res, err := quickadd.Preview(product, h.formatter, nil)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := render.Popup(&buf, view); err != nil {
		h.writeError(w, fmt.Errorf("rendering popup: %w", err))
		return
	}

	h.logger.DebugContext(ctx, "rendered fragment",
		slog.String("handle", handle),
		slog.String("resolution", res.Kind.String()),
	)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// handleResolve applies selections on top of the default selection and
// returns the resulting view state. Nothing is stored between calls.
// POST /quick-add/{handle}/resolve
func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	handle := r.PathValue("handle")

	var req resolveRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	product, err := h.products.Get(ctx, handle)
	if err != nil {
		h.writeError(w, err)
		return
	}

	picks, err := toPicks(product, req.Selections)
	if err != nil {
		h.writeError(w, err)
		return
	}

	view, res, err := quickadd.Preview(product, h.formatter, picks)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "resolved selection",
		slog.String("handle", handle),
		slog.Int("selections", len(picks)),
		slog.String("resolution", res.Kind.String()),
		slog.String("variant_id", view.VariantID.String()),
	)

	h.writeJSON(w, http.StatusOK, stateFromView(view, res))
}

func toPicks(product *model.Product, selections []selectionInput) ([]quickadd.Pick, error) {
	picks := make([]quickadd.Pick, 0, len(selections))
	for _, s := range selections {
		pos := s.Position
		if pos == 0 && s.Option == "" {
			return nil, model.NewValidationError("selections", "position or option name required")
		}
		if pos == 0 {
			if pos = optionPosition(product, s.Option); pos == 0 {
				return nil, model.NewValidationError("selections", fmt.Sprintf("unknown option %q", s.Option))
			}
		}
		picks = append(picks, quickadd.Pick{Position: pos, Value: s.Value})
	}
	return picks, nil
}

// optionPosition finds an option by case-insensitive name; 0 if absent.
func optionPosition(product *model.Product, name string) int {
	if name == "" {
		return 0
	}
	for i, opt := range product.Options {
		if strings.EqualFold(opt.Name, name) {
			return i + 1
		}
	}
	return 0
}
