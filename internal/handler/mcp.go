// MCP transport for the quick-add popup using the official MCP Go SDK.
// Each MCP session drives its own popup and storefront cart.
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"quickadd/internal/model"
	"quickadd/internal/quickadd"
)

// === MCP Tool Input/Output Types ===

// OpenProductInput is the input schema for open_product tool.
type OpenProductInput struct {
	Handle string `json:"handle" jsonschema:"product handle, the last path segment of the product URL"`
}

// SelectOptionInput is the input schema for select_option tool.
type SelectOptionInput struct {
	Option string `json:"option" jsonschema:"option name, e.g. Color or Size (case-insensitive)"`
	Value  string `json:"value" jsonschema:"one of the option's values"`
}

// ToggleDropdownInput is the input schema for toggle_dropdown tool.
type ToggleDropdownInput struct {
	Option string `json:"option" jsonschema:"name of a dropdown option"`
}

// GetPopupInput is the input schema for get_popup tool.
type GetPopupInput struct {
	IncludeCart bool `json:"include_cart,omitempty" jsonschema:"also fetch the shopper's cart"`
}

// EmptyInput is the input schema for tools without arguments.
type EmptyInput struct{}

// CartState summarizes the shopper's storefront cart.
type CartState struct {
	ItemCount int             `json:"item_count"`
	Total     string          `json:"total"`
	Items     []CartLineState `json:"items"`
}

// CartLineState is one cart line.
type CartLineState struct {
	VariantID string `json:"variant_id"`
	Title     string `json:"title,omitempty"`
	Quantity  int    `json:"quantity"`
	LinePrice string `json:"line_price"`
}

// NewMCPServer creates an MCP server with the popup tools registered.
func (h *Handler) NewMCPServer() *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "quickadd",
			Version: "1.0.0",
		},
		&mcp.ServerOptions{
			Instructions: "Quick add to cart. Open a product, pick a value for every option, " +
				"then add_to_cart. Every tool returns the popup state; a resolved variant " +
				"has resolution \"matched\" and submit_enabled true when it is in stock.",
		},
	)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "open_product",
		Description: "Open the quick-add popup for a product. The first available variant is preselected.",
	}, h.mcpOpenProduct)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "select_option",
		Description: "Select a value for one option of the open product and re-resolve the variant.",
	}, h.mcpSelectOption)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "toggle_dropdown",
		Description: "Open or close the menu of a dropdown option.",
	}, h.mcpToggleDropdown)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_to_cart",
		Description: "Add the resolved variant and the bundled add-on to the cart. On success the popup closes and the cart is returned.",
	}, h.mcpAddToCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "close_popup",
		Description: "Close the popup. The cart is kept.",
	}, h.mcpClosePopup)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_popup",
		Description: "Get the current popup state, optionally with the cart.",
	}, h.mcpGetPopup)

	return server
}

// NewMCPHandler returns an HTTP handler for the MCP endpoint.
// Mount this at /mcp on your mux.
func (h *Handler) NewMCPHandler() http.Handler {
	server := h.NewMCPServer()
	return mcp.NewStreamableHTTPHandler(
		func(r *http.Request) *mcp.Server { return server },
		nil,
	)
}

// === Tool Handlers ===

func (h *Handler) mcpOpenProduct(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input OpenProductInput,
) (*mcp.CallToolResult, PopupState, error) {
	if input.Handle == "" {
		return nil, PopupState{}, fmt.Errorf("handle is required")
	}
	return h.mcpRun(ctx, req, func(s *shopper) error {
		return s.popup.Dispatch(ctx, quickadd.CTAClick{Handle: input.Handle})
	})
}

func (h *Handler) mcpSelectOption(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input SelectOptionInput,
) (*mcp.CallToolResult, PopupState, error) {
	return h.mcpRun(ctx, req, func(s *shopper) error {
		return s.popup.Select(input.Option, input.Value)
	})
}

func (h *Handler) mcpToggleDropdown(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ToggleDropdownInput,
) (*mcp.CallToolResult, PopupState, error) {
	return h.mcpRun(ctx, req, func(s *shopper) error {
		view := s.popup.View()
		for _, o := range view.Options {
			if strings.EqualFold(o.Name, input.Option) {
				return s.popup.Dispatch(ctx, quickadd.DropdownToggle{Position: o.Position})
			}
		}
		if !view.Visible {
			return quickadd.ErrNotOpen
		}
		return fmt.Errorf("%w: %q", quickadd.ErrUnknownOption, input.Option)
	})
}

func (h *Handler) mcpAddToCart(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input EmptyInput,
) (*mcp.CallToolResult, PopupState, error) {
	res, st, err := h.mcpRun(ctx, req, func(s *shopper) error {
		return s.popup.Dispatch(ctx, quickadd.SubmitClick{})
	})
	if err != nil {
		return nil, PopupState{}, err
	}

	s, err := h.shopperFor(sessionID(req))
	if err != nil {
		return nil, PopupState{}, h.mcpError(err)
	}
	st.Cart = h.cartState(ctx, s)
	return res, st, nil
}

func (h *Handler) mcpClosePopup(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input EmptyInput,
) (*mcp.CallToolResult, PopupState, error) {
	return h.mcpRun(ctx, req, func(s *shopper) error {
		return s.popup.Dispatch(ctx, quickadd.Close{})
	})
}

func (h *Handler) mcpGetPopup(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input GetPopupInput,
) (*mcp.CallToolResult, PopupState, error) {
	res, st, err := h.mcpRun(ctx, req, func(s *shopper) error { return nil })
	if err != nil || !input.IncludeCart {
		return res, st, err
	}

	s, err := h.shopperFor(sessionID(req))
	if err != nil {
		return nil, PopupState{}, h.mcpError(err)
	}
	st.Cart = h.cartState(ctx, s)
	return res, st, nil
}

// mcpRun applies action to the session's popup and reports the resulting
// state together with the alerts and navigations it produced.
func (h *Handler) mcpRun(
	ctx context.Context,
	req *mcp.CallToolRequest,
	action func(*shopper) error,
) (*mcp.CallToolResult, PopupState, error) {
	s, err := h.shopperFor(sessionID(req))
	if err != nil {
		return nil, PopupState{}, h.mcpError(err)
	}

	actionErr := action(s)
	alerts, navigations := s.effects.Drain()
	if actionErr != nil {
		err := h.mcpError(actionErr)
		if len(alerts) > 0 {
			err = fmt.Errorf("%s (%w)", strings.Join(alerts, " "), err)
		}
		return nil, PopupState{}, err
	}

	st := stateFromView(s.popup.View(), s.popup.Resolution())
	st.Alerts = alerts
	if n := len(navigations); n > 0 {
		st.NavigatedTo = navigations[n-1]
	}
	return nil, st, nil
}

// cartState fetches the shopper's cart. A failed fetch is logged and
// reported as no cart.
func (h *Handler) cartState(ctx context.Context, s *shopper) *CartState {
	cart, err := s.cart.Cart(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "cart fetch failed", slog.String("error", err.Error()))
		return nil
	}

	st := &CartState{
		ItemCount: cart.ItemCount,
		Total:     h.formatter.Format(int64(cart.TotalPrice)),
		Items:     []CartLineState{},
	}
	for _, line := range cart.Items {
		st.Items = append(st.Items, CartLineState{
			VariantID: line.VariantID.String(),
			Title:     line.Title,
			Quantity:  line.Quantity,
			LinePrice: h.formatter.Format(int64(line.LinePrice)),
		})
	}
	return st
}

// popupErrors are shopper-facing and safe to return verbatim.
var popupErrors = []error{
	quickadd.ErrNotOpen,
	quickadd.ErrWrongControl,
	quickadd.ErrSubmitDisabled,
	quickadd.ErrStaleSession,
	quickadd.ErrUnknownOption,
	quickadd.ErrUnknownValue,
	model.ErrSubmitInProgress,
}

// mcpError converts popup and storefront errors to MCP-friendly errors.
func (h *Handler) mcpError(err error) error {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %s", apiErr.Code, apiErr.Message)
	}
	for _, known := range popupErrors {
		if errors.Is(err, known) {
			return err
		}
	}
	// Don't leak internal error details
	h.logger.Error("mcp internal error", "error", err.Error())
	return fmt.Errorf("internal error")
}

// sessionID keys shoppers by MCP session. Stateless requests share "".
func sessionID(req *mcp.CallToolRequest) string {
	if req == nil || req.Session == nil {
		return ""
	}
	return req.Session.ID()
}
