// Package handler provides the HTTP surface of the quick-add server: the popup
// fragment and resolve endpoints, the MCP tool server and health checks.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"quickadd/internal/model"
	"quickadd/internal/quickadd"
	"quickadd/internal/storefront"
)

// DefaultSessionTTL is how long an idle MCP shopper keeps its popup and cart.
const DefaultSessionTTL = 30 * time.Minute

// CartSession is one shopper's storefront cart. storefront.Session and
// storefront.Mock implement it.
type CartSession interface {
	quickadd.CartAdder
	Cart(ctx context.Context) (*storefront.Cart, error)
}

// Config holds the dependencies for New.
type Config struct {
	Products  quickadd.ProductSource
	Formatter quickadd.Formatter

	// NewSession opens a fresh cart for each MCP session.
	NewSession func() (CartSession, error)

	// AddOn is the bundled variant added after every successful add.
	AddOn model.ID
	// CartURL is where shoppers are sent after a successful add.
	CartURL string

	// SessionTTL expires idle MCP shoppers. Zero means DefaultSessionTTL.
	SessionTTL time.Duration
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	products   quickadd.ProductSource
	formatter  quickadd.Formatter
	newSession func() (CartSession, error)
	addOn      model.ID
	cartURL    string
	ttl        time.Duration
	logger     *slog.Logger

	mu       sync.Mutex
	shoppers map[string]*shopper
	now      func() time.Time
}

// New creates a new Handler.
func New(cfg Config, logger *slog.Logger) (*Handler, error) {
	if cfg.Products == nil {
		return nil, fmt.Errorf("product source is required")
	}
	if cfg.Formatter == nil {
		return nil, fmt.Errorf("formatter is required")
	}
	if cfg.NewSession == nil {
		return nil, fmt.Errorf("session factory is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	return &Handler{
		products:   cfg.Products,
		formatter:  cfg.Formatter,
		newSession: cfg.NewSession,
		addOn:      cfg.AddOn,
		cartURL:    cfg.CartURL,
		ttl:        ttl,
		logger:     logger,
		shoppers:   make(map[string]*shopper),
		now:        time.Now,
	}, nil
}

// RegisterRoutes registers all HTTP routes with the given ServeMux.
// Uses Go 1.22+ method routing patterns.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Popup fragment and stateless resolution
	mux.HandleFunc("GET /quick-add/{handle}", h.handleFragment)
	mux.HandleFunc("POST /quick-add/{handle}/resolve", h.handleResolve)

	// MCP transport - JSON-RPC endpoint using official MCP SDK
	mux.Handle("/mcp", h.NewMCPHandler())

	// Health check
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /healthz", h.handleHealth)
}

// handleHealth returns a simple health check response.
// GET /health, GET /healthz
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

type healthResponse struct {
	Status string `json:"status"`
}

// === Response Helpers ===

// writeJSON sends a JSON response with the given status code.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeError sends an error response, extracting status/code from APIError if present.
// Uses errors.As() to unwrap error chains (e.g., fmt.Errorf wrapping).
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError

	switch {
	case errors.As(err, &apiErr):
		// Found APIError in error chain - use it
	case errors.Is(err, quickadd.ErrUnknownOption), errors.Is(err, quickadd.ErrUnknownValue):
		apiErr = model.NewValidationError("selections", err.Error())
	default:
		// Wrap unexpected errors
		apiErr = model.NewInternalError(err)
		h.logger.Error("internal error", slog.String("error", err.Error()))
	}

	h.writeJSON(w, apiErr.StatusCode, errorResponse{
		Error: errorBody{
			Code:    apiErr.Code,
			Message: apiErr.Message,
		},
	})
}

// errorResponse is the JSON structure for error responses.
type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MaxRequestBodySize limits JSON request bodies to 1MB to prevent DoS.
const MaxRequestBodySize = 1 << 20 // 1MB

// decodeJSON reads JSON from request body into v.
// Limits body size to MaxRequestBodySize to prevent memory exhaustion.
// Returns an APIError if decoding fails.
func decodeJSON(r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, MaxRequestBodySize)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		// Don't expose internal error details to client
		return model.NewValidationError("body", "invalid JSON")
	}
	return nil
}
