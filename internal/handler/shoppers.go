package handler

import (
	"fmt"
	"log/slog"
	"time"

	"quickadd/internal/quickadd"
)

// shopper is the popup and cart owned by one MCP session.
type shopper struct {
	popup    *quickadd.Popup
	cart     CartSession
	effects  *quickadd.Recorder
	lastUsed time.Time
}

// shopperFor returns the shopper for an MCP session, creating it on first
// use. Shoppers idle for longer than the TTL are dropped.
func (h *Handler) shopperFor(sessionID string) (*shopper, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	for id, s := range h.shoppers {
		if id != sessionID && now.Sub(s.lastUsed) > h.ttl {
			delete(h.shoppers, id)
			h.logger.Debug("shopper expired", slog.String("mcp_session", id))
		}
	}

	if s, ok := h.shoppers[sessionID]; ok {
		s.lastUsed = now
		return s, nil
	}

	cart, err := h.newSession()
	if err != nil {
		return nil, fmt.Errorf("opening cart session: %w", err)
	}
	effects := &quickadd.Recorder{}
	popup, err := quickadd.New(quickadd.Config{
		Products:  h.products,
		Cart:      cart,
		Formatter: h.formatter,
		AddOn:     h.addOn,
		CartURL:   h.cartURL,
		Effects:   effects,
		Logger:    h.logger.With(slog.String("mcp_session", sessionID)),
	})
	if err != nil {
		return nil, err
	}

	s := &shopper{popup: popup, cart: cart, effects: effects, lastUsed: now}
	h.shoppers[sessionID] = s
	return s, nil
}

// shopperCount reports how many MCP sessions hold a popup.
func (h *Handler) shopperCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.shoppers)
}
