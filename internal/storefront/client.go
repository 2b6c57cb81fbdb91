// Package storefront talks to a Shopify-style storefront's AJAX endpoints:
// product JSON, cart add and cart read.
package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/dunglas/httpsfv"
	"golang.org/x/net/publicsuffix"

	"quickadd/internal/model"
	"quickadd/internal/transport"
)

// userAgent identifies this client to storefronts.
// Storefront CDNs challenge requests without one.
const userAgent = "QuickAdd/1.0"

// Request priorities (RFC 9218). Product JSON is fetched incrementally at
// normal urgency; cart mutations are what the shopper is waiting on.
var (
	productPriority = priority(1, true)
	cartPriority    = priority(0, false)
)

// Config holds storefront client configuration.
type Config struct {
	StoreURL    string
	Timeout     time.Duration
	Fingerprint transport.Fingerprint
	Logger      *slog.Logger

	// Transport overrides the fingerprint transport. Tests set this.
	Transport http.RoundTripper
}

// Client fetches products. It carries no shopper identity; cart calls go
// through a Session.
type Client struct {
	storeURL   string
	transport  http.RoundTripper
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a storefront client.
func New(cfg Config) (*Client, error) {
	if cfg.StoreURL == "" {
		return nil, fmt.Errorf("store URL is required")
	}
	u, err := url.Parse(cfg.StoreURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid store URL %q", cfg.StoreURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rt := cfg.Transport
	if rt == nil {
		rt = transport.New(cfg.Fingerprint, timeout)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		storeURL:   strings.TrimSuffix(cfg.StoreURL, "/"),
		transport:  rt,
		timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout, Transport: rt},
		logger:     logger,
	}, nil
}

// StoreURL returns the normalized storefront base URL.
func (c *Client) StoreURL() string {
	return c.storeURL
}

// FetchProduct loads GET /products/{handle}.js.
// Every failure is a fetch error: transport errors, non-2xx answers and
// payloads that don't decode.
func (c *Client) FetchProduct(ctx context.Context, handle string) (*model.Product, error) {
	if strings.TrimSpace(handle) == "" {
		return nil, model.NewValidationError("handle", "must not be empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.storeURL+"/products/"+url.PathEscape(handle)+".js", nil)
	if err != nil {
		return nil, model.NewFetchError(handle, 0, fmt.Errorf("creating request: %w", err))
	}
	setStorefrontHeaders(req, productPriority)

	resp, body, err := c.do(c.httpClient, req)
	if err != nil {
		return nil, model.NewFetchError(handle, 0, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, model.NewFetchError(handle, resp.StatusCode, describeError(resp.StatusCode, body))
	}

	var product model.Product
	if err := json.Unmarshal(body, &product); err != nil {
		return nil, model.NewFetchError(handle, resp.StatusCode, fmt.Errorf("parsing product: %w", err))
	}
	if product.Handle == "" {
		product.Handle = handle
	}
	return &product, nil
}

// NewSession starts a shopper session. The storefront identifies the cart by
// cookie, so every session owns its own jar.
func (c *Client) NewSession() (*Session, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}
	return &Session{
		client:     c,
		httpClient: &http.Client{Timeout: c.timeout, Transport: c.transport, Jar: jar},
		jar:        jar,
	}, nil
}

// Session is one shopper's view of the storefront cart.
type Session struct {
	client     *Client
	httpClient *http.Client
	jar        http.CookieJar
}

// AddToCart posts one line to /cart/add.js.
func (s *Session) AddToCart(ctx context.Context, id model.ID, quantity int) error {
	payload, err := json.Marshal(CartAddRequest{ID: id, Quantity: quantity})
	if err != nil {
		return model.NewAddToCartError(id.String(), fmt.Errorf("marshaling request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.client.storeURL+"/cart/add.js", bytes.NewReader(payload))
	if err != nil {
		return model.NewAddToCartError(id.String(), fmt.Errorf("creating request: %w", err))
	}
	setStorefrontHeaders(req, cartPriority)

	resp, body, err := s.client.do(s.httpClient, req)
	if err != nil {
		return model.NewAddToCartError(id.String(), err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return model.NewAddToCartError(id.String(), describeError(resp.StatusCode, body))
	}
	return nil
}

// Cart reads GET /cart.js for this session.
func (s *Session) Cart(ctx context.Context) (*Cart, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.client.storeURL+"/cart.js", nil)
	if err != nil {
		return nil, fmt.Errorf("creating cart request: %w", err)
	}
	setStorefrontHeaders(req, cartPriority)

	resp, body, err := s.client.do(s.httpClient, req)
	if err != nil {
		return nil, model.NewUpstreamError("storefront", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, model.NewUpstreamError("storefront", describeError(resp.StatusCode, body))
	}

	var cart Cart
	if err := json.Unmarshal(body, &cart); err != nil {
		return nil, model.NewUpstreamError("storefront", fmt.Errorf("parsing cart: %w", err))
	}
	return &cart, nil
}

// CartURL is where the shopper lands after a successful add.
func (s *Session) CartURL() string {
	return s.client.storeURL + "/cart"
}

// Cookies returns the session cookies for the storefront, e.g. to hand the
// cart over to a browser.
func (s *Session) Cookies() []*http.Cookie {
	u, err := url.Parse(s.client.storeURL)
	if err != nil {
		return nil
	}
	return s.jar.Cookies(u)
}

// do executes req and reads the whole body.
func (c *Client) do(hc *http.Client, req *http.Request) (*http.Response, []byte, error) {
	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("reading response: %w", err)
	}

	c.logger.Debug("storefront request",
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)
	return resp, body, nil
}

// setStorefrontHeaders sets the headers the AJAX endpoints expect.
func setStorefrontHeaders(req *http.Request, prio string) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	if req.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prio != "" {
		req.Header.Set("Priority", prio)
	}
}

// describeError turns a non-2xx storefront answer into an error.
func describeError(statusCode int, body []byte) error {
	var se errorResponse
	json.Unmarshal(body, &se) // Best effort parse

	msg := se.Description
	if msg == "" {
		msg = se.Message
	}
	if msg == "" {
		return fmt.Errorf("status %d", statusCode)
	}
	return fmt.Errorf("status %d: %s", statusCode, msg)
}

// priority serializes an RFC 9218 Priority header value.
func priority(urgency int64, incremental bool) string {
	dict := httpsfv.NewDictionary()
	dict.Add("u", httpsfv.NewItem(urgency))
	if incremental {
		dict.Add("i", httpsfv.NewItem(true))
	}
	s, err := httpsfv.Marshal(dict)
	if err != nil {
		return ""
	}
	return s
}
