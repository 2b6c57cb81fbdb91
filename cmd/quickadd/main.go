// quickadd drives the quick-add popup against a live storefront from the
// terminal. Each command opens its own cart session, so a run's cart is
// separate from the browser's.
//
// Commands:
//
//	quickadd show <handle>
//	quickadd add <handle> [-o Name=Value]...
//	quickadd render <handle>
//	quickadd shell <handle>
//
// Examples:
//
//	quickadd --store https://shop.example.com show classic-hoodie
//	quickadd add classic-hoodie -o Color=Navy -o Size=M
//	quickadd render classic-hoodie > popup.html
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"quickadd/internal/catalog"
	"quickadd/internal/config"
	"quickadd/internal/quickadd"
	"quickadd/internal/storefront"
	"quickadd/internal/transport"
)

// Global flags (apply to all commands)
type globalFlags struct {
	store       string
	fingerprint string
	timeout     time.Duration
	noAddOn     bool
	noColor     bool
	verbose     bool
}

// ANSI color codes
var (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

func init() {
	if os.Getenv("NO_COLOR") != "" {
		disableColors()
	}
}

func disableColors() {
	colorReset, colorRed, colorGreen, colorYellow = "", "", "", ""
	colorCyan, colorGray, colorBold = "", "", ""
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s✗ %v%s\n", colorRed, err, colorReset)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var flags globalFlags
	a := &app{}

	root := &cobra.Command{
		Use:   "quickadd",
		Short: "Quick add to cart from the terminal",
		Long: "quickadd opens a product's quick-add popup, resolves the variant for the\n" +
			"chosen options and adds it, plus the bundled add-on, to a fresh cart.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if flags.noColor {
				disableColors()
			}
			return a.init(cmd.Context(), flags, cmd.ErrOrStderr())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.store, "store", "", "storefront URL (overrides STORE_URL)")
	pf.StringVar(&flags.fingerprint, "fingerprint", "", "TLS fingerprint: chrome, firefox or none (overrides TLS_FINGERPRINT)")
	pf.DurationVar(&flags.timeout, "timeout", 0, "storefront request timeout (overrides REQUEST_TIMEOUT)")
	pf.BoolVar(&flags.noAddOn, "no-addon", false, "skip the bundled add-on")
	pf.BoolVar(&flags.noColor, "no-color", false, "disable colored output")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "log storefront requests")

	root.AddCommand(
		newShowCmd(a),
		newAddCmd(a),
		newRenderCmd(a),
		newShellCmd(a),
	)
	return root
}

// app is the wiring shared by every command.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	client   *storefront.Client
	products *catalog.Cache
}

func (a *app) init(ctx context.Context, flags globalFlags, stderr io.Writer) error {
	if flags.store != "" {
		os.Setenv("STORE_URL", flags.store)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if flags.fingerprint != "" {
		if cfg.TLSFingerprint, err = transport.ParseFingerprint(flags.fingerprint); err != nil {
			return err
		}
	}
	if flags.timeout > 0 {
		cfg.RequestTimeout = flags.timeout
	}
	if flags.noAddOn {
		cfg.Merchant.AddOnDisabled = true
	}

	level := slog.LevelWarn
	if flags.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	a.client, err = storefront.New(storefront.Config{
		StoreURL:    cfg.Merchant.StoreURL,
		Timeout:     cfg.RequestTimeout,
		Fingerprint: cfg.TLSFingerprint,
		Logger:      a.logger,
	})
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.products = catalog.New(a.client, a.logger)
	return nil
}

// newPopup opens a cart session and a popup bound to it. Alerts and
// navigation are printed to w.
func (a *app) newPopup(w io.Writer) (*quickadd.Popup, *storefront.Session, error) {
	session, err := a.client.NewSession()
	if err != nil {
		return nil, nil, err
	}
	popup, err := quickadd.New(quickadd.Config{
		Products:  a.products,
		Cart:      session,
		Formatter: a.cfg.Formatter(),
		AddOn:     a.cfg.AddOnVariant(),
		CartURL:   session.CartURL(),
		Effects:   terminalEffects{w: w},
		Logger:    a.logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return popup, session, nil
}

// terminalEffects prints popup alerts and navigations.
type terminalEffects struct {
	w io.Writer
}

func (e terminalEffects) Alert(message string) {
	printWarning(e.w, "%s", message)
}

func (e terminalEffects) Navigate(url string) {
	printInfo(e.w, "navigate to %s", url)
}
