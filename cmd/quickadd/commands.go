package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"quickadd/internal/quickadd"
	"quickadd/internal/render"
	"quickadd/internal/storefront"
)

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <handle>",
		Short: "Open the popup and print its state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			popup, _, err := a.newPopup(w)
			if err != nil {
				return err
			}
			if err := popup.Dispatch(cmd.Context(), quickadd.CTAClick{Handle: args[0]}); err != nil {
				return err
			}
			printView(w, popup.View(), popup.Resolution())
			return nil
		},
	}
}

func newAddCmd(a *app) *cobra.Command {
	var options []string

	cmd := &cobra.Command{
		Use:   "add <handle>",
		Short: "Select options and add the resolved variant to a new cart",
		Example: "  quickadd add classic-hoodie -o Color=Navy -o Size=M\n" +
			"  quickadd add classic-hoodie   # keep the preselected variant",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			w := cmd.OutOrStdout()

			popup, session, err := a.newPopup(w)
			if err != nil {
				return err
			}
			if err := popup.Dispatch(ctx, quickadd.CTAClick{Handle: args[0]}); err != nil {
				return err
			}
			for _, opt := range options {
				name, value, ok := strings.Cut(opt, "=")
				if !ok {
					return fmt.Errorf("option %q: want Name=Value", opt)
				}
				if err := popup.Select(strings.TrimSpace(name), strings.TrimSpace(value)); err != nil {
					return err
				}
			}

			view := popup.View()
			printView(w, view, popup.Resolution())
			if err := popup.Dispatch(ctx, quickadd.SubmitClick{}); err != nil {
				return err
			}
			printSuccess(w, "added variant %s", view.VariantID)
			return printCart(ctx, w, session, a.cfg.Formatter())
		},
	}

	cmd.Flags().StringArrayVarP(&options, "option", "o", nil, "option selection as Name=Value (repeatable)")
	return cmd
}

func newRenderCmd(a *app) *cobra.Command {
	var picks []string

	cmd := &cobra.Command{
		Use:   "render <handle>",
		Short: "Print the popup body HTML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			product, err := a.products.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			var selected []quickadd.Pick
			for _, p := range picks {
				name, value, ok := strings.Cut(p, "=")
				if !ok {
					return fmt.Errorf("option %q: want Name=Value", p)
				}
				pos := 0
				for i, opt := range product.Options {
					if strings.EqualFold(opt.Name, strings.TrimSpace(name)) {
						pos = i + 1
					}
				}
				if pos == 0 {
					return fmt.Errorf("%w: %q", quickadd.ErrUnknownOption, name)
				}
				selected = append(selected, quickadd.Pick{Position: pos, Value: strings.TrimSpace(value)})
			}

			view, _, err := quickadd.Preview(product, a.cfg.Formatter(), selected)
			if err != nil {
				return err
			}
			return render.Popup(cmd.OutOrStdout(), view)
		},
	}

	cmd.Flags().StringArrayVarP(&picks, "option", "o", nil, "option selection as Name=Value (repeatable)")
	return cmd
}

func newShellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell <handle>",
		Short: "Drive the popup interactively",
		Long: "Commands:\n" +
			"  select Name=Value   pick an option value\n" +
			"  toggle Name         open or close a dropdown\n" +
			"  submit              add to cart\n" +
			"  close               close the popup\n" +
			"  open <handle>       open another product\n" +
			"  state               print the popup\n" +
			"  cart                print the cart\n" +
			"  quit                exit",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			popup, session, err := a.newPopup(w)
			if err != nil {
				return err
			}
			sh := &shell{popup: popup, session: session, app: a, w: w}

			if err := sh.exec(cmd.Context(), "open "+args[0]); err != nil {
				printError(w, "%v", err)
			}
			return sh.run(cmd.Context(), cmd.InOrStdin())
		},
	}
}

// shell is the interactive loop behind `quickadd shell`.
type shell struct {
	popup   *quickadd.Popup
	session *storefront.Session
	app     *app
	w       io.Writer
}

func (s *shell) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprintf(s.w, "%squickadd>%s ", colorBold, colorReset)
		if !scanner.Scan() {
			fmt.Fprintln(s.w)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return nil
		}
		if err := s.exec(ctx, line); err != nil {
			printError(s.w, "%v", err)
		}
	}
}

func (s *shell) exec(ctx context.Context, line string) error {
	verb, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch verb {
	case "open":
		if rest == "" {
			return fmt.Errorf("usage: open <handle>")
		}
		if err := s.popup.Dispatch(ctx, quickadd.CTAClick{Handle: rest}); err != nil {
			return err
		}
	case "select":
		name, value, ok := strings.Cut(rest, "=")
		if !ok {
			return fmt.Errorf("usage: select Name=Value")
		}
		if err := s.popup.Select(strings.TrimSpace(name), strings.TrimSpace(value)); err != nil {
			return err
		}
	case "toggle":
		pos := 0
		for _, o := range s.popup.View().Options {
			if strings.EqualFold(o.Name, rest) {
				pos = o.Position
			}
		}
		if pos == 0 {
			return fmt.Errorf("%w: %q", quickadd.ErrUnknownOption, rest)
		}
		if err := s.popup.Dispatch(ctx, quickadd.DropdownToggle{Position: pos}); err != nil {
			return err
		}
	case "submit":
		if err := s.popup.Dispatch(ctx, quickadd.SubmitClick{}); err != nil {
			return err
		}
		printView(s.w, s.popup.View(), s.popup.Resolution())
		return printCart(ctx, s.w, s.session, s.app.cfg.Formatter())
	case "close":
		return s.popup.Dispatch(ctx, quickadd.Close{})
	case "state":
	case "cart":
		return printCart(ctx, s.w, s.session, s.app.cfg.Formatter())
	default:
		return fmt.Errorf("unknown command %q", verb)
	}

	printView(s.w, s.popup.View(), s.popup.Resolution())
	return nil
}
