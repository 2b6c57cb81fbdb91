package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"quickadd/internal/quickadd"
	"quickadd/internal/storefront"
)

// printView prints the popup the way a shopper would see it.
func printView(w io.Writer, v quickadd.View, r quickadd.Resolution) {
	if !v.Visible {
		printInfo(w, "popup closed")
		return
	}

	fmt.Fprintf(w, "\n%s%s%s\n", colorBold, v.Title, colorReset)
	fmt.Fprintf(w, "  Price: %s%s%s\n", colorGreen, v.PriceText, colorReset)
	if v.ImageURL != "" {
		fmt.Fprintf(w, "  Image: %s%s%s\n", colorGray, v.ImageURL, colorReset)
	}

	for _, o := range v.Options {
		values := make([]string, len(o.Values))
		for i, val := range o.Values {
			if val == o.Selected {
				values[i] = fmt.Sprintf("%s[%s]%s", colorCyan, val, colorReset)
			} else {
				values[i] = val
			}
		}
		label := o.Name
		if !o.Swatch {
			label = fmt.Sprintf("%s (%s)", o.Name, o.Label)
			if o.Open {
				label += " ▾"
			}
		}
		fmt.Fprintf(w, "  %s: %s\n", label, strings.Join(values, " "))
	}

	switch {
	case v.Submitting:
		fmt.Fprintf(w, "  %sAdding…%s\n", colorYellow, colorReset)
	case v.SubmitEnabled:
		fmt.Fprintf(w, "  Variant: %s%s%s %s(add to cart enabled)%s\n",
			colorCyan, v.VariantID, colorReset, colorGreen, colorReset)
	case v.VariantID != "":
		fmt.Fprintf(w, "  Variant: %s%s%s %s(sold out)%s\n",
			colorCyan, v.VariantID, colorReset, colorRed, colorReset)
	default:
		fmt.Fprintf(w, "  Variant: %s%s%s\n", colorGray, r.Kind, colorReset)
	}
}

// printCart prints the session's storefront cart.
func printCart(ctx context.Context, w io.Writer, session *storefront.Session, fm quickadd.Formatter) error {
	cart, err := session.Cart(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "\n%sCart%s (%d items)\n", colorBold, colorReset, cart.ItemCount)
	for _, line := range cart.Items {
		title := line.Title
		if title == "" {
			title = line.VariantID.String()
		}
		fmt.Fprintf(w, "  %d × %s %s%s%s\n",
			line.Quantity, title, colorGray, fm.Format(int64(line.LinePrice)), colorReset)
	}
	fmt.Fprintf(w, "  Total: %s%s%s\n", colorGreen, fm.Format(int64(cart.TotalPrice)), colorReset)
	printInfo(w, "checkout at %s", session.CartURL())
	return nil
}

func printSuccess(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s✓ %s%s\n", colorGreen, fmt.Sprintf(format, args...), colorReset)
}

func printError(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s✗ %s%s\n", colorRed, fmt.Sprintf(format, args...), colorReset)
}

func printWarning(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s⚠ %s%s\n", colorYellow, fmt.Sprintf(format, args...), colorReset)
}

func printInfo(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s→ %s%s\n", colorGray, fmt.Sprintf(format, args...), colorReset)
}
