// Package money turns minor-unit amounts (cents) into display strings.
// Storefront product endpoints report every price as an integer count of
// minor units, so nothing here ever parses decimal major-unit input.
package money

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseMinorUnits converts string amounts already in minor units to int64.
// Only the leading integer is read, so a fractional or exponent tail is
// dropped. Malformed or out-of-range input yields 0 so a bad price never
// blocks rendering.
// Examples: "8900" → 8900, "100.99" → 100, "1e3" → 1, "NaN" → 0, "abc" → 0
func ParseMinorUnits(s string) int64 {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// FormatFunc formats an amount given in minor units.
type FormatFunc func(cents int64) string

// Formatter renders prices for the popup.
// Platform, when set, is the storefront's own formatter and always wins.
// Otherwise amounts are shown with two decimals and the currency code appended.
type Formatter struct {
	Currency string
	Platform FormatFunc
}

// Format returns the display string for cents.
// Examples (no platform, Currency "USD"): 1999 → "19.99 USD", 0 → "0.00 USD"
func (f Formatter) Format(cents int64) string {
	if f.Platform != nil {
		return f.Platform(cents)
	}
	amount := decimal.New(cents, -2).StringFixed(2)
	if f.Currency == "" {
		return amount
	}
	return amount + " " + f.Currency
}

// NewFormatter builds a Formatter from shop settings.
// moneyFormat is a Shopify money_format template such as "${{amount}}";
// empty means no platform formatter.
func NewFormatter(currency, moneyFormat string) Formatter {
	f := Formatter{Currency: strings.ToUpper(strings.TrimSpace(currency))}
	if moneyFormat != "" {
		f.Platform = TemplateFormatter(moneyFormat)
	}
	return f
}

var placeholderPattern = regexp.MustCompile(`\{\{\s*(\w+)\s*\}\}`)

// TemplateFormatter returns a FormatFunc that fills a Shopify money_format
// template. Supported placeholders:
//
//	{{amount}}                                  1,234.56
//	{{amount_no_decimals}}                      1,235
//	{{amount_with_comma_separator}}             1.234,56
//	{{amount_no_decimals_with_comma_separator}} 1.235
//	{{amount_with_apostrophe_separator}}        1'234.56
//
// Unknown placeholders render like {{amount}}.
func TemplateFormatter(template string) FormatFunc {
	return func(cents int64) string {
		return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
			name := placeholderPattern.FindStringSubmatch(match)[1]
			switch name {
			case "amount_no_decimals":
				return withDelimiters(cents, 0, ",", ".")
			case "amount_with_comma_separator":
				return withDelimiters(cents, 2, ".", ",")
			case "amount_no_decimals_with_comma_separator":
				return withDelimiters(cents, 0, ".", ",")
			case "amount_with_apostrophe_separator":
				return withDelimiters(cents, 2, "'", ".")
			default:
				return withDelimiters(cents, 2, ",", ".")
			}
		})
	}
}

// withDelimiters renders cents as major units rounded to precision places,
// grouping the integer part in threes.
func withDelimiters(cents int64, precision int32, thousands, decimalSep string) string {
	fixed := decimal.New(cents, -2).StringFixed(precision)

	intPart, fracPart, _ := strings.Cut(fixed, ".")
	sign := ""
	if strings.HasPrefix(intPart, "-") {
		sign, intPart = "-", intPart[1:]
	}

	var b strings.Builder
	b.WriteString(sign)
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteString(thousands)
		}
		b.WriteRune(r)
	}
	if fracPart != "" {
		b.WriteString(decimalSep)
		b.WriteString(fracPart)
	}
	return b.String()
}
