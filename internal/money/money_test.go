package money

import (
	"testing"
)

func TestParseMinorUnits(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int64
	}{
		{"integer string", "8900", 8900},
		{"zero", "0", 0},
		{"empty string", "", 0},
		{"large value", "123456789", 123456789},
		{"negative", "-500", -500},
		{"invalid string", "abc", 0},
		{"with decimal (truncates)", "100.99", 100},
		{"whitespace only", "   ", 0},
		{"surrounding whitespace", " 1999 ", 1999},
		{"leading zeros", "007", 7},
		{"explicit plus", "+25", 25},
		{"exponent keeps leading integer", "1e3", 1},
		{"trailing garbage", "12abc", 12},
		{"NaN", "NaN", 0},
		{"infinity", "Infinity", 0},
		{"negative inf", "-Inf", 0},
		{"sign only", "-", 0},
		{"leading dot", ".5", 0},
		{"overflow", "99999999999999999999", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseMinorUnits(tt.input)
			if got != tt.want {
				t.Errorf("ParseMinorUnits(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatterFallback(t *testing.T) {
	tests := []struct {
		name     string
		currency string
		cents    int64
		want     string
	}{
		{"no currency", "", 1999, "19.99"},
		{"with currency", "USD", 1999, "19.99 USD"},
		{"zero", "", 0, "0.00"},
		{"single cent", "", 1, "0.01"},
		{"whole amount", "EUR", 4500, "45.00 EUR"},
		{"large", "", 123456789, "1234567.89"},
		{"negative", "", -250, "-2.50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Formatter{Currency: tt.currency}
			if got := f.Format(tt.cents); got != tt.want {
				t.Errorf("Format(%d) = %q, want %q", tt.cents, got, tt.want)
			}
		})
	}
}

func TestFormatterMalformedInputIsZero(t *testing.T) {
	f := Formatter{}
	if got := f.Format(ParseMinorUnits("not-a-price")); got != "0.00" {
		t.Errorf("Format(malformed) = %q, want 0.00", got)
	}
}

func TestFormatterPlatformWins(t *testing.T) {
	var called int64
	f := Formatter{
		Currency: "USD",
		Platform: func(cents int64) string {
			called = cents
			return "platform"
		},
	}

	if got := f.Format(1999); got != "platform" {
		t.Errorf("Format() = %q, want platform", got)
	}
	if called != 1999 {
		t.Errorf("platform formatter got %d, want 1999", called)
	}
}

func TestNewFormatter(t *testing.T) {
	f := NewFormatter(" usd ", "")
	if f.Currency != "USD" {
		t.Errorf("Currency = %q, want USD", f.Currency)
	}
	if f.Platform != nil {
		t.Error("Platform should be nil without a money format")
	}

	f = NewFormatter("USD", "${{amount}}")
	if got := f.Format(1999); got != "$19.99" {
		t.Errorf("Format() = %q, want $19.99", got)
	}
}

func TestTemplateFormatter(t *testing.T) {
	tests := []struct {
		name     string
		template string
		cents    int64
		want     string
	}{
		{"amount", "${{amount}}", 123456, "$1,234.56"},
		{"amount with spaces", "{{ amount }} USD", 1999, "19.99 USD"},
		{"no decimals", "{{amount_no_decimals}} kr", 123456, "1,235 kr"},
		{"comma separator", "€{{amount_with_comma_separator}}", 123456, "€1.234,56"},
		{"no decimals comma", "{{amount_no_decimals_with_comma_separator}} ₫", 1234500, "12.345 ₫"},
		{"apostrophe", "CHF {{amount_with_apostrophe_separator}}", 123456789, "CHF 1'234'567.89"},
		{"small amount", "${{amount}}", 5, "$0.05"},
		{"million", "${{amount}}", 100000000, "$1,000,000.00"},
		{"negative", "${{amount}}", -123456, "$-1,234.56"},
		{"unknown placeholder", "{{price}}", 1999, "19.99"},
		{"no placeholder", "free", 1999, "free"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TemplateFormatter(tt.template)(tt.cents)
			if got != tt.want {
				t.Errorf("TemplateFormatter(%q)(%d) = %q, want %q", tt.template, tt.cents, got, tt.want)
			}
		})
	}
}
