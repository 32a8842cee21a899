package cli

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
)

var groupedDigits = regexp.MustCompile(`^\d{1,3}(,\d{3})*$`)

// Property: won amounts use Western thousands grouping and round-trip to the
// same integer value.
func TestProperty_KRWFormatting(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())
	properties := gopter.NewProperties(parameters)

	properties.Property("grouped with ₩ prefix", prop.ForAll(
		func(amount int64) bool {
			formatted := FormatAmount(decimal.NewFromInt(amount), "KRW")
			body := strings.TrimPrefix(formatted, "-")
			if (amount < 0) != strings.HasPrefix(formatted, "-") {
				t.Logf("sign mismatch for %d: %s", amount, formatted)
				return false
			}
			if !strings.HasPrefix(body, "₩") {
				t.Logf("missing ₩ for %d: %s", amount, formatted)
				return false
			}
			return groupedDigits.MatchString(strings.TrimPrefix(body, "₩"))
		},
		gen.Int64Range(-1e15, 1e15),
	))

	properties.Property("value preserved", prop.ForAll(
		func(amount int64) bool {
			formatted := FormatAmount(decimal.NewFromInt(amount), "KRW")
			parsed, err := decimal.NewFromString(strings.NewReplacer("₩", "", ",", "").Replace(formatted))
			if err != nil {
				t.Logf("unparseable %s: %v", formatted, err)
				return false
			}
			return parsed.Equal(decimal.NewFromInt(amount))
		},
		gen.Int64Range(-1e15, 1e15),
	))

	properties.Property("dollar cents preserved", prop.ForAll(
		func(cents int64) bool {
			amount := decimal.New(cents, -2)
			formatted := FormatAmount(amount, "USD")
			parsed, err := decimal.NewFromString(strings.NewReplacer("$", "", ",", "").Replace(formatted))
			if err != nil {
				return false
			}
			_, frac, _ := strings.Cut(formatted, ".")
			return parsed.Equal(amount) && len(frac) == 2
		},
		gen.Int64Range(-1e12, 1e12),
	))

	properties.TestingRun(t)
}

func TestFormatAmountExamples(t *testing.T) {
	tests := []struct {
		amount   string
		currency string
		want     string
	}{
		{"0", "KRW", "₩0"},
		{"999", "KRW", "₩999"},
		{"1000", "KRW", "₩1,000"},
		{"10700000", "KRW", "₩10,700,000"},
		{"-1234567", "KRW", "-₩1,234,567"},
		{"70000.4", "KRW", "₩70,000"},
		{"1234.5", "USD", "$1,234.50"},
		{"88.1", "HKD", "88.10 HKD"},
		{"1500", "JPY", "1,500 JPY"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := FormatAmount(decimal.RequireFromString(tt.amount), tt.currency)
			if got != tt.want {
				t.Errorf("FormatAmount(%s, %s) = %s, want %s", tt.amount, tt.currency, got, tt.want)
			}
		})
	}
}

func TestFormatPercentExamples(t *testing.T) {
	tests := []struct {
		value string
		want  string
	}{
		{"0", "0.00%"},
		{"1.5", "+1.50%"},
		{"-2.5", "-2.50%"},
		{"7.6923", "+7.69%"},
	}

	for _, tt := range tests {
		got := FormatPercent(decimal.RequireFromString(tt.value))
		if got != tt.want {
			t.Errorf("FormatPercent(%s) = %s, want %s", tt.value, got, tt.want)
		}
	}
}

func TestDisplayWidth(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"005930", 6},
		{"삼성전자", 8},
		{"KODEX 200", 9},
		{"삼성SDI", 7},
	}

	for _, tt := range tests {
		if got := displayWidth(tt.in); got != tt.want {
			t.Errorf("displayWidth(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestTruncateString(t *testing.T) {
	if got := TruncateString("short", 10); got != "short" {
		t.Errorf("TruncateString kept = %q", got)
	}
	if got := TruncateString("abcdefghij", 6); got != "abc..." {
		t.Errorf("TruncateString ascii = %q, want abc...", got)
	}
	// Wide runes never split across the limit.
	got := TruncateString("삼성전자우선주", 8)
	if got != "삼성..." {
		t.Errorf("TruncateString hangul = %q, want 삼성...", got)
	}
	if displayWidth(got) > 8 {
		t.Errorf("TruncateString width %d exceeds 8", displayWidth(got))
	}
}

func TestFormatVenueTime(t *testing.T) {
	if got := FormatVenueTime("121052"); got != "12:10:52" {
		t.Errorf("FormatVenueTime = %q", got)
	}
	if got := FormatVenueTime("12"); got != "12" {
		t.Errorf("FormatVenueTime short = %q", got)
	}
}
