package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// currencyDecimals is the number of minor-unit digits shown per currency.
var currencyDecimals = map[string]int32{
	"KRW": 0,
	"JPY": 0,
	"VND": 0,
	"USD": 2,
	"HKD": 2,
	"CNY": 2,
}

var currencySymbols = map[string]string{
	"KRW": "₩",
	"USD": "$",
}

// FormatAmount formats an amount with thousands separators and the
// currency's usual precision: ₩1,234,567, $1,234.50 or 1,234.50 HKD.
func FormatAmount(amount decimal.Decimal, currency string) string {
	places, ok := currencyDecimals[currency]
	if !ok {
		places = 2
	}

	negative := amount.IsNegative()
	str := amount.Abs().StringFixed(places)
	intPart, decPart, _ := strings.Cut(str, ".")

	formatted := groupThousands(intPart)
	if decPart != "" {
		formatted += "." + decPart
	}

	if symbol, ok := currencySymbols[currency]; ok {
		formatted = symbol + formatted
	} else if currency != "" {
		formatted += " " + currency
	}
	if negative {
		formatted = "-" + formatted
	}
	return formatted
}

// groupThousands inserts a comma every three digits from the right.
func groupThousands(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}
	var b strings.Builder
	head := n % 3
	if head > 0 {
		b.WriteString(s[:head])
	}
	for i := head; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatSigned formats an amount with an explicit + for gains.
func FormatSigned(amount decimal.Decimal, currency string) string {
	formatted := FormatAmount(amount, currency)
	if amount.IsPositive() {
		return "+" + formatted
	}
	return formatted
}

// FormatPercent formats a percentage with sign.
func FormatPercent(value decimal.Decimal) string {
	sign := ""
	if value.IsPositive() {
		sign = "+"
	}
	return sign + value.StringFixed(2) + "%"
}

// FormatQuantity formats a quantity with thousands separators, keeping
// any fractional part the venue reported.
func FormatQuantity(qty decimal.Decimal) string {
	negative := qty.IsNegative()
	intPart, decPart, _ := strings.Cut(qty.Abs().String(), ".")
	out := groupThousands(intPart)
	if decPart != "" {
		out += "." + decPart
	}
	if negative {
		out = "-" + out
	}
	return out
}

// FormatPrice formats a price without trailing zeros.
func FormatPrice(price decimal.Decimal) string {
	if price.IsInteger() {
		return FormatQuantity(price)
	}
	return price.String()
}

var kst = loadKST()

func loadKST() *time.Location {
	if loc, err := time.LoadLocation("Asia/Seoul"); err == nil {
		return loc
	}
	return time.FixedZone("KST", 9*60*60)
}

// FormatDateTime formats a datetime in Korea Standard Time.
func FormatDateTime(t time.Time) string {
	return t.In(kst).Format("2006-01-02 15:04:05")
}

// FormatVenueTime turns the venue's HHMMSS order time into HH:MM:SS.
func FormatVenueTime(hhmmss string) string {
	if len(hhmmss) != 6 {
		return hhmmss
	}
	return hhmmss[0:2] + ":" + hhmmss[2:4] + ":" + hhmmss[4:6]
}

// FormatDuration formats a duration in human-readable form.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	} else if d < 24*time.Hour {
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	return fmt.Sprintf("%dd %dh", days, hours)
}

// displayWidth is the number of terminal columns s occupies. Hangul and
// other East Asian wide characters take two columns.
func displayWidth(s string) int {
	w := 0
	for _, r := range s {
		if isWide(r) {
			w += 2
		} else {
			w++
		}
	}
	return w
}

func isWide(r rune) bool {
	switch {
	case r >= 0x1100 && r <= 0x115F, // Hangul Jamo
		r >= 0x2E80 && r <= 0xA4CF, // CJK
		r >= 0xAC00 && r <= 0xD7A3, // Hangul syllables
		r >= 0xF900 && r <= 0xFAFF,
		r >= 0xFF00 && r <= 0xFF60, // fullwidth forms
		r >= 0xFFE0 && r <= 0xFFE6:
		return true
	}
	return false
}

// TruncateString truncates s to at most maxWidth columns with an ellipsis.
func TruncateString(s string, maxWidth int) string {
	if displayWidth(s) <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		maxWidth = 3
	}
	var b strings.Builder
	w := 0
	for _, r := range s {
		rw := 1
		if isWide(r) {
			rw = 2
		}
		if w+rw > maxWidth-3 {
			break
		}
		b.WriteRune(r)
		w += rw
	}
	return b.String() + "..."
}
