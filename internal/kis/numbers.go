package kis

import (
	"bytes"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"kis-gateway/internal/errors"
)

// amount is a venue numeric field. The venue sends numbers as strings;
// an empty string or null means zero.
type amount decimal.Decimal

func (a *amount) UnmarshalJSON(b []byte) error {
	t := bytes.TrimSpace(b)
	s := string(t)
	if len(t) > 0 && t[0] == '"' {
		if err := json.Unmarshal(t, &s); err != nil {
			return errors.NewMalformedError("numeric field", err)
		}
	}
	s = strings.TrimSpace(s)
	if s == "" || s == "null" {
		*a = amount(decimal.Zero)
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return errors.NewMalformedError(fmt.Sprintf("non-numeric value %q", s), err)
	}
	*a = amount(d)
	return nil
}

func (a amount) dec() decimal.Decimal {
	return decimal.Decimal(a)
}

// sumOf adds up values.
func sumOf(values []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

func qtyString(q int64) string {
	return fmt.Sprintf("%d", q)
}
