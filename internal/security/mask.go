package security

import (
	"strings"
)

// sensitiveHeaders are request headers that carry secrets.
var sensitiveHeaders = map[string]bool{
	"authorization": true,
	"appkey":        true,
	"appsecret":     true,
	"hashkey":       true,
}

// MaskCredential masks a credential value for logging.
func MaskCredential(value string) string {
	if len(value) == 0 {
		return ""
	}
	if len(value) <= 4 {
		return strings.Repeat("*", len(value))
	}
	if len(value) <= 8 {
		return value[:2] + strings.Repeat("*", len(value)-2)
	}
	return value[:4] + strings.Repeat("*", len(value)-8) + value[len(value)-4:]
}

// MaskAccount keeps only the last two digits of the account prefix visible.
func MaskAccount(accountID string) string {
	if len(accountID) <= 2 {
		return accountID
	}
	return strings.Repeat("*", len(accountID)-2) + accountID[len(accountID)-2:]
}

// MaskHeaders returns a copy of headers with secret values masked.
func MaskHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		if sensitiveHeaders[strings.ToLower(k)] {
			out[k] = MaskCredential(v)
			continue
		}
		out[k] = v
	}
	return out
}
