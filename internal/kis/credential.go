// Package kis is the session-and-routing core of the gateway: token
// lifecycle, hashkey signing, envelope classification and the asset-class
// endpoints built on top of the routing table.
package kis

import (
	"fmt"
	"strings"

	"kis-gateway/internal/errors"
	"kis-gateway/internal/models"
	"kis-gateway/internal/security"
)

// Credential is the venue identity of one client. It cannot be changed
// after NewCredential returns.
type Credential struct {
	appKey        string
	appSecret     string
	accountPrefix string
	accountSuffix string
	environment   models.Environment
}

// NewCredential validates and splits a 10-digit account number into its
// 8-digit account and 2-digit product code.
func NewCredential(appKey, appSecret, accountNo string, env models.Environment) (Credential, error) {
	if strings.TrimSpace(appKey) == "" {
		return Credential{}, errors.NewValidationError("app_key", "", "must not be empty")
	}
	if strings.TrimSpace(appSecret) == "" {
		return Credential{}, errors.NewValidationError("app_secret", "", "must not be empty")
	}
	if !env.Valid() {
		return Credential{}, errors.NewValidationError("environment", env, "must be live or paper")
	}

	digits := strings.ReplaceAll(strings.TrimSpace(accountNo), "-", "")
	if len(digits) != 10 {
		return Credential{}, errors.NewValidationError("account_no", security.MaskAccount(digits), "must have 10 digits")
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return Credential{}, errors.NewValidationError("account_no", security.MaskAccount(digits), "must be numeric")
		}
	}

	return Credential{
		appKey:        appKey,
		appSecret:     appSecret,
		accountPrefix: digits[:8],
		accountSuffix: digits[8:],
		environment:   env,
	}, nil
}

func (c Credential) AppKey() string { return c.appKey }
func (c Credential) AppSecret() string { return c.appSecret }
func (c Credential) AccountPrefix() string { return c.accountPrefix }
func (c Credential) AccountSuffix() string { return c.accountSuffix }
func (c Credential) Environment() models.Environment { return c.environment }

// AccountID is the display form "CANO-ACNT_PRDT_CD".
func (c Credential) AccountID() string {
	return c.accountPrefix + "-" + c.accountSuffix
}

// MatchesAccount reports whether id names this credential's account,
// in either dashed or plain 10-digit form.
func (c Credential) MatchesAccount(id string) bool {
	return strings.ReplaceAll(id, "-", "") == c.accountPrefix+c.accountSuffix
}

// String never includes the secret.
func (c Credential) String() string {
	return fmt.Sprintf("Credential{app_key=%s account=%s env=%s}",
		security.MaskCredential(c.appKey), security.MaskAccount(c.AccountID()), c.environment)
}
