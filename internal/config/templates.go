package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# KIS Gateway Configuration

[venue]
# Trading environment: "live" or "paper"
environment = "paper"

[transport]
# Per-call timeout
timeout = "30s"
# Retries for idempotent (GET) calls only
max_retries = 2
# Consecutive failures before the circuit opens
breaker_threshold = 5
# How long the circuit stays open
breaker_cooldown = "30s"

[logging]
# debug, info, warn, error
level = "info"
# Also write rotated log files
file = false

[security]
# Block every order, revise and cancel call
read_only_mode = false
# Write an audit trail of token and order events
audit_enabled = true

[store]
# Order ledger location. ":memory:" keeps nothing across restarts.
path = ":memory:"

[metrics]
enabled = false
`

const credentialsTemplate = `# KIS Open API credentials
# Keep this file private (chmod 600)

[kis]
app_key = ""
app_secret = ""
# 10 digits: 8-digit account + 2-digit product code
account_no = ""
`

func createTemplate(configDir, name, content string, perm os.FileMode) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, name)
	if err := os.WriteFile(path, []byte(content), perm); err != nil {
		return fmt.Errorf("writing %s template: %w", name, err)
	}

	return nil
}
