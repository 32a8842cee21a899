package cli

import (
	"bufio"
	"io"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"kis-gateway/internal/errors"
	"kis-gateway/internal/models"
	"kis-gateway/internal/plugin"
)

// addPluginCommands adds commands that drive the plugin contract.
func addPluginCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "plugin",
		Short: "Run plugin contract operations",
		Long: `Run operations of the broker plugin contract.

Each operation takes a JSON request and produces a JSON response. Failures
of the operation are reported inside the response's "error" object.`,
	}
	cmd.AddCommand(newPluginOpsCmd())
	cmd.AddCommand(newPluginCallCmd(app))
	cmd.AddCommand(newPluginServeCmd(app))
	rootCmd.AddCommand(cmd)
}

func newPluginOpsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ops",
		Short: "List plugin operations",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(plugin.Operations())
				return
			}
			for _, op := range plugin.Operations() {
				output.Println(op)
			}
		},
	}
}

// newHost creates a plugin host sharing the app's transport, ledger and
// client options.
func (a *App) newHost() (*plugin.Host, error) {
	ledger, err := a.Ledger()
	if err != nil {
		return nil, err
	}
	return plugin.NewHost(plugin.Config{
		Transport:     a.VenueTransport(),
		Ledger:        ledger,
		Logger:        a.Logger,
		ClientOptions: a.ClientOptions(),
	})
}

// initFromConfig runs the initialize operation with the configured
// credential.
func (a *App) initFromConfig(cmd *cobra.Command, host *plugin.Host) error {
	if err := a.Config.ValidateCredentials(); err != nil {
		return err
	}
	env, err := a.Environment()
	if err != nil {
		return err
	}
	paper := env == models.Paper
	payload, err := json.Marshal(plugin.InitializeRequest{
		AppKey:    a.Config.Credentials.AppKey,
		AppSecret: a.Config.Credentials.AppSecret,
		AccountNo: a.Config.Credentials.AccountNo,
		IsPaper:   &paper,
	})
	if err != nil {
		return err
	}
	raw, err := host.Call(cmd.Context(), plugin.OpInitialize, payload)
	if err != nil {
		return err
	}
	var resp plugin.InitializeResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return err
	}
	if !resp.Success {
		msg := "no reason given"
		if resp.Error != nil {
			msg = resp.Error.Message
		}
		return errors.New("plugin initialize failed: " + msg)
	}
	return nil
}

func newPluginCallCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call <operation>",
		Short: "Run one operation with a request read from stdin",
		Long: `Run one operation with a request read from stdin.

Unless the operation is initialize, the host is first initialized with
the configured credential.`,
		Example: `  kisgw plugin call get_accounts < /dev/null
  echo '{"account_id":"5012345601"}' | kisgw plugin call get_positions
  echo '{"order":{"symbol_id":"005930","side":"buy","order_type":"limit","quantity":"1","limit_price":"70000"}}' | kisgw plugin call submit_order`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			op := args[0]
			payload, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return err
			}

			host, err := app.newHost()
			if err != nil {
				return err
			}
			defer host.Close()

			if op != plugin.OpInitialize {
				if err := app.initFromConfig(cmd, host); err != nil {
					return err
				}
			}

			resp, err := host.Call(ctx, op, payload)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(append(resp, '\n'))
			return err
		},
	}
	return cmd
}

// pluginRequest is one line of the serve protocol.
type pluginRequest struct {
	Op      string          `json:"op"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type pluginResponse struct {
	Op     string          `json:"op"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

func newPluginServeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve operations as JSON lines on stdin and stdout",
		Long: `Serve plugin operations as JSON lines.

Each input line is {"op": "<operation>", "payload": {...}} and produces one
output line {"op": "<operation>", "result": {...}}. The host starts
uninitialized; send initialize first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			host, err := app.newHost()
			if err != nil {
				return err
			}
			defer host.Close()
			return servePlugin(cmd, host)
		},
	}
}

func servePlugin(cmd *cobra.Command, host *plugin.Host) error {
	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	enc := json.NewEncoder(cmd.OutOrStdout())

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var req pluginRequest
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			if err := enc.Encode(pluginResponse{Error: "invalid request: " + err.Error()}); err != nil {
				return err
			}
			continue
		}

		resp := pluginResponse{Op: req.Op}
		ctx, cancel := commandContext(cmd)
		result, err := host.Call(ctx, req.Op, req.Payload)
		cancel()
		if err != nil {
			resp.Error = err.Error()
		} else {
			resp.Result = result
		}
		if err := enc.Encode(resp); err != nil {
			return err
		}
	}
	return scanner.Err()
}
