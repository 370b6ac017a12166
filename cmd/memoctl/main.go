// Command memoctl drives the memorandum workflow against a running API: the
// employee self-service flow, the administrative review flow and a developer
// token helper.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	memorandumClient "github.com/cmlabs-hris/hris-memorandum-go/internal/client/memorandum"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/config"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/domain/memorandum"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/pkg/clock"
	"github.com/spf13/cobra"
)

const (
	Version = "0.1.0"
	appName = "memoctl"
)

// app is what every command works with. Tests fill store and policy up front
// and skip the client setup.
type app struct {
	store  memorandum.Store
	policy memorandum.Policy
	memo   config.MemorandumConfig
	out    io.Writer

	apiURL     string
	token      string
	logLevel   string
	jsonOutput bool
}

func main() {
	if err := rootCmd(&app{}).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Operate the disciplinary memorandum workflow",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.out = cmd.OutOrStdout()
			configureLogging(a.logLevel)
			if a.store != nil {
				return nil
			}
			return a.connect()
		},
	}

	cmd.PersistentFlags().StringVar(&a.apiURL, "api-url", "", "API base URL (default $MEMO_API_URL)")
	cmd.PersistentFlags().StringVar(&a.token, "token", "", "Access token (default $MEMO_API_TOKEN)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "Print JSON instead of tables")

	cmd.AddCommand(
		listCmd(a),
		justifyCmd(a),
		adminCmd(a),
		showCmd(a),
		documentCmd(a),
		tokenCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			PersistentPreRun: func(cmd *cobra.Command, args []string) {},
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
			},
		},
	)
	return cmd
}

// connect builds the REST store from the environment and the flags.
func (a *app) connect() error {
	clientCfg, memo, err := config.LoadClient()
	if err != nil {
		return err
	}
	if a.apiURL != "" {
		clientCfg.BaseURL = a.apiURL
	}
	if a.token != "" {
		clientCfg.Token = a.token
	}

	a.memo = memo
	a.store = memorandumClient.NewClient(clientCfg, memo)
	a.policy = memorandum.NewPolicy(memorandum.NewDeadlineCalculator(clock.Real(), memo.Location()))
	return nil
}

func configureLogging(level string) {
	l := slog.LevelWarn
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "info":
		l = slog.LevelInfo
	case "error":
		l = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
