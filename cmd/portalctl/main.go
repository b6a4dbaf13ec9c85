package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"eportfolio/backend/internal/config"
	"eportfolio/backend/internal/portal/session"

	"github.com/spf13/cobra"
)

// app is the per-invocation client state shared by every command.
type app struct {
	cfg    config.ClientConfig
	logger *slog.Logger
	files  *session.FileStore
	store  *session.Store
}

func (a *app) init(cfg config.ClientConfig, stderr io.Writer) error {
	a.cfg = cfg
	a.logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: config.ParseLogLevel(cfg.LogLevel)}))
	a.files = session.NewFileStore(cfg.SessionFile)
	a.store = session.NewStore(
		session.NewClient(cfg.APIURL, cfg.Timeout),
		a.files,
		session.WithLogger(a.logger),
	)
	if err := a.store.Restore(); err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	a.logger.Debug("client ready", "api", cfg.APIURL, "session_file", cfg.SessionFile)
	return nil
}

func newRootCmd() *cobra.Command {
	var (
		apiURL      string
		sessionFile string
	)
	a := &app{}

	root := &cobra.Command{
		Use:   "portalctl",
		Short: "Command-line client for the e-portfolio portal",
		Long: `portalctl signs in to the e-portfolio API, keeps the session on disk
and shows which dashboard views the signed-in role may open.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadClient()
			if err != nil {
				return err
			}
			if apiURL != "" {
				cfg.APIURL = strings.TrimRight(apiURL, "/")
			}
			if sessionFile != "" {
				cfg.SessionFile = sessionFile
			}
			return a.init(cfg, cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().StringVar(&apiURL, "api-url", "", "API base URL (overrides PORTAL_API_URL)")
	root.PersistentFlags().StringVar(&sessionFile, "session-file", "", "session file (overrides PORTAL_SESSION_FILE)")

	root.AddCommand(
		loginCmd(a),
		logoutCmd(a),
		whoamiCmd(a),
		profileCmd(a),
		openCmd(a),
		hashPasswordCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
