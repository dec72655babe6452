package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agaaaptr/open-socmed/configs"
	"github.com/agaaaptr/open-socmed/internal/client"
	"github.com/agaaaptr/open-socmed/internal/feed"
	"github.com/agaaaptr/open-socmed/internal/shared/jwt"
	"github.com/agaaaptr/open-socmed/internal/shared/logx"
	"github.com/agaaaptr/open-socmed/internal/tui"
)

var (
	configPath string
	baseURL    string
	token      string
	verbose    bool

	cfg    configs.ClientConfig
	logger *zap.Logger
	api    *client.Client
)

var rootCmd = &cobra.Command{
	Use:   "cirqle",
	Short: "Cirqle in your terminal",
	Long: `cirqle reads and writes your Cirqle feed.

Run without arguments to open the interactive feed. Posts you write, edit
or delete show up at once and are rolled back if the server refuses them.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = configs.LoadClientConfig(configPath)
		if err != nil {
			return err
		}
		if baseURL != "" {
			cfg.BaseURL = baseURL
		}
		if token != "" {
			cfg.Token = token
		}
		if verbose {
			cfg.LogLevel = "debug"
		}

		logger, err = logx.NewTo(cfg.LogLevel, "json", cfg.LogFile)
		if err != nil {
			return err
		}
		tokens, err := tokenSource(cfg)
		if err != nil {
			return err
		}
		api = client.New(cfg.BaseURL, tokens, client.WithLogger(logger))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runInteractive,
}

func tokenSource(c configs.ClientConfig) (client.TokenSource, error) {
	switch {
	case c.Token != "":
		return client.StaticToken(c.Token), nil
	case c.DevSecret != "" && c.UserID != "":
		return &jwt.DevTokenSource{Secret: []byte(c.DevSecret), UserID: c.UserID}, nil
	}
	return nil, errors.New("no credentials: set token in the config file or CIRQLE_TOKEN")
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runInteractive(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	viewer, err := api.Profile(ctx)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	logger.Info("starting feed", zap.String("user_id", viewer.ID), zap.String("base_url", cfg.BaseURL))

	m := tui.New(ctx, tui.Config{
		Backend: api,
		Viewer:  viewer,
		Log:     logger,
		Metrics: feed.NewMetrics(nil),
		Timeout: cfg.Timeout,
	})

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	final, err := p.Run()
	if fm, ok := final.(tui.Model); ok {
		fm.Close()
	} else {
		m.Close()
	}
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "cirqle.yaml", "Client config file")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "API base URL (overrides the config file)")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "Bearer token (overrides the config file)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level")

	rootCmd.AddCommand(postCmd, editCmd, deleteCmd, timelineCmd, followCmd, unfollowCmd, notificationsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
