package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nfrund/livechat/internal/app"
	"github.com/nfrund/livechat/internal/config"
	"github.com/nfrund/livechat/internal/logging"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chat server",
	Long: `Start the HTTP server. Configuration is read from the environment and
an optional .env file in the working directory.

Examples:
  livechat serve
  livechat serve --addr :9000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			return err
		}
		if serveAddr != "" {
			cfg.Addr = serveAddr
		}

		slog.SetDefault(logging.New(cfg.LogFormat, cfg.LogLevel))

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := app.New(cfg, afero.NewOsFs()).Run(ctx, cfg.Addr); err != nil {
			slog.Error("Server stopped with error", "error", err)
			return err
		}
		slog.Info("Server stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address, overrides APP_ADDR")
	rootCmd.AddCommand(serveCmd)
}
