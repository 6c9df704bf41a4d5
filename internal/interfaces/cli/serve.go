package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/turtacn/MultiNLU/internal/bootstrap"
	"github.com/turtacn/MultiNLU/internal/config"
	"github.com/turtacn/MultiNLU/internal/infrastructure/monitoring/logging"
)

var (
	serveHTTPPort int
	serveGRPCPort int
)

// NewServeCmd runs the MultiNLU server in the foreground.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MultiNLU server",
		Long: "Load every configured locale in the background and serve the parse API.\n" +
			"SIGINT or SIGTERM drains in-flight requests and stops the server.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			cfg, err := cliCtx.LoadConfig()
			if err != nil {
				return err
			}
			if serveHTTPPort > 0 {
				cfg.Server.HTTP.Port = serveHTTPPort
			}
			if serveGRPCPort > 0 {
				cfg.Server.GRPC.Enabled = true
				cfg.Server.GRPC.Port = serveGRPCPort
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return Serve(ctx, cfg, cliCtx.ConfigPath())
		},
	}
	cmd.Flags().IntVar(&serveHTTPPort, "http-port", 0, "HTTP port (overrides config)")
	cmd.Flags().IntVar(&serveGRPCPort, "grpc-port", 0, "gRPC health port; enables gRPC (overrides config)")
	return cmd
}

// Serve builds the server logger from cfg, runs the server until ctx ends
// and, when configPath is set, applies log level changes made to the file.
func Serve(ctx context.Context, cfg *config.Config, configPath string) error {
	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger = logger.Named("multinlu")
	logging.SetDefault(logger)

	if configPath != "" {
		config.Watch(configPath, func(next *config.Config) {
			if next.Log.Level != logging.CurrentLevel() {
				logging.SetLevel(next.Log.Level)
				logger.Info("log level changed", logging.String("level", logging.CurrentLevel()))
			}
		}, func(err error) {
			logger.Warn("ignoring invalid configuration change", logging.Err(err))
		})
	}

	app, err := bootstrap.New(ctx, cfg, logger, Version)
	if err != nil {
		logger.Error("startup failed", logging.Err(err))
		return err
	}
	err = app.Run(ctx)
	if err != nil {
		logger.Error("server stopped with error", logging.Err(err))
		return err
	}
	logger.Info("server stopped")
	return nil
}

//Personal.AI order the ending
