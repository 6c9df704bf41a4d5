// Command apiserver runs the MultiNLU server without the rest of the CLI.
// It is the container entrypoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/turtacn/MultiNLU/internal/config"
	"github.com/turtacn/MultiNLU/internal/interfaces/cli"
)

var version = "dev"

func main() {
	configPath := flag.String("config", os.Getenv("MULTINLU_CONFIG"), "path to configuration file (default: MULTINLU_* variables only)")
	httpPort := flag.Int("http-port", 0, "HTTP server port (overrides config)")
	grpcPort := flag.Int("grpc-port", 0, "gRPC health port; enables gRPC (overrides config)")
	flag.Parse()

	cfg, err := config.LoadOrEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(2)
	}
	if *httpPort > 0 {
		cfg.Server.HTTP.Port = *httpPort
	}
	if *grpcPort > 0 {
		cfg.Server.GRPC.Enabled = true
		cfg.Server.GRPC.Port = *grpcPort
	}

	cli.Version = version
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Serve(ctx, cfg, *configPath); err != nil {
		stop()
		os.Exit(1)
	}
}

//Personal.AI order the ending
