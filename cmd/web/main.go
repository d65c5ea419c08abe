package main

import (
	"fmt"
	"net"
	"os"

	"github.com/de-tools/revenue-atlas/pkg/runtime/app"
	"github.com/de-tools/revenue-atlas/pkg/server"
	"github.com/de-tools/revenue-atlas/pkg/services/config"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var cfgPath string

func main() {
	var rootCmd = &cobra.Command{
		Use:   "web",
		Short: "Start the web server for Revenue Atlas",
		RunE:  runServer,
	}

	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", "",
		"Path to the settings file (defaults and REVENUE_ATLAS_* variables when empty)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Error loading .env file: %v\n", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx := logger.WithContext(cmd.Context())

	settings, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	a, err := app.New(ctx, settings, app.Options{CacheReports: true})
	if err != nil {
		return fmt.Errorf("failed to initialize revenue atlas: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close warehouse connection")
		}
	}()

	host := os.Getenv("SERVER_HOST")
	port := os.Getenv("SERVER_PORT")

	if host == "" || port == "" {
		return fmt.Errorf("missing SERVER_HOST or SERVER_PORT in the environment or .env file")
	}

	addr := net.JoinHostPort(host, port)
	return server.NewWebAPI(server.Config{
		Addr: addr,
		Dependencies: server.Dependencies{
			Reports: a.Reports,
			Logger:  logger,
		},
	}).Start()
}
