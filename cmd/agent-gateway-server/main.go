// Package main provides the agent gateway server binary.
// The server routes user queries among the upstream MCP services.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentgateway/agent-gateway/internal/config"
	"github.com/agentgateway/agent-gateway/internal/pkg/logger"
	"github.com/agentgateway/agent-gateway/internal/server"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "agent-gateway-server",
		Short: "Agent Gateway - smart query router for MCP services",
		Long: `Agent Gateway routes natural-language queries to the right backend
MCP service (search, drive, database, rag_pdf) using keyword matching
with an optional LLM fallback for ambiguous queries.

Examples:
  agent-gateway-server                       # Start with defaults
  agent-gateway-server --port 9090           # Custom HTTP port
  agent-gateway-server -c gateway.yaml       # Load a config file`,
		RunE:         runServer,
		SilenceUsage: true,
	}

	// Server flags
	rootCmd.Flags().StringP("config", "c", "", "config file path")
	rootCmd.Flags().BoolP("verbose", "v", false, "verbose logging")
	rootCmd.Flags().IntP("port", "p", 8080, "HTTP server port")
	rootCmd.Flags().String("host", "0.0.0.0", "server host")
	rootCmd.Flags().String("bus", "", "event bus type (memory, kafka)")
	rootCmd.Flags().Bool("no-llm", false, "disable the LLM classifier")

	// Version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("agent-gateway-server %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")
	port, _ := cmd.Flags().GetInt("port")
	host, _ := cmd.Flags().GetString("host")
	busType, _ := cmd.Flags().GetString("bus")
	noLLM, _ := cmd.Flags().GetBool("no-llm")

	// Load config
	appCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Override from flags
	if cmd.Flags().Changed("port") {
		appCfg.Port = port
	}
	if cmd.Flags().Changed("host") {
		appCfg.Host = host
	}
	if busType != "" {
		appCfg.Bus.Type = busType
	}
	if noLLM {
		appCfg.LLM.Enabled = false
	}
	if verbose {
		appCfg.Log.Level = "debug"
	}

	if err := appCfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log := logger.New(appCfg.Log.Level, appCfg.Log.Format)

	log.Info("Starting Agent Gateway",
		"version", version,
		"addr", appCfg.Address(),
		"bus", appCfg.Bus.Type,
		"llm_enabled", appCfg.LLM.Enabled,
	)

	srvCfg := server.DefaultConfig()
	srvCfg.Host = appCfg.Host
	srvCfg.Port = appCfg.Port
	srvCfg.Version = version

	srv, err := server.New(srvCfg, *appCfg, log)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	// Run until signalled.
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigCh:
		log.Info("Received signal, shutting down", "signal", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Stop(ctx)
}
