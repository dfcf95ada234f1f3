// Package main provides the agent gateway CLI.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentgateway/agent-gateway/internal/client"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "agent-gateway",
		Short: "Agent Gateway CLI - route and dispatch queries",
		Long: `Agent Gateway CLI talks to a running gateway server.

Run 'agent-gateway route "your query"' to see where a query goes.
Run 'agent-gateway query "your query"' to route and execute it.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().String("server", "http://localhost:8080", "gateway server URL")
	rootCmd.PersistentFlags().Duration("timeout", 30*time.Second, "request timeout")
	rootCmd.PersistentFlags().Bool("json", false, "emit raw JSON output")
	rootCmd.PersistentFlags().String("api-key", os.Getenv("AGW_API_KEY"), "API key for a protected gateway")

	rootCmd.AddCommand(
		routeCmd(),
		queryCmd(),
		statsCmd(),
		clearCacheCmd(),
		healthCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newClient builds a client from the global flags.
func newClient(cmd *cobra.Command) *client.Client {
	serverURL, _ := cmd.Flags().GetString("server")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	apiKey, _ := cmd.Flags().GetString("api-key")
	return client.New(client.Config{BaseURL: serverURL, Timeout: timeout, APIKey: apiKey})
}

// emitJSON prints v as indented JSON when --json is set. Returns true
// when it printed.
func emitJSON(cmd *cobra.Command, v any) bool {
	asJSON, _ := cmd.Flags().GetBool("json")
	if !asJSON {
		return false
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "encoding output: %v\n", err)
		return true
	}
	fmt.Println(string(data))
	return true
}

func routeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "route [query]",
		Short: "Show the routing decision for a query without executing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(cmd)
			d, err := c.Route(context.Background(), args[0])
			if err != nil {
				return err
			}
			if emitJSON(cmd, d) {
				return nil
			}

			fmt.Printf("Service:    %s\n", d.Service)
			fmt.Printf("Intent:     %s\n", d.Intent)
			fmt.Printf("Confidence: %.2f\n", d.Confidence)
			fmt.Printf("Path:       %s\n", d.Path)
			if len(d.Secondary) > 0 {
				fmt.Printf("Secondary:  %v\n", d.Secondary)
			}
			if d.Reasoning != "" {
				fmt.Printf("Reasoning:  %s\n", d.Reasoning)
			}
			return nil
		},
	}
}

func queryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query [query]",
		Short: "Route a query and dispatch it to the chosen backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(cmd)
			res, err := c.Query(context.Background(), args[0])
			if err != nil {
				return err
			}
			if emitJSON(cmd, res) {
				return nil
			}

			fmt.Printf("Routed to %s (%s, confidence %.2f)\n",
				res.Decision.Service, res.Decision.Path, res.Decision.Confidence)
			if res.Message != "" {
				fmt.Println(res.Message)
				return nil
			}

			pretty, err := json.MarshalIndent(res.Result, "", "  ")
			if err != nil {
				return fmt.Errorf("decoding result: %w", err)
			}
			fmt.Println(string(pretty))
			return nil
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show gateway routing statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(cmd)
			stats, err := c.Stats(context.Background())
			if err != nil {
				return err
			}
			if emitJSON(cmd, stats) {
				return nil
			}

			fmt.Printf("Total queries:  %d\n", stats.TotalQueries)
			fmt.Printf("Keyword routes: %d (%.1f%%)\n", stats.KeywordRoutes, stats.KeywordRate*100)
			fmt.Printf("LLM routes:     %d (%.1f%%)\n", stats.LLMRoutes, stats.LLMRate*100)
			fmt.Printf("Cache hits:     %d (%.1f%%)\n", stats.CacheHits, stats.CacheHitRate*100)
			fmt.Printf("Cache size:     %d\n", stats.CacheSize)
			fmt.Printf("LLM enabled:    %v\n", stats.LLMEnabled)
			return nil
		},
	}
}

func clearCacheCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-cache",
		Short: "Clear the gateway's decision cache and reset counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(cmd)
			if err := c.ClearCache(context.Background()); err != nil {
				return err
			}
			fmt.Println("Cache cleared")
			return nil
		},
	}
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show gateway and upstream service health",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(cmd)
			h, err := c.Health(context.Background())
			if err != nil {
				// A degraded gateway responds 503 with a body; surface
				// what we can.
				if apiErr, ok := err.(*client.APIError); ok {
					fmt.Printf("Gateway: %s\n", apiErr.Message)
					return nil
				}
				return err
			}
			if emitJSON(cmd, h) {
				return nil
			}

			fmt.Printf("Gateway: %s (version %s)\n", h.Status, h.Version)
			for _, u := range h.Upstreams {
				line := fmt.Sprintf("  %-10s %s (%dms)", u.Service, u.Status, u.LatencyMS)
				if u.Error != "" {
					line += " - " + u.Error
				}
				fmt.Println(line)
			}
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("agent-gateway %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
		},
	}
}
