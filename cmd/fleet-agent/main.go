// Command fleet-agent is the node agent: it dials the frontend, answers
// telemetry requests, and bridges a terminal session (spec.md §4.4).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/dalkeith-r/fleetdash/internal/agentsession"
	"github.com/dalkeith-r/fleetdash/internal/config"
	"github.com/dalkeith-r/fleetdash/internal/logging"
)

func main() {
	root := &cobra.Command{
		Use:   "fleet-agent",
		Short: "fleetdash node agent",
		RunE:  run,
	}
	root.Flags().String("config", "", "path to agent config YAML")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadAgentConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logging.Init(cfg.LogLevel, cfg.LogFile); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	if cfg.Nickname == "" {
		if hostname, err := os.Hostname(); err == nil {
			cfg.Nickname = hostname
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logging.Info("fleet-agent starting", "frontend_addr", cfg.FrontendAddr, "nickname", cfg.Nickname)
	agentsession.New(cfg).Run(ctx)
	return nil
}
