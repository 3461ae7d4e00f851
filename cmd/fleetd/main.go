// Command fleetd is the frontend: it accepts agent TCP connections on
// backend_port and browser HTTP(S) on http_port (spec.md §6).
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/dalkeith-r/fleetdash/internal/backend"
	"github.com/dalkeith-r/fleetdash/internal/config"
	"github.com/dalkeith-r/fleetdash/internal/httpapi"
	"github.com/dalkeith-r/fleetdash/internal/logging"
	"github.com/dalkeith-r/fleetdash/internal/router"
)

func main() {
	root := &cobra.Command{
		Use:   "fleetd",
		Short: "fleetdash frontend server",
		RunE:  run,
	}
	root.Flags().String("config", "", "path to frontend config YAML")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadFrontendConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logging.Init(cfg.LogLevel, cfg.LogFile); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}

	registry := backend.NewRegistry()
	rt := router.New(registry)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	backendAddr := fmt.Sprintf(":%d", cfg.BackendPort)
	ln, err := net.Listen("tcp", backendAddr)
	if err != nil {
		return fmt.Errorf("listen backend port: %w", err)
	}
	go acceptAgents(ctx, ln, registry)

	httpAddr := fmt.Sprintf(":%d", cfg.HTTPPort)
	httpSrv := &http.Server{Addr: httpAddr, Handler: httpapi.Handler(rt)}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("fleetd listening", "backend_addr", backendAddr, "http_addr", httpAddr)
		if cfg.EnableTLS {
			errCh <- httpSrv.ListenAndServeTLS(cfg.CertPath, cfg.KeyPath)
		} else {
			errCh <- httpSrv.ListenAndServe()
		}
	}()

	select {
	case <-ctx.Done():
		logging.Info("fleetd shutting down")
		ln.Close()
		return httpSrv.Close()
	case err := <-errCh:
		ln.Close()
		return err
	}
}

// acceptAgents runs the backend listener loop: each accepted connection
// performs the handshake and, on success, starts its actor (spec.md §4.4,
// §4.6).
func acceptAgents(ctx context.Context, ln net.Listener, registry *backend.Registry) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logging.Warn("fleetd: accept failed", "err", err)
			continue
		}
		go handleAgentConn(conn, registry)
	}
}

func handleAgentConn(conn net.Conn, registry *backend.Registry) {
	nickname, err := backend.AcceptHandshake(conn)
	if err != nil {
		logging.Warn("fleetd: handshake failed", "addr", conn.RemoteAddr(), "err", err)
		conn.Close()
		return
	}
	backend.Start(conn, backend.CanonicalAddr(conn), nickname, registry)
}
