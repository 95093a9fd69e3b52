package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"

	"github.com/luciancaetano/wsnegotiate"
	"github.com/luciancaetano/wsnegotiate/internal/config"
	"github.com/luciancaetano/wsnegotiate/internal/handshake"
	"github.com/luciancaetano/wsnegotiate/internal/log"
	"github.com/luciancaetano/wsnegotiate/ws"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(v *viper.Viper) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the handshake server",
		Example: `  # Defaults: :3000, /websocket, chat=1 superchat=2, any origin
  wsnegotiate serve

  # Strict RFC checks on another port
  wsnegotiate serve --addr :8080 --strict

  # Reply with the negotiated headers instead of upgrading
  wsnegotiate serve --echo`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadWith(v, configPath)
			if err != nil {
				return err //nolint:wrapcheck // Already descriptive.
			}

			return serve(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "Path to application.yaml (default: ./application.yaml if present)")
	flags.String("addr", "", "Listen address, overrides server.addr")
	flags.Bool("strict", false, "Require Connection: Upgrade and Sec-WebSocket-Version: 13")
	flags.Bool("echo", false, "Answer accepted handshakes with 200 and the echoed headers")
	bindFlags(v, cmd)

	return cmd
}

// bindFlags lets explicitly set flags override file and environment values.
func bindFlags(v *viper.Viper, cmd *cobra.Command) {
	for key, name := range map[string]string{
		"server.addr":      "addr",
		"handshake.strict": "strict",
		"handshake.echo":   "echo",
	} {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			panic(errors.Wrapf(err, "failed to bind flag %v", name))
		}
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	level := cfg.Logger.Level
	if cfg.Server.Development {
		level = "debug"
	}
	if err := log.Setup(cfg.Logger.Encoder, level); err != nil {
		return errors.Wrap(err, "failed to set up logger")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	server := ws.New(serverConfig(cfg))
	if err := server.Start(ctx); err != nil {
		return errors.Wrap(err, "failed to start server")
	}
	log.Info("serving handshakes", "addr", server.Addr(), "path", cfg.Handshake.Path,
		"subprotocols", cfg.Handshake.Subprotocols.Values(), "origins", cfg.Handshake.Origins.Values(),
		"strict", cfg.Handshake.Strict, "echo", cfg.Handshake.Echo)

	wait(ctx)

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	log.Info("shutting down server...")

	return errors.Wrap(server.Stop(stopCtx), "server shutdown failed") //nolint:contextcheck // The parent is done.
}

func wait(ctx context.Context) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-ctx.Done():
	case <-quit:
	}
}

func serverConfig(cfg *config.Config) ws.ServerConfig {
	sc := ws.NewConfig(cfg.Server.Addr, handshake.Config{
		Path:         cfg.Handshake.Path,
		StaticPaths:  cfg.Handshake.StaticPaths,
		Subprotocols: cfg.Handshake.Subprotocols,
		Origins:      cfg.Handshake.Origins,
		Strict:       cfg.Handshake.Strict,
		Echo:         cfg.Handshake.Echo,
	}, &ws.RateLimitConfig{
		RequestsPerSecond: rate.Limit(cfg.RateLimit.RequestsPerSecond),
		Burst:             cfg.RateLimit.Burst,
		Enabled:           cfg.RateLimit.Enabled,
	}, holdSession)
	sc.StaticBody = cfg.Handshake.StaticBody
	sc.ReadHeaderTimeout = cfg.Server.ReadHeaderTimeout

	return sc
}

// holdSession keeps an upgraded connection open until the peer leaves or the
// server stops. Frames are read and dropped.
func holdSession(session wsnegotiate.Session) {
	log.Info("session upgraded", "session_id", session.ID(), "remote_addr", session.RemoteAddr(),
		"subprotocol", session.Subprotocol(), "origin", session.Origin())
	_, err := io.Copy(io.Discard, session.Conn())
	if session.Context().Err() == nil {
		log.Debug("session ended", "session_id", session.ID(), "cause", err)
	}
}
