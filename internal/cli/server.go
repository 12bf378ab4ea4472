package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"act-academy/internal/logging"
	transport "act-academy/internal/transport/http"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand that hosts quiz sessions over websockets.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Host quiz sessions for a browser page over websockets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := loadDeps(ctx, configPath)
	if err != nil {
		return err
	}
	defer d.close()

	listenPort := portFlag
	if listenPort == "" {
		listenPort = d.cfg.Server.Port
	}
	if listenPort == "" {
		listenPort = "8080"
	}

	sessions := transport.NewWSHandler(d.service)
	defer sessions.Close()

	server := &http.Server{
		Addr:         ":" + listenPort,
		Handler:      newRouter(d, sessions),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logging.Startup("academy session host on :%s (backend %s)", listenPort, d.cfg.API.BaseURL)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err, failed := <-serveErr:
		if failed {
			logging.Error("failed to start server: %v", err)
			return err
		}
		return nil
	case <-ctx.Done():
		logging.Shutdown("shutting down session host...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// newRouter mounts the websocket endpoint and a health check that includes the redis cache when configured.
func newRouter(d *deps, sessions *transport.WSHandler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if d.redis != nil {
			if err := d.redis.Ping(r.Context()).Err(); err != nil {
				logging.Error("health check: redis: %v", err)
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", sessions.ServeWS)
	return mux
}
