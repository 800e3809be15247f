package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KaramelBytes/csvinsight-cli/internal/pipeline"
	"github.com/KaramelBytes/csvinsight-cli/internal/server"
	"github.com/KaramelBytes/csvinsight-cli/internal/session"
	"github.com/spf13/cobra"
)

var (
	serveAddr     string
	serveProvider string
	serveModel    string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve dataset sessions over HTTP",
	Long: `Starts an HTTP API: POST /sessions uploads a CSV (body, ?name=), POST /sessions/{id}/questions
asks a question, DELETE /sessions/{id} drops the session. Prometheus metrics are on /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, runtimeOptions{ProviderFlag: serveProvider, ModelFlag: serveModel}, slog.LevelInfo)
		if err != nil {
			return err
		}
		addr := serveAddr
		if addr == "" {
			addr = a.cfg.ListenAddr
		}
		srv := &http.Server{
			Addr:              addr,
			Handler:           server.NewHandler(appSessions{a}, a.registry, a.log),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			a.log.Info("listening", "addr", addr, "provider", a.provider, "model", a.model)
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			_ = a.Close(context.Background())
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("listen %s: %w", addr, err)
		case <-ctx.Done():
		}

		a.log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.log.Warn("shutdown", "error", err)
		}
		return a.Close(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config listen_addr)")
	serveCmd.Flags().StringVar(&serveProvider, "provider", "", "completion provider: openai|openrouter|ollama (overrides config)")
	serveCmd.Flags().StringVarP(&serveModel, "model", "m", "", "model name (overrides config)")
}

// appSessions exposes the app's sessions with completion hints on Ask.
type appSessions struct {
	*app
}

func (s appSessions) Create(ctx context.Context, name string, raw []byte) (*session.Session, error) {
	return s.sessions.Create(ctx, name, raw)
}

func (s appSessions) Get(id string) (*session.Session, error) { return s.sessions.Get(id) }

func (s appSessions) List() []session.Summary { return s.sessions.List() }

func (s appSessions) Ask(ctx context.Context, id, question string) (*pipeline.Result, error) {
	return s.app.ask(ctx, id, question)
}

func (s appSessions) Delete(ctx context.Context, id string) error {
	return s.sessions.Delete(ctx, id)
}
