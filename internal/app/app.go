// Package app assembles the metadata resolver, media service, and HTTP
// boundary into a runnable server.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lvcoi/tubeproxy/internal/config"
	"github.com/lvcoi/tubeproxy/internal/httpapi"
	"github.com/lvcoi/tubeproxy/internal/media"
	"github.com/lvcoi/tubeproxy/internal/meta"
)

const shutdownGrace = 10 * time.Second

// App owns the wired components and the HTTP server lifecycle.
type App struct {
	cfg      config.Config
	log      *logrus.Logger
	resolver *meta.Resolver
	media    *media.Service
	handler  http.Handler
}

// New builds the full component graph from cfg. Nothing touches the
// network until Run or the handler is invoked.
func New(cfg config.Config) *App {
	log := NewLogger(cfg)

	clientOpts := []meta.ClientOption{meta.WithTimeout(cfg.Timeout)}
	if cfg.APIBaseURL != "" {
		clientOpts = append(clientOpts, meta.WithBaseURL(cfg.APIBaseURL))
	}
	client := meta.NewClient(cfg.APIKey, clientOpts...)
	resolver := meta.NewResolver(client, log)
	mediaSvc := media.NewService(log)
	api := httpapi.NewHandler(resolver, mediaSvc, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/youtube", api.Metadata)
	mux.HandleFunc("/api/youtube/download", api.Download)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return &App{
		cfg:      cfg,
		log:      log,
		resolver: resolver,
		media:    mediaSvc,
		handler:  httpapi.CORS(mux),
	}
}

// NewLogger builds a logrus logger from the config's level and format.
func NewLogger(cfg config.Config) *logrus.Logger {
	log := logrus.New()
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	if cfg.LogJSON {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}

// Logger exposes the app's logger for callers that log around Run.
func (a *App) Logger() *logrus.Logger { return a.log }

// Resolver exposes the metadata resolver for one-shot CLI use.
func (a *App) Resolver() *meta.Resolver { return a.resolver }

// Handler returns the root handler with CORS applied, for tests and
// embedding.
func (a *App) Handler() http.Handler { return a.handler }

// Run serves HTTP until ctx is canceled, then drains in-flight
// requests before returning.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    a.cfg.ListenAddr,
		Handler: a.handler,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.WithField("addr", a.cfg.ListenAddr).Info("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}
