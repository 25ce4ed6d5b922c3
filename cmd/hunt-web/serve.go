package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	httpadapter "svw.info/hunt/internal/adapters/http"
	"svw.info/hunt/internal/catalog"
	"svw.info/hunt/internal/config"
	"svw.info/hunt/internal/infrastructure/storage"
	"svw.info/hunt/internal/ports"
	"svw.info/hunt/internal/usecase"
	"svw.info/hunt/internal/validator"
	"svw.info/hunt/web"
)

// statusWriter captures HTTP status and bytes written.
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// requestLogger logs method, path, status, bytes, and duration.
func requestLogger(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)
		logger.Info("http",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", sw.status),
			zap.Int("bytes", sw.bytes),
			zap.Duration("dur", time.Since(start).Round(time.Millisecond)),
		)
	})
}

func openCatalog(cfg config.Config) (*catalog.Catalog, error) {
	if cfg.CatalogPath == "" {
		return catalog.Default(), nil
	}
	c, err := catalog.Open(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", cfg.CatalogPath, err)
	}
	return c, nil
}

// openStorage returns the configured backend and a func releasing it.
func openStorage(cfg config.Config) (ports.Namespaces, func() error, error) {
	noop := func() error { return nil }
	switch strings.ToLower(cfg.Backend) {
	case config.BackendMemory:
		return storage.NewMemory(), noop, nil
	case config.BackendFS:
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, nil, err
		}
		return storage.NewFS(cfg.DataDir), noop, nil
	case config.BackendSQLite:
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, nil, err
		}
		db, err := storage.NewSQLite(filepath.Join(cfg.DataDir, "hunt.db"))
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		return db, db.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", config.ErrUnknownBackend, cfg.Backend)
	}
}

// newService wires catalog, storage and answer checking.
func newService(cfg config.Config, logger *zap.Logger) (*usecase.Service, func() error, error) {
	cat, err := openCatalog(cfg)
	if err != nil {
		return nil, nil, err
	}
	st, closeStorage, err := openStorage(cfg)
	if err != nil {
		return nil, nil, err
	}
	return usecase.NewService(cat, st, validator.New(cfg.StrictAnswers), logger), closeStorage, nil
}

func (a *app) runServe(ctx context.Context) error {
	return serve(ctx, a.cfg, a.logger, nil)
}

// serve runs the HTTP server until ctx is done. When ready is non-nil it
// receives the bound address once the listener is up.
func serve(ctx context.Context, cfg config.Config, logger *zap.Logger, ready chan<- net.Addr) error {
	uc, closeStorage, err := newService(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStorage(); err != nil {
			logger.Warn("closing storage", zap.Error(err))
		}
	}()

	tmpl := web.Templates()
	h := httpadapter.New(uc)
	h.Cookie = cfg.SessionCookie
	h.Templates = tmpl

	// Wire pages and API on one mux
	mux := http.NewServeMux()
	mux.Handle("/static/", web.Static())
	mux.HandleFunc("/", web.Index(tmpl, uc.Catalog.Title()))
	h.Register(mux)

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           requestLogger(logger, mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info("listening",
		zap.String("addr", ln.Addr().String()),
		zap.String("backend", cfg.Backend),
		zap.String("data", cfg.DataDir),
		zap.Int("steps", uc.Catalog.Len()),
	)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	if ready != nil {
		ready <- ln.Addr()
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		logger.Error("server error", zap.Error(err))
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	<-errCh
	logger.Info("server stopped")
	return nil
}
