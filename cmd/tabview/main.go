// CLAUDE:SUMMARY CLI entry point for tabview: browser-backed tab shell with HTTP API, MCP tools, session restore and store retention.
// Command tabview runs a tab shell over a managed Chrome instance.
//
// Usage:
//
//	tabview -config tabview.yaml            # views and settings from YAML
//	tabview -url https://example.com        # open one view with defaults
//	tabview -config tabview.yaml -prune     # apply store retention and exit
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/tabview/browser"
	"github.com/hazyhaar/tabview/dbopen"
	"github.com/hazyhaar/tabview/shell"
	"github.com/hazyhaar/tabview/shield"
	"github.com/hazyhaar/tabview/thumbnail"
	"github.com/hazyhaar/tabview/trace"
)

const pruneInterval = time.Hour

func main() {
	configPath := flag.String("config", "", "path to tabview.yaml config file")
	singleURL := flag.String("url", "", "open a view at this URL")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	prune := flag.Bool("prune", false, "prune old thumbnails and diagnostics, then exit")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := shell.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = shell.LoadConfigFile(*configPath); err != nil {
			logger.Error("tabview: load config", "error", err)
			os.Exit(1)
		}
	}
	if *addr != "" {
		cfg.HTTP.Addr = *addr
	}
	if *singleURL != "" {
		cfg.Views = append(cfg.Views, *singleURL)
	}

	var err error
	if *prune {
		err = runPrune(ctx, logger, cfg)
	} else {
		err = run(ctx, logger, cfg)
	}
	if err != nil {
		logger.Error("tabview: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, cfg *shell.Config) error {
	st, err := openStore(logger, cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	mgr := browser.NewManager(browser.Config{
		RemoteURL:        cfg.Browser.Remote,
		MemoryLimit:      cfg.Browser.MemoryLimit,
		RecycleInterval:  cfg.Browser.RecycleInterval,
		ResourceBlocking: cfg.Browser.ResourceBlocking,
		Stealth:          browser.ParseStealth(cfg.Browser.Stealth),
		XvfbDisplay:      cfg.Browser.XvfbDisplay,
		ViewportWidth:    cfg.Browser.Viewport.Width,
		ViewportHeight:   cfg.Browser.Viewport.Height,
		CaptureFormat:    cfg.Thumbnail.Format,
		Logger:           logger,
	})
	if err := mgr.Start(ctx); err != nil {
		return fmt.Errorf("start browser: %w", err)
	}
	defer mgr.Close()

	win := shell.New(ctx, shell.Options{
		Factory: mgr.Factory(),
		Store:   st,
		Acquirer: thumbnail.New(thumbnail.Config{
			Store:          st,
			Width:          cfg.Thumbnail.Width,
			Height:         cfg.Thumbnail.Height,
			PixelRatio:     cfg.Thumbnail.PixelRatio,
			CaptureTimeout: cfg.Thumbnail.CaptureTimeout,
			Logger:         logger,
		}),
		SaveOnClose: cfg.Session.SaveOnClose,
		Logger:      logger,
	})
	mgr.SetRecycleCallback(&browser.RecycleCallback{
		AfterRecycle: win.Remount,
	})

	if cfg.Session.Restore {
		if _, err := win.RestoreSession(ctx); err != nil {
			logger.Warn("tabview: restore session", "error", err)
		}
	}
	for _, uri := range cfg.Views {
		if _, err := win.Open(ctx, uri); err != nil {
			logger.Warn("tabview: open view", "uri", uri, "error", err)
		}
	}

	mcpSrv := mcp.NewServer(&mcp.Implementation{Name: "tabview", Version: "1.0.0"}, nil)
	win.RegisterMCP(mcpSrv)

	limiter := shield.NewRateLimiter(shield.RateLimitConfig{
		MaxRequests: max(cfg.HTTP.RateLimit, 0),
		Window:      time.Minute,
		Logger:      logger,
	})
	limiter.StartGC(ctx)

	r := shell.NewRouter(win, logger, limiter.Middleware)
	r.Handle("/mcp", mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return mcpSrv }, nil))

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("tabview: listening", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	go pruneLoop(ctx, logger, st, cfg.Store)

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		runErr = fmt.Errorf("http: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("tabview: http shutdown", "error", err)
	}
	if err := win.Close(shutdownCtx); err != nil {
		logger.Warn("tabview: close window", "error", err)
	}
	return runErr
}

func runPrune(ctx context.Context, logger *slog.Logger, cfg *shell.Config) error {
	st, err := openStore(logger, cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	return pruneOnce(ctx, logger, st, cfg.Store)
}

func pruneLoop(ctx context.Context, logger *slog.Logger, st *shell.Store, cfg shell.StoreConfig) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := pruneOnce(ctx, logger, st, cfg); err != nil {
				logger.Warn("tabview: prune", "error", err)
			}
		}
	}
}

func pruneOnce(ctx context.Context, logger *slog.Logger, st *shell.Store, cfg shell.StoreConfig) error {
	thumbs, err := st.PruneThumbnails(ctx, cfg.ThumbnailMaxAge)
	if err != nil {
		return fmt.Errorf("prune thumbnails: %w", err)
	}
	diags, err := st.Diagnostics().Cleanup(ctx, cfg.DiagnosticsAge)
	if err != nil {
		return fmt.Errorf("prune diagnostics: %w", err)
	}
	logger.Info("tabview: pruned", "thumbnails", thumbs, "diagnostics", diags)
	return nil
}

// openStore opens the store, through the tracing driver when configured.
func openStore(logger *slog.Logger, cfg shell.StoreConfig) (*shell.Store, error) {
	var opts []dbopen.Option
	if cfg.Trace {
		trace.SetLogger(logger)
		opts = append(opts, dbopen.WithDriver(trace.DriverName))
	}
	return shell.OpenStore(cfg.DBPath, opts...)
}
