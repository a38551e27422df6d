// Command formfill fills web forms from a stored profile.
//
// Usage:
//
//	formfill -html form.html [-out filled.html]   # fill a static file
//	formfill -url https://example.com/signup      # fill a live page in Chrome
//	formfill -serve :8088                         # HTTP trigger and profile API
//	formfill -mcp                                 # MCP tools over stdio
//	formfill -import profile.yaml | -clear | -show
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/formfill/autofill"
	"github.com/hazyhaar/formfill/browser"
	"github.com/hazyhaar/formfill/internal/config"
	"github.com/hazyhaar/formfill/kit"
	"github.com/hazyhaar/formfill/profile"
	"github.com/hazyhaar/formfill/safeurl"
	"github.com/hazyhaar/formfill/trigger"
)

const version = "0.1.0"

type options struct {
	configPath string
	dbPath     string
	logLevel   string

	htmlPath string
	outPath  string
	pageURL  string
	serve    string
	mcp      bool
	headful  bool

	importPath string
	clear      bool
	show       bool
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", "", "path to formfill.yaml config file")
	flag.StringVar(&o.dbPath, "db", "", "profile database (overrides config db_path)")
	flag.StringVar(&o.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flag.StringVar(&o.htmlPath, "html", "", "fill a static HTML file and print the result")
	flag.StringVar(&o.outPath, "out", "", "write the filled HTML here instead of stdout")
	flag.StringVar(&o.pageURL, "url", "", "fill a live page (base URL with -html)")
	flag.StringVar(&o.serve, "serve", "", "serve the HTTP API on this address")
	flag.BoolVar(&o.mcp, "mcp", false, "serve MCP tools over stdio")
	flag.BoolVar(&o.headful, "headful", false, "show the browser window")
	flag.StringVar(&o.importPath, "import", "", "merge a YAML or JSON profile file into the store")
	flag.BoolVar(&o.clear, "clear", false, "remove every profile entry")
	flag.BoolVar(&o.show, "show", false, "print the stored profile")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(o.logLevel)}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, o); err != nil {
		logger.Error("formfill: fatal", "error", err)
		os.Exit(1)
	}
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// loadConfig reads the config file, if any, and applies flag overrides.
func loadConfig(o options) (*config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		var err error
		if cfg, err = config.LoadFile(o.configPath); err != nil {
			return nil, err
		}
	}
	if o.dbPath != "" {
		cfg.DBPath = o.dbPath
	}
	if o.serve != "" {
		cfg.HTTP.Addr = o.serve
	}
	if o.headful {
		cfg.Browser.Stealth = string(browser.ModeHeadful)
	}
	return cfg, nil
}

func run(ctx context.Context, logger *slog.Logger, o options) error {
	cfg, err := loadConfig(o)
	if err != nil {
		return err
	}

	store, err := profile.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open profile store: %w", err)
	}
	defer store.Close()

	mgr := browser.NewManager(browser.Config{
		RemoteURL:        cfg.Browser.Remote,
		Mode:             browser.Mode(cfg.Browser.Stealth),
		ResourceBlocking: cfg.Browser.ResourceBlocking,
		NavigateTimeout:  cfg.Browser.NavigateTimeout,
		Logger:           logger,
	})
	defer mgr.Close()

	eng := autofill.New(cfg.Engine(), logger)
	router := trigger.New(store, eng,
		trigger.WithLogger(logger),
		trigger.WithOpener(trigger.BrowserOpener(mgr)),
		trigger.WithPassTimeout(cfg.PassTimeout),
	)

	ctx = kit.WithTransport(ctx, "cli")

	switch {
	case o.importPath != "":
		return runImport(ctx, router, o.importPath)
	case o.clear:
		return printJSON(router.Call(ctx, trigger.Command{Action: trigger.ActionClear}))
	case o.show:
		return printJSON(router.Profile(ctx))
	case o.htmlPath != "":
		return runHTML(ctx, router, o)
	case o.pageURL != "":
		return printJSON(router.Call(ctx, trigger.Command{Action: trigger.ActionAutofill, URL: o.pageURL}))
	case o.mcp:
		return runMCP(ctx, logger, router)
	case o.serve != "":
		return runHTTP(ctx, logger, router, cfg.HTTP.Addr)
	}

	fmt.Fprintln(os.Stderr, "usage: formfill -html <file> | -url <url> | -serve <addr> | -mcp | -import <file> | -clear | -show")
	flag.PrintDefaults()
	os.Exit(2)
	return nil
}

func runImport(ctx context.Context, router *trigger.Router, path string) error {
	p, err := profile.ParseFile(path)
	if err != nil {
		return err
	}
	return printJSON(router.Call(ctx, trigger.Command{Action: trigger.ActionUpdate, Entries: p}))
}

func runHTML(ctx context.Context, router *trigger.Router, o options) error {
	f, err := os.Open(o.htmlPath)
	if err != nil {
		return err
	}
	data, err := safeurl.LimitedReadAll(f, safeurl.MaxBody)
	f.Close()
	if err != nil {
		return fmt.Errorf("read %s: %w", o.htmlPath, err)
	}

	resp, err := router.Call(ctx, trigger.Command{Action: trigger.ActionAutofill, URL: o.pageURL, HTML: string(data)})
	if err != nil {
		return err
	}

	var out io.Writer = os.Stdout
	if o.outPath != "" {
		of, err := os.Create(o.outPath)
		if err != nil {
			return err
		}
		defer of.Close()
		out = of
	}
	if _, err := io.WriteString(out, resp.HTML); err != nil {
		return err
	}

	resp.HTML = ""
	enc := json.NewEncoder(os.Stderr)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

func runMCP(ctx context.Context, logger *slog.Logger, router *trigger.Router) error {
	srv := mcp.NewServer(&mcp.Implementation{Name: "formfill", Version: version}, nil)
	router.RegisterMCP(srv)
	logger.Info("formfill: mcp serving on stdio")
	if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcp: %w", err)
	}
	return nil
}

func runHTTP(ctx context.Context, logger *slog.Logger, router *trigger.Router, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("formfill: server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("formfill: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("formfill: shutdown", "error", err)
	}
	return nil
}

func printJSON(v any, err error) error {
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
