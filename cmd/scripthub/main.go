// Command scripthub serves a directory of .fountain screenplay files to the
// browser-based script editor: list, open and save over HTTP, plus the editor
// assets as static files.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/scripthub/scripthub/internal/api"
	"github.com/scripthub/scripthub/internal/config"
	"github.com/scripthub/scripthub/internal/metrics"
	"github.com/scripthub/scripthub/internal/projects"
	"github.com/scripthub/scripthub/internal/watcher"
	"github.com/scripthub/scripthub/internal/ws"
)

const (
	defaultConfigPath = "scripthub.yaml"
	shutdownTimeout   = 5 * time.Second
)

var version = "dev"

// flags holds command-line overrides for the config file.
type flags struct {
	configPath  string
	host        string
	port        int
	projectsDir string
	staticDir   string
	logLevel    string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:   "scripthub",
		Short: "Serve .fountain projects to the script editor",
		Long: `scripthub lists, opens and saves .fountain screenplay files kept in a
single project directory, and serves the editor's static assets.

Endpoints:
  GET  /projects          list project files
  GET  /open?file=<name>  read one project
  POST /save              write {"filename","text"}`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return run(ctx, cmd.Flags(), f)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.configPath, "config", defaultConfigPath, "path to config file (optional unless set explicitly)")
	fl.StringVar(&f.host, "host", config.DefaultHost, "listen host")
	fl.IntVar(&f.port, "port", config.DefaultPort, "listen port")
	fl.StringVar(&f.projectsDir, "projects-dir", config.DefaultProjectsDir, "directory holding the project files")
	fl.StringVar(&f.staticDir, "static-dir", config.DefaultStaticDir, "directory the editor assets are served from")
	fl.StringVar(&f.logLevel, "log-level", config.DefaultLogLevel, "log level: debug|info|warn|error")
	return cmd
}

// loadConfig reads the config file and applies the flags the user set.
func loadConfig(fs *pflag.FlagSet, f flags) (*config.Config, error) {
	cfg, err := config.Load(f.configPath, !fs.Changed("config"))
	if err != nil {
		return nil, err
	}
	if fs.Changed("host") {
		cfg.Server.Host = f.host
	}
	if fs.Changed("port") {
		cfg.Server.Port = f.port
	}
	if fs.Changed("projects-dir") {
		cfg.Projects.Dir = f.projectsDir
	}
	if fs.Changed("static-dir") {
		cfg.Server.StaticDir = f.staticDir
	}
	if fs.Changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the process logger. The level stays adjustable through lvl.
func newLogger(w io.Writer, format string, lvl *slog.LevelVar) *slog.Logger {
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// reloadLevel returns the config reload callback. A level given on the
// command line wins over the file, so pinned reloads leave lvl untouched.
func reloadLevel(lvl *slog.LevelVar, pinned bool) func(*config.Config) {
	return func(updated *config.Config) {
		if pinned {
			slog.Debug("config reloaded; log level pinned by --log-level", "file_level", updated.Log.Level)
			return
		}
		lvl.Set(updated.Log.SlogLevel())
		slog.Info("log level updated", "level", updated.Log.Level)
	}
}

func run(ctx context.Context, fs *pflag.FlagSet, f flags) error {
	level := new(slog.LevelVar)
	slog.SetDefault(newLogger(os.Stdout, config.DefaultLogFormat, level))

	cfg, err := loadConfig(fs, f)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		return err
	}
	level.Set(cfg.Log.SlogLevel())
	slog.SetDefault(newLogger(os.Stdout, cfg.Log.Format, level))

	slog.Info("scripthub starting",
		"version", version,
		"addr", cfg.Server.Addr(),
		"projects_dir", cfg.Projects.Dir,
		"static_dir", cfg.Server.StaticDir,
		"open_policy", cfg.Projects.OpenPolicy,
		"atomic_writes", cfg.Projects.Atomic(),
	)

	st := projects.New(cfg.Projects.Dir, projects.Options{
		Extension:    cfg.Projects.Extension,
		OpenPolicy:   projects.OpenPolicy(cfg.Projects.OpenPolicy),
		AtomicWrites: cfg.Projects.Atomic(),
	})
	if err := st.EnsureDir(); err != nil {
		slog.Error("failed to create project directory", "dir", cfg.Projects.Dir, "err", err)
		return err
	}

	// Hot-reload of the log level; other fields need a restart.
	if _, err := os.Stat(f.configPath); err == nil {
		go func() {
			onReload := reloadLevel(level, fs.Changed("log-level"))
			if err := config.Watch(ctx, f.configPath, onReload); err != nil {
				slog.Error("config watcher stopped", "err", err)
			}
		}()
	}

	m := metrics.New()

	// WebSocket hub, fed by the project directory watcher.
	hub := ws.New(st, 0)
	go hub.Run(ctx)
	go func() {
		if err := watcher.Watch(ctx, st.Dir(), st.Extension(), watcher.DefaultDebounce, hub.Notify); err != nil {
			slog.Error("project watcher stopped", "err", err)
		}
	}()

	h := api.New(st, api.Options{
		StaticDir:    cfg.Server.StaticDir,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		Metrics:      m,
	})
	h.Mount("/metrics", m.Handler())
	h.Mount("/ws/projects", hub)

	lis, err := net.Listen("tcp", cfg.Server.Addr())
	if err != nil {
		slog.Error("failed to listen", "addr", cfg.Server.Addr(), "err", err)
		return err
	}
	return serve(ctx, lis, api.Instrument(h, m))
}

// serve runs an HTTP server on lis until ctx is cancelled or the server fails.
func serve(ctx context.Context, lis net.Listener, handler http.Handler) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "url", fmt.Sprintf("http://%s/", lis.Addr()))
		errCh <- srv.Serve(lis)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server stopped", "err", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("scripthub shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
