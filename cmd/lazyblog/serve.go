package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/lazyblog/internal/config"
	"github.com/vango-dev/lazyblog/internal/errors"
)

type serveFlags struct {
	addr          string
	postsSource   string
	bundlesSource string
	redisURL      string
	delay         time.Duration
	stream        bool
	pretty        bool
}

func serveCmd(g *globalFlags) *cobra.Command {
	var f serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the HTTP server.

Settings come from lazyblog.json (or .yaml), a .env file and LAZYBLOG_*
environment variables. Flags given here override all of them.

Examples:
  lazyblog serve
  lazyblog serve --addr :3000 --posts memory
  lazyblog serve --delay 1s --stream=false`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, g, &f)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.addr, "addr", "a", "", "listen address")
	fl.StringVar(&f.postsSource, "posts", "", "posts source: http, sqlite or memory")
	fl.StringVar(&f.bundlesSource, "bundles", "", "bundle source: embed, dir or s3")
	fl.StringVar(&f.redisURL, "redis", "", "Redis URL for the loader cache")
	fl.DurationVar(&f.delay, "delay", 0, "artificial latency added to every module fetch")
	fl.BoolVar(&f.stream, "stream", true, "stream documents (send the fallback first)")
	fl.BoolVar(&f.pretty, "pretty", false, "indent rendered HTML")

	return cmd
}

// loadConfig reads the layered configuration and applies the flags that
// were set explicitly.
func loadConfig(cmd *cobra.Command, g *globalFlags, f *serveFlags) (*config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{File: g.configFile})
	if err != nil {
		return nil, err
	}

	changed := func(name string) bool { return cmd.Flags().Changed(name) }
	if changed("log-level") {
		cfg.LogLevel = g.logLevel
	}
	if changed("log-format") {
		cfg.LogFormat = g.logFormat
	}
	if changed("addr") {
		cfg.Addr = f.addr
	}
	if changed("posts") {
		cfg.Posts.Source = f.postsSource
	}
	if changed("bundles") {
		cfg.Bundles.Source = f.bundlesSource
	}
	if changed("redis") {
		cfg.Cache.RedisURL = f.redisURL
	}
	if changed("delay") {
		cfg.Bundles.Delay = config.Duration(f.delay)
	}
	if changed("stream") {
		cfg.Stream = f.stream
	}
	if changed("pretty") {
		cfg.Pretty = f.pretty
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runServe(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := newLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	if cfg.Path() != "" {
		logger.Info("loaded configuration", "file", cfg.Path())
	}

	shutdownTracing, err := setupTracing(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.Warn("flushing spans failed", "error", err)
		}
	}()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("closing stores failed", "error", err)
		}
	}()

	logger.Info("lazyblog ready",
		"version", version,
		"addr", cfg.Addr,
		"posts", cfg.Posts.Source,
		"bundles", cfg.Bundles.Source,
		"cache", cfg.Cache.RedisURL != "",
	)
	if err := a.server.Run(ctx); err != nil {
		return errors.New("E145").Wrap(err)
	}
	return nil
}
