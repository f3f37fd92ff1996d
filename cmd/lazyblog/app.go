package main

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/vango-dev/lazyblog/internal/config"
	"github.com/vango-dev/lazyblog/internal/errors"
	"github.com/vango-dev/lazyblog/internal/pages"
	"github.com/vango-dev/lazyblog/internal/posts"
	"github.com/vango-dev/lazyblog/pkg/bundle"
	"github.com/vango-dev/lazyblog/pkg/deferred"
	"github.com/vango-dev/lazyblog/pkg/middleware"
	"github.com/vango-dev/lazyblog/pkg/navigation"
	"github.com/vango-dev/lazyblog/pkg/render"
	"github.com/vango-dev/lazyblog/pkg/router"
	"github.com/vango-dev/lazyblog/pkg/server"
)

const pageStyles = `body{font-family:system-ui,sans-serif;max-width:42rem;margin:2rem auto;padding:0 1rem;line-height:1.5}
nav a{margin-right:1rem}nav a.active{font-weight:600}
[aria-busy="true"]{opacity:.6}`

// app is the wired application.
type app struct {
	server  *server.Server
	router  *router.Router
	modules *deferred.Registry[router.Module]

	closers []func() error
}

// Close releases the stores opened by newApp.
func (a *app) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// newApp opens the posts store and bundle source selected by cfg and
// builds the server around them.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	store, err := a.openPosts(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	bundles, err := openBundles(cfg.Bundles)
	if err != nil {
		return nil, err
	}

	a.modules = deferred.NewRegistry[router.Module](deferred.WithLogger(logger))
	a.router, err = pages.NewRouter(pages.Deps{
		Posts:   store,
		Bundles: bundles,
		Modules: a.modules,
	})
	if err != nil {
		return nil, errors.New("E144").Wrap(err)
	}

	opts := []server.Option{
		server.WithConfig(serverConfig(cfg)),
		server.WithLogger(logger),
		server.WithTracing(cfg.Tracing.Enabled),
		server.WithTitle(pages.Title),
		server.WithModules(a.modules.Snapshot),
		server.WithPage(render.PageData{
			Title:  pages.SiteName,
			Styles: []string{pageStyles},
		}),
		server.WithNavigationOptions(navigation.WithFallback(pages.Loading())),
	}
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m := middleware.NewMetrics(middleware.WithRegistry(reg))
		opts = append(opts, server.WithMetrics(m, reg))
	}

	a.server, err = server.New(a.router, opts...)
	if err != nil {
		return nil, errors.New("E123").Wrap(err)
	}
	return a, nil
}

func (a *app) openPosts(ctx context.Context, cfg *config.Config, logger *slog.Logger) (posts.Store, error) {
	var store posts.Store

	switch cfg.Posts.Source {
	case "memory":
		store = posts.NewMemoryStore(posts.Seed()...)
	case "sqlite":
		db, err := posts.OpenSQLite(ctx, cfg.Posts.SQLitePath)
		if err != nil {
			return nil, errors.New("E140").
				WithDetailf("open %s: %v", cfg.Posts.SQLitePath, err).
				Wrap(err)
		}
		a.closers = append(a.closers, db.Close)
		if cfg.Posts.Seed {
			if err := seed(ctx, db, logger); err != nil {
				return nil, errors.New("E140").Wrap(err)
			}
		}
		store = db
	default:
		store = posts.NewHTTPStore(cfg.Posts.BaseURL, &http.Client{Timeout: cfg.Posts.Timeout.Std()})
	}

	if cfg.Cache.RedisURL == "" {
		return store, nil
	}
	kv, err := posts.NewRedisKV(ctx, cfg.Cache.RedisURL)
	if err != nil {
		return nil, errors.New("E142").
			Wrap(err).
			WithSuggestion("Start Redis or unset LAZYBLOG_CACHE_REDIS_URL")
	}
	a.closers = append(a.closers, kv.Close)
	return posts.NewCachedStore(store, kv, cfg.Cache.TTL.Std(), cfg.Cache.Prefix), nil
}

func seed(ctx context.Context, db *posts.SQLiteStore, logger *slog.Logger) error {
	n, err := db.Count(ctx)
	if err != nil || n > 0 {
		return err
	}
	sample := posts.Seed()
	if err := db.Upsert(ctx, sample...); err != nil {
		return err
	}
	logger.Info("seeded posts store", "posts", len(sample))
	return nil
}

func openBundles(cfg config.BundlesConfig) (bundle.Source, error) {
	var src bundle.Source

	switch cfg.Source {
	case "dir":
		dir, err := bundle.NewDir(cfg.Dir)
		if err != nil {
			return nil, errors.New("E141").Wrap(err)
		}
		src = dir
	case "s3":
		client := bundle.NewS3Client(bundle.S3Config{
			Bucket:    cfg.S3.Bucket,
			Prefix:    cfg.S3.Prefix,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			PathStyle: cfg.S3.PathStyle,
		})
		s3src, err := bundle.NewS3(client, cfg.S3.Bucket, cfg.S3.Prefix)
		if err != nil {
			return nil, errors.New("E141").Wrap(err)
		}
		src = s3src
	default:
		src = pages.EmbeddedBundles()
	}

	if d := cfg.Delay.Std(); d > 0 {
		src = bundle.Delayed(src, d)
	}
	return src, nil
}

func serverConfig(cfg *config.Config) server.Config {
	sc := server.DefaultConfig()
	sc.Address = cfg.Addr
	sc.Stream = cfg.Stream
	sc.Pretty = cfg.Pretty
	sc.ShutdownTimeout = cfg.ShutdownTimeout.Std()
	if cfg.Metrics.Path != "" {
		sc.MetricsPath = cfg.Metrics.Path
	}
	return sc
}
