// Command lazyblog serves the lazyblog application shell.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/lazyblog/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		errors.Print(os.Stderr, err)
		os.Exit(1)
	}
}

type globalFlags struct {
	configFile string
	logLevel   string
	logFormat  string
}

func rootCmd() *cobra.Command {
	var g globalFlags

	root := &cobra.Command{
		Use:   "lazyblog",
		Short: "A server-rendered blog with deferred page modules",
		Long: `lazyblog serves a small blog whose Blog and Post pages are loaded
on first use. Documents are streamed: the loading fallback is sent first
and the page is swapped in once its module and data are ready. Client
navigations travel over a WebSocket.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&g.configFile, "config", "c", "", "configuration file (default: lazyblog.json|yaml in the working directory)")
	pf.StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&g.logFormat, "log-format", "", "log format: text or json")

	root.AddCommand(
		serveCmd(&g),
		routesCmd(),
		versionCmd(),
	)
	return root
}

// newLogger builds the root logger and installs it as the default.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, errors.New("E123").WithDetailf("log level %q: %v", level, err)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var h slog.Handler
	switch strings.ToLower(format) {
	case "", "text":
		h = slog.NewTextHandler(w, opts)
	case "json":
		h = slog.NewJSONHandler(w, opts)
	default:
		return nil, errors.New("E123").
			WithDetail(fmt.Sprintf("log format must be text or json, got %q", format))
	}

	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger, nil
}
