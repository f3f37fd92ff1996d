package navigation

import (
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/lazyblog/pkg/router"
	"github.com/vango-dev/lazyblog/pkg/vdom"
)

const tracerName = "github.com/vango-dev/lazyblog/pkg/navigation"

// Outcome classifies how a navigation ended.
type Outcome string

const (
	OutcomeCommitted  Outcome = "committed"
	OutcomeSuperseded Outcome = "superseded"
	OutcomeFailed     Outcome = "failed"
	OutcomeNotFound   Outcome = "not_found"
	OutcomeCancelled  Outcome = "cancelled"
)

// Observer is notified of navigation, module and loader timings.
// Implementations must be safe for concurrent use.
type Observer interface {
	NavigationFinished(outcome Outcome, d time.Duration)
	ModuleResolved(module string, d time.Duration, err error)
	LoaderFinished(route string, d time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) NavigationFinished(Outcome, time.Duration) {}
func (nopObserver) ModuleResolved(string, time.Duration, error) {}
func (nopObserver) LoaderFinished(string, time.Duration, error) {}

// Option configures a Navigator.
type Option func(*config)

type config struct {
	logger       *slog.Logger
	tracer       trace.Tracer
	observer     Observer
	fallback     *vdom.VNode
	errorElement router.ErrorElementFunc
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithTracer sets the tracer. The global tracer provider is used otherwise.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *config) {
		c.tracer = tracer
	}
}

// WithObserver sets the timing observer.
func WithObserver(o Observer) Option {
	return func(c *config) {
		c.observer = o
	}
}

// WithFallback sets the fallback used by deferred routes without their own.
func WithFallback(node *vdom.VNode) Option {
	return func(c *config) {
		c.fallback = node
	}
}

// WithErrorElement sets the error page used when no matched route has an
// error element.
func WithErrorElement(fn router.ErrorElementFunc) Option {
	return func(c *config) {
		c.errorElement = fn
	}
}

func defaultConfig() config {
	return config{
		logger:       slog.Default(),
		tracer:       otel.Tracer(tracerName),
		observer:     nopObserver{},
		fallback:     vdom.P(vdom.Text("Loading...")),
		errorElement: DefaultErrorElement,
	}
}

// DefaultErrorElement renders a bare error page.
func DefaultErrorElement(rc router.RenderContext, err error) *vdom.VNode {
	title := "Something went wrong"
	if StatusOf(err) == http.StatusNotFound {
		title = "Page not found"
	}
	return vdom.Main(
		vdom.Role("alert"),
		vdom.H1(vdom.Text(title)),
		vdom.P(vdom.Text(err.Error())),
	)
}
