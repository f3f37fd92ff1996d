package errors

import "sort"

// Template defines a registered error code.
type Template struct {
	Category Category
	Message  string
	Detail   string
}

var registry = map[string]Template{
	// Configuration (E120-E139)
	"E120": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "The configuration file could not be read or parsed.",
	},
	"E121": {
		Category: CategoryConfig,
		Message:  "Missing required configuration",
		Detail:   "A setting required by the selected source is empty.",
	},
	"E122": {
		Category: CategoryConfig,
		Message:  "Invalid listen address",
		Detail:   "The listen address must be host:port.",
	},
	"E123": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
		Detail:   "A setting has a value outside the allowed set.",
	},
	"E124": {
		Category: CategoryConfig,
		Message:  "Invalid environment",
		Detail:   "An environment variable could not be parsed.",
	},

	// Startup (E140-E159)
	"E140": {
		Category: CategoryStartup,
		Message:  "Posts store unavailable",
		Detail:   "The posts store could not be opened.",
	},
	"E141": {
		Category: CategoryStartup,
		Message:  "Bundle source unavailable",
		Detail:   "The page bundle source could not be created.",
	},
	"E142": {
		Category: CategoryStartup,
		Message:  "Cache unavailable",
		Detail:   "Redis could not be reached.",
	},
	"E143": {
		Category: CategoryStartup,
		Message:  "Tracing setup failed",
		Detail:   "The trace exporter could not be created.",
	},
	"E144": {
		Category: CategoryStartup,
		Message:  "Invalid route table",
		Detail:   "The route table failed validation.",
	},
	"E145": {
		Category: CategoryStartup,
		Message:  "Server failed",
		Detail:   "The HTTP server stopped with an error.",
	},
}

// Codes returns all registered codes in order.
func Codes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Lookup returns the template of a code.
func Lookup(code string) (Template, bool) {
	t, ok := registry[code]
	return t, ok
}
