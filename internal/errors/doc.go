// Package errors provides coded, actionable errors for the lazyblog
// command line.
//
// Configuration and startup failures carry a code (e.g. "E123") that maps
// to a short message and a detail text, plus an optional hint:
//
//	err := errors.New("E123").
//	    WithDetail(`posts.source must be "http", "sqlite" or "memory", got "mongo"`).
//	    WithSuggestion("Set LAZYBLOG_POSTS_SOURCE or posts.source in lazyblog.json")
//
//	errors.Print(os.Stderr, err)
//	// ERROR E123: Invalid configuration value
//	//
//	//   posts.source must be "http", "sqlite" or "memory", got "mongo"
//	//
//	//   Hint: Set LAZYBLOG_POSTS_SOURCE or posts.source in lazyblog.json
//
// Colors are used only when the destination is a terminal.
package errors
