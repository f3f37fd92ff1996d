package router

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Print writes the route table as an indented tree, one route per line:
//
//	PATTERN      ID     KIND      LOADER
//	/            0      eager     -
//	  (index)    0-0    eager     -
//	  posts      0-1    group     -
func (rt *Router) Print(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PATTERN\tID\tKIND\tLOADER")

	err := rt.Walk(func(r *Route, depth int) error {
		label := r.Path
		switch {
		case r.Index:
			label = "(index)"
		case label == "":
			label = "(group)"
		}

		loader := "-"
		if r.Loader != nil {
			loader = "route"
		} else if r.Lazy != nil {
			loader = "module"
		}

		_, err := fmt.Fprintf(tw, "%s%s\t%s\t%s\t%s\n",
			strings.Repeat("  ", depth), label, r.ID, kind(r), loader)
		return err
	})
	if err != nil {
		return err
	}
	return tw.Flush()
}

func kind(r *Route) string {
	switch {
	case r.Lazy != nil:
		return "deferred"
	case r.Element != nil:
		return "eager"
	default:
		return "group"
	}
}
