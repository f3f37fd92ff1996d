package vdom

import "fmt"

// Text creates an escaped text node.
func Text(content string) *VNode {
	return &VNode{Kind: KindText, Text: content}
}

// Textf is Text with fmt.Sprintf formatting.
func Textf(format string, args ...any) *VNode {
	return Text(fmt.Sprintf(format, args...))
}

// Raw creates a node whose content is written without escaping. Only
// trusted markup may be passed.
func Raw(html string) *VNode {
	return &VNode{Kind: KindRaw, Text: html}
}

// Fragment groups children without a wrapper element. It accepts the same
// child arguments as the element constructors; attributes are ignored.
func Fragment(children ...any) *VNode {
	node := &VNode{Kind: KindFragment}
	node.add(children)
	return node
}

// If returns node when cond holds, else nil, which every constructor skips.
func If(cond bool, node *VNode) *VNode {
	if !cond {
		return nil
	}
	return node
}

// Range maps items to nodes, dropping nil results.
func Range[T any](items []T, fn func(item T, index int) *VNode) []*VNode {
	out := make([]*VNode, 0, len(items))
	for i, item := range items {
		if n := fn(item, i); n != nil {
			out = append(out, n)
		}
	}
	return out
}

// Key sets the node's list key. It is never rendered.
func Key(key any) Attr {
	return attr(keyAttr, fmt.Sprint(key))
}
