package vdom

const keyAttr = "key"

// IsVoidElement reports whether tag has no closing tag and no children.
func IsVoidElement(tag string) bool {
	switch tag {
	case "area", "base", "br", "col", "embed", "hr", "img", "input",
		"link", "meta", "source", "track", "wbr":
		return true
	}
	return false
}

// El creates an element. Arguments may be nil, Attr, []Attr, *VNode,
// []*VNode, Component or string (a text child); anything else is ignored.
func El(tag string, args ...any) *VNode {
	node := &VNode{Kind: KindElement, Tag: tag, Props: Props{}}
	node.add(args)
	return node
}

func (v *VNode) add(args []any) {
	for _, arg := range args {
		switch a := arg.(type) {
		case Attr:
			v.setAttr(a)
		case []Attr:
			for _, each := range a {
				v.setAttr(each)
			}
		case *VNode:
			v.addChild(a)
		case []*VNode:
			for _, child := range a {
				v.addChild(child)
			}
		case Component:
			v.addChild(&VNode{Kind: KindComponent, Comp: a})
		case string:
			v.addChild(Text(a))
		}
	}
}

func (v *VNode) addChild(child *VNode) {
	if child != nil {
		v.Children = append(v.Children, child)
	}
}

func (v *VNode) setAttr(a Attr) {
	switch {
	case a.IsEmpty() || v.Kind != KindElement:
	case a.Key == keyAttr:
		v.Key, _ = a.Value.(string)
	default:
		v.Props[a.Key] = a.Value
	}
}

// Layout

func Header(args ...any) *VNode  { return El("header", args...) }
func Nav(args ...any) *VNode     { return El("nav", args...) }
func Main(args ...any) *VNode    { return El("main", args...) }
func Section(args ...any) *VNode { return El("section", args...) }
func Article(args ...any) *VNode { return El("article", args...) }
func Div(args ...any) *VNode     { return El("div", args...) }

// Content

func H1(args ...any) *VNode     { return El("h1", args...) }
func P(args ...any) *VNode      { return El("p", args...) }
func Ul(args ...any) *VNode     { return El("ul", args...) }
func Li(args ...any) *VNode     { return El("li", args...) }
func A(args ...any) *VNode      { return El("a", args...) }
func Span(args ...any) *VNode   { return El("span", args...) }
func Strong(args ...any) *VNode { return El("strong", args...) }
func Small(args ...any) *VNode  { return El("small", args...) }
func Br(args ...any) *VNode     { return El("br", args...) }

func Script(args ...any) *VNode { return El("script", args...) }
