package ir

import (
	"strconv"
	"strings"
)

// Action controls a Visitor's behavior after visiting a node, mirroring
// the walker idiom used elsewhere in this stack: a visitor returns
// Continue to keep descending, SkipChildren to prune the current
// subtree, or Stop to end the walk immediately.
type Action int

const (
	Continue Action = iota
	SkipChildren
	Stop
)

// NavigateError reports a failed path lookup, including the path
// prefix that was successfully resolved before the failure.
type NavigateError struct {
	Prefix  string
	Segment string
	NotFound bool
}

func (e *NavigateError) Error() string {
	if e.NotFound {
		return "ir: node not found at " + e.Prefix
	}
	return "ir: invalid path segment " + strconv.Quote(e.Segment) + " at " + e.Prefix
}

// Cursor wraps a Node reference together with the textual path used to
// reach it, so navigation errors can report a full path.
type Cursor struct {
	node *Node
	path string
}

// NewCursor creates a Cursor positioned at root.
func NewCursor(root *Node) *Cursor {
	return &Cursor{node: root, path: root.Name}
}

// Node returns the node the cursor currently points at.
func (c *Cursor) Node() *Node { return c.node }

// Path returns the accumulated textual path to the cursor's node.
func (c *Cursor) Path() string { return c.path }

// Child moves the cursor to the first child named name. Navigation is
// pure: on failure the cursor is left pointed at its original node.
func (c *Cursor) Child(name string) (*Cursor, error) {
	child := c.node.FirstChild(name)
	if child == nil {
		return nil, &NavigateError{Prefix: c.path, NotFound: true}
	}
	return &Cursor{node: child, path: c.path + "/" + name}, nil
}

// ChildAt moves the cursor to the idx-th (zero-based) child named name.
func (c *Cursor) ChildAt(name string, idx int) (*Cursor, error) {
	matches := c.node.AllChildren(name)
	if idx < 0 || idx >= len(matches) {
		return nil, &NavigateError{Prefix: c.path, NotFound: true}
	}
	return &Cursor{node: matches[idx], path: c.path + "/" + name + "[" + strconv.Itoa(idx) + "]"}, nil
}

// Children returns cursors for every child of the current node, in order.
func (c *Cursor) Children() []*Cursor {
	out := make([]*Cursor, 0, len(c.node.Children))
	for _, child := range c.node.Children {
		out = append(out, &Cursor{node: child, path: c.path + "/" + child.Name})
	}
	return out
}

// Navigate resolves a "/"-separated path from the current cursor.
// Segments may include a bracketed index, e.g. "A/B[2]/C"; empty
// segments (from a leading or doubled "/") are skipped.
func Navigate(root *Node, path string) (*Cursor, error) {
	cur := NewCursor(root)
	for _, segment := range strings.Split(path, "/") {
		if segment == "" {
			continue
		}
		name := segment
		idx := -1
		if open := strings.IndexByte(segment, '['); open >= 0 {
			if !strings.HasSuffix(segment, "]") {
				return nil, &NavigateError{Prefix: cur.path, Segment: segment}
			}
			name = segment[:open]
			n, err := strconv.Atoi(segment[open+1 : len(segment)-1])
			if err != nil {
				return nil, &NavigateError{Prefix: cur.path, Segment: segment}
			}
			idx = n
		}

		var err error
		if idx >= 0 {
			cur, err = cur.ChildAt(name, idx)
		} else {
			cur, err = cur.Child(name)
		}
		if err != nil {
			return nil, err
		}
	}
	return cur, nil
}

// Visitor is implemented by callers of Walk. Enter/Leave bracket group
// nodes (nodes with children), which never receive Visit; Visit is
// called for leaves only, which never receive Enter/Leave.
type Visitor interface {
	Enter(node *Node) Action
	Visit(node *Node) Action
	Leave(node *Node)
}

// Walk performs a pre-order traversal of root, calling visitor's
// Enter/Visit/Leave hooks. Leaf nodes (no children) receive only
// Visit. A SkipChildren result from Enter or Visit prunes the node's
// subtree without halting the walk; Stop ends the walk immediately.
func Walk(root *Node, visitor Visitor) {
	walk(root, visitor)
}

func walk(node *Node, visitor Visitor) Action {
	if len(node.Children) == 0 {
		return visitor.Visit(node)
	}

	action := visitor.Enter(node)
	if action == Stop {
		return Stop
	}
	if action == SkipChildren {
		visitor.Leave(node)
		return Continue
	}

	for _, child := range node.Children {
		if walk(child, visitor) == Stop {
			return Stop
		}
	}
	visitor.Leave(node)
	return Continue
}
