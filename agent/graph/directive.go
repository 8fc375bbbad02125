package graph

import "fmt"

type directiveKind uint8

const (
	followEdge directiveKind = iota
	gotoNode
	endRun
)

// Directive names what runs after a node. The zero value follows the node's
// fixed edge.
type Directive struct {
	kind   directiveKind
	target string
}

func Goto(node string) Directive {
	return Directive{kind: gotoNode, target: node}
}

func End() Directive {
	return Directive{kind: endRun}
}

func (d Directive) IsEnd() bool {
	return d.kind == endRun
}

// Target reports the node named by a Goto directive.
func (d Directive) Target() (string, bool) {
	if d.kind != gotoNode {
		return "", false
	}
	return d.target, true
}

func (d Directive) String() string {
	switch d.kind {
	case gotoNode:
		return fmt.Sprintf("goto(%s)", d.target)
	case endRun:
		return "end"
	default:
		return "edge"
	}
}

// Result is what a node hands back to the engine: an optional state update and
// the directive for the next step.
type Result[S any] struct {
	Update func(*S)
	Next   Directive
}

// Continue applies update and follows the fixed edge.
func Continue[S any](update func(*S)) Result[S] {
	return Result[S]{Update: update}
}

// Route applies update and jumps to node.
func Route[S any](node string, update func(*S)) Result[S] {
	return Result[S]{Update: update, Next: Goto(node)}
}

// Finish applies update and stops the run.
func Finish[S any](update func(*S)) Result[S] {
	return Result[S]{Update: update, Next: End()}
}
