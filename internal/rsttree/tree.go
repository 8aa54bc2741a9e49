// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rsttree parses and renders rhetorical structure trees.
// The canonical serialization is the brackets notation, e.g.
// (Background (Elaboration (N 1) (N 2))); Newick and Graphviz DOT
// renderings are derived from it.
package rsttree

import (
	"fmt"
	"strconv"
	"strings"
)

// Node is one node of a rhetorical structure tree. Leaves reference an
// EDU by ID; internal nodes carry a relation or role label.
type Node struct {
	// Label is the relation type or role of an internal node.
	Label string

	// Role marks a leaf as nucleus ("N") or satellite ("S"). Empty on
	// internal nodes.
	Role string

	// EDUID is the referenced unit for a leaf, zero for internal nodes.
	EDUID int

	Children []*Node
}

// Leaf reports whether the node references an EDU.
func (n *Node) Leaf() bool {
	return n.EDUID != 0
}

// Add appends a child and returns the receiver for chaining.
func (n *Node) Add(child *Node) *Node {
	n.Children = append(n.Children, child)
	return n
}

// Brackets renders the tree in brackets notation. A leaf renders as
// (<role> <id>), an internal node as (<label> <children...>).
func (n *Node) Brackets() string {
	if n.Leaf() {
		role := n.Role
		if role == "" {
			role = "N"
		}
		return fmt.Sprintf("(%s %d)", role, n.EDUID)
	}
	parts := make([]string, 0, len(n.Children)+1)
	parts = append(parts, n.Label)
	for _, child := range n.Children {
		parts = append(parts, child.Brackets())
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// Newick renders the tree in Newick notation with EDU leaves named
// "EDU<id>" and internal nodes labeled after their relation.
func (n *Node) Newick() string {
	if n.Leaf() {
		return fmt.Sprintf("EDU%d", n.EDUID)
	}
	children := make([]string, len(n.Children))
	for i, child := range n.Children {
		children[i] = child.Newick()
	}
	return "(" + strings.Join(children, ",") + ")" + n.Label
}

// Leaves returns the EDU IDs referenced by the tree in left-to-right order.
func (n *Node) Leaves() []int {
	if n.Leaf() {
		return []int{n.EDUID}
	}
	var ids []int
	for _, child := range n.Children {
		ids = append(ids, child.Leaves()...)
	}
	return ids
}

// Parse reads a tree from brackets notation. Leaf tokens are
// (<role> <digits>); any other parenthesized form is an internal node
// whose first token is the label.
func Parse(brackets string) (*Node, error) {
	p := &parser{input: brackets}
	p.skipSpace()
	if p.pos >= len(p.input) {
		return nil, fmt.Errorf("empty tree")
	}
	node, err := p.parseNode()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.input) {
		return nil, fmt.Errorf("trailing input at offset %d", p.pos)
	}
	return node, nil
}

type parser struct {
	input string
	pos   int
}

func (p *parser) skipSpace() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\n' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

// token reads a run of characters up to whitespace or a parenthesis.
func (p *parser) token() string {
	start := p.pos
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if c == ' ' || c == '\n' || c == '\t' || c == '(' || c == ')' {
			break
		}
		p.pos++
	}
	return p.input[start:p.pos]
}

func (p *parser) parseNode() (*Node, error) {
	if p.pos >= len(p.input) || p.input[p.pos] != '(' {
		return nil, fmt.Errorf("expected '(' at offset %d", p.pos)
	}
	p.pos++
	p.skipSpace()

	label := p.token()
	if label == "" {
		return nil, fmt.Errorf("missing node label at offset %d", p.pos)
	}

	node := &Node{Label: label}
	for {
		p.skipSpace()
		if p.pos >= len(p.input) {
			return nil, fmt.Errorf("unbalanced brackets")
		}
		if p.input[p.pos] == ')' {
			p.pos++
			break
		}
		if p.input[p.pos] == '(' {
			if node.Leaf() {
				return nil, fmt.Errorf("child node mixed with EDU reference %d", node.EDUID)
			}
			child, err := p.parseNode()
			if err != nil {
				return nil, err
			}
			node.Add(child)
			continue
		}

		// Bare token inside a node: an EDU ID when the label is a role.
		tok := p.token()
		id, err := strconv.Atoi(tok)
		if err != nil {
			return nil, fmt.Errorf("unexpected token %q at offset %d", tok, p.pos)
		}
		if id <= 0 {
			return nil, fmt.Errorf("EDU reference %d is not positive", id)
		}
		if len(node.Children) > 0 {
			return nil, fmt.Errorf("EDU reference %d mixed with child nodes", id)
		}
		if node.Leaf() {
			return nil, fmt.Errorf("leaf holds both EDU references %d and %d", node.EDUID, id)
		}
		node.Role = node.Label
		node.Label = ""
		node.EDUID = id
	}

	if !node.Leaf() && len(node.Children) == 0 {
		// A childless labeled node, e.g. the degenerate "(Summary)".
		return node, nil
	}
	return node, nil
}

// ToDOT converts a brackets tree to a Graphviz digraph. Each node gets a
// box with its label; leaf tokens become their own boxes. Malformed
// input yields an error rather than a partial graph.
func ToDOT(brackets string) (string, error) {
	root, err := Parse(brackets)
	if err != nil {
		return "", fmt.Errorf("parsing brackets: %w", err)
	}

	var b strings.Builder
	b.WriteString("digraph RST {\n")
	b.WriteString("  node [shape=box];\n")

	counter := 0
	var emit func(n *Node) string
	emit = func(n *Node) string {
		counter++
		id := fmt.Sprintf("n%d", counter)
		label := n.Label
		if n.Leaf() {
			label = fmt.Sprintf("%s %d", n.Role, n.EDUID)
		}
		fmt.Fprintf(&b, "  %s [label=%q];\n", id, label)
		for _, child := range n.Children {
			childID := emit(child)
			fmt.Fprintf(&b, "  %s -> %s;\n", id, childID)
		}
		return id
	}
	emit(root)

	b.WriteString("}")
	return b.String(), nil
}

// ForestTree pairs a bracket tree with the label shown on its cluster.
type ForestTree struct {
	Label    string
	Brackets string
}

// ToForestDOT renders several trees as one Graphviz digraph, each tree
// in its own labeled cluster. Trees that fail to parse are skipped.
func ToForestDOT(trees []ForestTree) string {
	var b strings.Builder
	b.WriteString("digraph Forest {\n")
	b.WriteString("  node [shape=box];\n")

	counter := 0
	for i, t := range trees {
		root, err := Parse(t.Brackets)
		if err != nil {
			continue
		}

		fmt.Fprintf(&b, "  subgraph cluster_%d {\n", i)
		fmt.Fprintf(&b, "    label=%q;\n", t.Label)

		var emit func(n *Node) string
		emit = func(n *Node) string {
			counter++
			id := fmt.Sprintf("n%d", counter)
			label := n.Label
			if n.Leaf() {
				label = fmt.Sprintf("%s %d", n.Role, n.EDUID)
			}
			fmt.Fprintf(&b, "    %s [label=%q];\n", id, label)
			for _, child := range n.Children {
				childID := emit(child)
				fmt.Fprintf(&b, "    %s -> %s;\n", id, childID)
			}
			return id
		}
		emit(root)

		b.WriteString("  }\n")
	}

	b.WriteString("}")
	return b.String()
}
