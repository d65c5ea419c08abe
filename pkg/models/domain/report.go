package domain

import (
	"sort"
	"time"
)

// SchemaVersion is bumped whenever the snapshot layout changes incompatibly.
const SchemaVersion = "1"

// TotalName is the display name of the synthetic root.
const TotalName = "All Categories"

// EntityNode is one entity of the hierarchy with its analyses. A parent owns its children.
type EntityNode struct {
	Name     string                 `json:"name"`
	Level    Level                  `json:"level"`
	Analysis Analyses               `json:"analysis"`
	Children map[string]*EntityNode `json:"children"`
}

func NewEntityNode(name string, level Level) *EntityNode {
	return &EntityNode{
		Name:     name,
		Level:    level,
		Analysis: Analyses{},
		Children: map[string]*EntityNode{},
	}
}

// ChildNames returns the children's names in ascending order.
func (n *EntityNode) ChildNames() []string {
	names := make([]string, 0, len(n.Children))
	for name := range n.Children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Walk visits n and its descendants depth-first, children in name order.
func (n *EntityNode) Walk(fn func(path []string, node *EntityNode)) {
	n.walk(nil, fn)
}

func (n *EntityNode) walk(path []string, fn func([]string, *EntityNode)) {
	fn(path, n)
	for _, name := range n.ChildNames() {
		next := append(append([]string{}, path...), name)
		n.Children[name].walk(next, fn)
	}
}

// Metadata describes how and for which windows a report was generated.
type Metadata struct {
	Quarter        string
	RunDate        time.Time
	CategoryFilter string
	Dates          FiscalDates
	GeneratedAt    time.Time
	RunID          string
	SchemaVersion  string
}

// Report is the complete result tree of one collection.
type Report struct {
	Metadata Metadata
	Root     *EntityNode
}
