package analysis

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Node is a segment in the topology graph.
type Node struct {
	ID   string  `json:"id"`
	Mean float64 `json:"mean"`
}

// Link is a directed adjacency between two segments.
type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Graph is a directed segment graph in node-link form.
type Graph struct {
	Directed   bool           `json:"directed"`
	Multigraph bool           `json:"multigraph"`
	Attrs      map[string]any `json:"graph"`
	Nodes      []Node         `json:"nodes"`
	Links      []Link         `json:"links"`

	nodes map[string]int
	links map[Link]bool
}

// NewGraph creates an empty directed graph.
func NewGraph() *Graph {
	return &Graph{
		Directed: true,
		Attrs:    map[string]any{},
		Nodes:    []Node{},
		Links:    []Link{},
		nodes:    make(map[string]int),
		links:    make(map[Link]bool),
	}
}

// AddNode adds id or updates its score.
func (g *Graph) AddNode(id string, mean float64) {
	if i, ok := g.nodes[id]; ok {
		g.Nodes[i].Mean = mean

		return
	}

	g.nodes[id] = len(g.Nodes)
	g.Nodes = append(g.Nodes, Node{ID: id, Mean: mean})
}

// AddEdge adds the link from -> to once.
func (g *Graph) AddEdge(from, to string) {
	l := Link{Source: from, Target: to}
	if g.links[l] {
		return
	}

	g.links[l] = true
	g.Links = append(g.Links, l)
}

// JSON serializes the graph with its links in a stable order.
func (g *Graph) JSON() (string, error) {
	sort.Slice(g.Links, func(i, j int) bool {
		if g.Links[i].Source != g.Links[j].Source {
			return g.Links[i].Source < g.Links[j].Source
		}

		return g.Links[i].Target < g.Links[j].Target
	})

	b, err := json.Marshal(g)
	if err != nil {
		return "", err
	}

	return string(b), nil
}

// ParseGraph decodes a graph stored with JSON.
func ParseGraph(s string) (*Graph, error) {
	g := NewGraph()
	if err := json.Unmarshal([]byte(s), g); err != nil {
		return nil, fmt.Errorf("decoding graph: %w", err)
	}

	for i, n := range g.Nodes {
		g.nodes[n.ID] = i
	}

	for _, l := range g.Links {
		g.links[l] = true
	}

	return g, nil
}

// DOT renders the graph in Graphviz format, flagged segments filled red.
func (g *Graph) DOT(name string, flagged []string) string {
	isFlagged := make(map[string]bool, len(flagged))
	for _, f := range flagged {
		isFlagged[f] = true
	}

	var b strings.Builder

	fmt.Fprintf(&b, "digraph %s {\n", strconv.Quote(name))
	b.WriteString("  node [shape=box];\n")

	for _, n := range g.Nodes {
		attrs := fmt.Sprintf("label=%s", strconv.Quote(fmt.Sprintf("%s\n%.2f%%", n.ID, n.Mean)))
		if isFlagged[n.ID] {
			attrs += ", style=filled, fillcolor=red"
		}

		fmt.Fprintf(&b, "  %s [%s];\n", strconv.Quote(n.ID), attrs)
	}

	for _, l := range g.Links {
		fmt.Fprintf(&b, "  %s -> %s;\n", strconv.Quote(l.Source), strconv.Quote(l.Target))
	}

	b.WriteString("}\n")

	return b.String()
}
