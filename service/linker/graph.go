package linker

import (
	"fmt"
	"sort"
	"strings"
)

// Graph is the rendering view of a report: the target plus every
// counterparty whose score reaches the edge threshold. The threshold only
// filters what is drawn; it does not change any score.
type Graph struct {
	Nodes []Node      `json:"nodes"`
	Edges []Edge      `json:"edges"`
	Stats *GraphStats `json:"stats,omitempty"`
}

type Node struct {
	ID   string `json:"id"`
	Type string `json:"type"` // "target", "funder" or "wallet"
}

type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Score  int    `json:"score"`
}

type GraphStats struct {
	TotalNodes int `json:"total_nodes"`
	TotalEdges int `json:"total_edges"`
	Threshold  int `json:"threshold"`
}

// BuildGraph connects target to every counterparty with score >= threshold.
// Edges are ordered by descending score, then address.
func BuildGraph(target string, links map[string]*LinkStats, threshold int) *Graph {
	g := &Graph{
		Nodes: []Node{{ID: target, Type: "target"}},
		Edges: []Edge{},
	}

	addrs := make([]string, 0, len(links))
	for addr, s := range links {
		if s.Score() >= threshold {
			addrs = append(addrs, addr)
		}
	}
	sort.Slice(addrs, func(i, j int) bool {
		si, sj := links[addrs[i]].Score(), links[addrs[j]].Score()
		if si != sj {
			return si > sj
		}
		return addrs[i] < addrs[j]
	})

	for _, addr := range addrs {
		kind := "wallet"
		if links[addr].FundedBySameSource {
			kind = "funder"
		}
		g.Nodes = append(g.Nodes, Node{ID: addr, Type: kind})
		g.Edges = append(g.Edges, Edge{Source: target, Target: addr, Score: links[addr].Score()})
	}

	g.Stats = &GraphStats{
		TotalNodes: len(g.Nodes),
		TotalEdges: len(g.Edges),
		Threshold:  threshold,
	}
	return g
}

// DOT renders the graph in Graphviz format, edges labelled with their score.
func (g *Graph) DOT() string {
	var b strings.Builder
	b.WriteString("graph walletlink {\n")
	b.WriteString("  node [shape=box, fontname=\"monospace\"];\n")
	for _, n := range g.Nodes {
		attrs := ""
		switch n.Type {
		case "target":
			attrs = ", style=filled, fillcolor=lightblue"
		case "funder":
			attrs = ", style=filled, fillcolor=orange"
		}
		fmt.Fprintf(&b, "  %q [label=%q%s];\n", n.ID, shortAddress(n.ID), attrs)
	}
	for _, e := range g.Edges {
		fmt.Fprintf(&b, "  %q -- %q [label=\"%d\", penwidth=%.1f];\n",
			e.Source, e.Target, e.Score, 1+float64(e.Score)/25)
	}
	b.WriteString("}\n")
	return b.String()
}

// shortAddress abbreviates long base58 addresses to head...tail.
func shortAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:4] + "..." + addr[len(addr)-4:]
}
