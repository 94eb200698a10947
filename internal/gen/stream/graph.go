package stream

import (
	"fmt"
	"strings"
)

// Graph renders the DAG below n, one node per line. Nodes reachable along
// more than one path are expanded once and referenced afterwards.
func Graph(n *Node) string {
	var b strings.Builder
	ids := map[*Node]int{}
	var walk func(n *Node, depth int)
	walk = func(n *Node, depth int) {
		indent := strings.Repeat("  ", depth)
		if id, ok := ids[n]; ok {
			fmt.Fprintf(&b, "%s^%d\n", indent, id)
			return
		}
		id := len(ids) + 1
		ids[n] = id
		label := n.Kind.String()
		if n.Name != "" {
			label = n.Name + " <" + label + ">"
		}
		if n.Detail != "" {
			label += " [" + n.Detail + "]"
		}
		fmt.Fprintf(&b, "%s#%d %s\n", indent, id, label)
		for _, in := range n.Inputs {
			walk(in, depth+1)
		}
	}
	if n != nil {
		walk(n, 0)
	}
	return b.String()
}

// Depth is the longest path from n to a leaf.
func Depth(n *Node) int {
	if n == nil {
		return 0
	}
	d := 0
	for _, in := range n.Inputs {
		if v := Depth(in); v > d {
			d = v
		}
	}
	return d + 1
}
