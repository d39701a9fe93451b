// Package snapshot builds filtered, depth-annotated, ref-bearing views of a
// page's accessibility tree, and serializes and diffs them.
package snapshot

// axNode mirrors the shape of one CDP Accessibility.AXNode, decoded from
// Accessibility.getFullAXTree the way the teacher's daemon decodes
// Runtime/Network events into an anonymous struct (see
// internal/daemon/daemon.go's parseConsoleEvent/parseRequestEvent) before
// converting to an internal representation.
type axNode struct {
	NodeID           string   `json:"nodeId"`
	Ignored          bool     `json:"ignored"`
	Role             *axValue `json:"role"`
	Name             *axValue `json:"name"`
	Value            *axValue `json:"value"`
	Description      *axValue `json:"description"`
	Properties       []axProperty `json:"properties"`
	ChildIDs         []string `json:"childIds"`
	BackendDOMNodeID int64    `json:"backendDOMNodeId"`
}

type axValue struct {
	Type  string `json:"type"`
	Value any    `json:"value"`
}

type axProperty struct {
	Name  string  `json:"name"`
	Value axValue `json:"value"`
}

func (v *axValue) str() string {
	if v == nil || v.Value == nil {
		return ""
	}
	if s, ok := v.Value.(string); ok {
		return s
	}
	return ""
}

func (n axNode) boolProperty(name string) bool {
	for _, p := range n.Properties {
		if p.Name != name {
			continue
		}
		b, _ := p.Value.Value.(bool)
		return b
	}
	return false
}

// axTreeResult is the decoded Accessibility.getFullAXTree result.
type axTreeResult struct {
	Nodes []axNode `json:"nodes"`
}

// internalNode is the engine's working representation of one accessibility
// node, after BFS depth assignment.
type internalNode struct {
	NodeID           string
	BackendNodeID    int64
	Role             string
	Name             string
	Value            string
	Description      string
	Focused          bool
	Disabled         bool
	Ignored          bool
	Depth            int
	ChildIDs         []string
}

// buildInternalNodes converts the raw AXNode list into internalNodes with a
// BFS-computed depth from the detected roots: nodes never referenced as
// another node's child. If no root is detectable, the first node in the
// list stands in as the sole root, mirroring the observer pattern's
// build-node-map-then-walk move of treating a CDP-returned document as a
// tree even when the root isn't explicitly flagged.
func buildInternalNodes(nodes []axNode) []internalNode {
	byID := make(map[string]axNode, len(nodes))
	isChild := make(map[string]bool, len(nodes))
	order := make([]string, 0, len(nodes))

	for _, n := range nodes {
		byID[n.NodeID] = n
		order = append(order, n.NodeID)
		for _, c := range n.ChildIDs {
			isChild[c] = true
		}
	}

	var roots []string
	for _, id := range order {
		if !isChild[id] {
			roots = append(roots, id)
		}
	}
	if len(roots) == 0 && len(order) > 0 {
		roots = []string{order[0]}
	}

	depth := make(map[string]int, len(nodes))
	visited := make(map[string]bool, len(nodes))
	queue := make([]string, 0, len(nodes))
	for _, r := range roots {
		if visited[r] {
			continue
		}
		visited[r] = true
		depth[r] = 0
		queue = append(queue, r)
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		n, ok := byID[id]
		if !ok {
			continue
		}
		for _, c := range n.ChildIDs {
			if visited[c] {
				continue
			}
			visited[c] = true
			depth[c] = depth[id] + 1
			queue = append(queue, c)
		}
	}

	out := make([]internalNode, 0, len(nodes))
	for _, id := range order {
		n := byID[id]
		d, ok := depth[id]
		if !ok {
			// Unreachable from any detected root (disconnected fragment);
			// treat as a top-level node so it is not silently dropped.
			d = 0
		}
		out = append(out, internalNode{
			NodeID:        n.NodeID,
			BackendNodeID: n.BackendDOMNodeID,
			Role:          n.Role.str(),
			Name:          n.Name.str(),
			Value:         n.Value.str(),
			Description:   n.Description.str(),
			Focused:       n.boolProperty("focused"),
			Disabled:      n.boolProperty("disabled"),
			Ignored:       n.Ignored,
			Depth:         d,
			ChildIDs:      n.ChildIDs,
		})
	}
	return out
}
