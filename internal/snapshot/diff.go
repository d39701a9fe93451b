package snapshot

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Diff is the result of comparing two snapshots of the same tab. Added and
// Changed entries carry the current-snapshot node (fresh refs); Removed
// entries carry the prev-snapshot node.
type Diff struct {
	Added   []Node `json:"added"`
	Changed []Node `json:"changed"`
	Removed []Node `json:"removed"`
}

// HasChanges reports whether any of Added/Changed/Removed is non-empty.
func (d Diff) HasChanges() bool {
	return len(d.Added) > 0 || len(d.Changed) > 0 || len(d.Removed) > 0
}

type diffKey struct {
	role          string
	name          string
	backendNodeID int64
}

func keyOf(n Node) diffKey {
	return diffKey{role: n.Role, name: n.Name, backendNodeID: n.BackendNodeID}
}

// ComputeDiff compares prev against current, keying nodes by
// (role, name, backendNodeId).
func ComputeDiff(prev, current Snapshot) Diff {
	prevByKey := make(map[diffKey]Node, len(prev.Nodes))
	for _, n := range prev.Nodes {
		prevByKey[keyOf(n)] = n
	}
	currentByKey := make(map[diffKey]Node, len(current.Nodes))
	for _, n := range current.Nodes {
		currentByKey[keyOf(n)] = n
	}

	var diff Diff
	for _, n := range current.Nodes {
		k := keyOf(n)
		p, ok := prevByKey[k]
		if !ok {
			diff.Added = append(diff.Added, n)
			continue
		}
		if p.Value != n.Value || p.Focused != n.Focused || p.Disabled != n.Disabled {
			diff.Changed = append(diff.Changed, n)
		}
	}
	for _, n := range prev.Nodes {
		if _, ok := currentByKey[keyOf(n)]; !ok {
			diff.Removed = append(diff.Removed, n)
		}
	}
	return diff
}

// SerializeDiff renders a Diff as pretty JSON of the three lists, or as
// three labeled sections of prefixed compact lines.
func SerializeDiff(d Diff, format Format) string {
	if format == FormatJSON {
		out, err := json.MarshalIndent(d, "", "  ")
		if err != nil {
			return "{}"
		}
		return string(out)
	}

	var b strings.Builder
	writeSection(&b, "added", d.Added, "+")
	b.WriteString("\n")
	writeSection(&b, "changed", d.Changed, "~")
	b.WriteString("\n")
	writeSection(&b, "removed", d.Removed, "-")
	return strings.TrimRight(b.String(), "\n")
}

func writeSection(b *strings.Builder, label string, nodes []Node, prefix string) {
	fmt.Fprintf(b, "%s:\n", label)
	if len(nodes) == 0 {
		b.WriteString("(none)\n")
		return
	}
	for _, n := range nodes {
		fmt.Fprintf(b, "%s %s\n", prefix, serializeNodeCompact(n))
	}
}

// CompactLabel renders the "<ref>:<role>" label used by Watcher diffs,
// with the quoted name appended when non-empty.
func CompactLabel(n Node) string {
	if n.Name == "" {
		return fmt.Sprintf("%s:%s", n.Ref, n.Role)
	}
	return fmt.Sprintf("%s:%s \"%s\"", n.Ref, n.Role, escapeQuotes(n.Name))
}
