package snapshot

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Serialize renders a full snapshot in the given format, appending a
// truncation marker when the snapshot was capped.
func Serialize(snap Snapshot, format Format) string {
	var body string
	switch format {
	case FormatJSON:
		body = serializeSnapshotJSON(snap)
	case FormatCompact:
		body = serializeSnapshotCompact(snap)
	default:
		body = serializeSnapshotText(snap)
	}

	if !snap.Truncated {
		return body
	}
	if body == "" {
		return truncatedMarker
	}
	return body + "\n" + truncatedMarker
}

func serializeSnapshotText(snap Snapshot) string {
	lines := make([]string, len(snap.Nodes))
	for i, n := range snap.Nodes {
		lines[i] = serializeNodeText(n, n.Depth)
	}
	return strings.Join(lines, "\n")
}

func serializeNodeText(n Node, depth int) string {
	var b strings.Builder
	b.WriteString(strings.Repeat("  ", depth))
	fmt.Fprintf(&b, "%s:%s", n.Ref, n.Role)
	if n.Name != "" {
		fmt.Fprintf(&b, " \"%s\"", escapeQuotes(n.Name))
	}
	if n.Value != "" {
		fmt.Fprintf(&b, " val=\"%s\"", escapeQuotes(n.Value))
	}
	if n.Focused {
		b.WriteString(" [focused]")
	}
	if n.Disabled {
		b.WriteString(" [disabled]")
	}
	return b.String()
}

func serializeSnapshotCompact(snap Snapshot) string {
	lines := make([]string, len(snap.Nodes))
	for i, n := range snap.Nodes {
		lines[i] = serializeNodeCompact(n)
	}
	return strings.Join(lines, "\n")
}

func serializeNodeCompact(n Node) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s:%s", n.Ref, n.Role)
	if n.Name != "" {
		fmt.Fprintf(&b, " \"%s\"", escapeQuotes(n.Name))
	}
	if n.Value != "" {
		fmt.Fprintf(&b, " val=\"%s\"", escapeQuotes(n.Value))
	}
	if n.Focused {
		b.WriteString(" *")
	}
	if n.Disabled {
		b.WriteString(" -")
	}
	return b.String()
}

func serializeSnapshotJSON(snap Snapshot) string {
	out, err := json.MarshalIndent(snap.Nodes, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(out)
}

func serializeNodeJSON(n Node) string {
	out, err := json.Marshal(n)
	if err != nil {
		return "{}"
	}
	return string(out)
}

func escapeQuotes(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}
