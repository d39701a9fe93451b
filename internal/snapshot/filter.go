package snapshot

// Profile selects the second-stage node filter applied after the baseline
// ignored/role-noise pass.
type Profile string

const (
	ProfileInteractive Profile = "interactive"
	ProfileForms       Profile = "forms"
	ProfileNone        Profile = "none"
)

var noiseRoles = map[string]bool{
	"none":          true,
	"generic":       true,
	"InlineTextBox": true,
}

var interactiveRoles = map[string]bool{
	"button":            true,
	"link":               true,
	"textbox":            true,
	"searchbox":          true,
	"spinbutton":         true,
	"checkbox":           true,
	"radio":              true,
	"combobox":           true,
	"listbox":            true,
	"option":             true,
	"menuitem":           true,
	"menuitemcheckbox":   true,
	"menuitemradio":      true,
	"tab":                true,
	"slider":             true,
	"switch":             true,
}

var formRoles = map[string]bool{
	"textbox":    true,
	"searchbox":  true,
	"spinbutton": true,
	"checkbox":   true,
	"radio":      true,
	"combobox":   true,
	"listbox":    true,
	"option":     true,
	"switch":     true,
	"button":     true,
}

// filterBaseline drops nodes that are never meaningful in any snapshot:
// ignored nodes, pure layout roles, and unnamed/valueless static text.
func filterBaseline(nodes []internalNode) []internalNode {
	out := make([]internalNode, 0, len(nodes))
	for _, n := range nodes {
		if n.Ignored {
			continue
		}
		if noiseRoles[n.Role] {
			continue
		}
		if n.Role == "StaticText" && n.Name == "" && n.Value == "" {
			continue
		}
		out = append(out, n)
	}
	return out
}

// filterProfile applies the caller-selected profile on top of the baseline
// pass. ProfileNone keeps everything that survived the baseline pass.
func filterProfile(nodes []internalNode, profile Profile) []internalNode {
	switch profile {
	case ProfileInteractive:
		return filterRoles(nodes, interactiveRoles)
	case ProfileForms:
		return filterRoles(nodes, formRoles)
	default:
		return nodes
	}
}

func filterRoles(nodes []internalNode, allow map[string]bool) []internalNode {
	out := make([]internalNode, 0, len(nodes))
	for _, n := range nodes {
		if allow[n.Role] {
			out = append(out, n)
		}
	}
	return out
}
