package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/hazeltoft/browsercore/internal/cli/format"
	"github.com/hazeltoft/browsercore/internal/ipc"
	"github.com/spf13/cobra"
)

var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "Show buffered network request entries",
	Long: `Shows network requests captured by the daemon's debug buffer since
the last "clear network" (or daemon start).

Flags:
  --status PATTERN  Filter by HTTP status: exact (200), range (200-299), or
                     wildcard (4xx). Repeatable.
  --method METHOD   Filter by HTTP method, comma-separated
  --failed          Only entries that recorded a network-level error
  --head N          Return only the first N entries
  --tail N          Return only the last N entries
  --range N-M       Return entries from index N up to, not including, M (0-indexed)

Error cases:
  - "daemon not running" - start daemon first with: browserctl start`,
	RunE: runNetworkDefault,
}

func init() {
	networkCmd.Flags().StringSlice("status", nil, "Filter by status pattern (200, 200-299, 4xx)")
	networkCmd.Flags().StringSlice("method", nil, "Filter by HTTP method")
	networkCmd.Flags().Bool("failed", false, "Only entries with a network-level error")
	networkCmd.Flags().Int("head", 0, "Return first N entries")
	networkCmd.Flags().Int("tail", 0, "Return last N entries")
	networkCmd.Flags().String("range", "", "Return entries N-M (0-indexed start, exclusive end)")
	rootCmd.AddCommand(networkCmd)
}

func runNetworkDefault(cmd *cobra.Command, args []string) error {
	if !execFactory.IsDaemonRunning() {
		return outputError("daemon not running. Start with: browserctl start")
	}

	exec, err := execFactory.NewExecutor()
	if err != nil {
		return outputError(err.Error())
	}
	defer exec.Close()

	resp, err := exec.Execute(ipc.Request{Cmd: "network"})
	if err != nil {
		return outputError(err.Error())
	}
	if !resp.OK {
		return outputError(resp.Error)
	}

	var data ipc.NetworkData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return outputError(err.Error())
	}

	entries := data.Entries
	if cmd != nil {
		if patterns, _ := cmd.Flags().GetStringSlice("status"); len(patterns) > 0 {
			matchers, err := parseStatusPatterns(patterns)
			if err != nil {
				return outputError(err.Error())
			}
			entries = filterNetworkByStatus(entries, matchers)
		}
		if methods, _ := cmd.Flags().GetStringSlice("method"); len(methods) > 0 {
			entries = filterNetworkByMethod(entries, methods)
		}
		if failed, _ := cmd.Flags().GetBool("failed"); failed {
			entries = filterNetworkFailed(entries)
		}
		head, _ := cmd.Flags().GetInt("head")
		tail, _ := cmd.Flags().GetInt("tail")
		rng, _ := cmd.Flags().GetString("range")
		limited, err := applyNetworkLimiting(entries, head, tail, rng)
		if err != nil {
			return outputError(err.Error())
		}
		entries = limited
	}

	if JSONOutput {
		return outputSuccess(map[string]any{"count": len(entries), "requests": entries})
	}
	return format.Network(os.Stdout, entries, format.NewOutputOptions(JSONOutput, NoColor))
}

// statusMatcher matches an HTTP status code against an exact value, a
// wildcard class (4xx), or an inclusive range (200-299).
type statusMatcher struct {
	exact      int
	wildcard   int
	rangeLow   int
	rangeHigh  int
	isRange    bool
	isWildcard bool
}

func (m statusMatcher) matches(status int) bool {
	switch {
	case m.isWildcard:
		return status/100 == m.wildcard
	case m.isRange:
		return status >= m.rangeLow && status <= m.rangeHigh
	default:
		return status == m.exact
	}
}

func parseStatusPatterns(patterns []string) ([]statusMatcher, error) {
	var matchers []statusMatcher
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		switch {
		case len(p) == 3 && strings.HasSuffix(p, "xx"):
			digit, err := strconv.Atoi(p[:1])
			if err != nil || digit < 1 || digit > 5 {
				return nil, fmt.Errorf("invalid wildcard status pattern: %s", p)
			}
			matchers = append(matchers, statusMatcher{isWildcard: true, wildcard: digit})
		case strings.Contains(p, "-"):
			parts := strings.SplitN(p, "-", 2)
			low, err1 := strconv.Atoi(parts[0])
			high, err2 := strconv.Atoi(parts[1])
			if err1 != nil || err2 != nil {
				return nil, fmt.Errorf("invalid status range: %s", p)
			}
			matchers = append(matchers, statusMatcher{isRange: true, rangeLow: low, rangeHigh: high})
		default:
			exact, err := strconv.Atoi(p)
			if err != nil {
				return nil, fmt.Errorf("invalid status pattern: %s", p)
			}
			matchers = append(matchers, statusMatcher{exact: exact})
		}
	}
	return matchers, nil
}

func filterNetworkByStatus(entries []ipc.NetworkEntry, matchers []statusMatcher) []ipc.NetworkEntry {
	var out []ipc.NetworkEntry
	for _, e := range entries {
		for _, m := range matchers {
			if m.matches(e.Status) {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

func filterNetworkByMethod(entries []ipc.NetworkEntry, methods []string) []ipc.NetworkEntry {
	var out []ipc.NetworkEntry
	for _, e := range entries {
		if matchesStringSlice(e.Method, methods) {
			out = append(out, e)
		}
	}
	return out
}

func filterNetworkFailed(entries []ipc.NetworkEntry) []ipc.NetworkEntry {
	var out []ipc.NetworkEntry
	for _, e := range entries {
		if e.Error != "" {
			out = append(out, e)
		}
	}
	return out
}

func matchesStringSlice(value string, slice []string) bool {
	for _, s := range slice {
		if strings.EqualFold(value, s) {
			return true
		}
	}
	return false
}

func applyNetworkLimiting(entries []ipc.NetworkEntry, head, tail int, rangeStr string) ([]ipc.NetworkEntry, error) {
	if head > 0 {
		if head > len(entries) {
			head = len(entries)
		}
		return entries[:head], nil
	}
	if tail > 0 {
		if tail > len(entries) {
			tail = len(entries)
		}
		return entries[len(entries)-tail:], nil
	}
	if rangeStr != "" {
		parts := strings.SplitN(rangeStr, "-", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid range format: %s (expected N-M)", rangeStr)
		}
		start, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, fmt.Errorf("invalid range start: %v", err)
		}
		end, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid range end: %v", err)
		}
		if start < 0 {
			start = 0
		}
		if end > len(entries) {
			end = len(entries)
		}
		if start >= end {
			return nil, nil
		}
		return entries[start:end], nil
	}
	return entries, nil
}
