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

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Show buffered console log entries",
	Long: `Shows console log entries captured by the daemon's debug buffer since
the last "clear console" (or daemon start).

Flags:
  --type TYPE       Filter by log type (log, warning, error, debug, info), comma-separated
  --find TEXT       Only entries whose text contains TEXT (case-insensitive)
  --head N          Return only the first N entries
  --tail N          Return only the last N entries
  --range N-M       Return entries from index N up to, not including, M (0-indexed)

Error cases:
  - "no matches found" - --find text not present in any entry
  - "daemon not running" - start daemon first with: browserctl start`,
	RunE: runConsoleDefault,
}

func init() {
	consoleCmd.Flags().StringSlice("type", nil, "Filter by log type")
	consoleCmd.Flags().StringP("find", "f", "", "Search for text within log messages")
	consoleCmd.Flags().Int("head", 0, "Return first N entries")
	consoleCmd.Flags().Int("tail", 0, "Return last N entries")
	consoleCmd.Flags().String("range", "", "Return entries N-M (0-indexed start, exclusive end)")
	rootCmd.AddCommand(consoleCmd)
}

func runConsoleDefault(cmd *cobra.Command, args []string) error {
	if !execFactory.IsDaemonRunning() {
		return outputError("daemon not running. Start with: browserctl start")
	}

	exec, err := execFactory.NewExecutor()
	if err != nil {
		return outputError(err.Error())
	}
	defer exec.Close()

	resp, err := exec.Execute(ipc.Request{Cmd: "console"})
	if err != nil {
		return outputError(err.Error())
	}
	if !resp.OK {
		return outputError(resp.Error)
	}

	var data ipc.ConsoleData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return outputError(err.Error())
	}

	entries := data.Entries
	if cmd != nil {
		if types, _ := cmd.Flags().GetStringSlice("type"); len(types) > 0 {
			entries = filterConsoleByType(entries, types)
		}
		if find, _ := cmd.Flags().GetString("find"); find != "" {
			entries = filterConsoleByText(entries, find)
			if len(entries) == 0 {
				return outputNotice("no matches found")
			}
		}
		head, _ := cmd.Flags().GetInt("head")
		tail, _ := cmd.Flags().GetInt("tail")
		rng, _ := cmd.Flags().GetString("range")
		limited, err := applyConsoleLimiting(entries, head, tail, rng)
		if err != nil {
			return outputError(err.Error())
		}
		entries = limited
	}

	if JSONOutput {
		return outputSuccess(map[string]any{"count": len(entries), "logs": entries})
	}
	return format.Console(os.Stdout, entries, format.NewOutputOptions(JSONOutput, NoColor))
}

func filterConsoleByType(entries []ipc.ConsoleEntry, types []string) []ipc.ConsoleEntry {
	var out []ipc.ConsoleEntry
	for _, e := range entries {
		for _, t := range types {
			if strings.EqualFold(e.Type, t) {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

func filterConsoleByText(entries []ipc.ConsoleEntry, search string) []ipc.ConsoleEntry {
	search = strings.ToLower(search)
	var out []ipc.ConsoleEntry
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Text), search) {
			out = append(out, e)
		}
	}
	return out
}

// applyConsoleLimiting applies at most one of head/tail/range, in that
// priority order, to entries.
func applyConsoleLimiting(entries []ipc.ConsoleEntry, head, tail int, rangeStr string) ([]ipc.ConsoleEntry, error) {
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
