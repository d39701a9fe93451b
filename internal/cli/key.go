package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hazeltoft/browsercore/internal/ipc"
	"github.com/spf13/cobra"
)

var keyCmd = &cobra.Command{
	Use:   "key <key>",
	Short: "Send a keyboard key",
	Long: `Sends a keyboard key to the currently focused element.

Supported special keys:
  Navigation:    Enter, Tab, Escape, Space
  Editing:       Backspace, Delete
  Arrows:        ArrowUp, ArrowDown, ArrowLeft, ArrowRight
  Page:          Home, End, PageUp, PageDown

Single character keys (a-z, A-Z, 0-9, punctuation) can be used directly.

Modifier flags (can be combined):
  --ctrl   Hold Ctrl modifier (Linux)
  --meta   Hold Meta/Cmd modifier (macOS)
  --alt    Hold Alt/Option modifier
  --shift  Hold Shift modifier

Examples:
  key Enter
  key a --ctrl                 # Select all (Linux)
  key z --meta --shift         # Redo (macOS)`,
	Args: cobra.ExactArgs(1),
	RunE: runKey,
}

func init() {
	keyCmd.Flags().Bool("ctrl", false, "Hold Ctrl modifier")
	keyCmd.Flags().Bool("alt", false, "Hold Alt modifier")
	keyCmd.Flags().Bool("shift", false, "Hold Shift modifier")
	keyCmd.Flags().Bool("meta", false, "Hold Meta/Command modifier")
	rootCmd.AddCommand(keyCmd)
}

func runKey(cmd *cobra.Command, args []string) error {
	t := startTimer("key")
	defer t.log()

	if !execFactory.IsDaemonRunning() {
		return outputError("daemon not running. Start with: browserctl start")
	}

	ctrl, _ := cmd.Flags().GetBool("ctrl")
	alt, _ := cmd.Flags().GetBool("alt")
	shift, _ := cmd.Flags().GetBool("shift")
	meta, _ := cmd.Flags().GetBool("meta")
	key := args[0]

	debugParam("key=%q ctrl=%v alt=%v shift=%v meta=%v", key, ctrl, alt, shift, meta)

	exec, err := execFactory.NewExecutor()
	if err != nil {
		return outputError(err.Error())
	}
	defer func() { _ = exec.Close() }()

	var ip ipc.InteractParams
	ip.Key = key
	ip.Modifiers.Ctrl = ctrl
	ip.Modifiers.Alt = alt
	ip.Modifiers.Shift = shift
	ip.Modifiers.Meta = meta

	params, err := json.Marshal(ip)
	if err != nil {
		return outputError(err.Error())
	}

	debugRequest("key", fmt.Sprintf("key=%q ctrl=%v alt=%v shift=%v meta=%v", key, ctrl, alt, shift, meta))
	ipcStart := time.Now()

	resp, err := exec.Execute(ipc.Request{Cmd: "key", Params: params})

	debugResponse(err == nil && resp.OK, len(resp.Data), time.Since(ipcStart))

	if err != nil {
		return outputError(err.Error())
	}

	if !resp.OK {
		return outputError(resp.Error)
	}

	return outputSuccess(nil)
}
