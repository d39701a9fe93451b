package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/hazeltoft/browsercore/internal/ipc"
	"github.com/spf13/cobra"
)

var clickCmd = &cobra.Command{
	Use:   "click <ref>",
	Short: "Click an element",
	Long: `Clicks the element identified by ref, a short identifier assigned by
the most recent snapshot (e.g. "e12"). Refs are how every interact command
addresses elements: take a snapshot first, then click, focus, type, select,
or scroll against the ref it reports.

Dispatches a CDP mousePressed/mouseReleased pair (left button, one click)
at the center of the element's content box. The element is not scrolled
into view first, and no check is made for another element covering it.

Response:
  {"ok": true}

Error cases:
  - "unknown ref: e12" - the ref is stale, take a new snapshot
  - "daemon not running" - start daemon first with: browserctl start`,
	Args: cobra.ExactArgs(1),
	RunE: runClick,
}

func init() {
	rootCmd.AddCommand(clickCmd)
}

func runClick(cmd *cobra.Command, args []string) error {
	t := startTimer("click")
	defer t.log()

	if !execFactory.IsDaemonRunning() {
		return outputError("daemon not running. Start with: browserctl start")
	}

	ref := args[0]
	debugParam("ref=%q", ref)

	exec, err := execFactory.NewExecutor()
	if err != nil {
		return outputError(err.Error())
	}
	defer exec.Close()

	params, err := json.Marshal(ipc.InteractParams{Ref: ref})
	if err != nil {
		return outputError(err.Error())
	}

	debugRequest("click", fmt.Sprintf("ref=%q", ref))
	ipcStart := time.Now()

	resp, err := exec.Execute(ipc.Request{Cmd: "click", Params: params})

	debugResponse(err == nil && resp.OK, len(resp.Data), time.Since(ipcStart))

	if err != nil {
		return outputError(err.Error())
	}

	if !resp.OK {
		if isUnknownRefError(resp.Error) {
			return outputNotice("unknown ref, take a new snapshot")
		}
		return outputError(resp.Error)
	}

	if JSONOutput {
		result := map[string]any{"ok": true}
		if len(resp.Data) > 0 {
			var data map[string]any
			if err := json.Unmarshal(resp.Data, &data); err == nil {
				if warning, ok := data["warning"].(string); ok {
					result["warning"] = warning
				}
			}
		}
		return outputJSON(os.Stdout, result)
	}

	return outputSuccess(nil)
}
