package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hazeltoft/browsercore/internal/ipc"
	"github.com/spf13/cobra"
)

var focusCmd = &cobra.Command{
	Use:   "focus <ref>",
	Short: "Focus an element",
	Long:  "Focuses the element identified by ref, a short identifier assigned by the most recent snapshot.",
	Args:  cobra.ExactArgs(1),
	RunE:  runFocus,
}

func init() {
	rootCmd.AddCommand(focusCmd)
}

func runFocus(cmd *cobra.Command, args []string) error {
	t := startTimer("focus")
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
	defer func() { _ = exec.Close() }()

	params, err := json.Marshal(ipc.InteractParams{Ref: ref})
	if err != nil {
		return outputError(err.Error())
	}

	debugRequest("focus", fmt.Sprintf("ref=%q", ref))
	ipcStart := time.Now()

	resp, err := exec.Execute(ipc.Request{Cmd: "focus", Params: params})

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

	return outputSuccess(nil)
}
