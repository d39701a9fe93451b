package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hazeltoft/browsercore/internal/ipc"
	"github.com/spf13/cobra"
)

// Named selectCmd_ to avoid collision with Go's select keyword.
var selectCmd_ = &cobra.Command{
	Use:   "select <ref> <value>",
	Short: "Select a dropdown option",
	Long: `Selects an option in the native HTML <select> element identified by
ref. value must match the option's value attribute, not its display text.

Only works with native <select> elements. For custom JavaScript dropdowns
use click and key commands instead. Dispatches a 'change' event after
selection.

Example:
  select e7 "AU"`,
	Args: cobra.ExactArgs(2),
	RunE: runSelect,
}

func init() {
	rootCmd.AddCommand(selectCmd_)
}

func runSelect(cmd *cobra.Command, args []string) error {
	t := startTimer("select")
	defer t.log()

	if !execFactory.IsDaemonRunning() {
		return outputError("daemon not running. Start with: browserctl start")
	}

	ref, value := args[0], args[1]
	debugParam("ref=%q value=%q", ref, value)

	exec, err := execFactory.NewExecutor()
	if err != nil {
		return outputError(err.Error())
	}
	defer exec.Close()

	params, err := json.Marshal(ipc.InteractParams{Ref: ref, Value: value})
	if err != nil {
		return outputError(err.Error())
	}

	debugRequest("select", fmt.Sprintf("ref=%q value=%q", ref, value))
	ipcStart := time.Now()

	resp, err := exec.Execute(ipc.Request{Cmd: "select", Params: params})

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
