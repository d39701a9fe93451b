package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hazeltoft/browsercore/internal/ipc"
	"github.com/spf13/cobra"
)

var typeCmd = &cobra.Command{
	Use:   "type <ref> <text>",
	Short: "Type text into an element",
	Long: `Types text into the element identified by ref, using CDP keyboard
input simulation. The element is focused first.

Flags:
  --key <key>     Send a key after typing (e.g., Enter, Tab)
  --clear         Clear existing content before typing (select all + delete)

Examples:
  type e12 "john_doe"
  type e14 "new@email.com" --clear
  type e9 "my query" --key Enter

Error cases:
  - "unknown ref: e12" - the ref is stale, take a new snapshot
  - "daemon not running" - start daemon first with: browserctl start`,
	Args: cobra.ExactArgs(2),
	RunE: runType,
}

func init() {
	typeCmd.Flags().String("key", "", "Key to send after typing (e.g., Enter)")
	typeCmd.Flags().Bool("clear", false, "Clear existing content before typing")
	rootCmd.AddCommand(typeCmd)
}

func runType(cmd *cobra.Command, args []string) error {
	t := startTimer("type")
	defer t.log()

	if !execFactory.IsDaemonRunning() {
		return outputError("daemon not running. Start with: browserctl start")
	}

	key, _ := cmd.Flags().GetString("key")
	clear, _ := cmd.Flags().GetBool("clear")
	ref, text := args[0], args[1]

	// Note: don't log text content for security reasons
	debugParam("ref=%q key=%q clear=%v textLen=%d", ref, key, clear, len(text))

	exec, err := execFactory.NewExecutor()
	if err != nil {
		return outputError(err.Error())
	}
	defer func() { _ = exec.Close() }()

	params, err := json.Marshal(ipc.InteractParams{Ref: ref, Text: text, Key: key, Clear: clear})
	if err != nil {
		return outputError(err.Error())
	}

	debugRequest("type", fmt.Sprintf("ref=%q key=%q clear=%v", ref, key, clear))
	ipcStart := time.Now()

	resp, err := exec.Execute(ipc.Request{Cmd: "type", Params: params})

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
