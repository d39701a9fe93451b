package cli

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/hazeltoft/browsercore/internal/cli/format"
	"github.com/hazeltoft/browsercore/internal/ipc"
	"github.com/spf13/cobra"
)

var screenshotCmd = &cobra.Command{
	Use:   "screenshot [path]",
	Short: "Capture a screenshot of the current page",
	Long: `Captures a JPEG screenshot of the current page's viewport. The daemon
writes it as screenshot-<epochMs>.jpg under its screenshots directory and
returns the path; pass path to also copy it there (the daemon's file is
kept) and report the copy's path instead.

Flags:
  --quality N   JPEG quality 1-100 (default 80)

Response:
  {"ok": true, "data": {"path": "/home/user/.local/state/browsercore/screenshots/screenshot-1753972252000.jpg"}}`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScreenshot,
}

func init() {
	screenshotCmd.Flags().Int("quality", 80, "JPEG quality 1-100")
	rootCmd.AddCommand(screenshotCmd)
}

func runScreenshot(cmd *cobra.Command, args []string) error {
	if !execFactory.IsDaemonRunning() {
		return outputError("daemon not running. Start with: browserctl start")
	}

	quality, _ := cmd.Flags().GetInt("quality")

	exec, err := execFactory.NewExecutor()
	if err != nil {
		return outputError(err.Error())
	}
	defer exec.Close()

	params, err := json.Marshal(ipc.ScreenshotParams{Quality: quality})
	if err != nil {
		return outputError(err.Error())
	}

	resp, err := exec.Execute(ipc.Request{Cmd: "screenshot", Params: params})
	if err != nil {
		return outputError(err.Error())
	}
	if !resp.OK {
		return outputError(resp.Error)
	}

	var data ipc.ScreenshotData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return outputError(err.Error())
	}

	finalPath := data.Path
	if len(args) == 1 {
		dest := args[0]
		if info, statErr := os.Stat(dest); statErr == nil && info.IsDir() {
			dest = filepath.Join(dest, filepath.Base(data.Path))
		}
		if err := copyFile(data.Path, dest); err != nil {
			return outputError(err.Error())
		}
		finalPath = dest
	}

	if JSONOutput {
		return outputSuccess(map[string]any{"path": finalPath})
	}
	return format.FilePath(os.Stdout, finalPath)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
