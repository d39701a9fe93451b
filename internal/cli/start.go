package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/hazeltoft/browsercore/internal/daemon"
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start daemon and browser",
	Long:  "Starts the browsercored daemon, which launches a browser, begins capturing CDP events, and listens on its Unix socket.",
	RunE:  runStart,
}

var (
	startHeadless bool
	startPort     int
)

func init() {
	startCmd.Flags().BoolVar(&startHeadless, "headless", false, "Run browser in headless mode")
	startCmd.Flags().IntVar(&startPort, "port", 9222, "CDP port for browser")
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	t := startTimer("start")
	defer t.log()

	if execFactory.IsDaemonRunning() {
		_ = outputError("daemon is already running")
		outputHint("use 'browserctl stop' to stop the daemon, or 'browserctl stop --force' to force cleanup")
		return printedError{err: fmt.Errorf("daemon is already running")}
	}

	debugParam("headless=%v port=%d", startHeadless, startPort)

	cfg := daemon.DefaultConfig()
	cfg.Headless = startHeadless
	cfg.Port = startPort

	d := daemon.New(cfg)

	if JSONOutput {
		_ = outputSuccess(map[string]any{
			"message": "daemon starting",
			"port":    startPort,
		})
	} else {
		_ = outputSuccess(nil)
	}

	if err := d.Run(context.Background()); err != nil {
		outErr := outputError(err.Error())
		if strings.Contains(err.Error(), "port") || strings.Contains(err.Error(), "in use") {
			outputHint("use 'browserctl stop --force' to kill orphaned processes")
		}
		return outErr
	}

	return nil
}
