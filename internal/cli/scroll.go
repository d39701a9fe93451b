package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/hazeltoft/browsercore/internal/ipc"
	"github.com/spf13/cobra"
)

var scrollCmd = &cobra.Command{
	Use:   "scroll <ref> | --to x,y | --by x,y",
	Short: "Scroll to element or position",
	Long: `Scrolls to an element, absolute position, or by an offset.

Three scroll modes:
  1. Element mode: scroll the element identified by ref into the center of
     the viewport
  2. Absolute mode: scroll to an exact position on the page
  3. Relative mode: scroll by an offset from the current position

Coordinates are specified as x,y where x is horizontal (0 = left edge) and
y is vertical (0 = top edge).

Examples:
  scroll e20                  # scroll element into view
  scroll --to 0,0             # scroll to top-left
  scroll --by 0,500           # scroll down 500px

Error cases:
  - "unknown ref" - the ref is stale, take a new snapshot
  - "invalid --to coordinates" - coordinates not in x,y format
  - "provide a ref, --to x,y, or --by x,y" - no mode specified`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScroll,
}

func init() {
	scrollCmd.Flags().String("to", "", "Scroll to absolute position (x,y)")
	scrollCmd.Flags().String("by", "", "Scroll by offset (x,y)")
	rootCmd.AddCommand(scrollCmd)
}

func runScroll(cmd *cobra.Command, args []string) error {
	if !execFactory.IsDaemonRunning() {
		return outputError("daemon not running. Start with: browserctl start")
	}

	toCoords, _ := cmd.Flags().GetString("to")
	byCoords, _ := cmd.Flags().GetString("by")

	exec, err := execFactory.NewExecutor()
	if err != nil {
		return outputError(err.Error())
	}
	defer exec.Close()

	var params ipc.InteractParams

	switch {
	case toCoords != "":
		x, y, err := parseCoords(toCoords)
		if err != nil {
			return outputError(fmt.Sprintf("invalid --to coordinates: %v", err))
		}
		params.Mode, params.X, params.Y = "to", x, y
	case byCoords != "":
		x, y, err := parseCoords(byCoords)
		if err != nil {
			return outputError(fmt.Sprintf("invalid --by coordinates: %v", err))
		}
		params.Mode, params.X, params.Y = "by", x, y
	case len(args) == 1:
		params.Mode, params.Ref = "element", args[0]
	default:
		return outputError("provide a ref, --to x,y, or --by x,y")
	}

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return outputError(err.Error())
	}

	resp, err := exec.Execute(ipc.Request{Cmd: "scroll", Params: paramsJSON})
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

// parseCoords parses a "x,y" string into integers.
func parseCoords(s string) (int, int, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected x,y format")
	}
	x, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid x coordinate: %v", err)
	}
	y, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid y coordinate: %v", err)
	}
	return x, y, nil
}
