package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hazeltoft/browsercore/internal/ipc"
	"github.com/spf13/cobra"
)

var navigateCmd = &cobra.Command{
	Use:   "navigate <url>",
	Short: "Navigate to URL",
	Long: `Navigates the current page to the specified URL and waits for the
daemon to resolve the resulting page context.

URL protocol auto-detection:
  - URLs without a protocol get https:// added automatically
  - localhost, 127.0.0.1, and 0.0.0.0 get http:// (local development)
  - Explicit protocols (http://, https://, file://) are preserved

Examples:
  navigate example.com                    # https://example.com
  navigate localhost:3000                 # http://localhost:3000
  navigate http://insecure-site.com       # protocol preserved

Response:
  {"ok": true, "url": "https://example.com/", "title": "Example Domain"}

Error cases:
  - "net::ERR_NAME_NOT_RESOLVED" - domain does not exist
  - "net::ERR_CONNECTION_REFUSED" - server not responding
  - "daemon not running" - start daemon first with: browserctl start`,
	Args: cobra.ExactArgs(1),
	RunE: runNavigate,
}

func init() {
	rootCmd.AddCommand(navigateCmd)
}

// normalizeURL adds protocol to URL if missing.
// Uses http:// for localhost/127.0.0.1/0.0.0.0, https:// otherwise.
func normalizeURL(url string) string {
	if strings.Contains(url, "://") {
		return url
	}

	lower := strings.ToLower(url)
	if strings.HasPrefix(lower, "localhost") ||
		strings.HasPrefix(lower, "127.0.0.1") ||
		strings.HasPrefix(lower, "0.0.0.0") {
		return "http://" + url
	}

	return "https://" + url
}

func runNavigate(cmd *cobra.Command, args []string) error {
	t := startTimer("navigate")
	defer t.log()

	if !execFactory.IsDaemonRunning() {
		return outputError("daemon not running. Start with: browserctl start")
	}

	url := normalizeURL(args[0])
	debugParam("url=%q", url)

	exec, err := execFactory.NewExecutor()
	if err != nil {
		return outputError(err.Error())
	}
	defer exec.Close()

	params, err := json.Marshal(ipc.NavigateParams{URL: url})
	if err != nil {
		return outputError(err.Error())
	}

	debugRequest("navigate", fmt.Sprintf("url=%q", url))
	ipcStart := time.Now()

	resp, err := exec.Execute(ipc.Request{Cmd: "navigate", Params: params})

	debugResponse(err == nil && resp.OK, len(resp.Data), time.Since(ipcStart))

	if err != nil {
		return outputError(err.Error())
	}

	if !resp.OK {
		return outputError(resp.Error)
	}

	var status ipc.StatusData
	if err := json.Unmarshal(resp.Data, &status); err != nil {
		return outputError(err.Error())
	}

	if JSONOutput {
		result := map[string]any{
			"ok":    true,
			"url":   status.URL,
			"title": status.Title,
		}
		return outputJSON(os.Stdout, result)
	}

	return outputSuccess(nil)
}
