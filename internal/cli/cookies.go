package cli

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/hazeltoft/browsercore/internal/cli/format"
	"github.com/hazeltoft/browsercore/internal/ipc"
	"github.com/spf13/cobra"
)

var cookiesCmd = &cobra.Command{
	Use:   "cookies",
	Short: "List cookies for the current page",
	Long: `Lists cookies visible to the current page.

Flags:
  --domain DOMAIN   Filter by cookie domain (substring match)
  --name NAME       Filter by exact cookie name

Subcommands:
  cookies set <name> <value>   Set a cookie
  cookies delete <name>        Delete a cookie by name
  cookies clear                Delete every cookie in the browser`,
	RunE: runCookiesList,
}

var cookiesSetCmd = &cobra.Command{
	Use:   "set <name> <value>",
	Short: "Set a cookie",
	Long: `Sets a cookie on the current page's URL unless --url overrides it.

Flags:
  --domain DOMAIN
  --path PATH
  --secure
  --httponly
  --samesite Strict|Lax|None
  --max-age SECONDS`,
	Args: cobra.ExactArgs(2),
	RunE: runCookiesSet,
}

var cookiesDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a cookie",
	Long:  "Deletes the named cookie. Use --domain to disambiguate cookies with the same name on different domains.",
	Args:  cobra.ExactArgs(1),
	RunE:  runCookiesDelete,
}

var cookiesClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all cookies in the browser",
	RunE:  runCookiesClear,
}

func init() {
	cookiesCmd.Flags().String("domain", "", "Filter by cookie domain")
	cookiesCmd.Flags().String("name", "", "Filter by exact cookie name")

	cookiesSetCmd.Flags().String("url", "", "URL to scope the cookie to (defaults to the current page)")
	cookiesSetCmd.Flags().String("domain", "", "Cookie domain")
	cookiesSetCmd.Flags().String("path", "/", "Cookie path")
	cookiesSetCmd.Flags().Bool("secure", false, "Mark the cookie Secure")
	cookiesSetCmd.Flags().Bool("httponly", false, "Mark the cookie HttpOnly")
	cookiesSetCmd.Flags().String("samesite", "", "SameSite policy (Strict, Lax, None)")
	cookiesSetCmd.Flags().Int("max-age", 0, "Cookie lifetime in seconds (0 = session cookie)")

	cookiesDeleteCmd.Flags().String("domain", "", "Cookie domain, to disambiguate")

	cookiesCmd.AddCommand(cookiesSetCmd, cookiesDeleteCmd, cookiesClearCmd)
	rootCmd.AddCommand(cookiesCmd)
}

func runCookiesList(cmd *cobra.Command, args []string) error {
	if !execFactory.IsDaemonRunning() {
		return outputError("daemon not running. Start with: browserctl start")
	}

	domain, _ := cmd.Flags().GetString("domain")
	name, _ := cmd.Flags().GetString("name")

	exec, err := execFactory.NewExecutor()
	if err != nil {
		return outputError(err.Error())
	}
	defer exec.Close()

	resp, err := exec.Execute(ipc.Request{Cmd: "cookies-list"})
	if err != nil {
		return outputError(err.Error())
	}
	if !resp.OK {
		return outputError(resp.Error)
	}

	var data ipc.CookiesData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return outputError(err.Error())
	}

	cookies := data.Cookies
	if domain != "" {
		cookies = filterCookiesByDomain(cookies, domain)
	}
	if name != "" {
		cookies = filterCookiesByName(cookies, name)
	}

	if JSONOutput {
		return outputSuccess(ipc.CookiesData{Cookies: cookies})
	}
	return format.Cookies(os.Stdout, cookies, format.NewOutputOptions(JSONOutput, NoColor))
}

func filterCookiesByDomain(cookies []ipc.Cookie, domain string) []ipc.Cookie {
	var out []ipc.Cookie
	for _, c := range cookies {
		if strings.Contains(c.Domain, domain) {
			out = append(out, c)
		}
	}
	return out
}

func filterCookiesByName(cookies []ipc.Cookie, name string) []ipc.Cookie {
	var out []ipc.Cookie
	for _, c := range cookies {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

func runCookiesSet(cmd *cobra.Command, args []string) error {
	if !execFactory.IsDaemonRunning() {
		return outputError("daemon not running. Start with: browserctl start")
	}

	url, _ := cmd.Flags().GetString("url")
	domain, _ := cmd.Flags().GetString("domain")
	path, _ := cmd.Flags().GetString("path")
	secure, _ := cmd.Flags().GetBool("secure")
	httpOnly, _ := cmd.Flags().GetBool("httponly")
	sameSite, _ := cmd.Flags().GetString("samesite")
	maxAge, _ := cmd.Flags().GetInt("max-age")

	exec, err := execFactory.NewExecutor()
	if err != nil {
		return outputError(err.Error())
	}
	defer exec.Close()

	params, err := json.Marshal(ipc.CookiesParams{
		Name: args[0], Value: args[1], URL: url, Domain: domain, Path: path,
		Secure: secure, HTTPOnly: httpOnly, SameSite: sameSite, MaxAgeSeconds: maxAge,
	})
	if err != nil {
		return outputError(err.Error())
	}

	resp, err := exec.Execute(ipc.Request{Cmd: "cookies-set", Params: params})
	if err != nil {
		return outputError(err.Error())
	}
	if !resp.OK {
		return outputError(resp.Error)
	}
	return outputSuccess(nil)
}

func runCookiesDelete(cmd *cobra.Command, args []string) error {
	if !execFactory.IsDaemonRunning() {
		return outputError("daemon not running. Start with: browserctl start")
	}

	domain, _ := cmd.Flags().GetString("domain")

	exec, err := execFactory.NewExecutor()
	if err != nil {
		return outputError(err.Error())
	}
	defer exec.Close()

	params, err := json.Marshal(ipc.CookiesParams{Name: args[0], Domain: domain})
	if err != nil {
		return outputError(err.Error())
	}

	resp, err := exec.Execute(ipc.Request{Cmd: "cookies-delete", Params: params})
	if err != nil {
		return outputError(err.Error())
	}
	if !resp.OK {
		if isNoCookieError(resp.Error) {
			return outputNotice("no cookie named " + args[0])
		}
		return outputError(resp.Error)
	}
	return outputSuccess(nil)
}

func runCookiesClear(cmd *cobra.Command, args []string) error {
	if !execFactory.IsDaemonRunning() {
		return outputError("daemon not running. Start with: browserctl start")
	}

	exec, err := execFactory.NewExecutor()
	if err != nil {
		return outputError(err.Error())
	}
	defer exec.Close()

	resp, err := exec.Execute(ipc.Request{Cmd: "cookies-clear"})
	if err != nil {
		return outputError(err.Error())
	}
	if !resp.OK {
		return outputError(resp.Error)
	}
	return outputSuccess(nil)
}
