package daemon

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/hazeltoft/browsercore/internal/ipc"
	"golang.org/x/term"
)

// REPL provides an interactive command interface for the daemon, driving
// its handler directly rather than through a Cobra-flag-aware executor.
type REPL struct {
	handler   ipc.Handler
	readline  *readline.Instance
	history   []string
	shutdown  func()
	closeOnce sync.Once
	closeErr  error

	url string
}

// NewREPL creates a new REPL over handler. shutdown is invoked when the
// user types exit/quit/stop.
func NewREPL(handler ipc.Handler, shutdown func()) *REPL {
	return &REPL{handler: handler, shutdown: shutdown}
}

// Close closes the readline instance if it exists. Idempotent.
func (r *REPL) Close() error {
	r.closeOnce.Do(func() {
		if r.readline != nil {
			r.closeErr = r.readline.Close()
		}
	})
	return r.closeErr
}

// IsStdinTTY returns true if stdin is a terminal.
func IsStdinTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Run starts the REPL loop. Blocks until exit command or EOF.
func (r *REPL) Run() error {
	cfg := &readline.Config{
		Prompt:          r.prompt(),
		InterruptPrompt: "^C",
		EOFPrompt:       "^D",
	}

	rl, err := readline.NewEx(cfg)
	if err != nil {
		return err
	}
	r.readline = rl
	defer r.Close()
	defer r.shutdown()

	for {
		r.readline.SetPrompt(r.prompt())

		line, err := r.readline.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r.history = append(r.history, line)

		handled, err := r.handleSpecialCommand(line)
		if err != nil {
			return nil
		}
		if handled {
			continue
		}

		r.executeCommand(line)
	}
}

func cleanURLForDisplay(url string) string {
	url = strings.TrimPrefix(url, "https://")
	url = strings.TrimPrefix(url, "http://")
	if strings.HasSuffix(url, "/") && strings.Count(url, "/") == 1 {
		url = strings.TrimSuffix(url, "/")
	}
	return url
}

func (r *REPL) prompt() string {
	useColor := shouldUseREPLColor()
	display := cleanURLForDisplay(r.url)
	if len(display) > 40 {
		display = display[:37] + "..."
	}

	if useColor {
		return coloredPrompt(display)
	}
	if display == "" {
		return "browsercore> "
	}
	return fmt.Sprintf("browsercore [%s]> ", display)
}

// SetURL updates the prompt's displayed URL, called after navigate/status.
func (r *REPL) SetURL(url string) {
	r.url = url
}

func shouldUseREPLColor() bool {
	return os.Getenv("NO_COLOR") == ""
}

// coloredPrompt renders "browsercore [url]>" with browsercore=blue,
// url=cyan, >=bold white.
func coloredPrompt(url string) string {
	blue := color.New(color.FgBlue)
	cyan := color.New(color.FgCyan)
	boldWhite := color.New(color.FgWhite, color.Bold)

	if url == "" {
		return blue.Sprint("browsercore") + boldWhite.Sprint("> ")
	}
	return blue.Sprint("browsercore") + " [" + cyan.Sprint(url) + "]" + boldWhite.Sprint("> ")
}

var replCommands = []string{"exit", "quit", "help", "history", "stop"}

var daemonCommands = []string{
	"clear", "click", "console", "cookies", "focus", "key", "navigate",
	"network", "screenshot", "scroll", "select", "snapshot", "status", "type",
	"watch",
}

// expandAbbreviation expands a command prefix to a full command name if
// exactly one candidate matches.
func expandAbbreviation(prefix string, commands []string) (string, bool) {
	prefix = strings.ToLower(prefix)
	var matches []string
	for _, cmd := range commands {
		if strings.HasPrefix(cmd, prefix) {
			matches = append(matches, cmd)
		}
	}
	if len(matches) == 1 {
		return matches[0], true
	}
	return "", false
}

func (r *REPL) handleSpecialCommand(line string) (bool, error) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false, nil
	}
	cmd := strings.ToLower(parts[0])

	if expanded, ok := expandAbbreviation(cmd, replCommands); ok {
		cmd = expanded
	}

	switch cmd {
	case "exit", "quit", "stop":
		return true, io.EOF
	case "help", "?":
		r.printHelp()
		return true, nil
	case "history":
		r.printHistory()
		return true, nil
	}
	return false, nil
}

// executeCommand parses a line into an IPC request and dispatches it
// directly to the daemon's handler.
func (r *REPL) executeCommand(line string) {
	args := strings.Fields(line)
	if len(args) == 0 {
		return
	}

	if expanded, ok := expandAbbreviation(args[0], daemonCommands); ok {
		args[0] = expanded
	}

	req := r.parseCommand(args[0], args[1:])
	if req == nil {
		outputError(fmt.Sprintf("unknown command: %s", args[0]))
		return
	}

	resp := r.handler(*req)
	r.outputResponse(resp)

	if req.Cmd == "navigate" || req.Cmd == "status" {
		var status ipc.StatusData
		if json.Unmarshal(resp.Data, &status) == nil {
			r.SetURL(status.URL)
		}
	}
}

// parseCommand converts a REPL command line into an IPC request.
func (r *REPL) parseCommand(cmd string, args []string) *ipc.Request {
	switch cmd {
	case "status":
		return &ipc.Request{Cmd: "status"}
	case "navigate":
		if len(args) == 0 {
			return nil
		}
		params, _ := json.Marshal(ipc.NavigateParams{URL: args[0]})
		return &ipc.Request{Cmd: "navigate", Params: params}
	case "snapshot":
		return &ipc.Request{Cmd: "snapshot"}
	case "console":
		return &ipc.Request{Cmd: "console"}
	case "network":
		return &ipc.Request{Cmd: "network"}
	case "screenshot":
		return &ipc.Request{Cmd: "screenshot"}
	case "clear":
		target := ""
		if len(args) > 0 {
			target = args[0]
		}
		return &ipc.Request{Cmd: "clear", Target: target}
	case "click", "focus":
		if len(args) == 0 {
			return nil
		}
		params, _ := json.Marshal(ipc.InteractParams{Ref: args[0]})
		return &ipc.Request{Cmd: cmd, Params: params}
	case "type":
		if len(args) < 2 {
			return nil
		}
		params, _ := json.Marshal(ipc.InteractParams{Ref: args[0], Text: strings.Join(args[1:], " ")})
		return &ipc.Request{Cmd: "type", Params: params}
	case "select":
		if len(args) < 2 {
			return nil
		}
		params, _ := json.Marshal(ipc.InteractParams{Ref: args[0], Value: args[1]})
		return &ipc.Request{Cmd: "select", Params: params}
	case "key":
		if len(args) == 0 {
			return nil
		}
		params, _ := json.Marshal(ipc.InteractParams{Key: args[0]})
		return &ipc.Request{Cmd: "key", Params: params}
	case "scroll":
		if len(args) == 0 {
			return nil
		}
		params, _ := json.Marshal(ipc.InteractParams{Ref: args[0], Mode: "element"})
		return &ipc.Request{Cmd: "scroll", Params: params}
	case "cookies":
		return &ipc.Request{Cmd: "cookies-list"}
	case "watch":
		if len(args) == 0 {
			return nil
		}
		switch args[0] {
		case "list":
			return &ipc.Request{Cmd: "watch-list"}
		case "create":
			if len(args) < 2 {
				return nil
			}
			params, _ := json.Marshal(ipc.WatcherCreateParams{URL: args[1]})
			return &ipc.Request{Cmd: "watch-create", Params: params}
		case "remove", "pause", "resume", "check":
			if len(args) < 2 {
				return nil
			}
			return &ipc.Request{Cmd: "watch-" + args[0], Target: args[1]}
		}
	}
	return nil
}

func isStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func outputJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	if isStdoutTTY() {
		enc.SetIndent("", "  ")
	}
	enc.Encode(data)
}

func outputError(msg string) {
	if shouldUseREPLColor() {
		color.New(color.FgRed).Fprint(os.Stderr, "Error:")
		fmt.Fprintf(os.Stderr, " %s\n", msg)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	}
}

func (r *REPL) outputResponse(resp ipc.Response) {
	outputJSON(resp)
}

func (r *REPL) printHelp() {
	help := `
Commands (unique prefixes accepted):
  Navigation:
    navigate <url>      Navigate to URL

  Interaction:
    click <ref>         Click element by ref
    focus <ref>         Focus element by ref
    type <ref> <text>   Type text into element
    select <ref> <val>  Select dropdown option
    scroll <ref>        Scroll element into view
    key <key>           Send keyboard key

  Observation:
    status              Show daemon status
    snapshot            Take an accessibility snapshot of the current page
    console             Show console log entries
    network             Show network requests
    screenshot          Capture screenshot of current page
    cookies             Show cookies for current page

  Watchers:
    watch create <url>  Register a new page watcher
    watch list          List watchers
    watch check <id>    Run an on-demand check
    watch pause <id>    Pause a watcher
    watch resume <id>   Resume a watcher
    watch remove <id>   Remove a watcher

  Utility:
    clear [target]      Clear event buffers (console, network, or all)

REPL:
  help, ?     Show this help
  history     Show command history
  exit, quit  Stop daemon and exit
`
	fmt.Println(help)
}

func (r *REPL) printHistory() {
	for i, cmd := range r.history {
		fmt.Printf("  %d  %s\n", i+1, cmd)
	}
}
