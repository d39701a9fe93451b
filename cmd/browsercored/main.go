package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/hazeltoft/browsercore/internal/daemon"
)

func main() {
	headless := flag.Bool("headless", false, "Run browser in headless mode")
	port := flag.Int("port", 0, "CDP port for browser (0 uses the default)")
	notifyURL := flag.String("notify-url", "", "Conversation store URL for watcher-change notifications (empty disables)")
	flag.Parse()

	cfg := daemon.DefaultConfig()
	cfg.Headless = *headless
	if *port != 0 {
		cfg.Port = *port
	}
	cfg.NotifyBaseURL = *notifyURL

	d := daemon.New(cfg)
	if err := d.Run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "browsercored: %v\n", err)
		os.Exit(1)
	}
}
