package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/guestkeeper/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   address and port of the admin gRPC endpoint
//	-u string   public base URL used to print guest login links
//	-t int      request timeout in seconds
//	-p          prompt for the admin secret
func parseFlags(cfg *Config) {
	// Filter args to include only those handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-u", "-t", "-p"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port of the admin endpoint")
	fs.StringVar(&cfg.PublicBaseURL, "u", cfg.PublicBaseURL, "public base URL of the server")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	fs.BoolVar(&cfg.PromptAdminSecret, "p", cfg.PromptAdminSecret, "prompt for the admin secret")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
}
