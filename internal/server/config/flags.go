package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/guestkeeper/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address of the login endpoint (e.g., ":8080")
//	-g string   gRPC bind address of the admin channel (e.g., ":50051")
//	-d string   database DSN
//	-k string   key directory
//	-s string   session token HMAC secret
//	-x string   admin token HMAC secret
//	-r string   redis address for rate limiting
//	-t int      identity provider timeout, seconds
//	-l string   log level (debug, info, warn, error)
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes using
//     flagx.FilterArgs, so -c/-config is left to the file overlay.
//   - The timeout flag is accepted as integer seconds.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-g", "-d", "-k", "-s", "-x", "-r", "-t", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port of the guest login endpoint")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "address and port of the admin channel")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.KeyDir, "k", config.KeyDir, "guest signing key directory")
	fs.StringVar(&config.SessionSecret, "s", config.SessionSecret, "session token secret")
	fs.StringVar(&config.AdminSecret, "x", config.AdminSecret, "admin token secret")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address for rate limiting")
	upstreamTimeout := fs.Int("t", int(config.UpstreamTimeout.Seconds()), "identity provider timeout (in seconds)")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.UpstreamTimeout = time.Duration(*upstreamTimeout) * time.Second
}
