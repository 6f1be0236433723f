// Package config handles configuration for the server component,
// including defaults, a JSON or YAML file overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings for the guestkeeper server.
//
// Fields:
//   - EndpointAddrHTTP: bind address of the public guest login endpoint.
//   - EndpointAddrGRPC: bind address of the admin gRPC channel.
//   - DatabaseDSN: PostgreSQL DSN (pgx) or a sqlite:// / file: path.
//   - KeyStorage: "file" or "s3"; where the guest signing keypair lives.
//   - KeyDir: directory of the keypair for file storage.
//   - KeyPassphrase: when set, the private key is sealed at rest.
//   - KeyBits: RSA modulus size for a newly generated keypair.
//   - S3*: object storage settings for s3 key storage.
//   - SessionSecret: HMAC secret for session bearer tokens (HS256).
//   - AdminSecret: HMAC secret for admin channel tokens; empty disables the check.
//   - SignatureGrace: how long after the window closes a guest token signature stays valid.
//   - UpstreamTimeout: bound on a single identity provider call.
//   - RedisAddr / RateLimitPerSecond: optional per-IP limit on the login endpoint.
type Config struct {
	EndpointAddrHTTP   string
	EndpointAddrGRPC   string
	DatabaseDSN        string
	LogLevel           string
	KeyStorage         string
	KeyDir             string
	KeyPassphrase      string
	KeyBits            int
	S3RootUser         string
	S3RootPassword     string
	S3Bucket           string
	S3Region           string
	S3BaseEndpoint     string
	S3Prefix           string
	SessionSecret      string
	AdminSecret        string
	SignatureGrace     time.Duration
	UpstreamTimeout    time.Duration
	RedisAddr          string
	RateLimitPerSecond int
}

const (
	KeyStorageFile = "file"
	KeyStorageS3   = "s3"
)

// LoadDefaults populates Config with development defaults.
// NOTE: SessionSecret must be overridden in production.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":8080"
	c.EndpointAddrGRPC = ":50051"
	c.DatabaseDSN = "sqlite://guestkeeper.db"
	c.LogLevel = "info"
	c.KeyStorage = KeyStorageFile
	c.KeyDir = "keys"
	c.KeyBits = 2048
	c.S3Bucket = "guestkeeper"
	c.S3Region = "us-east-1"
	c.S3Prefix = "keys"
	c.SessionSecret = "sessionSecret"
	c.SignatureGrace = 24 * time.Hour
	c.UpstreamTimeout = 10 * time.Second
	c.RateLimitPerSecond = 10
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional config file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg)
	parseFlags(cfg)
	return cfg
}
