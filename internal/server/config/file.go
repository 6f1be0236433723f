package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/guestkeeper/internal/flagx"
	"github.com/dmitrijs2005/guestkeeper/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of the configuration. Durations accept
// both strings such as "10s" and integer nanoseconds. Fields left out of the
// file keep their current value.
type FileConfig struct {
	EndpointAddrHTTP   string         `json:"endpoint_addr_http" yaml:"endpoint_addr_http"`
	EndpointAddrGRPC   string         `json:"endpoint_addr_grpc" yaml:"endpoint_addr_grpc"`
	DatabaseDSN        string         `json:"database_dsn" yaml:"database_dsn"`
	LogLevel           string         `json:"log_level" yaml:"log_level"`
	KeyStorage         string         `json:"key_storage" yaml:"key_storage"`
	KeyDir             string         `json:"key_dir" yaml:"key_dir"`
	KeyPassphrase      string         `json:"key_passphrase" yaml:"key_passphrase"`
	KeyBits            int            `json:"key_bits" yaml:"key_bits"`
	S3RootUser         string         `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword     string         `json:"s3_root_password" yaml:"s3_root_password"`
	S3Bucket           string         `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region           string         `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint     string         `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	S3Prefix           string         `json:"s3_prefix" yaml:"s3_prefix"`
	SessionSecret      string         `json:"session_secret" yaml:"session_secret"`
	AdminSecret        string         `json:"admin_secret" yaml:"admin_secret"`
	SignatureGrace     timex.Duration `json:"signature_grace" yaml:"signature_grace"`
	UpstreamTimeout    timex.Duration `json:"upstream_timeout" yaml:"upstream_timeout"`
	RedisAddr          string         `json:"redis_addr" yaml:"redis_addr"`
	RateLimitPerSecond int            `json:"rate_limit_per_second" yaml:"rate_limit_per_second"`
}

// parseFile overlays values from the file named by -c or -config. Files
// ending in .yaml or .yml are decoded as YAML, anything else as JSON. An
// unreadable or malformed file panics.
func parseFile(config *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	default:
		err = json.Unmarshal(data, c)
	}
	if err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *FileConfig) apply(config *Config) {
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.KeyStorage, c.KeyStorage)
	setString(&config.KeyDir, c.KeyDir)
	setString(&config.KeyPassphrase, c.KeyPassphrase)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.S3Prefix, c.S3Prefix)
	setString(&config.SessionSecret, c.SessionSecret)
	setString(&config.AdminSecret, c.AdminSecret)
	setString(&config.RedisAddr, c.RedisAddr)

	if c.KeyBits != 0 {
		config.KeyBits = c.KeyBits
	}
	if c.RateLimitPerSecond != 0 {
		config.RateLimitPerSecond = c.RateLimitPerSecond
	}
	if c.SignatureGrace.Duration != 0 {
		config.SignatureGrace = c.SignatureGrace.Duration
	}
	if c.UpstreamTimeout.Duration != 0 {
		config.UpstreamTimeout = c.UpstreamTimeout.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
