package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/guestkeeper/internal/flagx"
	"github.com/dmitrijs2005/guestkeeper/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Intervals
// accept "15s" or integer nanoseconds via timex.Duration.
type JsonConfig struct {
	ServerEndpointAddr string         `json:"server_endpoint_addr"`
	PublicBaseURL      string         `json:"public_base_url"`
	RequestTimeout     timex.Duration `json:"request_timeout"`
	AdminSecret        string         `json:"admin_secret"`
}

// parseJson overlays Config with the non-empty values of the file named by
// -c or -config. It panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.ConfigFileFlag()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerEndpointAddr != "" {
		cfg.ServerEndpointAddr = jc.ServerEndpointAddr
	}
	if jc.PublicBaseURL != "" {
		cfg.PublicBaseURL = jc.PublicBaseURL
	}
	if jc.RequestTimeout.Duration != 0 {
		cfg.RequestTimeout = time.Duration(jc.RequestTimeout.Duration)
	}
	if jc.AdminSecret != "" {
		cfg.AdminSecret = jc.AdminSecret
	}
}
