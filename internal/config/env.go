// Package config loads both binaries' process-level configuration from the
// environment. Neither tier reads a config file: a plugin bridge and a
// gateway are each addressed by a handful of environment variables, and a
// missing required one is a fatal start-up error.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// EnvConfigError reports a missing or malformed environment variable at
// process start-up. Both binaries treat it as fatal (§6: "a missing
// required variable is a fatal start-up error").
type EnvConfigError struct {
	Variable string
	Reason   string
}

func (e *EnvConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Variable, e.Reason)
}

// BridgeConfig is the plugin bridge's process-level configuration (tier A):
// a loopback-bound listener and an optional shared API key gating /mcp.
type BridgeConfig struct {
	ListenAddr string
	APIKey     string
}

// LoadBridgeConfig reads the plugin bridge's configuration from the
// environment. OBSISCRIPTA_BRIDGE_PORT is required; OBSISCRIPTA_BRIDGE_API_KEY
// is optional (an empty key disables /mcp's API-key check).
func LoadBridgeConfig() (*BridgeConfig, error) {
	port, err := requireInt("OBSISCRIPTA_BRIDGE_PORT")
	if err != nil {
		return nil, err
	}

	host := os.Getenv("OBSISCRIPTA_BRIDGE_HOST")
	if host == "" {
		host = "127.0.0.1"
	}

	return &BridgeConfig{
		ListenAddr: fmt.Sprintf("%s:%d", host, port),
		APIKey:     os.Getenv("OBSISCRIPTA_BRIDGE_API_KEY"),
	}, nil
}

// GatewayConfig is the remote MCP gateway's process-level configuration
// (tier B): listener, the external URL baked into issued OAuth metadata,
// upstream IdP credentials, and the admin API's shared secret.
type GatewayConfig struct {
	ListenAddr        string
	ExternalURL       string
	IdPClientID       string
	IdPClientSecret   string
	IdPAuthURL        string
	IdPTokenURL       string
	IdPUserInfoURL    string
	AdminSharedSecret string
	SessionSecret     string
}

// LoadGatewayConfig reads the gateway's configuration from the environment.
// Every field except OBSISCRIPTA_GATEWAY_SESSION_SECRET is required.
func LoadGatewayConfig() (*GatewayConfig, error) {
	port, err := requireInt("OBSISCRIPTA_GATEWAY_PORT")
	if err != nil {
		return nil, err
	}
	host := os.Getenv("OBSISCRIPTA_GATEWAY_HOST")
	if host == "" {
		host = "0.0.0.0"
	}

	cfg := &GatewayConfig{ListenAddr: fmt.Sprintf("%s:%d", host, port)}

	required := map[string]*string{
		"OBSISCRIPTA_GATEWAY_EXTERNAL_URL": &cfg.ExternalURL,
		"OBSISCRIPTA_IDP_CLIENT_ID":        &cfg.IdPClientID,
		"OBSISCRIPTA_IDP_CLIENT_SECRET":    &cfg.IdPClientSecret,
		"OBSISCRIPTA_IDP_AUTH_URL":         &cfg.IdPAuthURL,
		"OBSISCRIPTA_IDP_TOKEN_URL":        &cfg.IdPTokenURL,
		"OBSISCRIPTA_IDP_USERINFO_URL":     &cfg.IdPUserInfoURL,
		"OBSISCRIPTA_GATEWAY_ADMIN_SECRET": &cfg.AdminSharedSecret,
	}

	for variable, dest := range required {
		value, err := requireString(variable)
		if err != nil {
			return nil, err
		}
		*dest = value
	}

	cfg.SessionSecret = os.Getenv("OBSISCRIPTA_GATEWAY_SESSION_SECRET")
	return cfg, nil
}

func requireString(variable string) (string, error) {
	value := os.Getenv(variable)
	if value == "" {
		return "", &EnvConfigError{Variable: variable, Reason: "required but not set"}
	}
	return value, nil
}

func requireInt(variable string) (int, error) {
	raw, err := requireString(variable)
	if err != nil {
		return 0, err
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &EnvConfigError{Variable: variable, Reason: "must be an integer"}
	}
	return value, nil
}
