package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadBridgeConfig_RequiresPort(t *testing.T) {
	t.Setenv("OBSISCRIPTA_BRIDGE_PORT", "")
	_, err := LoadBridgeConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OBSISCRIPTA_BRIDGE_PORT")
}

func TestLoadBridgeConfig_DefaultsHostToLoopback(t *testing.T) {
	t.Setenv("OBSISCRIPTA_BRIDGE_PORT", "8765")
	t.Setenv("OBSISCRIPTA_BRIDGE_HOST", "")
	t.Setenv("OBSISCRIPTA_BRIDGE_API_KEY", "")

	cfg, err := LoadBridgeConfig()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8765", cfg.ListenAddr)
	assert.Empty(t, cfg.APIKey)
}

func TestLoadBridgeConfig_RejectsNonIntegerPort(t *testing.T) {
	t.Setenv("OBSISCRIPTA_BRIDGE_PORT", "not-a-number")
	_, err := LoadBridgeConfig()
	require.Error(t, err)
}

func TestLoadGatewayConfig_RequiresEveryMandatoryVariable(t *testing.T) {
	vars := []string{
		"OBSISCRIPTA_GATEWAY_PORT",
		"OBSISCRIPTA_GATEWAY_EXTERNAL_URL",
		"OBSISCRIPTA_IDP_CLIENT_ID",
		"OBSISCRIPTA_IDP_CLIENT_SECRET",
		"OBSISCRIPTA_IDP_AUTH_URL",
		"OBSISCRIPTA_IDP_TOKEN_URL",
		"OBSISCRIPTA_IDP_USERINFO_URL",
		"OBSISCRIPTA_GATEWAY_ADMIN_SECRET",
	}
	for _, missing := range vars {
		t.Run(missing, func(t *testing.T) {
			for _, v := range vars {
				if v == missing {
					t.Setenv(v, "")
					continue
				}
				t.Setenv(v, "x")
			}
			t.Setenv("OBSISCRIPTA_GATEWAY_PORT", "8080")
			if missing == "OBSISCRIPTA_GATEWAY_PORT" {
				t.Setenv("OBSISCRIPTA_GATEWAY_PORT", "")
			}

			_, err := LoadGatewayConfig()
			require.Error(t, err)
		})
	}
}

func TestLoadGatewayConfig_Success(t *testing.T) {
	t.Setenv("OBSISCRIPTA_GATEWAY_PORT", "8080")
	t.Setenv("OBSISCRIPTA_GATEWAY_HOST", "")
	t.Setenv("OBSISCRIPTA_GATEWAY_EXTERNAL_URL", "https://gateway.example.com")
	t.Setenv("OBSISCRIPTA_IDP_CLIENT_ID", "client-1")
	t.Setenv("OBSISCRIPTA_IDP_CLIENT_SECRET", "secret-1")
	t.Setenv("OBSISCRIPTA_IDP_AUTH_URL", "https://idp.example.com/authorize")
	t.Setenv("OBSISCRIPTA_IDP_TOKEN_URL", "https://idp.example.com/token")
	t.Setenv("OBSISCRIPTA_IDP_USERINFO_URL", "https://idp.example.com/userinfo")
	t.Setenv("OBSISCRIPTA_GATEWAY_ADMIN_SECRET", "admin-secret")
	t.Setenv("OBSISCRIPTA_GATEWAY_SESSION_SECRET", "")

	cfg, err := LoadGatewayConfig()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8080", cfg.ListenAddr)
	assert.Equal(t, "https://gateway.example.com", cfg.ExternalURL)
	assert.Empty(t, cfg.SessionSecret)
}
