package internal

import (
	"chat-relay/errors"
	"chat-relay/runtime"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	req := require.New(t)

	config, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	req.NoError(err)

	req.Equal(3000, config.Port)
	req.Equal(3001, config.GRPCHealthPort)
	req.Equal("./data/messages", config.BadgerFilepath)
	req.Equal(5*time.Second, config.PersistTimeout)
	req.Equal(2*time.Second, config.DeliveryTimeout)
	req.Equal(200*time.Millisecond, config.RestartInterval)
	req.Equal("Bienvenido al chat de meet2go!", config.Greeting)
	req.Equal(":3000", config.HTTPAddress())
	req.Nil(config.LimitMessages)
	req.Equal(runtime.FailurePolicyAbort, config.RelayConfig().FailurePolicy)
}

func TestLoadConfig_Environment_Overrides(t *testing.T) {
	req := require.New(t)
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("PORT", "8080")
	t.Setenv("NORMALIZE_RECIPIENT", "true")
	t.Setenv("FAILURE_POLICY", "deliver-raw")
	t.Setenv("PERSIST_TIMEOUT", "250ms")

	config, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	req.NoError(err)

	relayConfig := config.RelayConfig()
	req.Equal("127.0.0.1:8080", config.HTTPAddress())
	req.True(relayConfig.NormalizeRecipient)
	req.Equal(runtime.FailurePolicyDeliverRaw, relayConfig.FailurePolicy)
	req.Equal(250*time.Millisecond, relayConfig.PersistTimeout)
}

func TestLoadConfig_Reads_Dotenv_File(t *testing.T) {
	req := require.New(t)
	path := filepath.Join(t.TempDir(), ".env")
	req.NoError(os.WriteFile(path, []byte("BADGER_FILEPATH=/tmp/relay\n"), 0o600))
	// godotenv sets the variable in the process, restored by t.Setenv on cleanup
	t.Setenv("BADGER_FILEPATH", "")
	req.NoError(os.Unsetenv("BADGER_FILEPATH"))

	config, err := LoadConfig(path)
	req.NoError(err)
	req.Equal("/tmp/relay", config.BadgerFilepath)
}

func TestLoadConfig_Rejects_Invalid_Values(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"port out of range", "PORT", "70000"},
		{"same ports", "GRPC_HEALTH_PORT", "3000"},
		{"zero timeout", "PERSIST_TIMEOUT", "0s"},
		{"unknown policy", "FAILURE_POLICY", "retry"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
			require.Error(t, err)
		})
	}
}

func TestValidate_Unknown_Failure_Policy(t *testing.T) {
	config, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	config.FailurePolicy = "retry"
	require.ErrorIs(t, config.Validate(), errors.ErrInvalidFailurePolicy)
}
