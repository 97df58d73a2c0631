package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFromFile(t *testing.T) {
	for _, tc := range []struct {
		name     string
		yaml     string
		expected func(*Configuration)
		err      bool
	}{
		{
			name:     "empty file keeps defaults",
			yaml:     "",
			expected: func(*Configuration) {},
		},
		{
			name: "overrides",
			yaml: `
modelPath: /models/forest.json
threshold: 60
recordDuration: 5s
fraudLog:
  backend: badger
  badgerDir: /data/fraud
nats:
  url: nats://localhost:4222
telephony:
  downloadTimeout: 10
`,
			expected: func(c *Configuration) {
				c.ModelPath = "/models/forest.json"
				c.Threshold = 60
				c.RecordDuration = Duration(5 * time.Second)
				c.FraudLog.Backend = "badger"
				c.FraudLog.BadgerDir = "/data/fraud"
				c.NATS.URL = "nats://localhost:4222"
				c.Telephony.DownloadTimeout = Duration(10 * time.Second)
			},
		},
		{
			name: "unknown key",
			yaml: "wakeWord: computer\n",
			err:  true,
		},
		{
			name: "invalid duration",
			yaml: "recordDuration: soon\n",
			err:  true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			file := filepath.Join(t.TempDir(), "config.yaml")
			err := os.WriteFile(file, []byte(tc.yaml), 0o600)
			require.NoError(t, err)

			cfg, err := FromFile(file)
			if tc.err {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)

			expected := Default()
			tc.expected(&expected)
			require.Equal(t, expected, cfg)
		})
	}
}

func TestFlag(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")
	err := os.WriteFile(file, []byte("threshold: 42\n"), 0o600)
	require.NoError(t, err)

	cfg := Default()
	f := &Flag{Config: &cfg}

	err = f.Set(file)
	require.NoError(t, err)
	require.True(t, f.IsSet)
	require.Equal(t, 42, cfg.Threshold)
	require.Equal(t, file, f.String())

	err = f.Set(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestExampleConfig(t *testing.T) {
	cfg, err := FromFile("../../config.example.yaml")
	require.NoError(t, err)
	require.Equal(t, Default().ModelPath, cfg.ModelPath)
	require.Equal(t, Duration(3*time.Second), cfg.RecordDuration)
	require.Equal(t, "memory", cfg.FraudLog.Backend)
	require.Equal(t, "/var/lib/voicetrust/fraud-log", cfg.FraudLog.BadgerDir)
}
