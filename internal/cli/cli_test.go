package cli

import (
	"flag"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	for _, c := range []struct {
		name        string
		args        []string
		env         []string
		expectModel string
		expectErr   bool
	}{
		{
			name:        "defaults",
			expectModel: "default.json",
		},
		{
			name:        "env var",
			env:         []string{"VOICETRUST_MODEL=env.json", "HOME=/root"},
			expectModel: "env.json",
		},
		{
			name:        "flag overrides env var",
			args:        []string{"-model", "flag.json"},
			env:         []string{"VOICETRUST_MODEL=env.json"},
			expectModel: "flag.json",
		},
		{
			name:      "unsupported env var",
			env:       []string{"VOICETRUST_UNKNOWN=x"},
			expectErr: true,
		},
		{
			name:      "invalid log level",
			env:       []string{"VOICETRUST_LOG_LEVEL=LOUD"},
			expectErr: true,
		},
		{
			name:      "invalid log format",
			args:      []string{"-log-format", "xml"},
			expectErr: true,
		},
	} {
		t.Run(c.name, func(t *testing.T) {
			flags := flag.NewFlagSet("test", flag.ContinueOnError)
			flags.SetOutput(io.Discard)
			model := flags.String("model", "default.json", "model file")

			err := parseFlags(flags, c.args, c.env)
			if c.expectErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.Equal(t, c.expectModel, *model)
			require.Contains(t, flags.Lookup("model").Usage, "VOICETRUST_MODEL")
		})
	}
}

func TestLogFlags(t *testing.T) {
	flags := flag.NewFlagSet("test", flag.ContinueOnError)
	flags.SetOutput(io.Discard)

	err := parseFlags(flags, []string{"-log-level", "debug", "-log-format", "json"}, nil)
	require.NoError(t, err)
	require.Equal(t, slog.LevelDebug, logOptions.level.Level())
	require.Equal(t, "json", logOptions.format)

	require.NoError(t, flags.Set("log-level", "INFO"))
	require.NoError(t, flags.Set("log-format", "text"))
}
