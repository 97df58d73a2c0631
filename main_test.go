package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mgoltzsche/voicetrust/internal/audio"
	"github.com/mgoltzsche/voicetrust/internal/soundgen"
	"github.com/mgoltzsche/voicetrust/pkg/config"
	"github.com/stretchr/testify/require"
)

func writeWAV(t *testing.T, dir, name string, clip audio.Clip) string {
	t.Helper()

	b, err := audio.EncodeWAV(clip)
	require.NoError(t, err)

	file := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(file, b, 0o644))

	return file
}

func TestCheckFiles(t *testing.T) {
	dir := t.TempDir()
	gen := &soundgen.Generator{SampleRate: 16000}
	realFile := writeWAV(t, dir, "real.wav", gen.Silence(time.Second))
	fakeFile := writeWAV(t, dir, "fake.wav", gen.Tone(440, time.Second, 0.5))
	invalid := filepath.Join(dir, "invalid.wav")
	require.NoError(t, os.WriteFile(invalid, []byte("no audio"), 0o644))

	cfg := config.Default()
	cfg.ModelPath = "internal/classifier/testdata/silence-detector.json"

	for _, c := range []struct {
		name          string
		files         []string
		expectBlocked bool
		expectErr     bool
		expectScores  []int
	}{
		{
			name:         "real",
			files:        []string{realFile},
			expectScores: []int{90},
		},
		{
			name:          "real and fake",
			files:         []string{realFile, fakeFile},
			expectBlocked: true,
			expectScores:  []int{90, 20},
		},
		{
			name:         "invalid",
			files:        []string{invalid, realFile},
			expectErr:    true,
			expectScores: []int{0, 90},
		},
	} {
		t.Run(c.name, func(t *testing.T) {
			var out bytes.Buffer

			blocked, err := checkFiles(context.Background(), cfg, c.files, true, &out)
			if c.expectErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			require.Equal(t, c.expectBlocked, blocked, "blocked")

			lines := strings.Split(strings.TrimSpace(out.String()), "\n")
			require.Len(t, lines, len(c.files))

			for i, line := range lines {
				var r fileResult
				require.NoError(t, json.Unmarshal([]byte(line), &r))
				require.Equal(t, c.files[i], r.File)
				require.Equal(t, c.expectScores[i], r.TrustScore, "trust score of %s", r.File)
			}
		})
	}
}

func TestPrintResultsTable(t *testing.T) {
	var out bytes.Buffer

	results := []fileResult{{File: "missing.wav", Error: "file not found"}}
	require.NoError(t, printResults(&out, results, false))
	require.Contains(t, out.String(), "TRUST SCORE")
	require.Contains(t, out.String(), "missing.wav")
	require.Contains(t, out.String(), "file not found")
}
