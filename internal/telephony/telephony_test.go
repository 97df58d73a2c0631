package telephony

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mgoltzsche/voicetrust/internal/audio"
	"github.com/mgoltzsche/voicetrust/internal/classifier"
	"github.com/mgoltzsche/voicetrust/internal/detector"
	"github.com/mgoltzsche/voicetrust/internal/fraudlog"
	"github.com/mgoltzsche/voicetrust/internal/soundgen"
	"github.com/mgoltzsche/voicetrust/internal/trust"
	"github.com/stretchr/testify/require"
)

// recordingServer serves a WAV recording after responding with 404 for the given number of requests.
func recordingServer(t *testing.T, clip audio.Clip, notFound int32) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	wav, err := audio.EncodeWAV(clip)
	require.NoError(t, err)

	requests := &atomic.Int32{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		n := requests.Add(1)

		user, pass, ok := req.BasicAuth()
		if !ok || user != "AC123" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		if req.URL.Path != "/recordings/RE1.wav" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		if n <= notFound {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write(wav)
	}))
	t.Cleanup(srv.Close)

	return srv, requests
}

func newTestHandler(t *testing.T, retries uint64) *Handler {
	t.Helper()

	c, err := classifier.Load("../classifier/testdata/silence-detector.json")
	require.NoError(t, err)

	d, err := detector.New(c, trust.DefaultPolicy())
	require.NoError(t, err)

	return &Handler{
		Detector: d,
		Log:      fraudlog.New(fraudlog.NewMemory(10), nil),
		Downloader: &Downloader{
			AccountSID: "AC123",
			AuthToken:  "secret",
			Retries:    retries,
			Backoff:    time.Millisecond,
		},
	}
}

func TestVoice(t *testing.T) {
	h := newTestHandler(t, 0)
	req := httptest.NewRequest(http.MethodPost, "/voice", strings.NewReader("CallSid=CA1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()

	h.Voice(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "application/xml", w.Header().Get("Content-Type"))
	body := w.Body.String()
	require.Contains(t, body, "<Response>")
	require.Contains(t, body, "<Say>This call is being verified for security purposes.</Say>")
	require.Contains(t, body, `action="/analyze"`)
	require.Contains(t, body, `method="POST"`)
	require.Contains(t, body, `timeout="3"`)
}

func TestAnalyze(t *testing.T) {
	gen := &soundgen.Generator{SampleRate: 8000}

	for _, c := range []struct {
		name         string
		clip         audio.Clip
		notFound     int32
		retries      uint64
		expectSay    string
		expectStatus string
	}{
		{
			name:         "approved",
			clip:         gen.Silence(2 * time.Second),
			expectSay:    allowedMessage,
			expectStatus: "APPROVED",
		},
		{
			name:         "blocked",
			clip:         gen.Tone(300, 2*time.Second, 0.5),
			expectSay:    blockedMessage,
			expectStatus: "BLOCKED",
		},
		{
			name:         "recording not yet available",
			clip:         gen.Silence(2 * time.Second),
			notFound:     2,
			retries:      3,
			expectSay:    allowedMessage,
			expectStatus: "APPROVED",
		},
		{
			name:      "recording unavailable",
			clip:      gen.Silence(2 * time.Second),
			notFound:  5,
			retries:   1,
			expectSay: failureMessage,
		},
	} {
		t.Run(c.name, func(t *testing.T) {
			srv, requests := recordingServer(t, c.clip, c.notFound)
			h := newTestHandler(t, c.retries)

			form := url.Values{}
			form.Set("RecordingUrl", srv.URL+"/recordings/RE1")
			form.Set("CallSid", "CA1")
			req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			w := httptest.NewRecorder()

			h.Analyze(w, req)

			require.Equal(t, http.StatusOK, w.Code)
			require.Contains(t, w.Body.String(), "<Say>"+c.expectSay+"</Say>")

			entries, err := h.Log.List(context.Background())
			require.NoError(t, err)

			if c.expectStatus == "" {
				require.Empty(t, entries, "fraud log entries")
				require.Equal(t, int32(c.retries+1), requests.Load(), "download attempts")
				return
			}

			require.Len(t, entries, 1, "fraud log entries")
			require.Equal(t, fraudlog.SourceWebhook, entries[0].Source)
			require.Equal(t, "CA1", entries[0].CallSID)
			require.Equal(t, c.expectStatus, entries[0].BankStatus)
			require.Equal(t, c.notFound+1, requests.Load(), "download attempts")
		})
	}
}

func TestAnalyzeMissingRecordingURL(t *testing.T) {
	h := newTestHandler(t, 0)
	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader("CallSid=CA1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()

	h.Analyze(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDownloadNonRetryableError(t *testing.T) {
	srv, requests := recordingServer(t, audio.Clip{SampleRate: 8000}, 0)
	d := &Downloader{AccountSID: "AC123", AuthToken: "wrong", Retries: 3, Backoff: time.Millisecond}

	_, err := d.Download(context.Background(), srv.URL+"/recordings/RE1")
	require.Error(t, err)
	require.Equal(t, int32(1), requests.Load(), "attempts")
}

func TestDownloadMaxBytes(t *testing.T) {
	gen := &soundgen.Generator{SampleRate: 8000}
	srv, _ := recordingServer(t, gen.Silence(time.Second), 0)
	d := &Downloader{AccountSID: "AC123", AuthToken: "secret", MaxBytes: 100}

	_, err := d.Download(context.Background(), srv.URL+"/recordings/RE1")
	require.Error(t, err)
}
