package telephony

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
)

// Downloader fetches call recordings.
// Twilio answers with 404 until a fresh recording is available, so such responses are retried.
type Downloader struct {
	Client     *http.Client
	AccountSID string
	AuthToken  string
	// MaxBytes limits the recording size. Zero means unlimited.
	MaxBytes int64
	Retries  uint64
	Backoff  time.Duration
}

// Download fetches the WAV rendition of the recording.
func (d *Downloader) Download(ctx context.Context, recordingURL string) ([]byte, error) {
	backoff := d.Backoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}

	url := recordingURL + ".wav"
	attempt := 0

	var data []byte

	err := retry.Do(ctx, retry.WithMaxRetries(d.Retries, retry.NewFibonacci(backoff)), func(ctx context.Context) error {
		attempt++

		b, err := d.get(ctx, client, url)
		if err != nil {
			slog.Debug("recording download attempt failed", "attempt", attempt, "err", err)
			return err
		}

		data = b

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("download recording: %w", err)
	}

	return data, nil
}

func (d *Downloader) get(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	if d.AccountSID != "" {
		req.SetBasicAuth(d.AccountSID, d.AuthToken)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, retry.RetryableError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("server responded with status %s", resp.Status)
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusNotFound {
			return nil, retry.RetryableError(err)
		}

		return nil, err
	}

	var reader io.Reader = resp.Body
	if d.MaxBytes > 0 {
		reader = io.LimitReader(resp.Body, d.MaxBytes+1)
	}

	b, err := io.ReadAll(reader)
	if err != nil {
		return nil, retry.RetryableError(fmt.Errorf("read response body: %w", err))
	}

	if d.MaxBytes > 0 && int64(len(b)) > d.MaxBytes {
		return nil, fmt.Errorf("recording exceeds %d bytes", d.MaxBytes)
	}

	return b, nil
}
