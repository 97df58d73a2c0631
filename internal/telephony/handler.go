package telephony

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mgoltzsche/voicetrust/internal/detector"
	"github.com/mgoltzsche/voicetrust/internal/fraudlog"
	"github.com/mgoltzsche/voicetrust/internal/trust"
)

// Handler serves the call webhooks.
type Handler struct {
	Detector   *detector.Detector
	Log        *fraudlog.Log
	Downloader *Downloader
	// AnalyzeURL is the Record action, defaults to /analyze.
	AnalyzeURL string
}

// Voice answers an incoming call: greet the caller and record a voice sample.
func (h *Handler) Voice(w http.ResponseWriter, req *http.Request) {
	analyzeURL := h.AnalyzeURL
	if analyzeURL == "" {
		analyzeURL = "/analyze"
	}

	slog.Info("incoming call", "callSid", req.FormValue("CallSid"), "from", req.FormValue("From"))

	doc, err := greetingResponse(analyzeURL)
	writeTwiML(w, doc, err)
}

// Analyze downloads the recorded voice sample, evaluates it and reads back the verdict.
func (h *Handler) Analyze(w http.ResponseWriter, req *http.Request) {
	if err := req.ParseForm(); err != nil {
		http.Error(w, fmt.Sprintf("parse form: %s", err), http.StatusBadRequest)
		return
	}

	recordingURL := req.PostForm.Get("RecordingUrl")
	if recordingURL == "" {
		http.Error(w, "no RecordingUrl provided", http.StatusBadRequest)
		return
	}

	callSID := req.PostForm.Get("CallSid")

	result, err := h.analyze(req.Context(), recordingURL)
	if err != nil {
		slog.Error(fmt.Sprintf("analyze call recording: %s", err), "callSid", callSID)

		doc, err := sayResponse(failureMessage)
		writeTwiML(w, doc, err)

		return
	}

	_, err = h.Log.Record(req.Context(), fraudlog.SourceWebhook, callSID, result.Assessment)
	if err != nil {
		slog.Error(fmt.Sprintf("record call: %s", err), "callSid", callSID)
	}

	message := allowedMessage
	if result.Decision == trust.Blocked {
		message = blockedMessage
	}

	doc, err := sayResponse(message)
	writeTwiML(w, doc, err)
}

func (h *Handler) analyze(ctx context.Context, recordingURL string) (detector.Result, error) {
	wav, err := h.Downloader.Download(ctx, recordingURL)
	if err != nil {
		return detector.Result{}, err
	}

	return h.Detector.Analyze(ctx, bytes.NewReader(wav))
}
