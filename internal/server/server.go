// Package server exposes the voice trust checks over HTTP: the upload UI, the fraud monitoring
// dashboard, the bank verification API and the telephony webhooks.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/coder/websocket"
	"github.com/mgoltzsche/voicetrust/internal/audio"
	"github.com/mgoltzsche/voicetrust/internal/detector"
	"github.com/mgoltzsche/voicetrust/internal/feature"
	"github.com/mgoltzsche/voicetrust/internal/fraudlog"
	"github.com/mgoltzsche/voicetrust/internal/telephony"
	"github.com/mgoltzsche/voicetrust/internal/trust"
)

const defaultMaxUploadBytes = 20 << 20

type Server struct {
	Detector       *detector.Detector
	Log            *fraudlog.Log
	Telephony      *telephony.Handler
	WebDir         string
	MaxUploadBytes int64
}

// CallAnalysis is the response of the call simulation endpoint.
type CallAnalysis struct {
	Result detector.Result `json:"result"`
	Entry  fraudlog.Entry  `json:"entry"`
}

type verifyRequest struct {
	TrustScore *int `json:"trust_score"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) AddRoutes(mux *http.ServeMux) {
	if s.WebDir != "" {
		mux.Handle("GET /", http.FileServer(http.Dir(s.WebDir)))
	}

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	mux.HandleFunc("POST /api/calls/analyze", s.handleAnalyzeCall)
	mux.HandleFunc("POST /bank/verify", s.handleVerify)
	mux.HandleFunc("GET /fraud-logs", s.handleListFraudLogs)
	mux.HandleFunc("GET /fraud-logs/stream", s.handleStreamFraudLogs)
	mux.HandleFunc("POST /voice", s.Telephony.Voice)
	mux.HandleFunc("POST /analyze", s.Telephony.Analyze)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, req *http.Request) {
	result, err := s.analyzeRequest(w, req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAnalyzeCall(w http.ResponseWriter, req *http.Request) {
	result, err := s.analyzeRequest(w, req)
	if err != nil {
		writeError(w, err)
		return
	}

	entry, err := s.Log.Record(req.Context(), fraudlog.SourceCall, req.FormValue("callSid"), result.Assessment)
	if err != nil {
		writeError(w, fmt.Errorf("record call: %w", err))
		return
	}

	writeJSON(w, http.StatusOK, CallAnalysis{Result: result, Entry: entry})
}

func (s *Server) analyzeRequest(w http.ResponseWriter, req *http.Request) (detector.Result, error) {
	maxBytes := s.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadBytes
	}

	req.Body = http.MaxBytesReader(w, req.Body, maxBytes)
	defer req.Body.Close()

	reader, err := audioFromRequest(req)
	if err != nil {
		return detector.Result{}, err
	}
	defer reader.Close()

	return s.Detector.Analyze(req.Context(), reader)
}

// audioFromRequest returns the "audio" field of a multipart form or the raw request body.
func audioFromRequest(req *http.Request) (io.ReadCloser, error) {
	mediaType, _, _ := mime.ParseMediaType(req.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return req.Body, nil
	}

	file, _, err := req.FormFile("audio")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, err
		}

		return nil, fmt.Errorf("%w: read form field audio: %s", audio.ErrInvalidAudio, err)
	}

	return file, nil
}

func (s *Server) handleVerify(w http.ResponseWriter, req *http.Request) {
	var body verifyRequest

	dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, 1<<10))
	if err := dec.Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("decode request: %s", err)})
		return
	}

	if body.TrustScore == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "no trust_score provided"})
		return
	}

	verification, err := s.Detector.Policy().Verify(*body.TrustScore)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, verification)
}

func (s *Server) handleListFraudLogs(w http.ResponseWriter, req *http.Request) {
	entries, err := s.Log.List(req.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

// handleStreamFraudLogs sends every new fraud log entry as JSON text message.
// With ?history=true the existing entries are sent first.
func (s *Server) handleStreamFraudLogs(w http.ResponseWriter, req *http.Request) {
	conn, err := websocket.Accept(w, req, nil)
	if err != nil {
		slog.Warn(fmt.Sprintf("accept websocket connection: %s", err))
		return
	}
	defer conn.CloseNow()

	ctx := conn.CloseRead(req.Context())
	subscription := s.Log.Subscribe(ctx)
	defer subscription.Stop()

	enc := json.NewEncoder(&websocketWriter{Ctx: ctx, Websocket: conn, MessageType: websocket.MessageText})
	sent := map[string]struct{}{}

	if req.URL.Query().Get("history") == "true" {
		entries, err := s.Log.List(ctx)
		if err != nil {
			conn.Close(websocket.StatusInternalError, "list fraud log")
			return
		}

		for _, e := range entries {
			if err := enc.Encode(e); err != nil {
				return
			}

			sent[e.ID] = struct{}{}
		}
	}

	err = streamEntries(ctx, subscription.ResultChan(), sent, enc)
	if err != nil && ctx.Err() == nil {
		slog.Warn(fmt.Sprintf("stream fraud log: %s", err))
		return
	}

	conn.Close(websocket.StatusNormalClosure, "")
}

// streamEntries encodes the entries received from ch, skipping those sent as history already.
// The subscription starts before the history is listed so that no entry gets lost in between.
func streamEntries(ctx context.Context, ch <-chan fraudlog.Entry, sent map[string]struct{}, enc *json.Encoder) error {
	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return nil
			}

			if _, ok := sent[e.ID]; ok {
				delete(sent, e.ID)
				continue
			}

			if err := enc.Encode(e); err != nil {
				return fmt.Errorf("send fraud log entry: %w", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	var maxBytesErr *http.MaxBytesError

	switch {
	case errors.As(err, &maxBytesErr):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, audio.ErrInvalidAudio),
		errors.Is(err, feature.ErrEmptySignal),
		errors.Is(err, trust.ErrInvalidScore):
		status = http.StatusBadRequest
	case errors.Is(err, fraudlog.ErrClosed):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		slog.Error(err.Error())
	} else {
		slog.Warn(err.Error())
	}

	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Warn(fmt.Sprintf("write response: %s", err))
	}
}
