package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mgoltzsche/voicetrust/internal/classifier"
	"github.com/mgoltzsche/voicetrust/internal/cli"
	"github.com/mgoltzsche/voicetrust/internal/detector"
	"github.com/mgoltzsche/voicetrust/internal/fraudlog"
	"github.com/mgoltzsche/voicetrust/internal/notify"
	"github.com/mgoltzsche/voicetrust/internal/server"
	"github.com/mgoltzsche/voicetrust/internal/telephony"
	"github.com/mgoltzsche/voicetrust/internal/tlsutils"
	"github.com/mgoltzsche/voicetrust/internal/trust"
	"github.com/mgoltzsche/voicetrust/pkg/config"
)

func main() {
	configFile := "/etc/voicetrust/config.yaml"
	cfg, err := config.FromFile(configFile)
	configFlag := &config.Flag{File: configFile, Config: &cfg}

	listenAddr := ":8443"
	webDir := "/var/lib/voicetrust/ui"
	tlsEnabled := false
	tlsCert := ""
	tlsKey := ""

	flag.Var(configFlag, "config", "Path to the configuration file")
	flag.StringVar(&cfg.ModelPath, "model", cfg.ModelPath, "Path to the voice classifier model file")
	flag.IntVar(&cfg.Threshold, "threshold", cfg.Threshold, "Trust score below which a caller is blocked")
	flag.Int64Var(&cfg.MaxUploadBytes, "max-upload-bytes", cfg.MaxUploadBytes, "Maximum accepted audio upload size")
	flag.StringVar(&cfg.FraudLog.Backend, "fraud-log-backend", cfg.FraudLog.Backend, "Fraud log storage backend (memory, badger, redis)")
	flag.StringVar(&cfg.FraudLog.BadgerDir, "fraud-log-dir", cfg.FraudLog.BadgerDir, "Fraud log directory of the badger backend")
	flag.StringVar(&cfg.FraudLog.RedisAddress, "redis-address", cfg.FraudLog.RedisAddress, "Address of the redis fraud log backend")
	flag.StringVar(&cfg.NATS.URL, "nats-url", cfg.NATS.URL, "NATS server URL fraud events are published to")
	flag.StringVar(&cfg.Telephony.AccountSID, "twilio-account-sid", cfg.Telephony.AccountSID, "Twilio account SID used to download call recordings")
	flag.StringVar(&cfg.Telephony.AuthToken, "twilio-auth-token", cfg.Telephony.AuthToken, "Twilio auth token used to download call recordings")
	flag.StringVar(&listenAddr, "listen", listenAddr, "Address the server should listen on")
	flag.StringVar(&webDir, "web-dir", webDir, "Path to the web UI directory")
	flag.BoolVar(&tlsEnabled, "tls", tlsEnabled, "Serve securely via HTTPS/TLS")
	flag.StringVar(&tlsKey, "tls-key", tlsKey, "Path to the TLS key file")
	flag.StringVar(&tlsCert, "tls-cert", tlsCert, "Path to the TLS certificate file")
	cli.ParseFlagsWithEnvVars(flag.CommandLine)

	if !configFlag.IsSet && err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error(err.Error())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = runServer(ctx, cfg, listenAddr, webDir, tlsEnabled, tlsCert, tlsKey)
	if err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func runServer(ctx context.Context, cfg config.Configuration, listenAddr, webDir string, tlsEnabled bool, tlsCert, tlsKey string) error {
	model, err := classifier.Load(cfg.ModelPath)
	if err != nil {
		return err
	}

	d, err := detector.New(model, trust.Policy{Threshold: cfg.Threshold})
	if err != nil {
		return err
	}

	store, err := fraudlog.Open(cfg.FraudLog)
	if err != nil {
		return err
	}

	var notifier fraudlog.Notifier

	if cfg.NATS.URL != "" {
		n, err := notify.Connect(cfg.NATS.URL, cfg.NATS.Subject)
		if err != nil {
			_ = store.Close()
			return err
		}
		defer n.Close()

		notifier = n
	}

	log := fraudlog.New(store, notifier)
	defer func() {
		if err := log.Close(); err != nil {
			slog.Warn(fmt.Sprintf("close fraud log: %s", err))
		}
	}()

	s := &server.Server{
		Detector: d,
		Log:      log,
		Telephony: &telephony.Handler{
			Detector: d,
			Log:      log,
			Downloader: &telephony.Downloader{
				Client:     &http.Client{Timeout: time.Duration(cfg.Telephony.DownloadTimeout)},
				AccountSID: cfg.Telephony.AccountSID,
				AuthToken:  cfg.Telephony.AuthToken,
				MaxBytes:   cfg.MaxUploadBytes,
				Retries:    cfg.Telephony.DownloadRetries,
			},
		},
		WebDir:         webDir,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}

	mux := http.NewServeMux()
	srv := &http.Server{
		Addr:              listenAddr,
		BaseContext:       func(net.Listener) context.Context { return ctx },
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.AddRoutes(mux)

	go func() {
		<-ctx.Done()
		slog.Info("terminating")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("loaded voice classifier", "model", cfg.ModelPath, "features", model.FeatureSpec().Kind, "threshold", d.Policy().Threshold)

	if tlsEnabled {
		if tlsCert == "" && tlsKey == "" {
			slog.Info("generating self-signed TLS certificate")

			pair, err := tlsutils.GenerateSelfSigned()
			if err != nil {
				return err
			}
			defer pair.Remove()

			tlsCert, tlsKey = pair.CertFile, pair.KeyFile
		}

		slog.Info(fmt.Sprintf("listening on %s", srv.Addr), "tls", true)

		err = srv.ListenAndServeTLS(tlsCert, tlsKey)
	} else {
		slog.Info(fmt.Sprintf("listening on %s", srv.Addr))

		err = srv.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}
