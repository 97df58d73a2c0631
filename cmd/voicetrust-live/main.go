package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/mgoltzsche/voicetrust/internal/audio"
	"github.com/mgoltzsche/voicetrust/internal/classifier"
	"github.com/mgoltzsche/voicetrust/internal/cli"
	"github.com/mgoltzsche/voicetrust/internal/detector"
	"github.com/mgoltzsche/voicetrust/internal/fraudlog"
	"github.com/mgoltzsche/voicetrust/internal/notify"
	"github.com/mgoltzsche/voicetrust/internal/soundgen"
	"github.com/mgoltzsche/voicetrust/internal/trust"
	"github.com/mgoltzsche/voicetrust/internal/vad"
	"github.com/mgoltzsche/voicetrust/pkg/config"
)

func main() {
	configFile := "/etc/voicetrust/config.yaml"
	cfg, err := config.FromFile(configFile)
	configFlag := &config.Flag{File: configFile, Config: &cfg}

	continuous := false
	listDevices := false

	flag.Var(configFlag, "config", "Path to the configuration file")
	flag.StringVar(&cfg.ModelPath, "model", cfg.ModelPath, "Path to the voice classifier model file")
	flag.IntVar(&cfg.Threshold, "threshold", cfg.Threshold, "Trust score below which a caller is blocked")
	flag.StringVar(&cfg.InputDevice, "input-device", cfg.InputDevice, "name or ID or the audio input device")
	flag.StringVar(&cfg.OutputDevice, "output-device", cfg.OutputDevice, "name or ID or the audio output device")
	flag.Var(&cfg.RecordDuration, "duration", "duration of a recorded voice sample")
	flag.BoolVar(&cfg.VADEnabled, "vad", cfg.VADEnabled, "enable voice activity detection (VAD)")
	flag.StringVar(&cfg.VADModelPath, "vad-model", cfg.VADModelPath, "path to the VAD model")
	flag.StringVar(&cfg.FraudLog.Backend, "fraud-log-backend", cfg.FraudLog.Backend, "Fraud log storage backend (memory, badger, redis)")
	flag.StringVar(&cfg.FraudLog.BadgerDir, "fraud-log-dir", cfg.FraudLog.BadgerDir, "Fraud log directory of the badger backend")
	flag.StringVar(&cfg.FraudLog.RedisAddress, "redis-address", cfg.FraudLog.RedisAddress, "Address of the redis fraud log backend")
	flag.StringVar(&cfg.NATS.URL, "nats-url", cfg.NATS.URL, "NATS server URL fraud events are published to")
	flag.BoolVar(&continuous, "continuous", continuous, "keep checking consecutive voice samples until interrupted")
	flag.BoolVar(&listDevices, "list-devices", listDevices, "list the available audio devices and exit")
	cli.ParseFlagsWithEnvVars(flag.CommandLine)

	if !configFlag.IsSet && err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error(err.Error())
		os.Exit(1)
	}

	if err := portaudio.Initialize(); err != nil {
		slog.Error(fmt.Sprintf("initialize portaudio: %s", err))
		os.Exit(1)
	}
	defer portaudio.Terminate()

	if listDevices {
		audio.PrintDevices(os.Stdout)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = runLiveCheck(ctx, cfg, continuous)
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func runLiveCheck(ctx context.Context, cfg config.Configuration, continuous bool) error {
	model, err := classifier.Load(cfg.ModelPath)
	if err != nil {
		return err
	}

	d, err := detector.New(model, trust.Policy{Threshold: cfg.Threshold})
	if err != nil {
		return err
	}

	log, err := openFraudLog(cfg)
	if err != nil {
		return err
	}
	defer log.Close()

	input := &audio.Input{
		Device:     cfg.InputDevice,
		SampleRate: model.FeatureSpec().SampleRate,
	}
	output := &audio.Output{
		Device: cfg.OutputDevice,
	}
	gen := &soundgen.Generator{SampleRate: 16000}
	duration := time.Duration(cfg.RecordDuration)

	beep, err := gen.Beep()
	if err != nil {
		return err
	}

	if !continuous {
		fmt.Println("Speak now...")

		if err := output.Play(ctx, beep); err != nil {
			slog.Warn(fmt.Sprintf("play prompt: %s", err))
		}

		clip, err := input.Record(ctx, duration)
		if err != nil {
			return err
		}

		result, err := d.AnalyzeClip(ctx, clip)
		if err != nil {
			return err
		}

		return report(ctx, log, result)
	}

	fmt.Printf("Checking voice continuously in %s samples, press Ctrl+C to stop\n", duration)

	clips := input.Stream(ctx, duration)

	if cfg.VADEnabled {
		voiceActivity := &vad.Detector{ModelPath: cfg.VADModelPath}

		clips, err = voiceActivity.Gate(ctx, clips)
		if err != nil {
			return err
		}
	}

	for result := range d.AnalyzeStream(ctx, clips) {
		if err := report(ctx, log, result); err != nil {
			return err
		}
	}

	return ctx.Err()
}

func openFraudLog(cfg config.Configuration) (*fraudlog.Log, error) {
	store, err := fraudlog.Open(cfg.FraudLog)
	if err != nil {
		return nil, err
	}

	if cfg.NATS.URL == "" {
		return fraudlog.New(store, nil), nil
	}

	n, err := notify.Connect(cfg.NATS.URL, cfg.NATS.Subject)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return fraudlog.New(&closingStore{Store: store, close: n.Close}, n), nil
}

// closingStore closes an additional resource together with the store.
type closingStore struct {
	fraudlog.Store
	close func() error
}

func (s *closingStore) Close() error {
	return errors.Join(s.Store.Close(), s.close())
}

func report(ctx context.Context, log *fraudlog.Log, result detector.Result) error {
	_, err := log.Record(ctx, fraudlog.SourceLive, "", result.Assessment)
	if err != nil {
		return err
	}

	fmt.Printf("Trust score: %d/100 (%s, %.2f%% confidence)\n", result.TrustScore, result.Verdict.Label, result.Verdict.Confidence)
	fmt.Printf("Risk: %s\n", result.Explanation)
	fmt.Printf("Status: %s\n", result.Status)
	fmt.Printf("Bank action: %s\n", result.BankAction)

	return nil
}
