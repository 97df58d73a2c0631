package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/mgoltzsche/voicetrust/internal/classifier"
	"github.com/mgoltzsche/voicetrust/internal/cli"
	"github.com/mgoltzsche/voicetrust/internal/detector"
	"github.com/mgoltzsche/voicetrust/internal/trust"
	"github.com/mgoltzsche/voicetrust/pkg/config"
)

// fileResult is the outcome of checking a single file.
type fileResult struct {
	File string `json:"file"`
	detector.Result
	Error string `json:"error,omitempty"`
}

func main() {
	configFile := "/etc/voicetrust/config.yaml"
	cfg, err := config.FromFile(configFile)
	configFlag := &config.Flag{File: configFile, Config: &cfg}

	jsonOutput := false

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [OPTIONS] FILE.wav...\n\nChecks whether the voice within WAV files is real or synthetic.\nUse - to read from stdin.\n\nOptions:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Var(configFlag, "config", "Path to the configuration file")
	flag.StringVar(&cfg.ModelPath, "model", cfg.ModelPath, "Path to the voice classifier model file")
	flag.IntVar(&cfg.Threshold, "threshold", cfg.Threshold, "Trust score below which a caller is blocked")
	flag.BoolVar(&jsonOutput, "json", jsonOutput, "Print results as JSON lines")
	cli.ParseFlagsWithEnvVars(flag.CommandLine)

	if !configFlag.IsSet && err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error(err.Error())
		os.Exit(1)
	}

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	blocked, err := checkFiles(ctx, cfg, flag.Args(), jsonOutput, os.Stdout)
	if err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}

	if blocked {
		os.Exit(3)
	}
}

// checkFiles analyzes every file and reports whether any of them was blocked.
func checkFiles(ctx context.Context, cfg config.Configuration, files []string, jsonOutput bool, out io.Writer) (bool, error) {
	model, err := classifier.Load(cfg.ModelPath)
	if err != nil {
		return false, err
	}

	d, err := detector.New(model, trust.Policy{Threshold: cfg.Threshold})
	if err != nil {
		return false, err
	}

	var (
		failed  error
		blocked bool
		results = make([]fileResult, 0, len(files))
	)

	for _, file := range files {
		result, err := checkFile(ctx, d, file)
		r := fileResult{File: file, Result: result}

		if err != nil {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}

			slog.Warn(err.Error(), "file", file)
			r.Error = err.Error()
			failed = errors.Join(failed, err)
		} else if result.Decision == trust.Blocked {
			blocked = true
		}

		results = append(results, r)
	}

	if err := printResults(out, results, jsonOutput); err != nil {
		return false, err
	}

	if failed != nil {
		return blocked, fmt.Errorf("failed to check %d of %d files", countErrors(results), len(results))
	}

	return blocked, nil
}

func checkFile(ctx context.Context, d *detector.Detector, file string) (detector.Result, error) {
	if file == "-" {
		return d.Analyze(ctx, os.Stdin)
	}

	f, err := os.Open(file)
	if err != nil {
		return detector.Result{}, err
	}
	defer f.Close()

	result, err := d.Analyze(ctx, f)
	if err != nil {
		return result, fmt.Errorf("check %s: %w", file, err)
	}

	return result, nil
}

func printResults(out io.Writer, results []fileResult, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(out)
		for _, r := range results {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}

		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FILE\tTRUST SCORE\tVERDICT\tBANK ACTION\tRISK")

	for _, r := range results {
		if r.Error != "" {
			fmt.Fprintf(w, "%s\t-\t-\t-\t%s\n", r.File, r.Error)
			continue
		}

		fmt.Fprintf(w, "%s\t%d\t%s (%.2f%%)\t%s\t%s\n", r.File, r.TrustScore, r.Verdict.Label, r.Verdict.Confidence, r.BankAction, r.Explanation)
	}

	return w.Flush()
}

func countErrors(results []fileResult) int {
	n := 0
	for _, r := range results {
		if r.Error != "" {
			n++
		}
	}
	return n
}
