// Command nettrain trains a feed-forward network described by a YAML or
// JSON job file and prints the result.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/copyleftdev/nettrain/internal/config"
	"github.com/copyleftdev/nettrain/internal/job"
	"github.com/copyleftdev/nettrain/internal/logging"
	"github.com/copyleftdev/nettrain/internal/train"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "nettrain: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	file      string
	algorithm string
	epochs    int
	show      int
	goal      float64
	strict    bool
	seed      uint64
	logLevel  string
	output    string
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var o options
	fs := pflag.NewFlagSet("nettrain", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&o.file, "file", "f", "", "job file (YAML or JSON)")
	fs.StringVarP(&o.algorithm, "algorithm", "a", cfg.Training.Algorithm,
		"training algorithm: "+strings.Join(train.Algorithms(), ", "))
	fs.IntVarP(&o.epochs, "epochs", "e", cfg.Training.Epochs, "maximum number of epochs")
	fs.IntVar(&o.show, "show", cfg.Training.Show, "log progress every N epochs (0 disables)")
	fs.Float64Var(&o.goal, "goal", cfg.Training.Goal, "stop when the error drops to this value")
	fs.BoolVar(&o.strict, "strict", cfg.Training.Strict, "fail when routine options contradict --epochs")
	fs.Uint64Var(&o.seed, "seed", cfg.Training.Seed, "seed for weight initialisation")
	fs.StringVar(&o.logLevel, "log-level", "info", "log level")
	fs.StringVarP(&o.output, "output", "o", "", "write the trained parameters as JSON to this file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if o.file == "" {
		return fmt.Errorf("a job file is required (-f)")
	}

	j, err := job.Load(o.file)
	if err != nil {
		return err
	}
	// Flags given explicitly beat the job file; the job file beats flag defaults.
	if fs.Changed("algorithm") {
		j.Algorithm = o.algorithm
	}
	if fs.Changed("epochs") {
		j.Epochs = o.epochs
	}
	if fs.Changed("show") {
		j.Show = &o.show
	}
	if fs.Changed("goal") {
		j.Goal = &o.goal
	}
	if fs.Changed("seed") {
		j.Seed = o.seed
	}
	j.ApplyDefaults(job.Defaults{
		Algorithm: o.algorithm,
		Epochs:    o.epochs,
		Show:      o.show,
		Goal:      o.goal,
		Strict:    o.strict,
		Seed:      o.seed,
	})

	logger := logging.New(logging.ParseLevel(o.logLevel), stderr).WithFormat(logging.TextFormat)
	zlog := logging.NewZapLogger(logger)

	out, err := j.Run(ctx, zlog, train.WithTrialObserver(train.PrintTrials(stdout)))
	if err != nil {
		return err
	}
	printSummary(stdout, out)

	if o.output != "" {
		data, err := json.MarshalIndent(map[string]interface{}{
			"layers":     out.Network.Sizes(),
			"parameters": out.Network.Parameters(),
		}, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(o.output, data, 0o644); err != nil {
			return fmt.Errorf("write parameters: %w", err)
		}
	}
	return nil
}

func printSummary(w io.Writer, out *job.Outcome) {
	res := out.Result
	fmt.Fprintf(w, "algorithm:  %s\n", res.Algorithm)
	fmt.Fprintf(w, "stopped:    %s\n", res.Reason)
	fmt.Fprintf(w, "epochs:     %s\n", humanize.Comma(int64(res.Epochs)))
	fmt.Fprintf(w, "error:      %g\n", res.Error)
	fmt.Fprintf(w, "duration:   %s\n", humanize.SIWithDigits(res.Duration.Seconds(), 2, "s"))
	fmt.Fprintf(w, "parameters: %s\n", humanize.Comma(int64(out.Network.NumParameters())))
	for _, p := range out.Network.Parameters() {
		fmt.Fprintf(w, "  %s\n", humanize.FtoaWithDigits(p, 6))
	}
}
