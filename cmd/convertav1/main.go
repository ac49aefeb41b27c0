// Command convertav1 re-encodes videos to AV1 at roughly half their original
// size, keeping every audio and subtitle stream and embedding a cover image.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/StephanOrgiazzi/convertav1/internal/check"
	"github.com/StephanOrgiazzi/convertav1/internal/config"
	"github.com/StephanOrgiazzi/convertav1/internal/display"
	"github.com/StephanOrgiazzi/convertav1/internal/history"
	"github.com/StephanOrgiazzi/convertav1/internal/logging"
	"github.com/StephanOrgiazzi/convertav1/internal/metrics"
	"github.com/StephanOrgiazzi/convertav1/internal/pipeline"
	"github.com/StephanOrgiazzi/convertav1/internal/prompt"
	"github.com/StephanOrgiazzi/convertav1/internal/runner"
)

// version and commit are set at build time, e.g.
// -ldflags "-X main.version=1.2.0 -X main.commit=$(git rev-parse --short HEAD)".
var (
	version = "1.0.0-dev"
	commit  = "unknown"
)

// errReported is returned by commands that already logged their failure;
// run maps it to exit code 1 without printing anything else.
var errReported = errors.New("failed")

// app carries state shared by the root command and its subcommands.
type app struct {
	cfg *config.Config
	log *logging.Logger

	stdin  io.Reader
	stdout io.Writer
}

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes the command line and returns the process exit code.
// SIGINT/SIGTERM cancel the context so ffmpeg is stopped and partial
// output removed before exit.
func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{stdin: os.Stdin, stdout: os.Stdout}
	root := newRootCmd(a)
	root.SetArgs(args)

	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "convertav1: %v\n", err)
		}
		return 1
	}
	return 0
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "convertav1 [flags] [input...]",
		Short: "Convert videos to AV1 at about half their size",
		Long: `convertav1 re-encodes each input to AV1 with a video bitrate chosen so the
result lands near half the original file size. Audio and subtitle streams are
copied, and a cover image is embedded. Directories are searched for media
files. With no inputs, a path is read from stdin.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Close()
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.convert(cmd.Context())
		},
	}
	root.SetVersionTemplate(fmt.Sprintf("convertav1 %s (%s)\n", version, commit))
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		newCheckCmd(a),
		newConfigCmd(a),
		newHistoryCmd(a),
		newVersionCmd(),
	)
	return root
}

// setup loads the configuration (file, environment, flags) and opens the
// logger. Positional arguments of the root command become cfg.Inputs.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	log, err := logging.NewLogger(cfg)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	a.cfg = cfg
	a.log = log
	return nil
}

// convert is the default command: resolve inputs, then run the pipeline
// over them.
func (a *app) convert(ctx context.Context) error {
	cfg, log := a.cfg, a.log
	display.PrintBanner(a.stdout, version)

	// 1. Tools must exist before anything is probed.
	if err := check.CheckDeps(cfg); err != nil {
		log.Error("%v", err)
		log.Error("Install ffmpeg or point --ffmpeg/--ffprobe at it (see 'convertav1 check')")
		return errReported
	}

	// 2. No positional inputs: ask for one.
	inputs := cfg.Inputs
	if len(inputs) == 0 {
		path, err := prompt.ReadPath(a.stdin, a.stdout)
		if err != nil {
			log.Error("%v", err)
			return errReported
		}
		inputs = []string{path}
	}

	// 3. Run artifacts. History is best-effort.
	rec := metrics.New()
	opts := []pipeline.Option{pipeline.WithMetrics(rec)}
	if path := cfg.EffectiveHistoryDB(); path != "" {
		store, err := history.Open(path)
		if err != nil {
			log.Warn("History disabled: %v", err)
		} else {
			defer store.Close()
			opts = append(opts, pipeline.WithHistory(store))
		}
	}

	// 4. Pick the encoder once for the whole batch, then convert.
	conv, err := pipeline.NewConverter(ctx, cfg, log, runner.New(), opts...)
	if err != nil {
		log.Error("%v", err)
		return errReported
	}
	stats := pipeline.Run(ctx, conv, log, inputs)

	if err := rec.WriteFile(cfg.MetricsFile); err != nil {
		log.Warn("Metrics not written: %v", err)
	}
	if !stats.OK() {
		return errReported
	}
	return nil
}
