package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/forPelevin/livecut/internal/config"
	"github.com/forPelevin/livecut/internal/logging"
	"github.com/forPelevin/livecut/internal/pipeline"
	"github.com/forPelevin/livecut/internal/render"
)

const runTimeout = 3 * time.Hour

// ErrNothingRendered is returned when every planned render failed.
var ErrNothingRendered = errors.New("all renders failed")

func run(cmd *cobra.Command, input string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return err
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return &config.Error{Field: "logging", Msg: "invalid", Err: err}
	}
	if exists {
		logger.Debug("config loaded", logging.String("path", resolved))
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	out, err := pipeline.Run(ctx, pipeline.Options{
		Input:  input,
		Config: cfg,
		Logger: logger,
	})
	if err != nil {
		return err
	}
	return printSummary(cmd.OutOrStdout(), out)
}

// applyFlags overrides config values with the flags the user set.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	if f.Changed("out") {
		v, _ := f.GetString("out")
		abs, err := config.ExpandPath(v)
		if err != nil {
			return fmt.Errorf("--out: %w", err)
		}
		cfg.Paths.OutDir = abs
	}
	if f.Changed("shorts") {
		cfg.Moments.MaxShorts, _ = f.GetInt("shorts")
	}
	if f.Changed("workers") {
		cfg.Render.Workers, _ = f.GetInt("workers")
	}
	if v, _ := f.GetBool("no-individual"); v {
		cfg.Render.Individual = false
	}
	if v, _ := f.GetBool("no-compilation"); v {
		cfg.Render.Compilation = false
	}
	if v, _ := f.GetBool("keep-temp"); v {
		cfg.Render.KeepTemp = true
	}
	if v, _ := f.GetBool("captions"); v {
		cfg.Render.Captions = true
	}
	if f.Changed("log-level") {
		cfg.Logging.Level, _ = f.GetString("log-level")
	}
	if f.Changed("log-format") {
		cfg.Logging.Format, _ = f.GetString("log-format")
	}
	if f.Changed("min-duration") {
		cfg.Moments.MinDurationSeconds, _ = f.GetFloat64("min-duration")
	}
	if f.Changed("max-duration") {
		cfg.Render.ShortDurationSeconds, _ = f.GetFloat64("max-duration")
	}
	return nil
}

func printSummary(w io.Writer, out pipeline.Outcome) error {
	res := out.Result
	if len(res.Ranked) == 0 {
		fmt.Fprintf(w, "No shorts created: the model returned no usable moments.\nAnalysis: %s\n", out.RunDir)
		return nil
	}

	fmt.Fprintln(w, "Top moments")
	fmt.Fprintln(w, momentsTable(res.Ranked, topMoments))
	if len(res.Renders) > 0 {
		fmt.Fprintln(w, "Shorts")
		fmt.Fprintln(w, resultsTable(res.Renders))
	}

	produced := len(render.Produced(res.Renders))
	failed := len(render.Failures(res.Renders))
	fmt.Fprintf(w, "%d shorts created, %d failed\nOutput:   %s\nManifest: %s\n", produced, failed, out.RunDir, out.ManifestPath)
	if produced == 0 && failed > 0 {
		return ErrNothingRendered
	}
	return nil
}
