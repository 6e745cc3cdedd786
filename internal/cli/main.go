package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	root := newRootCmd()
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "livecut <video-file-or-url>",
		Short: "Cut vertical shorts from the best moments of a long video",
		Long: "livecut transcribes a long video, asks a language model for its most\n" +
			"noteworthy moments and renders them as 9:16 shorts plus a compilation.",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0])
		},
	}

	f := root.Flags()
	f.String("out", "", "Output directory (default from config, \"out\")")
	f.String("config", "", "Config file (default ./livecut.toml when present)")
	f.Int("shorts", 0, "Maximum number of individual shorts (default 5)")
	f.Int("workers", 0, "Concurrent render jobs (default 2)")
	f.Bool("no-individual", false, "Skip individual shorts")
	f.Bool("no-compilation", false, "Skip the compilation short")
	f.Bool("keep-temp", false, "Keep downloads, audio and render scratch")
	f.Bool("captions", false, "Burn transcript captions into the shorts")
	f.String("log-level", "", "Log level: debug, info, warn, error")
	f.String("log-format", "", "Log format: auto, console, json")

	// Hidden tuning flags
	f.Float64("min-duration", 0, "Minimum moment duration in seconds")
	f.Float64("max-duration", 0, "Short and compilation duration ceiling in seconds")
	_ = f.MarkHidden("min-duration")
	_ = f.MarkHidden("max-duration")

	return root
}
