package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/chunkscribe/chunkscribe/internal/audio"
	"github.com/chunkscribe/chunkscribe/internal/format"
	"github.com/chunkscribe/chunkscribe/internal/transcribe"
)

// ProbeCmd creates the probe command: inspect a file and report how a
// transcription run would chunk and bill it, without calling the API.
func ProbeCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe <audio-file>",
		Short: "Inspect an audio file and preview chunking and cost",
		Example: `  chunkscribe probe lecture.mp3
  chunkscribe probe podcast.m4a`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProbe(cmd, env, args[0])
		},
	}
	return cmd
}

func runProbe(cmd *cobra.Command, env *Env, inputPath string) error {
	ctx := cmd.Context()

	cfg, err := env.ConfigLoader.Load()
	if err != nil {
		return err
	}

	ffmpegPath, err := env.FFmpegResolver.Resolve(ctx)
	if err != nil {
		return err
	}
	prober, err := env.ProberFactory.NewProber(ffmpegPath)
	if err != nil {
		return err
	}

	src, err := prober.Probe(ctx, inputPath)
	if err != nil {
		return err
	}

	plan, err := audio.PlanChunks(src, cfg.PlanConfig())
	if err != nil {
		return err
	}

	fmt.Fprintf(env.Stdout, "File:     %s\n", src.Path)
	fmt.Fprintf(env.Stdout, "Format:   %s\n", src.Format)
	fmt.Fprintf(env.Stdout, "Size:     %s\n", format.Size(src.Size))
	fmt.Fprintf(env.Stdout, "Duration: %s\n", format.Clock(src.Duration))
	if plan.Single() {
		fmt.Fprintf(env.Stdout, "Chunks:   1 (fits in a single request)\n")
	} else {
		fmt.Fprintf(env.Stdout, "Chunks:   %d (overlap %s)\n", len(plan.Windows), cfg.Overlap)
	}
	fmt.Fprintf(env.Stdout, "Cost:     ~$%.4f\n", transcribe.EstimateCostUSD(billedDuration(plan)))
	return nil
}

// billedDuration sums window durations; overlap is uploaded twice and the
// API bills it twice.
func billedDuration(plan audio.Plan) (total time.Duration) {
	for _, w := range plan.Windows {
		total += w.Duration()
	}
	return total
}
