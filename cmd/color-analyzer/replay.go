package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	coloranalyzer "github.com/menta2k/color-analyzer"
	"github.com/menta2k/color-analyzer/internal/utils"
	"github.com/menta2k/color-analyzer/pkg/processing"
	"github.com/menta2k/color-analyzer/pkg/season"
)

var replayOpts struct {
	outDir  string
	debug   bool
	advise  bool
	session string
}

var replayCmd = &cobra.Command{
	Use:   "replay <dir>",
	Short: "Replay a recorded session of frames and report the final result",
	Long: `Replay every frame in a directory in name order, as a camera session
would deliver them. Each frame needs a <name>.mask.png sidecar.`,
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{"store": "true"},
	RunE:        runReplay,
}

func init() {
	f := replayCmd.Flags()
	f.StringVarP(&replayOpts.outDir, "out", "o", "", "output directory (default: output.output_dir)")
	f.BoolVar(&replayOpts.debug, "debug", false, "save an overlay for the last accepted frame")
	f.BoolVar(&replayOpts.advise, "advise", false, "ask the stylist model for palette advice")
	f.StringVar(&replayOpts.session, "session", "", "session id stored with the result (default: directory name)")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	dir := args[0]
	frames, skipped, err := utils.DiscoverFrames(dir)
	if err != nil {
		return err
	}
	for _, name := range skipped {
		log.Printf("skipping %s: no mask", name)
	}
	if len(frames) == 0 {
		return fmt.Errorf("no frames with masks in %s", dir)
	}

	outDir := replayOpts.outDir
	if outDir == "" {
		outDir = cfg.Output.OutputDir
	}
	session := replayOpts.session
	if session == "" {
		session = utils.SanitizeFilename(filepath.Base(filepath.Clean(dir)))
	}

	advisor, err := newAdvisor(replayOpts.advise)
	if err != nil {
		return err
	}

	p, err := newPipeline()
	if err != nil {
		return err
	}
	defer p.Close()

	processor := processing.NewProcessor()
	bar := progressbar.NewOptions(len(frames),
		progressbar.OptionSetDescription("Replaying frames"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)

	entries := make([]frameEntry, 0, len(frames))
	var last *utils.FrameFiles
	for i := range frames {
		if err := cmd.Context().Err(); err != nil {
			return err
		}
		files := frames[i]
		frame, err := loadFrame(processor, files)
		if err != nil {
			log.Printf("frame %s: %v", files.Name(), err)
			entries = append(entries, frameEntry{Name: files.Name(), Status: coloranalyzer.FrameFailed, Error: err.Error()})
			bar.Add(1)
			continue
		}
		report := p.ProcessFrame(frame)
		entries = append(entries, newFrameEntry(files.Name(), report))
		if report.Quality.IsAcceptable {
			last = &frames[i]
		}
		bar.Add(1)
	}
	bar.Finish()
	fmt.Fprintln(os.Stderr)
	p.Flush()

	stats := p.Stats()
	fmt.Printf("Frames:     %d (%d rejected, %d skipped, %d extracted, %d failed)\n",
		stats.Frames, stats.Rejected, stats.Skipped, stats.Extracted, stats.Failed)

	if last != nil && (replayOpts.debug || cfg.Output.Debug) {
		if frame, err := loadFrame(processor, *last); err == nil {
			writeDebugOverlay(processor, frame, outDir, session)
		}
	}

	result, err := p.Result()
	if err != nil {
		return fmt.Errorf("no result after %d frames: %w", len(frames), err)
	}
	printResult(result)

	out := output{
		Result:     result,
		Stats:      stats,
		Frames:     entries,
		References: season.ReferenceDistances(result.SkinColorLab),
	}
	finish(cmd.Context(), &out, advisor, session)
	if out.Advice != nil {
		fmt.Printf("Advice:     %s\n", out.Advice.Summary)
	}

	path, err := writeOutput(out, outDir, session)
	if err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	log.Printf("wrote %s", path)
	return nil
}
