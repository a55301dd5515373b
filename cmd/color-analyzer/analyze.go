package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	coloranalyzer "github.com/menta2k/color-analyzer"
	"github.com/menta2k/color-analyzer/internal/utils"
	"github.com/menta2k/color-analyzer/pkg/processing"
	"github.com/menta2k/color-analyzer/pkg/season"
)

var analyzeOpts struct {
	mask      string
	landmarks string
	outDir    string
	debug     bool
	advise    bool
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <image>",
	Short: "Analyze a single frame with its segmentation mask",
	Long: `Analyze a single frame. The mask and landmarks are read from the
<name>.mask.png and <name>.landmarks.json sidecars unless --mask and
--landmarks are given.`,
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{"store": "true"},
	RunE:        runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVar(&analyzeOpts.mask, "mask", "", "segmentation mask (default: <image>.mask.png)")
	f.StringVar(&analyzeOpts.landmarks, "landmarks", "", "landmarks JSON (default: <image>.landmarks.json when present)")
	f.StringVarP(&analyzeOpts.outDir, "out", "o", "", "output directory (default: output.output_dir)")
	f.BoolVar(&analyzeOpts.debug, "debug", false, "save a mask and landmark overlay")
	f.BoolVar(&analyzeOpts.advise, "advise", false, "ask the stylist model for palette advice")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	files := utils.FrameFiles{Image: args[0], Mask: analyzeOpts.mask, Landmarks: analyzeOpts.landmarks}
	if files.Mask == "" {
		found, err := utils.FrameFilesFor(args[0])
		if err != nil {
			return err
		}
		files.Mask = found.Mask
		if files.Landmarks == "" {
			files.Landmarks = found.Landmarks
		}
	}

	outDir := analyzeOpts.outDir
	if outDir == "" {
		outDir = cfg.Output.OutputDir
	}

	advisor, err := newAdvisor(analyzeOpts.advise)
	if err != nil {
		return err
	}

	p, err := newPipeline()
	if err != nil {
		return err
	}
	defer p.Close()

	processor := processing.NewProcessor()
	frame, err := loadFrame(processor, files)
	if err != nil {
		return err
	}

	report := p.ProcessFrame(frame)
	if report.Err != nil {
		return fmt.Errorf("frame %s: %w", files.Name(), report.Err)
	}
	p.Flush()

	if analyzeOpts.debug || cfg.Output.Debug {
		writeDebugOverlay(processor, frame, outDir, files.Name())
	}

	fmt.Printf("Quality:    %.2f (%s)\n", report.Quality.Overall, report.Quality.Feedback)
	if report.Status != coloranalyzer.FrameSubmitted {
		return fmt.Errorf("frame %s was %s: %s", files.Name(), report.Status, report.Quality.Feedback)
	}

	result, err := p.Result()
	if err != nil {
		return err
	}
	printResult(result)

	out := output{
		Result:     result,
		Stats:      p.Stats(),
		Frames:     []frameEntry{newFrameEntry(files.Name(), report)},
		References: season.ReferenceDistances(result.SkinColorLab),
	}
	finish(cmd.Context(), &out, advisor, files.Name())
	if out.Advice != nil {
		fmt.Printf("Advice:     %s\n", out.Advice.Summary)
	}

	path, err := writeOutput(out, outDir, files.Image)
	if err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	log.Printf("wrote %s", path)
	return nil
}
