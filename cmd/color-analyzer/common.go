package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	coloranalyzer "github.com/menta2k/color-analyzer"
	"github.com/menta2k/color-analyzer/internal/utils"
	"github.com/menta2k/color-analyzer/pkg/processing"
	"github.com/menta2k/color-analyzer/pkg/season"
	"github.com/menta2k/color-analyzer/pkg/stylist"
	"github.com/menta2k/color-analyzer/pkg/stylist/llamacpp"
	"github.com/menta2k/color-analyzer/pkg/stylist/ollama"
	"github.com/menta2k/color-analyzer/pkg/types"
)

// loadFrame reads a frame image and its sidecars
func loadFrame(processor *processing.Processor, files utils.FrameFiles) (coloranalyzer.Frame, error) {
	img, err := processor.LoadImageSmart(files.Image)
	if err != nil {
		return coloranalyzer.Frame{}, fmt.Errorf("failed to load frame: %w", err)
	}
	mask, err := processor.LoadMask(files.Mask)
	if err != nil {
		return coloranalyzer.Frame{}, err
	}
	f := coloranalyzer.Frame{Image: img, Mask: mask, Timestamp: time.Now()}
	if files.Landmarks != "" {
		if f.Landmarks, err = processor.LoadLandmarks(files.Landmarks); err != nil {
			return coloranalyzer.Frame{}, err
		}
	}
	return f, nil
}

// writeDebugOverlay saves the mask and landmark overlay next to the results
func writeDebugOverlay(processor *processing.Processor, f coloranalyzer.Frame, outDir, name string) {
	if err := utils.EnsureDir(outDir); err != nil {
		log.Printf("debug overlay skipped: %v", err)
		return
	}
	overlay := processor.CreateDebugOverlay(f.Image, f.Mask, f.Landmarks)
	path := filepath.Join(outDir, name+"_debug.png")
	if err := processor.SaveImage(overlay, path, "png", 100, true); err != nil {
		log.Printf("debug overlay save failed: %v", err)
		return
	}
	log.Printf("wrote %s", path)
}

// output is the JSON document written by analyze and replay
type output struct {
	Result *types.AnalysisResult `json:"result"`
	Advice *stylist.Advice       `json:"advice,omitempty"`
	Stats  coloranalyzer.Stats   `json:"stats"`
	Frames []frameEntry          `json:"frames,omitempty"`

	// References holds the CIEDE2000 distance from the skin color to each
	// season archetype
	References map[types.Season]float64 `json:"referenceDistances,omitempty"`
}

// frameEntry is one line of the per-frame log
type frameEntry struct {
	Name     string                    `json:"name"`
	Status   coloranalyzer.FrameStatus `json:"status"`
	Quality  float64                   `json:"quality"`
	Feedback string                    `json:"feedback,omitempty"`
	Error    string                    `json:"error,omitempty"`
}

func newFrameEntry(name string, r coloranalyzer.FrameReport) frameEntry {
	e := frameEntry{Name: name, Status: r.Status, Quality: r.Quality.Overall, Feedback: r.Quality.Feedback}
	if r.Err != nil {
		e.Error = r.Err.Error()
	}
	return e
}

func writeOutput(out output, outDir, name string) (string, error) {
	if err := utils.EnsureDir(outDir); err != nil {
		return "", err
	}
	path := utils.GenerateOutputFilename(name, outDir, "", cfg.Output.Suffix, "json")
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}
	return path, os.WriteFile(path, data, 0o644)
}

func printResult(r *types.AnalysisResult) {
	fmt.Printf("Season:     %s (confidence %.0f%%, runner-up %s by %.2f)\n",
		r.Season, r.Confidence*100, r.NextClosestSeason, r.DeltaEToNextClosest)
	fmt.Printf("Skin:       %s  L*=%.1f a*=%.1f b*=%.1f\n", r.SkinHex, r.SkinColorLab.L, r.SkinColorLab.A, r.SkinColorLab.B)
	if r.HairHex != "" {
		fmt.Printf("Hair:       %s\n", r.HairHex)
	}
	for _, eye := range r.EyeColors {
		fmt.Printf("Eye (%s): %s\n", eye.Side, eye.Hex)
	}
	fmt.Printf("Contrast:   %s (%.0f) %s\n", r.ContrastLevel, r.ContrastValue, r.ContrastDescription)
	nearest, d := season.NearestReference(r.SkinColorLab)
	fmt.Printf("Reference:  closest archetype %s (deltaE2000 %.1f)\n", nearest, d)
	if len(r.Thumbnail) > 0 {
		fmt.Printf("Thumbnail:  %s %s\n", r.ThumbnailFormat, utils.FormatFileSize(int64(len(r.Thumbnail))))
	}
}

// newAdvisor creates the configured stylist, or nil when disabled
func newAdvisor(force bool) (*stylist.Advisor, error) {
	if !cfg.Stylist.Enabled && !force {
		return nil, nil
	}

	var (
		client stylist.Client
		err    error
	)
	switch strings.ToLower(cfg.Stylist.Backend) {
	case "ollama", "":
		client, err = ollama.NewClient(cfg.Stylist.URL)
	case "llamacpp":
		client, err = llamacpp.NewClient(cfg.Stylist.URL)
	default:
		return nil, fmt.Errorf("unknown stylist backend: %s (use 'ollama' or 'llamacpp')", cfg.Stylist.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create stylist client: %w", err)
	}
	return stylist.NewAdvisorWithConfig(client, cfg.StylistAdvisorConfig()), nil
}

// finish asks for advice and stores the result when configured
func finish(ctx context.Context, out *output, advisor *stylist.Advisor, session string) {
	if advisor != nil {
		advice, err := advisor.Advise(ctx, out.Result)
		if err != nil {
			log.Printf("stylist unavailable: %v", err)
		} else {
			out.Advice = advice
		}
	}
	if db != nil {
		id, err := db.SaveResult(ctx, session, out.Result)
		if err != nil {
			log.Printf("failed to store result: %v", err)
		} else {
			log.Printf("stored result #%d", id)
		}
	}
}
