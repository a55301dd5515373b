// Package stylist turns an analysis result into a short styling note by
// querying a language model. It is an optional collaborator: the analysis
// pipeline never depends on it.
package stylist

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/menta2k/color-analyzer/pkg/colorspace"
	"github.com/menta2k/color-analyzer/pkg/season"
	"github.com/menta2k/color-analyzer/pkg/types"
)

// ErrNoResult is returned when Advise is called without an analysis result
var ErrNoResult = errors.New("stylist: no analysis result")

// Client sends a prompt, and optionally an image, to a model backend
type Client interface {
	Query(ctx context.Context, model, prompt, imgB64 string) (string, error)
}

// Advice is the styling note returned by the model
type Advice struct {
	Summary  string   `json:"summary"`
	Palette  []string `json:"palette"`
	Avoid    []string `json:"avoid"`
	Tips     []string `json:"tips"`
	Fallback bool     `json:"fallback,omitempty"`
}

// DefaultPrompt frames the analysis for the model. The %s verb receives the
// measured colors.
const DefaultPrompt = `You are a personal color stylist.

Measured colors of the client:
%s

Return JSON only:
{
  "summary": "two short sentences about what suits the client",
  "palette": ["#rrggbb", "#rrggbb", "#rrggbb", "#rrggbb", "#rrggbb"],
  "avoid": ["#rrggbb", "#rrggbb", "#rrggbb"],
  "tips": ["tip", "tip", "tip"]
}

HARD RULES
- Palette and avoid entries are sRGB hex colors.
- Stay consistent with the season and contrast given above.
- Do not comment on anything except clothing, makeup and hair colors.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// Config controls an Advisor
type Config struct {
	Model        string        `json:"model" yaml:"model"`
	Timeout      time.Duration `json:"timeout" yaml:"timeout"`
	AttachImage  bool          `json:"attachImage" yaml:"attachImage"`
	MaxPalette   int           `json:"maxPalette" yaml:"maxPalette"`
	PromptFormat string        `json:"promptFormat,omitempty" yaml:"promptFormat,omitempty"`
}

// DefaultConfig returns the default advisor configuration
func DefaultConfig() Config {
	return Config{
		Model:       "llama3.2",
		Timeout:     120 * time.Second,
		AttachImage: false,
		MaxPalette:  8,
	}
}

// Advisor asks a model for styling advice
type Advisor struct {
	client Client
	config Config
}

// NewAdvisor creates an advisor with the default configuration
func NewAdvisor(client Client) *Advisor {
	return NewAdvisorWithConfig(client, DefaultConfig())
}

// NewAdvisorWithConfig creates an advisor with a custom configuration
func NewAdvisorWithConfig(client Client, cfg Config) *Advisor {
	if cfg.MaxPalette <= 0 {
		cfg.MaxPalette = DefaultConfig().MaxPalette
	}
	if cfg.PromptFormat == "" {
		cfg.PromptFormat = DefaultPrompt
	}
	return &Advisor{client: client, config: cfg}
}

// Advise returns styling advice for result. Model output that cannot be
// parsed produces a fallback Advice built from the season reference rather
// than an error.
func (a *Advisor) Advise(ctx context.Context, result *types.AnalysisResult) (*Advice, error) {
	if result == nil {
		return nil, ErrNoResult
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && a.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()
	}

	var img string
	if a.config.AttachImage && len(result.Thumbnail) > 0 {
		img = base64.StdEncoding.EncodeToString(result.Thumbnail)
	}

	raw, err := a.client.Query(ctx, a.config.Model, BuildPrompt(a.config.PromptFormat, result), img)
	if err != nil {
		return nil, fmt.Errorf("stylist query failed: %w", err)
	}

	advice := ParseAdvice(raw)
	advice.Palette = normalizeHex(advice.Palette, a.config.MaxPalette)
	advice.Avoid = normalizeHex(advice.Avoid, a.config.MaxPalette)
	if len(advice.Palette) == 0 {
		if swatch, ok := season.Swatch(result.Season); ok {
			advice.Palette = []string{colorspace.Hex(swatch)}
			advice.Fallback = true
		}
	}
	return advice, nil
}

// BuildPrompt renders the measured colors of result into format
func BuildPrompt(format string, result *types.AnalysisResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- season: %s (confidence %.2f, runner-up %s)\n", result.Season, result.Confidence, result.NextClosestSeason)
	fmt.Fprintf(&b, "- skin: %s (L*=%.1f a*=%.1f b*=%.1f)\n", result.SkinHex,
		result.SkinColorLab.L, result.SkinColorLab.A, result.SkinColorLab.B)
	if result.HairColorLab != nil {
		fmt.Fprintf(&b, "- hair: %s (L*=%.1f)\n", result.HairHex, result.HairColorLab.L)
	}
	for _, eye := range result.EyeColors {
		fmt.Fprintf(&b, "- %s eye: %s\n", eye.Side, eye.Hex)
	}
	if result.ContrastLevel != "" {
		fmt.Fprintf(&b, "- contrast: %s (%.0f)", result.ContrastLevel, result.ContrastValue)
	}
	return fmt.Sprintf(format, strings.TrimRight(b.String(), "\n"))
}

// normalizeHex lowercases, validates and deduplicates hex colors
func normalizeHex(in []string, limit int) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, h := range in {
		h = strings.ToLower(strings.TrimSpace(h))
		if !strings.HasPrefix(h, "#") {
			h = "#" + h
		}
		c, err := colorful.Hex(h)
		if err != nil {
			continue
		}
		h = c.Hex()
		if seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, h)
		if len(out) == limit {
			break
		}
	}
	return out
}
