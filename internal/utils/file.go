package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Sidecar suffixes that accompany a frame image
const (
	MaskSuffix      = ".mask.png"
	LandmarksSuffix = ".landmarks.json"
)

// FrameFiles is one frame image with its segmentation sidecars
type FrameFiles struct {
	Image     string
	Mask      string
	Landmarks string // empty when the frame has no landmark file
}

// Name returns the frame's base name without extension
func (f FrameFiles) Name() string {
	base := filepath.Base(f.Image)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// EnsureDir creates a directory if it doesn't exist
func EnsureDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

// GetFileExtension returns the file extension without the dot
func GetFileExtension(filename string) string {
	ext := filepath.Ext(filename)
	if len(ext) > 0 {
		return strings.ToLower(ext[1:])
	}
	return ""
}

// IsImageFile checks if a file has an image extension
func IsImageFile(filename string) bool {
	switch GetFileExtension(filename) {
	case "jpg", "jpeg", "png", "webp", "bmp", "tiff", "gif":
		return true
	}
	return false
}

// isSidecar reports whether name is a mask or landmark file rather than a frame
func isSidecar(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, MaskSuffix) || strings.HasSuffix(lower, LandmarksSuffix)
}

// SidecarsFor returns the expected mask and landmark paths of a frame image
func SidecarsFor(image string) (mask, landmarks string) {
	stem := strings.TrimSuffix(image, filepath.Ext(image))
	return stem + MaskSuffix, stem + LandmarksSuffix
}

// FrameFilesFor resolves the sidecars of one frame image. The mask must
// exist; the landmark file is optional.
func FrameFilesFor(image string) (FrameFiles, error) {
	mask, landmarks := SidecarsFor(image)
	if !FileExists(mask) {
		return FrameFiles{}, fmt.Errorf("frame %s has no mask (expected %s)", image, mask)
	}
	f := FrameFiles{Image: image, Mask: mask}
	if FileExists(landmarks) {
		f.Landmarks = landmarks
	}
	return f, nil
}

// DiscoverFrames lists the frames of a directory in name order. Images
// without a mask are returned in skipped.
func DiscoverFrames(dir string) (frames []FrameFiles, skipped []string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !IsImageFile(e.Name()) || isSidecar(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		f, err := FrameFilesFor(filepath.Join(dir, name))
		if err != nil {
			skipped = append(skipped, filepath.Join(dir, name))
			continue
		}
		frames = append(frames, f)
	}
	return frames, skipped, nil
}

// GenerateOutputFilename generates an output filename based on input and parameters
func GenerateOutputFilename(inputFile, outputDir, prefix, suffix, format string) string {
	baseName := filepath.Base(inputFile)
	nameWithoutExt := strings.TrimSuffix(baseName, filepath.Ext(baseName))

	if format == "" {
		format = GetFileExtension(inputFile)
		if format == "" {
			format = "json"
		}
	}

	outputName := fmt.Sprintf("%s%s%s.%s", prefix, nameWithoutExt, suffix, format)
	return filepath.Join(outputDir, outputName)
}

// FileExists checks if a file exists and is not a directory
func FileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// DirExists checks if a directory exists
func DirExists(dirname string) bool {
	info, err := os.Stat(dirname)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// SanitizeFilename removes or replaces invalid characters in filenames
func SanitizeFilename(filename string) string {
	invalid := []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|", " "}
	result := filename
	for _, char := range invalid {
		result = strings.ReplaceAll(result, char, "_")
	}
	return strings.Trim(result, "_.")
}

// FormatFileSize formats file size in human-readable format
func FormatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}

	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
