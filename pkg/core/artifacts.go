// Package core provides the shared model types for unified-runner.
package core

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Attachment represents a debug artifact captured for a test
type Attachment struct {
	Name        string `json:"name"`        // Descriptive name: screenshot, page_source
	ContentType string `json:"contentType"` // MIME type: image/png, text/plain
	Path        string `json:"path"`        // File path
	Body        []byte `json:"-"`           // In-memory content (not serialized to JSON)
}

// Common attachment names
const (
	AttachmentScreenshot = "screenshot"
	AttachmentPageSource = "page_source"
)

// Common content types
const (
	ContentTypePNG  = "image/png"
	ContentTypeJSON = "application/json"
	ContentTypeText = "text/plain"
)

// NewScreenshotAttachment creates a screenshot attachment
func NewScreenshotAttachment(path string, data []byte) Attachment {
	return Attachment{
		Name:        AttachmentScreenshot,
		ContentType: ContentTypePNG,
		Path:        path,
		Body:        data,
	}
}

// ArtifactConfig controls when screenshots are captured
type ArtifactConfig struct {
	Dir              string `yaml:"dir" json:"dir"`                           // Default: reports/screenshots
	CaptureOnFailure bool   `yaml:"captureOnFailure" json:"captureOnFailure"` // Default: true
	CaptureOnSuccess bool   `yaml:"captureOnSuccess" json:"captureOnSuccess"` // Default: false
}

// DefaultScreenshotsDir is used when SCREENSHOTS_DIR is unset.
const DefaultScreenshotsDir = "reports/screenshots"

// DefaultArtifactConfig returns the capture defaults
func DefaultArtifactConfig() ArtifactConfig {
	return ArtifactConfig{
		Dir:              DefaultScreenshotsDir,
		CaptureOnFailure: true,
		CaptureOnSuccess: false,
	}
}

// ShouldCapture determines if a screenshot should be taken for a status
func (c ArtifactConfig) ShouldCapture(status Status) bool {
	switch status {
	case StatusFailed:
		return c.CaptureOnFailure
	case StatusPassed:
		return c.CaptureOnSuccess
	default:
		return false
	}
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ScreenshotName turns a test name into a file-system safe base name.
// Subtest separators and spaces become underscores.
func ScreenshotName(testName string) string {
	name := unsafeNameChars.ReplaceAllString(testName, "_")
	name = strings.Trim(name, "_")
	if name == "" {
		name = "screenshot"
	}
	return name
}

// ScreenshotPath returns "<dir>/<name>.png" for a test.
func (c ArtifactConfig) ScreenshotPath(testName string) string {
	dir := c.Dir
	if dir == "" {
		dir = DefaultScreenshotsDir
	}
	return filepath.Join(dir, ScreenshotName(testName)+".png")
}
