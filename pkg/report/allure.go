package report

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/devicelab-dev/unified-runner/pkg/core"
	"github.com/devicelab-dev/unified-runner/pkg/logger"
)

// Allure result schema types.

// AllureResult represents a single test result in Allure format.
type AllureResult struct {
	UUID          string              `json:"uuid"`
	HistoryID     string              `json:"historyId"`
	FullName      string              `json:"fullName"`
	Name          string              `json:"name"`
	Description   string              `json:"description,omitempty"`
	Status        string              `json:"status"`
	Stage         string              `json:"stage"`
	Start         int64               `json:"start"`
	Stop          int64               `json:"stop"`
	Labels        []AllureLabel       `json:"labels"`
	StatusDetails AllureStatusDetails `json:"statusDetails"`
	Attachments   []AllureAttachment  `json:"attachments"`
}

// AllureAttachment represents a file attachment.
type AllureAttachment struct {
	Name   string `json:"name"`
	Source string `json:"source"`
	Type   string `json:"type"`
}

// AllureLabel represents a label on a test result.
type AllureLabel struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// AllureStatusDetails holds failure message and trace.
type AllureStatusDetails struct {
	Message string `json:"message"`
	Trace   string `json:"trace"`
}

// AllureCategory defines a failure category with regex matching.
type AllureCategory struct {
	Name            string   `json:"name"`
	MatchedStatuses []string `json:"matchedStatuses"`
	MessageRegex    string   `json:"messageRegex"`
}

// GenerateAllure writes Allure-compatible result files for run into
// <dir>/allure-results/.
func GenerateAllure(dir string, run *core.RunResult) error {
	allureDir := filepath.Join(dir, AllureDir)
	if err := os.MkdirAll(allureDir, 0o755); err != nil {
		return errors.Wrap(err, "create allure-results dir")
	}

	for _, o := range run.Outcomes {
		result := buildAllureResult(o)
		if o.Screenshot != "" {
			copyFile(o.Screenshot, filepath.Join(allureDir, filepath.Base(o.Screenshot)))
		}

		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return errors.Wrapf(err, "marshal allure result for %s", o.Name)
		}
		resultPath := filepath.Join(allureDir, result.UUID+"-result.json")
		if err := os.WriteFile(resultPath, data, 0o644); err != nil {
			return errors.Wrapf(err, "write allure result %s", o.Name)
		}
	}

	if err := writeAllureCategories(allureDir); err != nil {
		return err
	}
	return writeAllureEnvironment(allureDir, run)
}

// buildAllureResult maps one outcome. The group and project become the
// parent suite and suite.
func buildAllureResult(o core.TestOutcome) AllureResult {
	group, project := GroupAndProject(o.Name)
	labels := []AllureLabel{
		{Name: "parentSuite", Value: group},
		{Name: "suite", Value: project},
		{Name: "package", Value: o.Package},
		{Name: "framework", Value: "go test"},
	}
	if o.Tag != core.TagNone {
		labels = append(labels, AllureLabel{Name: "tag", Value: string(o.Tag)})
	}

	var details AllureStatusDetails
	if o.Status == core.StatusFailed {
		details.Message = o.ShortReason()
		details.Trace = o.Reason
	}

	var attachments []AllureAttachment
	if o.Screenshot != "" {
		attachments = append(attachments, AllureAttachment{
			Name:   "Screenshot",
			Source: filepath.Base(o.Screenshot),
			Type:   core.ContentTypePNG,
		})
	}

	start := o.StartTime.UnixMilli()
	name := o.Test
	if name == "" {
		name = o.Name
	}
	return AllureResult{
		UUID:          uuid.NewString(),
		HistoryID:     fnv32aHash(o.Name),
		FullName:      o.Name,
		Name:          name,
		Description:   o.Description,
		Status:        string(o.Status),
		Stage:         "finished",
		Start:         start,
		Stop:          start + o.Duration.Milliseconds(),
		Labels:        labels,
		StatusDetails: details,
		Attachments:   attachments,
	}
}

// copyFile copies src to dst, ignoring a missing source.
func copyFile(src, dst string) {
	in, err := os.Open(src)
	if err != nil {
		return
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		logger.Warn("failed to copy %s to %s: %v", src, dst, err)
	}
}

// fnv32aHash returns a hex-encoded FNV-32a hash of the input string.
func fnv32aHash(s string) string {
	h := fnv.New32a()
	h.Write([]byte(s))
	return fmt.Sprintf("%08x", h.Sum32())
}

func writeAllureCategories(allureDir string) error {
	categories := []AllureCategory{
		{Name: "Element Not Found", MatchedStatuses: []string{"failed"}, MessageRegex: "(?i).*element not found.*|.*no such element.*"},
		{Name: "Timeout", MatchedStatuses: []string{"failed"}, MessageRegex: "(?i).*timeout.*|.*timed out.*"},
		{Name: "Session Failed", MatchedStatuses: []string{"failed"}, MessageRegex: "(?i).*failed to create session.*|.*driver binary not available.*"},
		{Name: "Assertion Failed", MatchedStatuses: []string{"failed"}, MessageRegex: "(?i).*(assert|expected).*"},
		{Name: "Request Failed", MatchedStatuses: []string{"failed"}, MessageRegex: "(?i).*request failed.*|.*connection.*"},
	}

	data, err := json.MarshalIndent(categories, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal categories")
	}
	path := filepath.Join(allureDir, "categories.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "write categories.json")
	}
	return nil
}

func writeAllureEnvironment(allureDir string, run *core.RunResult) error {
	var b strings.Builder
	b.WriteString("framework=go test\n")
	if run.Environment != "" {
		b.WriteString(fmt.Sprintf("environment=%s\n", run.Environment))
	}
	if run.TestType != "" {
		b.WriteString(fmt.Sprintf("test.type=%s\n", run.TestType))
	}
	b.WriteString(fmt.Sprintf("run.id=%s\n", run.RunID))

	path := filepath.Join(allureDir, "environment.properties")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return errors.Wrap(err, "write environment.properties")
	}
	return nil
}
