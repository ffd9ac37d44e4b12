package runner

import (
	"bufio"
	"encoding/json"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/devicelab-dev/unified-runner/pkg/core"
)

// TestEvent is one line of `go test -json` output.
type TestEvent struct {
	Time    time.Time `json:"Time"`
	Action  string    `json:"Action"`
	Package string    `json:"Package"`
	Test    string    `json:"Test"`
	Output  string    `json:"Output"`
	Elapsed float64   `json:"Elapsed"`
}

// test2json actions.
const (
	ActionStart  = "start"
	ActionRun    = "run"
	ActionPass   = "pass"
	ActionFail   = "fail"
	ActionSkip   = "skip"
	ActionOutput = "output"
)

// PackageFailure is a package that failed without any failing test, such
// as a build error or a panic in TestMain. It is reported but not counted.
type PackageFailure struct {
	Package string
	Output  string
}

// testState accumulates the events of one top-level test. testLog holds
// the lines written through t.Log, t.Error, t.Fatal or t.Skip and panics;
// output holds everything else, such as logger lines from stderr.
type testState struct {
	start   time.Time
	output  strings.Builder
	testLog strings.Builder
	inLog   bool
	markers map[string]string
}

// testLogLine matches the "    file_test.go:12: " prefix go test puts in
// front of t.Log style output.
var testLogLine = regexp.MustCompile(`^\s+[^\s:]+\.go:\d+: `)

// add files one output line. Indented lines directly after a t.Log line are
// continuation lines of a multi-line message.
func (st *testState) add(line string) {
	switch {
	case testLogLine.MatchString(line), strings.HasPrefix(line, "panic: "):
		st.inLog = true
		st.testLog.WriteString(line)
	case st.inLog && line != strings.TrimLeft(line, " \t"):
		st.testLog.WriteString(line)
	default:
		st.inLog = false
		st.output.WriteString(line)
	}
}

// reason prefers the test's own messages over other output so a failure
// is not reported as the last thing a logger printed.
func (st *testState) reason() string {
	if r := strings.TrimSpace(st.testLog.String()); r != "" {
		return r
	}
	return strings.TrimSpace(st.output.String())
}

// ParseEvents reads test2json events from r and emits one outcome per
// top-level test as soon as its final event arrives. Subtest output is
// folded into the parent's reason; subtests are not reported on their own.
// pkg names the package when the stream carries no Package field.
func ParseEvents(r io.Reader, pkg string, emit func(core.TestOutcome)) ([]PackageFailure, error) {
	tests := make(map[string]*testState)
	pkgOutput := make(map[string]*strings.Builder)
	failedTests := make(map[string]bool)
	var failures []PackageFailure

	state := func(name string, at time.Time) *testState {
		st, ok := tests[name]
		if !ok {
			st = &testState{start: at, markers: map[string]string{}}
			tests[name] = st
		}
		return st
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		event, err := parseTestEvent(scanner.Bytes())
		if err != nil {
			continue
		}
		if event.Package == "" {
			event.Package = pkg
		}

		if event.Test == "" {
			switch event.Action {
			case ActionOutput:
				b, ok := pkgOutput[event.Package]
				if !ok {
					b = &strings.Builder{}
					pkgOutput[event.Package] = b
				}
				b.WriteString(event.Output)
			case ActionFail:
				if !failedTests[event.Package] {
					out := ""
					if b, ok := pkgOutput[event.Package]; ok {
						out = strings.TrimSpace(b.String())
					}
					failures = append(failures, PackageFailure{Package: event.Package, Output: out})
				}
			}
			continue
		}

		top := topLevel(event.Test)
		st := state(top, event.Time)

		switch event.Action {
		case ActionOutput:
			if key, value, ok := core.ParseMarker(event.Output); ok {
				st.markers[key] = value
				continue
			}
			if isFraming(event.Output) {
				st.inLog = false
				continue
			}
			st.add(event.Output)
		case ActionPass, ActionFail, ActionSkip:
			if top != event.Test {
				continue
			}
			if event.Action == ActionFail {
				failedTests[event.Package] = true
			}
			emit(buildOutcome(event, st))
			delete(tests, top)
		}
	}
	if err := scanner.Err(); err != nil {
		return failures, err
	}
	return failures, nil
}

func parseTestEvent(line []byte) (TestEvent, error) {
	var event TestEvent
	err := json.Unmarshal(line, &event)
	return event, err
}

func topLevel(test string) string {
	if i := strings.Index(test, "/"); i >= 0 {
		return test[:i]
	}
	return test
}

// isFraming reports whether line is a go test status line such as
// "=== RUN TestX" or "--- FAIL: TestX (0.00s)".
func isFraming(line string) bool {
	s := strings.TrimSpace(line)
	return strings.HasPrefix(s, "=== ") || strings.HasPrefix(s, "--- ")
}

func buildOutcome(event TestEvent, st *testState) core.TestOutcome {
	o := core.TestOutcome{
		Name:        core.OutcomeID(event.Package, event.Test),
		Package:     event.Package,
		Test:        event.Test,
		Duration:    time.Duration(event.Elapsed * float64(time.Second)),
		Tag:         core.ParseTag(st.markers[core.MarkerTag]),
		Description: st.markers[core.MarkerDescription],
		Screenshot:  st.markers[core.MarkerScreenshot],
		StartTime:   st.start,
	}
	if o.Description == "" {
		o.Description = event.Test
	}

	switch event.Action {
	case ActionPass:
		o.Status = core.StatusPassed
	case ActionFail:
		o.Status = core.StatusFailed
		o.Reason = st.reason()
	case ActionSkip:
		o.Status = core.StatusSkipped
		o.Reason = st.reason()
	}
	return o
}
