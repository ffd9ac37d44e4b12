package report

import (
	"fmt"
	"strings"
	"time"
)

// Meta is the run information printed in the summary header.
type Meta struct {
	Environment string
	Date        time.Time
	Duration    time.Duration
}

const rule = "-------------------------"

// Summary renders the plain-text run report: a header, one section per
// group with project and tag lines, then the failed tests. Groups and
// projects are sorted, so the output is deterministic for given Meta.
func (a *Aggregator) Summary(meta Meta) string {
	env := meta.Environment
	if env == "" {
		env = "unknown"
	}

	var b strings.Builder
	b.WriteString("\nAPI/UI/Mobile TESTING REPORT\n")
	b.WriteString("=========================\n")
	fmt.Fprintf(&b, "Environment : %s\n", env)
	fmt.Fprintf(&b, "Date        : %s\n", meta.Date.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Duration    : %.2f seconds\n\n", meta.Duration.Seconds())

	var failed [][2]string

	for _, group := range a.Groups() {
		fmt.Fprintf(&b, "%s SUMMARY\n%s\n", strings.ToUpper(group), rule)
		for _, project := range a.Projects(group) {
			ps := a.Project(group, project)
			fmt.Fprintf(&b, "%s > %s\n", ljust(project, 12), countsLine(ps.Counts))
			for _, tag := range tagsWithTests(ps) {
				fmt.Fprintf(&b, "  - %s > %s\n", ljust(string(tag), 8), countsLine(*ps.Tags[tag]))
			}
			if ps.Failed > 0 {
				failed = append(failed, [2]string{group, project})
			}
		}
		b.WriteString("\n")
	}

	if len(failed) > 0 {
		fmt.Fprintf(&b, "FAILED TESTS\n%s\n", rule)
		for _, f := range failed {
			fmt.Fprintf(&b, "%s::%s:\n", strings.ToUpper(f[0]), f[1])
			for _, o := range a.Project(f[0], f[1]).Failures {
				fmt.Fprintf(&b, "  - %s (%s)\n", o.Name, o.DurationString())
				if reason := o.ShortReason(); reason != "" {
					fmt.Fprintf(&b, "    Reason: %s\n", reason)
				}
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

func countsLine(c Counts) string {
	return fmt.Sprintf("Total: %d | Passed: %d | Failed: %d | Skipped: %d", c.Total, c.Passed, c.Failed, c.Skipped)
}

func ljust(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
