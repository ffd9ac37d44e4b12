package report

import (
	"sort"
	"strings"

	"github.com/acarl005/stripansi"

	"github.com/devicelab-dev/unified-runner/pkg/core"
)

// Fallback classification for tests outside tests/<type>/<project>/.
const (
	OtherGroup     = "Other Tests"
	UnknownProject = "UnknownProject"
)

// GroupAndProject classifies a test ID ("<path>::<test>"). The path
// segment after "tests" names the group and the one after that the
// project; both must be followed by at least one more segment.
func GroupAndProject(id string) (group, project string) {
	path := id
	if i := strings.Index(id, "::"); i >= 0 {
		path = id[:i]
	}
	parts := strings.Split(strings.ReplaceAll(path, "\\", "/"), "/")
	for i, p := range parts {
		if p != "tests" {
			continue
		}
		if i+2 < len(parts) {
			return strings.ToUpper(parts[i+1]) + " Tests", parts[i+2]
		}
		break
	}
	return OtherGroup, UnknownProject
}

// Counts holds outcome counters.
type Counts struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

func (c *Counts) add(s core.Status) {
	c.Total++
	switch s {
	case core.StatusPassed:
		c.Passed++
	case core.StatusFailed:
		c.Failed++
	case core.StatusSkipped:
		c.Skipped++
	}
}

// ProjectStats are the counters for one (group, project) pair.
type ProjectStats struct {
	Counts
	Tags     map[core.Tag]*Counts
	Failures []core.TestOutcome
}

func newProjectStats() *ProjectStats {
	tags := make(map[core.Tag]*Counts, len(core.Tags))
	for _, t := range core.Tags {
		tags[t] = &Counts{}
	}
	return &ProjectStats{Tags: tags}
}

// Aggregator accumulates test outcomes for one run, keyed by group and
// project. It has a single writer, the runner's event loop, and takes no
// lock.
type Aggregator struct {
	groups   map[string]map[string]*ProjectStats
	outcomes []core.TestOutcome
	totals   Counts
}

// NewAggregator returns an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{groups: map[string]map[string]*ProjectStats{}}
}

// Record adds one final test outcome. ANSI escapes are stripped from the
// failure reason.
func (a *Aggregator) Record(o core.TestOutcome) {
	o.Reason = stripansi.Strip(o.Reason)

	group, project := GroupAndProject(o.Name)
	projects, ok := a.groups[group]
	if !ok {
		projects = map[string]*ProjectStats{}
		a.groups[group] = projects
	}
	ps, ok := projects[project]
	if !ok {
		ps = newProjectStats()
		projects[project] = ps
	}

	ps.add(o.Status)
	if c, ok := ps.Tags[o.Tag]; ok && o.Tag != core.TagNone {
		c.add(o.Status)
	}
	if o.Status == core.StatusFailed {
		ps.Failures = append(ps.Failures, o)
	}
	a.totals.add(o.Status)
	a.outcomes = append(a.outcomes, o)
}

// Outcomes returns the recorded outcomes in arrival order.
func (a *Aggregator) Outcomes() []core.TestOutcome {
	return append([]core.TestOutcome(nil), a.outcomes...)
}

// Totals returns run-wide counters.
func (a *Aggregator) Totals() Counts {
	return a.totals
}

// Groups returns the group names, sorted.
func (a *Aggregator) Groups() []string {
	return sortedKeys(a.groups)
}

// Projects returns the project names in group, sorted.
func (a *Aggregator) Projects(group string) []string {
	return sortedKeys(a.groups[group])
}

// Project returns the stats for (group, project), or nil.
func (a *Aggregator) Project(group, project string) *ProjectStats {
	return a.groups[group][project]
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// tagsWithTests returns the tags with a nonzero total, in report order.
func tagsWithTests(ps *ProjectStats) []core.Tag {
	var out []core.Tag
	for _, t := range core.Tags {
		if c := ps.Tags[t]; c != nil && c.Total > 0 {
			out = append(out, t)
		}
	}
	return out
}
