package reconcile

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/driftsync/pkg/errors"
	"github.com/agentstation/driftsync/pkg/stores"
)

// DefaultLogTail is the number of most recent log entries a report keeps
// visible in its summary.
const DefaultLogTail = 10

// Report aggregates the outcome of one reconciliation run. It is pure
// aggregation: the engine feeds it counts and log entries, and emission to
// the report destination is the caller's concern.
type Report struct {
	// Strategy is the name of the strategy the run used.
	Strategy string `json:"strategy" yaml:"strategy"`

	// DryRun indicates no Apply calls were issued.
	DryRun bool `json:"dry_run" yaml:"dry_run"`

	// StartTime and EndTime bound the run.
	StartTime time.Time     `json:"start_time" yaml:"start_time"`
	EndTime   time.Time     `json:"end_time" yaml:"end_time"`
	Duration  time.Duration `json:"duration" yaml:"duration"`

	// Types holds per-resource-type results.
	Types map[stores.ResourceType]*TypeReport `json:"types" yaml:"types"`

	// Stats holds the run-wide action counters.
	Stats Stats `json:"stats" yaml:"stats"`

	// Errors enumerates every error with resource type, key, and cause.
	Errors []string `json:"errors,omitempty" yaml:"errors,omitempty"`

	// Snapshots are the advisory backup locations the safety guard took
	// before the first mutation of each target store.
	Snapshots []string `json:"snapshots,omitempty" yaml:"snapshots,omitempty"`

	logTail int
	log     []string
}

// TypeReport holds the scan and conflict counts for one resource type.
type TypeReport struct {
	Common    int    `json:"common" yaml:"common"`
	OnlyA     int    `json:"only_a" yaml:"only_a"`
	OnlyB     int    `json:"only_b" yaml:"only_b"`
	Conflicts int    `json:"conflicts" yaml:"conflicts"`
	Failed    bool   `json:"failed" yaml:"failed"`
	Cause     string `json:"cause,omitempty" yaml:"cause,omitempty"`
}

// Stats are the run-wide action counters.
type Stats struct {
	// Updated counts conflicting records overwritten on the losing side.
	Updated int `json:"updated" yaml:"updated"`

	// Created counts exclusive records propagated to the other side.
	Created int `json:"created" yaml:"created"`

	// Skipped counts writes suppressed by dry-run mode.
	Skipped int `json:"skipped" yaml:"skipped"`

	// Errors counts failed Apply calls.
	Errors int `json:"errors" yaml:"errors"`
}

// newReport starts a report for a run.
func newReport(strategy string, dryRun bool, logTail int) *Report {
	if logTail <= 0 {
		logTail = DefaultLogTail
	}
	return &Report{
		Strategy:  strategy,
		DryRun:    dryRun,
		StartTime: time.Now(),
		Types:     make(map[stores.ResourceType]*TypeReport),
		logTail:   logTail,
	}
}

// finish stamps the end time.
func (r *Report) finish() {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
}

// typeReport returns (creating as needed) the report for a resource type.
func (r *Report) typeReport(resourceType stores.ResourceType) *TypeReport {
	tr, ok := r.Types[resourceType]
	if !ok {
		tr = &TypeReport{}
		r.Types[resourceType] = tr
	}
	return tr
}

// failType marks a resource type's whole scan as failed.
func (r *Report) failType(resourceType stores.ResourceType, err error) {
	tr := r.typeReport(resourceType)
	tr.Failed = true
	tr.Cause = err.Error()
	r.Errors = append(r.Errors, fmt.Sprintf("%s: %v", resourceType, err))
	r.logf("Failed %s: %v", resourceType, err)
}

// recordError counts a failed apply and keeps its cause.
func (r *Report) recordError(err error) {
	r.Stats.Errors++
	r.Errors = append(r.Errors, err.Error())
	r.logf("Error: %v", err)
}

// logf appends a log entry, keeping only the configured tail.
func (r *Report) logf(format string, args ...any) {
	r.log = append(r.log, fmt.Sprintf(format, args...))
	if len(r.log) > r.logTail {
		r.log = r.log[len(r.log)-r.logTail:]
	}
}

// Log returns the capped tail of the most recent log entries.
func (r *Report) Log() []string {
	out := make([]string, len(r.log))
	copy(out, r.log)
	return out
}

// AllFailed reports whether every requested resource type failed. Overall
// run failure is signaled only in that case; anything else is partial or
// full success.
func (r *Report) AllFailed() bool {
	if len(r.Types) == 0 {
		return false
	}
	for _, tr := range r.Types {
		if !tr.Failed {
			return false
		}
	}
	return true
}

// FailedTypes returns the resource types whose scans failed, sorted.
func (r *Report) FailedTypes() []stores.ResourceType {
	var failed []stores.ResourceType
	for resourceType, tr := range r.Types {
		if tr.Failed {
			failed = append(failed, resourceType)
		}
	}
	sort.Slice(failed, func(i, j int) bool { return failed[i] < failed[j] })
	return failed
}

// Summary returns a human-readable summary of the run.
func (r *Report) Summary() string {
	var b strings.Builder

	mode := ""
	if r.DryRun {
		mode = " (dry run)"
	}
	fmt.Fprintf(&b, "Reconciliation%s with strategy %s in %s\n", mode, r.Strategy, r.Duration.Round(time.Millisecond))

	types := make([]stores.ResourceType, 0, len(r.Types))
	for resourceType := range r.Types {
		types = append(types, resourceType)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	for _, resourceType := range types {
		tr := r.Types[resourceType]
		if tr.Failed {
			fmt.Fprintf(&b, "  %s: FAILED (%s)\n", resourceType, tr.Cause)
			continue
		}
		fmt.Fprintf(&b, "  %s: %d common, %d only in A, %d only in B, %d conflicts\n",
			resourceType, tr.Common, tr.OnlyA, tr.OnlyB, tr.Conflicts)
	}

	fmt.Fprintf(&b, "Actions: %d updated, %d created, %d skipped, %d errors\n",
		r.Stats.Updated, r.Stats.Created, r.Stats.Skipped, r.Stats.Errors)

	for _, path := range r.Snapshots {
		fmt.Fprintf(&b, "Backup: %s\n", path)
	}

	if len(r.log) > 0 {
		fmt.Fprintf(&b, "Recent log:\n")
		for _, entry := range r.log {
			fmt.Fprintf(&b, "  - %s\n", entry)
		}
	}

	return b.String()
}

// Save writes the report to path as YAML.
func (r *Report) Save(path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return errors.WrapParse("yaml", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}
