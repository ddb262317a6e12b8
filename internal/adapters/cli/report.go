package cli

import (
	"fmt"
	"time"
)

type Step struct {
	Name      string
	StartTime time.Time
	EndTime   time.Time
	Success   bool
	Error     string
}

type Issue struct {
	Subject string
	Message string
	Details []string
}

// Report collects build steps, patched files and issues and renders them in
// a compact form when everything went fine.
type Report struct {
	out         *Output
	steps       []Step
	warnings    []Issue
	errors      []Issue
	patched     []string
	startTime   time.Time
	outputDir   string
	hasFailures bool
}

func NewReport(out *Output, outputDir string) *Report {
	return &Report{
		out:       out,
		steps:     make([]Step, 0),
		warnings:  make([]Issue, 0),
		errors:    make([]Issue, 0),
		startTime: time.Now(),
		outputDir: outputDir,
	}
}

// StartStep returns the index of the new step, to be passed to EndStep.
func (r *Report) StartStep(name string) int {
	r.steps = append(r.steps, Step{
		Name:      name,
		StartTime: time.Now(),
	})
	return len(r.steps) - 1
}

func (r *Report) EndStep(idx int, success bool, err string) {
	step := &r.steps[idx]
	step.EndTime = time.Now()
	step.Success = success
	step.Error = err
	if !success {
		r.hasFailures = true
	}
}

func (r *Report) AddPatched(files ...string) {
	r.patched = append(r.patched, files...)
}

func (r *Report) AddWarning(subject string, message string, details []string) {
	r.warnings = append(r.warnings, Issue{
		Subject: subject,
		Message: message,
		Details: details,
	})
}

func (r *Report) AddError(subject string, message string, details []string) {
	r.errors = append(r.errors, Issue{
		Subject: subject,
		Message: message,
		Details: details,
	})
	r.hasFailures = true
}

func (r *Report) HasFailures() bool {
	return r.hasFailures
}

func (r *Report) Render() {
	duration := time.Since(r.startTime)

	if len(r.errors) == 0 && len(r.warnings) == 0 {
		r.renderMinimal(duration)
	} else {
		r.renderVerbose(duration)
	}
}

func (r *Report) renderMinimal(duration time.Duration) {
	for _, step := range r.steps {
		if !step.Success {
			r.out.PrintError("%s", step.Name)
		}
	}

	r.renderPatched()

	if !r.hasFailures {
		r.out.PrintSuccess("Done in %s", formatDuration(duration))
	}

	if r.outputDir != "" {
		r.out.PrintStep("")
		r.out.PrintStep("%s", r.out.Gray("Output: "+r.outputDir))
	}
}

func (r *Report) renderVerbose(duration time.Duration) {
	for _, step := range r.steps {
		if step.Success {
			r.out.PrintSuccess("%s", step.Name)
		} else {
			r.out.PrintError("%s", step.Name)
		}
	}

	r.renderPatched()

	if len(r.errors) > 0 {
		r.out.PrintStep("")
		r.out.PrintError("Errors (%d):", len(r.errors))
		r.renderIssues(r.errors)
	}

	if len(r.warnings) > 0 {
		r.out.PrintStep("")
		r.out.PrintWarning("Warnings (%d):", len(r.warnings))
		r.renderIssues(r.warnings)
	}

	r.out.PrintStep("")
	if len(r.errors) > 0 {
		r.out.PrintError("Failed after %s", formatDuration(duration))
	} else {
		r.out.PrintSuccess("Done in %s", formatDuration(duration))
	}

	if r.outputDir != "" {
		r.out.PrintStep("")
		r.out.PrintStep("%s", r.out.Gray("Output: "+r.outputDir))
	}
}

func (r *Report) renderPatched() {
	if len(r.patched) == 0 {
		return
	}
	r.out.PrintSuccess("Injected manifest into %d file(s)", len(r.patched))
	for _, file := range r.patched {
		r.out.PrintFile(file)
	}
}

func (r *Report) renderIssues(issues []Issue) {
	for _, issue := range issues {
		r.out.PrintStep("%s %s", r.out.Red("✗"), issue.Subject)
		r.out.PrintStep("  %s", issue.Message)
		for _, detail := range deduplicateStrings(issue.Details) {
			r.out.PrintStep("    • %s", detail)
		}
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%.0fms", float64(d)/float64(time.Millisecond))
	}
	return fmt.Sprintf("%.1fs", float64(d)/float64(time.Second))
}

func deduplicateStrings(items []string) []string {
	if len(items) <= 1 {
		return items
	}

	counts := make(map[string]int)
	order := make([]string, 0, len(items))
	for _, item := range items {
		if counts[item] == 0 {
			order = append(order, item)
		}
		counts[item]++
	}

	result := make([]string, 0, len(order))
	for _, item := range order {
		if counts[item] > 1 {
			result = append(result, fmt.Sprintf("%s (%d occurrences)", item, counts[item]))
		} else {
			result = append(result, item)
		}
	}

	return result
}
