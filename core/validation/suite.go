// Package validation runs preflight checks before the demo starts doing
// real work: configuration sanity, writable directories, disk headroom,
// GPU availability, and diffusion backend connectivity. It renders progress
// to the terminal so a misconfigured environment fails fast with a readable
// explanation instead of a mid-generation stack trace.
package validation

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
)

// Check is one preflight check and its outcome.
type Check struct {
	Name    string
	Status  CheckStatus
	Detail  string
	Err     error
	Elapsed time.Duration
}

// CheckStatus is the lifecycle state of a preflight check.
type CheckStatus int

const (
	StatusPending CheckStatus = iota
	StatusRunning
	StatusPassed
	StatusFailed
	StatusWarning
	StatusSkipped
)

func (s CheckStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusPassed:
		return "passed"
	case StatusFailed:
		return "failed"
	case StatusWarning:
		return "warning"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Report is the aggregate outcome of a preflight run.
type Report struct {
	Checks   []Check
	Total    int
	Passed   int
	Failed   int
	Warnings int
	Elapsed  time.Duration
	OK       bool
}

// Errs returns the errors from every failed check.
func (r Report) Errs() []error {
	var errs []error
	for _, c := range r.Checks {
		if c.Err != nil {
			errs = append(errs, c.Err)
		}
	}
	return errs
}

// FirstErr returns the first check error, or nil when everything passed.
func (r Report) FirstErr() error {
	for _, c := range r.Checks {
		if c.Err != nil {
			return c.Err
		}
	}
	return nil
}

// Summary returns a one-line human-readable summary.
func (r Report) Summary() string {
	var sb strings.Builder
	if r.OK {
		sb.WriteString("Preflight passed: ")
	} else {
		sb.WriteString("Preflight failed: ")
	}
	sb.WriteString(fmt.Sprintf("%d/%d checks passed", r.Passed, r.Total))
	if r.Failed > 0 {
		sb.WriteString(fmt.Sprintf(", %d failed", r.Failed))
	}
	if r.Warnings > 0 {
		sb.WriteString(fmt.Sprintf(", %d warnings", r.Warnings))
	}
	sb.WriteString(fmt.Sprintf(" (took %v)", r.Elapsed.Round(time.Millisecond)))
	return sb.String()
}

// checkFunc runs one check. ok=false marks the check failed; warn=true
// downgrades a failure to a warning that does not fail the run.
type checkFunc func() (ok bool, warn bool, detail string, err error)

// runCheck executes fn with progress rendering and timing.
func (p *Preflight) runCheck(name string, fn checkFunc) Check {
	if p.showProgress {
		p.printStart(name)
	}

	start := time.Now()
	ok, warn, detail, err := fn()
	elapsed := time.Since(start)

	c := Check{Name: name, Detail: detail, Err: err, Elapsed: elapsed}
	switch {
	case ok:
		c.Status = StatusPassed
	case warn:
		c.Status = StatusWarning
		c.Err = nil // warnings surface in Detail, not as run failures
		if detail == "" && err != nil {
			c.Detail = err.Error()
		}
	default:
		c.Status = StatusFailed
	}

	if p.showProgress {
		p.printCheck(c)
	}
	return c
}

// skipCheck records a check as skipped without running it.
func (p *Preflight) skipCheck(name, reason string) Check {
	c := Check{Name: name, Status: StatusSkipped, Detail: reason}
	if p.showProgress {
		p.printCheck(c)
	}
	return c
}

func (p *Preflight) buildReport(checks []Check, elapsed time.Duration) Report {
	r := Report{
		Checks:  checks,
		Total:   len(checks),
		Elapsed: elapsed,
		OK:      true,
	}
	for _, c := range checks {
		switch c.Status {
		case StatusPassed:
			r.Passed++
		case StatusFailed:
			r.Failed++
			r.OK = false
		case StatusWarning:
			r.Warnings++
		}
	}
	return r
}

func (p *Preflight) printHeader(title string) {
	fmt.Fprintln(p.output)
	color.New(color.FgCyan, color.Bold).Fprintf(p.output, "━━━ %s ━━━\n", title)
	fmt.Fprintln(p.output)
}

func (p *Preflight) printStart(name string) {
	fmt.Fprintf(p.output, "  ◌ %s...", name)
}

func (p *Preflight) printCheck(c Check) {
	var icon string
	var clr *color.Color
	switch c.Status {
	case StatusPassed:
		icon = "✓"
		clr = color.New(color.FgGreen)
	case StatusFailed:
		icon = "✗"
		clr = color.New(color.FgRed)
	case StatusWarning:
		icon = "!"
		clr = color.New(color.FgYellow)
	case StatusSkipped:
		icon = "○"
		clr = color.New(color.FgHiBlack)
	default:
		icon = "?"
		clr = color.New(color.FgWhite)
	}

	// Overwrite the in-progress line.
	fmt.Fprintf(p.output, "\r")
	clr.Fprintf(p.output, "  %s %s", icon, c.Name)
	if c.Detail != "" {
		color.New(color.FgHiBlack).Fprintf(p.output, " - %s", c.Detail)
	}
	fmt.Fprintln(p.output)

	if c.Status == StatusFailed && c.Err != nil {
		color.New(color.FgRed).Fprintf(p.output, "    └─ %s\n", c.Err.Error())
	}
}

func (p *Preflight) printSummary(r Report) {
	fmt.Fprintln(p.output)
	if r.OK {
		ok := color.New(color.FgGreen, color.Bold)
		ok.Fprintf(p.output, "━━━ Preflight Passed ")
		color.New(color.FgHiBlack).Fprintf(p.output, "(%d/%d checks passed in %v)",
			r.Passed, r.Total, r.Elapsed.Round(time.Millisecond))
		ok.Fprintln(p.output, " ━━━")
	} else {
		bad := color.New(color.FgRed, color.Bold)
		bad.Fprintf(p.output, "━━━ Preflight Failed ")
		color.New(color.FgHiBlack).Fprintf(p.output, "(%d passed, %d failed)",
			r.Passed, r.Failed)
		bad.Fprintln(p.output, " ━━━")
	}
	fmt.Fprintln(p.output)
}

// defaultOutput is stdout unless redirected by WithOutput.
func defaultOutput() io.Writer { return os.Stdout }
