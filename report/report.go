// ABOUTME: Renders a run report as a console summary, a Markdown document, and HTML.
// ABOUTME: Markdown is the canonical form; HTML is its goldmark conversion for the status page.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"os"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/2389-research/gauntlet/solver"
)

const ruler = "============================================================"
const thinRuler = "------------------------------------------------------------"

// Console writes the per-step summary and run totals to w.
func Console(w io.Writer, rep *solver.RunReport) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, ruler)
	fmt.Fprintln(w, "  GAUNTLET RESULTS")
	fmt.Fprintln(w, ruler)
	for _, r := range rep.Results {
		errInfo := ""
		if r.Error != "" {
			errInfo = "  err=" + r.Error
		}
		fmt.Fprintf(w, "  Step %2d: [%s] %s %s x%d%s\n",
			r.Step, padOutcome(r.Outcome), padSeconds(r.Duration), padTier(r.TierUsed), r.Attempts, errInfo)
	}
	fmt.Fprintln(w, thinRuler)
	fmt.Fprintf(w, "  Solved: %d/%d (%s)\n", rep.StepsSucceeded, rep.TotalSteps, successRate(rep))
	fmt.Fprintf(w, "  Skipped: %d  Abandoned: %d\n", len(rep.Skipped), len(rep.Abandoned))
	fmt.Fprintf(w, "  Total time: %s\n", fmtSeconds(rep.Duration))
	if len(rep.Results) > 0 {
		avg := rep.Duration / time.Duration(len(rep.Results))
		fmt.Fprintf(w, "  Avg time/step: %s\n", fmtSeconds(avg))
	}
	fmt.Fprintf(w, "  Outcome: %s\n", rep.Outcome)
	fmt.Fprintln(w, ruler)
	fmt.Fprintln(w)
}

// Markdown renders the report as a deterministic Markdown document.
func Markdown(rep *solver.RunReport) string {
	var out strings.Builder

	fmt.Fprintln(&out, "# Gauntlet Run")
	fmt.Fprintln(&out)
	fmt.Fprintf(&out, "> %s\n", rep.TargetURL)
	fmt.Fprintln(&out)
	fmt.Fprintln(&out, "## Summary")
	fmt.Fprintln(&out)
	fmt.Fprintf(&out, "- Run: `%s`\n", rep.RunID)
	fmt.Fprintf(&out, "- Started: %s\n", rep.StartedAt.UTC().Format("2006-01-02T15:04:05Z"))
	fmt.Fprintf(&out, "- Duration: %s\n", fmtSeconds(rep.Duration))
	fmt.Fprintf(&out, "- Solved: %d/%d (%s)\n", rep.StepsSucceeded, rep.TotalSteps, successRate(rep))
	if len(rep.Skipped) > 0 {
		fmt.Fprintf(&out, "- Skipped: %s\n", joinSteps(rep.Skipped))
	}
	if len(rep.Abandoned) > 0 {
		fmt.Fprintf(&out, "- Abandoned: %s\n", joinSteps(rep.Abandoned))
	}
	fmt.Fprintf(&out, "- Outcome: %s\n", rep.Outcome)

	if len(rep.Results) > 0 {
		fmt.Fprintln(&out)
		fmt.Fprintln(&out, "## Steps")
		fmt.Fprintln(&out)
		for _, r := range rep.Results {
			fmt.Fprintf(&out, "- **Step %d** %s (%s, %s, %s)", r.Step, r.Outcome, r.TierUsed, plural(r.Attempts, "attempt"), fmtSeconds(r.Duration))
			if r.Error != "" {
				fmt.Fprintf(&out, ": %s", r.Error)
			}
			fmt.Fprintln(&out)
		}
	}

	if len(rep.Attempts) > 0 {
		fmt.Fprintln(&out)
		fmt.Fprintln(&out, "## Attempt log")
		fmt.Fprintln(&out)
		for _, a := range rep.Attempts {
			fmt.Fprintf(&out, "- %s\n", attemptLine(a))
		}
	}

	return out.String()
}

// HTML converts the Markdown report for embedding in a status page. On a
// conversion failure the raw text is escaped instead.
func HTML(rep *solver.RunReport) template.HTML {
	md := Markdown(rep)
	var buf bytes.Buffer
	if err := goldmark.New().Convert([]byte(md), &buf); err != nil {
		return template.HTML("<pre>" + template.HTMLEscapeString(md) + "</pre>")
	}
	return template.HTML(buf.String())
}

// WriteFile writes the Markdown document to path.
func WriteFile(path string, rep *solver.RunReport) error {
	if err := os.WriteFile(path, []byte(Markdown(rep)), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// attemptLine renders one archived attempt the way prompt history does.
func attemptLine(a solver.StepAttempt) string {
	line := fmt.Sprintf("step %d attempt %d [%s]", a.Step, a.Attempt+1, a.Tier)
	if a.Actions != "" {
		line += ": " + a.Actions
	}
	line += " => " + string(a.Outcome)
	if a.Detail != "" {
		line += " (" + a.Detail + ")"
	}
	return fmt.Sprintf("%s, %s", line, fmtSeconds(a.Wall))
}

func successRate(rep *solver.RunReport) string {
	if rep.TotalSteps == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.0f%%", float64(rep.StepsSucceeded)/float64(rep.TotalSteps)*100)
}

func fmtSeconds(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func padSeconds(d time.Duration) string {
	return fmt.Sprintf("%7s", fmtSeconds(d))
}

func padOutcome(o solver.Outcome) string {
	return fmt.Sprintf("%-9s", string(o))
}

func padTier(t solver.Tier) string {
	return fmt.Sprintf("%-6s", t.String())
}

func joinSteps(steps []int) string {
	parts := make([]string, len(steps))
	for i, s := range steps {
		parts[i] = fmt.Sprintf("%d", s)
	}
	return strings.Join(parts, ", ")
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
