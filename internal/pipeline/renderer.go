package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/scholiast/scholia/internal/model"
)

// Renderer writes pipeline reports as JSON files, Markdown files, or a
// terminal summary.
type Renderer struct {
	includeFooter bool
}

// NewRenderer creates a renderer. When includeFooter is set, Markdown
// reports end with a generator footer line.
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

// RenderJSON writes the full report as indented JSON.
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// RenderMarkdown writes the report as a Markdown document.
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	return os.WriteFile(path, []byte(r.Markdown(report)), 0o644)
}

// Markdown renders the report as a Markdown document.
func (r *Renderer) Markdown(report *model.Report) string {
	var b strings.Builder

	b.WriteString("# Citation Report\n\n")
	fmt.Fprintf(&b, "**Query:** %s\n\n", report.Query)
	fmt.Fprintf(&b, "**Processed:** %s\n\n", report.ProcessedAt.Format("2006-01-02 15:04 UTC"))
	fmt.Fprintf(&b, "**Strategy:** %s\n\n", report.Strategy)

	if report.Answer != nil && report.Answer.Text != "" {
		b.WriteString("## Answer\n\n")
		b.WriteString(strings.TrimSpace(report.Answer.Text))
		b.WriteString("\n\n")
		if report.Answer.Provider != "" {
			fmt.Fprintf(&b, "*Answered by %s", report.Answer.Provider)
			if report.Answer.Model != "" {
				fmt.Fprintf(&b, " (%s)", report.Answer.Model)
			}
			if report.Answer.TokensUsed > 0 {
				fmt.Fprintf(&b, ", %d tokens", report.Answer.TokensUsed)
			}
			b.WriteString(".*\n\n")
		}
	}
	if report.Answer != nil {
		for _, w := range report.Answer.Warnings {
			fmt.Fprintf(&b, "> ⚠ %s\n", w)
		}
		if len(report.Answer.Warnings) > 0 {
			b.WriteString("\n")
		}
	}

	b.WriteString("## Context\n\n")
	fmt.Fprintf(&b, "- %d tokens across %d groups (%d passages from %d documents)\n",
		report.Context.TotalTokens, report.Context.GroupCount,
		report.Context.PassageCount, report.Context.DocumentCount)
	fmt.Fprintf(&b, "- Truncated to fit the budget: %s\n\n", yesNo(report.Context.Truncated))

	validity := validityIndex(report.Validation)

	fmt.Fprintf(&b, "## Citations (%d)\n\n", len(report.Citations))
	if len(report.Citations) == 0 {
		b.WriteString("No citations were extracted from the answer.\n\n")
	} else {
		b.WriteString("| # | Source | Kind | Confidence | Valid |\n")
		b.WriteString("|---|--------|------|-----------:|:-----:|\n")
		for i, cit := range report.Citations {
			fmt.Fprintf(&b, "| %d | %s | %s | %.2f | %s |\n",
				i+1, sourceLabel(cit), cit.Kind, cit.Confidence, validMark(validity, cit.ID))
		}
		b.WriteString("\n")
	}

	if report.Validation != nil {
		v := report.Validation
		b.WriteString("## Validation\n\n")
		fmt.Fprintf(&b, "- %d of %d citations valid, mean confidence %.2f\n",
			v.ValidCount, v.TotalCount, v.MeanConfidence)
		fmt.Fprintf(&b, "- Quality score %.2f (accuracy %.2f, coverage %.2f)\n\n",
			v.QualityScore, v.AccuracyScore, v.CoverageScore)
		issues := collectIssues(v)
		if len(issues) > 0 {
			b.WriteString("### Issues\n\n")
			for _, issue := range issues {
				fmt.Fprintf(&b, "- %s\n", issue)
			}
			b.WriteString("\n")
		}
	}

	if report.Network != nil && len(report.Network.Relationships) > 0 {
		n := report.Network
		b.WriteString("## Citation Network\n\n")
		fmt.Fprintf(&b, "- %d relationships among %d citations, density %.2f\n\n",
			len(n.Relationships), len(n.Citations), n.Density)
		for _, rel := range n.Relationships {
			fmt.Fprintf(&b, "- %s: %s to %s (strength %.2f)\n",
				rel.Kind, shortID(rel.SourceID), shortID(rel.TargetID), rel.Strength)
		}
		b.WriteString("\n")
	}

	if report.Attribution != "" {
		b.WriteString("## Attribution\n\n")
		b.WriteString("```\n")
		b.WriteString(strings.TrimRight(report.Attribution, "\n"))
		b.WriteString("\n```\n\n")
	}

	for _, w := range report.Extraction.Warnings {
		fmt.Fprintf(&b, "> ⚠ %s\n", w)
	}
	if len(report.Extraction.Warnings) > 0 {
		b.WriteString("\n")
	}

	if r.includeFooter {
		b.WriteString("---\n\n*Generated by scholia*\n")
	}
	return b.String()
}

// RenderSummary prints a short report summary to stdout. Verbose mode
// adds per-citation verdicts and collected issues.
func (r *Renderer) RenderSummary(report *model.Report, verbose bool) {
	bar := strings.Repeat("═", 55)
	fmt.Println(bar)
	fmt.Println("  Citation Report")
	fmt.Println(bar)
	fmt.Printf("  Query:       %s\n", report.Query)
	fmt.Printf("  Strategy:    %s\n", report.Strategy)
	fmt.Printf("  Context:     %d tokens, %d passages in %d groups\n",
		report.Context.TotalTokens, report.Context.PassageCount, report.Context.GroupCount)
	fmt.Printf("  Answer:      %s\n", answerLine(report.Answer))

	if report.Validation != nil {
		v := report.Validation
		fmt.Printf("  Citations:   %d extracted, %d valid\n", v.TotalCount, v.ValidCount)
		fmt.Printf("  Confidence:  %.2f mean\n", v.MeanConfidence)
		fmt.Printf("  Quality:     %.2f\n", v.QualityScore)
	} else {
		fmt.Printf("  Citations:   %d extracted\n", len(report.Citations))
	}
	if report.Network != nil && len(report.Network.Relationships) > 0 {
		fmt.Printf("  Network:     %d relationships, density %.2f\n",
			len(report.Network.Relationships), report.Network.Density)
	}
	fmt.Println(bar)

	if !verbose {
		return
	}

	validity := validityIndex(report.Validation)
	for i, cit := range report.Citations {
		mark := "✗"
		if validity[cit.ID] {
			mark = "✓"
		}
		fmt.Printf("  %s %d. %s [%s] confidence %.2f\n", mark, i+1, sourceLabel(cit), cit.Kind, cit.Confidence)
	}
	if report.Validation != nil {
		for _, issue := range collectIssues(report.Validation) {
			fmt.Printf("  ⚠ %s\n", issue)
		}
	}
	for _, w := range report.Extraction.Warnings {
		fmt.Printf("  ⚠ %s\n", w)
	}
}

// sourceLabel names a citation by author and reference, falling back to
// a short excerpt of the cited text.
func sourceLabel(c model.Citation) string {
	switch {
	case c.SourceAuthor != "" && c.SourceReference != "":
		return c.SourceAuthor + ", " + c.SourceReference
	case c.SourceAuthor != "" && c.SourceTitle != "":
		return c.SourceAuthor + ", " + c.SourceTitle
	case c.SourceAuthor != "":
		return c.SourceAuthor
	case c.SourceReference != "":
		return c.SourceReference
	case c.SourceTitle != "":
		return c.SourceTitle
	}
	text := strings.TrimSpace(c.Text)
	if len(text) > 40 {
		text = text[:40] + "..."
	}
	if text == "" {
		return "(unattributed)"
	}
	return "“" + text + "”"
}

func answerLine(a *model.GeneratedAnswer) string {
	if a == nil || a.Text == "" {
		return "(none)"
	}
	if a.Provider == "" {
		return "present"
	}
	line := a.Provider
	if a.Model != "" {
		line += " (" + a.Model + ")"
	}
	if a.TokensUsed > 0 {
		line += fmt.Sprintf(", %d tokens", a.TokensUsed)
	}
	return line
}

// validityIndex maps citation IDs to their validation verdict.
func validityIndex(v *model.BatchValidationResult) map[string]bool {
	index := make(map[string]bool)
	if v == nil {
		return index
	}
	for _, res := range v.Results {
		index[res.CitationID] = res.IsValid
	}
	return index
}

func validMark(validity map[string]bool, id string) string {
	if validity[id] {
		return "✓"
	}
	return "✗"
}

// collectIssues flattens per-citation validation issues, prefixed with
// the citation's position in the batch.
func collectIssues(v *model.BatchValidationResult) []string {
	var issues []string
	for i, res := range v.Results {
		for _, issue := range res.Issues {
			issues = append(issues, fmt.Sprintf("citation %d: %s", i+1, issue))
		}
	}
	return issues
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
