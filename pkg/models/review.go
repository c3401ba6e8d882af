package models

import (
	"fmt"
	"strings"
)

// ReviewResult is the structured verdict produced by one review pass.
// It is immutable once produced; the orchestrator appends a summarized
// entry to the workflow's review feedback.
type ReviewResult struct {
	// FilesReviewed lists the workspace paths the reviewer inspected.
	FilesReviewed []string `json:"files_reviewed"`
	// SecurityIssues lists security findings.
	SecurityIssues []string `json:"security_issues"`
	// PerformanceIssues lists performance findings.
	PerformanceIssues []string `json:"performance_issues"`
	// StyleIssues lists style findings.
	StyleIssues []string `json:"style_issues"`
	// Recommendations lists suggested improvements.
	Recommendations []string `json:"recommendations"`
	// OverallScore is an advisory quality score from 1 to 10. It never
	// gates loop termination on its own.
	OverallScore int `json:"overall_score"`
	// Ready is the authoritative verdict that no further iteration is
	// needed.
	Ready bool `json:"ready"`
}

// ClampScore forces OverallScore into the valid 1-10 range.
func (r *ReviewResult) ClampScore() {
	if r.OverallScore < 1 {
		r.OverallScore = 1
	}
	if r.OverallScore > 10 {
		r.OverallScore = 10
	}
}

// FindingCount returns the total number of findings across all categories.
// Recommendations count as findings: they mark tasks for redispatch.
func (r *ReviewResult) FindingCount() int {
	return len(r.SecurityIssues) + len(r.PerformanceIssues) +
		len(r.StyleIssues) + len(r.Recommendations)
}

// Findings returns all findings concatenated in category order.
func (r *ReviewResult) Findings() []string {
	out := make([]string, 0, r.FindingCount())
	out = append(out, r.SecurityIssues...)
	out = append(out, r.PerformanceIssues...)
	out = append(out, r.StyleIssues...)
	out = append(out, r.Recommendations...)
	return out
}

// Summary renders a one-line feedback entry for the workflow state.
func (r *ReviewResult) Summary() string {
	verdict := "not ready"
	if r.Ready {
		verdict = "ready"
	}
	parts := []string{
		fmt.Sprintf("score %d/10", r.OverallScore),
		verdict,
		fmt.Sprintf("%d files reviewed", len(r.FilesReviewed)),
	}
	if n := r.FindingCount(); n > 0 {
		parts = append(parts, fmt.Sprintf("%d findings", n))
	}
	return strings.Join(parts, ", ")
}
