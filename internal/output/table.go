package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/cloudsweep-io/cloudsweep/internal/models"
)

// ANSI color codes for risk-level output (used when Colored=true).
const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[0;31m"
	ansiYellow = "\033[0;33m"
	ansiBlue   = "\033[0;34m"
	ansiGreen  = "\033[0;32m"
)

// TableOptions controls how RenderScanTable renders its rows.
type TableOptions struct {
	// Colored wraps risk labels with ANSI codes. Default false (CI-safe).
	Colored bool
}

// riskCell returns the risk level padded to width characters.
// When colored, ANSI codes wrap only the text; trailing padding spaces are
// plain so subsequent columns stay visually aligned regardless of terminal
// ANSI support.
func riskCell(risk models.RiskLevel, width int, colored bool) string {
	text := string(risk)
	if !colored {
		return fmt.Sprintf("%-*s", width, text)
	}
	var code string
	switch risk {
	case models.RiskSafe:
		code = ansiGreen
	case models.RiskLow:
		code = ansiBlue
	case models.RiskMedium:
		code = ansiYellow
	case models.RiskHigh:
		code = ansiRed
	default:
		return fmt.Sprintf("%-*s", width, text)
	}
	spaces := width - len(text)
	if spaces < 0 {
		spaces = 0
	}
	return code + text + ansiReset + strings.Repeat(" ", spaces)
}

// truncateField shortens s to at most max bytes for ID/label columns.
// A single-char ellipsis replaces the last byte when truncation occurs.
func truncateField(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}

// RenderScanTable writes a formatted waste-item table to w, followed by the
// cost totals and any warnings.
//
// Column order:
//
//	RESOURCE ID  REGION  TYPE  RISK  SCORE  COST/MO  COST/YR
func RenderScanTable(w io.Writer, result *models.ScanResult, opts TableOptions) {
	if len(result.WasteItems) == 0 {
		fmt.Fprintln(w, "No waste found.")
		renderWarnings(w, result.Warnings)
		return
	}

	// Fixed column display widths.
	const (
		wResource = 40
		wRegion   = 15
		wType     = 18
		wRisk     = 8
		wScore    = 5
	)

	var hb strings.Builder
	hb.WriteString(fmt.Sprintf("%-*s", wResource, "RESOURCE ID"))
	hb.WriteString(fmt.Sprintf("  %-*s", wRegion, "REGION"))
	hb.WriteString(fmt.Sprintf("  %-*s", wType, "TYPE"))
	hb.WriteString(fmt.Sprintf("  %-*s", wRisk, "RISK"))
	hb.WriteString(fmt.Sprintf("  %-*s", wScore, "SCORE"))
	hb.WriteString(fmt.Sprintf("  %10s", "COST/MO"))
	hb.WriteString(fmt.Sprintf("  %11s", "COST/YR"))
	header := hb.String()

	fmt.Fprintln(w, header)
	fmt.Fprintln(w, strings.Repeat("-", len(header)))

	for _, item := range result.WasteItems {
		var rb strings.Builder
		rb.WriteString(fmt.Sprintf("%-*s", wResource, truncateField(item.ResourceID, wResource)))
		rb.WriteString(fmt.Sprintf("  %-*s", wRegion, truncateField(item.Region, wRegion)))
		rb.WriteString(fmt.Sprintf("  %-*s", wType, truncateField(string(item.ResourceType), wType)))
		rb.WriteString("  " + riskCell(item.RiskLevel, wRisk, opts.Colored))
		rb.WriteString(fmt.Sprintf("  %-*d", wScore, item.ConfidenceScore))
		rb.WriteString(fmt.Sprintf("  %10s", fmt.Sprintf("$%.2f", item.MonthlyCost)))
		rb.WriteString(fmt.Sprintf("  %11s", fmt.Sprintf("$%.2f", item.AnnualCost)))
		fmt.Fprintln(w, rb.String())
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Total: %d items, $%.2f/month ($%.2f/year)\n",
		result.Summary.TotalItems,
		result.Summary.TotalMonthlyCost,
		result.Summary.TotalAnnualCost)
	renderWarnings(w, result.Warnings)
}

// RenderCleanupTable writes a formatted cleanup-action table to w, followed
// by the savings total.
//
// Column order:
//
//	RESOURCE ID  REGION  ACTION  RESULT  SAVINGS/MO
func RenderCleanupTable(w io.Writer, actions []models.CleanupAction) {
	if len(actions) == 0 {
		fmt.Fprintln(w, "Nothing to clean up.")
		return
	}

	const (
		wResource = 40
		wRegion   = 15
		wAction   = 10
		wResult   = 10
	)

	var hb strings.Builder
	hb.WriteString(fmt.Sprintf("%-*s", wResource, "RESOURCE ID"))
	hb.WriteString(fmt.Sprintf("  %-*s", wRegion, "REGION"))
	hb.WriteString(fmt.Sprintf("  %-*s", wAction, "ACTION"))
	hb.WriteString(fmt.Sprintf("  %-*s", wResult, "RESULT"))
	hb.WriteString(fmt.Sprintf("  %10s", "SAVINGS/MO"))
	header := hb.String()

	fmt.Fprintln(w, header)
	fmt.Fprintln(w, strings.Repeat("-", len(header)))

	var total float64
	dryRun := false
	for _, a := range actions {
		result := "ok"
		if !a.Success {
			result = "failed"
		} else if a.DryRun {
			result = "simulated"
			dryRun = true
		}
		total += a.ActualMonthlySavings

		var rb strings.Builder
		rb.WriteString(fmt.Sprintf("%-*s", wResource, truncateField(a.ResourceID, wResource)))
		rb.WriteString(fmt.Sprintf("  %-*s", wRegion, truncateField(a.Region, wRegion)))
		rb.WriteString(fmt.Sprintf("  %-*s", wAction, string(a.ActionType)))
		rb.WriteString(fmt.Sprintf("  %-*s", wResult, result))
		rb.WriteString(fmt.Sprintf("  %10s", fmt.Sprintf("$%.2f", a.EstimatedMonthlySavings)))
		fmt.Fprintln(w, rb.String())
	}

	fmt.Fprintln(w)
	if dryRun {
		fmt.Fprintln(w, "Dry run: no resources were modified.")
		return
	}
	fmt.Fprintf(w, "Actual savings: $%.2f/month\n", total)
}

// renderWarnings prints scan warnings, one per line.
func renderWarnings(w io.Writer, warnings []models.ScanWarning) {
	if len(warnings) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d warning(s):\n", len(warnings))
	for _, warn := range warnings {
		scope := string(warn.ResourceType)
		if warn.Region != "" {
			scope += "@" + warn.Region
		}
		fmt.Fprintf(w, "  [%s] %s: %s\n", warn.Code, scope, warn.Message)
	}
}
