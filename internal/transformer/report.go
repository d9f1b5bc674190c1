package transformer

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"foreachfix/internal/config"
	"foreachfix/internal/models"

	"github.com/fatih/color"
)

// ReportGenerator handles formatting and displaying transform results
type ReportGenerator struct {
	format string
	config *config.Config
}

// NewReportGenerator creates a new report generator
func NewReportGenerator(format string) *ReportGenerator {
	return &ReportGenerator{
		format: format,
		config: config.DefaultConfig(),
	}
}

func NewReportGeneratorWithConfig(cfg *config.Config) *ReportGenerator {
	return &ReportGenerator{
		format: cfg.Output.Format,
		config: cfg,
	}
}

// Generate creates a formatted report from transform results
func (r *ReportGenerator) Generate(result *models.TransformResult) string {
	switch r.format {
	case "json":
		return r.generateJSON(result)
	default:
		return r.generateConsole(result)
	}
}

func (r *ReportGenerator) generateJSON(result *models.TransformResult) string {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Sprintf("Error generating JSON report: %v", err)
	}
	return string(data) + "\n"
}

// generateConsole creates a colorized console report
func (r *ReportGenerator) generateConsole(result *models.TransformResult) string {
	var report strings.Builder

	useColors := true
	verbose := false
	if r.config != nil {
		useColors = r.config.Output.Colors
		verbose = r.config.Output.Verbose
	}

	// Header
	title := "foreachfix Report"
	if r.config != nil && r.config.ProjectName != "" {
		title += ": " + r.config.ProjectName
	}
	if useColors {
		report.WriteString(color.CyanString("🔁 %s\n", title))
		report.WriteString(color.WhiteString("═══════════════════════════════════════\n\n"))
	} else {
		report.WriteString(title + "\n")
		report.WriteString("=======================================\n\n")
	}

	if verbose && r.config != nil {
		r.writeConfigInfo(&report, useColors)
	}

	r.writeSummary(&report, result, useColors)
	r.writeCoverage(&report, result, useColors)

	if len(result.SkipsByReason) > 0 {
		r.writeSkipSummary(&report, result, useColors)
	}

	if verbose {
		r.writeDetails(&report, result, useColors)
	}

	// Footer
	if useColors {
		report.WriteString(color.WhiteString("Transform completed in %s\n", result.Duration))
	} else {
		report.WriteString(fmt.Sprintf("Transform completed in %s\n", result.Duration))
	}

	return report.String()
}

func (r *ReportGenerator) writeConfigInfo(report *strings.Builder, useColors bool) {
	names := r.config.Transform.Names
	defaults := fmt.Sprintf("%s/%s/%s", names.Element, names.Index, names.Array)
	if useColors {
		report.WriteString(color.WhiteString("📋 Configuration:\n"))
		report.WriteString(fmt.Sprintf("   Method: %s\n", color.CyanString(r.config.Transform.Method)))
		report.WriteString(fmt.Sprintf("   Default names: %s\n", color.CyanString(defaults)))
	} else {
		report.WriteString("Configuration:\n")
		report.WriteString(fmt.Sprintf("   Method: %s\n", r.config.Transform.Method))
		report.WriteString(fmt.Sprintf("   Default names: %s\n", defaults))
	}
	report.WriteString("\n")
}

func (r *ReportGenerator) writeSummary(report *strings.Builder, result *models.TransformResult, useColors bool) {
	if useColors {
		report.WriteString(color.WhiteString("📊 Summary:\n"))
	} else {
		report.WriteString("Summary:\n")
	}
	report.WriteString(fmt.Sprintf("   Files processed: %d\n", len(result.Files)))
	report.WriteString(fmt.Sprintf("   Files changed: %d\n", result.FilesChanged))
	report.WriteString(fmt.Sprintf("   Calls rewritten: %d\n", result.TotalRewritten))
	report.WriteString(fmt.Sprintf("   Calls skipped: %d\n", result.TotalSkipped))
	report.WriteString("\n")
}

func (r *ReportGenerator) writeCoverage(report *strings.Builder, result *models.TransformResult, useColors bool) {
	if !useColors {
		report.WriteString(fmt.Sprintf("Coverage: %d%%\n\n", result.Coverage))
		return
	}

	var coverageColor func(a ...interface{}) string
	switch {
	case result.Coverage == 100:
		coverageColor = color.New(color.FgGreen).SprintFunc()
	case result.Coverage >= 50:
		coverageColor = color.New(color.FgYellow).SprintFunc()
	default:
		coverageColor = color.New(color.FgRed).SprintFunc()
	}
	report.WriteString(fmt.Sprintf("🎯 Coverage: %s\n\n", coverageColor(fmt.Sprintf("%d%%", result.Coverage))))
}

func (r *ReportGenerator) writeSkipSummary(report *strings.Builder, result *models.TransformResult, useColors bool) {
	if useColors {
		report.WriteString(color.WhiteString("⚠️  Skipped by reason:\n"))
	} else {
		report.WriteString("Skipped by reason:\n")
	}

	reasons := make([]string, 0, len(result.SkipsByReason))
	for reason := range result.SkipsByReason {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		count := result.SkipsByReason[reason]
		if useColors {
			report.WriteString(fmt.Sprintf("   %s: %s\n", reason, color.YellowString("%d", count)))
		} else {
			report.WriteString(fmt.Sprintf("   %s: %d\n", reason, count))
		}
	}
	report.WriteString("\n")
}

func (r *ReportGenerator) writeDetails(report *strings.Builder, result *models.TransformResult, useColors bool) {
	if useColors {
		report.WriteString(color.WhiteString("🔍 Call-sites:\n"))
	} else {
		report.WriteString("Call-sites:\n")
	}
	report.WriteString(strings.Repeat("─", 50) + "\n")

	for _, fr := range result.Results {
		for _, rw := range fr.Rewrites {
			r.writeRewrite(report, rw, useColors)
		}
	}
	report.WriteString("\n")
}

func (r *ReportGenerator) writeRewrite(report *strings.Builder, rw models.Rewrite, useColors bool) {
	location := fmt.Sprintf("%s:%d:%d", rw.File, rw.Line, rw.Column)
	var detail string
	if rw.Status == models.StatusSkipped {
		detail = rw.Reason
	} else {
		detail = fmt.Sprintf("%s loop, %s callback, arity %d", rw.Loop, rw.Callback, rw.Arity)
		if rw.Returns > 0 {
			detail += fmt.Sprintf(", %d return(s) -> continue", rw.Returns)
		}
		if rw.Label != "" {
			detail += ", label " + rw.Label
		}
	}

	if !useColors {
		report.WriteString(fmt.Sprintf("%s %s: %s\n      %s\n", rw.Status, location, detail, rw.Snippet))
		return
	}

	status := color.GreenString(rw.Status.String())
	if rw.Status == models.StatusSkipped {
		status = color.YellowString(rw.Status.String())
	}
	report.WriteString(fmt.Sprintf("%s %s: %s\n", status, color.CyanString(location), detail))
	report.WriteString(color.WhiteString("      %s\n", rw.Snippet))
}
