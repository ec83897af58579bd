package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/Veraticus/spice-gateway/internal/gateway"
	"github.com/Veraticus/spice-gateway/internal/model"
	"github.com/Veraticus/spice-gateway/internal/resilience"
	"github.com/charmbracelet/lipgloss"
	"github.com/schollz/progressbar/v3"
)

const auditTextWidth = 40

// RenderParseResult renders extracted transactions as a table followed by the result envelope.
func RenderParseResult(result model.ParseResult) string {
	rows := make([][]string, 0, len(result.Transactions))
	for _, txn := range result.Transactions {
		rows = append(rows, []string{
			string(txn.Type),
			txn.Amount.StringFixed(2) + " " + txn.Currency,
			txn.Category,
			txn.Description,
			txn.Date,
			fmt.Sprintf("%.2f", txn.Confidence),
		})
	}

	var b strings.Builder
	b.WriteString(FormatTitle(fmt.Sprintf("%d transaction(s)", len(result.Transactions))))
	b.WriteString("\n")
	b.WriteString(renderTable([]string{"Type", "Amount", "Category", "Description", "Date", "Confidence"}, rows))
	b.WriteString("\n")
	b.WriteString(renderEnvelope(result.Source, result.Model, result.ErrorNote, result.RequiresConfirmation))
	return b.String()
}

// RenderTask renders a parsed task.
func RenderTask(task model.ParsedTask) string {
	lines := []string{
		BoldStyle.Render(task.Title),
	}
	if task.Description != "" {
		lines = append(lines, SubtleStyle.Render(task.Description))
	}
	due := task.DueDate
	if due == "" {
		due = "none"
	}
	lines = append(lines,
		fmt.Sprintf("Due: %s  Priority: %s  Recurrence: %s  Confidence: %.2f",
			due, task.Priority, task.Recurrence, task.Confidence),
		renderEnvelope(task.Source, task.Model, task.ErrorNote, task.RequiresConfirmation),
	)
	return RenderBox("Task", lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// RenderReceipt renders a scanned receipt and its line items.
func RenderReceipt(receipt model.ReceiptData) string {
	vendor := receipt.Vendor
	if vendor == "" {
		vendor = "unknown vendor"
	}

	lines := []string{
		BoldStyle.Render(vendor) + "  " + receipt.Date,
		fmt.Sprintf("Total: %s %s  Category: %s  Confidence: %.2f",
			receipt.Total.StringFixed(2), receipt.Currency, receipt.Category, receipt.Confidence),
	}
	if receipt.Tax != nil {
		lines = append(lines, "Tax: "+receipt.Tax.StringFixed(2))
	}
	if receipt.Tip != nil {
		lines = append(lines, "Tip: "+receipt.Tip.StringFixed(2))
	}
	if len(receipt.Items) > 0 {
		rows := make([][]string, 0, len(receipt.Items))
		for _, item := range receipt.Items {
			rows = append(rows, []string{item.Name, item.Amount.StringFixed(2)})
		}
		lines = append(lines, renderTable([]string{"Item", "Amount"}, rows))
	}
	lines = append(lines, renderEnvelope(receipt.Source, receipt.Model, receipt.ErrorNote, receipt.RequiresConfirmation))

	return RenderBox("Receipt", lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// RenderStats renders the usage counters and breaker state.
func RenderStats(stats gateway.UsageStats, healthy bool) string {
	health := SuccessStyle.Render("healthy")
	if !healthy {
		health = ErrorStyle.Render("unavailable")
	}

	provider := stats.Provider
	if stats.Model != "" {
		provider += " (" + stats.Model + ")"
	}

	lines := []string{
		"Provider:        " + provider,
		"Health:          " + health,
		fmt.Sprintf("This minute:     %d / %d", stats.RequestsThisMinute, stats.RateLimit),
		fmt.Sprintf("Today:           %d", stats.RequestsToday),
		"Circuit breaker: " + RenderBreaker(stats.CircuitBreaker),
		fmt.Sprintf("Retries:         %d attempts (%d on 429), base delay %s",
			stats.RetryConfig.MaxAttempts, stats.RetryConfig.RateLimitMaxAttempts, stats.RetryConfig.BaseDelay),
	}
	return RenderBox(ChartIcon+" Gateway usage", strings.Join(lines, "\n"))
}

// RenderBreaker renders a one-line breaker summary.
func RenderBreaker(state resilience.BreakerState) string {
	status := SuccessStyle.Render(string(state.Status))
	if state.Status == resilience.BreakerOpen {
		status = ErrorStyle.Render(string(state.Status))
	}

	summary := fmt.Sprintf("%s, %d/%d failures", status, state.FailureCount, state.Threshold)
	if state.LastFailureAt != nil {
		summary += ", last failure " + state.LastFailureAt.Local().Format("2006-01-02 15:04:05")
	}
	return summary
}

// RenderAudit renders audit records newest first.
func RenderAudit(records []model.AuditRecord) string {
	if len(records) == 0 {
		return SubtleStyle.Render("No audit records yet.")
	}

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			rec.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			string(rec.Module),
			renderStatus(rec.Status),
			rec.FailureReason,
			fmt.Sprintf("%.2f", rec.Confidence),
			fmt.Sprintf("%dms", rec.DurationMS),
			truncate(rec.RawText, auditTextWidth),
		})
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		FormatTitle("Audit log"),
		renderTable([]string{"Time", "Module", "Status", "Reason", "Confidence", "Duration", "Input"}, rows))
}

// NewBatchProgress returns the progress bar shown by batch parsing.
func NewBatchProgress(w io.Writer, total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Parsing lines...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			_, _ = fmt.Fprintln(w)
		}),
	)
}

func renderEnvelope(source model.Source, modelName, errorNote string, requiresConfirmation bool) string {
	var parts []string
	if source == model.SourceAI {
		label := RobotIcon + " AI"
		if modelName != "" {
			label += " (" + modelName + ")"
		}
		parts = append(parts, SuccessStyle.Render(label))
	} else {
		parts = append(parts, WarningStyle.Render(RulesIcon+" fallback rules"))
	}

	if requiresConfirmation {
		parts = append(parts, FormatWarning("please confirm before saving"))
	}
	if errorNote != "" {
		parts = append(parts, SubtleStyle.Render(errorNote))
	}
	return strings.Join(parts, "  ")
}

func renderStatus(status model.AuditStatus) string {
	switch status {
	case model.AuditSuccess, model.AuditCached:
		return SuccessStyle.Render(string(status))
	case model.AuditFallback:
		return WarningStyle.Render(string(status))
	default:
		return ErrorStyle.Render(string(status))
	}
}

func renderTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	renderRow := func(cells []string, style lipgloss.Style) string {
		rendered := make([]string, len(cells))
		for i, cell := range cells {
			rendered[i] = style.Width(widths[i] + TableCellStyle.GetPaddingRight()).Render(cell)
		}
		return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
	}

	lines := []string{renderRow(headers, TableHeaderStyle.Inherit(TableCellStyle))}
	for _, row := range rows {
		lines = append(lines, renderRow(row, TableCellStyle))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func truncate(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-1]) + "…"
}
