// Package report renders an AnalysisResult as text, JSON or CSV and stores
// it on disk.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/guregu/null/v6"

	"fin-analysis/internal/ratios"
	"fin-analysis/internal/types"
)

// Format specifies the output format for analysis reports
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
	FormatCSV  Format = "csv"
)

// ParseFormat accepts the names used in config files and flags.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatText, FormatCSV:
		return f, nil
	case "txt":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unsupported format: %s (valid options: text, json, csv)", s)
	}
}

// Extension is the file extension used when saving.
func (f Format) Extension() string {
	if f == FormatText {
		return "txt"
	}
	return string(f)
}

// snapshotPeriods limits the ratio table in the text report.
const snapshotPeriods = 4

const wrapWidth = 80

// Reporter handles generation and storage of analysis reports
type Reporter struct {
	outputDir string
}

func NewReporter(outputDir string) *Reporter {
	return &Reporter{
		outputDir: outputDir,
	}
}

// Generate renders the result in the given format
func (r *Reporter) Generate(result *types.AnalysisResult, format Format) (string, error) {
	if result == nil {
		return "", fmt.Errorf("no analysis result to render")
	}
	switch format {
	case FormatJSON:
		return generateJSON(result)
	case FormatText:
		return generateText(result), nil
	case FormatCSV:
		return generateCSV(result)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// Save renders the result and writes it to
// <outputDir>/<TICKER>_analysis_<timestamp>.<ext>, returning the path.
func (r *Reporter) Save(result *types.AnalysisResult, format Format) (string, error) {
	content, err := r.Generate(result, format)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(r.outputDir, 0755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	timestamp := result.AnalyzedAt.Format("2006-01-02_15-04-05")
	filename := fmt.Sprintf("%s_analysis_%s.%s", result.Company.Ticker, timestamp, format.Extension())
	path := filepath.Join(r.outputDir, filename)

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}

	return path, nil
}

func generateJSON(result *types.AnalysisResult) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ratioRow is one CSV line: a ratio set plus the period it came from
type ratioRow struct {
	types.RatioSet
	EndDate string `csv:"end_date"`
	Source  string `csv:"source"`
}

func generateCSV(result *types.AnalysisResult) (string, error) {
	rows := make([]ratioRow, len(result.Ratios))
	for i, rs := range result.Ratios {
		rows[i] = ratioRow{RatioSet: rs}
		if i < len(result.Statements) {
			rows[i].EndDate = result.Statements[i].EndDate.Format("2006-01-02")
			rows[i].Source = result.Statements[i].Source
		}
	}
	return gocsv.MarshalString(&rows)
}

func generateText(result *types.AnalysisResult) string {
	sections := []string{
		textHeader(result),
		textSummary(result),
		textRatios(result),
		textDetails(result),
		textStatements(result),
		textDisclaimer(result),
	}
	return strings.Join(sections, "\n\n") + "\n"
}

func rule(title string, char string) string {
	return title + "\n" + strings.Repeat(char, 25)
}

func textHeader(result *types.AnalysisResult) string {
	c := result.Company
	var sb strings.Builder
	sb.WriteString(rule("FINANCIAL ANALYSIS REPORT", "="))
	sb.WriteString(fmt.Sprintf("\nCompany:         %s (%s)\n", orNA(c.Name), c.Ticker))
	sb.WriteString(fmt.Sprintf("Exchange:        %s\n", orNA(c.Exchange)))
	sb.WriteString(fmt.Sprintf("Sector:          %s\n", orNA(c.Sector)))
	sb.WriteString(fmt.Sprintf("Industry:        %s\n", orNA(c.Industry)))
	sb.WriteString(fmt.Sprintf("Analysis Date:   %s\n", result.AnalyzedAt.UTC().Format("2006-01-02 15:04:05 UTC")))
	sb.WriteString(fmt.Sprintf("Run ID:          %s", result.RunID))
	return sb.String()
}

func textSummary(result *types.AnalysisResult) string {
	var sb strings.Builder
	sb.WriteString(rule("EXECUTIVE SUMMARY", "-"))
	sb.WriteString("\nOverall Assessment: " + strings.ToUpper(result.Verdict) + "\n")
	sb.WriteString(wrap(result.Summary, "") + "\n\n")

	sb.WriteString("Key Strengths:\n")
	sb.WriteString(bullets(result.Strengths) + "\n\n")
	sb.WriteString("Key Areas for Attention:\n")
	sb.WriteString(bullets(result.Concerns))
	return sb.String()
}

var snapshotMetrics = []struct {
	label   string
	metric  ratios.Metric
	percent bool
}{
	{"Current Ratio", ratios.CurrentRatio, false},
	{"Quick Ratio", ratios.QuickRatio, false},
	{"Net Margin", ratios.NetMargin, true},
	{"Gross Margin", ratios.GrossMargin, true},
	{"ROE", ratios.ROE, true},
	{"ROA", ratios.ROA, true},
	{"Debt-to-Equity", ratios.DebtToEquity, false},
	{"Interest Coverage", ratios.TimesInterestEarned, false},
	{"Asset Turnover", ratios.AssetTurnover, false},
}

func textRatios(result *types.AnalysisResult) string {
	header := rule("FINANCIAL RATIOS SNAPSHOT", "-")
	if len(result.Ratios) == 0 {
		return header + "\nNo ratio data available."
	}

	sets := result.Ratios
	if len(sets) > snapshotPeriods {
		sets = sets[:snapshotPeriods]
	}

	var sb strings.Builder
	sb.WriteString(header + "\n")
	sb.WriteString(fmt.Sprintf("%-22s", "Metric"))
	for _, rs := range sets {
		sb.WriteString(fmt.Sprintf("%12s", fmt.Sprintf("FY%d", rs.FiscalYear)))
	}
	sb.WriteString("\n" + strings.Repeat("-", 22) + strings.Repeat("-", 12*len(sets)))

	for _, m := range snapshotMetrics {
		sb.WriteString(fmt.Sprintf("\n%-22s", m.label))
		for _, rs := range sets {
			sb.WriteString(fmt.Sprintf("%12s", formatRatio(ratios.Value(rs, m.metric), m.percent)))
		}
	}
	return sb.String()
}

func textDetails(result *types.AnalysisResult) string {
	var parts []string
	for _, category := range []string{"liquidity", "profitability", "leverage", "efficiency"} {
		text, ok := result.Findings[category]
		if !ok {
			text = "Not available."
		}
		title := strings.ToUpper(category[:1]) + category[1:] + " Analysis:"
		parts = append(parts, title+"\n"+wrap(text, "  "))
	}
	return rule("DETAILED ANALYSIS", "-") + "\n\n" + strings.Join(parts, "\n\n")
}

func textStatements(result *types.AnalysisResult) string {
	header := rule("FINANCIAL DATA", "-")
	if len(result.Statements) == 0 {
		return header + "\nNo statement data available."
	}

	latest := result.Statements[0]
	lines := []struct {
		label string
		value null.Float
	}{
		{"Revenue", latest.Income.Revenue},
		{"Gross Profit", latest.Income.GrossProfit},
		{"Operating Income", latest.Income.OperatingIncome},
		{"Net Income", latest.Income.NetIncome},
		{"Total Assets", latest.Balance.TotalAssets},
		{"Total Liabilities", latest.Balance.TotalLiabilities},
		{"Total Debt", latest.Balance.TotalDebt},
		{"Shareholders' Equity", latest.Balance.ShareholdersEquity},
		{"Operating Cash Flow", latest.CashFlow.OperatingCashFlow},
		{"Free Cash Flow", latest.CashFlow.FreeCashFlow},
	}

	var sb strings.Builder
	sb.WriteString(header + "\n")
	sb.WriteString(fmt.Sprintf("FY%d (period ending %s, source %s)",
		latest.FiscalYear, latest.EndDate.Format("2006-01-02"), latest.Source))
	for _, l := range lines {
		sb.WriteString(fmt.Sprintf("\n  %-22s%20s", l.label, formatAmount(l.value)))
	}
	return sb.String()
}

func textDisclaimer(result *types.AnalysisResult) string {
	var sb strings.Builder
	sb.WriteString(rule("IMPORTANT DISCLAIMERS", "="))
	sb.WriteString("\n• This report was generated automatically from public data and is for educational purposes only.")
	sb.WriteString("\n• This is not financial advice.")
	sb.WriteString("\n• Data accuracy is not guaranteed. Verify figures against the original filings.")
	sb.WriteString(fmt.Sprintf("\n• Statement Source: %s", orDash(result.StatementSource)))
	sb.WriteString(fmt.Sprintf("\n• Data Sources Used: %s", orDash(strings.Join(result.SourcesUsed, ", "))))
	return sb.String()
}

func bullets(items []string) string {
	if len(items) == 0 {
		return "  None identified."
	}
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "  • " + item
	}
	return strings.Join(lines, "\n")
}

func formatRatio(v null.Float, percent bool) string {
	if !v.Valid {
		return "N/A"
	}
	if percent {
		return fmt.Sprintf("%.2f%%", v.Float64*100)
	}
	return fmt.Sprintf("%.2f", v.Float64)
}

func formatAmount(v null.Float) string {
	if !v.Valid {
		return "N/A"
	}
	abs := v.Float64
	sign := ""
	if abs < 0 {
		abs, sign = -abs, "-"
	}
	switch {
	case abs >= 1e9:
		return fmt.Sprintf("%s$%.2fB", sign, abs/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("%s$%.2fM", sign, abs/1e6)
	default:
		return fmt.Sprintf("%s$%.0f", sign, abs)
	}
}

func orNA(s null.String) string {
	if !s.Valid {
		return "N/A"
	}
	return s.String
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// wrap breaks text on word boundaries at wrapWidth, prefixing every line with indent.
func wrap(text, indent string) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return indent
	}

	var lines []string
	line := indent + words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) > wrapWidth {
			lines = append(lines, line)
			line = indent + w
			continue
		}
		line += " " + w
	}
	return strings.Join(append(lines, line), "\n")
}
