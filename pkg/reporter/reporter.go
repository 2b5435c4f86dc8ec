package reporter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/amosWeiskopf/corpusmith/internal/models"
	"github.com/amosWeiskopf/corpusmith/pkg/corpus"
)

// Formats lists the supported report formats.
var Formats = []string{"table", "json", "markdown", "html"}

// Reporter inventories a corpus root and renders the result
type Reporter struct {
	store            *corpus.Store
	highQualityWords int
}

// New creates a new Reporter over store. Files with at least
// highQualityWords words are counted as high quality.
func New(store *corpus.Store, highQualityWords int) *Reporter {
	return &Reporter{
		store:            store,
		highQualityWords: highQualityWords,
	}
}

// GenerateReport scans the corpus and renders it in the specified format
func (r *Reporter) GenerateReport(seeds []string, format string) (string, error) {
	report, err := r.Scan(seeds)
	if err != nil {
		return "", fmt.Errorf("failed to scan corpus: %w", err)
	}
	return Render(report, format)
}

// Scan counts the documents of every language directory. Filenames do not
// say where a seed key ends, so per seed figures are only gathered for the
// seeds asked for.
func (r *Reporter) Scan(seeds []string) (*models.CorpusReport, error) {
	report := &models.CorpusReport{
		Root:             r.store.Root(),
		GeneratedAt:      time.Now(),
		HighQualityWords: r.highQualityWords,
	}

	langs, err := r.store.Languages()
	if err != nil {
		return nil, err
	}
	for _, lang := range langs {
		counts, err := r.store.LanguageWordCounts(lang)
		if err != nil {
			return nil, err
		}
		if len(counts) == 0 {
			continue
		}
		stats := models.LanguageStats{Language: lang}
		for _, w := range counts {
			stats.Add(w, r.highQualityWords)
			report.Totals.Add(w, r.highQualityWords)
		}
		report.Languages = append(report.Languages, stats)
	}

	for _, seed := range seeds {
		key := corpus.SeedKey(seed)
		files, err := r.store.SeedFiles(seed)
		if err != nil {
			return nil, err
		}
		stats := models.SeedStats{Seed: seed, SeedKey: key, Languages: make(map[string]int)}
		for _, f := range files {
			stats.Add(f.WordCount, r.highQualityWords)
			stats.Languages[f.Language]++
		}
		report.Seeds = append(report.Seeds, stats)
	}
	return report, nil
}

// Render formats report. Supported formats are listed in Formats.
func Render(report *models.CorpusReport, format string) (string, error) {
	switch format {
	case "table":
		return generateTable(report), nil
	case "json":
		return generateJSON(report)
	case "markdown":
		return generateMarkdown(report), nil
	case "html":
		return generateHTML(report)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// generateJSON creates a JSON formatted report
func generateJSON(report *models.CorpusReport) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}
	return string(data), nil
}

func generateTable(report *models.CorpusReport) string {
	var buf bytes.Buffer

	t := table.NewWriter()
	t.SetOutputMirror(&buf)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Corpus " + report.Root)
	t.AppendHeader(table.Row{"Language", "Files", "Words", "Min", "Max", "High quality"})
	for _, l := range report.Languages {
		t.AppendRow(table.Row{l.Language, l.Files, l.Words, l.MinWords, l.MaxWords, l.HighQuality})
	}
	tot := report.Totals
	t.AppendFooter(table.Row{"Total", tot.Files, tot.Words, tot.MinWords, tot.MaxWords, tot.HighQuality})
	t.Render()

	if len(report.Seeds) > 0 {
		s := table.NewWriter()
		s.SetOutputMirror(&buf)
		s.SetStyle(table.StyleLight)
		s.AppendHeader(table.Row{"Seed", "Files", "Words", "High quality", "Languages"})
		for _, seed := range report.Seeds {
			s.AppendRow(table.Row{seed.Seed, seed.Files, seed.Words, seed.HighQuality, languageList(seed.Languages)})
		}
		s.Render()
	}
	return buf.String()
}

// generateMarkdown creates a Markdown formatted report
func generateMarkdown(report *models.CorpusReport) string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# Corpus Report for %s\n\n", report.Root)
	fmt.Fprintf(&buf, "*Generated on %s*\n\n", report.GeneratedAt.Format("January 2, 2006"))

	fmt.Fprintf(&buf, "**Files:** %d, **words:** %d, **high quality (>= %d words):** %d\n\n",
		report.Totals.Files, report.Totals.Words, report.HighQualityWords, report.Totals.HighQuality)

	fmt.Fprintf(&buf, "## Languages\n\n")
	fmt.Fprintf(&buf, "| Language | Files | Words | Min | Max | High quality |\n")
	fmt.Fprintf(&buf, "|----------|-------|-------|-----|-----|--------------|\n")
	for _, l := range report.Languages {
		fmt.Fprintf(&buf, "| %s | %d | %d | %d | %d | %d |\n", l.Language, l.Files, l.Words, l.MinWords, l.MaxWords, l.HighQuality)
	}
	fmt.Fprintf(&buf, "\n")

	if len(report.Seeds) > 0 {
		fmt.Fprintf(&buf, "## Seeds\n\n")
		for _, s := range report.Seeds {
			fmt.Fprintf(&buf, "### %s\n", s.Seed)
			fmt.Fprintf(&buf, "- **Files:** %d\n", s.Files)
			fmt.Fprintf(&buf, "- **Words:** %d\n", s.Words)
			fmt.Fprintf(&buf, "- **High quality:** %d\n", s.HighQuality)
			if s.Files > 0 {
				fmt.Fprintf(&buf, "- **Languages:** %s\n", languageList(s.Languages))
			}
			fmt.Fprintf(&buf, "\n")
		}
	}
	return buf.String()
}

const htmlReport = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>Corpus Report - {{.Root}}</title>
    <style>
        body { font-family: -apple-system, 'Segoe UI', Roboto, Arial, sans-serif; max-width: 960px; margin: 0 auto; padding: 20px; color: #333; }
        table { border-collapse: collapse; width: 100%; margin-bottom: 2rem; }
        th, td { border-bottom: 1px solid #ddd; padding: 0.5rem; text-align: right; }
        th:first-child, td:first-child { text-align: left; }
    </style>
</head>
<body>
    <h1>Corpus Report for {{.Root}}</h1>
    <p>Generated on {{.GeneratedAt.Format "January 2, 2006"}}</p>
    <h2>Languages</h2>
    <table>
        <tr><th>Language</th><th>Files</th><th>Words</th><th>Min</th><th>Max</th><th>High quality</th></tr>
        {{range .Languages}}
        <tr><td>{{.Language}}</td><td>{{.Files}}</td><td>{{.Words}}</td><td>{{.MinWords}}</td><td>{{.MaxWords}}</td><td>{{.HighQuality}}</td></tr>
        {{end}}
        <tr><th>Total</th><th>{{.Totals.Files}}</th><th>{{.Totals.Words}}</th><th>{{.Totals.MinWords}}</th><th>{{.Totals.MaxWords}}</th><th>{{.Totals.HighQuality}}</th></tr>
    </table>
    {{if .Seeds}}
    <h2>Seeds</h2>
    <table>
        <tr><th>Seed</th><th>Files</th><th>Words</th><th>High quality</th></tr>
        {{range .Seeds}}
        <tr><td>{{.Seed}}</td><td>{{.Files}}</td><td>{{.Words}}</td><td>{{.HighQuality}}</td></tr>
        {{end}}
    </table>
    {{end}}
</body>
</html>
`

// generateHTML creates an HTML formatted report
func generateHTML(report *models.CorpusReport) (string, error) {
	t, err := template.New("report").Parse(htmlReport)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, report); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

func languageList(langs map[string]int) string {
	keys := make([]string, 0, len(langs))
	for k := range langs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	for i, k := range keys {
		if i > 0 {
			buf.WriteString(", ")
		}
		fmt.Fprintf(&buf, "%s:%d", k, langs[k])
	}
	return buf.String()
}
