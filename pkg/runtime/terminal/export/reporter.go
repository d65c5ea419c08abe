package export

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"

	"github.com/de-tools/revenue-atlas/pkg/models/domain"
)

type TableConfig struct {
	EntityWidth int
	LevelWidth  int
	AmountWidth int
	PctWidth    int
}

func DefaultTableConfig() TableConfig {
	return TableConfig{
		EntityWidth: 48,
		LevelWidth:  9,
		AmountWidth: 14,
		PctWidth:    9,
	}
}

// Reporter prints the headline KPIs of every node of a report as a text table.
type Reporter struct {
	writer io.Writer
	config TableConfig
}

func NewReporter(writer io.Writer) *Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	return &Reporter{
		writer: writer,
		config: DefaultTableConfig(),
	}
}

type row struct {
	Entity  string
	Level   domain.Level
	Revenue string
	Plan    string
	VsPlan  string
	QoQ     string
	YoY     string
}

type view struct {
	Metadata domain.Metadata
	Rows     []row
}

func (c *Reporter) Handle(report *domain.Report) error {
	funcMap := template.FuncMap{
		"formatRow": func(entity string, level domain.Level, revenue, plan, vsPlan, qoq, yoy string) string {
			return fmt.Sprintf("| %-*s | %-*s | %*s | %*s | %*s | %*s | %*s |",
				c.config.EntityWidth, truncate(entity, c.config.EntityWidth),
				c.config.LevelWidth, level,
				c.config.AmountWidth, revenue,
				c.config.AmountWidth, plan,
				c.config.PctWidth, vsPlan,
				c.config.PctWidth, qoq,
				c.config.PctWidth, yoy)
		},
		"separator": func() string {
			return fmt.Sprintf("+%s+%s+%s+%s+%s+%s+%s+",
				strings.Repeat("-", c.config.EntityWidth+2),
				strings.Repeat("-", c.config.LevelWidth+2),
				strings.Repeat("-", c.config.AmountWidth+2),
				strings.Repeat("-", c.config.AmountWidth+2),
				strings.Repeat("-", c.config.PctWidth+2),
				strings.Repeat("-", c.config.PctWidth+2),
				strings.Repeat("-", c.config.PctWidth+2))
		},
		"date": domain.FormatDate,
	}

	tmpl := `
Revenue Report {{.Metadata.Quarter}} (run {{date .Metadata.RunDate}}){{if .Metadata.CategoryFilter}} [{{.Metadata.CategoryFilter}}]{{end}}

Quarter: {{date .Metadata.Dates.QuarterStart}} to {{date .Metadata.Dates.QuarterEnd}}, data through {{date .Metadata.Dates.EffectiveEnd}}
Generated: {{.Metadata.GeneratedAt.Format "2006-01-02 15:04:05"}} UTC, run {{.Metadata.RunID}}

{{separator}}
{{formatRow "Entity" "Level" "QTD Revenue" "QTD Plan" "vs Plan" "QoQ" "YoY"}}
{{separator}}
{{range .Rows}}{{formatRow .Entity .Level .Revenue .Plan .VsPlan .QoQ .YoY}}
{{end}}{{separator}}
`

	t, err := template.New("report").Funcs(funcMap).Parse(tmpl)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	return t.Execute(c.writer, view{Metadata: report.Metadata, Rows: rows(report)})
}

func rows(report *domain.Report) []row {
	var out []row
	if report.Root == nil {
		return out
	}
	report.Root.Walk(func(path []string, node *domain.EntityNode) {
		entity := node.Name
		if len(path) > 0 {
			entity = strings.Repeat("  ", len(path)-1) + node.Name
		}
		r := row{Entity: entity, Level: node.Level, Revenue: "-", Plan: "-", VsPlan: "-", QoQ: "-", YoY: "-"}
		if kpis, ok := node.Analysis[domain.KindSummaryKPIs].(domain.SummaryKPIs); ok && !kpis.Empty {
			r.Revenue = amount(kpis.QTDRevenue)
			r.Plan = amount(kpis.QTDPlan)
			r.VsPlan = percent(kpis.PctVsPlan)
			r.QoQ = percent(kpis.QoQGrowthPct)
			r.YoY = percent(kpis.YoYGrowthPct)
		}
		out = append(out, r)
	})
	return out
}

func amount(v float64) string {
	return fmt.Sprintf("%.0f", v)
}

func percent(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%+.2f%%", *v)
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "~"
}
