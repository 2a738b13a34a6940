package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Veraticus/adoption-forecast/internal/model"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Formatter renders forecast tables for the terminal.
type Formatter struct {
	styles *Styles
}

// NewFormatter creates a formatter with default styles.
func NewFormatter() *Formatter {
	return &Formatter{styles: NewStyles()}
}

// FormatInputs summarises the planning tables: cohort totals, ratios and
// both bucket distributions.
func (f *Formatter) FormatInputs(in *model.Inputs) string {
	totals := in.Advance.Totals()

	cohorts := make([][]string, in.Horizon)
	for i := range cohorts {
		r := in.Ratios[i]
		cohorts[i] = []string{
			yearLabel(i + 1),
			strconv.Itoa(totals[i]),
			fmt.Sprintf("%.4f", r.Preference),
			fmt.Sprintf("%.4f", r.Neutral),
		}
	}

	bucketHeader := []string{"Plan year"}
	for b := model.BucketNone; b <= model.BucketUnconditional; b++ {
		bucketHeader = append(bucketHeader, b.String())
	}

	sections := []string{
		f.styles.Title.Render("Planned purchases"),
		fmt.Sprintf("Initial ownership: %d   Horizon: %d years", in.InitialOwnership, in.Horizon),
		f.render([]string{"Plan year", "Total", "Preference", "Neutral"}, cohorts, nil),
		f.styles.Subtitle.Render("Advance distribution (positive events)"),
		f.render(bucketHeader, planRecords(in.Advance), nil),
		f.styles.Subtitle.Render("Delay distribution (negative events)"),
		f.render(bucketHeader, planRecords(in.Delay), nil),
	}
	return strings.Join(sections, "\n")
}

// FormatScenario renders one scenario's purchase vectors on two lines.
func (f *Formatter) FormatScenario(sc model.Scenario) string {
	return fmt.Sprintf("%s\n  new:        %v\n  cumulative: %v",
		f.styles.Subtitle.UnsetMargins().Render(sc.Name()), sc.NewPurchases, sc.Cumulative)
}

// FormatResults renders the scenario table.
func (f *Formatter) FormatResults(r *Results) string {
	header := r.Header()
	header = header[:len(header)-2]

	records := r.Records()
	for i := range records {
		records[i] = records[i][:len(records[i])-2]
	}

	title := f.styles.Title.Render(fmt.Sprintf("%d scenarios", len(r.Scenarios)))
	return title + "\n" + f.render(header, records, func(row int) lipgloss.Style {
		switch r.Scenarios[row].Key.Type {
		case model.EventPositive:
			return f.styles.Positive
		case model.EventNegative:
			return f.styles.Negative
		default:
			return f.styles.Label
		}
	})
}

// FormatStatistics renders the per-year statistics table.
func (f *Formatter) FormatStatistics(stats []model.StatRow) string {
	records := make([][]string, len(stats))
	for i, s := range stats {
		records[i] = []string{
			strconv.Itoa(s.Year),
			fmt.Sprintf("%.4f", s.Mean),
			strconv.Itoa(s.Min),
			strconv.Itoa(s.Max),
			fmt.Sprintf("%.4f", s.Std),
		}
	}
	return f.styles.Title.Render("Statistics") + "\n" + f.render(StatisticsHeader(), records, nil)
}

// FormatFuzzyParameters lists each year's statistics as the parameters
// (μ, v̲, v̄, σ) of a fuzzy ownership set.
func (f *Formatter) FormatFuzzyParameters(stats []model.StatRow) string {
	lines := []string{f.styles.Title.Render("Fuzzy set parameters (μ, v̲, v̄, σ)")}
	for _, s := range stats {
		lines = append(lines, fmt.Sprintf("Year %d: μ=%.2f, v̲=%.2f, v̄=%.2f, σ=%.2f",
			s.Year, s.Mean, float64(s.Min), float64(s.Max), s.Std))
	}
	return strings.Join(lines, "\n")
}

// render draws a bordered table. labelStyle, when set, styles the first column per data row.
func (f *Formatter) render(header []string, records [][]string, labelStyle func(row int) lipgloss.Style) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(f.styles.Border).
		Headers(header...).
		Rows(records...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return f.styles.Header
			case col == 0 && labelStyle != nil:
				return labelStyle(row)
			case col == 0:
				return f.styles.Label
			default:
				return f.styles.Cell
			}
		})
	return t.String()
}

func planRecords(t model.PlanTable) [][]string {
	records := make([][]string, len(t))
	for i, row := range t {
		rec := []string{yearLabel(i + 1)}
		for _, n := range row {
			rec = append(rec, strconv.Itoa(n))
		}
		records[i] = rec
	}
	return records
}
