// Package summary renders the metrics table as a terminal report.
package summary

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"gonum.org/v1/gonum/stat"

	"hrmetrics/internal/analysis"
	"hrmetrics/internal/store"
	"hrmetrics/internal/table"
)

// DefaultLatest is how many recent activities the report lists
const DefaultLatest = 5

// Summary holds the aggregates shown in the report
type Summary struct {
	Activities int
	LongRuns   int
	ByType     map[string]int

	// Averages cover only activities where the statistic was defined.
	// A real efficiency factor is always positive.
	AvgDrift        float64
	DriftActivities int
	AvgFirstHalfEF  float64
	AvgSecondHalfEF float64

	ZoneTotals  [store.NumZones]int
	Transitions int

	Latest []table.Row // most recent first

	// Run is the stored metrics run the rows came from, nil for a CSV table
	Run *store.MetricRun
}

// Build aggregates rows read from the metrics table. Undefined values were
// written as zero there, so a zero drift or efficiency factor is treated as
// undefined. latest bounds the number of recent activities kept.
func Build(rows []table.Row, latest int) Summary {
	var drifts, firstEF, secondEF []float64
	for _, r := range rows {
		if r.CardiacDrift != 0 {
			drifts = append(drifts, r.CardiacDrift)
		}
		if r.FirstHalfAvgEfficiencyFactor > 0 {
			firstEF = append(firstEF, r.FirstHalfAvgEfficiencyFactor)
		}
		if r.SecondHalfAvgEfficiencyFactor > 0 {
			secondEF = append(secondEF, r.SecondHalfAvgEfficiencyFactor)
		}
	}
	return build(rows, drifts, firstEF, secondEF, latest)
}

// FromMetrics aggregates stored metrics, where undefined values are nil
// rather than zero-filled.
func FromMetrics(metrics []store.ActivityMetrics, run *store.MetricRun, latest int) Summary {
	var drifts, firstEF, secondEF []float64
	for _, m := range metrics {
		if m.CardiacDrift != nil {
			drifts = append(drifts, *m.CardiacDrift)
		}
		if m.FirstHalf.AvgEfficiencyFactor != nil {
			firstEF = append(firstEF, *m.FirstHalf.AvgEfficiencyFactor)
		}
		if m.SecondHalf.AvgEfficiencyFactor != nil {
			secondEF = append(secondEF, *m.SecondHalf.AvgEfficiencyFactor)
		}
	}
	s := build(table.Normalize(metrics), drifts, firstEF, secondEF, latest)
	s.Run = run
	return s
}

func build(rows []table.Row, drifts, firstEF, secondEF []float64, latest int) Summary {
	s := Summary{
		Activities:      len(rows),
		ByType:          make(map[string]int),
		AvgDrift:        mean(drifts),
		DriftActivities: len(drifts),
		AvgFirstHalfEF:  mean(firstEF),
		AvgSecondHalfEF: mean(secondEF),
	}

	for _, r := range rows {
		s.ByType[r.ActivityType]++
		if r.IsLongRun {
			s.LongRuns++
		}
		for i, secs := range r.ZoneTime {
			s.ZoneTotals[i] += secs
		}
		s.Transitions += r.ZoneTransitions
	}

	recent := append([]table.Row(nil), rows...)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].ActivityStartDate.After(recent[j].ActivityStartDate)
	})
	if latest >= 0 && len(recent) > latest {
		recent = recent[:latest]
	}
	s.Latest = recent

	return s
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}

// Render formats the summary. now anchors relative dates.
func Render(s Summary, now time.Time) string {
	var sections []string
	sections = append(sections, headerStyle.Render("Heart Rate Metrics"))
	if s.Run != nil {
		sections = append(sections, renderRun(*s.Run, now))
	}

	if s.Activities == 0 {
		sections = append(sections, warningStyle.Render("No qualifying activities in the metrics table."))
		return lipgloss.JoinVertical(lipgloss.Left, sections...) + "\n"
	}

	sections = append(sections,
		renderOverview(s),
		renderZones(s),
		renderLatest(s, now),
	)

	return lipgloss.JoinVertical(lipgloss.Left, sections...) + "\n"
}

// Print writes the rendered summary to w
func Print(w io.Writer, s Summary, now time.Time) error {
	_, err := io.WriteString(w, Render(s, now))
	return err
}

func renderOverview(s Summary) string {
	title := cardTitleStyle.Render("Overview")

	lines := []string{
		renderMetric("Activities", humanize.Comma(int64(s.Activities)), typeBreakdown(s.ByType)),
		renderMetric("Long runs", humanize.Comma(int64(s.LongRuns)), ""),
		renderDrift(s),
		renderMetric("Avg EF first half", fmt.Sprintf("%.2f", s.AvgFirstHalfEF), ""),
		renderMetric("Avg EF second half", fmt.Sprintf("%.2f", s.AvgSecondHalfEF), efTrend(s.AvgFirstHalfEF, s.AvgSecondHalfEF)),
		renderMetric("Zone transitions", humanize.Comma(int64(s.Transitions)), ""),
	}

	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinVertical(lipgloss.Left, lines...)))
}

func renderDrift(s Summary) string {
	if s.DriftActivities == 0 {
		return renderMetric("Avg cardiac drift", "-", "")
	}
	detail := analysis.DriftAssessment(s.AvgDrift)
	if s.DriftActivities < s.Activities {
		detail += fmt.Sprintf(" (%d of %d)", s.DriftActivities, s.Activities)
	}
	return renderMetric("Avg cardiac drift", fmt.Sprintf("%.1f%%", s.AvgDrift), detail)
}

// renderRun describes the stored run the report was built from
func renderRun(run store.MetricRun, now time.Time) string {
	id := run.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return statusStyle.Render(fmt.Sprintf("Run %s, finished %s: %d computed, %d skipped of %d",
		id,
		humanize.RelTime(run.FinishedAt, now, "ago", "from now"),
		run.Computed,
		run.Skipped,
		run.Considered,
	))
}

func typeBreakdown(byType map[string]int) string {
	if len(byType) < 2 {
		return ""
	}
	types := make([]string, 0, len(byType))
	for t := range byType {
		types = append(types, t)
	}
	sort.Strings(types)

	parts := make([]string, 0, len(types))
	for _, t := range types {
		name := t
		if name == "" {
			name = "unknown"
		}
		parts = append(parts, fmt.Sprintf("%s %d", name, byType[t]))
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// efTrend describes how efficiency held up from the first half to the second
func efTrend(first, second float64) string {
	if first <= 0 || second <= 0 {
		return ""
	}
	change := (second/first - 1) * 100
	return fmt.Sprintf("%+.1f%%", change)
}

func renderZones(s Summary) string {
	title := cardTitleStyle.Render("Time in Zone")

	total := 0
	for _, secs := range s.ZoneTotals {
		total += secs
	}

	lines := make([]string, 0, store.NumZones)
	for i, secs := range s.ZoneTotals {
		fraction := 0.0
		if total > 0 {
			fraction = float64(secs) / float64(total)
		}
		lines = append(lines, fmt.Sprintf("%-7s %s %8s  %5.1f%%",
			analysis.Zone(i+1).String(),
			renderBar(fraction, 30),
			formatDuration(secs),
			fraction*100,
		))
	}

	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinVertical(lipgloss.Left, lines...)))
}

func renderLatest(s Summary, now time.Time) string {
	title := cardTitleStyle.Render("Latest Activities")

	header := tableHeaderStyle.Render(fmt.Sprintf("%-24s %-10s %8s %8s %8s", "Activity", "When", "Drift", "EF 1st", "EF 2nd"))
	lines := []string{header}
	for _, r := range s.Latest {
		when := "-"
		if !r.ActivityStartDate.IsZero() {
			when = humanize.RelTime(r.ActivityStartDate, now, "ago", "from now")
		}
		name := r.ActivityName
		if r.IsLongRun {
			name += " *"
		}
		lines = append(lines, fmt.Sprintf("%-24s %-10s %7.1f%% %8.2f %8.2f",
			truncate(name, 24),
			when,
			r.CardiacDrift,
			r.FirstHalfAvgEfficiencyFactor,
			r.SecondHalfAvgEfficiencyFactor,
		))
	}
	lines = append(lines, statusStyle.Render("* long run"))

	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinVertical(lipgloss.Left, lines...)))
}

// formatDuration renders seconds as H:MM:SS
func formatDuration(secs int) string {
	return fmt.Sprintf("%d:%02d:%02d", secs/3600, secs%3600/60, secs%60)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
