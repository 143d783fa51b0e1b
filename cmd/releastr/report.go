package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	orchestrators "github.com/zapstore/releastr/internal/domain-orchestrators"
	"github.com/zapstore/releastr/internal/domain/entities"
)

// PublishReport contains the results of one publish run
type PublishReport struct {
	Published []string `json:"published"`
	Partial   []string `json:"partial"`
	Duplicate []string `json:"duplicate"`
	Skipped   []string `json:"skipped"`
	Failed    []string `json:"failed"`
	Total     int      `json:"total"`
}

// RecordBundle is one app's record set as written to and read from disk
type RecordBundle struct {
	Alias   string              `json:"alias"`
	Records *entities.RecordSet `json:"records"`
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	aliasStyle  = lipgloss.NewStyle().Bold(true).Width(24)
	reasonStyle = lipgloss.NewStyle().Faint(true)

	statusStyles = map[entities.AppStatus]lipgloss.Style{
		entities.StatusPublished: lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		entities.StatusPartial:   lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		entities.StatusDuplicate: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		entities.StatusSkipped:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		entities.StatusFailed:    lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
	}
)

// buildReport groups results by status
func buildReport(results []*entities.AppResult) *PublishReport {
	r := &PublishReport{Total: len(results)}
	for _, res := range results {
		switch res.Status {
		case entities.StatusPublished:
			r.Published = append(r.Published, res.Alias)
		case entities.StatusPartial:
			r.Partial = append(r.Partial, res.Alias)
		case entities.StatusDuplicate:
			r.Duplicate = append(r.Duplicate, res.Alias)
		case entities.StatusSkipped:
			r.Skipped = append(r.Skipped, res.Alias)
		default:
			r.Failed = append(r.Failed, res.Alias)
		}
	}
	return r
}

// renderReport renders one line per app followed by totals
func renderReport(results []*entities.AppResult) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Publish report"))
	b.WriteString("\n\n")

	for _, res := range results {
		style, ok := statusStyles[res.Status]
		if !ok {
			style = lipgloss.NewStyle()
		}
		line := aliasStyle.Render(res.Alias) + " " + style.Render(fmt.Sprintf("%-9s", res.Status))
		if res.Reason != "" && res.Status != entities.StatusPublished {
			line += " " + reasonStyle.Render(res.Reason)
		}
		if res.Status == entities.StatusPublished && res.Artifact != nil {
			line += " " + reasonStyle.Render(res.Artifact.Digest)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	r := buildReport(results)
	fmt.Fprintf(&b, "\n%d apps: %d published, %d partial, %d duplicate, %d skipped, %d failed\n",
		r.Total, len(r.Published), len(r.Partial), len(r.Duplicate), len(r.Skipped), len(r.Failed))
	return b.String()
}

// summaryLines is the unstyled variant used in logs
func summaryLines(results []*entities.AppResult) []string {
	lines := make([]string, 0, len(results))
	for _, res := range results {
		lines = append(lines, orchestrators.Summary(res))
	}
	return lines
}

// collectBundles returns the record sets of results that built records
func collectBundles(results []*entities.AppResult, onlyPartial bool) []RecordBundle {
	var bundles []RecordBundle
	for _, res := range results {
		if res.Records == nil {
			continue
		}
		if onlyPartial && res.Status != entities.StatusPartial {
			continue
		}
		bundles = append(bundles, RecordBundle{Alias: res.Alias, Records: res.Records})
	}
	return bundles
}

func writeBundles(path string, bundles []RecordBundle) error {
	data, err := json.MarshalIndent(bundles, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func readBundles(path string) ([]RecordBundle, error) {
	//nolint:gosec // G304: path is given on the command line
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var bundles []RecordBundle
	if err := json.Unmarshal(data, &bundles); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	for i, b := range bundles {
		if b.Records == nil || b.Records.App == nil || b.Records.Release == nil || b.Records.FileMetadata == nil {
			return nil, fmt.Errorf("%s: entry %d (%s) is missing records", path, i, b.Alias)
		}
	}
	return bundles, nil
}
