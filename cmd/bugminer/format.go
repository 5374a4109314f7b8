package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	gotoml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"bugminer/internal/storage"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
	FormatYAML  OutputFormat = "yaml"
	FormatTOML  OutputFormat = "toml"
)

// ParseOutputFormat validates a --format value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case FormatJSON, FormatHuman, FormatYAML, FormatTOML:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatYAML:
		return formatYAML(resp)
	case FormatTOML:
		return formatTOML(resp)
	case FormatHuman:
		return formatHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// formatJSON formats the response as JSON
func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

func formatYAML(resp interface{}) (string, error) {
	data, err := yaml.Marshal(resp)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

func formatTOML(resp interface{}) (string, error) {
	data, err := gotoml.Marshal(resp)
	if err != nil {
		return "", fmt.Errorf("failed to marshal TOML: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

// formatHuman formats the response in human-readable format
func formatHuman(resp interface{}) (string, error) {
	switch v := resp.(type) {
	case *ReportResponseCLI:
		return formatReportHuman(v), nil
	case *RunsResponseCLI:
		return formatRunsHuman(v), nil
	default:
		// For unknown types, fall back to JSON
		return formatJSON(resp)
	}
}

var (
	headerColor = color.New(color.Bold)
	countColor  = color.New(color.FgYellow)
	mutedColor  = color.New(color.Faint)
	failColor   = color.New(color.FgRed)
)

func formatReportHuman(resp *ReportResponseCLI) string {
	var b strings.Builder

	title := fmt.Sprintf("%s %s", viewTitles[resp.View], resp.Kind)
	b.WriteString(headerColor.Sprint(title) + "\n")
	b.WriteString(strings.Repeat("=", len(title)) + "\n")

	switch {
	case len(resp.Ranked) > 0:
		writeRanked(&b, resp.Ranked)
	case len(resp.CoChanged) > 0:
		writeCoChanged(&b, resp.CoChanged)
	default:
		b.WriteString(mutedColor.Sprint("(no rows)") + "\n")
	}

	if resp.Stats != nil {
		b.WriteString("\n")
		b.WriteString(mutedColor.Sprintf("%d revisions, %d bugs, %d files, %d functions",
			resp.Stats.Revisions, resp.Stats.Bugs, resp.Stats.Files, resp.Stats.Functions))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeRanked(b *strings.Builder, rows []storage.RankedEntity) {
	width := countWidth(len(rows), func(i int) int { return rows[i].Count })
	for _, r := range rows {
		fmt.Fprintf(b, "  %s  %s\n", countColor.Sprintf("%*d", width, r.Count), r.Name)
	}
}

func writeCoChanged(b *strings.Builder, rows []storage.CoChange) {
	width := countWidth(len(rows), func(i int) int { return rows[i].Count })
	for _, r := range rows {
		fmt.Fprintf(b, "  %s  %s %s %s\n", countColor.Sprintf("%*d", width, r.Count),
			r.Name, mutedColor.Sprint("<->"), r.Other)
	}
}

func countWidth(n int, count func(int) int) int {
	width := 1
	for i := 0; i < n; i++ {
		if w := len(fmt.Sprint(count(i))); w > width {
			width = w
		}
	}
	return width
}

func formatRunsHuman(resp *RunsResponseCLI) string {
	var b strings.Builder

	b.WriteString(headerColor.Sprint("Mining runs") + "\n")
	b.WriteString(strings.Repeat("=", len("Mining runs")) + "\n")
	if len(resp.Runs) == 0 {
		b.WriteString(mutedColor.Sprint("(no runs)"))
		return b.String()
	}

	for _, r := range resp.Runs {
		status := r.Status
		if r.Error != "" {
			status = failColor.Sprint(status)
		}
		fmt.Fprintf(&b, "%s  %s  %s  %s@%s\n", r.StartedAt.Format("2006-01-02 15:04:05"),
			shortID(r.RunID), status, r.Backend, r.StartRef)
		fmt.Fprintf(&b, "    %s recorded, %d skipped of %d in %s\n",
			countColor.Sprint(r.RevisionsRecorded), r.RevisionsSkipped, r.RevisionsTotal,
			r.Duration().Round(10*time.Millisecond))
		if r.Error != "" {
			fmt.Fprintf(&b, "    %s\n", failColor.Sprint(r.Error))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
