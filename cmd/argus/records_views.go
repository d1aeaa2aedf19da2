package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"argus/internal/api"
)

func buildRecordStatsRows(stats map[string]int) [][]string {
	if len(stats) == 0 {
		return nil
	}
	keys := make([]string, 0, len(stats))
	for key := range stats {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{formatStatusLabel(key), fmt.Sprintf("%d", stats[key])})
	}
	return rows
}

func buildRecordListRows(recs []api.AnalysisRecord) [][]string {
	if len(recs) == 0 {
		return nil
	}
	sorted := make([]api.AnalysisRecord, len(recs))
	copy(sorted, recs)

	sort.Slice(sorted, func(i, j int) bool {
		ti := parseRecordTime(sorted[i].CreatedAt)
		tj := parseRecordTime(sorted[j].CreatedAt)
		if ti.Equal(tj) {
			return sorted[i].ID > sorted[j].ID
		}
		return ti.After(tj)
	})

	rows := make([][]string, 0, len(sorted))
	for _, rec := range sorted {
		rows = append(rows, []string{
			fmt.Sprintf("%d", rec.ID),
			formatHash(rec.ContentHash),
			formatStatusLabel(rec.Status),
			formatVerdict(rec.Verdict),
			formatScore(rec),
			formatDisplayTime(rec.CreatedAt),
		})
	}
	return rows
}

func buildDetectorRows(results []api.DetectorResult) [][]string {
	rows := make([][]string, 0, len(results))
	for _, result := range results {
		count := "-"
		if result.Count > 0 {
			count = fmt.Sprintf("%d", result.Count)
		}
		artifact := result.ArtifactKey
		if artifact == "" {
			artifact = "-"
		}
		rows = append(rows, []string{
			formatStatusLabel(result.Kind),
			fmt.Sprintf("%.1f", result.Confidence),
			count,
			artifact,
		})
	}
	return rows
}

// formatStatusLabel turns machine labels such as "needs_review" or
// "copy_move" into display form ("Needs Review", "Copy Move").
func formatStatusLabel(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	value = strings.ReplaceAll(strings.ToLower(value), "_", " ")
	return cases.Title(language.Und).String(value)
}

func formatVerdict(verdict string) string {
	if strings.TrimSpace(verdict) == "" {
		return "-"
	}
	return formatStatusLabel(verdict)
}

func formatScore(rec api.AnalysisRecord) string {
	if strings.TrimSpace(rec.Verdict) == "" {
		return "-"
	}
	return fmt.Sprintf("%.1f", rec.OverallScore)
}

func formatHash(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	if len(value) > 12 {
		return value[:12]
	}
	return value
}

func formatDisplayTime(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC().Format("2006-01-02 15:04")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC().Format("2006-01-02 15:04")
	}
	return value
}

func parseRecordTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	return time.Time{}
}

func formatByteSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}
