// Package stats computes aggregate statistics over extracted keyword
// records. Pure post-processing: no I/O, no state.
package stats

import (
	"sort"
	"strconv"
	"strings"

	"github.com/ternarybob/verba/internal/models"
)

// Summary is the aggregate view of one result set.
type Summary struct {
	TotalKeywords     int     `json:"total_keywords"`
	AvailableKeywords int     `json:"available_keywords"`
	RedactedKeywords  int     `json:"redacted_keywords"`
	TotalVolume       int     `json:"total_volume"`
	AverageVolume     float64 `json:"average_volume"`
	MaxVolume         int     `json:"max_volume"`
	AverageTrend      float64 `json:"average_trend"`
}

// Summarize computes aggregate figures over a record list. Redacted rows
// count toward totals but contribute nothing to volume or trend averages.
func Summarize(records []models.KeywordRecord) Summary {
	summary := Summary{TotalKeywords: len(records)}

	trendSum := 0.0
	trendCount := 0

	for _, record := range records {
		if !record.IsDataAvailable {
			summary.RedactedKeywords++
			continue
		}

		summary.AvailableKeywords++
		summary.TotalVolume += record.SearchVolume
		if record.SearchVolume > summary.MaxVolume {
			summary.MaxVolume = record.SearchVolume
		}

		if trend, ok := parseTrend(record.Trend); ok {
			trendSum += trend
			trendCount++
		}
	}

	if summary.AvailableKeywords > 0 {
		summary.AverageVolume = float64(summary.TotalVolume) / float64(summary.AvailableKeywords)
	}
	if trendCount > 0 {
		summary.AverageTrend = trendSum / float64(trendCount)
	}

	return summary
}

// TopByVolume returns the n highest-volume records with available data,
// ordered descending. The input slice is not modified.
func TopByVolume(records []models.KeywordRecord, n int) []models.KeywordRecord {
	available := make([]models.KeywordRecord, 0, len(records))
	for _, record := range records {
		if record.IsDataAvailable {
			available = append(available, record)
		}
	}

	sort.SliceStable(available, func(i, j int) bool {
		return available[i].SearchVolume > available[j].SearchVolume
	})

	if n < len(available) {
		available = available[:n]
	}
	return available
}

// parseTrend reads a trend display like "+15%" or "-3.5 %" as a float.
func parseTrend(display string) (float64, bool) {
	cleaned := strings.TrimSpace(display)
	cleaned = strings.TrimSuffix(cleaned, "%")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return 0, false
	}

	trend, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return trend, true
}
