package scraper

import (
	"regexp"
	"strings"
)

// Aggregate totals are rendered as free text above the results table, not
// as addressable cells, so they are pulled from the page body by pattern.
var (
	totalVolumePattern  = regexp.MustCompile(`(?i)total\s+(?:search\s+)?volume[:\s]+([\d,.]+[KM]?)`)
	averageTrendPattern = regexp.MustCompile(`(?i)average\s+trend[:\s]+([+-]?[\d.]+\s?%?)`)
)

// ParseTotals extracts the aggregate total-volume and average-trend figures
// from page text. Missing figures come back empty; the caller treats them
// as cosmetic.
func ParseTotals(bodyText string) (totalVolume, averageTrend string) {
	if m := totalVolumePattern.FindStringSubmatch(bodyText); len(m) == 2 {
		totalVolume = strings.TrimSpace(m[1])
	}
	if m := averageTrendPattern.FindStringSubmatch(bodyText); len(m) == 2 {
		averageTrend = strings.TrimSpace(m[1])
	}
	return totalVolume, averageTrend
}
