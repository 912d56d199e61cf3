package models

// Platform identifies which search engine the keyword tool should target.
type Platform string

const (
	PlatformGoogle       Platform = "google"
	PlatformYouTube      Platform = "youtube"
	PlatformInstagram    Platform = "instagram"
	PlatformTikTok       Platform = "tiktok"
	PlatformGoogleTrends Platform = "google-trends"
)

// KnownPlatforms lists every platform the orchestrator accepts.
var KnownPlatforms = []Platform{
	PlatformGoogle,
	PlatformYouTube,
	PlatformInstagram,
	PlatformTikTok,
	PlatformGoogleTrends,
}

// Valid reports whether the platform is one the orchestrator knows.
func (p Platform) Valid() bool {
	for _, known := range KnownPlatforms {
		if p == known {
			return true
		}
	}
	return false
}

// ResultTab identifies a result grouping tab on the results page.
type ResultTab string

const (
	TabSuggestions  ResultTab = "suggestions"
	TabQuestions    ResultTab = "questions"
	TabPrepositions ResultTab = "prepositions"
	TabRelated      ResultTab = "related"
)

// Valid reports whether the tab is a known result grouping.
func (t ResultTab) Valid() bool {
	switch t {
	case TabSuggestions, TabQuestions, TabPrepositions, TabRelated:
		return true
	}
	return false
}

// VolumeUnavailable is the display placeholder for a redacted volume cell.
const VolumeUnavailable = "N/A"

// UnlimitedVolume disables the upper bound of the volume filter.
const UnlimitedVolume = -1

// KeywordRecord is one extracted row from the results table. A redacted
// (blurred) volume cell yields IsDataAvailable=false with SearchVolume
// forced to 0 — the row is still returned, never dropped, because a
// degraded free-tier result is still useful to the caller.
type KeywordRecord struct {
	Keyword             string `json:"keyword"`
	SearchVolume        int    `json:"search_volume"`
	SearchVolumeDisplay string `json:"search_volume_display"`
	Trend               string `json:"trend"`
	IsDataAvailable     bool   `json:"is_data_available"`
}

// VolumeFilter is the inclusive [min,max] search-volume filter applied to
// the returned keyword list. MaxVolume of UnlimitedVolume means no upper
// bound.
type VolumeFilter struct {
	MinVolume int `json:"min_volume"`
	MaxVolume int `json:"max_volume"`
}

// Contains reports whether a volume falls inside the filter bounds.
func (f VolumeFilter) Contains(volume int) bool {
	if volume < f.MinVolume {
		return false
	}
	if f.MaxVolume != UnlimitedVolume && volume > f.MaxVolume {
		return false
	}
	return true
}

// KeywordResultSet is the final product of one successful scrape attempt.
// Keywords already reflects the volume filter; FilteredCount always equals
// len(Keywords).
type KeywordResultSet struct {
	Account            string          `json:"account"`
	Keyword            string          `json:"keyword"`
	Platform           Platform        `json:"platform"`
	Tab                ResultTab       `json:"tab"`
	TotalKeywordsFound int             `json:"total_keywords_found"`
	TotalSearchVolume  string          `json:"total_search_volume"`
	AverageTrend       string          `json:"average_trend"`
	Filter             VolumeFilter    `json:"filter"`
	FilteredCount      int             `json:"filtered_count"`
	Degraded           bool            `json:"degraded"`
	Keywords           []KeywordRecord `json:"keywords"`
}
