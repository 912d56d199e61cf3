package models

// ScrapeRequest carries one keyword-research request from the HTTP boundary
// into the orchestrator. Validator tags cover the structural checks; the
// orchestrator still owns the domain checks (known platform, known tab).
type ScrapeRequest struct {
	Keyword   string    `json:"keyword" validate:"required,min=1"`
	Platform  Platform  `json:"platform" validate:"required"`
	Tab       ResultTab `json:"tab"`
	MinVolume int       `json:"min_volume" validate:"gte=0"`
	MaxVolume int       `json:"max_volume" validate:"gte=-1"`
}

// Normalize applies the documented defaults. MaxVolume is left alone: 0 is
// a legal explicit bound, so the boundary sets UnlimitedVolume itself when
// the parameter is absent.
func (r *ScrapeRequest) Normalize() {
	if r.Tab == "" {
		r.Tab = TabSuggestions
	}
}

// Filter returns the volume filter the request describes.
func (r *ScrapeRequest) Filter() VolumeFilter {
	return VolumeFilter{MinVolume: r.MinVolume, MaxVolume: r.MaxVolume}
}
