package scraper

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/verba/internal/interfaces"
	"github.com/ternarybob/verba/internal/models"
)

// TableSelectors identifies the results table and its cells.
type TableSelectors struct {
	Table       string
	Row         string
	KeywordCell string
	VolumeCell  string
	TrendCell   string
}

// DefaultTableSelectors returns the selector set for the current upstream
// results markup.
func DefaultTableSelectors() TableSelectors {
	return TableSelectors{
		Table:       "table.keywords-table, table[data-testid='keyword-results']",
		Row:         "tbody tr",
		KeywordCell: "td:nth-child(1)",
		VolumeCell:  "td:nth-child(2)",
		TrendCell:   "td:nth-child(3)",
	}
}

// blur markers: the upstream hides paid data behind any of these.
var (
	blurAttrs      = []string{"data-blurred", "data-locked"}
	blurClasses    = []string{"blur", "blurred", "locked", "obfuscated"}
	blurInnerQuery = ".blur, .blurred, .locked, .upgrade-overlay"
	blurTextHints  = []string{"sign up", "upgrade", "unlock"}
)

// Extraction is the engine's output for one attempt: the extracted rows and
// the aggregate quality signal. Degraded means not a single row carried a
// real volume figure, indicating a free-tier (blurred) result.
type Extraction struct {
	Records  []models.KeywordRecord
	Degraded bool
}

// Extractor reads and classifies the results table.
type Extractor struct {
	selectors TableSelectors
	retries   int
	backoff   time.Duration
	logger    arbor.ILogger
}

// NewExtractor creates an extraction engine.
func NewExtractor(retries int, backoff time.Duration, logger arbor.ILogger) *Extractor {
	if retries <= 0 {
		retries = 3
	}
	return &Extractor{
		selectors: DefaultTableSelectors(),
		retries:   retries,
		backoff:   backoff,
		logger:    logger,
	}
}

// Extract waits for the results table to contain at least one row, then
// reads and classifies every row.
//
// Policy: a table that never materializes yields an empty, successful
// extraction rather than a failure. An empty table is indistinguishable
// from a slow one here, and the upstream legitimately returns zero rows for
// obscure terms; treating that as an error would fail over accounts for
// nothing.
func (e *Extractor) Extract(ctx context.Context, page interfaces.Page) (*Extraction, error) {
	html := ""
	for attempt := 1; attempt <= e.retries; attempt++ {
		tableHTML, rowCount, err := e.readTable(ctx, page)
		if err != nil {
			e.logger.Debug().Err(err).Int("attempt", attempt).Msg("Results table not readable yet")
		} else if rowCount > 0 {
			html = tableHTML
			break
		}

		if attempt < e.retries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(e.backoff):
			}
		}
	}

	if html == "" {
		e.logger.Warn().Int("attempts", e.retries).Msg("Results table never produced rows, returning empty result")
		return &Extraction{Records: []models.KeywordRecord{}, Degraded: true}, nil
	}

	records, err := e.parseRows(html)
	if err != nil {
		return nil, err
	}

	degraded := true
	for _, r := range records {
		if r.IsDataAvailable {
			degraded = false
			break
		}
	}

	e.logger.Info().
		Int("rows", len(records)).
		Bool("degraded", degraded).
		Msg("Results table extracted")

	return &Extraction{Records: records, Degraded: degraded}, nil
}

func (e *Extractor) readTable(ctx context.Context, page interfaces.Page) (string, int, error) {
	html, err := page.OuterHTML(ctx, e.selectors.Table)
	if err != nil {
		return "", 0, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", 0, err
	}

	count := 0
	doc.Find(e.selectors.Row).Each(func(_ int, row *goquery.Selection) {
		if !isPlaceholderRow(row) {
			count++
		}
	})
	return html, count, nil
}

// parseRows reads every data row from the table HTML. Placeholder rows
// (spanning "no data" cells) are skipped; everything else becomes a record,
// blurred or not.
func (e *Extractor) parseRows(html string) ([]models.KeywordRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	records := []models.KeywordRecord{}
	doc.Find(e.selectors.Row).Each(func(_ int, row *goquery.Selection) {
		if isPlaceholderRow(row) {
			return
		}

		keyword := strings.TrimSpace(row.Find(e.selectors.KeywordCell).First().Text())
		if keyword == "" {
			return
		}

		volumeCell := row.Find(e.selectors.VolumeCell).First()
		trendCell := row.Find(e.selectors.TrendCell).First()

		record := models.KeywordRecord{Keyword: keyword}

		if cellRedacted(volumeCell) {
			record.SearchVolume = 0
			record.SearchVolumeDisplay = models.VolumeUnavailable
			record.IsDataAvailable = false
		} else {
			display := strings.TrimSpace(volumeCell.Text())
			record.SearchVolume = ParseVolume(display)
			record.SearchVolumeDisplay = display
			record.IsDataAvailable = true
		}

		if cellRedacted(trendCell) {
			record.Trend = models.VolumeUnavailable
		} else {
			record.Trend = strings.TrimSpace(trendCell.Text())
		}

		records = append(records, record)
	})

	return records, nil
}

// isPlaceholderRow detects structural rows like a single spanning
// "no results" cell.
func isPlaceholderRow(row *goquery.Selection) bool {
	cells := row.Find("td")
	if cells.Length() == 0 {
		return true
	}
	if cells.Length() == 1 {
		if _, spanning := cells.First().Attr("colspan"); spanning {
			return true
		}
	}
	return false
}

// cellRedacted reports whether a value cell carries any blur marker: a
// redaction attribute, a blur class, a nested blur element, or marker text
// in place of the value. A redacted cell's literal text is meaningless and
// must never be parsed as a value.
func cellRedacted(cell *goquery.Selection) bool {
	if cell.Length() == 0 {
		return true
	}

	for _, attr := range blurAttrs {
		if value, ok := cell.Attr(attr); ok && value != "false" {
			return true
		}
	}

	for _, class := range blurClasses {
		if cell.HasClass(class) {
			return true
		}
	}

	if cell.Find(blurInnerQuery).Length() > 0 {
		return true
	}

	text := strings.ToLower(cell.Text())
	for _, hint := range blurTextHints {
		if strings.Contains(text, hint) {
			return true
		}
	}

	return false
}

// ParseVolume converts a display volume like "1,234,500" to an integer.
// Thousands separators and whitespace are stripped; anything non-numeric
// yields 0.
func ParseVolume(display string) int {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ',', ' ', ' ':
			return -1
		}
		return r
	}, strings.TrimSpace(display))

	if cleaned == "" {
		return 0
	}

	volume, err := strconv.Atoi(cleaned)
	if err != nil || volume < 0 {
		return 0
	}
	return volume
}
