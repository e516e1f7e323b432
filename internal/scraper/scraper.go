package scraper

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/tideraider/surf-alert-server/internal/surf"
	"github.com/tideraider/surf-alert-server/pkg/config"
)

// Scraper fetches and parses one region's forecast page. Fetches are
// sequential by design: the upstream site rate-limits aggressively, so the
// caller spaces requests with the configured delay.
type Scraper struct {
	cfg    *config.ScraperConfig
	client *http.Client
}

// New creates a scraper with the configured fetch timeout.
func New(cfg *config.ScraperConfig) *Scraper {
	return &Scraper{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.FetchTimeout,
		},
	}
}

// RefreshForecastForRegion fetches the region's forecast page and parses the
// current conditions into a snapshot dated today, UTC.
func (s *Scraper) RefreshForecastForRegion(ctx context.Context, region *surf.Region) (*surf.ForecastSnapshot, error) {
	pageURL := region.ForecastURL
	if pageURL == "" {
		pageURL = fmt.Sprintf("%s/regions/%s", strings.TrimRight(s.cfg.BaseURL, "/"), region.ID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", region.ID, err)
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch forecast for %s: %w", region.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("forecast page for %s returned %d", region.ID, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse forecast page for %s: %w", region.ID, err)
	}

	snapshot, err := ParseForecastDocument(doc, region.ID)
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// ParseForecastDocument extracts the forecast figures from a parsed page.
// Individual fields fail soft: a missing or malformed cell leaves that
// variable nil and the matcher fails closed on it later. Only a page with no
// readable figures at all is an error, since that usually means a layout
// change or a block page.
func ParseForecastDocument(doc *goquery.Document, regionID string) (*surf.ForecastSnapshot, error) {
	snapshot := &surf.ForecastSnapshot{
		RegionID:  regionID,
		Date:      surf.DateOnly(time.Now()),
		ScrapedAt: time.Now().UTC(),
	}

	parsed := 0
	read := func(selector string, assign func(v float64), bearing bool) {
		text := strings.TrimSpace(doc.Find(selector).First().Text())
		if text == "" {
			return
		}
		var v float64
		var ok bool
		if bearing {
			v, ok = parseBearing(text)
		} else {
			v, ok = parseNumber(text)
		}
		if ok {
			assign(v)
			parsed++
		}
	}

	read(".conditions .wind-speed", func(v float64) { snapshot.WindSpeed = &v }, false)
	read(".conditions .wind-direction", func(v float64) { snapshot.WindDirection = &v }, true)
	read(".conditions .swell-height", func(v float64) { snapshot.SwellHeight = &v }, false)
	read(".conditions .swell-period", func(v float64) { snapshot.SwellPeriod = &v }, false)
	read(".conditions .swell-direction", func(v float64) { snapshot.SwellDirection = &v }, true)

	if parsed == 0 {
		return nil, fmt.Errorf("no forecast figures found for %s, page layout may have changed", regionID)
	}
	return snapshot, nil
}

// parseNumber reads a figure like "15", "1.5m", "12 s" or "18kts".
func parseNumber(text string) (float64, bool) {
	trimmed := strings.TrimSpace(text)
	end := 0
	for end < len(trimmed) {
		c := trimmed[end]
		if (c >= '0' && c <= '9') || c == '.' || (end == 0 && c == '-') {
			end++
			continue
		}
		break
	}
	if end == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(trimmed[:end], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

var cardinalBearings = map[string]float64{
	"N": 0, "NNE": 22.5, "NE": 45, "ENE": 67.5,
	"E": 90, "ESE": 112.5, "SE": 135, "SSE": 157.5,
	"S": 180, "SSW": 202.5, "SW": 225, "WSW": 247.5,
	"W": 270, "WNW": 292.5, "NW": 315, "NNW": 337.5,
}

// parseBearing reads a direction as degrees ("315", "315°") or as a compass
// point ("NW", "NW (315°)").
func parseBearing(text string) (float64, bool) {
	trimmed := strings.TrimSpace(text)

	if v, ok := parseNumber(trimmed); ok {
		if v >= 0 && v < 360 {
			return v, true
		}
		return 0, false
	}

	word := trimmed
	if i := strings.IndexAny(word, " ("); i > 0 {
		word = word[:i]
	}
	if deg, ok := cardinalBearings[strings.ToUpper(word)]; ok {
		return deg, true
	}
	return 0, false
}
