package enrich

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"listing-bot/internal/config"
	"listing-bot/internal/models"
)

// ErrNoAddress is returned when the expose page carries no address block.
var ErrNoAddress = errors.New("no address found on expose page")

// Enricher fetches an expose page and scrapes the address, used to pre-fill
// listings added without one. Strictly best-effort: callers keep going when
// it fails.
type Enricher struct {
	client    *http.Client
	userAgent string
}

// New creates an enricher from the enrichment configuration.
func New(cfg *config.EnrichmentConfig) *Enricher {
	return &Enricher{
		client:    &http.Client{Timeout: cfg.GetTimeout()},
		userAgent: cfg.UserAgent,
	}
}

// FetchAddress downloads the expose page for the listing id and extracts the
// address block.
func (e *Enricher) FetchAddress(id int64) (string, error) {
	url := (&models.Listing{ID: id}).URL()

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept-Language", "de-DE,de;q=0.9")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch expose page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch expose page: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse expose page: %w", err)
	}

	return extractAddress(doc)
}

// extractAddress pulls the address out of a parsed expose page.
func extractAddress(doc *goquery.Document) (string, error) {
	// Preferred: the dedicated address element.
	addr := cleanText(doc.Find(`[data-qa="is24-expose-address"]`).First().Text())
	if addr == "" {
		addr = cleanText(doc.Find(".address-block").First().Text())
	}
	if addr == "" {
		return "", ErrNoAddress
	}
	return addr, nil
}

// cleanText collapses runs of whitespace into single spaces.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
