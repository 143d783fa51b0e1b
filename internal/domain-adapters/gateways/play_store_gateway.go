package gateways

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/zapstore/releastr/internal/domain/entities"
	"github.com/zapstore/releastr/internal/domain/interfaces"
)

const defaultPlayStoreURL = "https://play.google.com/store/apps/details"

// Listing page selectors
const (
	selectorName        = "h1[itemprop=name]"
	selectorDescription = "div[data-g-id=description]"
	selectorIcon        = "img[itemprop=image]"
	selectorScreenshots = "img[data-screenshot-index]"
)

// PlayStoreGateway scrapes public Google Play listings
type PlayStoreGateway struct {
	client  *http.Client
	baseURL string
	logger  interfaces.Logger
}

// NewPlayStoreGateway creates a store gateway
func NewPlayStoreGateway(logger interfaces.Logger) *PlayStoreGateway {
	return &PlayStoreGateway{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: defaultPlayStoreURL,
		logger:  interfaces.OrNoOp(logger),
	}
}

// WithBaseURL overrides the listing endpoint
func (g *PlayStoreGateway) WithBaseURL(baseURL string) *PlayStoreGateway {
	g.baseURL = baseURL
	return g
}

// FetchStoreFacts returns name, description, icon and screenshot URLs for identifier.
// A listing that does not exist yields empty facts.
func (g *PlayStoreGateway) FetchStoreFacts(ctx context.Context, identifier string) (*entities.StoreFacts, error) {
	if identifier == "" {
		return &entities.StoreFacts{}, nil
	}

	pageURL := g.baseURL + "?" + url.Values{"id": {identifier}, "hl": {"en"}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; releastr/1.0)")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch store listing: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		g.logger.Info("No store listing", interfaces.F("identifier", identifier))
		return &entities.StoreFacts{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("store listing: HTTP status %d", resp.StatusCode)
	}

	return ParseStoreListing(io.LimitReader(resp.Body, 8<<20))
}

// ParseStoreListing extracts facts from a listing page
func ParseStoreListing(r io.Reader) (*entities.StoreFacts, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	facts := &entities.StoreFacts{
		Name: strings.TrimSpace(doc.Find(selectorName).First().Text()),
	}
	if facts.Name == "" && strings.Contains(doc.Text(), "not found") {
		return &entities.StoreFacts{}, nil
	}

	desc := doc.Find(selectorDescription).First()
	desc.Find("br").ReplaceWithHtml("\n")
	facts.Description = strings.TrimSpace(desc.Text())

	if src, ok := doc.Find(selectorIcon).First().Attr("src"); ok {
		facts.IconURL = strings.TrimSpace(src)
	}

	seen := make(map[string]bool)
	doc.Find(selectorScreenshots).Each(func(_ int, s *goquery.Selection) {
		src := strings.TrimSpace(s.AttrOr("src", ""))
		if src == "" || seen[src] {
			return
		}
		seen[src] = true
		facts.ImageURLs = append(facts.ImageURLs, src)
	})

	return facts, nil
}
