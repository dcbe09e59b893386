package provider

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	apperrors "github.com/citymate-bot/citymate/internal/errors"
	"github.com/citymate-bot/citymate/pkg/metrics"
)

const (
	eventsName = "events"
	maxEvents  = 5
	freePrice  = "бесплатно"
)

// Event is one listed city event.
type Event struct {
	Title string
	Price string
	Link  string
}

// Events scrapes the events listing site for a city and day, and loads the
// city catalog that maps display names to the site's internal slugs.
type Events struct {
	client  *http.Client
	baseURL string
	log     *slog.Logger
	now     func() time.Time
}

// NewEvents constructs an Events provider.
func NewEvents(client *http.Client, baseURL string, log *slog.Logger) *Events {
	if log == nil {
		log = slog.Default()
	}

	return &Events{
		client:  client,
		baseURL: baseURL,
		log:     log,
		now:     time.Now,
	}
}

// List returns up to five events for the city slug and day, in the source's
// natural listing order.
func (e *Events) List(ctx context.Context, slug string, day Day) ([]Event, error) {
	date := day.Date(e.now()).Format("2006-01-02")
	endpoint := fmt.Sprintf("%s/%s/day%s", e.baseURL, slug, date)

	doc, err := e.fetchDocument(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	wrapper := doc.Find("div.eventsWrapper")
	if wrapper.Length() == 0 {
		return nil, apperrors.NewProviderMalformedError(eventsName, fmt.Errorf("events wrapper not found for %s", slug))
	}

	var events []Event
	wrapper.Find("div.event-block").EachWithBreak(func(_ int, block *goquery.Selection) bool {
		link := block.Find("a.event-link").First()
		if link.Length() == 0 {
			return true
		}

		title := strings.TrimSpace(link.Find("h3").First().Text())
		href, _ := link.Attr("href")

		price := freePrice
		if b := link.Find("b").First(); b.Length() > 0 {
			price = strings.TrimSpace(b.Text()) + " p"
		}

		events = append(events, Event{
			Title: title,
			Price: price,
			Link:  e.baseURL + href,
		})

		return len(events) < maxEvents
	})

	return events, nil
}

// LoadCatalog fetches the full city listing and returns a map from the
// lower-cased display name to the site's city slug.
func (e *Events) LoadCatalog(ctx context.Context) (map[string]string, error) {
	doc, err := e.fetchDocument(ctx, e.baseURL+"/?cities=all")
	if err != nil {
		return nil, err
	}

	cities := make(map[string]string)
	doc.Find("a.city_item").Each(func(_ int, item *goquery.Selection) {
		name := strings.ToLower(strings.TrimSpace(item.Text()))
		href, ok := item.Attr("href")
		if name == "" || !ok {
			return
		}

		cities[name] = strings.ReplaceAll(href, "/", "")
	})

	if len(cities) == 0 {
		return nil, apperrors.NewProviderMalformedError(eventsName, fmt.Errorf("city catalog page contained no cities"))
	}

	return cities, nil
}

func (e *Events) fetchDocument(ctx context.Context, endpoint string) (*goquery.Document, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, apperrors.NewProviderUnreachableError(eventsName, err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		metrics.RecordProviderRequest(eventsName, "unreachable", time.Since(start))
		return nil, apperrors.NewProviderUnreachableError(eventsName, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		metrics.RecordProviderRequest(eventsName, "error", time.Since(start))
		return nil, apperrors.NewProviderUnreachableError(eventsName, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		metrics.RecordProviderRequest(eventsName, "malformed", time.Since(start))
		return nil, apperrors.NewProviderMalformedError(eventsName, err)
	}

	metrics.RecordProviderRequest(eventsName, "ok", time.Since(start))
	return doc, nil
}
