package rarbg

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// PageCursor is the paginator's sole piece of state: the next page to
// fetch and how many extractable records have accumulated.
type PageCursor struct {
	Page    int
	Records int
}

// Paginator drives the client across successive result pages until the
// natural end of results, an http error, or the query's limit.
type Paginator struct {
	Client *Client
	Query  SearchQuery
	// Archive, when set, receives each fetched page's raw body.
	Archive func(page int, body []byte)
	// OnPage, when set, receives each page's extracted records before
	// the next page is fetched. The slice aliases the accumulated
	// result set, so in-place mutations (say, a link resolved while
	// the caller browses the page) survive into Run's return value.
	OnPage func(records []Torrent)
}

// PageURL builds the search path for one page index, resolved against
// the client's base URL. The category codes keep their raw ';'
// separator, the site does not accept it escaped.
func PageURL(q SearchQuery, page int) string {
	target := fmt.Sprintf(
		"/torrents.php?search=%s&page=%d",
		url.QueryEscape(q.Search), page,
	)
	if q.SortOrder != "" {
		target += "&by=" + strings.ToUpper(strings.TrimSpace(q.SortOrder))
	}
	if q.Order != "" {
		target += "&order=" + strings.TrimSpace(q.Order)
	}
	if categories := CategoryCodes[q.Category]; len(categories) > 0 {
		target += "&category=" + strings.Join(categories, ";")
	}
	return target
}

// Run fetches pages sequentially. Page i's cookie state must be visible
// to page i+1, so there is deliberately no concurrency here. On error
// the records accumulated so far are still returned; prior pages stay
// usable for the cache.
func (p *Paginator) Run(ctx context.Context) ([]Torrent, error) {
	ctx, span := tracer.Start(ctx, "paginator:Run", trace.WithAttributes(
		attribute.String("search", p.Query.Search),
	))
	defer span.End()

	var all []Torrent
	cursor := PageCursor{Page: 1}

	for {
		if err := ctx.Err(); err != nil {
			return all, err
		}

		target := PageURL(p.Query, cursor.Page)
		res, err := p.Client.Fetch(ctx, target)
		if err != nil {
			span.SetStatus(codes.Error, "fetch failed")
			return all, err
		}
		if res.Status != http.StatusOK {
			span.SetStatus(codes.Error, "unexpected status")
			return all, HTTPStatusError{Status: res.Status, URL: target}
		}

		if p.Archive != nil {
			p.Archive(cursor.Page, res.Body)
		}

		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body))
		if err != nil {
			span.SetStatus(codes.Error, "parse html")
			return all, fmt.Errorf("parse page %d: %w", cursor.Page, err)
		}

		records := ExtractPage(doc, p.Query.Domain)
		slog.InfoContext(ctx, "fetched result page",
			"page", cursor.Page, "records", len(records))
		if len(records) == 0 {
			return all, nil
		}

		all = append(all, records...)
		cursor.Records += len(records)
		if p.OnPage != nil {
			p.OnPage(all[len(all)-len(records):])
		}

		if p.Query.Limit > 0 && cursor.Records >= p.Query.Limit {
			slog.InfoContext(ctx, "reached record limit", "limit", p.Query.Limit)
			return all, nil
		}
		cursor.Page++
	}
}
