package rarbg

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

// ResolveLinks fills in empty magnet links by visiting each record's
// detail page. Detail pages are disjoint so this runs with bounded
// concurrency; a failed resolution is a per-record warning that leaves
// the links empty and never cancels the siblings.
func ResolveLinks(ctx context.Context, client *Client, records []Torrent, workers int) {
	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	wg := sync.WaitGroup{}

	for i := range records {
		if records[i].Magnet != "" {
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(record *Torrent) {
			defer wg.Done()
			defer func() { <-sem }()

			slog.InfoContext(ctx, "fetching magnet link", "title", record.Title)
			err := resolveRecord(ctx, client, record)
			if err != nil {
				slog.WarnContext(ctx, "failed to resolve links",
					"title", record.Title, "err", err)
			}
		}(&records[i])
	}

	wg.Wait()
}

func resolveRecord(ctx context.Context, client *Client, record *Torrent) error {
	res, err := client.Fetch(ctx, record.Href)
	if err != nil {
		return err
	}
	if res.Status != http.StatusOK {
		return HTTPStatusError{Status: res.Status, URL: record.Href}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body))
	if err != nil {
		return err
	}

	magnet := doc.Find(`a[href^="magnet:"]`).First().AttrOr("href", "")
	if magnet == "" {
		return fmt.Errorf("detail page has no magnet link")
	}
	record.Magnet = magnet

	if download := doc.Find(`a[href^="/download.php"]`).First().AttrOr("href", ""); download != "" {
		record.TorrentFile = fmt.Sprintf("https://%s%s", client.BaseURL.Hostname(), download)
	}
	return nil
}
