package rarbg

import (
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"rbgcli/lib/htmlutil"
	"rbgcli/lib/sizeutil"

	"github.com/PuerkitoBio/goquery"
)

const uploadDateLayout = "2006-01-02 15:04:05"

// the fixed tracker list the site's own magnet links carry
const magnetTrackers = "http%3A%2F%2Ftracker.trackerfix.com%3A80%2Fannounce" +
	"&tr=udp%3A%2F%2F9.rarbg.me%3A2710&tr=udp%3A%2F%2F9.rarbg.to%3A2710"

// the listing row embeds an image-preview reference whose filename is
// the content hash, e.g. .../over/<hash>.jpg
var previewHashRegex = regexp.MustCompile(`over/(.*?)\.jpg`)

var rowSelector = `tr.lista2 a[href^="/torrent/"][title]`

// ExtractPage turns one parsed result page into listing records. A
// malformed row is dropped, never fatal: one broken listing must not
// lose the page.
func ExtractPage(doc *goquery.Document, domain string) []Torrent {
	var records []Torrent
	dropped := 0

	doc.Find(rowSelector).Each(func(_ int, anchor *goquery.Selection) {
		record, err := extractRow(anchor, domain)
		if err != nil {
			dropped++
			slog.Debug("dropping malformed listing row", "err", err)
			return
		}
		records = append(records, record)
	})

	if dropped > 0 {
		slog.Debug("dropped rows on page", "count", dropped)
	}
	return records
}

// cellText is the normalized text content of a selected cell.
func cellText(sel *goquery.Selection) string {
	if len(sel.Nodes) == 0 {
		return ""
	}
	return htmlutil.CleanText(htmlutil.GetText(sel.Nodes[0]))
}

func extractRow(anchor *goquery.Selection, domain string) (Torrent, error) {
	title := anchor.AttrOr("title", "")
	href := anchor.AttrOr("href", "")
	if title == "" || href == "" {
		return Torrent{}, fmt.Errorf("anchor missing title or href")
	}

	row := anchor.Closest("tr")
	if row.Length() == 0 {
		return Torrent{}, fmt.Errorf("anchor has no enclosing row: %q", title)
	}

	dateText := cellText(row.Find("td:nth-child(3)").First())
	uploadedAt, err := time.Parse(uploadDateLayout, dateText)
	if err != nil {
		return Torrent{}, fmt.Errorf("parse upload date %q: %w", dateText, err)
	}

	sizeText := cellText(row.Find("td:nth-child(4)").First())
	sizeBytes, err := sizeutil.ParseSize(sizeText)
	if err != nil {
		return Torrent{}, fmt.Errorf("row %q: %w", title, err)
	}

	seeders, err := strconv.Atoi(cellText(row.Find("td:nth-child(5) > font").First()))
	if err != nil {
		return Torrent{}, fmt.Errorf("parse seeders of %q: %w", title, err)
	}
	leechers, err := strconv.Atoi(cellText(row.Find("td:nth-child(6)").First()))
	if err != nil {
		return Torrent{}, fmt.Errorf("parse leechers of %q: %w", title, err)
	}

	uploader := cellText(row.Find("td:nth-child(8)").First())
	if uploader == "" {
		return Torrent{}, fmt.Errorf("row %q has no uploader cell", title)
	}

	icon := row.Find("td:nth-child(1) img").First().AttrOr("src", "")
	if icon == "" {
		return Torrent{}, fmt.Errorf("row %q has no category icon", title)
	}

	torrentFile, err := buildTorrentFileURL(domain, href, title)
	if err != nil {
		return Torrent{}, err
	}

	return Torrent{
		Title:       title,
		TorrentFile: torrentFile,
		Href:        fmt.Sprintf("https://%s%s", domain, href),
		Magnet:      extractMagnet(row, title),
		SizeBytes:   sizeBytes,
		Seeders:     seeders,
		Leechers:    leechers,
		Category:    CategoryFromIcon(icon),
		Date:        uploadedAt.Unix(),
		Uploader:    uploader,
	}, nil
}

// extractMagnet derives a magnet link from the row's image-preview
// hash. Absent pattern means empty, not an error: the link is resolved
// lazily from the detail page later.
func extractMagnet(row *goquery.Selection, title string) string {
	rawRow, err := goquery.OuterHtml(row)
	if err != nil {
		return ""
	}
	groups := previewHashRegex.FindStringSubmatch(rawRow)
	if len(groups) < 2 {
		return ""
	}
	return fmt.Sprintf(
		"magnet:?xt=urn:btih:%s&dn=%s&tr=%s",
		groups[1], url.QueryEscape(title), magnetTrackers,
	)
}

// buildTorrentFileURL rewrites a /torrent/<id> detail path into the
// deterministic download endpoint on the same domain.
func buildTorrentFileURL(domain, href, title string) (string, error) {
	if !strings.HasPrefix(href, "/torrent/") {
		return "", fmt.Errorf("unexpected detail path %q", href)
	}
	return fmt.Sprintf(
		"https://%s%s&f=%s&tpageurl=%s",
		domain,
		strings.Replace(href, "torrent/", "download.php?id=", 1),
		url.QueryEscape(title+"-[rarbg.to].torrent"),
		url.QueryEscape(strings.TrimSpace(href)),
	), nil
}
