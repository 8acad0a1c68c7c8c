package output

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"rbgcli/lib/scrapers/rarbg"
)

// SortKeys are the record fields the --sort flag accepts.
var SortKeys = []string{"title", "date", "size", "seeders", "leechers"}

func IsSortKey(key string) bool {
	for _, k := range SortKeys {
		if k == key {
			return true
		}
	}
	return false
}

// SortRecords orders records descending by key, stable for equal keys.
func SortRecords(records []rarbg.Torrent, key string) {
	less := func(a, b rarbg.Torrent) bool { return false }
	switch key {
	case "title":
		less = func(a, b rarbg.Torrent) bool { return a.Title > b.Title }
	case "date":
		less = func(a, b rarbg.Torrent) bool { return a.Date > b.Date }
	case "size":
		less = func(a, b rarbg.Torrent) bool { return a.SizeBytes > b.SizeBytes }
	case "seeders":
		less = func(a, b rarbg.Torrent) bool { return a.Seeders > b.Seeders }
	case "leechers":
		less = func(a, b rarbg.Torrent) bool { return a.Leechers > b.Leechers }
	}
	sort.SliceStable(records, func(i, j int) bool {
		return less(records[i], records[j])
	})
}

// LimitRecords truncates to the first n records; n <= 0 means no limit.
func LimitRecords(records []rarbg.Torrent, n int) []rarbg.Torrent {
	if n <= 0 || n >= len(records) {
		return records
	}
	return records[:n]
}

func RenderJSON(w io.Writer, records []rarbg.Torrent) error {
	raw, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(raw))
	return err
}

func RenderMagnets(w io.Writer, records []rarbg.Torrent) error {
	links := make([]string, 0, len(records))
	for _, r := range records {
		links = append(links, r.Magnet)
	}
	_, err := fmt.Fprintln(w, strings.Join(links, "\n"))
	return err
}

// Options control the batch output stage.
type Options struct {
	Sort   string
	Limit  int
	Magnet bool
	// Workers bounds the lazy link-resolution concurrency.
	Workers int
}

// Pipeline applies sort/limit policy, resolves missing links, then
// renders the batch. It returns the final record set so the caller can
// persist it: resolved links should be durable for the next run.
type Pipeline struct {
	Client  *rarbg.Client
	Options Options
	Out     io.Writer
}

func (p Pipeline) Run(ctx context.Context, records []rarbg.Torrent) ([]rarbg.Torrent, error) {
	if p.Options.Sort != "" {
		SortRecords(records, p.Options.Sort)
	}
	records = LimitRecords(records, p.Options.Limit)

	workers := p.Options.Workers
	if workers == 0 {
		workers = 4
	}
	rarbg.ResolveLinks(ctx, p.Client, records, workers)

	var err error
	if p.Options.Magnet {
		err = RenderMagnets(p.Out, records)
	} else {
		err = RenderJSON(p.Out, records)
	}
	return records, err
}
