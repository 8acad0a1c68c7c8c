package output

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"rbgcli/lib/scrapers/rarbg"
	"rbgcli/lib/sizeutil"

	"github.com/antzucaro/matchr"
	"github.com/jedib0t/go-pretty/v6/table"
)

// ErrQuit reports that the user ended the whole browse run, as opposed
// to moving on to the next batch of records.
var ErrQuit = errors.New("browse session ended by user")

// Browser is the interactive selection session. Browse is invoked once
// per fetched source page, as results arrive, and the caller picks
// individual records to open.
type Browser struct {
	In  io.Reader
	Out io.Writer
	// PageSize is the number of records per screen.
	PageSize int
	// BlockSize, when set, renders sizes in a fixed unit.
	BlockSize string
	// Magnet prints only the magnet link of a selected record instead
	// of the full json document.
	Magnet bool
	Opener Opener
	// Resolve, when set, fills in missing links of a selected record
	// before it is printed and opened.
	Resolve func(ctx context.Context, records []rarbg.Torrent)
}

const browsePrompt = "[number]: open links, [n]: next page, [p]: previous page, [/text]: filter, [q]: quit\n> "

func (b Browser) pageSize() int {
	if b.PageSize <= 0 {
		return 25
	}
	return b.PageSize
}

func (b Browser) formatSize(bytes int64) string {
	if b.BlockSize != "" {
		out, err := sizeutil.FormatSize(bytes, b.BlockSize)
		if err == nil {
			return out
		}
	}
	return sizeutil.FormatSizeAuto(bytes)
}

func (b Browser) renderPage(view []rarbg.Torrent, start int) {
	end := start + b.pageSize()
	if end > len(view) {
		end = len(view)
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(b.Out)
	t.AppendHeader(table.Row{"SN", "TORRENT NAME", "SEEDS", "LEECHES", "SIZE", "UPLOADER"})
	for i := start; i < end; i++ {
		r := view[i]
		t.AppendRow(table.Row{
			i + 1, r.Title, r.Seeders, r.Leechers, b.formatSize(r.SizeBytes), r.Uploader,
		})
	}
	t.Render()
	fmt.Fprintf(b.Out, "showing %d-%d of %d\n", start+1, end, len(view))
}

// fuzzyFilter keeps records whose title matches term: substring hits
// first, then near-matches by string similarity.
func fuzzyFilter(records []rarbg.Torrent, term string) []rarbg.Torrent {
	term = strings.ToLower(term)

	type scored struct {
		record rarbg.Torrent
		score  float64
	}
	var kept []scored
	for _, r := range records {
		title := strings.ToLower(r.Title)
		score := matchr.JaroWinkler(title, term, true)
		if strings.Contains(title, term) {
			score = 1
		}
		if score >= 0.7 {
			kept = append(kept, scored{record: r, score: score})
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].score > kept[j].score })

	out := make([]rarbg.Torrent, 0, len(kept))
	for _, s := range kept {
		out = append(out, s.record)
	}
	return out
}

// Browse runs the selection loop over one batch of records. It returns
// nil when the user advances past the last screen (the next source
// page should be fetched) and ErrQuit when the user quits or stdin is
// exhausted. Selections mutate records in place so lazily resolved
// links stay visible to the caller. Nothing here writes the cache, so
// bailing out never corrupts it.
func (b Browser) Browse(ctx context.Context, records []rarbg.Torrent) error {
	view := records
	start := 0

	scanner := bufio.NewScanner(b.In)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		b.renderPage(view, start)
		fmt.Fprint(b.Out, browsePrompt)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return err
			}
			return ErrQuit
		}
		input := strings.TrimSpace(scanner.Text())

		switch {
		case input == "q":
			return ErrQuit
		case input == "" || input == "n":
			if start+b.pageSize() < len(view) {
				start += b.pageSize()
			} else {
				return nil
			}
		case input == "p":
			start -= b.pageSize()
			if start < 0 {
				start = 0
			}
		case strings.HasPrefix(input, "/"):
			term := strings.TrimSpace(strings.TrimPrefix(input, "/"))
			if term == "" {
				view = records
			} else {
				view = fuzzyFilter(records, term)
			}
			start = 0
		default:
			sn, err := strconv.Atoi(input)
			if err != nil || sn < 1 || sn > len(view) {
				fmt.Fprintf(b.Out, "no such record: %q\n", input)
				continue
			}
			if err := b.openRecord(ctx, &view[sn-1]); err != nil {
				return err
			}
		}
	}
}

func (b Browser) openRecord(ctx context.Context, record *rarbg.Torrent) error {
	if record.Magnet == "" && b.Resolve != nil {
		batch := []rarbg.Torrent{*record}
		b.Resolve(ctx, batch)
		*record = batch[0]
	}

	var err error
	if b.Magnet {
		err = RenderMagnets(b.Out, []rarbg.Torrent{*record})
	} else {
		err = RenderJSON(b.Out, []rarbg.Torrent{*record})
	}
	if err != nil {
		return err
	}

	urls := []string{}
	if record.TorrentFile != "" {
		urls = append(urls, record.TorrentFile)
	}
	if record.Magnet != "" {
		urls = append(urls, record.Magnet)
	}
	if len(urls) == 0 {
		fmt.Fprintln(b.Out, "record has no links to open")
		return nil
	}
	return b.Opener.OpenAll(ctx, urls)
}
