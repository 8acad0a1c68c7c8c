package output

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"rbgcli/lib/scrapers/rarbg"

	"github.com/stretchr/testify/require"
)

func sample() []rarbg.Torrent {
	return []rarbg.Torrent{
		{Title: "b", Seeders: 10, SizeBytes: 100, Date: 3, Magnet: "magnet:b"},
		{Title: "a", Seeders: 30, SizeBytes: 300, Date: 1, Magnet: "magnet:a"},
		{Title: "c", Seeders: 20, SizeBytes: 200, Date: 2, Magnet: "magnet:c"},
	}
}

func TestSortRecords(t *testing.T) {
	records := sample()
	SortRecords(records, "seeders")
	require.Equal(t, []string{"a", "c", "b"}, titles(records))

	records = sample()
	SortRecords(records, "date")
	require.Equal(t, []string{"b", "c", "a"}, titles(records))

	records = sample()
	SortRecords(records, "title")
	require.Equal(t, []string{"c", "b", "a"}, titles(records))
}

func TestSortRecordsStable(t *testing.T) {
	records := []rarbg.Torrent{
		{Title: "first", Seeders: 5},
		{Title: "second", Seeders: 5},
		{Title: "third", Seeders: 5},
	}
	SortRecords(records, "seeders")
	require.Equal(t, []string{"first", "second", "third"}, titles(records))
}

func titles(records []rarbg.Torrent) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Title
	}
	return out
}

func TestLimitRecords(t *testing.T) {
	records := sample()
	require.Len(t, LimitRecords(records, 2), 2)
	require.Len(t, LimitRecords(records, 0), 3)
	require.Len(t, LimitRecords(records, 10), 3)
}

func TestRenderMagnets(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderMagnets(&buf, sample()))
	require.Equal(t, "magnet:b\nmagnet:a\nmagnet:c\n", buf.String())
}

func TestRenderJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderJSON(&buf, sample()))

	var back []rarbg.Torrent
	require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
	require.Equal(t, sample(), back)
}

func resultRow(id string, seeders int, preview bool) string {
	onmouseover := ""
	if preview {
		onmouseover = fmt.Sprintf(
			` onmouseover="return overlib('<img src=\'https://dyncdn.me/mimages/over/%s.jpg\' border=0>')"`,
			id)
	}
	return fmt.Sprintf(`
<tr class="lista2">
  <td class="lista"><img src="cat_new44.gif" /></td>
  <td class="lista"><a%s href="/torrent/%s" title="%s">%s</a></td>
  <td class="lista">2023-01-15 10:30:00</td>
  <td class="lista">1.00 GB</td>
  <td class="lista"><font>%d</font></td>
  <td class="lista">0</td>
  <td class="lista">0</td>
  <td class="lista">up</td>
</tr>`, onmouseover, id, id, id, seeders)
}

// the full batch path: two stub pages of 2 extractable + 1 malformed
// rows, limit 3 -> pagination stops after page 2 with 4 records,
// output truncates to exactly 3, sorted by the requested key
func TestEndToEndLimitScenario(t *testing.T) {
	table := func(rows ...string) string {
		return `<html><body><table>` + strings.Join(rows, "\n") + `</table></body></html>`
	}
	malformed := strings.Replace(resultRow("bad", 1, true), "1.00 GB", "no size", 1)
	pages := map[string]string{
		"1": table(resultRow("r1", 4, true), resultRow("r2", 9, true), malformed),
		"2": table(resultRow("r3", 2, true), resultRow("r4", 7, true), malformed),
		"3": table(),
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, pages[r.URL.Query().Get("page")])
	}))
	defer server.Close()

	client, err := rarbg.NewClient(context.Background(), rarbg.ClientOptions{
		BaseURL:   server.URL,
		UserAgent: "test-agent",
	})
	require.NoError(t, err)

	paginator := rarbg.Paginator{
		Client: client,
		Query:  rarbg.SearchQuery{Search: "foo", Domain: "rarbgunblocked.org", Limit: 3},
	}
	fetched, err := paginator.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, fetched, 4)

	var buf bytes.Buffer
	pipeline := Pipeline{
		Client:  client,
		Options: Options{Sort: "seeders", Limit: 3},
		Out:     &buf,
	}
	final, err := pipeline.Run(context.Background(), fetched)
	require.NoError(t, err)
	require.Equal(t, []string{"r2", "r4", "r1"}, titles(final))

	var rendered []rarbg.Torrent
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rendered))
	require.Len(t, rendered, 3)
	require.Equal(t, []string{"r2", "r4", "r1"}, titles(rendered))
}

func TestPipelineResolvesMissingLinks(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/torrent/x", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<a href="magnet:?xt=urn:btih:resolved">m</a>`)
	})
	mux.HandleFunc("/torrent/fails", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client, err := rarbg.NewClient(context.Background(), rarbg.ClientOptions{
		BaseURL:   server.URL,
		UserAgent: "test-agent",
	})
	require.NoError(t, err)

	records := []rarbg.Torrent{
		{Title: "x", Href: server.URL + "/torrent/x"},
		{Title: "fails", Href: server.URL + "/torrent/fails"},
	}
	var buf bytes.Buffer
	pipeline := Pipeline{Client: client, Options: Options{Magnet: true}, Out: &buf}

	final, err := pipeline.Run(context.Background(), records)
	require.NoError(t, err)
	require.Equal(t, "magnet:?xt=urn:btih:resolved", final[0].Magnet)
	// per-record failure: links stay empty, the run continues
	require.Empty(t, final[1].Magnet)
	require.Equal(t, "magnet:?xt=urn:btih:resolved\n\n", buf.String())
}
