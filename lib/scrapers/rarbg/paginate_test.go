package rarbg

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func pageHandler(t *testing.T, pages map[int]string, fetched *[]int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/torrents.php", r.URL.Path)
		page := 0
		fmt.Sscanf(r.URL.Query().Get("page"), "%d", &page)
		*fetched = append(*fetched, page)

		body, ok := pages[page]
		if !ok {
			body = listingPage()
		}
		fmt.Fprint(w, body)
	}
}

func newTestClient(t *testing.T, server *httptest.Server) *Client {
	client, err := NewClient(context.Background(), ClientOptions{
		BaseURL:   server.URL,
		UserAgent: "test-agent",
	})
	require.NoError(t, err)
	return client
}

func TestPaginatorStopsOnEmptyPage(t *testing.T) {
	pages := map[int]string{
		1: listingPage(
			listingRow("cat_new44.gif", "/torrent/a", "A", "2023-01-15 10:30:00", "1.00 GB", "1", "0", "up", false),
			listingRow("cat_new44.gif", "/torrent/b", "B", "2023-01-15 10:30:00", "1.00 GB", "2", "0", "up", false),
		),
		2: listingPage(
			listingRow("cat_new44.gif", "/torrent/c", "C", "2023-01-15 10:30:00", "1.00 GB", "3", "0", "up", false),
		),
	}
	var fetched []int
	server := httptest.NewServer(pageHandler(t, pages, &fetched))
	defer server.Close()

	p := Paginator{
		Client: newTestClient(t, server),
		Query:  SearchQuery{Search: "foo", Domain: "rarbgunblocked.org"},
	}
	records, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 3)
	// page 3 came back empty and ended the run; no page fetched twice
	require.Equal(t, []int{1, 2, 3}, fetched)
}

func TestPaginatorRespectsLimit(t *testing.T) {
	pages := map[int]string{}
	for i := 1; i <= 10; i++ {
		pages[i] = listingPage(
			listingRow("cat_new44.gif", fmt.Sprintf("/torrent/a%d", i), fmt.Sprintf("A%d", i),
				"2023-01-15 10:30:00", "1.00 GB", "1", "0", "up", false),
			listingRow("cat_new44.gif", fmt.Sprintf("/torrent/b%d", i), fmt.Sprintf("B%d", i),
				"2023-01-15 10:30:00", "1.00 GB", "2", "0", "up", false),
		)
	}
	var fetched []int
	server := httptest.NewServer(pageHandler(t, pages, &fetched))
	defer server.Close()

	p := Paginator{
		Client: newTestClient(t, server),
		Query:  SearchQuery{Search: "foo", Domain: "rarbgunblocked.org", Limit: 3},
	}
	records, err := p.Run(context.Background())
	require.NoError(t, err)
	// the limit fires once the valid-record count reaches it; page 2
	// completed so 4 records accumulate, output truncates later
	require.Len(t, records, 4)
	require.Equal(t, []int{1, 2}, fetched)
}

func TestPaginatorMalformedRowsDoNotCountTowardLimit(t *testing.T) {
	// two extractable + one malformed per page, limit 3: the malformed
	// rows never count, so page 2 is still needed
	row := func(i int, bad bool) string {
		size := "1.00 GB"
		if bad {
			size = "broken"
		}
		return listingRow("cat_new44.gif", fmt.Sprintf("/torrent/x%d", i), fmt.Sprintf("X%d", i),
			"2023-01-15 10:30:00", size, "1", "0", "up", false)
	}
	pages := map[int]string{
		1: listingPage(row(1, false), row(2, false), row(3, true)),
		2: listingPage(row(4, false), row(5, false), row(6, true)),
	}
	var fetched []int
	server := httptest.NewServer(pageHandler(t, pages, &fetched))
	defer server.Close()

	p := Paginator{
		Client: newTestClient(t, server),
		Query:  SearchQuery{Search: "foo", Domain: "rarbgunblocked.org", Limit: 3},
	}
	records, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 4)
	require.Equal(t, []int{1, 2}, fetched)
}

func TestPaginatorFailsOnBadStatus(t *testing.T) {
	var fetched []int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetched = append(fetched, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	p := Paginator{
		Client: newTestClient(t, server),
		Query:  SearchQuery{Search: "foo", Domain: "rarbgunblocked.org"},
	}
	_, err := p.Run(context.Background())
	var statusErr HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusServiceUnavailable, statusErr.Status)
	// no automatic retry
	require.Len(t, fetched, 1)
}

func TestPaginatorArchivesPages(t *testing.T) {
	pages := map[int]string{
		1: listingPage(
			listingRow("cat_new44.gif", "/torrent/a", "A", "2023-01-15 10:30:00", "1.00 GB", "1", "0", "up", false),
		),
	}
	var fetched []int
	server := httptest.NewServer(pageHandler(t, pages, &fetched))
	defer server.Close()

	archived := map[int][]byte{}
	p := Paginator{
		Client:  newTestClient(t, server),
		Query:   SearchQuery{Search: "foo", Domain: "rarbgunblocked.org"},
		Archive: func(page int, body []byte) { archived[page] = body },
	}
	_, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, archived, 2)
	require.Contains(t, string(archived[1]), "lista2")
}

func TestPageURL(t *testing.T) {
	q := SearchQuery{
		Search:    "the stranger things 3",
		Category:  "movies",
		Order:     "seeders",
		SortOrder: "desc",
		Domain:    "rarbgunblocked.org",
	}
	u := PageURL(q, 2)
	require.Contains(t, u, "/torrents.php?search=the+stranger+things+3&page=2")
	require.Contains(t, u, "&by=DESC")
	require.Contains(t, u, "&order=seeders")
	require.Contains(t, u, "&category=48;17;44;45;47;50;51;52;42;46")
}

func TestPaginatorOnPageAliasesResults(t *testing.T) {
	pages := map[int]string{
		1: listingPage(
			listingRow("cat_new44.gif", "/torrent/a", "A", "2023-01-15 10:30:00", "1.00 GB", "1", "0", "up", false),
		),
		2: listingPage(
			listingRow("cat_new44.gif", "/torrent/b", "B", "2023-01-15 10:30:00", "1.00 GB", "2", "0", "up", false),
		),
	}
	var fetched []int
	server := httptest.NewServer(pageHandler(t, pages, &fetched))
	defer server.Close()

	// a consumer resolving links while it browses the page must see
	// its writes in the final record set
	p := Paginator{
		Client: newTestClient(t, server),
		Query:  SearchQuery{Search: "foo", Domain: "rarbgunblocked.org"},
		OnPage: func(records []Torrent) {
			for i := range records {
				records[i].Magnet = "magnet:" + records[i].Title
			}
		},
	}
	records, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "magnet:A", records[0].Magnet)
	require.Equal(t, "magnet:B", records[1].Magnet)
}
