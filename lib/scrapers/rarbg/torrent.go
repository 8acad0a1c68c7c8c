package rarbg

import "strconv"

// Torrent is one structured search result. Magnet and TorrentFile may
// be empty after extraction; they are filled in once by lazy resolution
// and never mutated afterward. The struct is comparable on purpose:
// dedup goes over every field, so two observations of the same listing
// with a corrected seeder count are both kept.
type Torrent struct {
	Title       string `json:"title"`
	TorrentFile string `json:"torrent"`
	Href        string `json:"href"`
	Magnet      string `json:"magnet"`
	SizeBytes   int64  `json:"size_bytes"`
	Seeders     int    `json:"seeders"`
	Leechers    int    `json:"leechers"`
	Category    string `json:"category"`
	Date        int64  `json:"date"`
	Uploader    string `json:"uploader"`
}

// SearchQuery is the immutable input of one invocation.
type SearchQuery struct {
	Search    string
	Category  string
	Order     string
	SortOrder string
	// Limit bounds the number of extractable records, 0 means unbounded.
	Limit  int
	Domain string
}

// SessionFields is the cacheable subset of the query: results for the
// same values of these fields land in the same cache entry.
func (q SearchQuery) SessionFields() map[string]string {
	limit := "inf"
	if q.Limit > 0 {
		limit = strconv.Itoa(q.Limit)
	}
	return map[string]string{
		"search":   q.Search,
		"category": q.Category,
		"order":    q.Order,
		"by":       q.SortOrder,
		"limit":    limit,
	}
}
