package rarbg

// Merge concatenates fresh records with a previously cached set and
// deduplicates, preserving first-seen order (fresh first). Equality is
// over every field, not just the detail URL: when the site corrects a
// seeder count between runs both observations survive.
func Merge(fresh, cached []Torrent) []Torrent {
	seen := map[Torrent]struct{}{}
	out := make([]Torrent, 0, len(fresh)+len(cached))
	for _, batch := range [][]Torrent{fresh, cached} {
		for _, t := range batch {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}
