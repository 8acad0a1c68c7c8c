package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"rbgcli/lib/scrapers/rarbg"
)

// SessionKey derives a deterministic cache name from the cacheable
// subset of a query's fields. Quotes and commas are stripped from
// values so the key stays a single safe filename component.
func SessionKey(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sanitize := strings.NewReplacer(`"`, "", ",", "", string(os.PathSeparator), "_")
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, sanitize.Replace(fields[k])))
	}
	return strings.Join(parts, ",")
}

// CacheStore keeps one json record list per session key under
// <home>/history. Writes are atomic; a torn write must never corrupt
// the previous run's results.
type CacheStore struct {
	dir string
}

func NewCacheStore(home string) (CacheStore, error) {
	dir := filepath.Join(home, "history")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return CacheStore{}, err
	}
	return CacheStore{dir: dir}, nil
}

func (s CacheStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Get returns the cached record list, or empty if absent. A corrupt
// cache file is discarded with a warning rather than failing the run.
func (s CacheStore) Get(key string) ([]rarbg.Torrent, error) {
	raw, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var records []rarbg.Torrent
	if err := json.Unmarshal(raw, &records); err != nil {
		slog.Warn("discarding corrupt cache file", "path", s.path(key), "err", err)
		os.Remove(s.path(key))
		return nil, nil
	}
	return records, nil
}

func (s CacheStore) Put(key string, records []rarbg.Torrent) error {
	raw, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return err
	}
	return writeFileAtomic(s.path(key), raw)
}
