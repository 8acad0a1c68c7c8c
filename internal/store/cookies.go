package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// CookieStore persists session cookies as json in the program home, so
// a solved challenge carries over to the next invocation.
type CookieStore struct {
	path string
}

func NewCookieStore(home string) CookieStore {
	return CookieStore{path: filepath.Join(home, "cookies.json")}
}

func (s CookieStore) Get() (map[string]string, error) {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}

	cookies := map[string]string{}
	if err := json.Unmarshal(raw, &cookies); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	return cookies, nil
}

func (s CookieStore) Put(cookies map[string]string) error {
	raw, err := json.Marshal(cookies)
	if err != nil {
		return err
	}
	return writeFileAtomic(s.path, raw)
}
