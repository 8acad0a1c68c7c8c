package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"rbgcli/internal/store/db"

	_ "modernc.org/sqlite"
)

// OpenDB opens (and initializes) the sqlite database at path.
func OpenDB(path string) (*sql.DB, error) {
	database, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// see https://stackoverflow.com/questions/35804884 for why
	database.SetMaxOpenConns(1)
	if _, err := database.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, err
	}

	_, err = database.Exec(db.Schema)
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		return nil, err
	}
	return database, nil
}

// SnapshotStore archives the raw html of every fetched result page,
// keyed by session and page index. Handy when the extractor needs
// debugging against exactly what the site served.
type SnapshotStore struct {
	db *sql.DB
}

func NewSnapshotStore(database *sql.DB) SnapshotStore {
	return SnapshotStore{db: database}
}

func (s SnapshotStore) Save(ctx context.Context, session string, page int, body []byte) error {
	_, err := s.db.ExecContext(ctx, `
		insert into page_snapshot (session, page, fetched_at, body)
		values (?, ?, ?, ?)
		on conflict (session, page) do update set
			fetched_at = excluded.fetched_at,
			body = excluded.body
	`, session, page, time.Now().Unix(), body)
	return err
}

type Snapshot struct {
	Session   string
	Page      int
	FetchedAt time.Time
	Body      []byte
}

func (s SnapshotStore) List(ctx context.Context, session string) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		select session, page, fetched_at, body from page_snapshot
		where session = ? order by page
	`, session)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var snap Snapshot
		var fetchedAt int64
		err := rows.Scan(&snap.Session, &snap.Page, &fetchedAt, &snap.Body)
		if err != nil {
			return nil, err
		}
		snap.FetchedAt = time.Unix(fetchedAt, 0)
		out = append(out, snap)
	}
	return out, rows.Err()
}
