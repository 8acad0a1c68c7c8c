package rarbg

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"rbgcli/lib/challenge"
	"rbgcli/lib/telemetry"

	"github.com/stretchr/testify/require"
)

type memoryCookieStore struct {
	mu      sync.Mutex
	cookies map[string]string
	puts    int
}

func (s *memoryCookieStore) Get() (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]string{}
	for k, v := range s.cookies {
		out[k] = v
	}
	return out, nil
}

func (s *memoryCookieStore) Put(cookies map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cookies = cookies
	s.puts++
	return nil
}

type countingResolver struct {
	calls int
}

func (r *countingResolver) Resolve(ctx context.Context, challengeURL string) (map[string]string, error) {
	r.calls++
	return map[string]string{"sk": fmt.Sprintf("solve-%d", r.calls)}, nil
}

func TestFetchChallengeLoop(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/rarbg")
	defer cleanup()

	var attempts int
	var finalCookie string

	mux := http.NewServeMux()
	mux.HandleFunc("/torrents.php", func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts <= 2 {
			http.Redirect(w, r, "/threat_defence.php?defence=1", http.StatusFound)
			return
		}
		if c, err := r.Cookie("sk"); err == nil {
			finalCookie = c.Value
		}
		fmt.Fprint(w, "<html>results</html>")
	})
	mux.HandleFunc("/threat_defence.php", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>are you human?</html>")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	resolver := &countingResolver{}
	store := &memoryCookieStore{}
	client, err := NewClient(context.Background(), ClientOptions{
		BaseURL:   server.URL,
		Resolver:  resolver,
		Cookies:   store,
		UserAgent: "test-agent",
	})
	require.NoError(t, err)

	res, err := client.Fetch(context.Background(), "/torrents.php?search=foo&page=1")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.Status)
	require.Contains(t, string(res.Body), "results")

	// two challenge pages means exactly two resolver invocations, and
	// the winning attempt carries the second resolution's cookies
	require.Equal(t, 2, resolver.calls)
	require.Equal(t, "solve-2", finalCookie)

	// every refresh is flushed before the retry
	require.Equal(t, 2, store.puts)
	stored, err := store.Get()
	require.NoError(t, err)
	require.Equal(t, "solve-2", stored["sk"])
}

type failingResolver struct{}

func (failingResolver) Resolve(ctx context.Context, challengeURL string) (map[string]string, error) {
	return nil, fmt.Errorf("%w: nope", challenge.ErrUnresolved)
}

func TestFetchChallengeUnresolved(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/torrents.php", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/threat_defence.php", http.StatusFound)
	})
	mux.HandleFunc("/threat_defence.php", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>are you human?</html>")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client, err := NewClient(context.Background(), ClientOptions{
		BaseURL:   server.URL,
		Resolver:  failingResolver{},
		UserAgent: "test-agent",
	})
	require.NoError(t, err)

	_, err = client.Fetch(context.Background(), "/torrents.php")
	require.ErrorIs(t, err, challenge.ErrUnresolved)
}

func TestFetchStoredCookiesApplied(t *testing.T) {
	var got string
	mux := http.NewServeMux()
	mux.HandleFunc("/torrents.php", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("sk"); err == nil {
			got = c.Value
		}
		fmt.Fprint(w, "ok")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	store := &memoryCookieStore{cookies: map[string]string{"sk": "from-last-run"}}
	client, err := NewClient(context.Background(), ClientOptions{
		BaseURL:   server.URL,
		Cookies:   store,
		UserAgent: "test-agent",
	})
	require.NoError(t, err)

	_, err = client.Fetch(context.Background(), "/torrents.php")
	require.NoError(t, err)
	require.Equal(t, "from-last-run", got)
}
