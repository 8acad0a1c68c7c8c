package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"rbgcli/internal/output"
	"rbgcli/internal/store"
	"rbgcli/lib/challenge"
	"rbgcli/lib/configutil"
	"rbgcli/lib/osutil"
	"rbgcli/lib/scrapers/rarbg"
	"rbgcli/lib/sizeutil"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// Config holds the optional config.json5 overrides.
type Config struct {
	Domain   string `json:"domain"`
	Home     string `json:"home"`
	RandomUA bool   `json:"random_ua"`
}

const defaultDomain = "rarbgunblocked.org"

var orderKeys = []string{"data", "filename", "leechers", "seeders", "size"}

type searchFlags struct {
	category         string
	domain           string
	order            string
	sortOrder        string
	magnet           bool
	sort             string
	limit            int
	interactive      bool
	downloadTorrents bool
	blockSize        string
	noCache          bool
	noCookie         bool
}

var flags searchFlags

func init() {
	f := searchCmd.Flags()
	f.StringVarP(&flags.category, "category", "c", "nonxxx",
		fmt.Sprintf("Category filter, one of: %s", strings.Join(rarbg.Categories(), ", ")))
	f.StringVar(&flags.domain, "domain", "",
		"Domain to search, you could put an alternative mirror domain here")
	f.StringVarP(&flags.order, "order", "r", "",
		fmt.Sprintf("Order results (before query) by this key, one of: %s", strings.Join(orderKeys, ", ")))
	f.StringVarP(&flags.sortOrder, "sort_order", "o", "",
		"Sort order asc or desc (only available with --order)")
	f.BoolVarP(&flags.magnet, "magnet", "m", false, "Output magnet links")
	f.StringVarP(&flags.sort, "sort", "s", "",
		fmt.Sprintf("Sort results (after scraping) by this key, one of: %s", strings.Join(output.SortKeys, ", ")))
	f.IntVarP(&flags.limit, "limit", "l", 0, "Limit number of records, 0 means unlimited")
	f.BoolVarP(&flags.interactive, "interactive", "i", false,
		"Force interactive mode, show an interactive menu of results")
	f.BoolVarP(&flags.downloadTorrents, "download_torrents", "d", false,
		"Open torrent files in the browser (which will download them)")
	f.StringVarP(&flags.blockSize, "block_size", "B", "",
		fmt.Sprintf("Display sizes in this unit, one of: %s", strings.Join(sizeutil.Units(), ", ")))
	f.BoolVar(&flags.noCache, "no_cache", false, "Don't use cached results from previous searches")
	f.BoolVar(&flags.noCookie, "no_cookie", false,
		"Don't use the challenge cookie from previous runs (will need to solve a new challenge)")

	rootCmd.AddCommand(searchCmd)
}

func validateFlags(cmd *cobra.Command) error {
	if _, ok := rarbg.CategoryCodes[flags.category]; !ok {
		return fmt.Errorf("unknown category %q", flags.category)
	}
	if flags.limit < 0 {
		return fmt.Errorf("--limit must be greater than 0")
	}
	if flags.sortOrder != "" && flags.order == "" {
		return fmt.Errorf("--sort_order requires --order")
	}
	if flags.sortOrder != "" && flags.sortOrder != "asc" && flags.sortOrder != "desc" {
		return fmt.Errorf("--sort_order must be asc or desc")
	}
	if flags.sort != "" && !output.IsSortKey(flags.sort) {
		return fmt.Errorf("unknown sort key %q", flags.sort)
	}
	if flags.blockSize != "" && !sizeutil.IsUnit(flags.blockSize) {
		return fmt.Errorf("unknown size unit %q", flags.blockSize)
	}
	if !cmd.Flags().Changed("interactive") {
		flags.interactive = isatty.IsTerminal(os.Stdout.Fd())
	}
	return nil
}

// tesseractSolver shells out to a locally installed tesseract binary.
// When it's not installed the automated resolver fails and the manual
// fallback takes over.
func tesseractSolver(ctx context.Context, png []byte) (string, error) {
	cmd := exec.CommandContext(ctx, "tesseract", "stdin", "stdout")
	cmd.Stdin = bytes.NewReader(png)
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// noReadCookieStore persists refreshed cookies but pretends none exist
// yet, forcing a fresh challenge solve (--no_cookie).
type noReadCookieStore struct {
	store.CookieStore
}

func (s noReadCookieStore) Get() (map[string]string, error) {
	return map[string]string{}, nil
}

var searchCmd = &cobra.Command{
	Use:   "search <term>",
	Short: "Searches the torrent index and prints the results.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFlags(cmd); err != nil {
			return err
		}
		ctx := cmd.Context()

		cfg, err := configutil.ReadOrDefault[Config]("config.json5")
		if err != nil {
			osutil.Fatal("failed to read config", err)
		}
		domain := flags.domain
		if domain == "" {
			domain = cfg.Domain
		}
		if domain == "" {
			domain = defaultDomain
		}

		home, err := store.ProgramHome(cfg.Home)
		if err != nil {
			osutil.Fatal("failed to resolve program home", err)
		}

		var cookies rarbg.CookieStore = store.NewCookieStore(home)
		if flags.noCookie {
			cookies = noReadCookieStore{store.NewCookieStore(home)}
		}

		resolver := challenge.Fallback{
			Automated:   challenge.Browser{Solver: tesseractSolver},
			Manual:      challenge.NewManual(),
			Interactive: flags.interactive,
		}

		client, err := rarbg.NewClient(ctx, rarbg.ClientOptions{
			BaseURL:  "https://" + domain,
			Resolver: resolver,
			Cookies:  cookies,
			RandomUA: cfg.RandomUA,
		})
		if err != nil {
			osutil.Fatal("failed to initialize client", err)
		}

		query := rarbg.SearchQuery{
			Search:    args[0],
			Category:  flags.category,
			Order:     flags.order,
			SortOrder: flags.sortOrder,
			Limit:     flags.limit,
			Domain:    domain,
		}
		session := store.SessionKey(query.SessionFields())

		run := searchRun{
			ctx:     ctx,
			client:  client,
			query:   query,
			session: session,
			home:    home,
		}
		return run.execute()
	},
}

type searchRun struct {
	ctx     context.Context
	client  *rarbg.Client
	query   rarbg.SearchQuery
	session string
	home    string
}

func (r searchRun) execute() error {
	snapshots := r.openSnapshots()
	opener := output.NewOpener()

	paginator := rarbg.Paginator{
		Client: r.client,
		Query:  r.query,
		Archive: func(page int, body []byte) {
			if snapshots == nil {
				return
			}
			if err := snapshots.Save(r.ctx, r.session, page, body); err != nil {
				slog.Warn("failed to archive page snapshot", "page", page, "err", err)
			}
		},
	}

	// interactive mode browses each page as it arrives; quitting the
	// browser cancels the remaining fetches
	var quit bool
	runCtx := r.ctx
	if flags.interactive {
		var stop context.CancelFunc
		runCtx, stop = context.WithCancel(r.ctx)
		defer stop()

		browser := output.Browser{
			In:        os.Stdin,
			Out:       os.Stdout,
			PageSize:  25,
			BlockSize: flags.blockSize,
			Magnet:    flags.magnet,
			Opener:    opener,
			Resolve: func(ctx context.Context, records []rarbg.Torrent) {
				rarbg.ResolveLinks(ctx, r.client, records, 1)
			},
		}
		paginator.OnPage = func(records []rarbg.Torrent) {
			if quit {
				return
			}
			if err := browser.Browse(runCtx, records); err != nil {
				quit = true
				stop()
			}
		}
	}

	fetched, err := paginator.Run(runCtx)
	if err != nil && !(quit && errors.Is(err, context.Canceled)) {
		if len(fetched) == 0 {
			return err
		}
		// prior pages stay usable; report and continue with what we have
		slog.Error("fetch aborted early, continuing with fetched pages",
			"records", len(fetched), "err", err)
	}

	cache, err := store.NewCacheStore(r.home)
	if err != nil {
		osutil.Fatal("failed to open cache", err)
	}
	var cached []rarbg.Torrent
	if !flags.noCache {
		cached, err = cache.Get(r.session)
		if err != nil {
			osutil.Fatal("failed to read cache", err)
		}
	}
	merged := rarbg.Merge(fetched, cached)

	final := merged
	if !flags.interactive {
		pipeline := output.Pipeline{
			Client: r.client,
			Options: output.Options{
				Sort:   flags.sort,
				Limit:  flags.limit,
				Magnet: flags.magnet,
			},
			Out: os.Stdout,
		}
		final, err = pipeline.Run(r.ctx, merged)
		if err != nil {
			return err
		}
	}

	// write once, after resolution, so resolved links are durable;
	// interactive selections resolved links in place during browsing
	if err := cache.Put(r.session, final); err != nil {
		slog.Warn("failed to write cache", "err", err)
	}

	if flags.downloadTorrents {
		urls := make([]string, 0, len(final)*2)
		for _, record := range final {
			if record.TorrentFile != "" {
				urls = append(urls, record.TorrentFile)
			}
			if record.Magnet != "" {
				urls = append(urls, record.Magnet)
			}
		}
		slog.Info("opening links in native handler", "count", len(urls))
		if err := opener.OpenAll(r.ctx, urls); err != nil {
			return err
		}
	}
	return nil
}

func (r searchRun) openSnapshots() *store.SnapshotStore {
	database, err := store.OpenDB(filepath.Join(r.home, "snapshots.db"))
	if err != nil {
		slog.Warn("failed to open snapshot archive", "err", err)
		return nil
	}
	s := store.NewSnapshotStore(database)
	return &s
}
