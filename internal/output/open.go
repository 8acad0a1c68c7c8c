package output

import (
	"context"
	"log/slog"
	"os/exec"
	"runtime"
	"time"

	"golang.org/x/time/rate"
)

// Opener hands URLs to the platform's native handler (browser for
// download links, torrent client for magnets). Launch is swappable for
// tests.
type Opener struct {
	Launch func(url string) error
}

func NewOpener() Opener {
	return Opener{Launch: launchNative}
}

func launchNative(url string) error {
	switch runtime.GOOS {
	case "windows":
		return exec.Command("cmd", "/c", "start", "", url).Start()
	case "darwin":
		return exec.Command("open", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}

// OpenAll opens every URL sequentially. Larger batches are paced so the
// native handler is not flooded with dozens of simultaneous launches.
func (o Opener) OpenAll(ctx context.Context, urls []string) error {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if len(urls) > 5 {
		limiter = rate.NewLimiter(rate.Every(500*time.Millisecond), 1)
	}

	for _, url := range urls {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		if err := o.Launch(url); err != nil {
			slog.Warn("failed to open url", "url", url, "err", err)
		}
	}
	return nil
}
