package challenge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// CaptchaSolver turns the challenge's captcha image into its text
// solution. OCR is deliberately external: a tesseract shellout, a
// vision API, whatever the caller has around.
type CaptchaSolver func(ctx context.Context, png []byte) (string, error)

// Browser solves the challenge in a headless browser: load the page,
// screenshot the captcha, run the solver, submit the solution, then
// harvest the session cookies the site hands back.
type Browser struct {
	Solver    CaptchaSolver
	UserAgent string
	// extra time for the interstitial page's own scripted delay
	WaitTime time.Duration
}

func (b Browser) Resolve(ctx context.Context, challengeURL string) (map[string]string, error) {
	if b.Solver == nil {
		return nil, fmt.Errorf("%w: no captcha solver configured", ErrUnresolved)
	}
	wait := b.WaitTime
	if wait == 0 {
		wait = time.Second * 10
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
	)
	if b.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(b.UserAgent))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var captcha []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(challengeURL),
		chromedp.Sleep(wait),
		chromedp.WaitVisible("#solve_string", chromedp.ByID),
		chromedp.Screenshot("#solve_image", &captcha, chromedp.NodeVisible),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: load challenge page: %v", ErrUnresolved, err)
	}

	solution, err := b.Solver(ctx, captcha)
	if err != nil {
		return nil, fmt.Errorf("%w: solve captcha image: %v", ErrUnresolved, err)
	}
	slog.Debug("captcha solver produced a solution", "solution", solution)

	cookies := map[string]string{}
	err = chromedp.Run(browserCtx,
		chromedp.SendKeys("#solve_string", solution, chromedp.ByID),
		chromedp.Submit("#solve_string", chromedp.ByID),
		chromedp.Sleep(time.Second*3),
		chromedp.ActionFunc(func(ctx context.Context) error {
			all, err := network.GetCookies().Do(ctx)
			if err != nil {
				return err
			}
			for _, c := range all {
				cookies[c.Name] = c.Value
			}
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: submit solution: %v", ErrUnresolved, err)
	}
	if len(cookies) == 0 {
		return nil, fmt.Errorf("%w: challenge page set no cookies", ErrUnresolved)
	}
	return cookies, nil
}
