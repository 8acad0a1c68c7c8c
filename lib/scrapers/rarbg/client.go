package rarbg

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"rbgcli/lib/challenge"
	"rbgcli/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	browser "github.com/EDDYCJY/fake-useragent"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("scrapers/rarbg")

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// CookieStore persists the session cookies between invocations so a
// solved challenge survives a crash or a restart.
type CookieStore interface {
	Get() (map[string]string, error)
	Put(cookies map[string]string) error
}

// HTTPStatusError is a non-200, non-challenge response. It is fatal to
// the current run and is never retried automatically.
type HTTPStatusError struct {
	Status int
	URL    string
}

func (e HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected http status %d from %s", e.Status, e.URL)
}

type Client struct {
	BaseURL  *url.URL
	Http     *resty.Client
	resolver challenge.Resolver
	cookies  CookieStore
}

type ClientOptions struct {
	BaseURL string
	// nil means a challenge page is immediately fatal
	Resolver challenge.Resolver
	// nil means cookies only live for this invocation
	Cookies CookieStore
	// UserAgent overrides the default fixed header. RandomUA picks a
	// fresh realistic one instead; the target discriminates on this
	// header so both knobs exist.
	UserAgent string
	RandomUA  bool
}

func NewClient(ctx context.Context, opts ClientOptions) (*Client, error) {
	baseURL, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseURL)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	userAgent := opts.UserAgent
	if userAgent == "" && opts.RandomUA {
		userAgent = browser.Chrome()
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	client.SetHeader("user-agent", userAgent)
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseURL.Hostname()))
	client.SetTimeout(time.Second * 30)

	telemetry.InstrumentResty(client, "scrapers/rarbg/http")

	c := &Client{
		BaseURL:  baseURL,
		Http:     client,
		resolver: opts.Resolver,
		cookies:  opts.Cookies,
	}

	if opts.Cookies != nil {
		stored, err := opts.Cookies.Get()
		if err != nil {
			return nil, fmt.Errorf("load stored cookies: %w", err)
		}
		c.applyCookies(stored)
	}
	return c, nil
}

func (c *Client) applyCookies(cookies map[string]string) {
	if len(cookies) == 0 {
		return
	}
	set := make([]*http.Cookie, 0, len(cookies))
	for name, value := range cookies {
		set = append(set, &http.Cookie{Name: name, Value: value})
	}
	c.Http.GetClient().Jar.SetCookies(c.BaseURL, set)
}

type FetchResult struct {
	// URL is the final resolved URL after redirects.
	URL    string
	Status int
	Body   []byte
}

func isChallenge(finalURL string) bool {
	return strings.Contains(finalURL, "threat_defence.php")
}

// Fetch GETs target, detecting the anti-automation interstitial. A
// challenge redirect is not an error: the resolver is invoked, the new
// cookies are flushed to the store before the retry (a crash mid-loop
// must not lose a solved challenge), and the original request is
// reissued. There is no retry cap; an unsolvable challenge surfaces as
// the resolver failing.
func (c *Client) Fetch(ctx context.Context, target string) (FetchResult, error) {
	ctx, span := tracer.Start(ctx, "client:Fetch", trace.WithAttributes(
		attribute.String("url", target),
	))
	defer span.End()

	for {
		res, err := c.Http.R().
			SetContext(ctx).
			Get(target)
		if err != nil {
			span.SetStatus(codes.Error, "request failed")
			return FetchResult{}, err
		}

		finalURL := res.RawResponse.Request.URL.String()
		if !isChallenge(finalURL) {
			return FetchResult{
				URL:    finalURL,
				Status: res.StatusCode(),
				Body:   res.Body(),
			}, nil
		}

		span.AddEvent("challenge detected", trace.WithAttributes(
			attribute.String("challenge_url", finalURL),
		))
		if c.resolver == nil {
			span.SetStatus(codes.Error, "no challenge resolver configured")
			return FetchResult{}, fmt.Errorf("%w: no resolver configured", challenge.ErrUnresolved)
		}

		cookies, err := c.resolver.Resolve(ctx, finalURL)
		if err != nil {
			span.SetStatus(codes.Error, "challenge resolution failed")
			return FetchResult{}, fmt.Errorf("resolve challenge: %w", err)
		}
		if c.cookies != nil {
			if err := c.cookies.Put(cookies); err != nil {
				return FetchResult{}, fmt.Errorf("persist challenge cookies: %w", err)
			}
		}
		c.applyCookies(cookies)
	}
}
