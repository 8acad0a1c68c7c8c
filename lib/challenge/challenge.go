package challenge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// ErrUnresolved is wrapped by every resolver failure so callers can
// distinguish "the challenge could not be solved" from transport errors.
var ErrUnresolved = fmt.Errorf("could not resolve the verification challenge")

// Resolver turns a threat-defence challenge URL into a set of session
// cookies that get past it. Implementations may block for a long time
// (a human typing, a headless browser booting); callers needing bounded
// latency should wrap the context.
type Resolver interface {
	Resolve(ctx context.Context, challengeURL string) (map[string]string, error)
}

// ParseCookieString parses a "name=value; name2=value2" string, the
// format produced by `document.cookie` in a browser console.
func ParseCookieString(s string) map[string]string {
	out := map[string]string{}
	for _, pair := range strings.Split(s, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, value, found := strings.Cut(pair, "=")
		if !found {
			continue
		}
		out[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	return out
}

// Fallback tries the automated resolver first and falls back to the
// manual one only in an interactive session. In a piped context a human
// is not around to help, so the automated failure is final.
type Fallback struct {
	Automated   Resolver
	Manual      Resolver
	Interactive bool
}

func (f Fallback) Resolve(ctx context.Context, challengeURL string) (map[string]string, error) {
	cookies, err := f.Automated.Resolve(ctx, challengeURL)
	if err == nil {
		return cookies, nil
	}
	if !f.Interactive {
		return nil, fmt.Errorf(
			"%w: automated solve failed, rerun without a pipe to solve it manually: %v",
			ErrUnresolved, err,
		)
	}

	slog.Warn("automated challenge solve failed, falling back to manual", "err", err)
	return f.Manual.Resolve(ctx, challengeURL)
}
