// Package describe resolves a proposal's description link into text.
package describe

import (
	"context"
	"html"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"github.com/microcosm-cc/bluemonday"

	"github.com/stake-plus/solana-dao-radar/src/cache"
	"github.com/stake-plus/solana-dao-radar/src/webclient"
)

var logger = loggo.GetLogger("daoradar.describe")

const (
	DefaultTimeout = 5 * time.Second
	// MaxChars bounds the returned description.
	MaxChars    = 5000
	ipfsGateway = "https://ipfs.io/ipfs/"
	cacheTTL    = time.Hour
	maxRedirect = 3
)

type Fetcher struct {
	client   *http.Client
	guard    Guard
	policy   *bluemonday.Policy
	store    cache.Store
	maxChars int
}

type Option func(*Fetcher)

// WithGuard replaces the default public-address check.
func WithGuard(g Guard) Option {
	return func(f *Fetcher) { f.guard = g }
}

// WithStore caches resolved descriptions for an hour.
func WithStore(s cache.Store) Option {
	return func(f *Fetcher) { f.store = cache.Prefixed(s, "desc") }
}

func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) { f.client.Timeout = d }
}

func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:   webclient.NewDefault(DefaultTimeout),
		guard:    PublicOnly(nil),
		policy:   bluemonday.StrictPolicy(),
		maxChars: MaxChars,
	}
	for _, o := range opts {
		o(f)
	}
	f.client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirect {
			return errors.Errorf("stopped after %d redirects", maxRedirect)
		}
		return f.guard(req.Context(), req.URL)
	}
	return f
}

// Fetch returns the description behind link. Inline text is returned as is;
// any failure to fetch returns the link itself, so callers always get
// something to show.
func (f *Fetcher) Fetch(ctx context.Context, link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return ""
	}
	if !strings.HasPrefix(link, "http") && !strings.HasPrefix(link, "ipfs") {
		return link
	}

	key := cache.HashKey(link)
	if f.store != nil {
		if b, ok, err := f.store.Get(ctx, key); err == nil && ok {
			return string(b)
		}
	}

	text, err := f.download(ctx, resolveLink(link))
	if err != nil {
		logger.Debugf("description %s: %v", link, err)
		return link
	}
	if f.store != nil {
		if err := f.store.Set(ctx, key, []byte(text), cacheTTL); err != nil {
			logger.Warningf("cache description %s: %v", link, err)
		}
	}
	return text
}

func resolveLink(link string) string {
	if rest, ok := strings.CutPrefix(link, "ipfs://"); ok {
		return ipfsGateway + rest
	}
	return link
}

func (f *Fetcher) download(ctx context.Context, raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", errors.NotValidf("link %q", raw)
	}
	if err := f.guard(ctx, u); err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", errors.Trace(err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", errors.Trace(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("status %d", resp.StatusCode)
	}

	// Four bytes per character covers any UTF-8 text of maxChars runes.
	body, err := io.ReadAll(io.LimitReader(resp.Body, int64(f.maxChars)*4))
	if err != nil {
		return "", errors.Trace(err)
	}
	text := strings.ToValidUTF8(string(body), "")
	if isHTML(resp.Header.Get("Content-Type")) {
		text = strings.TrimSpace(html.UnescapeString(f.policy.Sanitize(text)))
	}
	return clamp(text, f.maxChars), nil
}

func isHTML(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && (mt == "text/html" || mt == "application/xhtml+xml")
}

func clamp(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
