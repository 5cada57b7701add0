package scraper

import (
	"bytes"
	"fmt"
	"io"
	mathrand "math/rand"
	"net/http"
	"net/url"
	"slices"
	"time"

	"golang.org/x/net/html/charset"

	"sjsage522/cafe24worker/logger"
	"sjsage522/cafe24worker/pkg/errors"
	"sjsage522/cafe24worker/services/cache"
)

// Built-in desktop browser identities rotated per request
var defaultUserAgents = []string{
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Firefox/118.0",
}

var referers = []string{
	"https://www.google.com/",
	"https://www.naver.com/",
	"https://www.daum.net/",
}

// FetcherConfig holds the knobs for the page fetcher
type FetcherConfig struct {
	ProxyURL   string
	BaseDelay  time.Duration
	Jitter     time.Duration
	Timeout    time.Duration
	BlockTime  time.Duration
	UserAgents []string
}

// Fetcher issues throttled GET requests with rotating browser identities.
// Every call sleeps for BaseDelay + uniform(0, Jitter) before returning,
// success or not, so the request rate stays bounded.
type Fetcher struct {
	config     FetcherConfig
	client     *http.Client
	blockCache cache.Service
	log        *logger.Logger
}

// NewFetcher creates a fetcher. blockCache may be nil, which disables the
// rate-limit block window.
func NewFetcher(config FetcherConfig, blockCache cache.Service) (*Fetcher, error) {
	if len(config.UserAgents) == 0 {
		config.UserAgents = defaultUserAgents
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.BlockTime <= 0 {
		config.BlockTime = time.Minute
	}

	transport := &http.Transport{}
	if config.ProxyURL != "" {
		proxy, err := url.Parse(config.ProxyURL)
		if err != nil {
			return nil, errors.NewConfiguration("invalid proxy URL", err)
		}
		transport.Proxy = http.ProxyURL(proxy)
	}

	return &Fetcher{
		config: config,
		client: &http.Client{
			Timeout:   config.Timeout,
			Transport: transport,
		},
		blockCache: blockCache,
		log:        logger.ForFetcher(),
	}, nil
}

// Fetch retrieves a page and returns its body as UTF-8 text. The
// throttling delay applies on every path out of this function.
func (f *Fetcher) Fetch(pageURL string) (string, error) {
	defer f.applyDelay()

	if err := f.checkBlocked(pageURL); err != nil {
		return "", err
	}

	req, err := http.NewRequest(http.MethodGet, pageURL, nil)
	if err != nil {
		return "", errors.NewFetch(pageURL, "failed to create request", err)
	}

	rnd := mathrand.New(mathrand.NewSource(time.Now().UnixNano()))
	req.Header.Set("User-Agent", f.config.UserAgents[rnd.Intn(len(f.config.UserAgents))])
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Referer", referers[rnd.Intn(len(referers))])
	req.Header.Set("Upgrade-Insecure-Requests", "1")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", errors.NewFetch(pageURL, "failed to fetch URL", err)
	}
	defer resp.Body.Close()

	if slices.Contains([]int{http.StatusTooManyRequests, 430}, resp.StatusCode) {
		f.blockHost(pageURL)
		return "", errors.NewRateLimit(pageURL, f.config.BlockTime)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", errors.NewFetch(pageURL, fmt.Sprintf("unexpected status code: %d", resp.StatusCode), nil)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.NewFetch(pageURL, "failed to read response body", err)
	}

	return decodeToUTF8(bodyBytes, resp.Header.Get("Content-Type"))
}

// applyDelay blocks for the configured base delay plus uniform jitter
func (f *Fetcher) applyDelay() {
	delay := f.config.BaseDelay
	if f.config.Jitter > 0 {
		delay += time.Duration(mathrand.Int63n(int64(f.config.Jitter)))
	}
	if delay > 0 {
		time.Sleep(delay)
	}
}

// checkBlocked fails fast while the page's host sits in the block window
func (f *Fetcher) checkBlocked(pageURL string) error {
	if f.blockCache == nil {
		return nil
	}
	key, ok := blockKey(pageURL)
	if !ok {
		return nil
	}
	if _, err := f.blockCache.Get(key); err == nil {
		return errors.NewRateLimit(pageURL, f.config.BlockTime)
	}
	return nil
}

// blockHost remembers that a host asked us to back off
func (f *Fetcher) blockHost(pageURL string) {
	if f.blockCache == nil {
		return
	}
	key, ok := blockKey(pageURL)
	if !ok {
		return
	}
	if err := f.blockCache.Set(key, []byte("1"), f.config.BlockTime); err != nil {
		f.log.Warn().Err(err).Str("url", pageURL).Msg("Failed to record block window")
	} else {
		f.log.Warn().Str("url", pageURL).Dur("block", f.config.BlockTime).Msg("Host rate limited")
	}
}

func blockKey(pageURL string) (string, bool) {
	parsed, err := url.Parse(pageURL)
	if err != nil || parsed.Host == "" {
		return "", false
	}
	return "fetch_block:" + parsed.Host, true
}

// decodeToUTF8 converts a response body to UTF-8 text. Cafe24 shops still
// serve EUC-KR pages, so encoding detection runs on every response.
func decodeToUTF8(body []byte, contentType string) (string, error) {
	encoding, name, _ := charset.DetermineEncoding(body, contentType)
	if name == "utf-8" || name == "UTF-8" {
		return string(body), nil
	}

	reader := encoding.NewDecoder().Reader(bytes.NewReader(body))
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return "", errors.NewFetch("", "failed to convert body to UTF-8", err)
	}
	return buf.String(), nil
}
