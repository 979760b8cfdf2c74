// Package cachetrip provides a request-keyed, TTL-bounded cache for
// HTTP responses as an http.RoundTripper middleware.
//
// The transport derives a deterministic key from each request's
// method, URI, selected headers, and body, serves a stored response
// while it is fresh, and otherwise forwards the request and persists
// the successful response asynchronously through a pluggable storage
// backend. Freshness is purely TTL-based against the entry's write
// timestamp; Cache-Control and friends are not consulted.
package cachetrip

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cachetrip/cachetrip/storage"
)

// CachedHeader is the synthetic header added to responses served from
// the cache, carrying the entry's write timestamp as unix seconds.
const CachedHeader = "Cached"

// Transport is an http.RoundTripper that caches responses by derived
// request key. The zero TTL disables caching; per-request TTLs set via
// WithTTL override the instance default.
type Transport struct {
	// Next is the wrapped transport. Nil means http.DefaultTransport.
	Next http.RoundTripper
	// Storage persists cache entries.
	Storage storage.Storage
	// Metrics instruments lookups and write-backs. Nil disables.
	Metrics *Metrics

	opts  Options
	keyer *KeyDeriver
	wg    sync.WaitGroup
}

// New creates a caching transport over http.DefaultTransport.
func New(store storage.Storage, opts Options) *Transport {
	return &Transport{
		Storage: store,
		opts:    opts,
		keyer: &KeyDeriver{
			Headers:      opts.Headers,
			Separator:    opts.Separator,
			StrictFields: opts.StrictFields,
		},
	}
}

// Client returns an http.Client using this transport.
func (t *Transport) Client() *http.Client {
	return &http.Client{Transport: t}
}

// Wait blocks until all pending write-backs have finished. Useful
// before shutdown so in-flight cache writes are not dropped.
func (t *Transport) Wait() {
	t.wg.Wait()
}

// RoundTrip serves a fresh cached response when one exists, and
// otherwise forwards the request, scheduling a write-back of any
// successful response.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ttl := t.effectiveTTL(req)
	if ttl <= 0 {
		t.Metrics.observeLookup(resultBypass)
		return t.next().RoundTrip(req)
	}

	key, err := t.keyer.Derive(req)
	if err != nil {
		// Cannot key the request; forward it uncached.
		logrus.Errorf("Failed to derive cache key for %s %s: %v", req.Method, req.URL, err)
		t.Metrics.observeLookup(resultError)
		return t.next().RoundTrip(req)
	}

	if resp := t.lookup(req, key, ttl); resp != nil {
		logrus.Debugf("Cache hit for %s %s", req.Method, req.URL)
		return resp, nil
	}

	resp, err := t.next().RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 300 {
		if err := t.scheduleWrite(req, key, resp); err != nil {
			return nil, err
		}
	}

	return resp, nil
}

func (t *Transport) next() http.RoundTripper {
	if t.Next != nil {
		return t.Next
	}
	return http.DefaultTransport
}

// effectiveTTL resolves the TTL for a request: per-call context value,
// then the instance default, then zero.
func (t *Transport) effectiveTTL(req *http.Request) time.Duration {
	if ttl, ok := TTLFrom(req.Context()); ok {
		return ttl
	}
	return t.opts.TTL
}

// lookup returns a replayable cached response if a fresh entry exists
// for key. Any storage or decode failure is a miss; the request is
// then forwarded as usual.
func (t *Transport) lookup(req *http.Request, key string, ttl time.Duration) *http.Response {
	entry, err := t.Storage.Get(key)
	if err != nil {
		logrus.Errorf("Cache read failed for %s %s: %v", req.Method, req.URL, err)
		t.Metrics.observeLookup(resultError)
		return nil
	}
	if entry == nil {
		t.Metrics.observeLookup(resultMiss)
		return nil
	}

	if time.Since(entry.WrittenAt) >= ttl {
		t.Metrics.observeLookup(resultStale)
		return nil
	}

	resp, err := deserializeResponse(entry.Data)
	if err != nil {
		logrus.Errorf("Corrupt cache entry %s, treating as miss: %v", key, err)
		t.Metrics.observeLookup(resultError)
		return nil
	}

	resp.Request = req
	resp.Header.Set(CachedHeader, strconv.FormatInt(entry.WrittenAt.Unix(), 10))
	t.Metrics.observeLookup(resultHit)
	return resp
}

// scheduleWrite materializes the response body, rewires the response
// to replay it from memory, and persists the entry in a detached
// goroutine. Storage failures are logged and swallowed; they must
// never affect delivery of the response itself.
func (t *Transport) scheduleWrite(req *http.Request, key string, resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	closeErr := resp.Body.Close()
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	if closeErr != nil {
		return fmt.Errorf("closing response body: %w", closeErr)
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	// Serialize before handing the response back: the caller is free
	// to mutate it once RoundTrip returns.
	stored := *resp
	stored.Body = io.NopCloser(bytes.NewReader(body))
	data, err := serializeResponse(&stored)
	if err != nil {
		logrus.Errorf("Failed to serialize response for %s %s: %v", req.Method, req.URL, err)
		t.Metrics.observeWrite(resultError)
		return nil
	}

	ctx := req.Context()
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		if ctx.Err() != nil {
			// The caller went away; don't persist a response it
			// abandoned.
			t.Metrics.observeWrite(resultSkip)
			return
		}
		if err := t.Storage.Set(key, data); err != nil {
			logrus.Errorf("Failed to cache response for %s %s: %v", req.Method, req.URL, err)
			t.Metrics.observeWrite(resultError)
			return
		}
		t.Metrics.observeWrite(resultOK)
	}()

	return nil
}

var _ http.RoundTripper = (*Transport)(nil)
