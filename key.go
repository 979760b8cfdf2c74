package cachetrip

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultSeparator joins the fields of the key record.
const DefaultSeparator = "|"

// KeyDeriver computes a deterministic cache key from a request's
// method, URI, selected header values, and body.
type KeyDeriver struct {
	// Headers lists the header names that participate in the key, in
	// order. Headers not listed never affect the key.
	Headers []string
	// Separator joins header values and record fields. Empty means
	// DefaultSeparator.
	Separator string
	// StrictFields keeps empty record fields in place instead of
	// dropping them. The default (false) reproduces the historical
	// behavior where a field equal to "" or "0" is dropped from the
	// record, which can make requests differing only in such a field
	// collide on the same key.
	StrictFields bool
}

// Derive computes the cache key for req. The request body, if any, is
// fully read and restored so the request can still be forwarded.
func (k *KeyDeriver) Derive(req *http.Request) (string, error) {
	sep := k.Separator
	if sep == "" {
		sep = DefaultSeparator
	}

	var headerParts []string
	for _, name := range k.Headers {
		values := req.Header.Values(name)
		var kept []string
		for _, v := range values {
			if v != "" {
				kept = append(kept, v)
			}
		}
		if len(kept) > 0 {
			headerParts = append(headerParts, strings.Join(kept, sep))
		}
	}

	body, err := peekBody(req)
	if err != nil {
		return "", fmt.Errorf("reading request body: %w", err)
	}

	uri := ""
	if req.URL != nil {
		uri = strings.TrimSpace(req.URL.String())
	}

	fields := []string{
		req.Method,
		uri,
		strings.Join(headerParts, sep),
		strings.TrimSpace(string(body)),
	}

	record := make([]string, 0, len(fields))
	for _, field := range fields {
		if !k.StrictFields && isFalsy(field) {
			continue
		}
		record = append(record, field)
	}

	sum := sha1.Sum([]byte(strings.Join(record, sep)))
	return hex.EncodeToString(sum[:]), nil
}

// isFalsy reports whether a field is dropped from the key record in
// the historical (non-strict) mode.
func isFalsy(s string) bool {
	return s == "" || s == "0"
}

// peekBody reads the request body and restores it for forwarding.
func peekBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}

	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	if err := req.Body.Close(); err != nil {
		return nil, err
	}
	req.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}
