package cachetrip

import (
	"bufio"
	"bytes"
	"fmt"
	"net/http"
	"net/http/httputil"
)

const formatPrefix = "---HTTP-RESPONSE---\n"

// serializeResponse encodes the response, body included, into the
// stored entry format. The response body must be rewindable; callers
// hand in a response whose body reads from memory.
func serializeResponse(resp *http.Response) ([]byte, error) {
	b, err := httputil.DumpResponse(resp, true)
	if err != nil {
		return nil, err
	}

	return append([]byte(formatPrefix), b...), nil
}

// deserializeResponse reconstructs a response from stored bytes. The
// returned response's body replays the stored body bytes.
func deserializeResponse(b []byte) (*http.Response, error) {
	if len(b) < len(formatPrefix) || string(b[:len(formatPrefix)]) != formatPrefix {
		return nil, fmt.Errorf("invalid entry prefix")
	}

	resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(b[len(formatPrefix):])), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize response: %w", err)
	}

	return resp, nil
}
