package cachetrip

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeRoundTrip(t *testing.T) {
	resp := &http.Response{
		Status:     "200 OK",
		StatusCode: http.StatusOK,
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header: http.Header{
			"Content-Type": []string{"application/json"},
			"X-Custom":     []string{"one", "two"},
		},
		Body:          io.NopCloser(strings.NewReader(`{"message":"hello"}`)),
		ContentLength: int64(len(`{"message":"hello"}`)),
	}

	data, err := serializeResponse(resp)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), formatPrefix))

	restored, err := deserializeResponse(data)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, restored.StatusCode)
	assert.Equal(t, "application/json", restored.Header.Get("Content-Type"))
	assert.Equal(t, []string{"one", "two"}, restored.Header.Values("X-Custom"))

	body, err := io.ReadAll(restored.Body)
	require.NoError(t, err)
	assert.Equal(t, `{"message":"hello"}`, string(body))
}

func TestDeserializeRejectsGarbage(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short", []byte("x")},
		{"wrong prefix", []byte("---SOMETHING-ELSE---\nHTTP/1.1 200 OK\r\n\r\n")},
		{"prefix only", []byte(formatPrefix)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := deserializeResponse(tt.data)
			assert.Error(t, err)
		})
	}
}
