package fetch

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func imageServer(t *testing.T, contentType string, body []byte) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.WriteHeader(http.StatusOK)
		w.Write(body)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestParseURL(t *testing.T) {
	tests := []struct {
		raw string
		err error
	}{
		{"https://example.com/cat.jpg", nil},
		{"  http://example.com/cat.jpg\n", nil},
		{"", ErrURLRequired},
		{"   ", ErrURLRequired},
		{"ftp://example.com/cat.jpg", ErrScheme},
		{"example.com/cat.jpg", ErrScheme},
		{"://invalid", ErrInvalidURL},
		{"https:///cat.jpg", ErrNoHost},
		{"https://example.com/" + strings.Repeat("a", 200), ErrURLTooLong},
	}

	for _, tc := range tests {
		_, err := ParseURL(tc.raw, 100)
		if tc.err == nil {
			assert.NoError(t, err, "ParseURL(%q)", tc.raw)
		} else {
			assert.ErrorIs(t, err, tc.err, "ParseURL(%q)", tc.raw)
		}
	}
}

func TestParseURLDefaultMaxLength(t *testing.T) {
	_, err := ParseURL("https://example.com/"+strings.Repeat("a", 10*1024), 0)
	assert.ErrorIs(t, err, ErrURLTooLong)
}

func TestGetReturnsBodyAndContentType(t *testing.T) {
	body := []byte("\x89PNG\r\n\x1a\nfake")
	server := imageServer(t, "image/png", body)

	payload, err := New(Config{}).Get(context.Background(), server.URL+"/image")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, payload.Status)
	assert.Equal(t, "image/png", payload.ContentType)
	assert.Equal(t, body, payload.Body)
	assert.True(t, payload.IsImage())
}

func TestGetEmptyBody(t *testing.T) {
	server := imageServer(t, "image/gif", nil)

	payload, err := New(Config{}).Get(context.Background(), server.URL+"/empty.gif")
	require.NoError(t, err)
	assert.Empty(t, payload.Body)
}

func TestGetSendsUserAgent(t *testing.T) {
	agents := make(chan string, 2)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agents <- r.Header.Get("User-Agent")
	}))
	defer server.Close()

	_, err := New(Config{}).Get(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, DefaultUserAgent, <-agents)

	_, err = New(Config{UserAgent: "custom/1"}).Get(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "custom/1", <-agents)
}

func TestGetFollowsRedirects(t *testing.T) {
	final := imageServer(t, "image/jpeg", []byte("jpeg"))
	redirect := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, final.URL+"/real.jpg", http.StatusFound)
	}))
	defer redirect.Close()

	payload, err := New(Config{}).Get(context.Background(), redirect.URL+"/short")
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), payload.Body)
	assert.Equal(t, final.URL+"/real.jpg", payload.URL)
}

func TestGetNonSuccessStatus(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusForbidden, http.StatusInternalServerError} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		_, err := New(Config{}).Get(context.Background(), server.URL+"/cat.jpg")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected status")
		assert.Contains(t, err.Error(), http.StatusText(status))
		server.Close()
	}
}

func TestGetSingleRequest(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := New(Config{}).Get(context.Background(), server.URL)
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load(), "failed requests must not be retried")
}

func TestGetUnreachableHost(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	listener.Close()

	_, err = New(Config{RequestTimeout: 2 * time.Second}).Get(context.Background(), "http://"+addr+"/cat.jpg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request failed")
}

func TestGetTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	start := time.Now()
	_, err := New(Config{RequestTimeout: 100 * time.Millisecond}).Get(context.Background(), server.URL)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestGetBodyTooLarge(t *testing.T) {
	server := imageServer(t, "image/png", bytes.Repeat([]byte("x"), 2048))

	_, err := New(Config{MaxBodySize: 1024}).Get(context.Background(), server.URL)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestGetBodyTooLargeChunked(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		for i := 0; i < 4; i++ {
			w.Write(bytes.Repeat([]byte("x"), 512))
			w.(http.Flusher).Flush()
		}
	}))
	defer server.Close()

	_, err := New(Config{MaxBodySize: 1024}).Get(context.Background(), server.URL)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestGetBodyExactlyAtLimit(t *testing.T) {
	server := imageServer(t, "image/png", bytes.Repeat([]byte("x"), 1024))

	payload, err := New(Config{MaxBodySize: 1024}).Get(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Len(t, payload.Body, 1024)
}

func TestGetCanceledContext(t *testing.T) {
	server := imageServer(t, "image/png", []byte("x"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(Config{}).Get(ctx, server.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestGetRendersProgress(t *testing.T) {
	body := bytes.Repeat([]byte{0xff}, 64*1024)
	server := imageServer(t, "image/jpeg", body)

	var out bytes.Buffer
	payload, err := New(Config{Progress: &out}).Get(context.Background(), server.URL+"/big.jpg")
	require.NoError(t, err)
	assert.Equal(t, body, payload.Body)
}

func TestGetProgressOnFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for i := 0; i < 4; i++ {
			w.Write(bytes.Repeat([]byte("x"), 1024))
			w.(http.Flusher).Flush()
		}
	}))
	defer server.Close()

	var out bytes.Buffer
	_, err := New(Config{MaxBodySize: 1024, Progress: &out}).Get(context.Background(), server.URL)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestPayloadIsImage(t *testing.T) {
	tests := []struct {
		contentType string
		want        bool
	}{
		{"image/png", true},
		{"IMAGE/JPEG; foo=bar", true},
		{"text/html; charset=utf-8", false},
		{"", false},
	}

	for _, tc := range tests {
		p := Payload{ContentType: tc.contentType}
		assert.Equal(t, tc.want, p.IsImage(), "IsImage(%q)", tc.contentType)
	}
}
