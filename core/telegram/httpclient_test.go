package telegram

import (
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyTransport struct {
	failures int
	calls    int
	err      error
}

func (f *flakyTransport) RoundTrip(*http.Request) (*http.Response, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("{}"))}, nil
}

func TestRetryTransportRetriesDialErrors(t *testing.T) {
	base := &flakyTransport{failures: 2, err: &net.OpError{Op: "dial", Err: errors.New("refused")}}
	rt := newRetryTransport(base, 3, 0)

	req, err := http.NewRequest(http.MethodPost, "https://api.telegram.org/botX/getMe", strings.NewReader("a=b"))
	require.NoError(t, err)
	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, 3, base.calls)
}

func TestRetryTransportStopsOnPermanentErrors(t *testing.T) {
	base := &flakyTransport{failures: 5, err: errors.New("tls: bad certificate")}
	rt := newRetryTransport(base, 3, 0)

	req, err := http.NewRequest(http.MethodGet, "https://api.telegram.org/botX/getMe", nil)
	require.NoError(t, err)
	_, err = rt.RoundTrip(req)
	assert.Error(t, err)
	assert.Equal(t, 1, base.calls)
}

func TestBuildHTTPClientCoversLongPoll(t *testing.T) {
	c := BuildHTTPClient(60 * time.Second)
	assert.Greater(t, c.Timeout, 60*time.Second)
	assert.Equal(t, defaultClientTimeout, BuildHTTPClient(0).Timeout)
}
