package weather

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(serverURL string) *Client {
	return NewClient("test-key",
		WithBaseURL(serverURL),
		WithRetryInterval(time.Millisecond),
	)
}

func TestCurrentSuccess(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"name":"Delhi","main":{"temp":31.2}}`))
	}))
	defer server.Close()

	data, err := testClient(server.URL).Current(context.Background(), "Delhi")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Delhi","main":{"temp":31.2}}`, string(data))
	assert.Contains(t, gotQuery, "q=Delhi")
	assert.Contains(t, gotQuery, "appid=test-key")
	assert.Contains(t, gotQuery, "units=metric")
}

func TestCurrentRetriesServerErrors(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"name":"Delhi"}`))
	}))
	defer server.Close()

	data, err := testClient(server.URL).Current(context.Background(), "Delhi")
	require.NoError(t, err)
	assert.Equal(t, 3, calls, "two failures then success")
	assert.JSONEq(t, `{"name":"Delhi"}`, string(data))
}

func TestCurrentGivesUpAfterMaxRetries(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := testClient(server.URL).Current(context.Background(), "Delhi")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 4, calls, "initial attempt plus three retries")
}

func TestCurrentInvalidKeyIsNotRetried(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := testClient(server.URL).Current(context.Background(), "Delhi")
	assert.True(t, errors.Is(err, ErrInvalidAPIKey), "want ErrInvalidAPIKey, got %v", err)
	assert.Equal(t, 1, calls, "auth failures must not be retried")
}

func TestCurrentBadRequestIsNotRetried(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := testClient(server.URL).Current(context.Background(), "Nowhere")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 1, calls)
}
