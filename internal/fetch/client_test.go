package fetch_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"hereforus/apps/recommender/internal/fetch"
)

func TestFetchList(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"TITLE":"축제1"},{"TITLE":"축제2"}]`))
	}))
	defer ts.Close()

	client := fetch.NewClient(3)
	records, err := client.FetchList(context.Background(), "festival", ts.URL)
	assert.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, "축제1", records[0]["TITLE"])
}

func TestFetchList_NonOK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	}))
	defer ts.Close()

	client := fetch.NewClient(3)
	_, err := client.FetchList(context.Background(), "movie", ts.URL)

	var fetchErr *fetch.Error
	assert.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, http.StatusBadGateway, fetchErr.Status)
	assert.Equal(t, "movie", fetchErr.Domain)
	assert.Contains(t, fetchErr.Detail, "upstream down")
}

func TestFetchList_RateLimitRecovery(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			w.Write([]byte(`[{"TITLE":"ok"}]`))
		}
	}))
	defer ts.Close()

	client := fetch.NewClient(3)
	start := time.Now()
	records, err := client.FetchList(context.Background(), "festival", ts.URL)
	elapsed := time.Since(start)

	assert.NoError(t, err)
	assert.Len(t, records, 1)
	assert.GreaterOrEqual(t, elapsed, 3*time.Second)
	assert.EqualValues(t, 3, calls.Load())
}

func TestFetchList_RetryCapExhausted(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	client := fetch.NewClient(2)
	_, err := client.FetchList(context.Background(), "festival", ts.URL)

	var fetchErr *fetch.Error
	assert.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, http.StatusTooManyRequests, fetchErr.Status)
	assert.EqualValues(t, 3, calls.Load()) // initial attempt + 2 retries
}

func TestFetchPage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "100", r.URL.Query().Get("size"))
		w.Write([]byte(`{"content":[{"title":"식당"}]}`))
	}))
	defer ts.Close()

	client := fetch.NewClient(3)
	records, err := client.FetchPage(context.Background(), "food", ts.URL, 2, 100)
	assert.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestFetchPage_MissingContent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"totalElements":0}`))
	}))
	defer ts.Close()

	client := fetch.NewClient(3)
	records, err := client.FetchPage(context.Background(), "food", ts.URL, 0, 100)
	assert.NoError(t, err)
	assert.Empty(t, records)
}

func TestFetchList_Malformed(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not":"an array"}`))
	}))
	defer ts.Close()

	client := fetch.NewClient(3)
	_, err := client.FetchList(context.Background(), "performance", ts.URL)

	var fetchErr *fetch.Error
	assert.True(t, errors.As(err, &fetchErr))
	assert.Contains(t, fetchErr.Detail, "malformed")
}
