package marketplace

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAmazonClient_RequiresKey(t *testing.T) {
	_, err := NewAmazonClient(AmazonClientDependencies{})
	require.Error(t, err)
}

func TestAmazonClient_SearchDeals(t *testing.T) {
	var gotQuery map[string]string
	var gotKey string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/search", r.URL.Path)

		gotKey = r.Header.Get("X-RAPIDAPI-KEY")
		gotQuery = map[string]string{}
		for key := range r.URL.Query() {
			gotQuery[key] = r.URL.Query().Get(key)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data": {"products": [{"product_title": "wool socks"}]}}`))
	}))
	defer server.Close()

	client, err := NewAmazonClient(AmazonClientDependencies{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	payload, err := client.SearchDeals(context.Background(), SearchParams{
		Item:     "wool socks",
		MaxPrice: 25,
	})
	require.NoError(t, err)

	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "wool socks", gotQuery["query"])
	assert.Equal(t, "IT", gotQuery["country"])
	assert.Equal(t, "RELEVANCE", gotQuery["sort_by"])
	assert.Equal(t, "ALL_DISCOUNTS", gotQuery["deals_and_discounts"])
	assert.Equal(t, "it_IT", gotQuery["language"])
	assert.Equal(t, "25", gotQuery["max_price"])

	data, ok := payload["data"].(map[string]any)
	require.True(t, ok)
	assert.NotEmpty(t, data["products"])
}

func TestAmazonClient_LanguageParamIsStable(t *testing.T) {
	// The locale must not change with the price filter.
	var languages []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		languages = append(languages, r.URL.Query().Get("language"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client, err := NewAmazonClient(AmazonClientDependencies{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.SearchDeals(context.Background(), SearchParams{Item: "socks"})
	require.NoError(t, err)
	_, err = client.SearchDeals(context.Background(), SearchParams{Item: "socks", MaxPrice: 25})
	require.NoError(t, err)

	assert.Equal(t, []string{"it_IT", "it_IT"}, languages)
}

func TestAmazonClient_NonOKBecomesSentinel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, err := NewAmazonClient(AmazonClientDependencies{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	payload, err := client.SearchDeals(context.Background(), SearchParams{Item: "wool socks"})
	require.NoError(t, err)
	assert.Equal(t, "No deals has been found for wool socks", payload["msg"])
}

func TestAmazonClient_RequiresItem(t *testing.T) {
	client, err := NewAmazonClient(AmazonClientDependencies{APIKey: "test-key"})
	require.NoError(t, err)

	_, err = client.SearchDeals(context.Background(), SearchParams{})
	require.Error(t, err)
}

func TestAlibabaClient_SearchDeals(t *testing.T) {
	var gotQuery map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/item_search_4", r.URL.Path)

		gotQuery = map[string]string{}
		for key := range r.URL.Query() {
			gotQuery[key] = r.URL.Query().Get(key)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result": {"resultList": []}}`))
	}))
	defer server.Close()

	client, err := NewAlibabaClient(AlibabaClientDependencies{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.SearchDeals(context.Background(), SearchParams{
		Item:     "wool socks",
		MaxPrice: 19.5,
	})
	require.NoError(t, err)

	assert.Equal(t, "wool socks", gotQuery["q"])
	assert.Equal(t, "IT", gotQuery["country"])
	assert.Equal(t, "priceAsc", gotQuery["sort"])
	assert.Equal(t, "EUR", gotQuery["currency"])
	assert.Equal(t, "19.5", gotQuery["end_price"])
}

func TestAlibabaClient_NonOKBecomesSentinel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, err := NewAlibabaClient(AlibabaClientDependencies{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	payload, err := client.SearchDeals(context.Background(), SearchParams{Item: "tea set"})
	require.NoError(t, err)
	assert.Equal(t, "No deals has been found for tea set", payload["msg"])
}

type stubSearcher struct {
	payload map[string]any
	err     error
	got     SearchParams
}

func (s *stubSearcher) SearchDeals(ctx context.Context, params SearchParams) (map[string]any, error) {
	s.got = params

	return s.payload, s.err
}

func TestSearchFunc_MarshalsPayload(t *testing.T) {
	searcher := &stubSearcher{payload: map[string]any{"data": "ok"}}
	fn := searchFunc("amazon", searcher)

	out, err := fn(context.Background(), nil, `{"item": "socks", "max_price": 30, "sort_by": "LOWEST_PRICE"}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"data": "ok"}`, out)

	assert.Equal(t, "socks", searcher.got.Item)
	assert.Equal(t, float64(30), searcher.got.MaxPrice)
	assert.Equal(t, "LOWEST_PRICE", searcher.got.SortBy)
}

func TestSearchFunc_NeverRaises(t *testing.T) {
	tests := []struct {
		name     string
		searcher *stubSearcher
		args     string
	}{
		{
			name:     "invalid arguments",
			searcher: &stubSearcher{payload: map[string]any{}},
			args:     `not json`,
		},
		{
			name:     "transport error",
			searcher: &stubSearcher{err: errors.New("connection refused")},
			args:     `{"item": "socks"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn := searchFunc("amazon", tt.searcher)

			out, err := fn(context.Background(), nil, tt.args)
			require.NoError(t, err)
			assert.Equal(t, "{}", out)
		})
	}
}
