package marketplace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

const amazonAPIURL = "https://real-time-amazon-data.p.rapidapi.com"

// providerTimeout bounds every marketplace search call. Retries belong
// to the model-call layer, not here.
const providerTimeout = 20 * time.Second

// SearchParams are the common arguments of a marketplace product search.
type SearchParams struct {
	Item     string
	MaxPrice float64
	SortBy   string
}

// AmazonClient searches the Amazon marketplace through the RapidAPI
// real-time data gateway.
type AmazonClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type AmazonClientDependencies struct {
	APIKey  string
	BaseURL string
}

func NewAmazonClient(deps AmazonClientDependencies) (*AmazonClient, error) {
	if deps.APIKey == "" {
		return nil, errors.New("marketplace api key is required")
	}

	baseURL := deps.BaseURL
	if baseURL == "" {
		baseURL = amazonAPIURL
	}

	return &AmazonClient{
		baseURL:    baseURL,
		apiKey:     deps.APIKey,
		httpClient: &http.Client{Timeout: providerTimeout},
	}, nil
}

// SearchDeals issues one GET to the provider search endpoint. A non-200
// answer is recovered as a no-deals sentinel payload; only transport
// failures surface as errors.
func (c *AmazonClient) SearchDeals(ctx context.Context, params SearchParams) (map[string]any, error) {
	if params.Item == "" {
		return nil, errors.New("item is required")
	}

	sortBy := params.SortBy
	if sortBy == "" {
		sortBy = "RELEVANCE"
	}

	query := url.Values{}
	query.Set("query", params.Item)
	query.Set("country", "IT")
	query.Set("sort_by", sortBy)
	query.Set("deals_and_discounts", "ALL_DISCOUNTS")
	query.Set("language", "it_IT")
	if params.MaxPrice > 0 {
		query.Set("max_price", strconv.FormatFloat(params.MaxPrice, 'f', -1, 64))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build amazon search request: %w", err)
	}
	req.Header.Set("X-RAPIDAPI-KEY", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("amazon search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warn().Int("status", resp.StatusCode).Str("item", params.Item).Msg("Amazon search API returned an error")

		return noDealsSentinel(params.Item), nil
	}

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode amazon search response: %w", err)
	}

	return payload, nil
}

func noDealsSentinel(item string) map[string]any {
	return map[string]any{
		"msg": fmt.Sprintf("No deals has been found for %s", item),
	}
}
