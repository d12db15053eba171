package marketplace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog/log"
)

const alibabaAPIURL = "https://aliexpress-datahub.p.rapidapi.com"

// AlibabaClient searches the AliExpress marketplace through the
// RapidAPI datahub gateway.
type AlibabaClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type AlibabaClientDependencies struct {
	APIKey  string
	BaseURL string
}

func NewAlibabaClient(deps AlibabaClientDependencies) (*AlibabaClient, error) {
	if deps.APIKey == "" {
		return nil, errors.New("marketplace api key is required")
	}

	baseURL := deps.BaseURL
	if baseURL == "" {
		baseURL = alibabaAPIURL
	}

	return &AlibabaClient{
		baseURL:    baseURL,
		apiKey:     deps.APIKey,
		httpClient: &http.Client{Timeout: providerTimeout},
	}, nil
}

// SearchDeals issues one GET to the provider search endpoint. Same
// recovery policy as the Amazon client: non-200 becomes a no-deals
// sentinel, transport failures surface as errors.
func (c *AlibabaClient) SearchDeals(ctx context.Context, params SearchParams) (map[string]any, error) {
	if params.Item == "" {
		return nil, errors.New("item is required")
	}

	query := url.Values{}
	query.Set("q", params.Item)
	query.Set("country", "IT")
	query.Set("sort", "priceAsc")
	query.Set("currency", "EUR")
	if params.MaxPrice > 0 {
		query.Set("end_price", strconv.FormatFloat(params.MaxPrice, 'f', -1, 64))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/item_search_4?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build alibaba search request: %w", err)
	}
	req.Header.Set("X-RAPIDAPI-KEY", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("alibaba search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warn().Int("status", resp.StatusCode).Str("item", params.Item).Msg("Alibaba search API returned an error")

		return noDealsSentinel(params.Item), nil
	}

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode alibaba search response: %w", err)
	}

	return payload, nil
}
