package marketplace

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/tinselworks/elfagent/pkg/agentkit/tool"
)

// searcher is the common surface of the two marketplace clients.
type searcher interface {
	SearchDeals(ctx context.Context, params SearchParams) (map[string]any, error)
}

type toolArgs struct {
	Item     string  `json:"item"`
	MaxPrice float64 `json:"max_price,omitempty"`
	SortBy   string  `json:"sort_by,omitempty"`
}

func searchParameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"item": map[string]any{
				"type":        "string",
				"description": "Name of the product to search for",
			},
			"max_price": map[string]any{
				"type":        "number",
				"description": "Optional upper bound for the product price",
			},
			"sort_by": map[string]any{
				"type":        "string",
				"description": "Optional sort criterion for the results",
			},
		},
		"required": []string{"item"},
	}
}

// NewAmazonSearchTool wraps the Amazon client as an agent tool. The
// tool never returns an error past its boundary: a failed call yields
// an empty-object sentinel so the aggregation step downstream still
// receives well-formed input.
func NewAmazonSearchTool(client *AmazonClient) tool.Tool {
	return tool.Define(
		"get_amazon_deals_by_product",
		"Search Amazon for the best deals on a product. Returns the raw provider payload.",
		searchParameters(),
		searchFunc("amazon", client),
	)
}

// NewAlibabaSearchTool wraps the Alibaba client as an agent tool with
// the same never-raise policy.
func NewAlibabaSearchTool(client *AlibabaClient) tool.Tool {
	return tool.Define(
		"get_alibaba_deals_by_product",
		"Search Alibaba for the best deals on a product. Returns the raw provider payload.",
		searchParameters(),
		searchFunc("alibaba", client),
	)
}

func searchFunc(name string, client searcher) func(ctx context.Context, tctx *tool.Context, args string) (string, error) {
	return func(ctx context.Context, tctx *tool.Context, args string) (string, error) {
		var parsed toolArgs
		if err := json.Unmarshal([]byte(args), &parsed); err != nil {
			log.Warn().Err(err).Str("marketplace", name).Msg("Invalid search tool arguments")

			return "{}", nil
		}

		payload, err := client.SearchDeals(ctx, SearchParams{
			Item:     parsed.Item,
			MaxPrice: parsed.MaxPrice,
			SortBy:   parsed.SortBy,
		})
		if err != nil {
			log.Warn().Err(err).Str("marketplace", name).Str("item", parsed.Item).Msg("Marketplace search failed")

			return "{}", nil
		}

		out, err := json.Marshal(payload)
		if err != nil {
			return "{}", nil
		}

		return string(out), nil
	}
}
