// Package elf builds the gift-advisor orchestration graph: a research
// step, a parallel marketplace search team, an aggregation step, and a
// conversational root that formats the final answer.
package elf

import (
	"errors"
	"fmt"

	"github.com/tinselworks/elfagent/pkg/agentkit/agent"
	"github.com/tinselworks/elfagent/pkg/agentkit/provider"
	"github.com/tinselworks/elfagent/pkg/agentkit/tool"
)

// Output slot names wired through the graph. Each slot has exactly one
// producer; ValidateSlots verifies the wiring at build time.
const (
	SlotResearch      = "google_results"
	SlotAmazon        = "amazon"
	SlotAlibaba       = "alibaba"
	SlotDeals         = "deals"
	SlotVerifiedQuery = "verified_query"
)

// GraphDependencies carries everything the topology needs. Building the
// graph performs no network calls; missing pieces fail construction.
type GraphDependencies struct {
	// ConversationModel drives the root, the aggregator and the
	// marketplace coordinator.
	ConversationModel provider.LanguageModel

	// ResearchModel is a model with native web-search grounding.
	ResearchModel provider.LanguageModel

	// SearchModel drives the two marketplace leaf agents.
	SearchModel provider.LanguageModel

	AmazonTool  tool.Tool
	AlibabaTool tool.Tool

	// ConfirmTool is required only when EnableVerification is set.
	ConfirmTool        tool.Tool
	EnableVerification bool

	// Policy defaults to ModelDrivenPolicy.
	Policy Policy
}

func (d GraphDependencies) validate() error {
	if d.ConversationModel == nil {
		return errors.New("conversation model is required")
	}
	if d.ResearchModel == nil {
		return errors.New("research model is required")
	}
	if d.SearchModel == nil {
		return errors.New("search model is required")
	}
	if d.AmazonTool == nil {
		return errors.New("amazon search tool is required")
	}
	if d.AlibabaTool == nil {
		return errors.New("alibaba search tool is required")
	}
	if d.EnableVerification && d.ConfirmTool == nil {
		return errors.New("confirmation tool is required when verification is enabled")
	}

	return nil
}

// BuildRootAgent constructs the full topology:
//
//	ElfAgent
//	└── DirectorAgent (sequential, as tool)
//	    ├── ProductSearchAgent            → {google_results}
//	    ├── VerificationAgent (optional)  → {verified_query}
//	    └── MarketplaceAgent              → {deals}
//	        └── MarketplaceCoordinator (sequential, as tool)
//	            ├── MarketplaceSearchTeam (parallel)
//	            │   ├── AmazonAgent       → {amazon}
//	            │   └── AlibabaAgent      → {alibaba}
//	            └── ProductAggregatorAgent
func BuildRootAgent(deps GraphDependencies) (agent.Agent, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}

	policy := deps.Policy
	if policy == nil {
		policy = ModelDrivenPolicy()
	}

	research, err := buildResearchAgent(deps.ResearchModel)
	if err != nil {
		return nil, err
	}

	amazon, err := buildAmazonAgent(deps.SearchModel, deps.AmazonTool)
	if err != nil {
		return nil, err
	}

	alibaba, err := buildAlibabaAgent(deps.SearchModel, deps.AlibabaTool)
	if err != nil {
		return nil, err
	}

	marketplace, err := buildMarketplaceAgent(deps.ConversationModel, policy, amazon, alibaba)
	if err != nil {
		return nil, err
	}

	directorChildren := []agent.Agent{research}

	if deps.EnableVerification {
		verifier, err := buildVerificationAgent(deps.ConversationModel, deps.ConfirmTool)
		if err != nil {
			return nil, err
		}
		directorChildren = append(directorChildren, verifier)
	}

	directorChildren = append(directorChildren, marketplace)

	director := agent.NewSequential(
		"DirectorAgent",
		"Coordinates the workflow among specialized agents to find the best Christmas gift deals",
		directorChildren...,
	)

	root, err := buildElfAgent(deps.ConversationModel, policy, director)
	if err != nil {
		return nil, err
	}

	if err := agent.ValidateSlots(root); err != nil {
		return nil, fmt.Errorf("invalid agent graph: %w", err)
	}

	return root, nil
}

func buildResearchAgent(model provider.LanguageModel) (agent.Agent, error) {
	return agent.New("ProductSearchAgent",
		agent.WithModel(model),
		agent.WithDescription("An agent that collects information about Christmas gift ideas for a specific product or a category of products."),
		agent.WithInstruction(`You are an agent specialized in collecting and summarizing information about
the main features of a specific product or a category of products suitable as Christmas gifts.
Determine from the user's query if they are looking for a specific product or a category of products as gifts.
Use web search for gathering data online about the product features, prices, and gift suitability.
Make a list of the top 5 features providing their pros and cons and the cost of the product
on the market. Collect these information in a json format like this:
{
  "features": [
    {
      "feature_name": "...",
      "feature_value": "...",
      "pros": ["...", "..."],
      "cons": ["...", "..."]
    }
  ],
  "price": "...",
  "product_name": "..."
}
Use this for each product if the target is a category of products.`),
		agent.WithOutputKey(SlotResearch),
	)
}

func buildAmazonAgent(model provider.LanguageModel, searchTool tool.Tool) (agent.Agent, error) {
	return agent.New("AmazonAgent",
		agent.WithModel(model),
		agent.WithTools(searchTool),
		agent.WithDescription("Agent looks for the best Christmas gift deals over the Amazon marketplace"),
		agent.WithInstruction(`You are getting the name of a product to look for on Amazon as a Christmas gift.
Collect the best ten deals and provide back the list of products with product_title, product_price,
product_original_price, product_star_rating, product_url, product_photo.
Use the tool get_amazon_deals_by_product for performing the search and
if you receive max_price or sort_by use them in the request.
If the search returns no deals, answer with an empty product list.`),
		agent.WithOutputKey(SlotAmazon),
	)
}

func buildAlibabaAgent(model provider.LanguageModel, searchTool tool.Tool) (agent.Agent, error) {
	return agent.New("AlibabaAgent",
		agent.WithModel(model),
		agent.WithTools(searchTool),
		agent.WithDescription("Agent looks for the best Christmas gift deals over the Alibaba marketplace"),
		agent.WithInstruction(`You are getting the name of a product to look for on Alibaba as a Christmas gift.
Collect the best ten deals and provide back the list of products available
in the field resultList. For each product collect title, itemUrl, image.
The price is inside sku.def together with promotionPrice.
All information about the product must be provided back as
product_original_price, product_star_rating, product_url, product_photo.
Use the tool get_alibaba_deals_by_product for performing the search and
if you receive max_price use it in the request.
If the search returns no deals, answer with an empty product list.`),
		agent.WithOutputKey(SlotAlibaba),
	)
}

func buildMarketplaceAgent(model provider.LanguageModel, policy Policy, searchAgents ...agent.Agent) (agent.Agent, error) {
	team := agent.NewParallel(
		"MarketplaceSearchTeam",
		"A team of agents that perform searches over different online marketplaces",
		searchAgents...,
	)

	aggregator, err := agent.New("ProductAggregatorAgent",
		agent.WithModel(model),
		agent.WithDescription("Merges the marketplace search results into a single ranked deal list"),
		agent.WithInstruction(fmt.Sprintf(`Collect the list of Christmas gift products from the different marketplace agents.
%s
Each deal must contain product_title, product_description, product_original_price,
product_price, product_star_rating, product_url, product_image, marketplace_source.
Provide back the final list of products as a json document:
{
  "products": [
    {
      "product_title": "...",
      "product_description": "...",
      "product_original_price": "...",
      "product_price": "...",
      "product_star_rating": "...",
      "product_url": "...",
      "product_image": "...",
      "marketplace_source": "Amazon | Alibaba"
    }
  ]
}
If no marketplace returned any deal, provide back {"products": []}.`, policy.AggregatorRanking())),
		agent.WithOutputTransform(func(raw string) string {
			return NormalizeProductList(raw, 0)
		}),
	)
	if err != nil {
		return nil, err
	}

	coordinator := agent.NewSequential(
		"MarketplaceCoordinator",
		"An agent coordinator that looks for the best Christmas gift deals over multiple marketplaces",
		team,
		aggregator,
	)

	return agent.New("MarketplaceAgent",
		agent.WithModel(model),
		agent.WithTools(agent.NewAgentTool(coordinator)),
		agent.WithDescription("Agent that looks for the best Christmas gift deals for a specific product or a category of products"),
		agent.WithInstruction(fmt.Sprintf(`You are an expert in finding the best Christmas gift deals online for a specific product or a
category of products. Collect the list of products available in {%s}.
%s
Provide back only the top 20 deals based on the best relationship between quality and discount,
as a json document with a "products" array.`, SlotResearch, policy.MarketplaceBranching())),
		agent.WithOutputKey(SlotDeals),
		agent.WithOutputTransform(func(raw string) string {
			return NormalizeProductList(raw, MaxDeals)
		}),
	)
}

func buildVerificationAgent(model provider.LanguageModel, confirmTool tool.Tool) (agent.Agent, error) {
	return agent.New("VerificationAgent",
		agent.WithModel(model),
		agent.WithTools(confirmTool),
		agent.WithDescription("Asks the user to approve the candidate products before searching for deals"),
		agent.WithInstruction(fmt.Sprintf(`Collect the products in {%s} and use the ask_confirmation tool to show them
to the user and ask for approval. Provide back the products if the user approved, otherwise
stop the conversation.`, SlotResearch)),
		agent.WithOutputKey(SlotVerifiedQuery),
	)
}

func buildElfAgent(model provider.LanguageModel, policy Policy, director agent.Agent) (agent.Agent, error) {
	return agent.New("ElfAgent",
		agent.WithModel(model),
		agent.WithTools(agent.NewAgentTool(director)),
		agent.WithDescription(`ElfAgent is an expert Christmas gift advisor that finds the best deals on the web for
Christmas gifts, whether for a specific product or a category of products`),
		agent.WithInstruction(fmt.Sprintf(`You are a helpful Christmas Elf expert in finding the best gift deals online for the holiday season.
Your task is to help users identify and summarize the top Christmas gift deals available across multiple marketplaces.
Use the DirectorAgent to coordinate the activities for searching the best
gift deals over different marketplaces.
The list of best deals will be available in {%s}.
%s
Provide the results as a json document such as:
{"gifts": [{"name": "sample1", "description": "sample_description", "original_price": "10", "current_price": "5",
"marketplace": "Amazon", "rating": "5", "order_url": "https://amazon.com/sample", "image_url": "https://amazon.com/sample.png"}]}`,
			SlotDeals, policy.GiftSelection())),
		agent.WithOutputTransform(NormalizeGiftList),
	)
}
