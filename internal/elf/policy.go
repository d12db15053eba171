package elf

// Policy supplies the decision criteria that are interpreted by the
// reasoning model rather than executed as code: how the aggregator
// deduplicates and ranks, how the marketplace agent branches on the
// query shape, and how the root selects the final gifts. Swapping in a
// rule-based Policy changes the criteria without touching the topology.
type Policy interface {
	// AggregatorRanking describes the dedup and ordering criteria for
	// the merged deal list.
	AggregatorRanking() string

	// MarketplaceBranching describes how to handle a single product
	// versus a list of candidate products.
	MarketplaceBranching() string

	// GiftSelection describes how the final gifts are picked from the
	// ranked deals.
	GiftSelection() string
}

// ModelDrivenPolicy delegates every criterion to the reasoning model's
// free-text judgement. This is the reference behavior.
func ModelDrivenPolicy() Policy {
	return modelDrivenPolicy{}
}

type modelDrivenPolicy struct{}

func (modelDrivenPolicy) AggregatorRanking() string {
	return "Combine them into a single list removing duplicates - literal repeats only, " +
		"the same product offered by different marketplaces stays listed once per source. " +
		"Sort the list by the best discount available and gift suitability."
}

func (modelDrivenPolicy) MarketplaceBranching() string {
	return `According to the amount of products, use the MarketplaceSearchTeam to find the best gift deals over
multiple marketplaces in two different ways:
  1. If there is only a single product, use the product name to find the best deals available
     for that product as a Christmas gift.
  2. If there are multiple products, use the list of product names to find only the best
     products suitable as Christmas gifts.`
}

func (modelDrivenPolicy) GiftSelection() string {
	return "Select only the top 10 deals based on the user needs and sort them by the best " +
		"relationship between quality and price, keeping in mind they are intended as Christmas gifts."
}
