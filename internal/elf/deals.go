package elf

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Gift is one entry of the final answer returned to the user.
type Gift struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	OriginalPrice string `json:"original_price"`
	CurrentPrice  string `json:"current_price"`
	Marketplace   string `json:"marketplace"`
	Rating        string `json:"rating"`
	OrderURL      string `json:"order_url"`
	ImageURL      string `json:"image_url"`
}

type GiftList struct {
	Gifts []Gift `json:"gifts"`
}

// Product is one entry of the aggregator's merged deal list.
type Product struct {
	Title             string `json:"product_title"`
	Description       string `json:"product_description"`
	OriginalPrice     string `json:"product_original_price"`
	Price             string `json:"product_price"`
	StarRating        string `json:"product_star_rating"`
	URL               string `json:"product_url"`
	Image             string `json:"product_image"`
	MarketplaceSource string `json:"marketplace_source"`
}

type ProductList struct {
	Products []Product `json:"products"`
}

// MaxGifts is the hard cap on the final answer.
const MaxGifts = 10

// MaxDeals is the hard cap on the marketplace agent's ranked deal list.
const MaxDeals = 20

// NormalizeGiftList coerces a model response into the final gift JSON
// document: at most MaxGifts entries, every entry carrying all eight
// keys (empty strings where the model omitted a field). Anything
// unparseable collapses to an empty gift list, never an error.
func NormalizeGiftList(raw string) string {
	payload, ok := parseObject(raw)

	list := GiftList{Gifts: []Gift{}}
	if ok {
		items, _ := payload["gifts"].([]any)
		for _, item := range items {
			if len(list.Gifts) == MaxGifts {
				break
			}

			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}

			list.Gifts = append(list.Gifts, Gift{
				Name:          fieldString(entry, "name"),
				Description:   fieldString(entry, "description"),
				OriginalPrice: fieldString(entry, "original_price"),
				CurrentPrice:  fieldString(entry, "current_price"),
				Marketplace:   fieldString(entry, "marketplace"),
				Rating:        fieldString(entry, "rating"),
				OrderURL:      fieldString(entry, "order_url"),
				ImageURL:      fieldString(entry, "image_url"),
			})
		}
	}

	out, _ := json.Marshal(list)

	return string(out)
}

// NormalizeProductList coerces a model response into the aggregator's
// products JSON document. The products array is always present and
// non-nil, even when both marketplace leaves returned sentinels. A
// limit of 0 means unbounded.
func NormalizeProductList(raw string, limit int) string {
	payload, ok := parseObject(raw)

	list := ProductList{Products: []Product{}}
	if ok {
		items, _ := payload["products"].([]any)
		for _, item := range items {
			if limit > 0 && len(list.Products) == limit {
				break
			}

			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}

			list.Products = append(list.Products, Product{
				Title:             fieldString(entry, "product_title"),
				Description:       fieldString(entry, "product_description"),
				OriginalPrice:     fieldString(entry, "product_original_price"),
				Price:             fieldString(entry, "product_price"),
				StarRating:        fieldString(entry, "product_star_rating"),
				URL:               fieldString(entry, "product_url"),
				Image:             fieldString(entry, "product_image"),
				MarketplaceSource: fieldString(entry, "marketplace_source"),
			})
		}
	}

	out, _ := json.Marshal(list)

	return string(out)
}

// parseObject extracts the first JSON object from a model response,
// tolerating markdown fences and surrounding prose. Numbers are kept
// as json.Number so prices survive re-encoding without float rounding.
func parseObject(raw string) (map[string]any, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, false
	}

	dec := json.NewDecoder(strings.NewReader(raw[start : end+1]))
	dec.UseNumber()

	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, false
	}

	return payload, true
}

func fieldString(entry map[string]any, key string) string {
	switch v := entry[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
