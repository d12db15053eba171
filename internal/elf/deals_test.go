package elf

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeGiftList_ValidDocument(t *testing.T) {
	raw := `{"gifts": [{"name": "wool socks", "description": "warm", "original_price": "20",
		"current_price": "12", "marketplace": "Amazon", "rating": "4.5",
		"order_url": "https://example.com/socks", "image_url": "https://example.com/socks.png"}]}`

	out := NormalizeGiftList(raw)

	var list GiftList
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list.Gifts, 1)
	assert.Equal(t, "wool socks", list.Gifts[0].Name)
	assert.Equal(t, "12", list.Gifts[0].CurrentPrice)
}

func TestNormalizeGiftList_ClampsToMaxGifts(t *testing.T) {
	var entries []string
	for i := 0; i < MaxGifts+5; i++ {
		entries = append(entries, fmt.Sprintf(`{"name": "gift %d"}`, i))
	}
	raw := `{"gifts": [` + strings.Join(entries, ",") + `]}`

	var list GiftList
	require.NoError(t, json.Unmarshal([]byte(NormalizeGiftList(raw)), &list))
	assert.Len(t, list.Gifts, MaxGifts)
	assert.Equal(t, "gift 0", list.Gifts[0].Name)
}

func TestNormalizeGiftList_AllKeysAlwaysPresent(t *testing.T) {
	out := NormalizeGiftList(`{"gifts": [{"name": "bare"}]}`)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &payload))

	gifts := payload["gifts"].([]any)
	entry := gifts[0].(map[string]any)

	for _, key := range []string{"name", "description", "original_price", "current_price", "marketplace", "rating", "order_url", "image_url"} {
		_, ok := entry[key]
		assert.True(t, ok, "missing key %s", key)
	}
}

func TestNormalizeGiftList_ToleratesFencesAndProse(t *testing.T) {
	raw := "Here you go!\n```json\n{\"gifts\": [{\"name\": \"tea set\"}]}\n```\nEnjoy!"

	var list GiftList
	require.NoError(t, json.Unmarshal([]byte(NormalizeGiftList(raw)), &list))
	require.Len(t, list.Gifts, 1)
	assert.Equal(t, "tea set", list.Gifts[0].Name)
}

func TestNormalizeGiftList_CoercesNonStringFields(t *testing.T) {
	raw := `{"gifts": [{"name": "socks", "current_price": 12.5, "rating": 5, "description": null}]}`

	var list GiftList
	require.NoError(t, json.Unmarshal([]byte(NormalizeGiftList(raw)), &list))
	require.Len(t, list.Gifts, 1)
	assert.Equal(t, "12.5", list.Gifts[0].CurrentPrice)
	assert.Equal(t, "5", list.Gifts[0].Rating)
	assert.Equal(t, "", list.Gifts[0].Description)
}

func TestNormalizeGiftList_PreservesNumericPrecision(t *testing.T) {
	// A price with more digits than float64 can carry must survive the
	// round-trip unchanged.
	raw := `{"gifts": [{"name": "watch", "current_price": 1234567890.123456789}]}`

	var list GiftList
	require.NoError(t, json.Unmarshal([]byte(NormalizeGiftList(raw)), &list))
	require.Len(t, list.Gifts, 1)
	assert.Equal(t, "1234567890.123456789", list.Gifts[0].CurrentPrice)
}

func TestNormalizeGiftList_GarbageCollapsesToEmpty(t *testing.T) {
	tests := []string{
		"no json at all",
		"{broken",
		`{"gifts": "not an array"}`,
		`[]`,
		"",
	}

	for _, raw := range tests {
		assert.JSONEq(t, `{"gifts": []}`, NormalizeGiftList(raw), "input: %q", raw)
	}
}

func TestNormalizeProductList_Limit(t *testing.T) {
	var entries []string
	for i := 0; i < 30; i++ {
		entries = append(entries, fmt.Sprintf(`{"product_title": "deal %d"}`, i))
	}
	raw := `{"products": [` + strings.Join(entries, ",") + `]}`

	var capped ProductList
	require.NoError(t, json.Unmarshal([]byte(NormalizeProductList(raw, MaxDeals)), &capped))
	assert.Len(t, capped.Products, MaxDeals)

	var unbounded ProductList
	require.NoError(t, json.Unmarshal([]byte(NormalizeProductList(raw, 0)), &unbounded))
	assert.Len(t, unbounded.Products, 30)
}

func TestNormalizeProductList_AlwaysNonNilArray(t *testing.T) {
	for _, raw := range []string{"garbage", `{"msg": "No deals has been found for socks"}`, `{}`} {
		out := NormalizeProductList(raw, MaxDeals)
		assert.JSONEq(t, `{"products": []}`, out, "input: %q", raw)
	}
}

func TestNormalizeProductList_FieldMapping(t *testing.T) {
	raw := `{"products": [{"product_title": "socks", "product_price": "12",
		"product_original_price": "20", "product_star_rating": "4.5",
		"product_url": "https://example.com", "product_image": "https://example.com/i.png",
		"product_description": "warm", "marketplace_source": "Amazon"}]}`

	var list ProductList
	require.NoError(t, json.Unmarshal([]byte(NormalizeProductList(raw, 0)), &list))
	require.Len(t, list.Products, 1)

	p := list.Products[0]
	assert.Equal(t, "socks", p.Title)
	assert.Equal(t, "12", p.Price)
	assert.Equal(t, "20", p.OriginalPrice)
	assert.Equal(t, "Amazon", p.MarketplaceSource)
}
