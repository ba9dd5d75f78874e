package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleItems() []LineItem {
	return []LineItem{
		{ID: "a", Name: "Reading", Category: "Tarot", Price: decimal.NewFromInt(10), Qty: 2},
		{ID: "b", Name: "Session", Category: "", Price: decimal.NewFromInt(5), Qty: 1},
	}
}

func TestEncode(t *testing.T) {
	assert.Equal(t, "[]", Encode(nil))
	assert.Equal(t, "[]", Encode([]LineItem{}))
	assert.JSONEq(t,
		`[{"id":"a","name":"Reading","category":"Tarot","price":10,"qty":2},
		  {"id":"b","name":"Session","category":"","price":5,"qty":1}]`,
		Encode(sampleItems()))
}

func TestDecode_RoundTrip(t *testing.T) {
	items := sampleItems()
	items = append(items, LineItem{ID: "c", Name: "Fraction", Price: decimal.RequireFromString("9.99"), Qty: 4})

	decoded, ok := Decode(Encode(items))
	require.True(t, ok)
	require.Len(t, decoded, len(items))
	assert.Equal(t, Encode(items), Encode(decoded))
	for i := range items {
		assert.Equal(t, items[i].ID, decoded[i].ID)
		assert.Equal(t, items[i].Qty, decoded[i].Qty)
		assert.True(t, items[i].Price.Equal(decoded[i].Price))
	}
}

func TestDecode_EmptyDocuments(t *testing.T) {
	for _, raw := range []string{"[]", "null", " [ ] "} {
		items, ok := Decode(raw)
		assert.True(t, ok, raw)
		assert.Empty(t, items, raw)
	}
}

func TestDecode_Malformed(t *testing.T) {
	cases := map[string]string{
		"empty string":    "",
		"invalid json":    "{not json",
		"object":          `{"id":"a"}`,
		"string":          `"cart"`,
		"missing id":      `[{"name":"x","price":1,"qty":1}]`,
		"duplicate id":    `[{"id":"a","price":1,"qty":1},{"id":"a","price":2,"qty":1}]`,
		"negative price":  `[{"id":"a","price":-1,"qty":1}]`,
		"string price":    `[{"id":"a","price":"ten","qty":1}]`,
		"zero qty":        `[{"id":"a","price":1,"qty":0}]`,
		"fractional qty":  `[{"id":"a","price":1,"qty":1.5}]`,
		"missing qty":     `[{"id":"a","price":1}]`,
		"item not object": `[1,2,3]`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			items, ok := Decode(raw)
			assert.False(t, ok)
			assert.Nil(t, items)
		})
	}
}
