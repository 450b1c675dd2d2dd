package exclusion

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/outbank-dev/outbank-mcp/internal/model"
)

func TestParseList(t *testing.T) {
	assert.Equal(t, []string{"transfer", "savings"}, ParseList(" Transfer , SAVINGS "))
	assert.Equal(t, []string{"a"}, ParseList("a,,  ,"))
	assert.Nil(t, ParseList(""))
	assert.Nil(t, ParseList("  ,  "))

	// Display variant keeps the original case.
	assert.Equal(t, []string{"Transfer", "SAVINGS"}, ParseListDisplay(" Transfer , SAVINGS "))
}

func TestShouldExcludeCategories(t *testing.T) {
	rules := NewRules("transfer", "")

	tests := []struct {
		name string
		txn  model.Transaction
		want bool
	}{
		{"exact category", model.Transaction{Category: "Transfer"}, true},
		{"substring in category", model.Transaction{Category: "internal-transfer"}, true},
		{"substring in subcategory", model.Transaction{Subcategory: "Bank Transfer"}, true},
		{"substring in category path", model.Transaction{CategoryPath: "Finances & Insurances / Transfer"}, true},
		{"case insensitive", model.Transaction{Category: "TRANSFER"}, true},
		{"no match", model.Transaction{Category: "Food", Subcategory: "Supermarket", CategoryPath: "Food / Supermarket"}, false},
		{"all blank", model.Transaction{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rules.ShouldExclude(&tt.txn))
		})
	}
}

func TestShouldExcludeTags(t *testing.T) {
	rules := NewRules("", "internal, reimbursed")

	assert.True(t, rules.ShouldExclude(&model.Transaction{Tags: []string{"food", "internal"}}))
	assert.True(t, rules.ShouldExclude(&model.Transaction{Tags: []string{"Reimbursed-2024"}}))
	assert.False(t, rules.ShouldExclude(&model.Transaction{Tags: []string{"food"}}))
	assert.False(t, rules.ShouldExclude(&model.Transaction{}))

	// Tag terms never match category fields and vice versa.
	assert.False(t, rules.ShouldExclude(&model.Transaction{Category: "internal"}))
}

func TestShouldExcludeEmptyRules(t *testing.T) {
	rules := Rules{}
	assert.True(t, rules.Empty())
	assert.False(t, rules.ShouldExclude(&model.Transaction{
		Category: "Transfer",
		Tags:     []string{"internal"},
	}))
}
