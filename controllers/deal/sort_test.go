package dealControllers

import (
	"testing"

	"github.com/junaidrashid-git/cart-api/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortClause_CoversEveryOption(t *testing.T) {
	tests := []struct {
		opt  SortOption
		want repository.DealListSort
	}{
		{SortNewest, repository.DealListSort{Field: "created_at", Desc: true}},
		{SortOldest, repository.DealListSort{Field: "created_at", Desc: false}},
		{SortName, repository.DealListSort{Field: "name", Desc: false}},
		{SortEndingSoon, repository.DealListSort{Field: "end_date", Desc: false}},
		{SortBiggest, repository.DealListSort{Field: "discount_amount", Desc: true}},
	}
	for _, tc := range tests {
		t.Run(string(tc.opt), func(t *testing.T) {
			got, err := sortClause(tc.opt)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSortClause_RejectsUnknownOption(t *testing.T) {
	_, err := sortClause(SortOption("price_low_to_high"))
	assert.Error(t, err, "unknown sort options fail loudly instead of falling through to a default")
}
