package dealControllers

import (
	"fmt"

	"github.com/junaidrashid-git/cart-api/repository"
)

// SortOption enumerates the admin deal-listing sort orders.
type SortOption string

const (
	SortNewest     SortOption = "newest"
	SortOldest     SortOption = "oldest"
	SortName       SortOption = "name"
	SortEndingSoon SortOption = "ending_soon"
	SortBiggest    SortOption = "biggest"
)

// sortClause maps a sort option to a concrete field and direction. Every
// option is matched explicitly; an unknown value is an error, not a
// silent default.
func sortClause(opt SortOption) (repository.DealListSort, error) {
	switch opt {
	case SortNewest:
		return repository.DealListSort{Field: "created_at", Desc: true}, nil
	case SortOldest:
		return repository.DealListSort{Field: "created_at", Desc: false}, nil
	case SortName:
		return repository.DealListSort{Field: "name", Desc: false}, nil
	case SortEndingSoon:
		return repository.DealListSort{Field: "end_date", Desc: false}, nil
	case SortBiggest:
		return repository.DealListSort{Field: "discount_amount", Desc: true}, nil
	default:
		return repository.DealListSort{}, fmt.Errorf("unknown sort option %q", opt)
	}
}
