// Package catalog is the read-only accessor for purchasable variants.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/junaidrashid-git/cart-api/models"
	"github.com/junaidrashid-git/cart-api/repository"
)

var ErrNotFound = errors.New("subproduct not found")

type Reader struct {
	store repository.Store
}

func NewReader(store repository.Store) *Reader {
	return &Reader{store: store}
}

func (r *Reader) GetSubproduct(ctx context.Context, id uint) (*models.Subproduct, error) {
	sp, err := r.store.Catalog().GetSubproduct(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get subproduct %d: %w", id, err)
	}
	return sp, nil
}

// IsPurchasable reports whether quantity units of the subproduct can be
// bought right now.
func IsPurchasable(sp *models.Subproduct, quantity int) bool {
	return sp.Available && sp.Stock >= quantity
}
