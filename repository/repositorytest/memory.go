// Package repositorytest provides an in-memory repository.Store used by
// service tests. Atomic snapshots the whole state and restores it when the
// callback fails, so rollback behavior can be asserted without a database.
package repositorytest

import (
	"context"
	"sort"
	"time"

	"github.com/junaidrashid-git/cart-api/models"
	"github.com/junaidrashid-git/cart-api/repository"
)

type state struct {
	subproducts map[uint]models.Subproduct
	scopes      map[uint]models.SubproductScope
	carts       map[uint]models.Cart
	items       map[uint]models.CartItem
	deals       map[uint]models.Deal
	orders      map[uint]models.Order
	nextCartID  uint
	nextItemID  uint
	nextDealID  uint
	nextOrderID uint
}

func (s *state) clone() *state {
	c := &state{
		subproducts: make(map[uint]models.Subproduct, len(s.subproducts)),
		scopes:      make(map[uint]models.SubproductScope, len(s.scopes)),
		carts:       make(map[uint]models.Cart, len(s.carts)),
		items:       make(map[uint]models.CartItem, len(s.items)),
		deals:       make(map[uint]models.Deal, len(s.deals)),
		orders:      make(map[uint]models.Order, len(s.orders)),
		nextCartID:  s.nextCartID,
		nextItemID:  s.nextItemID,
		nextDealID:  s.nextDealID,
		nextOrderID: s.nextOrderID,
	}
	for k, v := range s.subproducts {
		c.subproducts[k] = v
	}
	for k, v := range s.scopes {
		c.scopes[k] = v
	}
	for k, v := range s.carts {
		c.carts[k] = v
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	for k, v := range s.deals {
		c.deals[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	return c
}

// Store is an in-memory repository.Store.
type Store struct {
	st *state
}

func NewStore() *Store {
	return &Store{st: &state{
		subproducts: map[uint]models.Subproduct{},
		scopes:      map[uint]models.SubproductScope{},
		carts:       map[uint]models.Cart{},
		items:       map[uint]models.CartItem{},
		deals:       map[uint]models.Deal{},
		orders:      map[uint]models.Order{},
		nextCartID:  1,
		nextItemID:  1,
		nextDealID:  1,
		nextOrderID: 1,
	}}
}

// AddSubproduct seeds a subproduct and its deal scope.
func (s *Store) AddSubproduct(sp models.Subproduct, scope models.SubproductScope) {
	s.st.subproducts[sp.ID] = sp
	scope.SubproductID = sp.ID
	if scope.ProductID == 0 {
		scope.ProductID = sp.ProductID
	}
	s.st.scopes[sp.ID] = scope
}

// AddDeal seeds a deal.
func (s *Store) AddDeal(deal models.Deal) {
	if deal.ID == 0 {
		deal.ID = s.st.nextDealID
	}
	if deal.ID >= s.st.nextDealID {
		s.st.nextDealID = deal.ID + 1
	}
	s.st.deals[deal.ID] = deal
}

// Subproduct returns the current stored subproduct.
func (s *Store) Subproduct(id uint) models.Subproduct { return s.st.subproducts[id] }

// Cart returns the current stored cart.
func (s *Store) Cart(id uint) models.Cart { return s.st.carts[id] }

// AllOrders returns all stored orders.
func (s *Store) AllOrders() []models.Order {
	out := make([]models.Order, 0, len(s.st.orders))
	for _, o := range s.st.orders {
		out = append(out, o)
	}
	return out
}

func (s *Store) Catalog() repository.CatalogRepository { return (*memCatalog)(s) }
func (s *Store) Carts() repository.CartRepository      { return (*memCarts)(s) }
func (s *Store) Deals() repository.DealRepository      { return (*memDeals)(s) }
func (s *Store) Orders() repository.OrderRepository    { return (*memOrders)(s) }

func (s *Store) Atomic(ctx context.Context, fn func(repository.Store) error) error {
	snapshot := s.st.clone()
	if err := fn(s); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

type memCatalog Store

func (r *memCatalog) GetSubproduct(ctx context.Context, id uint) (*models.Subproduct, error) {
	sp, ok := r.st.subproducts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &sp, nil
}

func (r *memCatalog) GetSubproductForUpdate(ctx context.Context, id uint) (*models.Subproduct, error) {
	return r.GetSubproduct(ctx, id)
}

func (r *memCatalog) SaveSubproduct(ctx context.Context, sp *models.Subproduct) error {
	r.st.subproducts[sp.ID] = *sp
	return nil
}

func (r *memCatalog) ScopeFor(ctx context.Context, subproductIDs []uint) (map[uint]models.SubproductScope, error) {
	out := make(map[uint]models.SubproductScope, len(subproductIDs))
	for _, id := range subproductIDs {
		if scope, ok := r.st.scopes[id]; ok {
			out[id] = scope
		}
	}
	return out, nil
}

type memCarts Store

func (r *memCarts) findActive(owner models.OwnerKey) (*models.Cart, error) {
	for _, cart := range r.st.carts {
		if cart.Status == models.CartStatusActive && cart.OwnedBy(owner) {
			c := cart
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memCarts) FindActiveByOwner(ctx context.Context, owner models.OwnerKey) (*models.Cart, error) {
	return r.findActive(owner)
}

func (r *memCarts) FindActiveByOwnerForUpdate(ctx context.Context, owner models.OwnerKey) (*models.Cart, error) {
	return r.findActive(owner)
}

func (r *memCarts) FindByID(ctx context.Context, id uint) (*models.Cart, error) {
	cart, ok := r.st.carts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &cart, nil
}

func (r *memCarts) FindByIDForUpdate(ctx context.Context, id uint) (*models.Cart, error) {
	return r.FindByID(ctx, id)
}

func (r *memCarts) Create(ctx context.Context, cart *models.Cart) error {
	// Mirrors the partial unique indexes on carts: at most one active
	// cart per user id or session id.
	if cart.Status == models.CartStatusActive {
		for _, existing := range r.st.carts {
			if existing.Status != models.CartStatusActive {
				continue
			}
			if cart.UserID != nil && existing.UserID != nil && *existing.UserID == *cart.UserID {
				return repository.ErrDuplicate
			}
			if cart.SessionID != nil && existing.SessionID != nil && *existing.SessionID == *cart.SessionID {
				return repository.ErrDuplicate
			}
		}
	}
	cart.ID = r.st.nextCartID
	r.st.nextCartID++
	r.st.carts[cart.ID] = *cart
	return nil
}

func (r *memCarts) Save(ctx context.Context, cart *models.Cart) error {
	r.st.carts[cart.ID] = *cart
	return nil
}

func (r *memCarts) Lines(ctx context.Context, cartID uint) ([]models.CartLine, error) {
	var items []models.CartItem
	for _, item := range r.st.items {
		if item.CartID == cartID {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	lines := make([]models.CartLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, models.CartLine{
			Item:       item,
			Subproduct: r.st.subproducts[item.SubproductID],
		})
	}
	return lines, nil
}

func (r *memCarts) FindItemForUpdate(ctx context.Context, cartID, subproductID uint) (*models.CartItem, error) {
	for _, item := range r.st.items {
		if item.CartID == cartID && item.SubproductID == subproductID {
			it := item
			return &it, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memCarts) SaveItem(ctx context.Context, item *models.CartItem) error {
	if item.ID == 0 {
		item.ID = r.st.nextItemID
		r.st.nextItemID++
	}
	r.st.items[item.ID] = *item
	return nil
}

func (r *memCarts) DeleteItem(ctx context.Context, cartID, subproductID uint) (bool, error) {
	for id, item := range r.st.items {
		if item.CartID == cartID && item.SubproductID == subproductID {
			delete(r.st.items, id)
			return true, nil
		}
	}
	return false, nil
}

func (r *memCarts) DeleteItems(ctx context.Context, cartID uint) error {
	for id, item := range r.st.items {
		if item.CartID == cartID {
			delete(r.st.items, id)
		}
	}
	return nil
}

type memDeals Store

func (r *memDeals) ListCandidates(ctx context.Context, now time.Time) ([]models.Deal, error) {
	var out []models.Deal
	for _, deal := range r.st.deals {
		if deal.CurrentlyActive(now) {
			out = append(out, deal)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memDeals) FindByID(ctx context.Context, id uint) (*models.Deal, error) {
	deal, ok := r.st.deals[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &deal, nil
}

func (r *memDeals) List(ctx context.Context, sortOpt repository.DealListSort) ([]models.Deal, error) {
	var out []models.Deal
	for _, deal := range r.st.deals {
		out = append(out, deal)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memDeals) Create(ctx context.Context, deal *models.Deal) error {
	deal.ID = r.st.nextDealID
	r.st.nextDealID++
	r.st.deals[deal.ID] = *deal
	return nil
}

func (r *memDeals) Save(ctx context.Context, deal *models.Deal) error {
	r.st.deals[deal.ID] = *deal
	return nil
}

func (r *memDeals) Delete(ctx context.Context, id uint) error {
	delete(r.st.deals, id)
	return nil
}

type memOrders Store

func (r *memOrders) Create(ctx context.Context, order *models.Order) error {
	order.ID = r.st.nextOrderID
	r.st.nextOrderID++
	r.st.orders[order.ID] = *order
	return nil
}

func (r *memOrders) FindByRef(ctx context.Context, ref string) (*models.Order, error) {
	for _, order := range r.st.orders {
		if order.OrderRef == ref {
			o := order
			return &o, nil
		}
	}
	return nil, repository.ErrNotFound
}
