package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/junaidrashid-git/cart-api/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NewGormStore wraps a gorm connection in the Store interface.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

type gormStore struct {
	db *gorm.DB
}

func (s *gormStore) Catalog() CatalogRepository { return &gormCatalog{db: s.db} }
func (s *gormStore) Carts() CartRepository      { return &gormCarts{db: s.db} }
func (s *gormStore) Deals() DealRepository      { return &gormDeals{db: s.db} }
func (s *gormStore) Orders() OrderRepository    { return &gormOrders{db: s.db} }

func (s *gormStore) Atomic(ctx context.Context, fn func(Store) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
	return translate(err)
}

// translate maps storage errors onto the repository sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return ErrConflict
		case "23505": // unique_violation
			return ErrDuplicate
		}
	}
	return err
}

// ---- catalog ----

type gormCatalog struct {
	db *gorm.DB
}

func (r *gormCatalog) GetSubproduct(ctx context.Context, id uint) (*models.Subproduct, error) {
	var sp models.Subproduct
	if err := r.db.WithContext(ctx).First(&sp, id).Error; err != nil {
		return nil, translate(err)
	}
	return &sp, nil
}

func (r *gormCatalog) GetSubproductForUpdate(ctx context.Context, id uint) (*models.Subproduct, error) {
	var sp models.Subproduct
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&sp, id).Error; err != nil {
		return nil, translate(err)
	}
	return &sp, nil
}

func (r *gormCatalog) SaveSubproduct(ctx context.Context, sp *models.Subproduct) error {
	return translate(r.db.WithContext(ctx).Save(sp).Error)
}

func (r *gormCatalog) ScopeFor(ctx context.Context, subproductIDs []uint) (map[uint]models.SubproductScope, error) {
	scopes := make(map[uint]models.SubproductScope, len(subproductIDs))
	if len(subproductIDs) == 0 {
		return scopes, nil
	}

	var sps []models.Subproduct
	if err := r.db.WithContext(ctx).Where("id IN ?", subproductIDs).Find(&sps).Error; err != nil {
		return nil, translate(err)
	}

	productIDs := make([]uint, 0, len(sps))
	for _, sp := range sps {
		productIDs = append(productIDs, sp.ProductID)
	}

	var products []models.Product
	if err := r.db.WithContext(ctx).
		Preload("Categories").
		Where("id IN ?", productIDs).
		Find(&products).Error; err != nil {
		return nil, translate(err)
	}
	byProduct := make(map[uint]models.Product, len(products))
	for _, p := range products {
		byProduct[p.ID] = p
	}

	for _, sp := range sps {
		scope := models.SubproductScope{SubproductID: sp.ID, ProductID: sp.ProductID}
		if p, ok := byProduct[sp.ProductID]; ok {
			scope.BrandID = p.BrandID
			for _, cat := range p.Categories {
				scope.CategoryIDs = append(scope.CategoryIDs, cat.ID)
			}
		}
		scopes[sp.ID] = scope
	}
	return scopes, nil
}

// ---- carts ----

type gormCarts struct {
	db *gorm.DB
}

func ownerQuery(db *gorm.DB, owner models.OwnerKey) *gorm.DB {
	if owner.IsUser() {
		return db.Where("user_id = ?", owner.UserID)
	}
	return db.Where("session_id = ?", owner.SessionID)
}

func (r *gormCarts) FindActiveByOwner(ctx context.Context, owner models.OwnerKey) (*models.Cart, error) {
	var cart models.Cart
	q := ownerQuery(r.db.WithContext(ctx), owner).Where("status = ?", models.CartStatusActive)
	if err := q.First(&cart).Error; err != nil {
		return nil, translate(err)
	}
	return &cart, nil
}

func (r *gormCarts) FindActiveByOwnerForUpdate(ctx context.Context, owner models.OwnerKey) (*models.Cart, error) {
	var cart models.Cart
	q := ownerQuery(r.db.WithContext(ctx), owner).
		Where("status = ?", models.CartStatusActive).
		Clauses(clause.Locking{Strength: "UPDATE"})
	if err := q.First(&cart).Error; err != nil {
		return nil, translate(err)
	}
	return &cart, nil
}

func (r *gormCarts) FindByID(ctx context.Context, id uint) (*models.Cart, error) {
	var cart models.Cart
	if err := r.db.WithContext(ctx).First(&cart, id).Error; err != nil {
		return nil, translate(err)
	}
	return &cart, nil
}

func (r *gormCarts) FindByIDForUpdate(ctx context.Context, id uint) (*models.Cart, error) {
	var cart models.Cart
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&cart, id).Error; err != nil {
		return nil, translate(err)
	}
	return &cart, nil
}

func (r *gormCarts) Create(ctx context.Context, cart *models.Cart) error {
	return translate(r.db.WithContext(ctx).Create(cart).Error)
}

func (r *gormCarts) Save(ctx context.Context, cart *models.Cart) error {
	return translate(r.db.WithContext(ctx).Save(cart).Error)
}

func (r *gormCarts) Lines(ctx context.Context, cartID uint) ([]models.CartLine, error) {
	var items []models.CartItem
	if err := r.db.WithContext(ctx).
		Preload("Subproduct").
		Where("cart_id = ?", cartID).
		Order("id").
		Find(&items).Error; err != nil {
		return nil, translate(err)
	}
	lines := make([]models.CartLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, models.CartLine{Item: item, Subproduct: item.Subproduct})
	}
	return lines, nil
}

func (r *gormCarts) FindItemForUpdate(ctx context.Context, cartID, subproductID uint) (*models.CartItem, error) {
	var item models.CartItem
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("cart_id = ? AND subproduct_id = ?", cartID, subproductID).
		First(&item).Error; err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func (r *gormCarts) SaveItem(ctx context.Context, item *models.CartItem) error {
	return translate(r.db.WithContext(ctx).Save(item).Error)
}

func (r *gormCarts) DeleteItem(ctx context.Context, cartID, subproductID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("cart_id = ? AND subproduct_id = ?", cartID, subproductID).
		Delete(&models.CartItem{})
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *gormCarts) DeleteItems(ctx context.Context, cartID uint) error {
	return translate(r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&models.CartItem{}).Error)
}

// ---- deals ----

type gormDeals struct {
	db *gorm.DB
}

func (r *gormDeals) ListCandidates(ctx context.Context, now time.Time) ([]models.Deal, error) {
	var deals []models.Deal
	if err := r.db.WithContext(ctx).
		Preload("Products").
		Preload("Categories").
		Preload("Brands").
		Where("active = ? AND start_date <= ? AND end_date >= ?", true, now, now).
		Find(&deals).Error; err != nil {
		return nil, translate(err)
	}
	return deals, nil
}

func (r *gormDeals) FindByID(ctx context.Context, id uint) (*models.Deal, error) {
	var deal models.Deal
	if err := r.db.WithContext(ctx).
		Preload("Products").
		Preload("Categories").
		Preload("Brands").
		First(&deal, id).Error; err != nil {
		return nil, translate(err)
	}
	return &deal, nil
}

func (r *gormDeals) List(ctx context.Context, sort DealListSort) ([]models.Deal, error) {
	order := sort.Field
	if sort.Desc {
		order += " DESC"
	}
	var deals []models.Deal
	if err := r.db.WithContext(ctx).Order(order).Find(&deals).Error; err != nil {
		return nil, translate(err)
	}
	return deals, nil
}

func (r *gormDeals) Create(ctx context.Context, deal *models.Deal) error {
	return translate(r.db.WithContext(ctx).Create(deal).Error)
}

func (r *gormDeals) Save(ctx context.Context, deal *models.Deal) error {
	return translate(r.db.WithContext(ctx).Save(deal).Error)
}

func (r *gormDeals) Delete(ctx context.Context, id uint) error {
	return translate(r.db.WithContext(ctx).Delete(&models.Deal{}, id).Error)
}

// ---- orders ----

type gormOrders struct {
	db *gorm.DB
}

func (r *gormOrders) Create(ctx context.Context, order *models.Order) error {
	return translate(r.db.WithContext(ctx).Create(order).Error)
}

func (r *gormOrders) FindByRef(ctx context.Context, ref string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("order_ref = ?", ref).
		First(&order).Error; err != nil {
		return nil, translate(err)
	}
	return &order, nil
}
