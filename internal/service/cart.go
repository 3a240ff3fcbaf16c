package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crackers-backend/internal/logger"
	"crackers-backend/internal/models"
	"crackers-backend/internal/store"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CartLine is a cart item resolved against the catalog.
type CartLine struct {
	ID        primitive.ObjectID `json:"id"`
	Type      models.ItemType    `json:"type"`
	RefID     primitive.ObjectID `json:"refId"`
	Name      string             `json:"name"`
	Price     float64            `json:"price"`
	Image     string             `json:"image,omitempty"`
	Stock     *int               `json:"stock,omitempty"`
	Quantity  int                `json:"quantity"`
	LineTotal float64            `json:"lineTotal"`
	AddedAt   time.Time          `json:"addedAt"`
}

type CartView struct {
	Items     []CartLine `json:"items"`
	CartTotal float64    `json:"cartTotal"`
	ItemCount int        `json:"itemCount"`
}

type Cart struct {
	users     store.Users
	products  store.Products
	bundles   store.Bundles
	giftBoxes store.Bundles
	now       func() time.Time
}

func NewCart(st *store.Store) *Cart {
	return &Cart{
		users:     st.Users,
		products:  st.Products,
		bundles:   st.Bundles,
		giftBoxes: st.GiftBoxes,
		now:       time.Now,
	}
}

func (s *Cart) bundleStore(t models.ItemType) store.Bundles {
	if t == models.ItemGiftBox {
		return s.giftBoxes
	}
	return s.bundles
}

// Get resolves every line, drops the ones whose source is gone or inactive, and writes the
// pruned cart back when anything changed.
func (s *Cart) Get(ctx context.Context, uid primitive.ObjectID) (*CartView, error) {
	u, err := s.users.FindByID(ctx, uid)
	if err != nil {
		return nil, lookup("user", err)
	}
	view, kept, changed, err := s.resolve(ctx, u.Cart)
	if err != nil {
		return nil, err
	}
	if changed {
		if err := s.users.SetCart(ctx, uid, kept); err != nil {
			logger.WithModule("cart").WithError(err).WithField(logger.UserIDKey, uid.Hex()).Warn("failed to write back pruned cart")
		}
	}
	return view, nil
}

func (s *Cart) resolve(ctx context.Context, items []models.CartItem) (*CartView, []models.CartItem, bool, error) {
	view := &CartView{Items: []CartLine{}}
	kept := make([]models.CartItem, 0, len(items))
	changed := false
	total := decimal.Zero

	for _, it := range items {
		line := CartLine{ID: it.ID, Type: it.Type, RefID: it.RefID(), Quantity: it.Quantity, AddedAt: it.AddedAt}
		switch it.Type {
		case models.ItemProduct:
			p, err := s.products.FindByID(ctx, it.ProductID)
			if errors.Is(err, store.ErrNotFound) || (err == nil && !p.IsActive) {
				changed = true
				continue
			}
			if err != nil {
				return nil, nil, false, err
			}
			stock := p.Stock
			line.Name, line.Price, line.Image, line.Stock = p.Name, p.Price, p.MainImage(), &stock
			view.ItemCount += it.Quantity
		case models.ItemBundle, models.ItemGiftBox:
			if it.Snapshot == nil {
				changed = true
				continue
			}
			b, err := s.bundleStore(it.Type).FindByID(ctx, it.Snapshot.ID)
			if errors.Is(err, store.ErrNotFound) || (err == nil && !b.IsActive) {
				changed = true
				continue
			}
			if err != nil {
				return nil, nil, false, err
			}
			if it.Snapshot.Name != b.Name || it.Snapshot.Price != b.Price {
				it.Snapshot = &models.CartSnapshot{ID: b.ID, Name: b.Name, Price: b.Price}
				changed = true
			}
			line.Name, line.Price, line.Image = b.Name, b.Price, b.Image
			view.ItemCount++
		default:
			changed = true
			continue
		}
		lt := decimal.NewFromFloat(line.Price).Mul(decimal.NewFromInt(int64(line.Quantity))).Round(2)
		line.LineTotal = lt.InexactFloat64()
		total = total.Add(lt)
		view.Items = append(view.Items, line)
		kept = append(kept, it)
	}
	view.CartTotal = total.Round(2).InexactFloat64()
	return view, kept, changed, nil
}

func (s *Cart) load(ctx context.Context, uid primitive.ObjectID) (*models.User, error) {
	u, err := s.users.FindByID(ctx, uid)
	if err != nil {
		return nil, lookup("user", err)
	}
	return u, nil
}

func (s *Cart) save(ctx context.Context, uid primitive.ObjectID, cart []models.CartItem) (*CartView, error) {
	if cart == nil {
		cart = []models.CartItem{}
	}
	if err := s.users.SetCart(ctx, uid, cart); err != nil {
		return nil, lookup("user", err)
	}
	return s.Get(ctx, uid)
}

func (s *Cart) AddProduct(ctx context.Context, uid, productID primitive.ObjectID, qty int) (*CartView, error) {
	if qty < 1 {
		return nil, invalid("quantity must be at least 1")
	}
	p, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, lookup("product", err)
	}
	if !p.IsActive {
		return nil, missing("product")
	}
	u, err := s.load(ctx, uid)
	if err != nil {
		return nil, err
	}

	for i := range u.Cart {
		it := &u.Cart[i]
		if it.Type == models.ItemProduct && it.ProductID == productID {
			if it.Quantity+qty > p.Stock {
				return nil, &StockError{Details: []string{stockDetail(p, it.Quantity+qty)}}
			}
			it.Quantity += qty
			return s.save(ctx, uid, u.Cart)
		}
	}
	if qty > p.Stock {
		return nil, &StockError{Details: []string{stockDetail(p, qty)}}
	}
	u.Cart = append(u.Cart, models.CartItem{
		ID:        primitive.NewObjectID(),
		Type:      models.ItemProduct,
		ProductID: productID,
		Quantity:  qty,
		AddedAt:   s.now(),
	})
	return s.save(ctx, uid, u.Cart)
}

// AddBundle adds a bundle or gift box line, snapshotting its name and price.
func (s *Cart) AddBundle(ctx context.Context, uid primitive.ObjectID, t models.ItemType, id primitive.ObjectID, qty int) (*CartView, error) {
	if t != models.ItemBundle && t != models.ItemGiftBox {
		return nil, invalid("unsupported item type %q", t)
	}
	if qty < 1 {
		return nil, invalid("quantity must be at least 1")
	}
	b, err := s.bundleStore(t).FindByID(ctx, id)
	if err != nil {
		return nil, lookup(string(t), err)
	}
	if !b.IsActive {
		return nil, missing(string(t))
	}
	u, err := s.load(ctx, uid)
	if err != nil {
		return nil, err
	}

	snap := &models.CartSnapshot{ID: b.ID, Name: b.Name, Price: b.Price}
	for i := range u.Cart {
		it := &u.Cart[i]
		if it.Type == t && it.Snapshot != nil && it.Snapshot.ID == id {
			it.Quantity += qty
			it.Snapshot = snap
			return s.save(ctx, uid, u.Cart)
		}
	}
	u.Cart = append(u.Cart, models.CartItem{
		ID:       primitive.NewObjectID(),
		Type:     t,
		Snapshot: snap,
		Quantity: qty,
		AddedAt:  s.now(),
	})
	return s.save(ctx, uid, u.Cart)
}

// UpdateQuantity sets a line's quantity; zero or less removes the line.
func (s *Cart) UpdateQuantity(ctx context.Context, uid, lineID primitive.ObjectID, qty int) (*CartView, error) {
	if qty <= 0 {
		return s.Remove(ctx, uid, lineID)
	}
	u, err := s.load(ctx, uid)
	if err != nil {
		return nil, err
	}
	idx := cartIndex(u.Cart, lineID)
	if idx < 0 {
		return nil, missing("cart item")
	}
	it := &u.Cart[idx]
	if it.Type == models.ItemProduct {
		p, err := s.products.FindByID(ctx, it.ProductID)
		if err != nil {
			return nil, lookup("product", err)
		}
		if qty > p.Stock {
			return nil, &StockError{Details: []string{stockDetail(p, qty)}}
		}
	}
	it.Quantity = qty
	return s.save(ctx, uid, u.Cart)
}

func (s *Cart) Remove(ctx context.Context, uid, lineID primitive.ObjectID) (*CartView, error) {
	u, err := s.load(ctx, uid)
	if err != nil {
		return nil, err
	}
	idx := cartIndex(u.Cart, lineID)
	if idx < 0 {
		return nil, missing("cart item")
	}
	return s.save(ctx, uid, append(u.Cart[:idx:idx], u.Cart[idx+1:]...))
}

func (s *Cart) Clear(ctx context.Context, uid primitive.ObjectID) (*CartView, error) {
	return s.save(ctx, uid, []models.CartItem{})
}

func cartIndex(cart []models.CartItem, lineID primitive.ObjectID) int {
	for i, it := range cart {
		if it.ID == lineID {
			return i
		}
	}
	return -1
}

func stockDetail(p *models.Product, want int) string {
	return fmt.Sprintf("%s: requested %d, available %d", p.Name, want, p.Stock)
}
