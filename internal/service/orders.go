package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	"crackers-backend/internal/logger"
	"crackers-backend/internal/metrics"
	"crackers-backend/internal/models"
	"crackers-backend/internal/pricing"
	"crackers-backend/internal/store"
	"crackers-backend/internal/validation"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const orderNumberAttempts = 5

type Orders struct {
	orders    store.Orders
	users     store.Users
	products  store.Products
	bundles   store.Bundles
	giftBoxes store.Bundles
	admins    store.Admins
	images    ImageStore
	notifier  Notifier
	events    Broadcaster
	now       func() time.Time
}

func NewOrders(st *store.Store, images ImageStore, notifier Notifier, events Broadcaster) *Orders {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if events == nil {
		events = nopBroadcaster{}
	}
	return &Orders{
		orders:    st.Orders,
		users:     st.Users,
		products:  st.Products,
		bundles:   st.Bundles,
		giftBoxes: st.GiftBoxes,
		admins:    st.Admins,
		images:    images,
		notifier:  notifier,
		events:    events,
		now:       time.Now,
	}
}

type OrderItemInput struct {
	Type     models.ItemType `json:"type" validate:"required,oneof=product bundle giftbox"`
	ID       string          `json:"id" validate:"required,objectid"`
	Quantity int             `json:"quantity" validate:"required,min=1,max=1000"`
}

// CreateOrderInput takes items explicitly; an empty list checks out the whole cart.
type CreateOrderInput struct {
	Items         []OrderItemInput     `json:"items" validate:"omitempty,dive"`
	AddressID     string               `json:"addressId" validate:"omitempty,objectid"`
	Address       *AddressInput        `json:"shippingAddress"`
	PaymentMethod models.PaymentMethod `json:"paymentMethod" validate:"required,oneof=cod bank_transfer online"`
	Notes         string               `json:"notes" validate:"omitempty,max=500"`
}

func (s *Orders) Create(ctx context.Context, uid primitive.ObjectID, in CreateOrderInput) (*models.Order, error) {
	if err := checked(validation.Struct(in)); err != nil {
		return nil, err
	}
	u, err := s.users.FindByID(ctx, uid)
	if err != nil {
		return nil, lookup("user", err)
	}
	if len(in.Items) == 0 {
		in.Items = cartItems(u.Cart)
	}
	if len(in.Items) == 0 {
		return nil, invalid("order has no items")
	}

	items, err := s.resolveItems(ctx, in.Items)
	if err != nil {
		return nil, err
	}
	if err := s.checkStock(ctx, items); err != nil {
		return nil, err
	}
	addr, err := shippingAddress(u, in)
	if err != nil {
		return nil, err
	}

	lines := make([]pricing.Line, len(items))
	for i, it := range items {
		lines[i] = pricing.Line{Price: it.Price, Quantity: it.Quantity}
	}
	price := pricing.Compute(lines, 0)
	if err := pricing.Validate(price); err != nil {
		return nil, err
	}

	now := s.now()
	o := &models.Order{
		User:            uid,
		Items:           items,
		ShippingAddress: addr,
		Pricing:         price,
		PaymentInfo:     models.PaymentInfo{Method: in.PaymentMethod, Status: models.PaymentPending},
		Notes:           strings.TrimSpace(in.Notes),
		StatusHistory:   []models.StatusEntry{},
		CreatedAt:       now,
	}
	o.PushStatus(models.StatusPending, "Order placed", nil, now)

	if !in.PaymentMethod.DefersStock() {
		if err := s.deductStock(ctx, items); err != nil {
			return nil, err
		}
		o.StockDeducted = true
	}
	if err := s.insert(ctx, o); err != nil {
		if o.StockDeducted {
			s.restoreStock(ctx, items)
		}
		return nil, err
	}

	s.pruneCart(ctx, u, items)
	metrics.OrderCreated(string(in.PaymentMethod))
	logger.WithModule("orders").WithFields(logrus.Fields{
		"orderNumber": o.OrderNumber,
		"total":       o.Pricing.Total,
		"method":      o.PaymentInfo.Method,
	}).Info("order placed")

	admins, err := s.admins.List(ctx, true)
	if err != nil {
		logger.WithModule("orders").WithError(err).Warn("failed to load admins for order notification")
	}
	s.notifier.OrderPlaced(o, u, admins)
	return o, nil
}

func cartItems(cart []models.CartItem) []OrderItemInput {
	out := make([]OrderItemInput, 0, len(cart))
	for _, c := range cart {
		out = append(out, OrderItemInput{Type: c.Type, ID: c.RefID().Hex(), Quantity: c.Quantity})
	}
	return out
}

// resolveItems prices every line from the catalog; client prices are never trusted.
func (s *Orders) resolveItems(ctx context.Context, in []OrderItemInput) ([]models.OrderItem, error) {
	items := make([]models.OrderItem, 0, len(in))
	for _, it := range in {
		id, err := parseID(string(it.Type), it.ID)
		if err != nil {
			return nil, err
		}
		item := models.OrderItem{Type: it.Type, RefID: id, Quantity: it.Quantity}
		switch it.Type {
		case models.ItemProduct:
			p, err := s.products.FindByID(ctx, id)
			if err != nil {
				return nil, lookup("product", err)
			}
			if !p.IsActive {
				return nil, invalid("product %q is not available", p.Name)
			}
			item.Name, item.Price, item.Image = p.Name, p.Price, p.MainImage()
		case models.ItemBundle, models.ItemGiftBox:
			src := s.bundles
			if it.Type == models.ItemGiftBox {
				src = s.giftBoxes
			}
			b, err := src.FindByID(ctx, id)
			if err != nil {
				return nil, lookup(string(it.Type), err)
			}
			if !b.IsActive {
				return nil, invalid("%s %q is not available", it.Type, b.Name)
			}
			item.Name, item.Price, item.Image = b.Name, b.Price, b.Image
		default:
			return nil, invalid("unsupported item type %q", it.Type)
		}
		items = append(items, item)
	}
	return items, nil
}

// productDemand sums the quantity asked for each product, in first-seen order.
func productDemand(items []models.OrderItem) ([]primitive.ObjectID, map[primitive.ObjectID]int) {
	var ids []primitive.ObjectID
	want := map[primitive.ObjectID]int{}
	for _, it := range items {
		if it.Type != models.ItemProduct {
			continue
		}
		if _, ok := want[it.RefID]; !ok {
			ids = append(ids, it.RefID)
		}
		want[it.RefID] += it.Quantity
	}
	return ids, want
}

func (s *Orders) checkStock(ctx context.Context, items []models.OrderItem) error {
	ids, want := productDemand(items)
	var details []string
	for _, id := range ids {
		p, err := s.products.FindByID(ctx, id)
		if err != nil {
			return lookup("product", err)
		}
		if p.Stock < want[id] {
			details = append(details, stockDetail(p, want[id]))
		}
	}
	if len(details) > 0 {
		return &StockError{Details: details}
	}
	return nil
}

// deductStock takes stock for every product line or none of them.
func (s *Orders) deductStock(ctx context.Context, items []models.OrderItem) error {
	ids, want := productDemand(items)
	applied := make([]models.OrderItem, 0, len(ids))
	for _, id := range ids {
		err := s.products.DecrementStock(ctx, id, want[id])
		if err == nil {
			applied = append(applied, models.OrderItem{Type: models.ItemProduct, RefID: id, Quantity: want[id]})
			continue
		}
		s.restoreStock(ctx, applied)
		if errors.Is(err, store.ErrInsufficientStock) {
			name := id.Hex()
			if p, ferr := s.products.FindByID(ctx, id); ferr == nil {
				return &StockError{Details: []string{stockDetail(p, want[id])}}
			}
			return &StockError{Details: []string{name}}
		}
		return lookup("product", err)
	}
	return nil
}

func (s *Orders) restoreStock(ctx context.Context, items []models.OrderItem) {
	ids, want := productDemand(items)
	for _, id := range ids {
		if err := s.products.IncrementStock(ctx, id, want[id]); err != nil {
			logger.WithModule("orders").WithError(err).WithField("product", id.Hex()).Error("failed to restore stock")
		}
	}
}

// insert assigns an order number and retries with a fresh one on a unique index collision.
func (s *Orders) insert(ctx context.Context, o *models.Order) error {
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		num, err := s.nextOrderNumber(ctx)
		if err != nil {
			return err
		}
		o.OrderNumber = num
		err = s.orders.Create(ctx, o)
		if !errors.Is(err, store.ErrDuplicate) {
			return err
		}
		o.ID = primitive.NilObjectID
	}
	return conflict("could not allocate a unique order number")
}

func (s *Orders) nextOrderNumber(ctx context.Context) (string, error) {
	now := s.now()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	count, err := s.orders.CountSince(ctx, day)
	if err != nil {
		return "", err
	}
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:4])
	return fmt.Sprintf("ORD-%s-%04d-%s", now.Format("060102"), count+1, suffix), nil
}

func shippingAddress(u *models.User, in CreateOrderInput) (models.ShippingAddress, error) {
	var a models.Address
	switch {
	case in.AddressID != "":
		id, _ := primitive.ObjectIDFromHex(in.AddressID)
		found, ok := u.FindAddress(id)
		if !ok {
			return models.ShippingAddress{}, missing("address")
		}
		a = found
	case in.Address != nil:
		if err := in.Address.normalize(); err != nil {
			return models.ShippingAddress{}, err
		}
		in.Address.apply(&a)
	default:
		found, ok := u.DefaultAddress()
		if !ok {
			return models.ShippingAddress{}, invalid("shipping address is required")
		}
		a = found
	}
	name, phone := a.Name, a.Phone
	if name == "" {
		name = u.Name
	}
	if phone == "" {
		phone = u.Phone
	}
	return models.ShippingAddress{
		Name:     name,
		Phone:    phone,
		Street:   a.Street,
		City:     a.City,
		State:    a.State,
		Pincode:  a.Pincode,
		Landmark: a.Landmark,
	}, nil
}

// pruneCart drops the ordered lines from the cart; failures only get logged.
func (s *Orders) pruneCart(ctx context.Context, u *models.User, items []models.OrderItem) {
	ordered := map[string]bool{}
	for _, it := range items {
		ordered[string(it.Type)+":"+it.RefID.Hex()] = true
	}
	kept := make([]models.CartItem, 0, len(u.Cart))
	for _, c := range u.Cart {
		if !ordered[string(c.Type)+":"+c.RefID().Hex()] {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(u.Cart) {
		return
	}
	if err := s.users.SetCart(ctx, u.ID, kept); err != nil {
		logger.WithModule("orders").WithError(err).WithField(logger.UserIDKey, u.ID.Hex()).Warn("failed to clear ordered cart lines")
	}
}

type OrderPage struct {
	Orders []models.Order `json:"orders"`
	Total  int64          `json:"total"`
	Page   int            `json:"page"`
	Pages  int64          `json:"pages"`
}

func (s *Orders) ListForUser(ctx context.Context, uid primitive.ObjectID, page, limit int) (*OrderPage, error) {
	return s.list(ctx, store.OrderFilter{User: &uid, Page: page, Limit: limit})
}

func (s *Orders) list(ctx context.Context, f store.OrderFilter) (*OrderPage, error) {
	f.Page, f.Limit = store.Normalize(f.Page, f.Limit, 10, maxPageSize)
	orders, total, err := s.orders.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return &OrderPage{
		Orders: orders,
		Total:  total,
		Page:   f.Page,
		Pages:  (total + int64(f.Limit) - 1) / int64(f.Limit),
	}, nil
}

// GetForUser hides other users' orders behind not found.
func (s *Orders) GetForUser(ctx context.Context, uid, id primitive.ObjectID) (*models.Order, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.User != uid {
		return nil, missing("order")
	}
	return o, nil
}

func (s *Orders) Get(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, lookup("order", err)
	}
	return o, nil
}

func (s *Orders) Cancel(ctx context.Context, uid, id primitive.ObjectID, reason string) (*models.Order, error) {
	o, err := s.GetForUser(ctx, uid, id)
	if err != nil {
		return nil, err
	}
	if o.Status != models.StatusPending && o.Status != models.StatusConfirmed {
		return nil, stateError("order cannot be cancelled once %s", o.Status)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "Cancelled by customer"
	}

	restock := o.StockDeducted
	o.CancelReason = reason
	o.StockDeducted = false
	if o.PaymentInfo.Status == models.PaymentCompleted {
		o.PaymentInfo.Status = models.PaymentRefunded
	}
	o.PushStatus(models.StatusCancelled, reason, &uid, s.now())
	if err := s.orders.Replace(ctx, o); err != nil {
		return nil, lookup("order", err)
	}
	if restock {
		s.restoreStock(ctx, o.Items)
	}

	s.events.PublishOrder(o, reason)
	s.notifyStatus(ctx, o)
	return o, nil
}

// AttachPaymentProof stores a bank transfer screenshot and puts the payment back in review.
func (s *Orders) AttachPaymentProof(ctx context.Context, uid, id primitive.ObjectID, fh *multipart.FileHeader, transactionID string) (*models.Order, error) {
	o, err := s.GetForUser(ctx, uid, id)
	if err != nil {
		return nil, err
	}
	if o.PaymentInfo.Method != models.PaymentBankTransfer {
		return nil, stateError("payment proof is only accepted for bank transfers")
	}
	if o.PaymentInfo.Status != models.PaymentPending && o.PaymentInfo.Status != models.PaymentFailed {
		return nil, stateError("payment is already %s", o.PaymentInfo.Status)
	}
	if o.Status == models.StatusCancelled || o.Status == models.StatusReturned {
		return nil, stateError("order is %s", o.Status)
	}
	if fh == nil {
		return nil, invalid("screenshot is required")
	}

	img, err := s.images.Save(ctx, fh, "payments")
	if err != nil {
		return nil, err
	}
	previous := o.PaymentInfo.Screenshot
	now := s.now()
	o.PaymentInfo.Screenshot = &models.Screenshot{
		URL:        img.URL,
		PublicID:   img.PublicID,
		Filename:   fh.Filename,
		UploadedAt: now,
	}
	if tx := strings.TrimSpace(transactionID); tx != "" {
		o.PaymentInfo.TransactionID = tx
	}
	o.PaymentInfo.Status = models.PaymentPending
	o.UpdatedAt = now
	if err := s.orders.Replace(ctx, o); err != nil {
		discardImages(ctx, s.images, "orders", img)
		return nil, lookup("order", err)
	}
	if previous != nil {
		discardImages(ctx, s.images, "orders", models.Image{URL: previous.URL, PublicID: previous.PublicID})
	}
	s.events.PublishOrder(o, "Payment proof uploaded")
	return o, nil
}

// ----- Admin -----

type OrderQuery struct {
	Status        string
	PaymentStatus string
	PaymentMethod string
	Search        string
	From          string // YYYY-MM-DD
	To            string // YYYY-MM-DD, inclusive
	Page          int
	Limit         int
}

func (q OrderQuery) filter() (store.OrderFilter, error) {
	f := store.OrderFilter{
		Status:        models.OrderStatus(q.Status),
		PaymentStatus: models.PaymentStatus(q.PaymentStatus),
		PaymentMethod: models.PaymentMethod(q.PaymentMethod),
		Search:        strings.TrimSpace(q.Search),
		Page:          q.Page,
		Limit:         q.Limit,
	}
	if f.Status != "" && !f.Status.Valid() {
		return f, invalid("unknown status %q", q.Status)
	}
	if f.PaymentStatus != "" && !f.PaymentStatus.Valid() {
		return f, invalid("unknown payment status %q", q.PaymentStatus)
	}
	if f.PaymentMethod != "" && !f.PaymentMethod.Valid() {
		return f, invalid("unknown payment method %q", q.PaymentMethod)
	}
	if q.From != "" {
		t, err := time.ParseInLocation("2006-01-02", q.From, time.Local)
		if err != nil {
			return f, invalid("from must be YYYY-MM-DD")
		}
		f.From = &t
	}
	if q.To != "" {
		t, err := time.ParseInLocation("2006-01-02", q.To, time.Local)
		if err != nil {
			return f, invalid("to must be YYYY-MM-DD")
		}
		end := t.Add(24*time.Hour - time.Nanosecond)
		f.To = &end
	}
	return f, nil
}

func (s *Orders) List(ctx context.Context, q OrderQuery) (*OrderPage, error) {
	f, err := q.filter()
	if err != nil {
		return nil, err
	}
	return s.list(ctx, f)
}

// UpdateStatus sets any status. Cancelling here does not give stock back.
func (s *Orders) UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.OrderStatus, note string, adminID primitive.ObjectID) (*models.Order, error) {
	if !status.Valid() {
		return nil, invalid("unknown status %q", status)
	}
	o, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	note = strings.TrimSpace(note)
	if note == "" {
		note = "Status updated to " + string(status)
	}
	o.PushStatus(status, note, &adminID, s.now())
	if status == models.StatusDelivered && o.PaymentInfo.Method == models.PaymentCOD {
		o.PaymentInfo.Status = models.PaymentCompleted
	}
	if status == models.StatusCancelled && o.CancelReason == "" {
		o.CancelReason = note
	}
	if err := s.orders.Replace(ctx, o); err != nil {
		return nil, lookup("order", err)
	}

	s.events.PublishOrder(o, note)
	s.notifyStatus(ctx, o)
	return o, nil
}

// VerifyPayment approves or rejects a deferred payment. Approval takes the stock.
func (s *Orders) VerifyPayment(ctx context.Context, id primitive.ObjectID, approve bool, note string, adminID primitive.ObjectID) (*models.Order, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.PaymentInfo.Method.DefersStock() {
		return nil, stateError("cash on delivery orders have no payment to verify")
	}
	if o.PaymentInfo.Status != models.PaymentPending {
		return nil, stateError("payment is already %s", o.PaymentInfo.Status)
	}
	if o.Status == models.StatusCancelled || o.Status == models.StatusReturned {
		return nil, stateError("order is %s", o.Status)
	}

	now := s.now()
	note = strings.TrimSpace(note)
	deducted := false
	if approve {
		if o.PaymentInfo.Method == models.PaymentBankTransfer && o.PaymentInfo.Screenshot == nil {
			return nil, stateError("no payment screenshot uploaded")
		}
		if !o.StockDeducted {
			if err := s.deductStock(ctx, o.Items); err != nil {
				return nil, err
			}
			o.StockDeducted = true
			deducted = true
		}
		o.PaymentInfo.Status = models.PaymentCompleted
		if o.Status == models.StatusPending {
			msg := "Payment verified"
			if note != "" {
				msg += ": " + note
			}
			o.PushStatus(models.StatusConfirmed, msg, &adminID, now)
		}
	} else {
		o.PaymentInfo.Status = models.PaymentFailed
	}
	o.PaymentInfo.VerifiedBy = &adminID
	o.PaymentInfo.VerifiedAt = &now
	o.PaymentInfo.AdminNote = note
	o.UpdatedAt = now

	if err := s.orders.Replace(ctx, o); err != nil {
		if deducted {
			s.restoreStock(ctx, o.Items)
		}
		return nil, lookup("order", err)
	}
	metrics.PaymentVerified(approve)

	event := "Payment rejected"
	if approve {
		event = "Payment approved"
	}
	s.events.PublishOrder(o, event)
	if u, err := s.users.FindByID(ctx, o.User); err == nil {
		s.notifier.PaymentReviewed(o, u)
	} else {
		logger.WithModule("orders").WithError(err).Warn("failed to load customer for payment email")
	}
	return o, nil
}

func (s *Orders) Stats(ctx context.Context) (*store.OrderStats, error) {
	return s.orders.Stats(ctx)
}

func (s *Orders) notifyStatus(ctx context.Context, o *models.Order) {
	u, err := s.users.FindByID(ctx, o.User)
	if err != nil {
		logger.WithModule("orders").WithError(err).Warn("failed to load customer for status email")
		return
	}
	s.notifier.StatusChanged(o, u)
}
