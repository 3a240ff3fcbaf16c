package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusConfirmed  OrderStatus = "confirmed"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
	StatusReturned   OrderStatus = "returned"
)

var OrderStatuses = []OrderStatus{
	StatusPending, StatusConfirmed, StatusProcessing, StatusShipped,
	StatusDelivered, StatusCancelled, StatusReturned,
}

func (s OrderStatus) Valid() bool {
	for _, v := range OrderStatuses {
		if v == s {
			return true
		}
	}
	return false
}

type PaymentMethod string

const (
	PaymentCOD          PaymentMethod = "cod"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentOnline       PaymentMethod = "online"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentCOD || m == PaymentBankTransfer || m == PaymentOnline
}

// DefersStock reports whether stock is only taken once the payment is approved.
func (m PaymentMethod) DefersStock() bool {
	return m != PaymentCOD
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentCompleted, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

type OrderItem struct {
	Type     ItemType           `bson:"type" json:"type"`
	RefID    primitive.ObjectID `bson:"refId" json:"refId"`
	Name     string             `bson:"name" json:"name"`
	Price    float64            `bson:"price" json:"price"`
	Quantity int                `bson:"quantity" json:"quantity"`
	Image    string             `bson:"image,omitempty" json:"image,omitempty"`
}

type ShippingAddress struct {
	Name     string `bson:"name" json:"name"`
	Phone    string `bson:"phone" json:"phone"`
	Street   string `bson:"street" json:"street"`
	City     string `bson:"city" json:"city"`
	State    string `bson:"state" json:"state"`
	Pincode  string `bson:"pincode" json:"pincode"`
	Landmark string `bson:"landmark,omitempty" json:"landmark,omitempty"`
}

type Pricing struct {
	Subtotal float64 `bson:"subtotal" json:"subtotal"`
	Tax      float64 `bson:"tax" json:"tax"`
	Shipping float64 `bson:"shipping" json:"shipping"`
	Discount float64 `bson:"discount" json:"discount"`
	Total    float64 `bson:"total" json:"total"`
}

type Screenshot struct {
	URL        string    `bson:"url" json:"url"`
	PublicID   string    `bson:"publicId,omitempty" json:"publicId,omitempty"`
	Filename   string    `bson:"filename,omitempty" json:"filename,omitempty"`
	UploadedAt time.Time `bson:"uploadedAt" json:"uploadedAt"`
}

type PaymentInfo struct {
	Method        PaymentMethod       `bson:"method" json:"method"`
	Status        PaymentStatus       `bson:"status" json:"status"`
	TransactionID string              `bson:"transactionId,omitempty" json:"transactionId,omitempty"`
	Screenshot    *Screenshot         `bson:"screenshot,omitempty" json:"screenshot,omitempty"`
	VerifiedBy    *primitive.ObjectID `bson:"verifiedBy,omitempty" json:"verifiedBy,omitempty"`
	VerifiedAt    *time.Time          `bson:"verifiedAt,omitempty" json:"verifiedAt,omitempty"`
	AdminNote     string              `bson:"adminNote,omitempty" json:"adminNote,omitempty"`
}

type StatusEntry struct {
	Status    OrderStatus         `bson:"status" json:"status"`
	Note      string              `bson:"note,omitempty" json:"note,omitempty"`
	UpdatedBy *primitive.ObjectID `bson:"updatedBy,omitempty" json:"updatedBy,omitempty"`
	Timestamp time.Time           `bson:"timestamp" json:"timestamp"`
}

type Order struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrderNumber     string             `bson:"orderNumber" json:"orderNumber"`
	User            primitive.ObjectID `bson:"user" json:"user"`
	Items           []OrderItem        `bson:"items" json:"items"`
	ShippingAddress ShippingAddress    `bson:"shippingAddress" json:"shippingAddress"`
	Pricing         Pricing            `bson:"pricing" json:"pricing"`
	PaymentInfo     PaymentInfo        `bson:"paymentInfo" json:"paymentInfo"`
	Status          OrderStatus        `bson:"status" json:"status"`
	StatusHistory   []StatusEntry      `bson:"statusHistory" json:"statusHistory"`
	StockDeducted   bool               `bson:"stockDeducted" json:"stockDeducted"`
	Notes           string             `bson:"notes,omitempty" json:"notes,omitempty"`
	CancelReason    string             `bson:"cancelReason,omitempty" json:"cancelReason,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// PushStatus sets the status and appends to the history in one step.
func (o *Order) PushStatus(status OrderStatus, note string, by *primitive.ObjectID, at time.Time) {
	o.Status = status
	o.StatusHistory = append(o.StatusHistory, StatusEntry{
		Status:    status,
		Note:      note,
		UpdatedBy: by,
		Timestamp: at,
	})
	o.UpdatedAt = at
}

// ItemCount counts products by quantity and bundles/gift boxes as one each.
func (o *Order) ItemCount() int {
	n := 0
	for _, it := range o.Items {
		if it.Type == ItemProduct {
			n += it.Quantity
		} else {
			n++
		}
	}
	return n
}
