package notify

import (
	"errors"
	"sync"
	"testing"
	"time"

	"crackers-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"gopkg.in/gomail.v2"
)

type fakeSender struct {
	mu    sync.Mutex
	fail  int
	calls int
	sent  []*gomail.Message
}

func (f *fakeSender) DialAndSend(msgs ...*gomail.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail > 0 {
		f.fail--
		return errors.New("smtp unavailable")
	}
	f.sent = append(f.sent, msgs...)
	return nil
}

func sampleOrder() (*models.Order, *models.User) {
	o := &models.Order{
		ID:          primitive.NewObjectID(),
		OrderNumber: "ORD-261016-0001-AB12",
		Items: []models.OrderItem{
			{Type: models.ItemProduct, Name: "Sparkler <10cm>", Price: 25, Quantity: 4},
		},
		Pricing:     models.Pricing{Subtotal: 100, Tax: 18, Shipping: 50, Total: 168},
		PaymentInfo: models.PaymentInfo{Method: models.PaymentBankTransfer, Status: models.PaymentPending},
		Status:      models.StatusPending,
	}
	u := &models.User{Name: "Meena", Email: "meena@example.com"}
	return o, u
}

func TestTemplatesRender(t *testing.T) {
	o, u := sampleOrder()

	html, err := render(orderPlacedTpl, orderMail{Name: u.Name, Order: o, Customer: u, Link: "https://shop.test/orders/1"})
	require.NoError(t, err)
	assert.Contains(t, html, "upload your payment screenshot")
	assert.Contains(t, html, "₹168.00")
	assert.Contains(t, html, "₹100.00")
	assert.NotContains(t, html, "<10cm>", "item names are escaped")

	o.PaymentInfo.Method = models.PaymentCOD
	html, err = render(orderPlacedTpl, orderMail{Name: u.Name, Order: o, Customer: u})
	require.NoError(t, err)
	assert.NotContains(t, html, "upload your payment screenshot")

	o.Status = models.StatusShipped
	html, err = render(statusTpl, orderMail{Name: u.Name, Order: o, Note: "Dispatched via courier"})
	require.NoError(t, err)
	assert.Contains(t, html, "is now <b>shipped</b>")
	assert.Contains(t, html, "Dispatched via courier")
}

func TestOrderPlacedMailsCustomerAndActiveAdmins(t *testing.T) {
	sender := &fakeSender{}
	m := NewWithSender(sender, Config{From: "shop@example.com", FrontendURL: "https://shop.test"})
	o, u := sampleOrder()

	m.OrderPlaced(o, u, []models.Admin{
		{Name: "Ops", Email: "ops@example.com", IsActive: true},
		{Name: "Gone", Email: "gone@example.com", IsActive: false},
	})
	m.Close()

	require.Len(t, sender.sent, 2)
	assert.Equal(t, []string{"meena@example.com"}, sender.sent[0].GetHeader("To"))
	assert.Equal(t, []string{"Order confirmation ORD-261016-0001-AB12"}, sender.sent[0].GetHeader("Subject"))
	assert.Equal(t, []string{"ops@example.com"}, sender.sent[1].GetHeader("To"))
}

func TestDeliveryRetriesThenSucceeds(t *testing.T) {
	sender := &fakeSender{fail: 2}
	m := NewWithSender(sender, Config{From: "shop@example.com"})
	m.backoff = func(int) time.Duration { return time.Millisecond }
	o, u := sampleOrder()
	o.Status = models.StatusShipped
	o.StatusHistory = []models.StatusEntry{{Status: models.StatusShipped, Note: "Dispatched via courier"}}

	m.StatusChanged(o, u)
	m.Close()

	assert.Equal(t, 3, sender.calls)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, []string{"Order ORD-261016-0001-AB12 is shipped"}, sender.sent[0].GetHeader("Subject"))
}

func TestPaymentReviewedSubject(t *testing.T) {
	sender := &fakeSender{}
	m := NewWithSender(sender, Config{})
	o, u := sampleOrder()

	o.PaymentInfo.Status = models.PaymentFailed
	m.PaymentReviewed(o, u)
	o2, _ := sampleOrder()
	o2.PaymentInfo.Status = models.PaymentCompleted
	m.PaymentReviewed(o2, u)
	m.Close()

	require.Len(t, sender.sent, 2)
	assert.Equal(t, []string{"Payment could not be verified for ORD-261016-0001-AB12"}, sender.sent[0].GetHeader("Subject"))
	assert.Equal(t, []string{"Payment received for ORD-261016-0001-AB12"}, sender.sent[1].GetHeader("Subject"))
}

func TestLogOnlyMailerDoesNotBlock(t *testing.T) {
	m := New(Config{})
	o, u := sampleOrder()
	m.OrderPlaced(o, u, nil)
	m.Close()
	m.Close()
}
