// Package notify sends order emails from a background queue. Delivery is best effort: a full
// queue or a failing SMTP server is logged and never reaches the request that triggered it.
package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"math"
	"sync"
	"time"

	"crackers-backend/internal/logger"
	"crackers-backend/internal/models"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

const (
	defaultQueueSize = 256
	maxAttempts      = 3
)

// Sender delivers rendered messages. *gomail.Dialer satisfies it.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type Config struct {
	Host        string
	Port        int
	User        string
	Password    string
	From        string
	FrontendURL string
	QueueSize   int
}

type Mailer struct {
	sender      Sender
	from        string
	frontendURL string
	queue       chan *gomail.Message
	backoff     func(attempt int) time.Duration
	wg          sync.WaitGroup
	closeOnce   sync.Once
	log         *logrus.Entry
}

// New starts the delivery worker. An empty host gives a mailer that only logs.
func New(cfg Config) *Mailer {
	var sender Sender
	if cfg.Host != "" {
		sender = gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	}
	return NewWithSender(sender, cfg)
}

func NewWithSender(sender Sender, cfg Config) *Mailer {
	size := cfg.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}
	m := &Mailer{
		sender:      sender,
		from:        cfg.From,
		frontendURL: cfg.FrontendURL,
		queue:       make(chan *gomail.Message, size),
		backoff: func(attempt int) time.Duration {
			return time.Duration(math.Pow(2, float64(attempt))) * time.Second
		},
		log: logger.WithModule("mailer"),
	}
	m.wg.Add(1)
	go m.run()
	return m
}

func (m *Mailer) run() {
	defer m.wg.Done()
	for msg := range m.queue {
		m.deliver(msg)
	}
}

func (m *Mailer) deliver(msg *gomail.Message) {
	to := msg.GetHeader("To")
	subject := msg.GetHeader("Subject")
	if m.sender == nil {
		m.log.WithFields(logrus.Fields{"to": to, "subject": subject}).Info("smtp not configured, email skipped")
		return
	}
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = m.sender.DialAndSend(msg); err == nil {
			return
		}
		if attempt < maxAttempts {
			time.Sleep(m.backoff(attempt))
		}
	}
	m.log.WithError(err).WithFields(logrus.Fields{"to": to, "subject": subject}).Warn("email delivery failed")
}

// Close stops accepting mail and waits for the queue to drain.
func (m *Mailer) Close() {
	m.closeOnce.Do(func() {
		close(m.queue)
	})
	m.wg.Wait()
}

func (m *Mailer) enqueue(to, subject string, tpl *template.Template, data interface{}) {
	if to == "" {
		return
	}
	html, err := render(tpl, data)
	if err != nil {
		m.log.WithError(err).WithField("template", tpl.Name()).Error("failed to render email")
		return
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", html)

	select {
	case m.queue <- msg:
	default:
		m.log.WithFields(logrus.Fields{"to": to, "subject": subject}).Warn("email queue full, message dropped")
	}
}

func render(tpl *template.Template, data interface{}) (string, error) {
	var body bytes.Buffer
	if err := tpl.Execute(&body, data); err != nil {
		return "", err
	}
	return body.String(), nil
}

type orderMail struct {
	Name     string
	Order    *models.Order
	Customer *models.User
	Link     string
	Note     string
}

func (m *Mailer) orderLink(o *models.Order) string {
	return fmt.Sprintf("%s/orders/%s", m.frontendURL, o.ID.Hex())
}

func (m *Mailer) OrderPlaced(o *models.Order, u *models.User, admins []models.Admin) {
	m.enqueue(u.Email, "Order confirmation "+o.OrderNumber, orderPlacedTpl, orderMail{
		Name: u.Name, Order: o, Customer: u, Link: m.orderLink(o),
	})
	for _, a := range admins {
		if !a.IsActive {
			continue
		}
		m.enqueue(a.Email, "New order "+o.OrderNumber, adminOrderTpl, orderMail{
			Name: a.Name, Order: o, Customer: u, Link: m.frontendURL + "/admin/orders/" + o.ID.Hex(),
		})
	}
}

func (m *Mailer) PaymentReviewed(o *models.Order, u *models.User) {
	subject := "Payment received for " + o.OrderNumber
	if o.PaymentInfo.Status != models.PaymentCompleted {
		subject = "Payment could not be verified for " + o.OrderNumber
	}
	m.enqueue(u.Email, subject, paymentTpl, orderMail{
		Name: u.Name, Order: o, Customer: u, Link: m.orderLink(o), Note: o.PaymentInfo.AdminNote,
	})
}

func (m *Mailer) StatusChanged(o *models.Order, u *models.User) {
	note := ""
	if n := len(o.StatusHistory); n > 0 {
		note = o.StatusHistory[n-1].Note
	}
	m.enqueue(u.Email, fmt.Sprintf("Order %s is %s", o.OrderNumber, o.Status), statusTpl, orderMail{
		Name: u.Name, Order: o, Customer: u, Link: m.orderLink(o), Note: note,
	})
}
