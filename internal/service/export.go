package service

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"crackers-backend/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var exportHeader = []string{
	"Order Number", "Date", "Customer", "Email", "Phone", "Items", "Subtotal", "Tax",
	"Shipping", "Total", "Payment Method", "Payment Status", "Transaction ID", "Status",
	"City", "State", "Pincode",
}

// ExportCSV writes every order matching q, ignoring paging.
func (s *Orders) ExportCSV(ctx context.Context, q OrderQuery, w io.Writer) error {
	f, err := q.filter()
	if err != nil {
		return err
	}
	f.Page, f.Limit = 1, 0
	orders, _, err := s.orders.List(ctx, f)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	customers := map[primitive.ObjectID]*models.User{}
	for i := range orders {
		o := &orders[i]
		u, ok := customers[o.User]
		if !ok {
			u, _ = s.users.FindByID(ctx, o.User)
			customers[o.User] = u
		}
		name, email := o.ShippingAddress.Name, ""
		if u != nil {
			email = u.Email
			if name == "" {
				name = u.Name
			}
		}
		record := []string{
			o.OrderNumber,
			o.CreatedAt.Format("2006-01-02 15:04"),
			name,
			email,
			o.ShippingAddress.Phone,
			strconv.Itoa(o.ItemCount()),
			money(o.Pricing.Subtotal),
			money(o.Pricing.Tax),
			money(o.Pricing.Shipping),
			money(o.Pricing.Total),
			string(o.PaymentInfo.Method),
			string(o.PaymentInfo.Status),
			o.PaymentInfo.TransactionID,
			string(o.Status),
			o.ShippingAddress.City,
			o.ShippingAddress.State,
			o.ShippingAddress.Pincode,
		}
		for j := range record {
			record[j] = cell(record[j])
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// cell quotes values a spreadsheet would otherwise evaluate as a formula.
func cell(v string) string {
	if v != "" && strings.ContainsRune("=+-@\t\r", rune(v[0])) {
		return "'" + v
	}
	return v
}
