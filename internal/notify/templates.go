package notify

import (
	"html/template"
	"strconv"
)

var funcs = template.FuncMap{
	"money": func(v float64) string { return "₹" + strconv.FormatFloat(v, 'f', 2, 64) },
	"mul":   func(p float64, q int) float64 { return p * float64(q) },
}

const itemsTable = `{{define "items"}}
<table cellpadding="6" style="border-collapse:collapse">
  <tr><th align="left">Item</th><th>Qty</th><th align="right">Amount</th></tr>
  {{range .Order.Items}}<tr><td>{{.Name}}</td><td align="center">{{.Quantity}}</td><td align="right">{{money (mul .Price .Quantity)}}</td></tr>
  {{end}}
  <tr><td colspan="2">Subtotal</td><td align="right">{{money .Order.Pricing.Subtotal}}</td></tr>
  <tr><td colspan="2">GST (18%)</td><td align="right">{{money .Order.Pricing.Tax}}</td></tr>
  <tr><td colspan="2">Shipping</td><td align="right">{{money .Order.Pricing.Shipping}}</td></tr>
  <tr><td colspan="2"><b>Total</b></td><td align="right"><b>{{money .Order.Pricing.Total}}</b></td></tr>
</table>{{end}}`

func parse(name, body string) *template.Template {
	return template.Must(template.Must(template.New(name).Funcs(funcs).Parse(itemsTable)).Parse(body))
}

var orderPlacedTpl = parse("order_placed", `<p>Hi {{.Name}},</p>
<p>Thank you for your order <b>{{.Order.OrderNumber}}</b>.</p>
{{template "items" .}}
{{if eq (print .Order.PaymentInfo.Method) "bank_transfer"}}<p>Please upload your payment screenshot so we can confirm the order.</p>{{end}}
<p>Ship to: {{.Order.ShippingAddress.Street}}, {{.Order.ShippingAddress.City}}, {{.Order.ShippingAddress.State}} {{.Order.ShippingAddress.Pincode}}</p>
<p><a href="{{.Link}}">Track your order</a></p>`)

var adminOrderTpl = parse("admin_order", `<p>Hi {{.Name}},</p>
<p>{{.Customer.Name}} ({{.Customer.Email}}) placed order <b>{{.Order.OrderNumber}}</b> paid by {{.Order.PaymentInfo.Method}}.</p>
{{template "items" .}}
<p><a href="{{.Link}}">Open in dashboard</a></p>`)

var paymentTpl = parse("payment", `<p>Hi {{.Name}},</p>
{{if eq (print .Order.PaymentInfo.Status) "completed"}}<p>Your payment for order <b>{{.Order.OrderNumber}}</b> has been verified and the order is confirmed.</p>
{{else}}<p>We could not verify the payment for order <b>{{.Order.OrderNumber}}</b>. Please upload a new screenshot.</p>{{end}}
{{if .Note}}<p>Note: {{.Note}}</p>{{end}}
<p><a href="{{.Link}}">View order</a></p>`)

var statusTpl = parse("status", `<p>Hi {{.Name}},</p>
<p>Your order <b>{{.Order.OrderNumber}}</b> is now <b>{{.Order.Status}}</b>.</p>
{{if .Note}}<p>{{.Note}}</p>{{end}}
<p><a href="{{.Link}}">View order</a></p>`)
