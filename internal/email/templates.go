package email

import (
	"fmt"
	"html"
	"math"
	"strings"

	"github.com/example/payment-reconciler/internal/domain/payment"
)

// OrderItem represents an item in an order for email purposes
type OrderItem struct {
	ProductID string
	Name      string
	Variant   string
	Quantity  int
	UnitPrice float64
}

// Confirmation is everything the confirmation email renders.
type Confirmation struct {
	OrderID       string
	PaymentID     string
	PaymentMethod string
	Items         []OrderItem
	Total         float64
	Shipping      payment.ShippingInfo
	Customer      payment.CustomerDetails
	Recipients    []string
}

// Subject returns the confirmation subject line.
func (c Confirmation) Subject() string {
	return fmt.Sprintf("Order confirmed: %s", c.OrderID)
}

// BuildOrderConfirmationBody builds the HTML body for order confirmation email
func BuildOrderConfirmationBody(c Confirmation) string {
	var itemsHTML strings.Builder
	for _, item := range c.Items {
		name := item.Name
		if name == "" {
			name = item.ProductID
		}
		if item.Variant != "" {
			name = fmt.Sprintf("%s (%s)", name, item.Variant)
		}
		itemsHTML.WriteString(fmt.Sprintf(
			`<tr>
				<td style="padding: 12px; border-bottom: 1px solid #eee;">%s</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: center;">%d</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: right;">%s</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: right;">%s</td>
			</tr>`,
			html.EscapeString(name),
			item.Quantity,
			FormatINR(item.UnitPrice),
			FormatINR(item.UnitPrice*float64(item.Quantity)),
		))
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	<div style="background: #1f2937; padding: 30px; border-radius: 10px 10px 0 0;">
		<h1 style="color: white; margin: 0; font-size: 24px;">Thank you for your order</h1>
	</div>

	<div style="background: #fff; padding: 30px; border: 1px solid #eee; border-top: none; border-radius: 0 0 10px 10px;">
		<p style="margin-top: 0;">Your payment has been received and your order is confirmed.</p>

		<div style="background: #f8f9fa; padding: 15px; border-radius: 5px; margin: 20px 0;">
			<p style="margin: 0; font-size: 14px; color: #666;">Order ID</p>
			<p style="margin: 5px 0 0 0; font-size: 18px; font-weight: bold; font-family: monospace;">%s</p>
			%s
		</div>

		<h2 style="font-size: 18px; border-bottom: 2px solid #1f2937; padding-bottom: 10px;">Items</h2>

		<table style="width: 100%%; border-collapse: collapse; margin: 20px 0;">
			<thead>
				<tr style="background: #f8f9fa;">
					<th style="padding: 12px; text-align: left; font-weight: 600;">Product</th>
					<th style="padding: 12px; text-align: center; font-weight: 600;">Qty</th>
					<th style="padding: 12px; text-align: right; font-weight: 600;">Price</th>
					<th style="padding: 12px; text-align: right; font-weight: 600;">Subtotal</th>
				</tr>
			</thead>
			<tbody>
				%s
			</tbody>
		</table>

		<div style="text-align: right; padding: 20px; background: #f8f9fa; border-radius: 5px;">
			<span style="font-size: 14px; color: #666;">Total</span>
			<span style="font-size: 24px; font-weight: bold; color: #1f2937; margin-left: 10px;">%s</span>
		</div>

		%s

		<hr style="border: none; border-top: 1px solid #eee; margin: 30px 0;">

		<p style="font-size: 12px; color: #999; margin-bottom: 0;">
			This is an automated message. Please contact support if you have any questions about your order.
		</p>
	</div>
</body>
</html>`,
		html.EscapeString(c.OrderID),
		paymentHTML(c),
		itemsHTML.String(),
		FormatINR(c.Total),
		shippingHTML(c),
	)
}

func paymentHTML(c Confirmation) string {
	var b strings.Builder
	if c.PaymentID != "" {
		b.WriteString(fmt.Sprintf(`<p style="margin: 10px 0 0 0; font-size: 14px; color: #666;">Payment ID: %s</p>`, html.EscapeString(c.PaymentID)))
	}
	if c.PaymentMethod != "" {
		b.WriteString(fmt.Sprintf(`<p style="margin: 5px 0 0 0; font-size: 14px; color: #666;">Paid via: %s</p>`, html.EscapeString(c.PaymentMethod)))
	}
	return b.String()
}

func shippingHTML(c Confirmation) string {
	s := c.Shipping
	if s.IsZero() {
		return ""
	}

	var lines []string
	if name := s.FullName(); name != "" {
		lines = append(lines, name)
	}
	for _, l := range []string{s.Address, s.Landmark, s.Location, s.PinCode} {
		if l != "" {
			lines = append(lines, l)
		}
	}
	if s.MobileNumber != "" {
		lines = append(lines, "Phone: "+s.MobileNumber)
	}
	for i, l := range lines {
		lines[i] = html.EscapeString(l)
	}

	return fmt.Sprintf(`<h2 style="font-size: 18px; border-bottom: 2px solid #1f2937; padding-bottom: 10px;">Shipping to</h2>
		<p style="margin: 0;">%s</p>`, strings.Join(lines, "<br>"))
}

// FormatINR formats an amount in rupees with Indian digit grouping,
// e.g. 123456.5 becomes ₹1,23,456.50.
func FormatINR(amount float64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	paise := int64(math.Round(amount * 100))
	return fmt.Sprintf("%s₹%s.%02d", sign, groupIndian(paise/100), paise%100)
}

// groupIndian groups the last three digits, then every two.
func groupIndian(n int64) string {
	str := fmt.Sprintf("%d", n)
	if len(str) <= 3 {
		return str
	}

	head, tail := str[:len(str)-3], str[len(str)-3:]
	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	if head != "" {
		groups = append([]string{head}, groups...)
	}
	return strings.Join(groups, ",") + "," + tail
}
