package notifier

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/solarshop412/solar-shop-sub000/internal/services"
)

// Email is a rendered message ready for a delivery backend.
type Email struct {
	From    string `json:"from,omitempty"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	Kind    string `json:"kind"`
}

var printer = message.NewPrinter(language.English)

func renderOrderConfirmation(recipient string, order services.OrderNotification, admin bool) Email {
	var b strings.Builder
	if admin {
		fmt.Fprintf(&b, "New order %s from %s <%s>\n", order.OrderNumber, order.CustomerName, order.CustomerEmail)
		if order.IsB2B && order.CompanyName != "" {
			fmt.Fprintf(&b, "Company: %s\n", order.CompanyName)
		}
	} else {
		fmt.Fprintf(&b, "Hello %s,\n\nthank you for your order %s.\n", displayName(order.CustomerName), order.OrderNumber)
	}
	b.WriteString("\n")
	for _, item := range order.Items {
		fmt.Fprintf(&b, "%d x %s  %s\n", item.Quantity, item.Name, formatMoney(order.Currency, item.Total))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Subtotal: %s\n", formatMoney(order.Currency, order.Subtotal))
	if !isZero(order.Discount) {
		fmt.Fprintf(&b, "Discount: -%s\n", formatMoney(order.Currency, order.Discount))
	}
	if !order.IsB2B {
		fmt.Fprintf(&b, "Tax: %s\n", formatMoney(order.Currency, order.Tax))
		fmt.Fprintf(&b, "Shipping: %s\n", formatMoney(order.Currency, order.Shipping))
	}
	fmt.Fprintf(&b, "Total: %s\n", formatMoney(order.Currency, order.Total))
	if order.Notes != "" {
		fmt.Fprintf(&b, "\nNotes: %s\n", order.Notes)
	}

	subject := "Order confirmation " + order.OrderNumber
	kind := services.NotificationOrderConfirmation
	if admin {
		subject = "New order " + order.OrderNumber
		kind = services.NotificationOrderConfirmationAdmin
	}
	return Email{To: recipient, Subject: subject, Text: b.String(), Kind: kind}
}

func renderStatusChange(recipient string, change services.StatusChangeNotification) Email {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", displayName(change.CustomerName))
	fmt.Fprintf(&b, "the %s of order %s changed from %s to %s.\n",
		axisLabel(change.Axis), change.OrderNumber, humanize(change.Previous), humanize(change.Current))
	if change.Reason != "" {
		fmt.Fprintf(&b, "Reason: %s\n", change.Reason)
	}
	return Email{
		To:      recipient,
		Subject: fmt.Sprintf("Order %s: %s", change.OrderNumber, humanize(change.Current)),
		Text:    b.String(),
		Kind:    services.NotificationOrderStatusChanged,
	}
}

func renderCompanyApproval(recipient string, company services.CompanyNotification) Email {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", displayName(company.ContactName))
	fmt.Fprintf(&b, "your business account for %s has been approved. Business pricing is now available when you sign in.\n", company.CompanyName)
	return Email{
		To:      recipient,
		Subject: "Business account approved",
		Text:    b.String(),
		Kind:    services.NotificationCompanyApproval,
	}
}

// formatMoney renders a display amount with its currency symbol. Unknown currencies fall back
// to the ISO code.
func formatMoney(code, amount string) string {
	value, err := decimal.NewFromString(amount)
	if err != nil {
		return strings.TrimSpace(code + " " + amount)
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return strings.TrimSpace(code + " " + value.StringFixed(2))
	}
	return printer.Sprint(currency.Symbol(unit.Amount(value.InexactFloat64())))
}

func isZero(amount string) bool {
	value, err := decimal.NewFromString(amount)
	return err == nil && value.IsZero()
}

func displayName(name string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return "customer"
}

func axisLabel(axis string) string {
	switch axis {
	case services.StatusAxisPayment:
		return "payment status"
	case services.StatusAxisShipping:
		return "shipping status"
	default:
		return "status"
	}
}

func humanize(status string) string {
	if status == "" {
		return "unset"
	}
	return strings.ReplaceAll(status, "_", " ")
}
