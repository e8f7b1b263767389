package ticket

import (
	"fmt"
	"strings"
	"time"

	"comanda/internal/domain"
)

// lineWidth matches an 80mm thermal roll in its default font.
const lineWidth = 32

const defaultPrepNote = "Standard preparation"

// Ticket is one printable rendition of an order for a destination.
type Ticket struct {
	Order       domain.Order
	Destination domain.Destination
	PrintedAt   time.Time
}

func (t Ticket) TotalItems() int {
	return t.Order.TotalItems()
}

func (t Ticket) Header() string {
	return strings.ToUpper(string(t.Destination)) + " ORDER"
}

// Render lays the ticket out as plain monospace text.
func Render(t Ticket) string {
	var b strings.Builder
	rule := strings.Repeat("-", lineWidth)

	b.WriteString(center(t.Header()))
	b.WriteByte('\n')
	fmt.Fprintf(&b, "Order #: %s\n", t.Order.OrderNumber)
	b.WriteString(t.Order.Timestamp.Local().Format("2006-01-02 15:04:05"))
	b.WriteByte('\n')
	if t.Order.WaiterName != "" {
		fmt.Fprintf(&b, "Waiter: %s\n", t.Order.WaiterName)
	}
	b.WriteString(rule)
	b.WriteByte('\n')

	for _, item := range t.Order.Items {
		b.WriteString(itemLine(item.Name, item.Quantity))
		b.WriteByte('\n')
		if item.OrderType != "" {
			fmt.Fprintf(&b, "Type: %s\n", strings.ToUpper(string(item.OrderType)))
		}
		note := item.PrepNote
		if strings.TrimSpace(note) == "" {
			note = defaultPrepNote
		}
		b.WriteString(note)
		b.WriteByte('\n')
		b.WriteString(rule)
		b.WriteByte('\n')
	}

	fmt.Fprintf(&b, "Total Items: %d\n", t.TotalItems())
	fmt.Fprintf(&b, "Printed: %s\n", t.PrintedAt.Local().Format("15:04:05"))
	return b.String()
}

func itemLine(name string, quantity int) string {
	qty := fmt.Sprintf("x%d", quantity)
	pad := lineWidth - len(name) - len(qty)
	if pad < 1 {
		pad = 1
	}
	return name + strings.Repeat(" ", pad) + qty
}

func center(s string) string {
	if len(s) >= lineWidth {
		return s
	}
	return strings.Repeat(" ", (lineWidth-len(s))/2) + s
}
