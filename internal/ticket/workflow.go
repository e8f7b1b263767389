package ticket

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"comanda/internal/clock"
	"comanda/internal/domain"
	apperrors "comanda/internal/errors"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusPrinted Status = "printed"
)

const (
	LabelPrint      = "Print"
	LabelPrintAgain = "Print Again"
)

// OrderSource is where the workflow finds orders and records the
// destination a ticket was finally printed for.
type OrderSource interface {
	Get(orderNumber string) (domain.Order, bool)
	SetDestination(orderNumber string, dest domain.Destination) error
}

// View is the open ticket as the operator sees it.
type View struct {
	Order       domain.Order       `json:"order"`
	Destination domain.Destination `json:"destination"`
	Status      Status             `json:"status"`
	ActionLabel string             `json:"actionLabel"`
	Preview     string             `json:"preview"`
}

type Result struct {
	OrderNumber string             `json:"orderNumber"`
	Destination domain.Destination `json:"destination"`
	PrintedAt   time.Time          `json:"printedAt"`
	Reprint     bool               `json:"reprint"`
	Text        string             `json:"text"`
}

// Workflow drives ticket printing for one admin view. Each order is Pending
// until its first successful print and Printed afterwards; printing again
// keeps it Printed.
type Workflow struct {
	source  OrderSource
	printer Printer
	clock   clock.Clock
	logger  *zap.Logger

	mu          sync.Mutex
	current     *domain.Order
	destination domain.Destination
	printed     map[string]struct{}
}

func NewWorkflow(source OrderSource, printer Printer, clk clock.Clock, logger *zap.Logger) *Workflow {
	return &Workflow{
		source:  source,
		printer: printer,
		clock:   clk,
		logger:  logger,
		printed: make(map[string]struct{}),
	}
}

// Open selects the order and resets the destination selector to the order's
// own destination.
func (w *Workflow) Open(orderNumber string) (View, error) {
	order, ok := w.source.Get(orderNumber)
	if !ok {
		return View{}, apperrors.NewNotFoundError(fmt.Sprintf("order %s not found", orderNumber))
	}

	dest := order.Destination
	if !dest.Valid() {
		dest = domain.DestinationKitchen
	}

	w.mu.Lock()
	w.current = &order
	w.destination = dest
	view := w.viewLocked()
	w.mu.Unlock()

	return view, nil
}

// SetDestination changes the selector of the open ticket only.
func (w *Workflow) SetDestination(dest domain.Destination) (View, error) {
	if !dest.Valid() {
		return View{}, apperrors.NewValidationError("invalid destination", apperrors.ValidationDetail{
			Field:   "destination",
			Message: "destination must be kitchen or butcher",
		})
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current == nil {
		return View{}, apperrors.NewConflictError("no ticket is open")
	}
	w.destination = dest
	return w.viewLocked(), nil
}

func (w *Workflow) Current() (View, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current == nil {
		return View{}, false
	}
	return w.viewLocked(), true
}

// Cancel closes the open ticket without printing.
func (w *Workflow) Cancel() {
	w.mu.Lock()
	w.current = nil
	w.mu.Unlock()
}

// Print renders the open ticket and sends it to the printer. Only a
// successful print marks the order printed and closes the ticket; on
// failure nothing changes and the error is returned to the operator.
func (w *Workflow) Print(ctx context.Context) (Result, error) {
	w.mu.Lock()
	if w.current == nil {
		w.mu.Unlock()
		return Result{}, apperrors.NewConflictError("no ticket is open")
	}
	order := w.current.Clone()
	dest := w.destination
	_, reprint := w.printed[order.OrderNumber]
	w.mu.Unlock()

	t := Ticket{Order: order, Destination: dest, PrintedAt: w.clock.Now()}
	text := Render(t)

	if err := w.printer.Print(ctx, t, text); err != nil {
		w.logger.Error("ticket print failed", zap.String("orderNumber", order.OrderNumber), zap.String("destination", string(dest)), zap.Error(err))
		return Result{}, apperrors.NewInternalError(fmt.Sprintf("printing order %s", order.OrderNumber), err)
	}

	w.mu.Lock()
	w.printed[order.OrderNumber] = struct{}{}
	if w.current != nil && w.current.OrderNumber == order.OrderNumber {
		w.current = nil
	}
	w.mu.Unlock()

	if err := w.source.SetDestination(order.OrderNumber, dest); err != nil {
		w.logger.Warn("recording printed destination", zap.String("orderNumber", order.OrderNumber), zap.Error(err))
	}

	w.logger.Info("ticket printed", zap.String("orderNumber", order.OrderNumber), zap.String("destination", string(dest)), zap.Bool("reprint", reprint))

	return Result{
		OrderNumber: order.OrderNumber,
		Destination: dest,
		PrintedAt:   t.PrintedAt,
		Reprint:     reprint,
		Text:        text,
	}, nil
}

func (w *Workflow) Status(orderNumber string) Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.statusLocked(orderNumber)
}

func (w *Workflow) IsPrinted(orderNumber string) bool {
	return w.Status(orderNumber) == StatusPrinted
}

func (w *Workflow) ActionLabel(orderNumber string) string {
	if w.IsPrinted(orderNumber) {
		return LabelPrintAgain
	}
	return LabelPrint
}

// Printed lists the order numbers printed at least once, sorted.
func (w *Workflow) Printed() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.printed))
	for n := range w.printed {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Reset forgets the open ticket and every printed mark, as when the view is
// left.
func (w *Workflow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.current = nil
	w.printed = make(map[string]struct{})
}

func (w *Workflow) statusLocked(orderNumber string) Status {
	if _, ok := w.printed[orderNumber]; ok {
		return StatusPrinted
	}
	return StatusPending
}

func (w *Workflow) viewLocked() View {
	order := w.current.Clone()
	status := w.statusLocked(order.OrderNumber)
	label := LabelPrint
	if status == StatusPrinted {
		label = LabelPrintAgain
	}
	return View{
		Order:       order,
		Destination: w.destination,
		Status:      status,
		ActionLabel: label,
		Preview:     Render(Ticket{Order: order, Destination: w.destination, PrintedAt: w.clock.Now()}),
	}
}
