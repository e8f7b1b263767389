package ticket

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"comanda/internal/clock"
	"comanda/internal/domain"
	apperrors "comanda/internal/errors"
)

type mockSource struct {
	orders       map[string]domain.Order
	destinations map[string]domain.Destination
}

func newMockSource(orders ...domain.Order) *mockSource {
	m := &mockSource{orders: map[string]domain.Order{}, destinations: map[string]domain.Destination{}}
	for _, o := range orders {
		m.orders[o.OrderNumber] = o
	}
	return m
}

func (m *mockSource) Get(orderNumber string) (domain.Order, bool) {
	o, ok := m.orders[orderNumber]
	return o, ok
}

func (m *mockSource) SetDestination(orderNumber string, dest domain.Destination) error {
	m.destinations[orderNumber] = dest
	return nil
}

type mockPrinter struct {
	PrintFunc func(ctx context.Context, t Ticket, text string) error
	printed   []Ticket
}

func (m *mockPrinter) Print(ctx context.Context, t Ticket, text string) error {
	if m.PrintFunc != nil {
		if err := m.PrintFunc(ctx, t, text); err != nil {
			return err
		}
	}
	m.printed = append(m.printed, t)
	return nil
}

func newTestWorkflow(source OrderSource, printer Printer) *Workflow {
	return NewWorkflow(source, printer, clock.NewFixed(printTime), zap.NewNop())
}

func TestWorkflow_OpenInitialisesDestination(t *testing.T) {
	order := sampleOrder()
	order.Destination = domain.DestinationButcher
	w := newTestWorkflow(newMockSource(order), &mockPrinter{})

	view, err := w.Open(order.OrderNumber)
	require.NoError(t, err)

	assert.Equal(t, domain.DestinationButcher, view.Destination)
	assert.Equal(t, StatusPending, view.Status)
	assert.Equal(t, LabelPrint, view.ActionLabel)
	assert.Contains(t, view.Preview, "BUTCHER ORDER")
}

func TestWorkflow_OpenUnknownOrder(t *testing.T) {
	w := newTestWorkflow(newMockSource(), &mockPrinter{})

	_, err := w.Open("nope")
	_, ok := apperrors.IsNotFoundError(err)
	assert.True(t, ok)
}

func TestWorkflow_SetDestinationOnlyTouchesSelector(t *testing.T) {
	order := sampleOrder()
	source := newMockSource(order)
	w := newTestWorkflow(source, &mockPrinter{})

	_, err := w.Open(order.OrderNumber)
	require.NoError(t, err)

	view, err := w.SetDestination(domain.DestinationButcher)
	require.NoError(t, err)
	assert.Equal(t, domain.DestinationButcher, view.Destination)

	assert.Empty(t, source.destinations)
	assert.Equal(t, domain.DestinationKitchen, source.orders[order.OrderNumber].Destination)
}

func TestWorkflow_SetDestinationValidation(t *testing.T) {
	w := newTestWorkflow(newMockSource(sampleOrder()), &mockPrinter{})

	_, err := w.SetDestination(domain.DestinationButcher)
	_, ok := apperrors.IsConflictError(err)
	assert.True(t, ok)

	_, err = w.SetDestination("bar")
	_, ok = apperrors.IsValidationError(err)
	assert.True(t, ok)
}

func TestWorkflow_PrintTransitionsToPrinted(t *testing.T) {
	order := sampleOrder()
	source := newMockSource(order)
	printer := &mockPrinter{}
	w := newTestWorkflow(source, printer)

	_, err := w.Open(order.OrderNumber)
	require.NoError(t, err)
	_, err = w.SetDestination(domain.DestinationButcher)
	require.NoError(t, err)

	result, err := w.Print(context.Background())
	require.NoError(t, err)

	assert.Equal(t, order.OrderNumber, result.OrderNumber)
	assert.Equal(t, domain.DestinationButcher, result.Destination)
	assert.False(t, result.Reprint)
	assert.Equal(t, printTime, result.PrintedAt)
	assert.Contains(t, result.Text, "BUTCHER ORDER")
	require.Len(t, printer.printed, 1)

	assert.Equal(t, StatusPrinted, w.Status(order.OrderNumber))
	assert.Equal(t, LabelPrintAgain, w.ActionLabel(order.OrderNumber))
	assert.Equal(t, []string{order.OrderNumber}, w.Printed())
	assert.Equal(t, domain.DestinationButcher, source.destinations[order.OrderNumber])

	_, open := w.Current()
	assert.False(t, open)
}

func TestWorkflow_PrintAgainStaysPrinted(t *testing.T) {
	order := sampleOrder()
	printer := &mockPrinter{}
	w := newTestWorkflow(newMockSource(order), printer)

	for i := 0; i < 2; i++ {
		view, err := w.Open(order.OrderNumber)
		require.NoError(t, err)
		if i == 1 {
			assert.Equal(t, LabelPrintAgain, view.ActionLabel)
		}
		result, err := w.Print(context.Background())
		require.NoError(t, err)
		assert.Equal(t, i == 1, result.Reprint)
	}

	assert.Len(t, printer.printed, 2)
	assert.Equal(t, StatusPrinted, w.Status(order.OrderNumber))
	assert.Len(t, w.Printed(), 1)
}

func TestWorkflow_PrintFailureLeavesPending(t *testing.T) {
	order := sampleOrder()
	source := newMockSource(order)
	printer := &mockPrinter{
		PrintFunc: func(ctx context.Context, t Ticket, text string) error {
			return errors.New("printer offline")
		},
	}
	w := newTestWorkflow(source, printer)

	_, err := w.Open(order.OrderNumber)
	require.NoError(t, err)

	_, err = w.Print(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "printer offline")

	assert.Equal(t, StatusPending, w.Status(order.OrderNumber))
	assert.Empty(t, w.Printed())
	assert.Empty(t, source.destinations)

	view, open := w.Current()
	assert.True(t, open)
	assert.Equal(t, LabelPrint, view.ActionLabel)
}

func TestWorkflow_PrintWithoutOpenTicket(t *testing.T) {
	w := newTestWorkflow(newMockSource(), &mockPrinter{})

	_, err := w.Print(context.Background())
	_, ok := apperrors.IsConflictError(err)
	assert.True(t, ok)
}

func TestWorkflow_CancelAndReset(t *testing.T) {
	order := sampleOrder()
	w := newTestWorkflow(newMockSource(order), &mockPrinter{})

	_, err := w.Open(order.OrderNumber)
	require.NoError(t, err)
	w.Cancel()
	_, open := w.Current()
	assert.False(t, open)

	_, err = w.Open(order.OrderNumber)
	require.NoError(t, err)
	_, err = w.Print(context.Background())
	require.NoError(t, err)

	w.Reset()
	assert.Equal(t, StatusPending, w.Status(order.OrderNumber))
	assert.Empty(t, w.Printed())
}
