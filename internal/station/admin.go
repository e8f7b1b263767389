package station

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"comanda/internal/clock"
	"comanda/internal/domain"
	"comanda/internal/feed"
	"comanda/internal/httpx"
	"comanda/internal/realtime"
	"comanda/internal/ticket"
)

// Channel is the real-time client as the admin view uses it.
type Channel interface {
	feed.Channel
	Status() realtime.Status
}

type OrderRow struct {
	domain.Order
	TotalItems  int           `json:"totalItems"`
	TotalAmount string        `json:"totalAmount"`
	Status      ticket.Status `json:"status"`
	ActionLabel string        `json:"actionLabel"`
}

type destinationRequest struct {
	Destination string `json:"destination"`
}

// AdminView shows the live order feed and drives ticket printing.
type AdminView struct {
	feed     *feed.Store
	workflow *ticket.Workflow
	channel  Channel
	logger   *zap.Logger
}

func NewAdminView(sess domain.Session, ch Channel, printer ticket.Printer, clk clock.Clock, group string, logger *zap.Logger) (*AdminView, error) {
	announce := func(o domain.Order) {
		logger.Info("new order received",
			zap.String("orderNumber", o.OrderNumber),
			zap.String("waiterName", o.WaiterName),
			zap.Int("totalItems", o.TotalItems()),
		)
	}

	store := feed.NewStore(group, announce, logger)
	if err := store.Activate(sess, ch); err != nil {
		return nil, err
	}

	return &AdminView{
		feed:     store,
		workflow: ticket.NewWorkflow(store, printer, clk, logger),
		channel:  ch,
		logger:   logger,
	}, nil
}

func (v *AdminView) Capability() domain.Capability {
	return domain.CapabilityAdminView
}

func (v *AdminView) Routes(r chi.Router) {
	r.Get("/orders", v.listOrders)
	r.Post("/orders/{orderNumber}/ticket", v.openTicket)
	r.Get("/ticket", v.currentTicket)
	r.Delete("/ticket", v.cancelTicket)
	r.Put("/ticket/destination", v.setDestination)
	r.Post("/ticket/print", v.print)
	r.Get("/connection", v.connection)
}

func (v *AdminView) Close() {
	v.feed.Close()
	v.workflow.Reset()
}

// Rows returns the feed newest first with each order's print state.
func (v *AdminView) Rows() []OrderRow {
	orders := v.feed.Snapshot()
	rows := make([]OrderRow, len(orders))
	for i, o := range orders {
		rows[i] = OrderRow{
			Order:       o,
			TotalItems:  o.TotalItems(),
			TotalAmount: domain.FormatAmount(o.TotalAmount()),
			Status:      v.workflow.Status(o.OrderNumber),
			ActionLabel: v.workflow.ActionLabel(o.OrderNumber),
		}
	}
	return rows
}

func (v *AdminView) listOrders(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, v.Rows(), v.logger)
}

func (v *AdminView) openTicket(w http.ResponseWriter, r *http.Request) {
	traceID := httpx.NewTraceID()

	view, err := v.workflow.Open(chi.URLParam(r, "orderNumber"))
	if err != nil {
		writeError(w, traceID, err, v.logger)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, view, v.logger)
}

func (v *AdminView) currentTicket(w http.ResponseWriter, r *http.Request) {
	view, ok := v.workflow.Current()
	if !ok {
		httpx.WriteErrorResponse(w, httpx.NewTraceID(), http.StatusNotFound, httpx.CodeNotFound, "no ticket is open", nil, v.logger)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, view, v.logger)
}

func (v *AdminView) cancelTicket(w http.ResponseWriter, r *http.Request) {
	v.workflow.Cancel()
	w.WriteHeader(http.StatusNoContent)
}

func (v *AdminView) setDestination(w http.ResponseWriter, r *http.Request) {
	traceID := httpx.NewTraceID()

	var req destinationRequest
	if !httpx.DecodeJSON(w, r, traceID, &req, v.logger) {
		return
	}

	view, err := v.workflow.SetDestination(domain.Destination(req.Destination))
	if err != nil {
		writeError(w, traceID, err, v.logger)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, view, v.logger)
}

func (v *AdminView) print(w http.ResponseWriter, r *http.Request) {
	traceID := httpx.NewTraceID()

	result, err := v.workflow.Print(r.Context())
	if err != nil {
		writeError(w, traceID, err, v.logger)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, result, v.logger)
}

func (v *AdminView) connection(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, v.channel.Status(), v.logger)
}
