// Package handler exposes the cart, inventory, and checkout operations over
// HTTP and maps domain results to status codes. The routing surface is a
// plain net/http mux; request identity arrives as a path segment since
// authentication is handled upstream.
package handler

import (
	"net/http"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/avoronov/cartstock/internal/domain/cart"
	"github.com/avoronov/cartstock/internal/domain/catalog"
	"github.com/avoronov/cartstock/internal/domain/checkout"
	"github.com/avoronov/cartstock/internal/domain/stock"
)

// Handler serves the HTTP API, delegating business logic to the injected
// domain services and repositories.
type Handler struct {
	products catalog.Repository
	stocks   stock.Repository
	ledger   *stock.Ledger
	carts    *cart.Store
	checkout *checkout.Orchestrator

	checkoutsCompleted metric.Int64Counter
	checkoutsRejected  metric.Int64Counter
}

// NewHandler constructs a Handler with the required domain dependencies.
// A nil meter falls back to a no-op provider; counters are always non-nil.
func NewHandler(
	meter metric.Meter,
	products catalog.Repository,
	stocks stock.Repository,
	ledger *stock.Ledger,
	carts *cart.Store,
	orchestrator *checkout.Orchestrator,
) (*Handler, error) {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("cartstock")
	}

	completed, err := meter.Int64Counter("cartstock.checkouts.completed",
		metric.WithDescription("Checkouts that committed a reservation and cleared the cart"))
	if err != nil {
		return nil, err
	}
	rejected, err := meter.Int64Counter("cartstock.checkouts.rejected",
		metric.WithDescription("Checkouts rejected before any stock was decremented"))
	if err != nil {
		return nil, err
	}

	return &Handler{
		products:           products,
		stocks:             stocks,
		ledger:             ledger,
		carts:              carts,
		checkout:           orchestrator,
		checkoutsCompleted: completed,
		checkoutsRejected:  rejected,
	}, nil
}

// Register attaches all API routes to the mux under /api.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/products/{productID}", h.getProduct)

	mux.HandleFunc("GET /api/carts/{userID}", h.getCart)
	mux.HandleFunc("DELETE /api/carts/{userID}", h.clearCart)
	mux.HandleFunc("POST /api/carts/{userID}/items", h.addCartItem)
	mux.HandleFunc("PUT /api/carts/{userID}/items/{productID}", h.updateCartItem)
	mux.HandleFunc("DELETE /api/carts/{userID}/items/{productID}", h.removeCartItem)
	mux.HandleFunc("POST /api/carts/{userID}/checkout", h.checkoutCart)

	mux.HandleFunc("GET /api/inventory", h.listInventory)
	mux.HandleFunc("POST /api/inventory", h.createInventory)
	mux.HandleFunc("GET /api/inventory/{productID}", h.getInventory)
	mux.HandleFunc("PUT /api/inventory/{productID}", h.updateInventory)
	mux.HandleFunc("POST /api/inventory/{productID}/add-stock", h.addStock)
	mux.HandleFunc("POST /api/inventory/{productID}/reduce-stock", h.reduceStock)
}
