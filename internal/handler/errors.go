package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/avoronov/cartstock/internal/domain/cart"
	"github.com/avoronov/cartstock/internal/domain/catalog"
	"github.com/avoronov/cartstock/internal/domain/checkout"
	"github.com/avoronov/cartstock/internal/domain/reservation"
	"github.com/avoronov/cartstock/internal/domain/stock"
)

// Error codes surfaced in response bodies. partial_commit is kept distinct
// from ordinary rejections: stock is already decremented while the cart is
// still populated, and an operator or retry path must reconcile the two.
const (
	codeNotFound          = "not_found"
	codeInvalidArgument   = "invalid_argument"
	codeInsufficientStock = "insufficient_stock"
	codeEmptyCart         = "empty_cart"
	codeItemNotFound      = "item_not_found"
	codeCommitRace        = "commit_race"
	codePartialCommit     = "partial_commit"
	codeInternal          = "internal"
)

// writeError maps a domain error to a status code and a JSON body carrying
// the machine-readable code and, where known, the failing product.
func writeError(w http.ResponseWriter, err error) {
	status, code, productID := classifyError(err)

	message := err.Error()
	if status == http.StatusInternalServerError && code == codeInternal {
		message = "internal server error"
	}

	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("code")
		e.Str(code)
		e.FieldStart("message")
		e.Str(message)
		if productID != "" {
			e.FieldStart("productId")
			e.Str(productID)
		}
		e.ObjEnd()
	})
}

func classifyError(err error) (status int, code, productID string) {
	switch {
	case errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, stock.ErrNotFound),
		errors.Is(err, cart.ErrNotFound):
		return http.StatusNotFound, codeNotFound, ""
	case errors.Is(err, stock.ErrInvalidAmount),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, reservation.ErrEmptyDemands):
		return http.StatusBadRequest, codeInvalidArgument, ""
	case errors.Is(err, checkout.ErrEmptyCart):
		return http.StatusBadRequest, codeEmptyCart, ""
	}

	var itemNotFound *cart.ItemNotFoundError
	if errors.As(err, &itemNotFound) {
		return http.StatusNotFound, codeItemNotFound, itemNotFound.ProductID
	}

	var invalidDemand *reservation.InvalidDemandError
	if errors.As(err, &invalidDemand) {
		return http.StatusBadRequest, codeInvalidArgument, invalidDemand.ProductID
	}

	var insufficient *stock.InsufficientStockError
	if errors.As(err, &insufficient) {
		return http.StatusBadRequest, codeInsufficientStock, insufficient.ProductID
	}

	var rejected *reservation.RejectedError
	if errors.As(err, &rejected) {
		return http.StatusBadRequest, codeInsufficientStock, rejected.FailingProductID
	}

	var race *checkout.CommitRaceError
	if errors.As(err, &race) {
		return http.StatusBadRequest, codeCommitRace, race.FailingProductID
	}

	var partial *checkout.PartialCommitError
	if errors.As(err, &partial) {
		return http.StatusInternalServerError, codePartialCommit, ""
	}

	return http.StatusInternalServerError, codeInternal, ""
}
