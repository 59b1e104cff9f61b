package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

func (h *Handler) checkoutCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.PathValue("userID")

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.String("checkout.user_id", userID))

	result, err := h.checkout.Checkout(ctx, userID)
	if err != nil {
		_, code, productID := classifyError(err)
		h.checkoutsRejected.Add(ctx, 1, metric.WithAttributes(
			attribute.String("reason", code),
		))
		if productID != "" {
			span.SetAttributes(attribute.String("checkout.failing_product_id", productID))
		}
		writeError(w, err)
		return
	}

	h.checkoutsCompleted.Add(ctx, 1)
	span.SetAttributes(attribute.String("checkout.result_id", result.ID))

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeCheckoutResult(e, result)
	})
}
