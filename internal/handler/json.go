package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/jx"

	"github.com/avoronov/cartstock/internal/domain/cart"
	"github.com/avoronov/cartstock/internal/domain/catalog"
	"github.com/avoronov/cartstock/internal/domain/checkout"
	"github.com/avoronov/cartstock/internal/domain/stock"
)

// writeJSON streams a response body built by fn.
func writeJSON(w http.ResponseWriter, status int, fn func(e *jx.Encoder)) {
	var e jx.Encoder
	fn(&e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func encodeProduct(e *jx.Encoder, p catalog.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("price")
	e.Float64(p.Price.InexactFloat64())
	e.FieldStart("category")
	e.Str(p.Category)
	e.FieldStart("isActive")
	e.Bool(p.IsActive)
	e.ObjEnd()
}

func encodeCartItem(e *jx.Encoder, it cart.Item) {
	e.ObjStart()
	e.FieldStart("productId")
	e.Str(it.ProductID)
	e.FieldStart("quantity")
	e.Int(it.Quantity)
	e.FieldStart("unitPrice")
	e.Float64(it.UnitPrice.InexactFloat64())
	e.ObjEnd()
}

func encodeCart(e *jx.Encoder, c *cart.Cart) {
	e.ObjStart()
	e.FieldStart("userId")
	e.Str(c.UserID)
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range c.Items {
		encodeCartItem(e, it)
	}
	e.ArrEnd()
	e.FieldStart("totalAmount")
	e.Float64(c.TotalAmount.InexactFloat64())
	e.FieldStart("updatedAt")
	e.Str(c.UpdatedAt.UTC().Format(time.RFC3339))
	e.ObjEnd()
}

func encodeStockRecord(e *jx.Encoder, rec stock.Record) {
	e.ObjStart()
	e.FieldStart("productId")
	e.Str(rec.ProductID)
	e.FieldStart("quantity")
	e.Int(rec.Quantity)
	e.FieldStart("lowStockThreshold")
	e.Int(rec.LowStockThreshold)
	e.FieldStart("isLowStock")
	e.Bool(rec.IsLowStock())
	e.FieldStart("warehouse")
	e.Str(rec.Warehouse)
	e.FieldStart("lastRestockedAt")
	e.Str(rec.LastRestockedAt.UTC().Format(time.RFC3339))
	e.FieldStart("updatedAt")
	e.Str(rec.UpdatedAt.UTC().Format(time.RFC3339))
	e.ObjEnd()
}

func encodeCheckoutResult(e *jx.Encoder, res *checkout.Result) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(res.ID)
	e.FieldStart("userId")
	e.Str(res.UserID)
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range res.Items {
		encodeCartItem(e, it)
	}
	e.ArrEnd()
	e.FieldStart("totalAmount")
	e.Float64(res.TotalAmount.InexactFloat64())
	e.FieldStart("completedAt")
	e.Str(res.CompletedAt.UTC().Format(time.RFC3339))
	e.ObjEnd()
}
