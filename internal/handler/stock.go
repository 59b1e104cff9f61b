package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-faster/jx"

	"github.com/avoronov/cartstock/internal/domain/stock"
)

type createInventoryRequest struct {
	ProductID         string `json:"productId"`
	Quantity          int    `json:"quantity"`
	LowStockThreshold *int   `json:"lowStockThreshold"`
	Warehouse         string `json:"warehouse"`
}

// updateInventoryRequest carries a partial update: absent fields keep their
// stored values.
type updateInventoryRequest struct {
	Quantity          *int    `json:"quantity"`
	LowStockThreshold *int    `json:"lowStockThreshold"`
	Warehouse         *string `json:"warehouse"`
}

type adjustStockRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) getInventory(w http.ResponseWriter, r *http.Request) {
	rec, err := h.stocks.GetByProduct(r.Context(), r.PathValue("productID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeStockRecord(w, http.StatusOK, rec)
}

func (h *Handler) listInventory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := stock.ListFilter{
		LowStockOnly: q.Get("lowStock") == "true",
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	records, err := h.stocks.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("count")
		e.Int(len(records))
		e.FieldStart("records")
		e.ArrStart()
		for _, rec := range records {
			encodeStockRecord(e, rec)
		}
		e.ArrEnd()
		e.ObjEnd()
	})
}

func (h *Handler) createInventory(w http.ResponseWriter, r *http.Request) {
	var req createInventoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID == "" || req.Quantity < 0 {
		writeError(w, stock.ErrInvalidAmount)
		return
	}

	if _, err := h.products.GetByID(r.Context(), req.ProductID); err != nil {
		writeError(w, err)
		return
	}

	threshold := stock.DefaultLowStockThreshold
	if req.LowStockThreshold != nil {
		if *req.LowStockThreshold < 0 {
			writeError(w, stock.ErrInvalidAmount)
			return
		}
		threshold = *req.LowStockThreshold
	}
	warehouse := req.Warehouse
	if warehouse == "" {
		warehouse = stock.DefaultWarehouse
	}

	rec := &stock.Record{
		ProductID:         req.ProductID,
		Quantity:          req.Quantity,
		LowStockThreshold: threshold,
		Warehouse:         warehouse,
	}
	if err := h.stocks.Create(r.Context(), rec); err != nil {
		writeError(w, err)
		return
	}

	created, err := h.stocks.GetByProduct(r.Context(), req.ProductID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeStockRecord(w, http.StatusCreated, created)
}

func (h *Handler) updateInventory(w http.ResponseWriter, r *http.Request) {
	var req updateInventoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, stock.ErrInvalidAmount)
		return
	}

	rec, err := h.stocks.GetByProduct(r.Context(), r.PathValue("productID"))
	if err != nil {
		writeError(w, err)
		return
	}

	if req.Quantity != nil {
		if *req.Quantity < 0 {
			writeError(w, stock.ErrInvalidAmount)
			return
		}
		rec.Quantity = *req.Quantity
	}
	if req.LowStockThreshold != nil {
		if *req.LowStockThreshold < 0 {
			writeError(w, stock.ErrInvalidAmount)
			return
		}
		rec.LowStockThreshold = *req.LowStockThreshold
	}
	if req.Warehouse != nil && *req.Warehouse != "" {
		rec.Warehouse = *req.Warehouse
	}

	if err := h.stocks.Update(r.Context(), rec); err != nil {
		writeError(w, err)
		return
	}

	updated, err := h.stocks.GetByProduct(r.Context(), rec.ProductID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeStockRecord(w, http.StatusOK, updated)
}

func (h *Handler) addStock(w http.ResponseWriter, r *http.Request) {
	var req adjustStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, stock.ErrInvalidAmount)
		return
	}

	rec, err := h.ledger.Increase(r.Context(), r.PathValue("productID"), req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeStockRecord(w, http.StatusOK, rec)
}

func (h *Handler) reduceStock(w http.ResponseWriter, r *http.Request) {
	var req adjustStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, stock.ErrInvalidAmount)
		return
	}

	rec, err := h.ledger.Decrease(r.Context(), r.PathValue("productID"), req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeStockRecord(w, http.StatusOK, rec)
}

func writeStockRecord(w http.ResponseWriter, status int, rec *stock.Record) {
	writeJSON(w, status, func(e *jx.Encoder) {
		encodeStockRecord(e, *rec)
	})
}
