// BookHub - Bookstore Storefront and Real-time Catalog Sync
// Copyright 2026 BookHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookhubhq/bookhub

package api

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bookhubhq/bookhub/internal/logging"
	"github.com/bookhubhq/bookhub/internal/models"
	"github.com/bookhubhq/bookhub/internal/store"
)

// CreateOrder places an order for a single book. Price and title come
// from the stored book, so a tampered request body cannot change what
// is charged.
//
// @Summary Place an order
// @Description Orders a single book. The amount and title come from the stored book, never from the request body.
// @Tags Orders
// @Accept json
// @Produce json
// @Param order body CreateOrderRequest true "Order details"
// @Success 201 {object} APIResponse{data=models.Order} "Order placed"
// @Failure 400 {object} APIResponse "Validation failed"
// @Failure 404 {object} APIResponse "Book not found"
// @Security BearerAuth
// @Router /orders [post]
func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	claims := ClaimsFromContext(r.Context())

	var req CreateOrderRequest
	if !decodeAndValidate(rw, r, &req) {
		return
	}

	book, err := h.store.GetBook(r.Context(), req.BookID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			rw.NotFound("Book not found")
			return
		}
		rw.DatabaseError(err)
		return
	}

	order, err := h.store.CreateOrder(r.Context(), &models.Order{
		UserID:       claims.UserID,
		CustomerName: req.CustomerName,
		BookID:       book.ID,
		BookTitle:    book.Title,
		Amount:       book.Price,
		Status:       models.OrderStatusPending,
	})
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	h.mirrorOrder(r, order)
	rw.Created(order)
}

// ListOrders returns the caller's orders, or every order for admins.
//
// @Summary List orders
// @Description Returns the caller's own orders. Admins see every order.
// @Tags Orders
// @Produce json
// @Success 200 {object} APIResponse{data=[]models.Order} "Orders retrieved"
// @Security BearerAuth
// @Router /orders [get]
func (h *Handlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	claims := ClaimsFromContext(r.Context())

	var (
		orders []*models.Order
		err    error
	)
	if claims.Role == models.RoleAdmin {
		orders, err = h.store.ListOrders(r.Context())
	} else {
		orders, err = h.store.ListOrdersByUser(r.Context(), claims.UserID)
	}
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(orders)
}

// GetOrder returns one order, restricted to its owner or an admin.
//
// @Summary Get an order
// @Tags Orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} APIResponse{data=models.Order} "Order retrieved"
// @Failure 403 {object} APIResponse "Order belongs to another account"
// @Failure 404 {object} APIResponse "Order not found"
// @Security BearerAuth
// @Router /orders/{id} [get]
func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	claims := ClaimsFromContext(r.Context())

	order, err := h.store.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			rw.NotFound("Order not found")
			return
		}
		rw.DatabaseError(err)
		return
	}

	if order.UserID != claims.UserID && claims.Role != models.RoleAdmin {
		rw.Forbidden("Not your order")
		return
	}
	rw.Success(order)
}

// UpdateOrderStatus moves an order through its lifecycle. Admin only.
//
// @Summary Update order status
// @Tags Orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param status body UpdateOrderStatusRequest true "New status"
// @Success 200 {object} APIResponse{data=models.Order} "Status updated"
// @Failure 400 {object} APIResponse "Invalid status"
// @Failure 404 {object} APIResponse "Order not found"
// @Security BearerAuth
// @Router /orders/{id}/status [patch]
func (h *Handlers) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req UpdateOrderStatusRequest
	if !decodeAndValidate(rw, r, &req) {
		return
	}

	order, err := h.store.UpdateOrderStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			rw.NotFound("Order not found")
			return
		}
		rw.DatabaseError(err)
		return
	}

	h.mirrorOrder(r, order)
	rw.Success(order)
}

// DeleteOrder removes an order from the books entirely. Admin only.
//
// @Summary Delete an order
// @Tags Orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} APIResponse "Order deleted"
// @Failure 404 {object} APIResponse "Order not found"
// @Security BearerAuth
// @Router /orders/{id} [delete]
func (h *Handlers) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if err := h.store.DeleteOrder(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			rw.NotFound("Order not found")
			return
		}
		rw.DatabaseError(err)
		return
	}
	rw.Success(map[string]bool{"success": true})
}

// ExportOrders streams every order as a CSV download. Admin only.
//
// @Summary Export orders as CSV
// @Tags Orders
// @Produce text/csv
// @Success 200 {string} string "CSV order export"
// @Security BearerAuth
// @Router /orders/export [get]
func (h *Handlers) ExportOrders(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	orders, err := h.store.ListOrders(r.Context())
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	filename := fmt.Sprintf("orders-%s.csv", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"order_number", "customer_name", "book_title", "amount", "status", "created_at"})
	for _, order := range orders {
		_ = cw.Write([]string{
			order.OrderNumber,
			order.CustomerName,
			order.BookTitle,
			strconv.Itoa(order.Amount),
			order.Status,
			order.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		logging.CtxErr(r.Context(), err).Msg("failed to write orders CSV")
	}
}

// mirrorOrder copies a committed order into the analytics database,
// best-effort.
func (h *Handlers) mirrorOrder(r *http.Request, order *models.Order) {
	if h.analytics == nil {
		return
	}
	if err := h.analytics.RecordOrder(r.Context(), order); err != nil {
		logging.CtxErr(r.Context(), err).Msg("failed to mirror order to analytics")
	}
}
