// Package httppresentation exposes the storefront and back-office API over
// chi. It translates transport concerns (identity headers, JSON envelopes,
// status codes) and delegates everything else to the application services.
package httppresentation

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	appcart "github.com/waxline/recordshop/internal/application/cart"
	appcheckout "github.com/waxline/recordshop/internal/application/checkout"
	appinventory "github.com/waxline/recordshop/internal/application/inventory"
	apppayment "github.com/waxline/recordshop/internal/application/payment"
	domcart "github.com/waxline/recordshop/internal/domain/cart"
	domcatalog "github.com/waxline/recordshop/internal/domain/catalog"
	domcoupon "github.com/waxline/recordshop/internal/domain/coupon"
	dominv "github.com/waxline/recordshop/internal/domain/inventory"
	domorder "github.com/waxline/recordshop/internal/domain/order"
	dompayment "github.com/waxline/recordshop/internal/domain/payment"
	"github.com/waxline/recordshop/internal/observability"
	"github.com/waxline/recordshop/internal/pkg/logging"
	"go.uber.org/zap"
)

type Handler struct {
	carts     *appcart.Service
	checkout  *appcheckout.Service
	payments  *apppayment.Service
	inventory *appinventory.Service
}

func NewHandler(carts *appcart.Service, checkout *appcheckout.Service,
	payments *apppayment.Service, inventory *appinventory.Service,
) *Handler {
	return &Handler{carts: carts, checkout: checkout, payments: payments, inventory: inventory}
}

// NewRouter assembles the middleware chain and routes. The /metrics endpoint
// is mounted by main so the handler stays registry-agnostic.
func NewRouter(h *Handler, logger *zap.Logger, metrics *observability.Metrics) chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(withTrace)
	r.Use(withRequestLogger(logger))
	r.Use(withMetricsAndAccessLog(metrics))

	r.Get("/health", h.health)

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", h.getCart)
		r.Delete("/", h.clearCart)
		r.Post("/items", h.addCartItem)
		r.Put("/items/{productID}", h.updateCartItem)
		r.Delete("/items/{productID}", h.removeCartItem)
		r.Post("/coupon", h.applyCoupon)
		r.Delete("/coupon", h.removeCoupon)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.createOrder)
		r.Get("/{orderID}", h.getOrder)
		r.Post("/{orderID}/cancel", h.cancelOrder)
		r.Get("/{orderID}/payment", h.getOrderPayment)
	})

	r.Route("/payments", func(r chi.Router) {
		r.Post("/create-intent", h.createPaymentIntent)
		r.Post("/webhook", h.paymentWebhook)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Put("/orders/{orderID}/status", h.updateOrderStatus)
		r.Get("/inventory/{productID}", h.getInventory)
		r.Put("/inventory/{productID}/stock", h.setStock)
		r.Post("/inventory/{productID}/add-stock", h.addStock)
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: map[string]string{"status": "ok"}})
}

// --- cart ---

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}
	view, err := h.carts.Get(r.Context(), owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: toCartPayload(view)})
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}
	var req struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	view, err := h.carts.AddItem(r.Context(), owner, req.ProductID, req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: toCartPayload(view)})
}

func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}
	var req struct {
		Quantity int `json:"quantity"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	view, err := h.carts.UpdateItem(r.Context(), owner, chi.URLParam(r, "productID"), req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: toCartPayload(view)})
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}
	view, err := h.carts.RemoveItem(r.Context(), owner, chi.URLParam(r, "productID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: toCartPayload(view)})
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}
	if err := h.carts.Clear(r.Context(), owner); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "cart cleared"})
}

func (h *Handler) applyCoupon(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}
	var req struct {
		Code string `json:"code"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	view, err := h.carts.ApplyCoupon(r.Context(), owner, req.Code)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: toCartPayload(view)})
}

func (h *Handler) removeCoupon(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}
	view, err := h.carts.RemoveCoupon(r.Context(), owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: toCartPayload(view)})
}

// --- orders ---

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}
	var req struct {
		ShippingAddress json.RawMessage `json:"shipping_address"`
		BillingAddress  json.RawMessage `json:"billing_address"`
		ShippingMethod  string          `json:"shipping_method"`
		CustomerNotes   string          `json:"customer_notes"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	entity, err := h.checkout.CreateOrder(r.Context(), appcheckout.CreateOrderInput{
		Owner:           owner,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		ShippingMethod:  req.ShippingMethod,
		CustomerNotes:   req.CustomerNotes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{Success: true, Data: toOrderPayload(entity)})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	entity, err := h.checkout.Get(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: toOrderPayload(entity)})
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	entity, err := h.checkout.Cancel(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: toOrderPayload(entity)})
}

func (h *Handler) getOrderPayment(w http.ResponseWriter, r *http.Request) {
	p, err := h.payments.FindByOrder(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: toPaymentPayload(p)})
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	entity, err := h.checkout.UpdateStatus(r.Context(), chi.URLParam(r, "orderID"), domorder.Status(req.Status))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: toOrderPayload(entity)})
}

// --- payments ---

func (h *Handler) createPaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrderID string `json:"order_id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.payments.CreateIntent(r.Context(), req.OrderID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: map[string]string{
		"payment_id":        result.PaymentID,
		"payment_intent_id": result.PaymentIntentID,
		"client_secret":     result.ClientSecret,
	}})
}

func (h *Handler) paymentWebhook(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PaymentIntentID string `json:"payment_intent_id"`
		Outcome         string `json:"outcome"`
		CardBrand       string `json:"card_brand"`
		CardLast4       string `json:"card_last4"`
		Reason          string `json:"reason"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.payments.Confirm(r.Context(), apppayment.ConfirmInput{
		IntentID:  req.PaymentIntentID,
		Outcome:   apppayment.Outcome(req.Outcome),
		CardBrand: req.CardBrand,
		CardLast4: req.CardLast4,
		Reason:    req.Reason,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: toPaymentPayload(p)})
}

// --- inventory ---

func (h *Handler) getInventory(w http.ResponseWriter, r *http.Request) {
	rec, err := h.inventory.Get(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: toInventoryPayload(rec)})
}

func (h *Handler) setStock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quantity int `json:"quantity"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	rec, err := h.inventory.SetStock(r.Context(), chi.URLParam(r, "productID"), req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: toInventoryPayload(rec)})
}

func (h *Handler) addStock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quantity int `json:"quantity"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	rec, err := h.inventory.AddStock(r.Context(), chi.URLParam(r, "productID"), req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: toInventoryPayload(rec)})
}

// --- plumbing ---

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Kind    string `json:"error,omitempty"`
}

// ownerFromRequest resolves cart identity from the X-User-ID or X-Session-ID
// header. Exactly one must be present.
func ownerFromRequest(w http.ResponseWriter, r *http.Request) (domcart.Owner, bool) {
	owner := domcart.Owner{
		UserID:    r.Header.Get("X-User-ID"),
		SessionID: r.Header.Get("X-Session-ID"),
	}
	if !owner.Valid() {
		writeJSON(w, http.StatusBadRequest, envelope{
			Success: false,
			Kind:    "validation",
			Message: "exactly one of X-User-ID or X-Session-ID is required",
		})
		return domcart.Owner{}, false
	}
	return owner, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{
			Success: false,
			Kind:    "validation",
			Message: "invalid request body",
		})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps domain and workflow errors onto the response envelope.
// Unmapped errors surface as opaque 500s and are logged with the cause.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var stockErr *dominv.InsufficientStockError
	if errors.As(err, &stockErr) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(struct {
			Success bool   `json:"success"`
			Kind    string `json:"error"`
			Message string `json:"message"`
			Data    any    `json:"data"`
		}{
			Success: false,
			Kind:    "insufficient_stock",
			Message: err.Error(),
			Data: map[string]any{
				"product_id": stockErr.ProductID,
				"requested":  stockErr.Requested,
				"available":  stockErr.Available,
			},
		})
		return
	}

	status, kind := statusForError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		logging.FromContext(r.Context()).Error("request_failed", zap.Error(err))
		message = "internal error"
	}
	writeJSON(w, status, envelope{Success: false, Kind: kind, Message: message})
}

func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, domcart.ErrNotFound),
		errors.Is(err, domcart.ErrLineNotFound),
		errors.Is(err, domcatalog.ErrNotFound),
		errors.Is(err, domcoupon.ErrNotFound),
		errors.Is(err, dominv.ErrNotFound),
		errors.Is(err, domorder.ErrNotFound),
		errors.Is(err, dompayment.ErrNotFound):
		return http.StatusNotFound, "not_found"

	case errors.Is(err, domcart.ErrEmpty):
		return http.StatusBadRequest, "cart_empty"
	case errors.Is(err, domcoupon.ErrInvalid):
		return http.StatusBadRequest, "coupon_invalid"
	case errors.Is(err, domcoupon.ErrMinimumNotMet):
		return http.StatusBadRequest, "coupon_minimum_not_met"
	case errors.Is(err, domcoupon.ErrUsageExceeded):
		return http.StatusBadRequest, "coupon_usage_exceeded"

	case errors.Is(err, domcart.ErrInvalidQuantity),
		errors.Is(err, domcart.ErrNoOwner),
		errors.Is(err, dominv.ErrInvalidQuantity),
		errors.Is(err, dompayment.ErrInvalidAmount),
		errors.Is(err, appcheckout.ErrUnknownShippingMethod),
		errors.Is(err, appcheckout.ErrShippingAddressRequired),
		errors.Is(err, apppayment.ErrUnknownOutcome):
		return http.StatusBadRequest, "validation"

	case errors.Is(err, dompayment.ErrProcessor):
		return http.StatusPaymentRequired, "payment_failed"

	case errors.Is(err, domorder.ErrInvalidStateTransition),
		errors.Is(err, dompayment.ErrInvalidStateTransition),
		errors.Is(err, dompayment.ErrOrderNotPayable),
		errors.Is(err, dompayment.ErrNotRefundable):
		return http.StatusConflict, "invalid_state_transition"

	default:
		return http.StatusInternalServerError, "internal"
	}
}

// --- payloads ---

type cartLinePayload struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type cartPayload struct {
	ID         string            `json:"id"`
	Items      []cartLinePayload `json:"items"`
	CouponCode string            `json:"coupon_code,omitempty"`
	Subtotal   decimal.Decimal   `json:"subtotal"`
	Discount   decimal.Decimal   `json:"discount"`
	Total      decimal.Decimal   `json:"total"`
	ExpiresAt  *time.Time        `json:"expires_at,omitempty"`
}

func toCartPayload(v *appcart.View) cartPayload {
	items := make([]cartLinePayload, 0, len(v.Cart.Lines))
	for _, line := range v.Cart.Lines {
		items = append(items, cartLinePayload{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			LineTotal: line.Total(),
		})
	}
	return cartPayload{
		ID:         v.Cart.ID,
		Items:      items,
		CouponCode: v.Cart.CouponCode,
		Subtotal:   v.Subtotal,
		Discount:   v.Discount,
		Total:      v.Total,
		ExpiresAt:  v.Cart.ExpiresAt,
	}
}

type orderLinePayload struct {
	ProductID  string          `json:"product_id"`
	Title      string          `json:"title"`
	Artist     string          `json:"artist"`
	Format     string          `json:"format"`
	CoverImage string          `json:"cover_image,omitempty"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	LineTotal  decimal.Decimal `json:"line_total"`
}

type orderPayload struct {
	ID              string             `json:"id"`
	Number          string             `json:"order_number"`
	Status          string             `json:"status"`
	UserID          string             `json:"user_id,omitempty"`
	Items           []orderLinePayload `json:"items"`
	Subtotal        decimal.Decimal    `json:"subtotal"`
	DiscountAmount  decimal.Decimal    `json:"discount_amount"`
	ShippingAmount  decimal.Decimal    `json:"shipping_amount"`
	TaxAmount       decimal.Decimal    `json:"tax_amount"`
	Total           decimal.Decimal    `json:"total"`
	Currency        string             `json:"currency"`
	CouponCode      string             `json:"coupon_code,omitempty"`
	ShippingAddress json.RawMessage    `json:"shipping_address,omitempty"`
	BillingAddress  json.RawMessage    `json:"billing_address,omitempty"`
	ShippingMethod  string             `json:"shipping_method"`
	CustomerNotes   string             `json:"customer_notes,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	ShippedAt       *time.Time         `json:"shipped_at,omitempty"`
	DeliveredAt     *time.Time         `json:"delivered_at,omitempty"`
	CancelledAt     *time.Time         `json:"cancelled_at,omitempty"`
}

func toOrderPayload(o *domorder.Order) orderPayload {
	items := make([]orderLinePayload, 0, len(o.Lines))
	for _, line := range o.Lines {
		items = append(items, orderLinePayload{
			ProductID:  line.ProductID,
			Title:      line.Title,
			Artist:     line.Artist,
			Format:     line.Format,
			CoverImage: line.CoverImage,
			Quantity:   line.Quantity,
			UnitPrice:  line.UnitPrice,
			LineTotal:  line.LineTotal,
		})
	}
	return orderPayload{
		ID:              o.ID,
		Number:          o.Number,
		Status:          string(o.Status),
		UserID:          o.UserID,
		Items:           items,
		Subtotal:        o.Subtotal,
		DiscountAmount:  o.DiscountAmount,
		ShippingAmount:  o.ShippingAmount,
		TaxAmount:       o.TaxAmount,
		Total:           o.Total,
		Currency:        o.Currency,
		CouponCode:      o.CouponCode,
		ShippingAddress: o.ShippingAddress,
		BillingAddress:  o.BillingAddress,
		ShippingMethod:  o.ShippingMethod,
		CustomerNotes:   o.CustomerNotes,
		CreatedAt:       o.CreatedAt,
		ShippedAt:       o.ShippedAt,
		DeliveredAt:     o.DeliveredAt,
		CancelledAt:     o.CancelledAt,
	}
}

type paymentPayload struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"order_id"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Status    string          `json:"status"`
	IntentID  string          `json:"payment_intent_id"`
	CardBrand string          `json:"card_brand,omitempty"`
	CardLast4 string          `json:"card_last4,omitempty"`
	PaidAt    *time.Time      `json:"paid_at,omitempty"`
}

func toPaymentPayload(p *dompayment.Payment) paymentPayload {
	return paymentPayload{
		ID:        p.ID,
		OrderID:   p.OrderID,
		Amount:    p.Amount,
		Currency:  p.Currency,
		Status:    string(p.Status),
		IntentID:  p.IntentID,
		CardBrand: p.CardBrand,
		CardLast4: p.CardLast4,
		PaidAt:    p.PaidAt,
	}
}

type inventoryPayload struct {
	ProductID        string `json:"product_id"`
	Quantity         int    `json:"quantity"`
	ReservedQuantity int    `json:"reserved_quantity"`
	Available        int    `json:"available"`
	InStock          bool   `json:"in_stock"`
	LowStock         bool   `json:"low_stock"`
}

func toInventoryPayload(rec *dominv.Record) inventoryPayload {
	return inventoryPayload{
		ProductID:        rec.ProductID,
		Quantity:         rec.Quantity,
		ReservedQuantity: rec.ReservedQuantity,
		Available:        rec.Available(),
		InStock:          rec.InStock(),
		LowStock:         rec.LowStock(),
	}
}
