// Package handler contains the storefront tracking HTTP API.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"capi-forwarder/internal/apperror"
	"capi-forwarder/internal/capi"
	"capi-forwarder/internal/model"
	"capi-forwarder/internal/reqdata"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// PhoneDigitsValidator accepts phone numbers with at least seven digits,
// ignoring separators like spaces, dashes and parentheses.
var PhoneDigitsValidator = func(fl validator.FieldLevel) bool {
	digits := 0
	for _, r := range fl.Field().String() {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= 7
}

// TrackRequest carries the fields shared by every track endpoint.
type TrackRequest struct {
	Email     string `json:"email,omitempty" validate:"omitempty,email"`
	Phone     string `json:"phone,omitempty" validate:"omitempty,phonedigits"`
	EventID   string `json:"event_id,omitempty"`
	SourceURL string `json:"source_url,omitempty" validate:"omitempty,url"`
}

// ProductRequest is the body for view-content and add-to-cart.
type ProductRequest struct {
	TrackRequest
	ProductID    string  `json:"product_id" validate:"required"`
	ProductTitle string  `json:"product_title" validate:"required,min=2"`
	VariantID    string  `json:"variant_id,omitempty"`
	VariantTitle string  `json:"variant_title,omitempty"`
	Category     string  `json:"category,omitempty"`
	Quantity     int     `json:"quantity" validate:"omitempty,gte=1"`
	Value        float64 `json:"value" validate:"required,gt=0"`
	Currency     string  `json:"currency" validate:"required,iso4217"`
	CatalogID    string  `json:"catalog_id,omitempty"`
}

// CartRequest is the body for initiate-checkout and purchase.
type CartRequest struct {
	TrackRequest
	ContentIDs []string `json:"content_ids" validate:"required,min=1,dive,required"`
	Category   string   `json:"category,omitempty"`
	Value      float64  `json:"value" validate:"required,gt=0"`
	Currency   string   `json:"currency" validate:"required,iso4217"`
	NumItems   int      `json:"num_items" validate:"required,gte=1"`
}

type trackResponse struct {
	Status    string `json:"status"`
	EventID   string `json:"event_id"`
	Forwarded bool   `json:"forwarded"`
}

// Handler wraps the track endpoints with logging, validation and a
// short-lived duplicate-suppression window keyed by event id.
type Handler struct {
	log      *zap.Logger
	tracker  capi.Tracker
	validate *validator.Validate
	seen     *cache.Cache
}

// New creates a new Handler instance.
func New(log *zap.Logger, t capi.Tracker, v *validator.Validate, dedupTTL time.Duration) *Handler {
	return &Handler{
		log:      log,
		tracker:  t,
		validate: v,
		seen:     cache.New(dedupTTL, 2*dedupTTL),
	}
}

// Healthz is a simple health check endpoint.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// PageView forwards a PageView event. No commerce metadata.
func (h *Handler) PageView(w http.ResponseWriter, r *http.Request) {
	var req TrackRequest
	if !h.decode(w, r, &req) || !h.valid(w, &req) {
		return
	}
	eventID, dup := h.claimEventID(req.EventID)
	if dup {
		h.respond(w, trackResponse{Status: "duplicate", EventID: eventID})
		return
	}
	ok := h.tracker.TrackPageView(r.Context(), h.visitor(r, req), eventID, req.SourceURL)
	h.respond(w, trackResponse{Status: "ok", EventID: eventID, Forwarded: ok})
}

// ViewContent forwards a ViewContent event for one product.
func (h *Handler) ViewContent(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if !h.decode(w, r, &req) || !h.valid(w, &req) {
		return
	}
	eventID, dup := h.claimEventID(req.EventID)
	if dup {
		h.respond(w, trackResponse{Status: "duplicate", EventID: eventID})
		return
	}
	custom := productCustom(&req, false)
	ok := h.tracker.TrackViewContent(r.Context(), h.visitor(r, req.TrackRequest), custom, eventID, req.SourceURL)
	h.respond(w, trackResponse{Status: "ok", EventID: eventID, Forwarded: ok})
}

// AddToCart forwards an AddToCart event, including the item count.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if !h.decode(w, r, &req) || !h.valid(w, &req) {
		return
	}
	eventID, dup := h.claimEventID(req.EventID)
	if dup {
		h.respond(w, trackResponse{Status: "duplicate", EventID: eventID})
		return
	}
	custom := productCustom(&req, true)
	ok := h.tracker.TrackAddToCart(r.Context(), h.visitor(r, req.TrackRequest), custom, eventID, req.SourceURL)
	h.respond(w, trackResponse{Status: "ok", EventID: eventID, Forwarded: ok})
}

// InitiateCheckout forwards an InitiateCheckout event for a whole cart.
func (h *Handler) InitiateCheckout(w http.ResponseWriter, r *http.Request) {
	h.trackCart(w, r, h.tracker.TrackInitiateCheckout)
}

// Purchase forwards a Purchase event for a completed order.
func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	h.trackCart(w, r, h.tracker.TrackPurchase)
}

type cartTrackFunc func(ctx context.Context, v model.Visitor, custom model.CustomData, eventID, sourceURL string) bool

func (h *Handler) trackCart(w http.ResponseWriter, r *http.Request, track cartTrackFunc) {
	var req CartRequest
	if !h.decode(w, r, &req) || !h.valid(w, &req) {
		return
	}
	eventID, dup := h.claimEventID(req.EventID)
	if dup {
		h.respond(w, trackResponse{Status: "duplicate", EventID: eventID})
		return
	}
	custom := cartCustom(&req)
	ok := track(r.Context(), h.visitor(r, req.TrackRequest), custom, eventID, req.SourceURL)
	h.respond(w, trackResponse{Status: "ok", EventID: eventID, Forwarded: ok})
}

func productCustom(req *ProductRequest, withCount bool) model.CustomData {
	custom := model.CustomData{
		ContentIDs:      []string{req.ProductID},
		ContentType:     "product",
		ContentName:     req.ProductTitle,
		ContentCategory: req.Category,
		Value:           req.Value,
		Currency:        req.Currency,
		CatalogID:       req.CatalogID,
	}
	if withCount {
		custom.NumItems = req.Quantity
	}
	return custom
}

func cartCustom(req *CartRequest) model.CustomData {
	return model.CustomData{
		ContentIDs:      req.ContentIDs,
		ContentType:     "product",
		ContentCategory: req.Category,
		Value:           req.Value,
		Currency:        req.Currency,
		NumItems:        req.NumItems,
	}
}

// claimEventID returns the effective event id and whether it was already
// seen inside the dedup window. A missing id gets a generated UUID so the
// caller can reuse it for pixel-side deduplication.
func (h *Handler) claimEventID(id string) (string, bool) {
	if id == "" {
		return uuid.NewString(), false
	}
	if err := h.seen.Add(id, struct{}{}, cache.DefaultExpiration); err != nil {
		return id, true
	}
	return id, false
}

func (h *Handler) visitor(r *http.Request, req TrackRequest) model.Visitor {
	v := reqdata.FromRequest(r, h.log)
	v.Email = req.Email
	v.Phone = req.Phone
	return v
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.log.Error("failed to decode json", zap.Error(err))
		h.respondJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid request payload",
		})
		return false
	}
	return true
}

func (h *Handler) valid(w http.ResponseWriter, req any) bool {
	if err := h.validate.Struct(req); err != nil {
		h.log.Warn("validation failed", zap.Error(err))
		h.respondJSON(w, http.StatusBadRequest, apperror.CustomValidationError(err))
		return false
	}
	return true
}

// respond always answers 202: the tracking outcome is reported in the
// body, but a failed forward never fails the storefront's request.
func (h *Handler) respond(w http.ResponseWriter, body trackResponse) {
	h.respondJSON(w, http.StatusAccepted, body)
}

func (h *Handler) respondJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Error("unable to write response stream", zap.Error(err))
	}
}
