// Package capi forwards server-side conversion events to the Meta
// Conversions API. Each call is a single fire-and-forget POST; every
// failure mode is logged and folded into a boolean so tracking never
// breaks the request path that triggered it.
package capi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"capi-forwarder/internal/config"
	"capi-forwarder/internal/model"

	"go.uber.org/zap"
)

// Tracker is the forwarding surface HTTP handlers depend on.
type Tracker interface {
	TrackPageView(ctx context.Context, v model.Visitor, eventID, sourceURL string) bool
	TrackViewContent(ctx context.Context, v model.Visitor, custom model.CustomData, eventID, sourceURL string) bool
	TrackAddToCart(ctx context.Context, v model.Visitor, custom model.CustomData, eventID, sourceURL string) bool
	TrackInitiateCheckout(ctx context.Context, v model.Visitor, custom model.CustomData, eventID, sourceURL string) bool
	TrackPurchase(ctx context.Context, v model.Visitor, custom model.CustomData, eventID, sourceURL string) bool
}

var (
	ErrMissingPixelID     = errors.New("capi: META_PIXEL_ID is required")
	ErrMissingAccessToken = errors.New("capi: META_ACCESS_TOKEN is required")
)

var _ Tracker = (*Client)(nil)

// Client posts events to the Graph API events endpoint for one pixel.
// Safe for concurrent use; all fields are read-only after construction.
type Client struct {
	log      *zap.Logger
	cfg      *config.Config
	client   *http.Client
	endpoint string
	now      func() time.Time
}

// New builds a Client, failing when required credentials are absent.
func New(cfg *config.Config, logger *zap.Logger) (*Client, error) {
	if cfg.PixelID == "" {
		return nil, ErrMissingPixelID
	}
	if cfg.AccessToken == "" {
		return nil, ErrMissingAccessToken
	}
	return &Client{
		log:      logger,
		cfg:      cfg,
		client:   &http.Client{Timeout: cfg.RequestTimeout},
		endpoint: cfg.EventsEndpoint(),
		now:      time.Now,
	}, nil
}

// SendEvent hashes PII, assembles a one-event batch and POSTs it.
// IP, user-agent, fbc and fbp pass through unhashed; commerce metadata
// is not PII and is sent as-is.
func (c *Client) SendEvent(ctx context.Context, eventName string, v model.Visitor, custom *model.CustomData, eventID, sourceURL string) bool {
	user := model.UserData{
		ClientIPAddress: v.ClientIP,
		ClientUserAgent: v.UserAgent,
		Fbc:             v.Fbc,
		Fbp:             v.Fbp,
	}
	if v.Email != "" {
		if em := NormalizeEmail(v.Email); em != "" {
			user.Em = []string{HashIdentifier(em)}
		}
	}
	if v.Phone != "" {
		if ph := NormalizePhone(v.Phone); ph != "" {
			user.Ph = []string{HashIdentifier(ph)}
		}
	}

	payload := model.EventPayload{
		Data: []model.ServerEvent{{
			EventName:      eventName,
			EventTime:      c.now().Unix(),
			EventID:        eventID,
			UserData:       user,
			CustomData:     custom,
			ActionSource:   model.ActionSourceWebsite,
			EventSourceURL: sourceURL,
		}},
		TestEventCode: c.cfg.TestEventCode,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		c.log.Error("failed to marshal event", zap.String("event", eventName), zap.Error(err))
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		c.log.Error("failed to build request", zap.String("event", eventName), zap.Error(err))
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Error("event POST failed", zap.String("event", eventName), zap.Error(err))
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Error("event rejected",
			zap.String("event", eventName),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", respBody))
		return false
	}

	c.log.Info("event sent",
		zap.String("event", eventName),
		zap.String("event_id", eventID),
		zap.ByteString("body", respBody))
	return true
}

// TrackPageView reports a page view with no commerce metadata.
func (c *Client) TrackPageView(ctx context.Context, v model.Visitor, eventID, sourceURL string) bool {
	return c.SendEvent(ctx, model.EventPageView, v, nil, eventID, sourceURL)
}

// TrackViewContent reports a product detail view.
func (c *Client) TrackViewContent(ctx context.Context, v model.Visitor, custom model.CustomData, eventID, sourceURL string) bool {
	return c.SendEvent(ctx, model.EventViewContent, v, &custom, eventID, sourceURL)
}

// TrackAddToCart reports an item added to the cart.
func (c *Client) TrackAddToCart(ctx context.Context, v model.Visitor, custom model.CustomData, eventID, sourceURL string) bool {
	return c.SendEvent(ctx, model.EventAddToCart, v, &custom, eventID, sourceURL)
}

// TrackInitiateCheckout reports the start of a checkout.
func (c *Client) TrackInitiateCheckout(ctx context.Context, v model.Visitor, custom model.CustomData, eventID, sourceURL string) bool {
	return c.SendEvent(ctx, model.EventInitiateCheckout, v, &custom, eventID, sourceURL)
}

// TrackPurchase reports a completed order.
func (c *Client) TrackPurchase(ctx context.Context, v model.Visitor, custom model.CustomData, eventID, sourceURL string) bool {
	return c.SendEvent(ctx, model.EventPurchase, v, &custom, eventID, sourceURL)
}
