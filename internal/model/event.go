// Package model defines the Conversions API wire types and the raw
// visitor context collected from storefront requests.
package model

// Standard event names accepted by the Conversions API.
const (
	EventPageView         = "PageView"
	EventViewContent      = "ViewContent"
	EventAddToCart        = "AddToCart"
	EventInitiateCheckout = "InitiateCheckout"
	EventPurchase         = "Purchase"
)

// ActionSourceWebsite tags every event as originating from the storefront.
const ActionSourceWebsite = "website"

// Visitor carries raw, unhashed request context. It never crosses the
// process boundary as-is; email and phone are hashed before serialization.
type Visitor struct {
	Email     string
	Phone     string
	ClientIP  string
	UserAgent string
	Fbc       string
	Fbp       string
}

// UserData is the outbound user_data envelope. Em and Ph hold SHA-256
// hex digests, one element each.
type UserData struct {
	Em              []string `json:"em,omitempty"`
	Ph              []string `json:"ph,omitempty"`
	ClientIPAddress string   `json:"client_ip_address,omitempty"`
	ClientUserAgent string   `json:"client_user_agent,omitempty"`
	Fbc             string   `json:"fbc,omitempty"`
	Fbp             string   `json:"fbp,omitempty"`
}

// CustomData carries commerce metadata. Not PII, sent unhashed.
type CustomData struct {
	ContentIDs      []string `json:"content_ids,omitempty"`
	ContentType     string   `json:"content_type,omitempty"`
	ContentName     string   `json:"content_name,omitempty"`
	ContentCategory string   `json:"content_category,omitempty"`
	Value           float64  `json:"value,omitempty"`
	Currency        string   `json:"currency,omitempty"`
	NumItems        int      `json:"num_items,omitempty"`
	CatalogID       string   `json:"catalog_id,omitempty"`
}

// ServerEvent is one outbound conversion event.
type ServerEvent struct {
	EventName      string      `json:"event_name"`
	EventTime      int64       `json:"event_time"`
	EventID        string      `json:"event_id,omitempty"`
	UserData       UserData    `json:"user_data"`
	CustomData     *CustomData `json:"custom_data,omitempty"`
	ActionSource   string      `json:"action_source"`
	EventSourceURL string      `json:"event_source_url,omitempty"`
}

// EventPayload is the one-event batch POSTed to the events endpoint.
type EventPayload struct {
	Data          []ServerEvent `json:"data"`
	TestEventCode string        `json:"test_event_code,omitempty"`
}
