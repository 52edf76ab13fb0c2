package capi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"capi-forwarder/internal/config"
	"capi-forwarder/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type capturingServer struct {
	Server  *httptest.Server
	Path    string
	Headers http.Header
	Raw     []byte
	Payload model.EventPayload
	Hits    int
}

func newCapturingServer(status int) *capturingServer {
	s := &capturingServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.Hits++
		s.Path = r.URL.Path
		s.Headers = r.Header.Clone()
		body, _ := io.ReadAll(r.Body)
		s.Raw = body
		s.Payload = model.EventPayload{}
		_ = json.Unmarshal(body, &s.Payload)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"events_received":1}`))
	}))
	return s
}

func newTestClient(t *testing.T, baseURL, testEventCode string) *Client {
	t.Helper()
	cfg := &config.Config{
		PixelID:        "123456",
		AccessToken:    "test-token",
		TestEventCode:  testEventCode,
		GraphBaseURL:   baseURL,
		APIVersion:     "v18.0",
		RequestTimeout: 2 * time.Second,
	}
	c, err := New(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	return c
}

func TestNewRequiresCredentials(t *testing.T) {
	log := zaptest.NewLogger(t)

	_, err := New(&config.Config{AccessToken: "tok"}, log)
	assert.ErrorIs(t, err, ErrMissingPixelID)

	_, err = New(&config.Config{PixelID: "123"}, log)
	assert.ErrorIs(t, err, ErrMissingAccessToken)

	c, err := New(&config.Config{PixelID: "123", AccessToken: "tok"}, log)
	assert.NoError(t, err)
	assert.NotNil(t, c)
}

func TestSendEventHashesPII(t *testing.T) {
	srv := newCapturingServer(http.StatusOK)
	defer srv.Server.Close()

	c := newTestClient(t, srv.Server.URL, "")
	v := model.Visitor{
		Email:     "  User@Example.COM ",
		Phone:     "(555) 123-4567",
		ClientIP:  "203.0.113.9",
		UserAgent: "Mozilla/5.0",
		Fbc:       "fb.1.1700000000.AbCdEf",
		Fbp:       "fb.1.1700000000.123456789",
	}

	ok := c.SendEvent(context.Background(), model.EventPageView, v, nil, "evt-1", "https://shop.example.com/")
	assert.True(t, ok)

	require.Len(t, srv.Payload.Data, 1)
	user := srv.Payload.Data[0].UserData
	require.Len(t, user.Em, 1)
	require.Len(t, user.Ph, 1)
	assert.Equal(t, HashIdentifier("user@example.com"), user.Em[0])
	assert.Equal(t, HashIdentifier("5551234567"), user.Ph[0])
	assert.Equal(t, "203.0.113.9", user.ClientIPAddress)
	assert.Equal(t, "Mozilla/5.0", user.ClientUserAgent)
	assert.Equal(t, "fb.1.1700000000.AbCdEf", user.Fbc)
	assert.Equal(t, "fb.1.1700000000.123456789", user.Fbp)
}

func TestSendEventOmitsEmptyIdentifiers(t *testing.T) {
	srv := newCapturingServer(http.StatusOK)
	defer srv.Server.Close()

	c := newTestClient(t, srv.Server.URL, "")
	v := model.Visitor{ClientIP: "203.0.113.9", UserAgent: "Mozilla/5.0"}

	ok := c.SendEvent(context.Background(), model.EventPageView, v, nil, "", "")
	assert.True(t, ok)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(srv.Raw, &raw))
	data := raw["data"].([]any)
	event := data[0].(map[string]any)
	user := event["user_data"].(map[string]any)
	assert.NotContains(t, user, "em")
	assert.NotContains(t, user, "ph")
	assert.NotContains(t, event, "event_id")
	assert.NotContains(t, raw, "test_event_code")
}

func TestSendEventActionSourceAndTime(t *testing.T) {
	srv := newCapturingServer(http.StatusOK)
	defer srv.Server.Close()

	c := newTestClient(t, srv.Server.URL, "")
	fixed := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return fixed }

	ok := c.SendEvent(context.Background(), model.EventPurchase, model.Visitor{}, nil, "", "")
	assert.True(t, ok)

	require.Len(t, srv.Payload.Data, 1)
	assert.Equal(t, "website", srv.Payload.Data[0].ActionSource)
	assert.Equal(t, fixed.Unix(), srv.Payload.Data[0].EventTime)
}

func TestSendEventWireFormat(t *testing.T) {
	srv := newCapturingServer(http.StatusOK)
	defer srv.Server.Close()

	c := newTestClient(t, srv.Server.URL, "")
	custom := model.CustomData{
		ContentIDs: []string{"p1"},
		Value:      99.99,
		Currency:   "USD",
	}

	ok := c.SendEvent(context.Background(), model.EventViewContent, model.Visitor{}, &custom, "evt-9", "https://shop.example.com/p1")
	assert.True(t, ok)

	assert.Equal(t, "/v18.0/123456/events", srv.Path)
	assert.Equal(t, "application/json", srv.Headers.Get("Content-Type"))
	assert.Equal(t, "Bearer test-token", srv.Headers.Get("Authorization"))

	require.Len(t, srv.Payload.Data, 1)
	event := srv.Payload.Data[0]
	assert.Equal(t, "ViewContent", event.EventName)
	assert.Equal(t, "evt-9", event.EventID)
	assert.Equal(t, "https://shop.example.com/p1", event.EventSourceURL)
	require.NotNil(t, event.CustomData)
	assert.Equal(t, []string{"p1"}, event.CustomData.ContentIDs)
}

func TestSendEventTestEventCode(t *testing.T) {
	srv := newCapturingServer(http.StatusOK)
	defer srv.Server.Close()

	c := newTestClient(t, srv.Server.URL, "TEST12345")
	ok := c.SendEvent(context.Background(), model.EventPageView, model.Visitor{}, nil, "", "")
	assert.True(t, ok)
	assert.Equal(t, "TEST12345", srv.Payload.TestEventCode)
}

func TestSendEventRejected(t *testing.T) {
	srv := newCapturingServer(http.StatusBadRequest)
	defer srv.Server.Close()

	c := newTestClient(t, srv.Server.URL, "")
	ok := c.SendEvent(context.Background(), model.EventPageView, model.Visitor{}, nil, "", "")
	assert.False(t, ok)
	assert.Equal(t, 1, srv.Hits, "no retry on rejection")
}

func TestSendEventNetworkFailure(t *testing.T) {
	srv := newCapturingServer(http.StatusOK)
	url := srv.Server.URL
	srv.Server.Close()

	c := newTestClient(t, url, "")
	assert.NotPanics(t, func() {
		ok := c.SendEvent(context.Background(), model.EventPageView, model.Visitor{}, nil, "", "")
		assert.False(t, ok)
	})
}

func TestTrackEventNames(t *testing.T) {
	srv := newCapturingServer(http.StatusOK)
	defer srv.Server.Close()

	c := newTestClient(t, srv.Server.URL, "")
	ctx := context.Background()
	v := model.Visitor{}
	custom := model.CustomData{ContentIDs: []string{"p1"}, Value: 1, Currency: "USD"}

	tests := []struct {
		name string
		call func() bool
	}{
		{"PageView", func() bool { return c.TrackPageView(ctx, v, "", "") }},
		{"ViewContent", func() bool { return c.TrackViewContent(ctx, v, custom, "", "") }},
		{"AddToCart", func() bool { return c.TrackAddToCart(ctx, v, custom, "", "") }},
		{"InitiateCheckout", func() bool { return c.TrackInitiateCheckout(ctx, v, custom, "", "") }},
		{"Purchase", func() bool { return c.TrackPurchase(ctx, v, custom, "", "") }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.True(t, tc.call())
			require.Len(t, srv.Payload.Data, 1)
			assert.Equal(t, tc.name, srv.Payload.Data[0].EventName)
			assert.Equal(t, "website", srv.Payload.Data[0].ActionSource)
		})
	}
}

func TestTrackAddToCartEndToEnd(t *testing.T) {
	srv := newCapturingServer(http.StatusOK)
	defer srv.Server.Close()

	c := newTestClient(t, srv.Server.URL, "")
	custom := model.CustomData{
		ContentIDs:  []string{"p1"},
		ContentType: "product",
		ContentName: "Gloves",
		Value:       259.98,
		Currency:    "USD",
		NumItems:    2,
	}

	ok := c.TrackAddToCart(context.Background(), model.Visitor{}, custom, "evt-cart", "")
	assert.True(t, ok)

	assert.Equal(t, 1, srv.Hits)
	require.Len(t, srv.Payload.Data, 1)
	event := srv.Payload.Data[0]
	assert.Equal(t, "AddToCart", event.EventName)
	require.NotNil(t, event.CustomData)
	assert.Equal(t, []string{"p1"}, event.CustomData.ContentIDs)
	assert.Equal(t, 2, event.CustomData.NumItems)
	assert.Equal(t, 259.98, event.CustomData.Value)
}
