package tickets

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"eventtts/globals"
	"eventtts/memdb"
	"eventtts/models"
	"eventtts/mq"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func sampleOrder() *models.Order {
	return &models.Order{
		ID:           primitive.NewObjectID(),
		Event:        primitive.NewObjectID(),
		TicketCode:   "7f3c2a10-9b2e-4c55-8f0e-1d2c3b4a5e6f",
		TotalTickets: 2,
		TotalAmount:  300,
	}
}

func TestSignerRoundTrip(t *testing.T) {
	s := NewSigner("ticket-secret")
	o := sampleOrder()

	pass, err := s.Verify(s.Payload(o))
	require.NoError(t, err)
	assert.Equal(t, o.ID, pass.OrderID)
	assert.Equal(t, o.Event, pass.EventID)
	assert.Equal(t, o.TicketCode, pass.TicketCode)
}

func TestSignerRejectsForgery(t *testing.T) {
	s := NewSigner("ticket-secret")
	o := sampleOrder()
	payload := s.Payload(o)

	tests := map[string]string{
		"other key":   NewSigner("other").Payload(o),
		"edited code": strings.Replace(payload, o.TicketCode, "00000000", 1),
		"truncated":   payload[:strings.LastIndex(payload, "|")],
	}
	for name, p := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := s.Verify(p)
			assert.ErrorIs(t, err, ErrInvalidPass)
		})
	}
}

func TestRenderPDF(t *testing.T) {
	o := sampleOrder()
	view := &models.OrderView{Order: *o, Event: &models.EventView{Event: models.Event{
		ID:        o.Event,
		Title:     "Annual Fest",
		Location:  "Main Ground",
		StartDate: time.Date(2026, 2, 20, 18, 0, 0, 0, time.UTC),
	}}}

	pdf, err := RenderPDF(view, "Meera", NewSigner("k").Payload(o))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
}

func TestHubDeliversToWatchers(t *testing.T) {
	hub := NewHub(zap.NewNop())
	live := mq.NewLocal()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub.Start(ctx, live)

	router := httprouter.New()
	router.GET("/api/events/:eventid/live", hub.ServeLive)
	srv := httptest.NewServer(router)
	defer srv.Close()

	eventID := primitive.NewObjectID()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/events/" + eventID.Hex() + "/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Watchers(eventID) == 1 }, time.Second, 10*time.Millisecond)

	other := primitive.NewObjectID()
	require.NoError(t, live.Publish(ctx, mq.InventoryUpdate{EventIDs: []primitive.ObjectID{other}, TicketsLeft: 9}))
	require.NoError(t, live.Publish(ctx, mq.InventoryUpdate{
		EventIDs:    []primitive.ObjectID{other, eventID},
		TicketsLeft: 0,
		SoldOut:     true,
	}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var got LiveCount
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, LiveCount{EventID: eventID, TicketsLeft: 0, SoldOut: true}, got)

	conn.Close()
	require.Eventually(t, func() bool { return hub.Watchers(eventID) == 0 }, time.Second, 10*time.Millisecond)
}

func withUser(r *http.Request, id primitive.ObjectID) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), globals.UserIDKey, id.Hex()))
}

func TestVerifyTicketAtTheDoor(t *testing.T) {
	d := memdb.New()
	ctx := context.Background()
	organizer := primitive.NewObjectID()
	ev := &models.Event{ID: primitive.NewObjectID(), Title: "Quiz Night", Organizer: organizer}
	require.NoError(t, d.InsertEvent(ctx, ev))
	o := sampleOrder()
	o.Event = ev.ID
	o.StripeID = "free_1"
	require.NoError(t, d.InsertOrder(ctx, o))

	signer := NewSigner("door-key")
	h := &Handler{Store: d, Events: d, Users: d, Signer: signer}

	scan := func(as primitive.ObjectID, payload string) *httptest.ResponseRecorder {
		body, _ := json.Marshal(map[string]string{"payload": payload})
		req := withUser(httptest.NewRequest(http.MethodPost, "/api/tickets/verify", bytes.NewReader(body)), as)
		rec := httptest.NewRecorder()
		h.VerifyTicket(rec, req, nil)
		return rec
	}

	rec := scan(organizer, signer.Payload(o))
	require.Equal(t, http.StatusOK, rec.Code)
	var res verifyResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Valid)
	assert.Equal(t, 2, res.TotalTickets)

	rec = scan(primitive.NewObjectID(), signer.Payload(o))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = scan(organizer, NewSigner("forged").Payload(o))
	require.Equal(t, http.StatusOK, rec.Code)
	res = verifyResult{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.False(t, res.Valid)
}

func TestSignerDerivesItsOwnKey(t *testing.T) {
	a, b := NewSigner("shared-secret"), NewSigner("shared-secret")
	assert.Equal(t, a.key, b.key)
	assert.NotEqual(t, []byte("shared-secret"), a.key)
	assert.Len(t, a.key, 32)
}
