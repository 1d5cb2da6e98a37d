package reports

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"eventtts/events"
	"eventtts/inventory"
	"eventtts/memdb"
	"eventtts/models"
	"eventtts/orders"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type stubGenerator struct {
	prompt string
	err    error
}

func (g *stubGenerator) Model() string { return "stub-model" }

func (g *stubGenerator) GenerateJSON(_ context.Context, prompt string, out any) error {
	g.prompt = prompt
	if g.err != nil {
		return g.err
	}
	doc := out.(*generated)
	doc.Title = "Tech Fest 2026 Report"
	doc.Sections = []models.ReportSection{
		{Heading: "Executive Summary", Content: []string{"Well attended."}},
		{Heading: "Financial Summary", Content: []string{"Profit of 500 INR."}},
	}
	return nil
}

type fixture struct {
	svc    *Service
	gen    *stubGenerator
	ledger *inventory.Ledger
	org    *models.User
	event  *models.EventView
}

func newFixture(t *testing.T, end time.Time) *fixture {
	t.Helper()
	d := memdb.New()
	log := zap.NewNop()
	ctx := context.Background()

	evs := events.NewService(events.Options{Stores: d.Stores(), Logger: log})
	ledger := inventory.NewLedger(d, d, nil, nil, log)
	ords := orders.NewService(orders.Options{Ledger: ledger, Events: evs, Orders: d, Logger: log})
	gen := &stubGenerator{}

	org, err := d.UpsertUser(ctx, &models.User{ClerkID: "user_org"})
	require.NoError(t, err)
	ev, err := evs.Create(ctx, org.ID, events.EventInput{
		Title:         "Tech Fest",
		Description:   "Annual technical festival",
		Location:      "Block C",
		StartDate:     end.Add(-6 * time.Hour),
		EndDate:       end,
		Price:         100,
		TotalCapacity: 50,
		Category:      "Technology",
	})
	require.NoError(t, err)

	return &fixture{
		svc:    NewService(d, evs, ords, gen, log),
		gen:    gen,
		ledger: ledger,
		org:    org,
		event:  ev,
	}
}

func input() models.ReportInput {
	return models.ReportInput{
		PreparedBy:        "Events Committee",
		EventPurpose:      "Showcase student projects",
		KeyHighlights:     "Robotics demo",
		Budget:            5000,
		ActualExpenditure: 4500,
		Photos:            []string{"https://cdn.campus.edu/fest/1.jpg"},
	}
}

func TestGenerateReport(t *testing.T) {
	f := newFixture(t, time.Now().Add(-24*time.Hour))
	ctx := context.Background()
	_, err := f.ledger.PlaceOrder(ctx, inventory.Purchase{
		PaymentRef:  "cs_1",
		EventID:     f.event.ID,
		BuyerID:     primitive.NewObjectID(),
		Quantity:    4,
		TotalAmount: 400,
	})
	require.NoError(t, err)

	r, err := f.svc.Generate(ctx, f.event.ID, f.org.ID, input())
	require.NoError(t, err)
	assert.Equal(t, "Tech Fest 2026 Report", r.Title)
	assert.Equal(t, "stub-model", r.GeneratedBy)
	assert.Equal(t, 4, r.Stats.TicketsSold)
	assert.Equal(t, 46, r.Stats.TicketsLeft)
	assert.Len(t, r.Sections, 2)

	assert.Contains(t, f.gen.prompt, "Event Title: Tech Fest")
	assert.Contains(t, f.gen.prompt, "Event Category: Technology")
	assert.Contains(t, f.gen.prompt, "Actual Attendance (Tickets Sold): 4")
	assert.Contains(t, f.gen.prompt, "Total Revenue from Tickets: 400.00 INR")
	assert.Contains(t, f.gen.prompt, "Sponsorships/Funding Received: 0 INR")

	got, err := f.svc.Get(ctx, r.ID, f.org.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)

	list, err := f.svc.ForEvent(ctx, f.event.ID, f.org.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	pdf, err := RenderPDF(got)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
}

func TestGenerateRejects(t *testing.T) {
	past := time.Now().Add(-24 * time.Hour)
	ctx := context.Background()

	t.Run("not organizer", func(t *testing.T) {
		f := newFixture(t, past)
		_, err := f.svc.Generate(ctx, f.event.ID, primitive.NewObjectID(), input())
		assert.ErrorIs(t, err, models.ErrUnauthorized)
	})
	t.Run("event not over", func(t *testing.T) {
		f := newFixture(t, time.Now().Add(48*time.Hour))
		_, err := f.svc.Generate(ctx, f.event.ID, f.org.ID, input())
		assert.ErrorIs(t, err, models.ErrValidation)
	})
	t.Run("missing purpose", func(t *testing.T) {
		f := newFixture(t, past)
		in := input()
		in.EventPurpose = ""
		_, err := f.svc.Generate(ctx, f.event.ID, f.org.ID, in)
		assert.ErrorIs(t, err, models.ErrValidation)
	})
	t.Run("bad photo url", func(t *testing.T) {
		f := newFixture(t, past)
		in := input()
		in.Photos = []string{"not a url"}
		_, err := f.svc.Generate(ctx, f.event.ID, f.org.ID, in)
		assert.ErrorIs(t, err, models.ErrValidation)
	})
	t.Run("model failure", func(t *testing.T) {
		f := newFixture(t, past)
		f.gen.err = errors.New("quota exceeded")
		_, err := f.svc.Generate(ctx, f.event.ID, f.org.ID, input())
		assert.ErrorIs(t, err, models.ErrUpstream)
		assert.True(t, strings.Contains(err.Error(), "quota exceeded"))
	})
}

func TestGetIsAuthorOnly(t *testing.T) {
	f := newFixture(t, time.Now().Add(-time.Hour))
	ctx := context.Background()
	r, err := f.svc.Generate(ctx, f.event.ID, f.org.ID, input())
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, r.ID, primitive.NewObjectID())
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}
