// Package tickets renders printable tickets and pushes live ticket counts
// to browsers.
package tickets

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"eventtts/models"

	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/hkdf"
)

var ErrInvalidPass = errors.New("invalid ticket pass")

// Signer produces and checks the QR payload printed on a ticket:
// eventID|orderID|ticketCode|signature.
type Signer struct {
	key []byte
}

const passKeyInfo = "eventtts ticket pass v1"

// NewSigner derives the pass key from secret, so the same secret can also
// sign session tokens without the two keys being interchangeable.
func NewSigner(secret string) *Signer {
	key := make([]byte, sha256.Size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(passKeyInfo)), key); err != nil {
		panic(err)
	}
	return &Signer{key: key}
}

func (s *Signer) sign(data string) string {
	h := hmac.New(sha256.New, s.key)
	h.Write([]byte(data))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

func (s *Signer) Payload(o *models.Order) string {
	data := fmt.Sprintf("%s|%s|%s", o.Event.Hex(), o.ID.Hex(), o.TicketCode)
	return data + "|" + s.sign(data)
}

// Pass is what a verified QR payload names.
type Pass struct {
	EventID    primitive.ObjectID
	OrderID    primitive.ObjectID
	TicketCode string
}

func (s *Signer) Verify(payload string) (*Pass, error) {
	parts := strings.Split(payload, "|")
	if len(parts) != 4 {
		return nil, fmt.Errorf("%w: bad format", ErrInvalidPass)
	}
	data := strings.Join(parts[:3], "|")
	if !hmac.Equal([]byte(parts[3]), []byte(s.sign(data))) {
		return nil, fmt.Errorf("%w: bad signature", ErrInvalidPass)
	}
	eventID, err := primitive.ObjectIDFromHex(parts[0])
	if err != nil {
		return nil, fmt.Errorf("%w: bad event id", ErrInvalidPass)
	}
	orderID, err := primitive.ObjectIDFromHex(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: bad order id", ErrInvalidPass)
	}
	return &Pass{EventID: eventID, OrderID: orderID, TicketCode: parts[2]}, nil
}

// RenderPDF draws a one-page ticket for the order.
func RenderPDF(view *models.OrderView, holder string, payload string) ([]byte, error) {
	qrPNG, err := qrcode.Encode(payload, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}

	title := "Event"
	when, where := "", ""
	if view.Event != nil {
		title = view.Event.Title
		when = view.Event.StartDate.Format("02 Jan 2006 15:04")
		if view.Event.IsOnline {
			where = "Online"
		} else {
			where = strings.TrimSpace(view.Event.Location + " " + view.Event.Landmark)
		}
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 20)
	pdf.CellFormat(0, 15, tr(title), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Arial", "", 12)
	pdf.MultiCell(110, 8, tr(fmt.Sprintf(
		"Name: %s\nWhen: %s\nWhere: %s\nTickets: %d\nAmount paid: %.2f\nTicket code: %s\nOrder: %s",
		holder, when, where, view.TotalTickets, view.TotalAmount, view.TicketCode, view.ID.Hex(),
	)), "", "L", false)

	imgOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", imgOpts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 140, 40, 50, 50, false, imgOpts, 0, "")

	pdf.SetY(-30)
	pdf.SetFont("Arial", "I", 10)
	pdf.CellFormat(0, 10, "Show this ticket at entry.", "T", 0, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render ticket pdf: %w", err)
	}
	return buf.Bytes(), nil
}
