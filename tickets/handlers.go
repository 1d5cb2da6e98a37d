package tickets

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"eventtts/models"
	"eventtts/orders"
	"eventtts/repository"
	"eventtts/utils"

	"github.com/julienschmidt/httprouter"
)

type Handler struct {
	Orders *orders.Service
	Store  repository.OrderStore
	Events repository.EventStore
	Users  repository.UserStore
	Signer *Signer
}

func holderName(u *models.User) string {
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		return name
	}
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}

// PrintTicket sends the requester's ticket for an order as a PDF.
func (h *Handler) PrintTicket(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID.IsZero() {
		utils.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	orderID, ok := utils.ParseObjectID(ps.ByName("orderid"))
	if !ok {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	view, err := h.Orders.OrderForBuyer(r.Context(), orderID, userID)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	u, err := h.Users.FindUserByID(r.Context(), userID)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}

	pdf, err := RenderPDF(view, holderName(u), h.Signer.Payload(&view.Order))
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=ticket-%s.pdf", view.TicketCode))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

type verifyResult struct {
	Valid        bool   `json:"valid"`
	OrderID      string `json:"orderId,omitempty"`
	TotalTickets int    `json:"totalTickets,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

// VerifyTicket checks a scanned QR payload at the door. Only the organizer
// of the ticket's event may scan it.
func (h *Handler) VerifyTicket(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID.IsZero() {
		utils.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	var body struct {
		Payload string `json:"payload"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<10)).Decode(&body); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	pass, err := h.Signer.Verify(body.Payload)
	if err != nil {
		utils.RespondWithJSON(w, http.StatusOK, verifyResult{Reason: "signature"})
		return
	}

	ctx := r.Context()
	ev, err := h.Events.FindEventByID(ctx, pass.EventID)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	owner := ev.Organizer
	if ev.IsSubEvent() {
		parent, err := h.Events.FindEventByID(ctx, *ev.ParentEvent)
		if err == nil {
			owner = parent.Organizer
		}
	}
	if owner != userID {
		utils.RespondWithErr(w, r, fmt.Errorf("scan for event %s: %w", pass.EventID.Hex(), models.ErrUnauthorized))
		return
	}

	o, err := h.Store.FindOrderByID(ctx, pass.OrderID)
	if errors.Is(err, models.ErrNotFound) {
		utils.RespondWithJSON(w, http.StatusOK, verifyResult{Reason: "unknown order"})
		return
	}
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	if o.TicketCode != pass.TicketCode || o.Event != pass.EventID {
		utils.RespondWithJSON(w, http.StatusOK, verifyResult{Reason: "mismatch"})
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, verifyResult{Valid: true, OrderID: o.ID.Hex(), TotalTickets: o.TotalTickets})
}
