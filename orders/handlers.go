package orders

import (
	"encoding/json"
	"io"
	"net/http"

	"eventtts/utils"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

const maxWebhookBody = 64 << 10

type Handler struct {
	Service *Service
}

type checkoutBody struct {
	SubEventID string `json:"subEventId"`
	Quantity   int    `json:"quantity"`
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID.IsZero() {
		utils.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	eventID, ok := utils.ParseObjectID(ps.ByName("eventid"))
	if !ok {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid event id")
		return
	}

	var body checkoutBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<10)).Decode(&body); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req := CheckoutRequest{EventID: eventID, BuyerID: userID, Quantity: body.Quantity}
	if body.SubEventID != "" {
		sub, ok := utils.ParseObjectID(body.SubEventID)
		if !ok {
			utils.RespondWithError(w, http.StatusBadRequest, "invalid sub-event id")
			return
		}
		req.SubEventID = &sub
	}

	res, err := h.Service.Checkout(r.Context(), req)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, res)
}

func (h *Handler) GetMyOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID.IsZero() {
		utils.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	opts := utils.ParseQueryOptions(r, defaultOrdersPerPage)
	page, err := h.Service.OrdersByUser(r.Context(), userID, opts.Page, opts.Limit)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, page)
}

func (h *Handler) GetEventStats(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID.IsZero() {
		utils.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	eventID, ok := utils.ParseObjectID(ps.ByName("eventid"))
	if !ok {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid event id")
		return
	}
	stats, err := h.Service.EventStatistics(r.Context(), eventID, userID)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, stats)
}

// StripeWebhook acknowledges every verified delivery it could act on. A
// failure to record the order answers 5xx so Stripe retries it.
func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		utils.RespondWithError(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}

	order, err := h.Service.ConfirmPayment(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		zap.L().Warn("stripe webhook rejected", zap.Error(err))
		utils.RespondWithErr(w, r, err)
		return
	}
	resp := utils.M{"received": true}
	if order != nil {
		resp["orderId"] = order.ID
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}
