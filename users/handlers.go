package users

import (
	"errors"
	"io"
	"net/http"

	"eventtts/events"
	"eventtts/models"
	"eventtts/orders"
	"eventtts/utils"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

const maxWebhookBody = 256 << 10

type Handler struct {
	Service  *Service
	Events   *events.Service
	Orders   *orders.Service
	Verifier *WebhookVerifier
}

func (h *Handler) ToggleLike(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
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
	liked, err := h.Service.ToggleLike(r.Context(), userID, eventID)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"liked": liked})
}

func (h *Handler) GetLikedEvents(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID.IsZero() {
		utils.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	liked, err := h.Service.LikedEvents(r.Context(), userID)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, liked)
}

type profile struct {
	User      *models.User      `json:"user"`
	Organized *models.EventPage `json:"organizedEvents"`
	Tickets   *models.OrderPage `json:"orders"`
}

// GetProfile returns the requester with the events they organize and the
// tickets they bought.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID.IsZero() {
		utils.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	ctx := r.Context()
	opts := utils.ParseQueryOptions(r, 6)

	u, err := h.Service.GetByID(ctx, userID)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	organized, err := h.Events.ByOrganizer(ctx, userID, opts.Page, opts.Limit)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	tickets, err := h.Orders.OrdersByUser(ctx, userID, opts.Page, opts.Limit)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, profile{User: u, Organized: organized, Tickets: tickets})
}

// ClerkWebhook keeps the local user collection in step with Clerk.
func (h *Handler) ClerkWebhook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		utils.RespondWithError(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}
	if h.Verifier == nil {
		utils.RespondWithError(w, http.StatusServiceUnavailable, "webhook not configured")
		return
	}
	if err := h.Verifier.Verify(r.Header, body); err != nil {
		zap.L().Warn("clerk webhook rejected", zap.Error(err))
		utils.RespondWithError(w, http.StatusBadRequest, "invalid signature")
		return
	}

	ev, err := parseClerkEvent(body)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}

	ctx := r.Context()
	switch ev.Type {
	case "user.created":
		_, err = h.Service.CreateUser(ctx, ev.Data.toUser())
	case "user.updated":
		_, err = h.Service.UpdateUser(ctx, ev.Data.ID, ev.Data.toUpdate())
		if errors.Is(err, models.ErrNotFound) {
			// created before the webhook was set up
			_, err = h.Service.CreateUser(ctx, ev.Data.toUser())
		}
	case "user.deleted":
		err = h.Service.DeleteUser(ctx, ev.Data.ID)
		if errors.Is(err, models.ErrNotFound) {
			err = nil
		}
	default:
		zap.L().Debug("clerk event ignored", zap.String("type", ev.Type))
	}
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"received": true})
}
