package events

import (
	"encoding/json"
	"net/http"

	"eventtts/models"
	"eventtts/utils"

	"github.com/julienschmidt/httprouter"
)

const maxBody = 1 << 20

type Handler struct {
	Service *Service
}

func (h *Handler) GetEvents(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	opts := utils.ParseQueryOptions(r, defaultPageSize)
	page, err := h.Service.List(r.Context(), ListParams{
		Search:   opts.Search,
		Category: opts.Category,
		Page:     opts.Page,
		Limit:    opts.Limit,
	})
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, page)
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := utils.ParseObjectID(ps.ByName("eventid"))
	if !ok {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid event id")
		return
	}
	view, err := h.Service.Get(r.Context(), id)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	viewer := utils.GetUserIDFromRequest(r)
	if viewer.IsZero() {
		utils.RespondWithJSON(w, http.StatusOK, view)
		return
	}
	liked, err := h.Service.LikedBy(r.Context(), viewer, id)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, struct {
		*models.EventView
		LikedByMe bool `json:"likedByMe"`
	}{view, liked})
}

func (h *Handler) GetRelatedEvents(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := utils.ParseObjectID(ps.ByName("eventid"))
	if !ok {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid event id")
		return
	}
	related, err := h.Service.Related(r.Context(), id)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, related)
}

func (h *Handler) GetCategoryEvents(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := utils.ParseObjectID(ps.ByName("categoryid"))
	if !ok {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid category id")
		return
	}
	list, err := h.Service.ByCategory(r.Context(), id)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, list)
}

func (h *Handler) GetUserEvents(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := utils.ParseObjectID(ps.ByName("userid"))
	if !ok {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	opts := utils.ParseQueryOptions(r, defaultPageSize)
	page, err := h.Service.ByOrganizer(r.Context(), id, opts.Page, opts.Limit)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, page)
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID.IsZero() {
		utils.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var in EventInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&in); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	view, err := h.Service.Create(r.Context(), userID, in)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, view)
}

func (h *Handler) EditEvent(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID.IsZero() {
		utils.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	id, ok := utils.ParseObjectID(ps.ByName("eventid"))
	if !ok {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid event id")
		return
	}

	var in UpdateInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&in); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	view, err := h.Service.Update(r.Context(), id, userID, in)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, view)
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID.IsZero() {
		utils.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	id, ok := utils.ParseObjectID(ps.ByName("eventid"))
	if !ok {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid event id")
		return
	}

	if err := h.Service.Delete(r.Context(), id, userID); err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Event deleted successfully"})
}
