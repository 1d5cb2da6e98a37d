package reports

import (
	"encoding/json"
	"fmt"
	"net/http"

	"eventtts/models"
	"eventtts/utils"

	"github.com/julienschmidt/httprouter"
)

type Handler struct {
	Service *Service
}

func (h *Handler) GenerateReport(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
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
	var in models.ReportInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&in); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	report, err := h.Service.Generate(r.Context(), eventID, userID, in)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, report)
}

func (h *Handler) GetEventReports(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
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
	list, err := h.Service.ForEvent(r.Context(), eventID, userID)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, list)
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request, ps httprouter.Params) (*models.Report, bool) {
	userID := utils.GetUserIDFromRequest(r)
	if userID.IsZero() {
		utils.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return nil, false
	}
	id, ok := utils.ParseObjectID(ps.ByName("reportid"))
	if !ok {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid report id")
		return nil, false
	}
	report, err := h.Service.Get(r.Context(), id, userID)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return nil, false
	}
	return report, true
}

func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if report, ok := h.load(w, r, ps); ok {
		utils.RespondWithJSON(w, http.StatusOK, report)
	}
}

func (h *Handler) GetReportPDF(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	report, ok := h.load(w, r, ps)
	if !ok {
		return
	}
	pdf, err := RenderPDF(report)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=report-%s.pdf", report.ID.Hex()))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}
