package filemgr

import (
	"net/http"

	"eventtts/utils"

	"github.com/julienschmidt/httprouter"
)

type Handler struct {
	Store *Store
}

// UploadPhoto accepts a multipart "photo" field.
func (h *Handler) UploadPhoto(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if utils.GetUserIDFromRequest(r).IsZero() {
		utils.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize+1<<20)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "unable to parse form")
		return
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "no photo uploaded")
		return
	}
	defer file.Close()

	saved, err := h.Store.SavePhoto(file, header.Filename)
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, saved)
}
