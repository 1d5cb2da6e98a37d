package taxonomy

import (
	"net/http"

	"eventtts/utils"

	"github.com/julienschmidt/httprouter"
)

type Handler struct {
	Resolver *Resolver
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	cats, err := h.Resolver.Categories(r.Context())
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, cats)
}

func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	tags, err := h.Resolver.Tags(r.Context())
	if err != nil {
		utils.RespondWithErr(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, tags)
}
