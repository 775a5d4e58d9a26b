package handlers

import (
	"net/http"

	"github.com/onboardhub/engine/internal/api/types"
	"github.com/onboardhub/engine/internal/services"
)

type TagsHandler struct {
	tags services.TagService
}

func NewTagsHandler(tags services.TagService) *TagsHandler {
	return &TagsHandler{tags: tags}
}

func (h *TagsHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.tags.ListTags(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, items)
}

func (h *TagsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req types.TagCreateRequest
	if !decode(w, r, &req) {
		return
	}
	tag, err := h.tags.CreateTag(r.Context(), req.Name, req.Color)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, tag)
}

func (h *TagsHandler) ListForProject(w http.ResponseWriter, r *http.Request) {
	pid, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	items, err := h.tags.ListProjectTags(r.Context(), pid)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, items)
}

func (h *TagsHandler) Assign(w http.ResponseWriter, r *http.Request) {
	pid, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	tid, ok := uuidParam(w, r, "tagID")
	if !ok {
		return
	}
	if err := h.tags.AssignTag(r.Context(), pid, tid, actorFrom(r)); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TagsHandler) Unassign(w http.ResponseWriter, r *http.Request) {
	pid, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	tid, ok := uuidParam(w, r, "tagID")
	if !ok {
		return
	}
	if err := h.tags.UnassignTag(r.Context(), pid, tid, actorFrom(r)); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
