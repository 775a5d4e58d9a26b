package handlers

import (
	"net/http"

	"github.com/onboardhub/engine/internal/api/types"
	"github.com/onboardhub/engine/internal/services"
)

type CommentsHandler struct {
	comments services.CommentService
}

func NewCommentsHandler(comments services.CommentService) *CommentsHandler {
	return &CommentsHandler{comments: comments}
}

// List returns every comment on the project, internal ones included.
func (h *CommentsHandler) List(w http.ResponseWriter, r *http.Request) {
	pid, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	items, err := h.comments.ListComments(r.Context(), pid)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, items)
}

func (h *CommentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	pid, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req types.CommentCreateRequest
	if !decode(w, r, &req) {
		return
	}
	c, err := h.comments.AddComment(r.Context(), pid, &services.CommentInput{
		TaskID:     req.TaskID,
		AuthorName: req.AuthorName,
		Content:    req.Content,
		IsInternal: req.IsInternal,
	}, actorFrom(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, c)
}
