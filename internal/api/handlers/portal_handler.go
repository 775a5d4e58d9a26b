package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/onboardhub/engine/internal/api/types"
	"github.com/onboardhub/engine/internal/services"
	"github.com/onboardhub/engine/pkg/logger"
)

const (
	maxUploadBytes  = 25 << 20
	multipartMemory = 8 << 20
)

type PortalHandler struct {
	portal services.PortalService
}

func NewPortalHandler(portal services.PortalService) *PortalHandler {
	return &PortalHandler{portal: portal}
}

func portalToken(r *http.Request) string { return chi.URLParam(r, "token") }

func (h *PortalHandler) View(w http.ResponseWriter, r *http.Request) {
	view, err := h.portal.GetView(r.Context(), portalToken(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeData(w, http.StatusOK, view)
}

func (h *PortalHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	tid, ok := uuidParam(w, r, "taskID")
	if !ok {
		return
	}
	var req types.PortalTaskUpdateRequest
	if !decode(w, r, &req) {
		return
	}
	t, err := h.portal.UpdateTask(r.Context(), portalToken(r), tid, &services.PortalTaskUpdate{
		Status:      req.Status,
		Checklist:   req.Checklist,
		ClientNotes: req.ClientNotes,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, t)
}

// UploadFile expects a multipart form with a "file" part and an optional "uploaded_by" field.
func (h *PortalHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	tid, ok := uuidParam(w, r, "taskID")
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeErrorStr(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeErrorStr(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()
	file, header, err := r.FormFile("file")
	if err != nil {
		writeErrorStr(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	f, err := h.portal.UploadFile(r.Context(), portalToken(r), tid, &services.FileUpload{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
		UploadedBy:  r.FormValue("uploaded_by"),
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, f)
}

// DownloadFile streams the stored bytes as an attachment.
func (h *PortalHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	fid, ok := uuidParam(w, r, "fileID")
	if !ok {
		return
	}
	meta, body, err := h.portal.DownloadFile(r.Context(), portalToken(r), fid)
	if err != nil {
		fail(w, r, err)
		return
	}
	defer body.Close()

	ct := meta.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": meta.FileName}))
	if meta.SizeBytes > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(meta.SizeBytes, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		logger.L().Warn("file stream interrupted", zap.String("file_id", fid.String()), zap.Error(err))
	}
}

func (h *PortalHandler) Sign(w http.ResponseWriter, r *http.Request) {
	sid, ok := uuidParam(w, r, "signatureID")
	if !ok {
		return
	}
	var req types.SignRequest
	if !decode(w, r, &req) {
		return
	}
	sig, err := h.portal.SignDocument(r.Context(), portalToken(r), sid, req.SignerName)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, sig)
}

func (h *PortalHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	items, err := h.portal.ListComments(r.Context(), portalToken(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, items)
}

func (h *PortalHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	var req types.PortalCommentRequest
	if !decode(w, r, &req) {
		return
	}
	c, err := h.portal.AddComment(r.Context(), portalToken(r), &services.PortalCommentInput{
		TaskID:     req.TaskID,
		AuthorName: req.AuthorName,
		Content:    req.Content,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, c)
}
