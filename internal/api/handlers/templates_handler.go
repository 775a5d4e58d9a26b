package handlers

import (
	"net/http"

	"github.com/onboardhub/engine/internal/api/types"
	"github.com/onboardhub/engine/internal/services"
)

type TemplatesHandler struct {
	templates services.TemplateService
}

func NewTemplatesHandler(templates services.TemplateService) *TemplatesHandler {
	return &TemplatesHandler{templates: templates}
}

func (h *TemplatesHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.templates.ListTemplates(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, items)
}

func (h *TemplatesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req types.TemplateCreateRequest
	if !decode(w, r, &req) {
		return
	}
	t, err := h.templates.CreateTemplate(r.Context(), &services.CreateTemplateInput{
		Name:          req.Name,
		Description:   req.Description,
		EstimatedDays: req.EstimatedDays,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, t)
}

func (h *TemplatesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	detail, err := h.templates.GetTemplate(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, detail)
}

func (h *TemplatesHandler) AddStage(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req types.StageCreateRequest
	if !decode(w, r, &req) {
		return
	}
	st, err := h.templates.AddStage(r.Context(), id, &services.StageInput{Name: req.Name, OrderIndex: req.OrderIndex})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, st)
}

func (h *TemplatesHandler) AddTask(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req types.TemplateTaskCreateRequest
	if !decode(w, r, &req) {
		return
	}
	tt, err := h.templates.AddTemplateTask(r.Context(), id, &services.TemplateTaskInput{
		Title:              req.Title,
		Description:        req.Description,
		OrderIndex:         req.OrderIndex,
		Visibility:         req.Visibility,
		AssigneeType:       req.AssigneeType,
		Category:           req.Category,
		RequiresFileUpload: req.RequiresFileUpload,
		RequiresSignature:  req.RequiresSignature,
		DependsOn:          req.DependsOn,
		StageID:            req.StageID,
		DueDaysOffset:      req.DueDaysOffset,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, tt)
}

func (h *TemplatesHandler) Duplicate(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	res, err := h.templates.DuplicateTemplate(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, res)
}

func (h *TemplatesHandler) Instantiate(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req types.InstantiateRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.templates.InstantiateTemplate(r.Context(), id, req.ProjectID, req.StartDate)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, res)
}
