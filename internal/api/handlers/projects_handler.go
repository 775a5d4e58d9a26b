package handlers

import (
	"net/http"
	"strings"

	"github.com/onboardhub/engine/internal/api/types"
	"github.com/onboardhub/engine/internal/services"
)

type ProjectsHandler struct {
	projects services.ProjectService
}

func NewProjectsHandler(projects services.ProjectService) *ProjectsHandler {
	return &ProjectsHandler{projects: projects}
}

func (h *ProjectsHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.projects.ListProjects(r.Context(), strings.TrimSpace(r.URL.Query().Get("status")))
	if err != nil {
		fail(w, r, err)
		return
	}
	page := intQuery(r, "page", 1)
	size := intQuery(r, "page_size", 20)
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	start := (page - 1) * size
	end := start + size
	if start > len(items) {
		start = len(items)
	}
	if end > len(items) {
		end = len(items)
	}
	resp := types.APIResponse{Success: true, Data: items[start:end], Meta: &types.Meta{Page: page, PageSize: size, Total: int64(len(items))}}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ProjectsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req types.ProjectCreateRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.projects.CreateProject(r.Context(), &services.CreateProjectInput{
		Name:          req.Name,
		ClientName:    req.ClientName,
		ClientEmail:   req.ClientEmail,
		ClientCompany: req.ClientCompany,
		ClientPhone:   req.ClientPhone,
		CommunityName: req.CommunityName,
		TemplateID:    req.TemplateID,
		StartDate:     req.StartDate,
		TargetDate:    req.TargetDate,
		SendInvite:    req.SendInvite,
	}, actorFrom(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, p)
}

func (h *ProjectsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	p, err := h.projects.GetProject(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, p)
}

func (h *ProjectsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req types.ProjectUpdateRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.projects.UpdateProject(r.Context(), id, &services.UpdateProjectInput{
		Name:          req.Name,
		Status:        req.Status,
		ClientName:    req.ClientName,
		ClientEmail:   req.ClientEmail,
		ClientCompany: req.ClientCompany,
		ClientPhone:   req.ClientPhone,
		CommunityName: req.CommunityName,
		TargetDate:    req.TargetDate,
	}, actorFrom(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, p)
}

func (h *ProjectsHandler) Progress(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	view, err := h.projects.ProjectProgress(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, view)
}

func (h *ProjectsHandler) RotateToken(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	p, err := h.projects.RotateToken(r.Context(), id, actorFrom(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"id": p.ID, "public_token": p.PublicToken})
}

func (h *ProjectsHandler) Activity(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	items, err := h.projects.ListActivity(r.Context(), id, intQuery(r, "limit", 100))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, items)
}

// Deal is the CRM entry point. Replaying a deal returns the existing project with 200.
func (h *ProjectsHandler) Deal(w http.ResponseWriter, r *http.Request) {
	var req types.DealRequest
	if !decode(w, r, &req) {
		return
	}
	p, created, err := h.projects.CreateFromDeal(r.Context(), &services.DealInput{
		DealID:        req.DealID,
		Name:          req.Name,
		ClientName:    req.ClientName,
		ClientEmail:   req.ClientEmail,
		ClientCompany: req.ClientCompany,
		ClientPhone:   req.ClientPhone,
		TemplateID:    req.TemplateID,
		StartDate:     req.StartDate,
		SendInvite:    req.SendInvite,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeData(w, status, map[string]any{"project": p, "created": created})
}
