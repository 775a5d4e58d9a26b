package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/onboardhub/engine/internal/api/types"
	"github.com/onboardhub/engine/internal/services"
)

type TasksHandler struct {
	tasks services.TaskService
}

func NewTasksHandler(tasks services.TaskService) *TasksHandler {
	return &TasksHandler{tasks: tasks}
}

func (h *TasksHandler) List(w http.ResponseWriter, r *http.Request) {
	pid, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	items, err := h.tasks.ListTasks(r.Context(), pid)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, items)
}

func (h *TasksHandler) Create(w http.ResponseWriter, r *http.Request) {
	pid, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req types.TaskCreateRequest
	if !decode(w, r, &req) {
		return
	}
	t, err := h.tasks.CreateTask(r.Context(), pid, &services.CreateTaskInput{
		Title:              req.Title,
		Description:        req.Description,
		OrderIndex:         req.OrderIndex,
		Visibility:         req.Visibility,
		AssigneeType:       req.AssigneeType,
		AssigneeEmail:      req.AssigneeEmail,
		Category:           req.Category,
		RequiresFileUpload: req.RequiresFileUpload,
		RequiresSignature:  req.RequiresSignature,
		DependsOn:          req.DependsOn,
		StageID:            req.StageID,
		DueDate:            req.DueDate,
		Checklist:          req.Checklist,
	}, actorFrom(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, t)
}

func (h *TasksHandler) Update(w http.ResponseWriter, r *http.Request) {
	pid, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	tid, ok := uuidParam(w, r, "taskID")
	if !ok {
		return
	}
	var req types.TaskUpdateRequest
	if !decode(w, r, &req) {
		return
	}
	t, err := h.tasks.UpdateTask(r.Context(), pid, tid, &services.UpdateTaskInput{
		Title:         req.Title,
		Description:   req.Description,
		Status:        req.Status,
		Visibility:    req.Visibility,
		AssigneeEmail: req.AssigneeEmail,
		Category:      req.Category,
		OrderIndex:    req.OrderIndex,
		StageID:       req.StageID,
		DueDate:       req.DueDate,
		Checklist:     req.Checklist,
		ClientNotes:   req.ClientNotes,
	}, actorFrom(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, t)
}

func (h *TasksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	pid, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	tid, ok := uuidParam(w, r, "taskID")
	if !ok {
		return
	}
	if err := h.tasks.DeleteTask(r.Context(), pid, tid, actorFrom(r)); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TasksHandler) BulkComplete(w http.ResponseWriter, r *http.Request) {
	h.bulk(w, r, h.tasks.BulkComplete)
}

func (h *TasksHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	h.bulk(w, r, h.tasks.BulkDelete)
}

type bulkFunc func(ctx context.Context, projectID uuid.UUID, ids []uuid.UUID, actor services.Actor) (*services.BulkResult, error)

func (h *TasksHandler) bulk(w http.ResponseWriter, r *http.Request, op bulkFunc) {
	pid, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req types.BulkTasksRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := op(r.Context(), pid, req.TaskIDs, actorFrom(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, res)
}

func (h *TasksHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	pid, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req types.ReorderRequest
	if !decode(w, r, &req) {
		return
	}
	items := make([]services.ReorderItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, services.ReorderItem{ID: it.ID, OrderIndex: it.OrderIndex})
	}
	res, err := h.tasks.Reorder(r.Context(), pid, items, actorFrom(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, res)
}
