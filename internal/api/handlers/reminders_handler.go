package handlers

import (
	"net/http"

	"github.com/onboardhub/engine/internal/services"
)

type RemindersHandler struct {
	reminders services.ReminderService
}

func NewRemindersHandler(reminders services.ReminderService) *RemindersHandler {
	return &RemindersHandler{reminders: reminders}
}

// Run executes one reminder batch synchronously and returns its summary.
func (h *RemindersHandler) Run(w http.ResponseWriter, r *http.Request) {
	summary, err := h.reminders.Run(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, summary)
}
