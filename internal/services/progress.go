package services

import (
	"github.com/google/uuid"
	"github.com/onboardhub/engine/internal/models"
)

// Progress is a completion summary.
type Progress struct {
	Percent   int `json:"progress"`
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// StageProgress is a stage with counts over all of its tasks.
type StageProgress struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	OrderIndex     int       `json:"order_index"`
	Status         string    `json:"status"`
	CompletedTasks int       `json:"completed_tasks"`
	TotalTasks     int       `json:"total_tasks"`
}

// ComputeProjectProgress counts only client-visible tasks.
func ComputeProjectProgress(tasks []models.Task) Progress {
	var p Progress
	for _, t := range tasks {
		if t.Visibility != models.VisibilityExternal {
			continue
		}
		p.Total++
		if t.Status == models.TaskStatusCompleted {
			p.Completed++
		}
	}
	p.Percent = percent(p.Completed, p.Total)
	return p
}

// ComputeStageProgress counts every task in the stage regardless of visibility.
func ComputeStageProgress(stage models.Stage, tasks []models.Task) StageProgress {
	sp := StageProgress{ID: stage.ID, Name: stage.Name, OrderIndex: stage.OrderIndex, Status: stage.Status}
	for _, t := range tasks {
		if t.StageID == nil || *t.StageID != stage.ID {
			continue
		}
		sp.TotalTasks++
		if t.Status == models.TaskStatusCompleted {
			sp.CompletedTasks++
		}
	}
	return sp
}

func computeStages(stages []models.Stage, tasks []models.Task) []StageProgress {
	out := make([]StageProgress, 0, len(stages))
	for _, s := range stages {
		out = append(out, ComputeStageProgress(s, tasks))
	}
	return out
}

// percent rounds half up using integer math.
func percent(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return (200*completed + total) / (2 * total)
}
