package services

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/onboardhub/engine/internal/models"
)

func task(visibility, status string, stage *uuid.UUID) models.Task {
	return models.Task{ID: uuid.New(), Visibility: visibility, Status: status, StageID: stage}
}

func TestComputeProjectProgressEmpty(t *testing.T) {
	require.Equal(t, Progress{}, ComputeProjectProgress(nil))

	internalOnly := []models.Task{
		task(models.VisibilityInternal, models.TaskStatusCompleted, nil),
		task(models.VisibilityInternal, models.TaskStatusPending, nil),
	}
	require.Equal(t, Progress{Percent: 0, Completed: 0, Total: 0}, ComputeProjectProgress(internalOnly))
}

func TestComputeProjectProgressCountsExternalOnly(t *testing.T) {
	tasks := []models.Task{
		task(models.VisibilityExternal, models.TaskStatusCompleted, nil),
		task(models.VisibilityExternal, models.TaskStatusPending, nil),
		task(models.VisibilityExternal, models.TaskStatusPending, nil),
		task(models.VisibilityInternal, models.TaskStatusCompleted, nil),
	}
	require.Equal(t, Progress{Percent: 33, Completed: 1, Total: 3}, ComputeProjectProgress(tasks))
}

func TestPercentRoundsHalfUp(t *testing.T) {
	cases := []struct {
		completed, total, want int
	}{
		{0, 0, 0},
		{1, 8, 13}, // 12.5
		{1, 3, 33},
		{2, 3, 67},
		{1, 200, 1}, // 0.5
		{1, 201, 0},
		{5, 5, 100},
	}
	for _, c := range cases {
		require.Equal(t, c.want, percent(c.completed, c.total), "%d/%d", c.completed, c.total)
	}
}

func TestComputeProjectProgressOrderIndependent(t *testing.T) {
	var tasks []models.Task
	for i := 0; i < 7; i++ {
		status := models.TaskStatusPending
		if i%3 == 0 {
			status = models.TaskStatusCompleted
		}
		tasks = append(tasks, task(models.VisibilityExternal, status, nil))
	}
	want := ComputeProjectProgress(tasks)
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		r.Shuffle(len(tasks), func(a, b int) { tasks[a], tasks[b] = tasks[b], tasks[a] })
		require.Equal(t, want, ComputeProjectProgress(tasks))
	}
}

func TestComputeStageProgressCountsInternalTasks(t *testing.T) {
	stage := models.Stage{ID: uuid.New(), Name: "Setup", OrderIndex: 1}
	other := uuid.New()
	tasks := []models.Task{
		task(models.VisibilityInternal, models.TaskStatusCompleted, &stage.ID),
		task(models.VisibilityExternal, models.TaskStatusPending, &stage.ID),
		task(models.VisibilityExternal, models.TaskStatusCompleted, &other),
		task(models.VisibilityExternal, models.TaskStatusCompleted, nil),
	}
	sp := ComputeStageProgress(stage, tasks)
	require.Equal(t, 2, sp.TotalTasks)
	require.Equal(t, 1, sp.CompletedTasks)
	require.Equal(t, "Setup", sp.Name)
}
