package services

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/onboardhub/engine/internal/models"
	"github.com/onboardhub/engine/internal/repository"
	appErr "github.com/onboardhub/engine/pkg/errors"
	"github.com/onboardhub/engine/pkg/logger"
	"github.com/onboardhub/engine/pkg/metrics"
	"go.uber.org/zap"
)

const DefaultReminderWindow = 72 * time.Hour

// Reminder outcomes reported per project.
const (
	ReminderSent    = "sent"
	ReminderFailed  = "failed"
	ReminderSkipped = "skipped"
)

type ReminderSummary struct {
	ProjectsScanned int              `json:"projects_scanned"`
	Attempted       int              `json:"attempted"`
	Succeeded       int              `json:"succeeded"`
	Skipped         int              `json:"skipped"`
	Details         []ReminderDetail `json:"details"`
}

type ReminderDetail struct {
	ProjectID   uuid.UUID `json:"project_id"`
	ProjectName string    `json:"project_name"`
	Email       string    `json:"email"`
	TaskCount   int       `json:"task_count"`
	Result      string    `json:"result"`
	MessageID   string    `json:"message_id,omitempty"`
	Error       string    `json:"error,omitempty"`
}

type ReminderService interface {
	// Run sends at most one reminder per active project with client-visible pending tasks
	// due inside the window, overdue ones included.
	Run(ctx context.Context) (*ReminderSummary, error)
}

type reminderService struct {
	repos    *repository.Set
	mailer   Mailer
	dedup    Deduper
	activity ActivitySink
	window   time.Duration
	now      func() time.Time
}

// NewReminderService builds the selector. dedup may be nil.
func NewReminderService(repos *repository.Set, mailer Mailer, dedup Deduper, activity ActivitySink, window time.Duration) ReminderService {
	if window <= 0 {
		window = DefaultReminderWindow
	}
	if activity == nil {
		activity = NopSink{}
	}
	return &reminderService{repos: repos, mailer: mailer, dedup: dedup, activity: activity, window: window, now: time.Now}
}

var _ ReminderService = (*reminderService)(nil)

// groupDueTasks groups tasks by project, each group sorted by ascending due date.
func groupDueTasks(tasks []models.Task) map[uuid.UUID][]models.Task {
	groups := make(map[uuid.UUID][]models.Task)
	for _, t := range tasks {
		if t.Visibility != models.VisibilityExternal || t.Status != models.TaskStatusPending || t.DueDate == nil {
			continue
		}
		groups[t.ProjectID] = append(groups[t.ProjectID], t)
	}
	for _, g := range groups {
		sort.SliceStable(g, func(i, j int) bool { return g[i].DueDate.Before(*g[j].DueDate) })
	}
	return groups
}

func reminderKey(projectID uuid.UUID, day time.Time) string {
	return projectID.String() + ":" + day.Format("2006-01-02")
}

func (s *reminderService) Run(ctx context.Context) (*ReminderSummary, error) {
	if s.mailer == nil {
		return nil, appErr.New(appErr.CodeInternal, "mailer not configured")
	}
	start := time.Now()
	defer func() { metrics.ReminderRunDuration.Observe(time.Since(start).Seconds()) }()

	now := s.now().UTC()
	cutoff := now.Add(s.window)
	logger.L().Info("reminder run start", zap.Time("cutoff", cutoff))

	projects, err := s.repos.Projects.ListRemindable(ctx)
	if err != nil {
		return nil, err
	}
	summary := &ReminderSummary{ProjectsScanned: len(projects), Details: []ReminderDetail{}}
	if len(projects) == 0 {
		return summary, nil
	}

	ids := make([]uuid.UUID, 0, len(projects))
	for _, p := range projects {
		ids = append(ids, p.ID)
	}
	due, err := s.repos.Tasks.ListDueExternalPending(ctx, ids, cutoff)
	if err != nil {
		return nil, err
	}
	groups := groupDueTasks(due)

	for _, p := range projects {
		tasks := groups[p.ID]
		if len(tasks) == 0 || p.ClientEmail == nil || *p.ClientEmail == "" {
			continue
		}
		detail := ReminderDetail{ProjectID: p.ID, ProjectName: p.Name, Email: *p.ClientEmail, TaskCount: len(tasks)}

		key := reminderKey(p.ID, now)
		if s.dedup != nil && !s.dedup.AcquireOnce(ctx, key) {
			detail.Result = ReminderSkipped
			summary.Skipped++
			summary.Details = append(summary.Details, detail)
			metrics.IncrementReminder(ReminderSkipped)
			continue
		}

		items := make([]ReminderTask, 0, len(tasks))
		for _, t := range tasks {
			items = append(items, ReminderTask{Title: t.Title, DueDate: *t.DueDate})
		}

		summary.Attempted++
		msgID, err := s.mailer.SendReminder(ctx, *p.ClientEmail, p.ClientName, p.Name, items, p.PublicToken)
		if err != nil || msgID == "" {
			detail.Result = ReminderFailed
			if err != nil {
				detail.Error = err.Error()
			}
			if s.dedup != nil {
				s.dedup.Release(ctx, key)
			}
			logger.L().Warn("reminder send failed", zap.String("project_id", p.ID.String()), zap.Error(err))
			metrics.IncrementReminder(ReminderFailed)
			summary.Details = append(summary.Details, detail)
			continue
		}

		detail.Result = ReminderSent
		detail.MessageID = msgID
		summary.Succeeded++
		summary.Details = append(summary.Details, detail)
		metrics.IncrementReminder(ReminderSent)
		s.activity.Append(ctx, NewActivityEntry(p.ID, nil, SystemActor, ActionReminderSent, map[string]any{
			"message_id": msgID,
			"tasks":      len(items),
		}))
	}

	logger.L().Info("reminder run done",
		zap.Int("projects_scanned", summary.ProjectsScanned),
		zap.Int("attempted", summary.Attempted),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("skipped", summary.Skipped))
	return summary, nil
}
