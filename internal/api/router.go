package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/onboardhub/engine/internal/api/handlers"
	mw "github.com/onboardhub/engine/internal/api/middleware"
	"github.com/onboardhub/engine/internal/models"
	"github.com/onboardhub/engine/internal/services"
)

type Dependencies struct {
	Gate      services.AccessGate
	Projects  services.ProjectService
	Templates services.TemplateService
	Tasks     services.TaskService
	Tags      services.TagService
	Comments  services.CommentService
	Portal    services.PortalService
	Reminders services.ReminderService
	Checks    map[string]handlers.Check

	// PortalRPS and PortalBurst bound unauthenticated portal traffic per client IP.
	PortalRPS   float64
	PortalBurst int
}

func NewRouter(dep Dependencies) http.Handler {
	if dep.PortalRPS <= 0 {
		dep.PortalRPS = 5
	}
	if dep.PortalBurst <= 0 {
		dep.PortalBurst = 20
	}

	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.Recovery)
	r.Use(mw.Logging)
	r.Use(mw.Metrics)
	r.Use(mw.CORS)
	r.Use(chimid.Compress(5))

	hh := handlers.NewHealthHandler(dep.Checks)
	r.Get("/healthz", hh.Liveness)
	r.Get("/readyz", hh.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	auth := handlers.NewAuthHandler(dep.Gate)
	projects := handlers.NewProjectsHandler(dep.Projects)
	templates := handlers.NewTemplatesHandler(dep.Templates)
	tasks := handlers.NewTasksHandler(dep.Tasks)
	tags := handlers.NewTagsHandler(dep.Tags)
	comments := handlers.NewCommentsHandler(dep.Comments)
	reminders := handlers.NewRemindersHandler(dep.Reminders)
	portal := handlers.NewPortalHandler(dep.Portal)

	r.Route("/portal/{token}", func(pr chi.Router) {
		pr.Use(mw.RateLimit(dep.PortalRPS, dep.PortalBurst))
		pr.Get("/", portal.View)
		pr.Patch("/tasks/{taskID}", portal.UpdateTask)
		pr.Post("/tasks/{taskID}/files", portal.UploadFile)
		pr.Get("/files/{fileID}", portal.DownloadFile)
		pr.Post("/signatures/{signatureID}/sign", portal.Sign)
		pr.Get("/comments", portal.ListComments)
		pr.Post("/comments", portal.AddComment)
	})

	r.Route("/api/v1", func(api chi.Router) {
		api.With(mw.RateLimit(1, 5)).Post("/auth/token", auth.Token)

		api.Group(func(protected chi.Router) {
			protected.Use(mw.StaffAuth(dep.Gate))

			// CRM keys may only create projects from deals.
			protected.With(mw.RequireActor(models.ActorStaff, models.ActorCRM)).Post("/crm/deals", projects.Deal)

			protected.Group(func(staff chi.Router) {
				staff.Use(mw.RequireActor(models.ActorStaff))

				staff.Route("/projects", func(pr chi.Router) {
					pr.Get("/", projects.List)
					pr.Post("/", projects.Create)
					pr.Route("/{id}", func(p chi.Router) {
						p.Get("/", projects.Get)
						p.Patch("/", projects.Update)
						p.Get("/progress", projects.Progress)
						p.Post("/rotate-token", projects.RotateToken)
						p.Get("/activity", projects.Activity)

						p.Get("/tasks", tasks.List)
						p.Post("/tasks", tasks.Create)
						p.Post("/tasks/bulk-complete", tasks.BulkComplete)
						p.Post("/tasks/bulk-delete", tasks.BulkDelete)
						p.Post("/tasks/reorder", tasks.Reorder)
						p.Patch("/tasks/{taskID}", tasks.Update)
						p.Delete("/tasks/{taskID}", tasks.Delete)

						p.Get("/tags", tags.ListForProject)
						p.Put("/tags/{tagID}", tags.Assign)
						p.Delete("/tags/{tagID}", tags.Unassign)

						p.Get("/comments", comments.List)
						p.Post("/comments", comments.Create)
					})
				})

				staff.Route("/templates", func(tr chi.Router) {
					tr.Get("/", templates.List)
					tr.Post("/", templates.Create)
					tr.Get("/{id}", templates.Get)
					tr.Post("/{id}/stages", templates.AddStage)
					tr.Post("/{id}/tasks", templates.AddTask)
					tr.Post("/{id}/duplicate", templates.Duplicate)
					tr.Post("/{id}/instantiate", templates.Instantiate)
				})

				staff.Get("/tags", tags.List)
				staff.Post("/tags", tags.Create)

				staff.Post("/reminders/run", reminders.Run)
			})
		})
	})

	return r
}
