package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/onboardhub/engine/internal/app"
	"github.com/onboardhub/engine/internal/repository"
)

func newMigrateCmd(open OpenFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, open, func(_ context.Context, a *app.App) error {
				if err := repository.Migrate(a.DB); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations completed")
				return nil
			})
		},
	}
}

func newRemindCmd(open OpenFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "remind",
		Short: "Send reminder emails for external tasks due soon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				summary, err := a.Reminders.Run(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), summary)
			})
		},
	}
}

func newTemplateCmd(open OpenFunc) *cobra.Command {
	tpl := &cobra.Command{
		Use:   "template",
		Short: "Manage task templates",
	}
	tpl.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List templates",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
					items, err := a.Templates.ListTemplates(ctx)
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), items)
				})
			},
		},
		&cobra.Command{
			Use:   "duplicate [template-id]",
			Short: "Copy a template with its stages and tasks",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := uuid.Parse(args[0])
				if err != nil {
					return fmt.Errorf("invalid template id %q", args[0])
				}
				return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
					res, err := a.Templates.DuplicateTemplate(ctx, id)
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), res)
				})
			},
		},
	)
	return tpl
}

func newProjectCmd(open OpenFunc) *cobra.Command {
	project := &cobra.Command{
		Use:   "project",
		Short: "Manage onboarding projects",
	}

	var (
		templateID string
		start      string
	)
	instantiate := &cobra.Command{
		Use:   "instantiate [project-id]",
		Short: "Copy a template's stages and tasks into a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid project id %q", args[0])
			}
			tid, err := uuid.Parse(templateID)
			if err != nil {
				return fmt.Errorf("invalid --template %q", templateID)
			}
			var startDate *time.Time
			if start != "" {
				d, err := time.Parse(time.DateOnly, start)
				if err != nil {
					return fmt.Errorf("invalid --start %q, want YYYY-MM-DD", start)
				}
				startDate = &d
			}
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				res, err := a.Templates.InstantiateTemplate(ctx, tid, pid, startDate)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	instantiate.Flags().StringVar(&templateID, "template", "", "template id to copy from")
	instantiate.Flags().StringVar(&start, "start", "", "start date used for due dates (YYYY-MM-DD)")
	_ = instantiate.MarkFlagRequired("template")

	project.AddCommand(
		instantiate,
		&cobra.Command{
			Use:   "progress [project-id]",
			Short: "Show project and stage progress",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				pid, err := uuid.Parse(args[0])
				if err != nil {
					return fmt.Errorf("invalid project id %q", args[0])
				}
				return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
					view, err := a.Projects.ProjectProgress(ctx, pid)
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), view)
				})
			},
		},
	)
	return project
}
