// Package cli implements the onboardctl admin commands.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/onboardhub/engine/internal/app"
	"github.com/onboardhub/engine/pkg/config"
	"github.com/onboardhub/engine/pkg/logger"
)

var (
	version = "dev"
	commit  = "none"
)

// OpenFunc builds the application container for one command invocation.
type OpenFunc func(ctx context.Context) (*app.App, error)

// DefaultOpen loads configuration from the environment. Activity is written
// in-process so nothing is lost when the command exits.
func DefaultOpen(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if _, err := logger.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, app.Options{ActivityMode: app.ActivityAsync, SkipBlobs: true})
}

// SetVersion sets the version information
func SetVersion(v, c string) {
	version = v
	commit = c
}

// NewRootCommand assembles the command tree around open.
func NewRootCommand(open OpenFunc) *cobra.Command {
	root := &cobra.Command{
		Use:           "onboardctl",
		Short:         "Administer the client onboarding service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newMigrateCmd(open),
		newRemindCmd(open),
		newTemplateCmd(open),
		newProjectCmd(open),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "onboardctl %s (%s)\n", version, commit)
			},
		},
	)
	return root
}

// withApp opens the container, runs fn and always closes it.
func withApp(cmd *cobra.Command, open OpenFunc, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := open(ctx)
	if err != nil {
		return err
	}
	runErr := fn(ctx, a)
	if err := a.Close(); err != nil && runErr == nil {
		return err
	}
	return runErr
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
