// Command progressctl is the operator CLI of the playground hub. It runs the
// same commands and queries as the HTTP API directly against the configured
// store.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/qaplayground/playground-hub/config"
	"github.com/qaplayground/playground-hub/internal/app"
	"github.com/qaplayground/playground-hub/internal/application/command"
	"github.com/qaplayground/playground-hub/internal/application/query"
	"github.com/qaplayground/playground-hub/internal/domain/profile"
	"github.com/qaplayground/playground-hub/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(openApp).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// opener builds the application for one invocation.
type opener func(ctx context.Context, skipMigrations bool) (*app.App, error)

func openApp(ctx context.Context, skipMigrations bool) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log := app.NewLogger(cfg)
	if !cfg.App.Debug {
		log = logger.Nop()
	}
	return app.New(ctx, cfg, log, app.Options{SkipMigrations: skipMigrations})
}

type cli struct {
	open   opener
	output string
}

func newRootCmd(open opener) *cobra.Command {
	c := &cli{open: open}

	root := &cobra.Command{
		Use:   "progressctl",
		Short: "Inspect and manage QA Playground progress",
		Long: `progressctl talks to the progress store configured through the
environment (DATABASE_URL, REDIS_URL, PROGRESS_TIMEZONE, ...).

Without DATABASE_URL progress lives in memory for the lifetime of one
invocation, which is only useful for trying things out.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&c.output, "output", "o", "table", "output format: table or json")

	root.AddCommand(
		c.migrateCmd(),
		c.completeCmd(),
		c.progressCmd(),
		c.resetCmd(),
		c.profileCmd(),
		c.rankingCmd(),
		c.scenariosCmd(),
	)
	return root
}

// with opens the application, runs fn and closes it.
func (c *cli) with(cmd *cobra.Command, skipMigrations bool, fn func(a *app.App) error) error {
	if c.output != "table" && c.output != "json" {
		return fmt.Errorf("unknown output format %q", c.output)
	}
	a, err := c.open(cmd.Context(), skipMigrations)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func (c *cli) migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.with(cmd, true, func(a *app.App) error {
				applied, err := a.Migrate(cmd.Context())
				if err != nil {
					return err
				}
				return c.print(cmd.OutOrStdout(), map[string]any{"applied": applied}, func(w io.Writer) {
					if len(applied) == 0 {
						fmt.Fprintln(w, "schema is up to date")
						return
					}
					for _, v := range applied {
						fmt.Fprintf(w, "applied migration %d\n", v)
					}
				})
			})
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "List migrations and whether they are applied",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return c.with(cmd, true, func(a *app.App) error {
					status, err := a.MigrationStatus(cmd.Context())
					if err != nil {
						return err
					}
					return c.print(cmd.OutOrStdout(), status, func(w io.Writer) {
						tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
						fmt.Fprintln(tw, "VERSION\tNAME\tAPPLIED")
						for _, m := range status {
							applied := "-"
							if m.IsApplied {
								applied = m.AppliedAt.Format("2006-01-02 15:04:05")
							}
							fmt.Fprintf(tw, "%d\t%s\t%s\n", m.Version, m.Name, applied)
						}
						_ = tw.Flush()
					})
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Revert the latest applied migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return c.with(cmd, true, func(a *app.App) error {
					version, err := a.RollbackMigration(cmd.Context())
					if err != nil {
						return err
					}
					return c.print(cmd.OutOrStdout(), map[string]int{"reverted": version}, func(w io.Writer) {
						if version == 0 {
							fmt.Fprintln(w, "nothing to revert")
							return
						}
						fmt.Fprintf(w, "reverted migration %d\n", version)
					})
				})
			},
		},
	)
	return cmd
}

func (c *cli) completeCmd() *cobra.Command {
	var tier string
	cmd := &cobra.Command{
		Use:   "complete <user-id> <scenario-id>",
		Short: "Record a scenario completion",
		Long: `Record a scenario completion and award its XP once.

Scenarios missing from the catalog need --tier.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.with(cmd, false, func(a *app.App) error {
				res, err := a.CompleteScenario.Handle(cmd.Context(), command.CompleteScenarioCommand{
					UserID:     args[0],
					ScenarioID: args[1],
					Difficulty: tier,
				})
				if err != nil {
					return err
				}
				return c.print(cmd.OutOrStdout(), res, func(w io.Writer) {
					if res.AlreadyCompleted {
						fmt.Fprintf(w, "%s already completed %s (total %d XP)\n", res.UserID, res.ScenarioID, res.TotalXP)
						return
					}
					fmt.Fprintf(w, "%s completed %s: +%d XP (total %d XP)\n", res.UserID, res.ScenarioID, res.XPAwarded, res.TotalXP)
				})
			})
		},
	}
	cmd.Flags().StringVar(&tier, "tier", "", "difficulty tier: beginner, intermediate, advanced or expert")
	return cmd
}

func (c *cli) progressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "progress <user-id>",
		Short: "Show a user's progress for the current month",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.with(cmd, false, func(a *app.App) error {
				res, err := a.GetProgress.Handle(cmd.Context(), query.GetProgressQuery{UserID: args[0]})
				if err != nil {
					return err
				}
				return c.print(cmd.OutOrStdout(), res, func(w io.Writer) {
					tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
					fmt.Fprintf(tw, "user\t%s\n", res.UserID)
					fmt.Fprintf(tw, "xp\t%d\n", res.TotalXP)
					fmt.Fprintf(tw, "level\t%d\n", res.Level)
					fmt.Fprintf(tw, "completed\t%d\n", res.CompletedCount)
					fmt.Fprintf(tw, "next reset\t%s\n", res.NextResetAt.Format("2006-01-02 15:04 MST"))
					_ = tw.Flush()
					for _, id := range res.CompletedSectionIDs {
						fmt.Fprintf(w, "  - %s\n", id)
					}
				})
			})
		},
	}
}

func (c *cli) resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <user-id>",
		Short: "Clear a user's progress now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.with(cmd, false, func(a *app.App) error {
				res, err := a.ResetProgress.Handle(cmd.Context(), command.ResetProgressCommand{UserID: args[0]})
				if err != nil {
					return err
				}
				return c.print(cmd.OutOrStdout(), res, func(w io.Writer) {
					fmt.Fprintf(w, "reset %s: cleared %d XP\n", res.UserID, res.ClearedXP)
				})
			})
		},
	}
}

func (c *cli) profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit directory users",
	}

	get := &cobra.Command{
		Use:   "get <user-id>",
		Short: "Show a user's profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.with(cmd, false, func(a *app.App) error {
				res, err := a.GetProfile.Handle(cmd.Context(), query.GetProfileQuery{UserID: args[0]})
				if err != nil {
					return err
				}
				return c.print(cmd.OutOrStdout(), res, func(w io.Writer) {
					printProfile(w, res.Profile)
				})
			})
		},
	}

	var (
		email, name, image, linkedin string
		ranked                       bool
	)
	set := &cobra.Command{
		Use:   "set <user-id>",
		Short: "Create a user or update their profile",
		Long: `Create a user or update their profile. Flags left out keep their
current value. --email is required when the user does not exist yet.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.with(cmd, false, func(a *app.App) error {
				sc := command.SaveProfileCommand{
					UserID:      args[0],
					Email:       email,
					Name:        name,
					Image:       image,
					LinkedInURL: linkedin,
				}
				if cmd.Flags().Changed("power-ranking") {
					sc.PowerRankingEnabled = &ranked
				}
				res, err := a.SaveProfile.Handle(cmd.Context(), sc)
				if err != nil {
					return err
				}
				return c.print(cmd.OutOrStdout(), res, func(w io.Writer) {
					verb := "updated"
					if res.Created {
						verb = "created"
					}
					fmt.Fprintf(w, "%s %s\n", verb, res.Profile.UserID)
					printProfile(w, res.Profile)
				})
			})
		},
	}
	set.Flags().StringVar(&email, "email", "", "e-mail address, unique across users")
	set.Flags().StringVar(&name, "name", "", "display name shown on the ranking")
	set.Flags().StringVar(&image, "image", "", "avatar URL")
	set.Flags().StringVar(&linkedin, "linkedin", "", "public profile URL, https://www.linkedin.com/in/<handle>")
	set.Flags().BoolVar(&ranked, "power-ranking", false, "stored Power Ranking preference")

	cmd.AddCommand(get, set)
	return cmd
}

func printProfile(w io.Writer, p profile.Profile) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "user\t%s\n", p.UserID)
	fmt.Fprintf(tw, "email\t%s\n", p.Email)
	fmt.Fprintf(tw, "name\t%s\n", p.DisplayName)
	fmt.Fprintf(tw, "image\t%s\n", p.AvatarURL)
	fmt.Fprintf(tw, "linkedin\t%s\n", p.LinkedInURL)
	fmt.Fprintf(tw, "power ranking\t%t\n", p.PowerRankingEnabled)
	_ = tw.Flush()
}

func (c *cli) rankingCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "ranking",
		Short: "Show the Power Ranking",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.with(cmd, false, func(a *app.App) error {
				res, err := a.GetRanking.Handle(cmd.Context(), query.GetRankingQuery{Limit: limit})
				if err != nil {
					return err
				}
				return c.print(cmd.OutOrStdout(), res, func(w io.Writer) {
					tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
					fmt.Fprintln(tw, "#\tNAME\tXP\tDONE\tLEVEL")
					for _, e := range res.Ranking {
						fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\n", e.Position, e.DisplayName, e.TotalXP, e.CompletedCount, e.Level)
					}
					_ = tw.Flush()
				})
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "number of entries (1-100, default 10)")
	return cmd
}

func (c *cli) scenariosCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scenarios",
		Short: "List the scenario catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.with(cmd, true, func(a *app.App) error {
				res := a.ListScenarios.Handle(cmd.Context())
				return c.print(cmd.OutOrStdout(), res, func(w io.Writer) {
					tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
					fmt.Fprintln(tw, "ID\tTIER\tXP\tTITLE")
					for _, s := range res.Scenarios {
						fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", s.ID, s.Tier, s.XP, s.Title)
					}
					_ = tw.Flush()
					fmt.Fprintf(w, "%d scenarios, %d XP available\n", len(res.Scenarios), res.TotalPossibleXP)
				})
			})
		},
	}
}

func (c *cli) print(w io.Writer, v any, table func(io.Writer)) error {
	if c.output == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	table(w)
	return nil
}
