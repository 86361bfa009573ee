package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/lite-lake/infra-regsync/internal/application/scheduler"
	"github.com/lite-lake/infra-regsync/internal/constants"
	"github.com/lite-lake/infra-regsync/internal/domain"
	"github.com/lite-lake/infra-regsync/internal/domain/entity"
	"github.com/lite-lake/infra-regsync/internal/infrastructure/archive"
	"github.com/lite-lake/infra-regsync/internal/infrastructure/logger"
)

func parseSince(v string, now time.Time) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if d, err := time.ParseDuration(v); err == nil {
		return now.Add(-d), nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: --since %q (want a duration or RFC3339 time)", domain.ErrInvalidType, v)
	}
	return t, nil
}

func newPollCommand(ctx *Context) *cobra.Command {
	var limit int
	var since string

	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Drain registry notifications",
		Long: "Dequeue and acknowledge up to --limit notifications from the registry queue of one account. " +
			"Acknowledged messages are gone from the registry and kept in the local archive.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if ctx.Registry == "" {
				return domain.RequiredField("--registry")
			}
			sinceTime, err := parseSince(since, time.Now())
			if err != nil {
				return err
			}
			s, err := ctx.OpenSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close(context.WithoutCancel(cmd.Context()))

			p, err := s.Registrar.Provider(ctx.Registry)
			if err != nil {
				return err
			}
			res, pollErr := p.Poll(cmd.Context(), limit, sinceTime)
			if res != nil {
				if err := ctx.render(res, func(w io.Writer) {
					for _, n := range res.Notifications {
						printNotification(w, n)
					}
					fmt.Fprintln(w, HelpStyle.Render(fmt.Sprintf("%d returned, %d acknowledged, %d skipped, about %d left",
						len(res.Notifications), res.Acknowledged, res.Skipped, res.Remaining)))
				}); err != nil {
					return err
				}
			}
			return pollErr
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", domain.DefaultPollLimit, "Maximum notifications to return")
	cmd.Flags().StringVar(&since, "since", "", "Only return notifications newer than a duration (24h) or RFC3339 time")
	return cmd
}

type archiveFlags struct {
	typ    string
	domain string
	since  string
	limit  int
}

func (f *archiveFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.typ, "type", "t", "", "Notification type (transfer-in, transfer-out, renewed, suspended, deleted, data-quality)")
	cmd.Flags().StringVarP(&f.domain, "domain", "d", "", "Only notifications mentioning this domain")
	cmd.Flags().StringVar(&f.since, "since", "", "Only notifications newer than a duration (24h) or RFC3339 time")
	cmd.Flags().IntVarP(&f.limit, "limit", "n", 0, "Maximum rows, 0 for all")
}

func (f *archiveFlags) filter(registry string) (archive.Filter, error) {
	typ := entity.NotificationType(f.typ)
	if typ != "" && !typ.Valid() {
		return archive.Filter{}, fmt.Errorf("%w: notification type %q", domain.ErrInvalidType, f.typ)
	}
	since, err := parseSince(f.since, time.Now())
	if err != nil {
		return archive.Filter{}, err
	}
	return archive.Filter{Registry: registry, Type: typ, Domain: f.domain, Since: since, Limit: f.limit}, nil
}

// listArchived reads the archive without loading config or contacting a
// registry.
func (c *Context) listArchived(cmd *cobra.Command, f *archiveFlags) ([]entity.Notification, error) {
	filter, err := f.filter(c.Registry)
	if err != nil {
		return nil, err
	}
	store, err := archive.Open(c.stateFile(constants.ArchiveFile))
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.List(cmd.Context(), filter)
}

func newNotificationsCommand(ctx *Context) *cobra.Command {
	notificationsCmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"notif"},
		Short:   "Browse archived notifications",
	}

	var listFlags archiveFlags
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List archived notifications, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := ctx.listArchived(cmd, &listFlags)
			if err != nil {
				return err
			}
			return ctx.render(items, func(w io.Writer) {
				if len(items) == 0 {
					fmt.Fprintln(w, NoopStyle.Render("No notifications archived."))
					return
				}
				for _, n := range items {
					printNotification(w, n)
				}
			})
		},
	}
	listFlags.bind(listCmd)

	var browseFlags archiveFlags
	browseCmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse archived notifications interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := ctx.listArchived(cmd, &browseFlags)
			if err != nil {
				return err
			}
			title := "Notifications"
			if ctx.Registry != "" {
				title += " · " + ctx.Registry
			}
			return runBrowser(NewBrowserModel(title, items))
		},
	}
	browseFlags.bind(browseCmd)

	notificationsCmd.AddCommand(listCmd, browseCmd)
	return notificationsCmd
}

func newWatchCommand(ctx *Context) *cobra.Command {
	var schedule string
	var metricsPath string
	var limit int
	var once bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Drain notification queues on a schedule",
		Long:  "Drain the notification queue of every registry account (or only --registry) on a cron schedule until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.OpenSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close(context.WithoutCancel(cmd.Context()))

			var registries []string
			if ctx.Registry != "" {
				registries = []string{ctx.Registry}
			}
			if metricsPath == "" {
				metricsPath = ctx.stateFile(constants.MetricsTextfile)
			}
			sched, err := scheduler.NewScheduler(scheduler.Config{
				Registrar:   s.Registrar,
				Registries:  registries,
				Limit:       limit,
				MetricsPath: metricsPath,
			})
			if err != nil {
				return err
			}

			report := func(summaries []scheduler.Summary) {
				for _, sum := range summaries {
					printSummary(ctx.Out, sum)
				}
			}
			if once {
				report(sched.RunOnce(cmd.Context()))
				return nil
			}

			sched.OnRun(report)
			if err := sched.Start(schedule); err != nil {
				return err
			}
			logger.Info("watching notification queues", "schedule", schedule, "metrics", metricsPath)
			<-cmd.Context().Done()
			sched.Stop()
			return nil
		},
	}
	cmd.Flags().StringVar(&schedule, "schedule", "@every 5m", "Cron schedule")
	cmd.Flags().StringVar(&metricsPath, "metrics", "", "Prometheus textfile path (default <config>/.regsync/regsync.prom)")
	cmd.Flags().IntVarP(&limit, "limit", "n", domain.DefaultPollLimit, "Notifications per poll")
	cmd.Flags().BoolVar(&once, "once", false, "Drain once and exit")
	return cmd
}

func printSummary(w io.Writer, sum scheduler.Summary) {
	mark := SuccessStyle.Render("✓")
	if sum.Err != nil {
		mark = ErrorStyle.Render("✗")
	}
	line := fmt.Sprintf("%s %-16s %d notifications, %d acknowledged, %d skipped in %d round(s)",
		mark, sum.Registry, sum.Notifications, sum.Acknowledged, sum.Skipped, sum.Rounds)
	if sum.Err != nil {
		line += " " + ErrorStyle.Render(sum.Err.Error())
	}
	fmt.Fprintln(w, line)
}
