package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gdex-tools/datahelp-router/internal/config"
	"github.com/gdex-tools/datahelp-router/internal/jira"
	"github.com/gdex-tools/datahelp-router/internal/router"
)

var (
	routeQueue     string
	routeDryRun    bool
	routeWorkers   int
	routeSinceLast bool
)

var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Run one routing pass over the team queues",
	Long: `Fetches the unresolved tickets sitting in the service and curation team queues and routes each one.
Service tickets are assigned to the owner of the dataset they mention. Curation tickets are only checked.
Use --dry-run to preview the decisions without assigning or commenting.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}

		queues := router.Queues
		if routeQueue != "all" {
			q, err := router.ParseQueue(routeQueue)
			if err != nil {
				return err
			}
			queues = []router.Queue{q}
		}

		afterKey := ""
		if routeSinceLast {
			afterKey = appConfig.LastCheckedTicket
		}

		client := jira.NewClient(appConfig, log)
		r := newRouter(newDirectory(), routeDryRun, routeWorkers, afterKey)

		var errs []error
		for _, q := range queues {
			rep, err := r.RouteQueue(cmd.Context(), client, q)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			printReport(os.Stdout, rep)

			if q == router.QueueService && !routeDryRun {
				recordWatermark(rep)
			}
		}
		return errors.Join(errs...)
	},
}

func printReport(w io.Writer, rep router.Report) {
	if rep.DryRun {
		fmt.Fprintln(w, "(dry run - no changes applied)")
	}
	fmt.Fprintln(w, rep.String())
	for _, d := range rep.Decisions {
		line := fmt.Sprintf("  %-12s %s", d.TicketKey, d.Outcome)
		var details []string
		if d.Dataset != "" {
			details = append(details, "dataset "+d.Dataset.String())
		}
		if d.Assignee != "" {
			details = append(details, "assignee "+d.Assignee)
		}
		if d.Fallback {
			details = append(details, "fallback for "+d.Owner)
		}
		if d.Reason != "" {
			details = append(details, d.Reason)
		}
		if len(details) > 0 {
			line += " (" + strings.Join(details, ", ") + ")"
		}
		fmt.Fprintln(w, line)
	}
}

// recordWatermark saves where the next --since-last pass starts.
func recordWatermark(rep router.Report) {
	key := rep.Watermark()
	if key == "" {
		return
	}
	if err := config.SaveLastChecked(cfgFile, key); err != nil {
		log.Warn("could not save last checked ticket", zap.String("ticket", key), zap.Error(err))
		return
	}
	appConfig.LastCheckedTicket = key
	log.Debug("last checked ticket saved", zap.String("ticket", key))
}

func init() {
	routeCmd.Flags().StringVarP(&routeQueue, "queue", "q", "all", "queue to drain: service, curation or all")
	routeCmd.Flags().BoolVar(&routeDryRun, "dry-run", false, "decide every ticket without assigning or commenting")
	routeCmd.Flags().IntVarP(&routeWorkers, "workers", "w", 0, "tickets processed concurrently (default from config)")
	routeCmd.Flags().BoolVar(&routeSinceLast, "since-last", false, "only consider service tickets after the last checked ticket")
	rootCmd.AddCommand(routeCmd)
}
