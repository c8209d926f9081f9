package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gdex-tools/datahelp-router/internal/dataset"
	"github.com/gdex-tools/datahelp-router/internal/history"
	"github.com/gdex-tools/datahelp-router/internal/jira"
)

// inspection is what the router would see for one ticket.
type inspection struct {
	Key         string         `yaml:"key"`
	Summary     string         `yaml:"summary"`
	Status      string         `yaml:"status,omitempty"`
	Assignee    string         `yaml:"assignee,omitempty"`
	Reporter    string         `yaml:"reporter,omitempty"`
	QueueVisits map[string]int `yaml:"queue_visits,omitempty"`
	History     string         `yaml:"history"`
	Dataset     string         `yaml:"dataset,omitempty"`
	Owner       string         `yaml:"owner,omitempty"`
	CatchAll    bool           `yaml:"catch_all,omitempty"`
	Description string         `yaml:"description,omitempty"`
}

var inspectDescription bool

var inspectCmd = &cobra.Command{
	Use:   "inspect <issue-key>",
	Short: "Show how a ticket would be routed",
	Long:  `Fetches a JIRA issue and prints its queue history, the dataset id found in it and the owner the directory returns, as YAML. Nothing is assigned or commented.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}

		ctx := cmd.Context()
		issueKey := strings.ToUpper(args[0])
		client := jira.NewClient(appConfig, log)

		issue, err := client.GetIssue(ctx, issueKey)
		if err != nil {
			return err
		}
		t := jira.ToTicket(*issue)

		out := inspection{Key: t.Key, Summary: t.Summary}
		out.Status = issue.Fields.Status.Name
		if a := issue.Fields.Assignee; a != nil {
			out.Assignee = a.DisplayName
		}
		if t.Reporter != nil {
			out.Reporter = t.Reporter.Email
		}
		if inspectDescription {
			out.Description = t.Description
		}

		tally, err := history.Check(ctx, client, issueKey, []string{appConfig.ServiceQueue, appConfig.CurationQueue})
		switch {
		case err != nil:
			out.History = "unknown: " + err.Error()
		case tally.Max() > 1:
			out.History = "already routed"
			out.QueueVisits = tally
		default:
			out.History = "not routed"
			out.QueueVisits = tally
		}

		if id, ok := dataset.Extract(t.TextFields()); ok {
			out.Dataset = id.String()
			owner, found, err := newDirectory().Resolve(ctx, id)
			if err != nil {
				return err
			}
			if found {
				out.Owner = owner
				out.CatchAll = appConfig.CatchAll != "" && strings.EqualFold(owner, appConfig.CatchAll)
			}
		}

		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
		return enc.Close()
	},
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectDescription, "description", false, "include the flattened description")
	rootCmd.AddCommand(inspectCmd)
}
