package cmd

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/gdex-tools/datahelp-router/internal/config"
	"github.com/gdex-tools/datahelp-router/internal/dataset"
	"github.com/gdex-tools/datahelp-router/internal/router"
	"github.com/gdex-tools/datahelp-router/internal/ticket"
)

type stubTracker struct {
	mu       sync.Mutex
	queues   map[string][]ticket.Ticket
	searches []ticket.QueueFilter
	assigned map[string]string
}

func (s *stubTracker) SearchUnresolved(_ context.Context, f ticket.QueueFilter, _ int) ([]ticket.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searches = append(s.searches, f)
	return s.queues[f.Assignee], nil
}

func (s *stubTracker) GetChangelog(context.Context, string) ([]ticket.ChangeEvent, error) {
	return nil, nil
}

func (s *stubTracker) SetAssignee(_ context.Context, key, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assigned[key] = email
	return nil
}

func (s *stubTracker) AddComment(context.Context, string, string, ticket.Visibility) error {
	return nil
}

type stubDirectory map[dataset.ID]string

func (d stubDirectory) Resolve(_ context.Context, id dataset.ID) (string, bool, error) {
	owner, ok := d[id]
	return owner, ok, nil
}

// useConfig points the command globals at a fresh config file for one test.
func useConfig(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "router.yaml")
	require.NoError(t, os.WriteFile(path, []byte("email: bot@example.org\n"), 0o600))

	prevFile, prevCfg, prevResume := cfgFile, appConfig, watchResume
	t.Cleanup(func() { cfgFile, appConfig, watchResume = prevFile, prevCfg, prevResume })

	cfgFile = path
	appConfig = config.Config{
		Project:       "HELP",
		ServiceQueue:  "HELP-SERVICES",
		CurationQueue: "HELP-CURATION",
		Workers:       1,
	}
	return path
}

func lastChecked(t *testing.T, path string) any {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	doc := map[string]any{}
	require.NoError(t, yaml.Unmarshal(data, &doc))
	assert.Equal(t, "bot@example.org", doc["email"])
	return doc["last_checked_ticket"]
}

func TestRecordWatermark(t *testing.T) {
	path := useConfig(t)

	recordWatermark(router.Report{Decisions: []router.Decision{
		{TicketKey: "HELP-7", Outcome: router.OutcomeRouted},
		{TicketKey: "HELP-8", Outcome: router.OutcomeNoID},
		{TicketKey: "HELP-9", Outcome: router.OutcomeFailed},
	}})
	assert.Equal(t, "HELP-8", lastChecked(t, path))
	assert.Equal(t, "HELP-8", appConfig.LastCheckedTicket)

	// A pass that failed on its first ticket leaves the saved key alone.
	recordWatermark(router.Report{Decisions: []router.Decision{
		{TicketKey: "HELP-10", Outcome: router.OutcomeFailed},
	}})
	assert.Equal(t, "HELP-8", lastChecked(t, path))
}

func TestWatchPassReusesClientsAndResumes(t *testing.T) {
	path := useConfig(t)
	watchResume = true

	tr := &stubTracker{
		queues: map[string][]ticket.Ticket{
			"HELP-SERVICES": {{Key: "HELP-21", Summary: "about d123456"}},
		},
		assigned: map[string]string{},
	}
	dir := stubDirectory{"d123456": "owner@example.org"}

	watchPass(context.Background(), tr, dir)
	watchPass(context.Background(), tr, dir)

	require.Len(t, tr.searches, 4)
	assert.Equal(t, "", tr.searches[0].AfterKey)
	assert.Equal(t, "HELP-21", tr.searches[2].AfterKey)
	assert.Equal(t, "HELP-CURATION", tr.searches[3].Assignee)
	assert.Equal(t, "owner@example.org", tr.assigned["HELP-21"])
	assert.Equal(t, "HELP-21", lastChecked(t, path))
}

func TestPrintReport(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	printReport(&buf, router.Report{
		Queue:   router.QueueService,
		DryRun:  true,
		Fetched: 2,
		Routed:  1,
		Failed:  1,
		Decisions: []router.Decision{
			{TicketKey: "HELP-1", Dataset: "d000001", Owner: "datahelp@example.org", Assignee: "a@example.org", Fallback: true, Outcome: router.OutcomeRouted},
			{TicketKey: "HELP-2", Outcome: router.OutcomeFailed, Reason: "assignee 400"},
		},
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "(dry run - no changes applied)", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "service queue: fetched 2, routed 1"))
	assert.Contains(t, lines[2], "HELP-1")
	assert.Contains(t, lines[2], "dataset d000001, assignee a@example.org, fallback for datahelp@example.org")
	assert.Contains(t, lines[3], "failed (assignee 400)")
}

func TestPromptNormalizesSlot(t *testing.T) {
	t.Parallel()

	reader := bufio.NewReader(strings.NewReader("Staging\n\n"))
	assert.Equal(t, config.SlotStaging, config.NormalizeSlot(prompt(reader, "Slot", config.SlotProduction)))
	assert.Equal(t, config.SlotProduction, prompt(reader, "Slot", config.SlotProduction), "blank keeps default")
}
