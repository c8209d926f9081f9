package jira

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/gdex-tools/datahelp-router/internal/adf"
	"github.com/gdex-tools/datahelp-router/internal/config"
	"github.com/gdex-tools/datahelp-router/internal/ticket"
)

// MaxQueuePage caps how many tickets one queue search returns.
const MaxQueuePage = 50

const changelogPageSize = 100

var (
	// ErrIncompleteChangelog means Jira reported more changelog entries than it returned.
	ErrIncompleteChangelog = errors.New("incomplete changelog")
	// ErrUserNotFound means no Jira account matches an email address.
	ErrUserNotFound = errors.New("no Jira user for address")
)

// APIError is a non-2xx response from Jira.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("JIRA API returned %d: %s", e.StatusCode, e.Body)
}

// Client is a JIRA REST API v3 client.
type Client struct {
	baseURL    string
	authHeader string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *zap.Logger
}

// NewClient creates a new JIRA client for the active credential slot of cfg.
// With an email the token is sent as basic auth (Jira Cloud API token);
// without one it is sent as a bearer personal access token.
func NewClient(cfg config.Config, log *zap.Logger) *Client {
	creds := cfg.Credentials()

	authHeader := "Bearer " + creds.Token
	if creds.Email != "" {
		authHeader = "Basic " + base64.StdEncoding.EncodeToString([]byte(creds.Email+":"+creds.Token))
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		baseURL:    strings.TrimRight(creds.URL, "/"),
		authHeader: authHeader,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    newLimiter(cfg.RateLimit),
		log:        log.Named("jira"),
	}
}

func newLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// QueueJQL builds the search for unresolved tickets in a team queue,
// oldest key first.
func QueueJQL(f ticket.QueueFilter) string {
	jql := fmt.Sprintf(`project = %s AND assignee = %s AND resolution = Unresolved`,
		quote(f.Project), quote(f.Assignee))
	if f.AfterKey != "" {
		jql += fmt.Sprintf(" AND key > %s", quote(f.AfterKey))
	}
	return jql + " ORDER BY key ASC"
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

// SearchUnresolved returns up to limit unresolved tickets in the queue
// selected by f, in ascending key order. limit is capped at MaxQueuePage.
func (c *Client) SearchUnresolved(ctx context.Context, f ticket.QueueFilter, limit int) ([]ticket.Ticket, error) {
	if limit <= 0 || limit > MaxQueuePage {
		limit = MaxQueuePage
	}

	query := url.Values{}
	query.Set("jql", QueueJQL(f))
	query.Set("maxResults", strconv.Itoa(limit))
	query.Set("fields", "summary,description,reporter,created")

	var result SearchResponse
	if err := c.do(ctx, http.MethodGet, "/rest/api/3/search/jql", query, nil, &result); err != nil {
		return nil, fmt.Errorf("searching queue %s: %w", f.Assignee, err)
	}

	tickets := make([]ticket.Ticket, 0, len(result.Issues))
	for _, issue := range result.Issues {
		tickets = append(tickets, ToTicket(issue))
	}
	return tickets, nil
}

// GetIssue fetches a single issue by key.
func (c *Client) GetIssue(ctx context.Context, key string) (*Issue, error) {
	query := url.Values{}
	query.Set("fields", "summary,status,assignee,reporter,description,created,updated")

	var issue Issue
	if err := c.do(ctx, http.MethodGet, "/rest/api/3/issue/"+url.PathEscape(key), query, nil, &issue); err != nil {
		return nil, fmt.Errorf("fetching issue %s: %w", key, err)
	}
	return &issue, nil
}

// GetTicket fetches a single issue as a routing snapshot.
func (c *Client) GetTicket(ctx context.Context, key string) (ticket.Ticket, error) {
	issue, err := c.GetIssue(ctx, key)
	if err != nil {
		return ticket.Ticket{}, err
	}
	return ToTicket(*issue), nil
}

// GetChangelog returns every changelog entry of an issue, oldest first.
func (c *Client) GetChangelog(ctx context.Context, key string) ([]ticket.ChangeEvent, error) {
	path := "/rest/api/3/issue/" + url.PathEscape(key) + "/changelog"

	var (
		events []ticket.ChangeEvent
		total  int
	)
	startAt := 0
	for {
		query := url.Values{}
		query.Set("startAt", strconv.Itoa(startAt))
		query.Set("maxResults", strconv.Itoa(changelogPageSize))

		var page ChangelogPage
		if err := c.do(ctx, http.MethodGet, path, query, nil, &page); err != nil {
			return nil, fmt.Errorf("fetching changelog of %s: %w", key, err)
		}
		total = page.Total
		for _, h := range page.Values {
			events = append(events, toChangeEvent(h))
		}
		if page.IsLast || len(page.Values) == 0 || len(events) >= total {
			break
		}
		startAt += len(page.Values)
	}

	if total > len(events) {
		return nil, fmt.Errorf("%w: %s has %d entries, got %d", ErrIncompleteChangelog, key, total, len(events))
	}
	return events, nil
}

// FindAccountID resolves an email address to a Jira account id.
func (c *Client) FindAccountID(ctx context.Context, email string) (string, error) {
	query := url.Values{}
	query.Set("query", email)

	var users []User
	if err := c.do(ctx, http.MethodGet, "/rest/api/3/user/search", query, nil, &users); err != nil {
		return "", fmt.Errorf("looking up user %s: %w", email, err)
	}

	for _, u := range users {
		if strings.EqualFold(u.EmailAddress, email) && u.AccountID != "" {
			return u.AccountID, nil
		}
	}
	// Email visibility settings can hide addresses; a single hit is still unambiguous.
	if len(users) == 1 && users[0].EmailAddress == "" && users[0].AccountID != "" {
		return users[0].AccountID, nil
	}
	return "", fmt.Errorf("%w %s", ErrUserNotFound, email)
}

// SetAssignee assigns the issue to the Jira user with the given email.
func (c *Client) SetAssignee(ctx context.Context, key, email string) error {
	accountID, err := c.FindAccountID(ctx, email)
	if err != nil {
		return err
	}

	path := "/rest/api/3/issue/" + url.PathEscape(key) + "/assignee"
	if err := c.do(ctx, http.MethodPut, path, nil, AssigneePayload{AccountID: accountID}, nil); err != nil {
		return fmt.Errorf("assigning %s to %s: %w", key, email, err)
	}
	c.log.Debug("assignee set", zap.String("ticket", key), zap.String("account_id", accountID))
	return nil
}

// AddComment posts text as a comment. Non-public visibility restricts the
// comment to the named project role.
func (c *Client) AddComment(ctx context.Context, key, text string, vis ticket.Visibility) error {
	payload := CommentPayload{Body: adf.FromText(text)}
	if !vis.IsPublic() {
		payload.Visibility = &CommentVisibility{Type: "role", Value: vis.Role}
	}

	path := "/rest/api/3/issue/" + url.PathEscape(key) + "/comment"
	if err := c.do(ctx, http.MethodPost, path, nil, payload, nil); err != nil {
		return fmt.Errorf("commenting on %s: %w", key, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for rate limiter: %w", err)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshalling payload: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}

// ToTicket converts an API issue into a routing snapshot.
func ToTicket(issue Issue) ticket.Ticket {
	t := ticket.Ticket{
		Key:         issue.Key,
		Summary:     issue.Fields.Summary,
		Description: adf.PlainText(issue.Fields.Description),
		Created:     issue.Fields.Created,
	}
	if r := issue.Fields.Reporter; r != nil {
		t.Reporter = &ticket.Person{Name: r.DisplayName, Email: r.EmailAddress}
	}
	return t
}

func toChangeEvent(h History) ticket.ChangeEvent {
	ev := ticket.ChangeEvent{ID: h.ID, Created: h.Created}
	if h.Author != nil {
		ev.Author = h.Author.DisplayName
	}
	for _, it := range h.Items {
		ev.Items = append(ev.Items, ticket.ChangeItem{
			Field:      it.Field,
			FieldID:    it.FieldID,
			From:       it.From,
			FromString: it.FromString,
			To:         it.To,
			ToString:   it.ToString,
		})
	}
	return ev
}
