package integrations

import (
	"context"
	"fmt"
	"strings"

	jira "github.com/andygrunwald/go-jira"
)

const jiraPageSize = 100

// jqlString escapes text for use inside a double-quoted JQL literal.
var jqlString = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

type JiraConfig struct {
	BaseURL  string
	Email    string
	APIToken string
}

func (c JiraConfig) Enabled() bool {
	return c.BaseURL != "" && c.Email != "" && c.APIToken != ""
}

// JiraTracker counts a project's issues by status category.
type JiraTracker struct {
	client *jira.Client
}

func NewJiraTracker(config JiraConfig) (*JiraTracker, error) {
	transport := jira.BasicAuthTransport{
		Username: config.Email,
		Password: config.APIToken,
	}

	client, err := jira.NewClient(transport.Client(), config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create jira client: %w", err)
	}
	return &JiraTracker{client: client}, nil
}

func (t *JiraTracker) IssueCounts(ctx context.Context, projectKey string) (map[string]int, error) {
	counts := map[string]int{IssueTodo: 0, IssueInProgress: 0, IssueDone: 0}

	jql := fmt.Sprintf(`project = "%s"`, jqlString.Replace(projectKey))
	opts := &jira.SearchOptions{Fields: []string{"status"}, MaxResults: jiraPageSize}

	err := t.client.Issue.SearchPagesWithContext(ctx, jql, opts, func(issue jira.Issue) error {
		counts[statusCategory(issue)]++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("jira search for %s failed: %w", projectKey, err)
	}
	return counts, nil
}

// statusCategory folds Jira's new/indeterminate/done categories onto task
// statuses. Anything unrecognised counts as todo.
func statusCategory(issue jira.Issue) string {
	if issue.Fields == nil || issue.Fields.Status == nil {
		return IssueTodo
	}
	switch issue.Fields.Status.StatusCategory.Key {
	case "done":
		return IssueDone
	case "indeterminate":
		return IssueInProgress
	default:
		return IssueTodo
	}
}
