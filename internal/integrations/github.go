package integrations

import (
	"context"
	"fmt"
	"net/url"

	"github.com/google/go-github/v66/github"
	"github.com/jonboulle/clockwork"
)

// GitHubPulls buckets a repository's open pull requests by age.
type GitHubPulls struct {
	client *github.Client
	clock  clockwork.Clock
}

func NewGitHubPulls(token string, clock clockwork.Clock) *GitHubPulls {
	client := github.NewClient(nil)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &GitHubPulls{client: client, clock: clock}
}

// WithBaseURL points the client at a GitHub Enterprise or test server.
func (g *GitHubPulls) WithBaseURL(raw string) (*GitHubPulls, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Path == "" || u.Path[len(u.Path)-1] != '/' {
		u.Path += "/"
	}
	g.client.BaseURL = u
	return g, nil
}

func (g *GitHubPulls) PullRequestAges(ctx context.Context, owner, repo string) (map[string]int, error) {
	ages := map[string]int{AgeUnderDay: 0, AgeOneToThree: 0, AgeOverThree: 0}
	now := g.clock.Now()

	opts := &github.PullRequestListOptions{
		State:       "open",
		ListOptions: github.ListOptions{PerPage: 100},
	}
	for {
		pulls, resp, err := g.client.PullRequests.List(ctx, owner, repo, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list pull requests for %s/%s: %w", owner, repo, err)
		}

		for _, pr := range pulls {
			ages[ageBucket(now.Sub(pr.GetCreatedAt().Time))]++
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return ages, nil
}
