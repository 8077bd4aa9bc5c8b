// Package integrations reads project signals from external trackers. Each
// source has a static stand-in used when no credentials are configured.
package integrations

import (
	"context"
	"time"
)

// Issue count keys, matching task statuses.
const (
	IssueTodo       = "todo"
	IssueInProgress = "in_progress"
	IssueDone       = "done"
)

// Pull request age buckets.
const (
	AgeUnderDay   = "<24h"
	AgeOneToThree = "1-3d"
	AgeOverThree  = ">3d"
)

type IssueTracker interface {
	IssueCounts(ctx context.Context, projectKey string) (map[string]int, error)
}

type PullRequestSource interface {
	PullRequestAges(ctx context.Context, owner, repo string) (map[string]int, error)
}

// ageBucket places an open pull request by how long it has been open.
func ageBucket(age time.Duration) string {
	switch {
	case age < 24*time.Hour:
		return AgeUnderDay
	case age <= 72*time.Hour:
		return AgeOneToThree
	default:
		return AgeOverThree
	}
}

// BreakerTracker guards an IssueTracker with a circuit breaker.
type BreakerTracker struct {
	inner   IssueTracker
	breaker *CircuitBreaker
}

func NewBreakerTracker(inner IssueTracker, breaker *CircuitBreaker) *BreakerTracker {
	return &BreakerTracker{inner: inner, breaker: breaker}
}

func (t *BreakerTracker) IssueCounts(ctx context.Context, projectKey string) (map[string]int, error) {
	var counts map[string]int
	err := t.breaker.Execute(func() error {
		var err error
		counts, err = t.inner.IssueCounts(ctx, projectKey)
		return err
	})
	return counts, err
}

func (t *BreakerTracker) Breaker() *CircuitBreaker {
	return t.breaker
}

// BreakerPulls guards a PullRequestSource with a circuit breaker.
type BreakerPulls struct {
	inner   PullRequestSource
	breaker *CircuitBreaker
}

func NewBreakerPulls(inner PullRequestSource, breaker *CircuitBreaker) *BreakerPulls {
	return &BreakerPulls{inner: inner, breaker: breaker}
}

func (p *BreakerPulls) PullRequestAges(ctx context.Context, owner, repo string) (map[string]int, error) {
	var ages map[string]int
	err := p.breaker.Execute(func() error {
		var err error
		ages, err = p.inner.PullRequestAges(ctx, owner, repo)
		return err
	})
	return ages, err
}

func (p *BreakerPulls) Breaker() *CircuitBreaker {
	return p.breaker
}
