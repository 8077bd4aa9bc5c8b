package integrations

import "context"

// StaticTracker returns fixed demo counts.
type StaticTracker struct{}

func (StaticTracker) IssueCounts(context.Context, string) (map[string]int, error) {
	return map[string]int{IssueTodo: 10, IssueInProgress: 5, IssueDone: 7}, nil
}

// StaticPulls returns fixed demo age buckets.
type StaticPulls struct{}

func (StaticPulls) PullRequestAges(context.Context, string, string) (map[string]int, error) {
	return map[string]int{AgeUnderDay: 2, AgeOneToThree: 4, AgeOverThree: 3}, nil
}
