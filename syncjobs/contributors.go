package syncjobs

import (
	"context"
	"fmt"
	"strings"

	"coolbot/models"
	"coolbot/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ContributorStore accumulates contributor/repository pairs.
type ContributorStore interface {
	AddContributor(ctx context.Context, login, repo string) (bool, error)
}

// ContributorSyncer walks the contributor list of every configured
// repository.
type ContributorSyncer struct {
	gh    *GitHub
	repos []string
	store ContributorStore
	runs  metric.Int64Counter
}

// NewContributorSyncer creates a syncer for repos ("owner/name").
func NewContributorSyncer(gh *GitHub, repos []string, store ContributorStore) *ContributorSyncer {
	return &ContributorSyncer{
		gh:    gh,
		repos: repos,
		store: store,
		runs:  telemetry.Counter("coolbot/sync", "sync.runs", "External sync runs"),
	}
}

// Sync pages through each repository until an empty page. A failing
// repository is recorded and skipped; only store errors abort the run.
func (c *ContributorSyncer) Sync(ctx context.Context) (models.ContributorSyncStatus, error) {
	ctx, span := telemetry.Tracer("coolbot/sync").Start(ctx, "sync.contributors")
	defer span.End()

	var status models.ContributorSyncStatus
	for _, repo := range c.repos {
		repo = strings.TrimSpace(repo)
		if repo == "" {
			continue
		}
		status.Repos++
		if err := c.syncRepo(ctx, repo, &status); err != nil {
			c.runs.Add(ctx, 1, metric.WithAttributes(attribute.String("job", "contributors"), attribute.String("outcome", "error")))
			return status, err
		}
	}
	span.SetAttributes(attribute.Int("contributors.seen", status.Seen), attribute.Int("contributors.inserted", status.Inserted))
	c.runs.Add(ctx, 1, metric.WithAttributes(attribute.String("job", "contributors"), attribute.String("outcome", "ok")))
	return status, nil
}

func (c *ContributorSyncer) syncRepo(ctx context.Context, repo string, status *models.ContributorSyncStatus) error {
	for page := 1; ; page++ {
		logins, err := c.gh.Contributors(ctx, repo, page)
		if err != nil {
			status.RepoErrors = append(status.RepoErrors, fmt.Sprintf("%s: %v", repo, err))
			return nil
		}
		if len(logins) == 0 {
			return nil
		}
		status.Pages++
		for _, login := range logins {
			inserted, err := c.store.AddContributor(ctx, login, repo)
			if err != nil {
				return err
			}
			status.Seen++
			if inserted {
				status.Inserted++
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}
