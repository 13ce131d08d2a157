package bot

import (
	"context"
	"fmt"
	"log"

	"coolbot/utils"

	"github.com/robfig/cron/v3"
)

// startScheduler starts the periodic sync jobs and runs a first sync of
// the docs and contributor caches in the background.
func (a *App) startScheduler(ctx context.Context) error {
	log.Println("Initializing scheduler...")
	a.cron = cron.New()
	if err := a.schedule(ctx, a.cron); err != nil {
		return fmt.Errorf("could not set up cron jobs: %w", err)
	}
	a.cron.Start()
	log.Printf("Scheduled %d cron jobs.", len(a.cron.Entries()))

	go func() {
		log.Println("Performing initial sync on startup...")
		a.syncDocs(ctx)
		a.syncContributors(ctx)
	}()
	return nil
}

func (a *App) schedule(ctx context.Context, c *cron.Cron) error {
	jobs := []struct {
		spec string
		run  func(context.Context)
	}{
		{"@hourly", a.syncDocs},
		{"@every 12h", a.syncContributors},
		{"@hourly", a.purgeTokens},
	}
	for _, job := range jobs {
		run := job.run
		if _, err := c.AddFunc(job.spec, func() { run(ctx) }); err != nil {
			return err
		}
	}
	return nil
}

// stopScheduler stops the cron jobs and waits for running ones.
func (a *App) stopScheduler() {
	if a.cron != nil {
		<-a.cron.Stop().Done()
		log.Println("Scheduler stopped.")
	}
}

func (a *App) syncDocs(ctx context.Context) {
	if a.Config.Sync.DocsURL == "" {
		return
	}
	updated, status := a.Docs.Sync(ctx)
	switch {
	case status.Error != "":
		utils.Error("Scheduler", "DocsSync", status.Error)
	case updated:
		utils.Info("Scheduler", "DocsSync", fmt.Sprintf("docs updated, %d entries", status.DocsCount))
	}
}

func (a *App) syncContributors(ctx context.Context) {
	if len(a.Config.Sync.GithubRepos) == 0 {
		return
	}
	status, err := a.Contributors.Sync(ctx)
	if err != nil {
		utils.Error("Scheduler", "ContributorSync", err.Error())
		return
	}
	log.Printf("Contributor sync: %d seen, %d new across %d repos", status.Seen, status.Inserted, status.Repos)
}

func (a *App) purgeTokens(ctx context.Context) {
	n, err := a.Verifier.PurgeExpired(ctx)
	if err != nil {
		utils.Warn("Scheduler", "PurgeTokens", err.Error())
		return
	}
	if n > 0 {
		log.Printf("Purged %d expired verification tokens", n)
	}
}
