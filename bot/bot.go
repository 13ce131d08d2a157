package bot

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"coolbot/command"
	"coolbot/database"
	"coolbot/health"
	"coolbot/lifecycle"
	"coolbot/models"
	"coolbot/moderation"
	"coolbot/notify"
	"coolbot/platform"
	"coolbot/syncjobs"
	"coolbot/utils"
	"coolbot/views"

	"github.com/bwmarrin/discordgo"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
)

// App is the long-lived application context. It owns the session, the
// store and every component built on top of them.
type App struct {
	Config   *models.Config
	Session  *discordgo.Session
	Platform platform.Platform
	Store    *database.Store
	Auth     *utils.Auth

	Lifecycle    *lifecycle.Manager
	Moderator    *moderation.Moderator
	Docs         *syncjobs.DocsSyncer
	Contributors *syncjobs.ContributorSyncer
	Verifier     *syncjobs.Verifier
	Publisher    *notify.Publisher
	Listener     *notify.Listener
	Health       *health.Server

	cron      *cron.Cron
	readyOnce sync.Once
}

// Open creates the Discord session for cfg and wires the application
// around it. The session is not connected yet.
func Open(cfg *models.Config, store *database.Store) (*App, error) {
	if cfg.Discord.Token == "" {
		return nil, fmt.Errorf("no bot token provided")
	}

	dg, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}

	dg.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsGuilds | discordgo.IntentsGuildMembers | discordgo.IntentsMessageContent
	dg.StateEnabled = true
	utils.InitLogger(dg, cfg.Channels.LogThread)

	return New(cfg, store, dg, platform.NewDiscord(dg)), nil
}

// New wires the components. session may be nil when p does not need it.
func New(cfg *models.Config, store *database.Store, session *discordgo.Session, p platform.Platform) *App {
	client := &http.Client{Timeout: 30 * time.Second}
	auth := utils.NewAuth(cfg.Roles)
	gh := syncjobs.NewGitHub(client, cfg.Sync.GithubAPI)

	a := &App{
		Config:   cfg,
		Session:  session,
		Platform: p,
		Store:    store,
		Auth:     auth,
		Lifecycle: lifecycle.NewManager(lifecycle.Options{
			Platform:       p,
			Store:          store,
			Tags:           cfg.Tags,
			SupportForum:   cfg.Channels.Support,
			CommunityForum: cfg.Channels.CommunitySupport,
			TeamChannel:    cfg.Channels.TeamAlert,
			TeamRole:       cfg.Roles.TeamAlert,
			GeneralChannel: cfg.Channels.General,
			PostLogThread:  cfg.Channels.PostLogThread,
			Auth:           auth,
			Registry:       views.NewRegistry(),
		}),
		Moderator: moderation.New(moderation.Options{
			Platform:      p,
			Rules:         store,
			Auth:          auth,
			GuildID:       cfg.Discord.GuildID,
			ReportChannel: cfg.Channels.AutomodReport,
			ReportRole:    cfg.Roles.ReportsPing,
		}),
		Docs:         syncjobs.NewDocsSyncer(client, cfg.Sync.DocsURL, store),
		Contributors: syncjobs.NewContributorSyncer(gh, cfg.Sync.GithubRepos, store),
		Verifier:     syncjobs.NewVerifier(gh, store, nil),
		Publisher:    notify.NewPublisher(client, cfg.Ntfy.BaseURL, cfg.Ntfy.Topic, cfg.Ntfy.ResponseTopic),
		Health:       health.New(cfg.Health.Addr),
	}
	a.Listener = notify.NewListener(cfg.Ntfy.BaseURL, cfg.Ntfy.ResponseTopic, cfg.Ntfy.WebhookURL, client, a.PageLog)
	return a
}

// PageLog writes a line to stdout and to the page actions thread.
func (a *App) PageLog(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	log.Printf("[page] %s", line)
	if a.Config.Channels.PageActionsThread == "" {
		return
	}
	if _, err := a.Platform.Send(context.Background(), a.Config.Channels.PageActionsThread, &discordgo.MessageSend{Content: line}); err != nil {
		log.Printf("Failed to send page log: %v", err)
	}
}

// OnReady runs once the gateway session is up. Controls and closures are
// restored on the first Ready only; later Readys after a reconnect just
// flip the health status.
func (a *App) OnReady(ctx context.Context, username string) {
	a.readyOnce.Do(func() {
		a.restore(ctx)
		if a.Config.Channels.LogThread != "" {
			now := time.Now().Unix()
			if _, err := a.Platform.Send(ctx, a.Config.Channels.LogThread, &discordgo.MessageSend{
				Content: fmt.Sprintf("[ <t:%d:T> (<t:%d:R>) ] %s connected to Discord!", now, now, username),
			}); err != nil {
				log.Printf("Failed to send startup log: %v", err)
			}
		}
	})
	a.Health.SetServing()
}

// OnDisconnect marks the bot unhealthy until the next Ready.
func (a *App) OnDisconnect() {
	a.Health.SetNotServing()
}

func (a *App) restore(ctx context.Context) {
	rows, err := a.Store.Views(ctx)
	if err != nil {
		utils.Error("Bot", "Rehydrate", err.Error())
	} else {
		rep := views.Rehydrate(ctx, rows, a.Platform, a.Lifecycle.Registry())
		utils.Info("Bot", "Rehydrate", rep.Summary())
	}

	restarted, err := a.Lifecycle.Closer().Initialize(ctx, a.Platform)
	if err != nil {
		utils.Error("Bot", "InitializeClosures", err.Error())
	} else {
		log.Printf("Restarted %d scheduled closures", restarted)
	}

	seeded, err := a.Moderator.Seed(ctx, a.Config.Rules)
	if err != nil {
		utils.Error("Bot", "SeedRules", err.Error())
	} else if seeded > 0 {
		utils.Info("Bot", "SeedRules", fmt.Sprintf("seeded %d rules", seeded))
	}
}

// Start registers the event handlers, opens the session and registers the
// guild's slash commands.
func (a *App) Start(ctx context.Context, registerHandlers func(*App)) error {
	registerHandlers(a)

	err := a.Session.Open()
	if err != nil {
		return fmt.Errorf("error opening connection: %w", err)
	}

	if _, err := a.Session.ApplicationCommandBulkOverwrite(a.Session.State.User.ID, a.Config.Discord.GuildID, command.GetCommandDefinitions()); err != nil {
		log.Printf("Cannot register commands: %v", err)
	}

	return a.startScheduler(ctx)
}

// Stop closes listeners, timers and the session.
func (a *App) Stop() {
	a.stopScheduler()
	if n := a.Listener.CloseAll(); n > 0 {
		log.Printf("Closed %d page listeners", n)
	}
	a.Listener.Wait()
	a.Lifecycle.Closer().Stop()
	a.Health.SetNotServing()
	if a.Session != nil {
		a.Session.Close()
	}
	fmt.Println("Bot stopped gracefully.")
}

// Run starts the bot and the health server and blocks until ctx is done.
func (a *App) Run(ctx context.Context, registerHandlers func(*App)) error {
	g, ctx := errgroup.WithContext(ctx)
	if a.Config.Health.Addr != "" {
		g.Go(func() error { return a.Health.Serve(ctx) })
	}
	g.Go(func() error {
		if err := a.Start(ctx, registerHandlers); err != nil {
			return err
		}
		fmt.Println("Bot is now running. Press CTRL-C to exit.")
		<-ctx.Done()
		a.Stop()
		return nil
	})
	return g.Wait()
}
