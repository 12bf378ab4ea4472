package cli

import (
	"context"
	"net/http"
	"time"

	"act-academy/internal/app"
	"act-academy/internal/config"
	"act-academy/internal/domain"
	"act-academy/internal/infra/api"
	"act-academy/internal/infra/memory"
	pgstore "act-academy/internal/infra/postgres"
	infraredis "act-academy/internal/infra/redis"
	"act-academy/internal/infra/sqlite"
	"act-academy/internal/logging"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
)

// deps holds everything a command needs; close releases whatever was opened.
type deps struct {
	cfg      config.Config
	user     domain.User
	client   *api.Client
	service  *app.QuizService
	redis    *redis.Client
	sessions app.SessionRepository
	closers  []func()
}

func (d *deps) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

func buildDeps(ctx context.Context, cfg config.Config) (*deps, error) {
	d := &deps{
		cfg:  cfg,
		user: domain.User{ID: cfg.User.ID, Name: cfg.User.Name},
	}
	if d.user.ID == "" {
		d.user.ID = "guest"
	}
	if d.user.Name == "" {
		d.user.Name = "Guest"
	}

	timeout := config.TTLDuration(cfg.API.Timeout, 10*time.Second)
	d.client = api.NewClient(cfg.API.BaseURL, &http.Client{Timeout: timeout},
		api.WithToken(cfg.API.Token),
		api.WithMaintenanceHook(func() {
			logging.Error("backend reported maintenance (503); try again later")
		}),
	)

	if cfg.Redis.Addr != "" {
		d.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		d.closers = append(d.closers, func() { _ = d.redis.Close() })
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	draftTTL := config.TTLDuration(cfg.Drafts.TTL, 24*time.Hour)
	sessionTTL := config.TTLDuration(cfg.Redis.TTL, 2*time.Hour)

	var (
		quizRepo app.QuizRepository
		drafts   app.DraftStore
	)
	if d.redis != nil {
		quizRepo = infraredis.NewQuizRepository(d.redis, d.client, quizTTL)
		drafts = infraredis.NewDraftStore(d.redis, draftTTL)
		d.sessions = infraredis.NewSessionStore(d.redis, sessionTTL)
	} else {
		quizRepo = memory.NewQuizRepository(d.client, quizTTL)
		drafts = memory.NewDraftStore(draftTTL)
		d.sessions = memory.NewSessionStore()
	}

	history, err := d.openHistory(ctx, cfg)
	if err != nil {
		d.close()
		return nil, err
	}

	d.service = app.NewQuizService(quizRepo, d.client, drafts, history)
	d.service.SetTickInterval(config.TTLDuration(cfg.Quiz.TickInterval, time.Second))
	d.service.UseSessions(d.sessions)
	return d, nil
}

// openHistory prefers Postgres, then SQLite, then process memory.
func (d *deps) openHistory(ctx context.Context, cfg config.Config) (app.AttemptHistory, error) {
	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		d.closers = append(d.closers, pool.Close)
		logging.Startup("attempt history in postgres")
		return pgstore.NewAttemptStore(pool), nil
	}
	if cfg.SQLite.Path != "" {
		store, err := sqlite.NewAttemptStore(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		d.closers = append(d.closers, func() { _ = store.Close() })
		logging.Startup("attempt history in sqlite at %s", cfg.SQLite.Path)
		return store, nil
	}
	return memory.NewAttemptHistory(), nil
}

func loadDeps(ctx context.Context, configPath string) (*deps, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return buildDeps(ctx, cfg)
}
