package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"tasktalk/internal/api"
	"tasktalk/internal/assistant"
	"tasktalk/internal/auth"
	"tasktalk/internal/cache"
	"tasktalk/internal/config"
	"tasktalk/internal/db"
	"tasktalk/internal/model"
	"tasktalk/pkg/audit"
	"tasktalk/pkg/task"
	"tasktalk/pkg/user"
)

type stores struct {
	users  user.Store
	tasks  task.Store
	events audit.Log
	close  func()
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load(os.Getenv("TASKTALK_CONFIG"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	s, err := openStores(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer s.close()

	// Ensure tables exist; todos and events reference users
	if err := s.users.EnsureTable(ctx); err != nil {
		log.Fatalf("ensure users table: %v", err)
	}
	if err := s.tasks.EnsureTable(ctx); err != nil {
		log.Fatalf("ensure todos table: %v", err)
	}
	if err := s.events.EnsureTable(ctx); err != nil {
		log.Fatalf("ensure audit table: %v", err)
	}

	client := newModelClient(cfg.Model)
	bus := audit.NewBus(s.events)
	taskCache := cache.New(cfg.Cache.TTL)

	interp := assistant.NewInterpreter(client, assistant.MustSchema(), cfg.Model.MaxOperations, cfg.Model.Timeout)
	svc := assistant.NewService(s.tasks, interp, assistant.NewValidator(nil), bus, taskCache)
	suggester := assistant.NewSuggester(client, assistant.MustSchema(), s.tasks, cfg.Model.Timeout)

	server := api.New(api.Options{
		Tasks:        s.tasks,
		Accounts:     auth.NewAccounts(s.users, cfg.Auth.BcryptCost),
		Tokens:       auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		Assistant:    svc,
		Suggester:    suggester,
		Events:       bus,
		Cache:        taskCache,
		SecureCookie: cfg.Auth.SecureCookie,
		ModelName:    client.Name(),
	})

	log.Printf("tasktalk listening on :%s (store=%s, model=%s)", cfg.Port, cfg.Database.Driver, client.Name())
	if err := http.ListenAndServe(":"+cfg.Port, server); err != nil {
		log.Fatalf("listen: %v", err)
	}
}

func openStores(ctx context.Context, cfg config.Database) (*stores, error) {
	if cfg.Driver == config.DriverPostgres {
		pool, err := db.Connect(ctx, cfg.URL)
		if err != nil {
			return nil, err
		}
		return &stores{
			users:  user.NewPgStore(pool),
			tasks:  task.NewPgStore(pool),
			events: audit.NewPgStore(pool),
			close:  pool.Close,
		}, nil
	}

	sqlDB, err := db.OpenSQLite(cfg.SQLitePath)
	if err != nil {
		return nil, err
	}
	return &stores{
		users:  user.NewSQLiteStore(sqlDB),
		tasks:  task.NewSQLiteStore(sqlDB),
		events: audit.NewSQLiteStore(sqlDB),
		close:  func() { sqlDB.Close() },
	}, nil
}

func newModelClient(cfg config.Model) model.Client {
	if cfg.Provider == config.ProviderClaudeCLI {
		if !model.ClaudeAvailable() {
			log.Printf("model: claude not found in PATH; assistant requests will fail")
		}
		return &model.ClaudeCLI{Timeout: cfg.Timeout}
	}
	return model.NewOpenAI(model.OpenAIConfig{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Model:   cfg.Name,
		Timeout: cfg.Timeout,
	})
}
