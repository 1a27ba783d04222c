// Package app wires the store, repositories and services from the config.
// Both the server and the command-line client build on it.
package app

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/YusovID/onetalk-router/internal/config"
	"github.com/YusovID/onetalk-router/internal/repository/sqldb"
	"github.com/YusovID/onetalk-router/internal/service"
)

type App struct {
	Store      *sqldb.Store
	Location   *time.Location
	Phones     *service.PhoneServiceImpl
	Directory  *service.DirectoryServiceImpl
	Rules      *service.RuleServiceImpl
	Dispatcher *service.DispatcherImpl
	Stats      *service.StatsServiceImpl
}

// Open migrates the configured database and opens the store.
func Open(cfg *config.Config, log *slog.Logger) (*sqldb.Store, error) {
	const op = "internal.app.Open"

	url, err := sqldb.MigrationURL(cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := sqldb.Migrate(url, log); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	store, err := sqldb.NewDB(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("storage ready", slog.String("driver", store.Dialect()))

	return store, nil
}

// New builds the services on top of store. publisher may be nil.
func New(cfg *config.Config, store *sqldb.Store, log *slog.Logger, publisher service.EventPublisher) (*App, error) {
	const op = "internal.app.New"

	loc, err := cfg.Routing.Location()
	if err != nil {
		return nil, fmt.Errorf("%s: invalid time zone: %w", op, err)
	}

	db := store.DB()

	phoneRepo := sqldb.NewPhoneRepository(store, log)
	dirRepo := sqldb.NewDirectoryRepository(store, log)
	ruleRepo := sqldb.NewRuleRepository(store, log)
	commRepo := sqldb.NewCommunicationRepository(store, log)
	statsRepo := sqldb.NewStatsRepository(store, log)

	rules := service.NewRuleService(db, log, ruleRepo, loc)
	classifier := service.NewClassifier(db, rules, commRepo, phoneRepo, KeywordRoutes(cfg.Routing.Keywords), cfg.Routing.DefaultDepartment).
		WithNumberPatterns(KeywordRoutes(cfg.Routing.NumberPatterns))

	return &App{
		Store:     store,
		Location:  loc,
		Phones:    service.NewPhoneService(db, log, phoneRepo, dirRepo),
		Directory: service.NewDirectoryService(db, log, dirRepo, phoneRepo),
		Rules:     rules,
		Dispatcher: service.NewDispatcher(db, log, classifier, dirRepo, phoneRepo, commRepo, statsRepo, publisher, service.DispatcherConfig{
			VoicemailNumber: cfg.Routing.VoicemailNumber,
			Location:        loc,
		}),
		Stats: service.NewStatsService(db, log, statsRepo, loc),
	}, nil
}

func KeywordRoutes(mappings []config.KeywordMapping) []service.KeywordRoute {
	routes := make([]service.KeywordRoute, 0, len(mappings))
	for _, m := range mappings {
		routes = append(routes, service.KeywordRoute{Department: m.Department, Words: m.Words})
	}

	return routes
}
