// Package app wires the content core: database, repos, signal hub, caches,
// modulestore backends, overview projection and the block runtime. main
// builds an App and hands it to whatever surface hosts it.
package app

import (
	"fmt"
	"os"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/blockstore/internal/block"
	"github.com/yungbote/blockstore/internal/block/basic"
	"github.com/yungbote/blockstore/internal/cache"
	"github.com/yungbote/blockstore/internal/courseio"
	"github.com/yungbote/blockstore/internal/data/db"
	"github.com/yungbote/blockstore/internal/data/repos"
	"github.com/yungbote/blockstore/internal/overview"
	"github.com/yungbote/blockstore/internal/platform/logger"
	"github.com/yungbote/blockstore/internal/platform/sampling"
	"github.com/yungbote/blockstore/internal/pubsub"
	"github.com/yungbote/blockstore/internal/runtime"
	"github.com/yungbote/blockstore/internal/store"
	"github.com/yungbote/blockstore/internal/store/split"
	"github.com/yungbote/blockstore/internal/store/xmlstore"
)

type Repos struct {
	Definitions    repos.DefinitionRepo
	Structures     repos.StructureRepo
	ActiveVersions repos.ActiveVersionsRepo

	LearnerStates      repos.LearnerStateRepo
	LearnerPreferences repos.LearnerPreferenceRepo
	LearnerInfos       repos.LearnerInfoRepo

	Overviews repos.OverviewRepo
}

type App struct {
	Log *logger.Logger
	Cfg Config
	DB  *gorm.DB

	Hub      *pubsub.Hub
	Registry *block.Registry
	Repos    Repos

	Store    *store.Router
	Porter   *courseio.Porter
	Overview *overview.Service
	Runtime  *runtime.Env
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	cfg := LoadConfig(log)

	pg, err := db.NewPostgresService(log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	theDB := pg.DB()

	rs := Repos{
		Definitions:        repos.NewDefinitionRepo(theDB, log),
		Structures:         repos.NewStructureRepo(theDB, log),
		ActiveVersions:     repos.NewActiveVersionsRepo(theDB, log),
		LearnerStates:      repos.NewLearnerStateRepo(theDB, log),
		LearnerPreferences: repos.NewLearnerPreferenceRepo(theDB, log),
		LearnerInfos:       repos.NewLearnerInfoRepo(theDB, log),
		Overviews:          repos.NewOverviewRepo(theDB, log),
	}

	registry := block.NewRegistry()
	if err := basic.RegisterAll(registry); err != nil {
		return nil, fmt.Errorf("register block types: %w", err)
	}

	var rdb *goredis.Client
	if cfg.RedisAddr != "" {
		rdb = goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	}
	structCache := cache.NewStructureCache(log, rdb, cfg.StructureCacheTTL())

	hub := pubsub.NewHub(log)

	splitStore := split.New(
		rs.Definitions, rs.Structures, rs.ActiveVersions, rs.LearnerStates,
		registry, hub, structCache, log,
	)

	var xmlBackend store.XMLBackend
	if cfg.XMLCourseRoot != "" {
		xs := xmlstore.New(registry, log)
		if err := xs.LoadRoot(cfg.XMLCourseRoot); err != nil {
			return nil, fmt.Errorf("load xml courses: %w", err)
		}
		xmlBackend = xs
	}
	router := store.NewRouter(splitStore, xmlBackend, log)

	ov := overview.NewService(router, rs.Overviews, log)
	// Order matters: the overview invalidator must run before the cache
	// evictor so its rebuilds key off the new published version.
	ov.Register(hub)
	hub.Subscribe(pubsub.CoursePublished, "structure-cache-evict", structCache.EvictCourse)
	hub.Subscribe(pubsub.CourseDeleted, "structure-cache-evict", structCache.EvictCourse)

	sampler := sampling.New(cfg.EventSampleWindow(), cfg.EventSampleBurst, cfg.EventSampleRate)
	rtEnv := runtime.NewEnv(
		router, registry,
		rs.LearnerStates, rs.LearnerPreferences, rs.LearnerInfos,
		sampler, []byte(cfg.HandlerSecret),
		map[string]interface{}{}, log,
	)

	porter := courseio.NewPorter(router, registry, log)

	return &App{
		Log:      log,
		Cfg:      cfg,
		DB:       theDB,
		Hub:      hub,
		Registry: registry,
		Repos:    rs,
		Store:    router,
		Porter:   porter,
		Overview: ov,
		Runtime:  rtEnv,
	}, nil
}
