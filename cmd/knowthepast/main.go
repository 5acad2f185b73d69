package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"knowthepast/internal/api"
	"knowthepast/pkg/cache"
	"knowthepast/pkg/config"
	"knowthepast/pkg/db"
	"knowthepast/pkg/db/maintenance"
	"knowthepast/pkg/discovery"
	"knowthepast/pkg/geocode"
	"knowthepast/pkg/imagecache"
	"knowthepast/pkg/imagegen"
	"knowthepast/pkg/llm/gemini"
	"knowthepast/pkg/llm/prompts"
	"knowthepast/pkg/logging"
	"knowthepast/pkg/mapview"
	"knowthepast/pkg/probe"
	"knowthepast/pkg/request"
	"knowthepast/pkg/session"
	"knowthepast/pkg/store"
	"knowthepast/pkg/story"
	"knowthepast/pkg/tracker"
	"knowthepast/pkg/version"
)

const (
	defaultConfigPath = "configs/knowthepast.yaml"
	promptsDir        = "configs/prompts"
)

var (
	initConfig = flag.Bool("init-config", false, "Generate default config file and exit")
	configPath = flag.String("config", defaultConfigPath, "Path to the config file")
)

func main() {
	flag.Parse()

	if *initConfig {
		if err := config.GenerateDefault(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Config file generated:", *configPath)
		return
	}

	// A missing .env is fine; credentials may come from the real environment.
	_ = godotenv.Load()

	if err := run(context.Background(), *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

// services is everything run builds before it starts serving.
type services struct {
	store      *store.SQLiteStore
	tracker    *tracker.Tracker
	llm        *gemini.Client
	geocoder   *geocode.Client
	geoCache   *cache.MemoryCache
	imageCache *imagecache.Cache
	session    *session.Manager
	story      *story.Builder
	mapView    *mapview.Binding
	discovery  *discovery.Client
	categories *config.CategoriesConfig
}

func run(ctx context.Context, cfgPath string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	appCfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := appCfg.Validate(); err != nil {
		return err
	}

	cleanupLogs, err := logging.Init(&appCfg.Log, &appCfg.History)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	slog.Info("Know The Past Started", "version", version.Version)

	dbConn, err := db.Init(appCfg.DB.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	st := store.NewSQLiteStore(dbConn)
	defer st.Close()

	maintenance.Run(ctx, dbConn, appCfg.Maps.CacheTTL.Std())
	stopPrune, err := maintenance.Schedule(ctx, dbConn, appCfg.DB.PruneSchedule, appCfg.Maps.CacheTTL.Std())
	if err != nil {
		return err
	}
	if stopPrune != nil {
		defer stopPrune()
	}

	svcs, err := initServices(appCfg, st)
	if err != nil {
		return err
	}
	defer svcs.llm.Close()

	// Startup Probes
	probes := []probe.Probe{
		{Name: "LLM Provider", Check: svcs.llm.HealthCheck, Critical: true, Timeout: 15 * time.Second},
		{Name: "Maps Geocoder", Check: svcs.geocoder.CheckKey, Critical: true},
	}
	if err := probe.AnalyzeResults(probe.Run(ctx, probes)); err != nil {
		return fmt.Errorf("startup checks failed: %w", err)
	}

	return runServer(ctx, appCfg, svcs)
}

func initServices(cfg *config.Config, st *store.SQLiteStore) (*services, error) {
	tr := tracker.New()

	cats, err := config.LoadCategories(cfg.Discovery.CategoriesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories config: %w", err)
	}

	pm, err := prompts.Load(promptsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load prompts: %w", err)
	}

	logPath := ""
	if cfg.History.LLM.Enabled {
		logPath = cfg.History.LLM.Path
	}
	llmClient, err := gemini.NewClient(cfg.LLM, logPath, tr)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	geoCache := cache.NewMemoryCache(cfg.Maps.CacheTTL.Std())
	reqClient := request.New(nil, tr, cfg.Request)
	geocoder := geocode.NewClient(reqClient, cache.NewLayered(geoCache, st), tr, cfg.Maps.Key, cfg.Maps.GeocodeURL)

	imgCache := imagecache.New()
	renderer := imagegen.NewClient(llmClient, cfg.Images)
	sb := story.NewBuilder(llmClient, pm, cats, renderer, imgCache, story.Options{
		Timeout:     cfg.LLM.Timeout.Std(),
		Concurrency: cfg.Images.Concurrency,
		Interval:    cfg.Images.Interval.Std(),
	})

	disc := discovery.NewClient(llmClient, pm, cats, cfg.LLM.Timeout.Std(), cfg.Discovery.RecentLimit)

	return &services{
		store:      st,
		tracker:    tr,
		llm:        llmClient,
		geocoder:   geocoder,
		geoCache:   geoCache,
		imageCache: imgCache,
		session:    session.NewManager(),
		story:      sb,
		mapView:    mapview.NewBinding(geocoder, cfg.Maps),
		discovery:  disc,
		categories: cats,
	}, nil
}

func runServer(ctx context.Context, cfg *config.Config, svcs *services) error {
	hub := api.NewHub(nil)
	app := api.NewApp(ctx, svcs.session, svcs.story, svcs.mapView, svcs.discovery, svcs.categories, svcs.store, hub)
	stats := api.NewStatsHandler(svcs.tracker, map[string]api.CacheSizer{
		"images":  svcs.imageCache,
		"geocode": svcs.geoCache,
	}, hub)

	srv := api.NewServer(cfg.Server.Address, app, stats, hub, cfg.Server.StaticDir)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	return runServerLifecycle(ctx, srv, quit)
}

func runServerLifecycle(ctx context.Context, srv *http.Server, quit chan os.Signal) error {
	slog.Info("Starting server", "addr", srv.Addr)
	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()
	select {
	case <-quit:
		slog.Info("Shutting down server...")
	case <-ctx.Done():
		slog.Info("Context cancelled, shutting down...")
	case err := <-serverErrors:
		return fmt.Errorf("server failed: %w", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
