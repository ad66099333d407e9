package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agrimarket/config"
	"agrimarket/internal/bargen"
	"agrimarket/internal/cache"
	"agrimarket/internal/crop"
	"agrimarket/internal/gateway"
	"agrimarket/internal/logger"
	"agrimarket/internal/market"
	"agrimarket/internal/metrics"
	"agrimarket/internal/model"
	"agrimarket/internal/refdata"
	"agrimarket/internal/refresh"
	"agrimarket/internal/series"
	redisstore "agrimarket/internal/store/redis"
	sqlitestore "agrimarket/internal/store/sqlite"
	"agrimarket/internal/weather"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	cfgPath := flag.String("config", "config.yaml", "Path to YAML config (optional)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("[dashboard] config: %v", err)
	}
	logger.Init("dashboard", logger.ParseLevel(cfg.LogLevel))
	log.Println("[dashboard] starting...")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := metrics.NewMetrics(reg)
	health := metrics.NewHealthStatus()

	// ---- Reference data ----
	table := refdata.Default()
	var refReader *sqlitestore.Reader
	if cfg.Refdata.SQLitePath != "" {
		health.EnableSQLite()
		refReader, err = sqlitestore.NewReader(cfg.Refdata.SQLitePath)
		if err != nil {
			log.Fatalf("[dashboard] refdata: %v", err)
		}
		defer refReader.Close()
		if table, err = refReader.LoadTable(); err != nil {
			log.Fatalf("[dashboard] refdata: %v", err)
		}
		health.SetSQLiteOK(true)
	}

	if table, err = table.Select(cfg.Series.Commodities); err != nil {
		log.Fatalf("[dashboard] series.commodities: %v", err)
	}

	// ---- Services ----
	ttl := cache.New(cache.WithSingleFlight(cfg.Cache.SingleFlight), cache.WithMetrics(prom))

	genOpts := []bargen.Option{}
	if cfg.Market.Seed != 0 {
		genOpts = append(genOpts, bargen.WithSeed(cfg.Market.Seed))
	}
	builder := series.NewBuilder(bargen.New(genOpts...),
		series.WithStrictWarmup(cfg.Indicator.StrictWarmup),
		series.WithMetrics(prom))
	mkt := market.NewService(table, builder, ttl,
		market.WithSeriesTTL(cfg.Cache.MarketSeriesTTL),
		market.WithQuotesTTL(cfg.Cache.MarketQuotesTTL),
		market.WithFetchDelay(cfg.Market.FetchDelay))

	crops := crop.NewService(ttl,
		crop.WithTTL(cfg.Cache.CropTTL),
		crop.WithFetchDelay(cfg.Market.FetchDelay))

	var provider weather.Provider
	if cfg.Weather.Key != "" {
		provider = weather.NewQWeatherClient(weather.ClientConfig{
			Key:        cfg.Weather.Key,
			GeoURL:     cfg.Weather.GeoURL,
			APIURL:     cfg.Weather.APIURL,
			Timeout:    cfg.Weather.Timeout,
			RatePerSec: cfg.Weather.RatePerSec,
			Burst:      cfg.Weather.Burst,
		})
	} else {
		log.Println("[dashboard] no weather key configured, serving simulated weather")
	}
	wx := weather.NewService(provider, ttl,
		weather.WithTTL(cfg.Cache.WeatherTTL),
		weather.WithBreaker(cfg.Weather.MaxFailures, cfg.Weather.ResetTimeout),
		weather.WithMetrics(prom))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- Gateway + optional Redis fan-out ----
	hub := gateway.NewHub(prom)
	out := sinks{hub: hub}

	var pub *redisstore.Publisher
	if cfg.RedisEnabled() {
		health.EnableRedis()
		pub, err = redisstore.New(redisstore.WriterConfig{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			LatestTTL: cfg.Redis.LatestTTL,
		}, prom)
		if err != nil {
			log.Fatalf("[dashboard] redis: %v", err)
		}
		defer pub.Close()
		health.SetRedisConnected(true)
		out.pub = pub

		router := gateway.NewPubSubRouter(hub, redisstore.NewReader(pub.Client()))
		router.Warm(ctx)
		go router.Run(ctx)
	}

	var probeRedis *goredis.Client
	if pub != nil {
		probeRedis = pub.Client()
	}
	var probeDB *sql.DB
	if refReader != nil {
		probeDB = refReader.DB()
	}
	if probeRedis != nil || probeDB != nil {
		health.StartLivenessChecker(ctx, probeRedis, probeDB, 10*time.Second)
	}

	// ---- Refresh scheduler ----
	sched := refresh.NewScheduler(ctx)
	taskOpts := []refresh.TaskOption{refresh.WithMetrics(prom), refresh.WithHealth(health)}

	for _, name := range cfg.Refresh.Ranges {
		r, err := model.ParseTimeRange(name)
		if err != nil {
			log.Fatalf("[dashboard] refresh.ranges: %v", err)
		}
		task := refresh.NewTask("series-"+string(r), func(ctx context.Context) (any, error) {
			return mkt.Series(ctx, r, true)
		}, append(taskOpts, refresh.WithSink(out.series))...)
		if err := sched.Add(cfg.Refresh.SeriesSpec, task); err != nil {
			log.Fatalf("[dashboard] %v", err)
		}
	}

	locations := cfg.Refresh.Locations
	weatherTask := refresh.NewTask("weather", func(ctx context.Context) (any, error) {
		recs := make([]model.WeatherRecord, 0, len(locations))
		for _, loc := range locations {
			province, city, _ := config.SplitLocation(loc)
			rec, err := wx.Current(ctx, province, city, true)
			if err != nil {
				return nil, fmt.Errorf("weather %s: %w", loc, err)
			}
			recs = append(recs, rec)
		}
		return recs, nil
	}, append(taskOpts, refresh.WithSink(out.weather))...)
	if err := sched.Add(cfg.Refresh.WeatherSpec, weatherTask); err != nil {
		log.Fatalf("[dashboard] %v", err)
	}

	go sched.RunNow()
	sched.Start()

	// ---- HTTP ----
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, reg, health)
	metricsSrv.Start()

	srv := gateway.NewServer(gateway.Config{
		Addr:           cfg.HTTP.Addr,
		AllowOrigin:    cfg.HTTP.AllowOrigin,
		RatePerSec:     cfg.HTTP.RatePerSec,
		Burst:          cfg.HTTP.Burst,
		RequestTimeout: cfg.HTTP.Timeout,
	}, hub, mkt, wx, crops, health, reg, prom)
	srv.Start()

	slog.Info("dashboard ready",
		"http", cfg.HTTP.Addr, "metrics", cfg.MetricsAddr,
		"redis", cfg.RedisEnabled(), "ranges", cfg.Refresh.Ranges, "locations", locations)

	// ---- Wait for shutdown signal ----
	<-sigCh
	log.Println("[dashboard] shutdown signal received, cleaning up...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	sched.Stop(shutdownCtx)
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Printf("[dashboard] http shutdown: %v", err)
	}
	metricsSrv.Stop(shutdownCtx)

	log.Println("[dashboard] shutdown complete.")
}
