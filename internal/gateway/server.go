// Package gateway serves the dashboard's REST API and streams refreshed
// series and weather to browsers over WebSocket.
package gateway

import (
	"context"
	"errors"
	"log"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"agrimarket/internal/crop"
	"agrimarket/internal/market"
	"agrimarket/internal/metrics"
	"agrimarket/internal/model"
	"agrimarket/internal/refdata"
	"agrimarket/internal/series"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MarketAPI is the market data the REST API exposes.
type MarketAPI interface {
	Series(ctx context.Context, r model.TimeRange, force bool) (*series.Series, error)
	Summary(ctx context.Context, r model.TimeRange, force bool) (*market.Summary, error)
	Quotes(ctx context.Context, category string, force bool) (*market.QuoteSet, error)
	TrendAnalysis(ctx context.Context, category string, force bool) (*market.TrendAnalysis, error)
	Categories() []refdata.CategoryInfo
}

// WeatherAPI is the weather data the REST API exposes.
type WeatherAPI interface {
	Current(ctx context.Context, province, city string, force bool) (model.WeatherRecord, error)
	Forecast24h(ctx context.Context, province, city string, force bool) ([]model.HourlyForecast, error)
	OpenLocations() []string
}

// CropAPI is the crop production data the REST API exposes.
type CropAPI interface {
	Production(ctx context.Context, cropType string, force bool) (*crop.ProductionSet, error)
	TrendAnalysis(ctx context.Context, cropType string, force bool) (*crop.TrendAnalysis, error)
	Types() []refdata.CropTypeInfo
}

// Config configures the HTTP server.
type Config struct {
	Addr           string
	AllowOrigin    string
	RatePerSec     float64 // per-IP request rate; <= 0 disables limiting
	Burst          int
	RequestTimeout time.Duration
}

// Server owns the gin engine and its http.Server.
type Server struct {
	cfg      Config
	engine   *gin.Engine
	srv      *http.Server
	hub      *Hub
	market   MarketAPI
	weather  WeatherAPI
	crops    CropAPI
	health   *metrics.HealthStatus
	gatherer prometheus.Gatherer
	started  time.Time
}

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// NewServer wires routes. gatherer and m may be nil; health defaults to an
// empty status.
func NewServer(cfg Config, hub *Hub, mkt MarketAPI, wx WeatherAPI, crops CropAPI, health *metrics.HealthStatus, gatherer prometheus.Gatherer, m *metrics.Metrics) *Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}
	if health == nil {
		health = metrics.NewHealthStatus()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestIDMiddleware(), corsMiddleware(cfg.AllowOrigin), requestLogger(m))
	if cfg.RatePerSec > 0 {
		engine.Use(rateLimitMiddleware(newIPLimiter(cfg.RatePerSec, cfg.Burst)))
	}

	s := &Server{
		cfg:      cfg,
		engine:   engine,
		hub:      hub,
		market:   mkt,
		weather:  wx,
		crops:    crops,
		health:   health,
		gatherer: gatherer,
		started:  time.Now(),
	}
	s.registerRoutes()
	s.srv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// ServeHTTP makes the server usable with httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}

func (s *Server) registerRoutes() {
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	s.engine.GET("/healthz", gin.WrapH(s.health))
	s.engine.GET("/ws", s.handleWS)

	v1 := s.engine.Group("/api/v1")
	v1.GET("/health", s.handleHealth)
	v1.GET("/regions", s.handleRegions)
	v1.GET("/missed", s.handleMissed)

	mkt := v1.Group("/market")
	mkt.GET("/series", s.handleSeries)
	mkt.GET("/summary", s.handleSummary)
	mkt.GET("/quotes", s.handleQuotes)
	mkt.GET("/trend", s.handleTrend)
	mkt.GET("/categories", s.handleCategories)

	wx := v1.Group("/weather")
	wx.GET("", s.handleWeather)
	wx.GET("/forecast", s.handleForecast)

	cr := v1.Group("/crops")
	cr.GET("", s.handleCrops)
	cr.GET("/trend", s.handleCropTrend)
	cr.GET("/types", s.handleCropTypes)
}

// Start serves in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[gateway] listening on %s", s.cfg.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[gateway] server error: %v", err)
		}
	}()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[gateway] ws upgrade error: %v", err)
		return
	}
	s.hub.Register(conn, c.Query("last_ts"))
}

func (s *Server) handleHealth(c *gin.Context) {
	status, code := s.health.Status()

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	c.JSON(code, gin.H{
		"status":        status,
		"ws_clients":    s.hub.ClientCount(),
		"open_breakers": s.weather.OpenLocations(),
		"goroutines":    runtime.NumGoroutine(),
		"heap_alloc_mb": float64(ms.HeapAlloc) / 1024 / 1024,
		"gc_runs":       ms.NumGC,
		"uptime_sec":    int64(time.Since(s.started).Seconds()),
		"ts":            time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (s *Server) handleRegions(c *gin.Context) {
	c.JSON(http.StatusOK, refdata.Provinces)
}

// handleMissed serves buffered envelopes for client gap backfill:
// /api/v1/missed?channel=series:day&from=3&to=9
func (s *Server) handleMissed(c *gin.Context) {
	channel := c.Query("channel")
	if channel == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "channel query param required"})
		return
	}
	from, err := strconv.ParseInt(c.DefaultQuery("from", "0"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from"})
		return
	}
	to, err := strconv.ParseInt(c.DefaultQuery("to", "0"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"channel":     channel,
		"current_seq": s.hub.ChannelSeq(channel),
		"messages":    s.hub.ReplayRange(channel, from, to),
	})
}

func (s *Server) handleSeries(c *gin.Context) {
	r, err := model.ParseTimeRange(c.Query("range"))
	if err != nil {
		writeError(c, err)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.RequestTimeout)
	defer cancel()

	ser, err := s.market.Series(ctx, r, refreshParam(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ser)
}

func (s *Server) handleSummary(c *gin.Context) {
	r, err := model.ParseTimeRange(c.Query("range"))
	if err != nil {
		writeError(c, err)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.RequestTimeout)
	defer cancel()

	sum, err := s.market.Summary(ctx, r, refreshParam(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (s *Server) handleQuotes(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.RequestTimeout)
	defer cancel()

	set, err := s.market.Quotes(ctx, c.Query("category"), refreshParam(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, set)
}

func (s *Server) handleTrend(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.RequestTimeout)
	defer cancel()

	ta, err := s.market.TrendAnalysis(ctx, c.Query("category"), refreshParam(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ta)
}

func (s *Server) handleCategories(c *gin.Context) {
	c.JSON(http.StatusOK, s.market.Categories())
}

func (s *Server) handleCrops(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.RequestTimeout)
	defer cancel()

	set, err := s.crops.Production(ctx, c.Query("type"), refreshParam(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, set)
}

func (s *Server) handleCropTrend(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.RequestTimeout)
	defer cancel()

	ta, err := s.crops.TrendAnalysis(ctx, c.Query("type"), refreshParam(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ta)
}

func (s *Server) handleCropTypes(c *gin.Context) {
	c.JSON(http.StatusOK, s.crops.Types())
}

func (s *Server) handleWeather(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.RequestTimeout)
	defer cancel()

	rec, err := s.weather.Current(ctx, c.Query("province"), c.Query("city"), refreshParam(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) handleForecast(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.RequestTimeout)
	defer cancel()

	hours, err := s.weather.Forecast24h(ctx, c.Query("province"), c.Query("city"), refreshParam(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, hours)
}

// refreshParam reads ?refresh=1|true.
func refreshParam(c *gin.Context) bool {
	v, _ := strconv.ParseBool(c.Query("refresh"))
	return v
}

// writeError maps domain errors to status codes.
func writeError(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrInvalidWindow):
		code = http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		code = http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		code = 499
	}
	c.JSON(code, gin.H{"error": err.Error()})
}
