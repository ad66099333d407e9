package weather

import (
	"context"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"agrimarket/internal/clock"
	"agrimarket/internal/model"
	"agrimarket/internal/refdata"
)

// PlaceholderNote marks regions the service does not cover.
const PlaceholderNote = "暂不开放"

var (
	windDirs8 = []string{"东风", "南风", "西风", "北风", "东南风", "西南风", "东北风", "西北风"}
	windDirs4 = windDirs8[:4]

	hourlyConditions = []string{"晴", "多云", "小雨", "中雨", "阴"}
)

// SimOption configures a Simulator.
type SimOption func(*Simulator)

// WithSimRand sets the random source.
func WithSimRand(r *rand.Rand) SimOption {
	return func(s *Simulator) { s.rng = r }
}

// WithSimClock sets the time source that drives the season.
func WithSimClock(c clock.Clock) SimOption {
	return func(s *Simulator) { s.clock = c }
}

// Simulator synthesizes plausible weather from the season and the
// province's climate zone. It implements Provider and never fails.
type Simulator struct {
	mu    sync.Mutex
	rng   *rand.Rand
	clock clock.Clock
}

// NewSimulator creates a simulator.
func NewSimulator(opts ...SimOption) *Simulator {
	s := &Simulator{
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		clock: clock.Real{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Current synthesizes a current-conditions record.
func (s *Simulator) Current(_ context.Context, province, city string) (model.WeatherRecord, error) {
	return s.Record(province, city), nil
}

// Forecast24h synthesizes 24 hourly points starting at the current hour.
func (s *Simulator) Forecast24h(_ context.Context, _, _ string) ([]model.HourlyForecast, error) {
	return s.Hourly(), nil
}

// Record synthesizes a current-conditions record for a location.
func (s *Simulator) Record(province, city string) model.WeatherRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	month := int(now.Month())
	north, south := refdata.IsNorthern(province), refdata.IsSouthern(province)
	winter := month >= 11 || month <= 2
	summer := month >= 6 && month <= 8

	var base, span float64
	switch {
	case winter:
		base, span = pick3(north, south, -5, 15, 5), pick3(north, south, 10, 8, 15)
	case summer:
		base, span = pick3(north, south, 25, 30, 28), 8
	default:
		base, span = pick3(north, south, 15, 22, 18), 10
	}
	temp := int(math.Floor(base + s.rng.Float64()*span))

	var conditions []string
	switch {
	case winter && north:
		conditions = []string{"晴", "多云", "阴", "小雪", "中雪"}
	case winter:
		conditions = []string{"晴", "多云", "阴", "小雨"}
	case summer && south:
		conditions = []string{"晴", "多云", "阴", "小雨", "中雨", "大雨", "雷阵雨"}
	case summer:
		conditions = []string{"晴", "多云", "阴", "小雨", "中雨", "雷阵雨"}
	default:
		conditions = []string{"晴", "多云", "阴", "小雨", "中雨"}
	}
	cond := conditions[s.rng.Intn(len(conditions))]
	wet := isWet(cond)

	rec := model.WeatherRecord{
		Province:      province,
		City:          city,
		Temperature:   temp,
		FeelsLike:     temp + s.rng.Intn(3) - 1,
		Condition:     cond,
		WindDir:       windDirs8[s.rng.Intn(len(windDirs8))],
		WindScale:     strconv.Itoa(1+s.rng.Intn(5)) + "级",
		WindSpeed:     round1(1 + s.rng.Float64()*5),
		Precipitation: round1(s.precipitation(cond)),
		Pressure:      1000 + s.rng.Intn(15),
		AirQuality:    50 + s.rng.Intn(150),
		ObservedAt:    now,
		Source:        model.SourceSimulated,
	}
	if wet {
		rec.Humidity = 80 + s.rng.Intn(15)
		rec.Visibility = round1(1 + s.rng.Float64()*9)
	} else {
		rec.Humidity = 40 + s.rng.Intn(30)
		rec.Visibility = round1(10 + s.rng.Float64()*20)
	}
	if cond == "晴" {
		rec.Cloud = s.rng.Intn(20)
	} else {
		rec.Cloud = 50 + s.rng.Intn(50)
	}

	switch {
	case s.rng.Float64() > 0.7:
		rec.AirCategory = "良"
	case s.rng.Float64() > 0.4:
		rec.AirCategory = "轻度污染"
	default:
		rec.AirCategory = "中度污染"
	}

	if s.rng.Float64() > 0.9 {
		switch {
		case strings.Contains(cond, "雨"):
			rec.Advisory = "暴雨蓝色预警"
		case strings.Contains(cond, "雪"):
			rec.Advisory = "暴雪蓝色预警"
		}
	}
	return rec
}

// Hourly synthesizes a 24-hour forecast with a diurnal temperature curve
// peaking mid-afternoon.
func (s *Simulator) Hourly() []model.HourlyForecast {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now().Truncate(time.Hour)
	base := 15 + s.rng.Float64()*10
	out := make([]model.HourlyForecast, 0, 24)
	for i := 0; i < 24; i++ {
		at := now.Add(time.Duration(i) * time.Hour)
		h := float64(at.Hour())
		temp := int(math.Round(base + math.Sin((h-6)*math.Pi/12)*5))

		cond := hourlyConditions[s.rng.Intn(len(hourlyConditions))]
		f := model.HourlyForecast{
			Time:        at,
			Temperature: temp,
			Condition:   cond,
			WindDir:     windDirs4[s.rng.Intn(len(windDirs4))],
			WindScale:   strconv.Itoa(1+s.rng.Intn(3)) + "级",
			WindSpeed:   round1(1 + s.rng.Float64()*4),
			Humidity:    60 + s.rng.Intn(30),
			Source:      model.SourceSimulated,
		}
		if strings.Contains(cond, "雨") {
			f.Precipitation = round1(s.rng.Float64() * 5)
			f.PrecipChance = 50 + s.rng.Intn(50)
		} else {
			f.PrecipChance = s.rng.Intn(20)
		}
		out = append(out, f)
	}
	return out
}

func (s *Simulator) precipitation(cond string) float64 {
	switch {
	case strings.Contains(cond, "小雨"):
		return s.rng.Float64() * 5
	case strings.Contains(cond, "中雨"):
		return 5 + s.rng.Float64()*10
	case strings.Contains(cond, "大雨"):
		return 15 + s.rng.Float64()*25
	case strings.Contains(cond, "小雪"):
		return s.rng.Float64() * 3
	case strings.Contains(cond, "中雪"):
		return 3 + s.rng.Float64()*7
	}
	return 0
}

// PlaceholderRecord is returned for regions without coverage.
func PlaceholderRecord(province, city string, now time.Time) model.WeatherRecord {
	return model.WeatherRecord{
		Province:   province,
		City:       city,
		Condition:  PlaceholderNote,
		ObservedAt: now,
		Source:     model.SourcePlaceholder,
		Note:       PlaceholderNote,
	}
}

func isWet(cond string) bool {
	return strings.Contains(cond, "雨") || strings.Contains(cond, "雪")
}

func pick3(north, south bool, n, s, other float64) float64 {
	switch {
	case north:
		return n
	case south:
		return s
	}
	return other
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
