package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"example.com/tripplanner/internal/domain"
	"example.com/tripplanner/internal/planner"
)

// DefaultWeatherURL is the OpenWeatherMap API root.
const DefaultWeatherURL = "https://api.openweathermap.org"

// ForecastDays is how far ahead forecasts are offered, today included as day 0.
const ForecastDays = 7

var (
	// ErrWeatherUnavailable is returned when no API key is configured.
	ErrWeatherUnavailable = errors.New("weather service is not configured")
	// ErrOutOfRange is returned for dates outside the forecast window.
	ErrOutOfRange = errors.New("date outside the forecast window")
	// ErrNoForecast is returned when the provider has no slot for the requested day.
	ErrNoForecast = errors.New("no forecast for this date")
)

// Weather summarises the forecast of one day.
type Weather struct {
	Temp        int    `json:"temp"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	IconURL     string `json:"icon_url"`
}

// WeatherConfig configures the weather client.
type WeatherConfig struct {
	BaseURL  string
	APIKey   string
	Units    string
	Lang     string
	CacheTTL time.Duration
	Location *time.Location
	Now      func() time.Time
}

type cachedWeather struct {
	weather  Weather
	storedAt time.Time
}

// WeatherClient fetches day forecasts from OpenWeatherMap and caches successful answers.
type WeatherClient struct {
	cfg        WeatherConfig
	httpClient *http.Client

	mu    sync.Mutex
	cache map[string]cachedWeather
}

// NewWeatherClient constructs a WeatherClient with defaults for unset fields.
func NewWeatherClient(cfg WeatherConfig) *WeatherClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultWeatherURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Units == "" {
		cfg.Units = "metric"
	}
	if cfg.Lang == "" {
		cfg.Lang = "en"
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &WeatherClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cache:      make(map[string]cachedWeather),
	}
}

// IconURL returns the image URL of an OpenWeatherMap icon code.
func IconURL(code string) string {
	return fmt.Sprintf("https://openweathermap.org/img/wn/%s@2x.png", code)
}

// Forecast returns the weather of location on day.
func (c *WeatherClient) Forecast(ctx context.Context, location string, day planner.Date) (Weather, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return Weather{}, fmt.Errorf("%w: location is required", domain.ErrValidation)
	}
	if c.cfg.APIKey == "" {
		return Weather{}, ErrWeatherUnavailable
	}

	now := c.cfg.Now()
	key := location + "_" + day.String()
	if w, ok := c.cached(key, now); ok {
		weatherCacheLookups.WithLabelValues("hit").Inc()
		return w, nil
	}
	weatherCacheLookups.WithLabelValues("miss").Inc()

	ahead := planner.DateOf(now.In(c.cfg.Location)).DaysUntil(day)
	if ahead < 0 || ahead > ForecastDays {
		return Weather{}, fmt.Errorf("%s: %w", day, ErrOutOfRange)
	}

	lat, lon, err := c.resolve(ctx, location)
	if err != nil {
		return Weather{}, err
	}
	w, err := c.dayForecast(ctx, lat, lon, day)
	if err != nil {
		return Weather{}, err
	}
	c.store(key, w, now)
	return w, nil
}

func (c *WeatherClient) cached(key string, now time.Time) (Weather, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.cache[key]
	if !ok || now.Sub(entry.storedAt) >= c.cfg.CacheTTL {
		return Weather{}, false
	}
	return entry.weather, true
}

func (c *WeatherClient) store(key string, w Weather, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, entry := range c.cache {
		if now.Sub(entry.storedAt) >= c.cfg.CacheTTL {
			delete(c.cache, k)
		}
	}
	c.cache[key] = cachedWeather{weather: w, storedAt: now}
}

func (c *WeatherClient) resolve(ctx context.Context, location string) (float64, float64, error) {
	params := url.Values{}
	params.Set("q", location)
	params.Set("limit", "1")
	params.Set("appid", c.cfg.APIKey)

	var places []struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	}
	if err := c.get(ctx, "/geo/1.0/direct", params, &places); err != nil {
		return 0, 0, fmt.Errorf("weather geocoding: %w", err)
	}
	if len(places) == 0 {
		return 0, 0, fmt.Errorf("%q: %w", location, domain.ErrNoMatch)
	}
	return places[0].Lat, places[0].Lon, nil
}

type forecastSlot struct {
	DtTxt string `json:"dt_txt"`
	Main  struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
}

func (c *WeatherClient) dayForecast(ctx context.Context, lat, lon float64, day planner.Date) (Weather, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("units", c.cfg.Units)
	params.Set("lang", c.cfg.Lang)
	params.Set("appid", c.cfg.APIKey)

	var payload struct {
		List []forecastSlot `json:"list"`
	}
	if err := c.get(ctx, "/data/2.5/forecast", params, &payload); err != nil {
		return Weather{}, fmt.Errorf("weather forecast: %w", err)
	}
	return summarise(payload.List, day)
}

// summarise averages the temperature of the day's slots and describes the day by its middle slot.
func summarise(slots []forecastSlot, day planner.Date) (Weather, error) {
	want := day.String()
	var matching []forecastSlot
	for _, s := range slots {
		if date, _, ok := strings.Cut(s.DtTxt, " "); ok && date == want {
			matching = append(matching, s)
		}
	}
	if len(matching) == 0 {
		return Weather{}, fmt.Errorf("%s: %w", want, ErrNoForecast)
	}

	var sum float64
	for _, s := range matching {
		sum += s.Main.Temp
	}
	w := Weather{Temp: int(math.Floor(sum/float64(len(matching)) + 0.5))}
	if mid := matching[len(matching)/2]; len(mid.Weather) > 0 {
		w.Description = mid.Weather[0].Description
		w.Icon = mid.Weather[0].Icon
		w.IconURL = IconURL(w.Icon)
	}
	return w, nil
}

func (c *WeatherClient) get(ctx context.Context, path string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("status %d: %s", resp.StatusCode, body)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
