package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	// Dashboard
	DataSourceURL      string
	LoaderTimeout      time.Duration
	FilterMode         string
	ChartMode          string
	PresenceMode       string
	PaletteFile        string
	SessionTTL         time.Duration
	MaxSessions        int
	TileURL            string
	MapCenterLat       float64
	MapCenterLng       float64
	MapZoom            int
	CORSAllowedOrigins []string

	// Feed: the /temperature-data backend and its storage.
	FeedEnabled     bool
	Driver          string
	DSN             string
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	LogSQL          bool

	MQTTEnabled  bool
	MQTTBroker   string
	MQTTPort     int
	MQTTClientID string
	MQTTTopic    string
}

// LoadDotEnv loads variables from the given files (default .env) without
// overriding ones already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func LoadFromEnv() (Config, error) {
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	logLevelStr := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if logLevelStr == "" {
		logLevelStr = "info"
	}
	level, err := parseLogLevel(logLevelStr)
	if err != nil {
		return Config{}, err
	}

	httpAddr := strings.TrimSpace(os.Getenv("HTTP_ADDR"))
	if httpAddr == "" {
		httpAddr = ":8080"
	}

	dataSourceURL := strings.TrimSpace(os.Getenv("DATA_SOURCE_URL"))
	if dataSourceURL == "" {
		dataSourceURL = "http://localhost" + portOf(httpAddr) + "/temperature-data"
	}
	loaderTimeout, err := durationFromEnv("LOADER_TIMEOUT", "15s")
	if err != nil {
		return Config{}, err
	}

	filterMode, err := enumFromEnv("FILTER_MODE", "client", "client", "server")
	if err != nil {
		return Config{}, err
	}
	chartMode, err := enumFromEnv("CHART_MODE", "date-bucketed", "index", "date-bucketed")
	if err != nil {
		return Config{}, err
	}
	presenceMode, err := enumFromEnv("PRESENCE_MODE", "strict", "strict", "truthy")
	if err != nil {
		return Config{}, err
	}

	sessionTTL, err := durationFromEnv("SESSION_TTL", "30m")
	if err != nil {
		return Config{}, err
	}
	if sessionTTL <= 0 {
		return Config{}, fmt.Errorf("invalid SESSION_TTL %q: must be > 0", os.Getenv("SESSION_TTL"))
	}
	maxSessions, err := intFromEnv("MAX_SESSIONS", "256")
	if err != nil {
		return Config{}, err
	}
	if maxSessions <= 0 {
		return Config{}, fmt.Errorf("invalid MAX_SESSIONS %d: must be > 0", maxSessions)
	}

	tileURL := strings.TrimSpace(os.Getenv("TILE_URL"))
	if tileURL == "" {
		tileURL = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"
	}
	centerLat, err := floatFromEnv("MAP_CENTER_LAT", "17.393279788513272")
	if err != nil {
		return Config{}, err
	}
	centerLng, err := floatFromEnv("MAP_CENTER_LNG", "78.40734509206446")
	if err != nil {
		return Config{}, err
	}
	if centerLat < -90 || centerLat > 90 || centerLng < -180 || centerLng > 180 {
		return Config{}, fmt.Errorf("invalid map center %v,%v", centerLat, centerLng)
	}
	mapZoom, err := intFromEnv("MAP_ZOOM", "13")
	if err != nil {
		return Config{}, err
	}

	var origins []string
	originsStr := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if originsStr == "" {
		originsStr = "*"
	}
	for _, o := range strings.Split(originsStr, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	feedEnabled, err := boolFromEnv("FEED_ENABLED", "true")
	if err != nil {
		return Config{}, err
	}

	driver := strings.TrimSpace(os.Getenv("DB_DRIVER"))
	if driver == "" {
		driver = "sqlite3"
	}
	switch driver {
	case "sqlite3", "postgres":
	default:
		return Config{}, fmt.Errorf("invalid DB_DRIVER %q (allowed: sqlite3, postgres)", driver)
	}
	dsn := strings.TrimSpace(os.Getenv("DB_DSN"))
	if driver == "postgres" && dsn == "" {
		return Config{}, errors.New("DB_DSN is required when DB_DRIVER=postgres")
	}
	path := strings.TrimSpace(os.Getenv("SQLITE_PATH"))
	if path == "" {
		path = "data/bus_readings.db"
	}

	maxOpenConns, err := intFromEnv("DB_MAX_OPEN_CONNS", "1")
	if err != nil {
		return Config{}, err
	}
	maxIdleConns, err := intFromEnv("DB_MAX_IDLE_CONNS", "1")
	if err != nil {
		return Config{}, err
	}
	connMaxLifetime, err := durationFromEnv("DB_CONN_MAX_LIFETIME", "0s")
	if err != nil {
		return Config{}, err
	}
	logSQL, err := boolFromEnv("DB_LOG_SQL", "false")
	if err != nil {
		return Config{}, err
	}

	mqttEnabled, err := boolFromEnv("MQTT_ENABLED", "true")
	if err != nil {
		return Config{}, err
	}
	mqttBroker := strings.TrimSpace(os.Getenv("MQTT_BROKER"))
	if mqttBroker == "" {
		mqttBroker = "localhost"
	}
	mqttPort, err := intFromEnv("MQTT_PORT", "1883")
	if err != nil {
		return Config{}, err
	}
	if mqttPort <= 0 || mqttPort > 65535 {
		return Config{}, fmt.Errorf("invalid MQTT_PORT %d", mqttPort)
	}
	mqttClientID := strings.TrimSpace(os.Getenv("MQTT_CLIENT_ID"))
	if mqttClientID == "" {
		mqttClientID = "bus-heatmap"
	}
	mqttTopic := strings.TrimSpace(os.Getenv("MQTT_TOPIC"))
	if mqttTopic == "" {
		mqttTopic = "buses/+/telemetry"
	}

	return Config{
		AppEnv:             appEnv,
		LogLevel:           level,
		HTTPAddr:           httpAddr,
		DataSourceURL:      dataSourceURL,
		LoaderTimeout:      loaderTimeout,
		FilterMode:         filterMode,
		ChartMode:          chartMode,
		PresenceMode:       presenceMode,
		PaletteFile:        strings.TrimSpace(os.Getenv("PALETTE_FILE")),
		SessionTTL:         sessionTTL,
		MaxSessions:        maxSessions,
		TileURL:            tileURL,
		MapCenterLat:       centerLat,
		MapCenterLng:       centerLng,
		MapZoom:            mapZoom,
		CORSAllowedOrigins: origins,
		FeedEnabled:        feedEnabled,
		Driver:             driver,
		DSN:                dsn,
		Path:               path,
		MaxOpenConns:       maxOpenConns,
		MaxIdleConns:       maxIdleConns,
		ConnMaxLifetime:    connMaxLifetime,
		LogSQL:             logSQL,
		MQTTEnabled:        mqttEnabled,
		MQTTBroker:         mqttBroker,
		MQTTPort:           mqttPort,
		MQTTClientID:       mqttClientID,
		MQTTTopic:          mqttTopic,
	}, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func intFromEnv(key, def string) (int, error) {
	s := envOr(key, def)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return n, nil
}

func floatFromEnv(key, def string) (float64, error) {
	s := envOr(key, def)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return f, nil
}

func boolFromEnv(key, def string) (bool, error) {
	s := envOr(key, def)
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return b, nil
}

func durationFromEnv(key, def string) (time.Duration, error) {
	s := envOr(key, def)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return d, nil
}

func enumFromEnv(key, def string, allowed ...string) (string, error) {
	s := strings.ToLower(envOr(key, def))
	for _, a := range allowed {
		if s == a {
			return s, nil
		}
	}
	return "", fmt.Errorf("invalid %s %q (allowed: %s)", key, s, strings.Join(allowed, ", "))
}

// portOf returns ":port" from a listen address, or "" when there is none.
func portOf(addr string) string {
	if i := strings.LastIndex(addr, ":"); i >= 0 {
		return addr[i:]
	}
	return ""
}
