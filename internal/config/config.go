package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// App holds the runtime configuration loaded from environment variables.
type App struct {
	Env     string
	OpsPort string

	// ConfigURL points at the remote configuration endpoint that returns the
	// backend origin pair. BackendPrimary/BackendSecondary are fallbacks used
	// when the fetch fails.
	ConfigURL        string
	BackendPrimary   string
	BackendSecondary string

	Username  string
	Password  string
	ProjectID string

	// Static device identity reported with every submission.
	DeviceModel        string
	DeviceBrand        string
	DeviceManufacturer string

	// Fixed coordinates for installs without a live GPS source.
	FixedLatitude  float64
	FixedLongitude float64

	NetworkClass string
	MediaMaxDim  int
	MediaQuality int

	HTTPTimeout     time.Duration
	RateLimitPerMin int
}

// Load returns application config populated from environment variables with
// sensible defaults. A .env file in the working directory is honored when
// present.
func Load() App {
	if err := godotenv.Load(); err == nil {
		log.Println("loaded configuration from .env")
	}
	return App{
		Env:                getEnv("APP_ENV", "dev"),
		OpsPort:            getEnv("OPS_PORT", "8082"),
		ConfigURL:          getEnv("CONFIG_URL", ""),
		BackendPrimary:     getEnv("BACKEND_PRIMARY", ""),
		BackendSecondary:   getEnv("BACKEND_SECONDARY", ""),
		Username:           getEnv("SITESYNC_USERNAME", ""),
		Password:           getEnv("SITESYNC_PASSWORD", ""),
		ProjectID:          getEnv("PROJECT_ID", ""),
		DeviceModel:        getEnv("DEVICE_MODEL", ""),
		DeviceBrand:        getEnv("DEVICE_BRAND", ""),
		DeviceManufacturer: getEnv("DEVICE_MANUFACTURER", ""),
		FixedLatitude:      floatEnv("FIXED_LATITUDE", 0),
		FixedLongitude:     floatEnv("FIXED_LONGITUDE", 0),
		NetworkClass:       getEnv("NETWORK_CLASS", "unknown"),
		MediaMaxDim:        intEnv("MEDIA_MAX_DIM", 1280),
		MediaQuality:       intEnv("MEDIA_QUALITY", 0),
		HTTPTimeout:        durationEnv("HTTP_TIMEOUT", 30*time.Second),
		RateLimitPerMin:    intEnv("RATE_LIMIT_PER_MIN", 120),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			log.Printf("invalid duration for %s: %v, using fallback %s", key, err, fallback)
			return fallback
		}
		return d
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var parsed int
		if _, err := fmt.Sscanf(val, "%d", &parsed); err == nil {
			return parsed
		}
		log.Printf("invalid int for %s, using fallback %d", key, fallback)
	}
	return fallback
}

func floatEnv(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
		log.Printf("invalid float for %s, using fallback %v", key, fallback)
	}
	return fallback
}
