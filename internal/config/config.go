package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string
	DatabaseURL   string

	// Admin session tokens
	AdminJWTSecret  string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// Redis (occupied-slot cache + clinic settings)
	RedisAddr        string
	RedisPassword    string
	RedisTLS         bool
	AvailabilityTTL  time.Duration
	DisableSlotCache bool

	// Public booking endpoint rate limit (requests/sec, burst) per IP
	BookingRateLimit float64
	BookingRateBurst int

	CORSAllowedOrigins []string

	// SendGrid Email Configuration
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string

	// Clinic defaults used until the admin saves settings
	ClinicName       string
	ClinicDoctor     string
	ClinicAddress    string
	ClinicPhone      string
	ClinicStaffEmail string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),

		AdminJWTSecret:  getEnv("ADMIN_JWT_SECRET", ""),
		AccessTokenTTL:  getEnvAsDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL: getEnvAsDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),

		RedisAddr:        getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisTLS:         getEnvAsBool("REDIS_TLS", false),
		AvailabilityTTL:  getEnvAsDuration("AVAILABILITY_CACHE_TTL", 30*time.Second),
		DisableSlotCache: getEnvAsBool("DISABLE_SLOT_CACHE", false),

		BookingRateLimit: getEnvAsFloat("BOOKING_RATE_LIMIT", 1),
		BookingRateBurst: getEnvAsInt("BOOKING_RATE_BURST", 5),

		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", nil),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "DentalEspejo"),

		ClinicName:       getEnv("CLINIC_NAME", "DentalEspejo"),
		ClinicDoctor:     getEnv("CLINIC_DOCTOR", "Dra. Lisseth Huallpa Espejo"),
		ClinicAddress:    getEnv("CLINIC_ADDRESS", "Calle Nueva N°:438 Cusco"),
		ClinicPhone:      getEnv("CLINIC_PHONE", "+51 962236953"),
		ClinicStaffEmail: getEnv("CLINIC_STAFF_EMAIL", ""),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
