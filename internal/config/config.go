package config

import (
	"errors"  // For validation errors
	"fmt"     // For formatted errors
	"os"      // For environment variables
	"runtime" // For default hashing concurrency
	"strconv" // For string to int conversion
	"time"    // For durations

	"campus_identity/internal/credential" // Password work factor

	"github.com/joho/godotenv" // For loading .env files
)

// minProdSecretLength is the shortest JWT secret accepted in production
const minProdSecretLength = 32

// Config holds the application configuration
type Config struct {
	AppPort         string        // Application port
	DBUser          string        // Database user
	DBPassword      string        // Database password
	DBHost          string        // Database host
	DBPort          string        // Database port
	DBName          string        // Database name
	JWTSecret       string        // JWT secret key
	JWTIssuer       string        // JWT iss claim
	JWTTTL          time.Duration // Token lifetime
	BcryptCost      int           // bcrypt work factor
	HashConcurrency int           // Concurrent bcrypt computations
	RedisAddr       string        // Redis server address
	RedisPass       string        // Redis password
	RedisDB         int           // Redis database number
	LoginMaxFails   int           // Failed logins before lockout
	LoginLockout    time.Duration // Lockout duration
	SweepSchedule   string        // Cron spec for the orphan sweep
	OrphanGrace     time.Duration // Age before an orphan is swept
	LogLevel        string        // logrus level
	IsProd          bool          // Is production environment
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	return &Config{
		AppPort:         getEnv("APP_PORT", "8080"),                                       // Application port
		DBUser:          os.Getenv("DB_USER"),                                             // Database user
		DBPassword:      os.Getenv("DB_PASSWORD"),                                         // Database password
		DBHost:          getEnv("DB_HOST", "127.0.0.1"),                                   // Database host
		DBPort:          getEnv("DB_PORT", "3306"),                                        // Database port
		DBName:          os.Getenv("DB_NAME"),                                             // Database name
		JWTSecret:       os.Getenv("JWT_SECRET"),                                          // JWT secret key
		JWTIssuer:       getEnv("JWT_ISSUER", "campus-identity"),                          // JWT iss claim
		JWTTTL:          time.Duration(getInt("JWT_TTL_HOURS", 720)) * time.Hour,          // 30 days
		BcryptCost:      getInt("BCRYPT_COST", credential.DefaultCost),                    // bcrypt work factor
		HashConcurrency: getInt("HASH_CONCURRENCY", runtime.NumCPU()),                     // Hashing pool size
		RedisAddr:       getEnv("REDIS_ADDR", "127.0.0.1:6379"),                           // Redis server address
		RedisPass:       os.Getenv("REDIS_PASS"),                                          // Redis password
		RedisDB:         getInt("REDIS_DB", 0),                                            // Redis database number
		LoginMaxFails:   getInt("LOGIN_MAX_ATTEMPTS", 5),                                  // Failed logins before lockout
		LoginLockout:    time.Duration(getInt("LOGIN_LOCKOUT_MINUTES", 15)) * time.Minute, // Lockout duration
		SweepSchedule:   getEnv("SWEEP_SCHEDULE", "@every 1h"),                            // Orphan sweep schedule
		OrphanGrace:     time.Duration(getInt("ORPHAN_GRACE_MINUTES", 30)) * time.Minute,  // Orphan grace period
		LogLevel:        getEnv("LOG_LEVEL", "info"),                                      // logrus level
		IsProd:          os.Getenv("IS_PROD") == "true",                                   // Is production environment
	}
}

// Validate reports missing or unsafe settings
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	} else if c.IsProd && len(c.JWTSecret) < minProdSecretLength {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 bytes in production"))
	}
	if c.DBUser == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DBName == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if c.JWTTTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL_HOURS must be positive"))
	}
	// Production never hashes below the default work factor
	if c.IsProd && c.BcryptCost < credential.DefaultCost {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be at least %d in production", credential.DefaultCost))
	}
	if c.LoginMaxFails < 1 {
		errs = append(errs, errors.New("LOGIN_MAX_ATTEMPTS must be at least 1"))
	}
	return errors.Join(errs...)
}

// DSN builds the MySQL data source name
func (c *Config) DSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?charset=utf8mb4&parseTime=true&loc=UTC"
}

// getEnv returns the variable or a fallback when unset
func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

// getInt parses an integer variable, falling back on absence or parse errors
func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
