package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the API and CLI processes.
// All values must come from env (or env-file loaded by the process runner).
// No business logic should depend on raw environment variables.
type Config struct {
	App     AppConfig
	DB      DBConfig
	Redis   RedisConfig
	Auth    AuthConfig
	Vapi    VapiConfig
	Dialing DialingConfig
	Usage   UsageConfig
	Phone   PhoneConfig
}

type AppConfig struct {
	Env  string
	Port int
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// SSLMode is explicit; production must set it.
	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

type RedisConfig struct {
	Host string
	Port int
}

type AuthConfig struct {
	JWTSecret  string
	JWTIssuer  string
	SessionTTL time.Duration
}

type VapiConfig struct {
	APIKey            string
	BaseURL           string
	AssistantID       string
	PhoneNumberID     string
	WebhookBaseURL    string
	WebhookSecret     string
	RequestsPerSecond int
}

// DialingConfig carries the scheduler policy: caps, retry behavior, and the
// calling window.
type DialingConfig struct {
	MaxConcurrentCalls int
	MaxCallsPerHour    int
	MaxCallsPerDay     int
	MaxRetries         int
	RetryDelay         time.Duration
	WindowStart        string // HH:MM, inclusive
	WindowEnd          string // HH:MM, inclusive
	Timezone           string
	PacingDelay        time.Duration
}

type UsageConfig struct {
	// MonthlyCallLimit seeds new workspace quota periods.
	MonthlyCallLimit int64
}

type PhoneConfig struct {
	// DefaultRegion parses local-format numbers (ISO 3166-1 alpha-2).
	DefaultRegion string
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	{
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	{
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.SessionTTL = optDuration("SESSION_TTL")

	c.Vapi.APIKey = os.Getenv("VAPI_API_KEY")
	c.Vapi.BaseURL = strings.TrimSpace(os.Getenv("VAPI_BASE_URL"))
	c.Vapi.AssistantID = strings.TrimSpace(os.Getenv("VAPI_ASSISTANT_ID"))
	c.Vapi.PhoneNumberID = strings.TrimSpace(os.Getenv("VAPI_PHONE_NUMBER_ID"))
	c.Vapi.WebhookBaseURL = strings.TrimSpace(os.Getenv("WEBHOOK_BASE_URL"))
	c.Vapi.WebhookSecret = os.Getenv("VAPI_WEBHOOK_SECRET")
	c.Vapi.RequestsPerSecond = optInt("VAPI_REQUESTS_PER_SECOND")

	c.Dialing.MaxConcurrentCalls = optInt("MAX_CONCURRENT_CALLS")
	c.Dialing.MaxCallsPerHour = optInt("MAX_CALLS_PER_HOUR")
	c.Dialing.MaxCallsPerDay = optInt("MAX_CALLS_PER_DAY")
	c.Dialing.MaxRetries = optInt("MAX_RETRIES")
	c.Dialing.RetryDelay = optDuration("RETRY_DELAY")
	c.Dialing.WindowStart = strings.TrimSpace(os.Getenv("CALL_WINDOW_START"))
	c.Dialing.WindowEnd = strings.TrimSpace(os.Getenv("CALL_WINDOW_END"))
	c.Dialing.Timezone = strings.TrimSpace(os.Getenv("CALL_TIMEZONE"))
	c.Dialing.PacingDelay = optDuration("PACING_DELAY")

	c.Usage.MonthlyCallLimit = int64(optInt("MONTHLY_CALL_LIMIT"))

	c.Phone.DefaultRegion = strings.TrimSpace(os.Getenv("PHONE_DEFAULT_REGION"))

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if strings.TrimSpace(c.DB.SSLMode) == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() && c.Auth.JWTIssuer == "" {
		errs = append(errs, errors.New("JWT_ISSUER is required in production"))
	}
	if c.Auth.SessionTTL <= 0 {
		c.Auth.SessionTTL = 30 * 24 * time.Hour
	}

	if c.Vapi.APIKey == "" {
		errs = append(errs, errors.New("VAPI_API_KEY is required"))
	}
	if c.Vapi.PhoneNumberID == "" {
		errs = append(errs, errors.New("VAPI_PHONE_NUMBER_ID is required"))
	}
	if c.IsProduction() && c.Vapi.WebhookSecret == "" {
		errs = append(errs, errors.New("VAPI_WEBHOOK_SECRET is required in production"))
	}
	if c.Vapi.RequestsPerSecond <= 0 {
		c.Vapi.RequestsPerSecond = 2
	}

	if c.Dialing.MaxConcurrentCalls <= 0 {
		c.Dialing.MaxConcurrentCalls = 5
	}
	if c.Dialing.MaxCallsPerHour <= 0 {
		c.Dialing.MaxCallsPerHour = 50
	}
	if c.Dialing.MaxCallsPerDay <= 0 {
		c.Dialing.MaxCallsPerDay = 200
	}
	if c.Dialing.MaxRetries <= 0 {
		c.Dialing.MaxRetries = 2
	}
	if c.Dialing.RetryDelay <= 0 {
		c.Dialing.RetryDelay = 4 * time.Hour
	}
	if c.Dialing.WindowStart == "" {
		c.Dialing.WindowStart = "09:00"
	}
	if c.Dialing.WindowEnd == "" {
		c.Dialing.WindowEnd = "17:30"
	}
	if err := validateHHMM(c.Dialing.WindowStart); err != nil {
		errs = append(errs, fmt.Errorf("CALL_WINDOW_START: %w", err))
	}
	if err := validateHHMM(c.Dialing.WindowEnd); err != nil {
		errs = append(errs, fmt.Errorf("CALL_WINDOW_END: %w", err))
	}
	if c.Dialing.Timezone == "" {
		c.Dialing.Timezone = "Europe/London"
	}
	if _, err := time.LoadLocation(c.Dialing.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("CALL_TIMEZONE must be an IANA zone name, got %q", c.Dialing.Timezone))
	}
	if c.Dialing.PacingDelay <= 0 {
		c.Dialing.PacingDelay = 2 * time.Second
	}

	if c.Usage.MonthlyCallLimit <= 0 {
		c.Usage.MonthlyCallLimit = 1000
	}

	if c.Phone.DefaultRegion == "" {
		c.Phone.DefaultRegion = "GB"
	}
	if len(c.Phone.DefaultRegion) != 2 {
		errs = append(errs, fmt.Errorf("PHONE_DEFAULT_REGION must be a two-letter region code, got %q", c.Phone.DefaultRegion))
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// Location resolves the configured calling-window timezone. Validate has
// already checked it parses.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Dialing.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

// optInt reads an optional integer env var; unset or unparsable yields 0
// and Validate applies the default.
func optInt(key string) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func optDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func validateHHMM(v string) error {
	parts := strings.Split(v, ":")
	if len(parts) != 2 {
		return fmt.Errorf("must be HH:MM, got %q", v)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return fmt.Errorf("hour out of range in %q", v)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return fmt.Errorf("minute out of range in %q", v)
	}
	return nil
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	for i, err := range errs {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(err.Error())
	}
	return errors.New(b.String())
}
