package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		App:   AppConfig{Env: "local", Port: 8080},
		DB:    DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "dialout"},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		Auth:  AuthConfig{JWTSecret: "secret"},
		Vapi:  VapiConfig{APIKey: "key", PhoneNumberID: "pn-1"},
	}
}

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	c := Config{}
	err := c.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	msg := err.Error()
	for _, want := range []string{"APP_ENV", "DB_HOST", "REDIS_HOST", "JWT_SECRET", "VAPI_API_KEY"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error should mention %s: %v", want, msg)
		}
	}
}

func TestValidate_AppliesDialingDefaults(t *testing.T) {
	c := validConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.Dialing.MaxConcurrentCalls != 5 || c.Dialing.MaxCallsPerHour != 50 || c.Dialing.MaxCallsPerDay != 200 {
		t.Fatalf("cap defaults not applied: %+v", c.Dialing)
	}
	if c.Dialing.MaxRetries != 2 {
		t.Fatalf("retry ceiling default not applied: %d", c.Dialing.MaxRetries)
	}
	if c.Dialing.WindowStart != "09:00" || c.Dialing.WindowEnd != "17:30" {
		t.Fatalf("window defaults not applied: %+v", c.Dialing)
	}
	if c.Dialing.RetryDelay != 4*time.Hour || c.Dialing.PacingDelay != 2*time.Second {
		t.Fatalf("delay defaults not applied: %+v", c.Dialing)
	}
	if c.Auth.SessionTTL != 30*24*time.Hour {
		t.Fatalf("session TTL default not applied: %v", c.Auth.SessionTTL)
	}
	if c.Usage.MonthlyCallLimit != 1000 {
		t.Fatalf("quota default not applied: %d", c.Usage.MonthlyCallLimit)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
}

func TestValidate_ProductionRequiresSSLModeAndSecrets(t *testing.T) {
	c := validConfig()
	c.App.Env = "production"
	err := c.Validate()
	if err == nil {
		t.Fatalf("expected error for production without DB_SSLMODE")
	}
	msg := err.Error()
	for _, want := range []string{"DB_SSLMODE", "JWT_ISSUER", "VAPI_WEBHOOK_SECRET"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error should mention %s: %v", want, msg)
		}
	}
}

func TestValidate_RejectsBadWindow(t *testing.T) {
	cases := []struct{ start, end string }{
		{"9am", "17:30"},
		{"09:00", "25:00"},
		{"09:60", "17:30"},
		{"09", "17:30"},
	}
	for _, tc := range cases {
		c := validConfig()
		c.Dialing.WindowStart = tc.start
		c.Dialing.WindowEnd = tc.end
		if err := c.Validate(); err == nil {
			t.Errorf("expected error for window %q-%q", tc.start, tc.end)
		}
	}
}

func TestValidate_RejectsBadTimezone(t *testing.T) {
	c := validConfig()
	c.Dialing.Timezone = "Neverland/Nowhere"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for unknown timezone")
	}
}

func TestLocation(t *testing.T) {
	c := validConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got := c.Location().String(); got != "Europe/London" {
		t.Fatalf("Location = %q", got)
	}
}
