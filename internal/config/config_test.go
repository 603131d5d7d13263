package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "STORAGE_DRIVER", "DATABASE_URL", "QUEST_EXPIRY_CRON", "LOCK_TIMEOUT", "RANDOM_SEED"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Port != "3001" {
		t.Errorf("Expected port 3001, got %s", cfg.Port)
	}
	if cfg.StorageDriver != DriverMemory {
		t.Errorf("Expected memory driver, got %s", cfg.StorageDriver)
	}
	if cfg.QuestExpiryCron != "*/15 * * * *" {
		t.Errorf("Expected 15 minute cron, got %s", cfg.QuestExpiryCron)
	}
	if cfg.LockTimeout != 5*time.Second {
		t.Errorf("Expected 5s lock timeout, got %v", cfg.LockTimeout)
	}
	if cfg.RandomSeed != 0 {
		t.Errorf("Expected clock seed, got %d", cfg.RandomSeed)
	}
}

func TestLoad_DriverFromDatabaseURL(t *testing.T) {
	tests := []struct {
		name     string
		driver   string
		url      string
		expected string
	}{
		{"mysql url", "", "mysql://u:p@localhost:3306/dytto", DriverMySQL},
		{"sqlite url", "", "sqlite://dytto.db", DriverSQLite},
		{"explicit driver wins", "mongo", "sqlite://dytto.db", DriverMongo},
		{"no url", "", "", DriverMemory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("STORAGE_DRIVER", tt.driver)
			t.Setenv("DATABASE_URL", tt.url)

			if got := Load().StorageDriver; got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestGetDurationEnv(t *testing.T) {
	tests := []struct {
		value    string
		expected time.Duration
	}{
		{"90s", 90 * time.Second},
		{"120", 2 * time.Minute},
		{"nonsense", time.Minute},
		{"", time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("DYTTO_TEST_DURATION", tt.value)
			if got := getDurationEnv("DYTTO_TEST_DURATION", time.Minute); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestOrigins(t *testing.T) {
	cfg := &Config{AllowedOrigins: " http://a.test ,,http://b.test"}
	origins := cfg.Origins()
	if len(origins) != 2 || origins[0] != "http://a.test" || origins[1] != "http://b.test" {
		t.Errorf("Unexpected origins: %v", origins)
	}
}

func TestLoad_AdminUserIDs(t *testing.T) {
	t.Setenv("ADMIN_USER_IDS", "user-1, user-2,")
	ids := Load().AdminUserIDs
	if len(ids) != 2 || ids[0] != "user-1" || ids[1] != "user-2" {
		t.Errorf("Expected [user-1 user-2], got %v", ids)
	}
}
