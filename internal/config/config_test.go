package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(NewViper())
	if err != nil {
		t.Fatalf("expected defaults to load, got %v", err)
	}
	if cfg.DatabaseDriver != DriverSQLite || cfg.DatabasePath != defaultDatabasePath {
		t.Fatalf("unexpected database defaults: %+v", cfg)
	}
	if len(cfg.WatchedAssignees) != 1 || cfg.WatchedAssignees[0] != "Morgan" {
		t.Fatalf("unexpected watched assignees: %v", cfg.WatchedAssignees)
	}
	if cfg.MessagePrefix != "New inspection created: " {
		t.Fatalf("unexpected message prefix %q", cfg.MessagePrefix)
	}
	if cfg.KafkaEnabled() {
		t.Fatalf("expected kafka disabled without brokers")
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("SITEBOOK_NOTIFICATIONS_WATCHED_ASSIGNEES", "Morgan, Jordan")
	t.Setenv("SITEBOOK_KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("SITEBOOK_DATABASE_DRIVER", "Postgres")
	t.Setenv("SITEBOOK_DATABASE_DSN", "host=db user=sitebook dbname=sitebook")

	cfg, err := Load(NewViper())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(cfg.WatchedAssignees) != 2 || cfg.WatchedAssignees[1] != "Jordan" {
		t.Fatalf("unexpected watched assignees: %v", cfg.WatchedAssignees)
	}
	if !cfg.KafkaEnabled() || len(cfg.KafkaBrokers) != 2 {
		t.Fatalf("unexpected kafka brokers: %v", cfg.KafkaBrokers)
	}
	if cfg.DatabaseDriver != DriverPostgres {
		t.Fatalf("expected postgres driver, got %q", cfg.DatabaseDriver)
	}
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	cases := map[string]map[string]any{
		"unknown driver":        {"database.driver": "mysql"},
		"postgres without dsn":  {"database.driver": "postgres"},
		"prefix without colon":  {messagePrefixKey: "New inspection created "},
		"prefix with two marks": {messagePrefixKey: "Alert: new: "},
		"no watched assignees":  {watchedAssigneesKey: []string{" "}},
		"zero burst":            {"ratelimit.burst": 0},
	}
	for name, overrides := range cases {
		t.Run(name, func(t *testing.T) {
			configViper := NewViper()
			for key, value := range overrides {
				configViper.Set(key, value)
			}
			if _, err := Load(configViper); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
