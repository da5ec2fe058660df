package update

import (
	"os"
	"strconv"
	"strings"
	"time"

	"planvoice/internal/scheduler"
)

type RuntimeConfig struct {
	DBPath          string
	PollSeconds     int
	BackoffSeconds  int
	LeadSeconds     int
	GraceSeconds    int
	AnnounceSeconds int
	SchedulerBuffer int
}

func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		DBPath:          "planvoice.db",
		PollSeconds:     30,
		BackoffSeconds:  60,
		LeadSeconds:     60,
		GraceSeconds:    180,
		AnnounceSeconds: 2,
		SchedulerBuffer: 16,
	}
}

func RuntimeConfigFromEnv(base RuntimeConfig) RuntimeConfig {
	cfg := base
	if v := strings.TrimSpace(os.Getenv("PLANVOICE_DB_PATH")); v != "" {
		cfg.DBPath = v
	}
	if v, ok := getEnvInt("PLANVOICE_POLL_SECONDS"); ok && v > 0 {
		cfg.PollSeconds = v
	}
	if v, ok := getEnvInt("PLANVOICE_BACKOFF_SECONDS"); ok && v > 0 {
		cfg.BackoffSeconds = v
	}
	if v, ok := getEnvInt("PLANVOICE_LEAD_SECONDS"); ok && v > 0 {
		cfg.LeadSeconds = v
	}
	if v, ok := getEnvInt("PLANVOICE_GRACE_SECONDS"); ok && v > 0 {
		cfg.GraceSeconds = v
	}
	if v, ok := getEnvInt("PLANVOICE_ANNOUNCE_SECONDS"); ok && v > 0 {
		cfg.AnnounceSeconds = v
	}
	if v, ok := getEnvInt("PLANVOICE_SCHEDULER_BUFFER"); ok && v > 0 {
		cfg.SchedulerBuffer = v
	}
	return cfg
}

// SchedulerConfig translates the runtime settings into the engine's.
func (c RuntimeConfig) SchedulerConfig() scheduler.Config {
	return scheduler.Config{
		PollInterval:  time.Duration(c.PollSeconds) * time.Second,
		ErrorBackoff:  time.Duration(c.BackoffSeconds) * time.Second,
		StartLead:     time.Duration(c.LeadSeconds) * time.Second,
		Grace:         time.Duration(c.GraceSeconds) * time.Second,
		AnnounceDelay: time.Duration(c.AnnounceSeconds) * time.Second,
		BufferSize:    c.SchedulerBuffer,
	}
}

// AnnounceDelay is the dialog's next-plan announcement delay.
func (c RuntimeConfig) AnnounceDelay() time.Duration {
	return time.Duration(c.AnnounceSeconds) * time.Second
}

func getEnvInt(name string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}
