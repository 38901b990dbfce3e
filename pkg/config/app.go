package config

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/launchkit/pkg/environment"
)

// Storage backends understood by App.Storage.
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
	StorageSQLite = "sqlite"
)

// App is the process-level configuration of a launchkit host.
type App struct {
	Environment string     `env:"APP_ENV" envDefault:"development"`
	ServiceName string     `env:"APP_NAME" envDefault:"launchkit"`
	LogLevel    slog.Level `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string     `env:"LOG_FORMAT" envDefault:"json"`

	Storage    string `env:"STORAGE" envDefault:"memory"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:"launchkit.db"`

	BootstrapFile string `env:"BOOTSTRAP_FILE"`

	DispatcherWorkers int `env:"DISPATCHER_WORKERS" envDefault:"4"`
	DispatcherQueue   int `env:"DISPATCHER_QUEUE" envDefault:"256"`
	ChangefeedBuffer  int `env:"CHANGEFEED_BUFFER" envDefault:"64"`

	SaveInterval    time.Duration `env:"SAVE_INTERVAL" envDefault:"30s"`
	ReportInterval  time.Duration `env:"REPORT_INTERVAL" envDefault:"5m"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	MetricsNamespace string `env:"METRICS_NAMESPACE" envDefault:"launchkit"`
	TopPriorities    int    `env:"REPORT_TOP_PRIORITIES" envDefault:"5"`
}

// Env returns the parsed runtime environment.
func (a App) Env() environment.Environment {
	return environment.Parse(a.Environment)
}
