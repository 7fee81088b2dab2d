package services

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"eduadmin_go/config"
	"eduadmin_go/utils"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

const (
	overallStatusOK       = "ok"
	overallStatusDegraded = "degraded"
	overallStatusCritical = "critical"

	dependencyStatusUp       = "up"
	dependencyStatusDown     = "down"
	dependencyStatusDisabled = "disabled"

	defaultServiceName = "EduAdmin Dashboard"
	defaultVersion     = "1.0.0"
	defaultTimeout     = 1500 * time.Millisecond

	apiHealthPath = "/health"
)

// HealthService aggregates application health information for reporting endpoints.
// The institute API is the only critical dependency; the audit database and
// Redis only degrade the report.
type HealthService struct {
	serviceName string
	version     string
	startTime   time.Time
	timeout     time.Duration

	api   RestAPI
	db    *gorm.DB
	redis *redis.Client
}

// HealthReport represents the JSON response for health endpoints.
type HealthReport struct {
	Status        string             `json:"status"`
	Service       string             `json:"service"`
	Version       string             `json:"version"`
	Environment   string             `json:"environment"`
	Time          time.Time          `json:"time"`
	UptimeSeconds float64            `json:"uptime_seconds"`
	UptimeHuman   string             `json:"uptime_human"`
	Dependencies  []DependencyStatus `json:"dependencies"`
	Metrics       HealthMetrics      `json:"metrics"`
	Flags         HealthFlags        `json:"flags"`
	System        HealthSystem       `json:"system"`
}

// DependencyStatus captures the health of a single external dependency.
type DependencyStatus struct {
	Name      string                 `json:"name"`
	Status    string                 `json:"status"`
	LatencyMs int64                  `json:"latency_ms"`
	Error     string                 `json:"error,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// HealthMetrics captures runtime metrics for diagnostics.
type HealthMetrics struct {
	Goroutines int            `json:"goroutines"`
	Memory     MemoryMetrics  `json:"memory"`
	Database   *DatabaseStats `json:"database,omitempty"`
}

// MemoryMetrics captures Go memory statistics.
type MemoryMetrics struct {
	AllocBytes     uint64 `json:"alloc_bytes"`
	SysBytes       uint64 `json:"sys_bytes"`
	HeapAllocBytes uint64 `json:"heap_alloc_bytes"`
	HeapObjects    uint64 `json:"heap_objects"`
	NumGC          uint32 `json:"num_gc"`
}

// DatabaseStats captures statistics from the SQL connection pool.
type DatabaseStats struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

// HealthFlags exposes configuration that changes runtime behaviour.
type HealthFlags struct {
	SkipMigrate   bool   `json:"skip_migrate"`
	DocumentStore string `json:"document_store"`
	LinePayments  bool   `json:"line_payments"`
}

// HealthSystem exposes static information about the running system.
type HealthSystem struct {
	GoVersion string `json:"go_version"`
	GoOS      string `json:"go_os"`
	GoArch    string `json:"go_arch"`
}

// NewHealthService creates a HealthService probing the given dependencies.
// db and rdb may be nil.
func NewHealthService(serviceName, version string, api RestAPI, db *gorm.DB, rdb *redis.Client) *HealthService {
	if strings.TrimSpace(serviceName) == "" {
		serviceName = defaultServiceName
	}
	if strings.TrimSpace(version) == "" {
		version = defaultVersion
	}

	return &HealthService{
		serviceName: serviceName,
		version:     version,
		startTime:   time.Now(),
		timeout:     defaultTimeout,
		api:         api,
		db:          db,
		redis:       rdb,
	}
}

// SetTimeout overrides the timeout used when probing dependencies.
func (s *HealthService) SetTimeout(d time.Duration) {
	if d > 0 {
		s.timeout = d
	}
}

// GetHealthReport collects the current health information.
func (s *HealthService) GetHealthReport(ctx context.Context) HealthReport {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	report := HealthReport{
		Status:      overallStatusOK,
		Service:     s.serviceName,
		Version:     s.version,
		Environment: currentEnvironment(),
		Time:        time.Now().UTC(),
	}

	uptime := time.Since(s.startTime)
	report.UptimeSeconds = uptime.Seconds()
	report.UptimeHuman = humanizeDuration(uptime)

	apiDep, apiStatus := s.checkAPI(ctx)
	dbDep, dbStats, dbStatus := s.checkDatabase(ctx)
	redisDep, redisStatus := s.checkRedis(ctx)

	report.Dependencies = []DependencyStatus{apiDep, dbDep, redisDep}
	for _, st := range []string{apiStatus, dbStatus, redisStatus} {
		report.Status = combineStatus(report.Status, st)
	}

	report.Metrics = collectSystemMetrics(dbStats)
	report.Flags = collectFlags()
	report.System = HealthSystem{
		GoVersion: runtime.Version(),
		GoOS:      runtime.GOOS,
		GoArch:    runtime.GOARCH,
	}
	return report
}

// HTTPStatusForOverall maps a health status to an HTTP status code.
func (s *HealthService) HTTPStatusForOverall(status string) int {
	if status == overallStatusCritical {
		return 503
	}
	return 200
}

// checkAPI treats any HTTP answer, including 404, as reachable.
func (s *HealthService) checkAPI(ctx context.Context) (DependencyStatus, string) {
	dep := DependencyStatus{Name: "institute_api"}
	if s.api == nil {
		dep.Status = dependencyStatusDown
		dep.Error = "api client not configured"
		return dep, overallStatusCritical
	}

	start := time.Now()
	_, err := s.api.Get(ctx, apiHealthPath, nil)
	dep.LatencyMs = time.Since(start).Milliseconds()

	if err != nil && utils.IsTransport(err) {
		dep.Status = dependencyStatusDown
		dep.Error = err.Error()
		return dep, overallStatusCritical
	}
	dep.Status = dependencyStatusUp
	return dep, overallStatusOK
}

func (s *HealthService) checkDatabase(ctx context.Context) (DependencyStatus, *DatabaseStats, string) {
	dep := DependencyStatus{Name: "mysql"}
	if s.db == nil {
		dep.Status = dependencyStatusDisabled
		return dep, nil, overallStatusDegraded
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		dep.Status = dependencyStatusDown
		dep.Error = fmt.Sprintf("sql DB handle error: %v", err)
		return dep, nil, overallStatusDegraded
	}

	start := time.Now()
	err = sqlDB.PingContext(ctx)
	dep.LatencyMs = time.Since(start).Milliseconds()
	if err != nil {
		dep.Status = dependencyStatusDown
		dep.Error = err.Error()
		return dep, nil, overallStatusDegraded
	}

	dep.Status = dependencyStatusUp
	stats := sqlDB.Stats()
	return dep, &DatabaseStats{
		OpenConnections: stats.OpenConnections,
		InUse:           stats.InUse,
		Idle:            stats.Idle,
		WaitCount:       stats.WaitCount,
	}, overallStatusOK
}

func (s *HealthService) checkRedis(ctx context.Context) (DependencyStatus, string) {
	dep := DependencyStatus{Name: "redis"}
	if s.redis == nil {
		dep.Status = dependencyStatusDisabled
		return dep, overallStatusOK
	}

	start := time.Now()
	err := s.redis.Ping(ctx).Err()
	dep.LatencyMs = time.Since(start).Milliseconds()
	if err != nil {
		dep.Status = dependencyStatusDown
		dep.Error = err.Error()
		return dep, overallStatusDegraded
	}

	dep.Status = dependencyStatusUp
	dep.Details = map[string]interface{}{"address": s.redis.Options().Addr}
	return dep, overallStatusOK
}

func collectSystemMetrics(dbStats *DatabaseStats) HealthMetrics {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return HealthMetrics{
		Goroutines: runtime.NumGoroutine(),
		Memory: MemoryMetrics{
			AllocBytes:     mem.Alloc,
			SysBytes:       mem.Sys,
			HeapAllocBytes: mem.HeapAlloc,
			HeapObjects:    mem.HeapObjects,
			NumGC:          mem.NumGC,
		},
		Database: dbStats,
	}
}

func collectFlags() HealthFlags {
	if config.AppConfig == nil {
		return HealthFlags{}
	}
	return HealthFlags{
		SkipMigrate:   config.AppConfig.SkipMigrate,
		DocumentStore: config.AppConfig.DocumentStore,
		LinePayments:  config.AppConfig.LineChannelToken != "" && config.AppConfig.LinePaymentGroupID != "",
	}
}

func currentEnvironment() string {
	if config.AppConfig == nil {
		return "unknown"
	}
	env := strings.TrimSpace(config.AppConfig.AppEnv)
	if env == "" {
		return "unknown"
	}
	return env
}

func combineStatus(current, candidate string) string {
	order := map[string]int{
		overallStatusOK:       0,
		overallStatusDegraded: 1,
		overallStatusCritical: 2,
	}
	if v, ok := order[candidate]; ok && v > order[current] {
		return candidate
	}
	return current
}

func humanizeDuration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}

	d = d.Round(time.Second)
	days := d / (24 * time.Hour)
	d %= 24 * time.Hour
	hours := d / time.Hour
	d %= time.Hour
	minutes := d / time.Minute
	d %= time.Minute
	seconds := d / time.Second

	parts := []string{}
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if seconds > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%ds", seconds))
	}
	return strings.Join(parts, " ")
}
