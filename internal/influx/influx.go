package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"
	"github.com/squadlab/posrating/internal/config"
	"github.com/squadlab/posrating/internal/logging"
	"github.com/squadlab/posrating/pkg/core"
)

// Bucket names.
const (
	BucketRatings     = "player_ratings"
	BucketPerformance = "service_performance"
)

// DefaultBucketNames are the InfluxDB buckets created on connect.
var DefaultBucketNames = []string{
	BucketRatings,
	BucketPerformance,
}

// Manager handles InfluxDB connections and writes. When the server cannot be
// reached, points are appended as line protocol to a gzip backup file.
type Manager struct {
	Client       influxdb2.Client
	Writers      map[string]influxdb2_api.WriteAPI
	BackupWriter *gzip.Writer
	IsValid      bool
	BucketNames  []string
	Logger       zerolog.Logger

	cfg        config.InfluxConfig
	backupFile *os.File
}

// NewManager creates a new InfluxDB manager.
func NewManager(log zerolog.Logger, cfg config.InfluxConfig) *Manager {
	return &Manager{
		Writers:     make(map[string]influxdb2_api.WriteAPI),
		IsValid:     false,
		BucketNames: DefaultBucketNames,
		Logger:      log,
		cfg:         cfg,
	}
}

// Connect establishes a connection to InfluxDB.
func (m *Manager) Connect(ctx context.Context) error {
	if !m.cfg.Enabled {
		return errors.New("influx.enabled is false")
	}

	m.Client = influxdb2.NewClientWithOptions(
		fmt.Sprintf("%s://%s:%s", m.cfg.Protocol, m.cfg.Host, m.cfg.Port),
		m.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(500).
			SetFlushInterval(1000),
	)

	running, err := m.Client.Ping(ctx)
	if err != nil || !running {
		m.IsValid = false
		if m.BackupWriter == nil {
			m.Logger.Info().Str("backupPath", m.cfg.BackupPath).
				Msg("Failed to initialize InfluxDB client, writing to backup file")

			file, err := os.OpenFile(m.cfg.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
			if err != nil {
				return fmt.Errorf("error creating backup file: %w", err)
			}
			m.backupFile = file
			m.BackupWriter = gzip.NewWriter(file)
		}
		m.Logger.Warn().Msg("InfluxDB client failed to initialize, using backup writer")
		return nil
	}

	m.IsValid = true
	if err := m.setupOrganizationAndBuckets(ctx); err != nil {
		return err
	}
	m.CreateWriters()
	m.Logger.Info().Msg("InfluxDB client initialized")
	return nil
}

func (m *Manager) setupOrganizationAndBuckets(ctx context.Context) error {
	orgName := m.cfg.Org

	influxOrg, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Info().Str("org", orgName).Msg("Organization not found, creating")
		influxOrg, err = m.Client.OrganizationsAPI().CreateOrganizationWithName(ctx, orgName)
		if err != nil {
			m.Logger.Error().Err(err).Str("org", orgName).Msg("Error creating organization")
			return err
		}
	}

	// ratings are kept for a year
	for _, bucket := range m.BucketNames {
		if _, err = m.Client.BucketsAPI().FindBucketByName(ctx, bucket); err == nil {
			continue
		}
		m.Logger.Info().Str("bucket", bucket).Msg("Bucket not found, creating")

		rule := domain.RetentionRuleTypeExpire
		_, err = m.Client.BucketsAPI().CreateBucketWithName(ctx, influxOrg, bucket, domain.RetentionRule{
			Type:         &rule,
			EverySeconds: 60 * 60 * 24 * 365,
		})
		if err != nil {
			m.Logger.Error().Err(err).Str("bucket", bucket).Msg("Error creating bucket")
			return err
		}
	}

	return nil
}

// CreateWriters creates write APIs for all configured buckets.
func (m *Manager) CreateWriters() {
	for _, bucket := range m.BucketNames {
		m.Writers[bucket] = m.Client.WriteAPI(m.cfg.Org, bucket)

		errorsCh := m.Writers[bucket].Errors()
		go func(bucketName string, errorsCh <-chan error) {
			for writeErr := range errorsCh {
				m.Logger.Error().Err(writeErr).Str("bucket", bucketName).
					Msg("Error sending data to InfluxDB")
			}
		}(bucket, errorsCh)
	}

	m.Logger.Debug().Msg("InfluxDB writers initialized")
}

// WritePoint writes a point to InfluxDB or backup file.
func (m *Manager) WritePoint(_ context.Context, bucket string, point *influxdb2_write.Point) error {
	if m.IsValid {
		w, ok := m.Writers[bucket]
		if !ok {
			return fmt.Errorf("influxDB bucket '%s' not registered", bucket)
		}
		w.WritePoint(point)
		return nil
	}

	if m.BackupWriter == nil {
		return fmt.Errorf("influxDB client not initialized and backup writer not available")
	}

	// PointToLineProtocol terminates the line itself
	lineProtocol := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if _, err := m.BackupWriter.Write([]byte(lineProtocol)); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// WriteReport writes one point per rated position plus a summary point.
func (m *Manager) WriteReport(ctx context.Context, r *core.RatingReport) error {
	for _, p := range ReportPoints(r) {
		if err := m.WritePoint(ctx, BucketRatings, p); err != nil {
			return err
		}
	}
	return nil
}

// WriteDuration records how long a rating run took.
func (m *Manager) WriteDuration(ctx context.Context, source string, d time.Duration, ok bool) error {
	p := influxdb2_write.NewPointWithMeasurement("rating_run").
		AddTag("source", source).
		AddTag("ok", strconv.FormatBool(ok)).
		AddField("duration_ms", float64(d.Microseconds())/1000).
		SetTime(time.Now())
	return m.WritePoint(ctx, BucketPerformance, p)
}

// WriteStatus records a service status snapshot.
func (m *Manager) WriteStatus(ctx context.Context, fields map[string]any) error {
	p := influxdb2_write.NewPoint("service_status",
		map[string]string{"service": logging.ServiceName}, fields, time.Now())
	return m.WritePoint(ctx, BucketPerformance, p)
}

// Close flushes pending writes and closes the client and backup file.
func (m *Manager) Close() error {
	for _, w := range m.Writers {
		w.Flush()
	}
	if m.Client != nil {
		m.Client.Close()
	}

	var errs []error
	if m.BackupWriter != nil {
		errs = append(errs, m.BackupWriter.Close())
		m.BackupWriter = nil
	}
	if m.backupFile != nil {
		errs = append(errs, m.backupFile.Close())
		m.backupFile = nil
	}
	return errors.Join(errs...)
}

// ReportPoints converts a report into InfluxDB points timestamped at RatedAt.
func ReportPoints(r *core.RatingReport) []*influxdb2_write.Point {
	playerID := strconv.FormatUint(uint64(r.PlayerID), 10)
	points := make([]*influxdb2_write.Point, 0, len(r.Ratings)+1)

	for _, pr := range r.Ratings {
		p := influxdb2_write.NewPointWithMeasurement("position_rating").
			AddTag("player_id", playerID).
			AddTag("position", pr.Position.String()).
			AddTag("familiarity", pr.Familiarity.String()).
			AddTag("tables_version", r.TablesVersion).
			AddField("rating", pr.Rating).
			AddField("difference", pr.Difference).
			AddField("weighted_sum", pr.WeightedSum).
			SetTime(r.RatedAt)
		points = append(points, p)
	}

	summary := influxdb2_write.NewPointWithMeasurement("player_best").
		AddTag("player_id", playerID).
		AddTag("primary", r.Primary.String()).
		AddTag("best", r.Best.String()).
		AddField("overall_discrepancy", r.OverallDiscrepancy).
		AddField("warnings", len(r.Warnings)).
		SetTime(r.RatedAt)
	if best, ok := r.RatingFor(r.Best); ok {
		summary.AddField("best_rating", best.Rating)
	}
	points = append(points, summary)

	return points
}
