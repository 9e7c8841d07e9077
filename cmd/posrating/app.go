package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/squadlab/posrating/internal/api"
	"github.com/squadlab/posrating/internal/cache"
	"github.com/squadlab/posrating/internal/config"
	"github.com/squadlab/posrating/internal/dispatcher"
	"github.com/squadlab/posrating/internal/influx"
	"github.com/squadlab/posrating/internal/logging"
	intOtel "github.com/squadlab/posrating/internal/otel"
	"github.com/squadlab/posrating/internal/rating"
	"github.com/squadlab/posrating/internal/service"
	"github.com/squadlab/posrating/internal/storage"
	"github.com/squadlab/posrating/internal/worker"
)

// app holds everything a command needs. Components are created on demand so
// that e.g. `tables` never opens a database.
type app struct {
	sessionStart time.Time

	LogManager  *logging.SlogManager
	Logger      *slog.Logger
	logFile     io.WriteCloser
	logFilePath string
	otel        *intOtel.Provider
	gelfWriter  *gelf.Writer

	engine     *rating.Engine
	cache      *cache.PlayerCache
	backend    storage.Backend
	influx     *influx.Manager
	dispatcher *dispatcher.Dispatcher
	workers    *worker.Manager
	svc        *service.Service
}

// serviceOptions selects the optional parts of the service.
type serviceOptions struct {
	storage bool
	metrics bool
}

func newApp() (*app, error) {
	a := &app{sessionStart: time.Now()}
	if err := a.initLogging(); err != nil {
		return nil, err
	}
	return a, nil
}

// logWriter is where text logs go: the session log file or stderr.
func (a *app) logWriter() io.Writer {
	if a.logFile != nil {
		return a.logFile
	}
	return os.Stderr
}

func (a *app) initLogging() error {
	a.LogManager = logging.NewSlogManager()
	level := viper.GetString("logLevel")

	if dir := viper.GetString("logsDir"); dir != "" {
		f, path, err := logging.OpenLogFile(dir, ServiceName, a.sessionStart)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		a.logFile = f
		a.logFilePath = path
	}

	otelCfg := config.GetOTelConfig()
	var otelLogProvider *sdklog.LoggerProvider
	if otelCfg.Enabled {
		p, err := intOtel.New(intOtel.Config{
			Enabled:        otelCfg.Enabled,
			ServiceName:    otelCfg.ServiceName,
			BatchTimeout:   otelCfg.BatchTimeout,
			MetricInterval: otelCfg.MetricInterval,
			LogWriter:      a.logFile,
			Endpoint:       otelCfg.Endpoint,
			Insecure:       otelCfg.Insecure,
		})
		if err != nil {
			// keep going without telemetry
			fmt.Fprintf(os.Stderr, "Failed to initialize OTel provider: %v\n", err)
		} else {
			a.otel = p
			otelLogProvider = p.LoggerProvider()
		}
	}

	var extra []slog.Handler
	if viper.GetBool("graylog.enabled") {
		h, w, err := logging.NewGraylogHandler(viper.GetString("graylog.address"), level)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize Graylog handler: %v\n", err)
		} else {
			a.gelfWriter = w
			extra = append(extra, h)
		}
	}

	if a.logFile != nil {
		a.LogManager.Setup(a.logFile, level, otelLogProvider, extra...)
	} else {
		a.LogManager.Setup(nil, level, otelLogProvider, extra...)
	}
	a.Logger = a.LogManager.Logger()
	a.Logger.Info("Starting", "version", CurrentVersion, "build", BuildDate, "logFile", a.logFilePath)
	return nil
}

func (a *app) initEngine() error {
	if a.engine != nil {
		return nil
	}
	rc := config.GetRatingConfig()

	tables, err := rating.LoadTables(rc.TablesFile)
	if err != nil {
		return err
	}
	policy, err := rating.ParseOutOfRangePolicy(rc.OutOfRangePolicy)
	if err != nil {
		return err
	}

	a.engine, err = rating.New(
		rating.WithTables(tables),
		rating.WithOutOfRangePolicy(policy),
		rating.WithPrimaryOverride(rc.PrimaryOverride),
	)
	if err != nil {
		return err
	}
	a.Logger.Info("Rating engine ready",
		"tablesVersion", tables.Version,
		"tablesFile", rc.TablesFile,
		"policy", string(policy),
		"primaryOverride", rc.PrimaryOverride,
	)
	return nil
}

func (a *app) initService(ctx context.Context, opts serviceOptions) error {
	if err := a.initEngine(); err != nil {
		return err
	}

	a.cache = cache.NewPlayerCache(viper.GetDuration("api.cacheTTL"))
	client := api.NewWithTimeout(
		viper.GetString("api.serverUrl"),
		viper.GetString("api.apiKey"),
		viper.GetDuration("api.timeout"),
	)

	if opts.storage {
		backend, err := createStorageBackend(a, config.GetStorageConfig())
		if err != nil {
			a.Logger.Error("Failed to create storage backend", "error", err)
			return err
		}
		if err := backend.Init(); err != nil {
			a.Logger.Error("Failed to initialize storage backend", "error", err)
			return err
		}
		a.backend = backend
	}

	var sink worker.ReportSink
	if opts.metrics {
		if m := a.connectInflux(ctx); m != nil {
			a.influx = m
			sink = m
		}
	}

	if a.backend != nil || sink != nil {
		d, err := dispatcher.New(a.Logger)
		if err != nil {
			return fmt.Errorf("failed to create dispatcher: %w", err)
		}
		a.dispatcher = d
		a.workers = worker.NewManager(worker.Dependencies{
			LogManager: a.LogManager,
			Sink:       sink,
		}, a.backend)
		a.workers.RegisterHandlers(d)
		a.Logger.Debug("Worker handlers registered with dispatcher")
	}

	svc, err := service.New(service.Dependencies{
		Engine:     a.engine,
		Players:    client,
		Cache:      a.cache,
		Storage:    a.backend,
		Dispatcher: a.dispatcher,
		LogManager: a.LogManager,
	})
	if err != nil {
		return err
	}
	a.svc = svc
	return nil
}

// connectInflux returns a connected manager, or nil when InfluxDB is disabled
// or unusable.
func (a *app) connectInflux(ctx context.Context) *influx.Manager {
	cfg := config.GetInfluxConfig()
	if !cfg.Enabled {
		return nil
	}
	m := influx.NewManager(logging.NewZerolog(a.logWriter(), viper.GetString("logLevel"), "influx"), cfg)
	if err := m.Connect(ctx); err != nil {
		a.Logger.Error("Failed to set up InfluxDB", "error", err)
		return nil
	}
	return m
}

// Close drains queued reports and releases every component in reverse order
// of creation.
func (a *app) Close(ctx context.Context) error {
	var errs []error

	if a.dispatcher != nil {
		if err := a.dispatcher.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing storage: %w", err))
		}
		if e, ok := a.backend.(interface{ LastExportPath() string }); ok && e.LastExportPath() != "" {
			a.Logger.Info("Reports exported", "path", e.LastExportPath())
		}
	}
	if a.influx != nil {
		if err := a.influx.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing influx: %w", err))
		}
	}

	a.Logger.Info("Shutting down")

	if a.otel != nil {
		if err := a.otel.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutting down otel: %w", err))
		}
	}
	if a.gelfWriter != nil {
		if err := a.gelfWriter.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// shutdownContext bounds Close after the command's own context has ended.
func shutdownContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}
