package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"net/url"
	"os"
	"reflect"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/events"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/go-tooling/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/encoding/json"
	"github.com/vantage3d/vantage/featureflag"
	vhttp "github.com/vantage3d/vantage/http"
	"github.com/vantage3d/vantage/models"
	"github.com/vantage3d/vantage/pipeline"
	"github.com/vantage3d/vantage/smoketest"
	vwebsocket "github.com/vantage3d/vantage/websocket"
	"golang.org/x/net/websocket"
)

var (
	// The Vantage version number. Set at build.
	version = "v0.1.0"

	infoGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name:        "vantage_info",
		Help:        "Vantage information.",
		ConstLabels: prometheus.Labels{"version": version},
	})
)

// Keeps the config field names when the binary is obfuscated, the cli
// package derives option names from them.
var _ = reflect.TypeOf(config{})

type config struct {
	Addr               string        `cli:""        env:"VANTAGE_ADDR"                 help:"Listening address for viewer connections."`
	AdminAddr          string        `cli:""        env:"VANTAGE_ADMIN_ADDR"           help:"Admin listening address."`
	PublicEndpoint     string        `cli:""        env:"VANTAGE_PUBLIC_ENDPOINT"      help:"The public endpoint where this server is reachable."`
	ScenePath          string        `cli:""        env:"VANTAGE_SCENE_PATH"           help:"The JSON file describing the scene elements."`
	CullingConfigPath  string        `cli:""        env:"VANTAGE_CULLING_CONFIG_PATH"  help:"The JSON file with the culling configuration. Defaults are used when empty."`
	Workers            int           `cli:""        env:"VANTAGE_WORKERS"              help:"The number of goroutines testing visibility for each viewer. Overrides the culling configuration when set."`
	LogLevel           string        `cli:""        env:"VANTAGE_LOG_LEVEL"            help:"Log level (debug|info|warning|error)."`
	LogIndent          bool          `cli:""        env:"VANTAGE_LOG_INDENT"           help:"Indent logs."`
	ClientIdleTimeout  time.Duration `cli:",hidden" env:"VANTAGE_CLIENT_IDLE_TIMEOUT"  help:"Time until an idle viewer will be disconnected."`
	LogSummaryInterval time.Duration `cli:",hidden" env:"VANTAGE_LOG_SUMMARY_INTERVAL" help:"The duration between each log summary by connection."`
	ShutdownTimeout    time.Duration `cli:",hidden" env:"VANTAGE_SHUTDOWN_TIMEOUT"     help:"The time given to in-flight requests when the server stops."`
	Events             eventsConfig  `cli:",hidden" env:"-"                            help:"Event pusher configuration."`
	FeatureFlags       []string      `cli:",hidden" env:"VANTAGE_FEATURE_FLAGS"        help:"Comma separated feature flags."`
	Version            bool          `cli:""        env:"-"                            help:"Show version."`
	Help               bool          `cli:""        env:"-"                            help:"Show help."`
}

type eventsConfig struct {
	Endpoint      string        `cli:",hidden" env:"VANTAGE_EVENTS_ENDPOINT"       help:"Endpoint to where log events are pushed. Disabled when empty."`
	FlushInterval time.Duration `cli:",hidden" env:"VANTAGE_EVENTS_FLUSH_INTERVAL" help:"The duration between each event flush."`
	BatchSize     int           `cli:",hidden" env:"VANTAGE_EVENTS_BATCH_SIZE"     help:"The maximum number of events sent at once."`
	QueueSize     int           `cli:",hidden" env:"VANTAGE_EVENTS_QUEUE_SIZE"     help:"The size of the queue where events are stored."`
}

func main() {
	conf := config{
		Addr:               ":4000",
		AdminAddr:          ":18190",
		PublicEndpoint:     "http://localhost:4000",
		LogLevel:           logs.InfoLevel.String(),
		ClientIdleTimeout:  time.Minute * 5,
		LogSummaryInterval: time.Minute,
		ShutdownTimeout:    vhttp.DefaultShutdownTimeout,
		Events: eventsConfig{
			FlushInterval: events.DefaultFlushInterval,
			BatchSize:     events.DefaultBatchSize,
			QueueSize:     events.DefaultQueueSize,
		},
	}

	// set the information gauge to 1, useful for SUM query
	infoGauge.Set(1)

	ctx, cancel := cli.ContextWithSignals(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	cli.Register().
		Help("Starts the Vantage culling server.").
		Options(&conf)
	cli.Load()

	if conf.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := validateConfig(conf); err != nil {
		logs.Fatal(err)
	}

	logs.SetLevel(logs.ParseLevel(conf.LogLevel))
	logs.Encoder = json.Marshal
	if conf.LogIndent {
		logs.Encoder = func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}
	}

	errors.Encoder = json.Marshal

	if conf.Events.Endpoint != "" {
		eventsPusher := events.Pusher{
			Endpoint:      conf.Events.Endpoint,
			FlushInterval: conf.Events.FlushInterval,
			BatchSize:     conf.Events.BatchSize,
			QueueSize:     conf.Events.QueueSize,
			Transport:     metrics.HTTPTransport(http.DefaultTransport),
		}
		go eventsPusher.Start()
		defer eventsPusher.Close()

		eventsLogger := events.Logger{
			Pusher:           &eventsPusher,
			SDKType:          "vantage",
			SDKVersionFamily: version,
		}
		logs.SetLogger(eventsLogger.Log)
	}

	featureFlags := featureflag.New(conf.FeatureFlags)
	if unknown := featureFlags.Unknown(); len(unknown) != 0 {
		logs.Warn(errors.New("unknown feature flags").WithTag("flags", unknown))
	}

	cullingConfig, err := loadCullingConfig(conf)
	if err != nil {
		logs.Fatal(errors.New("loading culling config failed").Wrap(err))
	}

	scene, err := loadScene(conf)
	if err != nil {
		logs.Fatal(errors.New("loading scene failed").Wrap(err))
	}

	var ready atomic.Bool

	var service http.ServeMux
	service.Handle("/health", vhttp.HandleWithCORS(http.HandlerFunc(vhttp.HandleHealthCheck)))
	service.Handle("/version", vhttp.HandleWithCORS(vhttp.HandleVersion(version)))
	service.Handle("/ready", vhttp.HandleWithCORS(vhttp.HandleReadyCheck(ready.Load)))
	service.Handle("/scene", vhttp.HandleWithCORS(vhttp.HandleScene(scene)))
	service.Handle("/config", vhttp.HandleWithCORS(vhttp.HandleConfig(cullingConfig.WithFeatureFlags(featureFlags))))

	service.Handle("/", websocket.Server{
		Handler: func(conn *websocket.Conn) {
			defer conn.Close()

			var h vwebsocket.Handler = &vwebsocket.ViewerHandler{
				ClientIdleTimeout: conf.ClientIdleTimeout,
				Scene:             scene,
				Config:            cullingConfig,
				FeatureFlags:      featureFlags,
			}
			h = vwebsocket.HandlerWithLogs(h, conf.LogSummaryInterval)
			h = vwebsocket.HandlerWithMetrics(h, conf.PublicEndpoint)
			defer h.Close()

			vwebsocket.Handle(ctx, conn, h)
		},
	})

	var admin http.ServeMux
	admin.Handle("/metrics", promhttp.Handler())
	admin.HandleFunc("/health", vhttp.HandleHealthCheck)
	admin.HandleFunc("/ready", vhttp.HandleReadyCheck(ready.Load))
	admin.HandleFunc("/smoke-test", smoketest.HandleSmokeTest(ctx, smoketest.Options{
		Endpoint:  conf.PublicEndpoint,
		UserAgent: fmt.Sprintf("Vantage %s", version),
	}))
	admin.HandleFunc("/debug/pprof/", pprof.Index)
	admin.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	admin.HandleFunc("/debug/pprof/profile", pprof.Profile)
	admin.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	admin.HandleFunc("/debug/pprof/trace", pprof.Trace)
	admin.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
	admin.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	admin.Handle("/debug/pprof/threadcreate", pprof.Handler("threadcreate"))
	admin.Handle("/debug/pprof/block", pprof.Handler("block"))

	logs.WithTag("version", version).
		WithTag("log_level", conf.LogLevel).
		WithTag("endpoint", conf.PublicEndpoint).
		WithTag("scene_elements", scene.Len()).
		WithTag("scene_nodes", scene.NodeCount()).
		WithTag("feature_flags", featureFlags.List()).
		Info("starting vantage server")

	ready.Store(true)
	err = vhttp.Serve(ctx, conf.ShutdownTimeout,
		&http.Server{Addr: conf.Addr, Handler: metrics.HTTPHandler(&service,
			vhttp.MetricsPathFormatter)},
		&http.Server{Addr: conf.AdminAddr, Handler: &admin},
	)
	ready.Store(false)
	if err != nil {
		logs.Fatal(err)
	}
}

func loadCullingConfig(conf config) (pipeline.Config, error) {
	c := pipeline.DefaultConfig()
	if conf.CullingConfigPath != "" {
		var err error
		if c, err = pipeline.LoadConfigFile(conf.CullingConfigPath); err != nil {
			return pipeline.Config{}, err
		}
	}

	if conf.Workers > 0 {
		c.Workers = conf.Workers
	}
	return c, c.Validate()
}

func loadScene(conf config) (*models.Scene, error) {
	if conf.ScenePath == "" {
		logs.Warn(errors.New("no scene path, serving an empty scene"))
		return models.NewScene(), nil
	}
	return models.LoadSceneFile(conf.ScenePath)
}

func validateConfig(conf config) error {
	if _, err := url.ParseRequestURI(conf.PublicEndpoint); err != nil {
		return errors.New("invalid public endpoint").Wrap(err)
	}

	if conf.Workers < 0 {
		return errors.New("workers cannot be negative").WithTag("workers", conf.Workers)
	}

	if conf.ClientIdleTimeout <= 0 {
		return errors.New("client idle timeout must be positive").
			WithTag("client_idle_timeout", conf.ClientIdleTimeout)
	}

	if conf.LogSummaryInterval <= 0 {
		return errors.New("log summary interval must be positive").
			WithTag("log_summary_interval", conf.LogSummaryInterval)
	}
	return nil
}
