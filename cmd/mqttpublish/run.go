package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/mqtt-event-publisher/internal/codec"
	"github.com/nerrad567/mqtt-event-publisher/internal/encoder"
	"github.com/nerrad567/mqtt-event-publisher/internal/event"
	"github.com/nerrad567/mqtt-event-publisher/internal/infrastructure/config"
	"github.com/nerrad567/mqtt-event-publisher/internal/infrastructure/logging"
	"github.com/nerrad567/mqtt-event-publisher/internal/infrastructure/metrics"
	"github.com/nerrad567/mqtt-event-publisher/internal/infrastructure/mqtt"
	"github.com/nerrad567/mqtt-event-publisher/internal/publisher"
	"github.com/nerrad567/mqtt-event-publisher/internal/shutdown"
)

// metricsShutdownTimeout bounds the metrics server's graceful stop.
const metricsShutdownTimeout = 5 * time.Second

// newDialer is replaced in tests.
var newDialer = func(opts *mqtt.Options) mqtt.Dialer {
	return mqtt.NewConnector(opts)
}

type runOptions struct {
	configPath string
	inputPath  string
	verbose    bool
	// stdin is read when inputPath is "-". Defaults to os.Stdin.
	stdin io.Reader
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - opts: Command-line options
//
// Returns:
//   - error: nil when input ends or a signal arrives, or error describing failure
func run(ctx context.Context, opts runOptions) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting mqtt publisher",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if opts.verbose {
		cfg.Logging.Level = "debug"
	}

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", opts.configPath,
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	var (
		m        *metrics.Metrics
		registry *prometheus.Registry
	)
	if cfg.Metrics.Enabled {
		registry = prometheus.NewRegistry()
		if m, err = metrics.New(registry); err != nil {
			return fmt.Errorf("creating metrics: %w", err)
		}
	}

	mqttOpts, err := mqtt.BuildOptions(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("building MQTT options: %w", err)
	}

	c, err := codec.New(cfg.Codec.Name, cfg.Codec.Format)
	if err != nil {
		return fmt.Errorf("creating codec: %w", err)
	}
	enc, err := encoder.New(cfg.MQTT.Topic, c)
	if err != nil {
		return fmt.Errorf("creating encoder: %w", err)
	}

	stop := shutdown.New()
	pub, err := publisher.New(publisher.Options{
		Encoder:       enc,
		Dialer:        newDialer(mqttOpts),
		QoS:           byte(cfg.MQTT.QoS),
		Retain:        cfg.MQTT.Retain,
		RetryInterval: cfg.MQTT.GetConnectRetryInterval(),
		Logger:        log.Component("publisher"),
		Metrics:       m,
		Shutdown:      stop,
	})
	if err != nil {
		return fmt.Errorf("creating publisher: %w", err)
	}
	log.Info("publisher ready",
		"broker", mqttOpts.BrokerURL(),
		"client_id", mqttOpts.ClientID(),
		"topic", cfg.MQTT.Topic,
		"qos", cfg.MQTT.QoS,
	)

	var metricsErr <-chan error
	if registry != nil {
		metricsSrv, err := metrics.Listen(cfg.Metrics.Address, registry, func() error {
			if pub.State() == publisher.StateClosed {
				return publisher.ErrClosed
			}
			return nil
		})
		if err != nil {
			return err
		}
		metricsErr = metricsSrv.Serve()
		defer func() {
			log.Info("shutting down metrics server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
			defer cancel()
			if shutdownErr := metricsSrv.Shutdown(shutdownCtx); shutdownErr != nil {
				log.Warn("metrics server shutdown error", "error", shutdownErr)
			}
		}()
		log.Info("metrics server listening", "address", metricsSrv.Addr())
	}

	input, closeInput, err := openInput(opts)
	if err != nil {
		return err
	}
	defer closeInput()

	// inputDone ends the signal watcher once the input is exhausted.
	runCtx, inputDone := context.WithCancel(ctx)
	defer inputDone()

	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		defer inputDone()

		events := make(chan *event.Event, cfg.Input.BatchSize)
		readErr := make(chan error, 1)
		go func() { readErr <- readEvents(input, events) }()

		// Delivery ignores cancellation so that only Shutdown ends a backoff.
		deliverCtx := context.WithoutCancel(gctx)
		err := pump(gctx, events, cfg.Input.BatchSize, cfg.Input.GetFlushInterval(), func(batch []*event.Event) error {
			err := pub.ReceiveMany(deliverCtx, batch)
			switch {
			case err == nil:
				return nil
			case errors.Is(err, publisher.ErrClosed):
				log.Warn("publisher closed, events dropped", "dropped", len(batch))
				return err
			default:
				log.Warn("some events were rejected", "error", err)
				return nil
			}
		})
		if err != nil {
			return err
		}

		// pump only returns nil once events is closed, so the reader is done.
		if err := <-readErr; err != nil {
			log.Error("reading input", "error", err)
			return fmt.Errorf("reading input: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			log.Info("shutdown signal received")
		}
		pub.Shutdown()
		return nil
	})

	if metricsErr != nil {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return nil
			case err := <-metricsErr:
				if err != nil {
					return fmt.Errorf("metrics server error: %w", err)
				}
				return nil
			}
		})
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, publisher.ErrClosed) {
		err = nil
	}

	log.Info("shutdown complete", "undelivered", pub.Pending())
	return err
}

// openInput returns the configured event source and its close function.
func openInput(opts runOptions) (io.Reader, func(), error) {
	if opts.inputPath == "" || opts.inputPath == "-" {
		if opts.stdin != nil {
			return opts.stdin, func() {}, nil
		}
		return os.Stdin, func() {}, nil
	}

	f, err := os.Open(opts.inputPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening input: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}
