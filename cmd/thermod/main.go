package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/itohio/thermod/pkg/adc"
	"github.com/itohio/thermod/pkg/bus"
	"github.com/itohio/thermod/pkg/config"
	"github.com/itohio/thermod/pkg/engine"
	"github.com/itohio/thermod/pkg/metrics"
	"github.com/itohio/thermod/pkg/sensor"
)

func main() {
	var (
		configFlag  = flag.String("config", "thermod.yaml", "Configuration file path")
		catalogFlag = flag.String("catalog", "", "Sensor catalog directory (overrides config)")
		brokerFlag  = flag.String("broker", "", "MQTT broker URL override (e.g., tcp://localhost:1883)")
		mockFlag    = flag.Bool("mock", false, "Use mocked ADC instead of the hardware")
		traceFlag   = flag.Bool("trace", false, "Log every channel result")
	)
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *catalogFlag != "" {
		cfg.Catalog.Dir = *catalogFlag
	}
	if *brokerFlag != "" {
		cfg.MQTT.Broker = *brokerFlag
	}

	var catalog *sensor.Catalog
	if cfg.Catalog.Dir != "" {
		catalog, err = sensor.LoadDir(cfg.Catalog.Dir)
		if err != nil {
			log.Fatalf("Failed to load sensor catalog: %v", err)
		}
		for _, kind := range sensor.Kinds() {
			if defs := catalog.ByType(kind); len(defs) > 0 {
				log.Printf("Loaded %d %s sensors", len(defs), kind)
			}
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	obs, err := metrics.New(reg, cfg.Module.ID)
	if err != nil {
		log.Fatalf("Failed to register metrics: %v", err)
	}

	if cfg.Metrics.Addr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr, reg); err != nil {
				log.Printf("Metrics server exited: %v", err)
			}
		}()
	}

	open := adc.Open
	if *mockFlag {
		open = openMock
		log.Printf("Using mocked ADC")
	}

	for {
		restart, err := run(ctx, cfg, catalog, open, obs, *traceFlag)
		if err != nil {
			log.Fatalf("Module %d failed: %v", cfg.Module.ID, err)
		}
		if !restart || ctx.Err() != nil {
			break
		}
		log.Printf("Restarting module %d", cfg.Module.ID)
	}

	log.Printf("Module %d stopped", cfg.Module.ID)
}

// run drives one session: a fresh configuration surface, broker connection
// and engine. It reports whether a restart was requested.
func run(ctx context.Context, cfg *config.Config, catalog *sensor.Catalog, open engine.TransportFactory, obs engine.Observer, trace bool) (bool, error) {
	surface := engine.NewSurface(cfg.Module.ID, cfg.Device)
	if catalog != nil {
		surface.UpdateSensors(catalog)
	}

	var client *bus.Client
	eng := engine.New(surface, open, engine.PublisherFunc(func(r engine.ChannelResult) error {
		return client.Publish(r)
	}), engine.WithObserver(obs), engine.WithTrace(trace))

	client = bus.New(cfg.MQTT, surface, eng)
	log.Printf("Connecting module %d (%s) to %s", cfg.Module.ID, cfg.Module.Name, cfg.MQTT.Broker)
	if err := client.Connect(); err != nil {
		return false, err
	}
	defer func() {
		if err := client.Close(); err != nil {
			log.Printf("Failed to close MQTT client: %v", err)
		}
	}()

	if err := eng.Run(ctx); err != nil {
		return false, err
	}
	return eng.RestartRequested(), nil
}

// openMock returns an ADC whose channels read a little noise around mid
// scale.
func openMock(config.Device) (adc.Transport, error) {
	m := adc.NewMock()
	m.SetAll(2040, 2052, 2047, 2049, 4000, 2046, 2050, 10)
	return m, nil
}
