package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/voltix/agent/internal/alerts"
	"github.com/voltix/agent/internal/api"
	"github.com/voltix/agent/internal/config"
	"github.com/voltix/agent/internal/events"
	"github.com/voltix/agent/internal/heal"
	"github.com/voltix/agent/internal/intent"
	"github.com/voltix/agent/internal/monitor"
	"github.com/voltix/agent/internal/netdrv"
	"github.com/voltix/agent/internal/sim"
	"github.com/voltix/agent/pkg/trust"
)

func main() {
	cfg := config.Load()
	log.Printf("Voltix Mechanic Agent v%s starting", config.Version)

	driver := netdrv.Detect()
	log.Printf("Network driver ready (adapter: %s)", driver.AdapterName())

	bus := events.NewBus()
	if cfg.RedisAddr != "" {
		sink, err := events.NewRedisSink(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, "voltix:events")
		if err != nil {
			log.Printf("Redis event sink unavailable: %v", err)
		} else {
			bus.AttachSink(sink)
			log.Printf("Redis event sink attached (%s)", cfg.RedisAddr)
		}
	}

	alertStore := alerts.NewStore()
	alertStore.SetEmitter(bus)

	audit := intent.NewAuditLog()
	audit.SetEmitter(bus)

	pipeline := intent.NewPipeline(intent.Config{
		UserID:        cfg.UserID,
		AgentID:       cfg.AgentID,
		SigningSecret: cfg.SigningSecret,
		TrustEnabled:  cfg.TrustEnabled(),
		NewClient: func() (intent.TrustClient, error) {
			return trust.NewClient(trust.Config{
				BaseURL: cfg.TrustBaseURL,
				APIKey:  cfg.TrustAPIKey,
				UserID:  cfg.UserID,
				AgentID: cfg.AgentID,
			}), nil
		},
	}, audit, intent.NewCounters(), alertStore)

	if cfg.TrustEnabled() {
		log.Println("Intent verification: production trust service")
	} else {
		log.Println("Intent verification: local simulation (no trust credential)")
	}

	bus.Emit(events.TypeStatus, "agent", map[string]interface{}{
		"version": config.Version,
		"adapter": driver.AdapterName(),
		"trust":   cfg.TrustEnabled(),
	})

	healer := heal.NewEngine(alertStore, pipeline)
	simulator := sim.New(driver, alertStore, pipeline)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go monitor.New(driver, alertStore).Run(ctx)

	if cfg.DemoMode {
		log.Println("[DemoMode] background failure generator ACTIVE")
		go simulator.RunDemoLoop(ctx)
	}

	server := api.NewServer(cfg, driver, alertStore, pipeline, healer, simulator, bus)
	if err := server.Start(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	log.Println("Agent stopped")
}
