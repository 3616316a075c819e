package app

import (
	"context"

	"github.com/planforge/planforge-backend/internal/platform/logger"
	"github.com/planforge/planforge-backend/internal/realtime"
	"github.com/planforge/planforge-backend/internal/realtime/bus"
	"github.com/planforge/planforge-backend/internal/services"
)

type Services struct {
	Document services.DocumentService

	// SyncBus is nil when Redis is disabled or unreachable; the app then
	// degrades to single-instance mode on the local hub alone.
	SyncBus bus.Bus
}

func wireServices(log *logger.Logger, cfg Config, repos Repos, sseHub *realtime.SSEHub) Services {
	log.Info("Wiring services...")

	// With the bus up, events go out through Redis and come back to the hub
	// via the forwarder, once per instance. Without it we emit straight to
	// the local hub.
	var emitter services.SSEEmitter = &services.HubEmitter{Hub: sseHub}
	var syncBus bus.Bus
	if cfg.SyncEnabled {
		b, err := bus.NewRedisBus(log)
		if err != nil {
			log.Warn("Redis sync bus unavailable; running single-instance", "error", err)
		} else {
			syncBus = b
			emitter = &services.RedisEmitter{Bus: b}
		}
	}

	documentService := services.NewDocumentService(
		log,
		repos.PlanDocument,
		repos.PlanSection,
		emitter,
		cfg.DebounceInterval,
	)

	return Services{
		Document: documentService,
		SyncBus:  syncBus,
	}
}

// startSyncForwarder pumps bus messages into the local hub and feeds document
// updates from other instances through the merge path. Messages this instance
// published come back too; sessions drop their own by SourceClientID.
func startSyncForwarder(ctx context.Context, log *logger.Logger, svcs Services, sseHub *realtime.SSEHub) error {
	if svcs.SyncBus == nil {
		return nil
	}
	return svcs.SyncBus.StartForwarder(ctx, func(m realtime.SSEMessage) {
		sseHub.Broadcast(m)
		if m.Event != realtime.SSEEventDocumentUpdate {
			return
		}
		update, err := realtime.DecodeDocumentUpdate(m.Data)
		if err != nil {
			log.Warn("undecodable document update on sync bus", "error", err)
			return
		}
		svcs.Document.ApplyRemote(update)
	})
}
