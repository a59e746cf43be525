package app

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/step_counter/internal/config"
	"github.com/relabs-tech/step_counter/internal/engine"
	"github.com/relabs-tech/step_counter/internal/session"
)

// StepEvent is the per-step MQTT payload, published alongside the
// retained full session snapshot.
type StepEvent struct {
	Steps     uint64    `json:"steps"`
	Timestamp time.Time `json:"timestamp"`
}

// publishSnapshots subscribes a listener that mirrors every session
// snapshot to the session topic (retained, so late dashboards catch up)
// and emits a step event whenever the count grows. Publish failures are
// logged; the engine is never blocked on them.
func publishSnapshots(client mqtt.Client, cfg *config.Config, counter *engine.Counter) engine.Subscription {
	var mu sync.Mutex
	var lastSteps uint64

	return counter.Subscribe(func(rec session.Record) {
		payload, err := json.Marshal(rec)
		if err != nil {
			log.Printf("json marshal error (session): %v", err)
			return
		}
		if token := client.Publish(cfg.TopicSession, 0, true, payload); token.Wait() && token.Error() != nil {
			log.Printf("MQTT publish error (session): %v", token.Error())
		}

		mu.Lock()
		stepped := rec.Steps > lastSteps
		lastSteps = rec.Steps
		mu.Unlock()
		if !stepped {
			return
		}

		evt := StepEvent{Steps: rec.Steps, Timestamp: rec.LastUpdate}
		payload, err = json.Marshal(evt)
		if err != nil {
			log.Printf("json marshal error (step event): %v", err)
			return
		}
		if token := client.Publish(cfg.TopicStepEvent, 0, false, payload); token.Wait() && token.Error() != nil {
			log.Printf("MQTT publish error (step event): %v", token.Error())
		}
	})
}
