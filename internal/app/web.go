package app

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/step_counter/internal/config"
	"github.com/relabs-tech/step_counter/internal/engine"
	"github.com/relabs-tech/step_counter/internal/sensors"
)

// RunWeb serves the browser step counter: a WebSocket endpoint ingesting
// DeviceMotion readings (with the permission handshake), a JSON API for
// the current count and diagnostics, and static files from ./web.
func RunWeb(cfg *config.Config) error {
	storage, err := buildStorage(cfg)
	if err != nil {
		return err
	}

	motion := sensors.NewMotionSource(time.Duration(cfg.PermissionWait) * time.Millisecond)

	profile := cfg.CalibrationProfile
	counter := engine.New(engine.Options{
		Platform: engine.BrowserMotion,
		Source:   motion,
		Storage:  storage,
		DeviceID: cfg.DeviceID,
		Profile:  profile,
	})

	// Mirror session changes to MQTT so the console and dashboards see
	// browser-counted steps too.
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDWeb)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT connect: %w", token.Error())
	}
	log.Printf("connected to MQTT broker at %s", cfg.MQTTBroker)

	publishSnapshots(client, cfg, counter)

	// Initialization blocks on the browser permission handshake, so it
	// runs behind the server: the page must be able to load first.
	go func() {
		if !counter.Initialize() {
			log.Println("web: step counting unavailable (no permission or unsupported device)")
			return
		}
		if !counter.StartCounting() {
			log.Println("web: step engine refused to start counting")
			return
		}
		log.Println("web: step counting started")
	}()

	mux := http.NewServeMux()
	mux.Handle("/ws/motion", motion)

	// JSON API endpoint: current session snapshot
	mux.HandleFunc("/api/steps", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(counter.StepData()); err != nil {
			log.Printf("json encode error: %v", err)
		}
	})

	// JSON API endpoint: pipeline diagnostics (debug tooling only)
	mux.HandleFunc("/api/diagnostics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(counter.Diagnostics()); err != nil {
			log.Printf("json encode error: %v", err)
		}
	})

	mux.HandleFunc("/api/reset", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST only", http.StatusMethodNotAllowed)
			return
		}
		counter.ResetStepCount()
		w.WriteHeader(http.StatusNoContent)
	})

	// Static files from ./web as the root
	fs := http.FileServer(http.Dir("web"))
	mux.Handle("/", fs)

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("web server listening on %s", addr)
	return http.ListenAndServe(addr, mux)
}
