package app

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/step_counter/internal/config"
	"github.com/relabs-tech/step_counter/internal/engine"
)

// RunStepProducer wires the configured reading source through the step
// engine and mirrors every session change to MQTT, until SIGINT/SIGTERM.
func RunStepProducer(cfg *config.Config) error {
	log.Println("starting step-counter producer (sensor → MQTT)")

	storage, err := buildStorage(cfg)
	if err != nil {
		return err
	}

	src, platform, err := buildSource(cfg)
	if err != nil {
		return err
	}

	counter := engine.New(engine.Options{
		Platform: platform,
		Source:   src,
		Storage:  storage,
		DeviceID: cfg.DeviceID,
		Profile:  cfg.CalibrationProfile,
	})

	// --- connect to MQTT ---
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDProducer)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT connect: %w", token.Error())
	}
	defer client.Disconnect(250)
	log.Println("connected to MQTT, starting step engine")

	publishSnapshots(client, cfg, counter)

	if !counter.Initialize() {
		return fmt.Errorf("step engine initialization failed: no usable motion sensor")
	}
	if !counter.StartCounting() {
		return fmt.Errorf("step engine refused to start counting")
	}
	log.Printf("counting steps on platform %q with profile %q", platform, counter.Diagnostics().Profile)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(time.Duration(cfg.LogInterval) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rec := counter.StepData()
			d := counter.Diagnostics()
			log.Printf("steps=%d buffer=%d/%d peak=%.2f valley=%.2f waiting_for_valley=%v dropped=%d",
				rec.Steps, d.BufferFill, d.BufferCapacity,
				d.PeakThreshold, d.ValleyThreshold, d.WaitingForValley, d.DroppedReadings)
		case <-sigCh:
			log.Println("producer: shutting down")
			counter.StopCounting()
			counter.Flush()
			return nil
		}
	}
}
