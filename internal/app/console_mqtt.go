package app

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/step_counter/internal/config"
	"github.com/relabs-tech/step_counter/internal/session"
)

// RunConsoleMQTT subscribes to the step topics and prints everything the
// engine publishes, until Ctrl+C. Handy while walking around with a
// sensor in hand.
func RunConsoleMQTT(cfg *config.Config) error {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDConsole)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	// Subscribe to session snapshots
	sessionToken := client.Subscribe(cfg.TopicSession, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var rec session.Record
		if err := json.Unmarshal(msg.Payload(), &rec); err != nil {
			log.Printf("console: session unmarshal error: %v", err)
			return
		}

		fmt.Printf(
			"[SESSION] steps=%6d active=%-5v permission=%-5v supported=%-5v sensor=%s\n",
			rec.Steps, rec.IsActive, rec.HasPermission, rec.DeviceSupported, rec.SensorType,
		)
	})
	sessionToken.Wait()
	if sessionToken.Error() != nil {
		return sessionToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicSession)

	// Subscribe to step events
	stepToken := client.Subscribe(cfg.TopicStepEvent, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var evt StepEvent
		if err := json.Unmarshal(msg.Payload(), &evt); err != nil {
			log.Printf("console: step event unmarshal error: %v", err)
			return
		}

		fmt.Printf("[STEP]    #%d at %s\n", evt.Steps, evt.Timestamp.Format("15:04:05.000"))
	})
	stepToken.Wait()
	if stepToken.Error() != nil {
		return stepToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicStepEvent)

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
