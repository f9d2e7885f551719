// Package mqtt provides MQTT client connectivity for the synthesis
// pipeline.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// The entity state stream arrives over MQTT: Home Assistant's Statestream
// integration mirrors every entity state change onto the broker, and the
// pipeline subscribes to the state topics to feed its event log without
// polling the REST API.
//
//	Home Assistant (statestream) → MQTT Broker → homesynth ingest
//
// Outbound, the service publishes its own status under homesynth/system
// and pipeline events (deployments, mining runs) under homesynth/event.
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to every entity state change
//	pattern := mqtt.Topics{}.AllStatestreamStates(cfg.MQTT.StatestreamPrefix)
//	err = client.Subscribe(pattern, 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
package mqtt
