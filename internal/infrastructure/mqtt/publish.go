package mqtt

import (
	"fmt"
)

// maxPayloadSize caps message payloads at 1MB, aligned with typical broker
// limits. Pipeline event payloads are tiny; the cap guards against a bug
// shipping a whole document tree onto the bus.
const maxPayloadSize = 1 << 20

// Publish sends a message to the given topic.
//
// Deployment and suggestion events go out at the configured QoS without
// the retained flag; only the system status topic uses retention.
//
// Parameters:
//   - topic: The topic to publish to (e.g., "homesynth/event/suggestions")
//   - payload: The message payload (max 1MB)
//   - qos: Quality of Service level (0, 1, or 2)
//   - retained: Whether the broker should hold the message for new subscribers
//
// Returns:
//   - error: nil on success, or wrapped error describing the failure
//
// Example:
//
//	topic := mqtt.Topics{}.EventDeployment("automation", "1f0a9c2d8e7b6a54")
//	err := client.Publish(topic, []byte(`{"passed":true}`), 1, false)
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}

// PublishString publishes a string payload; shorthand for Publish with
// []byte(payload).
func (c *Client) PublishString(topic string, payload string, qos byte, retained bool) error {
	return c.Publish(topic, []byte(payload), qos, retained)
}

// PublishRetained publishes a retained message at the configured default
// QoS, for topics where new subscribers need the current state.
func (c *Client) PublishRetained(topic string, payload []byte) error {
	return c.Publish(topic, payload, byte(c.cfg.QoS), true)
}
