package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/casamack/tibber-refiner/internal/refiner"
)

// Maximum payload size for MQTT messages (1MB).
const maxPayloadSize = 1 << 20

// Publish sends a message to topic and waits for the broker acknowledgment.
//
// Parameters:
//   - topic: The topic to publish to
//   - payload: The message payload (max 1MB)
//   - qos: Quality of Service level (0, 1, or 2)
//   - retained: Whether the broker should keep the message for new subscribers
//
// Returns:
//   - error: nil on success, or wrapped error describing the failure
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

// PublishJSON marshals v and publishes it retained with the configured QoS.
func (c *Client) PublishJSON(topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encoding payload: %w", ErrPublishFailed, err)
	}
	return c.Publish(topic, payload, c.qos(), true)
}

// PublishRefined publishes every refined hour on its retained topic. It
// keeps going after a failed hour and returns the joined errors.
func (c *Client) PublishRefined(ctx context.Context, hours []refiner.Refined) error {
	var errs []error
	for _, r := range hours {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.PublishJSON(c.topics.Refined(r.Date, r.Hour), r); err != nil {
			errs = append(errs, fmt.Errorf("hour %d: %w", r.Hour, err))
			if errors.Is(err, ErrNotConnected) {
				break
			}
		}
	}
	return errors.Join(errs...)
}

// PublishCurrent publishes the refined values of the current hour.
func (c *Client) PublishCurrent(_ context.Context, r refiner.Refined) error {
	return c.PublishJSON(c.topics.Current(), r)
}
