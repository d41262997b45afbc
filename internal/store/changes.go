package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ChangeChannel carries patient table change notifications between
// processes.
const ChangeChannel = "arts:patients:changed"

type ChangeOp string

const (
	OpInsert ChangeOp = "insert"
	OpUpdate ChangeOp = "update"
	OpDelete ChangeOp = "delete"
)

// ChangeEvent announces that a patient row changed. The payload is advisory
// only; any event triggers a full refetch.
type ChangeEvent struct {
	Op        ChangeOp `json:"op"`
	PatientID string   `json:"patientId"`
}

func PublishChange(ctx context.Context, client *redis.Client, event ChangeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}
	if err := client.Publish(ctx, ChangeChannel, payload).Err(); err != nil {
		return fmt.Errorf("publish change event: %w", err)
	}
	return nil
}

// Subscribe forwards channel notifications into the store's trigger until
// the context ends. Malformed payloads still trigger: the refetch is total,
// so the event body never gates correctness.
func (s *PatientStore) Subscribe(ctx context.Context, client *redis.Client, log zerolog.Logger) {
	pubsub := client.Subscribe(ctx, ChangeChannel)

	go func() {
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event ChangeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					log.Warn().Err(err).Msg("malformed change event")
				} else {
					log.Debug().Str("op", string(event.Op)).Str("patient_id", event.PatientID).Msg("change event")
				}
				s.Trigger()
			}
		}
	}()
}
