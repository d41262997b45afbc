package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"arts/api/internal/models"
)

const (
	userKeyPrefix     = "arts:session:"
	userKeySuffix     = ":user"
	activityKeySuffix = ":activity"
)

// RedisPersister stores each session as two entries: the serialized
// principal and the last-activity timestamp in epoch milliseconds.
type RedisPersister struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisPersister keeps entries around for at most ttl past their last
// write; the Manager's sweep remains the authority on expiry, the TTL just
// stops abandoned keys from accumulating.
func NewRedisPersister(client *redis.Client, ttl time.Duration) *RedisPersister {
	return &RedisPersister{client: client, ttl: 2 * ttl}
}

func (p *RedisPersister) Save(ctx context.Context, entry Entry) error {
	payload, err := json.Marshal(entry.Principal)
	if err != nil {
		return fmt.Errorf("marshal principal: %w", err)
	}

	pipe := p.client.Pipeline()
	pipe.Set(ctx, userKeyPrefix+entry.ID+userKeySuffix, payload, p.ttl)
	pipe.Set(ctx, userKeyPrefix+entry.ID+activityKeySuffix, entry.LastActivity.UnixMilli(), p.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (p *RedisPersister) Touch(ctx context.Context, id string, at time.Time) error {
	return p.client.Set(ctx, userKeyPrefix+id+activityKeySuffix, at.UnixMilli(), p.ttl).Err()
}

func (p *RedisPersister) Delete(ctx context.Context, id string) error {
	return p.client.Del(ctx,
		userKeyPrefix+id+userKeySuffix,
		userKeyPrefix+id+activityKeySuffix,
	).Err()
}

func (p *RedisPersister) Load(ctx context.Context) ([]Entry, error) {
	var entries []Entry

	iter := p.client.Scan(ctx, 0, userKeyPrefix+"*"+activityKeySuffix, 100).Iterator()
	for iter.Next(ctx) {
		activityKey := iter.Val()
		id := strings.TrimSuffix(strings.TrimPrefix(activityKey, userKeyPrefix), activityKeySuffix)

		millis, err := p.client.Get(ctx, activityKey).Result()
		if err != nil {
			continue
		}
		epochMS, err := strconv.ParseInt(millis, 10, 64)
		if err != nil {
			continue
		}

		payload, err := p.client.Get(ctx, userKeyPrefix+id+userKeySuffix).Bytes()
		if err != nil {
			continue
		}
		var principal models.Principal
		if err := json.Unmarshal(payload, &principal); err != nil {
			continue
		}

		entries = append(entries, Entry{
			ID:           id,
			Principal:    principal,
			LastActivity: time.UnixMilli(epochMS),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan sessions: %w", err)
	}
	return entries, nil
}
