// Package summarycache stores generated summaries so repeated transcripts
// skip the engine.
package summarycache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/transcript2minutes/internal/domain/inference"
)

// ValkeyStore persists summaries using a Valkey-compatible database.
type ValkeyStore struct {
	client valkey.Client
	prefix string
}

// NewValkeyStore constructs a new store backed by Valkey.
func NewValkeyStore(client valkey.Client, prefix string) *ValkeyStore {
	if prefix == "" {
		prefix = "minutes"
	}
	return &ValkeyStore{client: client, prefix: prefix}
}

func (s *ValkeyStore) Get(ctx context.Context, key string) (inference.CachedSummary, bool, error) {
	cmd := s.client.B().Get().Key(s.entryKey(key)).Build()
	payload, err := s.client.Do(ctx, cmd).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return inference.CachedSummary{}, false, nil
		}
		return inference.CachedSummary{}, false, err
	}
	var entry inference.CachedSummary
	if err := json.Unmarshal([]byte(payload), &entry); err != nil {
		return inference.CachedSummary{}, false, err
	}
	return entry, true, nil
}

func (s *ValkeyStore) Put(ctx context.Context, key string, entry inference.CachedSummary, ttl time.Duration) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	builder := s.client.B().Set().Key(s.entryKey(key)).Value(string(payload))
	var cmd valkey.Completed
	if ttl > 0 {
		if ttl < time.Second {
			ttl = time.Second
		}
		cmd = builder.Ex(ttl).Build()
	} else {
		cmd = builder.Build()
	}
	return s.client.Do(ctx, cmd).Error()
}

func (s *ValkeyStore) entryKey(key string) string {
	return fmt.Sprintf("%s:summary:%s", s.prefix, key)
}

var _ inference.Cache = (*ValkeyStore)(nil)
