package notify

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/blues/escrow/internal/escrow"
	"github.com/go-redis/redis/v8"
)

// fakeRedis records RPush calls; any other command panics.
type fakeRedis struct {
	redis.Cmdable
	lists map[string][][]byte
	err   error
}

func (f *fakeRedis) RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx, "rpush", key)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	for _, v := range values {
		f.lists[key] = append(f.lists[key], v.([]byte))
	}
	cmd.SetVal(int64(len(f.lists[key])))
	return cmd
}

func TestRedisSinkPublish(t *testing.T) {
	rdb := &fakeRedis{lists: make(map[string][][]byte)}
	sink := NewRedisSink(rdb, "escrow:events")
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	events := []escrow.Event{
		{Seq: 1, Kind: escrow.EventProjectCreated, ProjectID: 0, Account: "org", Amount: 10, At: at},
		{Seq: 2, Kind: escrow.EventUserDonated, ProjectID: 0, Account: "d1", Amount: 4, At: at},
	}
	for _, ev := range events {
		if err := sink.Publish(context.Background(), ev); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}

	list := rdb.lists["escrow:events"]
	if len(list) != 2 {
		t.Fatalf("list length = %d, want 2", len(list))
	}
	var got escrow.Event
	if err := json.Unmarshal(list[1], &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Seq != 2 || got.Kind != escrow.EventUserDonated || got.Account != "d1" || !got.At.Equal(at) {
		t.Errorf("stored event = %+v", got)
	}
}

func TestRedisSinkPublishError(t *testing.T) {
	rdb := &fakeRedis{lists: make(map[string][][]byte), err: errors.New("connection refused")}
	sink := NewRedisSink(rdb, "escrow:events")

	err := sink.Publish(context.Background(), escrow.Event{Seq: 1})
	if err == nil || !strings.Contains(err.Error(), "escrow:events") {
		t.Fatalf("err = %v, want list name in error", err)
	}
}
