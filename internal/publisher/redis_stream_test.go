package publisher

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/odds-cli/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

var _ Publisher = (*RedisStream)(nil)
var _ Publisher = Nop{}

func newTestPublisher(t *testing.T, maxLen int64) (*miniredis.Miniredis, *RedisStream) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() }) //nolint:errcheck
	p := NewRedisStream(client, "", maxLen)
	p.now = func() time.Time { return time.Unix(1748779200, 0) }
	return mr, p
}

func records() []model.MatchRecord {
	at := time.Date(2025, 6, 1, 18, 30, 0, 0, time.UTC)
	return []model.MatchRecord{
		{MatchID: "111", Competition: "CS2", MatchName: "iem_cologne_2025", TeamA: "Vitality", TeamB: "Heroic", OddsA: 1.45, OddsB: 2.7, MatchTime: at},
		{MatchID: "112", Competition: "CS2", MatchName: "iem_cologne_2025", TeamA: "NAVI", TeamB: "FaZe", OddsA: 1.8, OddsB: 2.0, MatchTime: at},
	}
}

func TestRedisStream_Publish(t *testing.T) {
	mr, p := newTestPublisher(t, 100)

	require.NoError(t, p.Publish(context.Background(), "run-1", "CS2", records()))

	entries, err := mr.Stream("odds.reconciled.CS2")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	fields := map[string]string{}
	vals := entries[0].Values
	for i := 0; i+1 < len(vals); i += 2 {
		fields[vals[i]] = vals[i+1]
	}
	assert.Equal(t, "run-1", fields["run_id"])
	assert.Equal(t, "1748779200", fields["timestamp"])

	var got model.MatchRecord
	require.NoError(t, json.Unmarshal([]byte(fields["data"]), &got))
	assert.Equal(t, "111", got.MatchID)
	assert.Equal(t, "Vitality", got.TeamA)
}

func TestRedisStream_PublishEmpty(t *testing.T) {
	mr, p := newTestPublisher(t, 0)
	require.NoError(t, p.Publish(context.Background(), "run-1", "CS2", nil))
	assert.False(t, mr.Exists("odds.reconciled.CS2"))
}

func TestRedisStream_StreamName(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer client.Close() //nolint:errcheck

	assert.Equal(t, "odds.reconciled.DOTA2", NewRedisStream(client, "", 0).Stream("DOTA2"))
	assert.Equal(t, "bets.CS2", NewRedisStream(client, "bets", 0).Stream("CS2"))
}

func TestRedisStream_ServerDown(t *testing.T) {
	mr, p := newTestPublisher(t, 0)
	mr.Close()

	err := p.Publish(context.Background(), "run-1", "CS2", records())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publisher: xadd odds.reconciled.CS2")
}

func TestNop(t *testing.T) {
	assert.NoError(t, Nop{}.Publish(context.Background(), "run", "CS2", records()))
}
