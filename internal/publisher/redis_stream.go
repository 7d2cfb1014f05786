package publisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/odds-cli/internal/model"
)

// DefaultStreamPrefix is prepended to the competition to name each stream.
const DefaultStreamPrefix = "odds.reconciled"

// RedisStream appends one stream entry per reconciled match to
// "<prefix>.<competition>".
type RedisStream struct {
	client *redis.Client
	prefix string
	maxLen int64
	now    func() time.Time
}

// NewRedisStream creates a publisher on an existing client. maxLen bounds
// each stream with approximate trimming; zero disables trimming.
func NewRedisStream(client *redis.Client, prefix string, maxLen int64) *RedisStream {
	if prefix == "" {
		prefix = DefaultStreamPrefix
	}
	return &RedisStream{client: client, prefix: prefix, maxLen: maxLen, now: time.Now}
}

// Stream returns the stream name for competition.
func (p *RedisStream) Stream(competition string) string {
	return p.prefix + "." + competition
}

// Publish implements Publisher. All entries of a run go out in one pipeline.
func (p *RedisStream) Publish(ctx context.Context, runID, competition string, records []model.MatchRecord) error {
	if len(records) == 0 {
		return nil
	}

	stream := p.Stream(competition)
	ts := p.now().Unix()

	_, err := p.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, rec := range records {
			data, err := json.Marshal(rec)
			if err != nil {
				return eris.Wrapf(err, "publisher: encode %s", rec.MatchID)
			}
			pipe.XAdd(ctx, &redis.XAddArgs{
				Stream: stream,
				MaxLen: p.maxLen,
				Approx: p.maxLen > 0,
				Values: map[string]interface{}{
					"data":      string(data),
					"run_id":    runID,
					"timestamp": ts,
				},
			})
		}
		return nil
	})
	if err != nil {
		return eris.Wrapf(err, "publisher: xadd %s", stream)
	}

	zap.L().Debug("published reconciled matches",
		zap.String("component", "publisher"),
		zap.String("stream", stream),
		zap.String("run_id", runID),
		zap.Int("count", len(records)),
	)
	return nil
}
