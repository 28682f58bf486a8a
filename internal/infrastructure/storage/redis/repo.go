package redis

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"fundarb/internal/application/port"

	"github.com/redis/go-redis/v9"
)

// Repo 最新价格缓存 + 快照 stream / pubsub
type Repo struct {
	rdb            *redis.Client
	prefix         string
	ttl            time.Duration
	keyLatest      string // prefix + "latest"
	snapshotStream string
	snapshotChan   string
	streamMaxLen   int64
}

type LatestPrice struct {
	Asset string  `json:"asset"`
	Price float64 `json:"price"`
	Ts    int64   `json:"ts"`
}

func New(rdb *redis.Client, prefix string, ttl time.Duration, snapshotStream, snapshotChan string) *Repo {
	if strings.TrimSpace(snapshotStream) == "" {
		snapshotStream = prefix + "snapshots"
	}
	if strings.TrimSpace(snapshotChan) == "" {
		snapshotChan = prefix + "snapshots:pub"
	}
	return &Repo{
		rdb:            rdb,
		prefix:         prefix,
		ttl:            ttl,
		keyLatest:      prefix + "latest",
		snapshotStream: snapshotStream,
		snapshotChan:   snapshotChan,
		streamMaxLen:   10000,
	}
}

func (r *Repo) UpsertLatestPrice(ctx context.Context, asset string, price float64, ts int64) error {
	if price <= 0 {
		return nil
	}
	b, err := json.Marshal(LatestPrice{Asset: asset, Price: price, Ts: ts})
	if err != nil {
		return err
	}

	// Hash: field = "BTC" -> json
	pipe := r.rdb.Pipeline()
	pipe.HSet(ctx, r.keyLatest, asset, string(b))
	if r.ttl > 0 {
		pipe.Expire(ctx, r.keyLatest, r.ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (r *Repo) LatestPrices(ctx context.Context) (map[string]float64, error) {
	fields, err := r.rdb.HGetAll(ctx, r.keyLatest).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(fields))
	for asset, raw := range fields {
		var lp LatestPrice
		if err := json.Unmarshal([]byte(raw), &lp); err != nil || lp.Price <= 0 {
			continue
		}
		out[asset] = lp.Price
	}
	return out, nil
}

func (r *Repo) InsertSnapshot(ctx context.Context, ts int64, account string, payload string) error {
	// 1) Stream: XADD <stream> MAXLEN ~ N * ts account payload
	_, err := r.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: r.snapshotStream,
		MaxLen: r.streamMaxLen,
		Approx: true,
		Values: map[string]any{
			"ts_ms":   ts,
			"account": account,
			"payload": payload,
		},
	}).Result()
	if err != nil {
		return err
	}

	// 2) PubSub: PUBLISH <channel> payload
	return r.rdb.Publish(ctx, r.snapshotChan, payload).Err()
}

var (
	_ port.PriceCache      = (*Repo)(nil)
	_ port.SnapshotArchive = (*Repo)(nil)
)
