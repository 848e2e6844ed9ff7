package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"airwatch/internal/types"
)

var (
	bucketProfile      = []byte("profile")
	bucketPosition     = []byte("position")
	bucketNotification = []byte("notification")

	keyCurrent = []byte("current")
)

// MetricStoreLatency is the store operation latency histogram.
const MetricStoreLatency = "airwatch.store.latency"

// Bolt is a Store backed by a single bbolt file.
type Bolt struct {
	db      *bbolt.DB
	latency metric.Float64Histogram
}

var _ Store = (*Bolt)(nil)

// OpenBolt opens (creating if needed) the database at path.
func OpenBolt(path string, meter metric.Meter) (*Bolt, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketProfile, bucketPosition, bucketNotification} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}

	latency, err := meter.Float64Histogram(MetricStoreLatency, metric.WithUnit("ms"))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store latency histogram: %w", err)
	}
	return &Bolt{db: db, latency: latency}, nil
}

// Close releases the file lock.
func (b *Bolt) Close() error { return b.db.Close() }

// Name implements types.HealthProbe.
func (b *Bolt) Name() string { return "store" }

// Check implements types.HealthProbe with a read transaction.
func (b *Bolt) Check(context.Context) error {
	return b.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketProfile) == nil {
			return fmt.Errorf("profile bucket missing")
		}
		return nil
	})
}

func (b *Bolt) GetProfile(ctx context.Context) (types.HealthProfile, bool, error) {
	var p types.HealthProfile
	ok, err := b.get(ctx, bucketProfile, &p)
	return p, ok, err
}

func (b *Bolt) PutProfile(ctx context.Context, p types.HealthProfile) error {
	return b.put(ctx, bucketProfile, p)
}

func (b *Bolt) GetLocation(ctx context.Context) (types.Position, bool, error) {
	var p types.Position
	ok, err := b.get(ctx, bucketPosition, &p)
	return p, ok, err
}

func (b *Bolt) PutLocation(ctx context.Context, p types.Position) error {
	return b.put(ctx, bucketPosition, p)
}

func (b *Bolt) GetNotificationState(ctx context.Context) (types.NotificationState, bool, error) {
	var s types.NotificationState
	ok, err := b.get(ctx, bucketNotification, &s)
	return s, ok, err
}

func (b *Bolt) PutNotificationState(ctx context.Context, s types.NotificationState) error {
	return b.put(ctx, bucketNotification, s)
}

func (b *Bolt) get(ctx context.Context, bucket []byte, v any) (bool, error) {
	defer b.observe(ctx, "get", bucket, time.Now())

	var found bool
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucket).Get(keyCurrent)
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, v)
	})
	if err != nil {
		return false, fmt.Errorf("read %s: %w", bucket, err)
	}
	return found, nil
}

func (b *Bolt) put(ctx context.Context, bucket []byte, v any) error {
	defer b.observe(ctx, "put", bucket, time.Now())

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", bucket, err)
	}
	err = b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucket).Put(keyCurrent, data)
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", bucket, err)
	}
	return nil
}

func (b *Bolt) observe(ctx context.Context, op string, bucket []byte, start time.Time) {
	b.latency.Record(ctx, float64(time.Since(start).Microseconds())/1000,
		metric.WithAttributes(
			attribute.String("operation", op),
			attribute.String("bucket", string(bucket)),
		))
}
