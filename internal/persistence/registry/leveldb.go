package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/df-mc/goleveldb/leveldb"
	"github.com/klauspost/compress/zstd"
)

const levelShards = 32

// LevelDB stores each region as one zstd-compressed JSON value. Appends
// rewrite the region value under a per-shard lock; a reader sees either the
// previous or the new value.
type LevelDB struct {
	db     *leveldb.DB
	locks  [levelShards]sync.Mutex
	enc    *zstd.Encoder
	dec    *zstd.Decoder
	closed atomic.Bool
}

func OpenLevelDB(path string) (*LevelDB, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, err
	}
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb %s: %w", path, err)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &LevelDB{db: db, enc: enc, dec: dec}, nil
}

func regionKey(k RegionKey) []byte {
	return []byte(fmt.Sprintf("region/%d/%d", k.RX, k.RZ))
}

func (l *LevelDB) load(k RegionKey) ([]Placement, error) {
	raw, err := l.db.Get(regionKey(k), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("leveldb get %s: %w", k, err)
	}
	plain, err := l.dec.DecodeAll(raw, nil)
	if err != nil {
		return nil, fmt.Errorf("leveldb decode %s: %w", k, err)
	}
	var ps []Placement
	if err := json.Unmarshal(plain, &ps); err != nil {
		return nil, fmt.Errorf("leveldb decode %s: %w", k, err)
	}
	return ps, nil
}

func (l *LevelDB) Get(ctx context.Context, k RegionKey) (*Snapshot, error) {
	if l.closed.Load() {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ps, err := l.load(k)
	if err != nil {
		return nil, err
	}
	return newSnapshot(k, ps), nil
}

func (l *LevelDB) Append(ctx context.Context, k RegionKey, p Placement) error {
	if l.closed.Load() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	mu := &l.locks[shardIndex(k, levelShards)]
	mu.Lock()
	defer mu.Unlock()
	ps, err := l.load(k)
	if err != nil {
		return err
	}
	ps = append(ps, p)
	plain, err := json.Marshal(ps)
	if err != nil {
		return err
	}
	if err := l.db.Put(regionKey(k), l.enc.EncodeAll(plain, nil), nil); err != nil {
		return fmt.Errorf("leveldb put %s: %w", k, err)
	}
	return nil
}

func (l *LevelDB) Close() error {
	if l.closed.Swap(true) {
		return nil
	}
	// Wait for in-flight appends.
	for i := range l.locks {
		l.locks[i].Lock()
	}
	defer func() {
		for i := range l.locks {
			l.locks[i].Unlock()
		}
	}()
	l.dec.Close()
	_ = l.enc.Close()
	return l.db.Close()
}
