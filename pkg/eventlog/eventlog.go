// Package eventlog is an append-only, pebble-backed record of everything
// that happened to the engine's state: accepted orders, emitted trades,
// cancellations, and pool updates. Values are JSON-encoded under a
// prefixed key scheme and range-scanned with pebble iterator bounds; the
// stream is chronological, keyed by (pair, sequence); the kind is carried in
// the stored value, not in the key.
package eventlog

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/driftline-labs/dexcore/pkg/types"
)

// Kind distinguishes the event types this log records.
type Kind string

const (
	OrderAccepted  Kind = "order_accepted"
	TradeEmitted   Kind = "trade_emitted"
	OrderCancelled Kind = "order_cancelled"
	PoolUpdated    Kind = "pool_updated"
)

// Event is one append-only record. Payload is kind-specific JSON, left
// opaque to the log itself (the log's job is durable ordering, not schema
// enforcement).
type Event struct {
	Seq     uint64          `json:"seq"`
	Kind    Kind            `json:"kind"`
	Pair    types.Pair      `json:"pair"`
	Payload json.RawMessage `json:"payload"`
}

// Log is an append-only event sink backed by pebble.
type Log struct {
	db  *pebble.DB
	seq uint64
}

func Open(path string) (*Log, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open eventlog: %w", err)
	}
	l := &Log{db: db}
	l.seq = l.loadLastSeq()
	return l, nil
}

func (l *Log) Close() error { return l.db.Close() }

// key layout: e:<pair>:<8-byte big-endian seq>
func eventKey(pair types.Pair, seq uint64) []byte {
	prefix := fmt.Sprintf("e:%s:", pair.String())
	key := make([]byte, 0, len(prefix)+8)
	key = append(key, prefix...)
	var seqBuf [8]byte
	binary.BigEndian.PutUint64(seqBuf[:], seq)
	return append(key, seqBuf[:]...)
}

func eventPrefix(pair types.Pair) []byte {
	return []byte(fmt.Sprintf("e:%s:", pair.String()))
}

func keyUpperBound(prefix []byte) []byte {
	out := append([]byte(nil), prefix...)
	for i := len(out) - 1; i >= 0; i-- {
		out[i]++
		if out[i] != 0 {
			return out[:i+1]
		}
	}
	return nil // prefix was all 0xff, unbounded above
}

func (l *Log) loadLastSeq() uint64 {
	iter, err := l.db.NewIter(&pebble.IterOptions{LowerBound: []byte("e:"), UpperBound: []byte("e;")})
	if err != nil {
		return 0
	}
	defer iter.Close()

	var max uint64
	for iter.First(); iter.Valid(); iter.Next() {
		key := iter.Key()
		if len(key) < 8 {
			continue
		}
		seq := binary.BigEndian.Uint64(key[len(key)-8:])
		if seq > max {
			max = seq
		}
	}
	return max
}

// Append records an event for pair with an auto-incrementing sequence
// number and returns the sequence assigned.
func (l *Log) Append(kind Kind, pair types.Pair, payload any) (uint64, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("marshal eventlog payload: %w", err)
	}

	l.seq++
	seq := l.seq
	ev := Event{Seq: seq, Kind: kind, Pair: pair, Payload: raw}

	data, err := json.Marshal(ev)
	if err != nil {
		return 0, fmt.Errorf("marshal eventlog event: %w", err)
	}

	if err := l.db.Set(eventKey(pair, seq), data, pebble.Sync); err != nil {
		return 0, fmt.Errorf("append eventlog event: %w", err)
	}
	return seq, nil
}

// Since returns every event for pair with sequence strictly greater than
// afterSeq, in ascending order.
func (l *Log) Since(pair types.Pair, afterSeq uint64) ([]Event, error) {
	prefix := eventPrefix(pair)
	iter, err := l.db.NewIter(&pebble.IterOptions{
		LowerBound: eventKey(pair, afterSeq+1),
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []Event
	for iter.First(); iter.Valid(); iter.Next() {
		var ev Event
		if err := json.Unmarshal(iter.Value(), &ev); err != nil {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}
