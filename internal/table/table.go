// Package table implements a fixed-capacity open-addressing hash table from
// raw byte keys to aggregate records.
//
// The table never grows. Its capacity is chosen up front from the expected
// number of distinct keys and should keep occupancy well below one half so
// that linear probes stay short. Every key lives in a single arena of
// capacity*maxKeyLen bytes allocated by New; Update never allocates.
package table

import (
	"bytes"
	"math/bits"
	"slices"
	"unsafe"

	"github.com/pkg/errors"
)

// MaxKeyLenLimit is the largest key bound New accepts.
const MaxKeyLenLimit = 1<<16 - 1

// MaxBytes bounds the memory of one table: slots plus key arena.
const MaxBytes uint64 = 4 << 30

var (
	ErrKeyTooLong = errors.New("key too long")
	ErrEmptyKey   = errors.New("empty key")
	ErrTableFull  = errors.New("table full")
)

type slot struct {
	keyLen uint16 // 0 means empty
	rec    Record
}

// Entry is an occupied slot returned by DrainSorted.
type Entry struct {
	Key    []byte
	Record Record
}

// Table maps keys of at most MaxKeyLen bytes to records.
type Table struct {
	slots     []slot
	keys      []byte
	maxKeyLen int
	mask      uint64
	used      int
	hash      HashFunc
}

// Option configures a Table.
type Option func(*Table)

// WithHash replaces PrefixHash.
func WithHash(h HashFunc) Option {
	return func(t *Table) {
		t.hash = h
	}
}

// New allocates a table with capacity rounded up to a power of two.
func New(capacity, maxKeyLen int, opts ...Option) (*Table, error) {
	size, err := sizeFor(capacity, maxKeyLen)
	if err != nil {
		return nil, err
	}
	t := &Table{
		slots:     make([]slot, size),
		keys:      make([]byte, size*maxKeyLen),
		maxKeyLen: maxKeyLen,
		mask:      uint64(size - 1),
		hash:      PrefixHash,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// CheckSize reports whether New would accept capacity and maxKeyLen.
func CheckSize(capacity, maxKeyLen int) error {
	_, err := sizeFor(capacity, maxKeyLen)
	return err
}

// sizeFor returns the slot count for capacity, a power of two.
func sizeFor(capacity, maxKeyLen int) (int, error) {
	if capacity < 1 {
		return 0, errors.Errorf("invalid table capacity %d", capacity)
	}
	if maxKeyLen < 1 || maxKeyLen > MaxKeyLenLimit {
		return 0, errors.Errorf("invalid max key length %d", maxKeyLen)
	}
	if uint64(capacity) > MaxBytes {
		return 0, errors.Errorf("table capacity %d too large", capacity)
	}
	size := 1 << bits.Len(uint(capacity-1))
	perSlot := uint64(maxKeyLen) + uint64(unsafe.Sizeof(slot{}))
	if need := uint64(size) * perSlot; need > MaxBytes {
		return 0, errors.Errorf("table of %d slots with %d byte keys needs %d bytes, limit %d", size, maxKeyLen, need, MaxBytes)
	}
	return size, nil
}

func (t *Table) key(i int) []byte {
	off := i * t.maxKeyLen
	return t.keys[off : off+int(t.slots[i].keyLen)]
}

// Update folds v into the record of key, creating it on first sight.
func (t *Table) Update(key []byte, v int64) error {
	if len(key) == 0 {
		return ErrEmptyKey
	}
	if len(key) > t.maxKeyLen {
		return errors.Wrapf(ErrKeyTooLong, "%d bytes, limit %d", len(key), t.maxKeyLen)
	}

	i := t.hash(key) & t.mask
	// a full table has no empty slot, so a miss visits every slot once
	for probes := 0; probes < len(t.slots); probes++ {
		s := &t.slots[i]
		if s.keyLen == 0 {
			off := int(i) * t.maxKeyLen
			copy(t.keys[off:off+len(key)], key)
			s.keyLen = uint16(len(key))
			s.rec = newRecord(v)
			t.used++
			return nil
		}
		if int(s.keyLen) == len(key) && bytes.Equal(t.key(int(i)), key) {
			s.rec.Add(v)
			return nil
		}
		i = (i + 1) & t.mask
	}
	return errors.Wrapf(ErrTableFull, "capacity %d", len(t.slots))
}

// Len returns the number of distinct keys.
func (t *Table) Len() int {
	return t.used
}

// Cap returns the number of slots.
func (t *Table) Cap() int {
	return len(t.slots)
}

// Load returns the fraction of occupied slots.
func (t *Table) Load() float64 {
	return float64(t.used) / float64(len(t.slots))
}

// MaxKeyLen returns the key bound.
func (t *Table) MaxKeyLen() int {
	return t.maxKeyLen
}

// DrainSorted returns the occupied slots in ascending byte order of their
// keys. Entry keys alias table storage, so the table must not be updated
// afterwards.
func (t *Table) DrainSorted() []Entry {
	entries := make([]Entry, 0, t.used)
	for i := range t.slots {
		if t.slots[i].keyLen == 0 {
			continue
		}
		entries = append(entries, Entry{Key: t.key(i), Record: t.slots[i].rec})
	}
	slices.SortFunc(entries, func(a, b Entry) int {
		return bytes.Compare(a.Key, b.Key)
	})
	return entries
}
