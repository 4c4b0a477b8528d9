package table

import (
	"bytes"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xpug.it/stationagg/internal/fixedpoint"
)

func constantHash([]byte) uint64 { return 7 }

func drainMap(entries []Entry) map[string]Record {
	m := make(map[string]Record, len(entries))
	for _, e := range entries {
		m[string(e.Key)] = e.Record
	}
	return m
}

func TestNewRoundsCapacity(t *testing.T) {
	for _, tc := range []struct {
		capacity, expected int
	}{
		{1, 1},
		{2, 2},
		{3, 4},
		{1000, 1024},
		{1 << 16, 1 << 16},
	} {
		tbl, err := New(tc.capacity, 8)
		require.NoError(t, err)
		assert.Equal(t, tc.expected, tbl.Cap(), "capacity %d", tc.capacity)
	}
}

func TestNewInvalid(t *testing.T) {
	_, err := New(0, 10)
	assert.Error(t, err)
	_, err = New(16, 0)
	assert.Error(t, err)
	_, err = New(16, MaxKeyLenLimit+1)
	assert.Error(t, err)
}

func TestNewTooLarge(t *testing.T) {
	tests := []struct {
		name      string
		capacity  int
		maxKeyLen int
	}{
		{"huge capacity", 1<<31 - 1, 100},
		{"arena over limit", 1 << 26, 100},
		{"long keys", 1 << 16, MaxKeyLenLimit},
		{"slots over limit", 1 << 30, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, CheckSize(tt.capacity, tt.maxKeyLen))
			_, err := New(tt.capacity, tt.maxKeyLen)
			assert.Error(t, err)
		})
	}

	assert.NoError(t, CheckSize(1<<16, 100))
	assert.NoError(t, CheckSize(1<<20, 100))
}

func TestUpdate(t *testing.T) {
	tbl, err := New(64, 100)
	require.NoError(t, err)

	require.NoError(t, tbl.Update([]byte("A"), 30))
	require.NoError(t, tbl.Update([]byte("B"), -15))
	require.NoError(t, tbl.Update([]byte("A"), 50))

	got := drainMap(tbl.DrainSorted())
	want := map[string]Record{
		"A": {Min: 30, Max: 50, Sum: 80, Count: 2},
		"B": {Min: -15, Max: -15, Sum: -15, Count: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 2, tbl.Len())
}

func TestUpdateKeyBounds(t *testing.T) {
	tbl, err := New(16, 4)
	require.NoError(t, err)

	require.NoError(t, tbl.Update([]byte("abcd"), 1))

	err = tbl.Update([]byte("abcde"), 1)
	assert.True(t, errors.Is(err, ErrKeyTooLong), "got %v", err)

	err = tbl.Update(nil, 1)
	assert.True(t, errors.Is(err, ErrEmptyKey), "got %v", err)

	// a rejected key must not have been stored truncated
	entries := tbl.DrainSorted()
	require.Len(t, entries, 1)
	assert.Equal(t, "abcd", string(entries[0].Key))
	assert.Equal(t, uint64(1), entries[0].Record.Count)
}

func TestUpdateCollisions(t *testing.T) {
	tbl, err := New(8, 16, WithHash(constantHash))
	require.NoError(t, err)

	require.NoError(t, tbl.Update([]byte("first"), 10))
	require.NoError(t, tbl.Update([]byte("second"), 20))
	require.NoError(t, tbl.Update([]byte("second"), 40))
	require.NoError(t, tbl.Update([]byte("first"), -10))

	got := drainMap(tbl.DrainSorted())
	want := map[string]Record{
		"first":  {Min: -10, Max: 10, Sum: 0, Count: 2},
		"second": {Min: 20, Max: 40, Sum: 60, Count: 2},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdateSamePrefixAndLength(t *testing.T) {
	tbl, err := New(16, 32)
	require.NoError(t, err)

	// identical first 8 bytes and length: same bucket under PrefixHash
	a, b := []byte("Station_North"), []byte("Station_South")
	require.Equal(t, PrefixHash(a), PrefixHash(b))

	require.NoError(t, tbl.Update(a, 1))
	require.NoError(t, tbl.Update(b, 2))
	require.NoError(t, tbl.Update(a, 3))

	got := drainMap(tbl.DrainSorted())
	assert.Equal(t, Record{Min: 1, Max: 3, Sum: 4, Count: 2}, got["Station_North"])
	assert.Equal(t, Record{Min: 2, Max: 2, Sum: 2, Count: 1}, got["Station_South"])
}

func TestUpdateWrapsAround(t *testing.T) {
	last := func([]byte) uint64 { return 3 }
	tbl, err := New(4, 4, WithHash(last))
	require.NoError(t, err)

	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, tbl.Update([]byte(k), 1))
	}
	assert.Equal(t, 3, tbl.Len())
	assert.Len(t, tbl.DrainSorted(), 3)
}

func TestTableFull(t *testing.T) {
	tbl, err := New(4, 4, WithHash(constantHash))
	require.NoError(t, err)

	for _, k := range []string{"a", "b", "c", "d"} {
		require.NoError(t, tbl.Update([]byte(k), 1))
	}
	assert.Equal(t, 1.0, tbl.Load())

	// existing keys still update once the table is full
	require.NoError(t, tbl.Update([]byte("c"), 5))

	err = tbl.Update([]byte("e"), 1)
	assert.True(t, errors.Is(err, ErrTableFull), "got %v", err)

	got := drainMap(tbl.DrainSorted())
	assert.Len(t, got, 4)
	assert.Equal(t, Record{Min: 1, Max: 5, Sum: 6, Count: 2}, got["c"])
}

func TestDrainSorted(t *testing.T) {
	tbl, err := New(256, 100)
	require.NoError(t, err)

	keys := []string{"Zürich", "Abha", "abha", "Ab", "Ürümqi", "Z", "A b", "Abéché"}
	for i, k := range keys {
		require.NoError(t, tbl.Update([]byte(k), int64(i)))
	}

	entries := tbl.DrainSorted()
	require.Len(t, entries, len(keys))
	for i := 1; i < len(entries); i++ {
		assert.Equal(t, -1, bytes.Compare(entries[i-1].Key, entries[i].Key),
			"%q not before %q", entries[i-1].Key, entries[i].Key)
	}
}

// reference is an association list, the simplest possible aggregation.
type reference []struct {
	key string
	rec Record
}

func (r *reference) add(key string, v int64) {
	for i := range *r {
		if (*r)[i].key == key {
			(*r)[i].rec.Add(v)
			return
		}
	}
	*r = append(*r, struct {
		key string
		rec Record
	}{key, newRecord(v)})
}

func TestMatchesReferenceUnderPermutation(t *testing.T) {
	const capacity = 128
	rnd := rand.New(rand.NewSource(1))

	type obs struct {
		key string
		v   int64
	}
	var input []obs
	for k := 0; k < capacity/2; k++ {
		key := fmt.Sprintf("station-%02d-%s", k%7, strings.Repeat("x", k%5))
		key += fmt.Sprint(k)
		for n := 0; n <= k%4; n++ {
			input = append(input, obs{key, int64(rnd.Intn(1999) - 999)})
		}
	}

	var ref reference
	for _, o := range input {
		ref.add(o.key, o.v)
	}
	want := make(map[string]Record, len(ref))
	for _, e := range ref {
		want[e.key] = e.rec
	}

	for _, hash := range []struct {
		name string
		fn   HashFunc
	}{
		{"prefix", PrefixHash},
		{"xxhash", XXHash},
		{"constant", constantHash},
	} {
		for round := 0; round < 10; round++ {
			rnd.Shuffle(len(input), func(i, j int) { input[i], input[j] = input[j], input[i] })

			tbl, err := New(capacity, 32, WithHash(hash.fn))
			require.NoError(t, err)
			for _, o := range input {
				require.NoError(t, tbl.Update([]byte(o.key), o.v))
			}
			if diff := cmp.Diff(want, drainMap(tbl.DrainSorted())); diff != "" {
				t.Fatalf("%s hash, round %d: mismatch (-want +got):\n%s", hash.name, round, diff)
			}
		}
	}
}

func TestRecordMean(t *testing.T) {
	r := newRecord(30)
	r.Add(50)
	assert.Equal(t, int64(40), r.Mean(fixedpoint.HalfEven))

	r = newRecord(-1)
	r.Add(1)
	assert.Equal(t, int64(0), r.Mean(fixedpoint.HalfEven))

	// 0.15 and -0.15 are exact ties
	r = newRecord(1)
	r.Add(2)
	assert.Equal(t, int64(2), r.Mean(fixedpoint.HalfEven))
	assert.Equal(t, int64(2), r.Mean(fixedpoint.HalfUp))

	r = newRecord(-1)
	r.Add(-2)
	assert.Equal(t, int64(-2), r.Mean(fixedpoint.HalfEven))
	assert.Equal(t, int64(-1), r.Mean(fixedpoint.HalfUp))
}

func BenchmarkUpdate(b *testing.B) {
	keys := make([][]byte, 400)
	for i := range keys {
		keys[i] = []byte(fmt.Sprintf("Station %d", i))
	}
	tbl, err := New(1<<12, 100)
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := tbl.Update(keys[i%len(keys)], int64(i%1000)); err != nil {
			b.Fatal(err)
		}
	}
}
