package sqlpage

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/vellum"
	"github.com/syssam/vellum/dialect/sql"
)

func TestPagingStateRoundTrip(t *testing.T) {
	p := newPager(t, nil)
	empty, err := p.GetPagingState()
	require.NoError(t, err)

	p.first = key{sql.TextValue("Adams"), sql.IntValue(1)}
	p.last = key{sql.Null, sql.IntValue(9)}
	blob, err := p.GetPagingState()
	require.NoError(t, err)

	q := newPager(t, nil)
	require.NoError(t, q.RestorePagingState(blob))
	require.Len(t, q.first, 2)
	assert.True(t, q.first[0].Equal(sql.TextValue("Adams")))
	assert.True(t, q.first[1].Equal(sql.IntValue(1)))
	assert.True(t, q.last[0].IsNull())

	require.NoError(t, q.RestorePagingState(empty))
	assert.Nil(t, q.first)
	assert.Nil(t, q.last)

	require.NoError(t, q.RestorePagingState(blob))
	require.NoError(t, q.RestorePagingState(nil))
	assert.Nil(t, q.last)
}

func TestStateValues(t *testing.T) {
	ts := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	values := []sql.Value{
		sql.Null,
		sql.BoolValue(true),
		sql.IntValue(-42),
		sql.MustDecimal("12.50"),
		sql.TextValue("O'Brien"),
		sql.TimeValue(ts),
		sql.BytesValue([]byte{0xAB, 0x01}),
		sql.GUIDValue(uuid.MustParse("0f8fad5b-d9cb-469f-a165-70867728950e")),
	}
	for _, v := range values {
		t.Run(v.Kind().String(), func(t *testing.T) {
			sv, err := encodeValue(v)
			require.NoError(t, err)
			b, err := msgpack.Marshal(sv)
			require.NoError(t, err)
			var back stateValue
			require.NoError(t, msgpack.Unmarshal(b, &back))
			got, err := back.decode()
			require.NoError(t, err)
			assert.True(t, v.Equal(got), "got %s, want %s", got, v)
		})
	}
	_, err := encodeValue(sql.ParamValue("x"))
	assert.True(t, vellum.IsInvalidArgument(err))
	_, err = stateValue{Kind: 200}.decode()
	assert.True(t, vellum.IsInvalidArgument(err))
}

func TestRestorePagingStateErrors(t *testing.T) {
	p := newPager(t, nil)
	p.last = key{sql.TextValue("Baker"), sql.IntValue(2)}

	encode := func(st pagingState) []byte {
		b, err := msgpack.Marshal(&st)
		require.NoError(t, err)
		return b
	}
	tests := []struct {
		name string
		blob []byte
	}{
		{"malformed", []byte{0xc1}},
		{"unknown column", encode(pagingState{First: map[string]stateValue{
			"LastName": {Kind: uint8(sql.KindText), Text: "a"},
			"Id":       {Kind: uint8(sql.KindInt), Int: 1},
			"Nope":     {Kind: uint8(sql.KindInt), Int: 1},
		}})},
		{"missing column", encode(pagingState{Last: map[string]stateValue{
			"LastName": {Kind: uint8(sql.KindText), Text: "a"},
		}})},
		{"bad guid", encode(pagingState{Last: map[string]stateValue{
			"LastName": {Kind: uint8(sql.KindText), Text: "a"},
			"Id":       {Kind: uint8(sql.KindGUID), Bytes: []byte{1}},
		}})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.RestorePagingState(tt.blob)
			assert.True(t, vellum.IsInvalidArgument(err))
			assert.True(t, p.last[0].Equal(sql.TextValue("Baker")), "cursor unchanged")
		})
	}

	ok := encode(pagingState{First: map[string]stateValue{
		"lastname": {Kind: uint8(sql.KindText), Text: "Clark"},
		"ID":       {Kind: uint8(sql.KindInt), Int: 3},
	}})
	require.NoError(t, p.RestorePagingState(ok))
	assert.Nil(t, p.last)
	assert.True(t, p.first[0].Equal(sql.TextValue("Clark")))
}
