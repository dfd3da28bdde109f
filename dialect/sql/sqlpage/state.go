package sqlpage

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/vellum"
	"github.com/syssam/vellum/dialect/sql"
)

// pagingState is the wire form of a cursor: the key column values of the
// first and last row of the current page, keyed by column name.
type pagingState struct {
	First map[string]stateValue `msgpack:"first,omitempty"`
	Last  map[string]stateValue `msgpack:"last,omitempty"`
}

type stateValue struct {
	Kind  uint8     `msgpack:"k"`
	Int   int64     `msgpack:"i,omitempty"`
	Text  string    `msgpack:"s,omitempty"`
	Time  time.Time `msgpack:"t,omitempty"`
	Bytes []byte    `msgpack:"b,omitempty"`
}

func encodeValue(v sql.Value) (stateValue, error) {
	sv := stateValue{Kind: uint8(v.Kind())}
	switch v.Kind() {
	case sql.KindNull:
	case sql.KindBool:
		if b, _ := v.Bool(); b {
			sv.Int = 1
		}
	case sql.KindInt:
		sv.Int, _ = v.Int()
	case sql.KindDecimal:
		sv.Text = v.String()
	case sql.KindText:
		sv.Text, _ = v.Text()
	case sql.KindDateTime:
		sv.Time, _ = v.Time()
	case sql.KindBytes:
		sv.Bytes, _ = v.Bytes()
	case sql.KindGUID:
		u, _ := v.GUID()
		sv.Bytes = u[:]
	default:
		return sv, vellum.NewInvalidArgumentError("state", "cannot encode %s value", v.Kind())
	}
	return sv, nil
}

func (sv stateValue) decode() (sql.Value, error) {
	switch sql.Kind(sv.Kind) {
	case sql.KindNull:
		return sql.Null, nil
	case sql.KindBool:
		return sql.BoolValue(sv.Int != 0), nil
	case sql.KindInt:
		return sql.IntValue(sv.Int), nil
	case sql.KindDecimal:
		return sql.DecimalValue(sv.Text)
	case sql.KindText:
		return sql.TextValue(sv.Text), nil
	case sql.KindDateTime:
		return sql.TimeValue(sv.Time), nil
	case sql.KindBytes:
		return sql.BytesValue(sv.Bytes), nil
	case sql.KindGUID:
		u, err := uuid.FromBytes(sv.Bytes)
		if err != nil {
			return sql.Null, vellum.NewInvalidArgumentError("state", "invalid guid: %v", err)
		}
		return sql.GUIDValue(u), nil
	}
	return sql.Null, vellum.NewInvalidArgumentError("state", "unknown value kind %d", sv.Kind)
}

// GetPagingState returns the cursor as an opaque blob that
// RestorePagingState accepts, possibly on another Pager over the same
// table and key columns.
func (p *Pager) GetPagingState() ([]byte, error) {
	var (
		st  pagingState
		err error
	)
	if st.First, err = p.encodeKey(p.first); err != nil {
		return nil, err
	}
	if st.Last, err = p.encodeKey(p.last); err != nil {
		return nil, err
	}
	b, err := msgpack.Marshal(&st)
	if err != nil {
		return nil, fmt.Errorf("sqlpage: encode state: %w", err)
	}
	return b, nil
}

// RestorePagingState replaces the cursor with a blob returned by
// GetPagingState. An empty blob resets the cursor. On error the cursor is
// unchanged.
func (p *Pager) RestorePagingState(b []byte) error {
	if len(b) == 0 {
		p.Reset()
		return nil
	}
	var st pagingState
	if err := msgpack.Unmarshal(b, &st); err != nil {
		return vellum.NewInvalidArgumentError("state", "malformed paging state: %v", err)
	}
	first, err := p.decodeKey(st.First)
	if err != nil {
		return err
	}
	last, err := p.decodeKey(st.Last)
	if err != nil {
		return err
	}
	p.first, p.last = first, last
	return nil
}

func (p *Pager) encodeKey(k key) (map[string]stateValue, error) {
	if k == nil {
		return nil, nil
	}
	m := make(map[string]stateValue, len(k))
	for i, col := range p.columns {
		sv, err := encodeValue(k[i])
		if err != nil {
			return nil, err
		}
		m[col] = sv
	}
	return m, nil
}

func (p *Pager) decodeKey(m map[string]stateValue) (key, error) {
	if len(m) == 0 {
		return nil, nil
	}
	k := make(key, len(p.columns))
	seen := make([]bool, len(p.columns))
	for name, sv := range m {
		i := p.position(name)
		if i < 0 {
			return nil, vellum.NewInvalidArgumentError("state", "unknown key column %q", name)
		}
		v, err := sv.decode()
		if err != nil {
			return nil, err
		}
		k[i], seen[i] = v, true
	}
	for i, ok := range seen {
		if !ok {
			return nil, vellum.NewInvalidArgumentError("state", "key column %q is missing", p.columns[i])
		}
	}
	return k, nil
}
