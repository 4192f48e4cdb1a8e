package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type Status string

const (
	StatusActive Status = "active"
)

type Priority int

const (
	PriorityHigh Priority = 3
)

type Channel struct{ code string }

func (c Channel) EnumValue() any { return c.code }

var ChannelEmail = Channel{code: "email"}

type Line struct {
	SKU   string          `json:"sku"`
	Price decimal.Decimal `json:"price"`
}

type Base struct {
	ID uuid.UUID `json:"id"`
}

type Order struct {
	Base
	Status   Status            `json:"status"`
	Priority Priority          `json:"priority"`
	Channel  Channel           `json:"channel"`
	Total    decimal.Decimal   `json:"total"`
	Lines    []Line            `json:"lines"`
	Tags     map[string]string `json:"tags,omitempty"`
	Note     *string           `json:"note"`
	Secret   string            `json:"-"`
	internal string
}

func newOrder() Order {
	return Order{
		Base:     Base{ID: uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")},
		Status:   StatusActive,
		Priority: PriorityHigh,
		Channel:  ChannelEmail,
		Total:    decimal.RequireFromString("19.90"),
		Lines: []Line{
			{SKU: "a-1", Price: decimal.RequireFromString("0.10")},
		},
		Secret:   "x",
		internal: "y",
	}
}

func TestToMapping_FieldOrderAndValues(t *testing.T) {
	m, err := ToMapping(newOrder())
	require.NoError(t, err)

	var keys []string
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	assert.Equal(t, []string{"id", "status", "priority", "channel", "total", "lines", "note"}, keys)

	id, _ := m.Get("id")
	assert.Equal(t, "6ba7b810-9dad-11d1-80b4-00c04fd430c8", id)

	status, _ := m.Get("status")
	assert.Equal(t, "active", status)

	priority, _ := m.Get("priority")
	assert.Equal(t, int64(3), priority)

	channel, _ := m.Get("channel")
	assert.Equal(t, "email", channel)

	total, _ := m.Get("total")
	assert.Equal(t, "19.90", total)

	note, _ := m.Get("note")
	assert.Nil(t, note)
}

func TestToMapping_Pointer(t *testing.T) {
	o := newOrder()
	m, err := ToMapping(&o)
	require.NoError(t, err)
	assert.Equal(t, 7, m.Len())
}

func TestToMapping_NotStruct(t *testing.T) {
	_, err := ToMapping(42)
	assert.ErrorIs(t, err, ErrNotStruct)

	var o *Order
	_, err = ToMapping(o)
	assert.ErrorIs(t, err, ErrNotStruct)
}

func TestToMapping_MapSortedKeys(t *testing.T) {
	m, err := ToMapping(map[string]any{"b": 1, "a": decimal.RequireFromString("1.5")})
	require.NoError(t, err)

	assert.Equal(t, "a", m.Oldest().Key)
	assert.Equal(t, "1.5", m.Oldest().Value)
}

func TestToMapping_Unsupported(t *testing.T) {
	type bad struct {
		C complex128 `json:"c"`
	}
	_, err := ToMapping(bad{})

	var unsupported *UnsupportedTypeError
	require.ErrorAs(t, err, &unsupported)
	assert.Contains(t, err.Error(), "complex128")
}

func TestMarshal_DecimalsAndUUIDsAreStrings(t *testing.T) {
	data, err := Marshal(newOrder())
	require.NoError(t, err)

	assert.Equal(t, gjson.String, gjson.GetBytes(data, "id").Type)
	assert.Equal(t, gjson.String, gjson.GetBytes(data, "total").Type)
	assert.Equal(t, "19.90", gjson.GetBytes(data, "total").Str)
	assert.Equal(t, gjson.String, gjson.GetBytes(data, "lines.0.price").Type)
	assert.Equal(t, "0.10", gjson.GetBytes(data, "lines.0.price").Str)
	assert.Equal(t, gjson.Number, gjson.GetBytes(data, "priority").Type)
	assert.False(t, gjson.GetBytes(data, "Secret").Exists())
}

func TestMarshal_Time(t *testing.T) {
	type event struct {
		At time.Time `json:"at"`
	}
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	data, err := Marshal(event{At: at})
	require.NoError(t, err)
	assert.JSONEq(t, `{"at":"2024-01-02T03:04:05Z"}`, string(data))
}

func TestUnmarshal_RoundTrip(t *testing.T) {
	type wire struct {
		ID     uuid.UUID       `json:"id"`
		Status Status          `json:"status"`
		Total  decimal.Decimal `json:"total"`
	}
	in := wire{
		ID:     uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
		Status: StatusActive,
		Total:  decimal.RequireFromString("100.005"),
	}

	data, err := Marshal(in)
	require.NoError(t, err)

	var out wire
	require.NoError(t, Unmarshal(data, &out))
	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, in.Status, out.Status)
	assert.True(t, in.Total.Equal(out.Total))
}

func TestUnmarshal_Invalid(t *testing.T) {
	var out map[string]any
	err := Unmarshal([]byte(`{"a":`), &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model:")
}

func TestDecimalString(t *testing.T) {
	assert.Equal(t, "1.10", DecimalString(decimal.RequireFromString("1.10")))
	assert.Equal(t, "0.000001", DecimalString(decimal.RequireFromString("0.000001")))
	assert.Equal(t, "1000", DecimalString(decimal.RequireFromString("1000")))
	assert.Equal(t, "-2.50", DecimalString(decimal.RequireFromString("-2.50")))
}
