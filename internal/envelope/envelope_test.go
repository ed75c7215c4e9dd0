package envelope_test

import (
	"testing"

	"github.com/jrsteele09/go-vocab-client/internal/envelope"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	raw := []byte(`{"message":"ok","data":{"token":{"accessToken":"tok1"},"account":null}}`)

	v, ok := envelope.Lookup(raw, "data", "token")
	require.True(t, ok)
	require.JSONEq(t, `{"accessToken":"tok1"}`, string(v))

	_, ok = envelope.Lookup(raw, "data", "account")
	require.False(t, ok, "null is treated as missing")

	_, ok = envelope.Lookup(raw, "message", "deeper")
	require.False(t, ok, "cannot walk into a string")

	s, ok := envelope.FirstString(raw, []string{"accessToken"}, []string{"data", "token", "accessToken"})
	require.True(t, ok)
	require.Equal(t, "tok1", s)
}

func TestLookup_ArrayIndex(t *testing.T) {
	raw := []byte(`{"errors":[{"field":"email","message":"Email already exists"}]}`)

	msg, ok := envelope.String(raw, "errors", "0", "message")
	require.True(t, ok)
	require.Equal(t, "Email already exists", msg)

	_, ok = envelope.Lookup(raw, "errors", "1")
	require.False(t, ok)
	_, ok = envelope.Lookup(raw, "errors", "first")
	require.False(t, ok)
}

func TestString_RejectsEmptyAndNonString(t *testing.T) {
	_, ok := envelope.String([]byte(`{"accessToken":""}`), "accessToken")
	require.False(t, ok)

	_, ok = envelope.String([]byte(`{"accessToken":42}`), "accessToken")
	require.False(t, ok)
}

func TestList_Shapes(t *testing.T) {
	type item struct {
		ID string `json:"id"`
	}

	tests := []struct {
		name string
		raw  string
		want int
	}{
		{name: "nested data", raw: `{"data":{"data":[{"id":"1"},{"id":"2"}]}}`, want: 2},
		{name: "named key", raw: `{"data":{"users":[{"id":"1"}]}}`, want: 1},
		{name: "data array", raw: `{"data":[{"id":"1"},{"id":"2"},{"id":"3"}]}`, want: 3},
		{name: "bare array", raw: `[{"id":"1"}]`, want: 1},
		{name: "unknown object", raw: `{"data":{"total":3}}`, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := envelope.List[item]([]byte(tt.raw), "users")
			require.NoError(t, err)
			require.Len(t, items, tt.want)
		})
	}
}

func TestItem_Shapes(t *testing.T) {
	type item struct {
		ID string `json:"id"`
	}

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "named under data", raw: `{"data":{"user":{"id":"1"}}}`, want: "1"},
		{name: "named top level", raw: `{"user":{"id":"2"}}`, want: "2"},
		{name: "data object", raw: `{"success":true,"data":{"id":"3"}}`, want: "3"},
		{name: "bare object", raw: `{"id":"4"}`, want: "4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := envelope.Item[item]([]byte(tt.raw), "user")
			require.NoError(t, err)
			require.Equal(t, tt.want, got.ID)
		})
	}

	t.Run("not an object", func(t *testing.T) {
		_, err := envelope.Item[item]([]byte(`[1,2]`), "user")
		require.Error(t, err)
	})
}
