package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMessageDelay(t *testing.T) {
	cases := []struct {
		name  string
		value any
		want  int
	}{
		{"nil", nil, 10},
		{"number", float64(5), 5},
		{"fractional", 7.9, 7},
		{"string", "15", 15},
		{"leading digits", "12s", 12},
		{"padded", "  3", 3},
		{"garbage", "abc", 10},
		{"empty", "", 10},
		{"zero", "0", 10},
		{"negative", -4, 10},
		{"json number", json.Number("8"), 8},
		{"bool", true, 10},
		{"capped string", "10000000000", MaxMessageDelay},
		{"capped number", float64(1e12), MaxMessageDelay},
		{"at cap", MaxMessageDelay, MaxMessageDelay},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseMessageDelay(tc.value, DefaultMessageDelay))
		})
	}
}

func TestParseMessageDelayCapsFallback(t *testing.T) {
	assert.Equal(t, MaxMessageDelay, ParseMessageDelay(nil, 10000000000))
	assert.Equal(t, 4, ParseMessageDelay("abc", 4))
}
