package schema

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeNumber(t *testing.T) {
	tests := []struct {
		in     any
		want   string
		wantOK bool
	}{
		{in: "1,200", want: "1200", wantOK: true},
		{in: "1 200 300", want: "1200300", wantOK: true},
		{in: "1 200", want: "1200", wantOK: true},
		{in: "12.50", want: "12.50", wantOK: true},
		{in: "-3", want: "-3", wantOK: true},
		{in: float64(42), want: "42", wantOK: true},
		{in: json.Number("7.5"), want: "7.5", wantOK: true},
		{in: "", want: "", wantOK: true},
		{in: nil, want: "", wantOK: true},
		{in: "twelve", want: "", wantOK: false},
		{in: "NaN", want: "", wantOK: false},
		{in: "Inf", want: "", wantOK: false},
		{in: math.Inf(1), want: "", wantOK: false},
		{in: []any{1}, want: "", wantOK: false},
	}

	for _, tt := range tests {
		got, ok := normalizeNumber(tt.in)
		assert.Equal(t, tt.want, got, "%v", tt.in)
		assert.Equal(t, tt.wantOK, ok, "%v", tt.in)
	}
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "", Stringify(nil))
	assert.Equal(t, "a, b", Stringify([]string{"a", "b"}))
	assert.Equal(t, "1, x", Stringify([]any{float64(1), "x"}))
	assert.Equal(t, "true", Stringify(true))
	assert.Equal(t, `{"k":"v"}`, Stringify(map[string]any{"k": "v"}))
}

func TestParseVisible(t *testing.T) {
	assert.True(t, parseVisible(nil))
	assert.True(t, parseVisible("yes"))
	assert.False(t, parseVisible(false))
	assert.False(t, parseVisible(float64(0)))
	assert.False(t, parseVisible(" Hidden "))
}

func TestCamel(t *testing.T) {
	assert.Equal(t, "startDateActual", camel("start_date_actual"))
	assert.Equal(t, "title", camel("title"))
}
