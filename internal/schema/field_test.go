package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseFieldType(t *testing.T) {
	tests := []struct {
		in   string
		want FieldType
	}{
		{"text", ShortText},
		{"short-text", ShortText},
		{"textarea", LongText},
		{"long-text", LongText},
		{"select", SingleSelect},
		{"single-select", SingleSelect},
		{"mc", MultipleChoice},
		{"multiple-choice", MultipleChoice},
		{"tf", Boolean},
		{"Boolean", Boolean},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFieldType(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseFieldType("slider")
	assert.Error(t, err)
}

func TestFieldType_YAMLRoundTrip(t *testing.T) {
	var f FieldDefinition
	require.NoError(t, yaml.Unmarshal([]byte("key: k\nlabel: L\ntype: textarea\n"), &f))
	assert.Equal(t, LongText, f.Type)

	out, err := yaml.Marshal(f)
	require.NoError(t, err)
	assert.Contains(t, string(out), "type: long-text")
}

func TestOption_UnmarshalShapes(t *testing.T) {
	var opts []Option
	src := "- plain\n- {value: v, text: Shown}\n- {value: only}\n"
	require.NoError(t, yaml.Unmarshal([]byte(src), &opts))

	assert.Equal(t, []Option{
		{Value: "plain", Text: "plain"},
		{Value: "v", Text: "Shown"},
		{Value: "only", Text: "only"},
	}, opts)
}

func TestFieldDefinition_Canonical(t *testing.T) {
	sel := FieldDefinition{Key: "lvl", Type: SingleSelect, Options: []Option{
		{Value: "high", Text: "High"},
		{Value: "low", Text: "Low"},
	}}
	yesNo := FieldDefinition{Key: "b", Type: Boolean}
	text := FieldDefinition{Key: "t", Type: LongText}

	tests := []struct {
		name    string
		field   FieldDefinition
		reply   string
		want    string
		wantErr bool
	}{
		{"select by number", sel, "2", "low", false},
		{"select by value", sel, "high", "high", false},
		{"select by text any case", sel, "LOW", "low", false},
		{"select out of range", sel, "3", "", true},
		{"select unknown", sel, "medium", "", true},
		{"blank is an empty answer", sel, "   ", "", false},
		{"boolean yes", yesNo, "Yes", "true", false},
		{"boolean n", yesNo, "n", "false", false},
		{"boolean garbage", yesNo, "maybe", "", true},
		{"text keeps inner newlines", text, "line one\nline two\n", "line one\nline two", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.field.Canonical(tt.reply)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidChoice))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFieldDefinition_Display(t *testing.T) {
	sel := FieldDefinition{Type: SingleSelect, Options: []Option{{Value: "high", Text: "High level"}}}
	assert.Equal(t, "High level", sel.Display("high"))
	assert.Equal(t, "unknown", sel.Display("unknown"), "values without an option show raw")

	b := FieldDefinition{Type: Boolean}
	assert.Equal(t, "Yes", b.Display("true"))
	assert.Equal(t, "No", b.Display("false"))

	txt := FieldDefinition{Type: ShortText}
	assert.Equal(t, "as is", txt.Display("as is"))
}

func TestFieldDefinition_IsMultiline(t *testing.T) {
	assert.True(t, FieldDefinition{Type: LongText}.IsMultiline("x"))
	assert.True(t, FieldDefinition{Type: ShortText}.IsMultiline("a\nb"))
	assert.False(t, FieldDefinition{Type: ShortText}.IsMultiline("a"))
}
