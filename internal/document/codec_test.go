package document

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ucpllm/internal/schema"
)

func TestParse_RoundTrip(t *testing.T) {
	d := New("1.1.0", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, d.SetValue(personalDef, 0, "preferredName", "Lina"))
	require.NoError(t, d.MarkSkipped(personalDef, 0, "dateOfBirth"))

	data, err := d.Marshal()
	require.NoError(t, err)

	back, err := Parse(data)
	require.NoError(t, err)
	if diff := cmp.Diff(d, back); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	again, err := back.Marshal()
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again), "marshal must be deterministic")
}

func TestParse_LegacyKeys(t *testing.T) {
	src := `{"protocolVersion":"1.0","generationDate":"2024-05-05T10:00:00Z","sections":[{"id":"personal","title":"P","items":[{"preferredName":"Omar"}]}]}`
	d, err := Parse([]byte(src))
	require.NoError(t, err)
	assert.Equal(t, "1.0", d.Version)
	assert.Equal(t, "2024-05-05T10:00:00Z", d.GeneratedAt)
	assert.Equal(t, "Omar", d.Value("personal", 0, "preferredName"))
}

func TestParse_MissingItemsBecomesEmpty(t *testing.T) {
	d, err := Parse([]byte(`{"version":"1","sections":[{"id":"social","title":"S"}]}`))
	require.NoError(t, err)
	s, ok := d.Section("social")
	require.True(t, ok)
	assert.NotNil(t, s.Items)
	assert.Empty(t, s.Items)
}

func TestParse_Failures(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"empty", "   "},
		{"not json", "{nope"},
		{"array", `[1,2]`},
		{"empty object", `{}`},
		{"no sections", `{"version":"1"}`},
		{"null sections", `{"version":"1","sections":null}`},
		{"sections not a list", `{"version":"1","sections":{}}`},
		{"section without id", `{"sections":[{"title":"x","items":[]}]}`},
		{"duplicate section", `{"sections":[{"id":"a","items":[]},{"id":"a","items":[]}]}`},
		{"non-string value", `{"sections":[{"id":"a","items":[{"k":3}]}]}`},
		{"null item", `{"sections":[{"id":"a","items":[null]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Parse([]byte(tt.src))
			assert.Nil(t, d, "a failed load never yields a partial document")
			var le *LoadError
			require.True(t, errors.As(err, &le), "got %T: %v", err, err)
		})
	}
}

func TestValidate_ItemBound(t *testing.T) {
	cat := schema.MustDefault()
	src := `{"version":"1","sections":[{"id":"personal","title":"P","items":[{"preferredName":"a"},{"preferredName":"b"}]}]}`
	d, err := Parse([]byte(src))
	require.NoError(t, err)

	err = d.Validate(cat)
	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Contains(t, le.Error(), "max 1")
}

func TestValidate_UnknownSectionsAreKept(t *testing.T) {
	d, err := Parse([]byte(`{"version":"1","sections":[{"id":"legacy_extra","title":"X","items":[{"a":"b"}]}]}`))
	require.NoError(t, err)
	assert.NoError(t, d.Validate(schema.MustDefault()))
	assert.Equal(t, 1, d.ItemCount("legacy_extra"))
}

func TestLoadError_Message(t *testing.T) {
	e := &LoadError{Path: "doc.json", Reason: "missing sections"}
	assert.Equal(t, "load document doc.json: missing sections", e.Error())

	cause := errors.New("boom")
	wrapped := &LoadError{Reason: "malformed document", Err: cause}
	assert.True(t, errors.Is(wrapped, cause))
}
