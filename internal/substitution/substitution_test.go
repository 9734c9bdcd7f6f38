package substitution

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProcess_SessionVariableTakesPriority(t *testing.T) {
	p := New()
	session := map[string]any{"uuid": "not-a-real-uuid", "name": "alice"}
	got := p.Process("hello {{name}}, id={{uuid}}", session)
	assert.Equal(t, "hello alice, id=not-a-real-uuid", got)
}

func TestProcess_NonStringSessionValueStringified(t *testing.T) {
	p := New()
	session := map[string]any{"age": 30, "ok": true}
	got := p.Process("age={{age}} ok={{ok}}", session)
	assert.Equal(t, "age=30 ok=true", got)
}

func TestProcess_BuiltinGeneratorFallback(t *testing.T) {
	p := New()
	got := p.Process("{{uuid}}", nil)
	assert.Len(t, got, 36)
}

func TestProcess_FunctionCallArgs(t *testing.T) {
	p := New()
	got := p.Process(`{{base64_encode("hello")}}`, nil)
	assert.Equal(t, "aGVsbG8=", got)
}

func TestProcess_RandomIntRangeBounds(t *testing.T) {
	p := New()
	for i := 0; i < 20; i++ {
		got := p.Process("{{random_int_range(5, 10)}}", nil)
		assert.Contains(t, []string{"5", "6", "7", "8", "9"}, got)
	}
}

func TestProcess_UnknownFunctionKeptLiteral(t *testing.T) {
	p := New()
	got := p.Process("{{nope(1,2)}}", nil)
	assert.Equal(t, "{{nope(1,2)}}", got)
}

func TestProcess_UnknownBareNameKeptAsPlaceholder(t *testing.T) {
	p := New()
	got := p.Process("{{totally_unknown}}", nil)
	assert.Equal(t, "{{totally_unknown}}", got)
}

func TestProcess_NoPlaceholdersReturnsInputUnchanged(t *testing.T) {
	p := New()
	got := p.Process("plain text with no braces", nil)
	assert.Equal(t, "plain text with no braces", got)
}

func TestProcess_RandomDigitsPrefixPattern(t *testing.T) {
	p := New()
	got := p.Process("{{random_digits_6}}", nil)
	assert.Len(t, got, 6)
	for _, c := range got {
		assert.True(t, c >= '0' && c <= '9')
	}
}

func TestProcessValue_RecursesMapsAndSlices(t *testing.T) {
	p := New()
	session := map[string]any{"id": "abc"}
	input := map[string]any{
		"user_id": "{{id}}",
		"tags":    []any{"{{id}}-a", "static"},
		"nested":  map[string]any{"k": "{{id}}"},
		"count":   5,
	}
	got := p.ProcessValue(input, session).(map[string]any)
	assert.Equal(t, "abc", got["user_id"])
	assert.Equal(t, []any{"abc-a", "static"}, got["tags"])
	assert.Equal(t, map[string]any{"k": "abc"}, got["nested"])
	assert.Equal(t, 5, got["count"])
}

func TestProcessHeaders(t *testing.T) {
	p := New()
	session := map[string]any{"token": "xyz"}
	got := p.ProcessHeaders(map[string]string{"Authorization": "Bearer {{token}}"}, session)
	assert.Equal(t, "Bearer xyz", got["Authorization"])
}
