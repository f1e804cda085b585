package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize_EscapesMarkup(t *testing.T) {
	got, ok := Sanitize("Hello <b>world</b>")
	assert.True(t, ok)
	assert.Equal(t, "Hello &lt;b&gt;world&lt;&#x2F;b&gt;", got)
}

func TestSanitize_EscapesEveryDangerousCharacter(t *testing.T) {
	got, ok := Sanitize("& < > \" ' / ` =")
	assert.True(t, ok)
	assert.Equal(t, "&amp; &lt; &gt; &quot; &#x27; &#x2F; &#x60; &#x3D;", got)
}

func TestSanitize_AmpersandEscapedFirst(t *testing.T) {
	// "&lt;" in the input must not survive as a working entity.
	got, ok := Sanitize("&lt;script&gt;")
	assert.True(t, ok)
	assert.Equal(t, "&amp;lt;script&amp;gt;", got)
}

func TestSanitize_EmptyDroppedSilently(t *testing.T) {
	for _, raw := range []string{"", "   ", "\n\t  \n"} {
		_, ok := Sanitize(raw)
		assert.False(t, ok, "input %q should be dropped", raw)
	}
}

func TestSanitize_TruncatesBeforeEscaping(t *testing.T) {
	got, ok := Sanitize(strings.Repeat("a", MaxMessageLength+500))
	assert.True(t, ok)
	assert.Len(t, got, MaxMessageLength)
}

func TestSanitize_TruncationCountsRunes(t *testing.T) {
	got, ok := Sanitize(strings.Repeat("日", MaxMessageLength+1))
	assert.True(t, ok)
	assert.Equal(t, MaxMessageLength, len([]rune(got)))
}

func TestSanitize_CollapsesBlankLineWalls(t *testing.T) {
	got, ok := Sanitize("top" + strings.Repeat("\n", 10) + "bottom")
	assert.True(t, ok)
	assert.Equal(t, "top\n\n\nbottom", got)

	// Three newlines or fewer pass through untouched.
	got, ok = Sanitize("top\n\n\nbottom")
	assert.True(t, ok)
	assert.Equal(t, "top\n\n\nbottom", got)
}

func TestSanitize_CollapsesCRLFRuns(t *testing.T) {
	got, ok := Sanitize("top\r\n\r\n\r\n\r\n\r\nbottom")
	assert.True(t, ok)
	assert.Equal(t, "top\n\n\nbottom", got)
}

func TestSanitize_TrimsSurroundingWhitespace(t *testing.T) {
	got, ok := Sanitize("  hi there  ")
	assert.True(t, ok)
	assert.Equal(t, "hi there", got)
}
