package sanitize

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/entertainbot/internal/apperr"
)

func TestStripHTML(t *testing.T) {
	assert.Equal(t, "Hello world", StripHTML("<p>Hello <b>world</b></p>"))
	assert.Equal(t, "", StripHTML(""))
	assert.Equal(t, "a b", StripHTML("<p>a</p>\n\n  <p>b</p>"))
	assert.Equal(t, "Tom & Jerry", StripHTML("<i>Tom &amp; Jerry</i>"))
}

func TestUserInput(t *testing.T) {
	out, err := UserInput("  <script>hi</script>  ")
	assert.NoError(t, err)
	assert.Equal(t, "&lt;script&gt;hi&lt;/script&gt;", out)

	_, err = UserInput("   \n\t")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	long, err := UserInput(strings.Repeat("x", 2500))
	assert.NoError(t, err)
	assert.Len(t, long, MaxMessageLength)
}

func TestMessageRejectsInsteadOfTruncating(t *testing.T) {
	out, err := Message(strings.Repeat("日", MaxMessageLength))
	require.NoError(t, err)
	assert.Equal(t, MaxMessageLength, len([]rune(out)))

	_, err = Message(strings.Repeat("x", MaxMessageLength+1))
	var invalid *apperr.InputValidationFailed
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "Message must be at most 2000 characters", invalid.Message)
	assert.Equal(t, http.StatusUnprocessableEntity, apperr.StatusOf(err))

	_, err = Message("  ")
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
}

func TestTruncateCountsRunes(t *testing.T) {
	assert.Equal(t, "日本", Truncate("日本語", 2))
	assert.Equal(t, "abc", Truncate("abc", 10))
	assert.Equal(t, "", Truncate("abc", 0))
}

func TestValidSessionID(t *testing.T) {
	assert.True(t, ValidSessionID("2f0e0c9e-6d5f-4b0e-9a55-5f3c6f2b8a11"))
	assert.True(t, ValidSessionID("user_42"))
	assert.False(t, ValidSessionID(""))
	assert.False(t, ValidSessionID("../etc/passwd"))
	assert.False(t, ValidSessionID(strings.Repeat("a", 129)))
}
