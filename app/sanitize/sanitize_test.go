package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "best running shoes", "best running shoes"},
		{"tags stripped", "<b>best</b> running <script>x</script>shoes", "best running shoes"},
		{"whitespace collapsed", "  best \n\t running   shoes ", "best running shoes"},
		{"entities decoded", "Tom &amp; Jerry", "Tom & Jerry"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Text(tt.input))
		})
	}
}

func TestTextarea(t *testing.T) {
	assert.Equal(t, "first line\nsecond line", Textarea("first line  \r\n<i>second</i> line\n"))
	assert.Equal(t, "", Textarea("   "))
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "hello-world", Slug("Hello World"))
	assert.Equal(t, "cafe", Slug("Café"))
	assert.Equal(t, "landing", Slug("<em>landing</em>"))
}

func TestWordCount(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
	}{
		{"empty", "", 0},
		{"plain text", "one two three", 3},
		{"html", "<p>Hello <strong>big</strong> world</p>", 3},
		{"punctuation", "It's a well-known fact, isn't it?", 6},
		{"numbers are not words", "Top 10 tips", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, WordCount(tt.input))
		})
	}
}
