package name

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValid(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"x-foo", true},
		{"user-card", true},
		{"my-element-2", true},
		{"a-", true},
		{"math-α", true},
		{"emotion-😍", true},
		{"x.y-z_w", true},
		{"", false},
		{"foo", false},
		{"Invalid_Name", false},
		{"X-foo", false},
		{"x-Foo", false},
		{"-foo", false},
		{"1-foo", false},
		{"x-foo bar", false},
		{"x-foo:bar", false},
		{"annotation-xml", false},
		{"font-face", false},
		{"missing-glyph", false},
		{"color-profile", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValid(tt.in))
		})
	}
}

func TestIsReserved(t *testing.T) {
	assert.True(t, IsReserved("font-face-name"))
	assert.False(t, IsReserved("font-faces"))
}
