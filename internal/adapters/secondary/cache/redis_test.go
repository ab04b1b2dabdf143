package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "followees:me", key("me"))
}

func TestWithoutSentinel(t *testing.T) {
	assert.Empty(t, withoutSentinel([]string{sentinel}))
	assert.ElementsMatch(t, []string{"anna", "bob"}, withoutSentinel([]string{"anna", sentinel, "bob"}))
}
