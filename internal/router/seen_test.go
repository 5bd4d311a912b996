package router

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeenCache_TrimKeepsMostRecent(t *testing.T) {
	c := NewSeenCache(100, 50)
	for i := 0; i < 100; i++ {
		c.Add(fmt.Sprintf("k%d", i))
	}
	assert.Equal(t, 100, c.Len(), "no trim until capacity is exceeded")

	c.Add("k100")
	assert.Equal(t, 50, c.Len())
	assert.False(t, c.Has("k0"))
	assert.False(t, c.Has("k50"))
	assert.True(t, c.Has("k51"))
	assert.True(t, c.Has("k100"))

	keys := c.Keys()
	assert.Equal(t, "k51", keys[0])
	assert.Equal(t, "k100", keys[len(keys)-1])
}

func TestSeenCache_ReAddDoesNotMove(t *testing.T) {
	c := NewSeenCache(3, 1)
	c.Add("a")
	c.Add("b")
	c.Add("a")
	c.Add("c")
	assert.Equal(t, []string{"a", "b", "c"}, c.Keys())

	c.Add("d")
	assert.Equal(t, []string{"d"}, c.Keys())
}

func TestSeenCache_ClampsTrimTarget(t *testing.T) {
	c := NewSeenCache(2, 10)
	c.Add("a")
	c.Add("b")
	c.Add("c")
	assert.Equal(t, []string{"b", "c"}, c.Keys())
}

func TestDedupKey(t *testing.T) {
	assert.Equal(t, "7_https://a.com", DedupKey(7, "https://a.com"))
}
