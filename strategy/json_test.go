package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalJSON_Nil(t *testing.T) {
	assert.Equal(t, "", canonicalJSON(nil))
}

func TestCanonicalJSON_StringPassesThrough(t *testing.T) {
	assert.Equal(t, "already a string", canonicalJSON("already a string"))
}

func TestCanonicalJSON_MarshalsOtherValues(t *testing.T) {
	assert.Equal(t, `{"count":3}`, canonicalJSON(map[string]int{"count": 3}))
}

func TestCanonicalJSON_UnmarshalableValueReturnsEmpty(t *testing.T) {
	assert.Equal(t, "", canonicalJSON(make(chan int)))
}
