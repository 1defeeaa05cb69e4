package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseEnvironment(t *testing.T) {
	assert.Equal(t, Production, ParseEnvironment("production"))
	assert.Equal(t, Staging, ParseEnvironment("staging"))
	assert.Equal(t, Testing, ParseEnvironment("testing"))
	assert.Equal(t, Development, ParseEnvironment(""))
	assert.Equal(t, Development, ParseEnvironment("prod"))
}

func TestEnvironmentDecode(t *testing.T) {
	var env Environment
	assert.NoError(t, env.Decode("production"))
	assert.True(t, env.IsProduction())

	assert.NoError(t, env.Decode("whatever"))
	assert.Equal(t, Development, env)
}
