package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRootCommandRejectsArguments(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"extra"})
	assert.Error(t, cmd.Execute())
}

func TestReadVersionFromEnv(t *testing.T) {
	t.Setenv("APP_VERSION", " 1.4.0 ")
	assert.Equal(t, "1.4.0", readVersionFromEnv())

	t.Setenv("APP_VERSION", "")
	assert.Equal(t, "dev", readVersionFromEnv())
}
