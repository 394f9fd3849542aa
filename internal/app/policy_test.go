package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePolicy(t *testing.T) {
	assert.Equal(t, CloseConn, ParsePolicy("close").OnBackPressure(nil))
	assert.Equal(t, CloseConn, ParsePolicy("").OnBackPressure(nil))
	assert.Equal(t, CloseConn, ParsePolicy("bogus").OnBackPressure(nil))
	assert.Equal(t, DropFrame, ParsePolicy("drop").OnBackPressure(nil))
	assert.Equal(t, DropFrame, ParsePolicy(" DROP ").OnBackPressure(nil))
}
