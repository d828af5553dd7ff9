package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "vehiclefinder:nearest:3:34.544909:-102.10084", Key(3, 34.544909, -102.10084))

	// A new generation never shares keys with the old one.
	assert.NotEqual(t, Key(1, 1, 1), Key(2, 1, 1))
}

func TestKey_DistinguishesNearbyCoordinates(t *testing.T) {
	// Both sides of the -90 longitude split line, 0.0000008 apart.
	west := Key(1, 10, -90.0000004)
	east := Key(1, 10, -89.9999996)
	assert.NotEqual(t, west, east)

	assert.NotEqual(t, Key(1, 32.3455441, -99.1231239), Key(1, 32.345544, -99.123124))
	assert.Equal(t, Key(1, 0.1+0.2, 5), Key(1, 0.30000000000000004, 5))
}
