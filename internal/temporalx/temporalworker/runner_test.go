package temporalworker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClampBackoff(t *testing.T) {
	base, max := 250*time.Millisecond, 2*time.Second
	assert.Equal(t, base, clampBackoff(base, max, 1))
	assert.Equal(t, 500*time.Millisecond, clampBackoff(base, max, 2))
	assert.Equal(t, time.Second, clampBackoff(base, max, 3))
	assert.Equal(t, max, clampBackoff(base, max, 4))
	assert.Equal(t, max, clampBackoff(base, max, 30))
}

func TestNewRunnerNeedsClient(t *testing.T) {
	_, err := NewRunner(nil, Config{}, nil, nil, nil, nil, nil)
	assert.Error(t, err)
}
