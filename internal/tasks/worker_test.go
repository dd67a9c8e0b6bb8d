package tasks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryBackoff(t *testing.T) {
	assert.Equal(t, time.Minute, retryBackoff(1))
	assert.Equal(t, 3*time.Minute, retryBackoff(3))
}
