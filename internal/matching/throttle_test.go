package matching

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNotificationThrottleDegradesWithoutRedis(t *testing.T) {
	ctx := context.Background()

	var nilThrottle *NotificationThrottle
	assert.True(t, nilThrottle.Allow(ctx, 1, 2))

	noClient := NewNotificationThrottle(nil, time.Hour)
	assert.True(t, noClient.Allow(ctx, 1, 2))
}
