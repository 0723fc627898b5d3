package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	s := miniredis.RunT(t)

	ctx := context.Background()
	client, err := NewClient(ctx, Config{URL: "redis://" + s.Addr(), DialTimeout: time.Second, ReadTimeout: 2 * time.Second})
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, time.Second, client.Options().DialTimeout)
	assert.Equal(t, 2*time.Second, client.Options().ReadTimeout)
	assert.NoError(t, Ping(client)(ctx))
}

func TestNewClientErrors(t *testing.T) {
	down := miniredis.RunT(t)
	downURL := "redis://" + down.Addr()
	down.Close()

	tests := []struct {
		name string
		url  string
		want string
	}{
		{"invalid url", "://bad-url", "failed to parse redis URL"},
		{"server down", downURL, "failed to ping redis"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(context.Background(), Config{URL: tt.url, DialTimeout: 200 * time.Millisecond})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestPingReportsOutage(t *testing.T) {
	s := miniredis.RunT(t)
	client, err := NewClient(context.Background(), Config{URL: "redis://" + s.Addr()})
	require.NoError(t, err)
	defer client.Close()

	s.Close()

	assert.Error(t, Ping(client)(context.Background()))
}
