package database

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := ConnectRedis(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	mr.CheckGet(t, "k", "v")
}

func TestConnectRedisRejectsBadURL(t *testing.T) {
	_, err := ConnectRedis(context.Background(), "not a url")
	assert.Error(t, err)
}

func TestConnectRedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := ConnectRedis(context.Background(), "redis://"+addr)
	assert.Error(t, err)
}
