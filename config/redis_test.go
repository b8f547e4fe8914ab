package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnectRedis_Disabled(t *testing.T) {
	rdb, err := ConnectRedis(&Config{RedisEnabled: false})
	assert.NoError(t, err)
	assert.Nil(t, rdb)
}

func TestConnectRedis_TestEnvSkipsConnection(t *testing.T) {
	rdb, err := ConnectRedis(&Config{AppEnv: "test", RedisEnabled: true, RedisAddr: "localhost:6379"})
	assert.NoError(t, err)
	assert.Nil(t, rdb)
}

func TestConnectRedis_Unreachable(t *testing.T) {
	// Port 1 is reserved and never serves Redis.
	rdb, err := ConnectRedis(&Config{RedisEnabled: true, RedisAddr: "127.0.0.1:1"})
	assert.Error(t, err)
	assert.Nil(t, rdb)
}

func TestConnectRedis_ConcurrentDisabledCalls(t *testing.T) {
	cfg := &Config{RedisEnabled: false}
	done := make(chan error, 5)
	for i := 0; i < 5; i++ {
		go func() {
			_, err := ConnectRedis(cfg)
			done <- err
		}()
	}
	for i := 0; i < 5; i++ {
		assert.NoError(t, <-done)
	}
}
