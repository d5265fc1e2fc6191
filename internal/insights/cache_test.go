package insights

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/coverage-cli/internal/store"
)

func TestStoreCache(t *testing.T) {
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	c := NewStoreCache(st)
	ctx := context.Background()

	_, hit, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.Set(ctx, "k", []byte(`"hello"`), time.Hour))
	data, hit, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, `"hello"`, string(data))
}

// fakeRedis answers GET and SET in-process so no server is needed.
type fakeRedis struct {
	data map[string]string
}

func (f *fakeRedis) DialHook(next goredis.DialHook) goredis.DialHook { return next }

func (f *fakeRedis) ProcessPipelineHook(next goredis.ProcessPipelineHook) goredis.ProcessPipelineHook {
	return next
}

func (f *fakeRedis) ProcessHook(_ goredis.ProcessHook) goredis.ProcessHook {
	return func(_ context.Context, cmd goredis.Cmder) error {
		args := cmd.Args()
		switch c := cmd.(type) {
		case *goredis.StringCmd:
			v, ok := f.data[args[1].(string)]
			if !ok {
				c.SetErr(goredis.Nil)
				return goredis.Nil
			}
			c.SetVal(v)
		case *goredis.StatusCmd:
			switch v := args[2].(type) {
			case []byte:
				f.data[args[1].(string)] = string(v)
			case string:
				f.data[args[1].(string)] = v
			}
			c.SetVal("OK")
		}
		return nil
	}
}

func TestRedisCache(t *testing.T) {
	rdb := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:0"})
	rdb.AddHook(&fakeRedis{data: map[string]string{}})
	c := NewRedisCacheFromClient(rdb)
	t.Cleanup(func() { c.Close() }) //nolint:errcheck

	ctx := context.Background()
	_, hit, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.Set(ctx, "k", []byte(`"cached"`), time.Minute))
	data, hit, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, `"cached"`, string(data))
}

func TestNewRedisCache_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := NewRedisCache(ctx, "127.0.0.1:1", "", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping")
}
