package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nexusdb/nexusdb/internal/instance"
)

const (
	redisImage    = "redis:7-alpine"
	redisPort     = 6379
	redisDataPath = "/data"
)

// RedisProvider provisions dedicated Redis containers and proxies raw
// commands to them.
//
// Redis has no native multi-tenant database or login concept. The logical
// instance is emulated by namespacing bookkeeping keys under the
// instance's name (`<name>:_instanceInfo`, `<name>:_state`); user commands
// are passed through untouched, so nothing prevents key collisions at the
// protocol level. Known limitation, kept deliberately.
type RedisProvider struct {
	dockerLifecycle
}

var _ Provider = (*RedisProvider)(nil)

// NewRedisProvider creates a Redis provider.
func NewRedisProvider(opts Options) *RedisProvider {
	return &RedisProvider{dockerLifecycle{opts: opts}}
}

func (p *RedisProvider) Engine() string { return EngineRedis }

// CreateContainer provisions the container with requirepass set to the
// instance credential and writes the instance bookkeeping keys.
func (p *RedisProvider) CreateContainer(ctx context.Context, inst *instance.Instance, password string) error {
	cmd := []string{"redis-server", "--requirepass", password}

	probe := func(ctx context.Context) error {
		return p.ping(ctx, inst, password)
	}

	if err := provision(ctx, p.opts, inst, redisImage, redisPort, redisDataPath, nil, cmd, probe); err != nil {
		return err
	}

	client := p.client(inst, password)
	defer client.Close()

	info := fmt.Sprintf("instance for user %s created at %s", inst.Username, time.Now().UTC().Format(time.RFC3339))
	if err := client.Set(ctx, inst.Name+":_instanceInfo", info, 0).Err(); err != nil {
		return fmt.Errorf("writing instance marker: %w", err)
	}
	return client.Set(ctx, inst.Name+":_state", "ACTIVE", 0).Err()
}

// The synthetic `_state` key is written once at provisioning. Start and
// Stop receive no credential, so they cannot authenticate to update it;
// the container lifecycle is authoritative and the key only sustains the
// logical-instance illusion for clients that inspect it.

func (p *RedisProvider) client(inst *instance.Instance, password string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", p.opts.Host, inst.HostPort),
		Password: password,
	})
}

func (p *RedisProvider) ping(ctx context.Context, inst *instance.Instance, password string) error {
	client := p.client(inst, password)
	defer client.Close()
	return client.Ping(ctx).Err()
}

// ExecuteQuery passes a raw command through to the server, redis-cli style:
// "SET key value", "GET key", "HGETALL object".
func (p *RedisProvider) ExecuteQuery(ctx context.Context, inst *instance.Instance, statement, password string) *QueryResult {
	fields := strings.Fields(statement)
	if len(fields) == 0 {
		return Fail("Redis error: empty command")
	}

	client := p.client(inst, password)
	defer client.Close()

	args := make([]any, len(fields))
	for i, f := range fields {
		args[i] = f
	}

	val, err := client.Do(ctx, args...).Result()
	if err != nil {
		if err == redis.Nil {
			return OK("command successful (Redis), nil reply", []string{"response"}, []map[string]any{})
		}
		return Fail("Redis error: %v", err)
	}

	return OK("command successful (Redis)", []string{"response"}, []map[string]any{
		{"response": normalizeRedis(val)},
	})
}

// normalizeRedis converts go-redis reply values into JSON-friendly ones.
func normalizeRedis(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case []any:
		out := make([]any, 0, len(val))
		for _, item := range val {
			out = append(out, normalizeRedis(item))
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = normalizeRedis(item)
		}
		return out
	default:
		return val
	}
}
