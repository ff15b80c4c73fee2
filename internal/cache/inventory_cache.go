package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"ticket-booking/internal/model"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

var ErrCacheMiss = errors.New("inventory not cached")

// InventoryCache is a read model of the ticket type counters. Postgres (or the
// memory store) stays the source of truth; writes carry the row version and
// older versions never overwrite newer ones.
type InventoryCache interface {
	// 同步：版本較新時才寫入 (使用Lua腳本確保原子性)
	Sync(ctx context.Context, snapshot model.InventorySnapshot) (bool, error)
	// 獲取：獲取單一票種的快照
	Get(ctx context.Context, eventID uuid.UUID, name model.TicketTypeName) (model.InventorySnapshot, error)
	// 獲取：獲取活動全部票種的快照
	GetEvent(ctx context.Context, eventID uuid.UUID) ([]model.InventorySnapshot, error)
}

type RedisInventoryCache struct {
	client *redis.Client
}

func NewRedisInventoryCache(client *redis.Client) InventoryCache {
	return &RedisInventoryCache{
		client: client,
	}
}

// 庫存 key
func InventoryKey(eventID uuid.UUID, name model.TicketTypeName) string {
	return fmt.Sprintf("inventory:%s:%s", eventID, name)
}

// 活動票種索引 key
func TypesKey(eventID uuid.UUID) string {
	return fmt.Sprintf("inventory:%s:types", eventID)
}

/*
同步庫存快照
 1. 取得目前版本
 2. 版本不比目前新則略過
 3. 寫入計數並登記票種索引
*/
const SyncScript = `
	local key = KEYS[1]
	local types_key = KEYS[2]
	local incoming = tonumber(ARGV[1])

	local current = redis.call('HGET', key, 'version')
	if current and tonumber(current) >= incoming then
		return {0, current}
	end

	redis.call('HSET', key, 'version', ARGV[1], 'capacity', ARGV[2], 'sold', ARGV[3], 'price', ARGV[4])
	redis.call('SADD', types_key, ARGV[5])

	return {1, ARGV[1]}
`

func (c *RedisInventoryCache) Sync(ctx context.Context, snapshot model.InventorySnapshot) (bool, error) {
	keys := []string{InventoryKey(snapshot.EventID, snapshot.TicketType), TypesKey(snapshot.EventID)}
	result, err := c.client.Eval(ctx, SyncScript, keys,
		strconv.FormatInt(snapshot.Version, 10),
		strconv.Itoa(snapshot.Capacity),
		strconv.Itoa(snapshot.Sold),
		snapshot.UnitPrice.String(),
		string(snapshot.TicketType),
	).Result()
	if err != nil {
		return false, err
	}

	resSlice, ok := result.([]interface{})
	if !ok || len(resSlice) != 2 {
		return false, errors.New("unexpected result")
	}
	code, ok := resSlice[0].(int64)
	if !ok {
		return false, errors.New("unexpected result")
	}

	switch code {
	case 1:
		return true, nil
	case 0:
		return false, nil
	default:
		return false, errors.New("unexpected result")
	}
}

func (c *RedisInventoryCache) Get(ctx context.Context, eventID uuid.UUID, name model.TicketTypeName) (model.InventorySnapshot, error) {
	result, err := c.client.HGetAll(ctx, InventoryKey(eventID, name)).Result()
	if err != nil {
		return model.InventorySnapshot{}, err
	}

	// 檢查 key 是否存在
	if len(result) == 0 {
		return model.InventorySnapshot{}, ErrCacheMiss
	}

	return parseSnapshot(eventID, name, result)
}

func (c *RedisInventoryCache) GetEvent(ctx context.Context, eventID uuid.UUID) ([]model.InventorySnapshot, error) {
	names, err := c.client.SMembers(ctx, TypesKey(eventID)).Result()
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, ErrCacheMiss
	}

	snapshots := make([]model.InventorySnapshot, 0, len(names))
	for _, name := range names {
		snapshot, err := c.Get(ctx, eventID, model.TicketTypeName(name))
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, nil
}

func parseSnapshot(eventID uuid.UUID, name model.TicketTypeName, fields map[string]string) (model.InventorySnapshot, error) {
	version, err := strconv.ParseInt(fields["version"], 10, 64)
	if err != nil {
		return model.InventorySnapshot{}, fmt.Errorf("invalid version: %v", err)
	}

	capacity, err := strconv.Atoi(fields["capacity"])
	if err != nil {
		return model.InventorySnapshot{}, fmt.Errorf("invalid capacity: %v", err)
	}

	sold, err := strconv.Atoi(fields["sold"])
	if err != nil {
		return model.InventorySnapshot{}, fmt.Errorf("invalid sold: %v", err)
	}

	price, err := decimal.NewFromString(fields["price"])
	if err != nil {
		return model.InventorySnapshot{}, fmt.Errorf("invalid price: %v", err)
	}

	available := capacity - sold
	if available < 0 {
		available = 0
	}

	return model.InventorySnapshot{
		EventID:    eventID,
		TicketType: name,
		UnitPrice:  price,
		Capacity:   capacity,
		Sold:       sold,
		Available:  available,
		Version:    version,
	}, nil
}
