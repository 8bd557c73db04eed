package core

import "context"

// Store 是存储的领域接口，用于加载各 track 的参考数据（课程统计、惩罚分分布、模型元数据）。
//
// 实现：
//   - store.MemoryStore（测试/开发）
//   - store.RedisStore（生产）
type Store interface {
	// Name 返回存储后端名称（用于日志/监控）
	Name() string

	// Get 读取单个 key 的值，不存在时返回 ErrStoreNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Set 写入单个 key-value
	Set(ctx context.Context, key string, value []byte, ttl ...int) error

	// Delete 删除单个 key
	Delete(ctx context.Context, key string) error

	// Close 关闭连接/释放资源
	Close() error
}

// HashStore 是 Store 的扩展接口，支持 Hash 操作（课程统计按 field 存放）。
type HashStore interface {
	Store

	HGet(ctx context.Context, key, field string) ([]byte, error)
	HSet(ctx context.Context, key, field string, value []byte) error
	HGetAll(ctx context.Context, key string) (map[string][]byte, error)
}

// ReferenceStore 同时支持 Hash 与有序集合，能承载一个 track 的全部参考数据。
type ReferenceStore interface {
	HashStore
	ZAdd(ctx context.Context, key string, score float64, member string) error
	// ZScores 按 score 升序返回全部 score，key 不存在时返回 ErrStoreNotFound
	ZScores(ctx context.Context, key string) ([]float64, error)
}
