// Package store 提供 core.Store 的实现（内存 / Redis）以及按 track 读写参考数据的工具。
//
// 注意：此包只包含实现，接口定义在 core 包。
//
// 示例：
//
//	var s core.ReferenceStore = store.NewMemoryStore()
//	ref, err := store.LoadReference(ctx, s, core.TrackGraduate)
package store

import "github.com/rushteam/admitkit/core"

// ErrNotFound 与 core.ErrStoreNotFound 相同
var ErrNotFound = core.ErrStoreNotFound
