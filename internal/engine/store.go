package engine

import (
	"sync"
	"time"

	"github.com/xonn9/Unilag-Price-saver/internal/model"
)

// UnknownCategory 是无法解析的分类引用的展示名。
const UnknownCategory = "Unknown"

// Snapshot 表示某一时刻的价格记录与分类的不可变视图。
//
// 快照整体替换、从不原地修改，因此读取方无需加锁即可安全持有。
type Snapshot struct {
	Records    []model.PriceRecord
	Categories map[uint]model.Category
	LoadedAt   time.Time
}

// CategoryName 解析分类名，未知引用返回 "Unknown"。
func (s *Snapshot) CategoryName(id uint) string {
	if s == nil {
		return UnknownCategory
	}
	if c, ok := s.Categories[id]; ok {
		return c.Name
	}
	return UnknownCategory
}

// Len 返回快照中的记录数。
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Records)
}

// RecordStore 持有当前快照并保证原子替换。
//
// Load 以整体替换的方式更新快照，读取方要么看到旧快照、要么看到新快照，
// 不会观察到部分更新。加载失败时由调用方保留旧快照（fail-safe），
// 首次加载前 Snapshot 返回空快照。
type RecordStore struct {
	mu   sync.RWMutex
	snap *Snapshot
}

// NewRecordStore 创建一个空的记录仓库。
func NewRecordStore() *RecordStore {
	return &RecordStore{
		snap: &Snapshot{
			Records:    nil,
			Categories: map[uint]model.Category{},
		},
	}
}

// Load 用给定的记录与分类原子替换当前快照。
//
// 参数:
//
//	records: 新的价格记录集合（调用后不得再修改）
//	categories: 新的分类集合
func (r *RecordStore) Load(records []model.PriceRecord, categories []model.Category) {
	catMap := make(map[uint]model.Category, len(categories))
	for _, c := range categories {
		catMap[c.ID] = c
	}
	next := &Snapshot{
		Records:    records,
		Categories: catMap,
		LoadedAt:   time.Now(),
	}

	r.mu.Lock()
	r.snap = next
	r.mu.Unlock()
}

// Snapshot 返回当前快照。
func (r *RecordStore) Snapshot() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snap
}
