package engine

import (
	"sync"
	"time"
)

// DefaultDebounceWindow 是搜索输入的静默窗口。
const DefaultDebounceWindow = 250 * time.Millisecond

// Debouncer 是一个显式的可取消定时器抽象。
//
// Trigger 会重置静默窗口；窗口内到达的后续调用会取代之前的回调，
// 只有最后一次 Trigger 的回调会在输入静默后执行一次。
// 被取代的中间回调不产生任何输出，也不会与后续回调竞争。
type Debouncer struct {
	mu     sync.Mutex
	window time.Duration
	timer  *time.Timer
	seq    uint64 // 每次 Trigger 递增，过期回调据此放弃执行
}

// NewDebouncer 创建一个静默窗口为 window 的防抖器。
//
// window <= 0 时使用 DefaultDebounceWindow。
func NewDebouncer(window time.Duration) *Debouncer {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	return &Debouncer{window: window}
}

// Trigger 安排 fn 在输入静默 window 后执行。
//
// 若窗口内再次 Trigger，则本次 fn 被取代，不会执行。
func (d *Debouncer) Trigger(fn func()) {
	if fn == nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.seq++
	seq := d.seq

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, func() {
		d.mu.Lock()
		current := d.seq == seq
		d.mu.Unlock()
		if current {
			fn()
		}
	})
}

// Stop 取消任何待执行的回调。
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seq++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// DebouncedSearcher 将防抖器与快照搜索组合成一个可复用的查询入口。
//
// 每次 Query 重置静默窗口；窗口结束后仅针对最近一次查询执行一次
// 搜索，并通过 deliver 回调交付结果（已应用展示上限）。
type DebouncedSearcher struct {
	store    *RecordStore
	debounce *Debouncer
	deliver  func(query string, results []SearchResult)
}

// SearchResult 是交付给渲染层的搜索结果行。
type SearchResult struct {
	ID       uint    `json:"id"`
	Name     string  `json:"name"`
	Brand    string  `json:"brand,omitempty"`
	Price    float64 `json:"price"`
	Retailer string  `json:"retailer,omitempty"`
	Location string  `json:"location,omitempty"`
	Category string  `json:"category"`
}

// NewDebouncedSearcher 创建防抖搜索器。
func NewDebouncedSearcher(store *RecordStore, window time.Duration, deliver func(string, []SearchResult)) *DebouncedSearcher {
	return &DebouncedSearcher{
		store:    store,
		debounce: NewDebouncer(window),
		deliver:  deliver,
	}
}

// Query 提交一次查询；静默窗口结束后评估最近一次查询。
func (s *DebouncedSearcher) Query(query string) {
	s.debounce.Trigger(func() {
		snap := s.store.Snapshot()
		matched := SearchTop(snap, query)

		results := make([]SearchResult, 0, len(matched))
		for _, rec := range matched {
			results = append(results, SearchResult{
				ID:       rec.ID,
				Name:     rec.Name,
				Brand:    rec.Brand,
				Price:    rec.Price,
				Retailer: rec.Retailer,
				Location: rec.Location,
				Category: snap.CategoryName(rec.CategoryID),
			})
		}
		if s.deliver != nil {
			s.deliver(query, results)
		}
	})
}

// Stop 取消待执行的查询。
func (s *DebouncedSearcher) Stop() {
	s.debounce.Stop()
}
