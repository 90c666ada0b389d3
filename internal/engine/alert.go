package engine

import (
	"strings"
	"time"
)

// AlertRule 表示用户定义的 (商品名, 价格阈值) 监控规则。
//
// ID 为创建时间戳（毫秒）。Triggered 在规则生命周期内单调：
// 只会从 false 变为 true，触发后不再参与匹配，但保留用于展示，
// 直到用户显式删除。删除后不会复活。
type AlertRule struct {
	ID        int64     `json:"id"`
	ItemName  string    `json:"item_name"`
	Threshold float64   `json:"threshold"`
	Triggered bool      `json:"triggered"`
	CreatedAt time.Time `json:"created_at"`
}

// NewAlertRule 创建一条未触发的规则。
func NewAlertRule(itemName string, threshold float64, now time.Time) AlertRule {
	return AlertRule{
		ID:        now.UnixMilli(),
		ItemName:  itemName,
		Threshold: threshold,
		Triggered: false,
		CreatedAt: now,
	}
}

// EvalResult 是一次规则评估的输出。
type EvalResult struct {
	TriggeredNow []AlertRule // 本次新触发的规则
	Rules        []AlertRule // 评估后的完整规则集（含更新的 Triggered 标记）
}

// Evaluate 将规则集与快照匹配。
//
// 对每条未触发的规则，按快照顺序扫描记录：商品名大小写不敏感
// 精确匹配、且价格 <= 阈值即触发。多条记录同时满足时取快照中
// 的第一条（只关心规则的状态迁移，匹配到哪条记录无关紧要）。
// 已触发的规则直接跳过，不重新评估、不重复通知。
//
// 参数:
//
//	snap: 当前快照
//	rules: 完整规则集（就地更新 Triggered 标记）
//
// 返回值:
//
//	EvalResult: 新触发的规则与更新后的完整规则集
func Evaluate(snap *Snapshot, rules []AlertRule) EvalResult {
	result := EvalResult{Rules: rules}
	if snap == nil || len(rules) == 0 {
		return result
	}

	for i := range rules {
		if rules[i].Triggered {
			continue
		}
		want := strings.ToLower(strings.TrimSpace(rules[i].ItemName))
		if want == "" {
			continue
		}

		for _, rec := range snap.Records {
			if strings.ToLower(strings.TrimSpace(rec.Name)) != want {
				continue
			}
			if !isFinite(rec.Price) || rec.Price > rules[i].Threshold {
				continue
			}
			// 首个匹配即触发
			rules[i].Triggered = true
			result.TriggeredNow = append(result.TriggeredNow, rules[i])
			break
		}
	}
	return result
}
