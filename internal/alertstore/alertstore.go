package alertstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xonn9/Unilag-Price-saver/internal/engine"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "pricesaver:alerts:user:"

// Store 将每个用户的告警规则集持久化为一个 JSON 数组。
//
// 规则集整体读写：Load 返回完整集合，Save 覆盖完整集合。
// 持久化失败不致命——调用方保留内存状态并上报错误。
type Store struct {
	rdb *redis.Client
}

// New 创建规则存储。
func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func userKey(userID uint) string {
	return keyPrefix + strconv.FormatUint(uint64(userID), 10)
}

// Load 读取用户的完整规则集；无记录时返回空集合。
func (s *Store) Load(ctx context.Context, userID uint) ([]engine.AlertRule, error) {
	raw, err := s.rdb.Get(ctx, userKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return []engine.AlertRule{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load alert rules: %w", err)
	}

	var rules []engine.AlertRule
	if err := json.Unmarshal([]byte(raw), &rules); err != nil {
		return nil, fmt.Errorf("decode alert rules: %w", err)
	}
	return rules, nil
}

// Save 覆盖写入用户的完整规则集。
func (s *Store) Save(ctx context.Context, userID uint, rules []engine.AlertRule) error {
	if rules == nil {
		rules = []engine.AlertRule{}
	}
	data, err := json.Marshal(rules)
	if err != nil {
		return fmt.Errorf("encode alert rules: %w", err)
	}
	if err := s.rdb.Set(ctx, userKey(userID), data, 0).Err(); err != nil {
		return fmt.Errorf("save alert rules: %w", err)
	}
	return nil
}

// Delete 删除用户的全部规则。
func (s *Store) Delete(ctx context.Context, userID uint) error {
	if err := s.rdb.Del(ctx, userKey(userID)).Err(); err != nil {
		return fmt.Errorf("delete alert rules: %w", err)
	}
	return nil
}

// UserIDs 扫描出所有持有规则的用户，供调度器逐个评估。
func (s *Store) UserIDs(ctx context.Context) ([]uint, error) {
	var (
		ids    []uint
		cursor uint64
	)
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("scan alert keys: %w", err)
		}
		for _, key := range keys {
			raw := strings.TrimPrefix(key, keyPrefix)
			id, err := strconv.ParseUint(raw, 10, 64)
			if err != nil {
				continue
			}
			ids = append(ids, uint(id))
		}
		cursor = next
		if cursor == 0 {
			return ids, nil
		}
	}
}
