package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "pricesaver:dedup:submission:"

// Submission 一条价格提交的去重指纹要素。
type Submission struct {
	Name     string
	Price    float64
	Retailer string
	Location string
}

// Deduplicator 在时间窗口内拦截内容完全相同的价格提交。
type Deduplicator struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewDeduplicator 创建去重器，ttl 为去重窗口。
func NewDeduplicator(rdb *redis.Client, ttl time.Duration) *Deduplicator {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Deduplicator{
		rdb: rdb,
		ttl: ttl,
	}
}

// IsDuplicate 判断提交是否在窗口内重复，首次出现时登记指纹。
func (d *Deduplicator) IsDuplicate(ctx context.Context, sub Submission) (bool, error) {
	if d == nil || d.rdb == nil {
		return false, nil
	}
	key := keyPrefix + fingerprint(sub)
	ok, err := d.rdb.SetNX(ctx, key, "1", d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup setnx: %w", err)
	}
	return !ok, nil
}

// Forget 移除指纹，允许同内容再次提交（审核驳回后使用）。
func (d *Deduplicator) Forget(ctx context.Context, sub Submission) error {
	if d == nil || d.rdb == nil {
		return nil
	}
	key := keyPrefix + fingerprint(sub)
	if err := d.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("dedup del: %w", err)
	}
	return nil
}

func fingerprint(sub Submission) string {
	raw := strings.Join([]string{
		strings.ToLower(strings.TrimSpace(sub.Name)),
		strconv.FormatFloat(sub.Price, 'f', 2, 64),
		strings.ToLower(strings.TrimSpace(sub.Retailer)),
		strings.ToLower(strings.TrimSpace(sub.Location)),
	}, "|")
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
