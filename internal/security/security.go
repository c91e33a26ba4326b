// Package security 提供API密钥校验与求解频率限制
package security

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"
)

var (
	ErrMissingAPIKey     = errors.New("API密钥未提供")
	ErrInvalidAPIKey     = errors.New("无效的API密钥")
	ErrRateLimitExceeded = errors.New("请求频率超限")
)

// KeySet 静态API密钥集合，只保存密钥摘要
type KeySet struct {
	digests map[string]struct{}
}

// NewKeySet 由配置中的明文密钥创建集合，空白项被忽略
func NewKeySet(keys []string) *KeySet {
	s := &KeySet{digests: make(map[string]struct{}, len(keys))}
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		s.digests[digest(k)] = struct{}{}
	}
	return s
}

// Len 返回密钥数量
func (s *KeySet) Len() int {
	return len(s.digests)
}

// Validate 校验密钥，成功时返回用于日志与限流的客户端指纹
func (s *KeySet) Validate(key string) (string, error) {
	if key == "" {
		return "", ErrMissingAPIKey
	}
	d := digest(key)
	if _, ok := s.digests[d]; !ok {
		return "", ErrInvalidAPIKey
	}
	return d[:12], nil
}

// Fingerprint 返回密钥指纹，不暴露明文
func Fingerprint(key string) string {
	return digest(key)[:12]
}

func digest(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// RateLimiter 滑动窗口频率限制器
type RateLimiter struct {
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	now      func() time.Time
	mu       sync.Mutex
}

// NewRateLimiter 创建频率限制器；ctx 取消时停止后台清理
func NewRateLimiter(ctx context.Context, limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
	go rl.cleanupLoop(ctx)
	return rl
}

// Allow 检查并记录一次请求
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	valid := rl.prune(key, now)
	if len(valid) >= rl.limit {
		rl.requests[key] = valid
		return false
	}
	rl.requests[key] = append(valid, now)
	return true
}

// Remaining 返回窗口内剩余可用次数
func (rl *RateLimiter) Remaining(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	n := rl.limit - len(rl.prune(key, rl.now()))
	if n < 0 {
		return 0
	}
	return n
}

// prune 调用方需持有锁
func (rl *RateLimiter) prune(key string, now time.Time) []time.Time {
	start := now.Add(-rl.window)
	reqs := rl.requests[key]
	valid := reqs[:0]
	for _, t := range reqs {
		if t.After(start) {
			valid = append(valid, t)
		}
	}
	return valid
}

func (rl *RateLimiter) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.mu.Lock()
			now := rl.now()
			for key := range rl.requests {
				if valid := rl.prune(key, now); len(valid) == 0 {
					delete(rl.requests, key)
				} else {
					rl.requests[key] = valid
				}
			}
			rl.mu.Unlock()
		}
	}
}

// ExtractAPIKey 从 Authorization: Bearer 或 X-API-Key 头中提取密钥
func ExtractAPIKey(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}
