package handler

import (
	"sort"
	"sync"
	"time"
)

const defaultLoginWindow = 15 * time.Minute

// LoginLimiter 按 IP 统计登录失败次数，滑动窗口内达到上限后暂时拒绝登录
type LoginLimiter struct {
	mu       sync.Mutex
	failures map[string][]time.Time
	limit    int
	window   time.Duration
	now      func() time.Time
}

// NewLoginLimiter 构造 LoginLimiter，window 内最多允许 limit 次失败
func NewLoginLimiter(limit int, window time.Duration) *LoginLimiter {
	return &LoginLimiter{
		failures: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

// Allow 判断 ip 能否继续尝试；被拒绝时返回还需等待的时长
func (l *LoginLimiter) Allow(ip string) (bool, time.Duration) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	recent := l.recent(ip, now)
	if len(recent) < l.limit {
		return true, 0
	}
	// 最早的一次失败移出窗口后即可重试
	return false, recent[len(recent)-l.limit].Add(l.window).Sub(now)
}

// Fail 记录一次失败
func (l *LoginLimiter) Fail(ip string) {
	now := l.now()
	l.mu.Lock()
	l.failures[ip] = append(l.recent(ip, now), now)
	l.mu.Unlock()
}

// Reset 登录成功后清空该 IP 的记录
func (l *LoginLimiter) Reset(ip string) {
	l.mu.Lock()
	delete(l.failures, ip)
	l.mu.Unlock()
}

// recent 丢掉窗口外的记录并返回剩余部分，调用方持有锁。
// 记录按时间追加，可以二分查找。
func (l *LoginLimiter) recent(ip string, now time.Time) []time.Time {
	times := l.failures[ip]
	cutoff := now.Add(-l.window)
	i := sort.Search(len(times), func(i int) bool { return times[i].After(cutoff) })
	if i == len(times) {
		delete(l.failures, ip)
		return nil
	}
	times = times[i:]
	l.failures[ip] = times
	return times
}
