package admission

import "sync"

// ConcurrencySlot 非阻塞并发槽, 满了直接拒绝而不排队
type ConcurrencySlot struct {
	sem chan struct{}
}

// NewConcurrencySlot 创建并发槽
func NewConcurrencySlot(max int) *ConcurrencySlot {
	return &ConcurrencySlot{
		sem: make(chan struct{}, max),
	}
}

// Acquire 尝试占用一个槽位
func (s *ConcurrencySlot) Acquire() bool {
	select {
	case s.sem <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release 释放一个槽位, 计数不会低于 0
func (s *ConcurrencySlot) Release() {
	select {
	case <-s.sem:
	default:
	}
}

// TryAcquire 占用槽位并返回只生效一次的释放函数
func (s *ConcurrencySlot) TryAcquire() (func(), bool) {
	if !s.Acquire() {
		return nil, false
	}
	var once sync.Once
	return func() { once.Do(s.Release) }, true
}

// InFlight 当前占用数
func (s *ConcurrencySlot) InFlight() int {
	return len(s.sem)
}

// Max 最大并发数
func (s *ConcurrencySlot) Max() int {
	return cap(s.sem)
}
