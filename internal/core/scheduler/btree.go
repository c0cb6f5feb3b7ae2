package scheduler

import (
	"cmp"
	"fmt"

	"github.com/google/btree"
)

// btreeDegree B 树阶数
const btreeDegree = 8

// scheduleKey 调度树中的键
type scheduleKey[K comparable, P cmp.Ordered] struct {
	priority P
	sequence uint64
	id       K
}

func lessScheduleKey[K comparable, P cmp.Ordered](a, b scheduleKey[K, P]) bool {
	if a.priority != b.priority {
		return a.priority < b.priority
	}
	return a.sequence < b.sequence
}

// entry 已注册流的状态
type entry[P cmp.Ordered] struct {
	priority  P
	scheduled bool
	sequence  uint64
}

// BTreeScheduler 基于 B 树的单级优先级调度器
//
// 优先级值越小越先出队；优先级相同时按 Schedule 的先后顺序出队。
type BTreeScheduler[K comparable, P cmp.Ordered] struct {
	entries  map[K]*entry[P]
	schedule *btree.BTreeG[scheduleKey[K, P]]
	nextSeq  uint64
}

// NewBTreeScheduler 创建调度器
func NewBTreeScheduler[K comparable, P cmp.Ordered]() *BTreeScheduler[K, P] {
	return &BTreeScheduler[K, P]{
		entries:  make(map[K]*entry[P]),
		schedule: btree.NewG(btreeDegree, lessScheduleKey[K, P]),
	}
}

// Register 注册流
func (s *BTreeScheduler[K, P]) Register(id K, priority P) error {
	if _, ok := s.entries[id]; ok {
		return fmt.Errorf("%v: %w", id, ErrAlreadyRegistered)
	}
	s.entries[id] = &entry[P]{priority: priority}
	return nil
}

// Unregister 注销流，已调度的流会同时从调度树中移除
func (s *BTreeScheduler[K, P]) Unregister(id K) error {
	e, ok := s.entries[id]
	if !ok {
		return fmt.Errorf("%v: %w", id, ErrNotRegistered)
	}
	if e.scheduled {
		s.schedule.Delete(s.key(id, e))
	}
	delete(s.entries, id)
	return nil
}

// UpdatePriority 更新优先级，已调度的流保留其调度序号
func (s *BTreeScheduler[K, P]) UpdatePriority(id K, priority P) error {
	e, ok := s.entries[id]
	if !ok {
		return fmt.Errorf("%v: %w", id, ErrNotRegistered)
	}
	if e.scheduled {
		s.schedule.Delete(s.key(id, e))
		e.priority = priority
		s.schedule.ReplaceOrInsert(s.key(id, e))
		return nil
	}
	e.priority = priority
	return nil
}

// GetPriority 返回流的优先级
func (s *BTreeScheduler[K, P]) GetPriority(id K) (P, error) {
	e, ok := s.entries[id]
	if !ok {
		var zero P
		return zero, fmt.Errorf("%v: %w", id, ErrNotRegistered)
	}
	return e.priority, nil
}

// Schedule 把流标记为待服务，重复调用无副作用
func (s *BTreeScheduler[K, P]) Schedule(id K) error {
	e, ok := s.entries[id]
	if !ok {
		return fmt.Errorf("%v: %w", id, ErrNotRegistered)
	}
	if e.scheduled {
		return nil
	}
	e.scheduled = true
	e.sequence = s.nextSeq
	s.nextSeq++
	s.schedule.ReplaceOrInsert(s.key(id, e))
	return nil
}

// Deschedule 取消流的待服务状态，未调度时无副作用
func (s *BTreeScheduler[K, P]) Deschedule(id K) error {
	e, ok := s.entries[id]
	if !ok {
		return fmt.Errorf("%v: %w", id, ErrNotRegistered)
	}
	if !e.scheduled {
		return nil
	}
	s.schedule.Delete(s.key(id, e))
	e.scheduled = false
	return nil
}

// IsScheduled 流是否待服务
func (s *BTreeScheduler[K, P]) IsScheduled(id K) (bool, error) {
	e, ok := s.entries[id]
	if !ok {
		return false, fmt.Errorf("%v: %w", id, ErrNotRegistered)
	}
	return e.scheduled, nil
}

// ShouldYield 是否有其他流会先于 id 被服务
func (s *BTreeScheduler[K, P]) ShouldYield(id K) (bool, error) {
	e, ok := s.entries[id]
	if !ok {
		return false, fmt.Errorf("%v: %w", id, ErrNotRegistered)
	}
	first, ok := s.schedule.Min()
	if !ok {
		return false, nil
	}
	if first.id == id {
		return false, nil
	}
	return first.priority <= e.priority, nil
}

// PopFront 取出下一个待服务的流，流仍保持注册状态
func (s *BTreeScheduler[K, P]) PopFront() (K, error) {
	first, ok := s.schedule.DeleteMin()
	if !ok {
		var zero K
		return zero, ErrNothingScheduled
	}
	if e, ok := s.entries[first.id]; ok {
		e.scheduled = false
	}
	return first.id, nil
}

// HasRegistered 是否有已注册的流
func (s *BTreeScheduler[K, P]) HasRegistered() bool {
	return len(s.entries) > 0
}

// HasScheduled 是否有待服务的流
func (s *BTreeScheduler[K, P]) HasScheduled() bool {
	return s.schedule.Len() > 0
}

// NumRegistered 已注册流数量
func (s *BTreeScheduler[K, P]) NumRegistered() int {
	return len(s.entries)
}

// NumScheduled 待服务流数量
func (s *BTreeScheduler[K, P]) NumScheduled() int {
	return s.schedule.Len()
}

func (s *BTreeScheduler[K, P]) key(id K, e *entry[P]) scheduleKey[K, P] {
	return scheduleKey[K, P]{priority: e.priority, sequence: e.sequence, id: id}
}

// ============================================================================
//                              RoundRobin
// ============================================================================

// RoundRobin 轮询调度器
//
// 所有成员优先级相同，按 Schedule 的先后顺序出队。
type RoundRobin[K comparable] struct {
	*BTreeScheduler[K, int]
}

// NewRoundRobin 创建轮询调度器
func NewRoundRobin[K comparable]() *RoundRobin[K] {
	return &RoundRobin[K]{BTreeScheduler: NewBTreeScheduler[K, int]()}
}

// Register 注册成员
func (r *RoundRobin[K]) Register(id K) error {
	return r.BTreeScheduler.Register(id, 0)
}
