package scheduler

import (
	"errors"
	"fmt"

	"github.com/dep2p/go-sessmux/pkg/lib/log"
	"github.com/dep2p/go-sessmux/pkg/types"
)

var logger = log.Logger("core/scheduler")

// groupScheduler 组内调度器
type groupScheduler = BTreeScheduler[types.StreamID, types.SendOrder]

// PriorityScheduler 两级优先级调度器
//
// 组表与流→组索引由调度器独占，外部只能通过方法访问。
type PriorityScheduler struct {
	groups        map[types.SendGroupID]*groupScheduler
	streamToGroup map[types.StreamID]types.SendGroupID
	activeGroups  *RoundRobin[types.SendGroupID]
}

// NewPriorityScheduler 创建调度器
func NewPriorityScheduler() *PriorityScheduler {
	return &PriorityScheduler{
		groups:        make(map[types.SendGroupID]*groupScheduler),
		streamToGroup: make(map[types.StreamID]types.SendGroupID),
		activeGroups:  NewRoundRobin[types.SendGroupID](),
	}
}

// Register 以给定优先级注册流
//
// 组的第一个成员注册时创建组并加入轮询；之后任何一步失败都会回滚组的创建。
func (s *PriorityScheduler) Register(id types.StreamID, priority types.StreamPriority) error {
	if _, ok := s.streamToGroup[id]; ok {
		return fmt.Errorf("%v: %w", id, ErrAlreadyRegistered)
	}

	gid := priority.SendGroupID
	group, exists := s.groups[gid]
	if !exists {
		group = NewBTreeScheduler[types.StreamID, types.SendOrder]()
		if err := s.activeGroups.Register(gid); err != nil {
			return fmt.Errorf("register send group %d: %w", gid, err)
		}
		s.groups[gid] = group
	}

	if err := group.Register(id, priority.SendOrder); err != nil {
		if !exists {
			s.dropGroup(gid)
		}
		return err
	}
	s.streamToGroup[id] = gid
	return nil
}

// Unregister 注销流
//
// 最后一个成员注销时组被销毁并移出轮询；组内不再有待调度流时组也移出轮询。
func (s *PriorityScheduler) Unregister(id types.StreamID) error {
	gid, ok := s.streamToGroup[id]
	if !ok {
		return fmt.Errorf("%v: %w", id, ErrNotRegistered)
	}
	group, ok := s.groups[gid]
	if !ok {
		logger.Error("流索引指向不存在的组", "stream", id, "group", gid)
		delete(s.streamToGroup, id)
		return fmt.Errorf("orphaned stream %v in group %d: %w", id, gid, ErrInactiveGroup)
	}

	delete(s.streamToGroup, id)
	if err := group.Unregister(id); err != nil {
		return err
	}

	if !group.HasRegistered() {
		s.dropGroup(gid)
		return nil
	}
	if !group.HasScheduled() {
		return s.activeGroups.Deschedule(gid)
	}
	return nil
}

// dropGroup 销毁组并移出轮询
func (s *PriorityScheduler) dropGroup(gid types.SendGroupID) {
	delete(s.groups, gid)
	if err := s.activeGroups.Unregister(gid); err != nil {
		logger.Error("移除发送组失败", "group", gid, "error", err)
	}
}

// UpdateSendOrder 在同一组内调整顺序
func (s *PriorityScheduler) UpdateSendOrder(id types.StreamID, order types.SendOrder) error {
	group, err := s.groupOf(id)
	if err != nil {
		return err
	}
	return group.UpdatePriority(id, order)
}

// UpdateSendGroup 把流移动到另一个组
//
// 语义上等于 Unregister 后以原顺序 Register 到新组；移动前已调度的流在移动后重新调度。
func (s *PriorityScheduler) UpdateSendGroup(id types.StreamID, gid types.SendGroupID) error {
	group, err := s.groupOf(id)
	if err != nil {
		return err
	}
	if s.streamToGroup[id] == gid {
		return nil
	}
	order, err := group.GetPriority(id)
	if err != nil {
		return err
	}
	scheduled, err := group.IsScheduled(id)
	if err != nil {
		return err
	}

	if err := s.Unregister(id); err != nil {
		return err
	}
	if err := s.Register(id, types.StreamPriority{SendGroupID: gid, SendOrder: order}); err != nil {
		return err
	}
	if scheduled {
		return s.Schedule(id)
	}
	return nil
}

// GetPriority 返回流的优先级
func (s *PriorityScheduler) GetPriority(id types.StreamID) (types.StreamPriority, error) {
	group, err := s.groupOf(id)
	if err != nil {
		return types.StreamPriority{}, err
	}
	order, err := group.GetPriority(id)
	if err != nil {
		return types.StreamPriority{}, err
	}
	return types.StreamPriority{SendGroupID: s.streamToGroup[id], SendOrder: order}, nil
}

// Schedule 把流标记为待服务（幂等），并让其所在组参与轮询
func (s *PriorityScheduler) Schedule(id types.StreamID) error {
	group, err := s.groupOf(id)
	if err != nil {
		return err
	}
	if err := group.Schedule(id); err != nil {
		return err
	}
	return s.activeGroups.Schedule(s.streamToGroup[id])
}

// IsScheduled 流是否待服务
func (s *PriorityScheduler) IsScheduled(id types.StreamID) (bool, error) {
	group, err := s.groupOf(id)
	if err != nil {
		return false, err
	}
	return group.IsScheduled(id)
}

// ShouldYield 流是否应让出
//
// 轮询会先服务其他组，或同组内有优先的流时返回 true。
func (s *PriorityScheduler) ShouldYield(id types.StreamID) (bool, error) {
	group, err := s.groupOf(id)
	if err != nil {
		return false, err
	}
	yield, err := s.activeGroups.ShouldYield(s.streamToGroup[id])
	if err != nil {
		return false, err
	}
	if yield {
		return true, nil
	}
	return group.ShouldYield(id)
}

// PopFront 取出下一个要服务的流
//
// 按轮询选出组，弹出组内优先级最高的流；组内仍有待调度流时才把组放回轮询队尾。
func (s *PriorityScheduler) PopFront() (types.StreamID, error) {
	gid, err := s.activeGroups.PopFront()
	if err != nil {
		return 0, err
	}
	group, ok := s.groups[gid]
	if !ok {
		logger.Error("轮询中出现不存在的组", "group", gid)
		return 0, fmt.Errorf("group %d: %w", gid, ErrInactiveGroup)
	}
	id, err := group.PopFront()
	if err != nil {
		if errors.Is(err, ErrNothingScheduled) {
			logger.Error("轮询中出现没有待调度流的组", "group", gid)
			return 0, fmt.Errorf("group %d: %w", gid, ErrInactiveGroup)
		}
		return 0, err
	}
	if group.HasScheduled() {
		if err := s.activeGroups.Schedule(gid); err != nil {
			return 0, err
		}
	}
	return id, nil
}

// HasRegistered 是否有已注册的流
func (s *PriorityScheduler) HasRegistered() bool {
	return len(s.streamToGroup) > 0
}

// HasScheduled 是否有待服务的流
func (s *PriorityScheduler) HasScheduled() bool {
	return s.activeGroups.HasScheduled()
}

// NumScheduled 待服务流数量
func (s *PriorityScheduler) NumScheduled() int {
	n := 0
	for _, g := range s.groups {
		n += g.NumScheduled()
	}
	return n
}

// NumRegistered 已注册流数量
func (s *PriorityScheduler) NumRegistered() int {
	return len(s.streamToGroup)
}

// NumGroups 当前存在的组数量
func (s *PriorityScheduler) NumGroups() int {
	return len(s.groups)
}

func (s *PriorityScheduler) groupOf(id types.StreamID) (*groupScheduler, error) {
	gid, ok := s.streamToGroup[id]
	if !ok {
		return nil, fmt.Errorf("%v: %w", id, ErrNotRegistered)
	}
	group, ok := s.groups[gid]
	if !ok {
		return nil, fmt.Errorf("orphaned stream %v in group %d: %w", id, gid, ErrInactiveGroup)
	}
	return group, nil
}
