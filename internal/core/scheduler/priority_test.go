package scheduler

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-sessmux/internal/core/streamio"
	"github.com/dep2p/go-sessmux/pkg/types"
)

func prio(group uint64, order int64) types.StreamPriority {
	return types.StreamPriority{SendGroupID: types.SendGroupID(group), SendOrder: types.SendOrder(order)}
}

func popAll(t *testing.T, s *PriorityScheduler) []types.StreamID {
	t.Helper()
	var out []types.StreamID
	for s.HasScheduled() {
		id, err := s.PopFront()
		require.NoError(t, err)
		out = append(out, id)
	}
	return out
}

// TestPriorityScheduler_Scenario 组内小顺序优先，组间交替
func TestPriorityScheduler_Scenario(t *testing.T) {
	const groupA, groupB = 1, 2
	s := NewPriorityScheduler()
	require.NoError(t, s.Register(1, prio(groupA, 10)))
	require.NoError(t, s.Register(2, prio(groupA, 5)))
	require.NoError(t, s.Register(3, prio(groupB, 0)))

	for _, id := range []types.StreamID{1, 2, 3} {
		require.NoError(t, s.Schedule(id))
	}

	assert.Equal(t, []types.StreamID{2, 3, 1}, popAll(t, s))

	_, err := s.PopFront()
	assert.ErrorIs(t, err, ErrNothingScheduled)
}

// TestPriorityScheduler_Fairness N 个组各 M 条流，组间轮询、组内按优先级
func TestPriorityScheduler_Fairness(t *testing.T) {
	for n := 1; n <= 5; n++ {
		for m := 1; m <= 5; m++ {
			t.Run(fmt.Sprintf("N=%d,M=%d", n, m), func(t *testing.T) {
				rng := rand.New(rand.NewSource(int64(n*10 + m)))
				s := NewPriorityScheduler()

				// 每组内的 SendOrder 各不相同，以打乱的顺序注册和调度
				type reg struct {
					id    types.StreamID
					group int
					order int
				}
				var regs []reg
				for g := 0; g < n; g++ {
					for _, o := range rng.Perm(m) {
						regs = append(regs, reg{id: types.StreamID(g*100 + o), group: g, order: o})
					}
				}
				for _, r := range regs {
					require.NoError(t, s.Register(r.id, prio(uint64(r.group), int64(r.order))))
				}
				// 先按组顺序各调度一条以固定组的轮询顺序，再调度其余流
				scheduledFirst := map[types.StreamID]bool{}
				for g := 0; g < n; g++ {
					for _, r := range regs {
						if r.group == g {
							require.NoError(t, s.Schedule(r.id))
							scheduledFirst[r.id] = true
							break
						}
					}
				}
				for _, r := range regs {
					if !scheduledFirst[r.id] {
						require.NoError(t, s.Schedule(r.id))
					}
				}
				assert.Equal(t, n*m, s.NumScheduled())

				popped := popAll(t, s)
				require.Len(t, popped, n*m)
				for i, id := range popped {
					round, group := i/n, i%n
					assert.Equal(t, types.StreamID(group*100+round), id, "第 %d 次出队", i)
				}
			})
		}
	}
}

// TestPriorityScheduler_GroupRequeuedOnlyWhileActive 仍有任务的组排在之后加入的组前面
func TestPriorityScheduler_GroupRequeuedOnlyWhileActive(t *testing.T) {
	s := NewPriorityScheduler()
	require.NoError(t, s.Register(1, prio(1, 0)))
	require.NoError(t, s.Register(2, prio(1, 1)))
	require.NoError(t, s.Register(3, prio(2, 0)))

	require.NoError(t, s.Schedule(1))
	require.NoError(t, s.Schedule(2))

	id, err := s.PopFront()
	require.NoError(t, err)
	assert.Equal(t, types.StreamID(1), id)

	// 组 2 在组 1 被重新放回之后才加入
	require.NoError(t, s.Schedule(3))
	assert.Equal(t, []types.StreamID{2, 3}, popAll(t, s))
}

func TestPriorityScheduler_Errors(t *testing.T) {
	s := NewPriorityScheduler()
	require.NoError(t, s.Register(1, prio(0, 0)))

	assert.ErrorIs(t, s.Register(1, prio(5, 0)), streamio.ErrAlreadyExists)
	assert.Equal(t, 1, s.NumGroups(), "重复注册不应创建新组")

	assert.ErrorIs(t, s.Unregister(9), streamio.ErrNotFound)
	assert.ErrorIs(t, s.Schedule(9), streamio.ErrNotFound)
	assert.ErrorIs(t, s.UpdateSendOrder(9, 1), streamio.ErrNotFound)
	assert.ErrorIs(t, s.UpdateSendGroup(9, 1), streamio.ErrNotFound)
	_, err := s.ShouldYield(9)
	assert.ErrorIs(t, err, streamio.ErrNotFound)
	_, err = s.GetPriority(9)
	assert.ErrorIs(t, err, streamio.ErrNotFound)
}

func TestPriorityScheduler_RegisterRollsBackGroup(t *testing.T) {
	s := NewPriorityScheduler()
	// 人为制造轮询表与组表不一致，使创建组的后续步骤失败
	require.NoError(t, s.activeGroups.Register(7))

	err := s.Register(1, prio(7, 0))
	assert.ErrorIs(t, err, streamio.ErrAlreadyExists)
	assert.Zero(t, s.NumGroups(), "失败时不能留下孤立的组")
	assert.False(t, s.HasRegistered())
}

func TestPriorityScheduler_UnregisterScheduled(t *testing.T) {
	s := NewPriorityScheduler()
	require.NoError(t, s.Register(1, prio(1, 0)))
	require.NoError(t, s.Register(2, prio(1, 1)))
	require.NoError(t, s.Register(3, prio(2, 0)))
	require.NoError(t, s.Schedule(1))
	require.NoError(t, s.Schedule(3))

	// 组 1 仍有成员但不再有待调度流，必须移出轮询
	require.NoError(t, s.Unregister(1))
	assert.Equal(t, 2, s.NumGroups())
	assert.Equal(t, []types.StreamID{3}, popAll(t, s))

	require.NoError(t, s.Schedule(2))
	require.NoError(t, s.Unregister(2))
	assert.False(t, s.HasScheduled())
	assert.Equal(t, 1, s.NumGroups())
}

func TestPriorityScheduler_UpdateSendOrder(t *testing.T) {
	s := NewPriorityScheduler()
	require.NoError(t, s.Register(1, prio(0, 1)))
	require.NoError(t, s.Register(2, prio(0, 2)))
	require.NoError(t, s.Schedule(1))
	require.NoError(t, s.Schedule(2))

	require.NoError(t, s.UpdateSendOrder(2, -1))
	p, err := s.GetPriority(2)
	require.NoError(t, err)
	assert.Equal(t, prio(0, -1), p)
	assert.Equal(t, []types.StreamID{2, 1}, popAll(t, s))
}

func TestPriorityScheduler_UpdateSendGroupKeepsScheduled(t *testing.T) {
	s := NewPriorityScheduler()
	require.NoError(t, s.Register(1, prio(1, 3)))
	require.NoError(t, s.Register(2, prio(1, 4)))
	require.NoError(t, s.Schedule(1))

	require.NoError(t, s.UpdateSendGroup(1, 9))
	p, err := s.GetPriority(1)
	require.NoError(t, err)
	assert.Equal(t, prio(9, 3), p, "移动组保留原顺序")

	scheduled, err := s.IsScheduled(1)
	require.NoError(t, err)
	assert.True(t, scheduled, "移动组不能丢失调度状态")
	assert.Equal(t, 2, s.NumGroups())

	// 未调度的流移动后仍未调度，原组最后一个成员离开后组被销毁
	require.NoError(t, s.UpdateSendGroup(2, 9))
	scheduled, _ = s.IsScheduled(2)
	assert.False(t, scheduled)
	assert.Equal(t, 1, s.NumGroups())

	require.NoError(t, s.UpdateSendGroup(2, 9), "移动到同一组无副作用")
	assert.Equal(t, []types.StreamID{1}, popAll(t, s))
}

func TestPriorityScheduler_ShouldYield(t *testing.T) {
	s := NewPriorityScheduler()
	require.NoError(t, s.Register(1, prio(1, 0)))
	require.NoError(t, s.Register(2, prio(1, 5)))
	require.NoError(t, s.Register(3, prio(2, 0)))

	require.NoError(t, s.Schedule(3))
	yield, err := s.ShouldYield(1)
	require.NoError(t, err)
	assert.True(t, yield, "其他组在轮询中排在前面")

	yield, _ = s.ShouldYield(3)
	assert.False(t, yield)

	_, err = s.PopFront()
	require.NoError(t, err)
	require.NoError(t, s.Schedule(1))
	yield, _ = s.ShouldYield(2)
	assert.True(t, yield, "同组内有优先的流")
	yield, _ = s.ShouldYield(1)
	assert.False(t, yield)
}

// TestPriorityScheduler_RegisterUnregisterSymmetry 任意交错的注册注销后簿记回到初始状态
func TestPriorityScheduler_RegisterUnregisterSymmetry(t *testing.T) {
	rng := rand.New(rand.NewSource(2024))
	s := NewPriorityScheduler()
	registered := map[types.StreamID]types.SendGroupID{}

	for step := 0; step < 5000; step++ {
		id := types.StreamID(rng.Intn(40))
		switch op := rng.Intn(4); {
		case op == 0 || op == 1:
			gid := types.SendGroupID(rng.Intn(6))
			err := s.Register(id, types.StreamPriority{SendGroupID: gid, SendOrder: types.SendOrder(rng.Intn(5))})
			if _, dup := registered[id]; dup {
				require.ErrorIs(t, err, streamio.ErrAlreadyExists)
			} else {
				require.NoError(t, err)
				registered[id] = gid
			}
		case op == 2:
			err := s.Unregister(id)
			if _, ok := registered[id]; ok {
				require.NoError(t, err)
				delete(registered, id)
			} else {
				require.ErrorIs(t, err, streamio.ErrNotFound)
			}
		default:
			err := s.Schedule(id)
			if _, ok := registered[id]; ok {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, streamio.ErrNotFound)
			}
		}

		groups := map[types.SendGroupID]bool{}
		for _, g := range registered {
			groups[g] = true
		}
		require.Equal(t, len(registered) > 0, s.HasRegistered())
		require.Equal(t, len(registered), s.NumRegistered())
		require.Equal(t, len(groups), s.NumGroups(), "组存在当且仅当有成员")
	}

	for id := range registered {
		require.NoError(t, s.Unregister(id))
	}
	assert.False(t, s.HasRegistered())
	assert.False(t, s.HasScheduled())
	assert.Zero(t, s.NumGroups())
	assert.Zero(t, s.activeGroups.NumRegistered())
}
