package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-sessmux/internal/core/streamio"
)

func TestBTreeScheduler_Order(t *testing.T) {
	s := NewBTreeScheduler[int, int]()
	require.NoError(t, s.Register(1, 30))
	require.NoError(t, s.Register(2, 10))
	require.NoError(t, s.Register(3, 20))
	require.NoError(t, s.Register(4, 10))

	for _, id := range []int{1, 2, 3, 4} {
		require.NoError(t, s.Schedule(id))
	}
	assert.Equal(t, 4, s.NumScheduled())

	var order []int
	for s.HasScheduled() {
		id, err := s.PopFront()
		require.NoError(t, err)
		order = append(order, id)
	}
	// 相同优先级按调度顺序
	assert.Equal(t, []int{2, 4, 3, 1}, order)

	_, err := s.PopFront()
	assert.ErrorIs(t, err, ErrNothingScheduled)
	assert.Equal(t, 4, s.NumRegistered(), "出队后流仍保持注册")
}

func TestBTreeScheduler_ScheduleIdempotent(t *testing.T) {
	s := NewBTreeScheduler[int, int]()
	require.NoError(t, s.Register(1, 0))
	require.NoError(t, s.Register(2, 0))

	require.NoError(t, s.Schedule(1))
	require.NoError(t, s.Schedule(2))
	require.NoError(t, s.Schedule(1))
	assert.Equal(t, 2, s.NumScheduled())

	id, err := s.PopFront()
	require.NoError(t, err)
	assert.Equal(t, 1, id, "重复调度不应改变位置")
}

func TestBTreeScheduler_Errors(t *testing.T) {
	s := NewBTreeScheduler[int, int]()
	require.NoError(t, s.Register(1, 0))

	assert.ErrorIs(t, s.Register(1, 5), streamio.ErrAlreadyExists)
	assert.ErrorIs(t, s.Unregister(2), streamio.ErrNotFound)
	assert.ErrorIs(t, s.Schedule(2), streamio.ErrNotFound)
	assert.ErrorIs(t, s.UpdatePriority(2, 1), streamio.ErrNotFound)
	_, err := s.ShouldYield(2)
	assert.ErrorIs(t, err, streamio.ErrNotFound)
	_, err = s.IsScheduled(2)
	assert.ErrorIs(t, err, streamio.ErrNotFound)
}

func TestBTreeScheduler_UpdatePriorityWhileScheduled(t *testing.T) {
	s := NewBTreeScheduler[int, int]()
	require.NoError(t, s.Register(1, 1))
	require.NoError(t, s.Register(2, 2))
	require.NoError(t, s.Schedule(1))
	require.NoError(t, s.Schedule(2))

	require.NoError(t, s.UpdatePriority(2, 0))
	p, err := s.GetPriority(2)
	require.NoError(t, err)
	assert.Equal(t, 0, p)

	id, err := s.PopFront()
	require.NoError(t, err)
	assert.Equal(t, 2, id)
}

func TestBTreeScheduler_UnregisterScheduled(t *testing.T) {
	s := NewBTreeScheduler[int, int]()
	require.NoError(t, s.Register(1, 0))
	require.NoError(t, s.Schedule(1))
	require.NoError(t, s.Unregister(1))

	assert.False(t, s.HasScheduled())
	assert.False(t, s.HasRegistered())
}

func TestBTreeScheduler_ShouldYield(t *testing.T) {
	s := NewBTreeScheduler[int, int]()
	require.NoError(t, s.Register(1, 5))
	require.NoError(t, s.Register(2, 5))
	require.NoError(t, s.Register(3, 9))

	yield, err := s.ShouldYield(1)
	require.NoError(t, err)
	assert.False(t, yield, "空调度不需要让出")

	require.NoError(t, s.Schedule(2))
	yield, _ = s.ShouldYield(2)
	assert.False(t, yield, "队首自身不需要让出")
	yield, _ = s.ShouldYield(1)
	assert.True(t, yield, "同优先级的先到者优先")
	yield, _ = s.ShouldYield(3)
	assert.True(t, yield)

	require.NoError(t, s.Deschedule(2))
	require.NoError(t, s.Schedule(3))
	yield, _ = s.ShouldYield(1)
	assert.False(t, yield, "队首优先级更低时不需要让出")
}

func TestRoundRobin(t *testing.T) {
	r := NewRoundRobin[string]()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, r.Register(id))
		require.NoError(t, r.Schedule(id))
	}

	var order []string
	for i := 0; i < 6; i++ {
		id, err := r.PopFront()
		require.NoError(t, err)
		order = append(order, id)
		require.NoError(t, r.Schedule(id))
	}
	assert.Equal(t, []string{"a", "b", "c", "a", "b", "c"}, order)
}
