// Package scheduler 实现两级优先级调度器
//
// 第一级在发送组之间轮询，第二级在组内按 SendOrder 排序：
//
//	PriorityScheduler
//	  ├── activeGroups: RoundRobin[SendGroupID]        组间公平
//	  └── groups[gid]:  BTreeScheduler[StreamID, SendOrder]  组内优先级
//
// 单一的全局优先队列会让一个频繁写入的组饿死其他组；
// 两级结构在组间保证公平，同时保留应用指定的组内先后顺序。
//
// # 排序规则
//
//   - 组内 SendOrder 越小越先被服务
//   - SendOrder 相同时按被调度（Schedule）的先后顺序，先到先服务
//   - PopFront 后，组内仍有待调度流时才把组重新放回轮询队尾
//
// # 不变量
//
//   - 组当且仅当至少有一条流注册在其下时存在
//   - 组在轮询队列中当且仅当组内有已调度的流
//
// 调度器不是并发安全的，所有操作应在连接的事件处理上下文中调用。
package scheduler
