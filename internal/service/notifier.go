package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Jasper-ops698/HSSM-Services-sub001/internal/model"
	"github.com/Jasper-ops698/HSSM-Services-sub001/internal/repository"
	"github.com/Jasper-ops698/HSSM-Services-sub001/pkg/redis"
)

// ── 通知事件 ──

// Event 通知事件（核心操作产生，通知组件异步消费）
type Event struct {
	Type        string   // timetable_updated | replacement_assigned | replacement_cleared
	Department  string   // 非空时落一条院系公告
	Title       string
	Content     string
	UserIDs     []string // 需要收到站内通知的用户
	Room        string   // 非空时向实时频道发布
	RelatedType string
	RelatedID   string
	ActorID     string
}

// EventSink 通知汇（核心操作只投递，不等待、不关心结果）
// 投递永不阻塞、永不失败——通知链路的任何故障都不得回滚核心写入
type EventSink interface {
	Publish(event Event)
}

// ── 异步通知组件 ──

// Notifier 通知组件：缓冲通道 + 单 worker 协程。
// 落库站内通知/公告并向 Redis 实时频道发布；队列满时丢弃并记日志。
type Notifier struct {
	repo   *repository.Repository
	rdb    *redis.Client
	logger *zap.Logger

	events chan Event
	wg     sync.WaitGroup
	once   sync.Once
}

// NewNotifier 创建并启动通知组件
func NewNotifier(repo *repository.Repository, rdb *redis.Client, logger *zap.Logger) *Notifier {
	n := &Notifier{
		repo:   repo,
		rdb:    rdb,
		logger: logger,
		events: make(chan Event, 256),
	}
	n.wg.Add(1)
	go n.run()
	return n
}

// Publish 投递事件。队列满时丢弃（宁可漏通知，不可阻塞核心操作）。
func (n *Notifier) Publish(event Event) {
	select {
	case n.events <- event:
	default:
		n.logger.Warn("通知队列已满，事件被丢弃", zap.String("type", event.Type))
	}
}

// Close 停止接收并处理完剩余事件
func (n *Notifier) Close() {
	n.once.Do(func() { close(n.events) })
	n.wg.Wait()
}

func (n *Notifier) run() {
	defer n.wg.Done()
	for event := range n.events {
		n.dispatch(event)
	}
}

// dispatch 处理单个事件。所有失败只记日志，不向上传播。
func (n *Notifier) dispatch(event Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if event.Department != "" {
		announcement := &model.Announcement{
			Department: event.Department,
			Title:      event.Title,
			Content:    event.Content,
		}
		if event.ActorID != "" {
			actorID := event.ActorID
			announcement.CreatedBy = &actorID
		}
		if err := n.repo.Notification.CreateAnnouncement(ctx, announcement); err != nil {
			n.logger.Warn("写入公告失败", zap.String("type", event.Type), zap.Error(err))
		}
	}

	if userIDs := n.knownUsers(ctx, event.UserIDs); len(userIDs) > 0 {
		notifications := make([]model.Notification, 0, len(userIDs))
		for _, uid := range userIDs {
			notification := model.Notification{
				UserID:  uid,
				Type:    event.Type,
				Title:   event.Title,
				Content: event.Content,
			}
			if event.RelatedType != "" {
				rt, rid := event.RelatedType, event.RelatedID
				notification.RelatedType = &rt
				notification.RelatedID = &rid
			}
			notifications = append(notifications, notification)
		}
		if err := n.repo.Notification.BatchCreate(ctx, notifications); err != nil {
			n.logger.Warn("写入站内通知失败", zap.String("type", event.Type), zap.Error(err))
		}
	}

	if event.Room != "" && n.rdb != nil {
		if err := n.rdb.PublishRoomEvent(ctx, event.Room, event); err != nil {
			n.logger.Warn("发布实时事件失败", zap.String("room", event.Room), zap.Error(err))
		}
	}
}

// knownUsers 过滤掉系统中不存在的用户，已离职或拼错的 ID 不落通知
func (n *Notifier) knownUsers(ctx context.Context, ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	users, err := n.repo.User.ListByIDs(ctx, ids)
	if err != nil {
		n.logger.Warn("过滤通知对象失败，按原列表投递", zap.Error(err))
		return ids
	}
	known := make([]string, 0, len(users))
	for i := range users {
		known = append(known, users[i].UserID)
	}
	return known
}
