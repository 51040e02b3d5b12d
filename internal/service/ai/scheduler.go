package ai

import (
	"context"
	"sync"
	"time"

	"clinic_chat_server/internal/config"
	"clinic_chat_server/internal/dao/mysql/repository"
	"clinic_chat_server/internal/infrastructure/metrics"
	"clinic_chat_server/internal/model"
	"clinic_chat_server/pkg/errorx"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// task outcomes
const (
	OutcomeReplied  = "replied"
	OutcomeCanceled = "canceled"
	OutcomeGone     = "gone"
	OutcomeEmpty    = "empty"
	OutcomeFailed   = "failed"
)

const pollBatch = 100

// Poster stores and broadcasts an AI message.
type Poster interface {
	PostAI(ctx context.Context, room *model.ChatRoom, senderID uint, parentID *uint, content string) (*model.Message, error)
}

// Scheduler runs the delayed group auto-reply and the immediate AI room
// reply. A scheduled task is canceled at fire time, not by removal: if the
// room has any message newer than the trigger, the task does nothing.
type Scheduler struct {
	repos  *repository.Repositories
	queue  Queue
	poster Poster
	reply  ReplyFunc
	delay  time.Duration
	poll   string
	email  string

	mu     sync.Mutex
	aiUser *model.User
}

// NewScheduler builds the scheduler with the default reply oracle.
// Steps of its life:
//  1. Schedule/ReplyNow queue a task from the send path
//  2. Start polls the queue on cfg.AiPollInterval
//  3. Fire drops superseded triggers and posts the reply through poster
func NewScheduler(repos *repository.Repositories, queue Queue, poster Poster, cfg config.ChatConfig) *Scheduler {
	return &Scheduler{
		repos:  repos,
		queue:  queue,
		poster: poster,
		reply:  DefaultReply,
		delay:  cfg.AiReplyDelay(),
		poll:   cfg.AiPollInterval,
		email:  cfg.AiUserEmail,
	}
}

// SetReplyFunc swaps the reply oracle.
func (s *Scheduler) SetReplyFunc(fn ReplyFunc) { s.reply = fn }

// Schedule queues a group reply due after the silence window.
func (s *Scheduler) Schedule(ctx context.Context, roomID, messageID uint) {
	task := Task{RoomID: roomID, MessageID: messageID}
	if err := s.queue.Push(ctx, task, time.Now().Add(s.delay)); err != nil {
		zap.L().Error("schedule ai reply failed", zap.Uint("room_id", roomID), zap.Uint("message_id", messageID), zap.Error(err))
	}
}

// ReplyNow answers in the background without a silence window.
func (s *Scheduler) ReplyNow(_ context.Context, roomID, messageID uint) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				zap.L().Error("ai reply panic", zap.Any("recover", r))
			}
		}()
		s.Fire(context.Background(), Task{RoomID: roomID, MessageID: messageID}, false)
	}()
}

// Start polls the queue on a cron schedule until ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc("@every "+s.poll, func() { s.Poll(ctx) }); err != nil {
		return err
	}
	c.Start()
	zap.L().Info("ai reply scheduler started", zap.String("poll", s.poll), zap.Duration("delay", s.delay))
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// Poll fires every due task once.
func (s *Scheduler) Poll(ctx context.Context) {
	tasks, err := s.queue.PopDue(ctx, time.Now(), pollBatch)
	if err != nil {
		zap.L().Error("poll ai reply queue failed", zap.Error(err))
	}
	for _, t := range tasks {
		s.Fire(ctx, t, true)
	}
}

// Fire evaluates one task and returns its outcome. supersede enables the
// newer-message cancellation used by group replies.
func (s *Scheduler) Fire(ctx context.Context, t Task, supersede bool) string {
	outcome, err := s.fire(ctx, t, supersede)
	if err != nil {
		zap.L().Error("ai reply failed", zap.Uint("room_id", t.RoomID), zap.Uint("message_id", t.MessageID), zap.Error(err))
		outcome = OutcomeFailed
	}
	metrics.RecordAiReply(outcome)
	return outcome
}

func (s *Scheduler) fire(ctx context.Context, t Task, supersede bool) (string, error) {
	trigger, err := s.repos.Message.FindByID(t.MessageID)
	if err != nil {
		if errorx.IsNotFound(err) {
			return OutcomeGone, nil
		}
		return "", err
	}
	room, err := s.repos.Room.FindByID(trigger.RoomID)
	if err != nil {
		if errorx.IsNotFound(err) {
			return OutcomeGone, nil
		}
		return "", err
	}

	if supersede {
		newer, err := s.repos.Message.ExistsAfter(room.ID, trigger.ID)
		if err != nil {
			return "", err
		}
		if newer {
			return OutcomeCanceled, nil
		}
	}

	attachments, err := s.repos.Message.AttachmentsOf([]uint{trigger.ID})
	if err != nil {
		return "", err
	}
	text := s.reply(trigger.Content, len(attachments) > 0)
	if text == "" {
		return OutcomeEmpty, nil
	}

	bot, err := s.identity()
	if err != nil {
		return "", err
	}
	if _, err := s.poster.PostAI(ctx, room, bot.ID, &trigger.ID, text); err != nil {
		return "", err
	}
	return OutcomeReplied, nil
}

func (s *Scheduler) identity() (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.aiUser != nil {
		return s.aiUser, nil
	}
	user, err := EnsureAIUser(s.repos, s.email)
	if err != nil {
		return nil, err
	}
	s.aiUser = user
	return user, nil
}
