package ai

import (
	"strings"

	"clinic_chat_server/internal/dao/mysql/repository"
	myredis "clinic_chat_server/internal/dao/redis"
	"clinic_chat_server/internal/infrastructure/metrics"
	"clinic_chat_server/internal/model"
	"clinic_chat_server/internal/service/notification"
	"clinic_chat_server/pkg/constants"

	"go.uber.org/zap"
)

// severities
const (
	SeverityWarn = "warn"
	SeverityHigh = "high"
)

const flagReason = "Potentially unsafe or inappropriate content detected"

var (
	flaggedKeywords = []string{"kill", "suicide", "illegal", "fake report", "prescription fraud", "harm", "abuse"}
	highKeywords    = []string{"kill", "suicide"}
	riskyExtensions = []string{".exe", ".bat", ".sh"}
)

// Verdict is the moderation result for one message.
type Verdict struct {
	Flagged  bool
	Severity string
	Reason   string
}

// Analyze applies the keyword and attachment rules.
func Analyze(content string, attachments []model.MessageAttachment) Verdict {
	text := strings.ToLower(content)
	flagged := containsAny(text, flaggedKeywords)
	for _, a := range attachments {
		name := strings.ToLower(a.Name)
		for _, ext := range riskyExtensions {
			if strings.HasSuffix(name, ext) {
				flagged = true
			}
		}
	}
	if !flagged {
		return Verdict{}
	}
	severity := SeverityWarn
	if containsAny(text, highKeywords) {
		severity = SeverityHigh
	}
	return Verdict{Flagged: true, Severity: severity, Reason: flagReason}
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// Moderator observes committed human group messages. Flagged messages get
// one moderation AiFeedback row and an AI_ALERT for every active owner and
// president.
type Moderator struct {
	repos   *repository.Repositories
	workers myredis.AsyncCacheService
}

// NewModerator runs checks on the redis worker pool when workers is set,
// otherwise on a fresh goroutine.
func NewModerator(repos *repository.Repositories, workers myredis.AsyncCacheService) *Moderator {
	return &Moderator{repos: repos, workers: workers}
}

// Observe queues a moderation pass for a committed human group message.
// It never blocks the send path; AI output and private rooms are skipped.
func (m *Moderator) Observe(room *model.ChatRoom, msg *model.Message, attachments []model.MessageAttachment) {
	if msg.IsAI || !room.IsGroup() {
		return
	}
	task := func() {
		if _, err := m.Check(room, msg, attachments); err != nil {
			zap.L().Error("moderation failed", zap.Uint("message_id", msg.ID), zap.Error(err))
		}
	}
	if m.workers != nil {
		m.workers.SubmitTask(task)
		return
	}
	go task()
}

// Check moderates msg synchronously and reports whether it was flagged.
func (m *Moderator) Check(room *model.ChatRoom, msg *model.Message, attachments []model.MessageAttachment) (bool, error) {
	verdict := Analyze(msg.Content, attachments)
	if !verdict.Flagged {
		return false, nil
	}
	exists, err := m.repos.AiFeedback.ExistsForMessage(msg.ID, model.FeedbackSourceModeration)
	if err != nil || exists {
		return exists, err
	}

	var senderRole string
	if msg.SenderID != nil {
		if sender, err := m.repos.User.FindByID(*msg.SenderID); err == nil {
			senderRole = sender.Role
		}
	}
	recipients, err := m.repos.User.FindUsableByRoles([]string{constants.ROLE_OWNER, constants.ROLE_PRESIDENT})
	if err != nil {
		return true, err
	}

	err = m.repos.Transaction(func(txRepos *repository.Repositories) error {
		if err := txRepos.AiFeedback.Create(&model.AiFeedback{
			MessageID: msg.ID,
			Source:    model.FeedbackSourceModeration,
			Reaction:  model.ReactionDislike,
			Role:      senderRole,
			RoomType:  room.RoomType,
			ClinicID:  room.ClinicID,
			Severity:  verdict.Severity,
			Reason:    verdict.Reason,
		}); err != nil {
			return err
		}
		alert := notification.AlertPayload{
			MessageID: msg.ID,
			RoomID:    room.ID,
			ClinicID:  room.ClinicID,
			Reason:    verdict.Reason,
			Severity:  verdict.Severity,
		}
		notes := make([]model.Notification, 0, len(recipients))
		for i := range recipients {
			notes = append(notes, notification.AiAlert(recipients[i].ID, alert))
		}
		return txRepos.Notification.CreateBatch(notes)
	})
	if err != nil {
		return true, err
	}
	metrics.RecordModerationFlag(verdict.Severity)
	zap.L().Info("message flagged", zap.Uint("message_id", msg.ID), zap.String("severity", verdict.Severity))
	return true, nil
}
