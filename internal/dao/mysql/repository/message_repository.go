package repository

import (
	"database/sql"
	"time"

	"clinic_chat_server/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates the MessageRepository.
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(msg *model.Message) error {
	if err := r.db.Create(msg).Error; err != nil {
		return wrapDBErrorf(err, "create message room_id=%d", msg.RoomID)
	}
	return nil
}

func (r *messageRepository) FindByID(id uint) (*model.Message, error) {
	var msg model.Message
	if err := r.db.First(&msg, id).Error; err != nil {
		return nil, wrapDBErrorf(err, "find message id=%d", id)
	}
	return &msg, nil
}

func (r *messageRepository) FindByIDs(ids []uint) ([]model.Message, error) {
	var msgs []model.Message
	ids = uniqueUints(ids)
	if len(ids) == 0 {
		return msgs, nil
	}
	if err := r.db.Where("id IN ?", ids).Order("id ASC").Find(&msgs).Error; err != nil {
		return nil, wrapDBError(err, "find messages by ids")
	}
	return msgs, nil
}

func (r *messageRepository) LatestID(roomID uint) (uint, error) {
	var id sql.NullInt64
	if err := r.db.Model(&model.Message{}).Where("room_id = ?", roomID).
		Select("MAX(id)").Scan(&id).Error; err != nil {
		return 0, wrapDBErrorf(err, "latest message room_id=%d", roomID)
	}
	if !id.Valid {
		return 0, nil
	}
	return uint(id.Int64), nil
}

// LatestIDs maps room id to its newest message id. Empty rooms are absent.
func (r *messageRepository) LatestIDs(roomIDs []uint) (map[uint]uint, error) {
	out := make(map[uint]uint)
	roomIDs = uniqueUints(roomIDs)
	if len(roomIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		RoomID uint
		LastID uint
	}
	if err := r.db.Model(&model.Message{}).
		Select("room_id, MAX(id) AS last_id").
		Where("room_id IN ?", roomIDs).
		Group("room_id").
		Scan(&rows).Error; err != nil {
		return nil, wrapDBError(err, "latest messages of rooms")
	}
	for _, row := range rows {
		out[row.RoomID] = row.LastID
	}
	return out, nil
}

func (r *messageRepository) ListPage(roomID uint, since *time.Time, beforeID uint, limit int) ([]model.Message, error) {
	var msgs []model.Message
	query := r.db.Where("room_id = ?", roomID)
	if beforeID > 0 {
		query = query.Where("id < ?", beforeID)
	}
	if since != nil {
		query = query.Where("created_at >= ?", *since)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Order("id DESC").Find(&msgs).Error; err != nil {
		return nil, wrapDBErrorf(err, "list messages room_id=%d", roomID)
	}
	// newest first from the db, oldest first to the caller
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (r *messageRepository) ExistsAfter(roomID, afterID uint) (bool, error) {
	var count int64
	if err := r.db.Model(&model.Message{}).
		Where("room_id = ? AND id > ?", roomID, afterID).
		Count(&count).Error; err != nil {
		return false, wrapDBErrorf(err, "check newer messages room_id=%d", roomID)
	}
	return count > 0, nil
}

func (r *messageRepository) CreateAttachments(attachments []model.MessageAttachment) error {
	if len(attachments) == 0 {
		return nil
	}
	if err := r.db.Create(&attachments).Error; err != nil {
		return wrapDBError(err, "create attachments")
	}
	return nil
}

func (r *messageRepository) AttachmentsOf(messageIDs []uint) ([]model.MessageAttachment, error) {
	var attachments []model.MessageAttachment
	messageIDs = uniqueUints(messageIDs)
	if len(messageIDs) == 0 {
		return attachments, nil
	}
	if err := r.db.Where("message_id IN ?", messageIDs).Order("id ASC").Find(&attachments).Error; err != nil {
		return nil, wrapDBError(err, "list attachments")
	}
	return attachments, nil
}

func (r *messageRepository) CreateMentions(mentions []model.MessageMention) error {
	if len(mentions) == 0 {
		return nil
	}
	if err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "message_id"}, {Name: "mentioned_user_id"}},
		DoNothing: true,
	}).Create(&mentions).Error; err != nil {
		return wrapDBError(err, "create mentions")
	}
	return nil
}

func (r *messageRepository) UnseenMentionMessageIDs(userID, roomID, upTo uint) ([]uint, error) {
	var ids []uint
	if err := r.db.Model(&model.MessageMention{}).
		Where("mentioned_user_id = ? AND room_id = ? AND message_id <= ? AND seen_at IS NULL", userID, roomID, upTo).
		Pluck("message_id", &ids).Error; err != nil {
		return nil, wrapDBErrorf(err, "list unseen mentions user_id=%d room_id=%d", userID, roomID)
	}
	return ids, nil
}

func (r *messageRepository) MarkMentionsSeen(userID uint, messageIDs []uint, at time.Time) (int64, error) {
	messageIDs = uniqueUints(messageIDs)
	if len(messageIDs) == 0 {
		return 0, nil
	}
	res := r.db.Model(&model.MessageMention{}).
		Where("mentioned_user_id = ? AND message_id IN ? AND seen_at IS NULL", userID, messageIDs).
		Update("seen_at", at)
	if res.Error != nil {
		return 0, wrapDBErrorf(res.Error, "mark mentions seen user_id=%d", userID)
	}
	return res.RowsAffected, nil
}

func (r *messageRepository) CountUnseenMentions(userID uint) (int64, error) {
	var count int64
	hidden := r.db.Model(&model.RoomUserState{}).Select("room_id").
		Where("user_id = ? AND is_deleted = ?", userID, true)
	if err := r.db.Model(&model.MessageMention{}).
		Where("mentioned_user_id = ? AND seen_at IS NULL", userID).
		Where("room_id NOT IN (?)", hidden).
		Count(&count).Error; err != nil {
		return 0, wrapDBErrorf(err, "count unseen mentions user_id=%d", userID)
	}
	return count, nil
}
