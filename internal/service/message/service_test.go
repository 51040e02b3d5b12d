package message

import (
	"context"
	"sync"
	"testing"
	"time"

	"clinic_chat_server/internal/config"
	"clinic_chat_server/internal/dao/mysql/repository"
	"clinic_chat_server/internal/dto/request"
	"clinic_chat_server/internal/dto/respond"
	"clinic_chat_server/internal/model"
	"clinic_chat_server/internal/service/permission"
	"clinic_chat_server/internal/service/read"
	"clinic_chat_server/internal/testutil"
	"clinic_chat_server/pkg/errorx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recorder struct {
	mu        sync.Mutex
	messages  []respond.MessagePayload
	reactions []respond.ReactRespond
	scheduled []uint
	immediate []uint
	observed  []uint
}

func (r *recorder) PublishMessage(_ context.Context, _ uint, p respond.MessagePayload) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, p)
}

func (r *recorder) PublishReaction(_ context.Context, _ uint, d respond.ReactRespond) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reactions = append(r.reactions, d)
}

func (r *recorder) Schedule(_ context.Context, _, messageID uint) {
	r.scheduled = append(r.scheduled, messageID)
}

func (r *recorder) ReplyNow(_ context.Context, _, messageID uint) {
	r.immediate = append(r.immediate, messageID)
}

func (r *recorder) Observe(_ *model.ChatRoom, msg *model.Message, _ []model.MessageAttachment) {
	r.observed = append(r.observed, msg.ID)
}

type fixture struct {
	db    *gorm.DB
	repos *repository.Repositories
	svc   *Service
	rec   *recorder
}

func setup(t *testing.T) *fixture {
	db := testutil.DB(t)
	repos := repository.NewRepositories(db)
	testutil.GrantRole(t, db, "doctor", model.PermSend, model.PermReactLike, model.PermReactDislike)

	svc := NewService(repos, permission.NewOracle(repos, nil), read.NewTracker(repos, nil), config.ChatConfig{MessagePageSize: 50})
	rec := &recorder{}
	svc.SetPublisher(rec)
	svc.SetScheduler(rec)
	svc.SetObserver(rec)
	return &fixture{db: db, repos: repos, svc: svc, rec: rec}
}

func (f *fixture) unread(t *testing.T, roomID, userID uint) bool {
	latest, err := f.repos.Message.LatestID(roomID)
	require.NoError(t, err)
	state, err := f.repos.Participant.FindState(roomID, userID)
	require.NoError(t, err)
	return latest > state.LastReadMessageID
}

func TestSendPrivateMessage(t *testing.T) {
	f := setup(t)
	a := testutil.SeedUser(t, f.db, "a@x.test", "doctor")
	b := testutil.SeedUser(t, f.db, "b@x.test", "doctor")
	room := testutil.SeedRoom(t, f.db, model.NewPrivateRoom(a.ID, b.ID), a.ID, b.ID)

	res, err := f.svc.Send(context.Background(), a, a, room.ID, request.SendMessageRequest{Content: "hi"})
	require.NoError(t, err)
	assert.NotZero(t, res.MessageID)
	assert.False(t, res.Impersonated)

	require.Len(t, f.rec.messages, 1)
	assert.Equal(t, "hi", f.rec.messages[0].Content)
	require.NotNil(t, f.rec.messages[0].Sender)
	assert.Equal(t, a.ID, f.rec.messages[0].Sender.ID)

	assert.True(t, f.unread(t, room.ID, b.ID))
	assert.False(t, f.unread(t, room.ID, a.ID))

	// private rooms never schedule or moderate
	assert.Empty(t, f.rec.scheduled)
	assert.Empty(t, f.rec.observed)
}

func TestSendRejectsPairBlockBothWays(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := testutil.SeedUser(t, f.db, "a@x.test", "doctor")
	b := testutil.SeedUser(t, f.db, "b@x.test", "doctor")
	room := testutil.SeedRoom(t, f.db, model.NewPrivateRoom(a.ID, b.ID), a.ID, b.ID)
	require.NoError(t, f.db.Create(&model.UserBlock{BlockerID: a.ID, BlockedID: b.ID, BlockedAt: time.Now()}).Error)

	_, err := f.svc.Send(ctx, b, b, room.ID, request.SendMessageRequest{Content: "hello?"})
	var codeErr *errorx.CodeError
	require.ErrorAs(t, err, &codeErr)
	assert.Equal(t, errorx.CodeChatBlocked, codeErr.Code)
	assert.Equal(t, "other", codeErr.Data.(respond.ChatBlockedData).BlockedBy)

	_, err = f.svc.Send(ctx, a, a, room.ID, request.SendMessageRequest{Content: "hi"})
	require.ErrorAs(t, err, &codeErr)
	assert.Equal(t, "me", codeErr.Data.(respond.ChatBlockedData).BlockedBy)

	assert.Empty(t, f.rec.messages)
}

func TestSendRejections(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := testutil.SeedUser(t, f.db, "a@x.test", "doctor")
	b := testutil.SeedUser(t, f.db, "b@x.test", "doctor")
	outsider := testutil.SeedUser(t, f.db, "c@x.test", "doctor")
	owner := testutil.SeedUser(t, f.db, "o@x.test", "owner")
	clinic := testutil.SeedClinic(t, f.db, "North", a, b)
	group := testutil.SeedRoom(t, f.db, model.NewClinicGroupRoom(model.GroupKindClinicAll, clinic.ID, "", "All"), a.ID, b.ID, owner.ID)
	other := testutil.SeedRoom(t, f.db, model.NewPrivateRoom(a.ID, outsider.ID), a.ID, outsider.ID)
	foreign := testutil.SeedMessage(t, f.db, other.ID, a.ID, "elsewhere")
	require.NoError(t, f.repos.Participant.SetBlocked(group.ID, b.ID, true, nil))

	cases := []struct {
		name  string
		actor *model.User
		room  uint
		req   request.SendMessageRequest
		code  int
	}{
		{"not a participant", outsider, group.ID, request.SendMessageRequest{Content: "x"}, errorx.CodeAccessDenied},
		{"missing room", a, 9999, request.SendMessageRequest{Content: "x"}, errorx.CodeAccessDenied},
		{"muted member", b, group.ID, request.SendMessageRequest{Content: "x"}, errorx.CodeGroupBlocked},
		{"blank content", a, group.ID, request.SendMessageRequest{Content: "   "}, errorx.CodeEmptyMessage},
		{"audit viewer", owner, group.ID, request.SendMessageRequest{Content: "x"}, errorx.CodeReadOnly},
		{"foreign parent", a, group.ID, request.SendMessageRequest{Content: "x", ParentMessageID: &foreign.ID}, errorx.CodeInvalidParam},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Send(ctx, tc.actor, tc.actor, tc.room, tc.req)
			assert.True(t, errorx.Is(err, tc.code), "got %v", err)
		})
	}
}

func TestSendAttachmentOnly(t *testing.T) {
	f := setup(t)
	a := testutil.SeedUser(t, f.db, "a@x.test", "doctor")
	b := testutil.SeedUser(t, f.db, "b@x.test", "doctor")
	room := testutil.SeedRoom(t, f.db, model.NewPrivateRoom(a.ID, b.ID), a.ID, b.ID)

	_, err := f.svc.Send(context.Background(), a, a, room.ID, request.SendMessageRequest{
		Attachments: []request.AttachmentRequest{{URL: "https://files.test/x.png", Name: "x.png", Type: model.AttachmentImage}},
	})
	require.NoError(t, err)
	require.Len(t, f.rec.messages, 1)
	require.Len(t, f.rec.messages[0].Attachments, 1)
	assert.Equal(t, "x.png", f.rec.messages[0].Attachments[0].Name)
}

func TestSendMentions(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := testutil.SeedUser(t, f.db, "a@x.test", "doctor")
	b := testutil.SeedUser(t, f.db, "b@x.test", "doctor", testutil.NotifyTagged())
	c := testutil.SeedUser(t, f.db, "c@x.test", "doctor")
	stranger := testutil.SeedUser(t, f.db, "d@x.test", "doctor", testutil.NotifyTagged())
	clinic := testutil.SeedClinic(t, f.db, "North", a, b, c)
	group := testutil.SeedRoom(t, f.db, model.NewClinicGroupRoom(model.GroupKindClinicAll, clinic.ID, "", "All"), a.ID, b.ID, c.ID)

	// a non-member mention is dropped without error
	_, err := f.svc.Send(ctx, a, a, group.ID, request.SendMessageRequest{Content: "ping", MentionUserIDs: []uint{stranger.ID}})
	require.NoError(t, err)
	var mentions, notes int64
	f.db.Model(&model.MessageMention{}).Count(&mentions)
	f.db.Model(&model.Notification{}).Count(&notes)
	assert.Zero(t, mentions)
	assert.Zero(t, notes)

	// c is tagged but has not opted into notifications
	res, err := f.svc.Send(ctx, a, a, group.ID, request.SendMessageRequest{Content: "both", MentionUserIDs: []uint{b.ID, c.ID, a.ID}})
	require.NoError(t, err)
	f.db.Model(&model.MessageMention{}).Where("message_id = ?", res.MessageID).Count(&mentions)
	assert.EqualValues(t, 2, mentions)

	var got []model.Notification
	require.NoError(t, f.db.Find(&got).Error)
	require.Len(t, got, 1)
	assert.Equal(t, b.ID, got[0].UserID)
	assert.Equal(t, model.NotifMention, got[0].NotifType)

	assert.Len(t, f.rec.messages, 2)
	assert.Len(t, f.rec.observed, 2)
}

func TestSendSchedulesAiReplies(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := testutil.SeedUser(t, f.db, "a@x.test", "doctor")
	b := testutil.SeedUser(t, f.db, "b@x.test", "doctor")
	clinic := testutil.SeedClinic(t, f.db, "North", a, b)
	group := testutil.SeedRoom(t, f.db, model.NewClinicGroupRoom(model.GroupKindClinicAll, clinic.ID, "", "All"), a.ID, b.ID)
	aiRoom := testutil.SeedRoom(t, f.db, model.NewAiRoom(a.ID), a.ID)
	testutil.GrantUser(t, f.db, a.ID, model.PermAiGroupAutoreply)

	first, err := f.svc.Send(ctx, a, a, group.ID, request.SendMessageRequest{Content: "anyone?"})
	require.NoError(t, err)
	_, err = f.svc.Send(ctx, b, b, group.ID, request.SendMessageRequest{Content: "me"})
	require.NoError(t, err)
	assert.Equal(t, []uint{first.MessageID}, f.rec.scheduled)

	direct, err := f.svc.Send(ctx, a, a, aiRoom.ID, request.SendMessageRequest{Content: "summarize"})
	require.NoError(t, err)
	assert.Equal(t, []uint{direct.MessageID}, f.rec.immediate)
}

func TestSendImpersonated(t *testing.T) {
	f := setup(t)
	admin := testutil.SeedUser(t, f.db, "admin@x.test", "manager")
	a := testutil.SeedUser(t, f.db, "a@x.test", "doctor")
	b := testutil.SeedUser(t, f.db, "b@x.test", "doctor")
	testutil.GrantUser(t, f.db, admin.ID, model.PermSend, model.PermImpersonate)
	room := testutil.SeedRoom(t, f.db, model.NewPrivateRoom(a.ID, b.ID), a.ID, b.ID)

	res, err := f.svc.Send(context.Background(), admin, a, room.ID, request.SendMessageRequest{Content: "on behalf"})
	require.NoError(t, err)
	assert.True(t, res.Impersonated)

	msg, err := f.repos.Message.FindByID(res.MessageID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, *msg.SenderID)
}

func TestPostAI(t *testing.T) {
	f := setup(t)
	a := testutil.SeedUser(t, f.db, "a@x.test", "doctor")
	bot := testutil.SeedUser(t, f.db, "ai@x.test", "ai")
	room := testutil.SeedRoom(t, f.db, model.NewAiRoom(a.ID), a.ID)
	trigger := testutil.SeedMessage(t, f.db, room.ID, a.ID, "hello")

	msg, err := f.svc.PostAI(context.Background(), room, bot.ID, &trigger.ID, "(AI) hello")
	require.NoError(t, err)
	assert.True(t, msg.IsAI)
	require.Len(t, f.rec.messages, 1)
	assert.True(t, f.rec.messages[0].IsAI)
	assert.Empty(t, f.rec.scheduled)
	assert.Empty(t, f.rec.immediate)
}

func TestReactToggles(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := testutil.SeedUser(t, f.db, "a@x.test", "doctor")
	b := testutil.SeedUser(t, f.db, "b@x.test", "doctor")
	room := testutil.SeedRoom(t, f.db, model.NewPrivateRoom(a.ID, b.ID), a.ID, b.ID)
	msg := testutil.SeedMessage(t, f.db, room.ID, a.ID, "vote")

	res, err := f.svc.React(ctx, b, msg.ID, model.ReactionLike)
	require.NoError(t, err)
	require.NotNil(t, res.Reaction)
	assert.Equal(t, respond.ReactionCounts{Like: 1}, res.Counts)

	res, err = f.svc.React(ctx, b, msg.ID, model.ReactionLike)
	require.NoError(t, err)
	assert.Nil(t, res.Reaction)
	assert.Equal(t, respond.ReactionCounts{}, res.Counts)

	_, err = f.svc.React(ctx, b, msg.ID, model.ReactionLike)
	require.NoError(t, err)
	res, err = f.svc.React(ctx, b, msg.ID, model.ReactionDislike)
	require.NoError(t, err)
	assert.Equal(t, model.ReactionDislike, *res.Reaction)
	assert.Equal(t, respond.ReactionCounts{Dislike: 1}, res.Counts)

	assert.Len(t, f.rec.reactions, 4)

	_, err = f.svc.React(ctx, b, 9999, model.ReactionLike)
	assert.True(t, errorx.Is(err, errorx.CodeNotFound))
}

func TestReactOnAiMessageRecordsFeedback(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := testutil.SeedUser(t, f.db, "a@x.test", "doctor")
	bot := testutil.SeedUser(t, f.db, "ai@x.test", "ai")
	room := testutil.SeedRoom(t, f.db, model.NewAiRoom(a.ID), a.ID)
	sid := bot.ID
	reply := &model.Message{RoomID: room.ID, SenderID: &sid, Content: "(AI) hi", IsAI: true}
	require.NoError(t, f.db.Create(reply).Error)

	_, err := f.svc.React(ctx, a, reply.ID, model.ReactionDislike)
	require.NoError(t, err)
	var fb model.AiFeedback
	require.NoError(t, f.db.Where("message_id = ?", reply.ID).First(&fb).Error)
	assert.Equal(t, model.ReactionDislike, fb.Reaction)
	assert.Equal(t, model.RoomTypeAI, fb.RoomType)
	assert.Equal(t, "doctor", fb.Role)

	_, err = f.svc.React(ctx, a, reply.ID, model.ReactionDislike)
	require.NoError(t, err)
	var n int64
	f.db.Model(&model.AiFeedback{}).Where("message_id = ?", reply.ID).Count(&n)
	assert.Zero(t, n)
}

func TestListAppliesHistoryWindowAndMarksSeen(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := testutil.SeedUser(t, f.db, "a@x.test", "doctor")
	b := testutil.SeedUser(t, f.db, "b@x.test", "doctor")
	room := testutil.SeedRoom(t, f.db, model.NewPrivateRoom(a.ID, b.ID), a.ID, b.ID)

	now := time.Now()
	sid := a.ID
	old := &model.Message{RoomID: room.ID, SenderID: &sid, Content: "old", CreatedAt: now.Add(-2 * time.Hour)}
	require.NoError(t, f.db.Create(old).Error)
	fresh := &model.Message{RoomID: room.ID, SenderID: &sid, Content: "new", CreatedAt: now}
	require.NoError(t, f.db.Create(fresh).Error)
	require.NoError(t, f.repos.Preference.Upsert(b.ID, room.ID, now.Add(-time.Hour)))

	page, err := f.svc.List(ctx, b, room.ID, 0)
	require.NoError(t, err)
	require.Len(t, page.Messages, 1)
	assert.Equal(t, fresh.ID, page.Messages[0].ID)
	assert.False(t, page.ReadOnly)
	assert.False(t, page.ChatBlocked)
	assert.False(t, f.unread(t, room.ID, b.ID))

	// a still sees everything
	page, err = f.svc.List(ctx, a, room.ID, 0)
	require.NoError(t, err)
	assert.Len(t, page.Messages, 2)
}

func TestListReportsPairBlock(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := testutil.SeedUser(t, f.db, "a@x.test", "doctor")
	b := testutil.SeedUser(t, f.db, "b@x.test", "doctor")
	room := testutil.SeedRoom(t, f.db, model.NewPrivateRoom(a.ID, b.ID), a.ID, b.ID)
	require.NoError(t, f.db.Create(&model.UserBlock{BlockerID: a.ID, BlockedID: b.ID, BlockedAt: time.Now()}).Error)

	page, err := f.svc.List(ctx, b, room.ID, 0)
	require.NoError(t, err)
	assert.True(t, page.ChatBlocked)
	assert.Equal(t, "other", page.BlockedBy)
	assert.False(t, page.CanUnblock)

	page, err = f.svc.List(ctx, a, room.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, "me", page.BlockedBy)
	assert.True(t, page.CanUnblock)
}

func TestListPagesBackwards(t *testing.T) {
	f := setup(t)
	f.svc.cfg.MessagePageSize = 2
	a := testutil.SeedUser(t, f.db, "a@x.test", "doctor")
	b := testutil.SeedUser(t, f.db, "b@x.test", "doctor")
	room := testutil.SeedRoom(t, f.db, model.NewPrivateRoom(a.ID, b.ID), a.ID, b.ID)
	var ids []uint
	for i := 0; i < 5; i++ {
		ids = append(ids, testutil.SeedMessage(t, f.db, room.ID, a.ID, "m").ID)
	}

	page, err := f.svc.List(context.Background(), b, room.ID, ids[3])
	require.NoError(t, err)
	require.Len(t, page.Messages, 2)
	assert.Equal(t, ids[1], page.Messages[0].ID)
	assert.Equal(t, ids[2], page.Messages[1].ID)

	// older pages leave the cursor alone
	assert.True(t, f.unread(t, room.ID, b.ID))
}

func TestAuditListIsReadOnly(t *testing.T) {
	f := setup(t)
	a := testutil.SeedUser(t, f.db, "a@x.test", "doctor")
	b := testutil.SeedUser(t, f.db, "b@x.test", "doctor")
	owner := testutil.SeedUser(t, f.db, "o@x.test", "owner")
	room := testutil.SeedRoom(t, f.db, model.NewPrivateRoom(a.ID, b.ID), a.ID, b.ID)
	testutil.SeedMessage(t, f.db, room.ID, a.ID, "private matter")

	page, err := f.svc.List(context.Background(), owner, room.ID, 0)
	require.NoError(t, err)
	assert.True(t, page.ReadOnly)
	assert.Len(t, page.Messages, 1)

	_, err = f.repos.Participant.FindState(room.ID, owner.ID)
	assert.True(t, errorx.IsNotFound(err))
}

func TestListUserRoomMessages(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := testutil.SeedUser(t, f.db, "a@x.test", "doctor")
	b := testutil.SeedUser(t, f.db, "b@x.test", "doctor")
	manager := testutil.SeedUser(t, f.db, "m@x.test", "manager")
	room := testutil.SeedRoom(t, f.db, model.NewPrivateRoom(a.ID, b.ID), a.ID, b.ID)
	testutil.SeedMessage(t, f.db, room.ID, a.ID, "hello")

	_, err := f.svc.ListUserRoomMessages(ctx, manager, a.ID, room.ID)
	assert.True(t, errorx.Is(err, errorx.CodeAccessDenied))

	testutil.GrantUser(t, f.db, manager.ID, model.PermViewUserHistory)
	page, err := f.svc.ListUserRoomMessages(ctx, manager, a.ID, room.ID)
	require.NoError(t, err)
	assert.True(t, page.ReadOnly)
	assert.Len(t, page.Messages, 1)

	_, err = f.svc.ListUserRoomMessages(ctx, manager, manager.ID, room.ID)
	assert.True(t, errorx.Is(err, errorx.CodeAccessDenied))
}
