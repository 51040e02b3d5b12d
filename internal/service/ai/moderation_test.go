package ai

import (
	"encoding/json"
	"testing"

	"clinic_chat_server/internal/dao/mysql/repository"
	"clinic_chat_server/internal/model"
	"clinic_chat_server/internal/service/notification"
	"clinic_chat_server/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze(t *testing.T) {
	cases := []struct {
		name     string
		content  string
		files    []string
		flagged  bool
		severity string
	}{
		{"clean", "shift swap on friday?", nil, false, ""},
		{"warn keyword", "this looks like Prescription Fraud", nil, true, SeverityWarn},
		{"high keyword", "patient mentioned SUICIDE", nil, true, SeverityHigh},
		{"risky attachment", "see file", []string{"setup.EXE"}, true, SeverityWarn},
		{"safe attachment", "see file", []string{"xray.png"}, false, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var atts []model.MessageAttachment
			for _, f := range tc.files {
				atts = append(atts, model.MessageAttachment{Name: f})
			}
			v := Analyze(tc.content, atts)
			assert.Equal(t, tc.flagged, v.Flagged)
			assert.Equal(t, tc.severity, v.Severity)
		})
	}
}

func TestModeratorFlagsOnceAndAlertsLeaders(t *testing.T) {
	db := testutil.DB(t)
	repos := repository.NewRepositories(db)
	owner := testutil.SeedUser(t, db, "owner@x.test", "owner")
	president := testutil.SeedUser(t, db, "pres@x.test", "president")
	testutil.SeedUser(t, db, "gone@x.test", "president", testutil.Inactive())
	doc := testutil.SeedUser(t, db, "doc@x.test", "doctor")
	clinic := testutil.SeedClinic(t, db, "North", doc)
	room := testutil.SeedRoom(t, db, model.NewClinicGroupRoom(model.GroupKindClinicAll, clinic.ID, "", "All"), doc.ID)
	msg := testutil.SeedMessage(t, db, room.ID, doc.ID, "I will kill this bug")

	mod := NewModerator(repos, testutil.NewMemoryCache())
	mod.Observe(room, msg, nil)

	var fb model.AiFeedback
	require.NoError(t, db.Where("message_id = ?", msg.ID).First(&fb).Error)
	assert.Equal(t, model.FeedbackSourceModeration, fb.Source)
	assert.Equal(t, model.ReactionDislike, fb.Reaction)
	assert.Equal(t, SeverityHigh, fb.Severity)
	assert.Equal(t, "doctor", fb.Role)

	var alerts []model.Notification
	require.NoError(t, db.Where("notif_type = ?", model.NotifAiAlert).Order("user_id").Find(&alerts).Error)
	require.Len(t, alerts, 2)
	assert.Equal(t, []uint{owner.ID, president.ID}, []uint{alerts[0].UserID, alerts[1].UserID})

	var payload notification.AlertPayload
	require.NoError(t, json.Unmarshal([]byte(alerts[0].Payload), &payload))
	assert.Equal(t, msg.ID, payload.MessageID)
	assert.Equal(t, clinic.ID, *payload.ClinicID)

	// a second pass does not duplicate
	flagged, err := mod.Check(room, msg, nil)
	require.NoError(t, err)
	assert.True(t, flagged)
	var n int64
	db.Model(&model.Notification{}).Count(&n)
	assert.EqualValues(t, 2, n)
}

func TestModeratorSkipsPrivateRooms(t *testing.T) {
	db := testutil.DB(t)
	repos := repository.NewRepositories(db)
	a := testutil.SeedUser(t, db, "a@x.test", "doctor")
	b := testutil.SeedUser(t, db, "b@x.test", "doctor")
	private := testutil.SeedRoom(t, db, model.NewPrivateRoom(a.ID, b.ID), a.ID, b.ID)
	msg := testutil.SeedMessage(t, db, private.ID, a.ID, "abuse")

	NewModerator(repos, testutil.NewMemoryCache()).Observe(private, msg, nil)

	var n int64
	db.Model(&model.AiFeedback{}).Count(&n)
	assert.Zero(t, n)
}
