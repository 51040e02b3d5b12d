package access

import (
	"testing"
	"time"

	"clinic_chat_server/internal/dao/mysql/repository"
	"clinic_chat_server/internal/model"
	"clinic_chat_server/internal/testutil"
	"clinic_chat_server/pkg/errorx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuard(t *testing.T) {
	db := testutil.DB(t)
	repos := repository.NewRepositories(db)
	guard := NewGuard(repos)

	room := testutil.SeedRoom(t, db, model.NewClinicGroupRoom(model.GroupKindClinicAll, 1, "", "All"), 1, 2)
	now := time.Now()
	require.NoError(t, repos.Participant.SetBlocked(room.ID, 2, true, &now))

	cases := []struct {
		name    string
		roomID  uint
		userID  uint
		allowed bool
		code    int
	}{
		{"member", room.ID, 1, true, 0},
		{"muted member", room.ID, 2, false, errorx.CodeGroupBlocked},
		{"outsider", room.ID, 3, false, errorx.CodeAccessDenied},
		{"missing room", room.ID + 10, 1, false, errorx.CodeAccessDenied},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := guard.CanAccess(tc.roomID, tc.userID)
			require.NoError(t, err)
			assert.Equal(t, tc.allowed, ok)

			got, err := guard.Require(tc.roomID, tc.userID)
			if tc.allowed {
				require.NoError(t, err)
				assert.Equal(t, room.ID, got.ID)
			} else {
				assert.True(t, errorx.Is(err, tc.code))
			}
		})
	}
}

func TestMutedMemberIsStillParticipant(t *testing.T) {
	db := testutil.DB(t)
	repos := repository.NewRepositories(db)
	room := testutil.SeedRoom(t, db, model.NewClinicGroupRoom(model.GroupKindClinicAll, 1, "", "All"), 5)
	now := time.Now()
	require.NoError(t, repos.Participant.SetBlocked(room.ID, 5, true, &now))

	d, err := Evaluate(repos, room.ID, 5)
	require.NoError(t, err)
	assert.True(t, d.Participant)
	assert.True(t, d.Muted)
	assert.False(t, d.CanAccess())
}
