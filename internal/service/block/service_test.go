package block

import (
	"context"
	"testing"

	"clinic_chat_server/internal/dao/mysql/repository"
	"clinic_chat_server/internal/model"
	"clinic_chat_server/internal/service/permission"
	"clinic_chat_server/internal/testutil"
	"clinic_chat_server/pkg/errorx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setup(t *testing.T) (*gorm.DB, *repository.Repositories, *Service) {
	db := testutil.DB(t)
	repos := repository.NewRepositories(db)
	testutil.GrantRole(t, db, "doctor", model.PermBlockUser, model.PermManageGroup)
	return db, repos, NewService(repos, permission.NewOracle(repos, nil))
}

func TestBlockLifecycle(t *testing.T) {
	db, _, svc := setup(t)
	ctx := context.Background()
	a := testutil.SeedUser(t, db, "a@x.test", "doctor")
	b := testutil.SeedUser(t, db, "b@x.test", "doctor")

	assert.True(t, errorx.Is(svc.Block(ctx, a, a.ID), errorx.CodeSelfActionDenied))
	require.NoError(t, svc.Block(ctx, a, b.ID))

	err := svc.Block(ctx, a, b.ID)
	assert.True(t, errorx.Is(err, errorx.CodeAlreadyBlocked))

	// b cannot counter-block while blocked by a
	err = svc.Block(ctx, b, a.ID)
	require.Error(t, err)
	var codeErr *errorx.CodeError
	require.ErrorAs(t, err, &codeErr)
	assert.Equal(t, errorx.CodeAlreadyBlocked, codeErr.Code)
	assert.Equal(t, "other", codeErr.Data.(blockedAtData).BlockedBy)

	list, err := svc.List(ctx, a)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].UserID)

	// only the blocker can lift the edge
	assert.True(t, errorx.Is(svc.Unblock(ctx, b, a.ID), errorx.CodeNotBlocked))
	require.NoError(t, svc.Unblock(ctx, a, b.ID))
	assert.True(t, errorx.Is(svc.Unblock(ctx, a, b.ID), errorx.CodeNotBlocked))
}

func TestBlockRequiresPermission(t *testing.T) {
	db, _, svc := setup(t)
	nurse := testutil.SeedUser(t, db, "n@x.test", "nurse")
	doc := testutil.SeedUser(t, db, "d@x.test", "doctor")
	assert.True(t, errorx.Is(svc.Block(context.Background(), nurse, doc.ID), errorx.CodeAccessDenied))
}

func TestGroupMute(t *testing.T) {
	db, repos, svc := setup(t)
	ctx := context.Background()
	lead := testutil.SeedUser(t, db, "lead@x.test", "doctor")
	member := testutil.SeedUser(t, db, "m@x.test", "nurse")
	room := testutil.SeedRoom(t, db, model.NewClinicGroupRoom(model.GroupKindClinicAll, 1, "", "All"), lead.ID, member.ID)

	assert.True(t, errorx.Is(svc.SetMute(ctx, lead, room.ID, lead.ID, true), errorx.CodeSelfActionDenied))
	assert.True(t, errorx.Is(svc.SetMute(ctx, member, room.ID, lead.ID, true), errorx.CodeAccessDenied))

	require.NoError(t, svc.SetMute(ctx, lead, room.ID, member.ID, true))
	state, err := repos.Participant.FindState(room.ID, member.ID)
	require.NoError(t, err)
	assert.True(t, state.IsBlocked)
	assert.NotNil(t, state.BlockedAt)

	assert.True(t, errorx.Is(svc.SetMute(ctx, lead, room.ID, member.ID, true), errorx.CodeAlreadyBlocked))
	require.NoError(t, svc.SetMute(ctx, lead, room.ID, member.ID, false))
	assert.True(t, errorx.Is(svc.SetMute(ctx, lead, room.ID, member.ID, false), errorx.CodeNotBlocked))

	// the private block registry is untouched by mutes
	_, err = repos.Block.FindBetween(lead.ID, member.ID)
	assert.True(t, errorx.IsNotFound(err))
}

func TestMuteRejectsPrivateRooms(t *testing.T) {
	db, _, svc := setup(t)
	a := testutil.SeedUser(t, db, "a@x.test", "doctor")
	b := testutil.SeedUser(t, db, "b@x.test", "doctor")
	room := testutil.SeedRoom(t, db, model.NewPrivateRoom(a.ID, b.ID), a.ID, b.ID)
	err := svc.SetMute(context.Background(), a, room.ID, b.ID, true)
	assert.True(t, errorx.Is(err, errorx.CodeInvalidParam))
}
