package membership

import (
	"context"
	"strconv"
	"testing"

	"clinic_chat_server/internal/dao/mysql/repository"
	"clinic_chat_server/internal/dto/request"
	"clinic_chat_server/internal/model"
	"clinic_chat_server/internal/service/permission"
	"clinic_chat_server/internal/testutil"
	"clinic_chat_server/pkg/errorx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type invalidations struct{ users []uint }

func (i *invalidations) Invalidate(_ context.Context, userID uint) { i.users = append(i.users, userID) }

type fixture struct {
	db     *gorm.DB
	repos  *repository.Repositories
	svc    *Service
	inv    *invalidations
	clinic *model.Clinic
	all    *model.ChatRoom
	docs   *model.ChatRoom
	nurses *model.ChatRoom
	lead   *model.User
}

func setup(t *testing.T) *fixture {
	db := testutil.DB(t)
	repos := repository.NewRepositories(db)
	inv := &invalidations{}
	lead := testutil.SeedUser(t, db, "lead@x.test", "doctor")
	clinic := testutil.SeedClinic(t, db, "North", lead)
	f := &fixture{
		db:     db,
		repos:  repos,
		svc:    NewService(repos, permission.NewOracle(repos, nil), inv),
		inv:    inv,
		clinic: clinic,
		lead:   lead,
	}
	f.all = testutil.SeedRoom(t, db, model.NewClinicGroupRoom(model.GroupKindClinicAll, clinic.ID, "", "North"), lead.ID)
	f.docs = testutil.SeedRoom(t, db, model.NewClinicGroupRoom(model.GroupKindClinicRole, clinic.ID, "doctor", "Doctors"), lead.ID)
	f.nurses = testutil.SeedRoom(t, db, model.NewClinicGroupRoom(model.GroupKindClinicRole, clinic.ID, "nurse", "Nurses"))
	return f
}

func (f *fixture) member(t *testing.T, roomID, userID uint) bool {
	ok, err := f.repos.Participant.Exists(roomID, userID)
	require.NoError(t, err)
	return ok
}

func TestJoinAndLeaveClinic(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	doc := testutil.SeedUser(t, f.db, "doc@x.test", "doctor")
	testutil.LinkClinic(t, f.db, f.clinic.ID, doc.ID)

	require.NoError(t, f.svc.Apply(ctx, request.MembershipEventRequest{Kind: KindClinicJoined, UserID: doc.ID, ClinicID: f.clinic.ID}))
	assert.True(t, f.member(t, f.all.ID, doc.ID))
	assert.True(t, f.member(t, f.docs.ID, doc.ID))
	assert.False(t, f.member(t, f.nurses.ID, doc.ID))

	// replaying the event changes nothing
	require.NoError(t, f.svc.Apply(ctx, request.MembershipEventRequest{Kind: KindClinicJoined, UserID: doc.ID, ClinicID: f.clinic.ID}))

	require.NoError(t, f.svc.Apply(ctx, request.MembershipEventRequest{Kind: KindClinicLeft, UserID: doc.ID, ClinicID: f.clinic.ID}))
	assert.False(t, f.member(t, f.all.ID, doc.ID))
	assert.False(t, f.member(t, f.docs.ID, doc.ID))
	assert.True(t, f.member(t, f.all.ID, f.lead.ID))
}

func TestRoleChangeMovesRoleRoomsAndDropsCachedGrants(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.db.Model(&model.User{}).Where("id = ?", f.lead.ID).Update("role", "nurse").Error)

	err := f.svc.Apply(context.Background(), request.MembershipEventRequest{
		Kind: KindRoleChanged, UserID: f.lead.ID, OldRole: "doctor", NewRole: "nurse",
	})
	require.NoError(t, err)
	assert.False(t, f.member(t, f.docs.ID, f.lead.ID))
	assert.True(t, f.member(t, f.nurses.ID, f.lead.ID))
	assert.True(t, f.member(t, f.all.ID, f.lead.ID))
	assert.Equal(t, []uint{f.lead.ID}, f.inv.users)
}

func TestDeactivateKeepsStateForReactivation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	private := testutil.SeedUser(t, f.db, "p@x.test", "doctor")
	dm := testutil.SeedRoom(t, f.db, model.NewPrivateRoom(f.lead.ID, private.ID), f.lead.ID, private.ID)
	_, err := f.repos.Participant.AdvanceCursor(f.all.ID, f.lead.ID, 42)
	require.NoError(t, err)

	require.NoError(t, f.db.Model(&model.User{}).Where("id = ?", f.lead.ID).Update("is_active", false).Error)
	require.NoError(t, f.svc.Apply(ctx, request.MembershipEventRequest{Kind: KindUserDeactivated, UserID: f.lead.ID}))

	assert.False(t, f.member(t, f.all.ID, f.lead.ID))
	assert.False(t, f.member(t, f.docs.ID, f.lead.ID))
	assert.True(t, f.member(t, dm.ID, f.lead.ID))
	state, err := f.repos.Participant.FindState(f.all.ID, f.lead.ID)
	require.NoError(t, err)
	assert.True(t, state.IsDeleted)

	require.NoError(t, f.db.Model(&model.User{}).Where("id = ?", f.lead.ID).Update("is_active", true).Error)
	require.NoError(t, f.svc.Apply(ctx, request.MembershipEventRequest{Kind: KindUserReactivated, UserID: f.lead.ID}))

	assert.True(t, f.member(t, f.all.ID, f.lead.ID))
	assert.True(t, f.member(t, f.docs.ID, f.lead.ID))
	state, err = f.repos.Participant.FindState(f.all.ID, f.lead.ID)
	require.NoError(t, err)
	assert.False(t, state.IsDeleted)
	assert.EqualValues(t, 42, state.LastReadMessageID)
}

func TestApplyUnknownUser(t *testing.T) {
	f := setup(t)
	err := f.svc.Apply(context.Background(), request.MembershipEventRequest{Kind: KindClinicJoined, UserID: 999, ClinicID: f.clinic.ID})
	assert.True(t, errorx.Is(err, errorx.CodeNotFound))
}

func TestHandleRequiresGrant(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	ev := request.MembershipEventRequest{Kind: KindUserDeactivated, UserID: f.lead.ID}

	assert.True(t, errorx.Is(f.svc.Handle(ctx, f.lead, ev), errorx.CodeAccessDenied))

	admin := testutil.SeedUser(t, f.db, "admin@x.test", "manager")
	testutil.GrantUser(t, f.db, admin.ID, model.PermManageMembership)
	assert.NoError(t, f.svc.Handle(ctx, admin, ev))
}

func TestHandleEventDecodesAndValidates(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	doc := testutil.SeedUser(t, f.db, "doc@x.test", "doctor")
	testutil.LinkClinic(t, f.db, f.clinic.ID, doc.ID)

	cases := map[string]string{
		"not json":       `{`,
		"unknown kind":   `{"kind":"promoted","user_id":1}`,
		"missing clinic": `{"kind":"clinic_joined","user_id":1}`,
		"missing roles":  `{"kind":"role_changed","user_id":1}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			assert.True(t, errorx.Is(f.svc.HandleEvent(ctx, nil, []byte(body)), errorx.CodeInvalidParam))
		})
	}

	body := []byte(`{"kind":"clinic_joined","user_id":` + uintString(doc.ID) + `,"clinic_id":` + uintString(f.clinic.ID) + `}`)
	require.NoError(t, f.svc.HandleEvent(ctx, []byte("k"), body))
	assert.True(t, f.member(t, f.all.ID, doc.ID))
}

func TestReconcileRepairsDrift(t *testing.T) {
	f := setup(t)
	newcomer := testutil.SeedUser(t, f.db, "new@x.test", "nurse")
	testutil.LinkClinic(t, f.db, f.clinic.ID, newcomer.ID)
	stray := testutil.SeedUser(t, f.db, "stray@x.test", "doctor")
	require.NoError(t, f.repos.Participant.AddMembers(f.docs.ID, []uint{stray.ID}))

	south := testutil.SeedClinic(t, f.db, "South", testutil.SeedUser(t, f.db, "s@x.test", "doctor"))

	assert.Zero(t, f.svc.Reconcile(context.Background()))

	assert.True(t, f.member(t, f.all.ID, newcomer.ID))
	assert.True(t, f.member(t, f.nurses.ID, newcomer.ID))
	assert.False(t, f.member(t, f.docs.ID, stray.ID))

	southAll, err := f.repos.Room.FindByUniqueKey(model.ClinicAllKey(south.ID))
	require.NoError(t, err)
	ids, err := f.repos.Participant.MemberIDs(southAll.ID)
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func uintString(v uint) string { return strconv.FormatUint(uint64(v), 10) }
