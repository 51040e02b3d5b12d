package user

import (
	"context"
	"testing"

	"clinic_chat_server/internal/dao/mysql/repository"
	"clinic_chat_server/internal/model"
	"clinic_chat_server/internal/service/permission"
	"clinic_chat_server/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchScopesToSharedClinics(t *testing.T) {
	db := testutil.DB(t)
	repos := repository.NewRepositories(db)
	svc := NewService(repos, permission.NewOracle(repos, nil))
	ctx := context.Background()

	me := testutil.SeedUser(t, db, "me@north.test", "doctor")
	colleague := testutil.SeedUser(t, db, "amy@north.test", "nurse")
	testutil.SeedUser(t, db, "gone@north.test", "nurse", testutil.Inactive())
	stranger := testutil.SeedUser(t, db, "bob@south.test", "doctor")
	testutil.SeedClinic(t, db, "North", me, colleague)
	testutil.SeedClinic(t, db, "South", stranger)

	got, err := svc.Search(ctx, me, "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, colleague.ID, got[0].ID)

	got, err = svc.Search(ctx, me, "bob")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSearchSeesEveryoneWithGrant(t *testing.T) {
	db := testutil.DB(t)
	repos := repository.NewRepositories(db)
	svc := NewService(repos, permission.NewOracle(repos, nil))
	ctx := context.Background()

	owner := testutil.SeedUser(t, db, "owner@x.test", "owner")
	admin := testutil.SeedUser(t, db, "admin@x.test", "manager")
	testutil.GrantUser(t, db, admin.ID, model.PermViewAllUsers)
	a := testutil.SeedUser(t, db, "a@north.test", "doctor")
	b := testutil.SeedUser(t, db, "b@south.test", "doctor")
	testutil.SeedClinic(t, db, "North", a)
	testutil.SeedClinic(t, db, "South", b)

	for _, viewer := range []*model.User{owner, admin} {
		got, err := svc.Search(ctx, viewer, ".test")
		require.NoError(t, err)
		var emails []string
		for _, u := range got {
			emails = append(emails, u.Email)
		}
		assert.Contains(t, emails, "a@north.test")
		assert.Contains(t, emails, "b@south.test")
		assert.NotContains(t, emails, viewer.Email)
	}
}

func TestSearchWithoutClinicIsEmpty(t *testing.T) {
	db := testutil.DB(t)
	repos := repository.NewRepositories(db)
	svc := NewService(repos, permission.NewOracle(repos, nil))
	loner := testutil.SeedUser(t, db, "loner@x.test", "doctor")
	testutil.SeedUser(t, db, "other@x.test", "doctor")

	got, err := svc.Search(context.Background(), loner, "")
	require.NoError(t, err)
	assert.Empty(t, got)
}
