package permission

import (
	"context"
	"testing"

	"clinic_chat_server/internal/dao/mysql/repository"
	"clinic_chat_server/internal/model"
	"clinic_chat_server/internal/testutil"
	"clinic_chat_server/pkg/errorx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowedResolution(t *testing.T) {
	db := testutil.DB(t)
	repos := repository.NewRepositories(db)
	oracle := NewOracle(repos, nil)
	ctx := context.Background()

	owner := testutil.SeedUser(t, db, "owner@x.test", "owner")
	super := testutil.SeedUser(t, db, "root@x.test", "doctor", testutil.WithSuperuser())
	doctor := testutil.SeedUser(t, db, "doc@x.test", "doctor")
	special := testutil.SeedUser(t, db, "special@x.test", "nurse")
	nurse := testutil.SeedUser(t, db, "nurse@x.test", "nurse")

	testutil.GrantRole(t, db, "doctor", model.PermSend)
	testutil.GrantUser(t, db, special.ID, model.PermSend)

	cases := []struct {
		name string
		user *model.User
		want bool
	}{
		{"owner always", owner, true},
		{"superuser always", super, true},
		{"role grant", doctor, true},
		{"user grant", special, true},
		{"no grant", nurse, false},
		{"nil user", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := oracle.Allowed(ctx, tc.user, model.PermSend)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ok)
		})
	}
}

func TestAllowedIsCachedAndInvalidated(t *testing.T) {
	db := testutil.DB(t)
	repos := repository.NewRepositories(db)
	cache := testutil.NewMemoryCache()
	oracle := NewOracle(repos, cache)
	ctx := context.Background()

	nurse := testutil.SeedUser(t, db, "nurse@x.test", "nurse")
	ok, err := oracle.Allowed(ctx, nurse, model.PermBlockUser)
	require.NoError(t, err)
	assert.False(t, ok)

	// the cached denial survives a new grant until invalidated
	testutil.GrantUser(t, db, nurse.ID, model.PermBlockUser)
	ok, err = oracle.Allowed(ctx, nurse, model.PermBlockUser)
	require.NoError(t, err)
	assert.False(t, ok)

	oracle.Invalidate(ctx, nurse.ID)
	ok, err = oracle.Allowed(ctx, nurse, model.PermBlockUser)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRequire(t *testing.T) {
	db := testutil.DB(t)
	oracle := NewOracle(repository.NewRepositories(db), nil)
	nurse := testutil.SeedUser(t, db, "nurse@x.test", "nurse")

	err := Require(context.Background(), oracle, nurse, model.PermCreateGroup)
	assert.True(t, errorx.Is(err, errorx.CodeAccessDenied))
	assert.False(t, IsAuditor(context.Background(), oracle, nurse))
}
