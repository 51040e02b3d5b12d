// Package membership keeps group rosters in step with the clinic
// directory. Events arrive over HTTP or kafka; a nightly job repairs drift.
package membership

import (
	"context"
	"encoding/json"

	"clinic_chat_server/internal/dao/mysql/repository"
	"clinic_chat_server/internal/dto/request"
	"clinic_chat_server/internal/model"
	"clinic_chat_server/internal/service/permission"
	"clinic_chat_server/internal/service/room"
	"clinic_chat_server/pkg/errorx"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// event kinds
const (
	KindClinicJoined    = "clinic_joined"
	KindClinicLeft      = "clinic_left"
	KindRoleChanged     = "role_changed"
	KindUserDeactivated = "user_deactivated"
	KindUserReactivated = "user_reactivated"
)

// Invalidator drops cached grants of a user whose role changed.
type Invalidator interface {
	Invalidate(ctx context.Context, userID uint)
}

// Service keeps group rosters in line with clinic membership. It is fed
// by the HTTP endpoint, the kafka topic and the nightly reconciler.
type Service struct {
	repos       *repository.Repositories
	perms       permission.Checker
	invalidator Invalidator
	validate    *validator.Validate
}

// NewService builds the service; invalidator may be nil.
func NewService(repos *repository.Repositories, perms permission.Checker, invalidator Invalidator) *Service {
	v := validator.New()
	v.SetTagName("binding")
	return &Service{repos: repos, perms: perms, invalidator: invalidator, validate: v}
}

// Handle applies an event submitted by an administrator.
func (s *Service) Handle(ctx context.Context, actor *model.User, ev request.MembershipEventRequest) error {
	if err := permission.Require(ctx, s.perms, actor, model.PermManageMembership); err != nil {
		return err
	}
	return s.Apply(ctx, ev)
}

// HandleEvent decodes a kafka record and applies it.
func (s *Service) HandleEvent(ctx context.Context, _, value []byte) error {
	var ev request.MembershipEventRequest
	if err := json.Unmarshal(value, &ev); err != nil {
		return errorx.Wrap(err, errorx.CodeInvalidParam, "decode membership event")
	}
	if err := s.validate.Struct(ev); err != nil {
		return errorx.Wrap(err, errorx.CodeInvalidParam, "invalid membership event")
	}
	return s.Apply(ctx, ev)
}

// Apply runs the reconciliation for one event in a single transaction.
func (s *Service) Apply(ctx context.Context, ev request.MembershipEventRequest) error {
	fields := []zap.Field{zap.String("kind", ev.Kind), zap.Uint("user_id", ev.UserID), zap.Uint("clinic_id", ev.ClinicID)}

	err := s.repos.Transaction(func(txRepos *repository.Repositories) error {
		switch ev.Kind {
		case KindClinicLeft:
			return room.LeaveClinic(txRepos, ev.UserID, ev.ClinicID)
		case KindUserDeactivated:
			return room.Deactivate(txRepos, ev.UserID)
		}

		user, err := txRepos.User.FindByID(ev.UserID)
		if err != nil {
			return err
		}
		switch ev.Kind {
		case KindClinicJoined:
			return room.JoinClinic(txRepos, user, ev.ClinicID)
		case KindRoleChanged:
			return room.ChangeRole(txRepos, user, ev.OldRole, ev.NewRole)
		case KindUserReactivated:
			return room.Reactivate(txRepos, user)
		default:
			return errorx.Newf(errorx.CodeInvalidParam, "unknown membership event %q", ev.Kind)
		}
	})
	if err != nil {
		if errorx.IsNotFound(err) {
			return errorx.New(errorx.CodeNotFound, "user or clinic not found")
		}
		if errorx.Is(err, errorx.CodeInvalidParam) {
			return err
		}
		zap.L().Error("membership event failed", append(fields, zap.Error(err))...)
		return errorx.ErrServerBusy
	}

	if s.invalidator != nil && ev.Kind == KindRoleChanged {
		s.invalidator.Invalidate(ctx, ev.UserID)
	}
	zap.L().Info("membership event applied", fields...)
	return nil
}

// Reconcile re-ensures clinic_all and every clinic_role roster of every
// clinic. Each clinic runs in its own transaction; failures are logged and
// the next clinic continues.
func (s *Service) Reconcile(ctx context.Context) (failed int) {
	clinicIDs, err := s.repos.Clinic.AllIDs()
	if err != nil {
		zap.L().Error("list clinics failed", zap.Error(err))
		return 1
	}
	for _, cid := range clinicIDs {
		if ctx.Err() != nil {
			return failed
		}
		err := s.repos.Transaction(func(txRepos *repository.Repositories) error {
			if _, err := room.EnsureClinicAll(txRepos, cid); err != nil {
				return err
			}
			roleRooms, err := txRepos.Room.FindGroupRooms([]uint{cid}, model.GroupKindClinicRole, "")
			if err != nil {
				return err
			}
			for i := range roleRooms {
				if err := room.SyncRoster(txRepos, &roleRooms[i]); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			failed++
			zap.L().Error("roster reconcile failed", zap.Uint("clinic_id", cid), zap.Error(err))
		}
	}
	zap.L().Info("roster reconcile finished", zap.Int("clinics", len(clinicIDs)), zap.Int("failed", failed))
	return failed
}

// StartReconciler runs Reconcile on spec until ctx is done.
func (s *Service) StartReconciler(ctx context.Context, spec string) error {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() { s.Reconcile(ctx) }); err != nil {
		return err
	}
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
