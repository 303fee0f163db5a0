package invites

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackhub/backend/internal/models"
	"github.com/hackhub/backend/internal/registrations"
	"github.com/hackhub/backend/pkg/utils"
)

var (
	ErrInviteNotFound      = errors.New("invite not found")
	ErrInviteExpired       = errors.New("invite expired")
	ErrInviteRevoked       = errors.New("invite revoked")
	ErrInviteUsed          = errors.New("invite already used")
	ErrInviteEmailMismatch = errors.New("invite was issued for a different email")
	ErrNotTeamCreator      = errors.New("only the team creator can invite members")
	ErrNotAllowed          = errors.New("not allowed to manage this invite")
	ErrEventClosed         = errors.New("event is not accepting members")
)

const codeAttempts = 3

// CheckRedeemable reports why inv cannot be accepted at now, or nil.
// An active invite past its expiry is treated as expired.
func CheckRedeemable(inv *models.Invite, now time.Time) error {
	switch inv.Status {
	case models.InviteRevoked:
		return ErrInviteRevoked
	case models.InviteUsed:
		return ErrInviteUsed
	case models.InviteExpired:
		return ErrInviteExpired
	}
	if !now.Before(inv.ExpiresAt) {
		return ErrInviteExpired
	}
	return nil
}

// Store is the invite persistence the service needs.
type Store interface {
	Create(ctx context.Context, inv *models.Invite) error
	GetByCode(ctx context.Context, code string) (*models.Invite, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Invite, error)
	MarkExpired(ctx context.Context, id uuid.UUID) error
	Revoke(ctx context.Context, id uuid.UUID) error
	RedeemTeam(ctx context.Context, inv *models.Invite, reg *models.Registration, now time.Time) error
	RedeemJudge(ctx context.Context, inv *models.Invite, userID uuid.UUID, now time.Time) error
}

// EventGetter loads events.
type EventGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
}

// Registrations looks up the inviter's registration and teams.
type Registrations interface {
	GetByEventAndEmail(ctx context.Context, eventID uuid.UUID, email string) (*models.Registration, error)
	GetTeam(ctx context.Context, teamID uuid.UUID) (*models.Team, error)
}

// Caller is the authenticated user acting on an invite.
type Caller struct {
	UserID   uuid.UUID
	Email    string
	FullName string
}

// Preview is what the join pages show before accepting.
type Preview struct {
	Invite     *models.Invite `json:"invite"`
	EventTitle string         `json:"event_title"`
	TeamName   string         `json:"team_name,omitempty"`
	Redeemable bool           `json:"redeemable"`
	Reason     string         `json:"reason,omitempty"`
}

// Service issues and redeems invites.
type Service struct {
	store    Store
	events   EventGetter
	regs     Registrations
	teamTTL  time.Duration
	judgeTTL time.Duration
	now      func() time.Time
	newCode  func() (string, error)
	logger   *zap.Logger
}

// NewService creates an invite service.
func NewService(store Store, events EventGetter, regs Registrations, teamTTL, judgeTTL time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    store,
		events:   events,
		regs:     regs,
		teamTTL:  teamTTL,
		judgeTTL: judgeTTL,
		now:      time.Now,
		newCode:  utils.NewInviteCode,
		logger:   logger,
	}
}

// CreateTeamInvite issues a team invite. Only the creator of the caller's team may do this.
func (s *Service) CreateTeamInvite(ctx context.Context, eventID uuid.UUID, caller Caller, email string) (*models.Invite, error) {
	reg, err := s.regs.GetByEventAndEmail(ctx, eventID, models.NormalizeEmail(caller.Email))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, registrations.ErrNotRegistered
		}
		return nil, err
	}
	if !reg.IsTeam() || !registrations.CanSubmit(reg) {
		return nil, ErrNotTeamCreator
	}
	inv := &models.Invite{
		Kind:      models.InviteTeam,
		EventID:   eventID,
		TeamID:    reg.TeamID,
		Email:     models.NormalizeEmail(email),
		CreatedBy: caller.UserID,
		Status:    models.InviteActive,
		ExpiresAt: s.now().Add(s.teamTTL),
	}
	return inv, s.insert(ctx, inv)
}

// CreateJudgeInvite issues a judge invite for an event the caller organizes.
func (s *Service) CreateJudgeInvite(ctx context.Context, e *models.Event, caller Caller, email string) (*models.Invite, error) {
	if e.OrganizerID != caller.UserID {
		return nil, ErrNotAllowed
	}
	inv := &models.Invite{
		Kind:      models.InviteJudge,
		EventID:   e.ID,
		Email:     models.NormalizeEmail(email),
		CreatedBy: caller.UserID,
		Status:    models.InviteActive,
		ExpiresAt: s.now().Add(s.judgeTTL),
	}
	return inv, s.insert(ctx, inv)
}

func (s *Service) insert(ctx context.Context, inv *models.Invite) error {
	for i := 0; i < codeAttempts; i++ {
		code, err := s.newCode()
		if err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
		inv.Code = code
		err = s.store.Create(ctx, inv)
		if !errors.Is(err, models.ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("generate code: %d collisions", codeAttempts)
}

// lookup loads an invite and lazily expires it.
func (s *Service) lookup(ctx context.Context, code string) (*models.Invite, error) {
	inv, err := s.store.GetByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, ErrInviteNotFound
		}
		return nil, err
	}
	if inv.Status == models.InviteActive && !s.now().Before(inv.ExpiresAt) {
		if err := s.store.MarkExpired(ctx, inv.ID); err != nil {
			s.logger.Warn("mark invite expired failed", zap.Error(err), zap.String("invite_id", inv.ID.String()))
		} else {
			inv.Status = models.InviteExpired
		}
	}
	return inv, nil
}

// Preview describes an invite without redeeming it.
func (s *Service) Preview(ctx context.Context, code string) (*Preview, error) {
	inv, err := s.lookup(ctx, code)
	if err != nil {
		return nil, err
	}
	e, err := s.events.GetByID(ctx, inv.EventID)
	if err != nil {
		return nil, err
	}
	p := &Preview{Invite: inv, EventTitle: e.Title, Redeemable: true}
	if inv.TeamID != nil {
		team, err := s.regs.GetTeam(ctx, *inv.TeamID)
		if err != nil {
			return nil, err
		}
		p.TeamName = team.Name
	}
	if err := CheckRedeemable(inv, s.now()); err != nil {
		p.Redeemable = false
		p.Reason = err.Error()
	}
	return p, nil
}

// Accept redeems an invite for caller. Team invites return the new registration.
func (s *Service) Accept(ctx context.Context, code string, caller Caller) (*models.Invite, *models.Registration, error) {
	inv, err := s.lookup(ctx, code)
	if err != nil {
		return nil, nil, err
	}
	now := s.now()
	if err := CheckRedeemable(inv, now); err != nil {
		return nil, nil, err
	}
	email := models.NormalizeEmail(caller.Email)
	if inv.Email != "" && inv.Email != email {
		return nil, nil, ErrInviteEmailMismatch
	}

	switch inv.Kind {
	case models.InviteTeam:
		e, err := s.events.GetByID(ctx, inv.EventID)
		if err != nil {
			return nil, nil, err
		}
		if !e.Status.Open() {
			return nil, nil, ErrEventClosed
		}
		reg := &models.Registration{EventID: inv.EventID, UserID: caller.UserID, Email: email, FullName: caller.FullName}
		if err := s.store.RedeemTeam(ctx, inv, reg, now); err != nil {
			return nil, nil, err
		}
		s.logger.Info("team invite accepted", zap.String("invite_id", inv.ID.String()), zap.String("registration_id", reg.ID.String()))
		inv.Status = models.InviteUsed
		return inv, reg, nil
	case models.InviteJudge:
		if err := s.store.RedeemJudge(ctx, inv, caller.UserID, now); err != nil {
			return nil, nil, err
		}
		s.logger.Info("judge invite accepted", zap.String("invite_id", inv.ID.String()), zap.String("event_id", inv.EventID.String()))
		inv.Status = models.InviteUsed
		return inv, nil, nil
	}
	return nil, nil, fmt.Errorf("unknown invite kind %q", inv.Kind)
}

// Revoke cancels an active invite. The creator and the event organizer may revoke.
func (s *Service) Revoke(ctx context.Context, code string, caller Caller) (*models.Invite, error) {
	inv, err := s.lookup(ctx, code)
	if err != nil {
		return nil, err
	}
	if inv.CreatedBy != caller.UserID {
		e, err := s.events.GetByID(ctx, inv.EventID)
		if err != nil {
			return nil, err
		}
		if e.OrganizerID != caller.UserID {
			return nil, ErrNotAllowed
		}
	}
	if err := CheckRedeemable(inv, s.now()); err != nil {
		return nil, err
	}
	if err := s.store.Revoke(ctx, inv.ID); err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, ErrInviteUsed
		}
		return nil, err
	}
	inv.Status = models.InviteRevoked
	return inv, nil
}

// ListByEvent returns an event's invites with lazily computed expiry.
func (s *Service) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Invite, error) {
	list, err := s.store.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	for i := range list {
		if list[i].Status == models.InviteActive && !now.Before(list[i].ExpiresAt) {
			list[i].Status = models.InviteExpired
		}
	}
	return list, nil
}
