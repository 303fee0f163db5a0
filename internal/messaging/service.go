package messaging

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackhub/backend/internal/models"
)

const (
	// MaxBodyLength is the longest message body in characters.
	MaxBodyLength = 4000
	// DefaultPageSize and MaxPageSize bound message history pages.
	DefaultPageSize = 50
	MaxPageSize     = 100
)

var (
	ErrForbidden   = errors.New("not allowed in this channel")
	ErrInvalidBody = errors.New("message must be 1 to 4000 characters")
)

// Store is the messaging persistence the service needs.
type Store interface {
	ListChannels(ctx context.Context, eventID uuid.UUID) ([]models.Channel, error)
	GetChannel(ctx context.Context, id uuid.UUID) (*models.Channel, error)
	ListMessages(ctx context.Context, channelID uuid.UUID, before *time.Time, limit int) ([]models.Message, error)
	InsertMessage(ctx context.Context, m *models.Message) error
}

// EventGetter loads events.
type EventGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
}

// Registrations finds a user's registration.
type Registrations interface {
	GetByEventAndEmail(ctx context.Context, eventID uuid.UUID, email string) (*models.Registration, error)
}

// Judges checks judge assignments.
type Judges interface {
	IsJudge(ctx context.Context, eventID, userID uuid.UUID) (bool, error)
}

// Publisher fans a new message out to connected clients.
type Publisher interface {
	PublishMessage(ctx context.Context, ch *models.Channel, m *models.Message) error
}

// Announcer mirrors announcements outside the platform.
type Announcer interface {
	Announce(ctx context.Context, eventTitle, sender, body string) error
}

// Caller is the authenticated user.
type Caller struct {
	UserID   uuid.UUID
	Email    string
	FullName string
}

// Service enforces channel access and stores messages.
type Service struct {
	store     Store
	events    EventGetter
	regs      Registrations
	judges    Judges
	publisher Publisher
	announcer Announcer
	logger    *zap.Logger
}

// NewService creates a messaging service. publisher and announcer may be nil.
func NewService(store Store, events EventGetter, regs Registrations, judges Judges, publisher Publisher, announcer Announcer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, events: events, regs: regs, judges: judges, publisher: publisher, announcer: announcer, logger: logger}
}

// ResolveAccess works out the caller's standing in an event.
func (s *Service) ResolveAccess(ctx context.Context, e *models.Event, caller Caller) (Access, error) {
	a := Access{UserID: caller.UserID, Organizer: e.OrganizerID == caller.UserID}
	judge, err := s.judges.IsJudge(ctx, e.ID, caller.UserID)
	if err != nil {
		return a, err
	}
	a.Judge = judge
	reg, err := s.regs.GetByEventAndEmail(ctx, e.ID, models.NormalizeEmail(caller.Email))
	switch {
	case err == nil:
		a.Registered = true
		a.TeamID = reg.TeamID
	case !errors.Is(err, models.ErrNotFound):
		return a, err
	}
	return a, nil
}

// AccessForEvent loads the event and resolves the caller's access. Used by the websocket endpoint.
func (s *Service) AccessForEvent(ctx context.Context, eventID uuid.UUID, caller Caller) (Access, error) {
	e, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return Access{}, err
	}
	return s.ResolveAccess(ctx, e, caller)
}

// Channels returns the event channels the caller can read.
func (s *Service) Channels(ctx context.Context, e *models.Event, caller Caller) ([]models.Channel, error) {
	a, err := s.ResolveAccess(ctx, e, caller)
	if err != nil {
		return nil, err
	}
	if !a.Member() {
		return nil, ErrForbidden
	}
	all, err := s.store.ListChannels(ctx, e.ID)
	if err != nil {
		return nil, err
	}
	visible := make([]models.Channel, 0, len(all))
	for _, ch := range all {
		if a.CanRead(ch.Type, ch.TeamID) {
			visible = append(visible, ch)
		}
	}
	return visible, nil
}

func (s *Service) channel(ctx context.Context, channelID uuid.UUID, caller Caller) (*models.Channel, *models.Event, Access, error) {
	ch, err := s.store.GetChannel(ctx, channelID)
	if err != nil {
		return nil, nil, Access{}, err
	}
	e, err := s.events.GetByID(ctx, ch.EventID)
	if err != nil {
		return nil, nil, Access{}, err
	}
	a, err := s.ResolveAccess(ctx, e, caller)
	if err != nil {
		return nil, nil, Access{}, err
	}
	return ch, e, a, nil
}

// ClampLimit applies the default and maximum page size.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageSize
	}
	if limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}

// Messages returns a page of channel history, oldest first.
func (s *Service) Messages(ctx context.Context, channelID uuid.UUID, caller Caller, before *time.Time, limit int) ([]models.Message, error) {
	ch, _, a, err := s.channel(ctx, channelID, caller)
	if err != nil {
		return nil, err
	}
	if !a.CanRead(ch.Type, ch.TeamID) {
		return nil, ErrForbidden
	}
	return s.store.ListMessages(ctx, ch.ID, before, ClampLimit(limit))
}

// Post appends a message, fans it out and mirrors announcements.
func (s *Service) Post(ctx context.Context, channelID uuid.UUID, caller Caller, body string) (*models.Message, error) {
	body = strings.TrimSpace(body)
	if n := utf8.RuneCountInString(body); n == 0 || n > MaxBodyLength {
		return nil, ErrInvalidBody
	}
	ch, e, a, err := s.channel(ctx, channelID, caller)
	if err != nil {
		return nil, err
	}
	if !a.CanPost(ch.Type, ch.TeamID) {
		return nil, ErrForbidden
	}
	m := &models.Message{
		ChannelID:  ch.ID,
		EventID:    ch.EventID,
		SenderID:   caller.UserID,
		SenderName: caller.FullName,
		Body:       body,
	}
	if err := s.store.InsertMessage(ctx, m); err != nil {
		return nil, err
	}
	if s.publisher != nil {
		if err := s.publisher.PublishMessage(ctx, ch, m); err != nil {
			s.logger.Warn("publish message failed", zap.Error(err), zap.String("channel_id", ch.ID.String()))
		}
	}
	if ch.Type == models.ChannelAnnouncements && s.announcer != nil {
		if err := s.announcer.Announce(ctx, e.Title, m.SenderName, m.Body); err != nil {
			s.logger.Warn("mirror announcement failed", zap.Error(err), zap.String("event_id", e.ID.String()))
		}
	}
	return m, nil
}
