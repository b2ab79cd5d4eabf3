package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sinavhub/sinavhub-backend/pkg/db/models"
	"github.com/sinavhub/sinavhub-backend/pkg/enums"
	pkgerrors "github.com/sinavhub/sinavhub-backend/pkg/errors"
	"github.com/sinavhub/sinavhub-backend/pkg/pagination"
)

// CreateRequest is the admin payload for pushing an announcement to a user.
type CreateRequest struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
	Kind   string    `json:"kind" validate:"required"`
	Title  string    `json:"title" validate:"required,max=200"`
	Body   string    `json:"body" validate:"max=4000"`
}

// NotificationView is the API shape of a notification.
type NotificationView struct {
	ID        uuid.UUID              `json:"id"`
	Kind      enums.NotificationKind `json:"kind"`
	Title     string                 `json:"title"`
	Body      string                 `json:"body"`
	ReadAt    *time.Time             `json:"read_at,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// InboxView is the notification list plus the unread badge count.
type InboxView struct {
	Items       []NotificationView `json:"items"`
	UnreadCount int64              `json:"unread_count"`
}

// Service manages per-user notifications.
type Service interface {
	ListNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) (*InboxView, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) error
	Notify(ctx context.Context, req CreateRequest) (*NotificationView, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// ServiceParams bundles the dependencies required to build a notifications service.
type ServiceParams struct {
	Repo Repository
	Now  func() time.Time
}

// NewService constructs a notifications service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("notifications repository is required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{repo: params.Repo, now: now}, nil
}

func (s *service) ListNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) (*InboxView, error) {
	limit = pagination.NormalizeLimit(limit)
	items, err := s.repo.ListByUser(ctx, userID, unreadOnly, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list notifications")
	}
	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count unread")
	}
	view := &InboxView{
		Items:       make([]NotificationView, 0, len(items)),
		UnreadCount: unread,
	}
	for i := range items {
		view.Items = append(view.Items, viewFrom(&items[i]))
	}
	return view, nil
}

func (s *service) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	updated, err := s.repo.MarkRead(ctx, userID, id, s.now())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark notification read")
	}
	if updated == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

// Notify stores an announcement for a user. Settlement paths use this to
// surface payment results in the app.
func (s *service) Notify(ctx context.Context, req CreateRequest) (*NotificationView, error) {
	kind, err := enums.ParseNotificationKind(req.Kind)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown notification kind")
	}
	notification := &models.Notification{
		UserID: req.UserID,
		Kind:   kind,
		Title:  req.Title,
		Body:   req.Body,
	}
	created, err := s.repo.Create(ctx, notification)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create notification")
	}
	view := viewFrom(created)
	return &view, nil
}

func viewFrom(n *models.Notification) NotificationView {
	return NotificationView{
		ID:        n.ID,
		Kind:      n.Kind,
		Title:     n.Title,
		Body:      n.Body,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
}
