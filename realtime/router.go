package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"echoforge/contract"
	"echoforge/domain"
	"echoforge/domain/event"
	"echoforge/errors"
	"echoforge/moderation"
	"echoforge/repositories"
)

// Router validates and persists incoming messages, then dispatches
// delivery to the live recipients. Persistence always commits before
// any fan-out: an unpersisted message is never broadcast, and delivery
// failures after the commit are never rolled back.
type Router struct {
	log              *slog.Logger
	registry         *SessionRegistry
	rooms            *RoomTracker
	messages         repositories.IMessageRepository
	users            repositories.IUserRepository
	moderator        *moderation.Moderator
	maxContentLength int
}

func NewRouter(log *slog.Logger, registry *SessionRegistry, rooms *RoomTracker,
	messages repositories.IMessageRepository, users repositories.IUserRepository,
	moderator *moderation.Moderator, maxContentLength int) *Router {
	return &Router{
		log:              log,
		registry:         registry,
		rooms:            rooms,
		messages:         messages,
		users:            users,
		moderator:        moderator,
		maxContentLength: maxContentLength,
	}
}

// SendChannelMessage persists a channel message and delivers it to
// every connection currently in the channel's room, the sender's own
// connection included when subscribed.
func (r *Router) SendChannelMessage(ctx context.Context, conn ConnID, channelID int64, content string) error {
	senderID, ok := r.registry.Resolve(conn)
	if !ok {
		return errors.ErrUnauthorized
	}

	message, err := r.buildMessage(senderID, content)
	if err != nil {
		return err
	}
	message.ChannelID = lo.ToPtr(channelID)

	if err := r.messages.StoreMessage(message); err != nil {
		return fmt.Errorf("store channel message: %w", err)
	}

	view := r.denormalize(message)
	evt := event.ChannelMessage{MessageView: view}

	// Snapshot taken after the commit: delivery goes to exactly the
	// room membership at the moment persistence succeeded.
	for _, member := range r.rooms.MembersOf(channelID) {
		r.deliver(ctx, member, evt)
	}
	return nil
}

// SendDirectMessage persists a direct message regardless of the
// recipient's presence, delivers it opportunistically when they are
// online, and always echoes a copy back to the sender's connection.
func (r *Router) SendDirectMessage(ctx context.Context, conn ConnID, recipientID int64, content string) error {
	senderID, ok := r.registry.Resolve(conn)
	if !ok {
		return errors.ErrUnauthorized
	}

	message, err := r.buildMessage(senderID, content)
	if err != nil {
		return err
	}
	message.RecipientID = lo.ToPtr(recipientID)
	message.IsDirect = true

	if err := r.messages.StoreMessage(message); err != nil {
		return fmt.Errorf("store direct message: %w", err)
	}

	view := r.denormalize(message)
	evt := event.DirectMessage{MessageView: view}

	if recipient, online := r.registry.Lookup(recipientID); online {
		r.consume(ctx, recipient.Sink, evt)
	}
	r.deliver(ctx, conn, evt)
	return nil
}

// buildMessage runs validation and moderation shared by both message
// kinds. Store calls happen later, never under the registry locks.
func (r *Router) buildMessage(senderID int64, content string) (domain.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return domain.Message{}, errors.ErrEmptyContent
	}
	if r.maxContentLength > 0 && len(content) > r.maxContentLength {
		return domain.Message{}, errors.ErrContentTooLong
	}
	if r.moderator != nil {
		content = r.moderator.Censor(content)
	}

	return domain.Message{
		ID:        uuid.New(),
		Content:   content,
		SenderID:  senderID,
		Lang:      moderation.DetectLanguage(content),
		CreatedAt: time.Now().UTC(),
	}, nil
}

// denormalize resolves sender and recipient display data. A lookup
// failure degrades to an id-only view; the message is already durable
// and must still be delivered.
func (r *Router) denormalize(message domain.Message) domain.MessageView {
	view := domain.MessageView{
		ID:        message.ID,
		Content:   message.Content,
		Sender:    r.userView(message.SenderID),
		ChannelID: message.ChannelID,
		IsDirect:  message.IsDirect,
		Edited:    message.Edited,
		EditedAt:  message.EditedAt,
		CreatedAt: message.CreatedAt,
	}
	if message.RecipientID != nil {
		view.Recipient = lo.ToPtr(r.userView(*message.RecipientID))
	}
	return view
}

func (r *Router) userView(userID int64) domain.UserView {
	user, err := r.users.GetUser(userID)
	if err != nil {
		r.log.Warn("Could not resolve user for message payload", "user_id", userID, "error", err)
		return domain.UserView{ID: userID}
	}
	return user.View()
}

// deliver pushes the event to one connection's sink, fire-and-forget: a
// stale handle is skipped and never blocks the remaining recipients.
func (r *Router) deliver(ctx context.Context, conn ConnID, e event.DomainEvent) {
	sink, ok := r.registry.SinkFor(conn)
	if !ok {
		return
	}
	r.consume(ctx, sink, e)
}

func (r *Router) consume(ctx context.Context, sink contract.EventSink, e event.DomainEvent) {
	if err := sink.Consume(ctx, e); err != nil {
		r.log.Debug("Best-effort delivery skipped", "event", e.Name(), "error", err)
	}
}
