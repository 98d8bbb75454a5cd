package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"quote_assistant_backend/internal/conversation/domain"
	"quote_assistant_backend/internal/conversation/repository"
	"quote_assistant_backend/internal/conversation/transport"
	"quote_assistant_backend/internal/events"
	"quote_assistant_backend/platform/apperr"
)

const defaultListLimit = 25

// ListConversations pages through active conversations.
func (s *Service) ListConversations(ctx context.Context, req transport.ListConversationsRequest) (transport.ConversationListResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	states, total, err := s.repo.ListActive(ctx, repository.ListParams{Limit: limit, Offset: req.Offset})
	if err != nil {
		return transport.ConversationListResponse{}, err
	}

	items := make([]transport.ConversationResponse, len(states))
	for i, st := range states {
		items[i] = toConversationResponse(st)
	}
	return transport.ConversationListResponse{Items: items, Total: total, Limit: limit, Offset: req.Offset}, nil
}

// GetConversation returns one conversation, active or not.
func (s *Service) GetConversation(ctx context.Context, id uuid.UUID) (transport.ConversationResponse, error) {
	state, err := s.repo.Get(ctx, id)
	if err != nil {
		return transport.ConversationResponse{}, err
	}
	return toConversationResponse(state), nil
}

// ResetConversation deactivates an active conversation so the customer's
// next message starts over.
func (s *Service) ResetConversation(ctx context.Context, id uuid.UUID) (transport.ResetConversationResponse, error) {
	state, err := s.repo.Get(ctx, id)
	if err != nil {
		return transport.ResetConversationResponse{}, err
	}
	if !state.IsActive {
		return transport.ResetConversationResponse{}, apperr.Conflict("conversation is no longer active")
	}

	unlock, err := s.locker.Lock(ctx, state.Identity)
	if err != nil {
		return transport.ResetConversationResponse{}, apperr.Unavailable("conversation is busy", err)
	}
	defer unlock()

	if err := s.repo.Deactivate(ctx, id, repository.ReasonAdminReset); err != nil {
		return transport.ResetConversationResponse{}, err
	}
	s.log.WithContext(ctx).Info("conversation reset by operator", "conversationId", id)
	s.publish(ctx, events.ConversationReset{
		BaseEvent:      events.NewBaseEvent(),
		ConversationID: id,
		Identity:       state.Identity,
		Reason:         repository.ReasonAdminReset,
	})
	return transport.ResetConversationResponse{ID: id, Reason: repository.ReasonAdminReset}, nil
}

// SweepStale deactivates conversations idle since before cutoff.
func (s *Service) SweepStale(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.repo.DeactivateStale(ctx, cutoff)
}

func toConversationResponse(st domain.ConversationState) transport.ConversationResponse {
	return transport.ConversationResponse{
		ID:                st.ID,
		Identity:          st.Identity,
		CurrentStep:       string(st.CurrentStep),
		OrderData:         st.OrderData,
		IsActive:          st.IsActive,
		Version:           st.Version,
		DeactivatedReason: st.DeactivatedReason,
		CreatedAt:         st.CreatedAt,
		UpdatedAt:         st.UpdatedAt,
		LastMessageAt:     st.LastMessageAt,
		CompletedAt:       st.CompletedAt,
	}
}
