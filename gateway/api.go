package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"echoforge/contract"
	"echoforge/domain"
	"echoforge/errors"
	"echoforge/repositories"
)

// API is the non-realtime CRUD surface: channels, friends, and message
// history. Every endpoint authenticates through the same token verifier
// as the websocket handshake.
type API struct {
	log      *slog.Logger
	verifier contract.ITokenVerifier
	users    repositories.IUserRepository
	channels repositories.IChannelRepository
	friends  repositories.IFriendRepository
	messages repositories.IMessageRepository
}

func NewAPI(log *slog.Logger, verifier contract.ITokenVerifier,
	users repositories.IUserRepository, channels repositories.IChannelRepository,
	friends repositories.IFriendRepository, messages repositories.IMessageRepository) *API {
	return &API{
		log:      log,
		verifier: verifier,
		users:    users,
		channels: channels,
		friends:  friends,
		messages: messages,
	}
}

func (a *API) register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/users/me", a.withAuth(a.handleMe))
	mux.HandleFunc("POST /api/channels", a.withAuth(a.handleCreateChannel))
	mux.HandleFunc("POST /api/channels/join", a.withAuth(a.handleJoinChannel))
	mux.HandleFunc("GET /api/channels/messages", a.withAuth(a.handleChannelMessages))
	mux.HandleFunc("GET /api/friends", a.withAuth(a.handleFriends))
	mux.HandleFunc("GET /api/friends/requests", a.withAuth(a.handleFriendRequests))
	mux.HandleFunc("POST /api/friends/request", a.withAuth(a.handleSendFriendRequest))
	mux.HandleFunc("POST /api/friends/accept", a.withAuth(a.handleAcceptFriend))
	mux.HandleFunc("GET /api/messages/dm", a.withAuth(a.handleDirectMessages))
}

type authedHandler func(w http.ResponseWriter, r *http.Request, userID int64)

// withAuth resolves the bearer token before the handler runs.
func (a *API) withAuth(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Missing bearer token"})
			return
		}
		userID, err := a.verifier.Verify(token)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid token"})
			return
		}
		next(w, r, userID)
	}
}

func (a *API) handleMe(w http.ResponseWriter, _ *http.Request, userID int64) {
	user, err := a.users.GetUser(userID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": errors.ErrUserNotFound.Error()})
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type createChannelRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ChannelType string `json:"channel_type"`
	IsPublic    *bool  `json:"is_public"`
}

func (a *API) handleCreateChannel(w http.ResponseWriter, r *http.Request, userID int64) {
	var req createChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
		return
	}
	channelType := domain.ChannelType(req.ChannelType)
	if channelType == "" {
		channelType = domain.ChannelText
	}
	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}

	channel, err := a.channels.CreateChannel(req.Name, req.Description, channelType, isPublic, userID)
	if err != nil {
		a.log.Error("Channel creation failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Failed to create channel"})
		return
	}
	writeJSON(w, http.StatusCreated, channel)
}

type joinChannelRequest struct {
	ChannelID int64 `json:"channelId"`
}

func (a *API) handleJoinChannel(w http.ResponseWriter, r *http.Request, userID int64) {
	var req joinChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
		return
	}
	channel, err := a.channels.GetChannel(req.ChannelID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": errors.ErrChannelNotFound.Error()})
		return
	}
	if !channel.IsPublic && channel.CreatorID != userID {
		writeJSON(w, http.StatusForbidden, map[string]string{"message": "Channel is private"})
		return
	}
	if err := a.channels.AddMember(req.ChannelID, userID); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Failed to join channel"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "joined"})
}

func (a *API) handleChannelMessages(w http.ResponseWriter, r *http.Request, userID int64) {
	channelID, err := queryID(r, "channelId")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid channelId"})
		return
	}
	member, err := a.channels.IsChannelMember(userID, channelID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Membership check failed"})
		return
	}
	if !member {
		writeJSON(w, http.StatusForbidden, map[string]string{"message": errors.ErrNotChannelMember.Error()})
		return
	}
	messages, err := a.messages.ChannelMessages(channelID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Failed to load messages"})
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

func (a *API) handleFriends(w http.ResponseWriter, _ *http.Request, userID int64) {
	friends, err := a.friends.Friends(userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Failed to load friends"})
		return
	}
	writeJSON(w, http.StatusOK, friends)
}

func (a *API) handleFriendRequests(w http.ResponseWriter, _ *http.Request, userID int64) {
	requests, err := a.friends.RequestsFor(userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Failed to load friend requests"})
		return
	}
	writeJSON(w, http.StatusOK, requests)
}

type friendRequestRequest struct {
	RecipientID int64 `json:"recipientId"`
}

func (a *API) handleSendFriendRequest(w http.ResponseWriter, r *http.Request, userID int64) {
	var req friendRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RecipientID == userID {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
		return
	}
	if _, err := a.users.GetUser(req.RecipientID); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": errors.ErrUserNotFound.Error()})
		return
	}
	already, err := a.friends.AreFriends(userID, req.RecipientID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Failed to send friend request"})
		return
	}
	if already {
		writeJSON(w, http.StatusConflict, map[string]string{"message": "Already friends"})
		return
	}
	request, err := a.friends.CreateRequest(userID, req.RecipientID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Failed to send friend request"})
		return
	}
	writeJSON(w, http.StatusCreated, request)
}

type acceptFriendRequest struct {
	SenderID int64 `json:"senderId"`
}

func (a *API) handleAcceptFriend(w http.ResponseWriter, r *http.Request, userID int64) {
	var req acceptFriendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
		return
	}
	if err := a.friends.AddFriend(userID, req.SenderID); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Failed to accept friend request"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

func (a *API) handleDirectMessages(w http.ResponseWriter, r *http.Request, userID int64) {
	otherID, err := queryID(r, "userId")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid userId"})
		return
	}
	messages, err := a.messages.DirectMessages(userID, otherID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Failed to load messages"})
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

func queryID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.URL.Query().Get(name), 10, 64)
}
