package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roamly/internal/adapter/api"
	"roamly/internal/domain/entity"
	"roamly/internal/infrastructure/ratelimit"
	"roamly/internal/usecase"
	apperrors "roamly/pkg/errors"
	"roamly/pkg/response"
)

type stubConversationRepo struct {
	mu            sync.Mutex
	conversations map[string]*entity.Conversation
	messages      map[string][]*entity.Message
	sequence      int
}

func newStubConversationRepo() *stubConversationRepo {
	return &stubConversationRepo{
		conversations: make(map[string]*entity.Conversation),
		messages:      make(map[string][]*entity.Message),
	}
}

func (r *stubConversationRepo) GetOrCreateDirect(ctx context.Context, userID, recipientID, vehicleID string) (*entity.Conversation, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pair := []string{userID, recipientID}
	sort.Strings(pair)
	id := pair[0] + "_" + pair[1]

	if existing, ok := r.conversations[id]; ok {
		return existing, false, nil
	}
	conversation := &entity.Conversation{
		ID:           id,
		Participants: []string{userID, recipientID},
		Type:         "direct",
		VehicleID:    vehicleID,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	r.conversations[id] = conversation
	return conversation, true, nil
}

func (r *stubConversationRepo) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conversation, ok := r.conversations[id]
	if !ok {
		return nil, apperrors.NotFound("Conversation", nil)
	}
	return conversation, nil
}

func (r *stubConversationRepo) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*entity.Conversation, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*entity.Conversation
	for _, conversation := range r.conversations {
		if conversation.HasParticipant(userID) {
			result = append(result, conversation)
		}
	}
	return result, int64(len(result)), nil
}

func (r *stubConversationRepo) CreateMessage(ctx context.Context, message *entity.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conversation, ok := r.conversations[message.ConversationID]
	if !ok {
		return apperrors.NotFound("Conversation", nil)
	}
	r.sequence++
	message.ID = fmt.Sprintf("msg-%d", r.sequence)
	r.messages[message.ConversationID] = append(r.messages[message.ConversationID], message)
	conversation.LastMessage = message
	conversation.UpdatedAt = message.CreatedAt
	return nil
}

func (r *stubConversationRepo) ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]*entity.Message, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	messages := r.messages[conversationID]
	return append([]*entity.Message(nil), messages...), int64(len(messages)), nil
}

func (r *stubConversationRepo) MarkMessagesRead(ctx context.Context, conversationID, readerID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	changed := 0
	for _, message := range r.messages[conversationID] {
		if !message.Read && message.SenderID != readerID {
			message.Read = true
			changed++
		}
	}
	return changed, nil
}

type stubUserRepo struct {
	users map[string]*entity.User
}

func (r *stubUserRepo) Create(ctx context.Context, user *entity.User) error { return nil }

func (r *stubUserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, apperrors.NotFound("User", nil)
	}
	return user, nil
}

func (r *stubUserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return nil, apperrors.NotFound("User", nil)
}

func (r *stubUserRepo) Update(ctx context.Context, user *entity.User) error { return nil }

func (r *stubUserRepo) UpdatePresence(ctx context.Context, userID string, online bool, lastSeen time.Time) error {
	return nil
}

type stubVehicleRepo struct{}

func (r *stubVehicleRepo) Create(ctx context.Context, vehicle *entity.Vehicle) error { return nil }

func (r *stubVehicleRepo) GetByID(ctx context.Context, id string) (*entity.Vehicle, error) {
	return nil, apperrors.NotFound("Vehicle", nil)
}

func (r *stubVehicleRepo) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*entity.Vehicle, int64, error) {
	return nil, 0, nil
}

type noopPublisher struct{}

func (noopPublisher) Publish(topic, event string, payload interface{}) {}

func (noopPublisher) PublishToUser(userID, event string, payload interface{}) {}

func newConversationHandlerFixture() (*ConversationHandler, *stubConversationRepo) {
	repo := newStubConversationRepo()
	messaging := usecase.NewMessagingUseCase(
		repo,
		&stubUserRepo{users: map[string]*entity.User{
			"alice": {ID: "alice", Username: "alice"},
			"bob":   {ID: "bob", Username: "bob"},
		}},
		&stubVehicleRepo{},
		noopPublisher{},
		ratelimit.NewRateLimiter(),
	)
	return NewConversationHandler(messaging), repo
}

func doRequest(t *testing.T, method, target, body, uid string, params map[string]string, fn echo.HandlerFunc) (*httptest.ResponseRecorder, response.Response) {
	t.Helper()

	e := echo.New()
	e.Validator = api.NewValidator()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("uid", uid)
	for name, value := range params {
		c.SetParamNames(name)
		c.SetParamValues(value)
	}

	require.NoError(t, fn(c))

	var envelope response.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return rec, envelope
}

func TestSendMessageEndpointFirstContact(t *testing.T) {
	h, repo := newConversationHandlerFixture()

	rec, envelope := doRequest(t, http.MethodPost, "/v1/messages",
		`{"recipient_id":"bob","content":"is the van free next week?"}`,
		"alice", nil, h.SendMessage)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, envelope.Success)
	require.Len(t, repo.conversations, 1)
	require.Len(t, repo.messages["alice_bob"], 1)
	assert.Equal(t, "is the van free next week?", repo.messages["alice_bob"][0].Content)
}

func TestSendMessageEndpointRejectsBothTargets(t *testing.T) {
	h, _ := newConversationHandlerFixture()

	rec, envelope := doRequest(t, http.MethodPost, "/v1/messages",
		`{"conversation_id":"c1","recipient_id":"bob","content":"x"}`,
		"alice", nil, h.SendMessage)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "VALIDATION_ERROR", envelope.Error.Code)
}

func TestSendMessageEndpointRequiresContent(t *testing.T) {
	h, _ := newConversationHandlerFixture()

	rec, envelope := doRequest(t, http.MethodPost, "/v1/messages",
		`{"recipient_id":"bob"}`,
		"alice", nil, h.SendMessage)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "VALIDATION_ERROR", envelope.Error.Code)
}

func TestCreateConversationEndpoint(t *testing.T) {
	h, repo := newConversationHandlerFixture()

	rec, envelope := doRequest(t, http.MethodPost, "/v1/conversations",
		`{"recipient_id":"bob","initial_message":"hello"}`,
		"alice", nil, h.CreateConversation)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, envelope.Success)
	require.Len(t, repo.conversations, 1)
	require.NotNil(t, repo.conversations["alice_bob"].LastMessage)
}

func TestCreateConversationEndpointUnknownRecipient(t *testing.T) {
	h, _ := newConversationHandlerFixture()

	rec, envelope := doRequest(t, http.MethodPost, "/v1/conversations",
		`{"recipient_id":"nobody"}`,
		"alice", nil, h.CreateConversation)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "NOT_FOUND", envelope.Error.Code)
}

func TestGetMessagesEndpointForbiddenForOutsider(t *testing.T) {
	h, repo := newConversationHandlerFixture()
	_, _, err := repo.GetOrCreateDirect(context.Background(), "alice", "bob", "")
	require.NoError(t, err)

	rec, envelope := doRequest(t, http.MethodGet, "/v1/conversations/alice_bob/messages", "",
		"carol", map[string]string{"id": "alice_bob"}, h.GetMessages)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "FORBIDDEN", envelope.Error.Code)
}

func TestMarkReadEndpoint(t *testing.T) {
	h, repo := newConversationHandlerFixture()
	_, _, err := repo.GetOrCreateDirect(context.Background(), "alice", "bob", "")
	require.NoError(t, err)
	require.NoError(t, repo.CreateMessage(context.Background(), &entity.Message{
		ConversationID: "alice_bob",
		SenderID:       "alice",
		Content:        "unread",
		CreatedAt:      time.Now(),
	}))

	rec, envelope := doRequest(t, http.MethodPatch, "/v1/conversations/alice_bob/read", "",
		"bob", map[string]string{"id": "alice_bob"}, h.MarkRead)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, envelope.Success)
	assert.True(t, repo.messages["alice_bob"][0].Read)
}

func TestListConversationsEndpoint(t *testing.T) {
	h, repo := newConversationHandlerFixture()
	_, _, err := repo.GetOrCreateDirect(context.Background(), "alice", "bob", "")
	require.NoError(t, err)

	rec, envelope := doRequest(t, http.MethodGet, "/v1/conversations?limit=10", "",
		"alice", nil, h.ListConversations)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, envelope.Success)

	raw, err := json.Marshal(envelope.Data)
	require.NoError(t, err)
	var page response.PaginatedResponse
	require.NoError(t, json.Unmarshal(raw, &page))
	assert.EqualValues(t, 1, page.Total)
}
