package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roamly/internal/domain/entity"
	"roamly/internal/infrastructure/ratelimit"
	"roamly/pkg/errors"
)

type fakeConversationRepo struct {
	mu            sync.Mutex
	conversations map[string]*entity.Conversation
	messages      map[string][]*entity.Message
	nextMessageID int
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{
		conversations: make(map[string]*entity.Conversation),
		messages:      make(map[string][]*entity.Message),
	}
}

func pairKey(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return pair[0] + "_" + pair[1]
}

func (r *fakeConversationRepo) GetOrCreateDirect(ctx context.Context, userID, recipientID, vehicleID string) (*entity.Conversation, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := pairKey(userID, recipientID)
	if existing, ok := r.conversations[id]; ok {
		return existing, false, nil
	}

	now := time.Now()
	conversation := &entity.Conversation{
		ID:           id,
		Participants: []string{userID, recipientID},
		Type:         "direct",
		VehicleID:    vehicleID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.conversations[id] = conversation
	return conversation, true, nil
}

func (r *fakeConversationRepo) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conversation, ok := r.conversations[id]
	if !ok {
		return nil, errors.NotFound("Conversation", nil)
	}
	return conversation, nil
}

func (r *fakeConversationRepo) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*entity.Conversation, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []*entity.Conversation
	for _, conversation := range r.conversations {
		if conversation.HasParticipant(userID) {
			result = append(result, conversation)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	return result, int64(len(result)), nil
}

func (r *fakeConversationRepo) CreateMessage(ctx context.Context, message *entity.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conversation, ok := r.conversations[message.ConversationID]
	if !ok {
		return errors.NotFound("Conversation", nil)
	}

	r.nextMessageID++
	if message.ID == "" {
		message.ID = fmt.Sprintf("msg-%d", r.nextMessageID)
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}

	r.messages[message.ConversationID] = append(r.messages[message.ConversationID], message)
	conversation.LastMessage = message
	conversation.UpdatedAt = message.CreatedAt
	return nil
}

func (r *fakeConversationRepo) ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]*entity.Message, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	messages := r.messages[conversationID]
	return append([]*entity.Message(nil), messages...), int64(len(messages)), nil
}

func (r *fakeConversationRepo) MarkMessagesRead(ctx context.Context, conversationID, readerID string) (int, error) {
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

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*entity.User
}

func newFakeUserRepo(users ...*entity.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[string]*entity.User)}
	for _, user := range users {
		repo.users[user.ID] = user
	}
	return repo
}

func (r *fakeUserRepo) Create(ctx context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, errors.NotFound("User", nil)
	}
	return user, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, errors.NotFound("User", nil)
}

func (r *fakeUserRepo) Update(ctx context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) UpdatePresence(ctx context.Context, userID string, online bool, lastSeen time.Time) error {
	return nil
}

type fakeVehicleRepo struct {
	vehicles map[string]*entity.Vehicle
}

func (r *fakeVehicleRepo) Create(ctx context.Context, vehicle *entity.Vehicle) error { return nil }

func (r *fakeVehicleRepo) GetByID(ctx context.Context, id string) (*entity.Vehicle, error) {
	vehicle, ok := r.vehicles[id]
	if !ok {
		return nil, errors.NotFound("Vehicle", nil)
	}
	return vehicle, nil
}

func (r *fakeVehicleRepo) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*entity.Vehicle, int64, error) {
	return nil, 0, nil
}

type publishedEvent struct {
	Topic   string
	Event   string
	Payload interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(topic, event string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Topic: topic, Event: event, Payload: payload})
}

func (p *recordingPublisher) PublishToUser(userID, event string, payload interface{}) {
	p.Publish(userID, event, payload)
}

func (p *recordingPublisher) byEvent(event string) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var matched []publishedEvent
	for _, e := range p.events {
		if e.Event == event {
			matched = append(matched, e)
		}
	}
	return matched
}

func newTestMessaging(users ...*entity.User) (*MessagingUseCase, *fakeConversationRepo, *recordingPublisher) {
	conversationRepo := newFakeConversationRepo()
	publisher := &recordingPublisher{}
	uc := NewMessagingUseCase(
		conversationRepo,
		newFakeUserRepo(users...),
		&fakeVehicleRepo{vehicles: map[string]*entity.Vehicle{
			"veh-1": {ID: "veh-1", OwnerID: "bob", Title: "Campervan"},
		}},
		publisher,
		ratelimit.NewRateLimiter(),
	)
	return uc, conversationRepo, publisher
}

func testUsers() []*entity.User {
	return []*entity.User{
		{ID: "alice", Username: "alice", Email: "alice@roamly.test"},
		{ID: "bob", Username: "bob", Email: "bob@roamly.test"},
		{ID: "carol", Username: "carol", Email: "carol@roamly.test"},
	}
}

func TestSendMessageFirstContact(t *testing.T) {
	uc, _, publisher := newTestMessaging(testUsers()...)

	message, err := uc.SendMessage(context.Background(), "alice", SendMessageInput{
		RecipientID: "bob",
		Content:     "Hello",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, message.ConversationID)
	assert.Equal(t, "alice", message.SenderID)
	assert.Equal(t, "Hello", message.Content)
	assert.False(t, message.Read)
	require.NotNil(t, message.Sender)
	assert.Equal(t, "alice", message.Sender.ID)

	topicEvents := publisher.byEvent(EventNewMessage)
	require.Len(t, topicEvents, 1)
	assert.Equal(t, ConversationTopic(message.ConversationID), topicEvents[0].Topic)

	notifications := publisher.byEvent(EventMessageNotification)
	require.Len(t, notifications, 1)
	assert.Equal(t, "bob", notifications[0].Topic)

	notification, ok := notifications[0].Payload.(*MessageNotification)
	require.True(t, ok)
	assert.Equal(t, message.ID, notification.MessageID)
	assert.Equal(t, "alice", notification.SenderID)
	assert.Equal(t, "Hello", notification.Preview)
}

func TestConcurrentFirstContactProducesOneConversation(t *testing.T) {
	uc, conversationRepo, _ := newTestMessaging(testUsers()...)

	var wg sync.WaitGroup
	results := make([]*MessageResponse, 2)
	errs := make([]error, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		results[0], errs[0] = uc.SendMessage(context.Background(), "alice", SendMessageInput{
			RecipientID: "bob", Content: "hi from alice",
		})
	}()
	go func() {
		defer wg.Done()
		results[1], errs[1] = uc.SendMessage(context.Background(), "bob", SendMessageInput{
			RecipientID: "alice", Content: "hi from bob",
		})
	}()
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, results[0].ConversationID, results[1].ConversationID)

	require.Len(t, conversationRepo.conversations, 1)
	messages := conversationRepo.messages[results[0].ConversationID]
	assert.Len(t, messages, 2)
}

func TestSendMessageRequiresExactlyOneTarget(t *testing.T) {
	uc, _, _ := newTestMessaging(testUsers()...)

	_, err := uc.SendMessage(context.Background(), "alice", SendMessageInput{Content: "x"})
	assert.True(t, errors.Is(err, "BAD_REQUEST"))

	_, err = uc.SendMessage(context.Background(), "alice", SendMessageInput{
		ConversationID: "c1", RecipientID: "bob", Content: "x",
	})
	assert.True(t, errors.Is(err, "BAD_REQUEST"))
}

func TestSendMessageRejectsSelfConversation(t *testing.T) {
	uc, _, _ := newTestMessaging(testUsers()...)

	_, err := uc.SendMessage(context.Background(), "alice", SendMessageInput{
		RecipientID: "alice", Content: "echo",
	})
	assert.True(t, errors.Is(err, "BAD_REQUEST"))
}

func TestSendMessageUnknownRecipient(t *testing.T) {
	uc, _, _ := newTestMessaging(testUsers()...)

	_, err := uc.SendMessage(context.Background(), "alice", SendMessageInput{
		RecipientID: "nobody", Content: "hello?",
	})
	assert.True(t, errors.Is(err, "NOT_FOUND"))
}

func TestSendMessageForbiddenForNonParticipant(t *testing.T) {
	uc, _, _ := newTestMessaging(testUsers()...)

	first, err := uc.SendMessage(context.Background(), "alice", SendMessageInput{
		RecipientID: "bob", Content: "private",
	})
	require.NoError(t, err)

	_, err = uc.SendMessage(context.Background(), "carol", SendMessageInput{
		ConversationID: first.ConversationID, Content: "let me in",
	})
	assert.True(t, errors.Is(err, "FORBIDDEN"))
}

func TestGetMessagesAuthorizationSplit(t *testing.T) {
	uc, _, publisher := newTestMessaging(testUsers()...)

	sent, err := uc.SendMessage(context.Background(), "bob", SendMessageInput{
		RecipientID: "alice", Content: "are you around?",
	})
	require.NoError(t, err)

	// Participant succeeds and triggers a read-state broadcast naming them.
	messages, total, err := uc.GetMessages(context.Background(), sent.ConversationID, "alice", 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, messages, 1)
	assert.True(t, messages[0].Read)

	reads := publisher.byEvent(EventMessagesRead)
	require.Len(t, reads, 1)
	change, ok := reads[0].Payload.(*ReadStateChange)
	require.True(t, ok)
	assert.Equal(t, "alice", change.UserID)
	assert.Equal(t, sent.ConversationID, change.ConversationID)

	// Non-participant is rejected.
	_, _, err = uc.GetMessages(context.Background(), sent.ConversationID, "carol", 0, 0)
	assert.True(t, errors.Is(err, "FORBIDDEN"))

	// Unknown conversation is NotFound, not Forbidden.
	_, _, err = uc.GetMessages(context.Background(), "missing", "alice", 0, 0)
	assert.True(t, errors.Is(err, "NOT_FOUND"))
}

func TestGetMessagesReadStateIdempotent(t *testing.T) {
	uc, _, publisher := newTestMessaging(testUsers()...)

	sent, err := uc.SendMessage(context.Background(), "bob", SendMessageInput{
		RecipientID: "alice", Content: "first",
	})
	require.NoError(t, err)

	firstRead, _, err := uc.GetMessages(context.Background(), sent.ConversationID, "alice", 0, 0)
	require.NoError(t, err)
	secondRead, _, err := uc.GetMessages(context.Background(), sent.ConversationID, "alice", 0, 0)
	require.NoError(t, err)

	require.Len(t, secondRead, len(firstRead))
	for i := range firstRead {
		assert.Equal(t, firstRead[i].ID, secondRead[i].ID)
		assert.Equal(t, firstRead[i].Content, secondRead[i].Content)
		assert.True(t, secondRead[i].Read)
	}

	// Only the first call changed read state, so only one broadcast.
	assert.Len(t, publisher.byEvent(EventMessagesRead), 1)
}

func TestMarkReadSkipsOwnMessages(t *testing.T) {
	uc, conversationRepo, publisher := newTestMessaging(testUsers()...)

	sent, err := uc.SendMessage(context.Background(), "alice", SendMessageInput{
		RecipientID: "bob", Content: "one",
	})
	require.NoError(t, err)

	// The sender marking their own conversation read changes nothing.
	require.NoError(t, uc.MarkRead(context.Background(), sent.ConversationID, "alice"))
	assert.Empty(t, publisher.byEvent(EventMessagesRead))
	assert.False(t, conversationRepo.messages[sent.ConversationID][0].Read)

	// The recipient marking it read flips the flag and broadcasts.
	require.NoError(t, uc.MarkRead(context.Background(), sent.ConversationID, "bob"))
	assert.Len(t, publisher.byEvent(EventMessagesRead), 1)
	assert.True(t, conversationRepo.messages[sent.ConversationID][0].Read)
}

func TestCreateConversationIdempotent(t *testing.T) {
	uc, conversationRepo, _ := newTestMessaging(testUsers()...)

	first, err := uc.CreateConversation(context.Background(), "alice", CreateConversationInput{
		RecipientID:    "bob",
		VehicleID:      "veh-1",
		InitialMessage: "Is the campervan still available?",
	})
	require.NoError(t, err)
	require.NotNil(t, first.LastMessage)
	assert.Equal(t, "Is the campervan still available?", first.LastMessage.Content)
	require.NotNil(t, first.Vehicle)
	assert.Equal(t, "veh-1", first.Vehicle.ID)
	assert.Len(t, first.ParticipantProfiles, 2)

	second, err := uc.CreateConversation(context.Background(), "bob", CreateConversationInput{
		RecipientID: "alice",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, conversationRepo.conversations, 1)
}

func TestListConversationsOrderedByActivity(t *testing.T) {
	uc, _, _ := newTestMessaging(testUsers()...)

	older, err := uc.SendMessage(context.Background(), "alice", SendMessageInput{
		RecipientID: "bob", Content: "first thread",
	})
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	newer, err := uc.SendMessage(context.Background(), "alice", SendMessageInput{
		RecipientID: "carol", Content: "second thread",
	})
	require.NoError(t, err)

	conversations, total, err := uc.ListConversations(context.Background(), "alice", 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, conversations, 2)
	assert.Equal(t, newer.ConversationID, conversations[0].ID)
	assert.Equal(t, older.ConversationID, conversations[1].ID)

	// Bob only sees the thread he participates in.
	bobConversations, _, err := uc.ListConversations(context.Background(), "bob", 0, 0)
	require.NoError(t, err)
	require.Len(t, bobConversations, 1)
	assert.Equal(t, older.ConversationID, bobConversations[0].ID)
}

func TestSendMessageRateLimited(t *testing.T) {
	uc, _, _ := newTestMessaging(testUsers()...)

	var err error
	for i := 0; i < 10; i++ {
		_, err = uc.SendMessage(context.Background(), "alice", SendMessageInput{
			RecipientID: "bob", Content: fmt.Sprintf("burst %d", i),
		})
		require.NoError(t, err)
	}

	_, err = uc.SendMessage(context.Background(), "alice", SendMessageInput{
		RecipientID: "bob", Content: "one too many",
	})
	assert.True(t, errors.Is(err, "TOO_MANY_REQUESTS"))
}
