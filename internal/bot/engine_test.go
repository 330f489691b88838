package bot

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"lostfound-bot/internal/mocks"
	"lostfound-bot/internal/models"
	"lostfound-bot/internal/notify"
	"lostfound-bot/internal/push"
	"lostfound-bot/internal/repositories"
	"lostfound-bot/internal/vault"
)

type engineMocks struct {
	sessions      *mocks.SessionRepositoryMock
	users         *mocks.UserRepositoryMock
	listings      *mocks.ListingRepositoryMock
	chats         *mocks.ChatRepositoryMock
	notifications *mocks.NotificationRepositoryMock
	volunteers    *mocks.VolunteerRepositoryMock
	sender        *mocks.SenderMock
	publisher     *mocks.PublisherMock
}

func newTestEngine(t *testing.T) (*Engine, *engineMocks) {
	t.Helper()
	m := &engineMocks{
		sessions:      &mocks.SessionRepositoryMock{},
		users:         &mocks.UserRepositoryMock{},
		listings:      &mocks.ListingRepositoryMock{},
		chats:         &mocks.ChatRepositoryMock{},
		notifications: &mocks.NotificationRepositoryMock{},
		volunteers:    &mocks.VolunteerRepositoryMock{},
		sender:        &mocks.SenderMock{},
		publisher:     &mocks.PublisherMock{},
	}
	engine := NewEngine(Dependencies{
		Sessions:      m.sessions,
		Users:         m.users,
		Listings:      m.listings,
		Chats:         m.chats,
		Notifications: m.notifications,
		Volunteers:    m.volunteers,
		Vault:         vault.New("test-vault-key"),
		Notifier:      notify.New(m.notifications, m.users, m.sender, m.publisher),
		Sender:        m.sender,
	})
	return engine, m
}

func testUser(id, platformID string) models.User {
	return models.User{ID: id, PlatformID: platformID}
}

func TestKeywordStartsLostFlow(t *testing.T) {
	engine, m := newTestEngine(t)
	ctx := context.Background()

	m.users.On("EnsureUser", mock.Anything, "42", "").Return(testUser("u1", "42"), nil)
	m.sessions.On("Get", mock.Anything, "u1").Return(models.Session{}, repositories.ErrSessionNotFound)

	var saved models.Session
	m.sessions.On("Save", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		saved = args.Get(1).(models.Session)
	}).Return(nil)

	var keyboard *push.Keyboard
	m.sender.On("SendMessage", mock.Anything, "42", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		if kb, ok := args.Get(3).(*push.Keyboard); ok {
			keyboard = kb
		}
	}).Return(nil)

	require.NoError(t, engine.HandleMessage(ctx, "42", Message{Text: "потерял кошелёк"}))

	assert.Equal(t, stepLostCategory, saved.Step)
	restored := unmarshalPayload(saved.Payload)
	require.NotNil(t, restored)
	assert.Equal(t, flowLost, restored.Flow)
	require.NotNil(t, keyboard)
	assert.NotEmpty(t, keyboard.Rows)
}

func TestCancelKeywordClearsState(t *testing.T) {
	engine, m := newTestEngine(t)
	ctx := context.Background()

	m.users.On("EnsureUser", mock.Anything, "42", "").Return(testUser("u1", "42"), nil)
	m.sessions.On("Get", mock.Anything, "u1").Return(models.Session{
		UserID:  "u1",
		Step:    stepLostPhoto,
		Payload: marshalPayload(newPayload(flowLost)),
	}, nil)
	m.sessions.On("Delete", mock.Anything, "u1").Return(nil)
	m.sender.On("SendMessage", mock.Anything, "42", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, engine.HandleMessage(ctx, "42", Message{Text: "отмена"}))

	m.sessions.AssertCalled(t, "Delete", mock.Anything, "u1")
}

func TestCategoryCallbackAdvancesToAttributes(t *testing.T) {
	engine, m := newTestEngine(t)
	ctx := context.Background()

	m.users.On("EnsureUser", mock.Anything, "42", "").Return(testUser("u1", "42"), nil)
	m.sessions.On("Get", mock.Anything, "u1").Return(models.Session{
		UserID:  "u1",
		Step:    stepLostCategory,
		Payload: marshalPayload(newPayload(flowLost)),
	}, nil)

	var saved models.Session
	m.sessions.On("Save", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		saved = args.Get(1).(models.Session)
	}).Return(nil)

	m.sender.On("AnswerCallback", mock.Anything, "cb1", "Животные").Return(nil)

	var question string
	m.sender.On("SendMessage", mock.Anything, "42", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		question = args.Get(2).(string)
	}).Return(nil)

	require.NoError(t, engine.HandleCallback(ctx, "42", "cb1", "flow:lost:category:pet"))

	assert.Equal(t, stepLostAttributes, saved.Step)
	restored := unmarshalPayload(saved.Payload)
	require.NotNil(t, restored)
	assert.Equal(t, "pet", restored.Listing.Category)
	assert.Equal(t, "species", restored.Meta.CurrentAttributeKey)
	assert.True(t, strings.Contains(question, "Шаг 2/6"))
}

func TestIdleCallbackIsRejected(t *testing.T) {
	engine, m := newTestEngine(t)
	ctx := context.Background()

	m.users.On("EnsureUser", mock.Anything, "42", "").Return(testUser("u1", "42"), nil)
	m.sessions.On("Get", mock.Anything, "u1").Return(models.Session{}, repositories.ErrSessionNotFound)
	m.sender.On("AnswerCallback", mock.Anything, "cb1", mock.Anything).Return(nil)

	require.NoError(t, engine.HandleCallback(ctx, "42", "cb1", "flow:lost:confirm:publish"))

	m.sender.AssertCalled(t, "AnswerCallback", mock.Anything, "cb1", "Сессия завершена, начните из меню.")
	m.sessions.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestOwnerReviewConfirm(t *testing.T) {
	engine, m := newTestEngine(t)
	ctx := context.Background()

	m.users.On("EnsureUser", mock.Anything, "7", "").Return(testUser("u-h", "7"), nil)
	m.sessions.On("Get", mock.Anything, "u-h").Return(models.Session{}, repositories.ErrSessionNotFound)
	m.chats.On("GetChat", mock.Anything, "c1").Return(models.Chat{
		ID:         "c1",
		HolderID:   "u-h",
		ClaimantID: "u-c",
		Status:     models.ChatPending,
	}, nil)
	m.chats.On("UpdateStatus", mock.Anything, "c1", models.ChatActive).Return(nil)
	m.publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	m.notifications.On("FindByKey", mock.Anything, mock.Anything).
		Return(models.Notification{}, repositories.ErrNotificationNotFound)
	m.notifications.On("Upsert", mock.Anything, mock.Anything, mock.Anything).Return("n1", nil)
	m.users.On("GetByID", mock.Anything, "u-h").Return(testUser("u-h", "7"), nil)
	m.users.On("GetByID", mock.Anything, "u-c").Return(testUser("u-c", "8"), nil)
	m.sender.On("SendMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	m.sessions.On("Delete", mock.Anything, "u-h").Return(nil)
	m.sender.On("AnswerCallback", mock.Anything, "cb9", "Подтверждено").Return(nil)

	require.NoError(t, engine.HandleCallback(ctx, "7", "cb9", "flow:owner:review:c1|confirm"))

	m.chats.AssertCalled(t, "UpdateStatus", mock.Anything, "c1", models.ChatActive)
	m.notifications.AssertNumberOfCalls(t, "Upsert", 2)
	m.sessions.AssertCalled(t, "Delete", mock.Anything, "u-h")
}

func TestOwnerReviewRequiresHolder(t *testing.T) {
	engine, m := newTestEngine(t)
	ctx := context.Background()

	m.users.On("EnsureUser", mock.Anything, "8", "").Return(testUser("u-c", "8"), nil)
	m.sessions.On("Get", mock.Anything, "u-c").Return(models.Session{}, repositories.ErrSessionNotFound)
	m.chats.On("GetChat", mock.Anything, "c1").Return(models.Chat{
		ID:         "c1",
		HolderID:   "u-h",
		ClaimantID: "u-c",
		Status:     models.ChatPending,
	}, nil)
	m.sender.On("AnswerCallback", mock.Anything, "cb2", mock.Anything).Return(nil)

	require.NoError(t, engine.HandleCallback(ctx, "8", "cb2", "flow:owner:review:c1|confirm"))

	m.chats.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	m.sender.AssertCalled(t, "AnswerCallback", mock.Anything, "cb2", "Решение принимает нашедший.")
}

func TestMatchActionRejectsStranger(t *testing.T) {
	engine, m := newTestEngine(t)
	ctx := context.Background()

	m.users.On("EnsureUser", mock.Anything, "99", "").Return(testUser("u3", "99"), nil)
	m.sessions.On("Get", mock.Anything, "u3").Return(models.Session{}, repositories.ErrSessionNotFound)
	m.listings.On("GetByID", mock.Anything, "F1").Return(models.Listing{
		ID: "F1", AuthorID: "u2", Type: models.ListingFound, Status: models.ListingActive,
	}, nil)
	m.listings.On("GetByID", mock.Anything, "L1").Return(models.Listing{
		ID: "L1", AuthorID: "u1", Type: models.ListingLost, Status: models.ListingActive,
	}, nil)
	m.sender.On("AnswerCallback", mock.Anything, "cb7", mock.Anything).Return(nil)

	require.NoError(t, engine.HandleCallback(ctx, "99", "cb7", "flow:lost:match:F1|L1"))

	m.sender.AssertCalled(t, "AnswerCallback", mock.Anything, "cb7", "Это объявление принадлежит другому пользователю.")
	m.chats.AssertNotCalled(t, "GetOrCreateOwnerCheck", mock.Anything, mock.Anything)
	m.notifications.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestMatchActionRejectsSelfPair(t *testing.T) {
	engine, m := newTestEngine(t)
	ctx := context.Background()

	m.users.On("EnsureUser", mock.Anything, "42", "").Return(testUser("u1", "42"), nil)
	m.sessions.On("Get", mock.Anything, "u1").Return(models.Session{}, repositories.ErrSessionNotFound)
	m.listings.On("GetByID", mock.Anything, "F1").Return(models.Listing{
		ID: "F1", AuthorID: "u1", Type: models.ListingFound, Status: models.ListingActive,
	}, nil)
	m.listings.On("GetByID", mock.Anything, "L1").Return(models.Listing{
		ID: "L1", AuthorID: "u1", Type: models.ListingLost, Status: models.ListingActive,
	}, nil)
	m.sender.On("AnswerCallback", mock.Anything, "cb8", mock.Anything).Return(nil)

	require.NoError(t, engine.HandleCallback(ctx, "42", "cb8", "flow:lost:match:F1|L1"))

	m.sender.AssertCalled(t, "AnswerCallback", mock.Anything, "cb8", "Эта пара объявлений не подходит для проверки.")
	m.chats.AssertNotCalled(t, "GetOrCreateOwnerCheck", mock.Anything, mock.Anything)
}

func TestVolunteerAcceptIsIdempotent(t *testing.T) {
	engine, m := newTestEngine(t)
	ctx := context.Background()

	phone := "+79001234567"
	volunteer := models.User{ID: "v1", PlatformID: "42", Phone: &phone}
	listing := models.Listing{
		ID:       "L1",
		AuthorID: "o1",
		Type:     models.ListingLost,
		Category: "pet",
		Status:   models.ListingActive,
		Title:    "Потеряно: кошка",
	}

	m.listings.On("GetByID", mock.Anything, "L1").Return(listing, nil)
	m.volunteers.On("SaveAssignment", mock.Anything, "L1", "v1").
		Return(models.VolunteerAssignment{ID: "a1"}, false, nil)
	m.sender.On("AnswerCallback", mock.Anything, "cb3", "Вы уже помогаете по этой заявке.").Return(nil)

	rt := &Runtime{User: volunteer, Payload: newPayload(flowVolunteer)}
	c := &Ctx{engine: engine, platformID: "42", callbackID: "cb3"}

	require.NoError(t, engine.volunteerAccept(ctx, c, rt, "L1"))

	m.notifications.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	m.sender.AssertCalled(t, "AnswerCallback", mock.Anything, "cb3", "Вы уже помогаете по этой заявке.")
}

func TestVolunteerAcceptRequiresPhone(t *testing.T) {
	engine, m := newTestEngine(t)
	ctx := context.Background()

	listing := models.Listing{
		ID:       "L1",
		AuthorID: "o1",
		Type:     models.ListingLost,
		Category: "pet",
		Status:   models.ListingActive,
	}
	m.listings.On("GetByID", mock.Anything, "L1").Return(listing, nil)

	var saved models.Session
	m.sessions.On("Save", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		saved = args.Get(1).(models.Session)
	}).Return(nil)
	m.sender.On("AnswerCallback", mock.Anything, "cb4", "").Return(nil)

	var keyboard *push.Keyboard
	m.sender.On("SendMessage", mock.Anything, "42", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		if kb, ok := args.Get(3).(*push.Keyboard); ok {
			keyboard = kb
		}
	}).Return(nil)

	rt := &Runtime{User: testUser("v1", "42"), Step: stepVolunteerList, Payload: newPayload(flowVolunteer)}
	c := &Ctx{engine: engine, platformID: "42", callbackID: "cb4"}

	require.NoError(t, engine.volunteerAccept(ctx, c, rt, "L1"))

	restored := unmarshalPayload(saved.Payload)
	require.NotNil(t, restored)
	assert.Equal(t, "L1", restored.Volunteer.SelectedListingID)
	require.NotNil(t, keyboard)
	assert.True(t, keyboard.Rows[0][0].RequestContact)
	m.volunteers.AssertNotCalled(t, "SaveAssignment", mock.Anything, mock.Anything, mock.Anything)
}
