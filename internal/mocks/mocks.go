package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"lostfound-bot/internal/events"
	"lostfound-bot/internal/models"
	"lostfound-bot/internal/push"
	"lostfound-bot/internal/repositories"
)

var (
	_ repositories.SessionRepository      = (*SessionRepositoryMock)(nil)
	_ repositories.UserRepository         = (*UserRepositoryMock)(nil)
	_ repositories.ListingRepository      = (*ListingRepositoryMock)(nil)
	_ repositories.ChatRepository         = (*ChatRepositoryMock)(nil)
	_ repositories.NotificationRepository = (*NotificationRepositoryMock)(nil)
	_ repositories.VolunteerRepository    = (*VolunteerRepositoryMock)(nil)
	_ push.Sender                         = (*SenderMock)(nil)
	_ events.Publisher                    = (*PublisherMock)(nil)
)

type SessionRepositoryMock struct {
	mock.Mock
}

func (m *SessionRepositoryMock) Get(ctx context.Context, userID string) (models.Session, error) {
	args := m.Called(ctx, userID)
	var session models.Session
	if val := args.Get(0); val != nil {
		session = val.(models.Session)
	}
	return session, args.Error(1)
}

func (m *SessionRepositoryMock) Save(ctx context.Context, session models.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *SessionRepositoryMock) Delete(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) EnsureUser(ctx context.Context, platformID string, phone string) (models.User, error) {
	args := m.Called(ctx, platformID, phone)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) UpdatePhone(ctx context.Context, userID string, phone string) error {
	args := m.Called(ctx, userID, phone)
	return args.Error(0)
}

func (m *UserRepositoryMock) GetByID(ctx context.Context, userID string) (models.User, error) {
	args := m.Called(ctx, userID)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) GetByPlatformID(ctx context.Context, platformID string) (models.User, error) {
	args := m.Called(ctx, platformID)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

type ListingRepositoryMock struct {
	mock.Mock
}

func (m *ListingRepositoryMock) Create(ctx context.Context, in repositories.NewListing) (models.Listing, error) {
	args := m.Called(ctx, in)
	var listing models.Listing
	if val := args.Get(0); val != nil {
		listing = val.(models.Listing)
	}
	return listing, args.Error(1)
}

func (m *ListingRepositoryMock) GetByID(ctx context.Context, listingID string) (models.Listing, error) {
	args := m.Called(ctx, listingID)
	var listing models.Listing
	if val := args.Get(0); val != nil {
		listing = val.(models.Listing)
	}
	return listing, args.Error(1)
}

func (m *ListingRepositoryMock) Photos(ctx context.Context, listingID string) ([]models.Photo, error) {
	args := m.Called(ctx, listingID)
	var photos []models.Photo
	if val := args.Get(0); val != nil {
		photos = val.([]models.Photo)
	}
	return photos, args.Error(1)
}

func (m *ListingRepositoryMock) Secrets(ctx context.Context, listingID string) ([]models.Secret, error) {
	args := m.Called(ctx, listingID)
	var secrets []models.Secret
	if val := args.Get(0); val != nil {
		secrets = val.([]models.Secret)
	}
	return secrets, args.Error(1)
}

func (m *ListingRepositoryMock) ListByAuthor(ctx context.Context, authorID string, limit int) ([]models.Listing, error) {
	args := m.Called(ctx, authorID, limit)
	var listings []models.Listing
	if val := args.Get(0); val != nil {
		listings = val.([]models.Listing)
	}
	return listings, args.Error(1)
}

func (m *ListingRepositoryMock) UpdateFields(ctx context.Context, listingID string, patch repositories.ListingPatch) error {
	args := m.Called(ctx, listingID, patch)
	return args.Error(0)
}

func (m *ListingRepositoryMock) ReplacePhotos(ctx context.Context, listingID string, urls []string) error {
	args := m.Called(ctx, listingID, urls)
	return args.Error(0)
}

func (m *ListingRepositoryMock) SetStatus(ctx context.Context, listingID string, status string) error {
	args := m.Called(ctx, listingID, status)
	return args.Error(0)
}

func (m *ListingRepositoryMock) FindCandidates(ctx context.Context, listing models.Listing, radiusKm float64, limit int) ([]models.Listing, error) {
	args := m.Called(ctx, listing, radiusKm, limit)
	var listings []models.Listing
	if val := args.Get(0); val != nil {
		listings = val.([]models.Listing)
	}
	return listings, args.Error(1)
}

func (m *ListingRepositoryMock) SaveMatch(ctx context.Context, lostID, foundID string, score int) error {
	args := m.Called(ctx, lostID, foundID, score)
	return args.Error(0)
}

func (m *ListingRepositoryMock) VolunteerListings(ctx context.Context, category string, limit int) ([]models.Listing, error) {
	args := m.Called(ctx, category, limit)
	var listings []models.Listing
	if val := args.Get(0); val != nil {
		listings = val.([]models.Listing)
	}
	return listings, args.Error(1)
}

type ChatRepositoryMock struct {
	mock.Mock
}

func (m *ChatRepositoryMock) GetOrCreateOwnerCheck(ctx context.Context, key repositories.OwnerCheckKey) (models.Chat, error) {
	args := m.Called(ctx, key)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) GetChat(ctx context.Context, chatID string) (models.Chat, error) {
	args := m.Called(ctx, chatID)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) Members(ctx context.Context, chatID string) ([]models.ChatMember, error) {
	args := m.Called(ctx, chatID)
	var members []models.ChatMember
	if val := args.Get(0); val != nil {
		members = val.([]models.ChatMember)
	}
	return members, args.Error(1)
}

func (m *ChatRepositoryMock) UpdateStatus(ctx context.Context, chatID string, status string) error {
	args := m.Called(ctx, chatID, status)
	return args.Error(0)
}

func (m *ChatRepositoryMock) AppendMessage(ctx context.Context, chatID string, senderID string, body string, meta []byte) (string, error) {
	args := m.Called(ctx, chatID, senderID, body, meta)
	return args.String(0), args.Error(1)
}

func (m *ChatRepositoryMock) AppendSystemMessage(ctx context.Context, chatID string, body string, meta []byte) (string, error) {
	args := m.Called(ctx, chatID, body, meta)
	return args.String(0), args.Error(1)
}

func (m *ChatRepositoryMock) Messages(ctx context.Context, chatID string) ([]models.ChatMessage, error) {
	args := m.Called(ctx, chatID)
	var messages []models.ChatMessage
	if val := args.Get(0); val != nil {
		messages = val.([]models.ChatMessage)
	}
	return messages, args.Error(1)
}

func (m *ChatRepositoryMock) ActiveChatsForClaimant(ctx context.Context, claimantID string) ([]models.Chat, error) {
	args := m.Called(ctx, claimantID)
	var chats []models.Chat
	if val := args.Get(0); val != nil {
		chats = val.([]models.Chat)
	}
	return chats, args.Error(1)
}

type NotificationRepositoryMock struct {
	mock.Mock
}

func (m *NotificationRepositoryMock) Create(ctx context.Context, n models.Notification) (string, error) {
	args := m.Called(ctx, n)
	return args.String(0), args.Error(1)
}

func (m *NotificationRepositoryMock) Upsert(ctx context.Context, key repositories.NotificationKey, patch repositories.NotificationPatch) (string, error) {
	args := m.Called(ctx, key, patch)
	return args.String(0), args.Error(1)
}

func (m *NotificationRepositoryMock) Update(ctx context.Context, id string, patch repositories.NotificationPatch) error {
	args := m.Called(ctx, id, patch)
	return args.Error(0)
}

func (m *NotificationRepositoryMock) MarkRead(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *NotificationRepositoryMock) Archive(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *NotificationRepositoryMock) List(ctx context.Context, userID string, limit int, includeArchived bool) ([]models.Notification, error) {
	args := m.Called(ctx, userID, limit, includeArchived)
	var notifications []models.Notification
	if val := args.Get(0); val != nil {
		notifications = val.([]models.Notification)
	}
	return notifications, args.Error(1)
}

func (m *NotificationRepositoryMock) FindByKey(ctx context.Context, key repositories.NotificationKey) (models.Notification, error) {
	args := m.Called(ctx, key)
	var notification models.Notification
	if val := args.Get(0); val != nil {
		notification = val.(models.Notification)
	}
	return notification, args.Error(1)
}

type VolunteerRepositoryMock struct {
	mock.Mock
}

func (m *VolunteerRepositoryMock) FindActiveAssignment(ctx context.Context, listingID, volunteerID string) (models.VolunteerAssignment, error) {
	args := m.Called(ctx, listingID, volunteerID)
	var assignment models.VolunteerAssignment
	if val := args.Get(0); val != nil {
		assignment = val.(models.VolunteerAssignment)
	}
	return assignment, args.Error(1)
}

func (m *VolunteerRepositoryMock) SaveAssignment(ctx context.Context, listingID, volunteerID string) (models.VolunteerAssignment, bool, error) {
	args := m.Called(ctx, listingID, volunteerID)
	var assignment models.VolunteerAssignment
	if val := args.Get(0); val != nil {
		assignment = val.(models.VolunteerAssignment)
	}
	return assignment, args.Bool(1), args.Error(2)
}

func (m *VolunteerRepositoryMock) ListForVolunteer(ctx context.Context, volunteerID string) ([]models.VolunteerAssignment, error) {
	args := m.Called(ctx, volunteerID)
	var assignments []models.VolunteerAssignment
	if val := args.Get(0); val != nil {
		assignments = val.([]models.VolunteerAssignment)
	}
	return assignments, args.Error(1)
}

func (m *VolunteerRepositoryMock) MarkNotified(ctx context.Context, assignmentID string, owner, volunteer bool) error {
	args := m.Called(ctx, assignmentID, owner, volunteer)
	return args.Error(0)
}

type SenderMock struct {
	mock.Mock
}

func (m *SenderMock) SendMessage(ctx context.Context, platformID string, text string, keyboard *push.Keyboard) error {
	args := m.Called(ctx, platformID, text, keyboard)
	return args.Error(0)
}

func (m *SenderMock) AnswerCallback(ctx context.Context, callbackID string, toast string) error {
	args := m.Called(ctx, callbackID, toast)
	return args.Error(0)
}

type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, event events.Envelope) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func (m *PublisherMock) Close() error {
	args := m.Called()
	return args.Error(0)
}
