package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"lostfound-bot/internal/bot"
	"lostfound-bot/internal/mocks"
	"lostfound-bot/internal/models"
	"lostfound-bot/internal/notify"
	"lostfound-bot/internal/repositories"
	"lostfound-bot/internal/vault"
)

func setupWebhookRouter(secret string) (*gin.Engine, *mocks.SessionRepositoryMock, *mocks.UserRepositoryMock, *mocks.SenderMock) {
	gin.SetMode(gin.TestMode)

	sessions := new(mocks.SessionRepositoryMock)
	users := new(mocks.UserRepositoryMock)
	notifications := new(mocks.NotificationRepositoryMock)
	sender := new(mocks.SenderMock)
	publisher := new(mocks.PublisherMock)

	engine := bot.NewEngine(bot.Dependencies{
		Sessions:      sessions,
		Users:         users,
		Listings:      new(mocks.ListingRepositoryMock),
		Chats:         new(mocks.ChatRepositoryMock),
		Notifications: notifications,
		Volunteers:    new(mocks.VolunteerRepositoryMock),
		Vault:         vault.New("test-key"),
		Notifier:      notify.New(notifications, users, sender, publisher),
		Sender:        sender,
	})

	router := gin.New()
	router.POST("/webhook", NewWebhookHandler(engine, secret).Handle)
	return router, sessions, users, sender
}

func TestWebhookRejectsBadSecret(t *testing.T) {
	router, _, _, _ := setupWebhookRouter("s3cret")

	req := httptest.NewRequest(http.MethodPost, "/webhook?secret=wrong", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestWebhookRejectsMalformedJSON(t *testing.T) {
	router, _, _, _ := setupWebhookRouter("")

	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookAcknowledgesUnknownUpdateType(t *testing.T) {
	router, _, _, _ := setupWebhookRouter("")

	body := `{"update_type":"bot_started"}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhookDispatchesMessage(t *testing.T) {
	router, sessions, users, sender := setupWebhookRouter("s3cret")

	users.On("EnsureUser", mock.Anything, "42", "").Return(models.User{ID: "u1", PlatformID: "42"}, nil)
	sessions.On("Get", mock.Anything, "u1").Return(models.Session{}, repositories.ErrSessionNotFound)
	sender.On("SendMessage", mock.Anything, "42", mock.Anything, mock.Anything).Return(nil)

	body := `{"update_type":"message_created","message":{"sender":{"user_id":"42"},"text":"привет"}}`
	req := httptest.NewRequest(http.MethodPost, "/webhook?secret=s3cret", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	users.AssertCalled(t, "EnsureUser", mock.Anything, "42", "")
	sender.AssertCalled(t, "SendMessage", mock.Anything, "42", mock.Anything, mock.Anything)
}

func TestWebhookReportsMessageFailure(t *testing.T) {
	router, sessions, users, sender := setupWebhookRouter("")

	users.On("EnsureUser", mock.Anything, "42", "").Return(models.User{ID: "u1", PlatformID: "42"}, nil)
	sessions.On("Get", mock.Anything, "u1").Return(models.Session{}, assert.AnError)
	sender.On("SendMessage", mock.Anything, "42", mock.Anything, mock.Anything).Return(nil)

	body := `{"update_type":"message_created","message":{"sender":{"user_id":"42"},"text":"потерял кошелёк"}}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	sender.AssertCalled(t, "SendMessage", mock.Anything, "42",
		"Произошла ошибка. Попробуйте снова или введите /cancel.", mock.Anything)
}

func TestWebhookReportsCallbackFailure(t *testing.T) {
	router, sessions, users, sender := setupWebhookRouter("")

	users.On("EnsureUser", mock.Anything, "42", "").Return(models.User{ID: "u1", PlatformID: "42"}, nil)
	sessions.On("Get", mock.Anything, "u1").Return(models.Session{}, assert.AnError)
	sender.On("AnswerCallback", mock.Anything, "cb1", mock.Anything).Return(nil)

	body := `{"update_type":"message_callback","callback":{"callback_id":"cb1","payload":"flow:lost:category:pet","sender":{"user_id":"42"}}}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	sender.AssertCalled(t, "AnswerCallback", mock.Anything, "cb1", "Что-то пошло не так, попробуйте позже")
}

func TestWebhookMissingSenderRejected(t *testing.T) {
	router, _, _, _ := setupWebhookRouter("")

	body := `{"update_type":"message_created","message":{"text":"x"}}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBuildMessageConvertsAttachments(t *testing.T) {
	in := inboundMessage{
		Text: "вот",
		Attachments: []inboundAttachment{
			{Type: "image", Payload: attachmentPayload{ID: "p1", URL: "http://x/1"}},
			{Type: "location", Payload: attachmentPayload{Latitude: 55.75, Longitude: 37.61}},
			{Type: "contact", Payload: attachmentPayload{Phone: "+79001234567"}},
			{Type: "audio", Payload: attachmentPayload{ID: "skip-me"}},
		},
	}
	msg := buildMessage(in)

	assert.Equal(t, "вот", msg.Text)
	require.Len(t, msg.Photos, 1)
	assert.Equal(t, "p1", msg.Photos[0].ID)
	require.NotNil(t, msg.Location)
	assert.Equal(t, 55.75, msg.Location.Latitude)
	require.NotNil(t, msg.Contact)
	assert.Equal(t, "+79001234567", msg.Contact.Phone)
}
