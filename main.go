package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lostfound-bot/internal/bot"
	"lostfound-bot/internal/db"
	"lostfound-bot/internal/events"
	"lostfound-bot/internal/handlers"
	"lostfound-bot/internal/notify"
	"lostfound-bot/internal/observability"
	"lostfound-bot/internal/push"
	"lostfound-bot/internal/repositories"
	"lostfound-bot/internal/vault"
)

func main() {
	database, err := db.Connect()
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	sessionRepo := repositories.NewSessionRepo(database)
	userRepo := repositories.NewUserRepo(database)
	listingRepo := repositories.NewListingRepo(database)
	chatRepo := repositories.NewChatRepo(database)
	notificationRepo := repositories.NewNotificationRepo(database)
	volunteerRepo := repositories.NewVolunteerRepo(database)

	secretsVault := vault.New(getEnv("SECRETS_KEY", ""))
	sender := push.NewSender(getEnv("PUSH_API_BASE", "https://botapi.max.ru"), getEnv("PUSH_BOT_TOKEN", ""))
	publisher := events.NewPublisher(getEnv("AMQP_URL", ""), getEnv("AMQP_EXCHANGE", "lostfound.events"))
	defer publisher.Close()

	log.Printf("push sender mode: %s", push.SenderMode(sender))
	log.Printf("event publisher mode: %s", events.PublisherMode(publisher))
	log.Printf("secrets vault enabled: %v", secretsVault.Enabled())

	notifier := notify.New(notificationRepo, userRepo, sender, publisher)

	engine := bot.NewEngine(bot.Dependencies{
		Sessions:      sessionRepo,
		Users:         userRepo,
		Listings:      listingRepo,
		Chats:         chatRepo,
		Notifications: notificationRepo,
		Volunteers:    volunteerRepo,
		Vault:         secretsVault,
		Notifier:      notifier,
		Sender:        sender,
		FrontURL:      getEnv("FRONT_ORIGIN", ""),
	})

	webhook := handlers.NewWebhookHandler(engine, getEnv("WEBHOOK_SECRET", ""))

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(observability.HTTPMetricsMiddleware())

	router.POST("/webhook", webhook.Handle)
	router.GET("/healthz", handlers.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	port := getEnv("PORT", "8080")
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
