package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/kirillm/trading-copilot/internal/api"
	"github.com/kirillm/trading-copilot/internal/config"
	"github.com/kirillm/trading-copilot/internal/executor"
	"github.com/kirillm/trading-copilot/internal/market"
	"github.com/kirillm/trading-copilot/internal/news"
	"github.com/kirillm/trading-copilot/internal/oracle"
	"github.com/kirillm/trading-copilot/internal/policy"
	"github.com/kirillm/trading-copilot/internal/session"
	"github.com/kirillm/trading-copilot/internal/storage"
	"github.com/kirillm/trading-copilot/internal/telegram"
	"github.com/kirillm/trading-copilot/pkg/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	logger := utils.NewLogger(cfg.LogLevel)
	logger.Info("🚀 Запуск Trading Copilot...")

	// База данных опциональна: без нее работаем в памяти
	var store session.Store
	var history telegram.HistoryStore
	pg, err := storage.NewPostgresStorage(
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.DBName,
		cfg.Database.SSLMode,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
		cfg.Database.ConnMaxLifetime,
	)
	if err != nil {
		logger.Warn("⚠️ База данных недоступна, работаем без персистентности: %v", err)
	} else {
		defer pg.Close()
		store = pg
		history = pg
		logger.Info("✅ PostgreSQL подключен")
	}

	// Торговый sandbox API
	marketClient, err := market.NewClient(cfg.Trading.APIKey, cfg.Trading.BaseURL, cfg.Trading.RateLimit)
	if err != nil {
		log.Fatalf("❌ Failed to create trading API client: %v", err)
	}

	// Политика рисков и исполнение
	validator, err := policy.NewValidator(cfg.Autonomy.RiskProfilePath)
	if err != nil {
		log.Fatalf("❌ Failed to load risk profiles: %v", err)
	}
	killSwitch := executor.NewKillSwitch()
	trader := executor.NewExecutor(marketClient, validator, killSwitch, logger)

	// AI оракул и диалоговый ассистент
	chatClient := oracle.NewChatClient(cfg.AI.Provider, cfg.AI.APIKey, cfg.AI.BaseURL, cfg.AI.Model)
	decisionClient := oracle.NewDecisionClient(chatClient, logger)
	assistant := oracle.NewChatAssistant(chatClient, logger)

	// Новости
	fetcher := news.NewFetcher(cfg.News.Feeds, logger)

	// Контроллер сессий
	controller := session.NewController(
		marketClient,
		fetcher,
		news.KeywordSentiment,
		decisionClient,
		trader,
		store,
		nil, // notifier подключается после создания бота
		cfg.News.FetchLimit,
		logger.WithPrefix("session"),
	)

	// Telegram бот
	auth := telegram.NewAuthManager(cfg.Telegram.AdminIDs, cfg.Telegram.Whitelist)
	bot, err := telegram.NewBot(
		cfg.Telegram.BotToken,
		auth,
		controller,
		marketClient,
		trader,
		assistant,
		history,
		killSwitch,
		cfg.Autonomy.RiskLevel,
		cfg.Autonomy.MaxTradeSize,
		cfg.Autonomy.CycleInterval,
		cfg.Autonomy.TestingMode,
		logger.WithPrefix("telegram"),
	)
	if err != nil {
		log.Fatalf("❌ Failed to create telegram bot: %v", err)
	}
	controller.SetNotifier(bot.Notify)

	// HTTP API мониторинга
	apiServer := api.NewServer(controller, cfg.APIPort, logger.WithPrefix("api"))
	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("❌ HTTP сервер остановлен: %v", err)
		}
	}()

	go bot.Start()

	logger.Info("✅ Trading Copilot запущен")

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("🛑 Получен сигнал завершения, останавливаем сессии...")
	active := controller.ListActive()
	for _, s := range active {
		if _, err := controller.Stop(s.ID); err != nil {
			logger.Warn("⚠️ Не удалось остановить сессию %s: %v", s.ID, err)
		}
	}
	for _, s := range active {
		controller.Wait(s.ID)
	}

	logger.Info("👋 Trading Copilot остановлен")
}
