package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	logger "github.com/sirupsen/logrus"

	"tradejournal/src/auth"
	"tradejournal/src/database"
	"tradejournal/src/ledger"
	"tradejournal/src/repository"
	"tradejournal/src/server"
)

var APP_NAME = os.Getenv("APP_NAME")

func SetupLogger(cfg *server.Config) {
	level, err := logger.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		level = logger.DebugLevel // safe fallback
	}
	logger.SetLevel(level)

	if strings.EqualFold(cfg.LogFormat, "json") {
		logger.SetFormatter(&logger.JSONFormatter{})
		return
	}
	logger.SetFormatter(&logger.TextFormatter{
		FullTimestamp: true,
	})
}

func main() {
	cfg := server.GetConfig()
	SetupLogger(cfg)
	defer handlePanic()

	dbCfg := database.GetConfig()
	if err := cfg.CheckSessionSecret(dbCfg.Driver); err != nil {
		logger.WithError(err).Fatal("Refusing to start")
	}
	if cfg.SessionSecret == server.DefaultSessionSecret {
		logger.Warn("SESSION_SECRET is the default value; set it before exposing the server")
	}

	db, err := database.InitMainDB(dbCfg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}

	journal := repository.NewJournalRepository(db)
	router := server.NewRouter(server.Deps{
		Ledger:     ledger.New(journal, ledger.GetConfig()),
		Users:      repository.NewUserRepository(db),
		Exceptions: repository.NewExceptionRepository(db),
		Sessions:   auth.NewSessions(cfg.SessionSecret, cfg.SessionTTL, cfg.CookieSecure),
		Config:     cfg,
	})

	server.StartServer(cfg, router)
}

func handlePanic() {
	if r := recover(); r != nil {
		logger.WithError(fmt.Errorf("%+v", r)).Error(fmt.Sprintf("Application %s panic", APP_NAME))
	}
	//nolint
	time.Sleep(time.Second * 5)
}
