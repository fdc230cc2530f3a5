package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"doha-explorer/cmd/explorer/clients/chatclient"
	"doha-explorer/config"
	"doha-explorer/db"
	"doha-explorer/identity"
	"doha-explorer/repositories"
	"doha-explorer/session"
)

// historyStore 는 세션 저장소 계약에 /forget 용 Clear 를 더한 것이다.
type historyStore interface {
	session.MessageStore
	historyEraser
}

// openHistory 는 storage.driver 에 따라 Mongo 또는 로컬 SQLite 저장소를 연다.
func openHistory(ctx context.Context, cfg config.StorageConfig) (historyStore, func(), error) {
	switch cfg.Driver {
	case "sqlite":
		d, err := db.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		config.Logger.Infof("chat history stored in %s", cfg.SQLitePath)
		return repositories.NewSQLiteChatHistoryRepository(d), func() { _ = d.Close() }, nil
	case "mongo", "":
		if err := db.Init(ctx); err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := db.Close(closeCtx); err != nil {
				config.Logger.Warnf("mongo disconnect: %v", err)
			}
		}
		return repositories.NewChatHistoryRepository(db.Database()), closeFn, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func main() {
	tokenFlag := flag.String("token", os.Getenv("EXPLORER_ID_TOKEN"), "ID token to sign in with")
	flag.Parse()

	config.InitApp()
	cfg := config.GetConfig()
	config.InitLogger(cfg.Explorer.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeStore, err := openHistory(ctx, cfg.Storage)
	if err != nil {
		config.Logger.Errorf("failed to open chat history storage: %v", err)
		os.Exit(1)
	}
	defer closeStore()

	verifier, err := identity.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer, 0)
	if err != nil {
		config.Logger.Warnf("sign-in disabled: %v", err)
		verifier = nil
	}

	provider := identity.NewProvider()
	a := newApp(os.Stdout, provider, verifier, repo, cfg.Suggestions)

	client := chatclient.New(cfg.ChatAPI, chatclient.WithTokenSource(a.idToken))
	opts := append(session.OptionsFromConfig(cfg.Session),
		session.WithObserver(a.render),
		session.WithRequestTimeout(time.Duration(cfg.ChatAPI.TimeoutSeconds)*time.Second),
	)
	manager := session.NewManager(repo, client, opts...)
	a.manager = manager

	events, unsubscribe := provider.Subscribe()
	defer unsubscribe()
	go func() {
		if err := manager.Watch(ctx, events); err != nil && !errors.Is(err, context.Canceled) {
			config.Logger.Errorf("identity watch stopped: %v", err)
		}
	}()

	fmt.Println("Doha Explorer. Type /help for commands.")
	if *tokenFlag != "" {
		a.login(*tokenFlag)
	} else {
		a.println("please sign in first: /login <token>")
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case line, ok := <-lines:
			if !ok || a.handle(ctx, line) {
				break loop
			}
		}
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Session.StoreTimeoutSeconds)*time.Second)
	defer cancel()
	if err := manager.Close(closeCtx); err != nil {
		config.Logger.Warnf("pending history writes dropped: %v", err)
	}
}
