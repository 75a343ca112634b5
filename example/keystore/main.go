package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/lmittmann/tint"

	buyer "github.com/selesy/x402-chat"
	"github.com/selesy/x402-chat/pkg/chat"
)

func main() {
	const (
		accountAddressEnvVar  = "X402_ACCOUNT_ADDRESS"
		accountPasswordEnvVar = "X402_ACCOUNT_PASSWORD" //nolint:gosec
		keystoreDirectory     = "X402_KEYSTORE_DIRECTORY"
		url                   = "https://402.jetson.computer/v1/chat/completions"
		model                 = "llama3.2"
	)

	log := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level: slog.LevelDebug,
	}))

	userDir, err := os.UserHomeDir()
	if err != nil {
		log.Error("failed to get user home directory", tint.Err(err))
		os.Exit(1)
	}

	ksPath := filepath.Join(userDir, ".ethereum", "keystore")
	if ks, ok := os.LookupEnv(keystoreDirectory); ok {
		ksPath = ks
	}

	addr, ok := os.LookupEnv(accountAddressEnvVar)
	if !ok {
		log.Error("failed to look up account address environment variable")
		os.Exit(1)
	}

	pass, ok := os.LookupEnv(accountPasswordEnvVar)
	if !ok {
		log.Error("failed to look up account password environment variable")
		os.Exit(1)
	}

	ks := keystore.NewKeyStore(ksPath, keystore.StandardScryptN, keystore.StandardScryptP)
	acct := accounts.Account{Address: common.HexToAddress(addr)}

	client, err := buyer.ClientForKeyStore(ks, acct, []byte(pass), buyer.WithLogger(log))
	if err != nil {
		log.Error("failed to create client", tint.Err(err))
		os.Exit(1)
	}

	dir, err := os.MkdirTemp("", "x402chat")
	if err != nil {
		log.Error("failed to create temporary directory", tint.Err(err))
		os.Exit(1)
	}

	defer os.RemoveAll(dir)

	store, err := chat.OpenBolt(filepath.Join(dir, "chats.db"))
	if err != nil {
		log.Error("failed to open chat store", tint.Err(err))
		os.Exit(1)
	}

	defer func() {
		if err := store.Close(); err != nil {
			log.Error("failed to close chat store", tint.Err(err))
		}
	}()

	ctx := context.Background()
	session := chat.NewSession(client, store, url, model, chat.WithSessionLogger(log))

	for _, msg := range []string{"Tell me a programming joke.", "Explain it."} {
		fmt.Println("> " + msg)

		if _, err := session.Send(ctx, msg, func(token string) { fmt.Print(token) }); err != nil {
			log.Error("failed to send message", tint.Err(err))

			return
		}

		fmt.Println()
	}

	chats, err := session.History(ctx)
	if err != nil {
		log.Error("failed to list chats", tint.Err(err))

		return
	}

	for _, c := range chats {
		log.Info("saved chat", slog.String("id", c.ID), slog.String("title", c.Title), slog.Int("messages", len(c.Messages)))
	}
}
