package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/lmittmann/tint"

	buyer "github.com/selesy/x402-chat"
	"github.com/selesy/x402-chat/pkg/stream"
	"github.com/selesy/x402-chat/third-party/decred"
)

func main() {
	const (
		privateKeyEnvVar = "X402_BUYER_PRIVATE_KEY"
		url              = "https://402.jetson.computer/v1/chat/completions"
	)

	log := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level: slog.LevelDebug,
	}))

	client, err := decred.ClientForPrivateKeyHexFromEnv(privateKeyEnvVar, buyer.WithLogger(log))
	if err != nil {
		log.Error("failed to create client", tint.Err(err))
		os.Exit(1)
	}

	body, err := json.Marshal(map[string]any{
		"model":    "llama3.2",
		"stream":   true,
		"messages": []map[string]string{{"role": "user", "content": "Tell me a programming joke."}},
	})
	if err != nil {
		log.Error("failed to marshal request", tint.Err(err))
		os.Exit(1)
	}

	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Error("failed to make HTTP request", tint.Err(err))
		os.Exit(1)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Error("failed to close response body", tint.Err(err))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		log.Error("unexpected HTTP response", slog.Int("code", resp.StatusCode))
		os.Exit(1)
	}

	for token, err := range stream.NewDecoder(resp.Body, stream.WithLogger(log)).Tokens() {
		if err != nil {
			log.Error("failed to read completion", tint.Err(err))
			os.Exit(1)
		}

		fmt.Print(token)
	}

	fmt.Println()

	for k, vs := range resp.Header {
		for _, v := range vs {
			log.Debug("HTTP response header", slog.String("key", k), slog.String("value", v))
		}
	}
}
