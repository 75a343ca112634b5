package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/urfave/cli/v2"

	buyer "github.com/selesy/x402-chat"
	"github.com/selesy/x402-chat/internal/config"
	"github.com/selesy/x402-chat/internal/observability"
	"github.com/selesy/x402-chat/pkg/chat"
	"github.com/selesy/x402-chat/pkg/payer"
)

const failureReply = "Sorry, I encountered an error. Please try again."

var (
	cfg   *config.Config
	log   *slog.Logger
	store *chat.BoltDB
)

func main() {
	app := &cli.App{
		Name:  "x402chat",
		Usage: "chat with a completion endpoint that charges per request with x402",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "load environment variables from `FILE` (default: ./.env if present)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error (overrides " + config.EnvLogLevel + ")",
			},
		},
		Before: setup,
		After:  teardown,
		Commands: []*cli.Command{
			chatCmd,
			historyCmd,
			deleteCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		if log == nil {
			log = slog.New(tint.NewHandler(os.Stderr, nil))
		}

		log.Error("x402chat failed", tint.Err(err))
		os.Exit(1)
	}
}

func setup(ctx *cli.Context) error {
	var err error

	cfg, err = config.Load(ctx.String("env-file"))
	if err != nil {
		return err
	}

	level := cfg.LogLevel
	if ctx.IsSet("log-level") {
		level = ctx.String("log-level")
	}

	log = slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      observability.ParseLevel(level),
		TimeFormat: time.Kitchen,
	}))

	store, err = chat.OpenBolt(cfg.DBPath)
	if err != nil {
		return err
	}

	return nil
}

func teardown(_ *cli.Context) error {
	if store == nil {
		return nil
	}

	err := store.Close()
	store = nil

	return err
}

var chatCmd = &cli.Command{
	Name:      "chat",
	Usage:     "send a message and print the streamed reply",
	ArgsUsage: "MESSAGE...",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "chat",
			Usage: "continue the saved chat with `ID`",
		},
	},
	Action: sendMessage,
}

func sendMessage(ctx *cli.Context) error {
	text := strings.Join(ctx.Args().Slice(), " ")
	if strings.TrimSpace(text) == "" {
		return errors.New("message not provided")
	}

	evmSigner, err := cfg.Signer()
	if err != nil {
		return err
	}

	maxAmount, err := cfg.MaxPaymentAmount()
	if err != nil {
		return err
	}

	log.Debug("x402 buyer",
		slog.String("account", evmSigner.Address().Hex()),
		slog.String("maxPayment", payer.FormatAmount(maxAmount, 6)+" USDC"),
	)

	client, err := buyer.ClientForSigner(evmSigner,
		buyer.WithLogger(log),
		buyer.WithMaxPaymentAmount(maxAmount),
	)
	if err != nil {
		return err
	}

	session := chat.NewSession(client, store, cfg.Endpoint, cfg.Model, chat.WithSessionLogger(log))

	if id := ctx.String("chat"); id != "" {
		saved, err := store.Get(ctx.Context, id)
		if err != nil {
			return err
		}

		session.Load(saved)
	}

	out := ctx.App.Writer

	_, err = session.Send(ctx.Context, text, func(token string) {
		fmt.Fprint(out, token)
	})
	fmt.Fprintln(out)

	if err != nil {
		logPaymentError(err)
		fmt.Fprintln(ctx.App.ErrWriter, failureReply)

		// cli.Exit ends the process before After runs.
		if err := teardown(ctx); err != nil {
			log.Error("failed to close chat store", tint.Err(err))
		}

		return cli.Exit("", 1)
	}

	log.Info("chat saved", slog.String("id", session.Current().ID))

	return nil
}

func logPaymentError(err error) {
	var exceeded *payer.AmountExceededError

	switch {
	case errors.As(err, &exceeded):
		log.Error("payment exceeds the configured maximum",
			slog.String("required", payer.FormatAmount(exceeded.Required, 6)),
			slog.String("allowed", payer.FormatAmount(exceeded.Allowed, 6)),
		)
	case errors.Is(err, payer.ErrInsufficientBalance):
		log.Error("insufficient USDC balance", tint.Err(err))
	default:
		log.Error("failed to get a reply", tint.Err(err))
	}
}

var historyCmd = &cli.Command{
	Name:   "history",
	Usage:  "list saved chats, most recent first",
	Action: listChats,
}

func listChats(ctx *cli.Context) error {
	chats, err := store.List(ctx.Context)
	if err != nil {
		return err
	}

	for _, c := range chats {
		fmt.Fprintf(ctx.App.Writer, "%s\t%s\t%d\t%s\n",
			c.ID,
			time.UnixMilli(c.Timestamp).Format(time.DateTime),
			len(c.Messages),
			c.Title,
		)
	}

	return nil
}

var deleteCmd = &cli.Command{
	Name:      "delete",
	Usage:     "delete a saved chat",
	ArgsUsage: "ID",
	Action:    deleteChat,
}

func deleteChat(ctx *cli.Context) error {
	id := ctx.Args().First()
	if id == "" {
		return errors.New("chat ID not provided")
	}

	if err := store.Delete(ctx.Context, id); err != nil {
		return err
	}

	log.Info("chat deleted", slog.String("id", id))

	return nil
}
