// Command granalysis-cli exercises the dashboard support core from the
// terminal: assistant chat with the encrypted local history, and the
// support-ticket panel with live polling.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Granville-Christopher/granalysis-sub000/internal/backend"
	"github.com/Granville-Christopher/granalysis-sub000/internal/conversation"
	"github.com/Granville-Christopher/granalysis-sub000/internal/keyring"
	"github.com/Granville-Christopher/granalysis-sub000/internal/localstore"
	"github.com/Granville-Christopher/granalysis-sub000/internal/model"
	"github.com/Granville-Christopher/granalysis-sub000/internal/ticket"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "granalysis")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "granalysis")
}

func sessionPath() string { return filepath.Join(cfgDir(), "session.json") }
func storePath() string   { return filepath.Join(cfgDir(), "local.db") }

func usage() {
	fmt.Fprintf(os.Stderr, `granalysis-cli
Usage:
  granalysis-cli [-api URL] [-user ID] <cmd> [args]

Environment (also read from .env):
  GRANALYSIS_API   backend base URL
  GRANALYSIS_USER  user identity for the local cache

Commands:
  version
  login      -token <bearer>              (saves session)
  chat       -m <text> [-file <id>]
  history
  tickets
  new        [-subject <s>] -m <text>
  open       -id <ticket>                 (prints thread, marks read)
  reply      -id <ticket> -m <text>
  watch                                   (poll loops; Ctrl-C to stop)
`)
	os.Exit(2)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

// app bundles the wired-up core for the subcommands.
type app struct {
	userID  string
	client  *backend.Client
	store   *localstore.SQLite
	log     *zap.Logger
	tickets *ticket.State
}

func newApp(apiURL, userID string, log *zap.Logger) (*app, error) {
	kv, err := localstore.OpenSQLite(storePath())
	if err != nil {
		return nil, err
	}
	client := backend.New(backend.Config{
		BaseURL:     apiURL,
		SessionPath: sessionPath(),
	}, log)
	return &app{
		userID:  userID,
		client:  client,
		store:   kv,
		log:     log,
		tickets: ticket.NewState(),
	}, nil
}

func (a *app) close() {
	_ = a.store.Close()
}

func (a *app) openSession() (*conversation.Session, *conversation.Store, error) {
	cipher := conversation.NewCipher(keyring.New(a.store, a.log))
	st, err := conversation.OpenStore(a.userID, cipher, a.store, a.log)
	if err != nil {
		return nil, nil, err
	}
	return conversation.NewSession(st, a.client, a.log), st, nil
}

func printThread(msgs []model.ConversationMessage) {
	for _, m := range msgs {
		ts := time.UnixMilli(m.CreatedAtMs).Format("15:04:05")
		fmt.Printf("[%s] %-9s %s\n", ts, m.Role+":", m.Content)
	}
}

func printTicket(t model.Ticket) {
	fmt.Printf("%s  %-24s %-7s unread=%d\n",
		t.ID, t.Subject, t.Status, ticket.UnreadCount(t, model.SenderUser))
	for _, m := range t.Messages {
		ts := time.UnixMilli(m.CreatedAt).Format("Jan 02 15:04")
		marker := ""
		if m.ID.Provisional() {
			marker = " (sending)"
		}
		fmt.Printf("  [%s] %-8s %s%s\n", ts, m.SenderType+":", m.Message, marker)
	}
}

// bellAlerter rings the terminal bell for counterpart messages.
type bellAlerter struct{}

func (bellAlerter) Alert(ticketID string) {
	fmt.Printf("\a* new support message on %s\n", ticketID)
}

type noScroll struct{}

func (noScroll) ScrollToLatest(string) {}

func main() {
	_ = godotenv.Load()

	apiURL := flag.String("api", os.Getenv("GRANALYSIS_API"), "backend base URL")
	userID := flag.String("user", os.Getenv("GRANALYSIS_USER"), "user identity")
	debug := flag.Bool("debug", false, "verbose logging")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	cmd := flag.Arg(0)

	logger := zap.NewNop()
	if *debug {
		logger, _ = zap.NewDevelopment()
	}
	defer func() { _ = logger.Sync() }()

	if cmd == "version" {
		fmt.Printf("granalysis-cli %s (%s)\n", version, buildDate)
		return
	}
	if *apiURL == "" || *userID == "" {
		fail(fmt.Errorf("need -api and -user (or GRANALYSIS_API / GRANALYSIS_USER)"))
	}

	a, err := newApp(*apiURL, *userID, logger)
	if err != nil {
		fail(err)
	}
	defer a.close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	switch cmd {

	case "login":
		fs := flag.NewFlagSet("login", flag.ExitOnError)
		token := fs.String("token", "", "bearer token")
		_ = fs.Parse(flag.Args()[1:])
		if *token == "" {
			fail(fmt.Errorf("need -token"))
		}
		if err := backend.SaveSession(sessionPath(), *token); err != nil {
			fail(err)
		}
		fmt.Println("ok")

	case "chat":
		fs := flag.NewFlagSet("chat", flag.ExitOnError)
		msg := fs.String("m", "", "question")
		fileID := fs.Int64("file", 0, "active file context id")
		_ = fs.Parse(flag.Args()[1:])

		sess, st, err := a.openSession()
		if err != nil {
			fail(err)
		}
		if *fileID != 0 {
			sess.SetFileContext(fileID)
		}
		if err := sess.Send(ctx, *msg); err != nil {
			fail(err)
		}
		sess.Wait()
		st.Flush()
		printThread(st.Messages())

	case "history":
		_, st, err := a.openSession()
		if err != nil {
			fail(err)
		}
		printThread(st.Messages())

	case "tickets":
		list, err := a.client.ListTickets(ctx)
		if err != nil {
			fail(err)
		}
		for _, t := range list {
			fmt.Printf("%s  %-24s %-7s %d messages, unread=%d\n",
				t.ID, t.Subject, t.Status, len(t.Messages),
				ticket.UnreadCount(t, model.SenderUser))
		}

	case "new":
		fs := flag.NewFlagSet("new", flag.ExitOnError)
		subject := fs.String("subject", "", "subject")
		msg := fs.String("m", "", "opening message")
		_ = fs.Parse(flag.Args()[1:])
		if *msg == "" {
			fail(fmt.Errorf("need -m"))
		}
		t, err := a.client.CreateTicket(ctx, *subject, *msg)
		if err != nil {
			fail(err)
		}
		printTicket(t)

	case "open":
		fs := flag.NewFlagSet("open", flag.ExitOnError)
		id := fs.String("id", "", "ticket id")
		_ = fs.Parse(flag.Args()[1:])
		if *id == "" {
			fail(fmt.Errorf("need -id"))
		}
		t, err := a.client.GetTicket(ctx, *id)
		if err != nil {
			fail(err)
		}
		a.tickets.ApplyServer(t)
		a.tickets.Select(*id)
		tracker := ticket.NewTracker(a.client, a.tickets, logger)
		tracker.MarkRead(ctx, *id)
		printTicket(t)
		tracker.Wait()

	case "reply":
		fs := flag.NewFlagSet("reply", flag.ExitOnError)
		id := fs.String("id", "", "ticket id")
		msg := fs.String("m", "", "reply text")
		_ = fs.Parse(flag.Args()[1:])
		if *id == "" {
			fail(fmt.Errorf("need -id"))
		}
		rc := ticket.NewReplyController(a.client, a.tickets, replyPrinter{}, logger)
		if err := rc.Reply(ctx, *id, *msg); err != nil {
			fail(err)
		}
		rc.Wait()
		if t, ok := a.tickets.Get(*id); ok {
			printTicket(t)
		}

	case "watch":
		sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cursors := ticket.NewCursors()
		gate := ticket.NewGate(cursors, bellAlerter{}, logger)
		poller := ticket.NewPoller(a.client, a.tickets, gate, noScroll{}, logger)

		fmt.Println("watching tickets (Ctrl-C to stop)")
		go poller.RunDetail(sigCtx, 3*time.Second)
		poller.RunList(sigCtx, 10*time.Second)

	default:
		usage()
	}
}

// replyPrinter surfaces a failed reply as a retryable message on stderr.
type replyPrinter struct{}

func (replyPrinter) ReplyFailed(ticketID, text string, err error) {
	fmt.Fprintf(os.Stderr, "reply to %s failed (%v); your text: %q\n", ticketID, err, text)
}
