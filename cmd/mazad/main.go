// Command mazad is a CLI client for the MazadClick chat and notification
// backend: session handoff, conversation browsing, optimistic sends, and
// live event watching.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/mazadclick/clientsync/internal/api"
	"github.com/mazadclick/clientsync/internal/bridge"
	"github.com/mazadclick/clientsync/internal/chat"
	"github.com/mazadclick/clientsync/internal/model"
	"github.com/mazadclick/clientsync/internal/notify"
	"github.com/mazadclick/clientsync/internal/pending"
	"github.com/mazadclick/clientsync/internal/session"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func usage() {
	fmt.Fprintf(os.Stderr, `mazad CLI
Usage:
  mazad [-api URL] [-ws URL] [-session file] [-env file] [-v] <cmd> [args]

Commands:
  version
  login          -token <access> [-refresh <refresh>]   (validates, saves session)
  handoff        -url <url>                             (consumes ?token=...&refreshToken=...)
  logout
  whoami
  chats
  history        -chat <id>
  send           -chat <id> -text <message>
  notifications  [-source general|chat|admin] [-merged]
  mark-read      -id <id> [-source general|chat|admin]
  mark-all-read  [-source general|chat|admin]
  watch          [-chat <id>] [-resync interaction|reconnect]
`)
	os.Exit(2)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// main dispatches subcommands over a shared client, session reader and logger.
func main() {
	apiURL := flag.String("api", "", "backend base URL (default $MAZAD_API_URL)")
	wsURL := flag.String("ws", "", "socket URL (default $MAZAD_WS_URL)")
	sessPath := flag.String("session", session.DefaultPath(), "session file")
	envFile := flag.String("env", "", ".env file to load")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	cmd := flag.Arg(0)
	args := flag.Args()[1:]

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			fail(fmt.Errorf("load env file: %w", err))
		}
	} else {
		_ = godotenv.Load() // .env in cwd, if present
	}
	base := *apiURL
	if base == "" {
		base = envOr("MAZAD_API_URL", "https://api.mazad.click")
	}
	ws := *wsURL
	if ws == "" {
		ws = envOr("MAZAD_WS_URL", "wss://api.mazad.click/ws")
	}

	logger := zap.NewNop()
	if *verbose {
		logger, _ = zap.NewDevelopment()
	}
	defer func() { _ = logger.Sync() }()

	client := api.New(base, nil, logger)
	sess := session.NewReader(session.NewFileStore(*sessPath), logger)
	pend := pending.NewTable()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch cmd {

	case "version":
		fmt.Printf("mazad %s (%s)\n", version, buildDate)

	case "login":
		fs := flag.NewFlagSet("login", flag.ExitOnError)
		token := fs.String("token", "", "access token")
		refresh := fs.String("refresh", "", "refresh token")
		_ = fs.Parse(args)
		if *token == "" {
			fmt.Fprintln(os.Stderr, "need -token")
			os.Exit(1)
		}
		user, err := client.ValidateToken(ctx, *token)
		if err != nil {
			fail(err)
		}
		s := &model.Session{
			User: *user,
			Tokens: model.Tokens{
				AccessToken:  *token,
				RefreshToken: *refresh,
				ExpiresAt:    session.TokenExpiry(*token),
			},
		}
		if err := sess.Save(s); err != nil {
			fail(err)
		}
		fmt.Println("ok")

	case "handoff":
		fs := flag.NewFlagSet("handoff", flag.ExitOnError)
		raw := fs.String("url", "", "URL carrying token/refreshToken/from params")
		_ = fs.Parse(args)
		if *raw == "" {
			fmt.Fprintln(os.Stderr, "need -url")
			os.Exit(1)
		}
		clean, s, err := sess.ConsumeHandoff(ctx, client, *raw)
		if err != nil {
			fail(err)
		}
		if s == nil {
			fmt.Fprintln(os.Stderr, "no handoff token in url")
		} else {
			fmt.Println("logged in as", s.User.FullName())
		}
		fmt.Println(clean)

	case "logout":
		if err := sess.Clear(); err != nil {
			fail(err)
		}
		fmt.Println("ok")

	case "whoami":
		s, err := sess.Current()
		if err != nil {
			fail(err)
		}
		printJSON(s.User)

	case "chats":
		mgr := newManager(client, sess, nil, nil, pend, logger)
		list, err := mgr.Chats(ctx)
		if err != nil {
			fail(err)
		}
		s, _ := sess.Current()
		type row struct{ ID, Peer, CreatedAt string }
		rows := make([]row, 0, len(list))
		for _, c := range list {
			peer, _ := c.Peer(s.User.ID)
			rows = append(rows, row{
				ID:        c.ID,
				Peer:      peer.FullName(),
				CreatedAt: c.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
		printJSON(rows)

	case "history":
		fs := flag.NewFlagSet("history", flag.ExitOnError)
		chatID := fs.String("chat", "", "chat id")
		_ = fs.Parse(args)
		mgr := newManager(client, sess, nil, nil, pend, logger)
		if err := selectByID(ctx, mgr, *chatID); err != nil {
			fail(err)
		}
		for _, g := range mgr.DayGroups() {
			fmt.Println("--", g.Date)
			for _, msg := range g.Messages {
				fmt.Printf("%s  %s: %s\n", msg.CreatedAt.Format("15:04"), msg.SenderID, msg.Text)
			}
		}

	case "send":
		fs := flag.NewFlagSet("send", flag.ExitOnError)
		chatID := fs.String("chat", "", "chat id")
		text := fs.String("text", "", "message text")
		_ = fs.Parse(args)
		mgr := newManager(client, sess, nil, nil, pend, logger)
		if err := selectByID(ctx, mgr, *chatID); err != nil {
			fail(err)
		}
		if err := mgr.Send(ctx, *text); err != nil {
			fail(err)
		}
		fmt.Println("sent")

	case "notifications":
		fs := flag.NewFlagSet("notifications", flag.ExitOnError)
		source := fs.String("source", "general", "general|chat|admin")
		merged := fs.Bool("merged", false, "merge general and admin feeds")
		_ = fs.Parse(args)
		if *merged {
			gen := notify.New(notify.SourceGeneral, client, sess, pend, logger)
			adm := notify.New(notify.SourceAdmin, client, sess, pend, logger)
			if err := gen.Refresh(ctx); err != nil {
				fail(err)
			}
			if err := adm.Refresh(ctx); err != nil {
				fail(err)
			}
			printJSON(notify.Merge(gen, adm))
			fmt.Fprintf(os.Stderr, "unread: %d\n", gen.UnreadCount()+adm.UnreadCount())
			return
		}
		f := notify.New(notify.Source(*source), client, sess, pend, logger)
		if err := f.Refresh(ctx); err != nil {
			fail(err)
		}
		bell, chatItems := notify.Split(f.Items())
		printJSON(map[string]any{"bell": bell, "chat": chatItems})
		fmt.Fprintf(os.Stderr, "unread: %d\n", f.UnreadCount())

	case "mark-read":
		fs := flag.NewFlagSet("mark-read", flag.ExitOnError)
		id := fs.String("id", "", "notification id")
		source := fs.String("source", "general", "general|chat|admin")
		_ = fs.Parse(args)
		if *id == "" {
			fmt.Fprintln(os.Stderr, "need -id")
			os.Exit(1)
		}
		f := notify.New(notify.Source(*source), client, sess, pend, logger)
		if err := f.Refresh(ctx); err != nil {
			fail(err)
		}
		if err := f.MarkRead(ctx, *id); err != nil {
			fail(err)
		}
		fmt.Println("ok")

	case "mark-all-read":
		fs := flag.NewFlagSet("mark-all-read", flag.ExitOnError)
		source := fs.String("source", "general", "general|chat|admin")
		_ = fs.Parse(args)
		f := notify.New(notify.Source(*source), client, sess, pend, logger)
		if err := f.Refresh(ctx); err != nil {
			fail(err)
		}
		if err := f.MarkAllRead(ctx); err != nil {
			fail(err)
		}
		fmt.Println("ok")

	case "watch":
		fs := flag.NewFlagSet("watch", flag.ExitOnError)
		chatID := fs.String("chat", "", "chat id to follow")
		resync := fs.String("resync", "interaction", "interaction|reconnect")
		_ = fs.Parse(args)
		cancel() // watch manages its own lifetime
		if err := watch(client, sess, pend, logger, ws, *chatID, *resync); err != nil {
			fail(err)
		}

	default:
		usage()
	}
}

func newManager(client *api.Client, sess *session.Reader, bus *bridge.Bus, rooms chat.Rooms,
	pend *pending.Table, logger *zap.Logger) *chat.Manager {
	if bus == nil {
		bus = bridge.NewBus()
	}
	return chat.NewManager(client, client, client, sess, bus, rooms, pend, logger)
}

// selectByID resolves the chat id against the user's conversations and
// selects it, loading history.
func selectByID(ctx context.Context, mgr *chat.Manager, chatID string) error {
	if chatID == "" {
		return fmt.Errorf("need -chat")
	}
	list, err := mgr.Chats(ctx)
	if err != nil {
		return err
	}
	for _, c := range list {
		if c.ID == chatID {
			return mgr.Select(ctx, c)
		}
	}
	return fmt.Errorf("chat %s: not among your conversations", chatID)
}

// watch connects the socket, follows one chat if given, and prints events
// until interrupted.
func watch(client *api.Client, sess *session.Reader, pend *pending.Table,
	logger *zap.Logger, wsURL, chatID, resync string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	policy := bridge.ResyncOnInteraction
	if strings.EqualFold(resync, "reconnect") {
		policy = bridge.ResyncOnReconnect
	}

	bus := bridge.NewBus()
	sock := bridge.NewSocket(wsURL, bus, policy, logger)

	mgr := newManager(client, sess, bus, sock, pend, logger)
	mgr.Attach()
	defer mgr.Detach()

	gen := notify.New(notify.SourceGeneral, client, sess, pend, logger)
	gen.Attach(bus)
	defer gen.Detach()
	sock.OnResync(func() {
		if err := gen.Refresh(ctx); err != nil {
			logger.Warn("resync refresh", zap.Error(err))
		}
	})

	for _, name := range bridge.MessageEvents {
		id := bus.On(name, func(ev bridge.Event) {
			fmt.Printf("[%s] %s %s: %s\n", ev.Name, ev.Message.ChatID, ev.Message.SenderID, ev.Message.Text)
		})
		defer bus.Off(name, id)
	}
	nid := bus.On(bridge.EventNotification, func(ev bridge.Event) {
		fmt.Printf("[notification] %s %s: %s\n", ev.Notification.Type, ev.Notification.Title, ev.Notification.Message)
	})
	defer bus.Off(bridge.EventNotification, nid)

	if chatID != "" {
		if err := selectByID(ctx, mgr, chatID); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "following chat %s\n", chatID)
	}

	return sock.Run(ctx)
}
