// chat-cli is a terminal client for the coursechat server: sign in,
// join a course channel, and drive the session engine from stdin.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"coursechat/internal/apiclient"
	"coursechat/internal/channel"
	"coursechat/internal/common"
	"coursechat/internal/config"
	"coursechat/internal/media"
	"coursechat/internal/notify"
	"coursechat/internal/session"
	"coursechat/internal/timeline"
	"coursechat/internal/typing"
)

// terminalHost treats the terminal as never focused, so every gated
// message may alert.
type terminalHost struct{}

func (terminalHost) Focused() bool { return false }
func (terminalHost) Focus()        {}

// terminalSink prints alerts with a bell instead of a system popup.
type terminalSink struct{}

func (terminalSink) Permitted() bool { return true }
func (terminalSink) Deliver(a notify.Alert) {
	fmt.Printf("\a[notify] %s: %s\n", a.Title, a.Body)
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	var (
		apiBase   = flag.String("api", "http://localhost:8080", "chat server HTTP base URL")
		userID    = flag.String("user", "", "user id")
		password  = flag.String("pass", "", "password")
		name      = flag.String("name", "", "display name (registers the account when set)")
		channelID = flag.String("channel", "", "channel to join on start")
	)
	flag.Parse()

	if *userID == "" || *password == "" {
		log.Fatal("both -user and -pass are required")
	}

	cfg := config.Load()
	api := apiclient.New(*apiBase, nil)
	ctx := context.Background()

	if *name != "" {
		if _, err := api.Register(ctx, *userID, *name, *password); err != nil {
			log.Printf("register: %v", err)
		}
	}
	user, err := api.Login(ctx, *userID, *password)
	if err != nil {
		log.Fatalf("login failed: %v", err)
	}
	fmt.Printf("signed in as %s (%s)\n", user.DisplayName, user.ID)

	client, err := channel.Dial(cfg.Channel.ServerURL, api.Token(), cfg.Channel.EventBuffer)
	if err != nil {
		log.Fatalf("event channel: %v", err)
	}

	sess, err := session.New(client, common.TokenIdentity{Token: api.Token()},
		media.NewHTTPUploader(cfg.Media.BaseURL, nil), api, session.Options{
			TypingQuiet: cfg.Channel.TypingQuiet,
			Scheduler:   typing.SystemScheduler(),
			TruncateAt:  cfg.Notification.TruncateAt,
			Host:        terminalHost{},
			Sink:        terminalSink{},
		})
	if err != nil {
		log.Fatalf("session: %v", err)
	}

	if *channelID != "" {
		if err := sess.SwitchChannel(*channelID); err != nil {
			log.Fatalf("join %s: %v", *channelID, err)
		}
		fmt.Printf("joined %s\n", *channelID)
	}

	go inputLoop(ctx, sess, api)

	// Run until interrupted; on a dropped connection redial and
	// re-attach, letting the fresh snapshot rebuild local state.
	for {
		err := sess.Run(ctx)
		if !errors.Is(err, session.ErrChannelClosed) {
			log.Fatalf("session ended: %v", err)
		}
		log.Printf("connection lost, redialing in %s", cfg.Channel.RedialBackoff)
		time.Sleep(cfg.Channel.RedialBackoff)

		client, err = channel.Dial(cfg.Channel.ServerURL, api.Token(), cfg.Channel.EventBuffer)
		if err != nil {
			log.Printf("redial failed: %v", err)
			continue
		}
		if err := sess.Attach(client); err != nil {
			log.Printf("rejoin failed: %v", err)
		}
	}
}

func inputLoop(ctx context.Context, sess *session.Session, api *apiclient.Client) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "/") {
			sess.KeyStroke()
			if _, err := sess.SendDraft(ctx, timeline.Draft{Text: line}); err != nil {
				fmt.Printf("send: %v\n", err)
			}
			continue
		}
		handleCommand(ctx, sess, api, line)
	}
}

func handleCommand(ctx context.Context, sess *session.Session, api *apiclient.Client, line string) {
	fields := strings.Fields(line)
	arg := func(i int) string {
		if i < len(fields) {
			return fields[i]
		}
		return ""
	}

	switch fields[0] {
	case "/help":
		fmt.Println(`commands:
  /channels                list joinable channels
  /enroll <channel>        enroll in a course channel
  /join <channel>          switch channel
  /who                     list participants
  /messages                print the timeline
  /pins                    print pinned messages
  /code <lang> <source>    send a code snippet
  /file <path> [caption]   send a file attachment
  /edit <id> <text>        edit one of your messages
  /delete <id>             delete one of your messages
  /react <id> <emoji>      toggle a reaction
  /pin <id>  /unpin <id>   manage pins
  /quit                    exit`)
	case "/channels":
		channels, err := api.ListJoinableChannels(ctx, sess.User().ID)
		if err != nil {
			fmt.Printf("channels: %v\n", err)
			return
		}
		for _, ch := range channels {
			fmt.Printf("  %s  %s\n", ch.ID, ch.Title)
		}
	case "/enroll":
		if arg(1) == "" {
			fmt.Println("usage: /enroll <channel>")
			return
		}
		if err := api.Enroll(ctx, arg(1)); err != nil {
			fmt.Printf("enroll: %v\n", err)
			return
		}
		fmt.Printf("enrolled in %s\n", arg(1))
	case "/join":
		if arg(1) == "" {
			fmt.Println("usage: /join <channel>")
			return
		}
		if err := sess.SwitchChannel(arg(1)); err != nil {
			fmt.Printf("join: %v\n", err)
			return
		}
		fmt.Printf("joined %s\n", arg(1))
	case "/who":
		for _, u := range sess.Participants() {
			fmt.Printf("  %s (%s)\n", u.DisplayName, u.ID)
		}
		if typers := sess.RemoteTypers(); len(typers) > 0 {
			fmt.Printf("  typing: %s\n", strings.Join(typers, ", "))
		}
	case "/messages":
		for _, m := range sess.Messages() {
			printMessage(sess, m)
		}
	case "/pins":
		for _, id := range sess.Pinned() {
			if m, ok := sess.JumpToPin(id); ok {
				printMessage(sess, m)
			}
		}
	case "/code":
		if arg(2) == "" {
			fmt.Println("usage: /code <lang> <source>")
			return
		}
		source := strings.Join(fields[2:], " ")
		if _, err := sess.SendDraft(ctx, timeline.Draft{Kind: timeline.KindCode, Language: arg(1), Text: source}); err != nil {
			fmt.Printf("send: %v\n", err)
		}
	case "/file":
		if arg(1) == "" {
			fmt.Println("usage: /file <path> [caption]")
			return
		}
		content, err := os.ReadFile(arg(1))
		if err != nil {
			fmt.Printf("read: %v\n", err)
			return
		}
		caption := strings.Join(fields[2:], " ")
		_, err = sess.SendDraft(ctx, timeline.Draft{
			Text: caption,
			Attachment: &timeline.Attachment{
				Name:    filepath.Base(arg(1)),
				Mime:    mime.TypeByExtension(filepath.Ext(arg(1))),
				Content: content,
			},
		})
		if err != nil {
			fmt.Printf("send: %v\n", err)
		}
	case "/edit":
		if arg(2) == "" {
			fmt.Println("usage: /edit <id> <text>")
			return
		}
		text := strings.Join(fields[2:], " ")
		if err := sess.Edit(arg(1), timeline.Patch{Text: &text}); err != nil {
			fmt.Printf("edit: %v\n", err)
		}
	case "/delete":
		if err := sess.Delete(arg(1)); err != nil {
			fmt.Printf("delete: %v\n", err)
		}
	case "/react":
		if arg(2) == "" {
			fmt.Println("usage: /react <id> <emoji>")
			return
		}
		if err := sess.ToggleReaction(arg(1), arg(2)); err != nil {
			fmt.Printf("react: %v\n", err)
		}
	case "/pin":
		if err := sess.Pin(arg(1)); err != nil {
			fmt.Printf("pin: %v\n", err)
		}
	case "/unpin":
		if err := sess.Unpin(arg(1)); err != nil {
			fmt.Printf("unpin: %v\n", err)
		}
	case "/quit":
		os.Exit(0)
	default:
		fmt.Printf("unknown command %s, try /help\n", fields[0])
	}
}

func printMessage(sess *session.Session, m *timeline.Message) {
	marker := " "
	if m.State == timeline.StatePending {
		marker = "…"
	}
	body := m.Text
	switch m.Kind {
	case timeline.KindCode:
		body = fmt.Sprintf("[%s]\n%s", m.Language, m.Text)
	case timeline.KindFile:
		if m.File != nil {
			body = fmt.Sprintf("[file] %s %s", m.File.Name, m.File.URL)
			if m.Text != "" {
				body += " — " + m.Text
			}
		}
	}
	fmt.Printf("%s %s  %s: %s\n", marker, m.ID, m.AuthorName, body)
	if pairs := sess.Reactions(m.ID); len(pairs) > 0 {
		counts := map[string]int{}
		for _, p := range pairs {
			counts[p.Emoji]++
		}
		for emoji, n := range counts {
			fmt.Printf("      %s x%d\n", emoji, n)
		}
	}
}
