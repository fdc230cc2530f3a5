package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"doha-explorer/config"
	"doha-explorer/identity"
	"doha-explorer/models"
	"doha-explorer/session"
)

const helpText = `commands:
  /login <token>  sign in with an ID token
  /logout         sign out and clear the screen
  /new            start a new conversation
  /stop           stop waiting for the current reply
  /title          show the conversation title
  /suggest <n>    send suggestion n
  /forget         delete the stored history and start over
  /quit           exit`

// historyEraser 는 /forget 에서 저장된 히스토리를 지운다.
type historyEraser interface {
	Clear(ctx context.Context, userID string) error
}

// app 은 터미널 입력을 세션 매니저 호출로 옮기고, 매니저가 보내는 스냅샷을 그린다.
type app struct {
	manager     *session.Manager
	provider    *identity.Provider
	verifier    *identity.Verifier
	eraser      historyEraser
	suggestions []config.Suggestion

	// token 은 chatclient 의 TokenSource 가 읽는다.
	token atomic.Value

	outMu     sync.Mutex
	out       io.Writer
	printed   []string
	suggested bool
	busy      bool
}

func newApp(out io.Writer, provider *identity.Provider, verifier *identity.Verifier, eraser historyEraser, suggestions []config.Suggestion) *app {
	a := &app{
		provider:    provider,
		verifier:    verifier,
		eraser:      eraser,
		suggestions: suggestions,
		out:         out,
	}
	a.token.Store("")
	return a
}

func (a *app) idToken() string {
	return a.token.Load().(string)
}

// render 는 session 옵저버로 등록된다. 새로 붙은 메시지만 출력하고,
// 대화가 통째로 바뀌었으면(reset, hydration, sign-out) 처음부터 다시 그린다.
func (a *app) render(snap session.Snapshot) {
	a.outMu.Lock()
	defer a.outMu.Unlock()

	if !a.extendsPrinted(snap.Messages) {
		if len(a.printed) > 0 {
			fmt.Fprintln(a.out, "────────────────────────────")
		}
		a.printed = a.printed[:0]
		a.suggested = false
	}
	for _, msg := range snap.Messages[len(a.printed):] {
		a.printMessage(msg)
		a.printed = append(a.printed, msg.ID)
	}

	if snap.UserID != "" && len(snap.Messages) == 1 && !a.suggested {
		a.printSuggestions()
		a.suggested = true
	}

	busy := snap.State == session.Requesting
	if busy && !a.busy {
		fmt.Fprintln(a.out, "  … Doha Explorer is typing (/stop to cancel)")
	}
	a.busy = busy
}

func (a *app) extendsPrinted(msgs []models.Message) bool {
	if len(msgs) < len(a.printed) {
		return false
	}
	for i, id := range a.printed {
		if msgs[i].ID != id {
			return false
		}
	}
	return true
}

func (a *app) printMessage(msg models.Message) {
	who := "Doha Explorer AI"
	if msg.IsUser() {
		who = "You"
	}
	fmt.Fprintf(a.out, "[%s] %s\n%s\n\n", msg.Time.Local().Format("15:04"), who, msg.Text)
}

func (a *app) printSuggestions() {
	if len(a.suggestions) == 0 {
		return
	}
	fmt.Fprintln(a.out, "Ask me anything. Try one of these with /suggest <n>:")
	for i, s := range a.suggestions {
		fmt.Fprintf(a.out, "  %d. %s: %s\n", i+1, s.Title, s.Prompt)
	}
	fmt.Fprintln(a.out)
}

func (a *app) println(args ...any) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	fmt.Fprintln(a.out, args...)
}

// handle 은 한 줄의 입력을 처리한다. 종료해야 하면 true 를 반환한다.
func (a *app) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, "/") {
		a.send(line)
		return false
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "/quit", "/exit":
		return true
	case "/help":
		a.println(helpText)
	case "/login":
		a.login(arg)
	case "/logout":
		a.token.Store("")
		a.provider.SignOut()
		a.println("signed out")
	case "/new":
		a.manager.Reset()
	case "/stop":
		a.manager.Cancel()
	case "/title":
		a.println(a.manager.Title())
	case "/suggest":
		a.suggest(arg)
	case "/forget":
		a.forget(ctx)
	default:
		a.println("unknown command, type /help")
	}
	return false
}

func (a *app) send(text string) {
	if a.manager.Identity() == nil {
		a.println("please sign in first: /login <token>")
		return
	}
	if _, ok := a.manager.Send(text); !ok {
		config.Logger.Debugf("send ignored: %q", text)
	}
}

func (a *app) login(token string) {
	if token == "" {
		a.println("usage: /login <token>")
		return
	}
	if a.verifier == nil {
		a.println("sign-in is not configured (JWT_SECRET is empty)")
		return
	}
	id, err := a.verifier.Parse(token)
	if err != nil {
		config.Logger.Warnf("id token rejected: %v", err)
		a.println("sign-in failed:", err)
		return
	}
	a.token.Store(token)
	a.provider.SignIn(id)
	name := id.DisplayName
	if name == "" {
		name = id.UserID
	}
	a.println("signed in as", name)
}

func (a *app) suggest(arg string) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(a.suggestions) {
		a.println(fmt.Sprintf("choose a suggestion between 1 and %d", len(a.suggestions)))
		return
	}
	a.send(a.suggestions[n-1].Prompt)
}

func (a *app) forget(ctx context.Context) {
	id := a.manager.Identity()
	if id == nil {
		a.println("please sign in first: /login <token>")
		return
	}
	if a.eraser == nil {
		a.println("history storage is not available")
		return
	}
	// 진행 중인 쓰기가 끝난 뒤에 지워야 지운 직후 다시 생기지 않는다.
	a.manager.Cancel()
	if err := a.manager.Flush(ctx); err != nil {
		a.println("could not forget history:", err)
		return
	}
	if err := a.eraser.Clear(ctx, id.UserID); err != nil {
		config.ErrorWithFields("chat history clear failed", config.Fields{"user_id": id.UserID, "error": err.Error()})
		a.println("could not forget history:", err)
		return
	}
	a.manager.Reset()
	a.println("history deleted")
}
