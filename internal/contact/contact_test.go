package contact

import (
	"context"
	"io"
	"log/slog"
	"net/smtp"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mridungeorge/portfolio/internal/store"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type recordingNotifier struct {
	err  error
	subs []store.ContactSubmission
}

func (r *recordingNotifier) Name() string { return "recording" }

func (r *recordingNotifier) Notify(_ context.Context, sub store.ContactSubmission) error {
	r.subs = append(r.subs, sub)
	return r.err
}

func memStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.Open(context.Background(), store.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

var validForm = Form{Name: "Ada", Email: "ada@example.com", Message: "Let's talk"}

func TestSubmitStoresAndNotifies(t *testing.T) {
	st := memStore(t)
	n := &recordingNotifier{}
	svc := NewService(WithStore(st), WithNotifier(n), WithLogger(quiet))
	ctx := context.Background()

	sub, err := svc.Submit(ctx, validForm)
	require.NoError(t, err)
	assert.NotZero(t, sub.ID)
	assert.False(t, svc.Simulated())

	list, err := st.ListContacts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Let's talk", list[0].Message)
	require.Len(t, n.subs, 1)
}

func TestSubmitNotifierFailureDoesNotFail(t *testing.T) {
	failing := &recordingNotifier{err: errors.New("smtp down")}
	ok := &recordingNotifier{}
	svc := NewService(WithStore(memStore(t)), WithNotifier(failing), WithNotifier(ok), WithLogger(quiet))

	_, err := svc.Submit(context.Background(), validForm)
	require.NoError(t, err)
	assert.Len(t, failing.subs, 1)
	assert.Len(t, ok.subs, 1)
}

func TestSubmitRejectsBlankFields(t *testing.T) {
	svc := NewService(WithStore(memStore(t)), WithLogger(quiet))
	_, err := svc.Submit(context.Background(), Form{Name: "  ", Email: "a@example.com", Message: "x"})
	assert.Equal(t, ErrIncomplete, err)
}

func TestSimulatedSubmitWaits(t *testing.T) {
	n := &recordingNotifier{}
	svc := NewService(WithDelay(20*time.Millisecond), WithNotifier(n), WithLogger(quiet))
	require.True(t, svc.Simulated())

	start := time.Now()
	_, err := svc.Submit(context.Background(), validForm)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	assert.Len(t, n.subs, 1)
}

func TestSimulatedSubmitHonoursCancel(t *testing.T) {
	svc := NewService(WithDelay(time.Hour), WithLogger(quiet))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Submit(ctx, validForm)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEmailNotifier(t *testing.T) {
	cfg := SMTPConfig{Host: "smtp.example.com", Port: "587", User: "me@example.com", Pass: "pw", To: "owner@example.com"}
	e := NewEmailNotifier(cfg)

	var gotAddr string
	var gotTo []string
	var gotMsg []byte
	e.sendMail = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, msg
		return nil
	}

	require.NoError(t, e.Notify(context.Background(), store.ContactSubmission{Name: "Ada", Email: "ada@example.com", Message: "hi"}))
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, []string{"owner@example.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "Subject: Portfolio Contact: Ada\r\n")
	assert.Contains(t, string(gotMsg), "Reply-To: ada@example.com\r\n")
}

func TestEmailNotifierNeedsCredentials(t *testing.T) {
	e := NewEmailNotifier(SMTPConfig{Host: "smtp.example.com", Port: "587"})
	assert.Error(t, e.Notify(context.Background(), store.ContactSubmission{}))
}

type fakeBot struct {
	sent []tgbotapi.Chattable
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func TestTelegramNotifierEscapesHTML(t *testing.T) {
	bot := &fakeBot{}
	n := &TelegramNotifier{bot: bot, chatID: 42}

	require.NoError(t, n.Notify(context.Background(), store.ContactSubmission{Name: "<b>x</b>", Email: "a@b.c", Message: "1 < 2"}))
	require.Len(t, bot.sent, 1)
	msg := bot.sent[0].(tgbotapi.MessageConfig)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, tgbotapi.ModeHTML, msg.ParseMode)
	assert.Contains(t, msg.Text, "&lt;b&gt;x&lt;/b&gt;")
	assert.Contains(t, msg.Text, "1 &lt; 2")
}
