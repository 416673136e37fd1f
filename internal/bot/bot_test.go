package bot

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bluedeer/waterbill/internal/database"
	"github.com/bluedeer/waterbill/internal/model"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/go-cmp/cmp"
)

const (
	testChatID = int64(1001)
	testUserID = int64(42)
)

// fakeAPI records everything the bot sends.
type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	updates  chan tgbotapi.Update
	stopped  bool
	sendErr  error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{updates: make(chan tgbotapi.Update)}
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return tgbotapi.Message{}, f.sendErr
	}
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

// texts returns the text of every sent or edited message.
func (f *fakeAPI) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, c := range f.sent {
		switch m := c.(type) {
		case tgbotapi.MessageConfig:
			out = append(out, m.Text)
		case tgbotapi.EditMessageTextConfig:
			out = append(out, m.Text)
		}
	}
	return out
}

func (f *fakeAPI) last() string {
	texts := f.texts()
	if len(texts) == 0 {
		return ""
	}
	return texts[len(texts)-1]
}

func (f *fakeAPI) lastMessage(t *testing.T) tgbotapi.MessageConfig {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.sent) - 1; i >= 0; i-- {
		if m, ok := f.sent[i].(tgbotapi.MessageConfig); ok {
			return m
		}
	}
	t.Fatal("no message sent")
	return tgbotapi.MessageConfig{}
}

func (f *fakeAPI) lastEdit(t *testing.T) tgbotapi.EditMessageTextConfig {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.sent) - 1; i >= 0; i-- {
		if m, ok := f.sent[i].(tgbotapi.EditMessageTextConfig); ok {
			return m
		}
	}
	t.Fatal("no message edited")
	return tgbotapi.EditMessageTextConfig{}
}

type fakeRefresher struct {
	err   error
	calls int
}

func (f *fakeRefresher) Run(context.Context) (*model.ScrapeLog, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &model.ScrapeLog{Success: true}, nil
}

func newTestStore(t *testing.T) *database.SQLStore {
	t.Helper()
	ctx := context.Background()
	store, err := database.Open(ctx, filepath.Join(t.TempDir(), "bot.db"), database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() }) //nolint:errcheck
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return store
}

// command builds an update for a command message such as "/property elm".
func command(text string) tgbotapi.Update {
	name, _, _ := strings.Cut(text, " ")
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: testChatID, Type: "private"},
		From:     &tgbotapi.User{ID: testUserID, FirstName: "Ann", UserName: "ann"},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
	}}
}

func text(s string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text: s,
		Chat: &tgbotapi.Chat{ID: testChatID, Type: "private"},
		From: &tgbotapi.User{ID: testUserID, FirstName: "Ann"},
	}}
}

func callback(data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:   "cb1",
		Data: data,
		Message: &tgbotapi.Message{
			MessageID: 7,
			Chat:      &tgbotapi.Chat{ID: testChatID},
		},
	}}
}

var fixedNow = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

func newTestBot(api *fakeAPI, opts ...Option) *Bot {
	return New(api, append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)...)
}

func TestWithoutDatabase(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		command  string
		expected string
	}{
		{"/properties", "⚠️ Database not connected. Please check configuration."},
		{"/property elm", "⚠️ Database not connected. Please check configuration."},
		{"/summary", "⚠️ Database not connected."},
		{"/overdue", "⚠️ Database not connected."},
		{"/recerts", "⚠️ Database not connected."},
		{"/refresh", "⚠️ Database not available. Cannot refresh."},
		{"/add", "⚠️ Database not connected. Cannot add properties."},
		{"/remove", "⚠️ Database not connected. Cannot remove properties."},
		{"/status", "⚙️ *Bot Status*\n\nDatabase: ❌ Not connected\nBot: ✅ Running\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.command, func(t *testing.T) {
			t.Parallel()
			api := newFakeAPI()
			newTestBot(api).HandleUpdate(context.Background(), command(tc.command))
			if got := api.last(); got != tc.expected {
				t.Errorf("got %q, expected %q", got, tc.expected)
			}
		})
	}
}

func TestStart(t *testing.T) {
	t.Parallel()

	t.Run("registers admin user", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		api := newFakeAPI()
		newTestBot(api, WithStore(store), WithAdmin(testUserID)).
			HandleUpdate(context.Background(), command("/start"))

		msg := api.lastMessage(t)
		if !strings.HasPrefix(msg.Text, "👋 Welcome to Water Bill Tracker, Ann!") {
			t.Errorf("unexpected welcome: %q", msg.Text)
		}
		if !strings.Contains(msg.Text, "*Database:* ✅ Connected") {
			t.Error("expected connected database")
		}
		if msg.ParseMode != tgbotapi.ModeMarkdown {
			t.Errorf("ParseMode = %q", msg.ParseMode)
		}

		ids, err := store.AdminChatIDs(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff([]int64{testUserID}, ids); diff != "" {
			t.Errorf("admin ids mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("without database", func(t *testing.T) {
		t.Parallel()

		api := newFakeAPI()
		newTestBot(api).HandleUpdate(context.Background(), command("/start"))
		if !strings.Contains(api.last(), "*Database:* ⚠️ Not connected") {
			t.Errorf("unexpected welcome: %q", api.last())
		}
	})
}

func TestHelpAndChatID(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	b := newTestBot(api)
	b.HandleUpdate(context.Background(), command("/help"))
	if !strings.HasPrefix(api.last(), "*Water Bill Tracker - Commands*") {
		t.Errorf("unexpected help: %q", api.last())
	}

	b.HandleUpdate(context.Background(), command("/chatid"))
	if strings.Contains(api.last(), `\`) {
		t.Errorf("unexpected escape in %q", api.last())
	}
	for _, want := range []string{"*Chat ID:* `1001`", "*Type:* private", "*Title:* N/A", "`ADMIN_TELEGRAM_ID`"} {
		if !strings.Contains(api.last(), want) {
			t.Errorf("expected %q in %q", want, api.last())
		}
	}
}

func TestUnknownCommandAndTextIgnored(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	b := newTestBot(api)
	b.HandleUpdate(context.Background(), command("/unknown"))
	b.HandleUpdate(context.Background(), text("hello"))
	b.HandleUpdate(context.Background(), tgbotapi.Update{})
	if got := api.texts(); len(got) != 0 {
		t.Errorf("expected no replies, got %q", got)
	}
}

func TestAddConversation(t *testing.T) {
	t.Parallel()

	t.Run("adds pending property", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		store := newTestStore(t)
		api := newFakeAPI()
		b := newTestBot(api, WithStore(store))

		b.HandleUpdate(ctx, command("/add"))
		if !strings.HasPrefix(api.last(), "📍 *Add New Property*") {
			t.Fatalf("unexpected prompt: %q", api.last())
		}

		b.HandleUpdate(ctx, text("12"))
		if got := api.last(); got != "Invalid account number. Please try again." {
			t.Fatalf("got %q", got)
		}

		b.HandleUpdate(ctx, text(" 302913026 "))
		if got := api.last(); got != "✅ Property added with account: `302913026`\n\nUse /refresh to fetch bill data." {
			t.Fatalf("got %q", got)
		}

		p, err := store.GetPropertyByAccount(ctx, "302913026")
		if err != nil {
			t.Fatalf("property not stored: %v", err)
		}
		if p.Address != "Pending lookup: 302913026" || !p.Active {
			t.Errorf("unexpected property: %+v", p)
		}

		// The conversation is over; plain text is ignored again.
		before := len(api.texts())
		b.HandleUpdate(ctx, text("400500600"))
		if len(api.texts()) != before {
			t.Error("expected text after the conversation to be ignored")
		}
	})

	t.Run("duplicate account", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		store := newTestStore(t)
		if err := store.AddProperty(ctx, &model.Property{Address: "3040 ALVINA", AccountNumber: "302913026"}); err != nil {
			t.Fatal(err)
		}
		api := newFakeAPI()
		b := newTestBot(api, WithStore(store))

		b.HandleUpdate(ctx, command("/add"))
		b.HandleUpdate(ctx, text("302913026"))
		if got := api.last(); got != "This account is already being tracked:\n3040 ALVINA" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("cancel", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		store := newTestStore(t)
		api := newFakeAPI()
		b := newTestBot(api, WithStore(store))

		b.HandleUpdate(ctx, command("/add"))
		b.HandleUpdate(ctx, command("/cancel"))
		if got := api.last(); got != "Operation cancelled." {
			t.Errorf("got %q", got)
		}
		b.HandleUpdate(ctx, text("302913026"))
		if _, err := store.GetPropertyByAccount(ctx, "302913026"); !errors.Is(err, database.ErrNotFound) {
			t.Errorf("expected no property after cancel, got %v", err)
		}
	})

	t.Run("another command ends the conversation", func(t *testing.T) {
		t.Parallel()

		api := newFakeAPI()
		b := newTestBot(api, WithStore(newTestStore(t)))
		b.HandleUpdate(context.Background(), command("/add"))
		b.HandleUpdate(context.Background(), command("/help"))
		if b.isAdding(testChatID) {
			t.Error("expected /help to end the add conversation")
		}
	})
}

func TestRemoveFlow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)
	long := &model.Property{
		Address:       "12345 VERY LONG STREET NAME BOULEVARD, Warren, MI 48091",
		AccountNumber: "100200300",
	}
	if err := store.AddProperty(ctx, long); err != nil {
		t.Fatal(err)
	}

	api := newFakeAPI()
	b := newTestBot(api, WithStore(store))

	b.HandleUpdate(ctx, command("/remove"))
	msg := api.lastMessage(t)
	if msg.Text != "🗑️ *Remove Property*\n\nSelect the property you want to remove:" {
		t.Fatalf("unexpected prompt: %q", msg.Text)
	}
	keyboard, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok {
		t.Fatalf("expected inline keyboard, got %T", msg.ReplyMarkup)
	}
	if len(keyboard.InlineKeyboard) != 2 {
		t.Fatalf("expected property row and cancel row, got %d rows", len(keyboard.InlineKeyboard))
	}
	button := keyboard.InlineKeyboard[0][0]
	if button.Text != "12345 VERY LONG STREET NAME BOULEVARD, W..." {
		t.Errorf("unexpected label %q", button.Text)
	}
	if button.CallbackData == nil || *button.CallbackData != "remove_prop_1" {
		t.Fatalf("unexpected callback data %v", button.CallbackData)
	}

	b.HandleUpdate(ctx, callback(*button.CallbackData))
	edit := api.lastEdit(t)
	if !strings.HasPrefix(edit.Text, "⚠️ *Confirm Removal*") || !strings.Contains(edit.Text, "*Account:* `100200300`") {
		t.Errorf("unexpected confirmation: %q", edit.Text)
	}
	if edit.ReplyMarkup == nil || *edit.ReplyMarkup.InlineKeyboard[0][0].CallbackData != "confirm_remove_1" {
		t.Fatal("expected confirm button")
	}

	b.HandleUpdate(ctx, callback("confirm_remove_1"))
	if got := api.lastEdit(t).Text; !strings.HasPrefix(got, "✅ *Property Removed*") {
		t.Errorf("unexpected result: %q", got)
	}

	props, err := store.ListActiveProperties(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(props) != 0 {
		t.Errorf("expected property to be deactivated, %d active", len(props))
	}

	// A second tap on the same button reports the removal again.
	b.HandleUpdate(ctx, callback("confirm_remove_1"))
	if got := api.lastEdit(t).Text; !strings.HasPrefix(got, "✅ *Property Removed*") {
		t.Errorf("unexpected result for repeated removal: %q", got)
	}

	if len(api.requests) < 3 {
		t.Errorf("expected every callback to be answered, got %d requests", len(api.requests))
	}

	t.Run("empty list", func(t *testing.T) {
		b.HandleUpdate(ctx, command("/remove"))
		if got := api.last(); got != "No properties to remove.\nUse /add to add properties first." {
			t.Errorf("got %q", got)
		}
	})

	t.Run("cancel and missing property", func(t *testing.T) {
		b.HandleUpdate(ctx, callback("remove_cancel"))
		if got := api.lastEdit(t).Text; got != "Operation cancelled." {
			t.Errorf("got %q", got)
		}
		b.HandleUpdate(ctx, callback("remove_prop_999"))
		if got := api.lastEdit(t).Text; got != "❌ Property not found." {
			t.Errorf("got %q", got)
		}
		b.HandleUpdate(ctx, callback("confirm_remove_abc"))
		if got := api.lastEdit(t).Text; got != "❌ Property not found." {
			t.Errorf("got %q", got)
		}
	})
}

func TestButtonLabel(t *testing.T) {
	t.Parallel()

	if got := buttonLabel("3040 ALVINA"); got != "3040 ALVINA" {
		t.Errorf("got %q", got)
	}
	exact := strings.Repeat("a", 40)
	if got := buttonLabel(exact); got != exact {
		t.Errorf("40 characters should not be truncated, got %q", got)
	}
	if got := buttonLabel(strings.Repeat("a", 41)); got != exact+"..." {
		t.Errorf("got %q", got)
	}
}

func TestBillCommands(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)
	p := &model.Property{Address: "3040 ALVINA, Warren, MI", AccountNumber: "302913026"}
	if err := store.AddProperty(ctx, p); err != nil {
		t.Fatal(err)
	}
	due := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	if err := store.InsertBill(ctx, &model.WaterBill{
		PropertyID: p.ID,
		AmountDue:  11697,
		DueDate:    due,
		Status:     model.StatusOverdue,
		ScrapedAt:  fixedNow,
	}); err != nil {
		t.Fatal(err)
	}

	api := newFakeAPI()
	b := newTestBot(api, WithStore(store))

	testCases := []struct {
		command string
		want    []string
	}{
		{"/properties", []string{"*📍 Your Properties:*", "🔴 *3040 ALVINA, Warren, MI*", "Balance: $116.97 | Due: Mar 01, 2025"}},
		{"/summary", []string{"📊 *Bill Summary Dashboard*", "🔴 Overdue: 1", "• 3040 ALVINA, Warren, MI: $116.97"}},
		{"/overdue", []string{"🔴 *Overdue Bills (1)*", "Due: Mar 01, 2025 (9 days ago)", "*Total Overdue: $116.97*"}},
		{"/property alvina", []string{"*3040 ALVINA, Warren, MI*", "*Account:* `302913026`", "$116.97"}},
		{"/status", []string{"Database: ✅ Connected", "Properties Tracked: 1"}},
	}

	for _, tc := range testCases {
		b.HandleUpdate(ctx, command(tc.command))
		got := api.last()
		for _, want := range tc.want {
			if !strings.Contains(got, want) {
				t.Errorf("%s: expected %q in\n%s", tc.command, want, got)
			}
		}
	}

	b.HandleUpdate(ctx, command("/property"))
	if !strings.HasPrefix(api.last(), "Usage: /property <address>") {
		t.Errorf("unexpected usage: %q", api.last())
	}
	b.HandleUpdate(ctx, command("/property nowhere"))
	if !strings.HasPrefix(api.last(), `No property found matching "nowhere".`) {
		t.Errorf("unexpected reply: %q", api.last())
	}
}

func TestStatusShowsLastScrape(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)
	scrape := model.NewScrapeLog(time.Date(2025, time.March, 10, 6, 0, 0, 0, time.UTC))
	if err := store.StartScrape(ctx, scrape); err != nil {
		t.Fatal(err)
	}
	scrape.Success = true
	scrape.CompletedAt = scrape.StartedAt.Add(time.Minute)
	if err := store.FinishScrape(ctx, scrape); err != nil {
		t.Fatal(err)
	}

	api := newFakeAPI()
	newTestBot(api, WithStore(store)).HandleUpdate(ctx, command("/status"))
	for _, want := range []string{"Last Scrape: Mar 10, 2025 06:00", "Scrape Status: ✅ Success"} {
		if !strings.Contains(api.last(), want) {
			t.Errorf("expected %q in %q", want, api.last())
		}
	}
}

func TestRefresh(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		api := newFakeAPI()
		r := &fakeRefresher{}
		newTestBot(api, WithStore(newTestStore(t)), WithRefresher(r)).
			HandleUpdate(context.Background(), command("/refresh"))

		want := []string{"🔄 Fetching latest bill data...\n\nThis may take a moment.", "✅ Bill data updated successfully!"}
		if diff := cmp.Diff(want, api.texts()); diff != "" {
			t.Errorf("replies mismatch (-want +got):\n%s", diff)
		}
		if r.calls != 1 {
			t.Errorf("expected one refresh, got %d", r.calls)
		}
	})

	t.Run("failure", func(t *testing.T) {
		t.Parallel()

		api := newFakeAPI()
		r := &fakeRefresher{err: errors.New("portal down")}
		newTestBot(api, WithStore(newTestStore(t)), WithRefresher(r)).
			HandleUpdate(context.Background(), command("/refresh"))
		if got := api.last(); got != "❌ Update failed: portal down" {
			t.Errorf("got %q", got)
		}
	})
}

func TestRecerts(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	newTestBot(api, WithStore(newTestStore(t))).HandleUpdate(context.Background(), command("/recerts"))
	if got := api.last(); got != "No Section 8 tenants with lease dates found." {
		t.Errorf("got %q", got)
	}
}

func TestNotify(t *testing.T) {
	t.Parallel()

	t.Run("sends test message to the user", func(t *testing.T) {
		t.Parallel()

		api := newFakeAPI()
		newTestBot(api).HandleUpdate(context.Background(), command("/notify"))

		api.mu.Lock()
		first := api.sent[0].(tgbotapi.MessageConfig)
		api.mu.Unlock()
		if first.ChatID != testUserID {
			t.Errorf("test message sent to %d, expected %d", first.ChatID, testUserID)
		}
		if !strings.Contains(first.Text, "`42`") {
			t.Errorf("expected user id in %q", first.Text)
		}
		if got := api.last(); got != "✅ Test notification sent!" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("send failure is reported", func(t *testing.T) {
		t.Parallel()

		api := newFakeAPI()
		api.sendErr = errors.New("blocked")
		b := newTestBot(api)
		b.HandleUpdate(context.Background(), command("/notify"))
		if got := api.texts(); len(got) != 0 {
			t.Errorf("expected nothing delivered, got %q", got)
		}
	})
}

func TestRun(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	b := newTestBot(api)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	api.updates <- command("/help")
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	if !api.stopped {
		t.Error("expected polling to stop")
	}
	if len(api.requests) == 0 {
		t.Fatal("expected the command menu to be registered")
	}
	menu, ok := api.requests[0].(tgbotapi.SetMyCommandsConfig)
	if !ok {
		t.Fatalf("unexpected first request %T", api.requests[0])
	}
	if len(menu.Commands) != len(Commands()) {
		t.Errorf("registered %d commands, expected %d", len(menu.Commands), len(Commands()))
	}
	if len(api.requests) < 2 {
		t.Fatal("expected pending updates to be dropped")
	}
	drop, ok := api.requests[1].(tgbotapi.DeleteWebhookConfig)
	if !ok || !drop.DropPendingUpdates {
		t.Errorf("expected DeleteWebhookConfig with DropPendingUpdates, got %#v", api.requests[1])
	}
	if len(api.sent) != 1 {
		t.Errorf("expected the /help reply, got %d messages", len(api.sent))
	}
}
