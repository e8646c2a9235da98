package handlers

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amx-support-bot/internal/chat"
	"amx-support-bot/internal/commands"
	"amx-support-bot/internal/config"
	"amx-support-bot/internal/helpers"
	"amx-support-bot/internal/models"
	"amx-support-bot/internal/services"
)

type sentMessage struct {
	channel  chat.Channel
	text     string
	keyboard [][]string
}

type sentPhoto struct {
	channel chat.Channel
	caption string
}

// fakeGateway records everything the dialog pushes outward. The mutex
// matters: the pending-input timeout handler delivers from the cache's
// janitor goroutine.
type fakeGateway struct {
	mu          sync.Mutex
	sends       []sentMessage
	photos      []sentPhoto
	created     []chat.Channel
	deleted     []chat.Channel
	audit       []string
	escalations []string
}

func (g *fakeGateway) Send(ch chat.Channel, text string, keyboard [][]string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sends = append(g.sends, sentMessage{channel: ch, text: text, keyboard: keyboard})
	return nil
}

func (g *fakeGateway) SendPhoto(ch chat.Channel, png []byte, caption string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.photos = append(g.photos, sentPhoto{channel: ch, caption: caption})
	return nil
}

func (g *fakeGateway) CreatePrivateChannel(userID int64, name string) (chat.Channel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch := chat.Channel{ID: userID, Name: name}
	g.created = append(g.created, ch)
	return ch, nil
}

func (g *fakeGateway) DeleteChannel(ch chat.Channel) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deleted = append(g.deleted, ch)
	return nil
}

func (g *fakeGateway) NotifyAudit(text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.audit = append(g.audit, text)
	return nil
}

func (g *fakeGateway) NotifyEscalation(text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.escalations = append(g.escalations, text)
	return nil
}

func (g *fakeGateway) lastSend(t *testing.T) sentMessage {
	t.Helper()
	g.mu.Lock()
	defer g.mu.Unlock()
	require.NotEmpty(t, g.sends)
	return g.sends[len(g.sends)-1]
}

type fixture struct {
	handler *SupportHandler
	gateway *fakeGateway
	tickets *services.TicketService
	records *services.RecordService
	cfg     *config.Config
}

// newFixture builds a support handler over temp-dir snapshots. The seed
// callback writes fixture files before the record service first loads.
func newFixture(t *testing.T, seed func(cfg *config.Config)) *fixture {
	t.Helper()

	dir := t.TempDir()
	cfg := &config.Config{
		Snapshots: config.SnapshotConfig{
			OrdersFile:       filepath.Join(dir, "orders.json"),
			ReplacementsFile: filepath.Join(dir, "updated_isp.json"),
			LivenessFile:     filepath.Join(dir, "ip_status.json"),
			UpdateFlagFile:   filepath.Join(dir, "function.txt"),
			ProxiesFile:      filepath.Join(dir, "proxies.json"),
		},
		Subscription: config.SubscriptionConfig{
			ValidityDays:       30,
			GraceDays:          25,
			RenewalWarningDays: 5,
		},
		Refresh: config.RefreshConfig{
			Interval:     300 * time.Second,
			LivenessPoll: 5 * time.Second,
			InputTimeout: 60 * time.Second,
		},
	}

	if seed != nil {
		seed(cfg)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	records := services.NewRecordService(cfg, logger)
	tickets := services.NewTicketService(cfg.Refresh.InputTimeout, logger)
	validator := services.NewSubscriptionValidator(records, cfg)
	qrService := services.NewQRService(logger)
	gateway := &fakeGateway{}

	base := NewBaseHandler(records, tickets, validator, qrService, gateway, cfg, logger)
	return &fixture{
		handler: NewSupportHandler(base),
		gateway: gateway,
		tickets: tickets,
		records: records,
		cfg:     cfg,
	}
}

func (f *fixture) say(t *testing.T, text string) {
	t.Helper()
	require.NoError(t, f.handler.Handle(context.Background(), 42, "jordan", text))
}

// openToTopics walks /start then Yes, landing on topic selection
func (f *fixture) openToTopics(t *testing.T) {
	t.Helper()
	f.say(t, commands.Start)
	f.say(t, commands.Yes)
}

func writeFixtureJSON(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
}

func TestStartSendsGreeting(t *testing.T) {
	f := newFixture(t, nil)

	f.say(t, commands.Start)

	ticket, ok := f.tickets.Get(42)
	require.True(t, ok)
	assert.Equal(t, models.TicketGreeting, ticket.State)

	last := f.gateway.lastSend(t)
	assert.Equal(t, msgGreeting, last.text)
	assert.Equal(t, [][]string{{commands.Yes, commands.No}}, last.keyboard)
}

func TestMessageWithoutTicketPromptsStart(t *testing.T) {
	f := newFixture(t, nil)

	f.say(t, "hello?")

	assert.Equal(t, msgUseStart, f.gateway.lastSend(t).text)
	_, ok := f.tickets.Get(42)
	assert.False(t, ok)
}

func TestAcceptCreatesPrivateChannel(t *testing.T) {
	f := newFixture(t, nil)

	f.openToTopics(t)

	require.Len(t, f.gateway.created, 1)
	assert.Equal(t, "jordan-support", f.gateway.created[0].Name)

	ticket, ok := f.tickets.Get(42)
	require.True(t, ok)
	assert.Equal(t, models.TicketTopicSelection, ticket.State)
	assert.Equal(t, "jordan-support", ticket.Channel.Name)

	last := f.gateway.lastSend(t)
	assert.Equal(t, msgChooseTopic, last.text)
	assert.Len(t, last.keyboard, 3)
}

func TestDuplicateStartCreatesNoSecondChannel(t *testing.T) {
	f := newFixture(t, nil)

	f.openToTopics(t)
	f.say(t, commands.Start)

	assert.Equal(t, msgAlreadyOpen, f.gateway.lastSend(t).text)
	assert.Len(t, f.gateway.created, 1)

	ticket, ok := f.tickets.Get(42)
	require.True(t, ok)
	assert.Equal(t, models.TicketTopicSelection, ticket.State)
}

func TestDeclineClosesTicket(t *testing.T) {
	f := newFixture(t, nil)

	f.say(t, commands.Start)
	f.say(t, commands.No)

	assert.Equal(t, msgDeclined, f.gateway.lastSend(t).text)
	_, ok := f.tickets.Get(42)
	assert.False(t, ok)
	assert.Empty(t, f.gateway.created)
}

func TestCheckUpdateWithoutFlag(t *testing.T) {
	f := newFixture(t, nil)

	f.openToTopics(t)
	f.say(t, commands.CheckProxyUpdate)

	assert.Equal(t, msgNoUpdates+"\n"+msgCloseBelow, f.gateway.lastSend(t).text)

	ticket, _ := f.tickets.Get(42)
	assert.Equal(t, models.TicketResolution, ticket.State)
	assert.Equal(t, models.PendingNone, f.tickets.Pending(42))
}

func TestCheckUpdateAsksForOrderID(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config) {
		writeFixtureJSON(t, cfg.Snapshots.UpdateFlagFile, "true")
	})

	f.openToTopics(t)
	f.say(t, commands.CheckProxyUpdate)

	assert.Equal(t, msgUpdateAvailable, f.gateway.lastSend(t).text)

	ticket, _ := f.tickets.Get(42)
	assert.Equal(t, models.TicketAwaitingOrderID, ticket.State)
	assert.Equal(t, models.PendingOrderID, f.tickets.Pending(42))
}

func TestOrderFlowValidOrder(t *testing.T) {
	orderDate := time.Now().AddDate(0, 0, -10).Format("02-01-2006")

	f := newFixture(t, func(cfg *config.Config) {
		writeFixtureJSON(t, cfg.Snapshots.UpdateFlagFile, "true")
		writeFixtureJSON(t, cfg.Snapshots.OrdersFile, `{
			"A100": {
				"name": "Jordan",
				"email": "jordan@example.com",
				"phone": "+8801000000000",
				"ip": "203.0.113.10",
				"order_date": "`+orderDate+`",
				"total_amount": 1200,
				"package": "1 Month - 100Mbps"
			}
		}`)
		writeFixtureJSON(t, cfg.Snapshots.ReplacementsFile, `{
			"1 Month - 100Mbps": {"ip": "203.0.113.80", "user": "amx01", "port": 1088, "password": "secret"}
		}`)
	})

	f.openToTopics(t)
	f.say(t, commands.CheckProxyUpdate)
	f.say(t, "  A100  ")

	require.GreaterOrEqual(t, len(f.gateway.sends), 2)
	details := f.gateway.sends[len(f.gateway.sends)-2]
	assert.Contains(t, details.text, "Valid👌")
	assert.Contains(t, details.text, "Jordan")
	assert.Contains(t, details.text, "203.0.113.80")

	// Replacement endpoint also goes out as a QR code
	require.Len(t, f.gateway.photos, 1)

	// Transcript lands in the audit channel with the normalized query
	require.Len(t, f.gateway.audit, 1)
	assert.Contains(t, f.gateway.audit[0], "A100")

	last := f.gateway.lastSend(t)
	assert.Equal(t, msgProblemSolved, last.text)
	assert.Equal(t, [][]string{{commands.CloseTicket, commands.ProblemNotSolved}}, last.keyboard)

	ticket, _ := f.tickets.Get(42)
	assert.Equal(t, models.TicketResolution, ticket.State)
	assert.Equal(t, models.PendingNone, f.tickets.Pending(42))
}

func TestOrderFlowUnknownOrder(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config) {
		writeFixtureJSON(t, cfg.Snapshots.UpdateFlagFile, "true")
	})

	f.openToTopics(t)
	f.say(t, commands.CheckProxyUpdate)
	f.say(t, "NOPE")

	require.GreaterOrEqual(t, len(f.gateway.sends), 2)
	assert.Equal(t, helpers.MsgOrderNotFound, f.gateway.sends[len(f.gateway.sends)-2].text)
	assert.Empty(t, f.gateway.photos)

	ticket, _ := f.tickets.Get(42)
	assert.Equal(t, models.TicketResolution, ticket.State)
	assert.Equal(t, models.PendingNone, f.tickets.Pending(42))
}

func TestProxyStatusLookup(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config) {
		writeFixtureJSON(t, cfg.Snapshots.LivenessFile, `{"203.0.113.5": "active"}`)
	})

	f.openToTopics(t)
	f.say(t, commands.CheckProxyStatus)

	assert.Equal(t, msgAskProxyIP, f.gateway.lastSend(t).text)
	assert.Equal(t, models.PendingIPAddress, f.tickets.Pending(42))

	f.say(t, "203.0.113.5")

	response := f.gateway.sends[len(f.gateway.sends)-2]
	assert.Contains(t, response.text, "✅ Up")
	assert.Contains(t, response.text, "203.0.113.5")
	assert.Equal(t, models.PendingNone, f.tickets.Pending(42))
}

func TestProxyStatusUnknownAddress(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config) {
		writeFixtureJSON(t, cfg.Snapshots.LivenessFile, `{"203.0.113.5": "active"}`)
	})

	f.openToTopics(t)
	f.say(t, commands.CheckProxyStatus)
	f.say(t, "198.51.100.9")

	assert.Equal(t, helpers.MsgProxyNotFound, f.gateway.sends[len(f.gateway.sends)-2].text)
}

func TestProxyStatusRejectsNonAddressInput(t *testing.T) {
	f := newFixture(t, nil)

	f.openToTopics(t)
	f.say(t, commands.CheckProxyStatus)
	f.say(t, "definitely not an ip")

	assert.Equal(t, helpers.MsgProxyNotFound, f.gateway.sends[len(f.gateway.sends)-2].text)
}

func TestEscalationThenClose(t *testing.T) {
	f := newFixture(t, nil)

	f.openToTopics(t)
	f.say(t, commands.AskQuestion)
	f.say(t, commands.ProblemNotSolved)

	require.Len(t, f.gateway.escalations, 1)
	assert.Contains(t, f.gateway.escalations[0], "jordan")

	ticket, _ := f.tickets.Get(42)
	assert.Equal(t, models.TicketEscalated, ticket.State)
	assert.Equal(t, msgEscalated+"\n"+msgCloseEscalated, f.gateway.lastSend(t).text)

	f.say(t, commands.CloseTicket)

	_, ok := f.tickets.Get(42)
	assert.False(t, ok)
	require.Len(t, f.gateway.deleted, 1)
	assert.Equal(t, "jordan-support", f.gateway.deleted[0].Name)
	assert.Contains(t, f.gateway.audit[len(f.gateway.audit)-1], "closed the ticket")
}

func TestCloseWhileAwaitingInput(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config) {
		writeFixtureJSON(t, cfg.Snapshots.UpdateFlagFile, "true")
	})

	f.openToTopics(t)
	f.say(t, commands.CheckProxyUpdate)
	f.say(t, commands.CloseTicket)

	_, ok := f.tickets.Get(42)
	assert.False(t, ok)
	assert.Equal(t, models.PendingNone, f.tickets.Pending(42))
}

func TestInputTimeoutFallsBackToResolution(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config) {
		writeFixtureJSON(t, cfg.Snapshots.UpdateFlagFile, "true")
	})

	f.openToTopics(t)
	f.say(t, commands.CheckProxyUpdate)

	f.handler.handleInputTimeout(42, models.PendingOrderID)

	ticket, _ := f.tickets.Get(42)
	assert.Equal(t, models.TicketResolution, ticket.State)
	assert.Equal(t, msgTooSlow, f.gateway.lastSend(t).text)
}

func TestTimeoutConcurrentWithIncomingMessage(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config) {
		writeFixtureJSON(t, cfg.Snapshots.UpdateFlagFile, "true")
	})

	// The expiry fires on the cache's janitor goroutine while the user's
	// message is being handled. Exactly one side may win the awaiting
	// state; run under -race.
	for i := 0; i < 50; i++ {
		f.openToTopics(t)
		f.say(t, commands.CheckProxyUpdate)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			f.handler.handleInputTimeout(42, models.PendingOrderID)
		}()
		go func() {
			defer wg.Done()
			_ = f.handler.Handle(context.Background(), 42, "jordan", "A100")
		}()
		wg.Wait()

		ticket, ok := f.tickets.Get(42)
		require.True(t, ok)
		assert.Equal(t, models.TicketResolution, ticket.State)

		f.say(t, commands.CloseTicket)
	}
}

func TestInputTimeoutIgnoredAfterFlagConsumed(t *testing.T) {
	f := newFixture(t, nil)

	f.openToTopics(t)
	f.say(t, commands.AskQuestion)
	before := len(f.gateway.sends)

	// A late eviction for a flag that was already consumed must not move
	// the ticket or message the user.
	f.handler.handleInputTimeout(42, models.PendingOrderID)

	ticket, _ := f.tickets.Get(42)
	assert.Equal(t, models.TicketResolution, ticket.State)
	assert.Len(t, f.gateway.sends, before)
}
