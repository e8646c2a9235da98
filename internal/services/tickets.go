package services

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"amx-support-bot/internal/apperrors"
	"amx-support-bot/internal/chat"
	"amx-support-bot/internal/models"
)

const pendingKeyPrefix = "pending_input_"

// TicketService owns the open-ticket registry and the per-user
// pending-input flags. A user identity maps to at most one open ticket;
// opening a second one is rejected without touching the existing state.
//
// Ticket fields are only touched under the service mutex: accessors return
// copies, and state moves through SetState, SetStateIf and Close. The
// timeout handler runs on the cache's janitor goroutine, so it must not
// share ticket memory with the dialog goroutine.
//
// Pending-input flags live in a TTL cache: when a flag expires before the
// user's message arrives, the registered timeout handler fires so the
// conversation can fall back instead of misreading a later message.
type TicketService struct {
	logger *logrus.Logger

	mu      sync.Mutex
	tickets map[int64]*models.Ticket

	pending   *cache.Cache
	timeoutMu sync.Mutex
	onTimeout func(userID int64, kind models.PendingInput)
}

// NewTicketService creates a ticket service whose pending-input flags
// expire after inputTimeout.
func NewTicketService(inputTimeout time.Duration, logger *logrus.Logger) *TicketService {
	cleanup := inputTimeout / 6
	if cleanup < time.Second {
		cleanup = time.Second
	}

	s := &TicketService{
		logger:  logger,
		tickets: make(map[int64]*models.Ticket),
		pending: cache.New(inputTimeout, cleanup),
	}

	s.pending.OnEvicted(s.pendingEvicted)
	return s
}

// Open creates a ticket for the user in the greeting state. A user who
// already holds a live ticket gets a DuplicateTicketError and no change.
func (s *TicketService) Open(userID int64, username string) (models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tickets[userID]; exists {
		return models.Ticket{}, &apperrors.DuplicateTicketError{UserID: userID}
	}

	ticket := &models.Ticket{
		UserID:   userID,
		Username: username,
		State:    models.TicketGreeting,
		OpenedAt: time.Now(),
	}
	s.tickets[userID] = ticket

	s.logger.Debugf("Opened ticket for user %d", userID)
	return *ticket, nil
}

// Get returns a copy of the user's open ticket, if any
func (s *TicketService) Get(userID int64) (models.Ticket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ticket, ok := s.tickets[userID]
	if !ok {
		return models.Ticket{}, false
	}
	return *ticket, true
}

// SetState moves the user's open ticket to the given state
func (s *TicketService) SetState(userID int64, state models.TicketState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ticket, ok := s.tickets[userID]; ok {
		s.logger.Debugf("Ticket for user %d: %s -> %s", userID, ticket.State, state)
		ticket.State = state
	}
}

// SetStateIf moves the user's open ticket from one state to another only if
// it currently holds from, and reports whether the transition happened. The
// timeout handler uses this to tell a real expiry from a flag that was
// consumed while the eviction was in flight.
func (s *TicketService) SetStateIf(userID int64, from, to models.TicketState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	ticket, ok := s.tickets[userID]
	if !ok || ticket.State != from {
		return false
	}

	s.logger.Debugf("Ticket for user %d: %s -> %s", userID, from, to)
	ticket.State = to
	return true
}

// AttachChannel records the private channel owned by the user's ticket
func (s *TicketService) AttachChannel(userID int64, ch chat.Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ticket, ok := s.tickets[userID]; ok {
		ticket.Channel = ch
	}
}

// Close removes the user's ticket from the registry and returns a copy for
// channel teardown. Closing frees the identity for a fresh greeting.
func (s *TicketService) Close(userID int64) (models.Ticket, bool) {
	s.mu.Lock()
	var closed models.Ticket
	ticket, ok := s.tickets[userID]
	if ok {
		ticket.State = models.TicketClosed
		closed = *ticket
		delete(s.tickets, userID)
	}
	s.mu.Unlock()

	if ok {
		s.ClearPending(userID)
		s.logger.Debugf("Closed ticket for user %d", userID)
	}
	return closed, ok
}

// OpenCount returns the number of live tickets
func (s *TicketService) OpenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.tickets)
}

// SetPending marks which kind of freeform message is expected next from
// the user. The flag expires after the configured input timeout.
func (s *TicketService) SetPending(userID int64, kind models.PendingInput) {
	s.pending.Set(pendingKey(userID), kind, cache.DefaultExpiration)
}

// Pending returns the user's pending-input flag
func (s *TicketService) Pending(userID int64) models.PendingInput {
	if value, found := s.pending.Get(pendingKey(userID)); found {
		if kind, ok := value.(models.PendingInput); ok {
			return kind
		}
	}
	return models.PendingNone
}

// ClearPending consumes the user's pending-input flag. Callers must move
// the ticket out of its awaiting state first: the eviction hook also runs
// on explicit deletion and uses the ticket state to tell a consumed flag
// from a timed-out one.
func (s *TicketService) ClearPending(userID int64) {
	s.pending.Delete(pendingKey(userID))
}

// OnInputTimeout registers the handler invoked when a pending-input flag
// expires (or is deleted; see ClearPending).
func (s *TicketService) OnInputTimeout(fn func(userID int64, kind models.PendingInput)) {
	s.timeoutMu.Lock()
	s.onTimeout = fn
	s.timeoutMu.Unlock()
}

// pendingEvicted dispatches cache evictions to the timeout handler
func (s *TicketService) pendingEvicted(key string, value interface{}) {
	userID, err := strconv.ParseInt(strings.TrimPrefix(key, pendingKeyPrefix), 10, 64)
	if err != nil {
		s.logger.Warnf("Unparsable pending-input key %q", key)
		return
	}

	kind, ok := value.(models.PendingInput)
	if !ok {
		return
	}

	s.timeoutMu.Lock()
	fn := s.onTimeout
	s.timeoutMu.Unlock()

	if fn != nil {
		fn(userID, kind)
	}
}

// pendingKey builds the cache key for a user's pending-input flag
func pendingKey(userID int64) string {
	return fmt.Sprintf("%s%d", pendingKeyPrefix, userID)
}
