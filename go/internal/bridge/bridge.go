// Package bridge delivers match change events to interested clients. It
// merges the push channel (NATS JetStream, fed by the outbox relay)
// with a fallback store poll, so either path alone is enough for a
// client to converge; both together never produce duplicate
// user-visible effects.
package bridge

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/matchdayhq/matchday/go/internal/events"
	"github.com/matchdayhq/matchday/go/internal/models"
)

// Broadcaster fans an applied event out to connected clients of a team.
type Broadcaster interface {
	BroadcastToTeam(teamID string, payload events.MatchEventPayload)
}

// Handler is a per-team subscription callback.
type Handler func(events.MatchEventPayload)

type snapshot struct {
	status    models.MatchStatus
	cancelled bool
}

// Bridge dedups and orders incoming events before fan-out. An event is
// applied only if it changes the locally cached (status, cancelled)
// pair for its match; repeated identical events are dropped silently.
// Within one match the cancelled state has terminal precedence: a stale
// scheduled or confirmed event arriving after a cancellation never
// resurrects the match.
type Bridge struct {
	mu      sync.Mutex
	seen    map[uuid.UUID]snapshot
	subs    map[string]map[int64]Handler
	nextSub int64

	broadcaster Broadcaster
	logger      zerolog.Logger
}

// New creates a bridge. broadcaster may be nil when no websocket
// fan-out is wanted (tests, embedded use).
func New(broadcaster Broadcaster, logger zerolog.Logger) *Bridge {
	return &Bridge{
		seen:        make(map[uuid.UUID]snapshot),
		subs:        make(map[string]map[int64]Handler),
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// Subscribe registers a callback for match events involving teamID.
// Delivery is at-least-once across reconnects; the returned cancel
// function removes the subscription.
func (b *Bridge) Subscribe(teamID string, fn Handler) (cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[teamID] == nil {
		b.subs[teamID] = make(map[int64]Handler)
	}
	b.nextSub++
	id := b.nextSub
	b.subs[teamID][id] = fn

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[teamID], id)
		if len(b.subs[teamID]) == 0 {
			delete(b.subs, teamID)
		}
	}
}

// SubscribedTeams returns the teams with at least one live subscriber.
// The poller reconciles exactly this set against the store.
func (b *Bridge) SubscribedTeams() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	teams := make([]string, 0, len(b.subs))
	for teamID := range b.subs {
		teams = append(teams, teamID)
	}
	return teams
}

// TrackedMatches returns the match ids the bridge has cached state for.
func (b *Bridge) TrackedMatches() []uuid.UUID {
	b.mu.Lock()
	defer b.mu.Unlock()

	ids := make([]uuid.UUID, 0, len(b.seen))
	for id := range b.seen {
		ids = append(ids, id)
	}
	return ids
}

// Apply feeds one event into the bridge, from either channel. It
// reports whether the event changed cached state and was fanned out.
func (b *Bridge) Apply(payload events.MatchEventPayload) bool {
	b.mu.Lock()

	prev, known := b.seen[payload.MatchID]
	next := snapshot{status: payload.Status, cancelled: payload.Cancelled}

	if known && prev == next {
		b.mu.Unlock()
		return false
	}
	if known && prev.cancelled && !next.cancelled {
		// Terminal precedence: out-of-order event from before the
		// cancellation.
		b.mu.Unlock()
		b.logger.Debug().
			Str("match_id", payload.MatchID.String()).
			Str("status", string(payload.Status)).
			Msg("dropping stale event for cancelled match")
		return false
	}

	b.seen[payload.MatchID] = next

	var handlers []Handler
	for _, teamID := range []string{payload.Team1ID, payload.Team2ID} {
		for _, fn := range b.subs[teamID] {
			handlers = append(handlers, fn)
		}
	}
	b.mu.Unlock()

	for _, fn := range handlers {
		fn(payload)
	}
	if b.broadcaster != nil {
		b.broadcaster.BroadcastToTeam(payload.Team1ID, payload)
		b.broadcaster.BroadcastToTeam(payload.Team2ID, payload)
	}

	b.logger.Debug().
		Str("match_id", payload.MatchID.String()).
		Str("status", string(payload.Status)).
		Bool("cancelled", payload.Cancelled).
		Msg("applied match event")
	return true
}

// ApplySnapshot feeds current store state observed by the poller.
func (b *Bridge) ApplySnapshot(m *models.Match) bool {
	return b.Apply(events.SnapshotPayload(m))
}
