// Package watchparty keeps in-memory rooms where members share playback
// events over websockets.
package watchparty

import (
	"context"
	"crypto/rand"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"heimdall/models"
)

var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrMediaRequired    = errors.New("media_type and media_id are required")
	ErrInvalidMediaType = errors.New("media_type must be movie or tv")
)

// Message types relayed between members. Join and leave are emitted by the hub.
const (
	TypePlay  = "play"
	TypePause = "pause"
	TypeSeek  = "seek"
	TypeChat  = "chat"
	TypeJoin  = "join"
	TypeLeave = "leave"
)

const (
	codeLength   = 6
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	outboxSize   = 16

	// Rooms nobody has joined are dropped after emptyRoomTTL.
	emptyRoomTTL   = 10 * time.Minute
	roomSweepEvery = time.Minute
)

// Member is one connected participant. Frames destined for it are queued on
// Outbox; the hub closes Outbox when the member leaves.
type Member struct {
	Name   string
	outbox chan models.PartyMessage
}

// Outbox returns the member's outgoing frame queue.
func (m *Member) Outbox() <-chan models.PartyMessage { return m.outbox }

type room struct {
	info    models.Room
	members map[*Member]struct{}
}

// Hub owns all rooms.
type Hub struct {
	mu     sync.Mutex
	rooms  map[string]*room
	logger zerolog.Logger
	now    func() time.Time
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		rooms:  make(map[string]*room),
		logger: logger,
		now:    time.Now,
	}
}

// Create opens a new room hosted by host.
func (h *Hub) Create(host, mediaType string, mediaID int64, title string) (models.Room, error) {
	mediaType = strings.TrimSpace(mediaType)
	if mediaType == "" || mediaID <= 0 {
		return models.Room{}, ErrMediaRequired
	}
	if mediaType != "movie" && mediaType != "tv" {
		return models.Room{}, ErrInvalidMediaType
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	code := h.newCodeLocked()
	r := &room{
		info: models.Room{
			Code:       code,
			Host:       host,
			MediaType:  mediaType,
			MediaID:    mediaID,
			MediaTitle: strings.TrimSpace(title),
			CreatedAt:  h.now().UTC(),
		},
		members: make(map[*Member]struct{}),
	}
	h.rooms[code] = r
	h.logger.Info().Str("room", code).Str("host", host).Msg("watch party created")
	return r.info, nil
}

// Get returns the room with the given code.
func (h *Hub) Get(code string) (models.Room, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.rooms[strings.ToUpper(code)]
	if !ok {
		return models.Room{}, false
	}
	return r.snapshot(), true
}

// List returns all rooms, oldest first.
func (h *Hub) List() []models.Room {
	h.mu.Lock()
	out := make([]models.Room, 0, len(h.rooms))
	for _, r := range h.rooms {
		out = append(out, r.snapshot())
	}
	h.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Code < out[j].Code
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Join adds a member to the room and announces it to the others.
func (h *Hub) Join(code, name string) (*Member, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.rooms[strings.ToUpper(code)]
	if !ok {
		return nil, ErrRoomNotFound
	}
	m := &Member{Name: name, outbox: make(chan models.PartyMessage, outboxSize)}
	r.members[m] = struct{}{}
	h.broadcastLocked(r, m, models.PartyMessage{Type: TypeJoin, From: name})
	return m, nil
}

// StartCleanup drops rooms that stay empty past their TTL until ctx is done.
func (h *Hub) StartCleanup(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(roomSweepEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.sweep(h.now())
			}
		}
	}()
}

func (h *Hub) sweep(now time.Time) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0
	for code, r := range h.rooms {
		if len(r.members) == 0 && now.Sub(r.info.CreatedAt) > emptyRoomTTL {
			delete(h.rooms, code)
			n++
		}
	}
	if n > 0 {
		h.logger.Debug().Int("rooms", n).Msg("dropped empty watch parties")
	}
	return n
}

// Leave removes the member, announces it, and drops the room once empty.
func (h *Hub) Leave(code string, m *Member) {
	h.mu.Lock()
	defer h.mu.Unlock()

	code = strings.ToUpper(code)
	r, ok := h.rooms[code]
	if !ok {
		return
	}
	if _, member := r.members[m]; !member {
		return
	}
	delete(r.members, m)
	close(m.outbox)

	if len(r.members) == 0 {
		delete(h.rooms, code)
		h.logger.Info().Str("room", code).Msg("watch party closed")
		return
	}
	h.broadcastLocked(r, nil, models.PartyMessage{Type: TypeLeave, From: m.Name})
}

// Broadcast relays a member's frame to every other member of the room.
// Frames with an unknown type are dropped.
func (h *Hub) Broadcast(code string, from *Member, msg models.PartyMessage) error {
	switch msg.Type {
	case TypePlay, TypePause, TypeSeek, TypeChat:
	default:
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.rooms[strings.ToUpper(code)]
	if !ok {
		return ErrRoomNotFound
	}
	if from != nil {
		msg.From = from.Name
	}
	h.broadcastLocked(r, from, msg)
	return nil
}

// broadcastLocked queues msg for every member except skip. Slow members
// lose frames rather than stall the room.
func (h *Hub) broadcastLocked(r *room, skip *Member, msg models.PartyMessage) {
	if msg.SentAt.IsZero() {
		msg.SentAt = h.now().UTC()
	}
	for m := range r.members {
		if m == skip {
			continue
		}
		select {
		case m.outbox <- msg:
		default:
			h.logger.Debug().Str("room", r.info.Code).Str("member", m.Name).Msg("dropping frame for slow member")
		}
	}
}

func (r *room) snapshot() models.Room {
	info := r.info
	info.ParticipantCount = len(r.members)
	return info
}

func (h *Hub) newCodeLocked() string {
	for {
		code := randomCode()
		if _, taken := h.rooms[code]; !taken {
			return code
		}
	}
}

func randomCode() string {
	b := make([]byte, codeLength)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	for i := range b {
		b[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
	}
	return string(b)
}
