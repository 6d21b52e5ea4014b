package sessionstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rcos/rcos-io/internal/domain/attendance"
	"github.com/rcos/rcos-io/internal/repository"
)

type memoryRoom struct {
	room      attendance.Room
	expiresAt time.Time
	pending   map[string]struct{}
}

// Memory is a single-process room store. Expired rooms are dropped when
// they are next touched.
type Memory struct {
	mu    sync.Mutex
	rooms map[string]*memoryRoom
	codes map[string]string
	now   func() time.Time
}

var _ attendance.RoomStore = (*Memory)(nil)

// NewMemory creates an in-memory room store. now may be nil.
func NewMemory(now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{
		rooms: make(map[string]*memoryRoom),
		codes: make(map[string]string),
		now:   now,
	}
}

// live returns the meeting's room, evicting it if expired. Callers hold mu.
func (s *Memory) live(meetingID string) *memoryRoom {
	entry, ok := s.rooms[meetingID]
	if !ok {
		return nil
	}
	if !s.now().Before(entry.expiresAt) {
		s.evict(meetingID, entry)
		return nil
	}
	return entry
}

func (s *Memory) evict(meetingID string, entry *memoryRoom) {
	delete(s.rooms, meetingID)
	if s.codes[entry.room.Code] == meetingID {
		delete(s.codes, entry.room.Code)
	}
}

func (s *Memory) Put(ctx context.Context, room attendance.Room, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ttl <= 0 {
		return fmt.Errorf("%w: ttl must be positive", repository.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.rooms[room.MeetingID]; ok {
		s.evict(room.MeetingID, old)
	}
	s.rooms[room.MeetingID] = &memoryRoom{
		room:      room,
		expiresAt: s.now().Add(ttl),
		pending:   make(map[string]struct{}),
	}
	s.codes[room.Code] = room.MeetingID
	return nil
}

func (s *Memory) Get(ctx context.Context, meetingID string) (*attendance.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.live(meetingID)
	if entry == nil {
		return nil, repository.ErrNotFound
	}
	room := entry.room
	return &room, nil
}

func (s *Memory) LookupCode(ctx context.Context, code string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	meetingID, ok := s.codes[code]
	if !ok {
		return "", repository.ErrNotFound
	}
	entry := s.live(meetingID)
	if entry == nil || entry.room.Code != code {
		return "", repository.ErrNotFound
	}
	return meetingID, nil
}

func (s *Memory) Delete(ctx context.Context, meetingID, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.live(meetingID)
	if entry == nil {
		return repository.ErrNotFound
	}
	if entry.room.Code != code {
		return repository.ErrConflict
	}
	s.evict(meetingID, entry)
	return nil
}

func (s *Memory) MarkPending(ctx context.Context, room attendance.Room, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.live(room.MeetingID)
	if entry == nil || entry.room.Code != room.Code {
		return repository.ErrNotFound
	}
	entry.pending[userID] = struct{}{}
	return nil
}

func (s *Memory) IsPending(ctx context.Context, meetingID, userID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.live(meetingID)
	if entry == nil {
		return false, nil
	}
	_, ok := entry.pending[userID]
	return ok, nil
}

func (s *Memory) ClearPending(ctx context.Context, meetingID, userID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.live(meetingID)
	if entry == nil {
		return false, nil
	}
	if _, ok := entry.pending[userID]; !ok {
		return false, nil
	}
	delete(entry.pending, userID)
	return true, nil
}

// Pending lists the users awaiting verification in a meeting's room.
func (s *Memory) Pending(ctx context.Context, meetingID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.live(meetingID)
	if entry == nil {
		return []string{}, nil
	}
	users := make([]string, 0, len(entry.pending))
	for id := range entry.pending {
		users = append(users, id)
	}
	sort.Strings(users)
	return users, nil
}
