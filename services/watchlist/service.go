package watchlist

import (
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"heimdall/internal/jsonstore"
	"heimdall/models"
)

var (
	ErrStorageDirRequired = errors.New("storage directory not provided")
	ErrUsernameRequired   = errors.New("username is required")
	ErrIDRequired         = errors.New("item id is required")
)

// FileName is the watchlist document inside the data dir.
const FileName = "watchlist.json"

// Service persists watchlists keyed by "username:profile".
type Service struct {
	mu     sync.Mutex
	file   *jsonstore.File
	lists  map[string][]models.WatchlistItem
	logger zerolog.Logger
}

// NewService loads watchlist.json from storageDir. An unreadable document is
// logged and replaced by an empty watchlist on the next write.
func NewService(fs afero.Fs, storageDir string, logger zerolog.Logger) (*Service, error) {
	if strings.TrimSpace(storageDir) == "" {
		return nil, ErrStorageDirRequired
	}

	svc := &Service{
		file:   jsonstore.New(fs, filepath.Join(storageDir, FileName)),
		lists:  make(map[string][]models.WatchlistItem),
		logger: logger,
	}
	if _, err := svc.file.Load(&svc.lists); err != nil {
		logger.Warn().Err(err).Str("path", svc.file.Path()).Msg("watchlist unreadable, starting empty")
		svc.lists = make(map[string][]models.WatchlistItem)
	}
	if svc.lists == nil {
		svc.lists = make(map[string][]models.WatchlistItem)
	}
	return svc, nil
}

// List returns the items saved to the profile in insertion order, never nil.
func (s *Service) List(username, profile string) ([]models.WatchlistItem, error) {
	if strings.TrimSpace(username) == "" {
		return nil, ErrUsernameRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := s.lists[models.WatchlistKey(username, profile)]
	out := make([]models.WatchlistItem, len(stored))
	copy(out, stored)
	return out, nil
}

// Add appends item unless an item with the same id is already present.
// It reports whether the item was added.
func (s *Service) Add(username, profile string, item models.WatchlistItem) (bool, error) {
	if strings.TrimSpace(username) == "" {
		return false, ErrUsernameRequired
	}
	if item.ID == 0 {
		return false, ErrIDRequired
	}

	key := models.WatchlistKey(username, profile)

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.lists[key]
	for _, it := range existing {
		if it.ID == item.ID {
			return false, nil
		}
	}

	if item.AddedAt.IsZero() {
		item.AddedAt = time.Now().UTC()
	}
	s.lists[key] = append(existing, item)
	if err := s.file.Save(s.lists); err != nil {
		s.lists[key] = existing
		return false, err
	}
	return true, nil
}

// Remove drops the item with the given id from the profile. Removing an
// absent item is not an error.
func (s *Service) Remove(username, profile string, id int64) error {
	if strings.TrimSpace(username) == "" {
		return ErrUsernameRequired
	}

	key := models.WatchlistKey(username, profile)

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.lists[key]
	if !ok {
		return nil
	}
	kept := make([]models.WatchlistItem, 0, len(existing))
	for _, it := range existing {
		if it.ID != id {
			kept = append(kept, it)
		}
	}
	s.lists[key] = kept
	if err := s.file.Save(s.lists); err != nil {
		s.lists[key] = existing
		return err
	}
	return nil
}

// DeleteProfile removes the whole watchlist of one profile and reports
// whether there was anything to delete.
func (s *Service) DeleteProfile(username, profile string) (bool, error) {
	if strings.TrimSpace(username) == "" {
		return false, ErrUsernameRequired
	}

	key := models.WatchlistKey(username, profile)

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.lists[key]
	if !ok {
		return false, nil
	}
	delete(s.lists, key)
	if err := s.file.Save(s.lists); err != nil {
		s.lists[key] = existing
		return false, err
	}
	return true, nil
}
