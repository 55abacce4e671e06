package profiles

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"heimdall/internal/jsonstore"
	"heimdall/models"
)

var (
	ErrStorageDirRequired = errors.New("storage directory not provided")
	ErrUsernameRequired   = errors.New("username is required")
	ErrNameRequired       = errors.New("profile name is required")
)

// FileName is the profiles document inside the data dir.
const FileName = "profiles.json"

// Service stores the viewer profiles of each account, keyed by username.
type Service struct {
	mu       sync.RWMutex
	file     *jsonstore.File
	profiles map[string][]models.Profile
}

// NewService loads profiles.json from storageDir.
func NewService(fs afero.Fs, storageDir string) (*Service, error) {
	if strings.TrimSpace(storageDir) == "" {
		return nil, ErrStorageDirRequired
	}

	svc := &Service{
		file:     jsonstore.New(fs, filepath.Join(storageDir, FileName)),
		profiles: make(map[string][]models.Profile),
	}
	if _, err := svc.file.Load(&svc.profiles); err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}
	if svc.profiles == nil {
		svc.profiles = make(map[string][]models.Profile)
	}
	return svc, nil
}

// List returns a copy of the user's profiles, never nil.
func (s *Service) List(username string) []models.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.profiles[username]
	out := make([]models.Profile, len(stored))
	copy(out, stored)
	return out
}

// Replace overwrites the user's profile list.
func (s *Service) Replace(username string, profiles []models.Profile) error {
	if strings.TrimSpace(username) == "" {
		return ErrUsernameRequired
	}

	cleaned := make([]models.Profile, 0, len(profiles))
	for _, p := range profiles {
		p.Name = strings.TrimSpace(p.Name)
		if p.Name == "" {
			return ErrNameRequired
		}
		cleaned = append(cleaned, p)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous, had := s.profiles[username]
	s.profiles[username] = cleaned
	if err := s.file.Save(s.profiles); err != nil {
		if had {
			s.profiles[username] = previous
		} else {
			delete(s.profiles, username)
		}
		return err
	}
	return nil
}
