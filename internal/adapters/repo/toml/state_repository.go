package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bnema/zonecharge/internal/domain"
	"github.com/bnema/zonecharge/internal/ports"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	StatePathKey    = "state.path"
	stateFileMode   = 0o600
	stateDirMode    = 0o700
	stateConfigDir  = ".zonecharge"
	stateFileName   = "state.toml"
	tempFilePattern = ".state-*.toml.tmp"
)

// StateRepository persists device-local client state: the last known fix and
// the profile of the logged-in user.
type StateRepository struct {
	path string
	mu   *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.DeviceStateRepository = (*StateRepository)(nil)

func DefaultStatePath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}

	return filepath.Join(homeDir, stateConfigDir, stateFileName), nil
}

func NewStateRepository(cfg *viper.Viper) (*StateRepository, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	path := cfg.GetString(StatePathKey)
	if path == "" {
		defaultPath, err := DefaultStatePath()
		if err != nil {
			return nil, err
		}
		path = defaultPath
	}

	path, err := normalizePath(path)
	if err != nil {
		return nil, err
	}

	return &StateRepository{path: path, mu: lockForPath(path)}, nil
}

func (r *StateRepository) Path() string {
	return r.path
}

func (r *StateRepository) LoadLastLocation(ctx context.Context) (domain.LocationSample, error) {
	if err := ctx.Err(); err != nil {
		return domain.LocationSample{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return domain.LocationSample{}, err
	}

	sample, ok := fromLocationSchema(file.LastLocation)
	if !ok {
		return domain.LocationSample{}, domain.ErrNoLastLocation
	}

	return sample, nil
}

func (r *StateRepository) SaveLastLocation(ctx context.Context, sample domain.LocationSample) error {
	if !sample.Finite() {
		return fmt.Errorf("save last location: %w", domain.ErrInvalidCoordinates)
	}

	return r.update(ctx, func(file *stateSchema) {
		file.LastLocation = toLocationSchema(sample)
	})
}

func (r *StateRepository) LoadProfile(ctx context.Context) (domain.UserProfile, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.UserProfile{}, false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return domain.UserProfile{}, false, err
	}
	if file.Profile == nil || file.Profile.Username == "" {
		return domain.UserProfile{}, false, nil
	}

	return fromProfileSchema(file.Profile), true, nil
}

func (r *StateRepository) SaveProfile(ctx context.Context, profile domain.UserProfile) error {
	return r.update(ctx, func(file *stateSchema) {
		file.Profile = toProfileSchema(profile)
	})
}

func (r *StateRepository) ClearProfile(ctx context.Context) error {
	return r.update(ctx, func(file *stateSchema) {
		file.Profile = nil
	})
}

func (r *StateRepository) update(ctx context.Context, mutate func(*stateSchema)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return err
	}
	mutate(&file)

	if err := ctx.Err(); err != nil {
		return err
	}

	return r.writeSchema(file)
}

func (r *StateRepository) readSchema() (stateSchema, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			file := stateSchema{}
			file.applyDefaults()
			return file, nil
		}
		return stateSchema{}, fmt.Errorf("read state file: %w", err)
	}

	var file stateSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return stateSchema{}, fmt.Errorf("decode state file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return stateSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func (r *StateRepository) writeSchema(file stateSchema) error {
	file.applyDefaults()

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, stateDirMode); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode state file: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tempFile.Chmod(stateFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp state file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := os.Rename(tempName, r.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	cleanup = false

	return nil
}

func normalizePath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve state path: %w", err)
	}

	return filepath.Clean(absPath), nil
}

// lockForPath shares one lock between repositories opened on the same file.
func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}
