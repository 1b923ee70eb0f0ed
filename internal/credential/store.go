package credential

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// File permission constants.
const (
	dirPermissions  = 0750
	filePermissions = 0600
)

// Store persists per-device factory reset IDs in a flat JSON document
// mapping device address to hex-encoded credential bytes.
//
// The document format matches what the bridge has always written
// (ensto_devices.json), so existing pairings survive upgrades.
//
// Thread Safety:
//   - All methods are safe for concurrent use. In practice the polling
//     loop touches the store only between sessions.
type Store struct {
	path string

	mu    sync.RWMutex
	creds map[string]string // address -> hex credential

	logger Logger
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NewStore creates a credential store backed by the given file path and
// loads any existing document.
//
// A missing file is a normal first-run condition and yields an empty store.
// A corrupt file is logged and also yields an empty store; losing a cached
// credential only forces a re-pair, whereas refusing to start would take
// every device offline.
//
// Parameters:
//   - path: Filesystem path to the JSON credential document
//   - logger: Receives load/parse warnings, may be nil
//
// Returns:
//   - *Store: Store ready for use, never nil
func NewStore(path string, logger Logger) *Store {
	s := &Store{
		path:   path,
		creds:  make(map[string]string),
		logger: logger,
	}
	s.load()
	return s
}

// load reads the JSON document from disk into memory.
func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logWarn("failed to read credential store, starting empty", "path", s.path, "error", err)
		}
		return
	}

	var creds map[string]string
	if err := json.Unmarshal(data, &creds); err != nil {
		s.logWarn("credential store is corrupt, starting empty", "path", s.path, "error", err)
		return
	}

	s.mu.Lock()
	s.creds = creds
	s.mu.Unlock()
}

// Get returns the stored credential for a device address.
//
// Parameters:
//   - address: Device address as configured (separators preserved)
//
// Returns:
//   - []byte: Credential bytes, nil if absent
//   - bool: true if a usable credential was found
func (s *Store) Get(address string) ([]byte, bool) {
	s.mu.RLock()
	hexCred, ok := s.creds[address]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}

	cred, err := hex.DecodeString(hexCred)
	if err != nil {
		s.logWarn("stored credential is not valid hex, ignoring", "address", address)
		return nil, false
	}
	if allZero(cred) {
		// An all-zero credential is never valid; treat as not obtained.
		return nil, false
	}
	return cred, true
}

// Put stores a credential for a device address and rewrites the document.
//
// All-zero credentials are rejected: they mean the device was not in
// pairing mode, not that a credential was obtained.
//
// Parameters:
//   - address: Device address as configured
//   - cred: Credential bytes read from the device
//
// Returns:
//   - error: If the credential is invalid or the document cannot be written
func (s *Store) Put(address string, cred []byte) error {
	if len(cred) == 0 || allZero(cred) {
		return ErrInvalidCredential
	}

	s.mu.Lock()
	s.creds[address] = hex.EncodeToString(cred)
	snapshot := make(map[string]string, len(s.creds))
	for k, v := range s.creds {
		snapshot[k] = v
	}
	s.mu.Unlock()

	return s.save(snapshot)
}

// save rewrites the whole document. Volume is a few entries, so no
// partial-update handling is needed.
func (s *Store) save(creds map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), dirPermissions); err != nil {
		return fmt.Errorf("%w: creating directory: %w", ErrStorage, err)
	}

	data, err := json.MarshalIndent(creds, "", "    ")
	if err != nil {
		return fmt.Errorf("%w: encoding: %w", ErrStorage, err)
	}

	if err := os.WriteFile(s.path, data, filePermissions); err != nil {
		return fmt.Errorf("%w: writing %s: %w", ErrStorage, s.path, err)
	}
	return nil
}

// Count returns the number of stored credentials.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.creds)
}

func (s *Store) logWarn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}

// allZero reports whether every byte in b is zero.
func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
