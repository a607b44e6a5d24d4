// Package id generates identifiers for open file handles and anonymous
// in-memory mounts.
//
// Handle IDs are prefixed ULIDs, so they sort by creation time in logs. Data
// keys are prefixed UUIDs; they only need to be unique within one mount table.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// HandleID identifies an open file handle.
type HandleID string

// DataKey identifies an in-memory archive that was mounted without a name.
type DataKey string

const (
	HandlePrefix = "fh"
	DataPrefix   = "data"
)

// Generator produces ULIDs from a shared entropy source.
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the process-wide generator.
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator(rand.Reader)
	})
	return defaultGenerator
}

// NewGenerator creates a generator; tests pass deterministic entropy.
func NewGenerator(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates a new ULID.
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateWithPrefix creates a prefixed ULID string.
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate().String())
}

// NewHandleID generates an ID for a file handle.
func NewHandleID() HandleID {
	return HandleID(Default().GenerateWithPrefix(HandlePrefix))
}

// NewDataKey generates a mount key for an unnamed data buffer.
func NewDataKey() DataKey {
	return DataKey(DataPrefix + ":" + uuid.NewString())
}

func (h HandleID) String() string { return string(h) }
func (k DataKey) String() string  { return string(k) }

// IsDataKey reports whether key was produced by NewDataKey.
func IsDataKey(key string) bool {
	rest, ok := strings.CutPrefix(key, DataPrefix+":")
	if !ok {
		return false
	}
	return uuid.Validate(rest) == nil
}

// Timestamp extracts the creation time of a handle ID.
func Timestamp(h HandleID) (time.Time, error) {
	_, raw, ok := strings.Cut(string(h), "_")
	if !ok {
		return time.Time{}, fmt.Errorf("handle ID %q has no prefix", h)
	}
	parsed, err := ulid.Parse(raw)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
