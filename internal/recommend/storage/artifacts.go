// Vitrine - Marketplace Product Recommendations
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrinehq/vitrine

// Package storage persists training artifacts. Each training run produces
// a versioned pair of files:
//
//	embedding_v{N}.gob.gz       gob-encoded weights, gzip-compressed,
//	                            with a SHA-256 checksum in the metadata
//	embedding_v{N}.mapping.json the ID mapping serialized by the caller
//
// The pair is atomic as a unit: loading requires both files of a version
// to exist and verify, otherwise the version is skipped. The store is
// agnostic to the payload types; callers supply the weights value for
// gob encoding and the mapping as opaque JSON bytes.
package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	artifactName  = "embedding"
	weightsSuffix = ".gob.gz"
	mappingSuffix = ".mapping.json"
)

// ErrNoArtifacts is returned by LoadLatest when the store holds no
// artifact versions at all. Callers distinguish this first-boot case
// from corrupted artifacts, which load as other errors.
var ErrNoArtifacts = errors.New("no stored artifacts")

// ArtifactMetadata describes one persisted artifact version.
type ArtifactMetadata struct {
	// Version is the artifact version (monotonically increasing).
	Version int `json:"version"`

	// TrainedAt is when the model finished training.
	TrainedAt time.Time `json:"trained_at"`

	// SavedAt is when the artifact was written.
	SavedAt time.Time `json:"saved_at"`

	// InteractionCount is the number of training rows.
	InteractionCount int `json:"interaction_count"`

	// UserCount is the number of unique users.
	UserCount int `json:"user_count"`

	// ProductCount is the number of unique products.
	ProductCount int `json:"product_count"`

	// Checksum is the SHA-256 checksum of the uncompressed weights.
	Checksum string `json:"checksum"`

	// SizeBytes is the compressed weights size in bytes.
	SizeBytes int64 `json:"size_bytes"`

	// TrainingDurationMS is how long the fit took.
	TrainingDurationMS int64 `json:"training_duration_ms"`
}

// storedFile is the on-disk format of the weights file.
type storedFile struct {
	Metadata       ArtifactMetadata
	CompressedData []byte
}

// Store manages artifact persistence under one directory.
type Store struct {
	baseDir string

	mu     sync.RWMutex
	latest int // highest version seen on disk, 0 when none
}

// NewStore creates an artifact store at baseDir, creating the directory
// if needed and scanning it for existing versions.
func NewStore(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o750); err != nil { //nolint:gosec // 0750 is acceptable for artifact storage
		return nil, fmt.Errorf("create artifact directory: %w", err)
	}

	s := &Store{baseDir: baseDir}

	versions, err := s.versionsOnDisk()
	if err != nil {
		return nil, fmt.Errorf("scan artifacts: %w", err)
	}
	if len(versions) > 0 {
		s.latest = versions[0]
	}
	return s, nil
}

// LatestVersion returns the highest version present on disk, or 0 when
// the store is empty.
func (s *Store) LatestVersion() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// NextVersion returns the version number the next Save should use.
func (s *Store) NextVersion() int {
	return s.LatestVersion() + 1
}

// Save persists a weights payload and its mapping JSON as one artifact
// version. Both files are written to temporaries and renamed into place,
// weights first; a failure on either side leaves no published pair
// behind. Any error here must fail the training run that produced the
// artifact, so memory and disk never diverge across a restart.
//
//nolint:gocritic // hugeParam: meta passed by value is acceptable for this write operation
func (s *Store) Save(ctx context.Context, version int, weights interface{}, mappingJSON []byte, meta ArtifactMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if version <= 0 {
		return fmt.Errorf("invalid artifact version %d", version)
	}
	if len(mappingJSON) == 0 {
		return errors.New("empty mapping payload")
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(weights); err != nil {
		return fmt.Errorf("encode weights: %w", err)
	}
	raw := buf.Bytes()

	hash := sha256.Sum256(raw)
	meta.Checksum = hex.EncodeToString(hash[:])

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(raw); err != nil {
		return fmt.Errorf("compress weights: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return fmt.Errorf("finalize compression: %w", err)
	}

	meta.Version = version
	meta.SavedAt = time.Now()
	meta.SizeBytes = int64(compressed.Len())

	weightsTmp, err := writeTempFile(s.baseDir, "weights-*.tmp", func(f *os.File) error {
		return gob.NewEncoder(f).Encode(storedFile{
			Metadata:       meta,
			CompressedData: compressed.Bytes(),
		})
	})
	if err != nil {
		return fmt.Errorf("write weights: %w", err)
	}

	mappingTmp, err := writeTempFile(s.baseDir, "mapping-*.tmp", func(f *os.File) error {
		_, werr := f.Write(mappingJSON)
		return werr
	})
	if err != nil {
		_ = os.Remove(weightsTmp) //nolint:errcheck // best-effort cleanup of temp file
		return fmt.Errorf("write mapping: %w", err)
	}

	// Publish weights first, mapping second. A crash between the two
	// renames leaves a weights file without its mapping, which LoadLatest
	// treats as absent.
	if err := os.Rename(weightsTmp, s.weightsPath(version)); err != nil {
		_ = os.Remove(weightsTmp) //nolint:errcheck // best-effort cleanup of temp file
		_ = os.Remove(mappingTmp) //nolint:errcheck // best-effort cleanup of temp file
		return fmt.Errorf("publish weights: %w", err)
	}
	if err := os.Rename(mappingTmp, s.mappingPath(version)); err != nil {
		_ = os.Remove(s.weightsPath(version)) //nolint:errcheck // keep the pair both-or-neither
		_ = os.Remove(mappingTmp)             //nolint:errcheck // best-effort cleanup of temp file
		return fmt.Errorf("publish mapping: %w", err)
	}

	if version > s.latest {
		s.latest = version
	}
	return nil
}

// LoadLatest loads the newest complete artifact version, decoding the
// weights into the given target and returning the mapping JSON and
// metadata. Versions with a missing file, checksum mismatch, or decode
// failure are skipped in favor of the next older one. Returns
// ErrNoArtifacts when no versions exist at all.
func (s *Store) LoadLatest(ctx context.Context, weights interface{}) ([]byte, *ArtifactMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions, err := s.versionsOnDisk()
	if err != nil {
		return nil, nil, fmt.Errorf("scan artifacts: %w", err)
	}
	if len(versions) == 0 {
		return nil, nil, ErrNoArtifacts
	}

	var lastErr error
	for _, v := range versions {
		mappingJSON, meta, verr := s.loadVersion(v, weights)
		if verr != nil {
			lastErr = fmt.Errorf("artifact v%d: %w", v, verr)
			continue
		}
		return mappingJSON, meta, nil
	}
	return nil, nil, lastErr
}

// Prune removes artifact pairs older than the newest keep versions.
func (s *Store) Prune(ctx context.Context, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if keep < 1 {
		keep = 1
	}

	versions, err := s.versionsOnDisk()
	if err != nil {
		return fmt.Errorf("scan artifacts: %w", err)
	}
	if len(versions) <= keep {
		return nil
	}

	for _, v := range versions[keep:] {
		_ = os.Remove(s.weightsPath(v)) //nolint:errcheck // best-effort cleanup of old versions
		_ = os.Remove(s.mappingPath(v)) //nolint:errcheck // best-effort cleanup of old versions
	}
	return nil
}

func (s *Store) loadVersion(version int, weights interface{}) ([]byte, *ArtifactMetadata, error) {
	// The mapping read comes first: it is cheap and a missing half of
	// the pair disqualifies the version before any decompression work.
	mappingJSON, err := os.ReadFile(s.mappingPath(version))
	if err != nil {
		return nil, nil, fmt.Errorf("read mapping: %w", err)
	}

	f, err := os.Open(s.weightsPath(version))
	if err != nil {
		return nil, nil, fmt.Errorf("open weights: %w", err)
	}
	defer func() { _ = f.Close() }() //nolint:errcheck // error on close after read is not actionable

	var sf storedFile
	if err := gob.NewDecoder(f).Decode(&sf); err != nil {
		return nil, nil, fmt.Errorf("read weights file: %w", err)
	}

	gzr, err := gzip.NewReader(bytes.NewReader(sf.CompressedData))
	if err != nil {
		return nil, nil, fmt.Errorf("decompress weights: %w", err)
	}
	defer func() { _ = gzr.Close() }() //nolint:errcheck // error on gzip close after read is not actionable

	raw, err := io.ReadAll(gzr)
	if err != nil {
		return nil, nil, fmt.Errorf("read decompressed weights: %w", err)
	}

	hash := sha256.Sum256(raw)
	if got := hex.EncodeToString(hash[:]); got != sf.Metadata.Checksum {
		return nil, nil, fmt.Errorf("checksum mismatch: stored %s, computed %s", sf.Metadata.Checksum, got)
	}

	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(weights); err != nil {
		return nil, nil, fmt.Errorf("decode weights: %w", err)
	}

	meta := sf.Metadata
	return mappingJSON, &meta, nil
}

// versionsOnDisk lists artifact versions found in the directory, newest
// first. Only the weights file is consulted; pair completeness is
// checked at load time.
func (s *Store) versionsOnDisk() ([]int, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, err
	}

	var versions []int
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, weightsSuffix) {
			continue
		}
		base, version := parseArtifactFilename(strings.TrimSuffix(name, weightsSuffix))
		if base != artifactName || version <= 0 {
			continue
		}
		versions = append(versions, version)
	}

	sort.Sort(sort.Reverse(sort.IntSlice(versions)))
	return versions, nil
}

func (s *Store) weightsPath(version int) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("%s_v%d%s", artifactName, version, weightsSuffix))
}

func (s *Store) mappingPath(version int) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("%s_v%d%s", artifactName, version, mappingSuffix))
}

// parseArtifactFilename splits a filename stem like "embedding_v3" into
// its name and version. Returns ("", 0) when the stem does not match.
func parseArtifactFilename(stem string) (string, int) {
	idx := strings.LastIndex(stem, "_v")
	if idx < 1 {
		return "", 0
	}
	version, err := strconv.Atoi(stem[idx+2:])
	if err != nil || version <= 0 {
		return "", 0
	}
	return stem[:idx], version
}

// writeTempFile writes a file via fn into a temporary in dir and returns
// its path. On any failure the temporary is removed.
func writeTempFile(dir, pattern string, fn func(*os.File) error) (string, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", err
	}
	if err := fn(f); err != nil {
		_ = f.Close()           //nolint:errcheck // already failing, close error is secondary
		_ = os.Remove(f.Name()) //nolint:errcheck // best-effort cleanup of temp file
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name()) //nolint:errcheck // best-effort cleanup of temp file
		return "", err
	}
	return f.Name(), nil
}
