package manifest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/modulaur/modulaur/pkg/extension"
	"github.com/modulaur/modulaur/pkg/telemetry"
)

// Skip records one directory a scan passed over and why.
type Skip struct {
	// Dir is the extension directory that was skipped.
	Dir string `json:"dir"`

	// Reason is the human-readable skip reason.
	Reason string `json:"reason"`

	// Err is the underlying classified error, if any.
	Err error `json:"-"`
}

// Store holds the descriptor snapshot produced by the most recent scan.
// Reads never observe a half-finished scan: the snapshot is rebuilt off
// to the side and swapped in under the write lock.
type Store struct {
	roots []string

	logger  *telemetry.Logger
	metrics *telemetry.Metrics
	events  *telemetry.EventPublisher

	mu       sync.RWMutex
	byID     map[string]extension.Descriptor
	skips    []Skip
	lastScan time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the scan logger.
func WithLogger(l *telemetry.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithMetrics sets the scan metrics sink.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithEvents sets the scan event publisher.
func WithEvents(e *telemetry.EventPublisher) Option {
	return func(s *Store) { s.events = e }
}

// NewStore creates a manifest store over the given plugin roots. Roots
// are scanned in order; when two roots contain the same extension ID,
// the later root wins.
func NewStore(roots []string, opts ...Option) *Store {
	s := &Store{
		roots:  append([]string(nil), roots...),
		byID:   make(map[string]extension.Descriptor),
		logger: telemetry.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan walks every root, parses each subdirectory's manifest, and
// atomically replaces the snapshot. Invalid manifests are skipped and
// logged. The only error condition is that no configured root is
// readable at all; a partial scan is a success.
func (s *Store) Scan(ctx context.Context) (int, error) {
	start := time.Now()
	found := make(map[string]extension.Descriptor)
	var skips []Skip
	readable := 0

	for _, root := range s.roots {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		default:
		}

		entries, err := os.ReadDir(root)
		if err != nil {
			s.warn(root, "").WithError(err).Warn("Plugin root is not readable, skipping")
			continue
		}
		readable++

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			dir := filepath.Join(root, entry.Name())

			d, skip := s.scanDir(dir, root)
			if skip != nil {
				if skip.Err != nil {
					skips = append(skips, *skip)
					s.recordSkip(*skip)
				}
				continue
			}

			if prior, ok := found[d.ID]; ok {
				s.warn(root, d.ID).
					WithField("prior_dir", prior.Dir).
					WithField("dir", d.Dir).
					Info("Duplicate extension ID, later root wins")
			}
			found[d.ID] = *d
		}
	}

	if readable == 0 {
		err := extension.NewConfigError("no readable plugin root", nil).
			WithCode(extension.ErrCodeNoRoots)
		if s.metrics != nil {
			s.metrics.RecordScan("error", time.Since(start), 0)
			s.metrics.RecordError(string(extension.ErrorClassConfig))
		}
		return 0, err
	}

	s.mu.Lock()
	s.byID = found
	s.skips = skips
	s.lastScan = time.Now()
	s.mu.Unlock()

	duration := time.Since(start)
	s.logger.WithField("discovered", len(found)).
		WithField("skipped", len(skips)).
		WithField("duration_ms", duration.Milliseconds()).
		Info("Manifest scan completed")
	if s.metrics != nil {
		s.metrics.RecordScan("success", duration, len(found))
	}
	if s.events != nil {
		s.events.PublishScanCompleted(len(found), len(skips), duration)
	}
	return len(found), nil
}

// scanDir parses one candidate extension directory. A nil Skip means a
// valid descriptor; a Skip with nil Err means the directory is not an
// extension at all and is passed over silently.
func (s *Store) scanDir(dir, root string) (*extension.Descriptor, *Skip) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &Skip{Dir: dir, Reason: "no manifest"}
		}
		herr := extension.NewScanError("manifest is not readable", err).
			WithCode(extension.ErrCodeFetch).WithPath(dir)
		return nil, &Skip{Dir: dir, Reason: herr.Message, Err: herr}
	}

	d, err := Parse(data, dir, root)
	if err != nil {
		reason := "invalid manifest"
		var herr *extension.HostError
		if ok := asHostError(err, &herr); ok {
			reason = herr.Message
		}
		return nil, &Skip{Dir: dir, Reason: reason, Err: err}
	}

	entry := filepath.Join(dir, filepath.FromSlash(d.Entry))
	if _, err := os.Stat(entry); err != nil {
		herr := extension.NewScanError(
			fmt.Sprintf("entry %q does not exist", d.Entry), err).
			WithCode(extension.ErrCodeFetch).WithExtension(d.ID).WithPath(dir)
		return nil, &Skip{Dir: dir, Reason: herr.Message, Err: herr}
	}
	return d, nil
}

func (s *Store) recordSkip(skip Skip) {
	s.logger.WithField("dir", skip.Dir).
		WithError(skip.Err).
		Warn("Skipping extension directory: " + skip.Reason)
	if s.metrics != nil {
		s.metrics.RecordScanSkip(skipReasonLabel(skip.Err))
		s.metrics.RecordError(string(extension.ErrorClassScan))
	}
	if s.events != nil {
		s.events.PublishManifestSkipped(skip.Dir, skip.Reason)
	}
}

// skipReasonLabel buckets skip errors into low-cardinality metric labels.
func skipReasonLabel(err error) string {
	var herr *extension.HostError
	if asHostError(err, &herr) && herr.Code != "" {
		return herr.Code
	}
	return "unknown"
}

// Get returns the descriptor for an extension ID from the current
// snapshot.
func (s *Store) Get(id string) (extension.Descriptor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.byID[id]
	return d, ok
}

// All returns the current snapshot sorted by extension ID.
func (s *Store) All() []extension.Descriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]extension.Descriptor, 0, len(s.byID))
	for _, d := range s.byID {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Skipped returns the directories the last scan passed over because of
// invalid manifests.
func (s *Store) Skipped() []Skip {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Skip(nil), s.skips...)
}

// Len returns the number of discovered extensions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Roots returns the configured plugin roots in scan order.
func (s *Store) Roots() []string {
	return append([]string(nil), s.roots...)
}

// LastScan returns when the snapshot was last rebuilt. The zero time
// means no scan has completed yet.
func (s *Store) LastScan() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastScan
}

func (s *Store) warn(root, id string) *telemetry.Logger {
	l := s.logger.WithRoot(root)
	if id != "" {
		l = l.WithField("extension_id", id)
	}
	return l
}

func asHostError(err error, target **extension.HostError) bool {
	return errors.As(err, target)
}
