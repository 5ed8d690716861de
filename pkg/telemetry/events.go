package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event represents a telemetry event in the Modulaur extension host.
// Events feed the plugin-status surface: every load failure, registry
// override, and resolution miss is observable without log scraping.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type is the event type.
	Type string `json:"type"`

	// Source identifies where the event originated.
	Source string `json:"source"`

	// ExtensionID is the associated extension ID, if applicable.
	ExtensionID string `json:"extension_id,omitempty"`

	// Kind is the associated registry kind, if applicable.
	Kind string `json:"kind,omitempty"`

	// TypeID is the associated type identifier, if applicable.
	TypeID string `json:"type_id,omitempty"`

	// Message is a human-readable event message.
	Message string `json:"message"`

	// Level is the event severity level (info, warning, error).
	Level string `json:"level"`

	// Data contains additional event-specific data.
	Data map[string]interface{} `json:"data,omitempty"`
}

// EventType constants for common event types.
const (
	EventTypeScanCompleted     = "manifest.scan_completed"
	EventTypeManifestSkipped   = "manifest.skipped"
	EventTypeExtensionLoaded   = "extension.loaded"
	EventTypeExtensionFailed   = "extension.failed"
	EventTypeExtensionReloaded = "extension.reloaded"
	EventTypeExtensionUnloaded = "extension.unloaded"
	EventTypeRegistryOverride  = "registry.override"
	EventTypeResolutionMiss    = "resolution.miss"
	EventTypeError             = "error"
)

// EventLevel constants for event severity.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// EventSubscriber is a function that handles events.
type EventSubscriber func(event Event)

// EventFilter determines if an event should be processed.
type EventFilter func(event Event) bool

// EventPublisher manages event publishing and subscriptions.
type EventPublisher struct {
	config      EventsConfig
	buffer      chan Event
	subscribers []subscriberEntry
	filters     []EventFilter
	wg          sync.WaitGroup
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
}

type subscriberEntry struct {
	subscriber EventSubscriber
	filter     EventFilter
}

// NewEventPublisher creates a new event publisher with the given configuration.
func NewEventPublisher(cfg EventsConfig) (*EventPublisher, error) {
	if !cfg.Enabled {
		return &EventPublisher{config: cfg}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())

	ep := &EventPublisher{
		config:      cfg,
		buffer:      make(chan Event, cfg.BufferSize),
		subscribers: make([]subscriberEntry, 0),
		filters:     make([]EventFilter, 0),
		ctx:         ctx,
		cancel:      cancel,
	}

	// Start the event processing goroutine
	if cfg.EnableAsync {
		ep.wg.Add(1)
		go ep.processEvents()
	}

	// Start the periodic flush goroutine
	if cfg.FlushInterval > 0 {
		ep.wg.Add(1)
		go ep.periodicFlush()
	}

	return ep, nil
}

// Publish publishes an event to all subscribers.
func (ep *EventPublisher) Publish(event Event) error {
	if !ep.config.Enabled {
		return nil
	}

	// Set ID and timestamp if not already set
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	// Apply global filters
	ep.mu.RLock()
	for _, filter := range ep.filters {
		if !filter(event) {
			ep.mu.RUnlock()
			return nil // Event filtered out
		}
	}
	ep.mu.RUnlock()

	// Send to buffer if async, otherwise process immediately
	if ep.config.EnableAsync {
		select {
		case ep.buffer <- event:
			return nil
		case <-ep.ctx.Done():
			return fmt.Errorf("event publisher stopped")
		default:
			// Buffer full, drop event or log warning
			return fmt.Errorf("event buffer full, event dropped")
		}
	}

	// Synchronous publishing
	ep.deliverEvent(event)
	return nil
}

// PublishScanCompleted publishes a manifest scan completed event.
func (ep *EventPublisher) PublishScanCompleted(discovered, skipped int, duration time.Duration) error {
	return ep.Publish(Event{
		Type:    EventTypeScanCompleted,
		Source:  "manifest_store",
		Message: fmt.Sprintf("Manifest scan completed: %d discovered, %d skipped", discovered, skipped),
		Level:   EventLevelInfo,
		Data: map[string]interface{}{
			"discovered": discovered,
			"skipped":    skipped,
			"duration":   duration.Seconds(),
		},
	})
}

// PublishManifestSkipped publishes a skipped manifest directory event.
func (ep *EventPublisher) PublishManifestSkipped(dir, reason string) error {
	return ep.Publish(Event{
		Type:    EventTypeManifestSkipped,
		Source:  "manifest_store",
		Message: fmt.Sprintf("Manifest in %s skipped: %s", dir, reason),
		Level:   EventLevelWarning,
		Data: map[string]interface{}{
			"dir":    dir,
			"reason": reason,
		},
	})
}

// PublishExtensionLoaded publishes an extension loaded event.
func (ep *EventPublisher) PublishExtensionLoaded(extensionID, version string, units int) error {
	return ep.Publish(Event{
		Type:        EventTypeExtensionLoaded,
		Source:      "loader",
		ExtensionID: extensionID,
		Message:     fmt.Sprintf("Extension %s@%s loaded with %d units", extensionID, version, units),
		Level:       EventLevelInfo,
		Data: map[string]interface{}{
			"version": version,
			"units":   units,
		},
	})
}

// PublishExtensionFailed publishes an extension load failure event.
func (ep *EventPublisher) PublishExtensionFailed(extensionID, reason string) error {
	return ep.Publish(Event{
		Type:        EventTypeExtensionFailed,
		Source:      "loader",
		ExtensionID: extensionID,
		Message:     fmt.Sprintf("Extension %s failed to load: %s", extensionID, reason),
		Level:       EventLevelError,
		Data: map[string]interface{}{
			"reason": reason,
		},
	})
}

// PublishExtensionReloaded publishes an extension reloaded event.
func (ep *EventPublisher) PublishExtensionReloaded(extensionID string) error {
	return ep.Publish(Event{
		Type:        EventTypeExtensionReloaded,
		Source:      "loader",
		ExtensionID: extensionID,
		Message:     fmt.Sprintf("Extension %s reloaded", extensionID),
		Level:       EventLevelInfo,
	})
}

// PublishExtensionUnloaded publishes an extension unloaded event.
func (ep *EventPublisher) PublishExtensionUnloaded(extensionID string, units int) error {
	return ep.Publish(Event{
		Type:        EventTypeExtensionUnloaded,
		Source:      "loader",
		ExtensionID: extensionID,
		Message:     fmt.Sprintf("Extension %s unloaded (%d units removed)", extensionID, units),
		Level:       EventLevelInfo,
		Data: map[string]interface{}{
			"units": units,
		},
	})
}

// PublishRegistryOverride publishes a registry override event. The
// collision value distinguishes an intentional builtin override from an
// accidental collision between two unrelated extensions.
func (ep *EventPublisher) PublishRegistryOverride(kind, typeID, oldSource, newSource, collision string) error {
	return ep.Publish(Event{
		Type:    EventTypeRegistryOverride,
		Source:  "registry",
		Kind:    kind,
		TypeID:  typeID,
		Message: fmt.Sprintf("Registry entry %s/%s from %s replaced by %s", kind, typeID, oldSource, newSource),
		Level:   EventLevelWarning,
		Data: map[string]interface{}{
			"old_source": oldSource,
			"new_source": newSource,
			"collision":  collision,
		},
	})
}

// PublishResolutionMiss publishes a resolution miss event.
func (ep *EventPublisher) PublishResolutionMiss(kind, typeID, reason string) error {
	return ep.Publish(Event{
		Type:    EventTypeResolutionMiss,
		Source:  "resolver",
		Kind:    kind,
		TypeID:  typeID,
		Message: fmt.Sprintf("Type %s/%s did not resolve: %s", kind, typeID, reason),
		Level:   EventLevelWarning,
		Data: map[string]interface{}{
			"reason": reason,
		},
	})
}

// Subscribe adds a new event subscriber.
func (ep *EventPublisher) Subscribe(subscriber EventSubscriber, filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.subscribers = append(ep.subscribers, subscriberEntry{
		subscriber: subscriber,
		filter:     filter,
	})
}

// AddFilter adds a global event filter.
func (ep *EventPublisher) AddFilter(filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.filters = append(ep.filters, filter)
}

// processEvents processes events from the buffer asynchronously.
func (ep *EventPublisher) processEvents() {
	defer ep.wg.Done()

	batch := make([]Event, 0, ep.config.MaxBatchSize)

	for {
		select {
		case event := <-ep.buffer:
			batch = append(batch, event)

			// Flush batch if it reaches max size
			if len(batch) >= ep.config.MaxBatchSize {
				ep.flushBatch(batch)
				batch = make([]Event, 0, ep.config.MaxBatchSize)
			}

		case <-ep.ctx.Done():
			// Flush remaining events before shutting down
			if len(batch) > 0 {
				ep.flushBatch(batch)
			}
			return
		}
	}
}

// periodicFlush flushes events periodically.
func (ep *EventPublisher) periodicFlush() {
	defer ep.wg.Done()

	ticker := time.NewTicker(ep.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// Trigger flush by draining buffer
			// This is handled by the processEvents goroutine
		case <-ep.ctx.Done():
			return
		}
	}
}

// flushBatch delivers a batch of events to subscribers.
func (ep *EventPublisher) flushBatch(events []Event) {
	for _, event := range events {
		ep.deliverEvent(event)
	}
}

// deliverEvent delivers an event to all subscribers.
func (ep *EventPublisher) deliverEvent(event Event) {
	ep.mu.RLock()
	defer ep.mu.RUnlock()

	for _, entry := range ep.subscribers {
		// Apply subscriber-specific filter
		if entry.filter != nil && !entry.filter(event) {
			continue
		}

		// Call subscriber in a goroutine to avoid blocking
		go entry.subscriber(event)
	}
}

// Shutdown gracefully shuts down the event publisher.
func (ep *EventPublisher) Shutdown(ctx context.Context) error {
	if !ep.config.Enabled {
		return nil
	}

	// Signal shutdown
	ep.cancel()

	// Wait for processing to complete with timeout
	done := make(chan struct{})
	go func() {
		ep.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event publisher shutdown timeout")
	}
}

// Common event filters.

// FilterByLevel creates a filter that only allows events of a specific level or higher.
func FilterByLevel(minLevel string) EventFilter {
	levels := map[string]int{
		EventLevelInfo:    0,
		EventLevelWarning: 1,
		EventLevelError:   2,
	}

	minLevelValue := levels[minLevel]

	return func(event Event) bool {
		return levels[event.Level] >= minLevelValue
	}
}

// FilterByType creates a filter that only allows events of specific types.
func FilterByType(types ...string) EventFilter {
	typeSet := make(map[string]bool)
	for _, t := range types {
		typeSet[t] = true
	}

	return func(event Event) bool {
		return typeSet[event.Type]
	}
}

// FilterByExtension creates a filter that only allows events for a specific extension.
func FilterByExtension(extensionID string) EventFilter {
	return func(event Event) bool {
		return event.ExtensionID == extensionID
	}
}

// FilterByKind creates a filter that only allows events for a specific registry kind.
func FilterByKind(kind string) EventFilter {
	return func(event Event) bool {
		return event.Kind == kind
	}
}
