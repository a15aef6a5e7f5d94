package audit

import "time"

// Lifecycle verbs emitted by the observer wrappers.
const (
	VerbPropertyChanged   = "observer.property.changed"
	VerbChangesAccepted   = "observer.changes.accepted"
	VerbChangesRejected   = "observer.changes.rejected"
	VerbMemberAdded       = "observer.collection.added"
	VerbMemberRemoved     = "observer.collection.removed"
	VerbCollectionCleared = "observer.collection.cleared"
)

// EventInput describes the common fields for observer lifecycle events.
type EventInput struct {
	ActorID    string
	UserID     string
	TenantID   string
	ObjectType string
	ObjectID   string
	Channel    string
	Property   string
	OldValue   any
	NewValue   any
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildPropertyChangedEvent constructs a normalized event for one applied
// property mutation, recording the pre- and post-change values in metadata.
func BuildPropertyChangedEvent(input EventInput) Event {
	return buildObserverEvent(VerbPropertyChanged, input)
}

// BuildChangesAcceptedEvent constructs an event marking a commit point.
func BuildChangesAcceptedEvent(input EventInput) Event {
	return buildObserverEvent(VerbChangesAccepted, input)
}

// BuildChangesRejectedEvent constructs an event marking a rollback.
func BuildChangesRejectedEvent(input EventInput) Event {
	return buildObserverEvent(VerbChangesRejected, input)
}

// BuildMemberAddedEvent constructs an event for a collection member addition.
func BuildMemberAddedEvent(input EventInput) Event {
	return buildObserverEvent(VerbMemberAdded, input)
}

// BuildMemberRemovedEvent constructs an event for a collection member removal.
func BuildMemberRemovedEvent(input EventInput) Event {
	return buildObserverEvent(VerbMemberRemoved, input)
}

// BuildCollectionClearedEvent constructs an event for a cleared collection.
func BuildCollectionClearedEvent(input EventInput) Event {
	return buildObserverEvent(VerbCollectionCleared, input)
}

func buildObserverEvent(verb string, input EventInput) Event {
	metadata := cloneMap(input.Metadata)
	if input.OldValue != nil {
		metadata = ensureMetadata(metadata)
		metadata["old_value"] = input.OldValue
	}
	if input.NewValue != nil {
		metadata = ensureMetadata(metadata)
		metadata["new_value"] = input.NewValue
	}
	objectType := input.ObjectType
	if objectType == "" {
		objectType = "observer"
	}
	return Event{
		Verb:       verb,
		ActorID:    input.ActorID,
		UserID:     input.UserID,
		TenantID:   input.TenantID,
		ObjectType: objectType,
		ObjectID:   input.ObjectID,
		Property:   input.Property,
		Channel:    input.Channel,
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func ensureMetadata(metadata map[string]any) map[string]any {
	if metadata == nil {
		return map[string]any{}
	}
	return metadata
}
