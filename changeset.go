package observer

import (
	"sort"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var changesetJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// ChangeRecord describes one pending, uncommitted property edit.
type ChangeRecord struct {
	Property string `json:"property"`
	Original any    `json:"original"`
	Current  any    `json:"current"`
}

// ChangeSet is a point-in-time export of a wrapper's pending edits, suitable
// for audit payloads or diff displays.
type ChangeSet struct {
	ObjectType string         `json:"object_type"`
	ObjectID   string         `json:"object_id"`
	TakenAt    time.Time      `json:"taken_at"`
	Records    []ChangeRecord `json:"records,omitempty"`
}

// Empty reports whether the set carries no records.
func (cs ChangeSet) Empty() bool {
	return len(cs.Records) == 0
}

// Properties returns the touched property names in record order.
func (cs ChangeSet) Properties() []string {
	out := make([]string, 0, len(cs.Records))
	for _, record := range cs.Records {
		out = append(out, record.Property)
	}
	return out
}

// ToJSON serializes the change set.
func (cs ChangeSet) ToJSON() ([]byte, error) {
	return changesetJSON.Marshal(cs)
}

// ChangeSetFromJSON deserializes a change set previously produced by ToJSON.
func ChangeSetFromJSON(data []byte) (ChangeSet, error) {
	var cs ChangeSet
	if err := changesetJSON.Unmarshal(data, &cs); err != nil {
		return ChangeSet{}, err
	}
	return cs, nil
}

// Changes exports the wrapper's pending edits, sorted by property name.
// Committed properties do not appear. Original values are cloned; current
// values are read live from the entity.
func (w *Wrapper[T]) Changes() ChangeSet {
	cs := ChangeSet{
		ObjectType: w.objectType,
		ObjectID:   w.objectID,
		TakenAt:    time.Now(),
	}
	names := make([]string, 0, len(w.originalValues))
	for name := range w.originalValues {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		current, err := w.Get(name)
		if err != nil {
			continue
		}
		cs.Records = append(cs.Records, ChangeRecord{
			Property: name,
			Original: w.originalValues[name],
			Current:  current,
		})
	}
	return cs
}
