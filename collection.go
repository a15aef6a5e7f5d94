package observer

import (
	"context"
	"fmt"

	"github.com/goliatone/go-observer/pkg/audit"
	"github.com/google/uuid"
)

// ChangeKind classifies a collection membership notification.
type ChangeKind int

const (
	// ChangeAdded signals a member joined the collection.
	ChangeAdded ChangeKind = iota
	// ChangeRemoved signals a member left the collection.
	ChangeRemoved
	// ChangeReset signals the membership was rebuilt wholesale.
	ChangeReset
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeAdded:
		return "added"
	case ChangeRemoved:
		return "removed"
	case ChangeReset:
		return "reset"
	default:
		return "unknown"
	}
}

// CollectionOption configures a Collection.
type CollectionOption[W Member] func(*collectionConfig[W])

type collectionConfig[W Member] struct {
	mirrorAdd    func(W)
	mirrorRemove func(W)
	mirrorClear  func()
	emitter      *audit.Emitter
	objectID     string
	objectType   string
}

// WithMirror wires one-directional mirroring callbacks into a backing entity
// collection: members added to the wrapper are added to the entity collection,
// removed members are removed, and when the wrapper becomes empty the entity
// collection is cleared.
func WithMirror[W Member](add func(W), remove func(W), clear func()) CollectionOption[W] {
	return func(cfg *collectionConfig[W]) {
		cfg.mirrorAdd = add
		cfg.mirrorRemove = remove
		cfg.mirrorClear = clear
	}
}

// WithCollectionAudit attaches an audit emitter notified on membership changes
// and commit/rollback.
func WithCollectionAudit[W Member](emitter *audit.Emitter, objectType, objectID string) CollectionOption[W] {
	return func(cfg *collectionConfig[W]) {
		cfg.emitter = emitter
		cfg.objectType = objectType
		cfg.objectID = objectID
	}
}

// Collection wraps an observable, ordered, mutable sequence of child wrappers.
// It classifies members into added/removed/modified relative to the baseline
// snapshot taken at the last commit point (construction counts as the initial
// commit) and aggregates the members' own status flags.
type Collection[W Member] struct {
	notifier

	items    []W
	baseline []W

	// Derived partitions, always disjoint, recomputed against baseline on
	// every structural change.
	added    []W
	removed  []W
	modified []W

	membershipListeners []func(ChangeKind, W)

	detach map[W][]func()
	cfg    collectionConfig[W]

	objectID   string
	objectType string
}

// NewCollection constructs a collection wrapper seeded with items. The seed
// membership becomes the baseline.
func NewCollection[W Member](items []W, opts ...CollectionOption[W]) (*Collection[W], error) {
	cfg := collectionConfig[W]{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	c := &Collection[W]{
		detach:     map[W][]func(){},
		cfg:        cfg,
		objectID:   cfg.objectID,
		objectType: cfg.objectType,
	}
	if c.objectID == "" {
		c.objectID = uuid.NewString()
	}
	if c.objectType == "" {
		c.objectType = "collection"
	}
	var zero W
	for _, item := range items {
		if item == zero {
			return nil, ErrNilChild
		}
		c.items = append(c.items, item)
		c.attach(item)
	}
	c.baseline = append([]W(nil), c.items...)
	return c, nil
}

// Items returns a copy of the current membership in order.
func (c *Collection[W]) Items() []W {
	return append([]W(nil), c.items...)
}

// Len returns the current member count.
func (c *Collection[W]) Len() int {
	return len(c.items)
}

// At returns the member at index i.
func (c *Collection[W]) At(i int) (W, error) {
	var zero W
	if i < 0 || i >= len(c.items) {
		return zero, fmt.Errorf("observer: collection index %d out of range [0,%d)", i, len(c.items))
	}
	return c.items[i], nil
}

// AddedItems returns members present now but absent from the baseline.
func (c *Collection[W]) AddedItems() []W {
	return append([]W(nil), c.added...)
}

// RemovedItems returns baseline members absent from the current membership.
func (c *Collection[W]) RemovedItems() []W {
	return append([]W(nil), c.removed...)
}

// ModifiedItems returns surviving members whose own IsChanged flag is set.
func (c *Collection[W]) ModifiedItems() []W {
	return append([]W(nil), c.modified...)
}

// Add appends items to the collection.
func (c *Collection[W]) Add(items ...W) error {
	var zero W
	for _, item := range items {
		if item == zero {
			return ErrNilChild
		}
	}
	for _, item := range items {
		c.items = append(c.items, item)
		c.attach(item)
		if c.cfg.mirrorAdd != nil {
			c.cfg.mirrorAdd(item)
		}
		c.emit(audit.BuildMemberAddedEvent(audit.EventInput{
			ObjectType: c.objectType,
			ObjectID:   c.objectID,
		}))
		c.notifyMembership(ChangeAdded, item)
	}
	c.afterStructuralChange()
	return nil
}

// Remove drops the first occurrence of item, reporting whether it was present.
func (c *Collection[W]) Remove(item W) bool {
	for i, existing := range c.items {
		if existing == item {
			c.removeAt(i)
			c.afterStructuralChange()
			return true
		}
	}
	return false
}

// RemoveAt drops the member at index i.
func (c *Collection[W]) RemoveAt(i int) error {
	if i < 0 || i >= len(c.items) {
		return fmt.Errorf("observer: collection index %d out of range [0,%d)", i, len(c.items))
	}
	c.removeAt(i)
	c.afterStructuralChange()
	return nil
}

// Clear removes every member.
func (c *Collection[W]) Clear() {
	if len(c.items) == 0 {
		return
	}
	for i := len(c.items) - 1; i >= 0; i-- {
		item := c.items[i]
		c.items = c.items[:i]
		c.detachItem(item)
		if c.cfg.mirrorRemove != nil && c.cfg.mirrorClear == nil {
			c.cfg.mirrorRemove(item)
		}
		c.notifyMembership(ChangeRemoved, item)
	}
	if c.cfg.mirrorClear != nil {
		c.cfg.mirrorClear()
	}
	c.emit(audit.BuildCollectionClearedEvent(audit.EventInput{
		ObjectType: c.objectType,
		ObjectID:   c.objectID,
	}))
	c.afterStructuralChange()
}

// IsChanged reports whether any partition is non-empty.
func (c *Collection[W]) IsChanged() bool {
	return len(c.added) > 0 || len(c.removed) > 0 || len(c.modified) > 0
}

// HasErrors reports whether any current member holds validation errors.
func (c *Collection[W]) HasErrors() bool {
	for _, item := range c.items {
		if item.HasErrors() {
			return true
		}
	}
	return false
}

// IsValid reports the inverse of HasErrors.
func (c *Collection[W]) IsValid() bool {
	return !c.HasErrors()
}

// AcceptChanges commits every member and resets the baseline to the current
// membership, emptying all partitions.
func (c *Collection[W]) AcceptChanges() {
	for _, item := range c.items {
		item.AcceptChanges()
	}
	c.baseline = append([]W(nil), c.items...)
	c.recompute()
	c.emit(audit.BuildChangesAcceptedEvent(audit.EventInput{
		ObjectType: c.objectType,
		ObjectID:   c.objectID,
	}))
	c.raisePropertyChanged("")
}

// RejectChanges restores the baseline membership: added members are removed,
// removed members are re-added, and surviving modified members roll back
// their own edits. Mirroring callbacks observe each restore step.
func (c *Collection[W]) RejectChanges() {
	added := append([]W(nil), c.added...)
	removed := append([]W(nil), c.removed...)

	for _, item := range added {
		c.Remove(item)
	}
	for _, item := range removed {
		_ = c.Add(item)
	}
	// Membership now equals the baseline set; restore baseline order too.
	c.items = append([]W(nil), c.baseline...)
	// Roll back member edits only after membership is restored, so a member
	// that was edited and then removed is re-added before its edits revert.
	for _, item := range c.items {
		if item.IsChanged() {
			item.RejectChanges()
		}
	}
	c.recompute()
	c.emit(audit.BuildChangesRejectedEvent(audit.EventInput{
		ObjectType: c.objectType,
		ObjectID:   c.objectID,
	}))
	c.raisePropertyChanged("")
}

// OnCollectionChanged subscribes fn to membership notifications.
func (c *Collection[W]) OnCollectionChanged(fn func(kind ChangeKind, item W)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	c.membershipListeners = append(c.membershipListeners, fn)
	index := len(c.membershipListeners) - 1
	removed := false
	return func() {
		if removed {
			return
		}
		removed = true
		c.membershipListeners[index] = nil
	}
}

func (c *Collection[W]) notifyMembership(kind ChangeKind, item W) {
	listeners := append(make([]func(ChangeKind, W), 0, len(c.membershipListeners)), c.membershipListeners...)
	for _, fn := range listeners {
		if fn != nil {
			fn(kind, item)
		}
	}
}

func (c *Collection[W]) removeAt(i int) {
	item := c.items[i]
	c.items = append(c.items[:i:i], c.items[i+1:]...)
	c.detachItem(item)
	if c.cfg.mirrorRemove != nil {
		c.cfg.mirrorRemove(item)
	}
	if len(c.items) == 0 && c.cfg.mirrorClear != nil {
		c.cfg.mirrorClear()
	}
	c.emit(audit.BuildMemberRemovedEvent(audit.EventInput{
		ObjectType: c.objectType,
		ObjectID:   c.objectID,
	}))
	c.notifyMembership(ChangeRemoved, item)
}

// attach subscribes to a member's notifications so leaf edits toggle the
// modified partition without a full rescan.
func (c *Collection[W]) attach(item W) {
	unsubProperty := item.OnPropertyChanged(func(property string) {
		if property == "" || property == PropertyIsChanged {
			c.refreshModified(item)
			c.raisePropertyChanged(PropertyIsChanged)
		}
		if property == "" || property == PropertyHasErrors {
			c.raisePropertyChanged(PropertyHasErrors)
		}
	})
	unsubErrors := item.OnErrorsChanged(func(property string) {
		c.raiseErrorsChanged(property)
		c.raisePropertyChanged(PropertyHasErrors)
	})
	c.detach[item] = append(c.detach[item], unsubProperty, unsubErrors)
}

func (c *Collection[W]) detachItem(item W) {
	for _, unsubscribe := range c.detach[item] {
		unsubscribe()
	}
	delete(c.detach, item)
}

// refreshModified toggles item in or out of the modified partition based on
// its own changed flag. Only members surviving from the baseline qualify.
func (c *Collection[W]) refreshModified(item W) {
	if !containsMember(c.baseline, item) || !containsMember(c.items, item) {
		return
	}
	index := indexOfMember(c.modified, item)
	switch {
	case item.IsChanged() && index < 0:
		c.modified = append(c.modified, item)
	case !item.IsChanged() && index >= 0:
		c.modified = append(c.modified[:index:index], c.modified[index+1:]...)
	}
}

func (c *Collection[W]) afterStructuralChange() {
	c.recompute()
	c.raisePropertyChanged(PropertyIsChanged)
	c.raisePropertyChanged(PropertyHasErrors)
}

// recompute rebuilds the three partitions from scratch against the baseline.
func (c *Collection[W]) recompute() {
	baseline := memberSet(c.baseline)
	current := memberSet(c.items)

	c.added = nil
	for _, item := range c.items {
		if _, ok := baseline[item]; !ok {
			c.added = append(c.added, item)
		}
	}
	c.removed = nil
	for _, item := range c.baseline {
		if _, ok := current[item]; !ok {
			c.removed = append(c.removed, item)
		}
	}
	c.modified = nil
	for _, item := range c.items {
		if _, ok := baseline[item]; ok && item.IsChanged() {
			c.modified = append(c.modified, item)
		}
	}
}

func (c *Collection[W]) emit(event audit.Event) {
	if c.cfg.emitter == nil {
		return
	}
	_ = c.cfg.emitter.Emit(context.Background(), event)
}

var (
	_ Observer = (*Wrapper[struct{}])(nil)
	_ Observer = (*Collection[*Wrapper[struct{}]])(nil)
)

func memberSet[W Member](items []W) map[W]struct{} {
	set := make(map[W]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}

func containsMember[W Member](items []W, item W) bool {
	return indexOfMember(items, item) >= 0
}

func indexOfMember[W Member](items []W, item W) int {
	for i, existing := range items {
		if existing == item {
			return i
		}
	}
	return -1
}
