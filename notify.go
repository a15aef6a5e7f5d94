package observer

// subscription pairs a listener with a removal token.
type subscription struct {
	id int
	fn func(property string)
}

// notifier maintains ordered subscriber lists for property-changed and
// errors-changed notifications. Dispatch is synchronous and in-order; the
// listener slice is copied before iteration so a listener may unsubscribe
// itself (or others) while being invoked. Raising with an empty property name
// means "refresh everything".
type notifier struct {
	nextID            int
	propertyListeners []subscription
	errorListeners    []subscription
}

// OnPropertyChanged subscribes fn to property-changed notifications and
// returns an idempotent unsubscribe function.
func (n *notifier) OnPropertyChanged(fn func(property string)) (unsubscribe func()) {
	return subscribe(&n.propertyListeners, &n.nextID, fn)
}

// OnErrorsChanged subscribes fn to errors-changed notifications and returns an
// idempotent unsubscribe function.
func (n *notifier) OnErrorsChanged(fn func(property string)) (unsubscribe func()) {
	return subscribe(&n.errorListeners, &n.nextID, fn)
}

func (n *notifier) raisePropertyChanged(property string) {
	dispatch(n.propertyListeners, property)
}

func (n *notifier) raiseErrorsChanged(property string) {
	dispatch(n.errorListeners, property)
}

func subscribe(list *[]subscription, nextID *int, fn func(property string)) func() {
	if fn == nil {
		return func() {}
	}
	*nextID++
	id := *nextID
	*list = append(*list, subscription{id: id, fn: fn})
	removed := false
	return func() {
		if removed {
			return
		}
		removed = true
		entries := *list
		for i, entry := range entries {
			if entry.id == id {
				*list = append(entries[:i:i], entries[i+1:]...)
				return
			}
		}
	}
}

func dispatch(list []subscription, property string) {
	if len(list) == 0 {
		return
	}
	entries := make([]subscription, len(list))
	copy(entries, list)
	for _, entry := range entries {
		if entry.fn != nil {
			entry.fn(property)
		}
	}
}
