package observer

import "testing"

func TestNotifierDispatchOrder(t *testing.T) {
	var n notifier

	var order []string
	n.OnPropertyChanged(func(property string) { order = append(order, "first:"+property) })
	n.OnPropertyChanged(func(property string) { order = append(order, "second:"+property) })

	n.raisePropertyChanged("Name")

	if len(order) != 2 || order[0] != "first:Name" || order[1] != "second:Name" {
		t.Fatalf("unexpected dispatch order: %v", order)
	}
}

func TestNotifierNilListener(t *testing.T) {
	var n notifier
	unsubscribe := n.OnPropertyChanged(nil)
	unsubscribe()
	n.raisePropertyChanged("Name")
}

func TestNotifierUnsubscribeDuringDispatch(t *testing.T) {
	var n notifier

	count := 0
	var unsubscribe func()
	unsubscribe = n.OnPropertyChanged(func(string) {
		count++
		unsubscribe()
	})
	n.OnPropertyChanged(func(string) { count++ })

	n.raisePropertyChanged("Name")
	n.raisePropertyChanged("Name")

	// The self-removing listener fires once, the second listener twice.
	if count != 3 {
		t.Fatalf("expected 3 invocations, got %d", count)
	}
}

func TestNotifierErrorListenersAreSeparate(t *testing.T) {
	var n notifier

	propertyCount := 0
	errorCount := 0
	n.OnPropertyChanged(func(string) { propertyCount++ })
	n.OnErrorsChanged(func(string) { errorCount++ })

	n.raisePropertyChanged("Name")
	n.raiseErrorsChanged("Name")
	n.raiseErrorsChanged("Zip")

	if propertyCount != 1 || errorCount != 2 {
		t.Fatalf("expected 1/2, got %d/%d", propertyCount, errorCount)
	}
}

func TestNotifierUnsubscribeSurvivesReordering(t *testing.T) {
	var n notifier

	var got []string
	first := n.OnPropertyChanged(func(string) { got = append(got, "first") })
	n.OnPropertyChanged(func(string) { got = append(got, "second") })
	third := n.OnPropertyChanged(func(string) { got = append(got, "third") })

	first()
	third()
	n.raisePropertyChanged("Name")

	if len(got) != 1 || got[0] != "second" {
		t.Fatalf("expected only the second listener, got %v", got)
	}
}
