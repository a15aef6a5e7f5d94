package deep

import "testing"

func TestEqual(t *testing.T) {
	one := 1
	alsoOne := 1
	two := 2

	cases := []struct {
		name string
		a, b any
		want bool
	}{
		{"both nil", nil, nil, true},
		{"nil vs value", nil, 1, false},
		{"equal ints", 1, 1, true},
		{"different ints", 1, 2, false},
		{"different types", 1, "1", false},
		{"int vs int64", int(1), int64(1), false},
		{"equal strings", "a", "a", true},
		{"pointers to equal payloads", &one, &alsoOne, true},
		{"pointers to different payloads", &one, &two, false},
		{"nil vs non-nil pointer", (*int)(nil), &one, false},
		{"equal slices", []int{1, 2}, []int{1, 2}, true},
		{"different slices", []int{1, 2}, []int{2, 1}, false},
		{"nil vs empty slice", []int(nil), []int{}, false},
		{"equal maps", map[string]int{"a": 1}, map[string]int{"a": 1}, true},
		{"different maps", map[string]int{"a": 1}, map[string]int{"a": 2}, false},
		{"missing key", map[string]int{"a": 1}, map[string]int{"b": 1}, false},
		{"equal structs", inner{Values: []int{1}}, inner{Values: []int{1}}, true},
		{"different structs", inner{Values: []int{1}}, inner{Values: []int{2}}, false},
		{"equal arrays", [2]int{1, 2}, [2]int{1, 2}, true},
		{"different arrays", [2]int{1, 2}, [2]int{2, 1}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Equal(tc.a, tc.b); got != tc.want {
				t.Fatalf("Equal(%v, %v) = %t, want %t", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestEqualFollowsNestedPointers(t *testing.T) {
	a := outer{Nested: &inner{Values: []int{1, 2}}}
	b := outer{Nested: &inner{Values: []int{1, 2}}}
	if !Equal(a, b) {
		t.Fatalf("expected structural equality across pointers")
	}

	b.Nested.Values[1] = 3
	if Equal(a, b) {
		t.Fatalf("expected inequality after mutation")
	}
}

func TestEqualFuncsAndChans(t *testing.T) {
	var nilFn func()
	fn := func() {}
	if !Equal(nilFn, nilFn) {
		t.Fatalf("two nil funcs must compare equal")
	}
	if Equal(fn, fn) {
		t.Fatalf("non-nil funcs are never comparable")
	}

	ch := make(chan int)
	var nilCh chan int
	if !Equal(nilCh, nilCh) {
		t.Fatalf("two nil chans must compare equal")
	}
	if Equal(ch, ch) {
		t.Fatalf("non-nil chans compare unequal by structure")
	}
}
