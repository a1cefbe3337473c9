package core

import (
	"errors"
	"testing"
)

func numberedItems(n int) []Item {
	items := make([]Item, n)
	AssignIndexes(items)
	return items
}

func TestParseSlice(t *testing.T) {
	tests := []struct {
		input    string
		expected Slice
	}{
		{":", Slice{}},
		{"", Slice{}},
		{"2:5", Slice{Begin: 2, End: 5}},
		{"3:", Slice{Begin: 3}},
		{":4", Slice{End: 4}},
		{"0:0", Slice{}},
		{"4", Slice{Begin: 4, End: 4}},
		{" 1 : 2 ", Slice{Begin: 1, End: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSlice(tt.input)
			if err != nil {
				t.Fatalf("ParseSlice(%q) error = %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("ParseSlice(%q) = %+v, want %+v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestParseSlice_Invalid(t *testing.T) {
	for _, input := range []string{"a:b", "1:x", "-1:", "5:2", "1:2:3"} {
		t.Run(input, func(t *testing.T) {
			if _, err := ParseSlice(input); !errors.Is(err, ErrInvalidSlice) {
				t.Errorf("ParseSlice(%q) error = %v, want ErrInvalidSlice", input, err)
			}
		})
	}
}

func TestSlice_Apply(t *testing.T) {
	tests := []struct {
		name     string
		slice    Slice
		expected []int
	}{
		{"Open", Slice{}, []int{1, 2, 3, 4, 5}},
		{"Range", Slice{Begin: 2, End: 4}, []int{2, 3, 4}},
		{"From", Slice{Begin: 4}, []int{4, 5}},
		{"To", Slice{End: 2}, []int{1, 2}},
		{"Single", Slice{Begin: 3, End: 3}, []int{3}},
		{"End past length", Slice{Begin: 4, End: 99}, []int{4, 5}},
		{"Begin past length", Slice{Begin: 9}, []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.slice.Apply(numberedItems(5))
			if len(got) != len(tt.expected) {
				t.Fatalf("Apply() returned %d items, want %d", len(got), len(tt.expected))
			}
			for n, item := range got {
				if item.Index != tt.expected[n] {
					t.Errorf("item %d has Index %d, want %d", n, item.Index, tt.expected[n])
				}
			}
		})
	}
}

func TestSlice_String(t *testing.T) {
	tests := []struct {
		slice    Slice
		expected string
	}{
		{Slice{}, ":"},
		{Slice{Begin: 2}, "2:"},
		{Slice{End: 3}, ":3"},
		{Slice{Begin: 1, End: 9}, "1:9"},
	}

	for _, tt := range tests {
		if got := tt.slice.String(); got != tt.expected {
			t.Errorf("String() = %q, want %q", got, tt.expected)
		}
	}
}
