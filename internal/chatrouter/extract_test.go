package chatrouter

import "testing"

func TestExtractTaskTitle(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Add a task to buy milk.", "buy milk"},
		{"add task to walk the dog", "walk the dog"},
		{"Create a task to file taxes", "file taxes"},
		{"create task to water plants.", "water plants"},
		{"remember to call mom", "call mom"},
		{"remember that the oven is on", "the oven is on"},
		{"add a task", "add a task"},
		{"to ", "New Task"},
	}
	for _, tc := range cases {
		if got := ExtractTaskTitle(tc.in); got != tc.want {
			t.Fatalf("ExtractTaskTitle(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestExtractTaskID(t *testing.T) {
	id, ok := ExtractTaskID("delete task 42")
	if !ok || id != 42 {
		t.Fatalf("expected 42, got %d ok=%v", id, ok)
	}
	id, ok = ExtractTaskID("mark task 7 as done before 9pm")
	if !ok || id != 7 {
		t.Fatalf("expected first digit run 7, got %d ok=%v", id, ok)
	}
	if _, ok := ExtractTaskID("delete my task"); ok {
		t.Fatal("expected no id in digit-free message")
	}
}

func TestExtractUpdatedTitle(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"update task 3 change to buy oat milk", "buy oat milk", true},
		{"task 3 update to clean garage", "clean garage", true},
		{"task 3 new title: read a book", "read a book", true},
		{"update task 3 as mow the lawn", "mow the lawn", true},
		{"modify task 5 to repaint fence", "repaint fence", true},
		{"update task 3", "", false},
		{"please fix it", "", false},
	}
	for _, tc := range cases {
		got, ok := ExtractUpdatedTitle(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ExtractUpdatedTitle(%q) = %q,%v want %q,%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
