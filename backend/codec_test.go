package backend

import (
	"testing"
	"time"
)

func TestParseParentRef(t *testing.T) {
	tests := []struct {
		in   string
		want ParentRef
	}{
		{"", Root},
		{"  ", Root},
		{"abc", Root},
		{"0", Root},
		{"-3", Root},
		{"7", ParentOf(7)},
		{" 12 ", ParentOf(12)},
	}
	for _, tt := range tests {
		if got := ParseParentRef(tt.in); got != tt.want {
			t.Errorf("ParseParentRef(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if Root.String() != "" || ParentOf(3).String() != "3" {
		t.Error("String() does not round-trip the stored form")
	}
}

func TestParseRecur(t *testing.T) {
	for in, want := range map[string]Recur{
		"weekly": RecurWeekly, " Monthly ": RecurMonthly, "": RecurNone, "daily": RecurNone,
	} {
		if got := ParseRecur(in); got != want {
			t.Errorf("ParseRecur(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTimestampText(t *testing.T) {
	ts := time.Date(2024, time.March, 10, 9, 30, 15, 0, time.Local)
	text := FormatTimestamp(&ts)
	if text != "2024-03-10 09:30:15" {
		t.Errorf("FormatTimestamp = %q", text)
	}
	back := ParseTimestamp(text)
	if back == nil || !back.Equal(ts) {
		t.Errorf("ParseTimestamp(%q) = %v, want %v", text, back, ts)
	}
	if ParseTimestamp("2024-03-10T09:30:15") == nil {
		t.Error("ISO separator should be accepted")
	}
	if ParseTimestamp("yesterday") != nil || ParseTimestamp("") != nil {
		t.Error("invalid text should yield nil")
	}
	if FormatTimestamp(nil) != "" {
		t.Error("nil should format as empty text")
	}
}

func TestTaskNormalize(t *testing.T) {
	ts := time.Now()
	task := Task{Recur: "yearly", CompletedAt: &ts, Score: -5}
	task.Normalize()
	if task.Recur != RecurNone || task.CompletedAt != nil || task.Score != 0 {
		t.Errorf("Normalize() = %+v", task)
	}
}

func TestSnapshotHelpers(t *testing.T) {
	s := &Snapshot{Tags: []string{"X"}}
	if s.NextTaskID() != 1 {
		t.Errorf("NextTaskID() on empty = %d, want 1", s.NextTaskID())
	}
	s.Tasks = []Task{{ID: 3}, {ID: 9}, {ID: 4}}
	if s.NextTaskID() != 10 {
		t.Errorf("NextTaskID() = %d, want 10", s.NextTaskID())
	}
	if !s.EnsureDefaultTag(DefaultTagName) || s.Tags[0] != DefaultTagName {
		t.Errorf("EnsureDefaultTag did not prepend: %v", s.Tags)
	}
	if s.EnsureDefaultTag(DefaultTagName) {
		t.Error("EnsureDefaultTag reported a change on the second call")
	}

	c := s.Clone()
	c.Tasks[0].Title = "x"
	c.Tags[0] = "y"
	if s.Tasks[0].Title == "x" || s.Tags[0] == "y" {
		t.Error("Clone shares memory with the original")
	}
	if s.FindTask(9) == nil || s.FindTask(1) != nil {
		t.Error("FindTask mismatch")
	}
}
