package query

import (
	"testing"
	"time"
)

type item struct {
	title    string
	location string
	kind     string
	date     time.Time
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

var fixtures = []item{
	{title: "Blue Backpack", location: "Library", kind: "found", date: day("2024-01-01")},
	{title: "Red Wallet", location: "Gym", kind: "found", date: day("2024-03-01")},
	{title: "Umbrella", location: "Cafeteria", kind: "lost", date: day("2024-02-01")},
}

func titles(items []item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.title
	}
	return out
}

func TestApply_SortsByDateDescending(t *testing.T) {
	got := Apply(fixtures, func(i item) time.Time { return i.date })

	want := []string{"Red Wallet", "Umbrella", "Blue Backpack"}
	for i, title := range titles(got) {
		if title != want[i] {
			t.Errorf("result[%d] = %q, want %q", i, title, want[i])
		}
	}
}

func TestApply_StableOnEqualDates(t *testing.T) {
	same := []item{
		{title: "first", date: day("2024-05-05")},
		{title: "second", date: day("2024-05-05")},
		{title: "third", date: day("2024-05-05")},
	}
	got := Apply(same, func(i item) time.Time { return i.date })
	want := []string{"first", "second", "third"}
	for i, title := range titles(got) {
		if title != want[i] {
			t.Errorf("result[%d] = %q, want %q (insertion order must survive)", i, title, want[i])
		}
	}
}

func TestSearch(t *testing.T) {
	fields := []func(item) string{
		func(i item) string { return i.title },
		func(i item) string { return i.location },
	}

	tests := []struct {
		term string
		want []string
	}{
		{"back", []string{"Blue Backpack"}},
		{"GYM", []string{"Red Wallet"}},
		{"e", []string{"Red Wallet", "Umbrella", "Blue Backpack"}},
		{"", []string{"Red Wallet", "Umbrella", "Blue Backpack"}},
		{"xyz", nil},
	}

	for _, tt := range tests {
		got := Apply(fixtures, func(i item) time.Time { return i.date }, Search(tt.term, fields...))
		if len(got) != len(tt.want) {
			t.Errorf("Search(%q): got %d results, want %d", tt.term, len(got), len(tt.want))
			continue
		}
		for i, title := range titles(got) {
			if title != tt.want[i] {
				t.Errorf("Search(%q): result[%d] = %q, want %q", tt.term, i, title, tt.want[i])
			}
		}
	}
}

func TestEquals_ZeroValueMatchesAll(t *testing.T) {
	kind := func(i item) string { return i.kind }

	got := Apply(fixtures, func(i item) time.Time { return i.date }, Equals("", kind))
	if len(got) != len(fixtures) {
		t.Errorf("Equals(\"\") filtered to %d items, want %d", len(got), len(fixtures))
	}

	got = Apply(fixtures, func(i item) time.Time { return i.date }, Equals("lost", kind))
	if len(got) != 1 || got[0].title != "Umbrella" {
		t.Errorf("Equals(\"lost\") = %v, want just Umbrella", titles(got))
	}
}

func TestApply_CombinesPredicatesWithAND(t *testing.T) {
	got := Apply(fixtures,
		func(i item) time.Time { return i.date },
		Equals("found", func(i item) string { return i.kind }),
		Search("wallet", func(i item) string { return i.title }),
	)
	if len(got) != 1 || got[0].title != "Red Wallet" {
		t.Errorf("combined filter = %v, want just Red Wallet", titles(got))
	}
}
