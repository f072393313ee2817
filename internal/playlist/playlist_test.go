package playlist

import (
	"testing"

	"github.com/jiuzhougroup/soulsync/api"
)

func trackFixture(id, title, artist string) *api.Track {
	return &api.Track{ID: id, Title: title, Artist: artist, URL: "file:///" + id + ".mp3"}
}

func TestAdd_PrependsNewTrack(t *testing.T) {
	m := NewModel()
	m.Add(trackFixture("1", "Rain & Thunder", "九州原声"))
	m.Add(trackFixture("2", "Deep Meditation", "九州原声"))

	all := m.All()
	if len(all) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(all))
	}
	if all[0].ID != "2" {
		t.Errorf("newest track should be first, got %s", all[0].ID)
	}
}

func TestAdd_DuplicateIDIsNoOp(t *testing.T) {
	m := NewModel()
	if !m.Add(trackFixture("1", "Rain & Thunder", "九州原声")) {
		t.Error("first Add should report true")
	}
	if m.Add(trackFixture("1", "Different Title", "Someone Else")) {
		t.Error("duplicate Add should report false")
	}
	if m.Len() != 1 {
		t.Errorf("expected 1 track, got %d", m.Len())
	}
	if m.Get(0).Title != "Rain & Thunder" {
		t.Error("duplicate Add must not replace the existing track")
	}
}

func TestFindIndex(t *testing.T) {
	m := NewModel()
	m.Append(trackFixture("1", "a", "x"))
	m.Append(trackFixture("2", "b", "y"))

	i, err := m.FindIndex("2")
	if err != nil {
		t.Fatalf("FindIndex: %v", err)
	}
	if i != 1 {
		t.Errorf("FindIndex(2) = %d, want 1", i)
	}

	if _, err := m.FindIndex("missing"); err == nil {
		t.Error("FindIndex on unknown ID should return an error")
	}
}

func TestFilter_CaseInsensitiveProjection(t *testing.T) {
	m := NewModel()
	m.Append(trackFixture("1", "Rain & Thunder", "九州原声 · 自然"))
	m.Append(trackFixture("2", "Deep Meditation", "九州原声 · 疗愈"))
	m.Append(trackFixture("3", "Cyberpunk City", "九州原声 · 未来"))

	tests := []struct {
		query string
		want  int
	}{
		{"rain", 1},
		{"RAIN", 1},
		{"九州", 3},
		{"疗愈", 1},
		{"", 3},
		{"nothing matches this", 0},
	}

	for _, tt := range tests {
		got := m.Filter(tt.query)
		if len(got) != tt.want {
			t.Errorf("Filter(%q) returned %d tracks, want %d", tt.query, len(got), tt.want)
		}
	}

	// Filtering must not disturb the underlying order.
	if m.Get(0).ID != "1" || m.Get(2).ID != "3" {
		t.Error("Filter mutated the underlying collection")
	}
}

func TestNewSeeded(t *testing.T) {
	m, err := NewSeeded()
	if err != nil {
		t.Fatalf("NewSeeded: %v", err)
	}
	if m.Len() != 3 {
		t.Fatalf("expected 3 seed tracks, got %d", m.Len())
	}

	first := m.Get(0)
	if first.ID != "1" || first.Title != "Rain & Thunder" {
		t.Errorf("unexpected first seed track: %+v", first)
	}
	if first.Lyrics == "" {
		t.Error("seed track should carry its lyric transcript")
	}
}
