package player

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hazadus/go-broadcast/internal/data"
	"github.com/hazadus/go-broadcast/internal/library"
	"github.com/hazadus/go-broadcast/internal/player"
	"github.com/hazadus/go-broadcast/internal/player/playertest"
	"github.com/hazadus/go-broadcast/internal/session"
)

func newTestSession(t *testing.T) *session.Session {
	t.Helper()
	transport := player.NewTransport(&playertest.Engine{}, nil, 10*time.Millisecond)
	t.Cleanup(func() { _ = transport.Close() })

	lib := library.NewManager([]data.Track{
		{ID: "1", Artist: "Test Artist", Title: "Test Title", Duration: "2:00", AudioURL: "https://example.com/test.mp3"},
	}, nil)
	return session.New(lib, transport, nil, nil)
}

func waitReady(t *testing.T, s *session.Session) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.Transport().Status().State != player.StateReadyPlaying {
		if time.Now().After(deadline) {
			t.Fatalf("Expected playing state, got %s", s.Transport().Status().State)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNewModel(t *testing.T) {
	model := NewModel(newTestSession(t))

	if model == nil {
		t.Fatal("NewModel returned nil")
	}
	if model.Visible() {
		t.Error("Expected player bar hidden without current track")
	}
	if model.View() != "" {
		t.Error("Expected empty view without current track")
	}

	handled, _ := model.HandleKey(runes(" "))
	if handled {
		t.Error("Expected keys ignored while hidden")
	}
}

func TestUpdateShowsTrack(t *testing.T) {
	model := NewModel(newTestSession(t))
	track := data.Track{ID: "1", Artist: "Test Artist", Title: "Test Title"}

	model.Update(UpdateMsg{Update: session.Update{
		Status: player.Status{
			State:     player.StateReadyPlaying,
			IsPlaying: true,
			Current:   30 * time.Second,
			Total:     2 * time.Minute,
			Volume:    0.5,
		},
		Current: &track,
	}})

	if !model.Visible() {
		t.Fatal("Expected player bar visible")
	}
	view := model.View()
	for _, want := range []string{"Test Title", "Test Artist", "0:30 / 2:00", "50%"} {
		if !strings.Contains(view, want) {
			t.Errorf("Expected view to contain %q, got:\n%s", want, view)
		}
	}

	// Закрытие плеера скрывает панель
	model.Update(UpdateMsg{Update: session.Update{}})
	if model.Visible() {
		t.Error("Expected player bar hidden after close")
	}
}

func TestUpdateShowsError(t *testing.T) {
	model := NewModel(newTestSession(t))
	track := data.Track{ID: "1", Title: "Test Title"}

	model.Update(UpdateMsg{Update: session.Update{
		Status:  player.Status{State: player.StateError},
		Current: &track,
		Err:     errors.New("сеть недоступна"),
	}})

	if !strings.Contains(model.View(), "сеть недоступна") {
		t.Error("Expected error in view")
	}
}

func TestHandleKeyControlsTransport(t *testing.T) {
	s := newTestSession(t)
	if err := s.Play("1"); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	waitReady(t, s)

	model := NewModel(s)
	if !model.Visible() {
		t.Fatal("Expected player bar visible for current track")
	}

	if handled, _ := model.HandleKey(runes("]")); !handled {
		t.Fatal("Expected ']' to be handled")
	}
	if model.Status().Current != SeekStep {
		t.Errorf("Expected position %v, got %v", SeekStep, model.Status().Current)
	}

	model.HandleKey(runes("-"))
	if got := s.Transport().Status().Volume; got < player.DefaultVolume-VolumeStep-0.001 || got > player.DefaultVolume-VolumeStep+0.001 {
		t.Errorf("Expected volume lowered by step, got %v", got)
	}

	model.HandleKey(runes("m"))
	if !s.Transport().Status().Muted {
		t.Error("Expected muted after 'm'")
	}

	model.HandleKey(runes(" "))
	if s.Transport().Status().IsPlaying {
		t.Error("Expected paused after space")
	}

	if handled, _ := model.HandleKey(runes("q")); handled {
		t.Error("Expected 'q' not handled by player bar")
	}

	model.HandleKey(runes("s"))
	if _, ok := s.Current(); ok {
		t.Error("Expected player closed after 's'")
	}
}

func TestCompactView(t *testing.T) {
	model := NewModel(newTestSession(t))
	track := data.Track{ID: "1", Artist: "Test Artist", Title: "Test Title"}
	model.Update(UpdateMsg{Update: session.Update{Current: &track}})

	model.SetCompact(true)
	view := model.View()
	if strings.Contains(view, "громкость") {
		t.Error("Expected compact view without controls help")
	}
	if lines := strings.Count(view, "\n") + 1; lines != 2 {
		t.Errorf("Expected 2 lines in compact view, got %d", lines)
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		status   player.Status
		expected float64
	}{
		{player.Status{}, 0},
		{player.Status{Current: 30 * time.Second, Total: time.Minute}, 0.5},
		{player.Status{Current: 2 * time.Minute, Total: time.Minute}, 1},
	}

	for _, test := range tests {
		if result := percent(test.status); result != test.expected {
			t.Errorf("percent(%v/%v) = %v, expected %v", test.status.Current, test.status.Total, result, test.expected)
		}
	}
}
