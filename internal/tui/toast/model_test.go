package toast

import (
	"strings"
	"testing"

	"github.com/hazadus/go-broadcast/internal/notify"
)

func TestShowAndExpire(t *testing.T) {
	model := NewModel(nil, 0)

	toast := notify.New(notify.LevelInfo, "Крейт «Crate 1» создан")
	_, cmd := model.Update(ShowMsg{Toast: toast})
	if cmd == nil {
		t.Fatal("Expected expiry command")
	}
	if model.Height() != 1 {
		t.Fatalf("Expected 1 toast, got %d", model.Height())
	}
	if !strings.Contains(model.View(), "Crate 1") {
		t.Error("Expected toast message in view")
	}

	model.Update(expireMsg{id: toast.ID})
	if model.Height() != 0 {
		t.Errorf("Expected toast expired, got %d", model.Height())
	}
}

func TestMaxVisible(t *testing.T) {
	model := NewModel(nil, 0)

	for i := 0; i < MaxVisible+2; i++ {
		model.Update(ShowMsg{Toast: notify.New(notify.LevelInfo, "сообщение")})
	}
	if model.Height() != MaxVisible {
		t.Errorf("Expected %d visible toasts, got %d", MaxVisible, model.Height())
	}
}

func TestUndoRunsLatestAction(t *testing.T) {
	actions := notify.NewActions(0)
	model := NewModel(actions, 0)

	var undone []string
	first := notify.New(notify.LevelInfo, "first")
	first.ActionLabel = "Отменить"
	first.ActionID = actions.Register(func() bool {
		undone = append(undone, "first")
		return true
	})
	second := notify.New(notify.LevelInfo, "second")
	second.ActionLabel = "Отменить"
	second.ActionID = actions.Register(func() bool {
		undone = append(undone, "second")
		return true
	})
	plain := notify.New(notify.LevelInfo, "plain")

	model.Update(ShowMsg{Toast: first})
	model.Update(ShowMsg{Toast: second})
	model.Update(ShowMsg{Toast: plain})

	if !strings.Contains(model.View(), "[z] Отменить") {
		t.Error("Expected undo hint in view")
	}

	if !model.Undo() {
		t.Fatal("Expected undo to succeed")
	}
	if len(undone) != 1 || undone[0] != "second" {
		t.Fatalf("Expected latest action undone, got %v", undone)
	}
	if model.Height() != 2 {
		t.Errorf("Expected undone toast removed, got %d toasts", model.Height())
	}

	model.Undo()
	if model.Undo() {
		t.Error("Expected no more undo actions")
	}
}
