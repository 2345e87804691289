package playertest_test

import (
	"testing"
	"time"

	"github.com/hazadus/go-broadcast/internal/player"
	"github.com/hazadus/go-broadcast/internal/player/playertest"
)

func newTransport(t *testing.T, engine *playertest.Engine) *player.Transport {
	t.Helper()
	transport := player.NewTransport(engine, nil, 5*time.Millisecond)
	t.Cleanup(func() { _ = transport.Close() })

	transport.Load("track.mp3")
	waitState(t, transport, player.StateReadyPaused)
	return transport
}

func waitState(t *testing.T, transport *player.Transport, state player.State) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if transport.Status().State == state {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("Таймаут ожидания состояния %s, получено %s", state, transport.Status().State)
}

func TestPlayThenPauseLeavesMediaStopped(t *testing.T) {
	engine := &playertest.Engine{}
	transport := newTransport(t, engine)

	for i := 0; i < 50; i++ {
		transport.PlayPause()
		transport.PlayPause()
		time.Sleep(5 * time.Millisecond)

		if transport.Status().State != player.StateReadyPaused {
			t.Fatalf("Итерация %d: ожидалась пауза, получено %s", i, transport.Status().State)
		}
		if engine.Last().Started() {
			t.Fatalf("Итерация %d: транспорт на паузе, а ресурс играет", i)
		}
	}
}

func TestFinishAllowsReplay(t *testing.T) {
	engine := &playertest.Engine{}
	transport := newTransport(t, engine)
	media := engine.Last()

	transport.PlayPause()
	media.Finish()
	<-transport.Done()
	waitState(t, transport, player.StateReadyPaused)

	transport.PlayPause()
	time.Sleep(50 * time.Millisecond)
	status := transport.Status()
	if status.State != player.StateReadyPlaying || !status.IsPlaying {
		t.Fatalf("После окончания трек должен запускаться снова: state=%s isPlaying=%v", status.State, status.IsPlaying)
	}
	if !media.Started() {
		t.Error("Ресурс должен играть после повторного запуска")
	}

	media.Finish()
	<-transport.Done()
	waitState(t, transport, player.StateReadyPaused)
}
