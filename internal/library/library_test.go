package library

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hazadus/go-broadcast/internal/data"
	"github.com/hazadus/go-broadcast/internal/metadata"
)

func testCatalog() []data.Track {
	return []data.Track{
		{ID: "1", Title: "OMW", Artist: "PARTYNEXTDOOR, Drake"},
		{ID: "2", Title: "Blinding Lights", Artist: "The Weeknd", Album: "After Hours"},
		{ID: "3", Title: "The Method", Artist: "DDG"},
	}
}

func ids(tracks []data.Track) []string {
	result := make([]string, len(tracks))
	for i, t := range tracks {
		result[i] = t.ID
	}
	return result
}

func equalIDs(tracks []data.Track, expected ...string) bool {
	got := ids(tracks)
	if len(got) != len(expected) {
		return false
	}
	for i := range got {
		if got[i] != expected[i] {
			return false
		}
	}
	return true
}

// collector собирает все события библиотеки
type collector struct {
	mutex  sync.Mutex
	events []Event
}

func (c *collector) listen(e Event) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.events = append(c.events, e)
}

func (c *collector) kinds() []EventKind {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	kinds := make([]EventKind, len(c.events))
	for i, e := range c.events {
		kinds[i] = e.Kind
	}
	return kinds
}

func TestScenario(t *testing.T) {
	manager := NewManager([]data.Track{
		{ID: "1", Title: "OMW"},
		{ID: "2", Title: "Blinding Lights"},
	}, nil)

	if result := manager.Search("omw"); !equalIDs(result, "1") {
		t.Fatalf("Поиск 'omw': ожидалось [1], получено %v", ids(result))
	}

	a, _ := manager.Track("1")
	if member, _ := manager.TogglePlaylistMembership(a); !member {
		t.Error("Трек должен попасть в эфир")
	}
	if !equalIDs(manager.Playlist(), "1") {
		t.Errorf("Ожидался эфир [1], получено %v", ids(manager.Playlist()))
	}
	if member, _ := manager.TogglePlaylistMembership(a); member {
		t.Error("Повторное переключение должно убрать трек")
	}
	if len(manager.Playlist()) != 0 {
		t.Errorf("Ожидался пустой эфир, получено %v", ids(manager.Playlist()))
	}

	crate := manager.CreateCrate()
	if err := manager.RenameCrate(crate.ID, "Favorites"); err != nil {
		t.Fatalf("Ошибка переименования: %v", err)
	}
	manager.AddToCrate("1", crate.ID)
	if c, _ := manager.Crate(crate.ID); len(c.Tracks) != 1 || c.Tracks[0] != "1" {
		t.Errorf("Ожидался крейт [1], получено %v", c.Tracks)
	}

	manager.TogglePlaylistMembership(a)
	manager.DeleteTrack("1")

	c, _ := manager.Crate(crate.ID)
	if len(c.Tracks) != 0 {
		t.Errorf("Крейт должен быть пуст после удаления трека, получено %v", c.Tracks)
	}
	if !equalIDs(manager.Catalog(), "2") {
		t.Errorf("Ожидался каталог [2], получено %v", ids(manager.Catalog()))
	}
	if len(manager.Playlist()) != 0 {
		t.Errorf("Ожидался пустой эфир, получено %v", ids(manager.Playlist()))
	}
}

func TestToggleRestoresOrder(t *testing.T) {
	manager := NewManager(testCatalog(), nil)
	catalog := manager.Catalog()

	// Эфир [3, 2, 1]: каждый новый трек добавляется в начало
	for _, track := range catalog {
		manager.TogglePlaylistMembership(track)
	}
	if !equalIDs(manager.Playlist(), "3", "2", "1") {
		t.Fatalf("Ожидался эфир [3 2 1], получено %v", ids(manager.Playlist()))
	}

	// Двойное переключение среднего трека возвращает исходный порядок
	manager.TogglePlaylistMembership(catalog[1])
	manager.TogglePlaylistMembership(catalog[1])
	if !equalIDs(manager.Playlist(), "3", "2", "1") {
		t.Errorf("Ожидался эфир [3 2 1], получено %v", ids(manager.Playlist()))
	}
}

func TestToggleUnknownTrack(t *testing.T) {
	manager := NewManager(testCatalog(), nil)
	events := &collector{}
	manager.Subscribe(events.listen)

	member, event := manager.TogglePlaylistMembership(data.Track{ID: "missing", Title: "Ghost"})
	if member || event.Kind != EventNone || event.Undo != nil {
		t.Errorf("Неизвестный трек должен игнорироваться: %v %+v", member, event)
	}
	if len(manager.Playlist()) != 0 || len(events.kinds()) != 0 {
		t.Error("Неизвестный трек не должен менять эфир и порождать события")
	}
}

func TestToggleUndo(t *testing.T) {
	manager := NewManager(testCatalog(), nil)
	catalog := manager.Catalog()

	manager.TogglePlaylistMembership(catalog[0])
	manager.TogglePlaylistMembership(catalog[1])
	_, removed := manager.TogglePlaylistMembership(catalog[0])

	if removed.Kind != EventPlaylistRemoved || removed.Undo == nil {
		t.Fatalf("Ожидалось событие удаления с отменой: %+v", removed)
	}
	if !removed.Undo() {
		t.Fatal("Отмена должна выполниться")
	}
	if !equalIDs(manager.Playlist(), "2", "1") {
		t.Errorf("Отмена должна вернуть трек на прежнее место, получено %v", ids(manager.Playlist()))
	}

	// Повторная отмена ничего не делает
	if removed.Undo() {
		t.Error("Повторная отмена не должна выполняться")
	}

	_, added := manager.TogglePlaylistMembership(catalog[2])
	if !added.Undo() || manager.InPlaylist("3") {
		t.Error("Отмена добавления должна убрать трек из эфира")
	}
}

func TestUndoVoidedByNextToggle(t *testing.T) {
	manager := NewManager(testCatalog(), nil)
	track, _ := manager.Track("1")

	_, first := manager.TogglePlaylistMembership(track)
	manager.TogglePlaylistMembership(track)

	if first.Undo() {
		t.Error("Отмена должна стать недействительной после следующего переключения того же трека")
	}
	if manager.InPlaylist("1") {
		t.Error("Недействительная отмена не должна менять эфир")
	}
}

func TestUndoAfterDelete(t *testing.T) {
	manager := NewManager(testCatalog(), nil)
	track, _ := manager.Track("1")

	manager.TogglePlaylistMembership(track)
	_, removed := manager.TogglePlaylistMembership(track)
	manager.DeleteTrack("1")

	if removed.Undo() {
		t.Error("Отмена для удаленного трека не должна выполняться")
	}
	if manager.InPlaylist("1") {
		t.Error("Удаленный трек не должен вернуться в эфир")
	}
}

func TestAddToCrateIdempotent(t *testing.T) {
	manager := NewManager(testCatalog(), nil)
	events := &collector{}
	manager.Subscribe(events.listen)
	crate := manager.CreateCrate()

	if !manager.AddToCrate("2", crate.ID) {
		t.Error("Первое добавление должно изменить крейт")
	}
	if manager.AddToCrate("2", crate.ID) {
		t.Error("Повторное добавление не должно менять крейт")
	}
	if manager.AddToCrate("missing", crate.ID) || manager.AddToCrate("2", "missing") {
		t.Error("Неизвестные ID должны игнорироваться")
	}

	c, _ := manager.Crate(crate.ID)
	if len(c.Tracks) != 1 || c.Tracks[0] != "2" {
		t.Errorf("Ожидался крейт [2], получено %v", c.Tracks)
	}

	kinds := events.kinds()
	if len(kinds) != 2 || kinds[1] != EventCrateTrackAdded {
		t.Fatalf("Ожидались события создания и добавления, получено %v", kinds)
	}
	added := events.events[1]
	if added.Track.Title != "Blinding Lights" || added.Crate.Name != crate.Name {
		t.Errorf("Событие должно называть трек и крейт: %+v", added)
	}
}

func TestRemoveFromCrate(t *testing.T) {
	manager := NewManager(testCatalog(), nil)
	crate := manager.CreateCrate()
	manager.AddToCrate("1", crate.ID)
	manager.AddToCrate("2", crate.ID)
	manager.AddToCrate("3", crate.ID)

	if !manager.RemoveFromCrate(crate.ID, "2") {
		t.Error("Трек должен быть удален из крейта")
	}
	if manager.RemoveFromCrate(crate.ID, "2") || manager.RemoveFromCrate("missing", "1") {
		t.Error("Повторное удаление и неизвестные ID должны игнорироваться")
	}
	if got := ids(manager.CrateTracks(crate.ID)); len(got) != 2 || got[0] != "1" || got[1] != "3" {
		t.Errorf("Ожидался крейт [1 3], получено %v", got)
	}
}

func TestCreateCrateCounter(t *testing.T) {
	manager := NewManager(nil, nil)

	first := manager.CreateCrate()
	second := manager.CreateCrate()
	if first.Name != "Crate 1" || second.Name != "Crate 2" {
		t.Errorf("Неверные имена крейтов: %q, %q", first.Name, second.Name)
	}
	if first.ID == second.ID || first.ID == "" {
		t.Error("ID крейтов должны быть уникальными")
	}
	if manager.EditingCrate() != second.ID {
		t.Error("Новый крейт должен перейти в режим переименования")
	}

	manager.DeleteCrate(second.ID)
	third := manager.CreateCrate()
	if third.Name != "Crate 3" {
		t.Errorf("Номер крейта не должен переиспользоваться, получено %q", third.Name)
	}

	crates := manager.Crates()
	if len(crates) != 2 || crates[0].ID != first.ID || crates[1].ID != third.ID {
		t.Errorf("Крейты должны идти в порядке создания: %+v", crates)
	}
}

func TestRenameCrate(t *testing.T) {
	manager := NewManager(nil, nil)
	crate := manager.CreateCrate()

	for _, name := range []string{"", "   ", "\t\n"} {
		err := manager.RenameCrate(crate.ID, name)
		if !errors.Is(err, ErrEmptyCrateName) {
			t.Errorf("Имя %q: ожидалась ErrEmptyCrateName, получено %v", name, err)
		}
	}
	if c, _ := manager.Crate(crate.ID); c.Name != "Crate 1" {
		t.Errorf("Имя не должно меняться, получено %q", c.Name)
	}
	if manager.EditingCrate() != crate.ID {
		t.Error("После отклоненного имени режим переименования сохраняется")
	}

	if err := manager.RenameCrate(crate.ID, "  Late Night  "); err != nil {
		t.Fatalf("Неожиданная ошибка: %v", err)
	}
	if c, _ := manager.Crate(crate.ID); c.Name != "Late Night" {
		t.Errorf("Ожидалось имя 'Late Night', получено %q", c.Name)
	}
	if manager.EditingCrate() != "" {
		t.Error("После переименования режим редактирования должен завершиться")
	}

	// Неизвестный крейт игнорируется
	if err := manager.RenameCrate("missing", "Name"); err != nil {
		t.Errorf("Неизвестный крейт не должен давать ошибку: %v", err)
	}
}

func TestBeginAndCancelRename(t *testing.T) {
	manager := NewManager(nil, nil)
	crate := manager.CreateCrate()
	manager.CancelRename()

	if manager.EditingCrate() != "" {
		t.Error("Отмена должна выйти из режима переименования")
	}
	if manager.BeginRename("missing") {
		t.Error("Неизвестный крейт нельзя переименовать")
	}
	if !manager.BeginRename(crate.ID) || manager.EditingCrate() != crate.ID {
		t.Error("Крейт должен перейти в режим переименования")
	}

	manager.DeleteCrate(crate.ID)
	if manager.EditingCrate() != "" {
		t.Error("Удаление крейта завершает его переименование")
	}
}

func TestDeleteCrateKeepsTracks(t *testing.T) {
	manager := NewManager(testCatalog(), nil)
	first := manager.CreateCrate()
	second := manager.CreateCrate()
	manager.AddToCrate("1", first.ID)
	manager.AddToCrate("1", second.ID)

	manager.DeleteCrate(first.ID)
	manager.DeleteCrate(first.ID)

	if _, ok := manager.Crate(first.ID); ok {
		t.Error("Крейт должен быть удален")
	}
	if len(manager.Catalog()) != 3 {
		t.Error("Удаление крейта не должно затрагивать каталог")
	}
	if c, _ := manager.Crate(second.ID); len(c.Tracks) != 1 {
		t.Error("Удаление крейта не должно затрагивать другие крейты")
	}
}

func TestDeleteTrackCascade(t *testing.T) {
	manager := NewManager(testCatalog(), nil)
	crates := []data.Crate{manager.CreateCrate(), manager.CreateCrate(), manager.CreateCrate()}
	for _, c := range crates {
		manager.AddToCrate("1", c.ID)
		manager.AddToCrate("2", c.ID)
	}
	track, _ := manager.Track("2")
	manager.TogglePlaylistMembership(track)

	deleted, ok := manager.DeleteTrack("2")
	if !ok || deleted.Title != "Blinding Lights" {
		t.Fatalf("Ожидалось удаление трека, получено %+v %v", deleted, ok)
	}

	catalogIDs := make(map[string]bool)
	for _, track := range manager.Catalog() {
		catalogIDs[track.ID] = true
	}
	for _, c := range manager.Crates() {
		for _, id := range c.Tracks {
			if !catalogIDs[id] {
				t.Errorf("Крейт %s ссылается на отсутствующий трек %s", c.Name, id)
			}
		}
	}
	if manager.InPlaylist("2") {
		t.Error("Трек должен быть удален из эфира")
	}

	if _, ok := manager.DeleteTrack("2"); ok {
		t.Error("Повторное удаление должно игнорироваться")
	}
}

func TestReadsReturnCopies(t *testing.T) {
	manager := NewManager(testCatalog(), nil)
	crate := manager.CreateCrate()
	manager.AddToCrate("1", crate.ID)

	catalog := manager.Catalog()
	catalog[0].Title = "Changed"
	c, _ := manager.Crate(crate.ID)
	c.Tracks[0] = "changed"

	if track, _ := manager.Track("1"); track.Title != "OMW" {
		t.Error("Изменение копии каталога не должно влиять на библиотеку")
	}
	if c, _ := manager.Crate(crate.ID); c.Tracks[0] != "1" {
		t.Error("Изменение копии крейта не должно влиять на библиотеку")
	}
}

func TestUploadTracks(t *testing.T) {
	manager := NewManager(testCatalog(), nil)
	events := &collector{}
	manager.Subscribe(events.listen)

	files := []File{
		{Name: "Artist - Song.mp3", MIMEType: "audio/mpeg", Path: "/tmp/a.mp3", Duration: 185 * time.Second},
		{Name: "notes.txt", MIMEType: "text/plain", Path: "/tmp/notes.txt"},
		{Name: "Other_Tune.wav", MIMEType: "audio/wav", Path: "/tmp/b.wav", URL: "https://cdn.example.com/b.wav"},
		{Name: "Plain.flac", MIMEType: "audio/flac", Path: "/tmp/c.flac"},
	}

	tracks, err := manager.UploadTracks(files, Form{})
	if err != nil {
		t.Fatalf("Неожиданная ошибка: %v", err)
	}
	if len(tracks) != 3 {
		t.Fatalf("Ожидалось 3 трека, получено %d", len(tracks))
	}

	expected := []struct {
		title, artist, duration, url string
	}{
		{"Song", "Artist", "3:05", "/tmp/a.mp3"},
		{"Tune", "Other", "3:30", "https://cdn.example.com/b.wav"},
		{"Plain", metadata.UnknownArtist, "3:30", "/tmp/c.flac"},
	}
	for i, e := range expected {
		got := tracks[i]
		if got.Title != e.title || got.Artist != e.artist || got.Duration != e.duration || got.AudioURL != e.url {
			t.Errorf("Трек %d: ожидалось %+v, получено %+v", i, e, got)
		}
		if got.ID == "" {
			t.Errorf("Трек %d: ожидался сгенерированный ID", i)
		}
	}

	catalog := manager.Catalog()
	if len(catalog) != 6 || catalog[0].ID != tracks[0].ID || catalog[2].ID != tracks[2].ID || catalog[3].ID != "1" {
		t.Errorf("Новые треки должны идти в начале каталога: %v", ids(catalog))
	}
	if !equalIDs(manager.Playlist(), ids(tracks)...) {
		t.Errorf("Новые треки должны попасть в эфир: %v", ids(manager.Playlist()))
	}

	kinds := events.kinds()
	if len(kinds) != 1 || kinds[0] != EventTracksUploaded || len(events.events[0].Tracks) != 3 {
		t.Errorf("Ожидалось одно событие загрузки, получено %v", kinds)
	}
}

func TestUploadTracksFormOverrides(t *testing.T) {
	manager := NewManager(nil, nil)
	files := []File{
		{Name: "Artist - Song.mp3", MIMEType: "audio/mpeg"},
		{Name: "x.mp3", MIMEType: "audio/mpeg"},
		{Name: "y.mp3", MIMEType: "audio/mpeg"},
	}

	tracks, err := manager.UploadTracks(files, Form{Title: " Live Set ", Artist: "DJ"})
	if err != nil {
		t.Fatalf("Неожиданная ошибка: %v", err)
	}

	titles := []string{"Live Set", "Live Set (2)", "Live Set (3)"}
	for i, title := range titles {
		if tracks[i].Title != title || tracks[i].Artist != "DJ" {
			t.Errorf("Трек %d: ожидалось %q/DJ, получено %q/%q", i, title, tracks[i].Title, tracks[i].Artist)
		}
	}
}

func TestUploadTracksNoValidFiles(t *testing.T) {
	manager := NewManager(testCatalog(), nil)

	_, err := manager.UploadTracks([]File{{Name: "doc.pdf", MIMEType: "application/pdf"}}, Form{Title: "T", Artist: "A"})
	if !errors.Is(err, ErrNoValidFiles) {
		t.Errorf("Ожидалась ErrNoValidFiles, получено %v", err)
	}
	if _, err := manager.UploadTracks(nil, Form{}); !errors.Is(err, ErrNoValidFiles) {
		t.Errorf("Пустой выбор: ожидалась ErrNoValidFiles, получено %v", err)
	}
	if len(manager.Catalog()) != 3 || len(manager.Playlist()) != 0 {
		t.Error("Отклоненная загрузка не должна менять библиотеку")
	}
}

func TestEventKindString(t *testing.T) {
	if EventCrateRenamed.String() != "crate_renamed" {
		t.Errorf("Неверное имя события: %s", EventCrateRenamed)
	}
	if !strings.HasPrefix(EventKind(99).String(), "unknown") {
		t.Error("Неизвестный тип события должен называться unknown")
	}
}

func TestConcurrentAccess(t *testing.T) {
	manager := NewManager(testCatalog(), nil)
	crate := manager.CreateCrate()
	track, _ := manager.Track("1")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			manager.TogglePlaylistMembership(track)
		}()
		go func() {
			defer wg.Done()
			manager.AddToCrate("2", crate.ID)
		}()
		go func() {
			defer wg.Done()
			_ = manager.Search("the")
		}()
	}
	wg.Wait()

	// Четное число переключений возвращает эфир в исходное состояние
	if manager.InPlaylist("1") {
		t.Error("После 20 переключений трек не должен быть в эфире")
	}
	if c, _ := manager.Crate(crate.ID); len(c.Tracks) != 1 {
		t.Errorf("Ожидался один трек в крейте, получено %v", c.Tracks)
	}
}
