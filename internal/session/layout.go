package session

// Высоты элементов нижней панели в пикселях
const (
	PlayerHeight       = 80
	MobilePlayerHeight = 64
	MobileNavHeight    = 60
)

// Layout производное значение раскладки: сколько места снизу занимают
// плеер и мобильная навигация
type Layout struct {
	PlayerVisible  bool `json:"playerVisible"`
	Compact        bool `json:"compact"`
	ReservedBottom int  `json:"reservedBottom"` // пиксели
	PlayerRows     int  `json:"playerRows"`     // строки терминала под плеер
}

// ComputeLayout вычисляет раскладку по наличию текущего трека и узкому экрану
func ComputeLayout(hasCurrentTrack, isMobile bool) Layout {
	layout := Layout{PlayerVisible: hasCurrentTrack, Compact: isMobile}

	if isMobile {
		layout.ReservedBottom = MobileNavHeight
	}
	if !hasCurrentTrack {
		return layout
	}

	if isMobile {
		layout.ReservedBottom += MobilePlayerHeight
		layout.PlayerRows = 2
	} else {
		layout.ReservedBottom += PlayerHeight
		layout.PlayerRows = 4
	}
	return layout
}
