package main

import (
	"sort"
	"strings"
)

// Avatar はカレンダーのマスに表示する1人分の見た目です。
type Avatar struct {
	UserID    string  `json:"userId"`
	Name      string  `json:"name"`
	Letter    string  `json:"letter"`
	Color     string  `json:"color"`
	ColorDark string  `json:"colorDark"`
	Photo     *string `json:"photo,omitempty"`
}

// ResolveAvatar はイベントの表示名と文字を決めます。
//
// イベントに保存された名前や文字は作成時点のものなので、後からのプロフィール変更を反映するため
// 閲覧者本人のプロフィール、メタデータキャッシュ、イベント上の値、保存名の先頭文字の順で優先します。
func ResolveAvatar(ev CalendarEvent, viewer *UserRecord, usersMap map[string]UserMeta) Avatar {
	var (
		names   []string
		letters []*string
	)
	if viewer != nil && viewer.UID == ev.UserID {
		names = append(names, viewer.DisplayName)
		letters = append(letters, viewer.CustomLetter)
	}
	if meta, ok := usersMap[ev.UserID]; ok {
		names = append(names, meta.DisplayName)
		letters = append(letters, meta.CustomLetter)
	}
	names = append(names, ev.UserName)
	letters = append(letters, ev.CustomLetter)

	name := firstNonEmpty(names...)
	var custom *string
	for _, l := range letters {
		if strings.TrimSpace(strVal(l)) != "" {
			custom = l
			break
		}
	}

	return Avatar{
		UserID:    ev.UserID,
		Name:      name,
		Letter:    DisplayLetter(custom, name),
		Color:     UserColor(ev.UserID),
		ColorDark: UserColorDark(ev.UserID),
		Photo:     ev.UserPhoto,
	}
}

// LegendEntry は凡例の1行です。
type LegendEntry struct {
	Avatar
	IsViewer   bool `json:"isViewer"`
	EventCount int  `json:"eventCount"`
}

// BuildLegend はイベントに登場するユーザーと閲覧者本人を重複なく並べます。
// 閲覧者が先頭で、残りは名前順です。
func BuildLegend(events []CalendarEvent, viewer *UserRecord, usersMap map[string]UserMeta) []LegendEntry {
	entries := map[string]*LegendEntry{}
	for _, ev := range events {
		if ev.UserID == "" {
			continue
		}
		e, ok := entries[ev.UserID]
		if !ok {
			e = &LegendEntry{Avatar: ResolveAvatar(ev, viewer, usersMap)}
			entries[ev.UserID] = e
		}
		e.EventCount++
	}

	if viewer != nil && viewer.UID != "" {
		e, ok := entries[viewer.UID]
		if !ok {
			self := CalendarEvent{
				UserID:       viewer.UID,
				UserName:     viewer.displayNameOrFallback(),
				UserPhoto:    viewer.PhotoURL,
				CustomLetter: viewer.CustomLetter,
			}
			e = &LegendEntry{Avatar: ResolveAvatar(self, viewer, usersMap)}
			entries[viewer.UID] = e
		}
		e.IsViewer = true
	}

	legend := make([]LegendEntry, 0, len(entries))
	for _, e := range entries {
		legend = append(legend, *e)
	}
	sort.SliceStable(legend, func(i, j int) bool {
		if legend[i].IsViewer != legend[j].IsViewer {
			return legend[i].IsViewer
		}
		ni, nj := strings.ToLower(legend[i].Name), strings.ToLower(legend[j].Name)
		if ni != nj {
			return ni < nj
		}
		return legend[i].UserID < legend[j].UserID
	})
	return legend
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
