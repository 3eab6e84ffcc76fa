package main

import "time"

// 各日のデータ構造
type Day struct {
	Date    string   `json:"date"` // "YYYY-MM-DD" 形式の日付
	Week    string   `json:"week"` // "Mon", "Tue", など
	InMonth bool     `json:"inMonth"`
	Avatars []Avatar `json:"avatars"`
}

// MonthView はカレンダー1か月分の表示データです。
type MonthView struct {
	Year  int   `json:"year"`
	Month int   `json:"month"`
	Days  []Day `json:"days"`
}

func adjustDate(baseYear int, baseMonth int, moveStr string) (int, int) {
	// 現在の年月を「1日」で作る（AddDateでズレないように）
	baseDate := time.Date(baseYear, time.Month(baseMonth), 1, 0, 0, 0, 0, time.UTC)

	// 月移動処理
	switch moveStr {
	case "next":
		baseDate = baseDate.AddDate(0, 1, 0) // 1ヶ月進める
	case "prev":
		baseDate = baseDate.AddDate(0, -1, 0) // 1ヶ月戻す
	}

	return baseDate.Year(), int(baseDate.Month())
}

// 指定された月の月末までの日数を計算
func getEndOfMonth(year int, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// 日付をDay型で生成する関数
func generateDay(date time.Time, inMonth bool) Day {
	return Day{
		Date:    date.Format(dateLayout),
		Week:    date.Weekday().String()[:3], // 曜日を3文字に
		InMonth: inMonth,
		Avatars: []Avatar{},
	}
}

// generateDays は日曜始まりの週に揃えた日付の一覧を作ります。
// 1日より前と月末より後は、前後の月の日付で埋めます。
func generateDays(baseYear int, baseMonth int) []Day {
	firstDay := time.Date(baseYear, time.Month(baseMonth), 1, 0, 0, 0, 0, time.UTC)
	endOfMonth := getEndOfMonth(baseYear, baseMonth)
	lastDay := firstDay.AddDate(0, 0, endOfMonth-1)

	var days []Day

	// 前月分（1日の曜日が日曜でない場合）
	for i := int(firstDay.Weekday()); i > 0; i-- {
		days = append(days, generateDay(firstDay.AddDate(0, 0, -i), false))
	}

	// 該当月の日付データ生成
	for i := 0; i < endOfMonth; i++ {
		days = append(days, generateDay(firstDay.AddDate(0, 0, i), true))
	}

	// 翌月分（月末の曜日が土曜でない場合）
	for i := 1; i <= int(time.Saturday-lastDay.Weekday()); i++ {
		days = append(days, generateDay(lastDay.AddDate(0, 0, i), false))
	}
	return days
}

// buildMonthView は指定月のマスに、その日の予定のアバターを並べます。
func buildMonthView(year, month int, events []CalendarEvent, viewer *UserRecord, usersMap map[string]UserMeta) MonthView {
	days := generateDays(year, month)

	index := make(map[string]int, len(days))
	for i, d := range days {
		index[d.Date] = i
	}
	for _, ev := range events {
		if i, ok := index[ev.Date]; ok {
			days[i].Avatars = append(days[i].Avatars, ResolveAvatar(ev, viewer, usersMap))
		}
	}
	return MonthView{Year: year, Month: month, Days: days}
}
