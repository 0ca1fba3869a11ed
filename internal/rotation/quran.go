package rotation

import "fmt"

const quranFlashURL = "https://app.quranflash.com/book/Medina1?ar&startpage=%d#/reader"

var ordinals = [UnitCount]string{
	"الأول", "الثاني", "الثالث", "الرابع", "الخامس",
	"السادس", "السابع", "الثامن", "التاسع", "العاشر",
	"الحادي عشر", "الثاني عشر", "الثالث عشر", "الرابع عشر", "الخامس عشر",
	"السادس عشر", "السابع عشر", "الثامن عشر", "التاسع عشر", "العشرون",
	"الحادي والعشرون", "الثاني والعشرون", "الثالث والعشرون", "الرابع والعشرون", "الخامس والعشرون",
	"السادس والعشرون", "السابع والعشرون", "الثامن والعشرون", "التاسع والعشرون", "الثلاثون",
}

// StartPage returns the Madinah mushaf page a juz starts on
func StartPage(juz int) (int, error) {
	if juz < 1 || juz > UnitCount {
		return 0, fmt.Errorf("invalid juz number %d", juz)
	}
	if juz == 1 {
		return 1, nil
	}
	return 2 + (juz-1)*20, nil
}

// ReaderLink returns a deep link opening the mushaf at the start of juz
func ReaderLink(juz int) (string, error) {
	page, err := StartPage(juz)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(quranFlashURL, page), nil
}

// JuzName returns the Arabic name of a juz, e.g. "الجزء الثلاثون"
func JuzName(juz int) string {
	if juz < 1 || juz > UnitCount {
		return fmt.Sprintf("الجزء %d", juz)
	}
	return "الجزء " + ordinals[juz-1]
}
