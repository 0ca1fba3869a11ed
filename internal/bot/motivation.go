package bot

import (
	"math/rand/v2"
	"strings"
)

// Achievement describes the participant right after marking a reading
type Achievement struct {
	Streak       int
	Rate         int
	FirstInGroup bool
	FirstOverall bool
}

// Picker chooses an index in [0, n)
type Picker func(n int) int

type tier struct {
	min      int
	messages []string
}

// Highest threshold first
var streakTiers = []tier{
	{30, []string{
		"سبحان الله العظيم! ختمة كاملة متتالية 🕌✨",
		"ماشاء الله تبارك الله! ختمة كاملة بلا انقطاع 📖👑",
		"بارك الله فيك! إنجاز عظيم، ختمة كاملة 🌟🌟🌟🌟🌟",
	}},
	{20, []string{
		"الله أكبر! عشرون قراءة متتالية 🏆🏆",
		"إنجاز تاريخي! عشرون قراءة متتالية 👑💫",
		"ماشاء الله! التزام لا يُصدق 🌟🌟🌟🌟",
	}},
	{15, []string{
		"سبحان الله! خمسة عشر قراءة متتالية 🏆👑",
		"التزام نادر! خمسة عشر قراءة متتالية 💎✨",
		"ماشاء الله تبارك الله! إنجاز عظيم 🌟🌟🌟",
	}},
	{10, []string{
		"ماشاء الله! عشر قراءات متتالية 👑",
		"إنجاز استثنائي! عشر قراءات متتالية 🌟🌟",
		"بارك الله فيك! التزام رائع لعشر قراءات متتالية 💫",
	}},
	{7, []string{
		"سبحان الله! سبع قراءات متتالية 🌙⭐",
		"التزام مميز! سبع قراءات متتالية 🏅",
		"ماشاء الله! سبع جمعات من الالتزام 🎯",
	}},
	{5, []string{
		"ماشاء الله تبارك الله! خمس قراءات متتالية 🏆",
		"إنجاز رائع! خمس قراءات متتالية 🌟✨",
		"بارك الله في حرصك! خمس قراءات متتالية 💎",
	}},
	{3, []string{
		"ماشاء الله! ثلاث قراءات متتالية 🔥",
		"استمر على هذا التميز! ثلاث قراءات متتالية 💪",
		"رائع! ثلاث قراءات متتالية، بارك الله فيك 🌟",
	}},
}

var rateTiers = []tier{
	{100, []string{
		"مبروك! اكتملت قراءاتك كلها بفضل الله 🎉🏆",
		"الله أكبر! إنجاز كامل، تقبل الله منك 🕌✨",
		"ماشاء الله تبارك الله! نسبة إنجاز كاملة 📖👑",
	}},
	{75, []string{
		"ثلاثة أرباع الطريق! قريب جداً من الكمال 🎯✨",
		"75% اكتمل! الله يعينك على الإتمام 🌟",
		"ماشاء الله! أوشكت على الإنجاز الكامل 💎",
	}},
	{50, []string{
		"نصف الطريق! ماشاء الله 🌟",
		"50% من الطريق! إنجاز رائع 💪",
		"نصف القراءات اكتمل! بارك الله فيك 📖",
	}},
	{25, []string{
		"ربع الطريق! استمر بارك الله فيك 🎯",
		"25% من الطريق! بداية موفقة ✨",
	}},
}

var (
	firstInGroupMessages = []string{
		"ماشاء الله! أول من سجل في مجموعتك 🥇",
		"رائع! أنت الأول في مجموعتك 🌟",
		"بارك الله فيك! أول من بادر في المجموعة 💫",
	}
	firstOverallMessages = []string{
		"سبحان الله! أول من سجل في هذه الجمعة 🏆🥇",
		"ماشاء الله! أنت السباق لهذا الأسبوع 👑",
		"الله يبارك فيك! أول من بادر في الجمعة 🌟✨",
	}
	generalMessages = []string{
		"جزاك الله خيراً على حرصك 🌟",
		"بارك الله فيك وفي قراءتك 📖",
		"تقبل الله منك 🤲✨",
		"الله يعينك على إتمام الختمة 💪",
		"ماشاء الله! استمر على هذا الحرص 🌟",
	}
)

func randomPicker(n int) int {
	return rand.IntN(n)
}

// Motivation assembles the congratulation lines: at most one special
// achievement, one streak tier and one rate tier, or a general line.
func Motivation(a Achievement, pick Picker) string {
	if pick == nil {
		pick = randomPicker
	}
	choose := func(msgs []string) string { return msgs[pick(len(msgs))] }

	var lines []string
	switch {
	case a.FirstOverall:
		lines = append(lines, choose(firstOverallMessages))
	case a.FirstInGroup:
		lines = append(lines, choose(firstInGroupMessages))
	}
	if t, ok := reach(streakTiers, a.Streak); ok {
		lines = append(lines, choose(t.messages))
	}
	if t, ok := reach(rateTiers, a.Rate); ok {
		lines = append(lines, choose(t.messages))
	}
	if len(lines) == 0 {
		lines = append(lines, choose(generalMessages))
	}
	return strings.Join(lines, "\n")
}

func reach(tiers []tier, v int) (tier, bool) {
	for _, t := range tiers {
		if v >= t.min {
			return t, true
		}
	}
	return tier{}, false
}
