package bot

import (
	"fmt"
	"html"
	"strings"

	"khatma/internal/analytics"
	"khatma/internal/models"
	"khatma/internal/rotation"
)

const (
	msgWelcome = "🌙 <b>مرحباً بك في بوت ختمة الروضة الشاذلية!</b>\n\n" +
		"للربط بحسابك، أرسل اسمك الكامل كما هو مسجل في قائمة المشاركين.\n\n" +
		"<b>مثال:</b> أحمد محمد العلي"

	msgStartJourney = "🕌 <b>مرحباً بك في بوت ختمة الروضة الشاذلية!</b>\n\n" +
		"للانضمام إلى الختمة، أرسل اسمك الكامل كما هو مسجل في قائمة المشاركين.\n\n" +
		"<b>مثال:</b> أحمد محمد العلي\n\n" +
		"💡 <b>تأكد من كتابة اسمك بالضبط كما هو في القائمة.</b>"

	msgAbout = "📖 <b>عن برنامج ختمة الروضة الشاذلية</b>\n\n" +
		"برنامج قرآني مبارك يهدف إلى ختم القرآن الكريم بشكل جماعي كل جمعة.\n\n" +
		"🎯 <b>الهدف:</b>\n" +
		"• ختم القرآن الكريم كاملاً كل أسبوع\n" +
		"• تقسيم الأجزاء على المجموعات (3 أشخاص لكل مجموعة)\n" +
		"• كل شخص يقرأ جزءاً واحداً في الأسبوع، ويتغير جزؤه كل جمعة\n\n" +
		"جعلنا الله وإياكم من أهل القرآن 🤲"

	msgHelp = "❓ <b>كيفية استخدام البوت</b>\n\n" +
		"🕌 <b>للمشاركين الجدد:</b>\n" +
		"1️⃣ اضغط \"ابدأ الآن\"\n" +
		"2️⃣ أرسل اسمك الكامل (كما هو في القائمة)\n" +
		"3️⃣ انتظر رسالة التأكيد\n\n" +
		"✅ <b>لتسجيل قراءتك:</b>\n" +
		"• اضغط زر \"سجّل قراءتك\" من القائمة\n" +
		"• أو أرسل الأمر: /تم\n\n" +
		"📊 <b>لمعرفة إحصائياتك:</b>\n" +
		"• اضغط زر \"إحصائياتي\" من القائمة\n" +
		"• أو أرسل الأمر: /حالتي\n\n" +
		"🏠 <b>للقائمة الرئيسية:</b> /menu"

	msgDua = "🤲 <b>دعاء ختم القرآن الكريم</b>\n\n" +
		"اللَّهُمَّ ارْحَمْنِي بالقُرْءَانِ وَاجْعَلهُ لِي إِمَامًا وَنُورًا وَهُدًى وَرَحْمَةً.\n\n" +
		"اللَّهُمَّ ذَكِّرْنِي مِنْهُ مَا نُسِّيتُ وَعَلِّمْنِي مِنْهُ مَا جَهِلْتُ وَارْزُقْنِي تِلاَوَتَهُ آنَاءَ اللَّيْلِ وَأَطْرَافَ النَّهَارِ وَاجْعَلْهُ لِي حُجَّةً يَا رَبَّ العَالَمِينَ.\n\n" +
		"آمين يا رب العالمين 🤲"

	msgTips = "💬 <b>نصائح لقراءة القرآن الكريم</b>\n\n" +
		"1️⃣ <b>الإخلاص:</b> اجعل نيتك خالصة لله تعالى\n\n" +
		"2️⃣ <b>الطهارة:</b> احرص على الوضوء قبل القراءة\n\n" +
		"3️⃣ <b>الخشوع:</b> تدبر معاني الآيات وتأمل فيها\n\n" +
		"4️⃣ <b>الترتيل:</b> اقرأ بتأنٍ وترتيل\n\n" +
		"5️⃣ <b>الاستمرار:</b> اجعل لك ورداً يومياً ثابتاً\n\n" +
		"﴿وَرَتِّلِ الْقُرْآنَ تَرْتِيلًا﴾"

	msgOpenQuran = "📖 <b>افتح المصحف الشريف</b>\n\n" +
		"يمكنك قراءة القرآن الكريم بالرسم العثماني (مصحف المدينة) مجاناً."

	msgNotLinked = "❌ <b>لم يتم ربط حسابك بعد!</b>\n\n" +
		"لاستخدام هذه الميزة، يجب عليك أولاً ربط حسابك بإرسال اسمك الكامل.\n\n" +
		"<b>مثال:</b> أحمد محمد العلي"

	msgCancelLink = "تم إلغاء عملية الربط. يمكنك المحاولة مرة أخرى بإرسال اسمك الصحيح."

	msgNoCurrentFriday = "⚠️ حدث خطأ في تحديد الجمعة الحالية.\nيرجى التواصل مع المشرف."

	msgNoAssignment = "⚠️ لم يتم العثور على قراءة لك في هذه الجمعة.\nيرجى التواصل مع المشرف."

	msgUnknownCommand = "🤔 لم أتعرف على هذا الأمر.\nأرسل /help لعرض الأوامر المتاحة."

	msgTextOnly = "📝 يرجى إرسال رسالة نصية، أو استخدام الأزرار أدناه."

	// MsgGenericFailure is sent whenever handling an update fails unexpectedly
	MsgGenericFailure = "❌ حدث خطأ غير متوقع أثناء معالجة طلبك.\n\nيرجى المحاولة مرة أخرى لاحقاً أو التواصل مع المشرف."
)

func linkedText(p *models.Person) string {
	return fmt.Sprintf("🎉 <b>تم ربط حسابك بنجاح!</b>\n\n"+
		"مرحباً %s!\n\n"+
		"من الآن فصاعداً ستصلك:\n"+
		"• ✅ تأكيد عند تسجيل قراءتك\n"+
		"• 🔔 تذكير أسبوعي بموعد القراءة\n\n"+
		"بارك الله فيك ووفقك لما يحب ويرضى 🤲", html.EscapeString(p.Name))
}

func notFoundText(name string) string {
	return fmt.Sprintf("❌ لم يتم العثور على الاسم \"%s\" في قائمة المشاركين.\n\n"+
		"تأكد من كتابة اسمك بالضبط كما هو في القائمة.\n\n"+
		"إذا كنت متأكداً من الاسم، تواصل مع المشرف.", html.EscapeString(name))
}

func suggestText(name string) string {
	return fmt.Sprintf("🔎 لم نجد الاسم كما كتبته، هل تقصد <b>%s</b>؟", html.EscapeString(name))
}

func ambiguousText(name string) string {
	return fmt.Sprintf("⚠️ يوجد أكثر من مشارك مسجل بالاسم \"%s\".\n\n"+
		"لا يمكن ربط الحساب تلقائياً، يرجى التواصل مع المشرف.", html.EscapeString(name))
}

func linkedElsewhereText(name string) string {
	return fmt.Sprintf("⚠️ الاسم \"%s\" مرتبط بحساب تيليجرام آخر، أو أن حسابك مرتبط باسم آخر.\n\n"+
		"إذا كان هذا خطأ، يرجى التواصل مع المشرف.", html.EscapeString(name))
}

func alreadyLinkedText(p *models.Person) string {
	return fmt.Sprintf("👋 حسابك مرتبط باسم <b>%s</b>.\n\nاستخدم الأزرار أدناه أو أرسل /help.", html.EscapeString(p.Name))
}

func khatmaLabel(n int) string {
	switch n {
	case 1:
		return "الأولى"
	case 2:
		return "الثانية"
	default:
		return fmt.Sprintf("%d", n)
	}
}

// assignment is a participant's slot in one reading
type assignment struct {
	reading *models.Reading
	slot    models.Slot
	juz     int
}

func menuText(p *models.Person, friday *models.Friday, a *assignment) string {
	var b strings.Builder
	b.WriteString("🕌 <b>القائمة الرئيسية</b>\n\n")
	fmt.Fprintf(&b, "مرحباً <b>%s</b>!\n\n", html.EscapeString(p.Name))

	switch {
	case friday == nil:
		b.WriteString("⚠️ لم يتم العثور على بيانات الجمعة.\nيرجى التواصل مع المشرف.")
	case a == nil:
		b.WriteString("⚠️ لم يتم العثور على قراءة لهذه الجمعة.\nيرجى التواصل مع المشرف.")
	default:
		fmt.Fprintf(&b, "📅 <b>الجمعة:</b> %d (%s)\n", friday.FridayNumber, friday.Date.Format(models.DateOnly))
		fmt.Fprintf(&b, "👥 <b>المجموعة:</b> %d\n", a.reading.GroupNumber)
		fmt.Fprintf(&b, "📖 <b>الجزء المخصص:</b> %d (%s)\n", a.juz, rotation.JuzName(a.juz))
		fmt.Fprintf(&b, "📚 <b>الختمة:</b> %s\n\n", khatmaLabel(a.reading.KhatmaNumber))
		if a.slot.Done {
			b.WriteString("✅ <b>تم التسجيل!</b> بارك الله فيك 🌟")
		} else {
			b.WriteString("⏳ <b>لم يتم التسجيل بعد</b>\nلتسجيل قراءتك، اضغط \"سجّل قراءتك\" 👇")
		}
	}
	return b.String()
}

func alreadyDoneText(a *assignment) string {
	return fmt.Sprintf("✅ <b>تم التسجيل مسبقاً!</b>\n\n"+
		"لقد سجّلت قراءة الجزء %d للجمعة %d من قبل.\n\n"+
		"بارك الله فيك! 🌟", a.juz, a.reading.FridayNumber)
}

func markedText(p *models.Person, a *assignment, motivation string) string {
	return fmt.Sprintf("✅ <b>تم تسجيل قراءتك بنجاح!</b>\n\n"+
		"👤 <b>الاسم:</b> %s\n"+
		"📅 <b>الجمعة:</b> %d\n"+
		"👥 <b>المجموعة:</b> %d\n"+
		"📖 <b>الجزء:</b> %d\n\n"+
		"%s\n\n"+
		"جزاك الله خيراً على المواظبة! 🌟",
		html.EscapeString(p.Name), a.reading.FridayNumber, a.reading.GroupNumber, a.juz, motivation)
}

func quranText(friday *models.Friday, a *assignment) string {
	return fmt.Sprintf("📖 <b>افتح المصحف الشريف</b>\n\n"+
		"جزؤك المطلوب هذا الأسبوع:\n"+
		"📅 الجمعة: %d (%s)\n"+
		"👥 المجموعة: %d\n"+
		"📖 الجزء: %d\n\n"+
		"اضغط الزر أدناه لفتح المصحف مباشرة على جزئك.",
		friday.FridayNumber, friday.Date.Format(models.DateOnly), a.reading.GroupNumber, a.juz)
}

func rankEmoji(rank int) string {
	switch rank {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	default:
		return "🏅"
	}
}

func statusText(p *models.Person, s analytics.Summary) string {
	var b strings.Builder
	b.WriteString("📊 <b>حالة قراءاتك</b>\n\n")
	fmt.Fprintf(&b, "👤 الاسم: %s\n", html.EscapeString(p.Name))
	b.WriteString("───────────────\n\n")
	fmt.Fprintf(&b, "✅ <b>قراءات مكتملة:</b> %d\n", s.Completed)
	fmt.Fprintf(&b, "⏳ <b>قراءات منتظرة:</b> %d\n", s.Pending)
	fmt.Fprintf(&b, "🔥 <b>قراءات متتالية:</b> %d\n", s.Streak)
	fmt.Fprintf(&b, "💯 <b>نسبة الإنجاز:</b> %d%%\n\n", s.Rate)

	if last := s.LastCompleted; last != nil {
		b.WriteString("📖 <b>آخر قراءة:</b>\n")
		fmt.Fprintf(&b, "   • الجمعة: %d\n", last.FridayNumber)
		fmt.Fprintf(&b, "   • الجزء: %d\n", last.JuzNumber)
		fmt.Fprintf(&b, "   • التاريخ: %s\n\n", last.CompletedAt.Format(models.DateOnly))
	} else {
		b.WriteString("📖 <b>آخر قراءة:</b> لم تسجل بعد\n\n")
	}

	if s.GroupRank.Rank > 0 {
		fmt.Fprintf(&b, "%s <b>ترتيبك في المجموعة:</b> %d من %d\n\n", rankEmoji(s.GroupRank.Rank), s.GroupRank.Rank, s.GroupRank.Size)
	}

	switch {
	case s.Streak >= 10:
		b.WriteString("🌟 ماشاء الله! التزام مميز!\n")
	case s.Streak >= 5:
		b.WriteString("💪 رائع! استمر على هذا التميز!\n")
	case s.Pending > 0:
		fmt.Fprintf(&b, "📌 لديك %d قراءة منتظرة.\n", s.Pending)
	}
	b.WriteString("\nجزاك الله خيراً 🤲")
	return b.String()
}
