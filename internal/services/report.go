package services

import (
	"fmt"
	"html"
	"strings"
)

const maxReportErrors = 10

// ReportText renders a dispatch summary for administrators
func ReportText(s DispatchSummary) string {
	var b strings.Builder
	b.WriteString("📊 <b>تقرير التذكيرات التلقائية</b>\n\n")
	fmt.Fprintf(&b, "📅 الجمعة رقم: %d\n", s.FridayNumber)
	fmt.Fprintf(&b, "👥 إجمالي المتأخرين: %d\n", s.Total)
	fmt.Fprintf(&b, "✅ تم الإرسال: %d\n", s.Sent)
	fmt.Fprintf(&b, "❌ فشل الإرسال: %d\n", s.Failed)

	if len(s.Errors) > 0 {
		b.WriteString("\n<b>الأخطاء:</b>\n")
		for i, e := range s.Errors {
			if i == maxReportErrors {
				fmt.Fprintf(&b, "... و %d أخطاء أخرى\n", len(s.Errors)-maxReportErrors)
				break
			}
			fmt.Fprintf(&b, "• %s: %s\n", html.EscapeString(e.Name), html.EscapeString(e.Error))
		}
	}
	if s.Total == 0 {
		b.WriteString("\n🎉 لا يوجد متأخرون هذا الأسبوع")
	}
	return strings.TrimRight(b.String(), "\n")
}

// ReportEmail renders the same summary as a subject, plain text and HTML
func ReportEmail(s DispatchSummary) (subject, plain, htmlBody string) {
	subject = fmt.Sprintf("Khatma reminders, Friday %d: %d/%d sent", s.FridayNumber, s.Sent, s.Total)

	var p, h strings.Builder
	fmt.Fprintf(&p, "Friday %d\nPending: %d\nSent: %d\nFailed: %d\n", s.FridayNumber, s.Total, s.Sent, s.Failed)
	fmt.Fprintf(&h, "<h3>Friday %d</h3><ul><li>Pending: %d</li><li>Sent: %d</li><li>Failed: %d</li></ul>",
		s.FridayNumber, s.Total, s.Sent, s.Failed)

	if len(s.Errors) > 0 {
		p.WriteString("\nErrors:\n")
		h.WriteString("<p>Errors:</p><ul>")
		for i, e := range s.Errors {
			if i == maxReportErrors {
				fmt.Fprintf(&p, "... and %d more\n", len(s.Errors)-maxReportErrors)
				fmt.Fprintf(&h, "<li>... and %d more</li>", len(s.Errors)-maxReportErrors)
				break
			}
			fmt.Fprintf(&p, "- %s: %s\n", e.Name, e.Error)
			fmt.Fprintf(&h, "<li><strong>%s</strong>: %s</li>", html.EscapeString(e.Name), html.EscapeString(e.Error))
		}
		h.WriteString("</ul>")
	}
	return subject, p.String(), h.String()
}
