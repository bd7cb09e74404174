// internal/notification/templates.go
// Email rendering for match introductions, digests and reminders.

package notification

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/playdatehub/playdate-backend/internal/matching"
)

var dayNames = [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

var bandLabels = map[string]string{
	matching.BandMorning:   "morning",
	matching.BandAfternoon: "afternoon",
	matching.BandEvening:   "evening",
	matching.BandAllDay:    "all day",
}

// FormatSlot renders one shared slot as e.g. "Wednesday morning".
func FormatSlot(s matching.SharedSlot) string {
	day := "Unknown"
	if s.DayOfWeek >= 0 && s.DayOfWeek <= 6 {
		day = dayNames[s.DayOfWeek]
	}
	band := bandLabels[s.TimeBand]
	if band == "" {
		band = s.TimeBand
	}
	return day + " " + band
}

func formatSlotList(slots matching.SharedSlotList) string {
	parts := make([]string, 0, len(slots))
	for _, s := range slots {
		parts = append(parts, FormatSlot(s))
	}
	return strings.Join(parts, ", ")
}

const baseEmailTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            line-height: 1.6;
            color: #333;
            max-width: 600px;
            margin: 0 auto;
            padding: 20px;
        }
        .header {
            background: linear-gradient(135deg, #4facfe 0%, #00f2fe 100%);
            color: white;
            padding: 30px;
            text-align: center;
            border-radius: 10px 10px 0 0;
        }
        .content {
            background: white;
            padding: 30px;
            border: 1px solid #e0e0e0;
            border-radius: 0 0 10px 10px;
        }
        .footer {
            text-align: center;
            padding: 20px;
            color: #666;
            font-size: 14px;
        }
    </style>
</head>
<body>
    <div class="header">
        <h1>{{.Title}}</h1>
    </div>
    <div class="content">
        {{.Content}}
    </div>
    <div class="footer">
        <p>PlaydateHub - connecting parents in your neighbourhood</p>
    </div>
</body>
</html>
`

// renderEmail renders the base layout with a title and pre-built HTML content.
func renderEmail(title string, content template.HTML) (string, error) {
	tmpl, err := template.New("email").Parse(baseEmailTemplate)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, map[string]interface{}{
		"Title":   title,
		"Content": content,
	})
	return buf.String(), err
}

// NewMatchEmail builds the introduction email for a newly found match.
func NewMatchEmail(to string, summary matching.MatchSummary) (*EmailMessage, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<p>Good news! <strong>%s</strong> looks like a great playdate match for your family.</p>",
		template.HTMLEscapeString(summary.PeerName))
	fmt.Fprintf(&sb, "<p>Compatibility score: <strong>%d/100</strong>, about %.1f km away.</p>",
		summary.Score, summary.DistanceKm)
	if len(summary.SharedSlots) > 0 {
		fmt.Fprintf(&sb, "<p>You are both free: %s.</p>",
			template.HTMLEscapeString(formatSlotList(summary.SharedSlots)))
	}
	sb.WriteString("<p>Open the app to say hello!</p>")

	html, err := renderEmail("You have a new playdate match!", template.HTML(sb.String()))
	if err != nil {
		return nil, err
	}

	plain := fmt.Sprintf("%s looks like a great playdate match (score %d/100, %.1f km away).",
		summary.PeerName, summary.Score, summary.DistanceKm)

	return &EmailMessage{
		To:      to,
		Subject: fmt.Sprintf("New playdate match: %s", summary.PeerName),
		Body:    plain,
		HTML:    html,
	}, nil
}

// WeeklyDigestEmail builds the week-ahead summary email.
func WeeklyDigestEmail(to string, entries []matching.DigestEntry) (*EmailMessage, error) {
	var sb strings.Builder
	sb.WriteString("<p>Here is who you could meet this week:</p><ul>")
	for _, e := range entries {
		fmt.Fprintf(&sb, "<li><strong>%s</strong> (score %d) - %s</li>",
			template.HTMLEscapeString(e.PeerName), e.Score,
			template.HTMLEscapeString(formatSlotList(e.SharedSlots)))
	}
	sb.WriteString("</ul>")

	html, err := renderEmail("Your week ahead", template.HTML(sb.String()))
	if err != nil {
		return nil, err
	}

	return &EmailMessage{
		To:      to,
		Subject: "Your playdate matches for the week ahead",
		Body:    fmt.Sprintf("You have %d playdate matches this week.", len(entries)),
		HTML:    html,
	}, nil
}

// DayBeforeReminderEmail builds the reminder email for tomorrow's overlaps.
func DayBeforeReminderEmail(to string, entries []matching.DigestEntry) (*EmailMessage, error) {
	var sb strings.Builder
	sb.WriteString("<p>Tomorrow you share free time with:</p><ul>")
	for _, e := range entries {
		fmt.Fprintf(&sb, "<li><strong>%s</strong> - %s</li>",
			template.HTMLEscapeString(e.PeerName),
			template.HTMLEscapeString(formatSlotList(e.SharedSlots)))
	}
	sb.WriteString("</ul><p>Why not plan a playdate?</p>")

	html, err := renderEmail("Playdate reminder", template.HTML(sb.String()))
	if err != nil {
		return nil, err
	}

	return &EmailMessage{
		To:      to,
		Subject: "Reminder: playdate opportunities tomorrow",
		Body:    fmt.Sprintf("You share free time with %d families tomorrow.", len(entries)),
		HTML:    html,
	}, nil
}
