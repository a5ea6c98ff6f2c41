// Package delivery publishes eligible competitions to the configured messaging channels.
package delivery

import (
	"fmt"
	"strings"
	"time"

	"github.com/jonathan/competition-radar/internal/types"
)

var monthsID = [...]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

// Message is one poster with its caption.
type Message struct {
	RecordID int64
	PhotoURL string
	Caption  string
}

// NewMessage builds the outgoing message for a record.
func NewMessage(rec *types.Competition) Message {
	return Message{RecordID: rec.ID, PhotoURL: rec.PosterURL, Caption: Caption(rec)}
}

// Caption formats the title, then levels, deadline and registration link when known.
func Caption(rec *types.Competition) string {
	var sb strings.Builder
	sb.WriteString("🏆 ")
	sb.WriteString(strings.TrimSpace(rec.Title))

	var details []string
	if len(rec.Level) > 0 {
		details = append(details, "🎓 Jenjang: "+strings.Join(rec.Level, ", "))
	}
	if rec.EndDate != nil {
		details = append(details, "📅 Deadline: "+FormatDate(*rec.EndDate))
	}
	if rec.RegistrationURL != "" {
		details = append(details, "🔗 Daftar: "+rec.RegistrationURL)
	}
	if len(details) > 0 {
		sb.WriteString("\n\n")
		sb.WriteString(strings.Join(details, "\n"))
	}
	return sb.String()
}

// FormatDate renders a date the Indonesian way, e.g. "5 Maret 2025".
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%d %s %d", t.Day(), monthsID[t.Month()-1], t.Year())
}
