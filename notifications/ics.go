package notifications

import (
	"fmt"
	"strings"
	"time"
)

const icsTimeLayout = "20060102T150405Z"

type Invite struct {
	UID         string
	Title       string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	Organizer   string
}

var icsEscaper = strings.NewReplacer(`\`, `\\`, ";", `\;`, ",", `\,`, "\r\n", `\n`, "\n", `\n`)

// BuildInvite renders a single-event iCalendar request.
func BuildInvite(inv Invite, stamp time.Time) []byte {
	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//Training Academy//Bookings//EN",
		"METHOD:REQUEST",
		"BEGIN:VEVENT",
		"UID:" + inv.UID,
		"DTSTAMP:" + stamp.UTC().Format(icsTimeLayout),
		"DTSTART:" + inv.Start.UTC().Format(icsTimeLayout),
		"DTEND:" + inv.End.UTC().Format(icsTimeLayout),
		"SUMMARY:" + icsEscaper.Replace(inv.Title),
	}
	if inv.Location != "" {
		lines = append(lines, "LOCATION:"+icsEscaper.Replace(inv.Location))
	}
	if inv.Description != "" {
		lines = append(lines, "DESCRIPTION:"+icsEscaper.Replace(inv.Description))
	}
	if inv.Organizer != "" {
		lines = append(lines, fmt.Sprintf("ORGANIZER:mailto:%s", inv.Organizer))
	}
	lines = append(lines, "END:VEVENT", "END:VCALENDAR")
	return []byte(strings.Join(lines, "\r\n") + "\r\n")
}
