package email

import (
	"context"
	"fmt"
	"strings"

	"Convoy/Models"
)

// SnagMailer mails the reporter of a new snag.
type SnagMailer struct {
	Config Models.EmailConfig
}

func NewSnagMailer(config Models.EmailConfig) *SnagMailer {
	return &SnagMailer{Config: config}
}

func (m *SnagMailer) NotifySnag(ctx context.Context, snag Models.Snag) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return SendEmail(m.Config, SnagMessage(snag))
}

// SnagMessage is the notice sent when a snag is submitted.
func SnagMessage(snag Models.Snag) Models.EmailMessage {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", snag.ReporterName)
	b.WriteString("A new maintenance snag has been reported:\n\n")
	fmt.Fprintf(&b, "Snag ID: %s\n", snag.SnagID)
	fmt.Fprintf(&b, "Location: %s\n", snag.Location)
	fmt.Fprintf(&b, "Category: %s\n", snag.Category)
	fmt.Fprintf(&b, "Urgency: %s\n\n", snag.Urgency)
	fmt.Fprintf(&b, "Title: %s\n\n", snag.Title)
	fmt.Fprintf(&b, "Description:\n%s\n\n", snag.Description)
	fmt.Fprintf(&b, "Date of Report: %s\n", snag.ReportDate.Format("02 January 2006"))
	if snag.MediaLink != "" {
		fmt.Fprintf(&b, "Media Link: %s\n", snag.MediaLink)
	}
	b.WriteString("\nPlease review and take appropriate action.\n\nConvoy Maintenance")

	return Models.EmailMessage{
		To:      []string{snag.Email},
		Subject: fmt.Sprintf("New Snag Reported: %s [%s]", snag.Title, snag.SnagID),
		Body:    b.String(),
	}
}
