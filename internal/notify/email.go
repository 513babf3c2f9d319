package notify

import (
	"fmt"
	"strings"

	"github.com/kiranshivaraju/printwatch/pkg/models"
)

// Attachment is a file attached to a notification email.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is a composed notification email.
type Message struct {
	Subject     string
	Body        string
	Attachments []Attachment
}

// ShortJobID returns the first segment of a job UUID, which is enough to
// tell jobs apart in a subject line.
func ShortJobID(uuid string) string {
	id, _, _ := strings.Cut(uuid, "-")
	return id
}

// Compose builds the subject and body for a milestone notification.
// Returns an error for milestones that never produce an email.
func Compose(milestone models.Milestone, jobID, jobName, detail, footer string) (Message, error) {
	var subject, body string
	switch milestone {
	case models.MilestoneStart:
		subject = fmt.Sprintf("Print job '%s' (%s) started!", jobName, jobID)
		body = "Hello! I am the Great Printzini!" +
			"  I have discovered a brand new 3D print job!" +
			"\nHere are the details that the spirits shared:"
	case models.MilestoneDone10:
		subject = fmt.Sprintf("Print job '%s' (%s) 10%% complete!", jobName, jobID)
		body = "Hello again! The print job appears to be still going." +
			"  I'm not smart enough to know if it's *actually* going" +
			" ok though, so you should probably check for any adhesion" +
			" or stringing problems!" +
			"\nHere is the latest on temperature performance:"
	case models.MilestoneDone50:
		subject = fmt.Sprintf("Print job '%s' (%s) 50%% complete!", jobName, jobID)
		body = "Hello again! Congratulations on getting this far!" +
			"\nHere is the latest on temperature performance:"
	case models.MilestoneDone90:
		subject = fmt.Sprintf("Print job '%s' (%s) 90%% complete!", jobName, jobID)
		body = "Hello again! Wow! It's almost done!" +
			"\nHere is the latest on temperature performance:"
	case models.MilestoneEnd:
		subject = fmt.Sprintf("Print job '%s' (%s) 100%% complete!", jobName, jobID)
		body = "Hello again! It's complete! Please come fetch your print!" +
			"\n\nRemember to acknowledge/click the 'Print Removed'" +
			" button on the printer's screen! I won't" +
			" know you're really done otherwise!"
	default:
		return Message{}, fmt.Errorf("milestone %q has no email template", milestone)
	}

	var b strings.Builder
	b.WriteString(body)
	b.WriteString("\n\n")
	b.WriteString(detail)
	b.WriteString("\n\n")
	b.WriteString(footer)
	b.WriteString("\n\nYour 3D pal, \nThe Great Printzini")

	return Message{Subject: subject, Body: b.String()}, nil
}
