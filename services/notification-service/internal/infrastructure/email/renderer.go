package email

import (
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/confera/confera/internal/contracts"
)

// Renderer turns a decoded notification into a subject and plain-text body.
type Renderer interface {
	Render(n contracts.Notification) (subject, body string, err error)
}

var tmplFuncs = template.FuncMap{
	"fmtTime": func(t time.Time) string {
		return t.Format("Monday, 2 January 2006 at 15:04 MST")
	},
}

var bodies = template.Must(template.New("notifications").Funcs(tmplFuncs).Parse(`
{{- define "booking_confirmed" -}}
Hi {{if .Name}}{{.Name}}{{else}}there{{end}},

Your booking for {{.EventName}} is confirmed.

Venue: {{.Venue}}
Starts: {{fmtTime .StartDate}}
Ends: {{fmtTime .EndDate}}

See you there!
{{- end}}

{{- define "event_cancelled" -}}
Hi {{if .Name}}{{.Name}}{{else}}there{{end}},

We are sorry to let you know that {{.EventName}} has been cancelled.
{{- if .Reason}}

Reason: {{.Reason}}
{{- end}}

Any booking you made for this event no longer applies.
{{- end}}

{{- define "event_status_changed" -}}
Hi {{if .Name}}{{.Name}}{{else}}there{{end}},

{{.EventName}} changed status{{if .PreviousStatus}} from {{.PreviousStatus}}{{end}} to {{.NewStatus}}.

Check the event page for up-to-date details.
{{- end}}

{{- define "speaker_invitation" -}}
Hi {{if .Name}}{{.Name}}{{else}}there{{end}},

You have been invited to speak at {{.EventName}}.
{{- if .Message}}

"{{.Message}}"
{{- end}}

Please respond to the invitation from your speaker dashboard.
{{- end}}

{{- define "message_received" -}}
Hi {{if .Name}}{{.Name}}{{else}}there{{end}},

{{.FromName}} sent you a message:

{{.Content}}
{{- end}}
`))

// TemplateRenderer is the default plain-text renderer. One template per
// notification type; a type without a template is a render error and the
// envelope is rejected downstream.
type TemplateRenderer struct{}

func NewTemplateRenderer() *TemplateRenderer { return &TemplateRenderer{} }

func (r *TemplateRenderer) Render(n contracts.Notification) (string, string, error) {
	switch m := n.(type) {
	case *contracts.BookingConfirmedMessage:
		return render("Booking confirmed: "+m.EventName, "booking_confirmed", m)
	case *contracts.EventCancelledMessage:
		return render("Event cancelled: "+m.EventName, "event_cancelled", m)
	case *contracts.EventStatusChangedMessage:
		return render("Event update: "+m.EventName, "event_status_changed", m)
	case *contracts.SpeakerInvitationMessage:
		return render("You are invited to speak at "+m.EventName, "speaker_invitation", m)
	case *contracts.MessageReceivedMessage:
		return render(m.Subject, "message_received", m)
	default:
		return "", "", fmt.Errorf("no template for notification type %T", n)
	}
}

func render(subject, tmplName string, data any) (string, string, error) {
	var buf strings.Builder
	if err := bodies.ExecuteTemplate(&buf, tmplName, data); err != nil {
		return "", "", fmt.Errorf("render %s: %w", tmplName, err)
	}
	return subject, buf.String(), nil
}
