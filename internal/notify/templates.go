// internal/notify/templates.go
package notify

import (
	"fmt"
	"html"
	"strings"

	"hosting-assessment/internal/models"
)

var templates = map[models.NotificationKind]models.NotificationTemplate{
	models.NotificationSubmission: {
		Kind:    models.NotificationSubmission,
		Subject: "New Hosting Assessment: {{agencyName}}",
		Body: "A new hosting assessment has been submitted and is awaiting review.\n\n" +
			"Agency: {{agencyName}}\n" +
			"Contact: {{contactName}} <{{contactEmail}}>\n" +
			"Department: {{department}}\n\n" +
			"{{report}}\n" +
			"Review this assessment: {{reviewUrl}}\n",
		HTMLBody: "<p>A new hosting assessment has been submitted and is awaiting review.</p>" +
			"<ul><li>Agency: {{agencyName}}</li><li>Contact: {{contactName}} &lt;{{contactEmail}}&gt;</li>" +
			"<li>Department: {{department}}</li></ul>" +
			"{{reportHtml}}" +
			"<p><a href=\"{{reviewUrl}}\">Review this assessment</a></p>",
	},
	models.NotificationConfirmation: {
		Kind:    models.NotificationConfirmation,
		Subject: "Your Hosting Assessment Was Received",
		Body: "Thank you for submitting your hosting assessment.\n\n" +
			"System Recommendation: {{recommendation}}\n" +
			"Scores: {{scores}}\n\n" +
			"{{reasons}}" +
			"Your submission is pending review. You will be notified when a decision is made.\n",
		HTMLBody: "<p>Thank you for submitting your hosting assessment.</p>" +
			"<p>System Recommendation: <strong>{{recommendation}}</strong><br>Scores: {{scores}}</p>" +
			"{{reasonsHtml}}" +
			"<p>Your submission is pending review. You will be notified when a decision is made.</p>",
	},
	models.NotificationDecision: {
		Kind:    models.NotificationDecision,
		Subject: "Hosting Assessment {{decision}}: {{agencyName}}",
		Body: "Your hosting assessment for {{agencyName}} has been {{decisionLower}}.\n\n" +
			"Reviewer notes:\n{{notes}}\n",
		HTMLBody: "<p>Your hosting assessment for {{agencyName}} has been <strong>{{decisionLower}}</strong>.</p>" +
			"<p>Reviewer notes:<br>{{notes}}</p>",
	},
}

// message is a rendered template.
type message struct {
	Subject string
	Text    string
	HTML    string
}

// build renders the kind's template. Values in data are escaped for the HTML body;
// values in rawHTML are inserted as is.
func build(kind models.NotificationKind, data map[string]string, rawHTML map[string]string) (message, error) {
	tmpl, ok := templates[kind]
	if !ok {
		return message{}, fmt.Errorf("template not found for kind: %s", kind)
	}

	escaped := make(map[string]string, len(data)+len(rawHTML))
	for k, v := range data {
		escaped[k] = html.EscapeString(v)
	}
	for k, v := range rawHTML {
		escaped[k] = v
	}

	return message{
		Subject: renderTemplate(tmpl.Subject, data),
		Text:    renderTemplate(tmpl.Body, data),
		HTML:    renderTemplate(tmpl.HTMLBody, escaped),
	}, nil
}

// renderTemplate replaces {{key}} placeholders in one pass, so substituted values are
// never re-scanned. Placeholders without a value render empty.
func renderTemplate(tmpl string, data map[string]string) string {
	var b strings.Builder
	rest := tmpl
	for {
		start := strings.Index(rest, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(rest[start:], "}}")
		if end == -1 {
			break
		}
		b.WriteString(rest[:start])
		b.WriteString(data[rest[start+2:start+end]])
		rest = rest[start+end+2:]
	}
	b.WriteString(rest)
	return b.String()
}
