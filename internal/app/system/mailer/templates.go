// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"html/template"
)

// WelcomeEmailData contains the data for a welcome email sent after registration.
type WelcomeEmailData struct {
	SiteName string
	UserName string
	Role     string // "visitor" or "student"
	SiteURL  string
}

// WelcomeEmail generates both plain text and HTML versions of the welcome
// email sent to newly registered users.
func WelcomeEmail(data WelcomeEmailData) (textBody, htmlBody string) {
	// Plain text version
	textBody = "Welcome to " + data.SiteName + ", " + data.UserName + "!\n\n" +
		"Your account has been created with the role of " + data.Role + ".\n\n" +
		"Visit the site at:\n" + data.SiteURL + "\n\n" +
		"Thank you for registering."

	// HTML version
	var buf bytes.Buffer
	welcomeHTMLTmpl.Execute(&buf, data)
	htmlBody = buf.String()

	return textBody, htmlBody
}

// ContactReplyEmailData contains the data for a reply to a contact message.
type ContactReplyEmailData struct {
	SiteName     string
	Name         string
	OriginalBody string
	Reply        string
}

// ContactReplyEmail generates both plain text and HTML versions of a reply
// to a contact form message.
func ContactReplyEmail(data ContactReplyEmailData) (textBody, htmlBody string) {
	// Plain text version
	textBody = "Hello " + data.Name + ",\n\n" +
		data.Reply + "\n\n" +
		"---\n" +
		"You wrote:\n" + data.OriginalBody + "\n\n" +
		data.SiteName
	// HTML version
	var buf bytes.Buffer
	contactReplyHTMLTmpl.Execute(&buf, data)
	htmlBody = buf.String()

	return textBody, htmlBody
}

var welcomeHTMLTmpl = template.Must(template.New("welcome").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Welcome</title>
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif; background-color: #f4f4f5;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color: #f4f4f5;">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 480px; background-color: #ffffff; border-radius: 8px; box-shadow: 0 1px 3px rgba(0,0,0,0.1);">
          <!-- Header -->
          <tr>
            <td style="padding: 32px 32px 24px 32px; text-align: center; border-bottom: 1px solid #e4e4e7;">
              <h1 style="margin: 0; font-size: 24px; font-weight: 600; color: #18181b;">{{.SiteName}}</h1>
            </td>
          </tr>
          <!-- Content -->
          <tr>
            <td style="padding: 32px;">
              <h2 style="margin: 0 0 16px 0; font-size: 20px; font-weight: 600; color: #18181b; text-align: center;">Welcome, {{.UserName}}!</h2>
              <p style="margin: 0 0 16px 0; font-size: 15px; line-height: 1.6; color: #52525b;">
                Your account has been created.
              </p>
              <div style="padding: 16px; background-color: #f4f4f5; border-radius: 6px; margin-bottom: 24px;">
                <p style="margin: 0; font-size: 14px; color: #52525b;">
                  <strong>Your role:</strong> {{.Role}}
                </p>
              </div>
              <!-- Button -->
              <table role="presentation" width="100%" cellspacing="0" cellpadding="0">
                <tr>
                  <td align="center" style="padding: 0 0 24px 0;">
                    <a href="{{.SiteURL}}" style="display: inline-block; padding: 14px 32px; background-color: #4f46e5; color: #ffffff; text-decoration: none; font-size: 15px; font-weight: 600; border-radius: 6px;">Visit the Site</a>
                  </td>
                </tr>
              </table>
              <p style="margin: 0; font-size: 14px; line-height: 1.6; color: #71717a;">
                Thank you for registering.
              </p>
            </td>
          </tr>
          <!-- Footer -->
          <tr>
            <td style="padding: 24px 32px; background-color: #fafafa; border-top: 1px solid #e4e4e7; border-radius: 0 0 8px 8px;">
              <p style="margin: 0; font-size: 12px; color: #a1a1aa; text-align: center;">
                This is an automated message from {{.SiteName}}.
              </p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`))

var contactReplyHTMLTmpl = template.Must(template.New("contact_reply").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Reply to Your Message</title>
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif; background-color: #f4f4f5;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color: #f4f4f5;">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 480px; background-color: #ffffff; border-radius: 8px; box-shadow: 0 1px 3px rgba(0,0,0,0.1);">
          <!-- Header -->
          <tr>
            <td style="padding: 32px 32px 24px 32px; text-align: center; border-bottom: 1px solid #e4e4e7;">
              <h1 style="margin: 0; font-size: 24px; font-weight: 600; color: #18181b;">{{.SiteName}}</h1>
            </td>
          </tr>
          <!-- Content -->
          <tr>
            <td style="padding: 32px;">
              <p style="margin: 0 0 16px 0; font-size: 15px; line-height: 1.6; color: #52525b;">
                Hello {{.Name}},
              </p>
              <p style="margin: 0 0 24px 0; font-size: 15px; line-height: 1.6; color: #52525b; white-space: pre-line;">{{.Reply}}</p>
              <div style="padding: 16px; background-color: #f4f4f5; border-radius: 6px; margin-bottom: 24px;">
                <p style="margin: 0 0 4px 0; font-size: 12px; font-weight: 600; color: #71717a; text-transform: uppercase;">You wrote</p>
                <p style="margin: 0; font-size: 14px; line-height: 1.6; color: #52525b; white-space: pre-line;">{{.OriginalBody}}</p>
              </div>
            </td>
          </tr>
          <!-- Footer -->
          <tr>
            <td style="padding: 24px 32px; background-color: #fafafa; border-top: 1px solid #e4e4e7; border-radius: 0 0 8px 8px;">
              <p style="margin: 0; font-size: 12px; color: #a1a1aa; text-align: center;">
                This message was sent in reply to your contact form submission on {{.SiteName}}.
              </p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`))
