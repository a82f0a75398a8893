package email

import (
	"fmt"
	"time"
)

// SecurityEmailData contains the data needed for account security notifications.
type SecurityEmailData struct {
	FirstName string
	Email     string
	AppName   string
	When      time.Time
	IP        string
	UserAgent string
}

// BuildPasswordChangedEmail creates the notification sent after a successful
// password change. All other sessions are terminated at that point, so the
// message tells the user to expect re-login prompts on other devices.
func BuildPasswordChangedEmail(data SecurityEmailData) Message {
	appName := data.AppName
	if appName == "" {
		appName = "AlloDoc"
	}

	firstName := data.FirstName
	if firstName == "" {
		firstName = "there"
	}

	when := data.When
	if when.IsZero() {
		when = time.Now()
	}
	whenStr := when.UTC().Format("Jan 2, 2006 at 15:04 UTC")

	subject := fmt.Sprintf("Your %s password was changed", appName)

	textBody := fmt.Sprintf(`Hi %s,

Your %s password was changed on %s.

For your security, all of your other sessions have been signed out.
You will need to sign in again on your other devices.

If you did not make this change, reset your password immediately and
contact support.

Thanks,
The %s Team`,
		firstName, appName, whenStr, appName)

	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2 style="color: #2563eb;">Hi %s,</h2>
    <p>Your %s password was changed on <strong>%s</strong>.</p>
    <p>For your security, all of your other sessions have been signed out. You will need to sign in again on your other devices.</p>
    <p style="background-color: #fef2f2; border-left: 4px solid #dc2626; padding: 10px 15px; border-radius: 4px;">If you did not make this change, reset your password immediately and contact support.</p>
    <p style="color: #6b7280; font-size: 14px; margin-top: 30px;">Thanks,<br>The %s Team</p>
</body>
</html>`,
		firstName, appName, whenStr, appName)

	return Message{
		To:       []string{data.Email},
		Subject:  subject,
		TextBody: textBody,
		HTMLBody: htmlBody,
	}
}

// BuildNewLoginEmail creates the notification sent when a new session is
// opened for an account.
func BuildNewLoginEmail(data SecurityEmailData) Message {
	appName := data.AppName
	if appName == "" {
		appName = "AlloDoc"
	}

	firstName := data.FirstName
	if firstName == "" {
		firstName = "there"
	}

	when := data.When
	if when.IsZero() {
		when = time.Now()
	}
	whenStr := when.UTC().Format("Jan 2, 2006 at 15:04 UTC")

	ip := data.IP
	if ip == "" {
		ip = "unknown"
	}
	ua := data.UserAgent
	if ua == "" {
		ua = "unknown device"
	}

	subject := fmt.Sprintf("New sign-in to your %s account", appName)

	textBody := fmt.Sprintf(`Hi %s,

A new sign-in to your %s account was detected on %s.

IP address: %s
Device: %s

If this was you, no action is needed. If you don't recognize this
sign-in, change your password now to sign out all sessions.

Thanks,
The %s Team`,
		firstName, appName, whenStr, ip, ua, appName)

	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2 style="color: #2563eb;">Hi %s,</h2>
    <p>A new sign-in to your %s account was detected on <strong>%s</strong>.</p>
    <p style="background-color: #f3f4f6; padding: 10px 15px; border-radius: 4px; font-family: monospace; font-size: 14px;">IP address: %s<br>Device: %s</p>
    <p>If this was you, no action is needed. If you don't recognize this sign-in, change your password now to sign out all sessions.</p>
    <p style="color: #6b7280; font-size: 14px; margin-top: 30px;">Thanks,<br>The %s Team</p>
</body>
</html>`,
		firstName, appName, whenStr, ip, ua, appName)

	return Message{
		To:       []string{data.Email},
		Subject:  subject,
		TextBody: textBody,
		HTMLBody: htmlBody,
	}
}

// BuildSessionsTerminatedEmail creates the notification sent when every
// session for an account is revoked outside of a password change, for
// example an explicit logout-all or an administrative action.
func BuildSessionsTerminatedEmail(data SecurityEmailData) Message {
	appName := data.AppName
	if appName == "" {
		appName = "AlloDoc"
	}

	firstName := data.FirstName
	if firstName == "" {
		firstName = "there"
	}

	subject := fmt.Sprintf("All %s sessions were signed out", appName)

	textBody := fmt.Sprintf(`Hi %s,

All sessions for your %s account have been signed out.

You will need to sign in again on every device. If you did not request
this, change your password and contact support.

Thanks,
The %s Team`,
		firstName, appName, appName)

	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2 style="color: #2563eb;">Hi %s,</h2>
    <p>All sessions for your %s account have been signed out.</p>
    <p>You will need to sign in again on every device. If you did not request this, change your password and contact support.</p>
    <p style="color: #6b7280; font-size: 14px; margin-top: 30px;">Thanks,<br>The %s Team</p>
</body>
</html>`,
		firstName, appName, appName)

	return Message{
		To:       []string{data.Email},
		Subject:  subject,
		TextBody: textBody,
		HTMLBody: htmlBody,
	}
}
