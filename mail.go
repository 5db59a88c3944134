package authcore

import (
	"fmt"
	"html"
	"time"
)

// mailSubject returns the delivery subject for a one-time code.
func mailSubject(purpose OTPPurpose) string {
	switch purpose {
	case PurposeEmailVerification:
		return "Verify Your Email Address"
	case PurposePasswordReset:
		return "Reset Your Password"
	case PurposeTwoStepAuth:
		return "Your Two-Factor Authentication Code"
	default:
		return "Your Verification Code"
	}
}

const mailBodyTemplate = `<!DOCTYPE html>
<html>
  <body>
    <h2>Hello %s!</h2>
    <h3>%s</h3>
    <p>Your verification code is:</p>
    <div style="font-size:32px;font-weight:bold;letter-spacing:5px;">%s</div>
    <p>This code will expire in <strong>%d minutes</strong>.</p>
    <p>Do not share this code with anyone. Our team will never ask for this code.</p>
    <p>If you didn't request this code, please ignore this email.</p>
    <p>This is an automated email. Please do not reply.</p>
    <p>&copy; %d %s. All rights reserved.</p>
  </body>
</html>
`

// mailBody renders the code delivery body. The raw code appears here and in
// the Issue return value only; it is never logged or audited.
func mailBody(appName, username, code string, purpose OTPPurpose, ttl time.Duration) string {
	minutes := int(ttl.Minutes())
	if minutes < 1 {
		minutes = 1
	}

	return fmt.Sprintf(
		mailBodyTemplate,
		html.EscapeString(username),
		mailSubject(purpose),
		code,
		minutes,
		time.Now().Year(),
		html.EscapeString(appName),
	)
}
