package mail

import (
	"bytes"
	"html/template"
)

var verificationTmpl = template.Must(template.New("verification").Parse(`<div style="max-width: 600px; margin: 0 auto; padding: 20px; font-family: Arial, sans-serif;">
  <h1 style="color: #333; text-align: center;">Email verification</h1>
  <div style="text-align: center; margin: 30px 0; padding: 20px; background: #f8f9fa; border-radius: 10px;">
    <h2 style="color: #666; font-size: 16px; margin-bottom: 15px;">Verification code</h2>
    <div style="font-size: 32px; letter-spacing: 5px; font-family: monospace; color: #2c3e50; margin: 20px 0;">{{.Code}}</div>
    <p style="color: #666; font-size: 14px;">Enter this 6-digit code in the app.</p>
  </div>
  <p style="color: #666; font-size: 12px; text-align: center; margin-top: 30px; line-height: 1.5;">
    * This code is valid for {{.Hours}} hours.<br>
    * If you did not request it, ignore this email.
  </p>
</div>`))

var tempPasswordTmpl = template.Must(template.New("temp-password").Parse(`<h1>Temporary password</h1>
<p>Your temporary password: <strong>{{.Password}}</strong></p>
<p>Please sign in and change it right away.</p>`))

// VerificationEmail renders the signup verification message.
func VerificationEmail(code string, hours int) (subject, html string, err error) {
	var b bytes.Buffer
	err = verificationTmpl.Execute(&b, struct {
		Code  string
		Hours int
	}{code, hours})
	return "Verify your email", b.String(), err
}

// TempPasswordEmail renders the forgot-password message.
func TempPasswordEmail(password string) (subject, html string, err error) {
	var b bytes.Buffer
	err = tempPasswordTmpl.Execute(&b, struct{ Password string }{password})
	return "Your temporary password", b.String(), err
}

func plainFallback(subject string) string {
	return subject + "\n\nThis message is best viewed in an HTML capable mail client."
}
