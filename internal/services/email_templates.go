package services

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/poofware/inventory-service/internal/models"
)

const codeEmailHTML = `<!DOCTYPE html>
<html>
<head>
<style>
body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; line-height: 1.6; color: #1f2937; background-color: #eef2f7; margin: 0; padding: 20px; }
.container { padding: 20px; max-width: 600px; margin: 20px auto; background-color: #ffffff; border: 1px solid #cbd5e1; border-radius: 8px; }
.header { font-size: 24px; font-weight: bold; color: #1e3a8a; margin-bottom: 15px; }
.content { padding: 30px; text-align: center; }
.code { font-size: 36px; font-weight: bold; letter-spacing: 8px; color: #1e3a8a; background-color: #f1f3f5; padding: 15px 20px; border-radius: 5px; display: inline-block; margin: 20px 0; }
.footer { margin-top: 20px; font-size: 12px; color: #6b7280; text-align: center; }
</style>
</head>
<body>
  <div class="container">
    <div class="header"><h1>%s</h1></div>
    <div class="content">
      <p>%s</p>
      <div class="code">%s</div>
    </div>
    <div class="footer">© %d %s. All rights reserved.</div>
  </div>
</body>
</html>`

const noticeEmailHTML = `<!DOCTYPE html>
<html>
<head>
<style>
body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; line-height: 1.6; color: #1f2937; background-color: #eef2f7; margin: 0; padding: 20px; }
.container { padding: 20px; max-width: 600px; margin: 20px auto; background-color: #ffffff; border: 1px solid #cbd5e1; border-radius: 8px; }
.header { font-size: 24px; font-weight: bold; color: #1e3a8a; margin-bottom: 15px; }
.content { padding: 20px; }
.footer { margin-top: 20px; font-size: 12px; color: #6b7280; text-align: center; }
ul { list-style: none; padding: 0; }
li { margin-bottom: 10px; }
strong { color: #000; }
</style>
</head>
<body>
  <div class="container">
    <div class="header"><h2>%s</h2></div>
    <div class="content">
      %s
    </div>
    <div class="footer">© %d %s. All rights reserved.</div>
  </div>
</body>
</html>`

// Template names, also used as metric labels.
const (
	TemplateOTP             = "otp"
	TemplateRequestReceived = "account_request_received"
	TemplateRequestAdmin    = "account_request_admin"
	TemplateRequestApproved = "account_request_approved"
	TemplateRequestRejected = "account_request_rejected"
	TemplateOverdueDigest   = "overdue_digest"
)

func codeEmail(org, title, intro, code string) string {
	return fmt.Sprintf(codeEmailHTML, html.EscapeString(title), html.EscapeString(intro), html.EscapeString(code), time.Now().Year(), html.EscapeString(org))
}

// noticeEmail wraps already-escaped body markup.
func noticeEmail(org, title, body string) string {
	return fmt.Sprintf(noticeEmailHTML, html.EscapeString(title), body, time.Now().Year(), html.EscapeString(org))
}

func otpEmail(org, fullName, code string, expiry time.Duration) Email {
	intro := fmt.Sprintf("Hi %s, use this code to finish creating your account. It expires in %d minutes.", fullName, int(expiry.Minutes()))
	return Email{
		Template:  TemplateOTP,
		Subject:   fmt.Sprintf("%s verification code", org),
		PlainText: fmt.Sprintf("%s\n\nCode: %s", intro, code),
		HTML:      codeEmail(org, "Verify your email", intro, code),
	}
}

func requestReceivedEmail(org string, req *models.AccountRequest) Email {
	body := fmt.Sprintf("<p>Hi %s,</p><p>We received your account request. An administrator will review it shortly and you will get an email with the result.</p>",
		html.EscapeString(req.FullName))
	return Email{
		Template:  TemplateRequestReceived,
		Subject:   "Account request received",
		PlainText: fmt.Sprintf("Hi %s,\n\nWe received your account request. An administrator will review it shortly.", req.FullName),
		HTML:      noticeEmail(org, "Account request received", body),
	}
}

func requestAdminEmail(org, appURL string, req *models.AccountRequest) Email {
	position := "-"
	if req.Position != nil && strings.TrimSpace(*req.Position) != "" {
		position = *req.Position
	}
	body := fmt.Sprintf(`<p>A new account request is waiting for review.</p>
<ul>
<li><strong>Name:</strong> %s</li>
<li><strong>Email:</strong> %s</li>
<li><strong>Position:</strong> %s</li>
<li><strong>Requested:</strong> %s</li>
</ul>
<p><a href="%s/admin/account-requests">Review requests</a></p>`,
		html.EscapeString(req.FullName), html.EscapeString(req.Email), html.EscapeString(position),
		req.RequestedAt.Format(time.RFC1123), html.EscapeString(appURL))
	return Email{
		Template:  TemplateRequestAdmin,
		Subject:   fmt.Sprintf("New account request from %s", req.FullName),
		PlainText: fmt.Sprintf("New account request\nName: %s\nEmail: %s\nPosition: %s", req.FullName, req.Email, position),
		HTML:      noticeEmail(org, "New account request", body),
	}
}

func requestApprovedEmail(org, loginURL string, req *models.AccountRequest, tempPassword string) Email {
	body := fmt.Sprintf(`<p>Hi %s,</p>
<p>Your account request was approved. Sign in with the temporary password below; you will be asked to choose a new one.</p>
<ul>
<li><strong>Email:</strong> %s</li>
<li><strong>Temporary password:</strong> %s</li>
</ul>
<p><a href="%s">Sign in</a></p>`,
		html.EscapeString(req.FullName), html.EscapeString(req.Email), html.EscapeString(tempPassword), html.EscapeString(loginURL))
	return Email{
		Template: TemplateRequestApproved,
		Subject:  "Your account is ready",
		PlainText: fmt.Sprintf("Hi %s,\n\nYour account request was approved.\nEmail: %s\nTemporary password: %s\nSign in: %s",
			req.FullName, req.Email, tempPassword, loginURL),
		HTML: noticeEmail(org, "Account approved", body),
	}
}

func requestRejectedEmail(org string, req *models.AccountRequest) Email {
	reason := "No reason was given."
	if req.RejectionReason != nil && strings.TrimSpace(*req.RejectionReason) != "" {
		reason = *req.RejectionReason
	}
	body := fmt.Sprintf("<p>Hi %s,</p><p>Your account request was not approved.</p><p><strong>Reason:</strong> %s</p>",
		html.EscapeString(req.FullName), html.EscapeString(reason))
	return Email{
		Template:  TemplateRequestRejected,
		Subject:   "Account request update",
		PlainText: fmt.Sprintf("Hi %s,\n\nYour account request was not approved.\nReason: %s", req.FullName, reason),
		HTML:      noticeEmail(org, "Account request update", body),
	}
}

func overdueDigestEmail(org string, items []overdueItem) Email {
	var plain, rows strings.Builder
	for _, it := range items {
		fmt.Fprintf(&plain, "- %s (%s) borrowed by %s, %d day(s) overdue\n", it.unit.PropertyName, it.unit.PropertyCode, it.borrower, it.days)
		fmt.Fprintf(&rows, "<li><strong>%s</strong> (%s) borrowed by %s, %d day(s) overdue</li>\n",
			html.EscapeString(it.unit.PropertyName), html.EscapeString(it.unit.PropertyCode), html.EscapeString(it.borrower), it.days)
	}
	body := fmt.Sprintf("<p>The following items are past their return date:</p><ul>%s</ul>", rows.String())
	return Email{
		Template:  TemplateOverdueDigest,
		Subject:   fmt.Sprintf("%d overdue item(s)", len(items)),
		PlainText: "The following items are past their return date:\n" + plain.String(),
		HTML:      noticeEmail(org, "Overdue items", body),
	}
}
