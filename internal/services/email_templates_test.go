package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/poofware/inventory-service/internal/models"
	"github.com/poofware/inventory-service/internal/utils"
)

func TestEmailTemplates_EscapeUserInput(t *testing.T) {
	req := &models.AccountRequest{
		Email:       "x@example.com",
		FullName:    `<script>alert("x")</script>`,
		Position:    utils.StrPtr("R&D"),
		RequestedAt: fixedNow,
	}

	admin := requestAdminEmail("Inventory", "https://inventory.test", req)
	assert.NotContains(t, admin.HTML, "<script>")
	assert.Contains(t, admin.HTML, "&lt;script&gt;")
	assert.Contains(t, admin.HTML, "R&amp;D")
	assert.Contains(t, admin.HTML, "https://inventory.test/admin/account-requests")
	assert.Contains(t, admin.PlainText, "<script>")

	otp := otpEmail("Inventory", req.FullName, "123456", 10*time.Minute)
	assert.NotContains(t, otp.HTML, "<script>")
	assert.Contains(t, otp.HTML, "123456")
	assert.Contains(t, otp.PlainText, "expires in 10 minutes")
}

func TestOverdueDigestEmail(t *testing.T) {
	u := borrowedStored("PROP-004", fixedNow.Add(-time.Hour))
	e := overdueDigestEmail("Inventory", []overdueItem{{unit: u, borrower: "Juan Dela Cruz", days: 1}})
	assert.Equal(t, TemplateOverdueDigest, e.Template)
	assert.Equal(t, "1 overdue item(s)", e.Subject)
	assert.Contains(t, e.PlainText, "- Projector (PROP-004) borrowed by Juan Dela Cruz, 1 day(s) overdue")
	assert.Contains(t, e.HTML, "<strong>Projector</strong>")
}
