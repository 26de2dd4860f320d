// Package email generates corrective vendor communications. The completion
// capability is tried first when configured; templates cover every issue
// kind so drafting always succeeds without it.
package email

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/finvoy/invoice-autopilot/internal/core/domain"
	"github.com/finvoy/invoice-autopilot/internal/core/ports"
)

const defaultSenderName = "Accounts Team"

const draftSystemPrompt = `You are a professional finance assistant generating vendor communication emails.
Write clear, polite emails that state the issue, include relevant invoice details and request the needed correction.
Return JSON with 'subject' and 'body' keys.`

type Drafter struct {
	completion ports.CompletionClient
	logger     *slog.Logger
	now        func() time.Time
}

func NewDrafter(completion ports.CompletionClient, logger *slog.Logger) *Drafter {
	return &Drafter{
		completion: completion,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// DraftForIssue writes one email addressing a single validation finding.
func (d *Drafter) DraftForIssue(ctx context.Context, inv *domain.Invoice, issue domain.Issue, senderName string) (*domain.EmailDraft, error) {
	if senderName == "" {
		senderName = defaultSenderName
	}

	if d.completion != nil && d.completion.Available() {
		draft, err := d.draftWithCompletion(ctx, inv, issue, senderName)
		if err == nil {
			return draft, nil
		}
		d.logger.Warn("completion email drafting failed, using template",
			slog.String("invoice_id", inv.ID),
			slog.String("error", err.Error()),
		)
	}

	subject, body := renderTemplate(inv, issue, senderName)
	return d.newDraft(inv, subject, body), nil
}

// DraftBatch writes one email covering every issue on the invoice. A single
// issue gets the specific single-issue treatment.
func (d *Drafter) DraftBatch(ctx context.Context, inv *domain.Invoice, senderName string) (*domain.EmailDraft, error) {
	if len(inv.Issues) == 0 {
		return nil, fmt.Errorf("invoice %s has no issues to draft for", inv.ID)
	}
	if len(inv.Issues) == 1 {
		return d.DraftForIssue(ctx, inv, inv.Issues[0], senderName)
	}
	if senderName == "" {
		senderName = defaultSenderName
	}

	var issueList strings.Builder
	for _, issue := range inv.Issues {
		fmt.Fprintf(&issueList, "- %s: %s\n", issue.Field, issue.Message)
	}

	subject := fmt.Sprintf("Invoice Correction Required - %s (%d issues)", inv.InvoiceNumber, len(inv.Issues))
	body := fmt.Sprintf(`Dear %s Team,

We recently received invoice %s dated %s.

Upon review, we identified the following issues that require your attention:

%s
Invoice Details:
- Invoice Number: %s
- Invoice Date: %s
- Invoice Amount: ₹%.2f

Could you please review these issues and send a corrected invoice at your earliest convenience?

Thank you for your cooperation.

Best regards,
%s`,
		inv.VendorName, inv.InvoiceNumber, formatDate(inv.InvoiceDate), issueList.String(),
		inv.InvoiceNumber, formatDate(inv.InvoiceDate), inv.TotalAmount, senderName,
	)

	return d.newDraft(inv, subject, body), nil
}

func (d *Drafter) draftWithCompletion(ctx context.Context, inv *domain.Invoice, issue domain.Issue, senderName string) (*domain.EmailDraft, error) {
	action := issue.SuggestedAction
	if action == "" {
		action = "Request correction"
	}
	prompt := fmt.Sprintf(`Generate a professional email to a vendor requesting a correction for an invoice issue.

Invoice Details:
- Invoice Number: %s
- Invoice Date: %s
- Vendor Name: %s
- Total Amount: ₹%.2f
- Subtotal: ₹%.2f
- Tax Amount: ₹%.2f

Issue Found:
- Field: %s
- Error Type: %s
- Description: %s
- Severity: %s
- Suggested Action: %s

Sender: %s`,
		inv.InvoiceNumber, formatDate(inv.InvoiceDate), inv.VendorName,
		inv.TotalAmount, inv.Subtotal, inv.TotalTax,
		issue.Field, issue.Kind, issue.Message, issue.Severity, action, senderName,
	)

	payload, err := d.completion.ExtractJSON(ctx, prompt, draftSystemPrompt, `{"subject": "string", "body": "string"}`)
	if err != nil {
		return nil, err
	}

	var result struct {
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("parse email draft json: %w", err)
	}
	if result.Subject == "" {
		result.Subject = fmt.Sprintf("Invoice Correction Required - %s", inv.InvoiceNumber)
	}
	if result.Body == "" {
		return nil, fmt.Errorf("completion returned empty email body")
	}
	return d.newDraft(inv, result.Subject, result.Body), nil
}

func (d *Drafter) newDraft(inv *domain.Invoice, subject, body string) *domain.EmailDraft {
	return &domain.EmailDraft{
		ID:         uuid.NewString(),
		InvoiceID:  inv.ID,
		VendorName: inv.VendorName,
		Subject:    subject,
		Body:       body,
		Status:     domain.DraftPending,
		CreatedAt:  d.now(),
	}
}

func renderTemplate(inv *domain.Invoice, issue domain.Issue, senderName string) (subject, body string) {
	field := strings.ToLower(issue.Field)
	kind := strings.ToLower(issue.Kind)

	switch {
	case strings.Contains(field, "gstin") || strings.Contains(kind, "gst"):
		subject = fmt.Sprintf("Request for GSTIN - Invoice %s", inv.InvoiceNumber)
		body = fmt.Sprintf(`Dear %s Team,

We hope this email finds you well.

We recently received invoice %s dated %s from your organization. However, we noticed that the GSTIN (Goods and Services Tax Identification Number) is missing from the invoice.

As per GST regulations, this information is mandatory for us to process the invoice and claim Input Tax Credit (ITC). Could you please provide a revised invoice with the correct GSTIN included?

Invoice Details:
- Invoice Number: %s
- Invoice Date: %s
- Invoice Amount: ₹%.2f

We would appreciate it if you could send the corrected invoice at your earliest convenience.

Thank you for your understanding and cooperation.

Best regards,
%s`,
			inv.VendorName, inv.InvoiceNumber, formatDate(inv.InvoiceDate),
			inv.InvoiceNumber, formatDate(inv.InvoiceDate), inv.TotalAmount, senderName,
		)
	case strings.Contains(field, "tax") || strings.Contains(kind, "tax"):
		expectedTax := inv.Subtotal * 0.18
		subject = fmt.Sprintf("Tax Calculation Discrepancy - Invoice %s", inv.InvoiceNumber)
		body = fmt.Sprintf(`Dear %s Team,

We hope this email finds you well.

Upon reviewing invoice %s dated %s, we noticed a discrepancy in the tax calculations:

Issue: %s

Current Values:
- Subtotal: ₹%.2f
- Tax Applied: ₹%.2f
- Expected Tax (18%%): ₹%.2f

Could you please verify the calculations and issue a revised invoice if necessary?

Thank you for your prompt attention to this matter.

Best regards,
%s`,
			inv.VendorName, inv.InvoiceNumber, formatDate(inv.InvoiceDate), issue.Message,
			inv.Subtotal, inv.TotalTax, expectedTax, senderName,
		)
	default:
		subject = fmt.Sprintf("Invoice Correction Required - Invoice %s", inv.InvoiceNumber)
		body = fmt.Sprintf(`Dear %s Team,

We recently received invoice %s dated %s from your organization.

Upon review, we identified the following issue(s) that require correction:

- %s: %s

Could you please review and send a corrected invoice at your earliest convenience?

Thank you for your cooperation.

Best regards,
%s`,
			inv.VendorName, inv.InvoiceNumber, formatDate(inv.InvoiceDate),
			issue.Field, issue.Message, senderName,
		)
	}
	return subject, body
}

func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}
