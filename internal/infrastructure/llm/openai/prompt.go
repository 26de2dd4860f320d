package openai

import (
	"fmt"
	"strings"
)

const extractionSystemPrompt = `You are a precise invoice data extraction engine for Indian GST invoices.
Extract fields exactly as they appear. Never invent values. Use null for fields that are absent.`

const classifySystemPrompt = `You classify business expenses. Reply with exactly one category name from the list, nothing else.`

const extractionSchemaHint = `{
  "invoice_number": "string",
  "invoice_date": "YYYY-MM-DD",
  "due_date": "YYYY-MM-DD or null",
  "vendor_name": "string",
  "vendor_gstin": "15-char GSTIN or null",
  "vendor_address": "string or null",
  "vendor_email": "string or null",
  "buyer_name": "string or null",
  "buyer_gstin": "string or null",
  "items": [{"description": "string", "quantity": 0, "unit_price": 0, "amount": 0, "tax_rate": 18}],
  "subtotal": 0,
  "cgst_amount": 0,
  "sgst_amount": 0,
  "igst_amount": 0,
  "cess_amount": 0,
  "total_tax": 0,
  "total_amount": 0,
  "currency": "INR"
}`

func buildExtractionPrompt(rawText string) string {
	const maxSnippet = 6000
	snippet := rawText
	if len(snippet) > maxSnippet {
		snippet = snippet[:maxSnippet]
	}
	return "Extract all invoice fields from the text below.\n\nInvoice text:\n" + snippet
}

func buildClassifyPrompt(text string, categories []string, hint string) string {
	var b strings.Builder
	b.WriteString("Categories:\n")
	for _, cat := range categories {
		fmt.Fprintf(&b, "- %s\n", cat)
	}
	if hint != "" {
		fmt.Fprintf(&b, "\nContext: %s\n", hint)
	}
	b.WriteString("\nExpense:\n")
	b.WriteString(text)
	return b.String()
}
