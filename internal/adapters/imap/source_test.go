package imap

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSubject(t *testing.T) {
	assert.Equal(t, "plain subject", decodeSubject("plain subject"))
	assert.Equal(t, "Café plans", decodeSubject("=?utf-8?q?Caf=C3=A9_plans?="))
	assert.Equal(t, "Hello", decodeSubject("=?UTF-8?B?SGVsbG8=?="))
	// Broken encoded-words fall back to the raw value
	assert.Equal(t, "=?bogus?x?broken?=", decodeSubject("=?bogus?x?broken?="))
}

func TestExtractPlainText(t *testing.T) {
	raw := strings.Join([]string{
		"From: alice@example.com",
		"To: bob@example.com",
		"Subject: multipart test",
		"MIME-Version: 1.0",
		`Content-Type: multipart/alternative; boundary="frontier"`,
		"",
		"--frontier",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"the plain body",
		"--frontier",
		"Content-Type: text/html; charset=utf-8",
		"",
		"<p>the html body</p>",
		"--frontier--",
		"",
	}, "\r\n")

	text, err := extractPlainText(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "the plain body", strings.TrimSpace(text))
}

func TestExtractPlainTextMissingPart(t *testing.T) {
	raw := strings.Join([]string{
		"From: alice@example.com",
		"Subject: html only",
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=utf-8",
		"",
		"<p>no plain part</p>",
		"",
	}, "\r\n")

	_, err := extractPlainText(strings.NewReader(raw))
	assert.ErrorContains(t, err, "no text/plain part")
}
