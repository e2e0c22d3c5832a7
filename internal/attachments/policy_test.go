package attachments

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/tripplanner/internal/domain"
)

var (
	pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
	pdfHeader = []byte("%PDF-1.7\n1 0 obj\n<< /Type /Catalog >>\nendobj\n")
)

func TestPolicyAcceptsSniffedTypes(t *testing.T) {
	policy := DefaultPolicy()

	upload, err := policy.Inspect("ticket.pdf", int64(len(pdfHeader)), bytes.NewReader(pdfHeader))
	require.NoError(t, err)
	require.Equal(t, "application/pdf", upload.ContentType)
	require.Equal(t, "ticket.pdf", upload.Filename)

	body, err := io.ReadAll(upload.Body)
	require.NoError(t, err)
	require.Equal(t, pdfHeader, body, "body must be rewound after sniffing")

	upload, err = policy.Inspect("map.PNG", int64(len(pngHeader)), bytes.NewReader(pngHeader))
	require.NoError(t, err)
	require.Equal(t, "image/png", upload.ContentType)
}

func TestPolicyRejectsDisallowedContent(t *testing.T) {
	policy := DefaultPolicy()
	text := []byte("just some notes")

	_, err := policy.Inspect("notes.pdf", int64(len(text)), bytes.NewReader(text))
	require.ErrorIs(t, err, ErrTypeNotAllowed)
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = policy.Inspect("script.exe", int64(len(pdfHeader)), bytes.NewReader(pdfHeader))
	require.ErrorIs(t, err, ErrTypeNotAllowed)
}

func TestPolicyRejectsOversizedUploads(t *testing.T) {
	policy := Policy{MaxBytes: 8, Types: []string{"application/pdf"}}

	_, err := policy.Inspect("ticket.pdf", int64(len(pdfHeader)), bytes.NewReader(pdfHeader))
	require.True(t, IsTooLarge(err))
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestContentDispositionSanitizesFilename(t *testing.T) {
	got := contentDisposition("../boarding pass.pdf")
	require.Contains(t, got, "inline; filename=")
	require.NotContains(t, got, "/")
}

func TestExternalHost(t *testing.T) {
	host, secure, ok := externalHost("https://files.example.com", false)
	require.True(t, ok)
	require.True(t, secure)
	require.Equal(t, "files.example.com", host)

	host, secure, ok = externalHost("localhost:9000", true)
	require.True(t, ok)
	require.True(t, secure)
	require.Equal(t, "localhost:9000", host)

	_, _, ok = externalHost("  ", false)
	require.False(t, ok)
}
