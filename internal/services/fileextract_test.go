package services

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"
)

func buildDOCX(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("zip create: %v", err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatalf("zip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

const sampleDocumentXML = `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>Photosynthesis &amp; respiration</w:t></w:r></w:p>
<w:p><w:r><w:t>Chlorophyll</w:t><w:tab/><w:t>absorbs light</w:t></w:r><w:r><w:br/><w:t>in the thylakoid.</w:t></w:r></w:p>
<w:p></w:p>
<w:p></w:p>
<w:p><w:r><w:t xml:space="preserve">  Glucose is stored.  </w:t></w:r></w:p>
</w:body>
</w:document>`

func TestExtractText_DOCX(t *testing.T) {
	svc := NewFileExtractService()
	text, err := svc.ExtractText(buildDOCX(t, sampleDocumentXML), MediaTypeDOCX)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := "Photosynthesis & respiration\nChlorophyll\tabsorbs light\nin the thylakoid.\n\nGlucose is stored."
	if text != want {
		t.Errorf("Extracted text mismatch.\nwant: %q\n got: %q", want, text)
	}
}

func TestExtractText_DOCXWithoutDocument(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("word/styles.xml")
	w.Write([]byte("<styles/>"))
	zw.Close()

	if _, err := NewFileExtractService().ExtractText(buf.Bytes(), MediaTypeDOCX); err == nil {
		t.Error("Expected error for docx without document.xml")
	}
}

func TestExtractText_EmptyDOCX(t *testing.T) {
	doc := `<w:document xmlns:w="x"><w:body><w:p></w:p></w:body></w:document>`
	_, err := NewFileExtractService().ExtractText(buildDOCX(t, doc), MediaTypeDOCX)
	if !errors.Is(err, ErrNoText) {
		t.Errorf("Expected ErrNoText, got %v", err)
	}
}

func TestExtractText_InvalidPDF(t *testing.T) {
	if _, err := NewFileExtractService().ExtractText([]byte("not a pdf"), MediaTypePDF); err == nil {
		t.Error("Expected error for invalid pdf bytes")
	}
}

func TestExtractText_UnsupportedType(t *testing.T) {
	_, err := NewFileExtractService().ExtractText([]byte("hello"), "text/plain")
	var unsupported *UnsupportedMediaError
	if !errors.As(err, &unsupported) {
		t.Fatalf("Expected UnsupportedMediaError, got %v", err)
	}
}

func TestDetectMediaType(t *testing.T) {
	pdfHead := []byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")
	zipHead := []byte("PK\x03\x04\x14\x00\x06\x00")

	tests := []struct {
		name     string
		filename string
		declared string
		head     []byte
		want     string
		wantErr  bool
	}{
		{"declared pdf", "notes.pdf", "application/pdf", pdfHead, MediaTypePDF, false},
		{"declared docx", "notes.docx", MediaTypeDOCX, zipHead, MediaTypeDOCX, false},
		{"declared with params", "notes.pdf", "application/pdf; charset=binary", pdfHead, MediaTypePDF, false},
		{"octet-stream pdf", "notes.PDF", "application/octet-stream", pdfHead, MediaTypePDF, false},
		{"octet-stream docx", "notes.docx", "", zipHead, MediaTypeDOCX, false},
		{"extension lies", "notes.pdf", "application/octet-stream", []byte("hello world"), "", true},
		{"plain text", "notes.txt", "text/plain", []byte("hello"), "", true},
		{"image", "photo.png", "image/png", []byte("\x89PNG\r\n\x1a\n"), "", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DetectMediaType(tc.filename, tc.declared, tc.head)
			if tc.wantErr {
				if err == nil {
					t.Errorf("Expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("Expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestNormalizeExtractedText(t *testing.T) {
	in := "  line one  \r\n\r\n\r\n\tline two\r  \n\n"
	if got := normalizeExtractedText(in); got != "line one\n\nline two" {
		t.Errorf("Unexpected normalization: %q", got)
	}
}
