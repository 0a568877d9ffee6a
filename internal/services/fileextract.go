package services

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

const (
	MediaTypePDF  = "application/pdf"
	MediaTypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

	MaxUploadBytes = 10 << 20
)

// ErrNoText means the document parsed but held no text.
var ErrNoText = errors.New("no extractable text")

type FileExtractService struct{}

func NewFileExtractService() *FileExtractService {
	return &FileExtractService{}
}

// DetectMediaType settles on PDF or DOCX from the declared type, the file
// extension and the leading bytes. Anything else is UnsupportedMediaError.
func DetectMediaType(filename, declared string, head []byte) (string, error) {
	mediaType, _, err := mime.ParseMediaType(declared)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(declared))
	}
	switch mediaType {
	case MediaTypePDF, MediaTypeDOCX:
		return mediaType, nil
	}

	// Browsers and mobile pickers often send octet-stream or nothing.
	sniffed := http.DetectContentType(head)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		if sniffed == MediaTypePDF {
			return MediaTypePDF, nil
		}
	case ".docx":
		if sniffed == "application/zip" {
			return MediaTypeDOCX, nil
		}
	}
	if mediaType == "" {
		mediaType = sniffed
	}
	return "", &UnsupportedMediaError{MediaType: mediaType}
}

// ExtractText returns normalized plain text from a PDF or DOCX document.
func (s *FileExtractService) ExtractText(data []byte, mediaType string) (string, error) {
	var (
		text string
		err  error
	)
	switch mediaType {
	case MediaTypePDF:
		text, err = extractPDF(data)
	case MediaTypeDOCX:
		text, err = extractDOCX(data)
	default:
		return "", &UnsupportedMediaError{MediaType: mediaType}
	}
	if err != nil {
		return "", err
	}

	text = normalizeExtractedText(text)
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(content)
		b.WriteString("\n")
	}
	return b.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}

	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("open document.xml: %w", err)
		}
		defer rc.Close()
		return documentXMLText(rc)
	}
	return "", errors.New("docx document.xml not found")
}

// documentXMLText walks WordprocessingML, keeping w:t runs and turning
// paragraphs, breaks and tabs into whitespace.
func documentXMLText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var (
		b      strings.Builder
		inText bool
		inTabs bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tabs":
				inTabs = true
			case "tab":
				if !inTabs {
					b.WriteString("\t")
				}
			case "br", "cr":
				b.WriteString("\n")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "tabs":
				inTabs = false
			case "p":
				b.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	return b.String(), nil
}

// normalizeExtractedText trims lines and collapses runs of blank lines.
func normalizeExtractedText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	var b strings.Builder
	blank := 0
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			blank++
			if blank == 1 {
				b.WriteString("\n")
			}
			continue
		}
		blank = 0
		b.WriteString(line)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}
