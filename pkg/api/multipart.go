package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
)

// Form builds a multipart/form-data request body from string fields, JSON
// metadata parts and file parts. Parts are written in the order they were
// added.
type Form struct {
	parts []formPart
}

type formPart struct {
	name     string
	value    string
	filePath string
	fileName string
	// contentType applies to file and JSON parts
	contentType string
}

// AddField adds a plain text form field.
func (f *Form) AddField(name, value string) {
	f.parts = append(f.parts, formPart{name: name, value: value})
}

// AddJSON marshals v and adds it as a form field with an application/json
// content type.
func (f *Form) AddJSON(name string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal part %q: %w", name, err)
	}
	f.parts = append(f.parts, formPart{name: name, value: string(data), contentType: "application/json"})
	return nil
}

// AddFile adds a file part read from path. fileName is the name reported in
// the part header; when empty the file's base name is used.
func (f *Form) AddFile(name, fileName, path string) {
	if fileName == "" {
		fileName = filepath.Base(path)
	}
	f.parts = append(f.parts, formPart{
		name:        name,
		filePath:    path,
		fileName:    fileName,
		contentType: "application/java-archive",
	})
}

// Encode writes all parts into a multipart body and returns it together with
// the Content-Type header value.
func (f *Form) Encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for _, part := range f.parts {
		if part.filePath != "" {
			if err := writeFilePart(writer, part); err != nil {
				return nil, "", err
			}
			continue
		}

		if part.contentType != "" {
			header := make(textproto.MIMEHeader)
			header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q`, part.name))
			header.Set("Content-Type", part.contentType)
			w, err := writer.CreatePart(header)
			if err != nil {
				return nil, "", fmt.Errorf("failed to create part %q: %w", part.name, err)
			}
			if _, err := io.Copy(w, strings.NewReader(part.value)); err != nil {
				return nil, "", fmt.Errorf("failed to write part %q: %w", part.name, err)
			}
			continue
		}

		if err := writer.WriteField(part.name, part.value); err != nil {
			return nil, "", fmt.Errorf("failed to write field %q: %w", part.name, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	return &buf, writer.FormDataContentType(), nil
}

func writeFilePart(writer *multipart.Writer, part formPart) error {
	file, err := os.Open(part.filePath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", part.filePath, err)
	}
	defer file.Close()

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, part.name, part.fileName))
	header.Set("Content-Type", part.contentType)

	w, err := writer.CreatePart(header)
	if err != nil {
		return fmt.Errorf("failed to create file part %q: %w", part.name, err)
	}

	if _, err := io.Copy(w, file); err != nil {
		return fmt.Errorf("failed to write file part %q: %w", part.name, err)
	}

	return nil
}
