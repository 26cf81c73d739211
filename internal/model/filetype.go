package model

import (
	"fmt"
	"path/filepath"
	"strings"
)

// FileType is the stored file format, derived from the original extension.
type FileType string

const (
	FileTypePDF  FileType = "pdf"
	FileTypeJPG  FileType = "jpg"
	FileTypeJPEG FileType = "jpeg"
	FileTypePNG  FileType = "png"
)

var fileTypeMIME = map[FileType]string{
	FileTypePDF:  "application/pdf",
	FileTypeJPG:  "image/jpeg",
	FileTypeJPEG: "image/jpeg",
	FileTypePNG:  "image/png",
}

// AllowedMIMETypes lists the content types accepted on upload.
var AllowedMIMETypes = []string{"application/pdf", "image/jpeg", "image/jpg", "image/png"}

// FileTypeFromName derives the FileType from a filename's extension.
func FileTypeFromName(name string) (FileType, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	ft := FileType(ext)
	if _, ok := fileTypeMIME[ft]; !ok {
		return "", fmt.Errorf("unsupported file extension %q", ext)
	}
	return ft, nil
}

// MIMEType returns the content type served for this file type.
func (f FileType) MIMEType() string {
	if m, ok := fileTypeMIME[f]; ok {
		return m
	}
	return "application/octet-stream"
}
