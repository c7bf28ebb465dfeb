// Package download scores downloads by filename and sniffed content.
package download

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind describes why a download was flagged
type Kind string

const (
	KindNone            Kind = ""
	KindHiddenExtension Kind = "hidden-extension"
	KindExecutable      Kind = "executable"
	KindArchive         Kind = "archive"
	KindContentMismatch Kind = "content-mismatch"
)

// Verdict is the classification of a download. Message is empty when no
// warning should be shown.
type Verdict struct {
	IsDangerous bool   `json:"is_dangerous"`
	ShowWarning bool   `json:"show_warning"`
	Message     string `json:"message,omitempty"`
	Kind        Kind   `json:"kind,omitempty"`
	Extension   string `json:"extension,omitempty"`
	MIME        string `json:"mime,omitempty"`
}

// DangerousExtensions can execute code when opened.
var DangerousExtensions = []string{
	"exe", "msi", "bat", "cmd", "com", "scr", "pif",
	"vbs", "js", "jse", "ws", "wsf", "wsh", "ps1", "psm1",
	"app", "dmg", "pkg",
	"sh", "run", "bin",
	"jar", "apk",
	"docm", "xlsm", "pptm",
}

// CautionExtensions are containers that may hide harmful files.
var CautionExtensions = []string{
	"zip", "rar", "7z", "tar", "gz", "iso", "img", "torrent",
}

// doubleExtensions are literal disguised-executable suffixes.
var doubleExtensions = []string{
	".pdf.exe", ".doc.exe", ".jpg.exe", ".png.exe",
	".txt.exe", ".xls.exe", ".mp3.exe", ".mp4.exe",
	".pdf.scr", ".doc.scr", ".jpg.js", ".png.vbs",
}

var doubleExtensionPattern = regexp.MustCompile(`\.(pdf|doc|docx|xls|xlsx|jpg|png|gif|mp3|mp4)\.(exe|scr|bat|cmd|com|vbs|js)$`)

// Classifier scores filenames by extension. It is immutable and safe for
// concurrent use.
type Classifier struct {
	dangerous map[string]struct{}
	caution   map[string]struct{}
}

// NewClassifier creates a classifier with the built-in extension sets
func NewClassifier() *Classifier {
	return &Classifier{
		dangerous: toSet(DangerousExtensions),
		caution:   toSet(CautionExtensions),
	}
}

// Classify scores filename. The empty name yields no warning.
func (c *Classifier) Classify(filename string) Verdict {
	if filename == "" {
		return Verdict{}
	}

	lower := strings.ToLower(filename)
	ext := Extension(lower)

	if HasDoubleExtension(lower) {
		return Verdict{
			IsDangerous: true,
			ShowWarning: true,
			Kind:        KindHiddenExtension,
			Extension:   ext,
			Message: fmt.Sprintf("DANGEROUS: File has a hidden extension. "+
				"It appears to be %q but may actually be an executable.", lower),
		}
	}

	if c.IsDangerous(ext) {
		return Verdict{
			IsDangerous: true,
			ShowWarning: true,
			Kind:        KindExecutable,
			Extension:   ext,
			Message: fmt.Sprintf("DANGEROUS: Executable file detected (%s, type .%s). "+
				"This file type can harm your computer. Only download if you trust the source.", filename, ext),
		}
	}

	if c.IsCaution(ext) {
		return Verdict{
			ShowWarning: true,
			Kind:        KindArchive,
			Extension:   ext,
			Message: fmt.Sprintf("Caution: Archive file (%s). "+
				"Archives can contain harmful files. Scan with antivirus before opening.", filename),
		}
	}

	return Verdict{Extension: ext}
}

// IsDangerous reports whether ext is in the dangerous set
func (c *Classifier) IsDangerous(ext string) bool {
	_, ok := c.dangerous[strings.ToLower(ext)]
	return ok
}

// IsCaution reports whether ext is in the caution set
func (c *Classifier) IsCaution(ext string) bool {
	_, ok := c.caution[strings.ToLower(ext)]
	return ok
}

// Extension returns the text after the last dot. Names without a dot, with
// only a leading dot, or ending in a dot have no extension.
func Extension(filename string) string {
	dot := strings.LastIndexByte(filename, '.')
	if dot <= 0 || dot == len(filename)-1 {
		return ""
	}
	return filename[dot+1:]
}

// HasDoubleExtension reports whether a lower-cased name disguises an
// executable behind a document suffix.
func HasDoubleExtension(lower string) bool {
	for _, suffix := range doubleExtensions {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return doubleExtensionPattern.MatchString(lower)
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
