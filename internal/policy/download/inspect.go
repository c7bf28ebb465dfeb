package download

import (
	"fmt"

	"github.com/gabriel-vasile/mimetype"
)

// executableMIME are sniffed types that run code regardless of the name.
var executableMIME = []string{
	"application/vnd.microsoft.portable-executable",
	"application/x-msdownload",
	"application/x-elf",
	"application/x-executable",
	"application/x-sharedlib",
	"application/x-mach-binary",
	"application/x-ms-installer",
	"application/java-archive",
	"application/vnd.android.package-archive",
	"text/x-shellscript",
}

// archiveMIME are sniffed container types
var archiveMIME = []string{
	"application/zip",
	"application/x-7z-compressed",
	"application/x-rar-compressed",
	"application/gzip",
	"application/x-tar",
	"application/x-iso9660-image",
}

// Inspect classifies filename and then sniffs head, the first bytes of the
// body. Content that is executable behind a harmless name is dangerous.
func (c *Classifier) Inspect(filename string, head []byte) Verdict {
	v := c.Classify(filename)
	if len(head) == 0 {
		return v
	}

	mtype := mimetype.Detect(head)
	v.MIME = mtype.String()
	if v.IsDangerous {
		return v
	}

	if isAny(mtype, executableMIME) {
		v.IsDangerous = true
		v.ShowWarning = true
		v.Kind = KindContentMismatch
		v.Message = fmt.Sprintf("DANGEROUS: %s is an executable (%s) disguised by its name. "+
			"Do not open it unless you trust the source.", displayName(filename), mtype.String())
		return v
	}

	if !v.ShowWarning && isAny(mtype, archiveMIME) {
		v.ShowWarning = true
		v.Kind = KindArchive
		v.Message = fmt.Sprintf("Caution: %s is an archive (%s). "+
			"Archives can contain harmful files. Scan with antivirus before opening.", displayName(filename), mtype.String())
	}
	return v
}

func isAny(mtype *mimetype.MIME, types []string) bool {
	for _, t := range types {
		if mtype.Is(t) {
			return true
		}
	}
	return false
}

func displayName(filename string) string {
	if filename == "" {
		return "This file"
	}
	return filename
}
