package blocklist

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Parse reads a one-domain-per-line source. Blank lines and '#' comments are
// skipped. Hosts-file lines ("0.0.0.0 ads.example.com") contribute their
// host names.
func Parse(r io.Reader) ([]string, error) {
	var domains []string

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		switch len(fields) {
		case 0:
			continue
		case 1:
			domains = append(domains, Normalize(fields[0]))
		default:
			if !isSinkAddress(fields[0]) {
				continue
			}
			for _, host := range fields[1:] {
				host = Normalize(host)
				if host == "localhost" || host == "" {
					continue
				}
				domains = append(domains, host)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return domains, fmt.Errorf("read blocklist: %w", err)
	}
	return domains, nil
}

func isSinkAddress(addr string) bool {
	switch addr {
	case "0.0.0.0", "127.0.0.1", "::", "::1":
		return true
	default:
		return false
	}
}

// LoadFile parses the blocklist at path. A missing file is not an error and
// yields no domains.
func LoadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open blocklist %s: %w", path, err)
	}
	defer f.Close()

	return Parse(f)
}

// Load parses r and adds every domain as a user entry.
func (m *Matcher) Load(r io.Reader) (int, error) {
	domains, err := Parse(r)
	return m.AddAll(domains), err
}
