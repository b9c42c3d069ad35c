package daemon

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// stanza is one "Field: value" block of package manager output
type stanza map[string]string

// parseStanzas parses dpkg/apt-cache style output into blocks separated by blank lines
func parseStanzas(data []byte) ([]stanza, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024) // Handle large descriptions

	var stanzas []stanza
	var current stanza

	for scanner.Scan() {
		line := scanner.Text()

		if strings.TrimSpace(line) == "" {
			if current != nil {
				stanzas = append(stanzas, current)
				current = nil
			}
			continue
		}

		// Continuation line
		if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
			continue
		}

		field, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if current == nil {
			current = stanza{}
		}
		current[strings.TrimSpace(field)] = strings.TrimSpace(value)
	}

	if current != nil {
		stanzas = append(stanzas, current)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning package output: %w", err)
	}
	return stanzas, nil
}

// downloadSize returns the Size of the first stanza that has one
func downloadSize(data []byte) (int64, error) {
	stanzas, err := parseStanzas(data)
	if err != nil {
		return 0, err
	}
	for _, s := range stanzas {
		raw, ok := s["Size"]
		if !ok {
			continue
		}
		size, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse size %q: %w", raw, err)
		}
		return size, nil
	}
	return 0, nil
}

// candidateVersion returns the Version of the first stanza that has one
func candidateVersion(data []byte) string {
	stanzas, err := parseStanzas(data)
	if err != nil {
		return ""
	}
	for _, s := range stanzas {
		if v := s["Version"]; v != "" {
			return v
		}
	}
	return ""
}
