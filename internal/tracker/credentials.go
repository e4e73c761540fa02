package tracker

import (
	"bufio"
	"crypto/subtle"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Credentials is the fixed username to password mapping loaded once
// before the tracker begins serving. A stored password starting with
// "$2" is treated as a bcrypt hash, anything else as plaintext.
type Credentials map[string]string

// LoadCredentials reads a credentials file of "username password" lines.
// Blank lines and lines starting with '#' are skipped.
func LoadCredentials(path string) (Credentials, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open credentials file: %w", err)
	}
	defer file.Close()

	creds := make(Credentials)
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		username, password, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf("credentials file %s: malformed line %d", path, lineNum)
		}
		creds[username] = strings.TrimSpace(password)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}
	return creds, nil
}

// Verify reports whether password is the one on record for username.
func (c Credentials) Verify(username, password string) bool {
	stored, ok := c[username]
	if !ok {
		return false
	}
	if strings.HasPrefix(stored, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(password)) == 1
}
