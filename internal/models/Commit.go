package models

import (
	"strings"
	"time"
)

// Commit is a version as reported by the version-control backend.
type Commit struct {
	ID      string
	Message string
	Date    time.Time
	Files   []string
}

// Subject returns the first line of the commit message.
func (c Commit) Subject() string {
	subject, _, _ := strings.Cut(c.Message, "\n")
	return subject
}

// Body returns the message without its subject line.
func (c Commit) Body() string {
	_, body, _ := strings.Cut(c.Message, "\n")
	return strings.TrimSpace(body)
}
