package notifications

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const subjectSeparator = ": "

var (
	// ErrNoWatchedAssignees indicates that a rule set was built without any watched assignee.
	ErrNoWatchedAssignees = errors.New("notifications: at least one watched assignee is required")
	// ErrEmptyMessagePrefix indicates that the message prefix is blank.
	ErrEmptyMessagePrefix = errors.New("notifications: message prefix is required")
)

// Notification is a derived record that mirrors an inspection assigned to a watched party.
type Notification struct {
	ID           string    `gorm:"column:id;primaryKey;size:64;not null" json:"id"`
	Message      string    `gorm:"column:message;type:text;not null;index:idx_notifications_message_assignee,priority:2" json:"message"`
	Assignee     string    `gorm:"column:assignee;size:190;not null;index:idx_notifications_message_assignee,priority:1" json:"assignee"`
	InspectionID string    `gorm:"column:inspection_id;size:64;not null;default:'';index" json:"inspection_id"`
	CreatedAt    time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

// TableName provides the explicit table binding for GORM.
func (Notification) TableName() string {
	return "notifications"
}

// SubjectTitle returns the part of message after the first ": ", or "" when the separator is absent.
func SubjectTitle(message string) string {
	index := strings.Index(message, subjectSeparator)
	if index < 0 {
		return ""
	}
	return message[index+len(subjectSeparator):]
}

// Subject is the slice of an inspection the synchronizer reasons about.
type Subject struct {
	ID       string
	Title    string
	Assignee string
}

// WatchRules names the assignees whose inspections produce notifications.
type WatchRules struct {
	assignees     []string
	messagePrefix string
}

// NewWatchRules validates and builds a rule set. Assignees are compared by exact equality.
func NewWatchRules(assignees []string, messagePrefix string) (WatchRules, error) {
	cleaned := make([]string, 0, len(assignees))
	seen := make(map[string]struct{}, len(assignees))
	for _, assignee := range assignees {
		trimmed := strings.TrimSpace(assignee)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		cleaned = append(cleaned, trimmed)
	}
	if len(cleaned) == 0 {
		return WatchRules{}, ErrNoWatchedAssignees
	}
	if strings.TrimSpace(messagePrefix) == "" {
		return WatchRules{}, ErrEmptyMessagePrefix
	}
	if strings.Index(messagePrefix, subjectSeparator) != len(messagePrefix)-len(subjectSeparator) {
		return WatchRules{}, fmt.Errorf("notifications: message prefix %q must end with its only %q", messagePrefix, subjectSeparator)
	}
	return WatchRules{assignees: cleaned, messagePrefix: messagePrefix}, nil
}

// Watches reports whether assignee is one of the watched parties.
func (r WatchRules) Watches(assignee string) bool {
	for _, watched := range r.assignees {
		if watched == assignee {
			return true
		}
	}
	return false
}

// Assignees returns a copy of the watched assignees.
func (r WatchRules) Assignees() []string {
	return append([]string(nil), r.assignees...)
}

// Message renders the notification message for an inspection title.
func (r WatchRules) Message(title string) string {
	return r.messagePrefix + title
}
