package inspections

import (
	"context"

	"github.com/MarcoPoloResearchLab/sitebook/backend/internal/notifications"
	"go.uber.org/zap"
)

// WatchedNotification pairs a notification with the inspection it currently resolves to.
// Inspection is nil when nothing matches.
type WatchedNotification struct {
	notifications.Notification
	Inspection *Inspection `json:"inspection"`
}

// ListWatchedNotifications returns the notifications of watched assignees joined with the
// current inspections of those assignees. A notification resolves through its stored
// inspection reference first and falls back to matching the title embedded in its message.
// An empty assignee covers every watched party.
func (s *Service) ListWatchedNotifications(ctx context.Context, assignee string) ([]WatchedNotification, error) {
	found, err := s.synchronizer.Watched(ctx, s.db, assignee)
	if err != nil {
		return nil, err
	}
	result := make([]WatchedNotification, 0, len(found))
	if len(found) == 0 {
		return result, nil
	}

	assignees := make([]string, 0, len(found))
	seen := make(map[string]struct{}, len(found))
	for _, notification := range found {
		if _, ok := seen[notification.Assignee]; ok {
			continue
		}
		seen[notification.Assignee] = struct{}{}
		assignees = append(assignees, notification.Assignee)
	}

	candidates, err := s.store.Find(ctx, map[string]any{"assignee": assignees})
	if err != nil {
		s.logger.Error("watched inspections lookup failed",
			zap.String("operation", opListNotifications),
			zap.Error(err))
		return nil, err
	}

	index := newInspectionIndex(candidates)
	for _, notification := range found {
		result = append(result, WatchedNotification{
			Notification: notification,
			Inspection:   index.resolve(notification),
		})
	}
	return result, nil
}

type titleKey struct {
	assignee string
	title    string
}

type inspectionIndex struct {
	byID    map[string]*Inspection
	byTitle map[titleKey]*Inspection
}

// newInspectionIndex keeps the oldest inspection per (assignee, title).
func newInspectionIndex(candidates []Inspection) inspectionIndex {
	index := inspectionIndex{
		byID:    make(map[string]*Inspection, len(candidates)),
		byTitle: make(map[titleKey]*Inspection, len(candidates)),
	}
	for position := range candidates {
		inspection := &candidates[position]
		index.byID[inspection.ID] = inspection
		key := titleKey{assignee: inspection.Assignee, title: inspection.Title}
		if _, ok := index.byTitle[key]; !ok {
			index.byTitle[key] = inspection
		}
	}
	return index
}

func (index inspectionIndex) resolve(notification notifications.Notification) *Inspection {
	if notification.InspectionID != "" {
		if inspection, ok := index.byID[notification.InspectionID]; ok {
			return inspection
		}
	}
	key := titleKey{assignee: notification.Assignee, title: notifications.SubjectTitle(notification.Message)}
	return index.byTitle[key]
}
