package domain

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ErrStorageUnavailable is returned when attachments are used without an object store.
var ErrStorageUnavailable = errors.New("attachment storage is not configured")

// ListAttachments returns an activity's attachments with download URLs.
func (s *Service) ListAttachments(ctx context.Context, principal Principal, projectID, activityID string) ([]AttachmentView, error) {
	if _, _, err := s.requireRead(ctx, principal, projectID); err != nil {
		return nil, err
	}
	if s.store == nil {
		return nil, ErrStorageUnavailable
	}
	if _, err := s.repo.GetActivity(ctx, projectID, activityID); err != nil {
		return nil, err
	}
	attachments, err := s.repo.ListAttachments(ctx, activityID)
	if err != nil {
		return nil, err
	}
	views := make([]AttachmentView, 0, len(attachments))
	for _, att := range attachments {
		url, err := s.store.URL(ctx, att.ObjectKey, att.Filename)
		if err != nil {
			return nil, fmt.Errorf("sign attachment %s: %w", att.ID, err)
		}
		views = append(views, AttachmentView{Attachment: att, URL: url})
	}
	return views, nil
}

// AddAttachment stores an uploaded file for an activity. The upload must already be validated.
func (s *Service) AddAttachment(ctx context.Context, principal Principal, projectID, activityID string, upload Upload) (*Attachment, error) {
	if _, err := s.requireWrite(ctx, principal, projectID); err != nil {
		return nil, err
	}
	if s.store == nil {
		return nil, ErrStorageUnavailable
	}
	if _, err := s.repo.GetActivity(ctx, projectID, activityID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	name := SanitizeFilename(upload.Filename)
	att := Attachment{
		ID:          uuid.NewString(),
		ProjectID:   projectID,
		ActivityID:  activityID,
		Filename:    name,
		ObjectKey:   fmt.Sprintf("projects/%s/activities/%s/%d-%s", projectID, activityID, now.UnixMilli(), name),
		ContentType: upload.ContentType,
		Size:        upload.Size,
		CreatedAt:   now,
	}
	if err := s.store.Put(ctx, att.ObjectKey, upload.Body, upload.Size, upload.ContentType); err != nil {
		return nil, err
	}
	if err := s.repo.CreateAttachment(ctx, att); err != nil {
		if rmErr := s.store.Remove(ctx, att.ObjectKey); rmErr != nil {
			s.logger.Warn("orphaned attachment object", "key", att.ObjectKey, "error", rmErr)
		}
		return nil, err
	}
	return &att, nil
}

// DeleteAttachment removes an attachment and its stored bytes.
func (s *Service) DeleteAttachment(ctx context.Context, principal Principal, projectID, activityID, attachmentID string) error {
	if _, err := s.requireWrite(ctx, principal, projectID); err != nil {
		return err
	}
	if s.store == nil {
		return ErrStorageUnavailable
	}
	att, err := s.repo.GetAttachment(ctx, activityID, attachmentID)
	if err != nil {
		return err
	}
	if att.ProjectID != projectID {
		return fmt.Errorf("attachment %s: %w", attachmentID, ErrNotFound)
	}
	if err := s.repo.DeleteAttachment(ctx, activityID, attachmentID); err != nil {
		return err
	}
	return s.store.Remove(ctx, att.ObjectKey)
}

// SanitizeFilename strips path components, quotes and control characters from a client file name.
func SanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	cleaned := make([]rune, 0, len(name))
	for _, r := range name {
		if r < 32 || r == 127 || r == '"' || r == '/' {
			continue
		}
		cleaned = append(cleaned, r)
	}
	out := strings.Join(strings.Fields(string(cleaned)), " ")
	if out == "" || out == "." || out == ".." {
		return "file"
	}
	return out
}
