package api

import (
	"errors"
	"net/http"

	"example.com/tripplanner/internal/domain"
)

// multipartMemory is the part of an upload kept in memory; the rest spills to disk.
const multipartMemory = 1 << 20

func (h *Handler) activities(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, isWrite(r.Method))
	if !ok {
		return
	}
	projectID := r.PathValue("id")

	switch r.Method {
	case http.MethodGet:
		activities, err := h.service.ListActivities(r.Context(), p, projectID)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": toActivityViews(activities)})
	case http.MethodPost:
		var req ActivityRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		activity, err := h.service.CreateActivity(r.Context(), p, projectID, req.input())
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, toActivityView(*activity))
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) activity(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, isWrite(r.Method))
	if !ok {
		return
	}
	projectID, activityID := r.PathValue("id"), r.PathValue("activityID")

	switch r.Method {
	case http.MethodGet:
		activity, err := h.service.GetActivity(r.Context(), p, projectID, activityID)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toActivityView(*activity))
	case http.MethodPut:
		var req ActivityRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		activity, err := h.service.UpdateActivity(r.Context(), p, projectID, activityID, req.input())
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toActivityView(*activity))
	case http.MethodDelete:
		if err := h.service.DeleteActivity(r.Context(), p, projectID, activityID); err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) attachments(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, isWrite(r.Method))
	if !ok {
		return
	}
	projectID, activityID := r.PathValue("id"), r.PathValue("activityID")

	switch r.Method {
	case http.MethodGet:
		views, err := h.service.ListAttachments(r.Context(), p, projectID, activityID)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		items := make([]AttachmentView, 0, len(views))
		for _, v := range views {
			items = append(items, toAttachmentView(v.Attachment, v.URL))
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	case http.MethodPost:
		h.uploadAttachment(w, r, p, projectID, activityID)
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) uploadAttachment(w http.ResponseWriter, r *http.Request, p domain.Principal, projectID, activityID string) {
	// Leave room for the multipart envelope around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, h.uploads.MaxBytes+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "validation_failed", "file exceeds the upload limit")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_request", "expected a multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "file field is required")
		return
	}
	defer file.Close()

	upload, err := h.uploads.Inspect(header.Filename, header.Size, file)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	att, err := h.service.AddAttachment(r.Context(), p, projectID, activityID, upload)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAttachmentView(*att, ""))
}

func (h *Handler) attachment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	p, ok := principal(w, r, true)
	if !ok {
		return
	}
	err := h.service.DeleteAttachment(r.Context(), p, r.PathValue("id"), r.PathValue("activityID"), r.PathValue("attachmentID"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) annotations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	p, ok := principal(w, r, false)
	if !ok {
		return
	}
	annotations, err := h.service.DayAnnotations(r.Context(), p, r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, annotations)
}

func (h *Handler) annotation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w)
		return
	}
	p, ok := principal(w, r, true)
	if !ok {
		return
	}
	var req AnnotationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	annotation, err := h.service.SetDayAnnotation(r.Context(), p, r.PathValue("id"), r.PathValue("date"), req.Label, req.Location)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if annotation == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, annotation)
}
