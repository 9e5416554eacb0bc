package handlers

import (
	"fmt"

	"elda-admin/internal/apiclient"
	"elda-admin/internal/models"
)

func successToast(entity, past string) models.Toast {
	return models.Toast{
		Title:       fmt.Sprintf("%s %s", capitalize(entity), past),
		Description: fmt.Sprintf("The %s was %s successfully.", entity, past),
		Variant:     models.ToastDefault,
	}
}

// failureToast maps a mutation error to the notification the user sees.
func failureToast(entity, action string, err error) models.Toast {
	t := models.Toast{Variant: models.ToastDestructive}
	switch {
	case action == "delete" && apiclient.IsConflict(err):
		t.Title = "Cannot delete " + entity
		t.Description = fmt.Sprintf("This %s has dependent records and cannot be deleted.", entity)
	case apiclient.IsUnauthorized(err):
		t.Title = "Session expired"
		t.Description = "Please sign in again."
	case apiclient.StatusCode(err) == 0:
		t.Title = "Network error"
		t.Description = fmt.Sprintf("Could not reach the server to %s the %s.", action, entity)
	default:
		t.Title = fmt.Sprintf("Failed to %s %s", action, entity)
		t.Description = apiclient.Message(err)
	}
	return t
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	if c := s[0]; c >= 'a' && c <= 'z' {
		return string(c-'a'+'A') + s[1:]
	}
	return s
}
