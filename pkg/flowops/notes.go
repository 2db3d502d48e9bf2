package flowops

import "github.com/dukex/flowops/pkg/models"

func addNote(flow *models.FlowVersion, req models.AddNoteRequest) error {
	if flow.NoteIndex(req.Note.ID) >= 0 {
		return structuralError(req.GetType(), req.Note.ID, "note id is already in use")
	}

	flow.Notes = append(flow.Notes, req.Note)

	return nil
}

func updateNote(flow *models.FlowVersion, req models.UpdateNoteRequest) error {
	index := flow.NoteIndex(req.Note.ID)
	if index < 0 {
		return referenceError(req.GetType(), req.Note.ID, "note does not exist")
	}

	existing := flow.Notes[index]

	updated := req.Note
	updated.CreatedAt = existing.CreatedAt

	if updated.OwnerID == "" {
		updated.OwnerID = existing.OwnerID
	}

	flow.Notes[index] = updated

	return nil
}

func deleteNote(flow *models.FlowVersion, req models.DeleteNoteRequest) error {
	index := flow.NoteIndex(req.ID)
	if index < 0 {
		return referenceError(req.GetType(), req.ID, "note does not exist")
	}

	flow.Notes = append(flow.Notes[:index], flow.Notes[index+1:]...)

	return nil
}
