package models

// AllModels lists every persisted model for schema migration
func AllModels() []any {
	return []any{
		&Profile{},
		&Course{},
		&Lesson{},
		&Enrollment{},
		&ProgressRecord{},
		&TeacherInvite{},
	}
}
