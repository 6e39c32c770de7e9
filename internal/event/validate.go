package event

import "strconv"

// Validation checks the shape of a payload, not business rules. A payload
// that validates may still reference ids that no longer exist; the
// materializer treats those as zero-row updates, never as errors.

func requireID(errs []FieldError, field, value string) []FieldError {
	if value == "" {
		errs = append(errs, FieldError{Field: field, Message: "required"})
	}
	return errs
}

// Validate implements Payload.
func (p CategoryCreated) Validate() []FieldError {
	var errs []FieldError
	errs = requireID(errs, "id", p.ID)
	errs = requireID(errs, "name", p.Name)
	errs = requireID(errs, "userId", p.UserID)
	return errs
}

// Validate implements Payload.
func (p CategoryUpdated) Validate() []FieldError {
	var errs []FieldError
	errs = requireID(errs, "id", p.ID)
	if p.Name.IsNull() {
		errs = append(errs, FieldError{Field: "name", Message: "must not be null"})
	}
	if p.Color.IsNull() {
		errs = append(errs, FieldError{Field: "color", Message: "must not be null"})
	}
	if p.Icon.IsNull() {
		errs = append(errs, FieldError{Field: "icon", Message: "must not be null"})
	}
	return errs
}

// Validate implements Payload.
func (p CategoryDeleted) Validate() []FieldError {
	var errs []FieldError
	errs = requireID(errs, "id", p.ID)
	if p.DeletedAt <= 0 {
		errs = append(errs, FieldError{Field: "deletedAt", Message: "required"})
	}
	return errs
}

// Validate implements Payload.
func (p ActivityCreated) Validate() []FieldError {
	var errs []FieldError
	errs = requireID(errs, "id", p.ID)
	errs = requireID(errs, "name", p.Name)
	errs = requireID(errs, "userId", p.UserID)
	for i, id := range p.CategoryIDs {
		if id == "" {
			errs = append(errs, FieldError{Field: "categoryIds", Message: "empty id at index " + strconv.Itoa(i)})
		}
	}
	return errs
}

// Validate implements Payload.
func (p ActivityUpdated) Validate() []FieldError {
	var errs []FieldError
	errs = requireID(errs, "id", p.ID)
	if p.Name.IsNull() {
		errs = append(errs, FieldError{Field: "name", Message: "must not be null"})
	}
	if p.Icon.IsNull() {
		errs = append(errs, FieldError{Field: "icon", Message: "must not be null"})
	}
	return errs
}

// Validate implements Payload.
func (p ActivityArchived) Validate() []FieldError {
	return requireID(nil, "id", p.ID)
}

// Validate implements Payload.
func (p ActivityUnarchived) Validate() []FieldError {
	return requireID(nil, "id", p.ID)
}

// Validate implements Payload.
func (p ActivityDeleted) Validate() []FieldError {
	var errs []FieldError
	errs = requireID(errs, "id", p.ID)
	if p.DeletedAt <= 0 {
		errs = append(errs, FieldError{Field: "deletedAt", Message: "required"})
	}
	return errs
}

// Validate implements Payload.
func (p ActivityCategoryLinked) Validate() []FieldError {
	var errs []FieldError
	errs = requireID(errs, "id", p.ID)
	errs = requireID(errs, "activityId", p.ActivityID)
	errs = requireID(errs, "categoryId", p.CategoryID)
	return errs
}

// Validate implements Payload.
func (p ActivityCategoryUnlinked) Validate() []FieldError {
	var errs []FieldError
	errs = requireID(errs, "id", p.ID)
	if p.DeletedAt <= 0 {
		errs = append(errs, FieldError{Field: "deletedAt", Message: "required"})
	}
	return errs
}

// Validate implements Payload.
func (p TimeSessionStarted) Validate() []FieldError {
	var errs []FieldError
	errs = requireID(errs, "id", p.ID)
	errs = requireID(errs, "activityId", p.ActivityID)
	errs = requireID(errs, "userId", p.UserID)
	if p.StartedAt <= 0 {
		errs = append(errs, FieldError{Field: "startedAt", Message: "required"})
	}
	return errs
}

// Validate implements Payload.
func (p TimeSessionStopped) Validate() []FieldError {
	var errs []FieldError
	errs = requireID(errs, "id", p.ID)
	if p.StoppedAt <= 0 {
		errs = append(errs, FieldError{Field: "stoppedAt", Message: "required"})
	}
	if p.Duration < 0 {
		errs = append(errs, FieldError{Field: "duration", Message: "must not be negative"})
	}
	return errs
}

// Validate implements Payload.
func (p TimeSessionUpdated) Validate() []FieldError {
	var errs []FieldError
	errs = requireID(errs, "id", p.ID)
	if p.StartedAt.IsNull() {
		errs = append(errs, FieldError{Field: "startedAt", Message: "must not be null"})
	}
	if d, ok := p.Duration.Get(); ok && d < 0 {
		errs = append(errs, FieldError{Field: "duration", Message: "must not be negative"})
	}
	return errs
}

// Validate implements Payload.
func (p TimeSessionDeleted) Validate() []FieldError {
	var errs []FieldError
	errs = requireID(errs, "id", p.ID)
	if p.DeletedAt <= 0 {
		errs = append(errs, FieldError{Field: "deletedAt", Message: "required"})
	}
	return errs
}

// Validate implements Payload.
func (p TimeSessionCreated) Validate() []FieldError {
	var errs []FieldError
	errs = requireID(errs, "id", p.ID)
	errs = requireID(errs, "activityId", p.ActivityID)
	errs = requireID(errs, "userId", p.UserID)
	if p.StartedAt <= 0 {
		errs = append(errs, FieldError{Field: "startedAt", Message: "required"})
	}
	if p.StoppedAt < p.StartedAt {
		errs = append(errs, FieldError{Field: "stoppedAt", Message: "must not precede startedAt"})
	}
	if p.Duration < 0 {
		errs = append(errs, FieldError{Field: "duration", Message: "must not be negative"})
	}
	return errs
}

// Validate implements Payload.
func (p UIStateSet) Validate() []FieldError {
	var errs []FieldError
	if mode, ok := p.FilterMode.Get(); ok && mode != FilterModeOR && mode != FilterModeAND {
		errs = append(errs, FieldError{Field: "filterMode", Message: "must be OR or AND"})
	}
	if p.FilterMode.IsNull() {
		errs = append(errs, FieldError{Field: "filterMode", Message: "must not be null"})
	}
	if p.SelectedCategoryIDs.IsNull() {
		errs = append(errs, FieldError{Field: "selectedCategoryIds", Message: "must not be null"})
	}
	return errs
}
