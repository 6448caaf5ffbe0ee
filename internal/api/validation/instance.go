// Package validation contains request validation helpers for the API layer.
package validation

import "regexp"

// identRegex constrains names and usernames to safe database identifiers.
// Bootstrap interpolates them into engine DDL, so the charset is strict.
var identRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{0,62}$`)

// FieldError represents a validation error on a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// CreateInstanceRequest mirrors the fields needed for create validation.
type CreateInstanceRequest struct {
	Name        string
	Engine      string
	Username    string
	Password    string
	OwnerUserID int64
}

// ValidateCreateInstance validates the fields of a create instance request.
// Returns a slice of field errors; empty slice means valid.
func ValidateCreateInstance(req CreateInstanceRequest) []FieldError {
	var errs []FieldError

	if req.Name == "" {
		errs = append(errs, FieldError{Field: "name", Message: "name is required"})
	} else if !identRegex.MatchString(req.Name) {
		errs = append(errs, FieldError{Field: "name", Message: "name must start with a letter and contain only letters, digits and underscores, at most 63 characters"})
	}

	if req.Engine == "" {
		errs = append(errs, FieldError{Field: "engine", Message: "engine is required"})
	}

	if req.Username == "" {
		errs = append(errs, FieldError{Field: "username", Message: "username is required"})
	} else if !identRegex.MatchString(req.Username) {
		errs = append(errs, FieldError{Field: "username", Message: "username must start with a letter and contain only letters, digits and underscores, at most 63 characters"})
	}

	if len(req.Password) < 8 {
		errs = append(errs, FieldError{Field: "password", Message: "password must be at least 8 characters"})
	}

	if req.OwnerUserID <= 0 {
		errs = append(errs, FieldError{Field: "ownerUserId", Message: "ownerUserId is required"})
	}

	return errs
}

// QueryRequest mirrors the fields needed for query validation.
type QueryRequest struct {
	Statement string
}

// ValidateQuery validates an execute query request.
func ValidateQuery(req QueryRequest) []FieldError {
	var errs []FieldError
	if req.Statement == "" {
		errs = append(errs, FieldError{Field: "statement", Message: "statement is required"})
	}
	return errs
}
