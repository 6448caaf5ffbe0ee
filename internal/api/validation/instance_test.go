package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validCreate() CreateInstanceRequest {
	return CreateInstanceRequest{
		Name:        "Biology101",
		Engine:      "mysql",
		Username:    "student",
		Password:    "hunter2-hunter2",
		OwnerUserID: 42,
	}
}

func fields(errs []FieldError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Field)
	}
	return out
}

func TestValidateCreateInstance_Valid(t *testing.T) {
	assert.Empty(t, ValidateCreateInstance(validCreate()))
}

func TestValidateCreateInstance_FieldErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateInstanceRequest)
		field  string
	}{
		{"missing name", func(r *CreateInstanceRequest) { r.Name = "" }, "name"},
		{"name with quote", func(r *CreateInstanceRequest) { r.Name = `bio'; DROP TABLE x` }, "name"},
		{"name starting with digit", func(r *CreateInstanceRequest) { r.Name = "1course" }, "name"},
		{"missing engine", func(r *CreateInstanceRequest) { r.Engine = "" }, "engine"},
		{"username with dash", func(r *CreateInstanceRequest) { r.Username = "bad-user!" }, "username"},
		{"short password", func(r *CreateInstanceRequest) { r.Password = "short" }, "password"},
		{"missing owner", func(r *CreateInstanceRequest) { r.OwnerUserID = 0 }, "ownerUserId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreate()
			tt.mutate(&req)
			errs := ValidateCreateInstance(req)
			assert.Contains(t, fields(errs), tt.field)
		})
	}
}

func TestValidateQuery(t *testing.T) {
	assert.Empty(t, ValidateQuery(QueryRequest{Statement: "SELECT 1"}))

	errs := ValidateQuery(QueryRequest{})
	assert.Equal(t, []string{"statement"}, fields(errs))
}
