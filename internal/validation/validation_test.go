package validation

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/task-api/internal/apperror"
)

type signUpBody struct {
	Name            string  `json:"name" validate:"required,max=50"`
	Email           string  `json:"email" validate:"required,email"`
	Password        string  `json:"password" validate:"required,min=6"`
	ConfirmPassword string  `json:"confirmPassword" validate:"required,eqfield=Password"`
	Status          *string `json:"status" validate:"omitempty,oneof=pending in-progress completed"`
}

func TestStruct_FirstViolationMessage(t *testing.T) {
	bad := "done"

	tests := []struct {
		name    string
		body    signUpBody
		wantMsg string
	}{
		{
			name:    "missing name",
			body:    signUpBody{Email: "a@b.com", Password: "123456", ConfirmPassword: "123456"},
			wantMsg: "name is required",
		},
		{
			name:    "bad email",
			body:    signUpBody{Name: "A", Email: "nope", Password: "123456", ConfirmPassword: "123456"},
			wantMsg: "email must be a valid email",
		},
		{
			name:    "short password",
			body:    signUpBody{Name: "A", Email: "a@b.com", Password: "123", ConfirmPassword: "123"},
			wantMsg: "password must be at least 6 characters",
		},
		{
			name:    "mismatched confirmation",
			body:    signUpBody{Name: "A", Email: "a@b.com", Password: "123456", ConfirmPassword: "654321"},
			wantMsg: "confirmPassword must match password",
		},
		{
			name:    "status outside enum",
			body:    signUpBody{Name: "A", Email: "a@b.com", Password: "123456", ConfirmPassword: "123456", Status: &bad},
			wantMsg: "status must be one of: pending, in-progress, completed",
		},
	}

	v := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.body)
			require.Error(t, err)

			appErr, ok := apperror.As(err)
			require.True(t, ok)
			assert.Equal(t, apperror.KindValidation, appErr.Kind)
			assert.Equal(t, tt.wantMsg, appErr.Message)
		})
	}
}

func TestStruct_Valid(t *testing.T) {
	v := New()
	assert.NoError(t, v.Struct(signUpBody{Name: "A", Email: "a@b.com", Password: "123456", ConfirmPassword: "123456"}))
}

func TestBody_StoresDecodedValue(t *testing.T) {
	var got *signUpBody
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := FromContext[signUpBody](r.Context())
		require.True(t, ok)
		got = body
		w.WriteHeader(http.StatusNoContent)
	})

	payload := `{"name":"A","email":"a@b.com","password":"123456","confirmPassword":"123456"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload))
	rec := httptest.NewRecorder()

	Body[signUpBody](New())(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, "a@b.com", got.Email)
}

func TestBody_RejectsBeforeHandler(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantMsg string
	}{
		{name: "malformed json", payload: `{"name":`, wantMsg: "invalid request body"},
		{name: "violation", payload: `{"name":"A","email":"x","password":"123456","confirmPassword":"123456"}`, wantMsg: "email must be a valid email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.payload))
			rec := httptest.NewRecorder()

			Body[signUpBody](New())(next).ServeHTTP(rec, req)

			assert.False(t, called)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantMsg, body["msg"])
		})
	}
}
