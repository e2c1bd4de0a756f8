package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"pagamentos/internal/core"
)

func TestResponseBuilder_JSON(t *testing.T) {
	w := httptest.NewRecorder()

	NewResponse().
		Status(http.StatusCreated).
		Header("X-Test", "1").
		JSON(map[string]int{"imported": 2}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	if w.Header().Get("X-Test") != "1" {
		t.Error("custom header missing")
	}
	var got map[string]int
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil || got["imported"] != 2 {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestResponseBuilder_Attachment(t *testing.T) {
	w := httptest.NewRecorder()

	NewResponse().
		Header("Content-Type", "text/csv; charset=utf-8").
		Attachment("pagamentos_2025-01.csv").
		Body([]byte("conta;categoria")).
		Write(w)

	if got := w.Header().Get("Content-Disposition"); got != `attachment; filename="pagamentos_2025-01.csv"` {
		t.Errorf("Content-Disposition = %q", got)
	}
	if w.Body.String() != "conta;categoria" {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &core.ValidationError{Field: "bank", Err: core.ErrEmptyBank}, http.StatusBadRequest},
		{"parse", &core.ParseError{Line: 3, Err: core.ErrInvalidAmount}, http.StatusUnprocessableEntity},
		{"not found", fmt.Errorf("lookup: %w", core.ErrRecordNotFound), http.StatusNotFound},
		{"other", errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			FromError(tt.err).Write(w)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}

	w := httptest.NewRecorder()
	FromError(&core.ValidationError{Field: "bank", Err: core.ErrEmptyBank}).Write(w)
	var body errorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Field != "bank" || body.Error != core.ErrEmptyBank.Error() {
		t.Errorf("body = %+v", body)
	}
}
