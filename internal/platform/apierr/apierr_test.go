package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusOf(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
		ok     bool
	}{
		{"plain", errors.New("boom"), 0, "", false},
		{"pinned", BadRequest("invalid_id", errors.New("bad uuid")), http.StatusBadRequest, "invalid_id", true},
		{"wrapped", fmt.Errorf("auth: %w", Unauthenticated(nil)), http.StatusUnauthorized, "unauthorized", true},
		{"zero status", New(0, "x", nil), 0, "", false},
	}
	for _, tc := range cases {
		status, code, ok := StatusOf(tc.err)
		if status != tc.status || code != tc.code || ok != tc.ok {
			t.Fatalf("%s: want=%d/%s/%v got=%d/%s/%v", tc.name, tc.status, tc.code, tc.ok, status, code, ok)
		}
	}
}

func TestErrorMessageFallsBack(t *testing.T) {
	if got := Unauthenticated(nil).Error(); got != "unauthorized" {
		t.Fatalf("code message: want=unauthorized got=%q", got)
	}
	if got := New(http.StatusConflict, "", nil).Error(); got != "Conflict" {
		t.Fatalf("status text: want=Conflict got=%q", got)
	}
}
