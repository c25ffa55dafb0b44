package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"airmonitor/internal/service"
)

func TestPairHandler(t *testing.T) {
	cases := []struct {
		name      string
		body      string
		pairErr   error
		wantCode  int
		wantToken string
	}{
		{"success", `{"pin":"1234","client":"phone"}`, nil, http.StatusOK, "tok123"},
		{"missing pin", `{"client":"phone"}`, nil, http.StatusBadRequest, ""},
		{"wrong pin", `{"pin":"9999"}`, service.ErrInvalidPIN, http.StatusUnauthorized, ""},
		{"signing failure", `{"pin":"1234"}`, errors.New("no key"), http.StatusInternalServerError, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pairing := &mockPairing{token: "tok123", pairErr: tc.pairErr}
			r := newTestRouter(&service.Service{Pairing: pairing})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/auth/pair", bytes.NewBufferString(tc.body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)

			if w.Code != tc.wantCode {
				t.Fatalf("status=%d want %d body=%s", w.Code, tc.wantCode, w.Body.String())
			}
			if tc.wantToken == "" {
				return
			}
			var m map[string]string
			_ = json.Unmarshal(w.Body.Bytes(), &m)
			if m["token"] != tc.wantToken {
				t.Fatalf("token = %q", m["token"])
			}
			if pairing.lastPIN != "1234" || pairing.lastClient != "phone" {
				t.Fatalf("Pair got pin=%q client=%q", pairing.lastPIN, pairing.lastClient)
			}
		})
	}
}
