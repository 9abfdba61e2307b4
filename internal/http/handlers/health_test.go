package handlers_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/geocoder89/adminpanel/internal/http/handlers"
)

func TestReadyHandler(t *testing.T) {
	tests := []struct {
		name     string
		ping     func() error
		draining bool
		want     int
	}{
		{name: "no_db", want: http.StatusOK},
		{name: "db_up", ping: func() error { return nil }, want: http.StatusOK},
		{name: "db_down", ping: func() error { return errors.New("dial tcp: refused") }, want: http.StatusServiceUnavailable},
		{name: "draining", ping: func() error { return nil }, draining: true, want: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			h := handlers.NewHealthHandler(tt.ping, func() bool { return tt.draining })
			w := doJSON(setupRouter(http.MethodGet, "/api/ready", h.Ready), http.MethodGet, "/api/ready", "")

			if w.Code != tt.want {
				t.Fatalf("got status %d, want %d", w.Code, tt.want)
			}
		})
	}
}
