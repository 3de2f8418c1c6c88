package api

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/nerrad567/vibrant/internal/history"
)

type fakeHistory struct {
	got *history.Filter
	err error
}

func (h *fakeHistory) List(_ context.Context, filter history.Filter) (*history.ListResult, error) {
	h.got = &filter
	if h.err != nil {
		return nil, h.err
	}
	return &history.ListResult{
		Entries: []history.Entry{{ID: "sat-1", Output: "DP-1", Saturation: 2, Source: "mqtt"}},
		Total:   1,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}

func TestListHistory(t *testing.T) {
	fake := &fakeHistory{}
	srv, _ := testServer(t, Deps{History: fake})

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/history?output=DP-1&source=mqtt&limit=10&offset=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	want := history.Filter{Output: "DP-1", Source: "mqtt", Limit: 10, Offset: 5}
	if fake.got == nil || *fake.got != want {
		t.Errorf("filter = %+v, want %+v", fake.got, want)
	}

	body := decodeBody[history.ListResult](t, rec)
	if body.Total != 1 || body.Entries[0].ID != "sat-1" {
		t.Errorf("body = %+v", body)
	}
}

func TestListHistory_Errors(t *testing.T) {
	tests := []struct {
		name string
		deps Deps
		path string
		want int
	}{
		{"disabled", Deps{}, "/api/v1/history", http.StatusServiceUnavailable},
		{"bad limit", Deps{History: &fakeHistory{}}, "/api/v1/history?limit=ten", http.StatusBadRequest},
		{"bad offset", Deps{History: &fakeHistory{}}, "/api/v1/history?offset=-x", http.StatusBadRequest},
		{"store error", Deps{History: &fakeHistory{err: errors.New("locked")}}, "/api/v1/history", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := testServer(t, tt.deps)
			rec := doRequest(t, srv, http.MethodGet, tt.path, "")
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
