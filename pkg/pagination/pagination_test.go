package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func paramsFor(target string) Params {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	return FromContext(e.NewContext(req, rec))
}

func TestFromContext(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		wantLimit  int
		wantOffset int
	}{
		{"defaults", "/patients", DefaultLimit, 0},
		{"custom", "/patients?limit=50&offset=10", 50, 10},
		{"capped", "/patients?limit=500", MaxLimit, 0},
		{"negative offset", "/patients?offset=-5", DefaultLimit, 0},
		{"zero limit", "/patients?limit=0", DefaultLimit, 0},
		{"garbage", "/patients?limit=ten&offset=x", DefaultLimit, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := paramsFor(tt.target)
			if p.Limit != tt.wantLimit {
				t.Errorf("expected limit %d, got %d", tt.wantLimit, p.Limit)
			}
			if p.Offset != tt.wantOffset {
				t.Errorf("expected offset %d, got %d", tt.wantOffset, p.Offset)
			}
		})
	}
}

func TestNewResponse(t *testing.T) {
	data := []string{"P1001", "P1002", "P1003"}
	r := NewResponse(data, 10, 3, 0)

	if r.Total != 10 {
		t.Errorf("expected total 10, got %d", r.Total)
	}
	if !r.HasMore {
		t.Error("expected has_more to be true when offset+limit < total")
	}

	r2 := NewResponse(data, 3, 3, 0)
	if r2.HasMore {
		t.Error("expected has_more to be false when offset+limit >= total")
	}
}

func TestNewResponse_Offsets(t *testing.T) {
	tests := []struct {
		name                 string
		total, limit, offset int
		wantNext, wantPrev   int // -1 means omitted
	}{
		{"first page", 25, 10, 0, 10, -1},
		{"middle page", 25, 10, 10, 20, 0},
		{"last page", 25, 10, 20, -1, 10},
		{"short offset", 25, 10, 4, 14, 0},
		{"single page", 5, 10, 0, -1, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResponse(nil, tt.total, tt.limit, tt.offset)
			if got := offsetOrNone(r.NextOffset); got != tt.wantNext {
				t.Errorf("next_offset = %d, want %d", got, tt.wantNext)
			}
			if got := offsetOrNone(r.PrevOffset); got != tt.wantPrev {
				t.Errorf("prev_offset = %d, want %d", got, tt.wantPrev)
			}
		})
	}
}

func offsetOrNone(p *int) int {
	if p == nil {
		return -1
	}
	return *p
}

func TestParams_HasNext(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		total  int
		want   bool
	}{
		{"more results", Params{Limit: 10, Offset: 0}, 25, true},
		{"exact end", Params{Limit: 10, Offset: 15}, 25, false},
		{"past end", Params{Limit: 10, Offset: 30}, 25, false},
		{"no results", Params{Limit: 10, Offset: 0}, 0, false},
		{"last partial page", Params{Limit: 10, Offset: 20}, 25, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.params.HasNext(tt.total); got != tt.want {
				t.Errorf("HasNext(%d) = %v, want %v", tt.total, got, tt.want)
			}
		})
	}
}

func TestParams_Offsets(t *testing.T) {
	p := Params{Limit: 10, Offset: 5}
	if !p.HasPrevious() {
		t.Error("expected HasPrevious for offset 5")
	}
	if p.NextOffset() != 15 {
		t.Errorf("expected next offset 15, got %d", p.NextOffset())
	}
	if p.PreviousOffset() != 0 {
		t.Errorf("expected previous offset clamped to 0, got %d", p.PreviousOffset())
	}
	if (Params{Limit: 10}).HasPrevious() {
		t.Error("first page has no previous")
	}
}
