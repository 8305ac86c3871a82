package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func ctxWithQuery(query string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	return e.NewContext(req, httptest.NewRecorder())
}

func TestFromContextDefaults(t *testing.T) {
	p := FromContext(ctxWithQuery(""))
	if p.Limit != DefaultLimit || p.Offset != 0 {
		t.Fatalf("got %+v", p)
	}
}

func TestFromContextClampsLimit(t *testing.T) {
	p := FromContext(ctxWithQuery("limit=5000"))
	if p.Limit != MaxLimit {
		t.Fatalf("limit = %d", p.Limit)
	}
}

func TestFromContextNegativeOffset(t *testing.T) {
	p := FromContext(ctxWithQuery("limit=10&offset=-5"))
	if p.Offset != 0 {
		t.Fatalf("offset = %d", p.Offset)
	}
}

func TestFromContextExplicit(t *testing.T) {
	p := FromContext(ctxWithQuery("limit=25&offset=50"))
	if p.Limit != 25 || p.Offset != 50 {
		t.Fatalf("got %+v", p)
	}
}

func TestHasMore(t *testing.T) {
	resp := NewResponse(nil, 100, 20, 60)
	if !resp.HasMore {
		t.Fatal("expected HasMore")
	}
	resp = NewResponse(nil, 100, 20, 80)
	if resp.HasMore {
		t.Fatal("expected no more")
	}
}

func TestPreviousOffsetFloor(t *testing.T) {
	p := Params{Limit: 20, Offset: 10}
	if got := p.PreviousOffset(); got != 0 {
		t.Fatalf("PreviousOffset = %d", got)
	}
}
