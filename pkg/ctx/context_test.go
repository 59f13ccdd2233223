package ctx_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shashiranjanraj/zepto/pkg/apperr"
	"github.com/shashiranjanraj/zepto/pkg/auth"
	appctx "github.com/shashiranjanraj/zepto/pkg/ctx"
	"github.com/shashiranjanraj/zepto/pkg/response"
)

func serve(req *http.Request, h appctx.HandlerFunc) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	appctx.Wrap(h)(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) response.Envelope {
	t.Helper()
	var env response.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return env
}

func TestSuccessEnvelope(t *testing.T) {
	rec := serve(httptest.NewRequest(http.MethodGet, "/", nil), func(c *appctx.Context) {
		c.Success(map[string]any{"id": "p1"})
	})
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	env := decode(t, rec)
	if !env.Success || env.Status != http.StatusOK {
		t.Errorf("unexpected envelope: %+v", env)
	}
}

func TestListCarriesCount(t *testing.T) {
	rec := serve(httptest.NewRequest(http.MethodGet, "/", nil), func(c *appctx.Context) {
		c.List([]string{"a", "b"}, 2, nil)
	})
	if !strings.Contains(rec.Body.String(), `"count":2`) {
		t.Errorf("expected count in body: %s", rec.Body.String())
	}
}

func TestQueryHelpers(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?page=3&minPrice=12.5&limit=abc", nil)
	serve(req, func(c *appctx.Context) {
		if got := c.IntQuery("page", 1); got != 3 {
			t.Errorf("page: got %d", got)
		}
		if got := c.IntQuery("limit", 20); got != 20 {
			t.Errorf("limit should fall back, got %d", got)
		}
		if f, ok := c.FloatQuery("minPrice"); !ok || f != 12.5 {
			t.Errorf("minPrice: got %v %v", f, ok)
		}
		if _, ok := c.FloatQuery("maxPrice"); ok {
			t.Error("maxPrice should be absent")
		}
		if got := c.DefaultQuery("sortBy", "createdAt"); got != "createdAt" {
			t.Errorf("sortBy: got %s", got)
		}
	})
}

func TestBindJSONValid(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Asha","phone":"9876543210"}`))
	rec := serve(req, func(c *appctx.Context) {
		var in struct {
			Name  string `json:"name"  validate:"required"`
			Phone string `json:"phone" validate:"required,digits=10"`
		}
		if !c.BindJSON(&in) {
			t.Error("expected BindJSON to succeed")
			return
		}
		if in.Name != "Asha" {
			t.Errorf("expected Asha, got %s", in.Name)
		}
		c.Success(nil)
	})
	if rec.Code != http.StatusOK {
		t.Errorf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
}

func TestBindJSONValidationFailure(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":""}`))
	rec := serve(req, func(c *appctx.Context) {
		var in struct {
			Name string `json:"name" validate:"required"`
		}
		if c.BindJSON(&in) {
			t.Error("expected BindJSON to fail")
		}
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	env := decode(t, rec)
	if env.Kind != apperr.KindInvalidArgument || env.Errors["name"] == "" {
		t.Errorf("unexpected envelope: %+v", env)
	}
}

func TestBindJSONMalformed(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
	rec := serve(req, func(c *appctx.Context) {
		var in struct{ Name string }
		c.BindJSON(&in)
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestFailMapsKinds(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{apperr.NotFound("Order not found"), http.StatusNotFound},
		{apperr.InsufficientStock("Insufficient stock for Milk"), http.StatusConflict},
		{apperr.Forbidden("Not authorized"), http.StatusForbidden},
		{errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := serve(httptest.NewRequest(http.MethodGet, "/", nil), func(c *appctx.Context) {
			c.Fail(tc.err)
			if c.WrittenStatus() != tc.code {
				t.Errorf("WrittenStatus: got %d want %d", c.WrittenStatus(), tc.code)
			}
		})
		if rec.Code != tc.code {
			t.Errorf("%v: got %d want %d", tc.err, rec.Code, tc.code)
		}
	}
}

func TestInternalErrorIsHidden(t *testing.T) {
	rec := serve(httptest.NewRequest(http.MethodGet, "/", nil), func(c *appctx.Context) {
		c.Fail(errors.New("pq: connection refused at 10.0.0.5"))
	})
	if strings.Contains(rec.Body.String(), "10.0.0.5") {
		t.Errorf("internal detail leaked: %s", rec.Body.String())
	}
}

func TestActorFromContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(auth.WithActor(context.Background(), auth.Actor{UserID: "u1", IsAdmin: true}))
	serve(req, func(c *appctx.Context) {
		if a := c.Actor(); a.UserID != "u1" || !a.IsAdmin {
			t.Errorf("unexpected actor %+v", a)
		}
	})

	serve(httptest.NewRequest(http.MethodGet, "/", nil), func(c *appctx.Context) {
		if a := c.Actor(); a.UserID != "" {
			t.Errorf("expected zero actor, got %+v", a)
		}
	})
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1")
	serve(req, func(c *appctx.Context) {
		if ip := c.ClientIP(); ip != "1.2.3.4" {
			t.Errorf("expected 1.2.3.4, got %s", ip)
		}
	})
}

func TestStoreIsResetBetweenRequests(t *testing.T) {
	serve(httptest.NewRequest(http.MethodGet, "/", nil), func(c *appctx.Context) {
		c.Set("k", "v")
	})
	serve(httptest.NewRequest(http.MethodGet, "/", nil), func(c *appctx.Context) {
		if c.GetString("k") != "" {
			t.Error("store leaked across requests")
		}
	})
}
