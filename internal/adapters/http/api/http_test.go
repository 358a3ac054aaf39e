package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/okian/bingo/internal/adapters/http/api"
	"github.com/okian/bingo/internal/adapters/repository"
	service "github.com/okian/bingo/internal/app"
	"github.com/okian/bingo/internal/domain/classify"
	"github.com/okian/bingo/internal/domain/ratelimit"
	"github.com/okian/bingo/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithOutput(io.Discard)); err != nil {
		panic(err)
	}
}

// mockTransport answers classification calls with a canned body or error.
type mockTransport struct {
	mu   sync.Mutex
	body string
	err  error
	last classify.Request
}

func (m *mockTransport) Complete(_ context.Context, req classify.Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = req
	if m.err != nil {
		return "", m.err
	}
	return m.body, nil
}

// brokenKV fails every call.
type brokenKV struct{}

func (brokenKV) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("disk on fire")
}

func (brokenKV) Set(context.Context, string, []byte) error {
	return errors.New("disk on fire")
}

const threeMatches = `{"matches":[{"id":1,"motivation":"cars","evidence":["auto"]},{"id":7,"motivation":"safety","evidence":["veilig"]},{"id":19,"motivation":"bus","evidence":["bus"]}]}`

func newMux(opts ...service.Option) *http.ServeMux {
	svc := service.New(opts...)
	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(context.Background(), mux)
	return mux
}

func do(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader = http.NoBody
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode[T any](w *httptest.ResponseRecorder) T {
	var v T
	So(json.NewDecoder(w.Body).Decode(&v), ShouldBeNil)
	return v
}

type errorBody struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	RetryAfterMS int64  `json:"retry_after_ms"`
	Remaining    int    `json:"remaining"`
}

func TestServer_Register(t *testing.T) {
	Convey("Given a new API server", t, func() {
		mux := newMux()

		Convey("When hitting operational endpoints", func() {
			Convey("Then health should expose metrics", func() {
				w := do(mux, "GET", "/healthz", "")
				So(w.Code, ShouldEqual, http.StatusOK)
			})

			Convey("And stats should be JSON", func() {
				w := do(mux, "GET", "/stats", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldContainSubstring, "application/json")
				stats := decode[map[string]any](w)
				So(stats, ShouldContainKey, "submissions")
				So(stats["classifierEnabled"], ShouldEqual, false)
			})

			Convey("And stats should reject other methods", func() {
				w := do(mux, "POST", "/stats", "")
				So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
				So(w.Header().Get("Allow"), ShouldEqual, http.MethodGet)
			})

			Convey("And the dashboard should serve HTML with refresh control", func() {
				w := do(mux, "GET", "/dashboard", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				body := w.Body.String()
				So(body, ShouldContainSubstring, `id="refresh-interval"`)
				So(body, ShouldContainSubstring, `id="refresh-control"`)
			})

			Convey("And unknown paths should be 404", func() {
				w := do(mux, "GET", "/unknown", "")
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When registering on a nil mux", func() {
			svc := service.New()
			So(func() { api.NewServer(svc, svc).Register(context.Background(), nil) }, ShouldPanic)
		})
	})
}

func TestBoardEndpoints(t *testing.T) {
	Convey("Given a server with a mock classifier", t, func() {
		transport := &mockTransport{body: threeMatches}
		mux := newMux(service.WithTransport(transport))

		Convey("When reading the initial board", func() {
			w := do(mux, "GET", "/api/board", "")
			snap := decode[service.Snapshot](w)

			Convey("Then only the special tile should be matched", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(snap.Board.MatchedIDs(), ShouldResemble, []int{13})
				So(snap.Bingo, ShouldBeFalse)
			})
		})

		Convey("When classifying plain text", func() {
			w := do(mux, "POST", "/api/board/classify", `{"text":"De auto, de bus en veilig verkeer"}`)
			out := decode[service.Outcome](w)

			Convey("Then the board should hold exactly the matches plus the special tile", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(out.Board.MatchedIDs(), ShouldResemble, []int{1, 7, 13, 19})
				So(out.Bingo, ShouldBeFalse)
				So(out.ParseError, ShouldBeEmpty)
				So(len(out.Matches), ShouldEqual, 3)
			})

			Convey("And the board endpoint should reflect it", func() {
				snap := decode[service.Snapshot](do(mux, "GET", "/api/board", ""))
				So(snap.Board.MatchedIDs(), ShouldResemble, []int{1, 7, 13, 19})
			})

			Convey("And reset should restore the baseline", func() {
				w := do(mux, "POST", "/api/board/reset", "")
				snap := decode[service.Snapshot](w)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(snap.Board.MatchedIDs(), ShouldResemble, []int{13})
			})
		})

		Convey("When classifying editor HTML", func() {
			w := do(mux, "POST", "/api/board/classify", `{"content":"<p>De <b>auto</b></p><script>x()</script>"}`)

			Convey("Then the classifier should receive plain text", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(transport.last.User, ShouldEqual, "De auto")
			})
		})

		Convey("When the body is not JSON", func() {
			w := do(mux, "POST", "/api/board/classify", `{"text":`)
			body := decode[errorBody](w)

			Convey("Then it should be a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(body.Code, ShouldEqual, "bad_request")
				So(body.Message, ShouldStartWith, "api.classify")
			})
		})

		Convey("When the text is blank", func() {
			w := do(mux, "POST", "/api/board/classify", `{"text":"   "}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the classifier answers with garbage", func() {
			transport.body = "Sure! 1, 7 and 19"
			w := do(mux, "POST", "/api/board/classify", `{"text":"auto"}`)
			out := decode[service.Outcome](w)

			Convey("Then the outcome should flag the parse failure", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(out.ParseError, ShouldNotBeEmpty)
				So(out.Board.MatchedIDs(), ShouldResemble, []int{13})
			})
		})

		Convey("When the transport fails", func() {
			transport.err = errors.New("upstream 500: secret details")
			w := do(mux, "POST", "/api/board/classify", `{"text":"auto"}`)
			body := decode[errorBody](w)

			Convey("Then a generic gateway error should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusBadGateway)
				So(body.Code, ShouldEqual, "classification_failed")
				So(body.Message, ShouldNotContainSubstring, "secret")
			})
		})
	})

	Convey("Given a server with a one-request limit", t, func() {
		transport := &mockTransport{body: threeMatches}
		limiter := ratelimit.New(ratelimit.WithMaxRequests(1), ratelimit.WithWindow(time.Minute))
		mux := newMux(service.WithTransport(transport), service.WithLimiter(limiter))

		Convey("When submitting twice", func() {
			first := do(mux, "POST", "/api/board/classify", `{"text":"auto"}`)
			second := do(mux, "POST", "/api/board/classify", `{"text":"bus"}`)
			body := decode[errorBody](second)

			Convey("Then the second call should be rate limited", func() {
				So(first.Code, ShouldEqual, http.StatusOK)
				So(second.Code, ShouldEqual, http.StatusTooManyRequests)
				So(body.Code, ShouldEqual, "rate_limited")
				So(body.Remaining, ShouldEqual, 0)
				So(body.RetryAfterMS, ShouldBeGreaterThan, 0)
				So(second.Header().Get("Retry-After"), ShouldNotBeEmpty)
			})

			Convey("And the limits endpoint should agree", func() {
				w := do(mux, "GET", "/api/limits", "")
				st := decode[map[string]any](w)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(st["limit"], ShouldEqual, float64(1))
				So(st["remaining"], ShouldEqual, float64(0))
				So(st["window_ms"], ShouldEqual, float64(60000))
			})
		})
	})

	Convey("Given a server without a classifier", t, func() {
		mux := newMux()

		Convey("When submitting text", func() {
			w := do(mux, "POST", "/api/board/classify", `{"text":"auto"}`)
			body := decode[errorBody](w)

			Convey("Then the service should be unavailable", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
				So(body.Code, ShouldEqual, "classifier_unavailable")
			})
		})
	})
}

func TestTileEndpoint(t *testing.T) {
	Convey("Given a server", t, func() {
		mux := newMux()

		Convey("When opening the special tile", func() {
			w := do(mux, "GET", "/api/tiles/13", "")
			ex := decode[service.Explanation](w)

			Convey("Then it should be matched with a fixed description", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(ex.Special, ShouldBeTrue)
				So(ex.Matched, ShouldBeTrue)
				So(ex.Motivation, ShouldNotBeEmpty)
			})
		})

		Convey("When opening a regular tile", func() {
			ex := decode[service.Explanation](do(mux, "GET", "/api/tiles/1", ""))
			So(ex.Label, ShouldEqual, "AUTO")
			So(ex.Matched, ShouldBeFalse)
			So(ex.Keywords, ShouldContain, "car")
		})

		Convey("When the id is not a number", func() {
			w := do(mux, "GET", "/api/tiles/abc", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the id is off the board", func() {
			w := do(mux, "GET", "/api/tiles/26", "")
			body := decode[errorBody](w)
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(body.Code, ShouldEqual, "not_found")
		})
	})
}

func TestVersionEndpoints(t *testing.T) {
	Convey("Given a server with an in-memory version store", t, func() {
		mux := newMux()

		Convey("When saving a version", func() {
			w := do(mux, "POST", "/api/versions", `{"name":"draft","content":"<p>First line</p><p>second</p>"}`)
			saved := decode[repository.Version](w)

			Convey("Then it should be created with derived plain text", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				So(saved.ID, ShouldNotBeEmpty)
				So(saved.PlainText, ShouldEqual, "First line\n\nsecond")
			})

			Convey("And it should be listed with a preview", func() {
				var list struct {
					Versions []struct {
						ID      string `json:"id"`
						Name    string `json:"name"`
						Preview string `json:"preview"`
					} `json:"versions"`
				}
				w := do(mux, "GET", "/api/versions", "")
				So(json.NewDecoder(w.Body).Decode(&list), ShouldBeNil)
				So(len(list.Versions), ShouldEqual, 1)
				So(list.Versions[0].ID, ShouldEqual, saved.ID)
				So(list.Versions[0].Preview, ShouldEqual, "First line")
			})

			Convey("And it should be fetched by id", func() {
				got := decode[repository.Version](do(mux, "GET", "/api/versions/"+saved.ID, ""))
				So(got.Content, ShouldEqual, "<p>First line</p><p>second</p>")
			})

			Convey("And deleting it should make it unknown", func() {
				del := do(mux, "DELETE", "/api/versions/"+saved.ID, "")
				So(del.Code, ShouldEqual, http.StatusNoContent)

				w := do(mux, "GET", "/api/versions/"+saved.ID, "")
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When the explicit plain text is sent", func() {
			w := do(mux, "POST", "/api/versions", `{"name":"n","content":"<p>a</p>","plainText":"given"}`)
			saved := decode[repository.Version](w)
			So(saved.PlainText, ShouldEqual, "given")
		})

		Convey("When the name is missing", func() {
			w := do(mux, "POST", "/api/versions", `{"content":"x"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When deleting an unknown id", func() {
			w := do(mux, "DELETE", "/api/versions/nope", "")
			So(w.Code, ShouldEqual, http.StatusNoContent)
		})
	})

	Convey("Given a server whose storage is broken", t, func() {
		mux := newMux(service.WithVersionStore(repository.NewVersionStore(brokenKV{})))

		Convey("When listing versions", func() {
			w := do(mux, "GET", "/api/versions", "")
			body := decode[errorBody](w)

			Convey("Then the storage failure should surface verbatim", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(body.Code, ShouldEqual, "storage_error")
				So(body.Message, ShouldContainSubstring, "disk on fire")
			})
		})
	})
}
