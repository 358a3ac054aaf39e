package classify_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/bingo/internal/domain/classify"
	"github.com/okian/bingo/internal/domain/ratelimit"
	"github.com/okian/bingo/internal/domain/tile"
	. "github.com/smartystreets/goconvey/convey"
)

// stubTransport records calls and replies with a canned body or error.
type stubTransport struct {
	body  string
	err   error
	calls int
	last  classify.Request
}

func (s *stubTransport) Complete(_ context.Context, req classify.Request) (string, error) {
	s.calls++
	s.last = req
	if s.err != nil {
		return "", s.err
	}
	return s.body, nil
}

func TestParseResponse(t *testing.T) {
	Convey("Given classifier response bodies", t, func() {
		Convey("When the body is well formed", func() {
			res := classify.ParseResponse(`{"matches":[{"id":3,"motivation":"m","evidence":["e"]}]}`)

			Convey("Then it should yield exactly one item", func() {
				So(res.Err, ShouldBeNil)
				So(len(res.Items), ShouldEqual, 1)
				So(res.Items[0].ID, ShouldEqual, 3)
				So(res.Items[0].Motivation, ShouldEqual, "m")
				So(res.Items[0].Evidence, ShouldResemble, []string{"e"})
			})
		})

		Convey("When the body is not JSON", func() {
			var res classify.Result
			So(func() { res = classify.ParseResponse(`[1, 2, 3`) }, ShouldNotPanic)

			Convey("Then it should degrade to an empty list with an error", func() {
				So(res.Items, ShouldNotBeNil)
				So(res.Items, ShouldBeEmpty)
				So(res.Err, ShouldNotBeNil)
				So(errors.Is(res.Err, classify.ErrParse), ShouldBeTrue)
			})
		})

		Convey("When the body lacks the matches key", func() {
			res := classify.ParseResponse(`{"ids":[1,2]}`)
			So(res.Items, ShouldBeEmpty)
			So(errors.Is(res.Err, classify.ErrParse), ShouldBeTrue)
		})

		Convey("When the body has the wrong shape", func() {
			res := classify.ParseResponse(`{"matches":"nope"}`)
			So(res.Items, ShouldBeEmpty)
			So(errors.Is(res.Err, classify.ErrParse), ShouldBeTrue)
		})

		Convey("When matches is empty", func() {
			res := classify.ParseResponse(`{"matches":[]}`)
			So(res.Err, ShouldBeNil)
			So(res.Items, ShouldBeEmpty)
		})

		Convey("When ids fall outside the board", func() {
			res := classify.ParseResponse(`{"matches":[{"id":0,"motivation":"a","evidence":[]},{"id":26,"motivation":"b","evidence":[]},{"id":5,"motivation":"c"}]}`)

			Convey("Then they should be rejected and the rest kept", func() {
				So(res.Err, ShouldBeNil)
				So(len(res.Items), ShouldEqual, 1)
				So(res.Items[0].ID, ShouldEqual, 5)
				So(res.Items[0].Evidence, ShouldNotBeNil)
				So(len(res.Rejected), ShouldEqual, 2)
			})
		})
	})
}

func TestMatchedIDs(t *testing.T) {
	Convey("Given parsed items", t, func() {
		Convey("When the special tile is absent", func() {
			ids := classify.MatchedIDs([]classify.MatchedItem{{ID: 3}})
			So(ids, ShouldResemble, []int{3, tile.SpecialID})
		})

		Convey("When there are no items", func() {
			So(classify.MatchedIDs(nil), ShouldResemble, []int{tile.SpecialID})
		})

		Convey("When ids repeat", func() {
			ids := classify.MatchedIDs([]classify.MatchedItem{{ID: 19}, {ID: 1}, {ID: 19}, {ID: 13}})
			So(ids, ShouldResemble, []int{1, 13, 19})
		})
	})
}

func TestBuildSystemPrompt(t *testing.T) {
	Convey("Given the catalogue", t, func() {
		prompt := classify.BuildSystemPrompt(tile.Catalogue())

		Convey("Then every regular tile should be listed with its keywords", func() {
			So(prompt, ShouldContainSubstring, "1: AUTO | car, vehicle, voertuig, automobiel, wagen")
			So(prompt, ShouldContainSubstring, "25: BETAALD PARKEREN | paid parking")
		})

		Convey("And the special tile should not be offered", func() {
			So(prompt, ShouldNotContainSubstring, "13: LAB")
		})

		Convey("And the schema should require the three item fields", func() {
			schema := classify.ResponseSchema()
			items := schema["properties"].(map[string]any)["matches"].(map[string]any)["items"].(map[string]any)
			So(items["required"], ShouldResemble, []string{"id", "motivation", "evidence"})
		})
	})
}

func TestClient_Classify(t *testing.T) {
	Convey("Given a client over a stub transport", t, func() {
		ctx := context.Background()
		limiter := ratelimit.New()
		transport := &stubTransport{body: `{"matches":[{"id":1,"motivation":"cars","evidence":["auto"]},{"id":7,"motivation":"safety","evidence":["veilig"]},{"id":19,"motivation":"bus","evidence":["bus"]}]}`}
		client := classify.NewClient(transport, limiter, classify.WithModel("test-model"), classify.WithTemperature(0))

		Convey("When the text mentions several tiles", func() {
			res, err := client.Classify(ctx, "De auto, de bus en veilig verkeer", tile.Catalogue())

			Convey("Then the matched ids should include the forced special tile", func() {
				So(err, ShouldBeNil)
				So(res.Err, ShouldBeNil)
				So(classify.MatchedIDs(res.Items), ShouldResemble, []int{1, 7, 13, 19})
			})

			Convey("And the request should carry the user text separately", func() {
				So(transport.last.User, ShouldEqual, "De auto, de bus en veilig verkeer")
				So(transport.last.Model, ShouldEqual, "test-model")
				So(transport.last.System, ShouldNotContainSubstring, "De auto")
				So(transport.last.Temperature, ShouldEqual, float32(0))
			})

			Convey("And exactly one request should be logged", func() {
				So(limiter.RemainingRequests(), ShouldEqual, ratelimit.DefaultMaxRequests-1)
			})
		})

		Convey("When the limiter is exhausted", func() {
			for i := 0; i < ratelimit.DefaultMaxRequests; i++ {
				limiter.LogRequest()
			}
			_, err := client.Classify(ctx, "auto", tile.Catalogue())

			Convey("Then it should fail fast without a network call", func() {
				So(errors.Is(err, classify.ErrRateLimited), ShouldBeTrue)
				var rl *classify.RateLimitError
				So(errors.As(err, &rl), ShouldBeTrue)
				So(rl.Remaining, ShouldEqual, 0)
				So(rl.RetryAfter, ShouldBeGreaterThan, time.Duration(0))
				So(transport.calls, ShouldEqual, 0)
			})
		})

		Convey("When the transport fails", func() {
			transport.err = errors.New("502 bad gateway")
			_, err := client.Classify(ctx, "auto", tile.Catalogue())

			Convey("Then a transport error should surface and nothing be logged", func() {
				So(errors.Is(err, classify.ErrTransport), ShouldBeTrue)
				So(errors.Is(err, classify.ErrRateLimited), ShouldBeFalse)
				So(limiter.RemainingRequests(), ShouldEqual, ratelimit.DefaultMaxRequests)
			})
		})

		Convey("When the transport answers with garbage", func() {
			transport.body = "Sure! Here are the matches: 1, 2"
			res, err := client.Classify(ctx, "auto", tile.Catalogue())

			Convey("Then the parse failure should stay inside the result", func() {
				So(err, ShouldBeNil)
				So(res.Items, ShouldBeEmpty)
				So(errors.Is(res.Err, classify.ErrParse), ShouldBeTrue)
			})

			Convey("And the request should still be logged once", func() {
				So(limiter.RemainingRequests(), ShouldEqual, ratelimit.DefaultMaxRequests-1)
			})
		})

		Convey("When the text is blank", func() {
			_, err := client.Classify(ctx, "  \n\t", tile.Catalogue())

			Convey("Then it should be rejected before any call", func() {
				So(errors.Is(err, classify.ErrEmptyText), ShouldBeTrue)
				So(transport.calls, ShouldEqual, 0)
				So(limiter.RemainingRequests(), ShouldEqual, ratelimit.DefaultMaxRequests)
			})
		})
	})
}

// slowTransport holds every call open for delay and counts calls.
type slowTransport struct {
	delay time.Duration
	calls atomic.Int32
}

func (s *slowTransport) Complete(ctx context.Context, _ classify.Request) (string, error) {
	s.calls.Add(1)
	select {
	case <-time.After(s.delay):
		return `{"matches":[]}`, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestClient_ClassifyConcurrent(t *testing.T) {
	Convey("Given a client over a slow transport and the default limiter", t, func() {
		limiter := ratelimit.New()
		transport := &slowTransport{delay: 50 * time.Millisecond}
		client := classify.NewClient(transport, limiter)

		Convey("When twenty submissions arrive at once", func() {
			var (
				wg      sync.WaitGroup
				limited atomic.Int32
			)
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := client.Classify(context.Background(), "auto", tile.Catalogue())
					if errors.Is(err, classify.ErrRateLimited) {
						limited.Add(1)
					}
				}()
			}
			wg.Wait()

			Convey("Then no more than the limit should reach the transport", func() {
				So(transport.calls.Load(), ShouldEqual, int32(ratelimit.DefaultMaxRequests))
				So(limited.Load(), ShouldEqual, int32(20-ratelimit.DefaultMaxRequests))
				So(limiter.RemainingRequests(), ShouldEqual, 0)
			})
		})
	})
}

func TestRateLimitError(t *testing.T) {
	Convey("Given a rate limit error", t, func() {
		err := &classify.RateLimitError{RetryAfter: 1500 * time.Millisecond, Remaining: 0}

		Convey("Then its message should name the wait", func() {
			So(strings.Contains(err.Error(), "1.5s"), ShouldBeTrue)
			So(errors.Is(err, classify.ErrRateLimited), ShouldBeTrue)
		})
	})
}
