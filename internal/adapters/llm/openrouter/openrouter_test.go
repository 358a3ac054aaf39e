package openrouter_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/okian/bingo/internal/adapters/llm/openrouter"
	"github.com/okian/bingo/internal/domain/classify"
	. "github.com/smartystreets/goconvey/convey"
)

func TestTransport_Complete(t *testing.T) {
	Convey("Given a fake chat completions endpoint", t, func() {
		var (
			gotPath string
			gotAuth string
			gotBody map[string]any
			status  = http.StatusOK
			reply   = `{"choices":[{"message":{"role":"assistant","content":"{\"matches\":[]}"}}]}`
		)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotAuth = r.Header.Get("Authorization")
			_ = json.NewDecoder(r.Body).Decode(&gotBody)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(reply))
		}))
		defer srv.Close()

		tr, err := openrouter.New("secret", openrouter.WithBaseURL(srv.URL+"/"), openrouter.WithHTTPClient(srv.Client()))
		So(err, ShouldBeNil)

		req := classify.Request{
			Model:     "test-model",
			System:    "system prompt",
			User:      "user text",
			Schema:    classify.ResponseSchema(),
			MaxTokens: 100,
		}

		Convey("When the endpoint answers 200", func() {
			content, err := tr.Complete(context.Background(), req)

			Convey("Then the first choice content should be returned", func() {
				So(err, ShouldBeNil)
				So(content, ShouldEqual, `{"matches":[]}`)
			})

			Convey("And the request should be well formed", func() {
				So(gotPath, ShouldEqual, "/chat/completions")
				So(gotAuth, ShouldEqual, "Bearer secret")
				So(gotBody["model"], ShouldEqual, "test-model")
				msgs := gotBody["messages"].([]any)
				So(len(msgs), ShouldEqual, 2)
				So(msgs[0].(map[string]any)["role"], ShouldEqual, "system")
				So(msgs[1].(map[string]any)["content"], ShouldEqual, "user text")
				rf := gotBody["response_format"].(map[string]any)
				So(rf["type"], ShouldEqual, "json_schema")
				js := rf["json_schema"].(map[string]any)
				So(js["name"], ShouldEqual, classify.SchemaName)
				So(js["strict"], ShouldEqual, true)
			})
		})

		Convey("When the endpoint answers with an error status", func() {
			status = http.StatusTooManyRequests
			reply = `{"error":"slow down"}`
			_, err := tr.Complete(context.Background(), req)

			Convey("Then a status error should be returned", func() {
				So(errors.Is(err, openrouter.ErrStatus), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "429")
				So(err.Error(), ShouldContainSubstring, "slow down")
			})
		})

		Convey("When the endpoint returns no choices", func() {
			reply = `{"choices":[]}`
			_, err := tr.Complete(context.Background(), req)
			So(errors.Is(err, openrouter.ErrNoChoices), ShouldBeTrue)
		})

		Convey("When the endpoint returns invalid JSON", func() {
			reply = `not json`
			_, err := tr.Complete(context.Background(), req)
			So(err, ShouldNotBeNil)
		})

		Convey("When the context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := tr.Complete(ctx, req)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})

	Convey("Given no api key", t, func() {
		_, err := openrouter.New("  ")
		So(errors.Is(err, openrouter.ErrMissingAPIKey), ShouldBeTrue)
	})
}
