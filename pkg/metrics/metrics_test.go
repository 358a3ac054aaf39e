package metrics

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a fresh registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithRegistry(registry))

			Convey("Then it should use the bingo namespace", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "bingo")
				So(manager.subsystem, ShouldEqual, "board")
				So(manager.Enabled(), ShouldBeTrue)
				So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithMetricPrefix("x_"),
				WithLatencyBuckets([]float64{1, 2, 3}),
				WithRefreshInterval(time.Second),
				WithConstLabels(map[string]string{"env": "test"}),
				WithRegistry(registry),
			)
			manager.bingoWins.Inc()

			Convey("Then names and labels should follow the options", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				var found bool
				for _, f := range families {
					if f.GetName() == "test_unit_x_bingo_wins_total" {
						found = true
						So(f.GetMetric()[0].GetLabel()[0].GetName(), ShouldEqual, "env")
					}
				}
				So(found, ShouldBeTrue)
				So(manager.RefreshInterval(), ShouldEqual, time.Second)
				So(manager.latencyBuckets, ShouldResemble, []float64{1, 2, 3})
			})
		})

		Convey("When empty options are passed", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithLatencyBuckets(nil),
				WithRefreshInterval(0),
				WithConstLabels(nil),
				WithRegistry(registry),
			)

			Convey("Then defaults should be kept", func() {
				So(manager.namespace, ShouldEqual, "bingo")
				So(manager.subsystem, ShouldEqual, "board")
				So(manager.latencyBuckets, ShouldResemble, prometheus.DefBuckets)
				So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording classification metrics", func() {
			before := testutil.ToFloat64(globalManager.classifyRequests.WithLabelValues(OutcomeMatched))
			RecordClassifyRequest(OutcomeMatched)
			RecordClassifyLatency(120)
			RecordClassifyRejectedIDs(2)
			RecordClassifyRejectedIDs(0)

			Convey("Then the counters should move", func() {
				So(testutil.ToFloat64(globalManager.classifyRequests.WithLabelValues(OutcomeMatched)), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.classifyRejectedIDs), ShouldBeGreaterThanOrEqualTo, 2)
			})
		})

		Convey("When updating gauges", func() {
			UpdateRateLimitRemaining(3)
			UpdateMatchedTiles(4)
			UpdateVersionsTotal(7)

			Convey("Then they should hold the last value", func() {
				So(testutil.ToFloat64(globalManager.rateLimitRemaining), ShouldEqual, 3)
				So(testutil.ToFloat64(globalManager.matchedTiles), ShouldEqual, 4)
				So(testutil.ToFloat64(globalManager.versionsTotal), ShouldEqual, 7)
			})
		})

		Convey("When recording every other metric", func() {
			So(func() {
				RecordClassifyTransportError()
				RecordClassifyParseError()
				RecordRateLimitRejection()
				RecordBingo()
				RecordVersionSaved()
				RecordVersionDeleted()
				RecordStorageError("save")
				RecordRepositoryLatency("list", 0.5)
				RecordHTTPRequest("/api/board", "GET", "200")
				RecordHTTPRequestDuration("/api/board", "GET", "200", 1.5)
				RecordErrorByComponent("repository", "storage")
				RecordErrorByEndpoint("/api/versions", "POST", "400")
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(10)
				RecordSystemGCPauseTime(0.2)
			}, ShouldNotPanic)
		})

		Convey("When gathering the custom registry", func() {
			RecordBingo()
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)

			Convey("Then only bingo metrics should be present", func() {
				for _, f := range families {
					So(strings.HasPrefix(f.GetName(), "bingo_board_"), ShouldBeTrue)
				}
			})
		})
	})
}

func TestMetricsDisabled(t *testing.T) {
	Convey("Given a disabled global manager", t, func() {
		saved := globalManager
		globalManager = NewManager(WithRegistry(prometheus.NewRegistry()), WithEnabled(false))
		defer func() { globalManager = saved }()

		Convey("When recording", func() {
			RecordBingo()
			UpdateMatchedTiles(9)

			Convey("Then nothing should be observed", func() {
				So(testutil.ToFloat64(globalManager.bingoWins), ShouldEqual, 0)
				So(testutil.ToFloat64(globalManager.matchedTiles), ShouldEqual, 0)
			})
		})
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given concurrent recorders", t, func() {
		registry := prometheus.NewRegistry()
		saved := globalManager
		globalManager = NewManager(WithRegistry(registry))
		defer func() { globalManager = saved }()

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 50; j++ {
					RecordVersionSaved()
					RecordHTTPRequest("/api/versions", "POST", "201")
				}
			}()
		}
		wg.Wait()

		So(testutil.ToFloat64(globalManager.versionsSaved), ShouldEqual, 1000)
	})
}

func TestConfigure(t *testing.T) {
	Convey("Given a reconfigured global manager", t, func() {
		savedManager, savedRegistry := globalManager, customRegistry
		defer func() { globalManager, customRegistry = savedManager, savedRegistry }()

		Configure(
			WithRefreshInterval(2*time.Second),
			WithConstLabels(map[string]string{"provider": "gemini"}),
		)
		RecordBingo()

		Convey("Then the registry should be fresh and labelled", func() {
			So(GetRegistry() != savedRegistry, ShouldBeTrue)
			So(RefreshInterval(), ShouldEqual, 2*time.Second)

			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			for _, f := range families {
				if f.GetName() == "bingo_board_bingo_wins_total" {
					So(f.GetMetric()[0].GetCounter().GetValue(), ShouldEqual, 1)
					So(f.GetMetric()[0].GetLabel()[0].GetValue(), ShouldEqual, "gemini")
				}
			}
		})
	})
}
