package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/tracker/internal/adapters/repository"
	app "github.com/okian/tracker/internal/app"
	"github.com/okian/tracker/internal/config"
	"github.com/okian/tracker/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func newTestService(t *testing.T) *app.Service {
	store, err := repository.NewLogStore(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	svc, err := app.New(store)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When testing configuration loading", func() {
			dir := t.TempDir()
			_ = os.Setenv("TRACKER_ADDR", ":9090")
			_ = os.Setenv("TRACKER_DATA_DIR", dir)
			_ = os.Setenv("TRACKER_STORAGE_BACKEND", "sqlite")
			defer func() {
				_ = os.Unsetenv("TRACKER_ADDR")
				_ = os.Unsetenv("TRACKER_DATA_DIR")
				_ = os.Unsetenv("TRACKER_STORAGE_BACKEND")
			}()

			convey.Convey("Then configuration should be loadable and open its store", func() {
				ctx := context.Background()
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.DataDir, convey.ShouldEqual, dir)

				store, err := repository.Open(ctx, *cfg)
				convey.So(err, convey.ShouldBeNil)
				_, isSQLite := store.(*repository.SQLiteStore)
				convey.So(isSQLite, convey.ShouldBeTrue)
				convey.So(store.Close(), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the configuration is invalid", func() {
			_ = os.Setenv("TRACKER_STORAGE_BACKEND", "cassandra")
			defer func() { _ = os.Unsetenv("TRACKER_STORAGE_BACKEND") }()

			convey.Convey("Then run should fail before serving", func() {
				err := run(context.Background())
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func TestNewHandler(t *testing.T) {
	convey.Convey("Given the assembled handler", t, func() {
		ctx := context.Background()
		cfg := config.New()
		cfg.AdminPIN = "pin-1234"
		h := newHandler(ctx, cfg, newTestService(t), logger.Get())

		get := func(target string) *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
			return w
		}

		convey.Convey("Then every public route should answer", func() {
			convey.So(get("/").Body.String(), convey.ShouldEqual, "tracker OK")
			convey.So(get("/healthz").Body.String(), convey.ShouldEqual, "ok")
			convey.So(get("/dashboard").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/owner").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/api-docs").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/openapi.yaml").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/metrics").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/nope").Code, convey.ShouldEqual, http.StatusNotFound)
		})

		convey.Convey("And a tracked event should show up in stats", func() {
			req := httptest.NewRequest(http.MethodPost, "/track",
				strings.NewReader(`{"event":"search","deviceId":"dev-1","payload":{"q":"boots"}}`))
			req.Header.Set("Origin", "https://shop.example")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Header().Get("Access-Control-Allow-Origin"), convey.ShouldEqual, "*")

			stats := get("/stats?pin=pin-1234")
			convey.So(stats.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(stats.Body.String(), convey.ShouldContainSubstring, `"q":"boots"`)
			convey.So(get("/stats?pin=wrong").Code, convey.ShouldEqual, http.StatusForbidden)
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("When the metrics updaters run until their context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			svc := newTestService(t)

			convey.Convey("Then they should return without panicking", func() {
				convey.So(func() {
					startSystemMetricsUpdater(ctx)
				}, convey.ShouldNotPanic)
				convey.So(func() {
					startServiceMetricsUpdater(ctx, svc)
				}, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When updating metrics directly", func() {
			svc := newTestService(t)

			convey.Convey("Then it should not panic", func() {
				convey.So(updateSystemMetrics, convey.ShouldNotPanic)
				convey.So(func() {
					updateServiceMetrics(context.Background(), svc)
				}, convey.ShouldNotPanic)
			})
		})
	})
}
