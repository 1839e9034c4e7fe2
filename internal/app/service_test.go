package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/tracker/internal/adapters/repository"
	service "github.com/okian/tracker/internal/app"
	"github.com/okian/tracker/internal/domain/model"
	"github.com/okian/tracker/pkg/logger"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

var errDiskFull = errors.New("disk full")

// failingStore rejects every write.
type failingStore struct{ repository.Store }

func (failingStore) Append(context.Context, model.Event) error { return errDiskFull }
func (failingStore) LoadAll(context.Context) ([]model.Event, error) {
	return nil, errDiskFull
}

func newService(t *testing.T, now time.Time) *service.Service {
	store, err := repository.NewLogStore(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	svc, err := service.New(store,
		service.WithLogger(logger.Get().Named("service")),
		service.WithClock(func() time.Time { return now }),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestService_New(t *testing.T) {
	Convey("Given no store", t, func() {
		_, err := service.New(nil)

		Convey("Then construction should fail", func() {
			So(err, ShouldEqual, service.ErrNoStore)
		})
	})
}

func TestService_Track(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 123456000, time.UTC)

	Convey("Given a service over an empty store", t, func() {
		ctx := context.Background()
		svc := newService(t, now)

		Convey("When tracking a valid event", func() {
			e, err := svc.Track(ctx, model.TrackRequest{
				Kind:     model.KindSearch,
				DeviceID: "dev-1",
				Payload:  model.Payload{"q": "shoes"},
				IP:       "192.0.2.1",
				UA:       "Mozilla/5.0",
			})

			Convey("Then it should be stamped by the server and stored", func() {
				So(err, ShouldBeNil)
				So(e.TS, ShouldEqual, "2024-01-01T10:00:00.123456Z")
				So(*e.IP, ShouldEqual, "192.0.2.1")
				So(*e.UA, ShouldEqual, "Mozilla/5.0")

				n, err := svc.Count(ctx)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
			})
		})

		Convey("When tracking without payload, address or agent", func() {
			e, err := svc.Track(ctx, model.TrackRequest{Kind: model.KindPageView, DeviceID: "dev-1"})

			Convey("Then the payload should be empty and the unknowns nil", func() {
				So(err, ShouldBeNil)
				So(e.Payload, ShouldResemble, model.Payload{})
				So(e.IP, ShouldBeNil)
				So(e.UA, ShouldBeNil)
			})
		})

		Convey("When a required field is empty", func() {
			_, errKind := svc.Track(ctx, model.TrackRequest{DeviceID: "dev-1"})
			_, errDevice := svc.Track(ctx, model.TrackRequest{Kind: model.KindSearch})

			Convey("Then it should be rejected and nothing stored", func() {
				So(errKind, ShouldEqual, model.ErrInvalidEvent)
				So(errDevice, ShouldEqual, model.ErrInvalidEvent)
				n, err := svc.Count(ctx)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 0)
			})
		})
	})

	Convey("Given a store that fails to write", t, func() {
		svc, err := service.New(failingStore{})
		So(err, ShouldBeNil)

		Convey("Then Track should surface the storage error", func() {
			_, err := svc.Track(context.Background(), model.TrackRequest{Kind: "page_view", DeviceID: "d"})
			So(errors.Is(err, errDiskFull), ShouldBeTrue)
		})

		Convey("Then Stats should surface the load error", func() {
			_, err := svc.Stats(context.Background())
			So(errors.Is(err, errDiskFull), ShouldBeTrue)
		})
	})
}

func TestService_Stats(t *testing.T) {
	Convey("Given tracked searches and page views over two days", t, func() {
		ctx := context.Background()
		day1 := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
		clock := day1
		store, err := repository.NewLogStore(t.TempDir())
		So(err, ShouldBeNil)
		svc, err := service.New(store, service.WithClock(func() time.Time { return clock }))
		So(err, ShouldBeNil)
		defer svc.Close()

		_, err = svc.Track(ctx, model.TrackRequest{Kind: "search", DeviceID: "A", Payload: model.Payload{"q": "shoes"}})
		So(err, ShouldBeNil)
		_, err = svc.Track(ctx, model.TrackRequest{Kind: "search", DeviceID: "B", Payload: model.Payload{"q": "shoes"}})
		So(err, ShouldBeNil)
		clock = day1.Add(24 * time.Hour)
		_, err = svc.Track(ctx, model.TrackRequest{Kind: "page_view", DeviceID: "A", Payload: model.Payload{"path": "/"}})
		So(err, ShouldBeNil)

		Convey("When computing stats", func() {
			summary, err := svc.Stats(ctx)

			Convey("Then the summary should reflect every stored event", func() {
				So(err, ShouldBeNil)
				So(summary.UniqueDevices, ShouldEqual, 2)
				So(summary.TotalEvents, ShouldEqual, 3)
				So(summary.TotalSearches, ShouldEqual, 2)
				So(len(summary.Daily), ShouldEqual, 2)
				So(summary.Daily[0].Date, ShouldEqual, "2024-01-01")
				So(summary.Daily[0].Searches, ShouldEqual, 2)
				So(summary.TopSearches[0].Query, ShouldEqual, "shoes")
				So(summary.TopSearches[0].Count, ShouldEqual, 2)
				So(summary.LatestEvents[0].Kind, ShouldEqual, "page_view")
			})
		})

		Convey("When computing stats twice without writes", func() {
			first, err1 := svc.Stats(ctx)
			second, err2 := svc.Stats(ctx)

			Convey("Then both results should be identical", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(second, ShouldResemble, first)
			})
		})
	})
}

func TestService_ExportAndClear(t *testing.T) {
	Convey("Given a service", t, func() {
		ctx := context.Background()
		svc := newService(t, time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC))

		Convey("Export on an empty store should report ErrEmpty", func() {
			_, err := svc.Export(ctx)
			So(err, ShouldEqual, repository.ErrEmpty)
		})

		Convey("When two events are tracked", func() {
			for i := 0; i < 2; i++ {
				_, err := svc.Track(ctx, model.TrackRequest{Kind: "page_view", DeviceID: fmt.Sprintf("d%d", i)})
				So(err, ShouldBeNil)
			}

			Convey("Export should return both lines", func() {
				raw, err := svc.Export(ctx)
				So(err, ShouldBeNil)
				So(string(raw), ShouldContainSubstring, `"deviceId":"d0"`)
				So(string(raw), ShouldContainSubstring, `"deviceId":"d1"`)
			})

			Convey("Clear should make later stats report zero", func() {
				So(svc.Clear(ctx), ShouldBeNil)
				summary, err := svc.Stats(ctx)
				So(err, ShouldBeNil)
				So(summary.TotalEvents, ShouldEqual, 0)
				So(summary.UniqueDevices, ShouldEqual, 0)
				So(summary.Daily, ShouldBeEmpty)
			})
		})
	})
}

func TestService_Concurrency(t *testing.T) {
	Convey("Given many concurrent trackers", t, func() {
		ctx := context.Background()
		svc := newService(t, time.Now())

		const goroutines, perGoroutine = 10, 50
		var wg sync.WaitGroup
		for g := 0; g < goroutines; g++ {
			wg.Add(1)
			go func(g int) {
				defer wg.Done()
				for i := 0; i < perGoroutine; i++ {
					_, _ = svc.Track(ctx, model.TrackRequest{
						Kind:     "search",
						DeviceID: fmt.Sprintf("dev-%d", g),
						Payload:  model.Payload{"q": "concurrent"},
					})
				}
			}(g)
		}
		wg.Wait()

		Convey("Then every event should be counted", func() {
			summary, err := svc.Stats(ctx)
			So(err, ShouldBeNil)
			So(summary.TotalEvents, ShouldEqual, goroutines*perGoroutine)
			So(summary.UniqueDevices, ShouldEqual, goroutines)
			So(summary.TopSearches[0].Count, ShouldEqual, goroutines*perGoroutine)
		})
	})
}
