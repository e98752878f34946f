package config_test

import (
	"context"
	"testing"

	"github.com/okian/facet/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.SampleIntervalMS, convey.ShouldEqual, 100)
			convey.So(cfg.DetectionThreshold, convey.ShouldEqual, 0.1)
			convey.So(cfg.MatchDistanceMax, convey.ShouldEqual, 0.6)
			convey.So(cfg.DescriptorLength, convey.ShouldEqual, 128)
			convey.So(cfg.DedupeSize, convey.ShouldEqual, 50_000)
			convey.So(cfg.InferenceLatencyMinMS, convey.ShouldEqual, 15)
			convey.So(cfg.InferenceLatencyMaxMS, convey.ShouldEqual, 40)
		})
	})
}
