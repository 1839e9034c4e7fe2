package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/tracker/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.AdminPIN, convey.ShouldEqual, "bassam1234")
				convey.So(cfg.StorageBackend, convey.ShouldEqual, config.BackendJSONL)
				convey.So(cfg.DataDir, convey.ShouldEqual, "data")
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("TRACKER_ADDR", ":9090")
			_ = os.Setenv("TRACKER_ADMIN_PIN", "s3cret")
			_ = os.Setenv("TRACKER_STORAGE_BACKEND", "sqlite")
			_ = os.Setenv("TRACKER_DATA_DIR", "/var/lib/tracker")
			_ = os.Setenv("TRACKER_CORS_ORIGINS", "https://shop.example")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.AdminPIN, convey.ShouldEqual, "s3cret")
				convey.So(cfg.StorageBackend, convey.ShouldEqual, config.BackendSQLite)
				convey.So(cfg.DataDir, convey.ShouldEqual, "/var/lib/tracker")
				convey.So(cfg.AllowedOrigins(), convey.ShouldResemble, []string{"https://shop.example"})
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			tmpFile := createTempConfigFile(`
addr: ":7070"
admin_pin: "from-file"
log_level: debug
log_format: json
data_dir: /tmp/tracker-data
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("TRACKER_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.AdminPIN, convey.ShouldEqual, "from-file")
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
				convey.So(cfg.DataDir, convey.ShouldEqual, "/tmp/tracker-data")
				convey.So(cfg.StorageBackend, convey.ShouldEqual, config.BackendJSONL) // From defaults
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile(`
addr: ":7070"
admin_pin: "from-file"
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("TRACKER_CONFIG", tmpFile)
			_ = os.Setenv("TRACKER_ADMIN_PIN", "from-env")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")         // From file
				convey.So(cfg.AdminPIN, convey.ShouldEqual, "from-env") // Overridden by env
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("TRACKER_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("TRACKER_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("TRACKER_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with an unknown backend", func() {
			_ = os.Setenv("TRACKER_STORAGE_BACKEND", "mongo")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the context is already cancelled", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			cfg, err := config.Load(cancelled)

			convey.Convey("Then it should fail without loading", func() {
				convey.So(errors.Is(err, context.Canceled), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"TRACKER_CONFIG",
		"TRACKER_ADDR",
		"TRACKER_ADMIN_PIN",
		"TRACKER_LOG_LEVEL",
		"TRACKER_LOG_FORMAT",
		"TRACKER_STORAGE_BACKEND",
		"TRACKER_DATA_DIR",
		"TRACKER_CORS_ORIGINS",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "tracker-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
