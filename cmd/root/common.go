package root

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/countly/countly-sdk-go/pkg/device"
	"github.com/countly/countly-sdk-go/pkg/deviceid"
	"github.com/countly/countly-sdk-go/pkg/paths"
	"github.com/countly/countly-sdk-go/pkg/storage"
	"github.com/countly/countly-sdk-go/pkg/telemetry"
	"github.com/countly/countly-sdk-go/pkg/userconfig"
)

func (f *rootFlags) configFile() string {
	return cmp.Or(f.configPath, userconfig.Path())
}

// loadConfig reads the config file, then applies the environment and the
// command line flags, in that order of precedence.
func (f *rootFlags) loadConfig() (*userconfig.Config, error) {
	config, err := userconfig.LoadFile(f.configFile())
	if err != nil {
		return nil, err
	}
	config.ApplyEnv(os.Getenv)

	if f.backend != "" {
		if err := config.Set("storage.backend", f.backend); err != nil {
			return nil, err
		}
	}
	if f.dataDir != "" {
		if err := config.Set("storage.dir", f.dataDir); err != nil {
			return nil, err
		}
	}
	return config, nil
}

// session bundles a configured client with what is needed to start it.
type session struct {
	config *userconfig.Config
	client *telemetry.Client
	close  func()
}

func (s *session) begin(ctx context.Context) error {
	return s.client.BeginSession(ctx, s.config.ServerURL, s.config.AppKey, s.config.AppVersion)
}

func (f *rootFlags) openSession(ctx context.Context) (*session, error) {
	config, err := f.loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	backend, closeBackend, err := openBackend(config.GetStorage())
	if err != nil {
		return nil, err
	}

	method, err := deviceid.ParseMethod(config.GetDeviceID().PreferredMethod)
	if err != nil {
		closeBackend()
		return nil, err
	}

	client := telemetry.New(
		telemetry.WithLogger(slog.Default()),
		telemetry.WithBackend(backend),
		telemetry.WithDeviceInfo(device.NewHost(config.AppVersion)),
		telemetry.WithEnabled(!config.Disabled),
		telemetry.WithUpdateInterval(config.Interval()),
		telemetry.WithMaxQueueSize(config.QueueSize()),
		telemetry.WithPreferredDeviceIDMethod(method),
	)

	if id := config.GetDeviceID().Value; id != "" && id != client.DeviceID(ctx) {
		if err := client.SetDeviceID(ctx, id); err != nil {
			closeBackend()
			return nil, err
		}
	}

	return &session{
		config: config,
		client: client,
		close: func() {
			if err := client.Close(context.WithoutCancel(ctx)); err != nil {
				slog.Warn("Failed to close client", "error", err)
			}
			closeBackend()
		},
	}, nil
}

func openBackend(s *userconfig.Storage) (storage.Backend, func(), error) {
	switch s.Backend {
	case userconfig.BackendMemory:
		return storage.NewMemoryBackend(), func() {}, nil
	case userconfig.BackendSQLite:
		backend, err := storage.OpenSQLite(filepath.Join(cmp.Or(s.Dir, paths.GetDataDir()), "countly.db"))
		if err != nil {
			return nil, nil, err
		}
		return backend, func() {
			if err := backend.Close(); err != nil {
				slog.Warn("Failed to close database", "error", err)
			}
		}, nil
	default:
		return storage.NewFileBackend(cmp.Or(s.Dir, paths.GetStorageDir())), func() {}, nil
	}
}

func printQueueLengths(s *session, out io.Writer) {
	events, sessions, exceptions := s.client.QueueLengths()
	fmt.Fprintf(out, "%s %d events, %d session records, %d exceptions\n", bold("Queued:"), events, sessions, exceptions)
}
