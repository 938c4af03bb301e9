// Package deviceid resolves, caches and persists the per-install device
// identifier every outbound request carries.
package deviceid

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/countly/countly-sdk-go/pkg/device"
	"github.com/countly/countly-sdk-go/pkg/storage"
)

// record is what gets persisted under storage.DeviceName.
type record struct {
	ID     string `cbor:"id"`
	Method Method `cbor:"method"`
}

// Identity owns the device id of one installation. Resolution happens at
// most once per Identity; afterwards the id only changes through SetID.
type Identity struct {
	store    *storage.Store
	provider device.InfoProvider
	logger   *slog.Logger
	newUUID  func() (uuid.UUID, error)

	mu        sync.Mutex
	preferred Method
	id        string
	method    Method
	resolved  bool
}

// New returns an Identity persisting to store. provider may be nil, in
// which case only random ids can be computed.
func New(store *storage.Store, provider device.InfoProvider, logger *slog.Logger) *Identity {
	if store == nil {
		panic("deviceid: nil store")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Identity{
		store:    store,
		provider: provider,
		logger:   logger,
		newUUID:  uuid.NewRandom,
	}
}

// SetPreferredMethod selects the method tried first when a new id has to be
// computed. It has no effect once an id is resolved.
func (i *Identity) SetPreferredMethod(m Method) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.preferred = m
}

// Method returns the method of the current id, MethodNone before resolution.
func (i *Identity) Method() Method {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.method
}

// ID returns the device id, resolving it on first use: the cached value,
// then the persisted one, then a freshly computed id which is persisted.
// It never fails; an empty string means no id could be produced.
func (i *Identity) ID(ctx context.Context) string {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.resolved {
		return i.id
	}

	stored, err := storage.Load[record](ctx, i.store, storage.DeviceName)
	switch {
	case err == nil && stored.ID != "":
		i.setLocked(stored.ID, stored.Method)
		i.logger.Debug("Loaded device id", "method", stored.Method)
		return i.id
	case err == nil, errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrCorrupt):
		// Nothing usable stored: compute a new id below.
	default:
		// The stored id may still be there; computing a new one now could
		// replace it. Try again on the next call.
		i.logger.Error("Failed to read device id", "error", err)
		return ""
	}

	id, method, err := i.compute()
	if err != nil {
		// Not cached: the next call computes again.
		i.logger.Error("Failed to compute device id", "error", err)
		return ""
	}
	i.setLocked(id, method)

	if err := i.store.Save(ctx, storage.DeviceName, record{ID: id, Method: method}); err != nil {
		i.logger.Warn("Failed to persist device id", "error", err)
	}
	i.logger.Debug("Computed device id", "method", method)

	return i.id
}

// SetID replaces the device id and persists it. The new id is used for all
// requests built afterwards even if persisting fails.
func (i *Identity) SetID(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("device id cannot be empty")
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	i.setLocked(id, MethodDeveloperSupplied)
	if err := i.store.Save(ctx, storage.DeviceName, record{ID: id, Method: MethodDeveloperSupplied}); err != nil {
		return fmt.Errorf("persisting device id: %w", err)
	}
	return nil
}

func (i *Identity) setLocked(id string, method Method) {
	i.id = id
	i.method = method
	i.resolved = true
}

func (i *Identity) compute() (string, Method, error) {
	var errs []error
	for _, m := range priority(i.preferred) {
		id, err := i.computeWith(m)
		if err == nil && id != "" {
			return id, m, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", m, err))
	}
	return "", MethodNone, errors.Join(errs...)
}

func (i *Identity) computeWith(m Method) (string, error) {
	switch m {
	case MethodMachineID:
		if i.provider == nil {
			return "", device.ErrUnavailable
		}
		machineID, err := i.provider.MachineID()
		if err != nil {
			return "", err
		}
		// Never send the raw machine id.
		return digest("countly.device.machine-id", machineID), nil
	case MethodFingerprint:
		if i.provider == nil {
			return "", device.ErrUnavailable
		}
		fields := []string{i.provider.OS(), i.provider.Manufacturer(), i.provider.DeviceName()}
		if strings.Join(fields, "") == "" {
			return "", device.ErrUnavailable
		}
		return digest("countly.device.fingerprint", fields...), nil
	case MethodRandom:
		id, err := i.newUUID()
		if err != nil {
			return "", err
		}
		return id.String(), nil
	default:
		return "", fmt.Errorf("method %s cannot compute ids", m)
	}
}

func digest(domain string, parts ...string) string {
	h := blake3.New()
	_, _ = h.Write([]byte(domain))
	for _, p := range parts {
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil)[:16])
}
