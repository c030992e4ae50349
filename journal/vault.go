package journal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"

	"github.com/ruteri/confidential-portfolio-ledger/interfaces"
)

// VaultJournal persists events in a HashiCorp Vault KV v2 mount. Suitable for
// deployments where the audit trail must live behind Vault's access policies.
type VaultJournal struct {
	client      *api.Client
	mountPath   string
	dataPath    string
	log         *slog.Logger
	locationURI string
}

// NewVaultJournal creates a Vault journal writing under
// {mountPath}/data/{dataPath}/records/... Token auth is taken from the
// standard VAULT_TOKEN environment handling of the API client.
func NewVaultJournal(address, mountPath, dataPath string, log *slog.Logger) (*VaultJournal, error) {
	config := api.DefaultConfig()
	config.Address = address

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}

	mountPath = strings.TrimSuffix(mountPath, "/")
	dataPath = strings.Trim(dataPath, "/")

	return &VaultJournal{
		client:      client,
		mountPath:   mountPath,
		dataPath:    dataPath,
		log:         log,
		locationURI: fmt.Sprintf("vault://%s/%s/%s", address, mountPath, dataPath),
	}, nil
}

func (j *VaultJournal) keyPath(op string, id interfaces.RecordID, key string) string {
	return fmt.Sprintf("%s/%s/%s/%s/%s", j.mountPath, op, j.dataPath, recordPrefix(id), key)
}

// Append writes the event as a KV v2 secret.
func (j *VaultJournal) Append(ctx context.Context, event interfaces.Event) error {
	data, err := encodeEvent(event)
	if err != nil {
		return err
	}

	path := j.keyPath("data", event.RecordID, eventKey(event))
	secretData := map[string]interface{}{
		"data": map[string]interface{}{
			"event": string(data),
		},
	}

	if _, err := j.client.Logical().WriteWithContext(ctx, path, secretData); err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	j.log.Debug("Journaled event to Vault", slog.String("path", path))
	return nil
}

// Events replays a record's events by listing the KV metadata keys.
func (j *VaultJournal) Events(ctx context.Context, id interfaces.RecordID) ([]interfaces.Event, error) {
	listPath := j.keyPath("metadata", id, "")
	secret, err := j.client.Logical().ListWithContext(ctx, strings.TrimSuffix(listPath, "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("%w: record %d", interfaces.ErrEventNotFound, id)
	}

	rawKeys, ok := secret.Data["keys"].([]interface{})
	if !ok || len(rawKeys) == 0 {
		return nil, fmt.Errorf("%w: record %d", interfaces.ErrEventNotFound, id)
	}

	keys := make([]string, 0, len(rawKeys))
	for _, raw := range rawKeys {
		if key, ok := raw.(string); ok {
			keys = append(keys, key)
		}
	}
	sortEventsByKey(keys)

	events := make([]interfaces.Event, 0, len(keys))
	for _, key := range keys {
		secret, err := j.client.Logical().ReadWithContext(ctx, j.keyPath("data", id, key))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
		}
		if secret == nil || secret.Data == nil {
			continue
		}

		inner, ok := secret.Data["data"].(map[string]interface{})
		if !ok {
			continue
		}
		raw, ok := inner["event"].(string)
		if !ok {
			continue
		}

		event, err := decodeEvent([]byte(raw))
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	if len(events) == 0 {
		return nil, fmt.Errorf("%w: record %d", interfaces.ErrEventNotFound, id)
	}
	return events, nil
}

// Available checks that Vault is initialized and unsealed.
func (j *VaultJournal) Available(ctx context.Context) bool {
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	health, err := j.client.Sys().HealthWithContext(healthCtx)
	if err != nil {
		j.log.Debug("Vault health check failed", "err", err)
		return false
	}
	if !health.Initialized || health.Sealed {
		j.log.Debug("Vault is not available",
			slog.Bool("initialized", health.Initialized),
			slog.Bool("sealed", health.Sealed))
		return false
	}
	return true
}

// Name returns a unique identifier for this backend.
func (j *VaultJournal) Name() string {
	return fmt.Sprintf("vault-%s-%s", j.mountPath, j.dataPath)
}

// LocationURI returns the URI this backend was created from.
func (j *VaultJournal) LocationURI() string {
	return j.locationURI
}
