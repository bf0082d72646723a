// Package eligibility decides whether an ERP event proceeds into the bridge.
// A rejection is a normal, logged skip rather than an error; only remote
// lookup failures escalate.
package eligibility

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/factorybridge/erp-mes-bridge/internal/codetable"
	"github.com/factorybridge/erp-mes-bridge/internal/ports"
)

const (
	// PlantSecondaryOnly is the one ERP plant served exclusively by the
	// secondary MES instance. All other plants route to the primary instance
	// and are gated by its feature flag until go-live.
	PlantSecondaryOnly = "1015"

	// PlantDualMapped is the one ERP plant that fans out to two physical
	// destinations; the MES_SYSTEM class characteristic of the material
	// decides which one.
	PlantDualMapped = "1017"

	// mesSystemCharacteristic names the classification characteristic whose
	// value identifies the target MES family.
	mesSystemCharacteristic = "MES_SYSTEM"

	// primaryMesClassValue is the characteristic value marking a dual-mapped
	// material as bound for the primary MES instance.
	primaryMesClassValue = "1017_COMPASS"
)

// PrimaryPlant reports whether the given ERP plant routes to the primary MES
// instance.
func PrimaryPlant(erpPlant string) bool {
	return erpPlant != PlantSecondaryOnly
}

// CharacteristicIDCache memoizes the internal ID of the MES_SYSTEM
// characteristic process-wide. The ID is resolved remotely at most once;
// concurrent first lookups are collapsed, and a failed lookup is retried by
// the next caller rather than cached.
type CharacteristicIDCache struct {
	group singleflight.Group

	mu sync.RWMutex
	id string
}

// Resolve returns the cached internal ID, fetching it through erp on first
// use.
func (c *CharacteristicIDCache) Resolve(ctx context.Context, erp ports.ErpClient) (string, error) {
	c.mu.RLock()
	id := c.id
	c.mu.RUnlock()
	if id != "" {
		return id, nil
	}

	v, err, _ := c.group.Do(mesSystemCharacteristic, func() (any, error) {
		id, err := erp.CharacteristicInternalID(ctx, mesSystemCharacteristic)
		if err != nil {
			return "", err
		}
		c.mu.Lock()
		c.id = id
		c.mu.Unlock()
		return id, nil
	})
	if err != nil {
		return "", fmt.Errorf("resolve %s characteristic: %w", mesSystemCharacteristic, err)
	}
	return v.(string), nil
}

// Filter gates ERP events on plant eligibility.
type Filter struct {
	plants         *codetable.Table
	primaryEnabled bool
	charcIDs       *CharacteristicIDCache
	logger         *slog.Logger
}

// NewFilter constructs a Filter over the plant code table. charcIDs must be
// shared across all filters so the characteristic ID is resolved once per
// process.
func NewFilter(plants *codetable.Table, primaryEnabled bool, charcIDs *CharacteristicIDCache, logger *slog.Logger) (*Filter, error) {
	if plants == nil {
		return nil, fmt.Errorf("plant table must not be nil")
	}
	if charcIDs == nil {
		return nil, fmt.Errorf("characteristic ID cache must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Filter{
		plants:         plants,
		primaryEnabled: primaryEnabled,
		charcIDs:       charcIDs,
		logger:         logger,
	}, nil
}

// PlantEligible reports whether an event for the given ERP plant and material
// should be processed. Checks run in order and short-circuit:
//
//  1. the plant must have a MES mapping,
//  2. plants bound for the primary MES instance are skipped until that
//     instance is enabled,
//  3. the dual-mapped plant additionally requires the material's MES_SYSTEM
//     characteristic to name the primary MES family.
//
// A false result is a silent skip; the error is non-nil only when a remote
// classification lookup fails.
func (f *Filter) PlantEligible(ctx context.Context, erp ports.ErpClient, erpPlant, material string) (bool, error) {
	if !f.plants.HasMes(erpPlant) {
		f.logger.Info("skipping message, plant has no MES mapping", "plant", erpPlant)
		return false, nil
	}

	if PrimaryPlant(erpPlant) && !f.primaryEnabled {
		f.logger.Info("skipping message, primary MES instance is not enabled", "plant", erpPlant)
		return false, nil
	}

	if erpPlant != PlantDualMapped {
		return true, nil
	}

	// Plant 1017 maps to two physical destinations. The material's MES_SYSTEM
	// class characteristic decides whether this event is ours.
	forPrimary, err := f.hasPrimaryMesCharacteristic(ctx, erp, material)
	if err != nil {
		return false, err
	}
	if !forPrimary {
		f.logger.Info("skipping message, MES_SYSTEM characteristic routes material elsewhere",
			"plant", erpPlant, "material", material)
		return false, nil
	}
	return true, nil
}

func (f *Filter) hasPrimaryMesCharacteristic(ctx context.Context, erp ports.ErpClient, material string) (bool, error) {
	charcID, err := f.charcIDs.Resolve(ctx, erp)
	if err != nil {
		return false, err
	}
	values, err := erp.CharacteristicValues(ctx, material, charcID)
	if err != nil {
		return false, fmt.Errorf("characteristic valuations for %s: %w", material, err)
	}
	for _, v := range values {
		if v == primaryMesClassValue {
			return true, nil
		}
	}
	return false, nil
}
