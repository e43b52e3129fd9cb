package lexapi

import (
	"context"
)

// DraftVersion is the mutable working version every reconciliation pass
// operates on. Numbered versions are immutable snapshots of it.
const DraftVersion = "DRAFT"

// Lex resource status values, as reported by the describe operations.
const (
	StatusCreating            = "Creating"
	StatusAvailable           = "Available"
	StatusDeleting            = "Deleting"
	StatusVersioning          = "Versioning"
	StatusNotBuilt            = "NotBuilt"
	StatusBuilding            = "Building"
	StatusReadyExpressTesting = "ReadyExpressTesting"
	StatusBuilt               = "Built"
	StatusFailed              = "Failed"
)

// SlotPriority orders a slot within its intent. Priorities follow the slot
// declaration order in the desired state.
type SlotPriority struct {
	Priority int
	SlotID   string
}

// API is the surface of the Lex model-building service this provisioner
// consumes. All mutating operations act on the DRAFT bot version. Attribute
// maps are proxied verbatim into the corresponding request payloads.
type API interface {
	CreateBot(ctx context.Context, attrs map[string]any) (string, error)
	UpdateBot(ctx context.Context, botID string, attrs map[string]any) error
	DeleteBot(ctx context.Context, botID string) error
	BotStatus(ctx context.Context, botID string) (string, error)
	// BotIDByName returns "" with a nil error when no bot matches.
	BotIDByName(ctx context.Context, name string) (string, error)

	CreateLocale(ctx context.Context, botID string, attrs map[string]any) error
	UpdateLocale(ctx context.Context, botID, localeID string, attrs map[string]any) error
	DeleteLocale(ctx context.Context, botID, localeID string) error
	LocaleStatus(ctx context.Context, botID, localeID string) (string, error)
	ListLocaleIDs(ctx context.Context, botID string) ([]string, error)

	CreateSlotType(ctx context.Context, botID, localeID string, attrs map[string]any) (string, error)
	UpdateSlotType(ctx context.Context, botID, localeID, slotTypeID string, attrs map[string]any) error
	DeleteSlotType(ctx context.Context, botID, localeID, slotTypeID string) error
	SlotTypeIDByName(ctx context.Context, botID, localeID, name string) (string, error)

	CreateIntent(ctx context.Context, botID, localeID string, attrs map[string]any) (string, error)
	UpdateIntent(ctx context.Context, botID, localeID, intentID string, attrs map[string]any, priorities []SlotPriority) error
	DeleteIntent(ctx context.Context, botID, localeID, intentID string) error
	IntentIDByName(ctx context.Context, botID, localeID, name string) (string, error)

	CreateSlot(ctx context.Context, botID, localeID, intentID, slotTypeID string, attrs map[string]any) (string, error)
	UpdateSlot(ctx context.Context, botID, localeID, intentID, slotID, slotTypeID string, attrs map[string]any) error
	DeleteSlot(ctx context.Context, botID, localeID, intentID, slotID string) error
	SlotIDByName(ctx context.Context, botID, localeID, intentID, name string) (string, error)

	BuildLocale(ctx context.Context, botID, localeID string) error

	CreateVersion(ctx context.Context, botID, description string, localeIDs []string) (string, error)
	VersionStatus(ctx context.Context, botID, version string) (string, error)

	CreateAlias(ctx context.Context, botID string, attrs map[string]any) (string, error)
	UpdateAlias(ctx context.Context, botID, aliasID string, attrs map[string]any) error
	DeleteAlias(ctx context.Context, botID, aliasID string) error
	AliasStatus(ctx context.Context, botID, aliasID string) (string, error)
}
