package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func botProps() map[string]any {
	return map[string]any{
		"ServiceToken":            "arn:aws:lambda:us-east-1:123456789012:function:lexcr",
		"botName":                 "OrderFlowers",
		"idleSessionTTLInSeconds": "300",
		"CR_botLocales": []any{
			map[string]any{
				"localeId": "en_US",
				"CR_slotTypes": []any{
					map[string]any{
						"slotTypeName": "FlowerTypes",
						"slotTypeValues": []any{
							map[string]any{"sampleValue": map[string]any{"value": "roses"}},
						},
					},
				},
				"CR_intents": []any{
					map[string]any{
						"intentName": "OrderIntent",
						"CR_slots": []any{
							map[string]any{
								"slotName":         "FlowerType",
								"CR_slotTypeName":  "FlowerTypes",
								"valueElicitation": map[string]any{"slotConstraint": "Required"},
							},
							map[string]any{
								"slotName":   "PickupDate",
								"slotTypeId": "AMAZON.Date",
							},
						},
					},
				},
			},
		},
	}
}

func TestNormalize(t *testing.T) {
	tree, err := Normalize(botProps())
	require.NoError(t, err)

	root := tree.Root
	assert.Equal(t, KindBot, root.Kind)
	assert.Equal(t, "OrderFlowers", root.Name)

	// Marker and envelope keys never reach the pass-through attributes.
	assert.NotContains(t, root.Attributes, "ServiceToken")
	assert.NotContains(t, root.Attributes, "CR_botLocales")
	assert.Equal(t, "300", root.Attributes["idleSessionTTLInSeconds"])

	locales := root.ChildrenOfKind(KindLocale)
	require.Len(t, locales, 1)
	loc := locales[0]
	assert.Equal(t, "en_US", loc.Name)
	assert.Equal(t, root, loc.Parent())

	require.Len(t, loc.ChildrenOfKind(KindSlotType), 1)
	intents := loc.ChildrenOfKind(KindIntent)
	require.Len(t, intents, 1)

	slots := intents[0].ChildrenOfKind(KindSlot)
	require.Len(t, slots, 2)

	// Declaration order is preserved, it drives slot priority.
	assert.Equal(t, "FlowerType", slots[0].Name)
	assert.Equal(t, "PickupDate", slots[1].Name)

	assert.Equal(t, "FlowerTypes", slots[0].TypeRef)
	assert.NotContains(t, slots[0].Attributes, "CR_slotTypeName")
	assert.Equal(t, "", slots[1].TypeRef)
	assert.Equal(t, "AMAZON.Date", slots[1].Attributes["slotTypeId"])

	assert.Equal(t, "bot.OrderFlowers/locale.en_US/intent.OrderIntent/slot.FlowerType", slots[0].Address())
}

func TestNormalize_Validation(t *testing.T) {
	// 1. Bot without locales
	_, err := Normalize(map[string]any{"botName": "B"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Reason, "at least one locale")

	// 2. Locale without intents
	_, err = Normalize(map[string]any{
		"botName": "B",
		"CR_botLocales": []any{
			map[string]any{"localeId": "en_US"},
		},
	})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Reason, "at least one intent")

	// 3. Duplicate sibling names
	_, err = Normalize(map[string]any{
		"botName": "B",
		"CR_botLocales": []any{
			map[string]any{
				"localeId": "en_US",
				"CR_intents": []any{
					map[string]any{"intentName": "A"},
					map[string]any{"intentName": "A"},
				},
			},
		},
	})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Reason, "duplicate")

	// 4. Missing name key
	_, err = Normalize(map[string]any{
		"botName": "B",
		"CR_botLocales": []any{
			map[string]any{
				"localeId": "en_US",
				"CR_intents": []any{
					map[string]any{"description": "nameless"},
				},
			},
		},
	})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Reason, "intentName")

	// 5. Slot without a type reference
	_, err = Normalize(map[string]any{
		"botName": "B",
		"CR_botLocales": []any{
			map[string]any{
				"localeId": "en_US",
				"CR_intents": []any{
					map[string]any{
						"intentName": "I",
						"CR_slots": []any{
							map[string]any{"slotName": "S"},
						},
					},
				},
			},
		},
	})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Reason, "CR_slotTypeName")
}

func TestNormalize_YAMLStyleMaps(t *testing.T) {
	// Mappings decoded as map[any]any still normalize.
	props := map[string]any{
		"botName": "B",
		"CR_botLocales": []any{
			map[any]any{
				"localeId": "en_US",
				"CR_intents": []any{
					map[any]any{"intentName": "I"},
				},
			},
		},
	}
	tree, err := Normalize(props)
	require.NoError(t, err)
	require.Len(t, tree.Root.ChildrenOfKind(KindLocale), 1)
}

func TestTreeFind(t *testing.T) {
	tree, err := Normalize(botProps())
	require.NoError(t, err)

	n := tree.Find("bot.OrderFlowers/locale.en_US/slot_type.FlowerTypes")
	require.NotNil(t, n)
	assert.Equal(t, KindSlotType, n.Kind)

	assert.Nil(t, tree.Find("bot.OrderFlowers/locale.de_DE"))
}
