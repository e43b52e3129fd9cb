package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexcr-io/lexcr/internal/lexapi/lexapitest"
	"github.com/lexcr-io/lexcr/internal/resource"
)

func testExecutor(fake *lexapitest.Fake) *Executor {
	e := NewExecutor(fake)
	e.PollInterval = time.Millisecond
	e.Retry = fastPolicy()
	return e
}

func callOrder(t *testing.T, fake *lexapitest.Fake, earlier, later string) {
	t.Helper()
	ei, li := -1, -1
	for i, c := range fake.Calls {
		if ei < 0 && len(c) >= len(earlier) && c[:len(earlier)] == earlier {
			ei = i
		}
		if len(c) >= len(later) && c[:len(later)] == later {
			li = i
		}
	}
	require.GreaterOrEqual(t, ei, 0, "no call %s", earlier)
	require.GreaterOrEqual(t, li, 0, "no call %s", later)
	assert.Less(t, ei, li, "%s should precede %s", earlier, later)
}

func TestExecutor_CreateTree(t *testing.T) {
	fake := lexapitest.New()
	exec := testExecutor(fake)

	desired := orderBotTree(t)
	plan := Diff(desired, nil)

	res, err := exec.Execute(context.Background(), plan, desired, "")
	require.NoError(t, err)
	require.Regexp(t, `^[0-9A-Za-z]{10}$`, res.BotID)

	// Every operation applied.
	for addr, nr := range res.Nodes {
		assert.Equal(t, StatusApplied, nr.Status, addr)
	}

	// The slot type create lands before the slot create that references it.
	callOrder(t, fake, "CreateSlotType", "CreateSlot "+res.BotID)
	callOrder(t, fake, "CreateIntent", "CreateSlot "+res.BotID)

	// The assigned slot type id reached the slot.
	bot := fake.Bots[res.BotID]
	require.NotNil(t, bot)
	loc := bot.Locales["en_US"]
	require.NotNil(t, loc)
	require.Len(t, loc.SlotTypes, 1)
	for _, intent := range loc.Intents {
		for _, slot := range intent.Slots {
			_, ok := loc.SlotTypes[slot.TypeID]
			assert.True(t, ok, "slot bound to unknown type %q", slot.TypeID)
		}
	}

	assert.Equal(t, []string{"en_US"}, res.BuildLocales)
}

func TestExecutor_SlotPrioritiesFollowDeclarationOrder(t *testing.T) {
	fake := lexapitest.New()
	exec := testExecutor(fake)

	desired, err := resource.Normalize(map[string]any{
		"botName": "B",
		"CR_botLocales": []any{
			map[string]any{
				"localeId": "en_US",
				"CR_intents": []any{
					map[string]any{
						"intentName": "I",
						"CR_slots": []any{
							map[string]any{"slotName": "First", "slotTypeId": "AMAZON.Number"},
							map[string]any{"slotName": "Second", "slotTypeId": "AMAZON.Number"},
						},
					},
				},
			},
		},
	})
	require.NoError(t, err)

	res, err := exec.Execute(context.Background(), Diff(desired, nil), desired, "")
	require.NoError(t, err)

	loc := fake.Bots[res.BotID].Locales["en_US"]
	require.Len(t, loc.Intents, 1)
	for _, intent := range loc.Intents {
		require.Len(t, intent.Priorities, 2)
		assert.Equal(t, 1, intent.Priorities[0].Priority)
		assert.Equal(t, 2, intent.Priorities[1].Priority)
		assert.Equal(t, "First", intent.Slots[intent.Priorities[0].SlotID].Name)
		assert.Equal(t, "Second", intent.Slots[intent.Priorities[1].SlotID].Name)
	}
}

func TestExecutor_ReferenceFailureBlocksOnlyItsBranch(t *testing.T) {
	fake := lexapitest.New()
	exec := testExecutor(fake)

	desired, err := resource.Normalize(map[string]any{
		"botName": "B",
		"CR_botLocales": []any{
			map[string]any{
				"localeId": "en_US",
				"CR_intents": []any{
					map[string]any{
						"intentName": "Broken",
						"CR_slots": []any{
							map[string]any{"slotName": "S", "CR_slotTypeName": "NoSuchType"},
						},
					},
				},
			},
			map[string]any{
				"localeId": "de_DE",
				"CR_intents": []any{
					map[string]any{"intentName": "Fine"},
				},
			},
		},
	})
	require.NoError(t, err)

	res, err := exec.Execute(context.Background(), Diff(desired, nil), desired, "")
	require.Error(t, err)

	slot := res.Nodes["bot.B/locale.en_US/intent.Broken/slot.S"]
	require.NotNil(t, slot)
	assert.Equal(t, StatusFailed, slot.Status)
	var nf *ReferenceNotFoundError
	assert.ErrorAs(t, slot.Err, &nf)

	// The unrelated locale still reconciled fully.
	fine := res.Nodes["bot.B/locale.de_DE/intent.Fine"]
	require.NotNil(t, fine)
	assert.Equal(t, StatusApplied, fine.Status)
}

func TestExecutor_UpdateExistingTree(t *testing.T) {
	fake := lexapitest.New()
	ctx := context.Background()

	botID, err := fake.CreateBot(ctx, map[string]any{"botName": "B"})
	require.NoError(t, err)
	require.NoError(t, fake.CreateLocale(ctx, botID, map[string]any{"localeId": "en_US"}))
	_, err = fake.CreateIntent(ctx, botID, "en_US", map[string]any{"intentName": "I"})
	require.NoError(t, err)

	live, err := resource.Normalize(map[string]any{
		"botName": "B",
		"CR_botLocales": []any{
			map[string]any{"localeId": "en_US", "CR_intents": []any{map[string]any{"intentName": "I"}}},
		},
	})
	require.NoError(t, err)
	desired, err := resource.Normalize(map[string]any{
		"botName": "B",
		"CR_botLocales": []any{
			map[string]any{"localeId": "en_US", "CR_intents": []any{
				map[string]any{"intentName": "I", "description": "now with words"},
			}},
		},
	})
	require.NoError(t, err)

	plan := Diff(desired, live)
	require.Len(t, plan.Ops, 1)

	// Snapshot after seeding so only calls made by the executor count.
	createBots := fake.CallCount("CreateBot")

	exec := testExecutor(fake)
	res, err := exec.Execute(ctx, plan, desired, botID)
	require.NoError(t, err)

	assert.Equal(t, botID, res.BotID)
	assert.Equal(t, 1, fake.CallCount("UpdateIntent"))
	assert.Equal(t, createBots, fake.CallCount("CreateBot"))
	assert.Equal(t, []string{"en_US"}, res.BuildLocales)
}

func TestExecutor_FallbackIntentIsPinned(t *testing.T) {
	fake := lexapitest.New()
	exec := testExecutor(fake)

	desired, err := resource.Normalize(map[string]any{
		"botName": "B",
		"CR_botLocales": []any{
			map[string]any{
				"localeId": "en_US",
				"CR_intents": []any{
					map[string]any{"intentName": "FallbackIntent", "description": "custom fallback"},
				},
			},
		},
	})
	require.NoError(t, err)

	res, err := exec.Execute(context.Background(), Diff(desired, nil), desired, "")
	require.NoError(t, err)

	// Declared fallback is proxied as an update of the fixed id, not a create.
	assert.Zero(t, fake.CallCount("CreateIntent"))
	loc := fake.Bots[res.BotID].Locales["en_US"]
	require.NotNil(t, loc.Intents[FallbackIntentID])
	assert.Equal(t, "AMAZON.FallbackIntent", loc.Intents[FallbackIntentID].Attrs["parentIntentSignature"])
}

func TestExecutor_FallbackIntentDeleteIgnored(t *testing.T) {
	fake := lexapitest.New()
	ctx := context.Background()
	botID, err := fake.CreateBot(ctx, map[string]any{"botName": "B"})
	require.NoError(t, err)
	require.NoError(t, fake.CreateLocale(ctx, botID, map[string]any{"localeId": "en_US"}))

	desired, err := resource.Normalize(map[string]any{
		"botName": "B",
		"CR_botLocales": []any{
			map[string]any{"localeId": "en_US", "CR_intents": []any{map[string]any{"intentName": "Keep"}}},
		},
	})
	require.NoError(t, err)
	live, err := resource.Normalize(map[string]any{
		"botName": "B",
		"CR_botLocales": []any{
			map[string]any{"localeId": "en_US", "CR_intents": []any{
				map[string]any{"intentName": "Keep"},
				map[string]any{"intentName": "FallbackIntent"},
			}},
		},
	})
	require.NoError(t, err)

	exec := testExecutor(fake)
	_, err = exec.Execute(ctx, Diff(desired, live), desired, botID)
	require.NoError(t, err)
	assert.Zero(t, fake.CallCount("DeleteIntent"))
}
