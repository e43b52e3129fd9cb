package cr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexcr-io/lexcr/internal/lexapi"
	"github.com/lexcr-io/lexcr/internal/lexapi/lexapitest"
)

func TestProvisioner_CreateAlias(t *testing.T) {
	fake := lexapitest.New()
	p := testProvisioner(fake)
	ctx := context.Background()

	created, err := p.CreateBot(ctx, orderBotProps())
	require.NoError(t, err)

	res, err := p.CreateAlias(ctx, map[string]any{
		"botId":        created.PhysicalID,
		"botAliasName": "prod",
		"botVersion":   "1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.PhysicalID)
	assert.Equal(t, res.PhysicalID, res.Data["botAliasId"])

	alias := fake.Aliases[res.PhysicalID]
	require.NotNil(t, alias)
	assert.Equal(t, "prod", alias.Attrs["botAliasName"])
	// The bot id travels as an argument, not a payload attribute.
	assert.NotContains(t, alias.Attrs, "botId")
}

func TestProvisioner_TestBotAliasIsPinned(t *testing.T) {
	fake := lexapitest.New()
	p := testProvisioner(fake)
	ctx := context.Background()

	created, err := p.CreateBot(ctx, orderBotProps())
	require.NoError(t, err)

	res, err := p.CreateAlias(ctx, map[string]any{
		"botId":        created.PhysicalID,
		"botAliasName": "TestBotAlias",
		"botVersion":   "3",
	})
	require.NoError(t, err)

	// The built-in alias keeps its fixed id and always tracks DRAFT.
	assert.Equal(t, TestBotAliasID, res.PhysicalID)
	assert.Zero(t, fake.CallCount("CreateAlias"))
	alias := fake.Aliases[TestBotAliasID]
	require.NotNil(t, alias)
	assert.Equal(t, lexapi.DraftVersion, alias.Attrs["botVersion"])
}

func TestProvisioner_UpdateAlias(t *testing.T) {
	fake := lexapitest.New()
	p := testProvisioner(fake)
	ctx := context.Background()

	created, err := p.CreateBot(ctx, orderBotProps())
	require.NoError(t, err)
	alias, err := p.CreateAlias(ctx, map[string]any{
		"botId":        created.PhysicalID,
		"botAliasName": "prod",
		"botVersion":   "1",
	})
	require.NoError(t, err)

	res, err := p.UpdateAlias(ctx, alias.PhysicalID, map[string]any{
		"botId":        created.PhysicalID,
		"botAliasName": "prod",
		"botVersion":   "2",
	})
	require.NoError(t, err)
	assert.Equal(t, alias.PhysicalID, res.PhysicalID)
	assert.Equal(t, "2", fake.Aliases[alias.PhysicalID].Attrs["botVersion"])
}

func TestProvisioner_DeleteAlias(t *testing.T) {
	fake := lexapitest.New()
	p := testProvisioner(fake)
	ctx := context.Background()

	created, err := p.CreateBot(ctx, orderBotProps())
	require.NoError(t, err)
	alias, err := p.CreateAlias(ctx, map[string]any{
		"botId":        created.PhysicalID,
		"botAliasName": "prod",
		"botVersion":   "1",
	})
	require.NoError(t, err)

	statusPolls := fake.CallCount("AliasStatus")
	_, err = p.DeleteAlias(ctx, alias.PhysicalID, map[string]any{"botId": created.PhysicalID})
	require.NoError(t, err)
	assert.NotContains(t, fake.Aliases, alias.PhysicalID)
	// Success is only reported once the alias is confirmed gone.
	assert.Greater(t, fake.CallCount("AliasStatus"), statusPolls)

	// Deleting again is a no-op.
	_, err = p.DeleteAlias(ctx, alias.PhysicalID, map[string]any{"botId": created.PhysicalID})
	assert.NoError(t, err)
}

func TestProvisioner_DeleteTestBotAlias_Retained(t *testing.T) {
	fake := lexapitest.New()
	p := testProvisioner(fake)

	_, err := p.DeleteAlias(context.Background(), TestBotAliasID, map[string]any{"botId": "BOT1000001"})
	require.NoError(t, err)
	assert.Zero(t, fake.CallCount("DeleteAlias"))
}
