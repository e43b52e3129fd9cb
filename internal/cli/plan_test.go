package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDefinition = `botName: OrderFlowers
CR_botLocales:
  - localeId: en_US
    CR_intents:
      - intentName: OrderIntent
`

func writeDefinition(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleDefinition), 0o644))
	return path
}

func TestLoadDefinition(t *testing.T) {
	tree, err := loadDefinition(writeDefinition(t))
	require.NoError(t, err)
	assert.Equal(t, "OrderFlowers", tree.Root.Name)
}

func TestLoadDefinition_MissingFile(t *testing.T) {
	_, err := loadDefinition(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestRunPlan_Destroy(t *testing.T) {
	planDestroy = true
	defer func() { planDestroy = false }()

	err := runPlan(planCmd, []string{writeDefinition(t)})
	assert.NoError(t, err)
}
