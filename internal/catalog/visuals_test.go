package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultVisuals(t *testing.T) {
	v, err := DefaultVisuals()
	require.NoError(t, err)

	pistol := v.Resolve("weapons", "WEAPON_PISTOL")
	assert.Equal(t, "nui://ox_inventory/web/images/weapon_pistol.png", pistol.Image)
	assert.Equal(t, "fas fa-gun", pistol.Icon)
	assert.Equal(t, "fas fa-box", pistol.Fallback)

	assert.Equal(t, "fas fa-rifle", v.Resolve("weapons", "weapon_carbinerifle").Icon)
	assert.Equal(t, "fas fa-shotgun", v.Resolve("weapons", "weapon_pumpshotgun").Icon)
	assert.Equal(t, "fas fa-crosshairs", v.Resolve("Weapons", "weapon_heavysniper").Icon)
	assert.Equal(t, "fas fa-knife", v.Resolve("weapons", "weapon_knife").Icon)
	assert.Equal(t, "fas fa-bomb", v.Resolve("weapons", "weapon_grenade").Icon)
	assert.Equal(t, "fas fa-gun", v.Resolve("weapons", "weapon_unknown").Icon)

	assert.Equal(t, "fas fa-pills", v.Resolve("drugs", "weed").Icon)
	assert.Equal(t, "fas fa-box", v.Resolve("contraband", "mystery").Icon)
	assert.Empty(t, v.Resolve("contraband", "mystery").Image)
}

func TestLoadVisualsOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "visuals.yaml")
	data := []byte(`
category_icons:
  Tools: fas fa-hammer
images:
  LockPick: nui://custom/lockpick.png
`)
	require.NoError(t, os.WriteFile(path, data, 0644))

	v, err := LoadVisuals(path)
	require.NoError(t, err)

	got := v.Resolve("tools", "lockpick")
	assert.Equal(t, Visual{Image: "nui://custom/lockpick.png", Icon: "fas fa-hammer", Fallback: "fas fa-box"}, got)

	_, err = LoadVisuals(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseVisualsRejectsGarbage(t *testing.T) {
	_, err := ParseVisuals([]byte("images: [unclosed"))
	assert.Error(t, err)
}

func TestNilVisuals(t *testing.T) {
	var v *Visuals
	assert.Equal(t, "fas fa-box", v.Resolve("weapons", "weapon_pistol").Icon)
}
