package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"blackmarket/internal/logger"
)

//go:embed assets/visuals.yaml
var defaultVisuals []byte

// IconRule assigns Icon to weapon names containing any of Keywords.
type IconRule struct {
	Keywords []string `yaml:"keywords"`
	Icon     string   `yaml:"icon"`
}

// Visuals is the immutable item/category presentation table. Lookups are
// case-insensitive on item names and category ids.
type Visuals struct {
	DefaultIcon       string            `yaml:"default_icon"`
	WeaponCategory    string            `yaml:"weapon_category"`
	WeaponDefaultIcon string            `yaml:"weapon_default_icon"`
	WeaponRules       []IconRule        `yaml:"weapon_rules"`
	CategoryIcons     map[string]string `yaml:"category_icons"`
	Images            map[string]string `yaml:"images"`
}

// Visual is what the renderer needs to draw an item card. Fallback is shown
// when Image fails to load.
type Visual struct {
	Image    string `json:"image,omitempty"`
	Icon     string `json:"icon"`
	Fallback string `json:"fallback"`
}

// DefaultVisuals parses the table compiled into the binary.
func DefaultVisuals() (*Visuals, error) {
	return ParseVisuals(defaultVisuals)
}

// LoadVisuals reads a table from path, or the embedded one when path is empty.
func LoadVisuals(path string) (*Visuals, error) {
	if path == "" {
		return DefaultVisuals()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read visuals %q: %w", path, err)
	}
	v, err := ParseVisuals(data)
	if err != nil {
		return nil, fmt.Errorf("visuals %q: %w", path, err)
	}
	logger.LogInfo("Loaded visuals from %s: %d images, %d category icons", path, len(v.Images), len(v.CategoryIcons))
	return v, nil
}

// ParseVisuals decodes a YAML table and lower-cases its keys.
func ParseVisuals(data []byte) (*Visuals, error) {
	var v Visuals
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parse visuals: %w", err)
	}
	if v.DefaultIcon == "" {
		v.DefaultIcon = "fas fa-box"
	}
	if v.WeaponDefaultIcon == "" {
		v.WeaponDefaultIcon = v.DefaultIcon
	}
	v.WeaponCategory = strings.ToLower(v.WeaponCategory)
	v.CategoryIcons = lowerKeys(v.CategoryIcons)
	v.Images = lowerKeys(v.Images)
	return &v, nil
}

func lowerKeys(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, val := range in {
		out[strings.ToLower(k)] = val
	}
	return out
}

// Resolve picks the image and icon for an item shown under categoryID.
func (v *Visuals) Resolve(categoryID, itemName string) Visual {
	if v == nil {
		return Visual{Icon: "fas fa-box", Fallback: "fas fa-box"}
	}
	return Visual{
		Image:    v.Images[strings.ToLower(itemName)],
		Icon:     v.categoryIcon(categoryID, itemName),
		Fallback: v.DefaultIcon,
	}
}

func (v *Visuals) categoryIcon(categoryID, itemName string) string {
	cat := strings.ToLower(categoryID)
	if v.WeaponCategory != "" && cat == v.WeaponCategory {
		return v.weaponIcon(itemName)
	}
	if icon, ok := v.CategoryIcons[cat]; ok {
		return icon
	}
	return v.DefaultIcon
}

// First matching rule wins.
func (v *Visuals) weaponIcon(itemName string) string {
	name := strings.ToLower(itemName)
	for _, rule := range v.WeaponRules {
		for _, kw := range rule.Keywords {
			if strings.Contains(name, strings.ToLower(kw)) {
				return rule.Icon
			}
		}
	}
	return v.WeaponDefaultIcon
}
