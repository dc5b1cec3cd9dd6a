package cache

import "github.com/arthur-debert/kegs/pkg/types"

const formulaPrefix = "formula/"

// Load returns the entry for key decoded as T
func Load[T any](c *Cache, key string) (T, bool, error) {
	var v T
	ok, err := c.Get(key, &v)
	return v, ok, err
}

// GetFormula returns the cached formula record for name
func GetFormula(c *Cache, name string) (*types.Formula, bool, error) {
	f, ok, err := Load[types.Formula](c, formulaPrefix+name)
	if !ok || err != nil {
		return nil, ok, err
	}
	return &f, true, nil
}

// SetFormula caches f under its name
func SetFormula(c *Cache, f *types.Formula) error {
	return c.Set(formulaPrefix+f.Name, f)
}
