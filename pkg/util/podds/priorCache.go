package podds

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Chango93/Predicciones/internal/logger"
)

// PriorCache stores blended priors keyed by PriorCacheKey.
// A key always maps to the same priors so entries are never invalidated, only added.
type PriorCache interface {
	Get(key string) (map[string]*BlendedPrior, bool, error)
	Put(key string, priors map[string]*BlendedPrior) error
}

// copyPriors returns a deep copy so cached values cannot be mutated through returned maps
func copyPriors(priors map[string]*BlendedPrior) map[string]*BlendedPrior {
	ret := make(map[string]*BlendedPrior, len(priors))
	for team, bp := range priors {
		c := *bp
		c.Seasons = append([]string(nil), bp.Seasons...)
		ret[team] = &c
	}
	return ret
}

/////////////////////////////////////////////////////////////////////////
////// In memory
/////////////////////////////////////////////////////////////////////////

// MemoryPriorCache keeps priors for the lifetime of the process
type MemoryPriorCache struct {
	mu      sync.Mutex
	entries map[string]map[string]*BlendedPrior
}

func NewMemoryPriorCache() *MemoryPriorCache {
	return &MemoryPriorCache{entries: make(map[string]map[string]*BlendedPrior)}
}

func (c *MemoryPriorCache) Get(key string) (map[string]*BlendedPrior, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	priors, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	return copyPriors(priors), true, nil
}

func (c *MemoryPriorCache) Put(key string, priors map[string]*BlendedPrior) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = copyPriors(priors)
	return nil
}

/////////////////////////////////////////////////////////////////////////
////// JSON files
/////////////////////////////////////////////////////////////////////////

// FilePriorCache writes one prior_cache_<key>.json file per key into a directory
type FilePriorCache struct {
	mu  sync.Mutex
	dir string
}

func NewFilePriorCache(dir string) *FilePriorCache {
	return &FilePriorCache{dir: dir}
}

func (c *FilePriorCache) path(key string) string {
	return filepath.Join(c.dir, fmt.Sprintf("prior_cache_%s.json", key))
}

func (c *FilePriorCache) Get(key string) (map[string]*BlendedPrior, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	priors := make(map[string]*BlendedPrior)
	if err := json.Unmarshal(data, &priors); err != nil {
		return nil, false, fmt.Errorf("corrupt prior cache %s: %w", c.path(key), err)
	}
	logger.Debug("Loaded prior cache", c.path(key))
	return priors, true, nil
}

// Put writes to a temporary file and renames it so readers never see a partial file
func (c *FilePriorCache) Put(key string, priors map[string]*BlendedPrior) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory %s: %w", c.dir, err)
	}
	data, err := json.MarshalIndent(priors, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(c.dir, "prior_cache_*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), c.path(key)); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	logger.Info("Saved prior cache", c.path(key))
	return nil
}

/////////////////////////////////////////////////////////////////////////
////// sqlite
/////////////////////////////////////////////////////////////////////////

// Compile-time check to ensure PriorRecord implements Persistable interface
var _ Persistable = (*PriorRecord)(nil)

// PriorRecord is one team's blended prior stored under a cache key
type PriorRecord struct {
	CacheKey string `json:"cacheKey" column:"cache_key" dbtype:"TEXT NOT NULL" primary:"true" index:"true"`
	Team     string `json:"team" column:"team" dbtype:"TEXT NOT NULL" primary:"true"`

	AttHome float64 `json:"attHome" column:"att_home" dbtype:"REAL DEFAULT 1.0"`
	AttAway float64 `json:"attAway" column:"att_away" dbtype:"REAL DEFAULT 1.0"`
	DefHome float64 `json:"defHome" column:"def_home" dbtype:"REAL DEFAULT 1.0"`
	DefAway float64 `json:"defAway" column:"def_away" dbtype:"REAL DEFAULT 1.0"`

	RateAttHome float64 `json:"rateAttHome" column:"rate_att_home" dbtype:"REAL DEFAULT 0.0"`
	RateAttAway float64 `json:"rateAttAway" column:"rate_att_away" dbtype:"REAL DEFAULT 0.0"`
	RateDefHome float64 `json:"rateDefHome" column:"rate_def_home" dbtype:"REAL DEFAULT 0.0"`
	RateDefAway float64 `json:"rateDefAway" column:"rate_def_away" dbtype:"REAL DEFAULT 0.0"`

	PJTotal   int     `json:"pjTotal" column:"pj_total" dbtype:"INTEGER DEFAULT 0"`
	WeightSum float64 `json:"weightSum" column:"weight_sum" dbtype:"REAL DEFAULT 0.0"`
	// comma separated season labels
	Seasons string `json:"seasons" column:"seasons" dbtype:"TEXT DEFAULT ''"`
}

func (r *PriorRecord) GetTableName() string {
	return "blended_priors"
}

func (r *PriorRecord) GetPrimaryKey() map[string]any {
	return map[string]any{
		"cache_key": r.CacheKey,
		"team":      r.Team,
	}
}

func (r *PriorRecord) SetPrimaryKey(pk map[string]any) error {
	key, ok := pk["cache_key"].(string)
	if !ok {
		return fmt.Errorf("invalid cache_key in primary key")
	}
	team, ok := pk["team"].(string)
	if !ok {
		return fmt.Errorf("invalid team in primary key")
	}
	r.CacheKey = key
	r.Team = team
	return nil
}

func (r *PriorRecord) BeforeSave() error {
	if r.CacheKey == "" || r.Team == "" {
		return fmt.Errorf("cache key and team are required")
	}
	return nil
}

func (r *PriorRecord) AfterSave() error {
	return nil
}

func (r *PriorRecord) BeforeDelete() error {
	return nil
}

func (r *PriorRecord) AfterDelete() error {
	return nil
}

// NewPriorRecord flattens a blended prior for storage
func NewPriorRecord(key string, bp *BlendedPrior) *PriorRecord {
	return &PriorRecord{
		CacheKey:    key,
		Team:        bp.Team,
		AttHome:     bp.AttHome,
		AttAway:     bp.AttAway,
		DefHome:     bp.DefHome,
		DefAway:     bp.DefAway,
		RateAttHome: bp.RateAttHome,
		RateAttAway: bp.RateAttAway,
		RateDefHome: bp.RateDefHome,
		RateDefAway: bp.RateDefAway,
		PJTotal:     bp.PJTotal,
		WeightSum:   bp.WeightSum,
		Seasons:     strings.Join(bp.Seasons, ","),
	}
}

// BlendedPrior converts a stored row back to a prior
func (r *PriorRecord) BlendedPrior() *BlendedPrior {
	var seasons []string
	if r.Seasons != "" {
		seasons = strings.Split(r.Seasons, ",")
	}
	return &BlendedPrior{
		Team:        r.Team,
		AttHome:     r.AttHome,
		AttAway:     r.AttAway,
		DefHome:     r.DefHome,
		DefAway:     r.DefAway,
		RateAttHome: r.RateAttHome,
		RateAttAway: r.RateAttAway,
		RateDefHome: r.RateDefHome,
		RateDefAway: r.RateDefAway,
		PJTotal:     r.PJTotal,
		WeightSum:   r.WeightSum,
		Seasons:     seasons,
	}
}

// priorKeyMarker records that a key has been written, so an empty prior is still a hit
type priorKeyMarker struct {
	CacheKey string `column:"cache_key" dbtype:"TEXT NOT NULL" primary:"true"`
	Teams    int    `column:"teams" dbtype:"INTEGER DEFAULT 0"`
}

func (m *priorKeyMarker) GetTableName() string { return "blended_prior_keys" }
func (m *priorKeyMarker) GetPrimaryKey() map[string]any {
	return map[string]any{"cache_key": m.CacheKey}
}
func (m *priorKeyMarker) SetPrimaryKey(pk map[string]any) error {
	key, ok := pk["cache_key"].(string)
	if !ok {
		return fmt.Errorf("invalid cache_key in primary key")
	}
	m.CacheKey = key
	return nil
}
func (m *priorKeyMarker) BeforeSave() error   { return nil }
func (m *priorKeyMarker) AfterSave() error    { return nil }
func (m *priorKeyMarker) BeforeDelete() error { return nil }
func (m *priorKeyMarker) AfterDelete() error  { return nil }

// SqlitePriorCache stores priors in the blended_priors table of a Store
type SqlitePriorCache struct {
	mu    sync.Mutex
	store *Store
}

// NewSqlitePriorCache creates the cache tables if needed
func NewSqlitePriorCache(store *Store) (*SqlitePriorCache, error) {
	if err := store.CreateTables(&PriorRecord{}, &priorKeyMarker{}); err != nil {
		return nil, err
	}
	return &SqlitePriorCache{store: store}, nil
}

func (c *SqlitePriorCache) Get(key string) (map[string]*BlendedPrior, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	marker := &priorKeyMarker{CacheKey: key}
	found, err := c.store.Exists(marker)
	if err != nil || !found {
		return nil, false, err
	}
	rows, err := FindWhere[PriorRecord](c.store, "cache_key = ?", key)
	if err != nil {
		return nil, false, err
	}
	priors := make(map[string]*BlendedPrior, len(rows))
	for _, r := range rows {
		priors[r.Team] = r.BlendedPrior()
	}
	return priors, true, nil
}

// Put writes every team row and the key marker in one transaction
func (c *SqlitePriorCache) Put(key string, priors map[string]*BlendedPrior) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	objs := make([]Persistable, 0, len(priors)+1)
	for _, team := range sortedTeams(priors) {
		objs = append(objs, NewPriorRecord(key, priors[team]))
	}
	objs = append(objs, &priorKeyMarker{CacheKey: key, Teams: len(priors)})
	if err := c.store.BulkSave(objs); err != nil {
		return fmt.Errorf("failed to store priors: %w", err)
	}
	logger.Info("Saved prior cache to database", key, len(priors), "teams")
	return nil
}
