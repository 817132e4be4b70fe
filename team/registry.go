package team

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BaSui01/teamflow/types"
	"go.uber.org/zap"
)

// Registry holds the loaded teams. Teams are registered at startup and
// read-only during operation, so lookups take only a read lock.
type Registry struct {
	teams  map[string]*Team
	logger *zap.Logger
	mu     sync.RWMutex
}

// Summary describes a team for listing purposes.
type Summary struct {
	TeamName      string `json:"team_name"`
	DesignPattern string `json:"design_pattern"`
	Description   string `json:"description,omitempty"`
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		teams:  make(map[string]*Team),
		logger: logger.With(zap.String("component", "team_registry")),
	}
}

// Register adds a loaded team. Duplicate team names are a config error.
func (r *Registry) Register(t *Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.teams[t.Name]; exists {
		return configErr(t.Name, "duplicate team name")
	}
	r.teams[t.Name] = t
	r.logger.Info("registered team",
		zap.String("team", t.Name),
		zap.String("pattern", string(t.Pattern)),
		zap.Int("agents", t.Len()),
	)
	return nil
}

// Upsert adds or replaces a team. Used by the directory watcher when a team
// file changes on disk; conversations already bound to the old definition pick
// up the new one on their next message.
func (r *Registry) Upsert(t *Team) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, replaced := r.teams[t.Name]
	r.teams[t.Name] = t
	r.logger.Info("upserted team",
		zap.String("team", t.Name),
		zap.String("pattern", string(t.Pattern)),
		zap.Bool("replaced", replaced),
	)
}

// Remove drops a team from the registry. Returns false if it was not present.
func (r *Registry) Remove(teamName string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.teams[teamName]; !ok {
		return false
	}
	delete(r.teams, teamName)
	r.logger.Info("removed team", zap.String("team", teamName))
	return true
}

// LoadFile loads and registers a single team file.
func (r *Registry) LoadFile(path string) (*Team, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.NewError(types.ErrConfig,
			fmt.Sprintf("read team file %s", path)).WithCause(err)
	}
	t, err := Load(data)
	if err != nil {
		return nil, err
	}
	if err := r.Register(t); err != nil {
		return nil, err
	}
	return t, nil
}

// LoadDir loads every *.json team file in dir. A missing directory is not an
// error: a deployment may start with no teams and ingest them later.
func (r *Registry) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		r.logger.Warn("team directory does not exist", zap.String("dir", dir))
		return nil
	}
	if err != nil {
		return types.NewError(types.ErrConfig,
			fmt.Sprintf("read team directory %s", dir)).WithCause(err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		if _, err := r.LoadFile(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the named team.
func (r *Registry) Get(teamName string) (*Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if t, ok := r.teams[teamName]; ok {
		return t, nil
	}
	return nil, types.NewError(types.ErrUnknownTeam,
		fmt.Sprintf("team %q not found", teamName)).WithHTTPStatus(404)
}

// List returns summaries of all registered teams. Order is not guaranteed;
// callers needing stable output should sort.
func (r *Registry) List() []Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Summary, 0, len(r.teams))
	for _, t := range r.teams {
		out = append(out, Summary{
			TeamName:      t.Name,
			DesignPattern: string(t.Pattern),
			Description:   t.Description(),
		})
	}
	return out
}

// Len returns the number of registered teams.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.teams)
}

// ValidateHandoff checks that moving a conversation's active agent from one
// agent to another is legal for the named team. An empty from denotes the
// initial assignment, which only requires the target to exist.
// Implements the session store's HandoffValidator.
func (r *Registry) ValidateHandoff(teamName, from, to string) error {
	t, err := r.Get(teamName)
	if err != nil {
		return err
	}
	if _, err := t.Get(to); err != nil {
		return err
	}
	if from == "" || from == to {
		return nil
	}
	if !t.CanHandoff(from, to) {
		return types.NewError(types.ErrUnknownAgent,
			fmt.Sprintf("agent %q is not a handoff target of %q in team %q", to, from, teamName)).
			WithHTTPStatus(409)
	}
	return nil
}
