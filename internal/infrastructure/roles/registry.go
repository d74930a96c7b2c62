// Package roles loads the built-in roles and the user's role files.
package roles

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/doeshing/sgpt-go/assets"
	"github.com/doeshing/sgpt-go/internal/domain"
	"github.com/doeshing/sgpt-go/internal/ports"
)

type roleFile struct {
	Roles []domain.Role `yaml:"roles"`
}

// Registry resolves roles by name. User roles in dir (*.yaml, *.yml, *.toml,
// one role per file) replace built-in roles of the same name.
type Registry struct {
	dir string

	mu    sync.RWMutex
	roles map[string]domain.Role
}

// NewRegistry loads built-in roles and then every role file under dir. A
// missing dir is not an error.
func NewRegistry(dir string) (*Registry, error) {
	r, err := NewBuiltinRegistry(dir)
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return r, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return r, nil
		}
		return nil, fmt.Errorf("read roles dir: %w", err)
	}
	seen := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		role, ok, err := loadFile(path)
		if err != nil {
			return nil, &domain.ConfigError{Key: path, Err: err}
		}
		if !ok {
			continue
		}
		if prev, dup := seen[role.Name]; dup {
			return nil, &domain.ConfigError{Key: path, Value: role.Name, Err: fmt.Errorf("role already defined in %s", prev)}
		}
		seen[role.Name] = path
		r.roles[role.Name] = role
	}
	return r, nil
}

// NewBuiltinRegistry holds only the embedded roles. Create still writes
// into dir.
func NewBuiltinRegistry(dir string) (*Registry, error) {
	builtin, err := Builtin()
	if err != nil {
		return nil, err
	}
	r := &Registry{dir: dir, roles: make(map[string]domain.Role, len(builtin))}
	for _, role := range builtin {
		r.roles[role.Name] = role
	}
	return r, nil
}

// Builtin returns the embedded default roles.
func Builtin() ([]domain.Role, error) {
	var file roleFile
	if err := yaml.Unmarshal(assets.DefaultRolesYAML, &file); err != nil {
		return nil, fmt.Errorf("parse builtin roles: %w", err)
	}
	out := make([]domain.Role, 0, len(file.Roles))
	for _, role := range file.Roles {
		out = append(out, role.Normalize())
	}
	return out, nil
}

func loadFile(path string) (domain.Role, bool, error) {
	var role domain.Role
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return role, false, err
		}
		if err := yaml.Unmarshal(data, &role); err != nil {
			return role, false, err
		}
	case ".toml":
		if _, err := toml.DecodeFile(path, &role); err != nil {
			return role, false, err
		}
	default:
		return role, false, nil
	}
	role = role.Normalize()
	if role.Name == "" {
		return role, false, fmt.Errorf("role without a name")
	}
	return role, true, nil
}

// Get implements ports.RoleRepository.
func (r *Registry) Get(name string) (domain.Role, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	role, ok := r.roles[strings.TrimSpace(name)]
	if !ok {
		return domain.Role{}, fmt.Errorf("%w: %q", domain.ErrRoleNotFound, name)
	}
	return role, nil
}

// List returns every role ordered by name.
func (r *Registry) List() []domain.Role {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Role, 0, len(r.roles))
	for _, role := range r.roles {
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Create persists a new user role as YAML. Names must be unused.
func (r *Registry) Create(role domain.Role) error {
	role = role.Normalize()
	if role.Name == "" {
		return fmt.Errorf("role name is required")
	}
	if role.Prompt == "" {
		return fmt.Errorf("role %q: prompt is required", role.Name)
	}
	if r.dir == "" {
		return fmt.Errorf("no roles directory configured")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.roles[role.Name]; exists {
		return fmt.Errorf("role %q already exists", role.Name)
	}
	if err := os.MkdirAll(r.dir, domain.DirectoryPermissions); err != nil {
		return fmt.Errorf("create roles dir: %w", err)
	}
	data, err := yaml.Marshal(role)
	if err != nil {
		return err
	}
	path := filepath.Join(r.dir, fileName(role.Name)+".yaml")
	if err := os.WriteFile(path, data, domain.FilePermissions); err != nil {
		return fmt.Errorf("write role: %w", err)
	}
	r.roles[role.Name] = role
	return nil
}

func fileName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

var _ ports.RoleRepository = (*Registry)(nil)
