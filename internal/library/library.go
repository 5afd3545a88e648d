// ABOUTME: Sound library model with JSON persistence
// ABOUTME: Sounds and categories are stored in a single file, written atomically
package library

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("sound not found")

// Sound is one library entry. Volume 0 means "use the default volume";
// TrimEndMs 0 means "play to the end".
type Sound struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	FilePath    string  `json:"file_path"`
	Volume      float64 `json:"volume,omitempty"`
	TrimStartMs int64   `json:"trim_start_ms,omitempty"`
	TrimEndMs   int64   `json:"trim_end_ms,omitempty"`
	CategoryID  string  `json:"category_id,omitempty"`
	IsFavorite  bool    `json:"is_favorite,omitempty"`
}

// Category groups sounds in the UI, ordered by SortOrder then name.
type Category struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SortOrder int    `json:"sort_order,omitempty"`
}

type fileFormat struct {
	Sounds     []Sound    `json:"sounds"`
	Categories []Category `json:"categories"`
}

// Library holds the sound collection and persists it to one JSON file.
// Safe for concurrent use.
type Library struct {
	mu         sync.RWMutex
	path       string
	sounds     map[string]Sound
	categories map[string]Category
}

// Load reads the library file at path, or returns an empty library if the
// file does not exist yet.
func Load(path string) (*Library, error) {
	l := &Library{
		path:       path,
		sounds:     make(map[string]Sound),
		categories: make(map[string]Category),
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read library: %w", err)
	}

	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse library: %w", err)
	}
	for _, s := range f.Sounds {
		l.sounds[s.ID] = s
	}
	for _, c := range f.Categories {
		l.categories[c.ID] = c
	}
	return l, nil
}

// Save writes the library to its file via a temp file and rename, so a
// crash mid-write never corrupts the existing file.
func (l *Library) Save() error {
	l.mu.RLock()
	f := fileFormat{
		Sounds:     make([]Sound, 0, len(l.sounds)),
		Categories: make([]Category, 0, len(l.categories)),
	}
	for _, s := range l.sounds {
		f.Sounds = append(f.Sounds, s)
	}
	for _, c := range l.categories {
		f.Categories = append(f.Categories, c)
	}
	path := l.path
	l.mu.RUnlock()

	sort.Slice(f.Sounds, func(i, j int) bool { return f.Sounds[i].Name < f.Sounds[j].Name })
	sortCategories(f.Categories)

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode library: %w", err)
	}

	return writeAtomic(path, data)
}

// AddSound inserts a sound, assigning an id if it has none, and returns the
// stored entry.
func (l *Library) AddSound(s Sound) Sound {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.Name == "" {
		s.Name = filepath.Base(s.FilePath)
	}

	l.mu.Lock()
	l.sounds[s.ID] = s
	l.mu.Unlock()
	return s
}

// UpdateSound replaces an existing sound.
func (l *Library) UpdateSound(s Sound) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.sounds[s.ID]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, s.ID)
	}
	l.sounds[s.ID] = s
	return nil
}

// RemoveSound deletes a sound. Removing an unknown id is a no-op.
func (l *Library) RemoveSound(id string) {
	l.mu.Lock()
	delete(l.sounds, id)
	l.mu.Unlock()
}

// Sound looks up one entry by id.
func (l *Library) Sound(id string) (Sound, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s, ok := l.sounds[id]
	if !ok {
		return Sound{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, nil
}

// Sounds returns all entries sorted by name.
func (l *Library) Sounds() []Sound {
	l.mu.RLock()
	out := make([]Sound, 0, len(l.sounds))
	for _, s := range l.sounds {
		out = append(out, s)
	}
	l.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// AddCategory inserts a category, assigning an id if needed.
func (l *Library) AddCategory(c Category) Category {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}

	l.mu.Lock()
	l.categories[c.ID] = c
	l.mu.Unlock()
	return c
}

// RemoveCategory deletes a category and detaches its sounds.
func (l *Library) RemoveCategory(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.categories, id)
	for sid, s := range l.sounds {
		if s.CategoryID == id {
			s.CategoryID = ""
			l.sounds[sid] = s
		}
	}
}

// Categories returns all categories in display order.
func (l *Library) Categories() []Category {
	l.mu.RLock()
	out := make([]Category, 0, len(l.categories))
	for _, c := range l.categories {
		out = append(out, c)
	}
	l.mu.RUnlock()

	sortCategories(out)
	return out
}

func sortCategories(cats []Category) {
	sort.Slice(cats, func(i, j int) bool {
		if cats[i].SortOrder != cats[j].SortOrder {
			return cats[i].SortOrder < cats[j].SortOrder
		}
		return cats[i].Name < cats[j].Name
	})
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
