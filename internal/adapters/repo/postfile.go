package repo

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"tg-anime-bot/internal/domain"
)

const (
	postsFile     = "posts.json"
	templatesFile = "templates.json"
)

// FileStore keeps posts and templates in JSON files under one directory. The
// whole store is loaded at startup and rewritten on every mutation, the data
// set is small enough that this is fine.
type FileStore struct {
	dir string

	mu        sync.Mutex
	posts     postsDocument
	templates map[string]domain.Template
}

type postsDocument struct {
	Count int                    `json:"count"`
	Posts map[string]domain.Post `json:"posts"`
}

// NewFileStore loads (or initialises) the store in dir.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	s := &FileStore{
		dir:       dir,
		posts:     postsDocument{Posts: map[string]domain.Post{}},
		templates: map[string]domain.Template{},
	}
	if err := s.loadFile(postsFile, &s.posts); err != nil {
		return nil, err
	}
	if s.posts.Posts == nil {
		s.posts.Posts = map[string]domain.Post{}
	}
	if err := s.loadFile(templatesFile, &s.templates); err != nil {
		return nil, err
	}
	if s.templates == nil {
		s.templates = map[string]domain.Template{}
	}
	return s, nil
}

func (s *FileStore) loadFile(name string, out any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

// writes go through a temp file so a crash never leaves a truncated store
func (s *FileStore) saveFile(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

// SavePost stores the post. A zero or unknown id appends under the next
// number, an existing id overwrites in place.
func (s *FileStore) SavePost(post domain.Post) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if post.ID <= 0 || !s.hasPost(post.ID) {
		s.posts.Count++
		post.ID = s.posts.Count
	}
	post.UpdatedAt = time.Now().UTC()
	s.posts.Posts[strconv.Itoa(post.ID)] = post

	if err := s.saveFile(postsFile, &s.posts); err != nil {
		return 0, err
	}
	return post.ID, nil
}

func (s *FileStore) hasPost(id int) bool {
	_, ok := s.posts.Posts[strconv.Itoa(id)]
	return ok
}

// GetPost fetches one post.
func (s *FileStore) GetPost(id int) (domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts.Posts[strconv.Itoa(id)]
	if !ok {
		return domain.Post{}, domain.ErrNotFound
	}
	return post, nil
}

// ListPosts returns every post ordered by id.
func (s *FileStore) ListPosts() ([]domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Post, 0, len(s.posts.Posts))
	for _, post := range s.posts.Posts {
		out = append(out, post)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DeletePost removes the post and renumbers the remaining ones so ids stay
// dense, 1 through count, in their original order.
func (s *FileStore) DeletePost(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strconv.Itoa(id)
	if _, ok := s.posts.Posts[key]; !ok {
		return domain.ErrNotFound
	}
	delete(s.posts.Posts, key)

	remaining := make([]domain.Post, 0, len(s.posts.Posts))
	for _, post := range s.posts.Posts {
		remaining = append(remaining, post)
	}
	sort.Slice(remaining, func(i, j int) bool { return remaining[i].ID < remaining[j].ID })

	s.posts.Posts = make(map[string]domain.Post, len(remaining))
	for i, post := range remaining {
		post.ID = i + 1
		s.posts.Posts[strconv.Itoa(post.ID)] = post
	}
	s.posts.Count = len(remaining)

	return s.saveFile(postsFile, &s.posts)
}

// SaveTemplate stores the template under its name, overwriting any previous
// one.
func (s *FileStore) SaveTemplate(tpl domain.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tpl.CreatedAt.IsZero() {
		tpl.CreatedAt = time.Now().UTC()
	}
	s.templates[tpl.Name] = tpl
	return s.saveFile(templatesFile, s.templates)
}

// GetTemplate fetches one template.
func (s *FileStore) GetTemplate(name string) (domain.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tpl, ok := s.templates[name]
	if !ok {
		return domain.Template{}, domain.ErrNotFound
	}
	return tpl, nil
}

// ListTemplates returns every template ordered by name.
func (s *FileStore) ListTemplates() ([]domain.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Template, 0, len(s.templates))
	for _, tpl := range s.templates {
		out = append(out, tpl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// DeleteTemplate removes one template.
func (s *FileStore) DeleteTemplate(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.templates[name]; !ok {
		return domain.ErrNotFound
	}
	delete(s.templates, name)
	return s.saveFile(templatesFile, s.templates)
}
