// Package registry holds the named models a server classifies with.
package registry

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"langclass/features"
	"langclass/ml"
	"langclass/monitoring"
)

var (
	ErrUnknownModel = errors.New("unknown model")
	ErrNoModel      = errors.New("no model registered")
)

// Result is the outcome of classifying one sentence.
type Result struct {
	Sentence string           `json:"sentence"`
	Model    string           `json:"model"`
	Label    ml.Label         `json:"label"`
	Score    *float64         `json:"score,omitempty"`
	Features ml.FeatureVector `json:"features"`
}

type entry struct {
	model    ml.Model
	path     string
	loadedAt time.Time

	// generation changes every time the name is (re)registered.
	generation uint64
}

// Info describes a registered model.
type Info struct {
	Name     string    `json:"name"`
	Kind     ml.Kind   `json:"kind"`
	Path     string    `json:"path,omitempty"`
	Active   bool      `json:"active"`
	LoadedAt time.Time `json:"loaded_at"`
}

// cacheKey includes the generation so a prediction computed by a replaced
// model can never be served for its successor.
type cacheKey struct {
	model      string
	generation uint64
	sentence   string
}

// Registry maps names to models and caches their predictions. It is safe
// for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	models      map[string]*entry
	active      string
	generations uint64

	cache   *lru.Cache[cacheKey, Result]
	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// New returns an empty registry. cacheSize <= 0 disables the prediction cache.
func New(cacheSize int, logger *zap.Logger, metrics *monitoring.Metrics) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = monitoring.NewMetrics()
	}
	r := &Registry{
		models:  make(map[string]*entry),
		logger:  logger.Named("registry"),
		metrics: metrics,
	}
	if cacheSize > 0 {
		cache, err := lru.New[cacheKey, Result](cacheSize)
		if err != nil {
			return nil, err
		}
		r.cache = cache
	}
	return r, nil
}

// Register adds or replaces a model. The first model registered becomes
// active.
func (r *Registry) Register(name string, m ml.Model) {
	r.register(name, m, "")
}

// RegisterFile registers a model that was saved to path, so Watch reloads it
// when the file changes.
func (r *Registry) RegisterFile(name string, m ml.Model, path string) {
	r.register(name, m, path)
}

func (r *Registry) register(name string, m ml.Model, path string) {
	r.mu.Lock()
	r.generations++
	r.models[name] = &entry{model: m, path: path, loadedAt: time.Now(), generation: r.generations}
	if r.active == "" {
		r.active = name
	}
	r.mu.Unlock()

	r.purge()
	r.logger.Info("model registered", zap.String("name", name), zap.String("kind", string(m.Kind())), zap.String("path", path))
}

// LoadFile reads a saved model and registers it under name.
func (r *Registry) LoadFile(name, path string) error {
	m, err := ml.LoadModel(path)
	if err != nil {
		return err
	}
	r.register(name, m, path)
	return nil
}

// SetActive selects the model used when a caller names none.
func (r *Registry) SetActive(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.models[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownModel, name)
	}
	r.active = name
	return nil
}

// Active returns the active model name, or "" when nothing is registered.
func (r *Registry) Active() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// Get resolves name to a model. An empty name selects the active model.
func (r *Registry) Get(name string) (string, ml.Model, error) {
	name, e, err := r.lookup(name)
	if err != nil {
		return "", nil, err
	}
	return name, e.model, nil
}

func (r *Registry) lookup(name string) (string, *entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		name = r.active
	}
	if name == "" {
		return "", nil, ErrNoModel
	}
	e, ok := r.models[name]
	if !ok {
		return "", nil, fmt.Errorf("%w: %s", ErrUnknownModel, name)
	}
	return name, e, nil
}

// List returns the registered models sorted by name.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.models))
	for name, e := range r.models {
		infos = append(infos, Info{
			Name:     name,
			Kind:     e.model.Kind(),
			Path:     e.path,
			Active:   name == r.active,
			LoadedAt: e.loadedAt,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

func (r *Registry) purge() {
	if r.cache != nil {
		r.cache.Purge()
	}
}

// Classify extracts the features of sentence and labels it with the named
// model, or the active one when name is empty.
func (r *Registry) Classify(name, sentence string) (Result, error) {
	start := time.Now()
	name, e, err := r.lookup(name)
	if err != nil {
		return Result{}, err
	}
	m := e.model

	key := cacheKey{model: name, generation: e.generation, sentence: sentence}
	if r.cache != nil {
		if res, ok := r.cache.Get(key); ok {
			r.metrics.RecordCache(true)
			r.metrics.RecordPrediction(name, res.Label, time.Since(start))
			return res, nil
		}
		r.metrics.RecordCache(false)
	}

	v := features.Extract(sentence)
	label, err := m.Predict(v)
	if err != nil {
		r.metrics.RecordPredictionError(name)
		return Result{}, fmt.Errorf("model %s: %w", name, err)
	}
	res := Result{Sentence: sentence, Model: name, Label: label, Features: v}
	if s, ok := m.(ml.Scorer); ok {
		score, err := s.Score(v)
		if err != nil {
			r.metrics.RecordPredictionError(name)
			return Result{}, fmt.Errorf("model %s: %w", name, err)
		}
		res.Score = &score
	}

	if r.cache != nil {
		r.cache.Add(key, res)
	}
	r.metrics.RecordPrediction(name, label, time.Since(start))
	return res, nil
}

// ClassifyAll classifies sentences in order and stops at the first error.
func (r *Registry) ClassifyAll(name string, sentences []string) ([]Result, error) {
	results := make([]Result, 0, len(sentences))
	for _, s := range sentences {
		res, err := r.Classify(name, s)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

// fileBacked maps each absolute model path to its registered name.
func (r *Registry) fileBacked() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	paths := make(map[string]string)
	for name, e := range r.models {
		if e.path == "" {
			continue
		}
		if abs, err := filepath.Abs(e.path); err == nil {
			paths[abs] = name
		}
	}
	return paths
}

// Watch reloads file-backed models whenever their file is written or
// replaced. It blocks until ctx is cancelled. ready, if non-nil, is closed
// once the watches are in place.
func (r *Registry) Watch(ctx context.Context, ready chan<- struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	paths := r.fileBacked()
	dirs := make(map[string]struct{})
	for p := range paths {
		dirs[filepath.Dir(p)] = struct{}{}
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	if ready != nil {
		close(ready)
	}
	r.logger.Info("watching model files", zap.Int("files", len(paths)))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			name, ok := paths[filepath.Clean(ev.Name)]
			if !ok {
				continue
			}
			if err := r.LoadFile(name, ev.Name); err != nil {
				// Partially written files fail to parse; the next write retries.
				r.logger.Warn("model reload failed", zap.String("name", name), zap.Error(err))
				continue
			}
			r.logger.Info("model reloaded", zap.String("name", name))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("watcher error", zap.Error(err))
		}
	}
}
