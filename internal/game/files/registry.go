package files

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Writer persists file changes as they happen.
type Writer interface {
	WriteProp(p PropFile) error
	DeleteProp(owner, name string) error
	WriteActorArchive(a ActorArchive) error
	WriteStageArchive(a StageArchive) error
}

// Registry stores every owner's files. Each mutation is written back through
// the Writer immediately; write failures are logged and do not fail the mutation.
// All methods are safe for concurrent use.
type Registry struct {
	mu            sync.RWMutex
	props         map[string]map[string]*PropFile
	actorArchives map[string]map[string]ActorArchive
	stageArchives map[string]map[string]StageArchive
	writer        Writer
	logger        *zap.Logger
}

// NewRegistry returns an empty Registry. writer may be nil.
//
// Precondition: logger must be non-nil.
func NewRegistry(writer Writer, logger *zap.Logger) *Registry {
	return &Registry{
		props:         make(map[string]map[string]*PropFile),
		actorArchives: make(map[string]map[string]ActorArchive),
		stageArchives: make(map[string]map[string]StageArchive),
		writer:        writer,
		logger:        logger,
	}
}

// SetWriter replaces the writer used for writeback.
func (r *Registry) SetWriter(w Writer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writer = w
}

// AddProp gives p to owner. A consumable with the same name already owned by
// owner absorbs p's count instead.
//
// Precondition: p.Instance.Name must be non-empty.
// Postcondition: Returns ErrPropExists for a non-consumable name collision.
func (r *Registry) AddProp(owner string, p PropFile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.addLocked(owner, p)
}

func (r *Registry) addLocked(owner string, p PropFile) error {
	if p.Instance.Name == "" {
		return fmt.Errorf("prop for %q has no name", owner)
	}
	if p.Instance.Count < 1 {
		p.Instance.Count = 1
	}
	p.Owner = owner
	owned := r.props[owner]
	if owned == nil {
		owned = make(map[string]*PropFile)
		r.props[owner] = owned
	}
	if existing, ok := owned[p.Name()]; ok {
		if existing.Kind() != KindConsumable || p.Kind() != KindConsumable {
			return fmt.Errorf("%w: %q by %q", ErrPropExists, p.Name(), owner)
		}
		existing.Instance.Count += p.Instance.Count
		r.writeProp(*existing)
		return nil
	}
	stored := p
	owned[p.Name()] = &stored
	r.writeProp(stored)
	return nil
}

// RemoveProp takes the named prop away from owner.
//
// Postcondition: Returns the removed file or ErrPropNotFound.
func (r *Registry) RemoveProp(owner, name string) (PropFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(owner, name)
}

func (r *Registry) removeLocked(owner, name string) (PropFile, error) {
	p, ok := r.props[owner][name]
	if !ok {
		return PropFile{}, propNotFound(owner, name)
	}
	delete(r.props[owner], name)
	if len(r.props[owner]) == 0 {
		delete(r.props, owner)
	}
	if r.writer != nil {
		if err := r.writer.DeleteProp(owner, name); err != nil {
			r.logger.Error("deleting prop file", zap.String("owner", owner), zap.String("prop", name), zap.Error(err))
		}
	}
	return *p, nil
}

// TransferProp moves the named prop from one owner to another as a paired
// remove-then-add.
//
// Postcondition: On error the prop stays with from.
func (r *Registry) TransferProp(from, to, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, err := r.removeLocked(from, name)
	if err != nil {
		return err
	}
	if err := r.addLocked(to, p); err != nil {
		if restoreErr := r.addLocked(from, p); restoreErr != nil {
			r.logger.Error("restoring prop after failed transfer",
				zap.String("owner", from), zap.String("prop", name), zap.Error(restoreErr))
		}
		return fmt.Errorf("transferring %q from %q to %q: %w", name, from, to, err)
	}
	return nil
}

// GetProp returns the named prop owned by owner.
func (r *Registry) GetProp(owner, name string) (PropFile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.props[owner][name]
	if !ok {
		return PropFile{}, false
	}
	return *p, true
}

// HasProp reports whether owner holds the named prop.
func (r *Registry) HasProp(owner, name string) bool {
	_, ok := r.GetProp(owner, name)
	return ok
}

// Props returns owner's props sorted by name.
func (r *Registry) Props(owner string) []PropFile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedProps(r.props[owner])
}

// PropsOfKind returns owner's props of the given kinds sorted by name.
func (r *Registry) PropsOfKind(owner string, kinds ...PropKind) []PropFile {
	want := make(map[PropKind]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}
	var out []PropFile
	for _, p := range r.Props(owner) {
		if want[p.Kind()] {
			out = append(out, p)
		}
	}
	return out
}

// PropOwners returns every owner holding at least one prop, sorted.
func (r *Registry) PropOwners() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.props)
}

// AllProps returns every prop file ordered by owner then name.
func (r *Registry) AllProps() []PropFile {
	var out []PropFile
	for _, owner := range r.PropOwners() {
		out = append(out, r.Props(owner)...)
	}
	return out
}

// DropOwner forgets every file of owner.
//
// Postcondition: Returns the props owner held.
func (r *Registry) DropOwner(owner string) []PropFile {
	r.mu.Lock()
	defer r.mu.Unlock()
	props := sortedProps(r.props[owner])
	delete(r.props, owner)
	delete(r.actorArchives, owner)
	delete(r.stageArchives, owner)
	return props
}

// SetActorArchive records what owner knows about an actor, replacing earlier knowledge.
func (r *Registry) SetActorArchive(a ActorArchive) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.actorArchives[a.Owner]
	if m == nil {
		m = make(map[string]ActorArchive)
		r.actorArchives[a.Owner] = m
	}
	m[a.Name] = a
	if r.writer != nil {
		if err := r.writer.WriteActorArchive(a); err != nil {
			r.logger.Error("writing actor archive", zap.String("owner", a.Owner), zap.String("actor", a.Name), zap.Error(err))
		}
	}
}

// KnowsActor reports whether owner has an archive of actor.
func (r *Registry) KnowsActor(owner, actor string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.actorArchives[owner][actor]
	return ok
}

// ActorArchive returns what owner knows about actor.
func (r *Registry) ActorArchive(owner, actor string) (ActorArchive, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.actorArchives[owner][actor]
	return a, ok
}

// ActorArchives returns owner's actor archives sorted by name.
func (r *Registry) ActorArchives(owner string) []ActorArchive {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m := r.actorArchives[owner]
	out := make([]ActorArchive, 0, len(m))
	for _, k := range sortedKeys(m) {
		out = append(out, m[k])
	}
	return out
}

// ForgetActor removes every archive of actor held by anyone.
func (r *Registry) ForgetActor(actor string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.actorArchives {
		delete(m, actor)
	}
}

// SetStageArchive records what owner knows about a stage.
func (r *Registry) SetStageArchive(a StageArchive) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.stageArchives[a.Owner]
	if m == nil {
		m = make(map[string]StageArchive)
		r.stageArchives[a.Owner] = m
	}
	a.Tags = append([]string(nil), a.Tags...)
	m[a.Name] = a
	if r.writer != nil {
		if err := r.writer.WriteStageArchive(a); err != nil {
			r.logger.Error("writing stage archive", zap.String("owner", a.Owner), zap.String("stage", a.Name), zap.Error(err))
		}
	}
}

// KnowsStage reports whether owner has an archive of stage.
func (r *Registry) KnowsStage(owner, stage string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.stageArchives[owner][stage]
	return ok
}

// StageArchive returns what owner knows about stage.
func (r *Registry) StageArchive(owner, stage string) (StageArchive, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.stageArchives[owner][stage]
	if ok {
		a.Tags = append([]string(nil), a.Tags...)
	}
	return a, ok
}

// StageArchives returns owner's stage archives sorted by name.
func (r *Registry) StageArchives(owner string) []StageArchive {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m := r.stageArchives[owner]
	out := make([]StageArchive, 0, len(m))
	for _, k := range sortedKeys(m) {
		out = append(out, m[k])
	}
	return out
}

// ArchiveOwners returns every owner holding an archive, sorted.
func (r *Registry) ArchiveOwners() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := make(map[string]bool)
	for k := range r.actorArchives {
		set[k] = true
	}
	for k := range r.stageArchives {
		set[k] = true
	}
	return sortedKeys(set)
}

func (r *Registry) writeProp(p PropFile) {
	if r.writer == nil {
		return
	}
	if err := r.writer.WriteProp(p); err != nil {
		r.logger.Error("writing prop file", zap.String("owner", p.Owner), zap.String("prop", p.Name()), zap.Error(err))
	}
}

func sortedProps(m map[string]*PropFile) []PropFile {
	out := make([]PropFile, 0, len(m))
	for _, k := range sortedKeys(m) {
		out = append(out, *m[k])
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
