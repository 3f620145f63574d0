// Package lod manages the level-of-detail objects derived from a base mesh.
//
// Each base object owns an ordered list of LOD slots. A slot is Live while
// its object still carries the LOD_Decimate modifier (the ratio can be
// changed) and Applied once the decimation has been committed into the
// mesh. Slots are appended by AddLod and only ever removed from the end by
// RemoveLod.
package lod

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/meshkit/internal/fault"
	"github.com/Faultbox/meshkit/internal/kernel"
	"github.com/Faultbox/meshkit/internal/scene"
)

const (
	// ModifierName is the name of the decimation step attached to every new
	// LOD object. Its presence marks the slot as Live.
	ModifierName = "LOD_Decimate"
	// RatioProp is the custom property recording the ratio a LOD started with.
	RatioProp = "lod_decimation_ratio"
	// DefaultRatio is used when no default is configured.
	DefaultRatio = 0.5
)

var (
	// ErrStale is returned when a slot's object has been deleted.
	ErrStale = errors.New("LOD object no longer exists")
	// ErrApplied is returned when adjusting a slot that is already Applied.
	ErrApplied = errors.New("LOD already applied")
	// ErrInvalidRatio is returned for a ratio outside [0, 1].
	ErrInvalidRatio = errors.New("decimation ratio outside [0, 1]")
)

// State is the sub-state of one LOD slot.
type State int

const (
	Live State = iota
	Applied
	Stale
)

func (s State) String() string {
	switch s {
	case Live:
		return "live"
	case Applied:
		return "applied"
	default:
		return "stale"
	}
}

// Entry describes one LOD slot. Object is nil and State is Stale when the
// slot's object has been deleted.
type Entry struct {
	Index  int
	Object *scene.Object
	State  State
	Ratio  float64
}

// Controller creates, removes, selects and applies LODs.
type Controller struct {
	doc          *scene.Document
	kernel       kernel.Kernel
	log          *zap.Logger
	defaultRatio float64
}

// NewController returns a controller operating on doc. A nil logger
// disables logging.
func NewController(doc *scene.Document, k kernel.Kernel, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		doc:          doc,
		kernel:       k,
		log:          log.Named("lod"),
		defaultRatio: DefaultRatio,
	}
}

// DefaultRatio returns the ratio new LODs start with.
func (c *Controller) DefaultRatio() float64 {
	return c.defaultRatio
}

// SetDefaultRatio changes the ratio new LODs start with.
func (c *Controller) SetDefaultRatio(r float64) error {
	if err := checkRatio(r); err != nil {
		return err
	}
	c.defaultRatio = r
	return nil
}

// AddLod duplicates base into a new LOD object named {base}_LOD_{n}, attaches
// a Live decimation step with the default ratio and appends the slot. It
// returns the new slot's index.
func (c *Controller) AddLod(base *scene.Object) (int, error) {
	if !base.IsMesh() {
		return 0, targetErr(base)
	}

	rank := len(c.doc.LODs(base)) + 1
	name := fmt.Sprintf("%s_LOD_%d", base.Name, rank)

	m := base.Mesh.Clone()
	m.Name = name
	obj := &scene.Object{
		Name:     name,
		Type:     scene.TypeMesh,
		Location: base.Location,
		Rotation: base.Rotation,
		Scale:    base.Scale,
		Mesh:     m,
	}
	for _, mod := range base.Modifiers {
		if mod.Name != ModifierName {
			obj.Modifiers = append(obj.Modifiers, mod)
		}
	}
	obj.AddModifier(scene.Modifier{Name: ModifierName, Kind: scene.ModDecimate, Ratio: c.defaultRatio})
	obj.SetProp(RatioProp, c.defaultRatio)

	c.doc.Add(obj)
	idx := c.doc.AppendLOD(base, obj)

	c.log.Info("LOD created",
		zap.String("base", base.Name),
		zap.String("lod", name),
		zap.Float64("ratio", c.defaultRatio))
	return idx, nil
}

// RemoveLod pops the last slot of base and deletes its object if it still
// exists.
func (c *Controller) RemoveLod(base *scene.Object) error {
	if base == nil {
		return fault.InvalidTarget("no active object")
	}
	link, ok := c.doc.PopLOD(base)
	if !ok {
		return fmt.Errorf("%w: %q has no LODs to remove", fault.ErrEmptySequence, base.Name)
	}

	if obj, alive := c.doc.ResolveLOD(link); alive {
		c.doc.Remove(obj.ID)
		c.log.Info("LOD removed", zap.String("base", base.Name), zap.String("lod", obj.Name))
	} else {
		c.log.Info("stale LOD slot removed", zap.String("base", base.Name))
	}
	return nil
}

// ApplyLod commits the slot's decimation into its mesh and removes the
// modifier. Applying an Applied slot succeeds without doing anything. A
// kernel failure leaves the slot Live.
func (c *Controller) ApplyLod(base *scene.Object, index int) error {
	obj, err := c.resolve(base, index)
	if err != nil {
		return err
	}

	m := decimation(obj)
	if m == nil {
		return nil
	}
	mod := *m

	committed, err := kernel.ApplyModifier(c.kernel, obj.Mesh, mod)
	if err != nil {
		c.log.Warn("LOD apply failed",
			zap.String("lod", obj.Name),
			zap.Float64("ratio", mod.Ratio),
			zap.Error(err))
		return fault.Host(fmt.Sprintf("apply %s", obj.Name), err)
	}

	obj.Mesh = committed
	obj.RemoveModifier(ModifierName)

	c.log.Info("LOD applied",
		zap.String("lod", obj.Name),
		zap.Float64("ratio", mod.Ratio),
		zap.Int("faces", len(committed.Faces)))
	return nil
}

// ApplyAll applies every Live slot of base, continuing past failures. Stale
// slots are skipped.
func (c *Controller) ApplyAll(base *scene.Object) error {
	if base == nil {
		return fault.InvalidTarget("no active object")
	}
	var errs []error
	for i, e := range c.Entries(base) {
		if e.State != Live {
			continue
		}
		if err := c.ApplyLod(base, i); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SelectLod makes the slot's object the sole selected and active object.
func (c *Controller) SelectLod(base *scene.Object, index int) error {
	obj, err := c.resolve(base, index)
	if err != nil {
		return err
	}
	c.doc.SelectOnly(obj.ID)
	return nil
}

// SetRatio changes the decimation ratio of a Live slot.
func (c *Controller) SetRatio(base *scene.Object, index int, ratio float64) error {
	if err := checkRatio(ratio); err != nil {
		return err
	}
	obj, err := c.resolve(base, index)
	if err != nil {
		return err
	}
	m := decimation(obj)
	if m == nil {
		return fmt.Errorf("%w: %w: %s", fault.ErrInvalidTarget, ErrApplied, obj.Name)
	}
	m.Ratio = ratio
	return nil
}

// Entries lists the slots of base in rank order.
func (c *Controller) Entries(base *scene.Object) []Entry {
	if base == nil {
		return nil
	}
	links := c.doc.LODs(base)
	out := make([]Entry, len(links))
	for i, link := range links {
		out[i] = Entry{Index: i, State: Stale}
		obj, ok := c.doc.ResolveLOD(link)
		if !ok {
			continue
		}
		out[i].Object = obj
		if m := decimation(obj); m != nil {
			out[i].State = Live
			out[i].Ratio = m.Ratio
		} else {
			out[i].State = Applied
		}
	}
	return out
}

// resolve validates index against base's slots and dereferences it.
func (c *Controller) resolve(base *scene.Object, index int) (*scene.Object, error) {
	if base == nil {
		return nil, fault.InvalidTarget("no active object")
	}
	links := c.doc.LODs(base)
	if len(links) == 0 {
		return nil, fmt.Errorf("%w: %w", fault.ErrEmptySequence, fault.IndexOutOfRange(index, 0))
	}
	if index < 0 || index >= len(links) {
		return nil, fault.IndexOutOfRange(index, len(links))
	}
	obj, ok := c.doc.ResolveLOD(links[index])
	if !ok {
		return nil, fmt.Errorf("%w: %w: %s slot %d", fault.ErrInvalidTarget, ErrStale, base.Name, index)
	}
	return obj, nil
}

// decimation returns the slot object's LOD modifier, or nil once the slot is
// applied.
func decimation(obj *scene.Object) *scene.Modifier {
	if m := obj.ModifierNamed(ModifierName); m != nil && m.Kind == scene.ModDecimate {
		return m
	}
	return nil
}

func checkRatio(r float64) error {
	if !(r >= 0 && r <= 1) {
		return fmt.Errorf("%w: %v", ErrInvalidRatio, r)
	}
	return nil
}

func targetErr(obj *scene.Object) error {
	if obj == nil {
		return fault.InvalidTarget("no active object")
	}
	return fault.InvalidTarget("%q is not a mesh object", obj.Name)
}
