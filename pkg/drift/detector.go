package drift

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/openfroyo/agentcore/pkg/model"
)

// ChangeKind classifies a difference between the local and remote documents.
type ChangeKind string

const (
	// ChangeAdded means the value is present remotely and absent locally.
	ChangeAdded ChangeKind = "ADDED"

	// ChangeRemoved means the value is present locally and absent remotely.
	ChangeRemoved ChangeKind = "REMOVED"

	// ChangeValueChanged means both sides hold different values.
	ChangeValueChanged ChangeKind = "VALUE_CHANGED"
)

// Direction tells which side holds the change.
type Direction string

const (
	DirectionRemoteOnly Direction = "remote_only"
	DirectionLocalOnly  Direction = "local_only"
	DirectionBoth       Direction = "both"
)

// Severity separates entity additions and removals from scalar edits.
type Severity string

const (
	SeverityStructural Severity = "structural"
	SeverityScalar     Severity = "scalar"
)

// Change is one difference. Old is the local value and New the remote value.
type Change struct {
	Path      string      `json:"path"`
	Segments  []string    `json:"-"`
	Section   string      `json:"section"`
	Kind      ChangeKind  `json:"kind"`
	Direction Direction   `json:"direction"`
	Severity  Severity    `json:"severity"`
	Old       interface{} `json:"old,omitempty"`
	New       interface{} `json:"new,omitempty"`
}

// Report is the result of a diff. Changes are sorted by path.
type Report struct {
	Changes []Change `json:"changes"`
}

// Empty reports whether the documents are in sync.
func (r *Report) Empty() bool {
	return r == nil || len(r.Changes) == 0
}

// Sections groups changes by top-level section (environments, global_resources, ...).
func (r *Report) Sections() map[string][]Change {
	out := map[string][]Change{}
	if r == nil {
		return out
	}
	for _, c := range r.Changes {
		out[c.Section] = append(out[c.Section], c)
	}
	return out
}

// RemoteOnly returns the changes that exist only in the remote document.
func (r *Report) RemoteOnly() []Change {
	if r == nil {
		return nil
	}
	var out []Change
	for _, c := range r.Changes {
		if c.Direction == DirectionRemoteOnly {
			out = append(out, c)
		}
	}
	return out
}

// HasRemoteOnlyChanges reports whether pushing would discard remote additions.
func (r *Report) HasRemoteOnlyChanges() bool {
	return len(r.RemoteOnly()) > 0
}

// StructuralCount returns the number of added or removed entities.
func (r *Report) StructuralCount() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, c := range r.Changes {
		if c.Severity == SeverityStructural {
			n++
		}
	}
	return n
}

// Count returns the number of changes of the given kind.
func (r *Report) Count(kind ChangeKind) int {
	if r == nil {
		return 0
	}
	n := 0
	for _, c := range r.Changes {
		if c.Kind == kind {
			n++
		}
	}
	return n
}

// Summary renders a one-line description of the report.
func (r *Report) Summary() string {
	if r.Empty() {
		return "no drift"
	}
	return fmt.Sprintf("%d changes (%d added remotely, %d missing remotely, %d changed)",
		len(r.Changes), r.Count(ChangeAdded), r.Count(ChangeRemoved), r.Count(ChangeValueChanged))
}

// Options configures a Detector.
type Options struct {
	// VolatileKeys are stripped from records at any depth, never from the
	// user-named maps in NameMaps. Nil uses DefaultVolatileKeys.
	VolatileKeys []string

	// ExcludePaths are dotted path patterns stripped before comparison.
	ExcludePaths []string
}

// Detector compares two documents after normalizing both the same way.
type Detector struct {
	normalizer *Normalizer
}

// NewDetector creates a detector.
func NewDetector(opts Options) *Detector {
	keys := opts.VolatileKeys
	if keys == nil {
		keys = DefaultVolatileKeys
	}
	return &Detector{normalizer: NewNormalizer(keys, opts.ExcludePaths)}
}

// Diff compares a local and a remote document.
func (d *Detector) Diff(local, remote *model.Document) (*Report, error) {
	var localTree, remoteTree interface{}
	if local != nil {
		t, err := model.ToTree(local)
		if err != nil {
			return nil, err
		}
		localTree = t
	}
	if remote != nil {
		t, err := model.ToTree(remote)
		if err != nil {
			return nil, err
		}
		remoteTree = t
	}
	return d.DiffTrees(localTree, remoteTree), nil
}

// DiffTrees compares two generic trees.
func (d *Detector) DiffTrees(local, remote interface{}) *Report {
	r := &Report{}
	walk(nil, d.normalizer.Normalize(local), d.normalizer.Normalize(remote), r)
	sort.SliceStable(r.Changes, func(i, j int) bool {
		return r.Changes[i].Path < r.Changes[j].Path
	})
	return r
}

func walk(path []string, local, remote interface{}, r *Report) {
	lm, lok := local.(map[string]interface{})
	rm, rok := remote.(map[string]interface{})
	if lok && rok {
		keys := make([]string, 0, len(lm)+len(rm))
		for k := range lm {
			keys = append(keys, k)
		}
		for k := range rm {
			if _, dup := lm[k]; !dup {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			lv, inLocal := lm[k]
			rv, inRemote := rm[k]
			childPath := appendPath(path, k)
			switch {
			case inLocal && inRemote:
				walk(childPath, lv, rv, r)
			case inRemote:
				r.add(childPath, ChangeAdded, nil, rv)
			default:
				r.add(childPath, ChangeRemoved, lv, nil)
			}
		}
		return
	}

	switch {
	case local == nil && remote == nil:
	case local == nil:
		r.add(path, ChangeAdded, nil, remote)
	case remote == nil:
		r.add(path, ChangeRemoved, local, nil)
	case !reflect.DeepEqual(local, remote):
		r.add(path, ChangeValueChanged, local, remote)
	}
}

func (r *Report) add(path []string, kind ChangeKind, localVal, remoteVal interface{}) {
	c := Change{
		Path:     strings.Join(path, "."),
		Segments: path,
		Kind:     kind,
		Old:      localVal,
		New:      remoteVal,
	}
	if len(path) > 0 {
		c.Section = path[0]
	}
	switch kind {
	case ChangeAdded:
		c.Direction = DirectionRemoteOnly
		c.Severity = SeverityStructural
	case ChangeRemoved:
		c.Direction = DirectionLocalOnly
		c.Severity = SeverityStructural
	default:
		c.Direction = DirectionBoth
		c.Severity = SeverityScalar
	}
	r.Changes = append(r.Changes, c)
}
