package artifacts

import (
	"fmt"
	"reflect"
)

// Kind binds a tag to the Go type a value must satisfy and to its serializer.
type Kind struct {
	Tag        TypeTag
	Type       reflect.Type
	Serializer Serializer
}

// Registry maps type tags to kinds. It is immutable once built.
type Registry struct {
	kinds map[TypeTag]Kind
}

// NewRegistry validates and indexes kinds.
func NewRegistry(kinds ...Kind) (*Registry, error) {
	r := &Registry{kinds: make(map[TypeTag]Kind, len(kinds))}
	for _, k := range kinds {
		switch {
		case k.Tag == "":
			return nil, fmt.Errorf("%w: empty tag", ErrInvalidKind)
		case k.Type == nil:
			return nil, fmt.Errorf("%w: %s has no type", ErrInvalidKind, k.Tag)
		case k.Serializer == nil:
			return nil, fmt.Errorf("%w: %s has no serializer", ErrInvalidKind, k.Tag)
		}
		if _, dup := r.kinds[k.Tag]; dup {
			return nil, fmt.Errorf("%w: duplicate tag %s", ErrInvalidKind, k.Tag)
		}
		r.kinds[k.Tag] = k
	}
	return r, nil
}

// DefaultRegistry returns the registry of all built-in kinds.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(
		Kind{TagText, reflect.TypeOf(""), dumpPlainText},
		Kind{TagPath, reflect.TypeOf(Path("")), copyObject},
		Kind{TagDataFrame, typeOf[Table](), dumpTable},
		Kind{TagBooster, typeOf[Booster](), dumpBooster},
		Kind{TagPretrainedModel, typeOf[PretrainedModel](), dumpPretrained},
		Kind{TagPretrainedTokenizer, typeOf[PretrainedTokenizer](), dumpPretrained},
		Kind{TagNeuralNetwork, typeOf[NeuralNetwork](), dumpStateDict},
		Kind{TagEstimator, typeOf[Estimator](), dumpEstimator},
	)
	if err != nil {
		panic(err)
	}
	return r
}

// ResolveType returns the type bound to tag.
func (r *Registry) ResolveType(tag TypeTag) (reflect.Type, error) {
	k, ok := r.kinds[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTag, tag)
	}
	return k.Type, nil
}

// SerializerFor returns the serializer bound to tag.
func (r *Registry) SerializerFor(tag TypeTag) (Serializer, error) {
	k, ok := r.kinds[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTag, tag)
	}
	return k.Serializer, nil
}

// matches reports whether value satisfies t: interfaces by method set,
// concrete types by assignability.
func matches(value any, t reflect.Type) bool {
	if value == nil {
		return false
	}
	vt := reflect.TypeOf(value)
	if t.Kind() == reflect.Interface {
		return vt.Implements(t)
	}
	return vt.AssignableTo(t)
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
