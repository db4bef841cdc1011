package odata

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/roach88/datasync/internal/querynode"
)

// Field is the wire form of a member path.
type Field struct {
	// WireName is the name sent to the service. Nested paths join the
	// per-segment wire names with "/".
	WireName string

	// Kind is the declared kind of the member, KindUnknown if undeclared.
	Kind querynode.Kind
}

// MemberResolver maps a Go member path to its wire field.
// Unresolvable paths return a *TranslationError.
type MemberResolver interface {
	Resolve(path string) (Field, error)
}

// MapResolver is an explicit path → field table.
//
// A dotted path not present in the table is rejected, as is any path that
// navigates below an offset-aware timestamp entry.
type MapResolver map[string]Field

// Resolve implements MemberResolver.
func (m MapResolver) Resolve(path string) (Field, error) {
	if f, ok := m[path]; ok && f.WireName != "" {
		return f, nil
	}

	segments := strings.Split(path, ".")
	for i := 1; i < len(segments); i++ {
		prefix := strings.Join(segments[:i], ".")
		if f, ok := m[prefix]; ok && f.Kind == querynode.KindDateTimeOffset {
			return Field{}, offsetAwareNavigation(path, prefix)
		}
	}

	return Field{}, unmapped(path)
}

// StructResolver derives wire names and kinds from a Go struct type.
//
// Wire names come from the json tag; an untagged field uses its Go name
// with the leading identifier lower-cased ("ReleaseDate" → "releaseDate",
// "ID" → "id"). Fields tagged json:"-" and unexported fields are unmapped.
//
// Kinds come from the Go type and can be overridden with an odata tag
// naming a kind (odata:"date", odata:"decimal", ...). time.Time is
// offset-aware unless tagged. Named integer types are enums. Struct and
// pointer-to-struct fields are navigable with dotted paths.
//
// Thread-safety: StructResolver is safe for concurrent use.
type StructResolver struct {
	typ   reflect.Type
	cache sync.Map // path → Field
}

var resolvers sync.Map // reflect.Type → *StructResolver

// ResolverFor returns the cached StructResolver for T.
func ResolverFor[T any]() *StructResolver {
	return ResolverOf(reflect.TypeFor[T]())
}

// ResolverOf returns the cached StructResolver for typ.
func ResolverOf(typ reflect.Type) *StructResolver {
	if r, ok := resolvers.Load(typ); ok {
		return r.(*StructResolver)
	}
	r, _ := resolvers.LoadOrStore(typ, &StructResolver{typ: typ})
	return r.(*StructResolver)
}

// Resolve implements MemberResolver.
func (r *StructResolver) Resolve(path string) (Field, error) {
	if f, ok := r.cache.Load(path); ok {
		return f.(Field), nil
	}

	f, err := r.resolve(path)
	if err != nil {
		return Field{}, err
	}
	r.cache.Store(path, f)
	return f, nil
}

var timeType = reflect.TypeFor[time.Time]()

func (r *StructResolver) resolve(path string) (Field, error) {
	if path == "" {
		return Field{}, unsupported("member", "empty member path")
	}

	segments := strings.Split(path, ".")
	wire := make([]string, 0, len(segments))
	typ := r.typ
	var kind querynode.Kind

	for i, seg := range segments {
		typ = derefType(typ)
		if typ.Kind() != reflect.Struct || typ == timeType {
			if i > 0 && kind == querynode.KindDateTimeOffset {
				return Field{}, offsetAwareNavigation(path, strings.Join(segments[:i], "."))
			}
			return Field{}, unsupported("member "+path, "%s has no field %q", typ, seg)
		}

		sf, ok := typ.FieldByName(seg)
		if !ok || !sf.IsExported() {
			return Field{}, unmapped(path)
		}

		name, ok := wireName(sf)
		if !ok {
			return Field{}, unmapped(path)
		}

		k, err := fieldKind(sf)
		if err != nil {
			return Field{}, unsupported("member "+path, "%v", err)
		}

		wire = append(wire, name)
		kind = k
		typ = sf.Type
	}

	return Field{WireName: strings.Join(wire, "/"), Kind: kind}, nil
}

func derefType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// wireName returns the json name of a struct field, or its Go name with the
// leading identifier lower-cased. ok is false for json:"-".
func wireName(sf reflect.StructField) (string, bool) {
	tag := sf.Tag.Get("json")
	if tag == "-" {
		return "", false
	}
	if name, _, _ := strings.Cut(tag, ","); name != "" {
		return name, true
	}
	return LowerLeading(sf.Name), true
}

func fieldKind(sf reflect.StructField) (querynode.Kind, error) {
	if tag := sf.Tag.Get("odata"); tag != "" {
		return querynode.ParseKind(tag)
	}

	t := derefType(sf.Type)
	if t == timeType {
		return querynode.KindDateTimeOffset, nil
	}

	named := t.PkgPath() != ""
	switch t.Kind() {
	case reflect.String:
		return querynode.KindString, nil
	case reflect.Bool:
		return querynode.KindBool, nil
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Uint8, reflect.Uint16:
		if named {
			return querynode.KindEnum, nil
		}
		return querynode.KindInt32, nil
	case reflect.Int, reflect.Int64, reflect.Uint, reflect.Uint32, reflect.Uint64:
		if named {
			return querynode.KindEnum, nil
		}
		return querynode.KindInt64, nil
	case reflect.Float32:
		return querynode.KindFloat32, nil
	case reflect.Float64:
		return querynode.KindFloat64, nil
	default:
		return querynode.KindUnknown, nil
	}
}

// LowerLeading lower-cases the leading identifier of a Go name:
// "Id" → "id", "ReleaseDate" → "releaseDate", "ID" → "id", "URLPath" → "urlPath".
func LowerLeading(name string) string {
	runes := []rune(name)
	n := 0
	for n < len(runes) && unicode.IsUpper(runes[n]) {
		n++
	}

	switch {
	case n == 0:
		return name
	case n == len(runes):
		return strings.ToLower(name)
	case n > 1:
		// The last upper-case rune starts the next word.
		n--
	}

	for i := 0; i < n; i++ {
		runes[i] = unicode.ToLower(runes[i])
	}
	return string(runes)
}

func unmapped(path string) *TranslationError {
	return unsupported("member "+path, "no wire name mapping for member")
}

func offsetAwareNavigation(path, field string) *TranslationError {
	return unsupported("member "+path,
		"cannot filter on offset-aware timestamps (navigates into %s)", field)
}

// String describes the resolver for diagnostics.
func (r *StructResolver) String() string {
	return fmt.Sprintf("StructResolver(%s)", r.typ)
}
