package projection_test

import (
	"reflect"
	"strings"
	"testing"

	"github.com/dalemusser/phonebook/internal/app/projection"
	"github.com/stretchr/testify/assert"
)

var pkgPath = reflect.TypeOf(projection.MemberLite{}).PkgPath()

// owned lists the only Full-inside-Full edges allowed.
var owned = map[string][]string{
	"ConferenceFull": {"TalkFull"},
}

func deref(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Ptr || t.Kind() == reflect.Slice {
		t = t.Elem()
	}
	return t
}

// walk visits every projection type reachable from t, failing on any type
// that appears twice on one path or on a Full shape nested without an
// ownership edge.
func walk(t *testing.T, typ reflect.Type, path []string) {
	typ = deref(typ)
	if typ.PkgPath() != pkgPath || typ.Kind() != reflect.Struct {
		return
	}
	name := typ.Name()
	for _, p := range path {
		assert.NotEqual(t, p, name, "cycle: %s", strings.Join(append(path, name), " -> "))
		if p == name {
			return
		}
	}
	if len(path) > 0 && strings.HasSuffix(name, "Full") {
		parent := path[len(path)-1]
		assert.Contains(t, owned[parent], name, "%s embeds %s", parent, name)
	}
	if strings.HasSuffix(name, "Lite") {
		for i := 0; i < typ.NumField(); i++ {
			assert.NotEqual(t, pkgPath, deref(typ.Field(i).Type).PkgPath(),
				"%s must not nest projection types", name)
		}
	}
	for i := 0; i < typ.NumField(); i++ {
		walk(t, typ.Field(i).Type, append(append([]string(nil), path...), name))
	}
}

func TestShapes_Terminate(t *testing.T) {
	roots := []any{
		projection.InstitutionFull{},
		projection.MemberFull{},
		projection.GroupFull{},
		projection.ConferenceFull{},
		projection.TalkFull{},
		projection.GroupMemberView{},
		projection.BoardMemberView{},
		projection.TalkAssignmentView{},
		projection.HistoryView{},
		projection.MemberPage{},
	}
	for _, r := range roots {
		walk(t, reflect.TypeOf(r), nil)
	}
}

func TestJoinViews_EmbedOnlyLite(t *testing.T) {
	for _, v := range []any{
		projection.GroupMemberView{},
		projection.BoardMemberView{},
		projection.TalkAssignmentView{},
		projection.HistoryView{},
	} {
		typ := reflect.TypeOf(v)
		for i := 0; i < typ.NumField(); i++ {
			f := typ.Field(i)
			if f.Anonymous {
				continue
			}
			inner := deref(f.Type)
			if inner.PkgPath() == pkgPath {
				assert.True(t, strings.HasSuffix(inner.Name(), "Lite"),
					"%s.%s is %s", typ.Name(), f.Name, inner.Name())
			}
		}
	}
}
