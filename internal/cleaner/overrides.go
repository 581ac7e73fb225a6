package cleaner

import (
	"strings"

	"github.com/mvp-joe/jarmeta/internal/classfile"
)

// overrides lists every super type method that m overrides, walking super
// classes and interfaces breadth-first. Types missing from the symbol space end
// their branch of the walk.
func (c *Cleaner) overrides(info *classfile.ClassInfo, m *classfile.MethodInfo) []classfile.MemberRef {
	if m.IsStatic() || m.IsPrivate() || m.IsInitializer() || c.resolver == nil {
		return nil
	}

	var found []classfile.MemberRef
	visited := map[string]bool{info.Name: true}
	queue := superTypes(info)
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if name == "" || visited[name] {
			continue
		}
		visited[name] = true

		ancestor, ok := c.resolver.ClassInfo(name)
		if !ok {
			continue
		}
		if target, ok := ancestor.Method(m.Name, m.Descriptor); ok && overridable(target, ancestor.Name, info.Name) {
			found = append(found, classfile.MemberRef{Owner: ancestor.Name, Name: target.Name, Descriptor: target.Descriptor})
		}
		queue = append(queue, superTypes(ancestor)...)
	}
	return found
}

func superTypes(info *classfile.ClassInfo) []string {
	types := make([]string, 0, 1+len(info.Interfaces))
	if info.SuperName != "" {
		types = append(types, info.SuperName)
	}
	return append(types, info.Interfaces...)
}

// overridable reports whether target, declared in owner, can be overridden from
// a subclass named sub.
func overridable(target *classfile.MethodInfo, owner, sub string) bool {
	if target.IsStatic() || target.IsPrivate() || target.IsSynthetic() || target.IsInitializer() {
		return false
	}
	if target.Access&(classfile.AccPublic|classfile.AccProtected) == 0 {
		// package-private
		return packageOf(owner) == packageOf(sub)
	}
	return true
}

func packageOf(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[:i]
	}
	return ""
}
