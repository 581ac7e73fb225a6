// Package cleaner removes build-specific variance from structural records so two
// compilations of the same sources describe identically.
//
// Clean mutates a record in place and is idempotent. It reads other classes
// through a Resolver (library classes included) but only looks at declarations
// it never changes, so the order in which records are cleaned does not matter.
package cleaner

import (
	"regexp"

	"github.com/mvp-joe/jarmeta/internal/classfile"
)

// Resolver looks up classes of the symbol space by internal name.
type Resolver interface {
	ClassInfo(name string) (*classfile.ClassInfo, bool)
}

// accessorPattern matches javac's synthetic outer-access methods.
var accessorPattern = regexp.MustCompile(`^access\$\d+$`)

const assertionsField = "$assertionsDisabled"

// Cleaner applies the normalization rules.
type Cleaner struct {
	resolver Resolver
}

// New creates a Cleaner that resolves super types through resolver.
func New(resolver Resolver) *Cleaner {
	return &Cleaner{resolver: resolver}
}

// Clean normalizes info in place.
func (c *Cleaner) Clean(info *classfile.ClassInfo) {
	info.SourceFile = ""
	info.InnerClasses = ownInnerClasses(info)
	info.Fields = withoutAssertionsField(info.Fields)
	info.Methods = withoutAccessors(info.Methods)

	for _, m := range info.Methods {
		if m.IsBridge() && len(m.Invocations) > 0 {
			m.BouncingTarget = bouncingTarget(info.Name, m)
		}
		m.Invocations = nil
		m.Overrides = c.overrides(info, m)
	}
}

// ownInnerClasses keeps rows where this class is the inner or outer side.
// javac also lists every nested type the class merely references.
func ownInnerClasses(info *classfile.ClassInfo) []classfile.InnerClassEntry {
	kept := info.InnerClasses[:0:0]
	for _, e := range info.InnerClasses {
		if e.Inner == info.Name || e.Outer == info.Name {
			kept = append(kept, e)
		}
	}
	return kept
}

func withoutAssertionsField(fields []*classfile.FieldInfo) []*classfile.FieldInfo {
	kept := fields[:0:0]
	for _, f := range fields {
		if f.Name == assertionsField && f.Access&classfile.AccSynthetic != 0 && f.Access&classfile.AccStatic != 0 {
			continue
		}
		kept = append(kept, f)
	}
	return kept
}

func withoutAccessors(methods []*classfile.MethodInfo) []*classfile.MethodInfo {
	kept := methods[:0:0]
	for _, m := range methods {
		if m.IsSynthetic() && m.IsStatic() && accessorPattern.MatchString(m.Name) {
			continue
		}
		kept = append(kept, m)
	}
	return kept
}

// bouncingTarget finds the method a bridge forwards to: the first invocation
// of a same-named method on the bridge's own class with another descriptor.
func bouncingTarget(owner string, bridge *classfile.MethodInfo) *classfile.MemberRef {
	for _, ref := range bridge.Invocations {
		if ref.Owner == owner && ref.Name == bridge.Name && ref.Descriptor != bridge.Descriptor {
			target := ref
			return &target
		}
	}
	return nil
}
