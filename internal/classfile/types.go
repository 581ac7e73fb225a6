// Package classfile reads JVM class files into mutable structural records.
//
// Only the parts needed to describe class structure are kept: the class header,
// field and method declarations, the containment attributes (InnerClasses,
// EnclosingMethod), record components and the method references each method body
// invokes. Everything else in the file is skipped.
package classfile

// Access flags shared by classes, fields and methods.
// Some values are reused with different meaning depending on the declaration kind.
const (
	AccPublic       uint16 = 0x0001
	AccPrivate      uint16 = 0x0002
	AccProtected    uint16 = 0x0004
	AccStatic       uint16 = 0x0008
	AccFinal        uint16 = 0x0010
	AccSuper        uint16 = 0x0020 // class
	AccSynchronized uint16 = 0x0020 // method
	AccVolatile     uint16 = 0x0040 // field
	AccBridge       uint16 = 0x0040 // method
	AccTransient    uint16 = 0x0080 // field
	AccVarargs      uint16 = 0x0080 // method
	AccNative       uint16 = 0x0100
	AccInterface    uint16 = 0x0200
	AccAbstract     uint16 = 0x0400
	AccStrict       uint16 = 0x0800
	AccSynthetic    uint16 = 0x1000
	AccAnnotation   uint16 = 0x2000
	AccEnum         uint16 = 0x4000
	AccModule       uint16 = 0x8000
)

// ClassInfo is the structural record of one class.
// Records are mutated in place by the cleaner before conversion.
type ClassInfo struct {
	Name         string // internal binary name, e.g. "net/example/Outer$Inner"
	SuperName    string // empty for java/lang/Object and module-info
	Interfaces   []string
	Access       uint16
	Signature    string
	SourceFile   string
	MajorVersion uint16
	MinorVersion uint16

	InnerClasses    []InnerClassEntry
	EnclosingMethod *EnclosingMethod

	Fields           []*FieldInfo
	Methods          []*MethodInfo
	RecordComponents []RecordComponent
}

// InnerClassEntry is one row of the InnerClasses attribute.
type InnerClassEntry struct {
	Inner       string
	Outer       string // empty for local and anonymous classes
	SimpleName  string // empty for anonymous classes
	InnerAccess uint16
}

// EnclosingMethod identifies the class (and optionally method) that lexically
// encloses a local or anonymous class.
type EnclosingMethod struct {
	Class      string
	Name       string
	Descriptor string
}

// FieldInfo is a declared field.
type FieldInfo struct {
	Name       string
	Descriptor string
	Signature  string
	Access     uint16
	Deprecated bool
}

// MethodInfo is a declared method.
type MethodInfo struct {
	Name       string
	Descriptor string
	Signature  string
	Access     uint16
	Deprecated bool
	Exceptions []string

	// Invocations lists method references invoked by the method body, in code order.
	Invocations []MemberRef

	// Populated by the cleaner.
	BouncingTarget *MemberRef
	Overrides      []MemberRef
}

// RecordComponent is a component of a record class.
type RecordComponent struct {
	Name       string
	Descriptor string
	Signature  string
}

// MemberRef points at a field or method by owner, name and descriptor.
type MemberRef struct {
	Owner      string
	Name       string
	Descriptor string
}

// IsStatic reports whether the method is static.
func (m *MethodInfo) IsStatic() bool { return m.Access&AccStatic != 0 }

// IsPrivate reports whether the method is private.
func (m *MethodInfo) IsPrivate() bool { return m.Access&AccPrivate != 0 }

// IsSynthetic reports whether the method was generated by the compiler.
func (m *MethodInfo) IsSynthetic() bool { return m.Access&AccSynthetic != 0 }

// IsBridge reports whether the method is a compiler bridge.
func (m *MethodInfo) IsBridge() bool { return m.Access&AccBridge != 0 }

// IsInitializer reports whether the method is a constructor or static initializer.
func (m *MethodInfo) IsInitializer() bool {
	return m.Name == "<init>" || m.Name == "<clinit>"
}

// IsInterface reports whether the class is an interface.
func (c *ClassInfo) IsInterface() bool { return c.Access&AccInterface != 0 }

// Method returns the declared method with the given name and descriptor.
func (c *ClassInfo) Method(name, descriptor string) (*MethodInfo, bool) {
	for _, m := range c.Methods {
		if m.Name == name && m.Descriptor == descriptor {
			return m, true
		}
	}
	return nil, false
}

// OwnEntry returns the InnerClasses row that describes this class itself, if any.
func (c *ClassInfo) OwnEntry() (InnerClassEntry, bool) {
	for _, e := range c.InnerClasses {
		if e.Inner == c.Name {
			return e, true
		}
	}
	return InnerClassEntry{}, false
}
