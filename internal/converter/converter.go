// Package converter maps cleaned structural records to the public metadata schema.
package converter

import (
	"fmt"

	"github.com/mvp-joe/jarmeta/internal/classfile"
	"github.com/mvp-joe/jarmeta/internal/metadata"
)

// ConversionError reports a structurally malformed record.
type ConversionError struct {
	Class  string
	Reason string
}

func (e *ConversionError) Error() string {
	if e.Class == "" {
		return fmt.Sprintf("conversion failed: %s", e.Reason)
	}
	return fmt.Sprintf("conversion of %s failed: %s", e.Class, e.Reason)
}

// Owner returns the enclosing class recorded for info: the outer class of its
// own InnerClasses row, else the class named by EnclosingMethod. It returns ""
// for top-level classes.
func Owner(info *classfile.ClassInfo) string {
	if e, ok := info.OwnEntry(); ok && e.Outer != "" {
		return e.Outer
	}
	if info.EnclosingMethod != nil {
		return info.EnclosingMethod.Class
	}
	return ""
}

// Convert maps a cleaned record to ClassMetadata. InnerClasses is left empty.
func Convert(info *classfile.ClassInfo) (metadata.ClassMetadata, error) {
	if info == nil {
		return metadata.ClassMetadata{}, &ConversionError{Reason: "nil record"}
	}
	if info.Name == "" {
		return metadata.ClassMetadata{}, &ConversionError{Reason: "class has no name"}
	}
	owner := Owner(info)
	if owner == info.Name {
		return metadata.ClassMetadata{}, &ConversionError{Class: info.Name, Reason: "class is its own owner"}
	}

	out := metadata.ClassMetadata{
		Name:                  info.Name,
		Owner:                 owner,
		SuperName:             info.SuperName,
		Interfaces:            append([]string(nil), info.Interfaces...),
		SecuritySpecification: int(info.Access),
		Signature:             info.Signature,
	}

	for i, f := range info.Fields {
		if f.Name == "" || f.Descriptor == "" {
			return metadata.ClassMetadata{}, &ConversionError{Class: info.Name, Reason: fmt.Sprintf("field #%d has an empty name or descriptor", i)}
		}
		out.Fields = append(out.Fields, metadata.FieldMetadata{
			Name:                  f.Name,
			Descriptor:            f.Descriptor,
			Signature:             f.Signature,
			SecuritySpecification: int(f.Access),
			Deprecated:            f.Deprecated,
		})
	}

	for i, m := range info.Methods {
		if m.Name == "" || m.Descriptor == "" {
			return metadata.ClassMetadata{}, &ConversionError{Class: info.Name, Reason: fmt.Sprintf("method #%d has an empty name or descriptor", i)}
		}
		out.Methods = append(out.Methods, convertMethod(m))
	}

	for i, rc := range info.RecordComponents {
		if rc.Name == "" || rc.Descriptor == "" {
			return metadata.ClassMetadata{}, &ConversionError{Class: info.Name, Reason: fmt.Sprintf("record component #%d has an empty name or descriptor", i)}
		}
		out.Records = append(out.Records, metadata.RecordMetadata{
			Name:       rc.Name,
			Descriptor: rc.Descriptor,
			Signature:  rc.Signature,
		})
	}
	return out, nil
}

func convertMethod(m *classfile.MethodInfo) metadata.MethodMetadata {
	out := metadata.MethodMetadata{
		Name:                  m.Name,
		Descriptor:            m.Descriptor,
		Signature:             m.Signature,
		SecuritySpecification: int(m.Access),
		Deprecated:            m.Deprecated,
		Exceptions:            append([]string(nil), m.Exceptions...),
	}
	if m.BouncingTarget != nil {
		ref := reference(*m.BouncingTarget)
		out.BouncingTarget = &ref
	}
	for _, o := range m.Overrides {
		out.Overrides = append(out.Overrides, reference(o))
	}
	return out
}

func reference(r classfile.MemberRef) metadata.Reference {
	return metadata.Reference{Owner: r.Owner, Name: r.Name, Descriptor: r.Descriptor}
}
