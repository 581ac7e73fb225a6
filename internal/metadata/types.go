// Package metadata defines the versioned public schema for extracted class
// structure and the dataset that carries it.
package metadata

import "encoding/json"

// Reference points at a member of a class.
type Reference struct {
	Owner      string `json:"owner"`
	Name       string `json:"name"`
	Descriptor string `json:"descriptor"`
}

// FieldMetadata describes a declared field.
type FieldMetadata struct {
	Name                  string `json:"name"`
	Descriptor            string `json:"descriptor"`
	Signature             string `json:"signature,omitempty"`
	SecuritySpecification int    `json:"securitySpecification"` // JVM access flags
	Deprecated            bool   `json:"deprecated,omitempty"`
}

// MethodMetadata describes a declared method.
type MethodMetadata struct {
	Name                  string      `json:"name"`
	Descriptor            string      `json:"descriptor"`
	Signature             string      `json:"signature,omitempty"`
	SecuritySpecification int         `json:"securitySpecification"`
	Deprecated            bool        `json:"deprecated,omitempty"`
	Exceptions            []string    `json:"exceptions"`
	BouncingTarget        *Reference  `json:"bouncingTarget,omitempty"` // set on bridges
	Overrides             []Reference `json:"overrides"`
}

// RecordMetadata describes a record component.
type RecordMetadata struct {
	Name       string `json:"name"`
	Descriptor string `json:"descriptor"`
	Signature  string `json:"signature,omitempty"`
}

// ClassMetadata describes one class. Owner is empty for classes without an
// enclosing class. InnerClasses is filled by hierarchy reassembly.
type ClassMetadata struct {
	Name                  string           `json:"name"`
	Owner                 string           `json:"owner,omitempty"`
	SuperName             string           `json:"superName,omitempty"`
	Interfaces            []string         `json:"interfaces"`
	SecuritySpecification int              `json:"securitySpecification"`
	Signature             string           `json:"signature,omitempty"`
	Fields                []FieldMetadata  `json:"fields"`
	Methods               []MethodMetadata `json:"methods"`
	Records               []RecordMetadata `json:"records"`
	InnerClasses          []ClassMetadata  `json:"innerClasses"`
}

// HasOwner reports whether the class declares an enclosing class.
func (c ClassMetadata) HasOwner() bool { return c.Owner != "" }

// Count returns the number of classes in the tree rooted at c, c included.
func (c ClassMetadata) Count() int {
	n := 1
	for _, inner := range c.InnerClasses {
		n += inner.Count()
	}
	return n
}

// Clone returns a deep copy of c.
func (c ClassMetadata) Clone() ClassMetadata {
	out := c
	out.Interfaces = cloneSlice(c.Interfaces)
	out.Records = cloneSlice(c.Records)
	out.Fields = cloneSlice(c.Fields)
	if c.Methods != nil {
		out.Methods = make([]MethodMetadata, len(c.Methods))
		for i, m := range c.Methods {
			out.Methods[i] = m.clone()
		}
	}
	if c.InnerClasses != nil {
		out.InnerClasses = make([]ClassMetadata, len(c.InnerClasses))
		for i, inner := range c.InnerClasses {
			out.InnerClasses[i] = inner.Clone()
		}
	}
	return out
}

func (m MethodMetadata) clone() MethodMetadata {
	out := m
	out.Exceptions = cloneSlice(m.Exceptions)
	out.Overrides = cloneSlice(m.Overrides)
	if m.BouncingTarget != nil {
		target := *m.BouncingTarget
		out.BouncingTarget = &target
	}
	return out
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append(make([]T, 0, len(s)), s...)
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// MarshalJSON writes list fields as [] rather than null.
func (c ClassMetadata) MarshalJSON() ([]byte, error) {
	type plain ClassMetadata
	p := plain(c)
	p.Interfaces = orEmpty(p.Interfaces)
	p.Fields = orEmpty(p.Fields)
	p.Methods = orEmpty(p.Methods)
	p.Records = orEmpty(p.Records)
	p.InnerClasses = orEmpty(p.InnerClasses)
	return json.Marshal(p)
}

// MarshalJSON writes list fields as [] rather than null.
func (m MethodMetadata) MarshalJSON() ([]byte, error) {
	type plain MethodMetadata
	p := plain(m)
	p.Exceptions = orEmpty(p.Exceptions)
	p.Overrides = orEmpty(p.Overrides)
	return json.Marshal(p)
}
