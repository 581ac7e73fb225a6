package classfile

import (
	"errors"
	"fmt"
)

// Magic is the first four bytes of every class file.
const Magic uint32 = 0xCAFEBABE

var (
	// ErrInvalidMagic indicates the input is not a class file
	ErrInvalidMagic = errors.New("invalid class file magic")

	// ErrTruncated indicates the class file ended early
	ErrTruncated = errors.New("truncated class file")

	// ErrBadConstant indicates a malformed or mistyped constant pool reference
	ErrBadConstant = errors.New("bad constant pool entry")
)

// Parse reads a class file.
func Parse(data []byte) (*ClassInfo, error) {
	r := &reader{buf: data}
	if magic := r.u4(); r.err == nil && magic != Magic {
		return nil, fmt.Errorf("%w: 0x%08X", ErrInvalidMagic, magic)
	}
	info := &ClassInfo{}
	info.MinorVersion = r.u2()
	info.MajorVersion = r.u2()
	if r.err != nil {
		return nil, r.err
	}

	pool, err := readConstantPool(r)
	if err != nil {
		return nil, err
	}
	p := &parser{r: r, pool: pool}

	info.Access = r.u2()
	thisIdx, superIdx := r.u2(), r.u2()
	if r.err != nil {
		return nil, r.err
	}
	if info.Name, err = pool.className(thisIdx); err != nil {
		return nil, fmt.Errorf("this_class: %w", err)
	}
	if info.SuperName, err = pool.className(superIdx); err != nil {
		return nil, fmt.Errorf("super_class: %w", err)
	}

	n := int(r.u2())
	info.Interfaces = make([]string, 0, n)
	for i := 0; i < n; i++ {
		name, err := pool.className(r.u2())
		if err != nil {
			return nil, fmt.Errorf("interface %d: %w", i, err)
		}
		info.Interfaces = append(info.Interfaces, name)
	}

	if info.Fields, err = p.fields(); err != nil {
		return nil, fmt.Errorf("%s: %w", info.Name, err)
	}
	if info.Methods, err = p.methods(); err != nil {
		return nil, fmt.Errorf("%s: %w", info.Name, err)
	}
	if err := p.classAttributes(info); err != nil {
		return nil, fmt.Errorf("%s: %w", info.Name, err)
	}
	if r.err != nil {
		return nil, r.err
	}
	return info, nil
}

type parser struct {
	r    *reader
	pool constantPool
}

// attributes iterates attribute_info structures, handing each known attribute's
// body to fn as its own reader. Unknown attributes are skipped.
func (p *parser) attributes(fn func(name string, body *reader) error) error {
	count := int(p.r.u2())
	for i := 0; i < count; i++ {
		nameIdx := p.r.u2()
		length := int(p.r.u4())
		body := p.r.take(length)
		if p.r.err != nil {
			return p.r.err
		}
		name, err := p.pool.utf8(nameIdx)
		if err != nil {
			return fmt.Errorf("attribute name: %w", err)
		}
		sub := &reader{buf: body}
		if err := fn(name, sub); err != nil {
			return fmt.Errorf("%s attribute: %w", name, err)
		}
		if sub.err != nil {
			return fmt.Errorf("%s attribute: %w", name, sub.err)
		}
	}
	return nil
}

func (p *parser) member() (access uint16, name, descriptor string, err error) {
	access = p.r.u2()
	nameIdx, descIdx := p.r.u2(), p.r.u2()
	if p.r.err != nil {
		return 0, "", "", p.r.err
	}
	if name, err = p.pool.utf8(nameIdx); err != nil {
		return 0, "", "", err
	}
	if descriptor, err = p.pool.utf8(descIdx); err != nil {
		return 0, "", "", err
	}
	return access, name, descriptor, nil
}

func (p *parser) fields() ([]*FieldInfo, error) {
	n := int(p.r.u2())
	fields := make([]*FieldInfo, 0, n)
	for i := 0; i < n; i++ {
		access, name, desc, err := p.member()
		if err != nil {
			return nil, fmt.Errorf("field %d: %w", i, err)
		}
		f := &FieldInfo{Name: name, Descriptor: desc, Access: access}
		err = p.attributes(func(attr string, body *reader) error {
			switch attr {
			case "Signature":
				s, err := p.pool.utf8(body.u2())
				f.Signature = s
				return err
			case "Synthetic":
				f.Access |= AccSynthetic
			case "Deprecated":
				f.Deprecated = true
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func (p *parser) methods() ([]*MethodInfo, error) {
	n := int(p.r.u2())
	methods := make([]*MethodInfo, 0, n)
	for i := 0; i < n; i++ {
		access, name, desc, err := p.member()
		if err != nil {
			return nil, fmt.Errorf("method %d: %w", i, err)
		}
		m := &MethodInfo{Name: name, Descriptor: desc, Access: access}
		err = p.attributes(func(attr string, body *reader) error {
			switch attr {
			case "Signature":
				s, err := p.pool.utf8(body.u2())
				m.Signature = s
				return err
			case "Exceptions":
				count := int(body.u2())
				for j := 0; j < count; j++ {
					ex, err := p.pool.className(body.u2())
					if err != nil {
						return err
					}
					m.Exceptions = append(m.Exceptions, ex)
				}
			case "Code":
				refs, err := p.code(body)
				m.Invocations = refs
				return err
			case "Synthetic":
				m.Access |= AccSynthetic
			case "Deprecated":
				m.Deprecated = true
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("method %s%s: %w", name, desc, err)
		}
		methods = append(methods, m)
	}
	return methods, nil
}

func (p *parser) code(body *reader) ([]MemberRef, error) {
	body.skip(4) // max_stack, max_locals
	length := int(body.u4())
	code := body.take(length)
	if body.err != nil {
		return nil, body.err
	}
	// exception table and nested attributes are not needed
	return scanInvocations(code, p.pool)
}

func (p *parser) classAttributes(info *ClassInfo) error {
	return p.attributes(func(attr string, body *reader) error {
		var err error
		switch attr {
		case "SourceFile":
			info.SourceFile, err = p.pool.utf8(body.u2())
		case "Signature":
			info.Signature, err = p.pool.utf8(body.u2())
		case "Synthetic":
			info.Access |= AccSynthetic
		case "InnerClasses":
			count := int(body.u2())
			for i := 0; i < count && err == nil; i++ {
				err = p.innerClass(info, body)
			}
		case "EnclosingMethod":
			err = p.enclosingMethod(info, body)
		case "Record":
			count := int(body.u2())
			for i := 0; i < count && err == nil; i++ {
				err = p.recordComponent(info, body)
			}
		}
		return err
	})
}

func (p *parser) innerClass(info *ClassInfo, body *reader) error {
	innerIdx, outerIdx, nameIdx, access := body.u2(), body.u2(), body.u2(), body.u2()
	if body.err != nil {
		return body.err
	}
	e := InnerClassEntry{InnerAccess: access}
	var err error
	if e.Inner, err = p.pool.className(innerIdx); err != nil {
		return err
	}
	if e.Outer, err = p.pool.className(outerIdx); err != nil {
		return err
	}
	if nameIdx != 0 {
		if e.SimpleName, err = p.pool.utf8(nameIdx); err != nil {
			return err
		}
	}
	info.InnerClasses = append(info.InnerClasses, e)
	return nil
}

func (p *parser) enclosingMethod(info *ClassInfo, body *reader) error {
	classIdx, methodIdx := body.u2(), body.u2()
	if body.err != nil {
		return body.err
	}
	class, err := p.pool.className(classIdx)
	if err != nil {
		return err
	}
	em := &EnclosingMethod{Class: class}
	if methodIdx != 0 {
		if em.Name, em.Descriptor, err = p.pool.nameAndType(methodIdx); err != nil {
			return err
		}
	}
	info.EnclosingMethod = em
	return nil
}

func (p *parser) recordComponent(info *ClassInfo, body *reader) error {
	nameIdx, descIdx := body.u2(), body.u2()
	if body.err != nil {
		return body.err
	}
	rc := RecordComponent{}
	var err error
	if rc.Name, err = p.pool.utf8(nameIdx); err != nil {
		return err
	}
	if rc.Descriptor, err = p.pool.utf8(descIdx); err != nil {
		return err
	}
	// component attributes follow the same layout as class attributes
	attrs := &parser{r: body, pool: p.pool}
	err = attrs.attributes(func(attr string, ab *reader) error {
		if attr == "Signature" {
			s, err := p.pool.utf8(ab.u2())
			rc.Signature = s
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}
	info.RecordComponents = append(info.RecordComponents, rc)
	return nil
}
