package classfile

import (
	"fmt"
	"unicode/utf16"
)

// Constant pool tags.
const (
	tagUtf8               = 1
	tagInteger            = 3
	tagFloat              = 4
	tagLong               = 5
	tagDouble             = 6
	tagClass              = 7
	tagString             = 8
	tagFieldref           = 9
	tagMethodref          = 10
	tagInterfaceMethodref = 11
	tagNameAndType        = 12
	tagMethodHandle       = 15
	tagMethodType         = 16
	tagDynamic            = 17
	tagInvokeDynamic      = 18
	tagModule             = 19
	tagPackage            = 20
)

type constant struct {
	tag  uint8
	utf8 string
	a, b uint16 // indices, meaning depends on tag
}

type constantPool []constant

func readConstantPool(r *reader) (constantPool, error) {
	count := int(r.u2())
	pool := make(constantPool, count)
	for i := 1; i < count; i++ {
		tag := r.u1()
		c := constant{tag: tag}
		switch tag {
		case tagUtf8:
			n := int(r.u2())
			raw := r.take(n)
			if r.err != nil {
				return nil, r.err
			}
			s, err := decodeModifiedUTF8(raw)
			if err != nil {
				return nil, fmt.Errorf("constant #%d: %w", i, err)
			}
			c.utf8 = s
		case tagInteger, tagFloat:
			r.skip(4)
		case tagLong, tagDouble:
			r.skip(8)
			pool[i] = c
			i++ // eight-byte constants take two slots
			continue
		case tagClass, tagString, tagMethodType, tagModule, tagPackage:
			c.a = r.u2()
		case tagFieldref, tagMethodref, tagInterfaceMethodref, tagNameAndType, tagDynamic, tagInvokeDynamic:
			c.a = r.u2()
			c.b = r.u2()
		case tagMethodHandle:
			c.a = uint16(r.u1())
			c.b = r.u2()
		default:
			if r.err != nil {
				return nil, r.err
			}
			return nil, fmt.Errorf("%w: unknown tag %d at #%d", ErrBadConstant, tag, i)
		}
		if r.err != nil {
			return nil, r.err
		}
		pool[i] = c
	}
	return pool, r.err
}

func (p constantPool) entry(idx uint16, tag uint8) (constant, error) {
	if idx == 0 || int(idx) >= len(p) {
		return constant{}, fmt.Errorf("%w: index %d out of range", ErrBadConstant, idx)
	}
	c := p[idx]
	if c.tag != tag {
		return constant{}, fmt.Errorf("%w: #%d has tag %d, want %d", ErrBadConstant, idx, c.tag, tag)
	}
	return c, nil
}

func (p constantPool) utf8(idx uint16) (string, error) {
	c, err := p.entry(idx, tagUtf8)
	if err != nil {
		return "", err
	}
	return c.utf8, nil
}

// className resolves a CONSTANT_Class index. Index 0 yields "".
func (p constantPool) className(idx uint16) (string, error) {
	if idx == 0 {
		return "", nil
	}
	c, err := p.entry(idx, tagClass)
	if err != nil {
		return "", err
	}
	return p.utf8(c.a)
}

func (p constantPool) nameAndType(idx uint16) (name, descriptor string, err error) {
	c, err := p.entry(idx, tagNameAndType)
	if err != nil {
		return "", "", err
	}
	if name, err = p.utf8(c.a); err != nil {
		return "", "", err
	}
	if descriptor, err = p.utf8(c.b); err != nil {
		return "", "", err
	}
	return name, descriptor, nil
}

// methodRef resolves a Methodref or InterfaceMethodref.
// ok is false when the index points at another constant kind.
func (p constantPool) methodRef(idx uint16) (ref MemberRef, ok bool, err error) {
	if idx == 0 || int(idx) >= len(p) {
		return MemberRef{}, false, fmt.Errorf("%w: index %d out of range", ErrBadConstant, idx)
	}
	c := p[idx]
	if c.tag != tagMethodref && c.tag != tagInterfaceMethodref {
		return MemberRef{}, false, nil
	}
	owner, err := p.className(c.a)
	if err != nil {
		return MemberRef{}, false, err
	}
	name, desc, err := p.nameAndType(c.b)
	if err != nil {
		return MemberRef{}, false, err
	}
	return MemberRef{Owner: owner, Name: name, Descriptor: desc}, true, nil
}

// decodeModifiedUTF8 decodes the JVM's modified UTF-8: NUL is encoded as two
// bytes and supplementary characters as surrogate pairs of three bytes each.
func decodeModifiedUTF8(b []byte) (string, error) {
	units := make([]uint16, 0, len(b))
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c&0x80 == 0:
			units = append(units, uint16(c))
			i++
		case c&0xE0 == 0xC0:
			if i+1 >= len(b) || b[i+1]&0xC0 != 0x80 {
				return "", fmt.Errorf("%w: bad two-byte sequence at %d", ErrBadConstant, i)
			}
			units = append(units, uint16(c&0x1F)<<6|uint16(b[i+1]&0x3F))
			i += 2
		case c&0xF0 == 0xE0:
			if i+2 >= len(b) || b[i+1]&0xC0 != 0x80 || b[i+2]&0xC0 != 0x80 {
				return "", fmt.Errorf("%w: bad three-byte sequence at %d", ErrBadConstant, i)
			}
			units = append(units, uint16(c&0x0F)<<12|uint16(b[i+1]&0x3F)<<6|uint16(b[i+2]&0x3F))
			i += 3
		default:
			return "", fmt.Errorf("%w: invalid byte 0x%02x at %d", ErrBadConstant, c, i)
		}
	}
	return string(utf16.Decode(units)), nil
}
