// Package classfiletest assembles class files and jars for tests.
package classfiletest

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"unicode/utf16"

	"github.com/mvp-joe/jarmeta/internal/classfile"
	"github.com/stretchr/testify/require"
)

// Class describes a class file to assemble.
type Class struct {
	Name       string
	Super      string // defaults to java/lang/Object; use NoSuper for none
	Interfaces []string
	Access     uint16
	Signature  string
	SourceFile string
	Major      uint16 // defaults to 61

	InnerClasses    []classfile.InnerClassEntry
	EnclosingMethod *classfile.EnclosingMethod
	Fields          []Field
	Methods         []Method
	Records         []classfile.RecordComponent
}

// NoSuper leaves super_class as zero.
const NoSuper = "-"

// Field describes a field declaration.
type Field struct {
	Name       string
	Descriptor string
	Signature  string
	Access     uint16
}

// Method describes a method declaration. Unless abstract or native it gets a
// Code attribute that performs Invokes in order and returns.
type Method struct {
	Name       string
	Descriptor string
	Signature  string
	Access     uint16
	Exceptions []string
	Invokes    []Invoke
}

// Invoke is one invoke instruction in a generated method body.
type Invoke struct {
	Ref       classfile.MemberRef
	Static    bool
	Interface bool
}

// Bytes assembles the class file.
func (c Class) Bytes() []byte {
	p := newPool()
	var body bytes.Buffer
	w := func(v any) { binary.Write(&body, binary.BigEndian, v) }

	w(c.Access)
	w(p.class(c.Name))
	switch c.Super {
	case NoSuper:
		w(uint16(0))
	case "":
		w(p.class("java/lang/Object"))
	default:
		w(p.class(c.Super))
	}
	w(uint16(len(c.Interfaces)))
	for _, iface := range c.Interfaces {
		w(p.class(iface))
	}

	w(uint16(len(c.Fields)))
	for _, f := range c.Fields {
		w(f.Access)
		w(p.utf8(f.Name))
		w(p.utf8(f.Descriptor))
		var attrs []attribute
		if f.Signature != "" {
			attrs = append(attrs, p.u2Attr("Signature", p.utf8(f.Signature)))
		}
		writeAttrs(&body, attrs)
	}

	w(uint16(len(c.Methods)))
	for _, m := range c.Methods {
		w(m.Access)
		w(p.utf8(m.Name))
		w(p.utf8(m.Descriptor))
		var attrs []attribute
		if m.Access&(classfile.AccAbstract|classfile.AccNative) == 0 {
			attrs = append(attrs, p.codeAttr(m.Invokes))
		}
		if len(m.Exceptions) > 0 {
			var b bytes.Buffer
			binary.Write(&b, binary.BigEndian, uint16(len(m.Exceptions)))
			for _, ex := range m.Exceptions {
				binary.Write(&b, binary.BigEndian, p.class(ex))
			}
			attrs = append(attrs, attribute{p.utf8("Exceptions"), b.Bytes()})
		}
		if m.Signature != "" {
			attrs = append(attrs, p.u2Attr("Signature", p.utf8(m.Signature)))
		}
		writeAttrs(&body, attrs)
	}

	var attrs []attribute
	if c.SourceFile != "" {
		attrs = append(attrs, p.u2Attr("SourceFile", p.utf8(c.SourceFile)))
	}
	if c.Signature != "" {
		attrs = append(attrs, p.u2Attr("Signature", p.utf8(c.Signature)))
	}
	if len(c.InnerClasses) > 0 {
		var b bytes.Buffer
		binary.Write(&b, binary.BigEndian, uint16(len(c.InnerClasses)))
		for _, e := range c.InnerClasses {
			binary.Write(&b, binary.BigEndian, p.class(e.Inner))
			binary.Write(&b, binary.BigEndian, p.optClass(e.Outer))
			var name uint16
			if e.SimpleName != "" {
				name = p.utf8(e.SimpleName)
			}
			binary.Write(&b, binary.BigEndian, name)
			binary.Write(&b, binary.BigEndian, e.InnerAccess)
		}
		attrs = append(attrs, attribute{p.utf8("InnerClasses"), b.Bytes()})
	}
	if em := c.EnclosingMethod; em != nil {
		var b bytes.Buffer
		binary.Write(&b, binary.BigEndian, p.class(em.Class))
		var nat uint16
		if em.Name != "" {
			nat = p.nameAndType(em.Name, em.Descriptor)
		}
		binary.Write(&b, binary.BigEndian, nat)
		attrs = append(attrs, attribute{p.utf8("EnclosingMethod"), b.Bytes()})
	}
	if len(c.Records) > 0 {
		var b bytes.Buffer
		binary.Write(&b, binary.BigEndian, uint16(len(c.Records)))
		for _, rc := range c.Records {
			binary.Write(&b, binary.BigEndian, p.utf8(rc.Name))
			binary.Write(&b, binary.BigEndian, p.utf8(rc.Descriptor))
			var rcAttrs []attribute
			if rc.Signature != "" {
				rcAttrs = append(rcAttrs, p.u2Attr("Signature", p.utf8(rc.Signature)))
			}
			writeAttrs(&b, rcAttrs)
		}
		attrs = append(attrs, attribute{p.utf8("Record"), b.Bytes()})
	}
	writeAttrs(&body, attrs)

	major := c.Major
	if major == 0 {
		major = 61
	}
	var out bytes.Buffer
	binary.Write(&out, binary.BigEndian, classfile.Magic)
	binary.Write(&out, binary.BigEndian, uint16(0))
	binary.Write(&out, binary.BigEndian, major)
	binary.Write(&out, binary.BigEndian, p.count())
	out.Write(p.buf.Bytes())
	out.Write(body.Bytes())
	return out.Bytes()
}

// WriteJar writes classes into a jar at path, one entry per class at
// "<name>.class", plus any extra raw entries.
func WriteJar(t testing.TB, path string, classes []Class, extra map[string][]byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	mf, err := zw.Create("META-INF/MANIFEST.MF")
	require.NoError(t, err)
	_, err = mf.Write([]byte("Manifest-Version: 1.0\r\n\r\n"))
	require.NoError(t, err)
	for _, c := range classes {
		entry, err := zw.Create(c.Name + ".class")
		require.NoError(t, err)
		_, err = entry.Write(c.Bytes())
		require.NoError(t, err)
	}
	for name, data := range extra {
		entry, err := zw.Create(name)
		require.NoError(t, err)
		_, err = entry.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

type attribute struct {
	name uint16
	data []byte
}

func writeAttrs(buf *bytes.Buffer, attrs []attribute) {
	binary.Write(buf, binary.BigEndian, uint16(len(attrs)))
	for _, a := range attrs {
		binary.Write(buf, binary.BigEndian, a.name)
		binary.Write(buf, binary.BigEndian, uint32(len(a.data)))
		buf.Write(a.data)
	}
}

type pool struct {
	buf   bytes.Buffer
	next  uint16
	index map[string]uint16
}

func newPool() *pool {
	return &pool{next: 1, index: make(map[string]uint16)}
}

func (p *pool) count() uint16 { return p.next }

func (p *pool) add(key string, write func(b *bytes.Buffer)) uint16 {
	if idx, ok := p.index[key]; ok {
		return idx
	}
	idx := p.next
	write(&p.buf)
	p.next++
	p.index[key] = idx
	return idx
}

func (p *pool) utf8(s string) uint16 {
	return p.add("u:"+s, func(b *bytes.Buffer) {
		enc := encodeModifiedUTF8(s)
		b.WriteByte(1)
		binary.Write(b, binary.BigEndian, uint16(len(enc)))
		b.Write(enc)
	})
}

func (p *pool) class(name string) uint16 {
	nameIdx := p.utf8(name)
	return p.add("c:"+name, func(b *bytes.Buffer) {
		b.WriteByte(7)
		binary.Write(b, binary.BigEndian, nameIdx)
	})
}

func (p *pool) optClass(name string) uint16 {
	if name == "" {
		return 0
	}
	return p.class(name)
}

func (p *pool) nameAndType(name, desc string) uint16 {
	n, d := p.utf8(name), p.utf8(desc)
	return p.add("nt:"+name+":"+desc, func(b *bytes.Buffer) {
		b.WriteByte(12)
		binary.Write(b, binary.BigEndian, n)
		binary.Write(b, binary.BigEndian, d)
	})
}

func (p *pool) methodRef(ref classfile.MemberRef, iface bool) uint16 {
	owner := p.class(ref.Owner)
	nat := p.nameAndType(ref.Name, ref.Descriptor)
	tag := byte(10)
	if iface {
		tag = 11
	}
	return p.add(fmt.Sprintf("m%d:%s.%s%s", tag, ref.Owner, ref.Name, ref.Descriptor), func(b *bytes.Buffer) {
		b.WriteByte(tag)
		binary.Write(b, binary.BigEndian, owner)
		binary.Write(b, binary.BigEndian, nat)
	})
}

func (p *pool) u2Attr(name string, value uint16) attribute {
	var b bytes.Buffer
	binary.Write(&b, binary.BigEndian, value)
	return attribute{p.utf8(name), b.Bytes()}
}

func (p *pool) codeAttr(invokes []Invoke) attribute {
	var code bytes.Buffer
	for _, inv := range invokes {
		idx := p.methodRef(inv.Ref, inv.Interface)
		switch {
		case inv.Interface:
			code.WriteByte(0xb9)
			binary.Write(&code, binary.BigEndian, idx)
			code.WriteByte(1)
			code.WriteByte(0)
		case inv.Static:
			code.WriteByte(0xb8)
			binary.Write(&code, binary.BigEndian, idx)
		default:
			code.WriteByte(0xb6)
			binary.Write(&code, binary.BigEndian, idx)
		}
	}
	code.WriteByte(0xb1) // return

	var b bytes.Buffer
	binary.Write(&b, binary.BigEndian, uint16(4)) // max_stack
	binary.Write(&b, binary.BigEndian, uint16(4)) // max_locals
	binary.Write(&b, binary.BigEndian, uint32(code.Len()))
	b.Write(code.Bytes())
	binary.Write(&b, binary.BigEndian, uint16(0)) // exception_table_length
	binary.Write(&b, binary.BigEndian, uint16(0)) // attributes_count
	return attribute{p.utf8("Code"), b.Bytes()}
}

func encodeModifiedUTF8(s string) []byte {
	var out []byte
	for _, u := range utf16.Encode([]rune(s)) {
		switch {
		case u != 0 && u < 0x80:
			out = append(out, byte(u))
		case u < 0x800:
			out = append(out, 0xC0|byte(u>>6), 0x80|byte(u&0x3F))
		default:
			out = append(out, 0xE0|byte(u>>12), 0x80|byte((u>>6)&0x3F), 0x80|byte(u&0x3F))
		}
	}
	return out
}
