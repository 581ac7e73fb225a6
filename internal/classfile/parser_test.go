package classfile_test

import (
	"testing"

	"github.com/mvp-joe/jarmeta/internal/classfile"
	"github.com/mvp-joe/jarmeta/internal/classfile/classfiletest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Parse:
// - Header: name, super, interfaces, access, version, signature, source file
// - Fields and methods keep declaration order, descriptors and signatures
// - Exceptions attribute is read
// - Invocations are collected from Code in order, interface calls included
// - InnerClasses and EnclosingMethod rows are read, zero indices become ""
// - Record components are read with their signatures
// - Abstract methods have no invocations
// - Bad magic, truncated input and mistyped constants fail with sentinels

func TestParse_Header(t *testing.T) {
	t.Parallel()

	data := classfiletest.Class{
		Name:       "net/example/Widget",
		Super:      "net/example/Base",
		Interfaces: []string{"java/lang/Runnable", "java/io/Serializable"},
		Access:     classfile.AccPublic | classfile.AccSuper,
		Signature:  "Lnet/example/Base;Ljava/lang/Runnable;",
		SourceFile: "Widget.java",
		Major:      65,
	}.Bytes()

	info, err := classfile.Parse(data)
	require.NoError(t, err)

	assert.Equal(t, "net/example/Widget", info.Name)
	assert.Equal(t, "net/example/Base", info.SuperName)
	assert.Equal(t, []string{"java/lang/Runnable", "java/io/Serializable"}, info.Interfaces)
	assert.Equal(t, classfile.AccPublic|classfile.AccSuper, info.Access)
	assert.Equal(t, "Lnet/example/Base;Ljava/lang/Runnable;", info.Signature)
	assert.Equal(t, "Widget.java", info.SourceFile)
	assert.Equal(t, uint16(65), info.MajorVersion)
	assert.False(t, info.IsInterface())
}

func TestParse_NoSuperClass(t *testing.T) {
	t.Parallel()

	info, err := classfile.Parse(classfiletest.Class{Name: "java/lang/Object", Super: classfiletest.NoSuper}.Bytes())
	require.NoError(t, err)
	assert.Empty(t, info.SuperName)
	assert.Empty(t, info.Interfaces)
}

func TestParse_Members(t *testing.T) {
	t.Parallel()

	base := classfile.MemberRef{Owner: "net/example/Base", Name: "tick", Descriptor: "()V"}
	listener := classfile.MemberRef{Owner: "net/example/Listener", Name: "onTick", Descriptor: "(I)V"}

	data := classfiletest.Class{
		Name: "net/example/Widget",
		Fields: []classfiletest.Field{
			{Name: "count", Descriptor: "I", Access: classfile.AccPrivate},
			{Name: "items", Descriptor: "Ljava/util/List;", Signature: "Ljava/util/List<Ljava/lang/String;>;"},
		},
		Methods: []classfiletest.Method{
			{Name: "<init>", Descriptor: "()V"},
			{
				Name:       "tick",
				Descriptor: "()V",
				Access:     classfile.AccPublic,
				Exceptions: []string{"java/io/IOException"},
				Invokes: []classfiletest.Invoke{
					{Ref: base},
					{Ref: listener, Interface: true},
				},
			},
			{Name: "render", Descriptor: "()V", Access: classfile.AccAbstract},
		},
	}.Bytes()

	info, err := classfile.Parse(data)
	require.NoError(t, err)

	require.Len(t, info.Fields, 2)
	assert.Equal(t, "count", info.Fields[0].Name)
	assert.Equal(t, "I", info.Fields[0].Descriptor)
	assert.Equal(t, classfile.AccPrivate, info.Fields[0].Access)
	assert.Equal(t, "Ljava/util/List<Ljava/lang/String;>;", info.Fields[1].Signature)

	require.Len(t, info.Methods, 3)
	assert.Equal(t, "<init>", info.Methods[0].Name)
	assert.True(t, info.Methods[0].IsInitializer())

	tick, ok := info.Method("tick", "()V")
	require.True(t, ok)
	assert.Equal(t, []string{"java/io/IOException"}, tick.Exceptions)
	assert.Equal(t, []classfile.MemberRef{base, listener}, tick.Invocations)

	render, ok := info.Method("render", "()V")
	require.True(t, ok)
	assert.Empty(t, render.Invocations)

	_, ok = info.Method("tick", "(I)V")
	assert.False(t, ok)
}

func TestParse_ContainmentAttributes(t *testing.T) {
	t.Parallel()

	data := classfiletest.Class{
		Name: "net/example/Outer$1",
		InnerClasses: []classfile.InnerClassEntry{
			{Inner: "net/example/Outer$1"},
			{Inner: "java/util/Map$Entry", Outer: "java/util/Map", SimpleName: "Entry", InnerAccess: classfile.AccPublic | classfile.AccStatic | classfile.AccInterface},
		},
		EnclosingMethod: &classfile.EnclosingMethod{Class: "net/example/Outer", Name: "run", Descriptor: "()V"},
	}.Bytes()

	info, err := classfile.Parse(data)
	require.NoError(t, err)

	require.Len(t, info.InnerClasses, 2)
	own, ok := info.OwnEntry()
	require.True(t, ok)
	assert.Equal(t, classfile.InnerClassEntry{Inner: "net/example/Outer$1"}, own)
	assert.Equal(t, "java/util/Map", info.InnerClasses[1].Outer)
	assert.Equal(t, "Entry", info.InnerClasses[1].SimpleName)

	require.NotNil(t, info.EnclosingMethod)
	assert.Equal(t, classfile.EnclosingMethod{Class: "net/example/Outer", Name: "run", Descriptor: "()V"}, *info.EnclosingMethod)
}

func TestParse_EnclosingMethodWithoutMethod(t *testing.T) {
	t.Parallel()

	data := classfiletest.Class{
		Name:            "net/example/Outer$1",
		EnclosingMethod: &classfile.EnclosingMethod{Class: "net/example/Outer"},
	}.Bytes()

	info, err := classfile.Parse(data)
	require.NoError(t, err)
	require.NotNil(t, info.EnclosingMethod)
	assert.Equal(t, "net/example/Outer", info.EnclosingMethod.Class)
	assert.Empty(t, info.EnclosingMethod.Name)
}

func TestParse_RecordComponents(t *testing.T) {
	t.Parallel()

	data := classfiletest.Class{
		Name:  "net/example/Point",
		Super: "java/lang/Record",
		Records: []classfile.RecordComponent{
			{Name: "x", Descriptor: "I"},
			{Name: "tags", Descriptor: "Ljava/util/List;", Signature: "Ljava/util/List<Ljava/lang/String;>;"},
		},
	}.Bytes()

	info, err := classfile.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, []classfile.RecordComponent{
		{Name: "x", Descriptor: "I"},
		{Name: "tags", Descriptor: "Ljava/util/List;", Signature: "Ljava/util/List<Ljava/lang/String;>;"},
	}, info.RecordComponents)
}

func TestParse_UnicodeNames(t *testing.T) {
	t.Parallel()

	// Exercises two-byte, three-byte and surrogate pair encodings.
	name := "net/example/Café世\U0001F600"
	info, err := classfile.Parse(classfiletest.Class{Name: name}.Bytes())
	require.NoError(t, err)
	assert.Equal(t, name, info.Name)
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	valid := classfiletest.Class{Name: "net/example/Widget"}.Bytes()

	t.Run("bad magic", func(t *testing.T) {
		t.Parallel()
		data := append([]byte{0xDE, 0xAD, 0xBE, 0xEF}, valid[4:]...)
		_, err := classfile.Parse(data)
		assert.ErrorIs(t, err, classfile.ErrInvalidMagic)
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		_, err := classfile.Parse(nil)
		assert.ErrorIs(t, err, classfile.ErrTruncated)
	})

	t.Run("truncated", func(t *testing.T) {
		t.Parallel()
		for _, n := range []int{6, 10, len(valid) / 2, len(valid) - 1} {
			_, err := classfile.Parse(valid[:n])
			assert.ErrorIs(t, err, classfile.ErrTruncated, "cut at %d", n)
		}
	})

	t.Run("this_class points at utf8", func(t *testing.T) {
		t.Parallel()
		data := append([]byte(nil), valid...)
		// constant #1 is the Utf8 class name, #2 the Class entry; retarget this_class to #1
		off := thisClassOffset(t, data)
		data[off], data[off+1] = 0, 1
		_, err := classfile.Parse(data)
		assert.ErrorIs(t, err, classfile.ErrBadConstant)
	})
}

// thisClassOffset locates this_class in a file whose pool is only Utf8 and Class entries.
func thisClassOffset(t *testing.T, data []byte) int {
	t.Helper()
	count := int(data[8])<<8 | int(data[9])
	pos := 10
	for i := 1; i < count; i++ {
		switch data[pos] {
		case 1:
			n := int(data[pos+1])<<8 | int(data[pos+2])
			pos += 3 + n
		case 7:
			pos += 3
		default:
			t.Fatalf("unexpected tag %d", data[pos])
		}
	}
	return pos + 2 // skip access_flags
}
