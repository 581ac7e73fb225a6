package classfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for scanInvocations:
// - tableswitch and lookupswitch padding is computed relative to code start
// - wide and wide iinc are skipped with the right lengths
// - invokedynamic operands are not mistaken for method references
// - non-method constants behind invoke opcodes are ignored
// - unknown opcodes and truncated instructions fail

// testPool returns a pool where #5 is Methodref a/B.run()V and #6 a String.
func testPool() constantPool {
	return constantPool{
		{},
		{tag: tagUtf8, utf8: "a/B"},
		{tag: tagClass, a: 1},
		{tag: tagUtf8, utf8: "run"},
		{tag: tagNameAndType, a: 3, b: 7},
		{tag: tagMethodref, a: 2, b: 4},
		{tag: tagString, a: 3},
		{tag: tagUtf8, utf8: "()V"},
	}
}

var runRef = MemberRef{Owner: "a/B", Name: "run", Descriptor: "()V"}

func TestScanInvocations_TableSwitch(t *testing.T) {
	t.Parallel()

	code := []byte{
		0x03,             // iconst_0 (pc 0)
		0xaa,             // tableswitch (pc 1), pads to 4
		0x00, 0x00,       // padding
		0, 0, 0, 20,      // default
		0, 0, 0, 0,       // low
		0, 0, 0, 1,       // high
		0, 0, 0, 20,      // offset 0
		0, 0, 0, 20,      // offset 1
		0xb6, 0x00, 0x05, // invokevirtual #5
		0xb1, // return
	}

	refs, err := scanInvocations(code, testPool())
	require.NoError(t, err)
	assert.Equal(t, []MemberRef{runRef}, refs)
}

func TestScanInvocations_LookupSwitch(t *testing.T) {
	t.Parallel()

	code := []byte{
		0xab,        // lookupswitch (pc 0), pads to 4
		0, 0, 0,     // padding
		0, 0, 0, 28, // default
		0, 0, 0, 2, // npairs
		0, 0, 0, 1, 0, 0, 0, 28,
		0, 0, 0, 7, 0, 0, 0, 28,
		0xb8, 0x00, 0x05, // invokestatic #5
		0xb1,
	}

	refs, err := scanInvocations(code, testPool())
	require.NoError(t, err)
	assert.Equal(t, []MemberRef{runRef}, refs)
}

func TestScanInvocations_WideAndDynamic(t *testing.T) {
	t.Parallel()

	code := []byte{
		0xc4, 0x15, 0x01, 0x00, // wide iload 256
		0xc4, 0x84, 0x01, 0x00, 0x00, 0x05, // wide iinc 256 5
		0xba, 0x00, 0x05, 0x00, 0x00, // invokedynamic (index not a Methodref in real code)
		0xb7, 0x00, 0x05, // invokespecial #5
		0xb1,
	}

	refs, err := scanInvocations(code, testPool())
	require.NoError(t, err)
	assert.Equal(t, []MemberRef{runRef}, refs)
}

func TestScanInvocations_NonMethodConstantIgnored(t *testing.T) {
	t.Parallel()

	refs, err := scanInvocations([]byte{0xb6, 0x00, 0x06, 0xb1}, testPool())
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestScanInvocations_Errors(t *testing.T) {
	t.Parallel()

	_, err := scanInvocations([]byte{0xfe}, testPool())
	assert.Error(t, err)

	_, err = scanInvocations([]byte{0xb6, 0x00}, testPool())
	assert.ErrorIs(t, err, ErrTruncated)

	_, err = scanInvocations([]byte{0xaa, 0, 0, 0, 0, 0}, testPool())
	assert.ErrorIs(t, err, ErrTruncated)

	_, err = scanInvocations([]byte{0xb6, 0x00, 0x40}, testPool())
	assert.ErrorIs(t, err, ErrBadConstant)
}

func TestDecodeModifiedUTF8_EncodedNul(t *testing.T) {
	t.Parallel()

	s, err := decodeModifiedUTF8([]byte{'a', 0xC0, 0x80, 'b'})
	require.NoError(t, err)
	assert.Equal(t, "a\x00b", s)

	_, err = decodeModifiedUTF8([]byte{0xF0, 0x9F, 0x98, 0x80})
	assert.ErrorIs(t, err, ErrBadConstant)
}
