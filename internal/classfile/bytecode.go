package classfile

import (
	"encoding/binary"
	"fmt"
)

const (
	opTableSwitch     = 0xaa
	opLookupSwitch    = 0xab
	opInvokeVirtual   = 0xb6
	opInvokeSpecial   = 0xb7
	opInvokeStatic    = 0xb8
	opInvokeInterface = 0xb9
	opWide            = 0xc4
	opIinc            = 0x84
)

// opcodeLengths holds the fixed instruction length (opcode included) of every
// opcode. Zero marks the variable-length switches and wide, and undefined opcodes.
var opcodeLengths = func() [256]uint8 {
	var t [256]uint8
	for op := 0x00; op <= 0xc9; op++ {
		t[op] = 1
	}
	set := func(n uint8, ops ...int) {
		for _, op := range ops {
			t[op] = n
		}
	}
	// bipush ldc ret newarray
	set(2, 0x10, 0x12, 0xa9, 0xbc)
	// sipush ldc_w ldc2_w iinc
	set(3, 0x11, 0x13, 0x14, 0x84)
	// xload, xstore
	set(2, 0x15, 0x16, 0x17, 0x18, 0x19)
	set(2, 0x36, 0x37, 0x38, 0x39, 0x3a)
	// if*, goto, jsr
	for op := 0x99; op <= 0xa8; op++ {
		t[op] = 3
	}
	// field access and invoke{virtual,special,static}
	for op := 0xb2; op <= 0xb8; op++ {
		t[op] = 3
	}
	// invokeinterface invokedynamic
	set(5, 0xb9, 0xba)
	// new anewarray checkcast instanceof
	set(3, 0xbb, 0xbd, 0xc0, 0xc1)
	// multianewarray
	set(4, 0xc5)
	// ifnull ifnonnull
	set(3, 0xc6, 0xc7)
	// goto_w jsr_w
	set(5, 0xc8, 0xc9)
	set(0, opTableSwitch, opLookupSwitch, opWide)
	return t
}()

// scanInvocations walks a Code array and returns every Methodref or
// InterfaceMethodref target of an invoke instruction, in code order.
func scanInvocations(code []byte, pool constantPool) ([]MemberRef, error) {
	var refs []MemberRef
	for pc := 0; pc < len(code); {
		op := code[pc]
		size, err := instructionLength(code, pc)
		if err != nil {
			return nil, err
		}
		switch op {
		case opInvokeVirtual, opInvokeSpecial, opInvokeStatic, opInvokeInterface:
			idx := binary.BigEndian.Uint16(code[pc+1 : pc+3])
			ref, ok, err := pool.methodRef(idx)
			if err != nil {
				return nil, fmt.Errorf("pc %d: %w", pc, err)
			}
			if ok {
				refs = append(refs, ref)
			}
		}
		pc += size
	}
	return refs, nil
}

func instructionLength(code []byte, pc int) (int, error) {
	op := code[pc]
	var size int
	switch op {
	case opTableSwitch, opLookupSwitch:
		base := pc + 1 + (4-(pc+1)%4)%4
		if base+12 > len(code) {
			return 0, fmt.Errorf("%w: switch at pc %d", ErrTruncated, pc)
		}
		if op == opTableSwitch {
			low := int32(binary.BigEndian.Uint32(code[base+4:]))
			high := int32(binary.BigEndian.Uint32(code[base+8:]))
			if high < low {
				return 0, fmt.Errorf("%w: tableswitch bounds at pc %d", ErrTruncated, pc)
			}
			size = base + 12 + 4*int(int64(high)-int64(low)+1) - pc
		} else {
			pairs := int32(binary.BigEndian.Uint32(code[base+4:]))
			if pairs < 0 {
				return 0, fmt.Errorf("%w: lookupswitch pairs at pc %d", ErrTruncated, pc)
			}
			size = base + 8 + 8*int(pairs) - pc
		}
	case opWide:
		if pc+1 >= len(code) {
			return 0, fmt.Errorf("%w: wide at pc %d", ErrTruncated, pc)
		}
		size = 4
		if code[pc+1] == opIinc {
			size = 6
		}
	default:
		size = int(opcodeLengths[op])
		if size == 0 {
			return 0, fmt.Errorf("unknown opcode 0x%02x at pc %d", op, pc)
		}
	}
	if pc+size > len(code) {
		return 0, fmt.Errorf("%w: instruction 0x%02x at pc %d", ErrTruncated, op, pc)
	}
	return size, nil
}
