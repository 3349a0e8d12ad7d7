package bytecode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf16"
)

var (
	// ErrBadMagic is returned by [Parse] when the content does not start
	// with the 0xCAFEBABE class file signature.
	ErrBadMagic = errors.New("not a class file")

	// ErrTruncated is returned by [Parse] when the content ends before the
	// structure it announces is complete.
	ErrTruncated = errors.New("truncated class file")

	// ErrBadConstant is returned by [Parse] when a constant pool entry has an
	// unknown tag or an index points at an entry of the wrong kind.
	ErrBadConstant = errors.New("malformed constant pool")
)

const magic = 0xCAFEBABE

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

// Attribute is a raw class, field or method attribute.
type Attribute struct {
	Name string
	Data []byte
}

// Member is a field or a method.
type Member struct {
	Access     uint16
	Name       string
	Descriptor string
	Attributes []Attribute
}

// ClassFile is the subset of a JVM class file needed for dependency
// extraction. Class names use the internal form ("com/example/Foo").
type ClassFile struct {
	Major, Minor uint16
	Access       uint16
	ThisClass    string
	SuperClass   string // empty for java/lang/Object and module-info
	Interfaces   []string
	Fields       []Member
	Methods      []Member
	Attributes   []Attribute

	pool []constant
}

type constant struct {
	tag  uint8
	a, b uint16 // index operands, meaning depends on tag
	utf8 string
}

// MemberRef is a field or method reference from the constant pool.
type MemberRef struct {
	Owner      string
	Name       string
	Descriptor string
}

// Parse reads a class file. Only the structure is validated; bytecode in
// Code attributes is not interpreted.
func Parse(r io.Reader) (*ClassFile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return ParseBytes(data)
}

// ParseBytes is like [Parse] for content already in memory.
func ParseBytes(data []byte) (*ClassFile, error) {
	c := &cursor{data: data}
	if c.u4() != magic {
		if c.err != nil {
			return nil, c.err
		}
		return nil, ErrBadMagic
	}

	cf := &ClassFile{}
	cf.Minor = c.u2()
	cf.Major = c.u2()

	if err := cf.readPool(c); err != nil {
		return nil, err
	}

	cf.Access = c.u2()
	thisIndex := c.u2()
	superIndex := c.u2()
	ifaceCount := int(c.u2())
	if c.err != nil {
		return nil, c.err
	}

	var err error
	if cf.ThisClass, err = cf.className(thisIndex); err != nil {
		return nil, err
	}
	if superIndex != 0 {
		if cf.SuperClass, err = cf.className(superIndex); err != nil {
			return nil, err
		}
	}
	for range ifaceCount {
		name, err := cf.className(c.u2())
		if c.err != nil {
			return nil, c.err
		}
		if err != nil {
			return nil, err
		}
		cf.Interfaces = append(cf.Interfaces, name)
	}

	if cf.Fields, err = cf.readMembers(c); err != nil {
		return nil, err
	}
	if cf.Methods, err = cf.readMembers(c); err != nil {
		return nil, err
	}
	if cf.Attributes, err = cf.readAttributes(c); err != nil {
		return nil, err
	}
	return cf, nil
}

func (cf *ClassFile) readPool(c *cursor) error {
	count := int(c.u2())
	if c.err != nil {
		return c.err
	}
	cf.pool = make([]constant, count)
	for i := 1; i < count; i++ {
		k := constant{tag: c.u1()}
		switch k.tag {
		case tagUtf8:
			k.utf8 = decodeMUTF8(c.bytes(int(c.u2())))
		case tagInteger, tagFloat:
			c.skip(4)
		case tagLong, tagDouble:
			c.skip(8)
		case tagClass, tagString, tagMethodType, tagModule, tagPackage:
			k.a = c.u2()
		case tagFieldref, tagMethodref, tagInterfaceMethodref, tagNameAndType, tagDynamic, tagInvokeDynamic:
			k.a, k.b = c.u2(), c.u2()
		case tagMethodHandle:
			c.skip(1)
			k.a = c.u2()
		default:
			if c.err != nil {
				return c.err
			}
			return fmt.Errorf("%w: unknown tag %d at index %d", ErrBadConstant, k.tag, i)
		}
		if c.err != nil {
			return c.err
		}
		cf.pool[i] = k
		// 8-byte constants take two slots
		if k.tag == tagLong || k.tag == tagDouble {
			i++
		}
	}
	return nil
}

func (cf *ClassFile) readMembers(c *cursor) ([]Member, error) {
	n := int(c.u2())
	members := make([]Member, 0, n)
	for range n {
		m := Member{Access: c.u2()}
		nameIdx, descIdx := c.u2(), c.u2()
		if c.err != nil {
			return nil, c.err
		}
		var err error
		if m.Name, err = cf.utf8(nameIdx); err != nil {
			return nil, err
		}
		if m.Descriptor, err = cf.utf8(descIdx); err != nil {
			return nil, err
		}
		if m.Attributes, err = cf.readAttributes(c); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, c.err
}

func (cf *ClassFile) readAttributes(c *cursor) ([]Attribute, error) {
	n := int(c.u2())
	attrs := make([]Attribute, 0, n)
	for range n {
		nameIdx := c.u2()
		data := c.bytes(int(c.u4()))
		if c.err != nil {
			return nil, c.err
		}
		name, err := cf.utf8(nameIdx)
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, Attribute{Name: name, Data: data})
	}
	return attrs, c.err
}

// =============================================================================
// Constant pool access
// =============================================================================

func (cf *ClassFile) entry(idx uint16, tags ...uint8) (constant, error) {
	if idx == 0 || int(idx) >= len(cf.pool) {
		return constant{}, fmt.Errorf("%w: index %d out of range", ErrBadConstant, idx)
	}
	k := cf.pool[idx]
	for _, t := range tags {
		if k.tag == t {
			return k, nil
		}
	}
	return constant{}, fmt.Errorf("%w: index %d has tag %d", ErrBadConstant, idx, k.tag)
}

func (cf *ClassFile) utf8(idx uint16) (string, error) {
	k, err := cf.entry(idx, tagUtf8)
	return k.utf8, err
}

func (cf *ClassFile) className(idx uint16) (string, error) {
	k, err := cf.entry(idx, tagClass)
	if err != nil {
		return "", err
	}
	return cf.utf8(k.a)
}

// ClassConstants returns the name of every CONSTANT_Class entry in pool
// order. Array classes keep their descriptor form ("[Lcom/Foo;").
func (cf *ClassFile) ClassConstants() []string {
	var out []string
	for _, k := range cf.pool {
		if k.tag != tagClass {
			continue
		}
		if name, err := cf.utf8(k.a); err == nil {
			out = append(out, name)
		}
	}
	return out
}

// MemberRefs returns every field, method and interface method reference
// in the constant pool.
func (cf *ClassFile) MemberRefs() []MemberRef {
	var refs []MemberRef
	for _, k := range cf.pool {
		if k.tag != tagFieldref && k.tag != tagMethodref && k.tag != tagInterfaceMethodref {
			continue
		}
		owner, err := cf.className(k.a)
		if err != nil {
			continue
		}
		nt, err := cf.entry(k.b, tagNameAndType)
		if err != nil {
			continue
		}
		name, _ := cf.utf8(nt.a)
		desc, _ := cf.utf8(nt.b)
		refs = append(refs, MemberRef{Owner: owner, Name: name, Descriptor: desc})
	}
	return refs
}

// MethodTypes returns the descriptors of CONSTANT_MethodType entries, which
// appear for method references and lambdas.
func (cf *ClassFile) MethodTypes() []string {
	var out []string
	for _, k := range cf.pool {
		if k.tag != tagMethodType {
			continue
		}
		if d, err := cf.utf8(k.a); err == nil {
			out = append(out, d)
		}
	}
	return out
}

// IsModuleInfo reports whether the class file is a module descriptor.
func (cf *ClassFile) IsModuleInfo() bool {
	return cf.Access&0x8000 != 0
}

// IsPackageInfo reports whether the class file only carries package
// annotations.
func (cf *ClassFile) IsPackageInfo() bool {
	return cf.ThisClass == "package-info" || strings.HasSuffix(cf.ThisClass, "/package-info")
}

// =============================================================================
// Binary cursor
// =============================================================================

// cursor reads big-endian values and remembers the first error; every read
// after a failure returns zero values.
type cursor struct {
	data []byte
	off  int
	err  error
}

func (c *cursor) need(n int) bool {
	if c.err != nil {
		return false
	}
	if n < 0 || c.off+n > len(c.data) {
		c.err = ErrTruncated
		return false
	}
	return true
}

func (c *cursor) u1() uint8 {
	if !c.need(1) {
		return 0
	}
	v := c.data[c.off]
	c.off++
	return v
}

func (c *cursor) u2() uint16 {
	if !c.need(2) {
		return 0
	}
	v := binary.BigEndian.Uint16(c.data[c.off:])
	c.off += 2
	return v
}

func (c *cursor) u4() uint32 {
	if !c.need(4) {
		return 0
	}
	v := binary.BigEndian.Uint32(c.data[c.off:])
	c.off += 4
	return v
}

func (c *cursor) bytes(n int) []byte {
	if !c.need(n) {
		return nil
	}
	v := c.data[c.off : c.off+n]
	c.off += n
	return v
}

func (c *cursor) skip(n int) {
	if c.need(n) {
		c.off += n
	}
}

// decodeMUTF8 decodes the modified UTF-8 used by class files: NUL is encoded
// on two bytes and supplementary characters as surrogate pairs.
func decodeMUTF8(b []byte) string {
	ascii := true
	for _, x := range b {
		if x >= 0x80 {
			ascii = false
			break
		}
	}
	if ascii {
		return string(b)
	}

	units := make([]uint16, 0, len(b))
	for i := 0; i < len(b); {
		x := b[i]
		switch {
		case x < 0x80:
			units = append(units, uint16(x))
			i++
		case x&0xE0 == 0xC0 && i+1 < len(b):
			units = append(units, uint16(x&0x1F)<<6|uint16(b[i+1]&0x3F))
			i += 2
		case x&0xF0 == 0xE0 && i+2 < len(b):
			units = append(units, uint16(x&0x0F)<<12|uint16(b[i+1]&0x3F)<<6|uint16(b[i+2]&0x3F))
			i += 3
		default:
			units = append(units, 0xFFFD)
			i++
		}
	}
	return string(utf16.Decode(units))
}
