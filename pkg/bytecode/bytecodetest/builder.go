// Package bytecodetest synthesises JVM class files for tests.
package bytecodetest

import (
	"bytes"
	"encoding/binary"
	"strconv"
)

// Attribute is an attribute to attach to a class or member. Data must
// already be encoded against the builder's constant pool.
type Attribute struct {
	Name string
	Data []byte
}

// Member is a field or method of the generated class.
type Member struct {
	Name       string
	Descriptor string
	Attributes []Attribute
}

// Class assembles a minimal but well-formed class file. Names use the
// internal form ("com/app/Foo").
type Class struct {
	This       string
	Super      string
	Interfaces []string
	Access     uint16
	Fields     []Member
	Methods    []Member
	Attributes []Attribute

	pool  bytes.Buffer
	count uint16
	index map[string]uint16
}

// New returns a builder for a public class extending java/lang/Object.
func New(this string) *Class {
	return &Class{This: this, Super: "java/lang/Object", Access: 0x0021, count: 1, index: map[string]uint16{}}
}

func (c *Class) intern(key string, write func(*bytes.Buffer)) uint16 {
	if i, ok := c.index[key]; ok {
		return i
	}
	write(&c.pool)
	i := c.count
	c.count++
	c.index[key] = i
	return i
}

// Utf8 interns a CONSTANT_Utf8 entry.
func (c *Class) Utf8(s string) uint16 {
	return c.intern("u:"+s, func(b *bytes.Buffer) {
		b.WriteByte(1)
		_ = binary.Write(b, binary.BigEndian, uint16(len(s)))
		b.WriteString(s)
	})
}

// ClassRef interns a CONSTANT_Class entry.
func (c *Class) ClassRef(name string) uint16 {
	n := c.Utf8(name)
	return c.intern("c:"+name, func(b *bytes.Buffer) {
		b.WriteByte(7)
		_ = binary.Write(b, binary.BigEndian, n)
	})
}

func (c *Class) nameAndType(name, desc string) uint16 {
	n, d := c.Utf8(name), c.Utf8(desc)
	return c.intern("nt:"+name+":"+desc, func(b *bytes.Buffer) {
		b.WriteByte(12)
		_ = binary.Write(b, binary.BigEndian, n)
		_ = binary.Write(b, binary.BigEndian, d)
	})
}

func (c *Class) memberRef(tag byte, owner, name, desc string) uint16 {
	o, nt := c.ClassRef(owner), c.nameAndType(name, desc)
	return c.intern(strconv.Itoa(int(tag))+":"+owner+"."+name+":"+desc, func(b *bytes.Buffer) {
		b.WriteByte(tag)
		_ = binary.Write(b, binary.BigEndian, o)
		_ = binary.Write(b, binary.BigEndian, nt)
	})
}

// FieldRef interns a CONSTANT_Fieldref entry.
func (c *Class) FieldRef(owner, name, desc string) uint16 { return c.memberRef(9, owner, name, desc) }

// MethodRef interns a CONSTANT_Methodref entry.
func (c *Class) MethodRef(owner, name, desc string) uint16 { return c.memberRef(10, owner, name, desc) }

// LongConst interns a CONSTANT_Long entry, which occupies two pool slots.
func (c *Class) LongConst(v int64) uint16 {
	key := "j:" + strconv.FormatInt(v, 10)
	if i, ok := c.index[key]; ok {
		return i
	}
	i := c.intern(key, func(b *bytes.Buffer) {
		b.WriteByte(5)
		_ = binary.Write(b, binary.BigEndian, v)
	})
	c.count++
	return i
}

// Signature returns a Signature attribute.
func (c *Class) Signature(sig string) Attribute {
	return Attribute{Name: "Signature", Data: u2(c.Utf8(sig))}
}

// Exceptions returns an Exceptions attribute.
func (c *Class) Exceptions(names ...string) Attribute {
	data := u2(uint16(len(names)))
	for _, n := range names {
		data = append(data, u2(c.ClassRef(n))...)
	}
	return Attribute{Name: "Exceptions", Data: data}
}

// Annotations returns a RuntimeVisibleAnnotations attribute with one marker
// annotation per descriptor ("Lcom/app/Ann;").
func (c *Class) Annotations(descs ...string) Attribute {
	data := u2(uint16(len(descs)))
	for _, d := range descs {
		data = append(data, u2(c.Utf8(d))...)
		data = append(data, u2(0)...)
	}
	return Attribute{Name: "RuntimeVisibleAnnotations", Data: data}
}

// ClassValueAnnotation returns a RuntimeInvisibleAnnotations attribute with
// one annotation whose "value" element is a class literal.
func (c *Class) ClassValueAnnotation(annDesc, classDesc string) Attribute {
	data := u2(1)
	data = append(data, u2(c.Utf8(annDesc))...)
	data = append(data, u2(1)...)
	data = append(data, u2(c.Utf8("value"))...)
	data = append(data, 'c')
	data = append(data, u2(c.Utf8(classDesc))...)
	return Attribute{Name: "RuntimeInvisibleAnnotations", Data: data}
}

// InnerClasses returns an InnerClasses attribute declaring inner as a
// member of outer.
func (c *Class) InnerClasses(inner, outer, simple string) Attribute {
	data := u2(1)
	data = append(data, u2(c.ClassRef(inner))...)
	data = append(data, u2(c.ClassRef(outer))...)
	data = append(data, u2(c.Utf8(simple))...)
	data = append(data, u2(0x0009)...)
	return Attribute{Name: "InnerClasses", Data: data}
}

// Bytes encodes the class file.
func (c *Class) Bytes() []byte {
	this := c.ClassRef(c.This)
	var super uint16
	if c.Super != "" {
		super = c.ClassRef(c.Super)
	}
	ifaces := make([]uint16, len(c.Interfaces))
	for i, n := range c.Interfaces {
		ifaces[i] = c.ClassRef(n)
	}

	var body bytes.Buffer
	body.Write(u2(c.Access))
	body.Write(u2(this))
	body.Write(u2(super))
	body.Write(u2(uint16(len(ifaces))))
	for _, i := range ifaces {
		body.Write(u2(i))
	}
	c.members(&body, c.Fields)
	c.members(&body, c.Methods)
	c.attributes(&body, c.Attributes)

	var out bytes.Buffer
	out.Write([]byte{0xCA, 0xFE, 0xBA, 0xBE})
	out.Write(u2(0))
	out.Write(u2(61))
	out.Write(u2(c.count))
	out.Write(c.pool.Bytes())
	out.Write(body.Bytes())
	return out.Bytes()
}

func (c *Class) members(b *bytes.Buffer, ms []Member) {
	b.Write(u2(uint16(len(ms))))
	for _, m := range ms {
		b.Write(u2(0x0001))
		b.Write(u2(c.Utf8(m.Name)))
		b.Write(u2(c.Utf8(m.Descriptor)))
		c.attributes(b, m.Attributes)
	}
}

func (c *Class) attributes(b *bytes.Buffer, as []Attribute) {
	b.Write(u2(uint16(len(as))))
	for _, a := range as {
		b.Write(u2(c.Utf8(a.Name)))
		_ = binary.Write(b, binary.BigEndian, uint32(len(a.Data)))
		b.Write(a.Data)
	}
}

func u2(v uint16) []byte {
	return []byte{byte(v >> 8), byte(v)}
}
