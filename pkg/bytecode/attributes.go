package bytecode

// Attribute names the scanner understands.
const (
	attrSignature                     = "Signature"
	attrExceptions                    = "Exceptions"
	attrInnerClasses                  = "InnerClasses"
	attrEnclosingMethod               = "EnclosingMethod"
	attrNestHost                      = "NestHost"
	attrNestMembers                   = "NestMembers"
	attrVisibleAnnotations            = "RuntimeVisibleAnnotations"
	attrInvisibleAnnotations          = "RuntimeInvisibleAnnotations"
	attrVisibleParameterAnnotations   = "RuntimeVisibleParameterAnnotations"
	attrInvisibleParameterAnnotations = "RuntimeInvisibleParameterAnnotations"
)

// signature decodes a Signature attribute.
func (cf *ClassFile) signature(a Attribute) (string, error) {
	c := &cursor{data: a.Data}
	idx := c.u2()
	if c.err != nil {
		return "", c.err
	}
	return cf.utf8(idx)
}

// exceptions decodes an Exceptions attribute into class names.
func (cf *ClassFile) exceptions(a Attribute) ([]string, error) {
	c := &cursor{data: a.Data}
	n := int(c.u2())
	out := make([]string, 0, n)
	for range n {
		idx := c.u2()
		if c.err != nil {
			return nil, c.err
		}
		name, err := cf.className(idx)
		if err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, c.err
}

// nestingClasses decodes the attributes that only describe class nesting
// (InnerClasses, EnclosingMethod, NestHost, NestMembers) and returns every
// class they name.
func (cf *ClassFile) nestingClasses(a Attribute) []string {
	c := &cursor{data: a.Data}
	var idx []uint16
	switch a.Name {
	case attrInnerClasses:
		n := int(c.u2())
		for range n {
			inner, outer := c.u2(), c.u2()
			c.skip(4)
			idx = append(idx, inner, outer)
		}
	case attrEnclosingMethod:
		idx = append(idx, c.u2())
		c.skip(2)
	case attrNestHost:
		idx = append(idx, c.u2())
	case attrNestMembers:
		n := int(c.u2())
		for range n {
			idx = append(idx, c.u2())
		}
	}
	if c.err != nil {
		return nil
	}
	var out []string
	for _, i := range idx {
		if i == 0 {
			continue
		}
		if name, err := cf.className(i); err == nil {
			out = append(out, name)
		}
	}
	return out
}

// annotationTypes decodes a Runtime(In)Visible(Parameter)Annotations
// attribute and returns the descriptors of every annotation type and every
// class named in element values (enum types, class literals and nested
// annotations included).
func (cf *ClassFile) annotationTypes(a Attribute) ([]string, error) {
	c := &cursor{data: a.Data}
	var out []string
	switch a.Name {
	case attrVisibleAnnotations, attrInvisibleAnnotations:
		n := int(c.u2())
		for range n {
			if err := cf.annotation(c, &out); err != nil {
				return nil, err
			}
		}
	case attrVisibleParameterAnnotations, attrInvisibleParameterAnnotations:
		params := int(c.u1())
		for range params {
			n := int(c.u2())
			for range n {
				if err := cf.annotation(c, &out); err != nil {
					return nil, err
				}
			}
		}
	}
	return out, c.err
}

func (cf *ClassFile) annotation(c *cursor, out *[]string) error {
	typeIdx := c.u2()
	pairs := int(c.u2())
	if c.err != nil {
		return c.err
	}
	desc, err := cf.utf8(typeIdx)
	if err != nil {
		return err
	}
	*out = append(*out, desc)
	for range pairs {
		c.skip(2) // element name
		if err := cf.elementValue(c, out); err != nil {
			return err
		}
	}
	return c.err
}

func (cf *ClassFile) elementValue(c *cursor, out *[]string) error {
	tag := c.u1()
	switch tag {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 's':
		c.skip(2)
	case 'e':
		typeIdx := c.u2()
		c.skip(2)
		if c.err != nil {
			return c.err
		}
		desc, err := cf.utf8(typeIdx)
		if err != nil {
			return err
		}
		*out = append(*out, desc)
	case 'c':
		idx := c.u2()
		if c.err != nil {
			return c.err
		}
		desc, err := cf.utf8(idx)
		if err != nil {
			return err
		}
		*out = append(*out, desc)
	case '@':
		return cf.annotation(c, out)
	case '[':
		n := int(c.u2())
		for range n {
			if err := cf.elementValue(c, out); err != nil {
				return err
			}
		}
	default:
		if c.err != nil {
			return c.err
		}
		return ErrBadConstant
	}
	return c.err
}
