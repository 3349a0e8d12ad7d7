package bytecode

import "strings"

// DescriptorClasses returns the classes named in a field or method
// descriptor, in order of appearance and with duplicates kept.
//
//	DescriptorClasses("(Lcom/A;[Lcom/B;I)Lcom/A;") // [com/A com/B com/A]
func DescriptorClasses(desc string) []string {
	var out []string
	for i := 0; i < len(desc); i++ {
		if desc[i] != 'L' {
			continue
		}
		end := strings.IndexByte(desc[i:], ';')
		if end < 0 {
			break
		}
		out = append(out, desc[i+1:i+end])
		i += end
	}
	return out
}

// ClassConstantClasses resolves a CONSTANT_Class name: plain classes are
// returned as is, array classes ("[[Lcom/Foo;", "[I") yield their element
// class if it is a reference type.
func ClassConstantClasses(name string) []string {
	if strings.HasPrefix(name, "[") {
		return DescriptorClasses(name)
	}
	return []string{name}
}

// SignatureClasses returns the classes named in a generic signature of a
// class, field or method (JVMS 4.7.9.1). Type variables are not classes and
// are skipped; nested class types such as "Lcom/Outer<TT;>.Inner;" are
// reported in binary form ("com/Outer$Inner").
//
// A malformed signature yields the classes recognised before the error.
func SignatureClasses(sig string) []string {
	p := sigParser{s: sig}
	p.parse()
	return p.out
}

type sigParser struct {
	s   string
	i   int
	out []string
	bad bool
}

func (p *sigParser) peek() byte {
	if p.i >= len(p.s) {
		return 0
	}
	return p.s[p.i]
}

func (p *sigParser) eat(b byte) bool {
	if p.peek() == b {
		p.i++
		return true
	}
	return false
}

func (p *sigParser) parse() {
	if p.peek() == '<' {
		p.typeParams()
	}
	if p.eat('(') {
		for !p.bad && p.peek() != ')' && p.peek() != 0 {
			p.javaType()
		}
		if !p.eat(')') {
			p.bad = true
			return
		}
		if !p.eat('V') {
			p.javaType()
		}
		for !p.bad && p.eat('^') {
			p.refType()
		}
		return
	}
	// class signature (superclass then interfaces) or field signature
	for !p.bad && p.i < len(p.s) {
		p.refType()
	}
}

func (p *sigParser) typeParams() {
	p.eat('<')
	for !p.bad && p.peek() != '>' {
		// identifier up to ':'
		colon := strings.IndexByte(p.s[p.i:], ':')
		if colon <= 0 {
			p.bad = true
			return
		}
		p.i += colon
		// class bound (may be empty) followed by interface bounds
		for p.eat(':') {
			if c := p.peek(); c == 'L' || c == 'T' || c == '[' {
				p.refType()
			}
		}
	}
	p.eat('>')
}

func (p *sigParser) javaType() {
	switch p.peek() {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		p.i++
	default:
		p.refType()
	}
}

func (p *sigParser) refType() {
	switch p.peek() {
	case 'L':
		p.classType()
	case 'T':
		end := strings.IndexByte(p.s[p.i:], ';')
		if end < 0 {
			p.bad = true
			return
		}
		p.i += end + 1
	case '[':
		p.i++
		p.javaType()
	default:
		p.bad = true
	}
}

func (p *sigParser) classType() {
	p.eat('L')
	var name strings.Builder
	for !p.bad {
		start := p.i
		for p.i < len(p.s) && !strings.ContainsRune("<.;", rune(p.s[p.i])) {
			p.i++
		}
		if p.i >= len(p.s) {
			p.bad = true
			return
		}
		if name.Len() > 0 {
			name.WriteByte('$')
		}
		name.WriteString(p.s[start:p.i])
		if p.peek() == '<' {
			p.typeArgs()
		}
		if p.eat(';') {
			p.out = append(p.out, name.String())
			return
		}
		if !p.eat('.') {
			p.bad = true
		}
	}
}

func (p *sigParser) typeArgs() {
	p.eat('<')
	for !p.bad && p.peek() != '>' {
		switch p.peek() {
		case '*':
			p.i++
		case '+', '-':
			p.i++
			p.refType()
		case 0:
			p.bad = true
		default:
			p.refType()
		}
	}
	p.eat('>')
}
