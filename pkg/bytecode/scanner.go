package bytecode

import (
	"context"
	"strings"

	"github.com/matzehuels/socomo/pkg/errors"
	"github.com/matzehuels/socomo/pkg/source"
)

// Kind classifies the site of a reference inside a class file.
type Kind string

// Reference site kinds.
const (
	KindInheritance Kind = "inheritance" // superclass and implemented interfaces
	KindField       Kind = "field"       // field types
	KindMethod      Kind = "method"      // parameter and return types
	KindThrows      Kind = "throws"      // declared exceptions
	KindAnnotation  Kind = "annotation"  // annotation types and element values
	KindSignature   Kind = "signature"   // generic type arguments beyond the erased descriptor
	KindMemberRef   Kind = "member_ref"  // owners and types of referenced fields and methods
	KindClassRef    Kind = "class_ref"   // other class constants (new, instanceof, casts, literals)
)

// DefaultPlatformPrefixes lists the name prefixes of runtime and language
// platform classes. References to them never describe codebase structure.
var DefaultPlatformPrefixes = []string{
	"java.",
	"javax.",
	"jdk.",
	"sun.",
	"com.sun.",
	"kotlin.",
	"scala.",
}

// Reference is one reference site found in a class file.
type Reference struct {
	Target string // unit name of the referenced class
	Kind   Kind
}

// ScanResult is everything the scanner learned from one artifact.
// References may contain duplicates (one entry per site) and may name the
// scanned unit itself; both are resolved when the graph is built.
type ScanResult struct {
	Artifact   string
	Unit       string
	Size       int64
	References []Reference
}

// Options configures a [Scanner].
type Options struct {
	// MergeNested maps nested, inner, local and anonymous classes
	// ("com.app.Outer$Inner", "com.app.Outer$1") to their outermost class.
	MergeNested bool

	// PlatformPrefixes overrides DefaultPlatformPrefixes when non-nil.
	PlatformPrefixes []string
}

// Scanner extracts references from compiled classes.
//
// A Scanner holds no mutable state; Scan is safe for concurrent use.
type Scanner struct {
	mergeNested bool
	platform    []string
}

// NewScanner creates a scanner.
func NewScanner(opts Options) *Scanner {
	platform := opts.PlatformPrefixes
	if platform == nil {
		platform = DefaultPlatformPrefixes
	}
	return &Scanner{mergeNested: opts.MergeNested, platform: platform}
}

// Scan reads one artifact. Unreadable content is reported as an
// [errors.ErrCodeUnreadableArtifact] error, which callers treat as a
// diagnostic rather than a failure of the whole run.
func (s *Scanner) Scan(ctx context.Context, a source.Artifact) (*ScanResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := source.ReadAll(a)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnreadableArtifact, err, "read %s", a.Name())
	}
	cf, err := ParseBytes(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnreadableArtifact, err, "parse %s", a.Name())
	}
	if cf.IsModuleInfo() || cf.IsPackageInfo() {
		return nil, errors.New(errors.ErrCodeUnreadableArtifact, "%s describes no code unit", a.Name())
	}
	res, err := s.extract(cf)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnreadableArtifact, err, "decode %s", a.Name())
	}
	res.Artifact = a.Name()
	res.Size = int64(len(data))
	return res, nil
}

// UnitName converts an internal class name ("com/app/Outer$Inner") to the
// unit name the scanner reports for it.
func (s *Scanner) UnitName(internal string) string {
	name := strings.ReplaceAll(internal, "/", ".")
	if !s.mergeNested {
		return name
	}
	simple := strings.LastIndexByte(name, '.') + 1
	if i := strings.IndexByte(name[simple:], '$'); i > 0 {
		return name[:simple+i]
	}
	return name
}

func (s *Scanner) isPlatform(name string) bool {
	for _, p := range s.platform {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// extractor accumulates the references of one class file.
type extractor struct {
	s    *Scanner
	refs []Reference
	// accounted holds class constants already counted through a more
	// specific site, so that they are not counted again as class_ref.
	accounted map[string]bool
}

func (e *extractor) add(kind Kind, internal ...string) {
	for _, n := range internal {
		if n == "" {
			continue
		}
		name := e.s.UnitName(n)
		if e.s.isPlatform(name) {
			continue
		}
		e.refs = append(e.refs, Reference{Target: name, Kind: kind})
	}
}

func (e *extractor) addDescriptors(kind Kind, descs ...string) {
	for _, d := range descs {
		e.add(kind, DescriptorClasses(d)...)
	}
}

func (e *extractor) account(internal ...string) {
	for _, n := range internal {
		e.accounted[n] = true
	}
}

func (s *Scanner) extract(cf *ClassFile) (*ScanResult, error) {
	unit := s.UnitName(cf.ThisClass)
	if err := errors.ValidateUnitName(unit); err != nil {
		return nil, err
	}

	e := &extractor{s: s, accounted: map[string]bool{cf.ThisClass: true}}

	supers := append([]string{cf.SuperClass}, cf.Interfaces...)
	e.add(KindInheritance, supers...)
	e.account(supers...)

	if err := e.attributes(cf, cf.Attributes, supers); err != nil {
		return nil, err
	}

	for _, f := range cf.Fields {
		e.addDescriptors(KindField, f.Descriptor)
		if err := e.attributes(cf, f.Attributes, DescriptorClasses(f.Descriptor)); err != nil {
			return nil, err
		}
	}

	for _, m := range cf.Methods {
		e.addDescriptors(KindMethod, m.Descriptor)
		if err := e.attributes(cf, m.Attributes, DescriptorClasses(m.Descriptor)); err != nil {
			return nil, err
		}
	}

	for _, ref := range cf.MemberRefs() {
		e.add(KindMemberRef, ClassConstantClasses(ref.Owner)...)
		e.addDescriptors(KindMemberRef, ref.Descriptor)
		e.account(ref.Owner)
	}
	e.addDescriptors(KindMemberRef, cf.MethodTypes()...)

	for _, name := range cf.ClassConstants() {
		if !e.accounted[name] {
			e.add(KindClassRef, ClassConstantClasses(name)...)
		}
	}

	return &ScanResult{Unit: unit, References: e.refs}, nil
}

// attributes handles the attributes of the class or of one member. erased
// lists the classes already counted for the owner's descriptor (or the
// superclass and interfaces for the class), so that a generic signature only
// contributes what the erasure hides.
func (e *extractor) attributes(cf *ClassFile, attrs []Attribute, erased []string) error {
	for _, a := range attrs {
		switch a.Name {
		case attrSignature:
			sig, err := cf.signature(a)
			if err != nil {
				return err
			}
			e.add(KindSignature, subtract(SignatureClasses(sig), erased)...)
		case attrExceptions:
			names, err := cf.exceptions(a)
			if err != nil {
				return err
			}
			e.add(KindThrows, names...)
			e.account(names...)
		case attrVisibleAnnotations, attrInvisibleAnnotations,
			attrVisibleParameterAnnotations, attrInvisibleParameterAnnotations:
			descs, err := cf.annotationTypes(a)
			if err != nil {
				return err
			}
			e.addDescriptors(KindAnnotation, descs...)
		case attrInnerClasses, attrEnclosingMethod, attrNestHost, attrNestMembers:
			e.account(cf.nestingClasses(a)...)
		}
	}
	return nil
}

// subtract removes from all one occurrence of every element of seen.
func subtract(all, seen []string) []string {
	if len(seen) == 0 {
		return all
	}
	left := make(map[string]int, len(seen))
	for _, s := range seen {
		left[s]++
	}
	out := all[:0:0]
	for _, a := range all {
		if left[a] > 0 {
			left[a]--
			continue
		}
		out = append(out, a)
	}
	return out
}
