package bytecode

import (
	"bytes"
	"context"
	stderrors "errors"
	"slices"
	"testing"

	"github.com/matzehuels/socomo/pkg/bytecode/bytecodetest"
	"github.com/matzehuels/socomo/pkg/errors"
	"github.com/matzehuels/socomo/pkg/source"
)

func controllerClass() []byte {
	c := bytecodetest.New("app/web/Controller")
	c.Interfaces = []string{"app/web/Handler"}
	c.Fields = []bytecodetest.Member{
		{Name: "svc", Descriptor: "Lapp/service/UserService;"},
		{Name: "orders", Descriptor: "Ljava/util/List;", Attributes: []bytecodetest.Attribute{
			c.Signature("Ljava/util/List<Lapp/service/Order;>;"),
		}},
	}
	c.Methods = []bytecodetest.Member{
		{Name: "handle", Descriptor: "(Lapp/service/OrderService;)V", Attributes: []bytecodetest.Attribute{
			c.Exceptions("app/web/WebException"),
			c.Annotations("Lapp/web/Route;"),
		}},
	}
	c.MethodRef("app/service/UserService", "find", "(Ljava/lang/String;)Lapp/model/User;")
	c.ClassRef("app/util/Helper")
	c.LongConst(42)
	c.Attributes = []bytecodetest.Attribute{
		c.InnerClasses("app/web/Controller$Inner", "app/web/Controller", "Inner"),
	}
	return c.Bytes()
}

func TestParseBytes(t *testing.T) {
	cf, err := ParseBytes(controllerClass())
	if err != nil {
		t.Fatalf("ParseBytes: %v", err)
	}
	if cf.ThisClass != "app/web/Controller" {
		t.Errorf("ThisClass = %q", cf.ThisClass)
	}
	if cf.SuperClass != "java/lang/Object" {
		t.Errorf("SuperClass = %q", cf.SuperClass)
	}
	if !slices.Equal(cf.Interfaces, []string{"app/web/Handler"}) {
		t.Errorf("Interfaces = %v", cf.Interfaces)
	}
	if len(cf.Fields) != 2 || len(cf.Methods) != 1 {
		t.Fatalf("fields = %d, methods = %d", len(cf.Fields), len(cf.Methods))
	}
	if cf.Fields[1].Attributes[0].Name != "Signature" {
		t.Errorf("field attribute = %q, want Signature", cf.Fields[1].Attributes[0].Name)
	}
	refs := cf.MemberRefs()
	if len(refs) != 1 || refs[0].Owner != "app/service/UserService" || refs[0].Name != "find" {
		t.Errorf("MemberRefs() = %+v", refs)
	}
	if !slices.Contains(cf.ClassConstants(), "app/util/Helper") {
		t.Errorf("ClassConstants() = %v, missing app/util/Helper", cf.ClassConstants())
	}
}

func TestParseBytesErrors(t *testing.T) {
	valid := controllerClass()
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrTruncated},
		{"bad magic", []byte{0xDE, 0xAD, 0xBE, 0xEF, 0, 0, 0, 61}, ErrBadMagic},
		{"truncated", valid[:len(valid)/2], ErrTruncated},
		{"unknown tag", []byte{0xCA, 0xFE, 0xBA, 0xBE, 0, 0, 0, 61, 0, 2, 99}, ErrBadConstant},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBytes(tt.data)
			if !stderrors.Is(err, tt.want) {
				t.Errorf("ParseBytes() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	cf, err := Parse(bytes.NewReader(controllerClass()))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cf.Major != 61 {
		t.Errorf("Major = %d, want 61", cf.Major)
	}
}

func TestDescriptorClasses(t *testing.T) {
	tests := []struct {
		desc string
		want []string
	}{
		{"I", nil},
		{"Lcom/A;", []string{"com/A"}},
		{"[[Lcom/A;", []string{"com/A"}},
		{"(Lcom/A;[Lcom/B;IJ)Lcom/A;", []string{"com/A", "com/B", "com/A"}},
		{"(ZLcom/Long;)V", []string{"com/Long"}},
		{"Lcom/Broken", nil},
	}
	for _, tt := range tests {
		if got := DescriptorClasses(tt.desc); !slices.Equal(got, tt.want) {
			t.Errorf("DescriptorClasses(%q) = %v, want %v", tt.desc, got, tt.want)
		}
	}
}

func TestClassConstantClasses(t *testing.T) {
	if got := ClassConstantClasses("com/A"); !slices.Equal(got, []string{"com/A"}) {
		t.Errorf("plain = %v", got)
	}
	if got := ClassConstantClasses("[Lcom/A;"); !slices.Equal(got, []string{"com/A"}) {
		t.Errorf("array = %v", got)
	}
	if got := ClassConstantClasses("[I"); len(got) != 0 {
		t.Errorf("primitive array = %v", got)
	}
}

func TestSignatureClasses(t *testing.T) {
	tests := []struct {
		name string
		sig  string
		want []string
	}{
		{"field", "Ljava/util/List<Lcom/A;>;", []string{"com/A", "java/util/List"}},
		{"wildcards", "Ljava/util/Map<+Lcom/K;-Lcom/V;*>;", []string{"com/K", "com/V", "java/util/Map"}},
		{"type variable", "TT;", nil},
		{"array", "[Lcom/A;", []string{"com/A"}},
		{"nested", "Lcom/Outer<TT;>.Inner<Lcom/X;>;", []string{"com/X", "com/Outer$Inner"}},
		{"class", "<L:Ljava/lang/Object;>Lcom/Base<TL;>;Lcom/Iface;", []string{"java/lang/Object", "com/Base", "com/Iface"}},
		{"interface bound", "<T::Ljava/lang/Comparable<TT;>;>Ljava/lang/Object;", []string{"java/lang/Comparable", "java/lang/Object"}},
		{"method", "<T:Ljava/lang/Object;>(TT;Lcom/A;I)Lcom/R<TT;>;^Lcom/Ex;^TE;", []string{"java/lang/Object", "com/A", "com/R", "com/Ex"}},
		{"void method", "()V", nil},
		{"malformed", "Lcom/A<Lcom/B;", []string{"com/B"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SignatureClasses(tt.sig); !slices.Equal(got, tt.want) {
				t.Errorf("SignatureClasses(%q) = %v, want %v", tt.sig, got, tt.want)
			}
		})
	}
}

func TestUnitName(t *testing.T) {
	merging := NewScanner(Options{MergeNested: true})
	plain := NewScanner(Options{})
	tests := []struct {
		internal string
		merged   string
		unmerged string
	}{
		{"com/app/Foo", "com.app.Foo", "com.app.Foo"},
		{"com/app/Foo$Bar", "com.app.Foo", "com.app.Foo$Bar"},
		{"com/app/Foo$1", "com.app.Foo", "com.app.Foo$1"},
		{"com/app/$Proxy", "com.app.$Proxy", "com.app.$Proxy"},
		{"Main$Inner", "Main", "Main$Inner"},
	}
	for _, tt := range tests {
		if got := merging.UnitName(tt.internal); got != tt.merged {
			t.Errorf("merged UnitName(%q) = %q, want %q", tt.internal, got, tt.merged)
		}
		if got := plain.UnitName(tt.internal); got != tt.unmerged {
			t.Errorf("UnitName(%q) = %q, want %q", tt.internal, got, tt.unmerged)
		}
	}
}

func countRefs(refs []Reference) map[Reference]int {
	out := make(map[Reference]int)
	for _, r := range refs {
		out[r]++
	}
	return out
}

func TestScan(t *testing.T) {
	s := NewScanner(Options{MergeNested: true})
	data := controllerClass()
	res, err := s.Scan(context.Background(), source.Bytes("Controller.class", data))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if res.Unit != "app.web.Controller" {
		t.Errorf("Unit = %q", res.Unit)
	}
	if res.Size != int64(len(data)) {
		t.Errorf("Size = %d, want %d", res.Size, len(data))
	}
	if res.Artifact != "Controller.class" {
		t.Errorf("Artifact = %q", res.Artifact)
	}

	want := map[Reference]int{
		{"app.web.Handler", KindInheritance}:       1,
		{"app.service.UserService", KindField}:     1,
		{"app.service.Order", KindSignature}:       1,
		{"app.service.OrderService", KindMethod}:   1,
		{"app.web.WebException", KindThrows}:       1,
		{"app.web.Route", KindAnnotation}:          1,
		{"app.service.UserService", KindMemberRef}: 1,
		{"app.model.User", KindMemberRef}:          1,
		{"app.util.Helper", KindClassRef}:          1,
	}
	got := countRefs(res.References)
	if len(got) != len(want) {
		t.Errorf("references = %v, want %v", got, want)
	}
	for ref, n := range want {
		if got[ref] != n {
			t.Errorf("count(%v) = %d, want %d", ref, got[ref], n)
		}
	}
	for ref := range got {
		if ref.Target == "java.util.List" || ref.Target == "java.lang.String" {
			t.Errorf("platform reference kept: %v", ref)
		}
	}
}

func TestScanKeepsSelfAndDuplicateReferences(t *testing.T) {
	c := bytecodetest.New("app/Node")
	c.Fields = []bytecodetest.Member{
		{Name: "next", Descriptor: "Lapp/Node;"},
		{Name: "a", Descriptor: "Lapp/Leaf;"},
		{Name: "b", Descriptor: "Lapp/Leaf$Part;"},
	}
	res, err := NewScanner(Options{MergeNested: true}).Scan(context.Background(), source.Bytes("Node.class", c.Bytes()))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	got := countRefs(res.References)
	if got[Reference{"app.Node", KindField}] != 1 {
		t.Errorf("self reference should be kept by the scanner: %v", got)
	}
	if got[Reference{"app.Leaf", KindField}] != 2 {
		t.Errorf("app.Leaf field sites = %d, want 2", got[Reference{"app.Leaf", KindField}])
	}
}

func TestScanAnnotationClassValue(t *testing.T) {
	c := bytecodetest.New("app/Config")
	c.Attributes = []bytecodetest.Attribute{
		c.ClassValueAnnotation("Lapp/Import;", "Lapp/Other;"),
	}
	res, err := NewScanner(Options{}).Scan(context.Background(), source.Bytes("Config.class", c.Bytes()))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	got := countRefs(res.References)
	if got[Reference{"app.Import", KindAnnotation}] != 1 || got[Reference{"app.Other", KindAnnotation}] != 1 {
		t.Errorf("annotation references = %v", got)
	}
}

func TestScanPlatformOverride(t *testing.T) {
	c := bytecodetest.New("app/A")
	c.Fields = []bytecodetest.Member{
		{Name: "x", Descriptor: "Lorg/lib/X;"},
		{Name: "s", Descriptor: "Ljava/lang/String;"},
	}
	s := NewScanner(Options{PlatformPrefixes: []string{"org.lib."}})
	res, err := s.Scan(context.Background(), source.Bytes("A.class", c.Bytes()))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	got := countRefs(res.References)
	if got[Reference{"org.lib.X", KindField}] != 0 {
		t.Error("org.lib.X should be filtered")
	}
	if got[Reference{"java.lang.String", KindField}] != 1 {
		t.Error("java.lang.String should be kept when not in the platform list")
	}
}

func TestScanUnreadable(t *testing.T) {
	s := NewScanner(Options{})
	module := bytecodetest.New("module-info")
	module.Super = ""
	module.Access = 0x8000

	tests := []struct {
		name string
		data []byte
	}{
		{"garbage", []byte("definitely not bytecode")},
		{"module-info", module.Bytes()},
		{"package-info", bytecodetest.New("app/package-info").Bytes()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Scan(context.Background(), source.Bytes(tt.name, tt.data))
			if !errors.Is(err, errors.ErrCodeUnreadableArtifact) {
				t.Errorf("Scan() error = %v, want UNREADABLE_ARTIFACT", err)
			}
		})
	}
}

func TestScanCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewScanner(Options{}).Scan(ctx, source.Bytes("A.class", controllerClass()))
	if !stderrors.Is(err, context.Canceled) {
		t.Errorf("Scan() error = %v, want context.Canceled", err)
	}
}

func TestDecodeMUTF8(t *testing.T) {
	tests := []struct {
		in   []byte
		want string
	}{
		{[]byte("plain"), "plain"},
		{[]byte{0xC0, 0x80}, "\x00"},
		{[]byte{0xC3, 0xA9}, "é"},
		// U+1F600 as a surrogate pair, each half on three bytes
		{[]byte{0xED, 0xA0, 0xBD, 0xED, 0xB8, 0x80}, "\U0001F600"},
	}
	for _, tt := range tests {
		if got := decodeMUTF8(tt.in); got != tt.want {
			t.Errorf("decodeMUTF8(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
