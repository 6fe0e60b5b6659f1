package transport

import "testing"

type fakeFactory struct{ name string }

func (f fakeFactory) Name() string { return f.name }
func (f fakeFactory) Build(cfg any) (*Bundle, error) { return &Bundle{}, nil }

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(fakeFactory{name: "grpc"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := r.Get("grpc"); !ok {
		t.Fatal("expected grpc factory to be registered")
	}
	if _, ok := r.Get("missing"); ok {
		t.Fatal("did not expect missing factory to be found")
	}
}

func TestRegistry_DuplicateNameRejected(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(fakeFactory{name: "grpc"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Register(fakeFactory{name: "grpc"}); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
}

func TestRegistry_ListIsSorted(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(fakeFactory{name: "s3"})
	_ = r.Register(fakeFactory{name: "grpc"})
	got := r.List()
	if len(got) != 2 || got[0] != "grpc" || got[1] != "s3" {
		t.Fatalf("expected sorted [grpc s3], got %v", got)
	}
}

func TestRegistry_BuildUnknownNameIsDescriptive(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(fakeFactory{name: "grpc"})
	_, err := r.Build("bogus", nil)
	if err == nil {
		t.Fatal("expected error for unknown transport")
	}
}
