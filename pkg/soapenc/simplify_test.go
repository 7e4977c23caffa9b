package soapenc

import (
	"reflect"
	"testing"
)

func TestSimplifyStripsMetadata(t *testing.T) {
	n := NewMapping().
		Set(KeyValue, Scalar("v")).
		Set(KeyType, Scalar("xsd:string")).
		Set(KeyName, Scalar("field")).
		Set(KeyID, Scalar("id-1"))
	got := Simplify(n)
	if got.Kind != KindScalar || got.Value != "v" {
		t.Errorf("got %#v, want bare scalar", got)
	}
}

func TestSimplifyKeepsPayloadKeys(t *testing.T) {
	n := NewMapping().
		Set("name", Scalar("Ada")).
		Set(KeyType, Scalar("Person"))
	got := Simplify(n)
	if got.Kind != KindMapping || len(got.Fields) != 1 {
		t.Fatalf("got %#v", got)
	}
	if got.Fields["name"].ScalarString() != "Ada" {
		t.Error("payload key lost")
	}
}

func TestSimplifySingleElementSequence(t *testing.T) {
	n := NewSequence(NewMapping().Set(KeyValue, Scalar(7)))
	got := Simplify(n)
	if got.Kind != KindScalar || got.Value != 7 {
		t.Errorf("got %#v, want scalar 7", got)
	}
}

func TestSimplifyMergesSingleKeyMappings(t *testing.T) {
	n := NewSequence(
		NewMapping().Set("a", Scalar(1)),
		NewMapping().Set("b", Scalar(2)),
	)
	got := Simplify(n)
	want := map[string]any{"a": 1, "b": 2}
	if !reflect.DeepEqual(got.Interface(), want) {
		t.Errorf("got %#v, want %#v", got.Interface(), want)
	}
}

func TestSimplifyRepeatedKeysAccumulate(t *testing.T) {
	n := NewSequence(
		NewMapping().Set("x", Scalar(1)),
		NewMapping().Set("x", Scalar(2)),
		NewMapping().Set("x", Scalar(3)),
	)
	got := Simplify(n)
	want := map[string]any{"x": []any{1, 2, 3}}
	if !reflect.DeepEqual(got.Interface(), want) {
		t.Errorf("got %#v, want %#v", got.Interface(), want)
	}
}

func TestSimplifyMixedSequenceUntouched(t *testing.T) {
	n := NewSequence(
		NewMapping().Set("a", Scalar(1)),
		Scalar("loose"),
	)
	got := Simplify(n)
	if got.Kind != KindSequence || len(got.Items) != 2 {
		t.Errorf("got %#v, want sequence of 2", got)
	}
}

func TestSimplifyPreservesHoles(t *testing.T) {
	n := NewSequence(nil, Scalar(1), nil)
	got := Simplify(n)
	want := []any{nil, 1, nil}
	if !reflect.DeepEqual(got.Interface(), want) {
		t.Errorf("got %#v, want %#v", got.Interface(), want)
	}
}

func TestSimplifyIdempotent(t *testing.T) {
	n := NewSequence(
		NewMapping().Set("a", NewMapping().Set(KeyValue, Scalar("x")).Set(KeyType, Scalar("t"))),
		NewMapping().Set("b", Scalar(2)),
	)
	once := Simplify(n)
	first := once.Interface()
	second := Simplify(once).Interface()
	if !reflect.DeepEqual(first, second) {
		t.Errorf("not idempotent: %#v then %#v", first, second)
	}
}

func TestSimplifySharedNodeIdentity(t *testing.T) {
	shared := NewSequence(
		NewMapping().Set("x", Scalar(1)),
		NewMapping().Set("y", Scalar(2)),
	)
	parent := NewMapping().
		Set("a", shared).
		Set("b", shared)

	got := Simplify(parent)
	a, b := got.Fields["a"], got.Fields["b"]
	if a != b {
		t.Fatalf("shared node split: %p vs %p", a, b)
	}
	want := map[string]any{"x": 1, "y": 2}
	if !reflect.DeepEqual(a.Interface(), want) {
		t.Errorf("got %#v, want %#v", a.Interface(), want)
	}
}

func TestSimplifyCycleTerminates(t *testing.T) {
	outer := NewMapping().Set(KeyID, Scalar("c1"))
	inner := NewSequence(NewMapping().Set("next", outer))
	outer.Set("items", inner)

	got := Simplify(outer)
	if got == nil {
		t.Fatal("nil result")
	}
	// The id key is stripped but the cycle itself survives.
	if got.Get("items") == nil {
		t.Fatal("items lost")
	}
}
