package memory

import (
	"context"
	"testing"
)

func TestMemoryStore(t *testing.T) {
	s := New()
	ctx := context.Background()
	if err := s.Set(ctx, "a", "1"); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, map[string]string{"b": "2", "c": "3"}); err != nil {
		t.Fatal(err)
	}
	v, ok, err := s.Get(ctx, "a")
	if err != nil || !ok || v != "1" {
		t.Fatalf("got %q %v %v", v, ok, err)
	}
	got, _ := s.Load(ctx, "b", "c", "missing")
	if len(got) != 2 || got["c"] != "3" {
		t.Fatalf("unexpected load: %v", got)
	}
	if err := s.Delete(ctx, "a", "b"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := s.Get(ctx, "a"); ok {
		t.Fatal("a should be deleted")
	}
	if s.Len() != 1 {
		t.Fatalf("len = %d", s.Len())
	}
}

func TestMemoryStoreInstallations(t *testing.T) {
	s := New()
	ctx := context.Background()
	_ = s.Save(ctx, map[string]string{
		"tablet:reviewed": "true",
		"phone:reviewed":  "false",
		"phone:last_used": "1",
		"reviewed":        "true",
	})
	ids, err := s.Installations(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 || ids[0] != "phone" || ids[1] != "tablet" {
		t.Fatalf("got %v", ids)
	}
}
